package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sfwani/lockdown/internal/snapshot"
	"github.com/sfwani/lockdown/internal/sudoers"
)

func newAuditCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Scan sudoers grants and revoke privileged group memberships",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			return a.runAudit(cmd.Flags())
		},
	}
}

func (a *app) runAudit(fs *pflag.FlagSet) error {
	groups, err := sudoers.Scan(a.cfg.SudoersPath, a.cfg.SudoersIncludeDir)
	if err != nil {
		return fmt.Errorf("scan sudoers: %w", err)
	}
	if len(groups) == 0 {
		a.rep.Info("no group-based privilege grants found")
		return nil
	}
	a.rep.Info("privileged groups: %s", strings.Join(groups, ", "))

	minUID := a.resolveMinUID(fs)
	cands, err := a.candidates(minUID)
	if err != nil {
		return err
	}
	if len(cands) == 0 {
		a.rep.Info("no candidate accounts at or above UID %d", minUID)
		return nil
	}

	// The group file is about to be edited; keep a copy first.
	arch, err := snapshot.New(a.cfg.SnapshotDir).Take("audit", []string{a.cfg.GroupPath})
	if err != nil {
		return fmt.Errorf("snapshot before revocation: %w", err)
	}
	a.rep.Info("snapshot written to %s", arch)

	// One prompt per (account, group) pair; there is no batch-wide
	// confirmation in this mode.
	revoked, err := a.eng.RevokePrivileges(cands, groups, func(account, group string) bool {
		return a.prompt.Confirm(fmt.Sprintf("Revoke %s's membership in privileged group %s?", account, group))
	})
	if err != nil {
		return err
	}
	a.rep.Info("revoked %d membership(s)", revoked)
	return nil
}
