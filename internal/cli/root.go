// Package cli is the operator surface: one binary, one mode per run.
// The default mode processes candidates (disable or delete); reenable
// reverses prior disables; audit scans sudoers grants and revokes
// privileged group memberships. Everything beyond the mode and a few
// flags is interactive.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sfwani/lockdown/internal/config"
	"github.com/sfwani/lockdown/internal/engine"
	"github.com/sfwani/lockdown/internal/hostfs"
	"github.com/sfwani/lockdown/internal/identity"
	"github.com/sfwani/lockdown/internal/ledger"
	"github.com/sfwani/lockdown/internal/report"
	"github.com/sfwani/lockdown/internal/selection"
	"github.com/sfwani/lockdown/internal/snapshot"
)

// errCancelled marks an operator-declined confirmation. The run ends
// with no mutation and a non-zero exit, per the exit-status contract.
var errCancelled = errors.New("cancelled by operator")

// Execute runs the CLI and returns the process exit code. Individual
// per-account failures inside a batch do not reach here; they are
// reported and the run still exits zero.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errCancelled) {
			fmt.Fprintln(os.Stderr, "aborted: no changes made")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath  string
		doDelete bool
	)

	rootCmd := &cobra.Command{
		Use:   "lockdown",
		Short: "Host account hardening for timed defense exercises",
		Long: "lockdown discovers local accounts and sudo grants, lets the operator\n" +
			"choose which to keep, and disables or removes the rest while keeping\n" +
			"enough forensic data (ledger, deletion log, snapshots) to reverse it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			return a.runProcess(cmd.Flags(), doDelete)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "/etc/lockdown.yaml", "config file (missing file = defaults)")
	pf.Int("min-uid", 1000, "lowest UID considered a candidate")
	rootCmd.Flags().BoolVar(&doDelete, "delete", false, "delete non-kept accounts instead of disabling them")

	rootCmd.AddCommand(newReenableCmd(&cfgPath))
	rootCmd.AddCommand(newAuditCmd(&cfgPath))
	rootCmd.AddCommand(newRotateCmd(&cfgPath))
	rootCmd.AddCommand(newLedgerCmd(&cfgPath))
	return rootCmd
}

// app wires the engine and its collaborators for one run. Everything
// takes its paths from the config value, nothing from globals.
type app struct {
	cfg    config.Config
	rep    *report.Reporter
	src    *identity.HostFiles
	led    *ledger.Store
	eng    *engine.Engine
	prompt *selection.Prompter
}

func newApp(cmd *cobra.Command, cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	// Precondition: mutating the system identity files needs root.
	// Rehearsal configs pointing at a scratch directory do not.
	if cfg.ShadowPath == "/etc/shadow" && os.Geteuid() != 0 {
		return nil, errors.New("must run as root to modify system accounts")
	}

	// Setup failures are fatal: without ledger and report storage no
	// mutation may happen.
	if err := hostfs.EnsureDir(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	rep, err := report.New(cmd.OutOrStdout(), cfg.ReportDir)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	hostfs.OnFallback = func(path string, err error) {
		rep.Warn("atomic rewrite of %s refused (%v), rewrote in place", path, err)
	}
	led := ledger.NewStore(cfg.LedgerPath)
	if err := led.Ensure(); err != nil {
		rep.Close()
		return nil, fmt.Errorf("create ledger: %w", err)
	}

	src := identity.NewHostFiles(cfg.PasswdPath, cfg.ShadowPath, cfg.GroupPath)
	eng := engine.New(src, led, engine.NewDeletionLog(cfg.DeletionLogPath), rep).
		WithSnapshot(snapshot.New(cfg.SnapshotDir), []string{cfg.PasswdPath, cfg.ShadowPath, cfg.GroupPath})

	return &app{
		cfg:    cfg,
		rep:    rep,
		src:    src,
		led:    led,
		eng:    eng,
		prompt: selection.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout()),
	}, nil
}

func (a *app) close() {
	if a.rep.Path() != "" {
		a.rep.Info("report saved to %s", a.rep.Path())
	}
	_ = a.rep.Close()
}

// candidates lists act-eligible accounts: UID at or above the
// threshold, superuser excluded by the source, protected names dropped
// here.
func (a *app) candidates(minUID int) ([]identity.Account, error) {
	all, err := a.src.ListCandidates(minUID)
	if err != nil {
		return nil, err
	}
	out := make([]identity.Account, 0, len(all))
	for _, acct := range all {
		if a.cfg.IsProtected(acct.Name) {
			a.rep.Info("%s is protected, not a candidate", acct.Name)
			continue
		}
		out = append(out, acct)
	}
	return out, nil
}

// resolveMinUID uses the flag when given, otherwise prompts. Malformed
// input is warned about and the config default used instead.
func (a *app) resolveMinUID(fs *pflag.FlagSet) int {
	if fs.Changed("min-uid") {
		v, _ := fs.GetInt("min-uid")
		return v
	}
	in := a.prompt.ReadLine(fmt.Sprintf("Minimum UID to consider [%d]", a.cfg.MinUID))
	if in == "" {
		return a.cfg.MinUID
	}
	var n int
	if _, err := fmt.Sscanf(in, "%d", &n); err != nil || n < 0 {
		a.rep.Warn("invalid UID threshold %q, using %d", in, a.cfg.MinUID)
		return a.cfg.MinUID
	}
	return n
}
