package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/sfwani/lockdown/internal/creds"
	"github.com/sfwani/lockdown/internal/selection"
)

func newRotateCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rotate",
		Short: "Set a fresh password on retained accounts",
		Long: "Rotates credentials on the accounts you keep: every retained account\n" +
			"gets the new password (sha512-crypt) written to its shadow entry.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			return a.runRotate(cmd.Flags())
		},
	}
}

func (a *app) runRotate(fs *pflag.FlagSet) error {
	minUID := a.resolveMinUID(fs)
	cands, err := a.candidates(minUID)
	if err != nil {
		return err
	}
	if len(cands) == 0 {
		a.rep.Info("no candidate accounts at or above UID %d", minUID)
		return nil
	}

	a.renderCandidates(a.prompt.Out(), cands)
	input := a.prompt.ReadLine("Indices of accounts to rotate (space-separated, empty = all)")
	idx, warnings := selection.ParseIndices(input, len(cands))
	for _, w := range warnings {
		a.rep.Warn("%s", w)
	}

	var chosen []string
	for i, c := range cands {
		if len(idx) == 0 {
			chosen = append(chosen, c.Name)
			continue
		}
		if _, ok := idx[i+1]; ok {
			chosen = append(chosen, c.Name)
		}
	}

	password, err := a.readNewPassword()
	if err != nil {
		return err
	}
	hash, err := creds.HashPassword(password)
	if err != nil {
		return err
	}

	if !a.prompt.Confirm(fmt.Sprintf("Rotate credentials on %d account(s): %v?", len(chosen), chosen)) {
		return errCancelled
	}

	rotated, failed := 0, 0
	for _, name := range chosen {
		if err := a.src.SetPasswordHash(name, hash); err != nil {
			a.rep.Error("rotate %s: %v", name, err)
			failed++
			continue
		}
		a.rep.Action("rotated credentials of %s", name)
		rotated++
	}
	a.rep.Info("rotated %d account(s), %d failed", rotated, failed)
	return nil
}

// readNewPassword reads without echo when stdin is a terminal, and
// falls back to a plain prompt when it is not (tests, pipes).
func (a *app) readNewPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		pw := a.prompt.ReadLine("New password")
		if pw == "" {
			return "", creds.ErrEmptyPassword
		}
		return pw, nil
	}

	fmt.Fprint(a.prompt.Out(), "New password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(a.prompt.Out())
	if err != nil {
		return "", err
	}
	fmt.Fprint(a.prompt.Out(), "Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(a.prompt.Out())
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	if len(first) == 0 {
		return "", creds.ErrEmptyPassword
	}
	return string(first), nil
}
