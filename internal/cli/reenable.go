package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sfwani/lockdown/internal/selection"
)

func newReenableCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reenable",
		Short: "Unlock accounts previously disabled by this tool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			return a.runReenable()
		},
	}
}

func (a *app) runReenable() error {
	// Reconciliation first: entries whose accounts are already active
	// again are purged here and never offered.
	names, err := a.eng.ReenableCandidates()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		a.rep.Info("ledger holds no disabled accounts")
		return nil
	}

	for i, n := range names {
		fmt.Fprintf(a.prompt.Out(), "  %d) %s\n", i+1, n)
	}
	input := a.prompt.ReadLine("Indices to re-enable (space-separated, empty = all)")
	idx, warnings := selection.ParseIndices(input, len(names))
	for _, w := range warnings {
		a.rep.Warn("%s", w)
	}

	chosen := names
	if len(idx) > 0 {
		chosen = nil
		for i, n := range names {
			if _, ok := idx[i+1]; ok {
				chosen = append(chosen, n)
			}
		}
	}

	if !a.prompt.Confirm(fmt.Sprintf("Re-enable %d account(s): %v?", len(chosen), chosen)) {
		return errCancelled
	}

	sum := a.eng.Reenable(chosen)
	a.rep.Info("re-enabled %d account(s), %d failed", sum.Reenabled, sum.Failed)
	return nil
}
