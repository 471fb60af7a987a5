package cli

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/pflag"

	"github.com/sfwani/lockdown/internal/engine"
	"github.com/sfwani/lockdown/internal/identity"
	"github.com/sfwani/lockdown/internal/selection"
)

// runProcess is the default mode: list candidates, let the operator
// pick keepers, confirm once, then disable or delete the rest in one
// batch.
func (a *app) runProcess(fs *pflag.FlagSet, doDelete bool) error {
	minUID := a.resolveMinUID(fs)

	cands, err := a.candidates(minUID)
	if err != nil {
		return err
	}
	if len(cands) == 0 {
		a.rep.Info("no candidate accounts at or above UID %d", minUID)
		return nil
	}

	// Heal ledger drift up front, before the operator sees the table
	// and regardless of what they then choose to keep. Run reconciles
	// again per account, which is a no-op after this pass.
	for _, c := range cands {
		if _, err := a.eng.Reconcile(c.Name); err != nil {
			a.rep.Error("reconcile %s: %v", c.Name, err)
		}
	}

	a.renderCandidates(a.prompt.Out(), cands)

	input := a.prompt.ReadLine("Indices of accounts to KEEP (space-separated, empty = none)")
	keepIdx, warnings := selection.ParseIndices(input, len(cands))
	for _, w := range warnings {
		a.rep.Warn("%s", w)
	}

	names := make([]string, len(cands))
	for i, c := range cands {
		names[i] = c.Name
	}
	keep, actOn := selection.Partition(names, keepIdx)
	if len(actOn) == 0 {
		a.rep.Info("every candidate kept, nothing to do")
		return nil
	}

	action := engine.ActionDisable
	if doDelete {
		action = engine.ActionDelete
	}
	prompt := fmt.Sprintf("About to %s %d account(s): %v. Continue?", action, len(actOn), actOn)
	if !a.prompt.Confirm(prompt) {
		return errCancelled
	}

	sum, err := a.eng.Run(action, cands, keep)
	if err != nil {
		return err
	}
	a.rep.Info("batch done: %d disabled, %d deleted, %d kept, %d skipped, %d failed",
		sum.Disabled, sum.Deleted, sum.Kept, sum.Skipped, sum.Failed)
	return nil
}

func (a *app) renderCandidates(w io.Writer, cands []identity.Account) {
	ledgerSet, err := a.led.Load()
	if err != nil {
		a.rep.Warn("read ledger: %v", err)
		ledgerSet = map[string]struct{}{}
	}

	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"#", "User", "UID", "Status", "Ledger", "Home"})
	t.SetBorder(false)
	for i, c := range cands {
		inLedger := ""
		if _, ok := ledgerSet[c.Name]; ok {
			inLedger = "yes"
		}
		t.Append([]string{
			fmt.Sprintf("%d", i+1),
			c.Name,
			fmt.Sprintf("%d", c.UID),
			a.src.StatusOf(c.Name).String(),
			inLedger,
			c.Home,
		})
	}
	t.Render()
}
