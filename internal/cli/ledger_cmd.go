package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newLedgerCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect or clear the disabled-accounts ledger",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the ledger entries",
		RunE: func(c *cobra.Command, _ []string) error {
			a, err := newApp(c, *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			set, err := a.led.Load()
			if err != nil {
				return err
			}
			if len(set) == 0 {
				fmt.Fprintln(c.OutOrStdout(), "ledger is empty")
				return nil
			}
			names := make([]string, 0, len(set))
			for n := range set {
				names = append(names, n)
			}
			sort.Strings(names)
			for _, n := range names {
				fmt.Fprintln(c.OutOrStdout(), n)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the ledger (does not touch live accounts)",
		Long: "Clears every ledger entry without unlocking anything. Use this only\n" +
			"when the ledger no longer matches reality and reenable cannot fix it.",
		RunE: func(c *cobra.Command, _ []string) error {
			a, err := newApp(c, *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			set, err := a.led.Load()
			if err != nil {
				return err
			}
			if !a.prompt.Confirm(fmt.Sprintf("Erase all %d ledger entries? Accounts stay locked", len(set))) {
				return errCancelled
			}
			if err := a.led.Clear(); err != nil {
				return err
			}
			a.rep.Action("ledger cleared (%d entries dropped)", len(set))
			return nil
		},
	})

	return cmd
}
