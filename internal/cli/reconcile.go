package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mrlokans/librarian/internal/entrypoint"
)

func newReconcileCommand(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Check every book's counters against the borrow ledger",
		Long: `Check that copies minus residue equals the number of outstanding borrows
for every book. Mismatches are reported, never repaired. Exits non-zero when
any book is inconsistent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := entrypoint.NewServices(opts.LoadConfig())
			if err != nil {
				return err
			}
			defer services.Close()

			report, err := services.Coordinator.CheckInventory(cmd.Context())
			services.Audit.LogReconcile(report.Checked, len(report.Mismatches), err)
			if err != nil {
				return fmt.Errorf("reconcile failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Checked %d books, %d mismatched\n", report.Checked, len(report.Mismatches))
			if report.Consistent() {
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCOPIES\tRESIDUE\tOUTSTANDING")
			for _, row := range report.Mismatches {
				fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\n", row.BookID, row.Name, row.Copies, row.Residue, row.Outstanding)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			return ErrInventoryMismatch
		},
	}
}
