package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gnucashboard/internal/aggregate"
	"gnucashboard/internal/core"
	"gnucashboard/internal/gnucash"
)

func newInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarise the expense and income tables of a book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			top, _ := cmd.Flags().GetInt("top")
			reader := gnucash.NewReader(cfg.BookPath, gnucash.ReaderOptions{
				MonthFormat: monthFormat(cfg),
				Separator:   cfg.CategorySeparator,
				Logger:      logger,
			})
			tables, err := reader.Read(cmd.Context())
			if err != nil {
				return err
			}
			return summarize(cmd.OutOrStdout(), cfg.BookPath, tables, top)
		},
	}
	cmd.Flags().Int("top", 5, "number of largest expense categories to list")
	return cmd
}

func summarize(out io.Writer, path string, tables core.Tables, top int) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Book:\t%s\n", path)
	describe(w, "Expenses", tables.Expenses, 1)
	describe(w, "Income", tables.Income, -1)
	fmt.Fprintf(w, "Categories:\t%d\n", len(aggregate.Categories(tables.Expenses)))

	groups := aggregate.SortedBySum(aggregate.SumByCategory(tables.Expenses))
	if top > len(groups) {
		top = len(groups)
	}
	if top > 0 {
		fmt.Fprintln(w, "Top categories:")
		currency := tables.Expenses.Currency()
		for _, g := range groups[:top] {
			fmt.Fprintf(w, "  %s\t%s\t%d rows\n", g.Key, core.FormatMoney(core.Float(g.Sum), currency), g.Count)
		}
	}
	return w.Flush()
}

// describe prints one table line. Income is stored negative; sign flips it.
func describe(w io.Writer, name string, t core.Table, sign float64) {
	months := aggregate.Months(t)
	span := core.Missing
	if len(months) > 0 {
		span = months[0] + " to " + months[len(months)-1]
	}
	total := sign * core.Float(t.Total())
	fmt.Fprintf(w, "%s:\t%d rows\t%d months (%s)\t%s\n",
		name, len(t), len(months), span, core.FormatMoney(total, t.Currency()))
}
