package result

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteSummary prints the info table of a as aligned columns, one strategy
// per column.
func WriteSummary(w io.Writer, a *AggregateResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%s\t", a.Ticker)
	for _, name := range a.StrategyNames {
		fmt.Fprintf(tw, "%s\t", name)
	}
	fmt.Fprintln(tw)

	rows := a.InfoTable()
	if len(rows) == 0 {
		return tw.Flush()
	}
	fields := make([][]Field, len(rows))
	for i, r := range rows {
		fields[i] = r.Info.Fields()
	}
	for f := range fields[0] {
		fmt.Fprintf(tw, "%s\t", fields[0][f].Name)
		for i := range rows {
			fmt.Fprintf(tw, "%s\t", fields[i][f].Value)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
