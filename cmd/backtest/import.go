package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"tickback/config"
)

func newImportCmd(cfg *config.Config) *cobra.Command {
	var ticker, source, from, to string
	synth := syntheticSource{start: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy quotes from InfluxDB (or the synthetic generator) into SQLite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if source == sourceSQLite {
				return fmt.Errorf("import: source must differ from the sqlite destination")
			}
			lo, hi, err := dateRange(from, to)
			if err != nil {
				return err
			}
			src, release, err := openSource(cfg, source, synth)
			if err != nil {
				return err
			}
			defer release()

			quotes, err := src.ReadQuotes(cmd.Context(), ticker, lo, hi)
			if err != nil {
				return fmt.Errorf("import read: %w", err)
			}
			if len(quotes) == 0 {
				return fmt.Errorf("import: no quotes for %s in %s", ticker, source)
			}

			w, err := openWriter(cfg.SQLitePath)
			if err != nil {
				return err
			}
			defer w.Close()
			if err := w.WriteQuotes(cmd.Context(), ticker, quotes); err != nil {
				return err
			}

			slog.Info("quotes imported", "ticker", ticker, "source", source, "count", len(quotes))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d quotes for %s (%s..%s)\n", len(quotes), ticker,
				quotes[0].TS.Format(time.RFC3339), quotes[len(quotes)-1].TS.Format(time.RFC3339))
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&ticker, "ticker", "SYNTH", "Security to import")
	fl.StringVar(&source, "source", sourceInflux, "Quote source: influx or synthetic")
	fl.StringVar(&from, "from", "", "First date (YYYY-MM-DD)")
	fl.StringVar(&to, "to", "", "Last date (YYYY-MM-DD), inclusive")
	fl.Int64Var(&synth.seed, "seed", 1, "synthetic: random seed")
	fl.IntVar(&synth.ticks, "ticks", 20000, "synthetic: number of quotes")
	fl.DurationVar(&synth.step, "step", 30*time.Second, "synthetic: mean spacing of quotes")
	return cmd
}
