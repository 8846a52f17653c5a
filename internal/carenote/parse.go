package carenote

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ameistad/carenote/internal/constants"
	"github.com/ameistad/carenote/internal/parser"
	"github.com/ameistad/carenote/internal/records"
	"github.com/ameistad/carenote/internal/ui"
	"github.com/spf13/cobra"
)

// parseResult is what 'carenote parse --json' prints.
type parseResult struct {
	Records    []records.Record        `json:"records"`
	Checks     []records.RequiredCheck `json:"checks"`
	Completion map[string]float64      `json:"completion"`
}

// ParseCmd parses a care record file locally without a server.
func ParseCmd(flags *globalFlags) *cobra.Command {
	var year int
	var debug bool

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a care record PDF or layout file locally",
		Long: `Parse a care record PDF (or a YAML/JSON/TOML layout dump) on this machine and print the
records together with the required-item completion per category. Nothing is stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if debug {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			doc, err := parser.Load(args[0])
			if err != nil {
				return err
			}
			recs, err := parser.New(year, logger).Parse(doc)
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}

			checks := records.CheckRequiredItems(recs)
			result := parseResult{
				Records:    recs,
				Checks:     checks,
				Completion: make(map[string]float64, len(records.Categories)),
			}
			for _, category := range records.Categories {
				rate, _, _ := records.CompletionRate(checks, category)
				result.Completion[category] = rate
			}

			if flags.json {
				return printJSON(result)
			}
			printParseResult(result, checks)
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", constants.DefaultRecordYear, "Year for sheet dates printed as month/day")
	cmd.Flags().BoolVar(&debug, "debug", false, "Log parser details to stderr")
	return cmd
}

func printParseResult(result parseResult, checks []records.RequiredCheck) {
	rows := make([][]any, 0, len(result.Records))
	for _, r := range result.Records {
		rows = append(rows, []any{
			r.Date,
			r.CustomerName,
			orDash(r.TotalServiceTime),
			orDash(r.StartTime) + "~" + orDash(r.EndTime),
			orDash(r.TransportService),
		})
	}
	ui.Table([]string{"Date", "Customer", "Total", "Time", "Transport"}, rows)

	completion := make([][]any, 0, len(records.Categories))
	for _, category := range records.Categories {
		rate, completed, required := records.CompletionRate(checks, category)
		completion = append(completion, []any{category, fmt.Sprintf("%.1f%%", rate), fmt.Sprintf("%d/%d", completed, required)})
	}
	ui.Table([]string{"Category", "Completion", "Items"}, completion)
	ui.Success("Parsed %d records", len(result.Records))
}
