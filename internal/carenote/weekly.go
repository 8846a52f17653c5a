package carenote

import (
	"context"
	"fmt"
	"sort"

	"github.com/ameistad/carenote/internal/ui"
	"github.com/ameistad/carenote/internal/weekly"
	"github.com/spf13/cobra"
)

func WeeklyCmd(flags *globalFlags) *cobra.Command {
	var week string
	var refresh bool
	var report bool
	var history int

	cmd := &cobra.Command{
		Use:   "weekly <customer-id>",
		Short: "Compare a customer's week with the previous one",
		Long: `Show the weekly analysis of a customer: per-category scores of this week against the
previous week, and optionally write the weekly report with AI.

--week takes any date of the week (YYYY-MM-DD); the week starts on Monday.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			customerID, err := parseID(args[0], "customer")
			if err != nil {
				return err
			}
			api, err := newAPIClient(flags)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
			defer cancel()

			if history > 0 {
				reports, err := api.WeeklyReports(ctx, customerID, history)
				if err != nil {
					return fmt.Errorf("failed to list weekly reports: %w", err)
				}
				if flags.json {
					return printJSON(reports)
				}
				for _, r := range reports {
					ui.Section(fmt.Sprintf("%s ~ %s", r.StartDate, r.EndDate), []string{r.Text})
				}
				return nil
			}

			if report {
				response, err := api.GenerateWeeklyReport(ctx, customerID, week)
				if err != nil {
					return fmt.Errorf("failed to generate weekly report: %w", err)
				}
				if flags.json {
					return printJSON(response)
				}
				printWeeklyStatus(response.Status)
				ui.Section("Weekly report", []string{response.Report})
				return nil
			}

			status, err := api.Weekly(ctx, customerID, week, refresh)
			if err != nil {
				return fmt.Errorf("failed to get weekly analysis: %w", err)
			}
			if flags.json {
				return printJSON(status)
			}
			printWeeklyStatus(status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&week, "week", "w", "", "Any date of the week (default: this week)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Recompute instead of using the cached analysis")
	cmd.Flags().BoolVar(&report, "report", false, "Write the weekly report with AI")
	cmd.Flags().IntVar(&history, "history", 0, "List the last N saved reports instead")
	return cmd
}

func printWeeklyStatus(status *weekly.Status) {
	if status == nil {
		return
	}
	cached := ""
	if status.Cached {
		cached = " (cached)"
	}
	ui.Info("%s: %s ~ %s against %s ~ %s%s",
		status.Name, status.Current.Start, status.Current.End, status.Previous.Start, status.Previous.End, cached)

	keys := make([]string, 0, len(status.Scores))
	for key := range status.Scores {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	rows := make([][]any, 0, len(keys))
	for _, key := range keys {
		score := status.Scores[key]
		rows = append(rows, []any{score.Label, formatFloat(score.Prev), formatFloat(score.Curr), formatFloat(score.Diff), orDash(score.Trend)})
	}
	ui.Table([]string{"Category", "Previous", "Current", "Diff", "Trend"}, rows)
}
