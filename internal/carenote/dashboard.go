package carenote

import (
	"context"
	"fmt"

	"github.com/ameistad/carenote/internal/dashboard"
	"github.com/ameistad/carenote/internal/ui"
	"github.com/spf13/cobra"
)

func DashboardCmd(flags *globalFlags) *cobra.Command {
	var start, end, user string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show employee evaluation KPIs and rankings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient(flags)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
			defer cancel()

			dash, err := api.Dashboard(ctx, start, end, user)
			if err != nil {
				return fmt.Errorf("failed to load dashboard: %w", err)
			}
			if flags.json {
				return printJSON(dash)
			}
			printDashboard(dash)
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "First date (default: 30 days ago)")
	cmd.Flags().StringVar(&end, "end", "", "Last date (default: today)")
	cmd.Flags().StringVarP(&user, "user", "u", "", "Show the individual report of one employee")
	return cmd
}

func printDashboard(dash *dashboard.Dashboard) {
	k := dash.KPIs
	ui.Section(fmt.Sprintf("%s ~ %s", dash.Filter.Start, dash.Filter.End), []string{
		fmt.Sprintf("Total issues:        %d (%+d against the previous month)", k.TotalIssues, k.ChangeFromPrevMonth),
		fmt.Sprintf("Most frequent type:  %s (%d)", orDash(k.TopType), k.TopTypeCount),
		fmt.Sprintf("High-risk employees: %d of %d", k.HighRiskEmployees, dash.TotalEmployees),
	})

	counts := make([][]any, 0, len(dash.CategoryCounts))
	for _, c := range dash.CategoryCounts {
		counts = append(counts, []any{c.Key, c.Count})
	}
	ui.Table([]string{"Category", "Issues"}, counts)

	ranking := make([][]any, 0, len(dash.Ranking))
	for _, r := range dash.Ranking {
		ranking = append(ranking, []any{r.Rank, r.Name, r.Count, orDash(r.TopType)})
	}
	ui.Table([]string{"Rank", "Employee", "Issues", "Top type"}, ranking)

	if ind := dash.Individual; ind != nil {
		ui.Section(ind.Name, []string{
			fmt.Sprintf("Issues: %d, mostly %s in %s", ind.Total, orDash(ind.TopType), orDash(ind.TopCategory)),
		})
		weeks := make([][]any, 0, len(ind.Weekly))
		for _, w := range ind.Weekly {
			weeks = append(weeks, []any{w.Week, w.Count})
		}
		ui.Table([]string{"Week", "Issues"}, weeks)
	}
}
