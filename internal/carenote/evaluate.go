package carenote

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ameistad/carenote/internal/apitypes"
	"github.com/ameistad/carenote/internal/db"
	"github.com/ameistad/carenote/internal/evaluation"
	"github.com/ameistad/carenote/internal/ui"
	"github.com/spf13/cobra"
)

var evaluationCategories = []string{
	evaluation.CategoryPhysical,
	evaluation.CategoryCognitive,
	evaluation.CategoryNursing,
	evaluation.CategoryRecovery,
}

func EvaluateCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Grade care notes with AI and record employee evaluations",
	}
	cmd.AddCommand(
		evaluateRecordCmd(flags),
		evaluateBatchCmd(flags),
		evaluateStatsCmd(flags),
		evaluateEmployeeCmd(flags),
	)
	return cmd
}

func evaluateRecordCmd(flags *globalFlags) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "record <record-id>",
		Short: "Run the AI evaluation of one daily record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recordID, err := parseID(args[0], "record")
			if err != nil {
				return err
			}
			category = strings.ToUpper(strings.TrimSpace(category))
			if category != "" && !slices.Contains(evaluationCategories, category) {
				return fmt.Errorf("category must be one of %s", strings.Join(evaluationCategories, ", "))
			}
			api, err := newAPIClient(flags)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
			defer cancel()

			response, err := api.EvaluateRecord(ctx, recordID, category)
			if err != nil {
				return fmt.Errorf("evaluation failed: %w", err)
			}
			if flags.json {
				return printJSON(response)
			}
			printAIEvaluations(response.Evaluations)
			if response.Note != nil && response.Note.Suggestion != "" {
				ui.Section("Suggestion", []string{response.Note.Suggestion})
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Evaluate one category only: "+strings.Join(evaluationCategories, ", "))
	return cmd
}

func printAIEvaluations(evaluations []db.AIEvaluation) {
	rows := make([][]any, 0, len(evaluations))
	for _, e := range evaluations {
		rows = append(rows, []any{e.Category, ui.Grade(e.GradeCode), e.OERFidelity, e.SpecificityScore, e.GrammarScore, truncate(e.ReasonText, 50)})
	}
	ui.Table([]string{"Category", "Grade", "OER", "Specificity", "Grammar", "Reason"}, rows)
}

func evaluateBatchCmd(flags *globalFlags) *cobra.Command {
	var req apitypes.BatchEvaluateRequest

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Evaluate every record in a date range and follow the job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Start == "" || req.End == "" {
				return fmt.Errorf("--start and --end are required")
			}
			api, err := newAPIClient(flags)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
			defer cancel()

			jobID, err := api.BatchEvaluate(ctx, req)
			if err != nil {
				return fmt.Errorf("failed to start batch evaluation: %w", err)
			}
			ui.Info("Evaluation job %s started", jobID)

			streamCtx, stopStream := context.WithCancel(context.Background())
			defer stopStream()
			final, err := api.StreamJobLogs(streamCtx, jobID, ui.DisplayJobLogEntry)
			if err != nil {
				return err
			}
			return jobResult(final)
		},
	}

	cmd.Flags().StringVar(&req.Start, "start", "", "First date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.End, "end", "", "Last date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&req.Concurrency, "concurrency", 0, "Parallel AI requests (default: server setting)")
	return cmd
}

func evaluateStatsCmd(flags *globalFlags) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "stats <customer-id>",
		Short: "Show AI grade statistics of a customer's records",
		Args:  cobra.ExactArgs(1),
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

			stats, err := api.EvaluationStats(ctx, customerID, start, end)
			if err != nil {
				return fmt.Errorf("failed to get evaluation stats: %w", err)
			}
			if flags.json {
				return printJSON(stats)
			}
			rows := make([][]any, 0, len(stats))
			for _, s := range stats {
				rows = append(rows, []any{
					s.Category, s.Total,
					fmt.Sprintf("%.0f%%", s.OERRatio), fmt.Sprintf("%.0f%%", s.SpecificityRatio), fmt.Sprintf("%.0f%%", s.GrammarRatio),
					s.Excellent, s.Average, s.Improve, s.Poor,
				})
			}
			ui.Table([]string{"Category", "Total", "OER", "Specificity", "Grammar",
				db.GradeExcellent, db.GradeAverage, db.GradeImprove, db.GradePoor}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "First date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "Last date (YYYY-MM-DD)")
	return cmd
}

func evaluateEmployeeCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "employee",
		Short: "Record issues found in an employee's notes",
	}
	cmd.AddCommand(
		evaluateEmployeeAddCmd(flags),
		evaluateEmployeeListCmd(flags),
		evaluateEmployeeDeleteCmd(flags),
	)
	return cmd
}

func evaluateEmployeeAddCmd(flags *globalFlags) *cobra.Command {
	var req apitypes.EmployeeEvaluationRequest

	cmd := &cobra.Command{
		Use:   "add <record-id>",
		Short: "Record an issue against the writer of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recordID, err := parseID(args[0], "record")
			if err != nil {
				return err
			}
			if !slices.Contains(db.EvalCategories, req.Category) {
				return fmt.Errorf("category must be one of %s", strings.Join(db.EvalCategories, ", "))
			}
			if !slices.Contains(db.EvalTypes, req.EvaluationType) {
				return fmt.Errorf("type must be one of %s", strings.Join(db.EvalTypes, ", "))
			}
			api, err := newAPIClient(flags)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
			defer cancel()

			req.RecordID = recordID
			id, err := api.CreateEmployeeEvaluation(ctx, req)
			if err != nil {
				return fmt.Errorf("failed to save employee evaluation: %w", err)
			}
			ui.Success("Saved employee evaluation %d", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Category, "category", db.EvalCategoryCommon, "Category: "+strings.Join(db.EvalCategories, ", "))
	cmd.Flags().StringVarP(&req.EvaluationType, "type", "t", db.EvalTypeMissing, "Issue type: "+strings.Join(db.EvalTypes, ", "))
	cmd.Flags().StringVar(&req.TargetUserName, "employee", "", "Name of the employee who wrote the note")
	cmd.Flags().StringVar(&req.TargetDate, "date", "", "Date of the note (default: the record date)")
	cmd.Flags().StringVarP(&req.Comment, "comment", "m", "", "Comment")
	cmd.Flags().IntVar(&req.Score, "score", 1, "Score")
	return cmd
}

func evaluateEmployeeListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list <record-id>",
		Short: "List the employee evaluations of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recordID, err := parseID(args[0], "record")
			if err != nil {
				return err
			}
			api, err := newAPIClient(flags)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
			defer cancel()

			evaluations, err := api.RecordEmployeeEvaluations(ctx, recordID)
			if err != nil {
				return fmt.Errorf("failed to list employee evaluations: %w", err)
			}
			if flags.json {
				return printJSON(evaluations)
			}
			rows := make([][]any, 0, len(evaluations))
			for _, e := range evaluations {
				rows = append(rows, []any{e.ID, e.EvaluationDate, orDash(e.TargetUserName), e.Category, e.EvaluationType, truncate(e.Comment, 40)})
			}
			ui.Table([]string{"ID", "Date", "Employee", "Category", "Type", "Comment"}, rows)
			return nil
		},
	}
}

func evaluateEmployeeDeleteCmd(flags *globalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an employee evaluation",
		Long: `Delete an employee evaluation. Evaluations can be undone freely right after saving;
older ones need --force.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "evaluation")
			if err != nil {
				return err
			}
			api, err := newAPIClient(flags)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
			defer cancel()

			if err := api.DeleteEmployeeEvaluation(ctx, id, force); err != nil {
				return fmt.Errorf("failed to delete employee evaluation %d: %w", id, err)
			}
			ui.Success("Deleted employee evaluation %d", id)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete even after the undo window")
	return cmd
}
