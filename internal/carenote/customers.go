package carenote

import (
	"context"
	"fmt"

	"github.com/ameistad/carenote/internal/apitypes"
	"github.com/ameistad/carenote/internal/ui"
	"github.com/spf13/cobra"
)

func CustomersCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "customers",
		Aliases: []string{"customer"},
		Short:   "Manage care recipients",
	}
	cmd.AddCommand(
		customersListCmd(flags),
		customersAddCmd(flags),
		customersDeleteCmd(flags),
		customersRecordsCmd(flags),
		customersRequiredCmd(flags),
	)
	return cmd
}

func customersListCmd(flags *globalFlags) *cobra.Command {
	var keyword string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List customers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient(flags)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
			defer cancel()

			customers, err := api.Customers(ctx, keyword)
			if err != nil {
				return fmt.Errorf("failed to list customers: %w", err)
			}
			if flags.json {
				return printJSON(customers)
			}
			rows := make([][]any, 0, len(customers))
			for _, c := range customers {
				rows = append(rows, []any{c.ID, c.Name, orDash(c.BirthDate), orDash(c.Grade), orDash(c.RecognitionNo)})
			}
			ui.Table([]string{"ID", "Name", "Birth date", "Grade", "Recognition no."}, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&keyword, "query", "q", "", "Filter by name")
	return cmd
}

func customersAddCmd(flags *globalFlags) *cobra.Command {
	var req apitypes.CustomerRequest

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient(flags)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
			defer cancel()

			req.Name = args[0]
			id, err := api.CreateCustomer(ctx, req)
			if err != nil {
				return fmt.Errorf("failed to add customer: %w", err)
			}
			ui.Success("Added customer %s with id %d", req.Name, id)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.BirthDate, "birth-date", "", "Birth date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.Gender, "gender", "", "Gender")
	cmd.Flags().StringVar(&req.Grade, "grade", "", "Long-term care grade")
	cmd.Flags().StringVar(&req.RecognitionNo, "recognition-no", "", "Long-term care recognition number")
	cmd.Flags().StringVar(&req.BenefitStartDate, "benefit-start", "", "Benefit start date (YYYY-MM-DD)")
	return cmd
}

func customersDeleteCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a customer and all their records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "customer")
			if err != nil {
				return err
			}
			api, err := newAPIClient(flags)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
			defer cancel()

			if err := api.DeleteCustomer(ctx, id); err != nil {
				return fmt.Errorf("failed to delete customer %d: %w", id, err)
			}
			ui.Success("Deleted customer %d", id)
			return nil
		},
	}
}

func customersRecordsCmd(flags *globalFlags) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "records <id>",
		Short: "List the daily records of a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "customer")
			if err != nil {
				return err
			}
			api, err := newAPIClient(flags)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
			defer cancel()

			recs, err := api.CustomerRecords(ctx, id, start, end)
			if err != nil {
				return fmt.Errorf("failed to get records: %w", err)
			}
			if flags.json {
				return printJSON(recs)
			}
			rows := make([][]any, 0, len(recs))
			for _, r := range recs {
				rows = append(rows, []any{r.RecordID, r.Date, orDash(r.TotalServiceTime), truncate(r.PhysicalNote, 40), truncate(r.NursingNote, 40)})
			}
			ui.Table([]string{"Record", "Date", "Total", "Physical note", "Nursing note"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "First date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "Last date (YYYY-MM-DD)")
	return cmd
}

func customersRequiredCmd(flags *globalFlags) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "required <id>",
		Short: "Show required-item completion of a customer's records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "customer")
			if err != nil {
				return err
			}
			api, err := newAPIClient(flags)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
			defer cancel()

			response, err := api.RequiredItems(ctx, id, start, end)
			if err != nil {
				return fmt.Errorf("failed to check required items: %w", err)
			}
			if flags.json {
				return printJSON(response)
			}
			rows := make([][]any, 0, len(response.Completion))
			for _, c := range response.Completion {
				rows = append(rows, []any{c.Category, fmt.Sprintf("%.1f%%", c.Rate), fmt.Sprintf("%d/%d", c.Completed, c.Required)})
			}
			ui.Table([]string{"Category", "Completion", "Items"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "First date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "Last date (YYYY-MM-DD)")
	return cmd
}
