package carenote

import (
	"context"
	"fmt"

	"github.com/ameistad/carenote/internal/apitypes"
	"github.com/ameistad/carenote/internal/db"
	"github.com/ameistad/carenote/internal/ui"
	"github.com/spf13/cobra"
)

func EmployeesCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "employees",
		Aliases: []string{"employee"},
		Short:   "Manage employees",
	}
	cmd.AddCommand(
		employeesListCmd(flags),
		employeesAddCmd(flags),
		employeesRemoveCmd(flags),
	)
	return cmd
}

func employeesListCmd(flags *globalFlags) *cobra.Command {
	var keyword string
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List employees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient(flags)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
			defer cancel()

			employees, err := api.Employees(ctx, keyword, status)
			if err != nil {
				return fmt.Errorf("failed to list employees: %w", err)
			}
			if flags.json {
				return printJSON(employees)
			}
			rows := make([][]any, 0, len(employees))
			for _, e := range employees {
				rows = append(rows, []any{e.ID, e.Name, e.Username, e.Role, orDash(e.JobType), e.WorkStatus})
			}
			ui.Table([]string{"ID", "Name", "Username", "Role", "Job", "Status"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&keyword, "query", "q", "", "Filter by name")
	cmd.Flags().StringVar(&status, "status", db.WorkStatusActive, fmt.Sprintf("Work status: %s, %s or %s", db.WorkStatusActive, db.WorkStatusResigned, db.WorkStatusAll))
	return cmd
}

func employeesAddCmd(flags *globalFlags) *cobra.Command {
	var req apitypes.EmployeeRequest

	cmd := &cobra.Command{
		Use:   "add <username> <name>",
		Short: "Add an employee",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient(flags)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
			defer cancel()

			req.Username, req.Name = args[0], args[1]
			generated := req.Password == ""
			if generated {
				token, err := generateAPIToken()
				if err != nil {
					return err
				}
				req.Password = token[:12]
			}
			id, err := api.CreateEmployee(ctx, req)
			if err != nil {
				return fmt.Errorf("failed to add employee: %w", err)
			}
			ui.Success("Added employee %s with id %d", req.Name, id)
			if generated {
				ui.Info("Initial password: %s", req.Password)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Password, "password", "", "Initial password (default: generated and printed)")
	cmd.Flags().StringVar(&req.Role, "role", db.RoleEmployee, fmt.Sprintf("Role: %s or %s", db.RoleEmployee, db.RoleAdmin))
	cmd.Flags().StringVar(&req.Gender, "gender", "", "Gender")
	cmd.Flags().StringVar(&req.BirthDate, "birth-date", "", "Birth date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.JobType, "job", "", "Job type")
	cmd.Flags().StringVar(&req.HireDate, "hire-date", "", "Hire date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.LicenseName, "license", "", "License name")
	cmd.Flags().StringVar(&req.LicenseDate, "license-date", "", "License date (YYYY-MM-DD)")
	return cmd
}

func employeesRemoveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Mark an employee as resigned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "employee")
			if err != nil {
				return err
			}
			api, err := newAPIClient(flags)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
			defer cancel()

			if err := api.DeleteEmployee(ctx, id); err != nil {
				return fmt.Errorf("failed to remove employee %d: %w", id, err)
			}
			ui.Success("Employee %d marked as %s", id, db.WorkStatusResigned)
			return nil
		},
	}
}
