package carenote

import (
	"context"
	"fmt"
	"time"

	"github.com/ameistad/carenote/internal/helpers"
	"github.com/ameistad/carenote/internal/ui"
	"github.com/spf13/cobra"
)

func SettingsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage encrypted server settings such as AI provider keys",
	}
	cmd.AddCommand(
		settingsListCmd(flags),
		settingsSetCmd(flags),
		settingsDeleteCmd(flags),
	)
	return cmd
}

func settingsListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored settings by digest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient(flags)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
			defer cancel()

			settings, err := api.SettingsList(ctx)
			if err != nil {
				return fmt.Errorf("failed to list settings: %w", err)
			}
			if flags.json {
				return printJSON(settings)
			}
			rows := make([][]any, 0, len(settings))
			for _, s := range settings {
				updated, err := helpers.RelativeTimeString(s.UpdatedAt, time.Now())
				if err != nil {
					updated = s.UpdatedAt
				}
				rows = append(rows, []any{s.Name, s.DigestValue, updated})
			}
			ui.Table([]string{"Name", "Digest", "Updated"}, rows)
			return nil
		},
	}
}

func settingsSetCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Store a setting, encrypted on the server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient(flags)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
			defer cancel()

			if err := api.SetSetting(ctx, args[0], args[1]); err != nil {
				return fmt.Errorf("failed to set %s: %w", args[0], err)
			}
			ui.Success("Setting %s saved", args[0])
			return nil
		},
	}
}

func settingsDeleteCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient(flags)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
			defer cancel()

			if err := api.DeleteSetting(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete %s: %w", args[0], err)
			}
			ui.Success("Setting %s deleted", args[0])
			return nil
		},
	}
}
