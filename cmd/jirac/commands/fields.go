package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/jira-client/internal/constants"
)

// NewFieldsCommand creates the fields command.
func NewFieldsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List field definitions",
		Long:  "List all field definitions, built-in and custom",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			fields, err := apiClient.Fields().List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list fields: %w", err)
			}

			output := viper.GetString("output")
			switch output {
			case constants.FormatJSON, constants.FormatYAML:
				return renderStructured(fields, output)
			default:
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("ID", "Name", "Custom", "Schema")

				for _, field := range fields {
					_ = table.Append(field.ID, field.Name, strconv.FormatBool(field.Custom), stringOrNA(field.Schema))
				}

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}
}

// NewFiltersCommand creates the filters command group.
func NewFiltersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filters",
		Short: "Manage saved filters",
		Long:  "List and create saved JQL filters",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	cmd.AddCommand(newFiltersFavouriteCommand())
	cmd.AddCommand(newFiltersCreateCommand())

	return cmd
}

func newFiltersFavouriteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "favourite",
		Short: "List favourite filters",
		Long:  "List the authenticated user's favourite filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			filters, err := apiClient.Filters().Favourite(ctx)
			if err != nil {
				return fmt.Errorf("failed to list favourite filters: %w", err)
			}

			return renderResourceList(filters, "No favourite filters found")
		},
	}
}

func newFiltersCreateCommand() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create NAME JQL",
		Short: "Create a filter",
		Long:  "Create a new saved filter from a JQL query",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			filter, err := apiClient.Filters().Create(ctx, args[0], args[1], description)
			if err != nil {
				return fmt.Errorf("failed to create filter: %w", err)
			}

			_, _ = fmt.Fprintf(os.Stdout, "Created filter '%s' with ID %s\n", args[0], filter.ID())

			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "filter description")

	return cmd
}
