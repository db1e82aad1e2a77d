package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/jira-client/internal/constants"
	"github.com/fivetwenty-io/jira-client/pkg/jira"
)

// NewProjectsCommand creates the projects command group.
func NewProjectsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage projects",
		Long:  "List and inspect projects",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	cmd.AddCommand(newProjectsListCommand())
	cmd.AddCommand(newProjectsViewCommand())
	cmd.AddCommand(newProjectsComponentsCommand())
	cmd.AddCommand(newProjectsVersionsCommand())

	return cmd
}

func newProjectsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Long:  "List all projects visible to the authenticated user",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			projects, err := apiClient.Projects().List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list projects: %w", err)
			}

			output := viper.GetString("output")
			switch output {
			case constants.FormatJSON, constants.FormatYAML:
				raws := make([]map[string]interface{}, 0, len(projects))

				for _, project := range projects {
					raw, rawErr := project.Raw()
					if rawErr != nil {
						return rawErr
					}

					raws = append(raws, raw)
				}

				return renderStructured(raws, output)
			default:
				if len(projects) == 0 {
					_, _ = os.Stdout.WriteString("No projects found\n")

					return nil
				}

				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Key", "Name", "ID")

				for _, project := range projects {
					_ = table.Append(stringOrNA(project.Key()), stringOrNA(project.Name()), stringOrNA(project.ID()))
				}

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}
}

func newProjectsViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view PROJECT_KEY",
		Short: "View a project",
		Long:  "Display a single project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			project, err := apiClient.Projects().Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get project: %w", err)
			}

			output := viper.GetString("output")
			switch output {
			case constants.FormatJSON, constants.FormatYAML:
				raw, rawErr := project.Raw()
				if rawErr != nil {
					return rawErr
				}

				return renderStructured(raw, output)
			default:
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Property", "Value")
				_ = table.Append("Key", stringOrNA(project.Key()))
				_ = table.Append("Name", stringOrNA(project.Name()))
				_ = table.Append("ID", stringOrNA(project.ID()))

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}
}

func newProjectsComponentsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "components PROJECT_KEY",
		Short: "List project components",
		Long:  "List the components of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			components, err := apiClient.Projects().Components(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to list components: %w", err)
			}

			return renderResourceList(components, "No components found")
		},
	}
}

func newProjectsVersionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "versions PROJECT_KEY",
		Short: "List project versions",
		Long:  "List the versions of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			versions, err := apiClient.Projects().Versions(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to list versions: %w", err)
			}

			return renderResourceList(versions, "No versions found")
		},
	}
}

// renderResourceList prints generic resources as ID plus display string.
func renderResourceList(resources []*jira.Resource, emptyMsg string) error {
	output := viper.GetString("output")
	switch output {
	case constants.FormatJSON, constants.FormatYAML:
		raws := make([]map[string]interface{}, 0, len(resources))

		for _, res := range resources {
			raw, err := res.Raw()
			if err != nil {
				return err
			}

			raws = append(raws, raw)
		}

		return renderStructured(raws, output)
	default:
		if len(resources) == 0 {
			_, _ = os.Stdout.WriteString(emptyMsg + "\n")

			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.Header("ID", "Name")

		for _, res := range resources {
			_ = table.Append(stringOrNA(res.ID()), res.String())
		}

		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}
	}

	return nil
}
