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

// NewInfoCommand creates the info command.
func NewInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Display server information",
		Long:  "Display metadata about the target server and the authenticated user",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			info, err := apiClient.ServerInfo(ctx)
			if err != nil {
				return fmt.Errorf("failed to get server info: %w", err)
			}

			output := viper.GetString("output")
			switch output {
			case constants.FormatJSON, constants.FormatYAML:
				return renderStructured(info, output)
			default:
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Property", "Value")
				_ = table.Append("URL", stringOrNA(info.BaseURL))
				_ = table.Append("Version", stringOrNA(info.Version))
				_ = table.Append("Deployment", stringOrNA(info.DeploymentType))
				_ = table.Append("Title", stringOrNA(info.ServerTitle))
				_ = table.Append("Build", strconv.Itoa(info.BuildNumber))

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}

				myself, selfErr := apiClient.Myself(ctx)
				if selfErr == nil {
					_, _ = fmt.Fprintf(os.Stdout, "Logged in as %s\n", myself.DisplayName())
				}
			}

			return nil
		},
	}
}
