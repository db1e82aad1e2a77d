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

// NewSearchCommand creates the search command.
func NewSearchCommand() *cobra.Command {
	var (
		startAt    int
		maxResults int
		fields     []string
		allPages   bool
	)

	cmd := &cobra.Command{
		Use:   "search JQL",
		Short: "Search issues with JQL",
		Long:  "Run a JQL query and display matching issues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()
			opts := &jira.SearchOptions{
				StartAt:    startAt,
				MaxResults: maxResults,
				Fields:     fields,
			}

			var (
				issues []*jira.Issue
				total  int
			)

			if allPages {
				issues, err = apiClient.Search().All(ctx, args[0], opts)
				if err != nil {
					return fmt.Errorf("search failed: %w", err)
				}

				total = len(issues)
			} else {
				result, searchErr := apiClient.Search().Issues(ctx, args[0], opts)
				if searchErr != nil {
					return fmt.Errorf("search failed: %w", searchErr)
				}

				issues = result.Issues
				total = result.Total
			}

			return renderIssueList(issues, total)
		},
	}

	cmd.Flags().IntVar(&startAt, "start-at", 0, "zero-based index of the first result")
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "page size (0 for server default)")
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "limit returned fields")
	cmd.Flags().BoolVar(&allPages, "all", false, "fetch all pages")

	return cmd
}

func renderIssueList(issues []*jira.Issue, total int) error {
	output := viper.GetString("output")
	switch output {
	case constants.FormatJSON, constants.FormatYAML:
		raws := make([]map[string]interface{}, 0, len(issues))

		for _, issue := range issues {
			raw, err := issue.Raw()
			if err != nil {
				return err
			}

			raws = append(raws, raw)
		}

		return renderStructured(raws, output)
	default:
		if len(issues) == 0 {
			_, _ = os.Stdout.WriteString("No issues found\n")

			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Key", "Type", "Status", "Assignee", "Summary")

		for _, issue := range issues {
			_ = table.Append(issueRow(issue))
		}

		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		_, _ = fmt.Fprintf(os.Stdout, "Showing %d of %d issues\n", len(issues), total)
	}

	return nil
}
