package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/jira-client/internal/constants"
	"github.com/fivetwenty-io/jira-client/pkg/jira"
)

// Static errors for err113 compliance.
var (
	ErrProjectRequired    = errors.New("project is required")
	ErrSummaryRequired    = errors.New("summary is required")
	ErrTransitionNotFound = errors.New("transition not found")
)

// NewIssueCommand creates the issue command group.
func NewIssueCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Manage issues",
		Long:  "View, create, and modify issues",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	cmd.AddCommand(newIssueViewCommand())
	cmd.AddCommand(newIssueCreateCommand())
	cmd.AddCommand(newIssueUpdateCommand())
	cmd.AddCommand(newIssueDeleteCommand())
	cmd.AddCommand(newIssueCommentCommand())
	cmd.AddCommand(newIssueAssignCommand())
	cmd.AddCommand(newIssueTransitionCommand())
	cmd.AddCommand(newIssueTransitionsCommand())
	cmd.AddCommand(newIssueWatchersCommand())
	cmd.AddCommand(newIssueWorklogCommand())

	return cmd
}

func newIssueViewCommand() *cobra.Command {
	var (
		fields []string
		expand []string
	)

	cmd := &cobra.Command{
		Use:   "view ISSUE_KEY",
		Short: "View an issue",
		Long:  "Display a single issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			issue, err := apiClient.Issues().Get(ctx, args[0], &jira.GetIssueOptions{
				Fields: fields,
				Expand: expand,
			})
			if err != nil {
				return fmt.Errorf("failed to get issue: %w", err)
			}

			output := viper.GetString("output")
			switch output {
			case constants.FormatJSON, constants.FormatYAML:
				raw, rawErr := issue.Raw()
				if rawErr != nil {
					return rawErr
				}

				return renderStructured(raw, output)
			default:
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Property", "Value")
				_ = table.Append("Key", stringOrNA(issue.Key()))
				_ = table.Append("Type", stringOrNA(issue.IssueType()))
				_ = table.Append("Status", stringOrNA(issue.Status()))
				_ = table.Append("Priority", stringOrNA(issue.Priority()))
				_ = table.Append("Assignee", stringOrNA(issue.Assignee()))
				_ = table.Append("Summary", stringOrNA(issue.Summary()))

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringSliceVar(&fields, "fields", nil, "limit returned fields")
	cmd.Flags().StringSliceVar(&expand, "expand", nil, "expand payload sections")

	return cmd
}

func newIssueCreateCommand() *cobra.Command {
	var (
		project     string
		issueType   string
		summary     string
		description string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an issue",
		Long:  "Create a new issue in a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if project == "" {
				return ErrProjectRequired
			}

			if summary == "" {
				return ErrSummaryRequired
			}

			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			fields := map[string]interface{}{
				"project":   map[string]interface{}{"key": project},
				"issuetype": map[string]interface{}{"name": issueType},
				"summary":   summary,
			}

			if description != "" {
				fields["description"] = description
			}

			issue, err := apiClient.Issues().Create(ctx, fields)
			if err != nil {
				return fmt.Errorf("failed to create issue: %w", err)
			}

			_, _ = fmt.Fprintf(os.Stdout, "Created issue %s\n", issue.Key())

			return nil
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "project key (required)")
	cmd.Flags().StringVar(&issueType, "type", "Task", "issue type name")
	cmd.Flags().StringVar(&summary, "summary", "", "issue summary (required)")
	cmd.Flags().StringVar(&description, "description", "", "issue description")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("summary")

	return cmd
}

func newIssueUpdateCommand() *cobra.Command {
	var (
		summary     string
		description string
		notify      bool
	)

	cmd := &cobra.Command{
		Use:   "update ISSUE_KEY",
		Short: "Update an issue",
		Long:  "Update fields of an existing issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()
			fields := map[string]interface{}{}

			if cmd.Flags().Changed("summary") {
				fields["summary"] = summary
			}

			if cmd.Flags().Changed("description") {
				fields["description"] = description
			}

			var opts []jira.UpdateOption
			if !notify {
				opts = append(opts, jira.WithoutNotification())
			}

			err = apiClient.Issues().Update(ctx, args[0], fields, opts...)
			if err != nil {
				return fmt.Errorf("failed to update issue: %w", err)
			}

			_, _ = fmt.Fprintf(os.Stdout, "Updated issue %s\n", args[0])

			return nil
		},
	}

	cmd.Flags().StringVar(&summary, "summary", "", "new summary")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().BoolVar(&notify, "notify", true, "notify watchers of the change")

	return cmd
}

func newIssueDeleteCommand() *cobra.Command {
	var (
		force          bool
		deleteSubtasks bool
	)

	cmd := &cobra.Command{
		Use:   "delete ISSUE_KEY",
		Short: "Delete an issue",
		Long:  "Delete an issue, optionally including its subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				_, _ = fmt.Fprintf(os.Stdout, "Really delete issue '%s'? (y/N): ", args[0])

				var response string

				_, _ = fmt.Scanln(&response)
				if response != "y" && response != "Y" {
					_, _ = os.Stdout.WriteString("Cancelled\n")

					return nil
				}
			}

			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			err = apiClient.Issues().Delete(ctx, args[0], deleteSubtasks)
			if err != nil {
				return fmt.Errorf("failed to delete issue: %w", err)
			}

			_, _ = fmt.Fprintf(os.Stdout, "Successfully deleted issue '%s'\n", args[0])

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "force deletion without confirmation")
	cmd.Flags().BoolVar(&deleteSubtasks, "delete-subtasks", false, "also delete subtasks")

	return cmd
}

func newIssueCommentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "comment ISSUE_KEY BODY",
		Short: "Comment on an issue",
		Long:  "Add a comment to an issue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			comment, err := apiClient.Issues().AddComment(ctx, args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to add comment: %w", err)
			}

			_, _ = fmt.Fprintf(os.Stdout, "Added comment %s to %s\n", comment.ID(), args[0])

			return nil
		},
	}
}

func newIssueAssignCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "assign ISSUE_KEY [ACCOUNT_ID]",
		Short: "Assign an issue",
		Long:  "Assign an issue to a user, or unassign it when no account is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			accountID := ""
			if len(args) > 1 {
				accountID = args[1]
			}

			err = apiClient.Issues().Assign(ctx, args[0], accountID)
			if err != nil {
				return fmt.Errorf("failed to assign issue: %w", err)
			}

			if accountID == "" {
				_, _ = fmt.Fprintf(os.Stdout, "Unassigned %s\n", args[0])
			} else {
				_, _ = fmt.Fprintf(os.Stdout, "Assigned %s to %s\n", args[0], accountID)
			}

			return nil
		},
	}
}

func newIssueTransitionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "transition ISSUE_KEY TRANSITION_NAME_OR_ID",
		Short: "Transition an issue",
		Long:  "Move an issue through its workflow by transition name or ID",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			transitionID, err := resolveTransition(ctx, apiClient, args[0], args[1])
			if err != nil {
				return err
			}

			err = apiClient.Issues().Transition(ctx, args[0], transitionID, nil)
			if err != nil {
				return fmt.Errorf("failed to transition issue: %w", err)
			}

			_, _ = fmt.Fprintf(os.Stdout, "Transitioned %s\n", args[0])

			return nil
		},
	}
}

// resolveTransition accepts either a transition ID or a name and returns
// the ID the server expects.
func resolveTransition(ctx context.Context, apiClient jira.Client, issueKey, nameOrID string) (string, error) {
	transitions, err := apiClient.Issues().Transitions(ctx, issueKey)
	if err != nil {
		return "", fmt.Errorf("failed to list transitions: %w", err)
	}

	for _, transition := range transitions {
		if transition.ID == nameOrID || transition.Name == nameOrID {
			return transition.ID, nil
		}
	}

	return "", fmt.Errorf("transition '%s': %w", nameOrID, ErrTransitionNotFound)
}

func newIssueTransitionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "transitions ISSUE_KEY",
		Short: "List issue transitions",
		Long:  "List the workflow transitions currently available for an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			transitions, err := apiClient.Issues().Transitions(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to list transitions: %w", err)
			}

			output := viper.GetString("output")
			switch output {
			case constants.FormatJSON, constants.FormatYAML:
				return renderStructured(transitions, output)
			default:
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("ID", "Name", "To")

				for _, transition := range transitions {
					_ = table.Append(transition.ID, transition.Name, stringOrNA(transition.To))
				}

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}
}

func newIssueWatchersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watchers ISSUE_KEY",
		Short: "List issue watchers",
		Long:  "List the users watching an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			watchers, err := apiClient.Issues().Watchers(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to list watchers: %w", err)
			}

			if len(watchers) == 0 {
				_, _ = os.Stdout.WriteString("No watchers found\n")

				return nil
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Account ID", "Display Name")

			for _, watcher := range watchers {
				_ = table.Append(stringOrNA(watcher.AccountID()), stringOrNA(watcher.DisplayName()))
			}

			if err := table.Render(); err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}

			return nil
		},
	}
}

func newIssueWorklogCommand() *cobra.Command {
	var comment string

	cmd := &cobra.Command{
		Use:   "worklog ISSUE_KEY TIME_SPENT",
		Short: "Log work on an issue",
		Long:  "Add a worklog entry such as '2h' or '30m' to an issue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			worklog, err := apiClient.Issues().AddWorklog(ctx, args[0], args[1], comment)
			if err != nil {
				return fmt.Errorf("failed to add worklog: %w", err)
			}

			_, _ = fmt.Fprintf(os.Stdout, "Logged %s on %s\n", worklog.TimeSpent(), args[0])

			return nil
		},
	}

	cmd.Flags().StringVar(&comment, "comment", "", "worklog comment")

	return cmd
}
