package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/jira-client/pkg/jira"
)

// NewBoardsCommand creates the boards command group.
func NewBoardsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boards",
		Short: "Manage agile boards",
		Long:  "List and inspect agile boards",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	cmd.AddCommand(newBoardsListCommand())
	cmd.AddCommand(newBoardsSprintsCommand())

	return cmd
}

func newBoardsListCommand() *cobra.Command {
	var (
		project   string
		boardType string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List boards",
		Long:  "List agile boards, optionally filtered by project or type",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			boards, err := apiClient.Boards().List(ctx, &jira.BoardOptions{
				ProjectKeyOrID: project,
				Type:           boardType,
			})
			if err != nil {
				return fmt.Errorf("failed to list boards: %w", err)
			}

			if len(boards) == 0 {
				_, _ = os.Stdout.WriteString("No boards found\n")

				return nil
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("ID", "Name")

			for _, board := range boards {
				_ = table.Append(stringOrNA(board.ID()), stringOrNA(board.Name()))
			}

			if err := table.Render(); err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "filter by project key or ID")
	cmd.Flags().StringVar(&boardType, "type", "", "filter by board type (scrum, kanban)")

	return cmd
}

func newBoardsSprintsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sprints BOARD_ID",
		Short: "List board sprints",
		Long:  "List the sprints of an agile board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			sprints, err := apiClient.Boards().Sprints(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to list sprints: %w", err)
			}

			return renderSprintList(sprints)
		},
	}
}

// NewSprintsCommand creates the sprints command group.
func NewSprintsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sprints",
		Short: "Manage sprints",
		Long:  "Inspect and modify agile sprints",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	cmd.AddCommand(newSprintViewCommand())
	cmd.AddCommand(newSprintCreateCommand())
	cmd.AddCommand(newSprintMoveCommand())

	return cmd
}

func newSprintViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view SPRINT_ID",
		Short: "View a sprint",
		Long:  "Display a single sprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			sprint, err := apiClient.Sprints().Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get sprint: %w", err)
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Property", "Value")
			_ = table.Append("ID", stringOrNA(sprint.ID()))
			_ = table.Append("Name", stringOrNA(sprint.Name()))
			_ = table.Append("State", stringOrNA(sprint.State()))

			if err := table.Render(); err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}

			return nil
		},
	}
}

func newSprintCreateCommand() *cobra.Command {
	var boardID int

	cmd := &cobra.Command{
		Use:   "create SPRINT_NAME",
		Short: "Create a sprint",
		Long:  "Create a new sprint on a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			sprint, err := apiClient.Sprints().Create(ctx, boardID, args[0])
			if err != nil {
				return fmt.Errorf("failed to create sprint: %w", err)
			}

			_, _ = fmt.Fprintf(os.Stdout, "Created sprint '%s' with ID %s\n", sprint.Name(), sprint.ID())

			return nil
		},
	}

	cmd.Flags().IntVarP(&boardID, "board", "b", 0, "origin board ID (required)")
	_ = cmd.MarkFlagRequired("board")

	return cmd
}

func newSprintMoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "move SPRINT_ID ISSUE_KEY...",
		Short: "Move issues to a sprint",
		Long:  "Move one or more issues into a sprint",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			err = apiClient.Sprints().MoveIssues(ctx, args[0], args[1:])
			if err != nil {
				return fmt.Errorf("failed to move issues: %w", err)
			}

			_, _ = fmt.Fprintf(os.Stdout, "Moved %d issues to sprint %s\n", len(args)-1, args[0])

			return nil
		},
	}
}

func renderSprintList(sprints []*jira.Sprint) error {
	if len(sprints) == 0 {
		_, _ = os.Stdout.WriteString("No sprints found\n")

		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Name", "State")

	for _, sprint := range sprints {
		_ = table.Append(stringOrNA(sprint.ID()), stringOrNA(sprint.Name()), stringOrNA(sprint.State()))
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}
