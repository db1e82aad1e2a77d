package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/jira-client/internal/client"
	"github.com/fivetwenty-io/jira-client/internal/constants"
	"github.com/fivetwenty-io/jira-client/pkg/jira"
)

// defaultJSONIndent is the indentation used for JSON output.
const defaultJSONIndent = "  "

// CreateClient builds an API client from the persisted config with
// command-line flags taking precedence.
func CreateClient() (jira.Client, error) {
	config := loadConfig()

	server := viper.GetString("server")
	if server == "" {
		server = config.Server
	}

	if server == "" {
		return nil, ErrServerRequired
	}

	token := viper.GetString("token")
	if token == "" {
		token = config.Token
	}

	clientConfig := &jira.Config{
		BaseURL:         server,
		Token:           token,
		Username:        config.Username,
		APIToken:        config.APIToken,
		ClientID:        config.ClientID,
		ClientSecret:    config.ClientSecret,
		TokenURL:        config.TokenURL,
		CookieAuth:      config.CookieAuth,
		APIVersion:      config.APIVersion,
		AgileAPIVersion: config.AgileAPIVersion,
		Debug:           viper.GetBool("verbose"),
	}

	apiClient, err := client.New(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	return apiClient, nil
}

// renderStructured encodes a value as JSON or YAML to stdout.
func renderStructured(value interface{}, format string) error {
	switch format {
	case constants.FormatJSON:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", defaultJSONIndent)

		err := encoder.Encode(value)
		if err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(os.Stdout)

		err := encoder.Encode(value)
		if err != nil {
			return fmt.Errorf("encoding YAML: %w", err)
		}
	}

	return nil
}

// truncateSummary shortens long summaries for table display.
func truncateSummary(summary string) string {
	if len(summary) <= constants.SummaryDisplayLength {
		return summary
	}

	return summary[:constants.SummaryDisplayLength-3] + "..."
}

// stringOrNA substitutes a placeholder for empty values in table output.
func stringOrNA(value string) string {
	if value == "" {
		return constants.NotAvailable
	}

	return value
}

// issueRow extracts the standard table columns from an issue.
func issueRow(issue *jira.Issue) []string {
	return []string{
		stringOrNA(issue.Key()),
		stringOrNA(issue.IssueType()),
		stringOrNA(issue.Status()),
		stringOrNA(issue.Assignee()),
		truncateSummary(stringOrNA(issue.Summary())),
	}
}
