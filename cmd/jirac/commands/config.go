package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/jira-client/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrUnknownConfigKey = errors.New("unknown configuration key")
	ErrServerRequired   = errors.New("server URL is required")
)

// CLIConfig is the on-disk configuration persisted under ~/.jirac/config.yml.
type CLIConfig struct {
	Server          string `yaml:"server,omitempty"`
	Username        string `yaml:"username,omitempty"`
	APIToken        string `yaml:"api_token,omitempty"`
	Token           string `yaml:"token,omitempty"`
	ClientID        string `yaml:"client_id,omitempty"`
	ClientSecret    string `yaml:"client_secret,omitempty"`
	TokenURL        string `yaml:"token_url,omitempty"`
	CookieAuth      bool   `yaml:"cookie_auth,omitempty"`
	APIVersion      string `yaml:"api_version,omitempty"`
	AgileAPIVersion string `yaml:"agile_api_version,omitempty"`
	Output          string `yaml:"output,omitempty"`
}

// configMutex serializes config file writes across commands.
var configMutex sync.Mutex

// secretConfigKeys lists keys masked in display output.
var secretConfigKeys = map[string]bool{
	"api_token":     true,
	"token":         true,
	"client_secret": true,
}

// configFilePath returns the path of the active config file.
func configFilePath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yml"
	}

	return filepath.Join(home, ".jirac", "config.yml")
}

// loadConfig reads the config file, returning an empty config when absent.
func loadConfig() *CLIConfig {
	config := &CLIConfig{}

	data, err := os.ReadFile(configFilePath())
	if err != nil {
		return config
	}

	_ = yaml.Unmarshal(data, config)

	return config
}

// saveConfigStruct writes the config back to disk.
func saveConfigStruct(config *CLIConfig) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	path := configFilePath()

	err = os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	err = os.WriteFile(path, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// configKeyValues flattens the config for display, masking secrets.
func configKeyValues(config *CLIConfig) map[string]string {
	values := map[string]string{
		"server":            config.Server,
		"username":          config.Username,
		"api_token":         config.APIToken,
		"token":             config.Token,
		"client_id":         config.ClientID,
		"client_secret":     config.ClientSecret,
		"token_url":         config.TokenURL,
		"api_version":       config.APIVersion,
		"agile_api_version": config.AgileAPIVersion,
		"output":            config.Output,
	}

	if config.CookieAuth {
		values["cookie_auth"] = "true"
	}

	for key, value := range values {
		if value == "" {
			delete(values, key)

			continue
		}

		if secretConfigKeys[key] {
			values[key] = constants.MaskedSecret
		}
	}

	return values
}

// setConfigKey assigns a value to a named config key.
func setConfigKey(config *CLIConfig, key, value string) error {
	switch key {
	case "server":
		config.Server = value
	case "username":
		config.Username = value
	case "api_token":
		config.APIToken = value
	case "token":
		config.Token = value
	case "client_id":
		config.ClientID = value
	case "client_secret":
		config.ClientSecret = value
	case "token_url":
		config.TokenURL = value
	case "cookie_auth":
		config.CookieAuth = value == "true"
	case "api_version":
		config.APIVersion = value
	case "agile_api_version":
		config.AgileAPIVersion = value
	case "output":
		config.Output = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
	}

	return nil
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and modify the persisted CLI configuration",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			values := configKeyValues(loadConfig())

			output := viper.GetString("output")
			switch output {
			case constants.FormatJSON, constants.FormatYAML:
				return renderStructured(values, output)
			default:
				keys := make([]string, 0, len(values))
				for key := range values {
					keys = append(keys, key)
				}

				sort.Strings(keys)

				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Key", "Value")

				for _, key := range keys {
					_ = table.Append(key, values[key])
				}

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration value and persist it to the config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			configMutex.Lock()
			defer configMutex.Unlock()

			config := loadConfig()

			err := setConfigKey(config, args[0], args[1])
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(os.Stdout, "Set %s\n", args[0])

			return nil
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Remove a configuration value and persist the change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configMutex.Lock()
			defer configMutex.Unlock()

			config := loadConfig()

			err := setConfigKey(config, args[0], "")
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(os.Stdout, "Unset %s\n", args[0])

			return nil
		},
	}
}
