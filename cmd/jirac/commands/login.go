package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/fivetwenty-io/jira-client/internal/client"
	"github.com/fivetwenty-io/jira-client/pkg/jira"
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var (
		server     string
		username   string
		apiToken   string
		password   string
		cookieAuth bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to a Jira server",
		Long:  "Authenticate against a Jira server and persist the credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Get server URL
			if server == "" {
				server = viper.GetString("server")
			}

			if server == "" {
				server = loadConfig().Server
			}

			if server == "" {
				reader := bufio.NewReader(os.Stdin)
				fmt.Print("Server URL: ")
				server, _ = reader.ReadString('\n')
				server = strings.TrimSpace(server)
			}

			if server == "" {
				return ErrServerRequired
			}

			if username == "" {
				reader := bufio.NewReader(os.Stdin)
				fmt.Print("Username: ")
				username, _ = reader.ReadString('\n')
				username = strings.TrimSpace(username)
			}

			secret := apiToken
			if secret == "" {
				secret = password
			}

			if secret == "" {
				prompt := "API token: "
				if cookieAuth {
					prompt = "Password: "
				}

				fmt.Print(prompt)

				byteSecret, err := term.ReadPassword(int(syscall.Stdin))
				if err != nil {
					return fmt.Errorf("failed to read secret: %w", err)
				}

				secret = string(byteSecret)

				fmt.Println()
			}

			clientConfig := &jira.Config{
				BaseURL:    server,
				Username:   username,
				CookieAuth: cookieAuth,
			}

			if cookieAuth {
				clientConfig.Password = secret
			} else {
				clientConfig.APIToken = secret
			}

			// Create client and verify the credentials
			apiClient, err := client.New(clientConfig)
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			ctx := context.Background()

			myself, err := apiClient.Myself(ctx)
			if err != nil {
				return fmt.Errorf("failed to authenticate: %w", err)
			}

			// Persist the working credentials
			configMutex.Lock()
			defer configMutex.Unlock()

			config := loadConfig()
			config.Server = server
			config.Username = username
			config.CookieAuth = cookieAuth

			if cookieAuth {
				config.APIToken = ""
			} else {
				config.APIToken = secret
			}

			err = saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			fmt.Printf("Successfully logged in to %s as %s\n", server, myself.DisplayName())

			return nil
		},
	}

	cmd.Flags().StringVarP(&server, "server", "s", "", "Jira server base URL")
	cmd.Flags().StringVarP(&username, "username", "u", "", "username for authentication")
	cmd.Flags().StringVar(&apiToken, "api-token", "", "API token for basic authentication")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password for session authentication")
	cmd.Flags().BoolVar(&cookieAuth, "cookie-auth", false, "use session cookie authentication")

	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Logout from the Jira server",
		Long:  "Clear persisted authentication credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			configMutex.Lock()
			defer configMutex.Unlock()

			config := loadConfig()
			config.APIToken = ""
			config.Token = ""
			config.ClientSecret = ""
			config.CookieAuth = false

			err := saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			fmt.Println("Successfully logged out")

			return nil
		},
	}
}
