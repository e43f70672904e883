package auth

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/crucial707/asset-vault/cmd/cli/config"
	"github.com/crucial707/asset-vault/internal/apiclient"
)

// InitAuth registers login and logout on the root command.
func InitAuth(rootCmd *cobra.Command) {
	rootCmd.AddCommand(loginCmd(), logoutCmd())
}

// loginCmd exchanges username and password for an access token and stores it locally.
func loginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the asset API",
		Long:  "Authenticate with the asset API and store the access token for subsequent commands.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return errors.New("--username and --password are required")
			}

			var resp struct {
				AccessToken string `json:"access_token"`
				Role        string `json:"role"`
			}
			err := apiclient.New(config.APIURL(), "").PostForm(cmd.Context(), "/token",
				url.Values{"username": {username}, "password": {password}}, &resp)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if resp.AccessToken == "" {
				return errors.New("login succeeded but no token returned")
			}
			if err := config.SaveToken(resp.AccessToken); err != nil {
				return fmt.Errorf("save token: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (role: %s). Token stored locally.\n", username, resp.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username to authenticate as")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the locally stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := config.RemoveToken()
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintln(cmd.OutOrStdout(), "No user logged in.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}
