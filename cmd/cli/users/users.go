package users

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crucial707/asset-vault/cmd/cli/config"
	"github.com/crucial707/asset-vault/internal/apiclient"
)

// ==========================
// Init Users
// ==========================
func InitUsers(rootCmd *cobra.Command) {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users",
	}
	usersCmd.AddCommand(registerCmd())
	rootCmd.AddCommand(usersCmd)
}

// ==========================
// Register User
// ==========================
func registerCmd() *cobra.Command {
	var username, email, password, role string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new user",
		Long:  "Register a new user. Role is \"user\" unless --role admin is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || email == "" || password == "" {
				return errors.New("--username, --email and --password are required")
			}

			payload := map[string]string{
				"username": username,
				"email":    email,
				"password": password,
			}
			if role != "" {
				payload["role"] = role
			}

			var out struct {
				Username string `json:"username"`
				Role     string `json:"role"`
			}
			if err := apiclient.New(config.APIURL(), "").PostJSON(cmd.Context(), "/users/", payload, &out); err != nil {
				return fmt.Errorf("register failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "User %s registered with role %s. You can now log in.\n", out.Username, out.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	cmd.Flags().StringVar(&role, "role", "", "Role: user or admin")
	return cmd
}
