package root

import (
	"github.com/spf13/cobra"

	"github.com/crucial707/asset-vault/cmd/cli/assets"
	"github.com/crucial707/asset-vault/cmd/cli/auth"
	"github.com/crucial707/asset-vault/cmd/cli/users"
)

// Exported RootCmd
var RootCmd = &cobra.Command{
	Use:           "dam",
	Short:         "Digital asset management CLI",
	Long:          "Command line interface for the asset API. Set DAM_API_URL to point at a server other than http://localhost:8000.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	auth.InitAuth(RootCmd)
	users.InitUsers(RootCmd)
	assets.InitAssets(RootCmd)
}

// Optional helper to return the RootCmd
func GetRoot() *cobra.Command {
	return RootCmd
}
