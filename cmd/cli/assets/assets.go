package assets

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/crucial707/asset-vault/cmd/cli/config"
	"github.com/crucial707/asset-vault/cmd/cli/output"
	"github.com/crucial707/asset-vault/internal/apiclient"
	"github.com/crucial707/asset-vault/internal/models"
)

// ==========================
// Init Assets
// ==========================
func InitAssets(rootCmd *cobra.Command) {
	assetsCmd := &cobra.Command{
		Use:   "assets",
		Short: "List and upload assets",
	}

	assetsCmd.AddCommand(
		listAssetsCmd(),
		uploadAssetCmd(),
	)

	rootCmd.AddCommand(assetsCmd)
}

// ==========================
// LIST
// ==========================
func listAssetsCmd() *cobra.Command {
	var skip, limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assets, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("skip", strconv.Itoa(skip))
			q.Set("limit", strconv.Itoa(limit))

			var assets []models.Asset
			if err := apiclient.New(config.APIURL(), "").Get(cmd.Context(), "/assets/", q, &assets); err != nil {
				return fmt.Errorf("list assets: %w", err)
			}

			if asJSON {
				return output.RenderJSON(cmd.OutOrStdout(), assets)
			}
			rows := make([][]interface{}, 0, len(assets))
			for _, a := range assets {
				rows = append(rows, []interface{}{a.ID, a.Title, a.Type, a.FileURL, a.CreatedAt.Format("2006-01-02 15:04:05")})
			}
			output.RenderTable(cmd.OutOrStdout(), []string{"ID", "TITLE", "TYPE", "URL", "CREATED"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVar(&skip, "skip", 0, "Number of assets to skip")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of assets to return")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw JSON")
	return cmd
}

// ==========================
// UPLOAD (admin)
// ==========================
func uploadAssetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload an image (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := config.ReadToken()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			var out struct {
				Info string `json:"info"`
				URL  string `json:"url"`
			}
			if err := apiclient.New(config.APIURL(), token).Upload(cmd.Context(), "/upload/", "file", filepath.Base(args[0]), f, &out); err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", out.Info, out.URL)
			return nil
		},
	}
}
