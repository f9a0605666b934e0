// Package cli implements the mediactl command line tool
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JuanRG-20221039/paulofraire-media/internal/config"
	"github.com/JuanRG-20221039/paulofraire-media/internal/logger"
)

var (
	cfg *config.Config

	flagServer   string
	flagToken    string
	flagProfiles string
)

var rootCmd = &cobra.Command{
	Use:   "mediactl",
	Short: "Media staging and upload client for the CMS backend",
	Long: `mediactl stages media files through the same validation and upload
pipeline the admin screens use: files are checked against a named upload
profile (type, size, count and aspect ceilings), staged, and submitted as
one multipart request with progress reporting.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Flags override the environment
		if flagServer != "" {
			cfg.BaseURL = flagServer
		}
		if flagToken != "" {
			cfg.Token = flagToken
		}

		if err := logger.Init(cfg.Logging.Level); err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagServer, "server", "s", "",
		"CMS base URL (overrides CMS_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "",
		"Bearer token (overrides CMS_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&flagProfiles, "profiles", "",
		"Path to a YAML upload profile catalog (defaults to the built-in catalog)")

	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newStubCmd())
}

// loadCatalog returns the configured profile catalog
func loadCatalog() (*config.Catalog, error) {
	if flagProfiles != "" {
		return config.LoadCatalog(flagProfiles)
	}
	return config.DefaultCatalog(), nil
}
