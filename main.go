package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/styleshop/storefront/internal/catalog"
	"github.com/styleshop/storefront/pkg/config"
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd runs the API server when no subcommand is given
var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "StyleShop storefront API",
	Long: `storefront serves the StyleShop catalog, cart, checkout and order
history over HTTP. Configuration comes from the environment and an
optional .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.LoadConfig()
		var err error
		logger, err = cfg.NewLogger()
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(productsCmd)
}

// loadCatalog reads CATALOG_FILE when set, else the bundled catalog
func loadCatalog() (*catalog.Store, error) {
	if cfg.CatalogFile == "" {
		return catalog.Default()
	}
	store, err := catalog.LoadFile(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", cfg.CatalogFile, err)
	}
	return store, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
