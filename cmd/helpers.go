package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nlweb/chatpanel/internal/catalog"
	"github.com/nlweb/chatpanel/internal/config"
	"github.com/nlweb/chatpanel/internal/db"
	"github.com/nlweb/chatpanel/internal/logging"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `nlchat init` to create a config file", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return logger, nil
}

// openCatalog opens the catalog database, seeding it when the file is
// created. The caller closes the returned database.
func openCatalog(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*db.DB, *catalog.Store, error) {
	_, statErr := os.Stat(cfg.Catalog.Path)
	fresh := os.IsNotExist(statErr)

	database, err := db.Open(cfg.Catalog.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening catalog: %w", err)
	}

	store := catalog.NewStore(database, catalog.Filter{
		Include: cfg.Catalog.Include,
		Exclude: cfg.Catalog.Exclude,
	}, logger)
	if fresh {
		if err := store.Seed(ctx, cfg.Catalog.Seed); err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("seeding catalog: %w", err)
		}
	}
	return database, store, nil
}

// withCatalog runs fn against the configured catalog.
func withCatalog(cmd *cobra.Command, fn func(store *catalog.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	database, store, err := openCatalog(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer database.Close()
	return fn(store)
}

// browserCommand returns the command that opens url in the default browser.
func browserCommand(goos, url string) *exec.Cmd {
	switch goos {
	case "windows":
		return exec.Command("cmd", "/c", "start", url)
	case "darwin":
		return exec.Command("open", url)
	default:
		return exec.Command("xdg-open", url)
	}
}

func openBrowser(url string) error {
	return browserCommand(runtime.GOOS, url).Start()
}
