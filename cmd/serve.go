package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nlweb/chatpanel/internal/catalog"
	"github.com/nlweb/chatpanel/internal/config"
	"github.com/nlweb/chatpanel/internal/server"
	"github.com/nlweb/chatpanel/internal/sites"
)

const chatPagePath = "/static/str_chat.html"

var (
	servePort int
	serveOpen bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat debug page",
	Long: `Starts the HTTP server with the chat debug page, its panel socket and,
when a catalog is configured, the /sites endpoint. The site dropdown is
filled over HTTP: from this server's own /sites, or from sites_url when set.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides config and PORT)")
	serveCmd.Flags().BoolVar(&serveOpen, "open", false, "open the chat page in the default browser")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if cmd.Flags().Changed("open") {
		cfg.OpenBrowser = serveOpen
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *catalog.Store
	if cfg.Catalog.Path != "" {
		database, s, err := openCatalog(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer database.Close()
		store = s
	}

	srv := newChatServer(cfg, siteLister(cfg, cfg.BaseURL(), logger), store, logger)

	logger.Info("starting nlchat",
		zap.String("version", Version),
		zap.String("url", cfg.BaseURL()+chatPagePath),
		zap.String("sites_url", cfg.SitesURL),
		zap.String("catalog", cfg.Catalog.Path),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	if cfg.OpenBrowser {
		go func() {
			select {
			case <-time.After(cfg.BrowserDelay):
			case <-ctx.Done():
				return
			}
			if err := openBrowser(cfg.BaseURL() + chatPagePath); err != nil {
				logger.Warn("could not open browser", zap.Error(err))
			}
		}()
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// siteLister returns the client that fills the site dropdown. Without
// sites_url it queries the /sites endpoint served at baseURL.
func siteLister(cfg *config.Config, baseURL string, logger *zap.Logger) sites.Lister {
	endpoint := cfg.SitesURL
	if endpoint == "" {
		endpoint = baseURL
	}
	return sites.NewClient(endpoint, cfg.FetchTimeout, logger)
}

func newChatServer(cfg *config.Config, lister sites.Lister, store *catalog.Store, logger *zap.Logger) *server.Server {
	return server.New(server.Config{
		Port:                cfg.Port,
		AllowAll:            true,
		UseTextInputForSite: cfg.UseTextInputForSite,
		DefaultSite:         cfg.DefaultSite,
		DefaultMode:         cfg.DefaultMode,
		ReadyTimeout:        cfg.FetchTimeout,
	}, lister, store, logger)
}
