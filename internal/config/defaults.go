package config

import (
	"time"

	"github.com/nlweb/chatpanel/internal/sites"
)

// DefaultPort matches the port the chat page has always been served on.
const DefaultPort = 8000

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:         DefaultPort,
		DefaultMode:  "list",
		FetchTimeout: 10 * time.Second,
		BrowserDelay: 2 * time.Second,
		Catalog: CatalogConfig{
			Path: "data/nlchat.db",
			Seed: sites.Fallback()[1:],
		},
		Log: LogConfig{
			Level:  "info",
			Format: LogFormatConsole,
		},
	}
}
