package config

import "time"

// LogFormat selects the zap encoder.
type LogFormat string

const (
	LogFormatConsole LogFormat = "console"
	LogFormatJSON    LogFormat = "json"
)

// Config is the top-level nlchat configuration, corresponding to .nlchat.yml.
type Config struct {
	Port                int           `yaml:"port" koanf:"port"`
	SitesURL            string        `yaml:"sites_url" koanf:"sites_url"`
	UseTextInputForSite bool          `yaml:"use_text_input_for_site" koanf:"use_text_input_for_site"`
	DefaultSite         string        `yaml:"default_site" koanf:"default_site"`
	DefaultMode         string        `yaml:"default_mode" koanf:"default_mode"`
	FetchTimeout        time.Duration `yaml:"fetch_timeout" koanf:"fetch_timeout"`
	OpenBrowser         bool          `yaml:"open_browser" koanf:"open_browser"`
	BrowserDelay        time.Duration `yaml:"browser_delay" koanf:"browser_delay"`
	Catalog             CatalogConfig `yaml:"catalog" koanf:"catalog"`
	Log                 LogConfig     `yaml:"log" koanf:"log"`
}

// CatalogConfig configures the local site catalog behind /sites.
type CatalogConfig struct {
	Path    string   `yaml:"path" koanf:"path"`
	Seed    []string `yaml:"seed" koanf:"seed"`
	Include []string `yaml:"include" koanf:"include"`
	Exclude []string `yaml:"exclude" koanf:"exclude"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string    `yaml:"level" koanf:"level"`
	Format      LogFormat `yaml:"format" koanf:"format"`
	Development bool      `yaml:"development" koanf:"development"`
}
