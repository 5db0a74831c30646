package config

import (
	"path/filepath"
	"time"
)

// Config holds runtime settings for the doccontrol CLI.
//
// Fields:
//   - ServerURL: base URL of the REST API, including the /api/v1 prefix.
//   - RequestTimeout: upper bound for a single HTTP request.
//   - DatabaseDSN: SQLite DSN of the local database holding the token slot.
//   - PreviewDir: where PDF and image previews are written while viewed.
//   - DownloadDir: where the download command saves documents.
//   - LogLevel: debug, info, warn or error.
//   - DiffWidth: total width of the side-by-side comparison.
type Config struct {
	ServerURL      string
	RequestTimeout time.Duration
	DatabaseDSN    string
	PreviewDir     string
	DownloadDir    string
	LogLevel       string
	DiffWidth      int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:8002/api/v1"
	c.RequestTimeout = 30 * time.Second
	c.DatabaseDSN = "doccontrol.db"
	c.PreviewDir = filepath.Join(".doccontrol", "previews")
	c.DownloadDir = "downloads"
	c.LogLevel = "warn"
	c.DiffWidth = 120
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a config file (if one is named) and command-line flags. Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
