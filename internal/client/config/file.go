package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/doccontrol/internal/flagx"
	"github.com/dmitrijs2005/doccontrol/internal/timex"
)

// FileConfig is the on-disk form of Config. timex.Duration lets intervals
// be written as "30s" or as integer nanoseconds.
type FileConfig struct {
	ServerURL      string         `json:"server_url" yaml:"server_url"`
	RequestTimeout timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	DatabaseDSN    string         `json:"database_dsn" yaml:"database_dsn"`
	PreviewDir     string         `json:"preview_dir" yaml:"preview_dir"`
	DownloadDir    string         `json:"download_dir" yaml:"download_dir"`
	LogLevel       string         `json:"log_level" yaml:"log_level"`
	DiffWidth      int            `json:"diff_width" yaml:"diff_width"`
}

// parseFile overlays cfg with the file named by -c/-config, if any.
// Unset keys leave cfg untouched. Read and decode errors panic.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	fc, err := readFile(path)
	if err != nil {
		panic(err)
	}
	fc.apply(cfg)
}

func readFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return nil, err
	}
	return &fc, nil
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.ServerURL, fc.ServerURL)
	setString(&cfg.DatabaseDSN, fc.DatabaseDSN)
	setString(&cfg.PreviewDir, fc.PreviewDir)
	setString(&cfg.DownloadDir, fc.DownloadDir)
	setString(&cfg.LogLevel, fc.LogLevel)

	if fc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.DiffWidth > 0 {
		cfg.DiffWidth = fc.DiffWidth
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
