// Package config loads runtime configuration for the doccontrol CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c or -config. Files ending in
//     .yaml or .yml are read as YAML, anything else as JSON.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the REST API
//	-t int      request timeout (seconds)
//	-d string   SQLite DSN of the local database
//	-p string   preview directory
//	-o string   download directory
//	-l string   log level
//	-w int      side-by-side diff width
//
// # File schema
//
// Durations use timex.Duration, so they can be strings like "30s" or
// integer nanoseconds. Keys left out keep their earlier value:
//
//	server_url: http://localhost:8002/api/v1
//	request_timeout: 30s
//	database_dsn: doccontrol.db
//	preview_dir: .doccontrol/previews
//	download_dir: downloads
//	log_level: info
//	diff_width: 120
//
// Note: This package does not read environment variables; use the config
// file or flags.
package config
