// Package config loads runtime configuration for the gallery CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags -c or -config,
//     or the GOPHGALLERY_CONFIG environment variable.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the backend REST API
//	-i int      online status check interval (seconds)
//	-d string   path of the local session database
//	-p int      listing page size
//	-w int      concurrent thumbnail resolutions
//	-l string   log level (debug, info, warn, error)
//	-f string   log format (text, json)
//	-m string   Prometheus metrics listen address (empty disables)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "3s" or integer nanoseconds. Keys that are absent keep their
// current value:
//
//	{
//	  "server_url": "https://files.example.com/api",
//	  "online_check_interval": "3s",
//	  "session_db_path": "~/.gophgallery/session.db",
//	  "page_size": 50,
//	  "thumbnail_workers": 4,
//	  "request_timeout": "30s",
//	  "log_level": "info",
//	  "log_format": "text",
//	  "metrics_addr": "127.0.0.1:9100"
//	}
package config
