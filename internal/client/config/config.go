package config

import "time"

// Config holds runtime settings for the gallery CLI.
//
// Fields:
//   - ServerURL: base URL of the storage backend REST API.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - SessionDBPath: SQLite file holding the token pair and key material.
//   - PageSize: items fetched per listing page.
//   - ThumbnailWorkers: concurrent thumbnail resolutions.
//   - RequestTimeout: per-request HTTP timeout.
//   - LogLevel, LogFormat: logger settings ("debug".."error", "text"|"json").
//   - MetricsAddr: listen address of the Prometheus endpoint; empty disables it.
type Config struct {
	ServerURL           string
	OnlineCheckInterval time.Duration
	SessionDBPath       string
	PageSize            int
	ThumbnailWorkers    int
	RequestTimeout      time.Duration
	LogLevel            string
	LogFormat           string
	MetricsAddr         string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.OnlineCheckInterval = 3 * time.Second
	c.SessionDBPath = "~/.gophgallery/session.db"
	c.PageSize = 50
	c.ThumbnailWorkers = 4
	c.RequestTimeout = 30 * time.Second
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.MetricsAddr = ""
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
