package config

import "time"

// Config holds runtime settings for the Quietpage CLI.
//
// Fields:
//   - ServerEndpointAddr: base URL of the backend HTTP API.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - LocalDBPath: SQLite file holding encrypted drafts and offline auth metadata.
//   - Locale: preferred coach prompt locale.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	LocalDBPath         string
	Locale              string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.OnlineCheckInterval = 3 * time.Second
	c.LocalDBPath = "quietpage.db"
	c.Locale = "en"
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
