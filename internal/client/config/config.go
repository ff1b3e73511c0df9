package config

import (
	"time"

	"github.com/Individual-1/notifier/internal/common"
)

// Config holds runtime settings for the notifier control CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the background bus.
//   - SessionFile: where the background publishes the session token.
//   - CallTimeout: bound on every bus call except authorization.
type Config struct {
	ServerEndpointAddr string
	SessionFile        string
	CallTimeout        time.Duration
}

// LoadDefaults populates c with defaults matching the background's.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50061"
	c.SessionFile = common.DefaultSessionFile()
	c.CallTimeout = 30 * time.Second
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
