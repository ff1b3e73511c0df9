// Package config loads runtime configuration for the background service.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
package config

import (
	"time"

	"github.com/Individual-1/notifier/internal/common"
)

// Config holds runtime settings for the background service.
type Config struct {
	ListenAddr         string
	StoreDriver        string
	StoreDSN           string
	SessionFile        string
	SessionTTL         time.Duration
	RedirectURL        string
	PollInterval       time.Duration
	ListingLimit       int
	RateLimitPerMinute int
	AuthorizeTimeout   time.Duration
	LogLevel           string
	S3Endpoint         string
	S3Region           string
	S3Bucket           string
	S3Key              string
	S3AccessKey        string
	S3SecretKey        string
}

// LoadDefaults populates c with local single-user defaults. Backup stays
// disabled until a bucket is set.
func (c *Config) LoadDefaults() {
	c.ListenAddr = "127.0.0.1:50061"
	c.StoreDriver = "sqlite"
	c.StoreDSN = "notifier.db"
	c.SessionFile = common.DefaultSessionFile()
	c.SessionTTL = 24 * time.Hour
	c.RedirectURL = "http://127.0.0.1:65010/authorize_callback"
	c.PollInterval = 5 * time.Minute
	c.ListingLimit = 25
	c.RateLimitPerMinute = 60
	c.AuthorizeTimeout = 5 * time.Minute
	c.LogLevel = "info"
	c.S3Endpoint = ""
	c.S3Region = "us-east-1"
	c.S3Bucket = ""
	c.S3Key = "notifier/backup.json"
	c.S3AccessKey = ""
	c.S3SecretKey = ""
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
