package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/Individual-1/notifier/internal/flagx"
	"github.com/Individual-1/notifier/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept "5m" or
// integer nanoseconds.
type JsonConfig struct {
	ListenAddr         string         `json:"listen_addr"`
	StoreDriver        string         `json:"store_driver"`
	StoreDSN           string         `json:"store_dsn"`
	SessionFile        string         `json:"session_file"`
	SessionTTL         timex.Duration `json:"session_ttl"`
	RedirectURL        string         `json:"redirect_url"`
	PollInterval       timex.Duration `json:"poll_interval"`
	ListingLimit       int            `json:"listing_limit"`
	RateLimitPerMinute int            `json:"rate_limit_per_minute"`
	AuthorizeTimeout   timex.Duration `json:"authorize_timeout"`
	LogLevel           string         `json:"log_level"`
	S3Endpoint         string         `json:"s3_endpoint"`
	S3Region           string         `json:"s3_region"`
	S3Bucket           string         `json:"s3_bucket"`
	S3Key              string         `json:"s3_key"`
	S3AccessKey        string         `json:"s3_access_key"`
	S3SecretKey        string         `json:"s3_secret_key"`
}

// parseJson overlays config with the JSON file named by -c/-config, if any.
// Keys absent from the file keep their current value. Unreadable or invalid
// files panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.ListenAddr, c.ListenAddr)
	setString(&config.StoreDriver, c.StoreDriver)
	setString(&config.StoreDSN, c.StoreDSN)
	setString(&config.SessionFile, c.SessionFile)
	setDuration(&config.SessionTTL, c.SessionTTL)
	setString(&config.RedirectURL, c.RedirectURL)
	setDuration(&config.PollInterval, c.PollInterval)
	setInt(&config.ListingLimit, c.ListingLimit)
	setInt(&config.RateLimitPerMinute, c.RateLimitPerMinute)
	setDuration(&config.AuthorizeTimeout, c.AuthorizeTimeout)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.S3Endpoint, c.S3Endpoint)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Key, c.S3Key)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
