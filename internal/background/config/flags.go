package config

import (
	"flag"
	"os"

	"github.com/Individual-1/notifier/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     bus listen address
//	-d string     store driver (sqlite or postgres)
//	-s string     store DSN
//	-f string     session file path
//	-t duration   session token lifetime
//	-r string     OAuth redirect URL
//	-i duration   poll interval
//	-n int        listing limit per request
//	-q int        Reddit requests per minute
//	-w duration   authorization timeout
//	-l string     log level
//	-e string     S3 endpoint
//	-g string     S3 region
//	-b string     S3 bucket, empty disables backup
//	-k string     S3 object key
//	-u string     S3 access key
//	-p string     S3 secret key
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-d", "-s", "-f", "-t", "-r", "-i", "-n", "-q", "-w", "-l",
		"-e", "-g", "-b", "-k", "-u", "-p",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "bus listen address")
	fs.StringVar(&config.StoreDriver, "d", config.StoreDriver, "store driver")
	fs.StringVar(&config.StoreDSN, "s", config.StoreDSN, "store DSN")
	fs.StringVar(&config.SessionFile, "f", config.SessionFile, "session file")
	fs.DurationVar(&config.SessionTTL, "t", config.SessionTTL, "session token lifetime")
	fs.StringVar(&config.RedirectURL, "r", config.RedirectURL, "OAuth redirect URL")
	fs.DurationVar(&config.PollInterval, "i", config.PollInterval, "poll interval")
	fs.IntVar(&config.ListingLimit, "n", config.ListingLimit, "listing limit")
	fs.IntVar(&config.RateLimitPerMinute, "q", config.RateLimitPerMinute, "requests per minute")
	fs.DurationVar(&config.AuthorizeTimeout, "w", config.AuthorizeTimeout, "authorization timeout")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.S3Endpoint, "e", config.S3Endpoint, "S3 endpoint")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Key, "k", config.S3Key, "S3 object key")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
