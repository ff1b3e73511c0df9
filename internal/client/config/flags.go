package config

import (
	"flag"
	"os"

	"github.com/Individual-1/notifier/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     address and port of the background bus
//	-f string     session file path
//	-t duration   per-call timeout
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-f", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port of the background")
	fs.StringVar(&cfg.SessionFile, "f", cfg.SessionFile, "session file")
	fs.DurationVar(&cfg.CallTimeout, "t", cfg.CallTimeout, "per-call timeout")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
