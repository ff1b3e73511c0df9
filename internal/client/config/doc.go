// Package config loads runtime configuration for the notifier control CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string     address:port of the background bus
//	-f string     session file path
//	-t duration   per-call timeout
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50061",
//	  "session_file": "/home/me/.config/notifier/session",
//	  "call_timeout": "30s"
//	}
package config
