// Package cli provides the interactive notifier control client.
//
// It reads the session token published by the background service, connects
// to the message bus and runs a REPL. Passphrases and the OAuth client secret
// are read without echo; the client secret is encrypted by the background
// before it is stored, so no key material ever reaches this process.
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
package cli
