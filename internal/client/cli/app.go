package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Individual-1/notifier/internal/bus"
	"github.com/Individual-1/notifier/internal/client/config"
	"github.com/Individual-1/notifier/internal/logging"
)

// sender delivers one envelope and returns the decoded result, nil on any
// failure. *bus.Client implements it.
type sender interface {
	Send(ctx context.Context, action bus.Action, typ bus.DataType, payload any) any
}

type App struct {
	config *config.Config
	bus    sender
	closer io.Closer
	reader *bufio.Reader
	out    io.Writer
}

// NewApp connects to the background named by c using the published session token.
func NewApp(c *config.Config) (*App, error) {
	token, err := bus.ReadSessionFile(c.SessionFile)
	if err != nil {
		return nil, fmt.Errorf("%w (is the background running?)", err)
	}

	client, err := bus.NewClient(c.ServerEndpointAddr, token, logging.New(os.Stderr, "text", "warn"))
	if err != nil {
		return nil, err
	}

	return &App{
		config: c,
		bus:    client,
		closer: client,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.closer.Close()
	a.Root(ctx)
}

// Root runs the REPL until the user exits or input ends.
func (a *App) Root(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to notifier control (type 'help' for commands)")
	runREPL(ctx, a, func() string { return a.prompt(ctx) }, a.reader)
}

// call sends one envelope bounded by the configured call timeout.
func (a *App) call(ctx context.Context, action bus.Action, typ bus.DataType, payload any) any {
	if a.config != nil && a.config.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.CallTimeout)
		defer cancel()
	}
	return a.bus.Send(ctx, action, typ, payload)
}

// callBool is call for actions whose result is Bool; ok is false on failure.
func (a *App) callBool(ctx context.Context, action bus.Action) (value, ok bool) {
	value, ok = a.call(ctx, action, bus.TypeNull, nil).(bool)
	return value, ok
}

func (a *App) prompt(ctx context.Context) string {
	unlocked, ok := a.callBool(ctx, bus.ActionIsUnlocked)
	switch {
	case !ok:
		return "offline"
	case unlocked:
		return "unlocked"
	default:
		return "locked"
	}
}
