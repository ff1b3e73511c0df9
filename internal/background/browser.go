package background

import (
	"context"
	"os/exec"
	"runtime"

	"github.com/Individual-1/notifier/internal/logging"
	"github.com/Individual-1/notifier/internal/token"
)

// browserOpener logs the authorization URL and tries the desktop browser.
// A missing browser is not an error: the logged URL can be opened by hand.
func browserOpener(l logging.Logger) func(ctx context.Context, url string) error {
	return func(ctx context.Context, url string) error {
		token.LogAuthorizeURL(ctx, l, url)

		var cmd *exec.Cmd
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.CommandContext(ctx, "open", url)
		case "windows":
			cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
		default:
			cmd = exec.CommandContext(ctx, "xdg-open", url)
		}
		if err := cmd.Start(); err != nil {
			l.Warn(ctx, "could not open browser, run with log_level=debug to print the authorization url", "error", err)
			return nil
		}
		go func() { _ = cmd.Wait() }()
		return nil
	}
}
