package token

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/Individual-1/notifier/internal/common"
	"github.com/Individual-1/notifier/internal/logging"
)

// Authorizer performs the interactive step of the authorization-code flow:
// it sends the user to authURL and returns the URL the provider redirected
// back to, query string included.
type Authorizer interface {
	Authorize(ctx context.Context, authURL, redirectURL string) (string, error)
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, authURL, redirectURL string) (string, error)

func (f AuthorizerFunc) Authorize(ctx context.Context, authURL, redirectURL string) (string, error) {
	return f(ctx, authURL, redirectURL)
}

// LoopbackAuthorizer listens on the redirect URL's host and returns the
// first request it receives on the redirect path.
type LoopbackAuthorizer struct {
	// Open presents the authorization URL to the user. When nil the URL is
	// logged.
	Open func(ctx context.Context, authURL string) error
	Log  logging.Logger
}

// LogAuthorizeURL tells the user where to authorize. The query carries the
// CSRF state, so only the endpoint is logged at info; the full URL goes to
// debug.
func LogAuthorizeURL(ctx context.Context, log logging.Logger, authURL string) {
	log.Info(ctx, "visit the authorization url to continue", "endpoint", StripQuery(authURL))
	log.Debug(ctx, "authorization url", "url", authURL)
}

// StripQuery drops the query and fragment of raw. Unparsable input yields "".
func StripQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

const callbackPage = "<html><body>Authorization received. You may close this window.</body></html>"

func (a *LoopbackAuthorizer) Authorize(ctx context.Context, authURL, redirectURL string) (string, error) {
	log := a.Log
	if log == nil {
		log = logging.Discard()
	}

	redirect, err := url.Parse(redirectURL)
	if err != nil {
		return "", fmt.Errorf("%w: bad redirect url: %w", common.ErrOAuthFlow, err)
	}
	if redirect.Scheme != "http" || redirect.Host == "" {
		return "", fmt.Errorf("%w: redirect url must be http://host:port/path", common.ErrOAuthFlow)
	}

	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", redirect.Host, err)
	}

	path := redirect.Path
	if path == "" {
		path = "/"
	}

	got := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		u := *redirect
		u.RawQuery = r.URL.RawQuery
		select {
		case got <- u.String():
		default:
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(callbackPage))
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "loopback server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if a.Open != nil {
		if err := a.Open(ctx, authURL); err != nil {
			return "", fmt.Errorf("%w: open authorization url: %w", common.ErrOAuthFlow, err)
		}
	} else {
		LogAuthorizeURL(ctx, log, authURL)
	}

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", common.ErrOAuthFlow, ctx.Err())
	case u := <-got:
		return u, nil
	}
}
