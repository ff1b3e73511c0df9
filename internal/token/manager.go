// Package token runs the Reddit OAuth2 authorization-code flow and keeps the
// resulting tokens, encrypted, in the store.
//
// Authenticated requests go through AuthorizedGet, which refreshes the
// access token once and retries when the resource server answers 401.
// Concurrent refreshes collapse into one exchange, so a provider that
// rotates refresh tokens on use never sees the same refresh token twice.
package token

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/Individual-1/notifier/internal/common"
	"github.com/Individual-1/notifier/internal/cryptox"
	"github.com/Individual-1/notifier/internal/logging"
	"github.com/Individual-1/notifier/internal/models"
	"github.com/Individual-1/notifier/internal/reddit"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// ConfigStore is the part of the store the manager depends on.
type ConfigStore interface {
	Get(ctx context.Context, key string) (*models.ConfigEntry, error)
	Put(ctx context.Context, entry *models.ConfigEntry) (string, error)
}

// Cipher encrypts tokens at rest, binding each ciphertext to a purpose.
// The vault implements it.
type Cipher interface {
	Encrypt(data []byte, purpose string) ([]byte, error)
	Decrypt(data []byte, purpose string) ([]byte, error)
}

type Options struct {
	AuthURL     string
	TokenURL    string
	RedirectURL string
	Scopes      []string
	UserAgent   string

	// RequestsPerMinute paces every outbound request; zero disables pacing.
	RequestsPerMinute int

	// AuthorizeTimeout bounds the interactive step; zero means no bound.
	AuthorizeTimeout time.Duration

	// HTTPClient is the base client wrapped with User-Agent and pacing.
	HTTPClient *http.Client
}

// DefaultOptions returns the production Reddit settings.
func DefaultOptions() Options {
	return Options{
		AuthURL:           reddit.AuthorizeURL,
		TokenURL:          reddit.TokenURL,
		RedirectURL:       "http://127.0.0.1:65010/authorize_callback",
		Scopes:            reddit.Scopes,
		UserAgent:         reddit.UserAgent,
		RequestsPerMinute: 60,
		AuthorizeTimeout:  5 * time.Minute,
	}
}

type Manager struct {
	store  ConfigStore
	cipher Cipher
	auth   Authorizer
	log    logging.Logger
	opts   Options
	client *http.Client

	refreshes singleflight.Group

	mu    sync.RWMutex
	state State

	newState func() (string, error)
}

func NewManager(store ConfigStore, cipher Cipher, auth Authorizer, opts Options, log logging.Logger) *Manager {
	if log == nil {
		log = logging.Discard()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = reddit.UserAgent
	}
	return &Manager{
		store:    store,
		cipher:   cipher,
		auth:     auth,
		log:      log.With("module", "token"),
		opts:     opts,
		client:   newHTTPClient(opts.HTTPClient, opts.UserAgent, opts.RequestsPerMinute),
		newState: randomState,
	}
}

// HTTPClient is the paced client carrying the fixed User-Agent.
func (m *Manager) HTTPClient() *http.Client {
	return m.client
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// randomState returns 32 CSPRNG bytes, base64url encoded.
func randomState() (string, error) {
	return base64.RawURLEncoding.EncodeToString(common.GenerateRandByteArray(32)), nil
}

// withClient routes oauth2's token requests through the manager's client.
func (m *Manager) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.client)
}

// oauthConfig assembles the client configuration from the store.
func (m *Manager) oauthConfig(ctx context.Context) (*oauth2.Config, error) {
	id, err := m.store.Get(ctx, models.KeyOAuthClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load client id: %w", err)
	}
	if id == nil || id.Text == "" {
		return nil, fmt.Errorf("%w: client id not set", common.ErrMissingCredentials)
	}

	secret, err := m.decryptEntry(ctx, models.KeyOAuthClientSecret)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(secret)

	authURL := m.opts.AuthURL
	override, err := m.store.Get(ctx, models.KeyAuthorizeURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load authorize url: %w", err)
	}
	if override != nil && override.Text != "" {
		authURL = override.Text
	}

	return &oauth2.Config{
		ClientID:     id.Text,
		ClientSecret: string(secret),
		RedirectURL:  m.opts.RedirectURL,
		Scopes:       m.opts.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   authURL,
			TokenURL:  m.opts.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}, nil
}

// decryptEntry loads an encrypted key and opens it. A missing entry is
// common.ErrMissingCredentials.
func (m *Manager) decryptEntry(ctx context.Context, key string) ([]byte, error) {
	e, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if e == nil || len(e.Bytes) == 0 {
		return nil, fmt.Errorf("%w: %s not set", common.ErrMissingCredentials, key)
	}
	pt, err := m.cipher.Decrypt(e.Bytes, models.Purpose(key))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt %s: %w", key, err)
	}
	return pt, nil
}

func (m *Manager) encryptAndPut(ctx context.Context, key string, value string) error {
	ct, err := m.cipher.Encrypt([]byte(value), models.Purpose(key))
	if err != nil {
		return fmt.Errorf("failed to encrypt %s: %w", key, err)
	}
	if _, err := m.store.Put(ctx, models.NewBytesEntry(key, ct)); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

// saveTokens persists the non-empty tokens of tok.
func (m *Manager) saveTokens(ctx context.Context, tok *oauth2.Token) error {
	if tok.AccessToken != "" {
		if err := m.encryptAndPut(ctx, models.KeyAccessToken, tok.AccessToken); err != nil {
			return err
		}
	}
	if tok.RefreshToken != "" {
		if err := m.encryptAndPut(ctx, models.KeyRefreshToken, tok.RefreshToken); err != nil {
			return err
		}
	}
	return nil
}

// Authorize runs the full authorization-code flow and stores both tokens.
func (m *Manager) Authorize(ctx context.Context) error {
	cfg, err := m.oauthConfig(ctx)
	if err != nil {
		m.setState(StateFailed)
		return err
	}

	state, err := m.newState()
	if err != nil {
		m.setState(StateFailed)
		return fmt.Errorf("failed to generate state: %w", err)
	}

	m.setState(StateAuthorizationRequested)
	authURL := cfg.AuthCodeURL(state, oauth2.SetAuthURLParam("duration", "permanent"))

	authCtx := ctx
	if m.opts.AuthorizeTimeout > 0 {
		var cancel context.CancelFunc
		authCtx, cancel = context.WithTimeout(ctx, m.opts.AuthorizeTimeout)
		defer cancel()
	}

	redirect, err := m.auth.Authorize(authCtx, authURL, cfg.RedirectURL)
	if err != nil {
		m.setState(StateFailed)
		return fmt.Errorf("%w: %w", common.ErrOAuthFlow, err)
	}
	m.setState(StateAuthorizationReceived)

	code, err := codeFromRedirect(redirect, state)
	if err != nil {
		m.setState(StateFailed)
		m.log.Warn(ctx, "authorization rejected", "error", err)
		return err
	}

	tok, err := cfg.Exchange(m.withClient(ctx), code)
	if err != nil {
		m.setState(StateFailed)
		return fmt.Errorf("%w: code exchange: %w", common.ErrOAuthFlow, err)
	}

	if err := m.saveTokens(ctx, tok); err != nil {
		m.setState(StateFailed)
		return err
	}

	m.setState(StateAuthorized)
	m.log.Info(ctx, "authorization complete")
	return nil
}

// codeFromRedirect validates the provider's redirect and returns the code.
func codeFromRedirect(raw, state string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: bad redirect: %w", common.ErrOAuthFlow, err)
	}
	q := u.Query()

	if e := q.Get("error"); e != "" {
		return "", fmt.Errorf("%w: provider returned %q", common.ErrOAuthFlow, e)
	}
	if !cryptox.Equal([]byte(q.Get("state")), []byte(state)) {
		return "", common.ErrStateMismatch
	}
	code := q.Get("code")
	if code == "" {
		return "", fmt.Errorf("%w: missing code", common.ErrOAuthFlow)
	}
	return code, nil
}

// Refresh trades the stored refresh token for a new access token.
// Concurrent callers share one exchange.
func (m *Manager) Refresh(ctx context.Context) error {
	_, err, _ := m.refreshes.Do("refresh", func() (any, error) {
		return nil, m.refresh(context.WithoutCancel(ctx))
	})
	return err
}

func (m *Manager) refresh(ctx context.Context) error {
	m.setState(StateRefreshInProgress)

	cfg, err := m.oauthConfig(ctx)
	if err != nil {
		m.setState(StateFailed)
		return err
	}

	rt, err := m.decryptEntry(ctx, models.KeyRefreshToken)
	if err != nil {
		m.setState(StateFailed)
		return err
	}
	old := string(rt)
	common.WipeByteArray(rt)

	tok, err := cfg.TokenSource(m.withClient(ctx), &oauth2.Token{RefreshToken: old}).Token()
	if err != nil {
		m.setState(StateFailed)
		return fmt.Errorf("%w: refresh: %w", common.ErrUnauthorized, err)
	}

	if tok.RefreshToken == old {
		tok.RefreshToken = ""
	}
	if err := m.saveTokens(ctx, tok); err != nil {
		m.setState(StateFailed)
		return err
	}

	m.setState(StateAuthorized)
	m.log.Debug(ctx, "access token refreshed")
	return nil
}

// AuthorizedGet fetches rawURL with the stored access token. A 401 triggers
// exactly one refresh and one retry. Any other non-2xx status, or a second
// 401, is an error.
func (m *Manager) AuthorizedGet(ctx context.Context, rawURL string) ([]byte, error) {
	body, status, err := m.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		m.log.Debug(ctx, "access token rejected, refreshing", "url", rawURL)
		if err := m.Refresh(ctx); err != nil {
			return nil, err
		}
		body, status, err = m.get(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: GET %s still 401 after refresh", common.ErrUnauthorized, rawURL)
		}
	}

	if status < 200 || status > 299 {
		return nil, fmt.Errorf("%w: GET %s: status %d", common.ErrUnavailable, rawURL, status)
	}
	return body, nil
}

func (m *Manager) get(ctx context.Context, rawURL string) ([]byte, int, error) {
	access, err := m.decryptEntry(ctx, models.KeyAccessToken)
	if err != nil {
		return nil, 0, err
	}
	bearer := "Bearer " + string(access)
	common.WipeByteArray(access)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", bearer)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: GET %s: %w", common.ErrUnavailable, rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read %s: %w", common.ErrUnavailable, rawURL, err)
	}
	return body, resp.StatusCode, nil
}

// IsAuthorized reports whether an access token is stored.
func (m *Manager) IsAuthorized(ctx context.Context) (bool, error) {
	e, err := m.store.Get(ctx, models.KeyAccessToken)
	if err != nil {
		return false, err
	}
	return e != nil, nil
}

