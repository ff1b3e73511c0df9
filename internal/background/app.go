// Package background wires the store, vault, token manager, registry and
// backup behind the message bus, and runs the poller.
package background

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Individual-1/notifier/internal/background/config"
	"github.com/Individual-1/notifier/internal/backup"
	"github.com/Individual-1/notifier/internal/bus"
	"github.com/Individual-1/notifier/internal/common"
	"github.com/Individual-1/notifier/internal/dbx"
	"github.com/Individual-1/notifier/internal/logging"
	"github.com/Individual-1/notifier/internal/reddit"
	"github.com/Individual-1/notifier/internal/registry"
	"github.com/Individual-1/notifier/internal/store"
	"github.com/Individual-1/notifier/internal/token"
	"github.com/Individual-1/notifier/internal/vault"
)

const sessionSecretSize = 32

type App struct {
	config     *config.Config
	logger     logging.Logger
	store      *store.Store
	vault      *vault.Vault
	tokens     *token.Manager
	registry   *registry.Registry
	dispatcher *bus.Dispatcher
	sessions   *bus.Sessions
	poller     *Poller
}

// NewApp opens the store and builds every component from c.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	dialect, err := dbx.ParseDialect(c.StoreDriver)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, dialect, c.StoreDSN, logger)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	v := vault.New(st, logger)

	opts := token.DefaultOptions()
	opts.RedirectURL = c.RedirectURL
	opts.RequestsPerMinute = c.RateLimitPerMinute
	opts.AuthorizeTimeout = c.AuthorizeTimeout
	auth := &token.LoopbackAuthorizer{Open: browserOpener(logger), Log: logger}
	tm := token.NewManager(st, v, auth, opts, logger)

	reg := registry.New(st, tm, registry.Options{
		Endpoints:    reddit.Endpoints{Base: reddit.BaseURL},
		ListingLimit: c.ListingLimit,
	}, logger)
	if err := reg.Load(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	svc := bus.Services{Vault: v, Store: st, Tokens: tm, Users: reg}

	bcfg := backup.Config{
		Endpoint:        c.S3Endpoint,
		Region:          c.S3Region,
		Bucket:          c.S3Bucket,
		Key:             c.S3Key,
		AccessKeyID:     c.S3AccessKey,
		SecretAccessKey: c.S3SecretKey,
		UsePathStyle:    c.S3Endpoint != "",
	}
	if bcfg.Enabled() {
		b, err := backup.New(ctx, bcfg, st, logger)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("backup init error: %w", err)
		}
		svc.Backup = b
	}

	return &App{
		config:     c,
		logger:     logger,
		store:      st,
		vault:      v,
		tokens:     tm,
		registry:   reg,
		dispatcher: bus.NewDispatcher(svc, logger),
		sessions:   bus.NewSessions(common.GenerateRandByteArray(sessionSecretSize), c.SessionTTL),
		poller:     NewPoller(v, tm, reg, c.PollInterval, logger),
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run listens on the configured address and serves until ctx is done or a
// termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", app.config.ListenAddr)
	if err != nil {
		return err
	}
	return app.Serve(ctx, lis)
}

// Serve publishes a fresh session token, then serves the bus on lis and runs
// the poller. The session file is removed on exit.
func (app *App) Serve(ctx context.Context, lis net.Listener) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(ctx, cancelFunc)

	sessionToken, err := app.sessions.Issue()
	if err != nil {
		_ = lis.Close()
		return err
	}
	if err := bus.WriteSessionFile(app.config.SessionFile, sessionToken); err != nil {
		_ = lis.Close()
		return err
	}
	defer os.Remove(app.config.SessionFile)

	srv := bus.NewServer(lis.Addr().String(), app.dispatcher, app.sessions, app.logger)

	var (
		wg     sync.WaitGroup
		srvErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := srv.Serve(ctx, lis); err != nil {
			app.logger.Error(ctx, err.Error())
			srvErr = err
			cancelFunc()
		}
	}()
	go func() {
		defer wg.Done()
		app.poller.Run(ctx)
	}()

	wg.Wait()
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
	return srvErr
}

func (app *App) Close() error {
	return app.store.Close()
}
