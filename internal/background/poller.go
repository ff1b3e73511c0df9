package background

import (
	"context"
	"time"

	"github.com/Individual-1/notifier/internal/logging"
	"github.com/Individual-1/notifier/internal/registry"
)

type lockState interface {
	IsUnlocked() bool
}

type authState interface {
	IsAuthorized(ctx context.Context) (bool, error)
}

type feedPoller interface {
	PollAll(ctx context.Context) ([]registry.Feed, error)
}

// Poller checks every tracked feed on a fixed interval. Ticks are skipped
// while the vault is locked or no access token is stored.
type Poller struct {
	vault    lockState
	tokens   authState
	feeds    feedPoller
	interval time.Duration
	logger   logging.Logger
}

func NewPoller(v lockState, t authState, f feedPoller, interval time.Duration, l logging.Logger) *Poller {
	return &Poller{
		vault:    v,
		tokens:   t,
		feeds:    f,
		interval: interval,
		logger:   l.With("module", "poller"),
	}
}

// Run polls until ctx is done. A non-positive interval disables polling.
func (p *Poller) Run(ctx context.Context) {
	if p.interval <= 0 {
		p.logger.Info(ctx, "polling disabled")
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick runs one poll and returns the number of new items, or -1 when the
// tick was skipped.
func (p *Poller) Tick(ctx context.Context) int {
	if !p.vault.IsUnlocked() {
		p.logger.Debug(ctx, "poll skipped: vault locked")
		return -1
	}
	ok, err := p.tokens.IsAuthorized(ctx)
	if err != nil || !ok {
		p.logger.Debug(ctx, "poll skipped: not authorized", "error", err)
		return -1
	}

	feeds, err := p.feeds.PollAll(ctx)
	if err != nil {
		p.logger.Warn(ctx, "poll interrupted", "error", err)
	}

	n := 0
	for _, f := range feeds {
		for _, it := range f.Items {
			p.logger.Info(ctx, "new item",
				"feed", f.Name,
				"name", it.FullName(),
				"author", it.Data.Author,
				"title", it.Data.Title,
				"permalink", it.Data.Permalink,
			)
		}
		n += len(f.Items)
	}
	return n
}
