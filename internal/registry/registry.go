// Package registry tracks the watched Reddit accounts and the aggregate
// friends feed, and polls them for new items.
//
// A fetch error of any kind is reported as "no new data": the cursor is left
// where it was and the caller only sees an empty result, exactly like an
// empty listing.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Individual-1/notifier/internal/common"
	"github.com/Individual-1/notifier/internal/logging"
	"github.com/Individual-1/notifier/internal/models"
	"github.com/Individual-1/notifier/internal/reddit"
)

// Store is the part of the store the registry depends on.
type Store interface {
	GetAllUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, userName string) (*models.User, error)
	AddUser(ctx context.Context, user *models.User) error
	PutUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, userName string) (bool, error)
	GetFriends(ctx context.Context) (*models.Friends, error)
	PutFriends(ctx context.Context, f *models.Friends) error
	UpdateFriends(ctx context.Context, f *models.Friends) (bool, error)
	DeleteFriends(ctx context.Context) (bool, error)
}

// Fetcher performs authenticated GETs. The token manager implements it.
type Fetcher interface {
	AuthorizedGet(ctx context.Context, url string) ([]byte, error)
}

type Options struct {
	Endpoints    reddit.Endpoints
	ListingLimit int
}

type Registry struct {
	store Store
	fetch Fetcher
	log   logging.Logger
	opts  Options

	mu      sync.Mutex
	users   map[string]models.User
	friends *models.Friends
}

func New(store Store, fetch Fetcher, opts Options, log logging.Logger) *Registry {
	if log == nil {
		log = logging.Discard()
	}
	return &Registry{
		store: store,
		fetch: fetch,
		log:   log.With("module", "registry"),
		opts:  opts,
		users: make(map[string]models.User),
	}
}

// Load replaces the in-memory view with the store's content.
func (r *Registry) Load(ctx context.Context) error {
	users, err := r.store.GetAllUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}
	friends, err := r.store.GetFriends(ctx)
	if err != nil {
		return fmt.Errorf("failed to load friends: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = make(map[string]models.User, len(users))
	for _, u := range users {
		r.users[u.UserName] = u
	}
	r.friends = friends
	return nil
}

// Users returns the tracked users.
func (r *Registry) Users() []models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserName < out[j].UserName })
	return out
}

// FriendsEnabled reports whether the aggregate feed is tracked.
func (r *Registry) FriendsEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.friends != nil
}

func (r *Registry) tracked(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[name]
	return ok
}

// AddUser starts tracking name. The reserved name "friends" enables the
// aggregate feed instead. An already tracked user yields false; the
// profile lookup happens before anything is written.
func (r *Registry) AddUser(ctx context.Context, name string, comments, submitted bool) (bool, error) {
	if name == common.FriendsUserName {
		return r.EnableFriends(ctx)
	}
	if name == "" || r.tracked(name) {
		return false, nil
	}

	existing, err := r.store.GetUser(ctx, name)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	body, err := r.fetch.AuthorizedGet(ctx, r.opts.Endpoints.About(name))
	if err != nil {
		r.log.Warn(ctx, "profile lookup failed", "user", name, "error", err)
		return false, nil
	}
	fullName, err := reddit.ParseAbout(body)
	if err != nil {
		r.log.Warn(ctx, "profile lookup returned garbage", "user", name, "error", err)
		return false, nil
	}

	u := models.User{UserName: name, FullName: fullName, Submitted: submitted, Comments: comments}
	if err := r.store.AddUser(ctx, &u); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return false, nil
		}
		return false, err
	}

	r.mu.Lock()
	r.users[name] = u
	r.mu.Unlock()

	r.log.Info(ctx, "user added", "user", name, "full_name", fullName)
	return true, nil
}

// RemoveUser stops tracking name; false if it was not tracked.
func (r *Registry) RemoveUser(ctx context.Context, name string) (bool, error) {
	if name == common.FriendsUserName {
		return r.DisableFriends(ctx)
	}

	ok, err := r.store.DeleteUser(ctx, name)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	_, had := r.users[name]
	delete(r.users, name)
	r.mu.Unlock()

	return ok || had, nil
}

// EnableFriends starts tracking the friends feed; false if already on.
func (r *Registry) EnableFriends(ctx context.Context) (bool, error) {
	if r.FriendsEnabled() {
		return false, nil
	}
	existing, err := r.store.GetFriends(ctx)
	if err != nil {
		return false, err
	}
	if existing != nil {
		r.mu.Lock()
		r.friends = existing
		r.mu.Unlock()
		return false, nil
	}

	f := &models.Friends{Key: models.FriendsKey}
	if err := r.store.PutFriends(ctx, f); err != nil {
		return false, err
	}

	r.mu.Lock()
	r.friends = f
	r.mu.Unlock()
	return true, nil
}

// DisableFriends stops tracking the friends feed; false if already off.
func (r *Registry) DisableFriends(ctx context.Context) (bool, error) {
	ok, err := r.store.DeleteFriends(ctx)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	had := r.friends != nil
	r.friends = nil
	r.mu.Unlock()

	return ok || had, nil
}
