package registry

import (
	"context"
	"errors"

	"github.com/Individual-1/notifier/internal/common"
	"github.com/Individual-1/notifier/internal/models"
	"github.com/Individual-1/notifier/internal/reddit"
)

// Feed groups the new items of one polled feed.
type Feed struct {
	Name  string
	Items []reddit.Item
}

// PollUser fetches the user's feed picked by the comments/submitted flags.
// When at least one item comes back the cursor moves to the first one and
// is persisted. Fetch errors leave the cursor untouched and return no items,
// and so does a user removed while the fetch was in flight.
func (r *Registry) PollUser(ctx context.Context, user models.User) ([]reddit.Item, error) {
	feed, ok := reddit.FeedFor(user.Comments, user.Submitted)
	if !ok {
		return nil, nil
	}

	items, cursor := r.fetchListing(ctx, r.opts.Endpoints.UserListing(user.UserName, feed, user.LastPost, r.opts.ListingLimit))
	if len(items) == 0 {
		return nil, nil
	}

	user.LastPost = cursor
	if err := r.store.PutUser(ctx, &user); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			r.log.Debug(ctx, "user removed during poll", "user", user.UserName)
			return nil, nil
		}
		return nil, err
	}

	r.mu.Lock()
	if cur, ok := r.users[user.UserName]; ok {
		cur.LastPost = cursor
		r.users[user.UserName] = cur
	}
	r.mu.Unlock()

	r.log.Debug(ctx, "user cursor advanced", "user", user.UserName, "cursor", cursor, "items", len(items))
	return items, nil
}

// PollFriends queries the friends submissions and comments feeds, each with
// its own cursor. It returns (nil, nil, nil) when the feed is disabled,
// including when it is disabled while the fetches are in flight.
func (r *Registry) PollFriends(ctx context.Context) (submissions, comments []reddit.Item, err error) {
	r.mu.Lock()
	if r.friends == nil {
		r.mu.Unlock()
		return nil, nil, nil
	}
	f := *r.friends
	r.mu.Unlock()

	submissions, subCursor := r.fetchListing(ctx, r.opts.Endpoints.FriendsSubmissions(f.LastSubmission, r.opts.ListingLimit))
	comments, comCursor := r.fetchListing(ctx, r.opts.Endpoints.FriendsComments(f.LastComment, r.opts.ListingLimit))
	if len(submissions) == 0 && len(comments) == 0 {
		return nil, nil, nil
	}

	if len(submissions) > 0 {
		f.LastSubmission = subCursor
	}
	if len(comments) > 0 {
		f.LastComment = comCursor
	}
	ok, err := r.store.UpdateFriends(ctx, &f)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		r.log.Debug(ctx, "friends feed disabled during poll")
		return nil, nil, nil
	}

	r.mu.Lock()
	if r.friends != nil {
		r.friends = &f
	}
	r.mu.Unlock()

	return submissions, comments, nil
}

// PollAll polls every user and the friends feed, returning the feeds that
// produced new items. A failing feed is logged and skipped; only a canceled
// ctx ends the cycle early.
func (r *Registry) PollAll(ctx context.Context) ([]Feed, error) {
	var out []Feed
	for _, u := range r.Users() {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		items, err := r.PollUser(ctx, u)
		if err != nil {
			r.log.Warn(ctx, "user poll failed", "user", u.UserName, "error", err)
			continue
		}
		if len(items) > 0 {
			out = append(out, Feed{Name: u.UserName, Items: items})
		}
	}
	if ctx.Err() != nil {
		return out, ctx.Err()
	}

	subs, coms, err := r.PollFriends(ctx)
	if err != nil {
		r.log.Warn(ctx, "friends poll failed", "error", err)
		return out, nil
	}
	if len(subs) > 0 {
		out = append(out, Feed{Name: "friends/new", Items: subs})
	}
	if len(coms) > 0 {
		out = append(out, Feed{Name: "friends/comments", Items: coms})
	}
	return out, nil
}

// fetchListing returns the listing items and the full name of the first
// one. Errors are logged and reported as an empty listing.
func (r *Registry) fetchListing(ctx context.Context, url string) ([]reddit.Item, string) {
	body, err := r.fetch.AuthorizedGet(ctx, url)
	if err != nil {
		r.log.Warn(ctx, "listing fetch failed", "url", url, "error", err)
		return nil, ""
	}
	items, err := reddit.ParseListing(body)
	if err != nil {
		r.log.Warn(ctx, "listing parse failed", "url", url, "error", err)
		return nil, ""
	}
	if len(items) == 0 {
		return nil, ""
	}
	return items, items[0].FullName()
}
