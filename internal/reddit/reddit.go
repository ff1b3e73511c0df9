// Package reddit knows the Reddit OAuth endpoints, the resource URLs the
// notifier polls and the JSON shapes it reads back.
package reddit

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	BaseURL      = "https://oauth.reddit.com"
	AuthorizeURL = "https://www.reddit.com/api/v1/authorize"
	TokenURL     = "https://www.reddit.com/api/v1/access_token"
	UserAgent    = "web:usernotify:0.1"
)

// Scopes requested during authorization.
var Scopes = []string{"identity", "history", "read"}

// Feed is a per-user listing endpoint.
type Feed string

const (
	FeedOverview  Feed = "overview"
	FeedComments  Feed = "comments"
	FeedSubmitted Feed = "submitted"
)

// FeedFor picks the listing for a user's flags. ok is false when neither
// comments nor submissions are tracked.
func FeedFor(comments, submitted bool) (feed Feed, ok bool) {
	switch {
	case comments && submitted:
		return FeedOverview, true
	case comments:
		return FeedComments, true
	case submitted:
		return FeedSubmitted, true
	default:
		return "", false
	}
}

// Endpoints builds resource URLs against a base (BaseURL in production).
type Endpoints struct {
	Base string
}

func (e Endpoints) base() string {
	if e.Base == "" {
		return BaseURL
	}
	return strings.TrimRight(e.Base, "/")
}

// About is the profile lookup URL for name.
func (e Endpoints) About(name string) string {
	return e.base() + "/user/" + url.PathEscape(name) + "/about"
}

// UserListing is the listing URL of a user's feed.
func (e Endpoints) UserListing(name string, feed Feed, after string, limit int) string {
	return withPaging(e.base()+"/user/"+url.PathEscape(name)+"/"+string(feed), after, limit)
}

// FriendsSubmissions is the aggregate friends submissions feed.
func (e Endpoints) FriendsSubmissions(after string, limit int) string {
	return withPaging(e.base()+"/r/friends/new", after, limit)
}

// FriendsComments is the aggregate friends comments feed.
func (e Endpoints) FriendsComments(after string, limit int) string {
	return withPaging(e.base()+"/r/friends/comments", after, limit)
}

func withPaging(raw, after string, limit int) string {
	q := url.Values{}
	if after != "" {
		q.Set("after", after)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if len(q) == 0 {
		return raw
	}
	return raw + "?" + q.Encode()
}

// Thing is the kind/data envelope Reddit wraps every object in.
type Thing struct {
	Kind string    `json:"kind"`
	Data ThingData `json:"data"`
}

type ThingData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FullName is the composite kind_id identifier.
func (t Thing) FullName() string {
	return t.Kind + "_" + t.Data.ID
}

// Item is one entry of a listing.
type Item struct {
	Kind string   `json:"kind"`
	Data ItemData `json:"data"`
}

type ItemData struct {
	ID        string  `json:"id"`
	Author    string  `json:"author"`
	Subreddit string  `json:"subreddit"`
	Title     string  `json:"title,omitempty"`
	LinkTitle string  `json:"link_title,omitempty"`
	Body      string  `json:"body,omitempty"`
	Permalink string  `json:"permalink"`
	Created   float64 `json:"created_utc"`
}

func (i Item) FullName() string {
	return i.Kind + "_" + i.Data.ID
}

type Listing struct {
	Kind string      `json:"kind"`
	Data ListingData `json:"data"`
}

type ListingData struct {
	Children []Item `json:"children"`
	After    string `json:"after"`
	Before   string `json:"before"`
}

var ErrMalformed = errors.New("malformed reddit response")

// ParseAbout extracts the account full name from a /about response.
func ParseAbout(body []byte) (string, error) {
	var t Thing
	if err := json.Unmarshal(body, &t); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if t.Kind == "" || t.Data.ID == "" {
		return "", fmt.Errorf("%w: about without kind or id", ErrMalformed)
	}
	return t.FullName(), nil
}

// ParseListing returns the children of a listing, newest first.
func ParseListing(body []byte) ([]Item, error) {
	var l Listing
	if err := json.Unmarshal(body, &l); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return l.Data.Children, nil
}
