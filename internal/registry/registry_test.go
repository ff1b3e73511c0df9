package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Individual-1/notifier/internal/logging"
	"github.com/Individual-1/notifier/internal/models"
	"github.com/Individual-1/notifier/internal/reddit"
	"github.com/Individual-1/notifier/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type response struct {
	body string
	err  error
}

// stubFetcher answers by exact URL and records every request.
type stubFetcher struct {
	mu        sync.Mutex
	responses map[string]response
	calls     []string

	// during runs once per url before it is answered
	during map[string]func()
}

func newStub() *stubFetcher {
	return &stubFetcher{responses: map[string]response{}, during: map[string]func(){}}
}

func (s *stubFetcher) whileFetching(url string, fn func()) {
	s.during[url] = fn
}

func (s *stubFetcher) on(url, body string) {
	s.responses[url] = response{body: body}
}

func (s *stubFetcher) fail(url string, err error) {
	s.responses[url] = response{err: err}
}

func (s *stubFetcher) AuthorizedGet(ctx context.Context, url string) ([]byte, error) {
	s.mu.Lock()
	fn := s.during[url]
	delete(s.during, url)
	s.mu.Unlock()
	if fn != nil {
		fn()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, url)
	r, ok := s.responses[url]
	if !ok {
		return nil, errors.New("unexpected url " + url)
	}
	if r.err != nil {
		return nil, r.err
	}
	return []byte(r.body), nil
}

const (
	base       = "http://reddit.test"
	emptyList  = `{"kind":"Listing","data":{"children":[]}}`
	newestList = `{"kind":"Listing","data":{"children":[
		{"kind":"t1","data":{"id":"xyz","author":"alice"}},
		{"kind":"t1","data":{"id":"older","author":"alice"}}
	]}}`
)

func newRegistry(t *testing.T, f Fetcher) (*Registry, Store) {
	t.Helper()
	s := storetest.New(t)
	r := New(s, f, Options{Endpoints: reddit.Endpoints{Base: base}, ListingLimit: 25}, logging.Discard())
	require.NoError(t, r.Load(context.Background()))
	return r, s
}

func TestAddUser_StoresLookedUpFullName(t *testing.T) {
	f := newStub()
	f.on(base+"/user/alice/about", `{"kind":"t2","data":{"id":"abc","name":"alice"}}`)
	r, s := newRegistry(t, f)
	ctx := context.Background()

	ok, err := r.AddUser(ctx, "alice", true, false)
	require.NoError(t, err)
	require.True(t, ok)

	u, err := s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, &models.User{UserName: "alice", FullName: "t2_abc", LastPost: "", Submitted: false, Comments: true}, u)

	// second add is rejected without another lookup or write
	ok, err = r.AddUser(ctx, "alice", false, true)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, f.calls, 1)

	u, err = s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, u.Comments)
	assert.False(t, u.Submitted)
}

func TestAddUser_LookupFailureWritesNothing(t *testing.T) {
	f := newStub()
	f.fail(base+"/user/ghost/about", errors.New("404"))
	r, s := newRegistry(t, f)
	ctx := context.Background()

	ok, err := r.AddUser(ctx, "ghost", true, true)
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := s.GetAllUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAddUser_DuplicateFullNameIsFalse(t *testing.T) {
	f := newStub()
	f.on(base+"/user/alice/about", `{"kind":"t2","data":{"id":"abc"}}`)
	f.on(base+"/user/Alice2/about", `{"kind":"t2","data":{"id":"abc"}}`)
	r, _ := newRegistry(t, f)
	ctx := context.Background()

	ok, err := r.AddUser(ctx, "alice", true, true)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = r.AddUser(ctx, "Alice2", true, true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddUser_FriendsRoutesToFeed(t *testing.T) {
	f := newStub()
	r, s := newRegistry(t, f)
	ctx := context.Background()

	ok, err := r.AddUser(ctx, "friends", true, true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, r.FriendsEnabled())
	assert.Empty(t, f.calls)

	fr, err := s.GetFriends(ctx)
	require.NoError(t, err)
	assert.NotNil(t, fr)

	all, err := s.GetAllUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "friends is never a user row")

	ok, err = r.EnableFriends(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveUserAndDisableFriends_Idempotent(t *testing.T) {
	f := newStub()
	f.on(base+"/user/bob/about", `{"kind":"t2","data":{"id":"b"}}`)
	r, _ := newRegistry(t, f)
	ctx := context.Background()

	_, err := r.AddUser(ctx, "bob", false, true)
	require.NoError(t, err)

	ok, err := r.RemoveUser(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.RemoveUser(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.DisableFriends(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = r.EnableFriends(ctx)
	require.NoError(t, err)
	ok, err = r.RemoveUser(ctx, "friends")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, r.FriendsEnabled())
}

func TestPollUser_AdvancesCursorToNewest(t *testing.T) {
	f := newStub()
	f.on(base+"/user/alice/comments?limit=25", newestList)
	r, s := newRegistry(t, f)
	ctx := context.Background()
	require.NoError(t, s.AddUser(ctx, &models.User{UserName: "alice", FullName: "t2_abc", Comments: true}))
	require.NoError(t, r.Load(ctx))

	items, err := r.PollUser(ctx, models.User{UserName: "alice", FullName: "t2_abc", Comments: true})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	u, err := s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "t1_xyz", u.LastPost)
	assert.Equal(t, "t1_xyz", r.Users()[0].LastPost)
}

func TestPollUser_EmptyListingKeepsCursor(t *testing.T) {
	f := newStub()
	f.on(base+"/user/alice/overview?after=t1_xyz&limit=25", emptyList)
	r, s := newRegistry(t, f)
	ctx := context.Background()
	alice := models.User{UserName: "alice", FullName: "t2_abc", LastPost: "t1_xyz", Comments: true, Submitted: true}
	require.NoError(t, s.AddUser(ctx, &alice))

	items, err := r.PollUser(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, items)

	u, err := s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "t1_xyz", u.LastPost)
}

func TestPollUser_FetchErrorKeepsCursor(t *testing.T) {
	f := newStub()
	f.fail(base+"/user/alice/submitted?after=t3_a&limit=25", errors.New("401 twice"))
	r, s := newRegistry(t, f)
	ctx := context.Background()
	alice := models.User{UserName: "alice", FullName: "t2_abc", LastPost: "t3_a", Submitted: true}
	require.NoError(t, s.AddUser(ctx, &alice))

	items, err := r.PollUser(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, items)

	u, err := s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "t3_a", u.LastPost)
}

func TestPollUser_NoFlagsIsNoop(t *testing.T) {
	f := newStub()
	r, _ := newRegistry(t, f)

	items, err := r.PollUser(context.Background(), models.User{UserName: "quiet"})
	require.NoError(t, err)
	assert.Nil(t, items)
	assert.Empty(t, f.calls)
}

func TestPollFriends_TwoIndependentCursors(t *testing.T) {
	f := newStub()
	f.on(base+"/r/friends/new?limit=25", `{"kind":"Listing","data":{"children":[{"kind":"t3","data":{"id":"s1"}}]}}`)
	f.on(base+"/r/friends/comments?limit=25", emptyList)
	r, s := newRegistry(t, f)
	ctx := context.Background()

	_, err := r.EnableFriends(ctx)
	require.NoError(t, err)

	subs, coms, err := r.PollFriends(ctx)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
	assert.Empty(t, coms)

	fr, err := s.GetFriends(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t3_s1", fr.LastSubmission)
	assert.Equal(t, "", fr.LastComment)

	f.on(base+"/r/friends/new?after=t3_s1&limit=25", emptyList)
	f.on(base+"/r/friends/comments?limit=25", `{"kind":"Listing","data":{"children":[{"kind":"t1","data":{"id":"c9"}}]}}`)

	feeds, err := r.PollAll(ctx)
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Equal(t, "friends/comments", feeds[0].Name)

	fr, err = s.GetFriends(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t3_s1", fr.LastSubmission)
	assert.Equal(t, "t1_c9", fr.LastComment)
}

func TestPollFriends_Disabled(t *testing.T) {
	f := newStub()
	r, _ := newRegistry(t, f)

	subs, coms, err := r.PollFriends(context.Background())
	require.NoError(t, err)
	assert.Nil(t, subs)
	assert.Nil(t, coms)
	assert.Empty(t, f.calls)
}

func TestPollFriends_DisabledDuringFetchStaysDisabled(t *testing.T) {
	f := newStub()
	f.on(base+"/r/friends/new?limit=25", `{"kind":"Listing","data":{"children":[{"kind":"t3","data":{"id":"s1"}}]}}`)
	f.on(base+"/r/friends/comments?limit=25", `{"kind":"Listing","data":{"children":[{"kind":"t1","data":{"id":"xyz"}}]}}`)
	r, s := newRegistry(t, f)
	ctx := context.Background()

	_, err := r.EnableFriends(ctx)
	require.NoError(t, err)
	f.whileFetching(base+"/r/friends/new?limit=25", func() {
		ok, err := r.DisableFriends(ctx)
		require.NoError(t, err)
		require.True(t, ok)
	})

	subs, coms, err := r.PollFriends(ctx)
	require.NoError(t, err)
	assert.Nil(t, subs)
	assert.Nil(t, coms)
	assert.False(t, r.FriendsEnabled())

	fr, err := s.GetFriends(ctx)
	require.NoError(t, err)
	assert.Nil(t, fr, "disabled feed must not be written back")

	fresh := New(s, f, Options{Endpoints: reddit.Endpoints{Base: base}, ListingLimit: 25}, logging.Discard())
	require.NoError(t, fresh.Load(ctx))
	assert.False(t, fresh.FriendsEnabled())
}

func TestPollUser_RemovedDuringFetchIsNoData(t *testing.T) {
	f := newStub()
	f.on(base+"/user/alice/comments?limit=25", newestList)
	r, s := newRegistry(t, f)
	ctx := context.Background()
	alice := models.User{UserName: "alice", FullName: "t2_abc", Comments: true}
	require.NoError(t, s.AddUser(ctx, &alice))
	require.NoError(t, r.Load(ctx))

	f.whileFetching(base+"/user/alice/comments?limit=25", func() {
		ok, err := r.RemoveUser(ctx, "alice")
		require.NoError(t, err)
		require.True(t, ok)
	})

	items, err := r.PollUser(ctx, alice)
	require.NoError(t, err)
	assert.Nil(t, items)
	assert.Empty(t, r.Users())

	u, err := s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestPollAll_RemovalDoesNotStopTheCycle(t *testing.T) {
	f := newStub()
	f.on(base+"/user/alice/comments?limit=25", newestList)
	f.on(base+"/user/bob/submitted?limit=25", `{"kind":"Listing","data":{"children":[{"kind":"t3","data":{"id":"b1"}}]}}`)
	f.on(base+"/r/friends/new?limit=25", emptyList)
	f.on(base+"/r/friends/comments?limit=25", `{"kind":"Listing","data":{"children":[{"kind":"t1","data":{"id":"c1"}}]}}`)
	r, s := newRegistry(t, f)
	ctx := context.Background()
	require.NoError(t, s.AddUser(ctx, &models.User{UserName: "alice", FullName: "t2_a", Comments: true}))
	require.NoError(t, s.AddUser(ctx, &models.User{UserName: "bob", FullName: "t2_b", Submitted: true}))
	require.NoError(t, r.Load(ctx))
	_, err := r.EnableFriends(ctx)
	require.NoError(t, err)

	f.whileFetching(base+"/user/alice/comments?limit=25", func() {
		_, err := r.RemoveUser(ctx, "alice")
		require.NoError(t, err)
	})

	feeds, err := r.PollAll(ctx)
	require.NoError(t, err)
	require.Len(t, feeds, 2)
	assert.Equal(t, "bob", feeds[0].Name)
	assert.Equal(t, "friends/comments", feeds[1].Name)

	u, err := s.GetUser(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "t3_b1", u.LastPost)
}

func TestPollAll_StoreFailureSkipsOnlyThatFeed(t *testing.T) {
	f := newStub()
	f.on(base+"/user/alice/comments?limit=25", newestList)
	f.on(base+"/user/bob/submitted?limit=25", `{"kind":"Listing","data":{"children":[{"kind":"t3","data":{"id":"b1"}}]}}`)
	s := &failingPutUser{Store: storetest.New(t), fail: "alice"}
	r := New(s, f, Options{Endpoints: reddit.Endpoints{Base: base}, ListingLimit: 25}, logging.Discard())
	ctx := context.Background()
	require.NoError(t, s.AddUser(ctx, &models.User{UserName: "alice", FullName: "t2_a", Comments: true}))
	require.NoError(t, s.AddUser(ctx, &models.User{UserName: "bob", FullName: "t2_b", Submitted: true}))
	require.NoError(t, r.Load(ctx))

	feeds, err := r.PollAll(ctx)
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Equal(t, "bob", feeds[0].Name)
}

// failingPutUser breaks cursor writes for one user.
type failingPutUser struct {
	Store
	fail string
}

func (s *failingPutUser) PutUser(ctx context.Context, u *models.User) error {
	if u.UserName == s.fail {
		return errors.New("disk full")
	}
	return s.Store.PutUser(ctx, u)
}
