package discovery

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"promoscout/internal/breaker"
	"promoscout/internal/config"
	"promoscout/internal/model"
	"promoscout/internal/serp"
	"promoscout/internal/storage"
)

type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	results map[string][]serp.Result
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, query, window string) ([]serp.Result, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

func newTestEngine(t *testing.T, search Searcher) (*Engine, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	require.NoError(t, err)
	return NewEngine(search, store, nil, 2, zap.NewNop()), store
}

func project() config.ProjectConfig {
	return config.ProjectConfig{
		Name:           "acme",
		Keywords:       []string{"trail shoes"},
		BannedChannels: []string{"RunningCirclejerk"},
		TimeWindow:     "week",
	}
}

func TestDiscoverFiltersAndStores(t *testing.T) {
	search := &fakeSearcher{results: map[string][]serp.Result{
		"trail shoes site:reddit.com": {
			{Title: "good thread", Link: "https://www.reddit.com/r/trailrunning/comments/abc/?utm_source=x", Snippet: "..."},
			{Title: "banned", Link: "https://reddit.com/r/runningcirclejerk/comments/def", Snippet: "..."},
			{Title: "marketing", Link: "https://reddit.com/r/selfpromotion/comments/ghi", Snippet: "..."},
		},
	}}
	eng, store := newTestEngine(t, search)

	res, err := eng.Discover(context.Background(), project())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Found)
	// unique counts after dedup; banned/marketing filtering only affects stored
	assert.Equal(t, 3, res.Unique)
	assert.Equal(t, 1, res.Stored)
	assert.Equal(t, 0, res.Errors)

	items, err := store.PendingItems(context.Background(), "acme", 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://reddit.com/r/trailrunning/comments/abc", items[0].URL)
	assert.Equal(t, "trailrunning", items[0].Channel)
	assert.Equal(t, "trail shoes", items[0].Keyword)
	assert.Equal(t, model.FilterPending, items[0].FilterStatus)
}

func TestDiscoverCountsUniqueAfterDedup(t *testing.T) {
	search := &fakeSearcher{results: map[string][]serp.Result{
		"trail shoes site:reddit.com": {
			{Title: "thread", Link: "https://reddit.com/r/trailrunning/comments/abc"},
			{Title: "same thread", Link: "https://www.reddit.com/r/trailrunning/comments/abc/"},
		},
	}}
	eng, _ := newTestEngine(t, search)

	res, err := eng.Discover(context.Background(), project())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Found)
	assert.Equal(t, 1, res.Unique)
	assert.Equal(t, 1, res.Stored)
}

func TestDiscoverRerunDoesNotDuplicate(t *testing.T) {
	search := &fakeSearcher{results: map[string][]serp.Result{
		"trail shoes site:reddit.com": {
			{Title: "t", Link: "https://reddit.com/r/trailrunning/comments/abc"},
		},
	}}
	eng, store := newTestEngine(t, search)
	ctx := context.Background()

	_, err := eng.Discover(ctx, project())
	require.NoError(t, err)
	res, err := eng.Discover(ctx, project())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Unique)
	assert.Equal(t, 0, res.Stored)

	items, err := store.PendingItems(ctx, "acme", 0)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestDiscoverKeywordFailureIsTallied(t *testing.T) {
	search := &fakeSearcher{err: errors.New("boom")}
	eng, _ := newTestEngine(t, search)

	res, err := eng.Discover(context.Background(), project())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, 0, res.Found)
}

func TestDiscoverOpenCircuitDegrades(t *testing.T) {
	search := &fakeSearcher{err: breaker.ErrOpen}
	eng, _ := newTestEngine(t, search)

	res, err := eng.Discover(context.Background(), project())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, 0, res.Stored)
}

func TestQueriesExpandTargetChannels(t *testing.T) {
	p := project()
	assert.Equal(t, []searchQuery{
		{keyword: "trail shoes", query: "trail shoes site:reddit.com"},
	}, queries(p))

	p.TargetChannels = []string{"TrailRunning", " ultrarunning "}
	assert.Equal(t, []searchQuery{
		{keyword: "trail shoes", query: "trail shoes site:reddit.com/r/trailrunning"},
		{keyword: "trail shoes", query: "trail shoes site:reddit.com/r/ultrarunning"},
	}, queries(p))
}

func TestCanonicalURL(t *testing.T) {
	cases := map[string]string{
		"https://WWW.Reddit.com/r/Golang/comments/x/?ref=1#c": "https://reddit.com/r/Golang/comments/x",
		"https://reddit.com/r/golang/comments/x/":             "https://reddit.com/r/golang/comments/x",
		"  https://reddit.com/r/golang  ":                     "https://reddit.com/r/golang",
		"not a url %":                                         "",
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalURL(in), in)
	}
}

func TestChannelFromURL(t *testing.T) {
	assert.Equal(t, "trailrunning", ChannelFromURL("https://reddit.com/r/TrailRunning/comments/abc"))
	assert.Equal(t, "", ChannelFromURL("https://reddit.com/user/someone"))
}
