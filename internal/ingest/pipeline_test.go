package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rssking/rssking/internal/rssking"
)

type fakeSource struct {
	candidates map[string][]rssking.Candidate
	errs       map[string]error
}

func (f *fakeSource) Fetch(_ context.Context, feed rssking.Feed) ([]rssking.Candidate, error) {
	if err := f.errs[feed.ID]; err != nil {
		return nil, err
	}

	return f.candidates[feed.ID], nil
}

type fakeStore struct {
	feeds    []rssking.Feed
	existing map[string]struct{}

	inserted    [][]rssking.Item
	failInserts map[int]error // keyed by insert call number, 0-based
	insertCalls int

	deleteDatedCutoff   time.Time
	deleteUndatedCutoff time.Time
	deleteErr           error
}

func (f *fakeStore) ActiveFeeds(context.Context) ([]rssking.Feed, error) {
	return f.feeds, nil
}

func (f *fakeStore) ExistingURLs(context.Context) (map[string]struct{}, error) {
	if f.existing == nil {
		return map[string]struct{}{}, nil
	}
	return f.existing, nil
}

func (f *fakeStore) InsertItems(_ context.Context, items []rssking.Item) error {
	call := f.insertCalls
	f.insertCalls++
	if err := f.failInserts[call]; err != nil {
		return err
	}

	f.inserted = append(f.inserted, items)
	return nil
}

func (f *fakeStore) DeletePublishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.deleteDatedCutoff = cutoff
	return 0, f.deleteErr
}

func (f *fakeStore) DeleteUndatedFetchedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.deleteUndatedCutoff = cutoff
	return 0, f.deleteErr
}

func (f *fakeStore) allInserted() []rssking.Item {
	var all []rssking.Item
	for _, chunk := range f.inserted {
		all = append(all, chunk...)
	}
	return all
}

var runNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestPipeline(source Source, store Store) *Pipeline {
	p := NewPipeline(source, store, DefaultRetention, DefaultChunkSize)
	p.now = func() time.Time { return runNow }
	return p
}

func cand(feed rssking.Feed, url string, publishedAgo time.Duration) rssking.Candidate {
	published := runNow.Add(-publishedAgo)
	return rssking.Candidate{
		Feed:        feed,
		URL:         url,
		Title:       "Some headline",
		Summary:     "Some summary",
		PublishedAt: &published,
	}
}

// Three feeds carry the same story published an hour ago: the first-seen
// feed wins, the multi-source bump applies, and exactly one item comes out.
func TestRun_MultiSourceStory(t *testing.T) {
	var (
		feedA = rssking.Feed{ID: "feed-a", Name: "Feed A", Tier: 1, Category: "News"}
		feedB = rssking.Feed{ID: "feed-b", Name: "Feed B", Tier: 2, Category: "News"}
		feedC = rssking.Feed{ID: "feed-c", Name: "Feed C", Tier: 2, Category: "News"}
		url   = "https://example.com/big-story"
	)
	store := &fakeStore{feeds: []rssking.Feed{feedA, feedB, feedC}}
	source := &fakeSource{candidates: map[string][]rssking.Candidate{
		"feed-a": {cand(feedA, url, time.Hour)},
		"feed-b": {cand(feedB, url, time.Hour)},
		"feed-c": {cand(feedC, url, time.Hour)},
	}}

	stats, err := newTestPipeline(source, store).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Candidates)
	assert.Equal(t, 1, stats.NewItems)
	assert.Equal(t, 1, stats.Inserted)

	items := store.allInserted()
	require.Len(t, items, 1)
	assert.Equal(t, "feed-a", items[0].FeedID, "first-seen feed wins")
	assert.Equal(t, 129.93, items[0].Score, "tier 1 + recency + multi-source")
}

// Two sources are not enough for the correlation bump.
func TestRun_TwoSourcesNoBump(t *testing.T) {
	var (
		feedA = rssking.Feed{ID: "feed-a", Tier: 2}
		feedB = rssking.Feed{ID: "feed-b", Tier: 2}
		url   = "https://example.com/small-story"
	)
	store := &fakeStore{feeds: []rssking.Feed{feedA, feedB}}
	source := &fakeSource{candidates: map[string][]rssking.Candidate{
		"feed-a": {cand(feedA, url, time.Hour)},
		"feed-b": {cand(feedB, url, time.Hour)},
	}}

	_, err := newTestPipeline(source, store).Run(context.Background())
	require.NoError(t, err)

	items := store.allInserted()
	require.Len(t, items, 1)
	assert.Equal(t, 69.93, items[0].Score, "tier 2 + recency, no multi-source bump")
}

func TestRun_ExistingURLNeverReinserted(t *testing.T) {
	feed := rssking.Feed{ID: "feed-a", Tier: 1}
	store := &fakeStore{
		feeds:    []rssking.Feed{feed},
		existing: map[string]struct{}{"https://example.com/old-news": {}},
	}
	source := &fakeSource{candidates: map[string][]rssking.Candidate{
		"feed-a": {
			cand(feed, "https://example.com/old-news", time.Hour),
			cand(feed, "https://example.com/fresh", time.Hour),
		},
	}}

	stats, err := newTestPipeline(source, store).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.NewItems)
	items := store.allInserted()
	require.Len(t, items, 1)
	assert.Equal(t, "https://example.com/fresh", items[0].URL)
}

func TestRun_FeedFailureDoesNotAbort(t *testing.T) {
	var (
		broken  = rssking.Feed{ID: "feed-broken"}
		healthy = rssking.Feed{ID: "feed-healthy", Tier: 2}
	)
	store := &fakeStore{feeds: []rssking.Feed{broken, healthy}}
	source := &fakeSource{
		errs: map[string]error{"feed-broken": errors.New("connection refused")},
		candidates: map[string][]rssking.Candidate{
			"feed-healthy": {cand(healthy, "https://example.com/ok", time.Hour)},
		},
	}

	stats, err := newTestPipeline(source, store).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FeedsFailed)
	assert.Equal(t, 1, stats.Inserted)
}

// Entries past the retention window are dropped before correlation, so a
// stale republished link can't earn the multi-source bump.
func TestRun_AgeCutoff(t *testing.T) {
	var (
		feedA = rssking.Feed{ID: "feed-a", Tier: 2}
		feedB = rssking.Feed{ID: "feed-b", Tier: 2}
		feedC = rssking.Feed{ID: "feed-c", Tier: 2}
		stale = "https://example.com/ancient"
	)
	store := &fakeStore{feeds: []rssking.Feed{feedA, feedB, feedC}}
	source := &fakeSource{candidates: map[string][]rssking.Candidate{
		"feed-a": {cand(feedA, stale, 31*24*time.Hour)},
		"feed-b": {cand(feedB, stale, 31*24*time.Hour)},
		"feed-c": {
			cand(feedC, stale, time.Hour), // recent copy from one feed only
		},
	}}

	stats, err := newTestPipeline(source, store).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Candidates, "stale entries never become candidates")
	items := store.allInserted()
	require.Len(t, items, 1)
	assert.Equal(t, 69.93, items[0].Score, "correlation count is 1, no bump")
}

func TestRun_ChunkedInsertBestEffort(t *testing.T) {
	feed := rssking.Feed{ID: "feed-a", Tier: 2}

	var candidates []rssking.Candidate
	for _, u := range []string{"a", "b", "c", "d", "e"} {
		candidates = append(candidates, cand(feed, "https://example.com/"+u, time.Hour))
	}

	store := &fakeStore{
		feeds:       []rssking.Feed{feed},
		failInserts: map[int]error{1: errors.New("disk full")},
	}
	source := &fakeSource{candidates: map[string][]rssking.Candidate{"feed-a": candidates}}

	p := NewPipeline(source, store, DefaultRetention, 2)
	p.now = func() time.Time { return runNow }

	stats, err := p.Run(context.Background())
	require.NoError(t, err, "a failed chunk does not fail the run")

	// Chunks of 2: [a b] ok, [c d] fails, [e] still attempted.
	assert.Equal(t, 3, stats.Inserted)
	assert.Equal(t, 2, stats.InsertFailed)
	assert.Equal(t, 3, store.insertCalls)
}

func TestRun_RetentionSweep(t *testing.T) {
	store := &fakeStore{feeds: []rssking.Feed{{ID: "feed-a"}}}
	source := &fakeSource{}

	_, err := newTestPipeline(source, store).Run(context.Background())
	require.NoError(t, err)

	wantCutoff := runNow.Add(-DefaultRetention)
	assert.Equal(t, wantCutoff, store.deleteDatedCutoff)
	assert.Equal(t, wantCutoff, store.deleteUndatedCutoff)
}

func TestRun_SweepFailureNonFatal(t *testing.T) {
	store := &fakeStore{
		feeds:     []rssking.Feed{{ID: "feed-a"}},
		deleteErr: errors.New("locked"),
	}
	source := &fakeSource{}

	_, err := newTestPipeline(source, store).Run(context.Background())
	assert.NoError(t, err)
}
