package digest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rssking/rssking/internal/rssking"
)

var digestNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeSummarizer struct {
	response []byte
	err      error
	prompts  []string
}

func (f *fakeSummarizer) Summarize(_ context.Context, prompt string) ([]byte, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

type fakeDigestStore struct {
	users    []rssking.User
	usersErr error
	items    map[string][]rssking.Item
	itemsErr error
	starred  map[string][]string

	inserted  []rssking.Digest
	insertErr error

	gotSince time.Time
	gotLimit int
}

func (f *fakeDigestStore) UsersWithActiveFeeds(_ context.Context) ([]rssking.User, error) {
	return f.users, f.usersErr
}

func (f *fakeDigestStore) UserItems(_ context.Context, userID string, since time.Time, limit int) ([]rssking.Item, error) {
	f.gotSince = since
	f.gotLimit = limit
	return f.items[userID], f.itemsErr
}

func (f *fakeDigestStore) StarredTitles(_ context.Context, userID string, _ int) ([]string, error) {
	return f.starred[userID], nil
}

func (f *fakeDigestStore) InsertDigest(_ context.Context, digest rssking.Digest) (rssking.Digest, error) {
	if f.insertErr != nil {
		return rssking.Digest{}, f.insertErr
	}
	f.inserted = append(f.inserted, digest)
	return digest, nil
}

func newTestRunner(store Store, summarizer Summarizer) *Runner {
	r := NewRunner(store, summarizer, 24, 5, 200)
	r.now = func() time.Time { return digestNow }
	return r
}

func TestRun_WritesDigest(t *testing.T) {
	store := &fakeDigestStore{
		users: []rssking.User{{ID: "u1", Profile: rssking.Profile{DisplayName: "Ada", Interests: "ai"}}},
		items: map[string][]rssking.Item{
			"u1": {
				{ID: "itm-1", Title: "Top story", SourceName: "Example"},
				{ID: "itm-2", Title: "Other story", SourceName: "Example"},
			},
		},
	}
	summarizer := &fakeSummarizer{
		response: []byte(`{"overview": "Quiet day.", "picks": [{"index": 2, "reason": "matches ai"}]}`),
	}

	err := newTestRunner(store, summarizer).Run(t.Context())
	require.NoError(t, err)

	require.Len(t, store.inserted, 1)
	digest := store.inserted[0]
	assert.Equal(t, "u1", digest.UserID)
	assert.Equal(t, "Quiet day.", digest.Overview)
	assert.Equal(t, 24, digest.TimeWindowHours)
	assert.Equal(t, digestNow, digest.GeneratedAt)
	require.Len(t, digest.Picks, 1)
	assert.Equal(t, rssking.Pick{ItemID: "itm-2", Reason: "matches ai"}, digest.Picks[0])

	assert.Equal(t, digestNow.Add(-24*time.Hour), store.gotSince)
	assert.Equal(t, 200, store.gotLimit)
}

func TestRun_SkipsUserWithNoItems(t *testing.T) {
	store := &fakeDigestStore{
		users: []rssking.User{{ID: "u1"}},
		items: map[string][]rssking.Item{},
	}
	summarizer := &fakeSummarizer{response: []byte(`{}`)}

	err := newTestRunner(store, summarizer).Run(t.Context())
	require.NoError(t, err)

	assert.Empty(t, summarizer.prompts, "summarizer should not be called")
	assert.Empty(t, store.inserted)
}

func TestRun_SummarizerFailureSkipsUser(t *testing.T) {
	store := &fakeDigestStore{
		users: []rssking.User{
			{ID: "u1"},
			{ID: "u2"},
		},
		items: map[string][]rssking.Item{
			"u1": {{ID: "itm-1", Title: "A"}},
			"u2": {{ID: "itm-2", Title: "B"}},
		},
	}

	// The first user fails, the second should still be processed.
	calls := 0
	summarizer := summarizerFunc(func(_ context.Context, _ string) ([]byte, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("api overloaded")
		}
		return []byte(`{"overview": "ok", "picks": []}`), nil
	})

	err := newTestRunner(store, summarizer).Run(t.Context())
	require.NoError(t, err)

	require.Len(t, store.inserted, 1)
	assert.Equal(t, "u2", store.inserted[0].UserID)
}

type summarizerFunc func(ctx context.Context, prompt string) ([]byte, error)

func (f summarizerFunc) Summarize(ctx context.Context, prompt string) ([]byte, error) {
	return f(ctx, prompt)
}

func TestRun_InvalidJSONSkipsUser(t *testing.T) {
	store := &fakeDigestStore{
		users: []rssking.User{{ID: "u1"}},
		items: map[string][]rssking.Item{"u1": {{ID: "itm-1"}}},
	}
	summarizer := &fakeSummarizer{response: []byte(`not json at all`)}

	err := newTestRunner(store, summarizer).Run(t.Context())
	require.NoError(t, err)
	assert.Empty(t, store.inserted)
}

func TestRun_ZeroPickDigestStillWritten(t *testing.T) {
	store := &fakeDigestStore{
		users: []rssking.User{{ID: "u1"}},
		items: map[string][]rssking.Item{"u1": {{ID: "itm-1"}}},
	}
	summarizer := &fakeSummarizer{
		response: []byte(`{"overview": "Nothing stood out.", "picks": [{"index": 99}]}`),
	}

	err := newTestRunner(store, summarizer).Run(t.Context())
	require.NoError(t, err)

	require.Len(t, store.inserted, 1)
	assert.Equal(t, "Nothing stood out.", store.inserted[0].Overview)
	assert.Empty(t, store.inserted[0].Picks)
}

func TestRun_UsersError(t *testing.T) {
	store := &fakeDigestStore{usersErr: errors.New("db down")}

	err := newTestRunner(store, &fakeSummarizer{}).Run(t.Context())
	require.Error(t, err)
}
