package fetch

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rssking/rssking/internal/rssking"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>Example News</title>
	<link>https://example.com</link>
	<item>
		<title>First story</title>
		<link>https://example.com/1</link>
		<description>&lt;p&gt;First summary&lt;/p&gt;</description>
		<pubDate>Wed, 01 May 2024 10:00:00 GMT</pubDate>
	</item>
	<item>
		<title>No link story</title>
		<description>dropped</description>
	</item>
	<item>
		<title>Second story</title>
		<link>https://example.com/2</link>
		<description>Second summary</description>
	</item>
	<item>
		<title>Third story</title>
		<link>https://example.com/3</link>
	</item>
</channel>
</rss>`

func TestFetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, rssFixture)
	}))
	defer srv.Close()

	client := NewClient(5 * time.Second)
	feed := rssking.Feed{ID: "feed-1", URL: srv.URL, MaxItems: 10}

	candidates, err := client.Fetch(t.Context(), feed)
	require.NoError(t, err)
	assert.Equal(t, "rssking/1.0", gotUA)

	// The link-less entry is dropped during normalization.
	require.Len(t, candidates, 3)
	assert.Equal(t, "https://example.com/1", candidates[0].URL)
	assert.Equal(t, "First summary", candidates[0].Summary)
	require.NotNil(t, candidates[0].PublishedAt)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), *candidates[0].PublishedAt)
	assert.Nil(t, candidates[2].PublishedAt)
}

func TestFetch_CapsAtMaxItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssFixture)
	}))
	defer srv.Close()

	client := NewClient(5 * time.Second)

	// The cap applies to raw entries before normalization, so the link-less
	// second entry still counts against it.
	candidates, err := client.Fetch(t.Context(), rssking.Feed{URL: srv.URL, MaxItems: 2})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "https://example.com/1", candidates[0].URL)
}

func TestFetch_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(5 * time.Second)

	_, err := client.Fetch(t.Context(), rssking.Feed{URL: srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 500")
}

func TestFetch_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not a feed at all")
	}))
	defer srv.Close()

	client := NewClient(5 * time.Second)

	_, err := client.Fetch(t.Context(), rssking.Feed{URL: srv.URL})
	require.Error(t, err)
}
