package fetch

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/rssking/rssking/internal/rssking"
)

// Summaries and titles are capped before persistence; the same bound keeps
// prompt sizes in check downstream.
const maxTextLen = 500

var stripPolicy = bluemonday.StrictPolicy()

// Normalize turns one provider entry into a Candidate. Entries without a
// link are unusable: they can't be deduplicated or stored, so they are
// dropped here.
func Normalize(entry *gofeed.Item, feed rssking.Feed) (rssking.Candidate, bool) {
	url := strings.TrimSpace(entry.Link)
	if url == "" {
		return rssking.Candidate{}, false
	}

	candidate := rssking.Candidate{
		Feed:    feed,
		URL:     url,
		Title:   truncate(strings.TrimSpace(entry.Title), maxTextLen),
		Summary: summarize(entry),
		Tags:    entry.Categories,
	}

	// A missing or unparseable date is recorded as absent, never an error:
	// undated entries still score, just without the recency bonus.
	if entry.PublishedParsed != nil {
		t := entry.PublishedParsed.UTC()
		candidate.PublishedAt = &t
	}

	return candidate, true
}

// summarize extracts a short plain-text summary, preferring the explicit
// summary field and falling back to the first content block.
func summarize(entry *gofeed.Item) string {
	text := entry.Description
	if text == "" {
		text = entry.Content
	}

	text = stripPolicy.Sanitize(text)
	text = strings.Join(strings.Fields(text), " ")

	return truncate(text, maxTextLen)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	return string(runes[:max])
}
