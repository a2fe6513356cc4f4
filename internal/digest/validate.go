package digest

import (
	"encoding/json"
	"log/slog"

	"github.com/rssking/rssking/internal/rssking"
)

// Reasons are clipped to the same bound the digest store enforces.
const maxReasonLen = 500

// ValidatePicks resolves the summarizer's proposed picks against the
// candidate list that was shown to it. The model's output is untrusted: a
// pick only survives if it is an object carrying an integer index in
// [1, len(items)]. Everything else is dropped with a warning, never an
// error; a digest with no picks is still valid.
func ValidatePicks(items []rssking.Item, raw json.RawMessage) []rssking.Pick {
	var rawPicks []json.RawMessage
	if err := json.Unmarshal(raw, &rawPicks); err != nil {
		slog.Warn("picks are not a list, treating as empty", "error", err)
		return []rssking.Pick{}
	}

	picks := make([]rssking.Pick, 0, len(rawPicks))
	for _, rawPick := range rawPicks {
		var pick struct {
			Index  json.RawMessage `json:"index"`
			Reason string          `json:"reason"`
		}
		if err := json.Unmarshal(rawPick, &pick); err != nil {
			slog.Warn("skipping malformed pick", "error", err)
			continue
		}
		if len(pick.Index) == 0 {
			slog.Warn("skipping pick with missing index")
			continue
		}

		// Strictly an integer: "2", 2.5, or null all fail here.
		var index int
		if err := json.Unmarshal(pick.Index, &index); err != nil {
			slog.Warn("skipping pick with non-integer index", "index", string(pick.Index))
			continue
		}
		if index < 1 || index > len(items) {
			slog.Warn("skipping pick with out-of-range index", "index", index, "candidates", len(items))
			continue
		}

		reason := []rune(pick.Reason)
		if len(reason) > maxReasonLen {
			reason = reason[:maxReasonLen]
		}

		picks = append(picks, rssking.Pick{
			ItemID: items[index-1].ID,
			Reason: string(reason),
		})
	}

	return picks
}
