package ingest

// CorrelationIndex counts how many distinct feeds carry each url within one
// run. It is built over the full candidate set before any scoring happens
// and thrown away with the run.
type CorrelationIndex struct {
	counts map[string]int
	seen   map[feedURL]struct{}
}

type feedURL struct {
	feedID string
	url    string
}

func NewCorrelationIndex() *CorrelationIndex {
	return &CorrelationIndex{
		counts: make(map[string]int),
		seen:   make(map[feedURL]struct{}),
	}
}

// Add records that the given feed carries the url. A feed listing the same
// url twice only counts once.
func (ci *CorrelationIndex) Add(feedID, url string) {
	key := feedURL{feedID: feedID, url: url}
	if _, ok := ci.seen[key]; ok {
		return
	}
	ci.seen[key] = struct{}{}
	ci.counts[url]++
}

// Count returns the number of distinct feeds carrying the url.
func (ci *CorrelationIndex) Count(url string) int {
	return ci.counts[url]
}
