package ingest

// Deduper filters candidate urls against what is already persisted and what
// has already been admitted earlier in the same run. Admission is
// insert-once: the first occurrence wins and later duplicates are dropped,
// even when they come from a different feed.
type Deduper struct {
	existing map[string]struct{}
	seen     map[string]struct{}
}

func NewDeduper(existing map[string]struct{}) *Deduper {
	if existing == nil {
		existing = map[string]struct{}{}
	}

	return &Deduper{
		existing: existing,
		seen:     make(map[string]struct{}),
	}
}

// Admit reports whether the url is new to both the store and this run, and
// marks it as seen when it is.
func (d *Deduper) Admit(url string) bool {
	if _, ok := d.existing[url]; ok {
		return false
	}
	if _, ok := d.seen[url]; ok {
		return false
	}

	d.seen[url] = struct{}{}

	return true
}
