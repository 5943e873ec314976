package history

import "math"

// Page is one window of build history. It is built fresh by Window.Compute
// and not modified afterwards.
type Page struct {
	// Queued holds queue items, newest first
	Queued []*QueuedEntry `json:"queued"`
	// Completed holds execution records, newest first
	Completed []*CompletedEntry `json:"completed"`

	// HasNewerPage is set when entries newer than this page exist
	HasNewerPage bool `json:"has_newer_page"`
	// HasOlderPage is set when entries older than this page exist
	HasOlderPage bool `json:"has_older_page"`

	// NewestShown is math.MinInt64 when the page is empty
	NewestShown SequenceID `json:"newest_shown"`
	// OldestShown is math.MaxInt64 when the page is empty
	OldestShown SequenceID `json:"oldest_shown"`
}

func newPage() *Page {
	return &Page{
		Queued:      make([]*QueuedEntry, 0),
		Completed:   make([]*CompletedEntry, 0),
		NewestShown: math.MinInt64,
		OldestShown: math.MaxInt64,
	}
}

// Len returns the number of entries on the page
func (p *Page) Len() int {
	return len(p.Queued) + len(p.Completed)
}

// Empty reports whether nothing was placed on the page. NewestShown and
// OldestShown are sentinels in that case.
func (p *Page) Empty() bool {
	return p.Len() == 0
}

// Entries returns queued items followed by records, each group newest first.
func (p *Page) Entries() []Entry {
	entries := make([]Entry, 0, p.Len())
	for _, q := range p.Queued {
		entries = append(entries, q)
	}

	for _, c := range p.Completed {
		entries = append(entries, c)
	}

	return entries
}

func (p *Page) add(entry Entry) {
	switch e := entry.(type) {
	case *QueuedEntry:
		p.Queued = append(p.Queued, e)
	case *CompletedEntry:
		p.Completed = append(p.Completed, e)
	default:
		return
	}

	id := entry.Sequence()
	p.NewestShown = max(p.NewestShown, id)
	p.OldestShown = min(p.OldestShown, id)
}
