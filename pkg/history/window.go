package history

import (
	"cmp"
	"slices"
)

// Window describes which page of history to compute.
//
// NewerThan pages toward newer builds ("page up"); OlderThan pages toward
// older builds ("page down"). When both are set OlderThan is ignored.
type Window struct {
	MaxEntries int
	NewerThan  *SequenceID
	OlderThan  *SequenceID
}

// NewWindow creates a window, clamping maxEntries to at least one entry.
func NewWindow(maxEntries int, newerThan, olderThan *SequenceID) Window {
	return Window{
		MaxEntries: max(maxEntries, 1),
		NewerThan:  newerThan,
		OlderThan:  olderThan,
	}
}

// ComputePage is shorthand for NewWindow(...).Compute(candidates).
func ComputePage(candidates []Entry, maxEntries int, newerThan, olderThan *SequenceID) *Page {
	return NewWindow(maxEntries, newerThan, olderThan).Compute(candidates)
}

// Compute returns the page of candidates selected by the window. The
// candidate slice is not modified and may be in any order.
func (w Window) Compute(candidates []Entry) *Page {
	page := newPage()
	if len(candidates) == 0 {
		return page
	}

	maxEntries := max(w.MaxEntries, 1)
	items := SortDescending(candidates)

	switch {
	case w.NewerThan != nil:
		pageNewer(page, items, maxEntries, *w.NewerThan)
	case w.OlderThan != nil:
		pageOlder(page, items, maxEntries, *w.OlderThan)
	default:
		for _, item := range items[:min(maxEntries, len(items))] {
			page.add(item)
		}

		page.HasOlderPage = len(items) > maxEntries
	}

	return page
}

func pageNewer(page *Page, items []Entry, maxEntries int, cursor SequenceID) {
	if cursor > items[0].Sequence() {
		// Everything is older than the cursor
		page.HasOlderPage = true
		return
	}

	// Number of items strictly newer than the cursor; items[boundary] is the
	// first one at or below it.
	boundary, _ := slices.BinarySearchFunc(items, cursor, func(e Entry, target SequenceID) int {
		return cmp.Compare(target, e.Sequence())
	})

	if boundary < maxEntries {
		// Less than a full page is newer than the cursor, so show the latest page
		for _, item := range items[:min(maxEntries, len(items))] {
			page.add(item)
		}

		page.HasOlderPage = len(items) > maxEntries

		return
	}

	for _, item := range items[boundary-maxEntries : boundary] {
		page.add(item)
	}

	page.HasNewerPage = boundary > maxEntries
	page.HasOlderPage = len(items) > boundary
}

func pageOlder(page *Page, items []Entry, maxEntries int, cursor SequenceID) {
	for i, item := range items {
		if item.Sequence() >= cursor {
			page.HasNewerPage = true
			continue
		}

		page.add(item)
		if page.Len() >= maxEntries {
			page.HasOlderPage = i+1 < len(items)
			return
		}
	}
}

// SortDescending returns a copy of entries ordered newest first. Upstream
// order is not trusted: queue items can start executing out of submission
// order. Equal ids fall back to queued-before-completed, then newest
// timestamp first, so the result does not depend on input order.
func SortDescending(entries []Entry) []Entry {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, compareEntries)

	return sorted
}

func compareEntries(a, b Entry) int {
	if c := cmp.Compare(b.Sequence(), a.Sequence()); c != 0 {
		return c
	}

	if c := cmp.Compare(a.Kind(), b.Kind()); c != 0 {
		return c
	}

	return b.Timestamp().Compare(a.Timestamp())
}
