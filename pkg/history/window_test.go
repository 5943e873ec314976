package history

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2015, 2, 20, 12, 0, 0, 0, time.UTC)

func newQueued(start, end int64) []Entry {
	entries := make([]Entry, 0, end-start+1)
	for id := start; id <= end; id++ {
		entries = append(entries, &QueuedEntry{
			ID:         SequenceID(id),
			Job:        "test-job",
			EnqueuedAt: baseTime.Add(time.Duration(id) * time.Minute),
		})
	}
	return entries
}

func newRuns(start, end int64) []Entry {
	entries := make([]Entry, 0, end-start+1)
	for id := start; id <= end; id++ {
		entries = append(entries, &CompletedEntry{
			ID:        SequenceID(id),
			Job:       "test-job",
			Number:    id,
			StartedAt: baseTime.Add(time.Duration(id) * time.Minute),
			Result:    ResultSuccess.Ptr(),
		})
	}
	return entries
}

func seq(id int64) *SequenceID {
	s := SequenceID(id)
	return &s
}

func ids(page *Page) []SequenceID {
	out := make([]SequenceID, 0, page.Len())
	for _, e := range page.Entries() {
		out = append(out, e.Sequence())
	}
	return out
}

func queuedIDs(page *Page) []SequenceID {
	out := make([]SequenceID, 0, len(page.Queued))
	for _, q := range page.Queued {
		out = append(out, q.ID)
	}
	return out
}

func completedIDs(page *Page) []SequenceID {
	out := make([]SequenceID, 0, len(page.Completed))
	for _, c := range page.Completed {
		out = append(out, c.ID)
	}
	return out
}

func TestComputePage_EmptyList(t *testing.T) {
	for _, tc := range []struct {
		name      string
		newerThan *SequenceID
		olderThan *SequenceID
	}{
		{name: "no cursor"},
		{name: "newer than", newerThan: seq(3)},
		{name: "older than", olderThan: seq(3)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			page := ComputePage(nil, 5, tc.newerThan, tc.olderThan)

			assert.True(t, page.Empty())
			assert.False(t, page.HasNewerPage)
			assert.False(t, page.HasOlderPage)
			assert.Empty(t, page.Queued)
			assert.Empty(t, page.Completed)
			assert.Equal(t, SequenceID(math.MinInt64), page.NewestShown)
			assert.Equal(t, SequenceID(math.MaxInt64), page.OldestShown)
		})
	}
}

func TestComputePage_Scenarios(t *testing.T) {
	tests := []struct {
		name          string
		candidates    []Entry
		newerThan     *SequenceID
		olderThan     *SequenceID
		wantQueued    []SequenceID
		wantCompleted []SequenceID
		wantNewer     bool
		wantOlder     bool
		wantNewest    SequenceID
		wantOldest    SequenceID
	}{
		{
			name:          "latest partial page",
			candidates:    append(newRuns(1, 2), newQueued(3, 4)...),
			wantQueued:    []SequenceID{4, 3},
			wantCompleted: []SequenceID{2, 1},
			wantNewest:    4,
			wantOldest:    1,
		},
		{
			name:          "latest page of longer list",
			candidates:    append(newRuns(1, 10), newQueued(11, 12)...),
			wantQueued:    []SequenceID{12, 11},
			wantCompleted: []SequenceID{10, 9, 8},
			wantOlder:     true,
			wantNewest:    12,
			wantOldest:    8,
		},
		{
			name:          "older than above newest behaves like no cursor",
			candidates:    newRuns(1, 10),
			olderThan:     seq(11),
			wantCompleted: []SequenceID{10, 9, 8, 7, 6},
			wantOlder:     true,
			wantNewest:    10,
			wantOldest:    6,
		},
		{
			name:       "older than below oldest is empty",
			candidates: newRuns(1, 10),
			olderThan:  seq(0),
			wantNewer:  true,
			wantNewest: math.MinInt64,
			wantOldest: math.MaxInt64,
		},
		{
			name:          "older than leaving a partial page",
			candidates:    newRuns(1, 10),
			olderThan:     seq(4),
			wantCompleted: []SequenceID{3, 2, 1},
			wantNewer:     true,
			wantNewest:    3,
			wantOldest:    1,
		},
		{
			name:          "older than mid list",
			candidates:    newRuns(1, 10),
			olderThan:     seq(8),
			wantCompleted: []SequenceID{7, 6, 5, 4, 3},
			wantNewer:     true,
			wantOlder:     true,
			wantNewest:    7,
			wantOldest:    3,
		},
		{
			name:          "newer than near newest degrades to latest page",
			candidates:    newRuns(1, 10),
			newerThan:     seq(8),
			wantCompleted: []SequenceID{10, 9, 8, 7, 6},
			wantOlder:     true,
			wantNewest:    10,
			wantOldest:    6,
		},
		{
			name:          "newer than near oldest",
			candidates:    newRuns(1, 10),
			newerThan:     seq(3),
			wantCompleted: []SequenceID{8, 7, 6, 5, 4},
			wantNewer:     true,
			wantOlder:     true,
			wantNewest:    8,
			wantOldest:    4,
		},
		{
			name:       "newer than above newest is empty",
			candidates: newRuns(1, 10),
			newerThan:  seq(11),
			wantOlder:  true,
			wantNewest: math.MinInt64,
			wantOldest: math.MaxInt64,
		},
		{
			name:          "newer than below oldest gives oldest page",
			candidates:    newRuns(1, 10),
			newerThan:     seq(0),
			wantCompleted: []SequenceID{5, 4, 3, 2, 1},
			wantNewer:     true,
			wantNewest:    5,
			wantOldest:    1,
		},
		{
			name:          "newer than with exactly a page above the cursor",
			candidates:    newRuns(1, 10),
			newerThan:     seq(5),
			wantCompleted: []SequenceID{10, 9, 8, 7, 6},
			wantOlder:     true,
			wantNewest:    10,
			wantOldest:    6,
		},
		{
			name:          "newer than the oldest id",
			candidates:    newRuns(1, 10),
			newerThan:     seq(1),
			wantCompleted: []SequenceID{6, 5, 4, 3, 2},
			wantNewer:     true,
			wantOlder:     true,
			wantNewest:    6,
			wantOldest:    2,
		},
		{
			name:          "newer than degrade on a list no bigger than a page",
			candidates:    newRuns(1, 5),
			newerThan:     seq(4),
			wantCompleted: []SequenceID{5, 4, 3, 2, 1},
			wantNewest:    5,
			wantOldest:    1,
		},
		{
			name:          "both cursors uses newer than",
			candidates:    newRuns(1, 10),
			newerThan:     seq(3),
			olderThan:     seq(8),
			wantCompleted: []SequenceID{8, 7, 6, 5, 4},
			wantNewer:     true,
			wantOlder:     true,
			wantNewest:    8,
			wantOldest:    4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := ComputePage(tt.candidates, 5, tt.newerThan, tt.olderThan)

			if tt.wantQueued == nil {
				tt.wantQueued = []SequenceID{}
			}
			if tt.wantCompleted == nil {
				tt.wantCompleted = []SequenceID{}
			}

			assert.Equal(t, tt.wantQueued, queuedIDs(page))
			assert.Equal(t, tt.wantCompleted, completedIDs(page))
			assert.Equal(t, tt.wantNewer, page.HasNewerPage, "HasNewerPage")
			assert.Equal(t, tt.wantOlder, page.HasOlderPage, "HasOlderPage")
			assert.Equal(t, tt.wantNewest, page.NewestShown)
			assert.Equal(t, tt.wantOldest, page.OldestShown)
		})
	}
}

func TestComputePage_DoesNotMutateCandidates(t *testing.T) {
	candidates := append(newRuns(1, 2), newQueued(3, 4)...)
	before := make([]Entry, len(candidates))
	copy(before, candidates)

	page := ComputePage(candidates, 5, nil, nil)

	require.Equal(t, 4, page.Len())
	assert.Equal(t, before, candidates)
	assert.Equal(t, SequenceID(1), candidates[0].Sequence())
}

func TestComputePage_UnknownSequenceSortsOldest(t *testing.T) {
	legacy := &CompletedEntry{ID: UnknownSequence, Number: 1, StartedAt: baseTime}
	candidates := append([]Entry{legacy}, newRuns(2, 4)...)

	page := ComputePage(candidates, 3, nil, nil)
	assert.Equal(t, []SequenceID{4, 3, 2}, ids(page))
	assert.True(t, page.HasOlderPage)

	older := ComputePage(candidates, 3, nil, seq(2))
	require.Len(t, older.Completed, 1)
	assert.Same(t, legacy, older.Completed[0])
	assert.True(t, older.HasNewerPage)
	assert.False(t, older.HasOlderPage)
}

func TestComputePage_ClampsMaxEntries(t *testing.T) {
	page := ComputePage(newRuns(1, 3), 0, nil, nil)

	assert.Equal(t, []SequenceID{3}, ids(page))
	assert.True(t, page.HasOlderPage)
}

func TestSortDescending_TieBreak(t *testing.T) {
	queued := &QueuedEntry{ID: 7, EnqueuedAt: baseTime}
	runA := &CompletedEntry{ID: UnknownSequence, RunID: "a", StartedAt: baseTime}
	runB := &CompletedEntry{ID: UnknownSequence, RunID: "b", StartedAt: baseTime.Add(time.Hour)}
	run := &CompletedEntry{ID: 7, StartedAt: baseTime}

	sorted := SortDescending([]Entry{runA, run, runB, queued})

	assert.Equal(t, []Entry{queued, run, runB, runA}, sorted)
}

// bruteForceCheck verifies the page against the candidate set without
// reusing the window logic.
func bruteForceCheck(t *testing.T, candidates []Entry, maxEntries int, page *Page) {
	t.Helper()

	require.LessOrEqual(t, page.Len(), maxEntries)

	for i := 1; i < len(page.Queued); i++ {
		require.Greater(t, page.Queued[i-1].ID, page.Queued[i].ID)
	}
	for i := 1; i < len(page.Completed); i++ {
		require.Greater(t, page.Completed[i-1].ID, page.Completed[i].ID)
	}

	if page.Empty() {
		return
	}

	var newer, older bool
	for _, c := range candidates {
		if c.Sequence() > page.NewestShown {
			newer = true
		}
		if c.Sequence() < page.OldestShown {
			older = true
		}
	}

	require.Equal(t, newer, page.HasNewerPage, "HasNewerPage")
	require.Equal(t, older, page.HasOlderPage, "HasOlderPage")
}

func TestComputePage_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))

	for iteration := 0; iteration < 500; iteration++ {
		size := rng.IntN(30)
		maxEntries := 1 + rng.IntN(8)

		// Unique ids with gaps, as left behind by purged records
		candidates := make([]Entry, 0, size)
		next := int64(1)
		for i := 0; i < size; i++ {
			next += 1 + rng.Int64N(3)
			if rng.IntN(3) == 0 {
				candidates = append(candidates, newQueued(next, next)...)
			} else {
				candidates = append(candidates, newRuns(next, next)...)
			}
		}

		var newerThan, olderThan *SequenceID
		switch rng.IntN(3) {
		case 1:
			newerThan = seq(rng.Int64N(next + 3))
		case 2:
			olderThan = seq(rng.Int64N(next + 3))
		}

		page := ComputePage(candidates, maxEntries, newerThan, olderThan)
		bruteForceCheck(t, candidates, maxEntries, page)

		again := ComputePage(candidates, maxEntries, newerThan, olderThan)
		require.Equal(t, page, again, "idempotent")

		shuffled := make([]Entry, len(candidates))
		copy(shuffled, candidates)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		permuted := ComputePage(shuffled, maxEntries, newerThan, olderThan)
		require.Equal(t, page, permuted, "order insensitive")
	}
}
