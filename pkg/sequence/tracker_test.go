package sequence

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethpandaops/buildhistory/internal/testutil"
	"github.com/ethpandaops/buildhistory/pkg/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTracker(t *testing.T) (*miniredis.Miniredis, Tracker) {
	t.Helper()

	mr, client := testutil.NewMiniredisClient(t)

	return mr, NewTracker(testutil.NewLogger(), client, "ci")
}

func TestTracker_NextSequence(t *testing.T) {
	mr, tracker := setupTracker(t)
	ctx := context.Background()

	last, err := tracker.LastSequence(ctx, "deploy")
	require.NoError(t, err)
	assert.Equal(t, history.UnknownSequence, last)

	for want := history.SequenceID(1); want <= 3; want++ {
		id, err := tracker.NextSequence(ctx, "deploy")
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}

	other, err := tracker.NextSequence(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, history.SequenceID(1), other, "counters are per job")

	last, err = tracker.LastSequence(ctx, "deploy")
	require.NoError(t, err)
	assert.Equal(t, history.SequenceID(3), last)

	val, err := mr.Get("ci:sequence:deploy")
	require.NoError(t, err)
	assert.Equal(t, "3", val)
}

func TestTracker_BuildNumberIndependentOfSequence(t *testing.T) {
	_, tracker := setupTracker(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := tracker.NextSequence(ctx, "deploy")
		require.NoError(t, err)
	}

	number, err := tracker.NextBuildNumber(ctx, "deploy")
	require.NoError(t, err)
	assert.Equal(t, int64(1), number)
}

func TestTracker_Reset(t *testing.T) {
	mr, tracker := setupTracker(t)
	ctx := context.Background()

	_, err := tracker.NextSequence(ctx, "deploy")
	require.NoError(t, err)
	_, err = tracker.NextBuildNumber(ctx, "deploy")
	require.NoError(t, err)

	require.NoError(t, tracker.Reset(ctx, "deploy"))
	assert.False(t, mr.Exists("ci:sequence:deploy"))
	assert.False(t, mr.Exists("ci:build-number:deploy"))

	id, err := tracker.NextSequence(ctx, "deploy")
	require.NoError(t, err)
	assert.Equal(t, history.SequenceID(1), id)
}

func TestTracker_CorruptValue(t *testing.T) {
	mr, tracker := setupTracker(t)
	require.NoError(t, mr.Set("ci:sequence:deploy", "not-a-number"))

	_, err := tracker.LastSequence(context.Background(), "deploy")
	assert.Error(t, err)
}

func TestTracker_EmptyJob(t *testing.T) {
	_, tracker := setupTracker(t)
	ctx := context.Background()

	_, err := tracker.NextSequence(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyJob)
	_, err = tracker.NextBuildNumber(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyJob)
	assert.ErrorIs(t, tracker.Reset(ctx, ""), ErrEmptyJob)
}
