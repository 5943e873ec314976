package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordBuildLifecycle(t *testing.T) {
	RecordBuildStart("metrics-job", "worker-1")
	assert.InDelta(t, 1, testutil.ToFloat64(BuildsRunning.WithLabelValues("metrics-job", "worker-1")), 0)

	RecordBuildComplete("metrics-job", "worker-1", "SUCCESS", 2.5)
	assert.InDelta(t, 0, testutil.ToFloat64(BuildsRunning.WithLabelValues("metrics-job", "worker-1")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(BuildsTotal.WithLabelValues("metrics-job", "SUCCESS")), 0)
}

func TestRecordHistoryPage(t *testing.T) {
	RecordHistoryPage("metrics-history", "older", 40, 20)
	RecordHistoryPage("metrics-history", "older", 40, 20)

	assert.InDelta(t, 2, testutil.ToFloat64(HistoryRequests.WithLabelValues("metrics-history", "older")), 0)
}

func TestRecordQueueDepth(t *testing.T) {
	RecordQueueDepth("ci:deploy", 3, 1, 0, 2)

	assert.InDelta(t, 3, testutil.ToFloat64(QueueDepth.WithLabelValues("ci:deploy", "pending")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(QueueDepth.WithLabelValues("ci:deploy", "retry")), 0)
}

func TestRecordRecordsPurged(t *testing.T) {
	RecordRecordsPurged("metrics-purge", 3)
	RecordRecordsPurged("metrics-purge", 2)

	assert.InDelta(t, 5, testutil.ToFloat64(RecordsPurged.WithLabelValues("metrics-purge")), 0)
}
