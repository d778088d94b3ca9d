package observability

import (
	"testing"
	"time"

	"github.com/danmuck/pubd/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("pubd-a", "POST", "/rfc8181/:publisher", 200, 12*time.Millisecond)
	RecordMessage("pubd-a", "list_query")
	RecordDecodeFailure("pubd-a", "envelope", "InvalidVersion")
	RecordQueryFailure("pubd-a", "alice", "object_already_present")
	SetPublishedObjects("pubd-a", "alice", 3)

	if got := testutil.ToFloat64(publishedObjects.WithLabelValues("pubd-a", "alice")); got != 3 {
		t.Fatalf("expected gauge 3, got %v", got)
	}
	if got := testutil.ToFloat64(messagesDecoded.WithLabelValues("pubd-a", "list_query")); got < 1 {
		t.Fatalf("expected message counter to advance, got %v", got)
	}

	testlog.Logf("observability/metrics: registration idempotent and recording paths executed")
}
