package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"cvbuilder/internal/capture"
)

func TestObserveExport(t *testing.T) {
	before := testutil.ToFloat64(exportTotal.WithLabelValues("success"))
	ObserveExport(capture.Outcome{Result: "success", Pages: 2, Duration: 300 * time.Millisecond})
	if got := testutil.ToFloat64(exportTotal.WithLabelValues("success")); got != before+1 {
		t.Fatalf("success count = %v, want %v", got, before+1)
	}
}

func TestExportStarted(t *testing.T) {
	base := testutil.ToFloat64(exportInFlight)
	done := ExportStarted()
	if got := testutil.ToFloat64(exportInFlight); got != base+1 {
		t.Fatalf("in flight = %v", got)
	}
	done()
	if got := testutil.ToFloat64(exportInFlight); got != base {
		t.Fatalf("in flight = %v", got)
	}
}

func TestPersistenceFailure(t *testing.T) {
	before := testutil.ToFloat64(persistenceFailures.WithLabelValues("save"))
	PersistenceFailure("save")
	if got := testutil.ToFloat64(persistenceFailures.WithLabelValues("save")); got != before+1 {
		t.Fatalf("failures = %v", got)
	}
}
