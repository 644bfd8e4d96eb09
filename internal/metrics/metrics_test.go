package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/LeventeLantos/freesms-notify/internal/model"
)

func TestSendObserver_CountsByOutcome(t *testing.T) {
	m := New(prometheus.NewRegistry())
	obs := m.ForAccount("12345678")

	obs.Observe(model.Result{Outcome: model.OutcomeSuccess})
	obs.Observe(model.Result{Outcome: model.OutcomeSuccess})
	obs.Observe(model.Result{Outcome: model.OutcomeRateLimited})

	if got := testutil.ToFloat64(m.SMSSendTotal.WithLabelValues("12345678", "success")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(m.SMSSendTotal.WithLabelValues("12345678", "rate_limited")); got != 1 {
		t.Fatalf("expected 1 rate_limited, got %v", got)
	}
}

func TestMetrics_RecordHelpers(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordHTTPRequest("GET", "/v1/health", 200, 5*time.Millisecond)
	m.RecordEntryCreationError("username_already_configured")
	m.SetEntriesConfigured(3)
	m.RecordStatusSync(2, 1, time.Millisecond)

	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/v1/health", "200")); got != 1 {
		t.Fatalf("expected 1 request, got %v", got)
	}
	if got := testutil.ToFloat64(m.EntryCreationErrs.WithLabelValues("username_already_configured")); got != 1 {
		t.Fatalf("expected 1 creation error, got %v", got)
	}
	if got := testutil.ToFloat64(m.EntriesConfigured); got != 3 {
		t.Fatalf("expected 3 entries, got %v", got)
	}
	if got := testutil.ToFloat64(m.StatusSyncTotal.WithLabelValues("error")); got != 1 {
		t.Fatalf("expected 1 sync error, got %v", got)
	}
}
