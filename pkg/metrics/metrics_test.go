package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAreRegistered(t *testing.T) {
	before := testutil.ToFloat64(RelayRequests.WithLabelValues("ok"))
	RelayRequests.WithLabelValues("ok").Inc()
	if got := testutil.ToFloat64(RelayRequests.WithLabelValues("ok")); got != before+1 {
		t.Fatalf("relay ok counter = %v, want %v", got, before+1)
	}

	Submissions.WithLabelValues("order", "none").Inc()
	if n := testutil.CollectAndCount(Submissions); n < 1 {
		t.Fatalf("expected at least one submissions series, got %d", n)
	}
}
