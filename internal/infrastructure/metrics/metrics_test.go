package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAreExposed(t *testing.T) {
	m := New()
	m.AccessDecisions.WithLabelValues("approved").Inc()
	m.AccessDecisions.WithLabelValues("approved").Inc()
	m.StatusPolls.Inc()

	if got := testutil.ToFloat64(m.AccessDecisions.WithLabelValues("approved")); got != 2 {
		t.Fatalf("expected 2 approvals, got %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `aquasense_access_decisions_total{outcome="approved"} 2`) {
		t.Fatalf("metrics output missing decision counter:\n%s", body)
	}
	if !strings.Contains(string(body), "aquasense_user_status_polls_total 1") {
		t.Fatalf("metrics output missing poll counter")
	}
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.StatusPolls.Inc()
	if got := testutil.ToFloat64(b.StatusPolls); got != 0 {
		t.Fatalf("expected independent registries, got %v", got)
	}
}
