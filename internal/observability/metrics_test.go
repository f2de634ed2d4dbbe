package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("/api/users", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/api/users", "GET", 200, 20*time.Millisecond)
	m.RecordError("/api/users/:id", "DELETE", "NOT_FOUND")
	m.RecordPage("storage", 6)
	m.RecordPage("cache", 6)
	m.RecordMutation("create", nil)
	m.RecordMutation("create", errors.New("dup"))

	if got := testutil.ToFloat64(m.requestCount.WithLabelValues("GET", "/api/users", "200")); got != 2 {
		t.Errorf("requests_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.errorCount.WithLabelValues("DELETE", "/api/users/:id", "NOT_FOUND")); got != 1 {
		t.Errorf("errors_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.pageQueries.WithLabelValues("cache")); got != 1 {
		t.Errorf("page_queries_total{cache} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.mutations.WithLabelValues("create", "error")); got != 1 {
		t.Errorf("mutations_total{create,error} = %v, want 1", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	m.RecordPage("storage", 1)
	m.RecordMutation("delete", nil)
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.RecordPage("storage", 3)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "user_directory_users_page_queries_total") {
		t.Error("exposition is missing page_queries_total")
	}
}
