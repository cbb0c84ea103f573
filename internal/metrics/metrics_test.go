package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSignInsCounter(t *testing.T) {
	before := testutil.ToFloat64(SignIns.WithLabelValues("succeeded"))
	SignIns.WithLabelValues("succeeded").Inc()
	if got := testutil.ToFloat64(SignIns.WithLabelValues("succeeded")); got != before+1 {
		t.Fatalf("expected counter to increase by one, got %v -> %v", before, got)
	}
}

func TestHandler_ExposesCollectors(t *testing.T) {
	HTTPRequests.WithLabelValues("Home/Index", "GET", "200").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "lingo_http_requests_total") {
		t.Fatalf("expected lingo_http_requests_total in output")
	}
}

func TestMethodLabel(t *testing.T) {
	for in, want := range map[string]string{
		"GET":     "GET",
		"HEAD":    "HEAD",
		"POST":    "POST",
		"PUT":     "PUT",
		"PATCH":   "PATCH",
		"DELETE":  "DELETE",
		"OPTIONS": "OPTIONS",
		"get":     "other",
		"TRACE":   "other",
		"JUNK42":  "other",
		"":        "other",
	} {
		if got := MethodLabel(in); got != want {
			t.Errorf("MethodLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
