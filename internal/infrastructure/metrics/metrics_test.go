package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.RequestReceived(KindLookup)
	m.RequestReceived(KindLookup)
	m.RequestReceived(KindUpdate)
	m.RequestDropped(DropUpstream)
	m.ReplyPublished()
	m.MoodUpdated("Happy")
	m.PersistFailed()
	m.ObserveUpstream(120*time.Millisecond, true)
	m.ObserveHTTP("get", "/api/v1/moods", http.StatusOK, 2*time.Millisecond)
	m.ObserveHTTP("GET", "", http.StatusNotFound, time.Millisecond)

	out := scrape(t, m)

	for _, want := range []string{
		`moodcast_gateway_requests_total{kind="lookup"} 2`,
		`moodcast_gateway_requests_total{kind="update"} 1`,
		`moodcast_gateway_requests_dropped_total{reason="upstream"} 1`,
		`moodcast_gateway_replies_published_total 1`,
		`moodcast_moodstore_updates_total{mood="Happy"} 1`,
		`moodcast_moodstore_persist_failures_total 1`,
		`moodcast_weather_request_duration_seconds_count{success="true"} 1`,
		`moodcast_http_requests_total{method="GET",route="/api/v1/moods",status="200"} 1`,
		`moodcast_http_requests_total{method="GET",route="unmatched",status="404"} 1`,
		`go_goroutines`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.ReplyPublished()

	if !strings.Contains(scrape(t, b), "moodcast_gateway_replies_published_total 0") {
		t.Error("second registry saw the first registry's counter")
	}
}
