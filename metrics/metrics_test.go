package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveSource(t *testing.T) {
	m := New()
	m.ObserveSource("DirectLookupSource", false, 10*time.Millisecond)
	m.ObserveSource("PageScrapeSource", true, 200*time.Millisecond)
	m.ObserveSource("PageScrapeSource", true, 300*time.Millisecond)

	tests := []struct {
		source  string
		outcome string
		want    float64
	}{
		{"DirectLookupSource", OutcomeMiss, 1},
		{"DirectLookupSource", OutcomeHit, 0},
		{"PageScrapeSource", OutcomeHit, 2},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(m.SourceAttempts.WithLabelValues(tt.source, tt.outcome))
		if got != tt.want {
			t.Errorf("%s/%s = %v; want %v", tt.source, tt.outcome, got, tt.want)
		}
	}
}

func TestObserveMetadataAndResolution(t *testing.T) {
	m := New()
	m.ObserveMetadata(OutcomeFound)
	m.ObserveMetadata(OutcomeNotFound)
	m.ObserveMetadata(OutcomeFound)
	m.ObserveResolution(OutcomeFallbackURL)

	if got := testutil.ToFloat64(m.MetadataRequests.WithLabelValues(OutcomeFound)); got != 2 {
		t.Errorf("found = %v; want 2", got)
	}
	if got := testutil.ToFloat64(m.Resolutions.WithLabelValues(OutcomeFallbackURL)); got != 1 {
		t.Errorf("fallback_url = %v; want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveMetadata(OutcomeError)
	m.ObserveSource("x", true, time.Second)
	m.ObserveResolution(OutcomeLyrics)
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.ObserveResolution(OutcomeLyrics)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `lyricsfinder_resolutions_total{outcome="lyrics"} 1`) {
		t.Errorf("metrics output missing resolution counter:\n%s", body)
	}
}
