package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"lyricsfinder/genius"
	"lyricsfinder/helpers"
	"lyricsfinder/models"
	"lyricsfinder/pipeline"
)

type fakeResolver struct {
	result    models.ResolutionResult
	err       error
	query     string
	requestID string
}

func (f *fakeResolver) Resolve(ctx context.Context, query string) (models.ResolutionResult, error) {
	f.query = query
	f.requestID = helpers.RequestID(ctx)
	return f.result, f.err
}

var fakeMetrics = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("# metrics\n"))
})

func newRouter(resolver Resolver, metricsHandler http.Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	NewManager(resolver, metricsHandler).Register(router)
	return router
}

func serve(router http.Handler, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestStatus(t *testing.T) {
	rec := serve(newRouter(&fakeResolver{}, fakeMetrics), "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); body != `{"status":"Lyrics Service is running"}` {
		t.Errorf("body = %s", body)
	}
}

func TestSearchSuccess(t *testing.T) {
	text := "Yesterday...\nAll my troubles..."
	source := "DirectLookupSource"
	resolver := &fakeResolver{result: models.ResolutionResult{
		Found:            true,
		Metadata:         &models.TrackMetadata{ExternalID: "123", Title: "Yesterday", Artist: "The Beatles"},
		Lyrics:           &text,
		LyricsSourceName: &source,
	}}

	rec := serve(newRouter(resolver, fakeMetrics), "/search?q=Yesterday+Beatles", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body)
	}
	if resolver.query != "Yesterday Beatles" {
		t.Errorf("query = %q", resolver.query)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got["found"] != true || got["lyrics"] != text || got["source"] != source {
		t.Errorf("body = %v", got)
	}
}

func TestSearchNotFoundIsOK(t *testing.T) {
	rec := serve(newRouter(&fakeResolver{}, fakeMetrics), "/search?q=zzzz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); body != `{"found":false,"message":"Song not found"}` {
		t.Errorf("body = %s", body)
	}
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"empty query", pipeline.ErrEmptyQuery, http.StatusBadRequest, "Query parameter 'q' is required"},
		{"bad token", genius.ErrUnauthorized, http.StatusUnauthorized, "Invalid Genius access token"},
		{
			"upstream",
			&genius.UpstreamError{StatusCode: 503, Detail: "Service Unavailable"},
			http.StatusInternalServerError,
			"genius search failed with status 503: Service Unavailable",
		},
		{
			"source abort",
			&pipeline.SourceError{Source: "PageScrapeSource", Err: errors.New("panic: boom")},
			http.StatusInternalServerError,
			"lyrics source PageScrapeSource failed: panic: boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newRouter(&fakeResolver{err: tt.err}, fakeMetrics), "/search?q=x", nil)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d; want %d", rec.Code, tt.wantStatus)
			}
			var body struct {
				Detail string `json:"detail"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if body.Detail != tt.wantDetail {
				t.Errorf("detail = %q; want %q", body.Detail, tt.wantDetail)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	t.Run("generated", func(t *testing.T) {
		resolver := &fakeResolver{}
		rec := serve(newRouter(resolver, fakeMetrics), "/search?q=x", nil)
		id := rec.Header().Get(RequestIDHeader)
		if len(id) != 36 {
			t.Errorf("%s = %q; want a uuid", RequestIDHeader, id)
		}
		if resolver.requestID != id {
			t.Errorf("context request id = %q; want %q", resolver.requestID, id)
		}
	})

	t.Run("honoured", func(t *testing.T) {
		resolver := &fakeResolver{}
		rec := serve(newRouter(resolver, fakeMetrics), "/search?q=x", http.Header{RequestIDHeader: {"abc-123"}})
		if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
			t.Errorf("%s = %q; want abc-123", RequestIDHeader, got)
		}
		if resolver.requestID != "abc-123" {
			t.Errorf("context request id = %q", resolver.requestID)
		}
	})
}

func TestMetricsRoute(t *testing.T) {
	rec := serve(newRouter(&fakeResolver{}, fakeMetrics), "/metrics", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "# metrics\n" {
		t.Errorf("GET /metrics = %d %q", rec.Code, rec.Body)
	}
}
