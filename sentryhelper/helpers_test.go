package sentryhelper

import (
	"context"
	"testing"

	sentry "github.com/getsentry/sentry-go"
)

func TestHubFromContext(t *testing.T) {
	stored := sentry.NewHub(nil, sentry.NewScope())
	ginHub := sentry.NewHub(nil, sentry.NewScope())

	tests := []struct {
		name string
		ctx  context.Context
		want *sentry.Hub
	}{
		{"nil context", nil, sentry.CurrentHub()},
		{"empty context", context.Background(), sentry.CurrentHub()},
		{"stored hub", WithHub(context.Background(), stored), stored},
		{"sentry-go hub", sentry.SetHubOnContext(context.Background(), ginHub), ginHub},
		{"stored wins", WithHub(sentry.SetHubOnContext(context.Background(), ginHub), stored), stored},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HubFromContext(tt.ctx); got != tt.want {
				t.Errorf("HubFromContext() = %p; want %p", got, tt.want)
			}
		})
	}
}

func TestStartSpanSetsDescription(t *testing.T) {
	span := StartSpan(context.Background(), "lyrics.fetch", "PageScrapeSource")
	defer span.Finish()

	if span.Op != "lyrics.fetch" {
		t.Errorf("Op = %q", span.Op)
	}
	if span.Description != "PageScrapeSource" {
		t.Errorf("Description = %q", span.Description)
	}
}

func TestBreadcrumbsStayOnRequestHub(t *testing.T) {
	hub := sentry.NewHub(nil, sentry.NewScope())
	ctx := WithHub(context.Background(), hub)

	// without a client the hub drops breadcrumbs; this only verifies no panic
	// and that the global hub is left alone.
	AddBreadcrumb(ctx, "lyrics", "miss", map[string]interface{}{"source": "DirectLookupSource"})
	SetTag(ctx, "query", "yesterday")
}
