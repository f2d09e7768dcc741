// Package sentryhelper provides utilities for Sentry hub and span management.
// It keeps breadcrumbs and tags isolated to the request that produced them.
package sentryhelper

import (
	"context"

	sentry "github.com/getsentry/sentry-go"
)

// contextKey is used to store a cloned hub in context
type contextKey string

const hubContextKey contextKey = "sentry_hub"

// WithHub returns a context carrying hub. Used when no sentrygin middleware
// has attached one (tests, background callers).
func WithHub(ctx context.Context, hub *sentry.Hub) context.Context {
	return context.WithValue(ctx, hubContextKey, hub)
}

// HubFromContext retrieves the hub for the current request.
// Lookup order: hub stored by WithHub, hub stored by sentrygin, CurrentHub.
func HubFromContext(ctx context.Context) *sentry.Hub {
	if ctx == nil {
		return sentry.CurrentHub()
	}
	if hub, ok := ctx.Value(hubContextKey).(*sentry.Hub); ok && hub != nil {
		return hub
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

// AddBreadcrumb adds a breadcrumb to the hub in context.
func AddBreadcrumb(ctx context.Context, category, message string, data map[string]interface{}) {
	hub := HubFromContext(ctx)
	hub.AddBreadcrumb(&sentry.Breadcrumb{
		Category: category,
		Message:  message,
		Data:     data,
		Level:    sentry.LevelInfo,
	}, nil)
}

// CaptureException captures an exception on the hub in context.
func CaptureException(ctx context.Context, err error) *sentry.EventID {
	hub := HubFromContext(ctx)
	return hub.CaptureException(err)
}

// SetTag sets a tag on the scope of the hub in context.
func SetTag(ctx context.Context, key, value string) {
	HubFromContext(ctx).ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag(key, value)
	})
}

// StartSpan starts a child span attached to the transaction in context.
// If no transaction exists in context, sentry creates a new one.
func StartSpan(ctx context.Context, operation, description string) *sentry.Span {
	span := sentry.StartSpan(ctx, operation)
	span.Description = description
	return span
}
