// Package pipeline turns a free-text query into a ResolutionResult: one
// catalog lookup followed by the lyrics sources in priority order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"

	"lyricsfinder/genius"
	"lyricsfinder/helpers"
	"lyricsfinder/lyrics"
	"lyricsfinder/metrics"
	"lyricsfinder/models"
	"lyricsfinder/sentryhelper"
)

// ErrEmptyQuery is returned before any upstream call when the query is blank.
var ErrEmptyQuery = errors.New("query parameter 'q' is required")

// SourceError is an unexpected failure inside a lyrics source. Unlike a miss
// it stops the pipeline.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("lyrics source %s failed: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

type MetadataResolver interface {
	Resolve(ctx context.Context, query string) (*models.TrackMetadata, error)
}

type Phase int

const (
	PhaseStart Phase = iota
	PhaseMetadataResolved
	PhaseLyricsResolving
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "Start"
	case PhaseMetadataResolved:
		return "MetadataResolved"
	case PhaseLyricsResolving:
		return "LyricsResolving"
	case PhaseDone:
		return "Done"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Step is one visited state. Variant is the 1-based source position for
// PhaseLyricsResolving and 0 otherwise.
type Step struct {
	Phase   Phase
	Variant int
}

func (s Step) String() string {
	if s.Phase == PhaseLyricsResolving {
		return fmt.Sprintf("%s(%d)", s.Phase, s.Variant)
	}
	return s.Phase.String()
}

// Outcome is the terminal state of one run. Metadata is nil when the catalog
// had no match. Lyrics points into Attempts at the winning attempt, if any.
type Outcome struct {
	Query    string
	Steps    []Step
	Metadata *models.TrackMetadata
	Attempts []models.AttemptResult
	Lyrics   *models.AttemptResult
}

func (o *Outcome) enter(phase Phase, variant int) {
	o.Steps = append(o.Steps, Step{Phase: phase, Variant: variant})
}

type Pipeline struct {
	resolver MetadataResolver
	sources  []lyrics.Source
	metrics  *metrics.Metrics
}

// New builds a pipeline that tries sources in the given order.
func New(resolver MetadataResolver, sources []lyrics.Source, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		resolver: resolver,
		sources:  append([]lyrics.Source(nil), sources...),
		metrics:  m,
	}
}

// Resolve runs the pipeline and normalizes its terminal state.
func (p *Pipeline) Resolve(ctx context.Context, query string) (models.ResolutionResult, error) {
	outcome, err := p.Run(ctx, query)
	if err != nil {
		return models.ResolutionResult{}, err
	}

	result := Normalize(outcome)
	switch {
	case !result.Found:
		p.metrics.ObserveResolution(metrics.OutcomeNotFound)
	case result.Lyrics != nil:
		p.metrics.ObserveResolution(metrics.OutcomeLyrics)
	default:
		p.metrics.ObserveResolution(metrics.OutcomeFallbackURL)
	}
	return result, nil
}

// Run walks Start, MetadataResolved, one LyricsResolving step per source
// tried, and Done. Sources run one at a time and the first hit ends the walk.
// A catalog miss is not an error; the returned Outcome then has no Metadata.
func (p *Pipeline) Run(ctx context.Context, query string) (outcome Outcome, err error) {
	logger := log.WithFields(log.Fields{"module": "pipeline", "request_id": helpers.RequestID(ctx)})

	outcome = Outcome{Query: strings.TrimSpace(query)}
	outcome.enter(PhaseStart, 0)
	defer outcome.enter(PhaseDone, 0)

	if outcome.Query == "" {
		return outcome, ErrEmptyQuery
	}

	span := sentryhelper.StartSpan(ctx, "pipeline.resolve", "Resolve lyrics for query")
	span.SetTag("query", outcome.Query)
	defer span.Finish()
	ctx = span.Context()

	meta, err := p.resolver.Resolve(ctx, outcome.Query)
	if errors.Is(err, genius.ErrNotFound) {
		logger.Infof("no catalog match for %q", outcome.Query)
		p.metrics.ObserveMetadata(metrics.OutcomeNotFound)
		span.Status = sentry.SpanStatusNotFound
		return outcome, nil
	}
	if err != nil {
		logger.Warnf("metadata lookup failed for %q: %v", outcome.Query, err)
		p.metrics.ObserveMetadata(metrics.OutcomeError)
		span.Status = sentry.SpanStatusUnavailable
		return outcome, err
	}
	if meta == nil {
		p.metrics.ObserveMetadata(metrics.OutcomeNotFound)
		span.Status = sentry.SpanStatusNotFound
		return outcome, nil
	}

	p.metrics.ObserveMetadata(metrics.OutcomeFound)
	outcome.Metadata = meta
	outcome.enter(PhaseMetadataResolved, 0)
	sentryhelper.AddBreadcrumb(ctx, "pipeline", "metadata resolved", map[string]interface{}{
		"song_id": meta.ExternalID,
		"title":   meta.Title,
		"artist":  meta.Artist,
	})

	for i, src := range p.sources {
		outcome.enter(PhaseLyricsResolving, i+1)

		attempt, err := p.attempt(ctx, src, *meta)
		if err != nil {
			logger.Errorf("aborting on %s: %v", src.Name(), err)
			span.Status = sentry.SpanStatusInternalError
			return outcome, &SourceError{Source: src.Name(), Err: err}
		}

		outcome.Attempts = append(outcome.Attempts, attempt)
		if attempt.Succeeded {
			outcome.Lyrics = &outcome.Attempts[len(outcome.Attempts)-1]
			logger.Infof("lyrics for '%s' by %s from %s", meta.Title, meta.Artist, src.Name())
			span.Status = sentry.SpanStatusOK
			return outcome, nil
		}
		logger.Debugf("%s missed '%s': %s", src.Name(), meta.Title, attempt.Reason)
		sentryhelper.AddBreadcrumb(ctx, "pipeline", "source missed", map[string]interface{}{
			"source": src.Name(),
			"reason": attempt.Reason,
		})
	}

	logger.Infof("no source had lyrics for '%s' by %s, falling back to %s", meta.Title, meta.Artist, meta.CanonicalURL)
	span.Status = sentry.SpanStatusOK
	return outcome, nil
}

// attempt calls one source. A panic is turned into an error so it aborts the
// request instead of the process.
func (p *Pipeline) attempt(ctx context.Context, src lyrics.Source, meta models.TrackMetadata) (result models.AttemptResult, err error) {
	span := sentryhelper.StartSpan(ctx, "lyrics.source", src.Name())
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		switch {
		case err != nil:
			span.Status = sentry.SpanStatusInternalError
		case result.Succeeded:
			p.metrics.ObserveSource(src.Name(), true, time.Since(started))
			span.Status = sentry.SpanStatusOK
		default:
			p.metrics.ObserveSource(src.Name(), false, time.Since(started))
			span.Status = sentry.SpanStatusNotFound
		}
		span.Finish()
	}()

	result, err = src.Fetch(span.Context(), meta)
	if err != nil {
		return result, err
	}
	if result.SourceName == "" {
		result.SourceName = src.Name()
	}
	if result.Succeeded && (result.Text == nil || strings.TrimSpace(*result.Text) == "") {
		result = models.Miss(src.Name(), "hit without text")
	}
	return result, nil
}
