package genius

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"lyricsfinder/models"
	"lyricsfinder/sentryhelper"
)

var (
	// ErrNotFound means the catalog returned zero hits. It is a valid outcome.
	ErrNotFound = errors.New("song not found")
	// ErrUnauthorized means the catalog rejected the access token.
	ErrUnauthorized = errors.New("catalog rejected the access token")
)

// UpstreamError is any other catalog failure: transport, non-2xx status or a
// body that does not have the expected shape. StatusCode is 0 for transport
// and decode failures.
type UpstreamError struct {
	StatusCode int
	Detail     string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("genius search failed with status %d: %s", e.StatusCode, e.Detail)
	}
	return "genius search failed: " + e.Detail
}

type Options struct {
	AccessToken string
	APIBaseURL  string
	Timeout     time.Duration
}

// Client resolves free-text queries into track metadata using the catalog's
// search endpoint. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
}

type searchResponse struct {
	Response *struct {
		Hits []hit `json:"hits"`
	} `json:"response"`
}

type hit struct {
	Result song `json:"result"`
}

type song struct {
	ID              json.Number `json:"id"`
	Title           string      `json:"title"`
	URL             string      `json:"url"`
	SongArtImageURL string      `json:"song_art_image_url"`
	PrimaryArtist   struct {
		Name string `json:"name"`
	} `json:"primary_artist"`
}

// NewClient wraps base with a transport that adds the bearer credential to
// every request. base is reused, not copied.
func NewClient(opts Options, base *http.Client) *Client {
	if base == nil {
		base = http.DefaultClient
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.AccessToken, TokenType: "Bearer"})

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		httpClient: oauth2.NewClient(ctx, src),
		baseURL:    strings.TrimRight(opts.APIBaseURL, "/"),
		timeout:    timeout,
	}
}

// Resolve returns the first (highest-ranked) hit for query. Hits are never
// re-ranked. A single attempt is made; failures are not retried.
func (c *Client) Resolve(ctx context.Context, query string) (*models.TrackMetadata, error) {
	logger := log.WithFields(log.Fields{"module": "genius", "function": "Resolve"})

	span := sentryhelper.StartSpan(ctx, "genius.search", "Search Genius API")
	span.SetTag("query", query)
	defer span.Finish()

	ctx, cancel := context.WithTimeout(span.Context(), c.timeout)
	defer cancel()

	searchURL := fmt.Sprintf("%s/search?%s", c.baseURL, url.Values{"q": {query}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return nil, &UpstreamError{Detail: fmt.Sprintf("failed to create request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")

	logger.Tracef("searching genius: %s", query)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.Status = sentry.SpanStatusUnavailable
		return nil, &UpstreamError{Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		span.Status = sentry.SpanStatusUnauthenticated
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		span.Status = sentry.SpanStatusInternalError
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Detail: detailFrom(resp.Status, body)}
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		span.Status = sentry.SpanStatusInternalError
		return nil, &UpstreamError{Detail: fmt.Sprintf("failed to decode response: %v", err)}
	}
	if parsed.Response == nil {
		span.Status = sentry.SpanStatusInternalError
		return nil, &UpstreamError{Detail: "response body has no \"response\" object"}
	}

	if len(parsed.Response.Hits) == 0 {
		logger.Debugf("no hits for %q", query)
		span.Status = sentry.SpanStatusNotFound
		return nil, ErrNotFound
	}

	meta := toMetadata(parsed.Response.Hits[0].Result)
	logger.Debugf("resolved %q to '%s' by %s (id=%s)", query, meta.Title, meta.Artist, meta.ExternalID)
	span.Status = sentry.SpanStatusOK
	span.SetData("song_id", meta.ExternalID)
	return meta, nil
}

func toMetadata(s song) *models.TrackMetadata {
	meta := &models.TrackMetadata{
		ExternalID:   s.ID.String(),
		Title:        s.Title,
		Artist:       s.PrimaryArtist.Name,
		CanonicalURL: s.URL,
	}
	if s.SongArtImageURL != "" {
		art := s.SongArtImageURL
		meta.ArtworkURL = &art
	}
	return meta
}

func detailFrom(status string, body []byte) string {
	var apiErr struct {
		Meta struct {
			Message string `json:"message"`
		} `json:"meta"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil {
		switch {
		case apiErr.Meta.Message != "":
			return apiErr.Meta.Message
		case apiErr.ErrorDescription != "":
			return apiErr.ErrorDescription
		case apiErr.Error != "":
			return apiErr.Error
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return status + ": " + text
	}
	return status
}
