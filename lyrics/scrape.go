package lyrics

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"

	"lyricsfinder/helpers"
	"lyricsfinder/models"
)

const lyricsContainerSelector = `[data-lyrics-container="true"]`

// PageScrapeSource downloads the canonical lyrics page with browser headers
// and reads every lyrics container on it.
type PageScrapeSource struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

func NewPageScrapeSource(timeout time.Duration, userAgent string, hc *http.Client) *PageScrapeSource {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PageScrapeSource{
		httpClient: orDefault(hc),
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

func (s *PageScrapeSource) Name() string { return PageScrapeName }

func (s *PageScrapeSource) Fetch(ctx context.Context, meta models.TrackMetadata) (models.AttemptResult, error) {
	logger := log.WithFields(log.Fields{
		"module":     "lyrics",
		"source":     s.Name(),
		"request_id": helpers.RequestID(ctx),
	})

	if meta.CanonicalURL == "" {
		return models.Miss(s.Name(), "no canonical url"), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// the url comes from the catalog, so a malformed one is a miss
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.CanonicalURL, nil)
	if err != nil {
		logger.Debugf("unusable canonical url %q: %v", meta.CanonicalURL, err)
		return models.Miss(s.Name(), fmt.Sprintf("invalid canonical url: %v", err)), nil
	}
	helpers.SetBrowserHeaders(req, s.userAgent)

	logger.Tracef("fetching lyrics page: %s", meta.CanonicalURL)
	body, reason := download(s.httpClient, req)
	if reason != "" {
		return models.Miss(s.Name(), reason), nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return models.Miss(s.Name(), fmt.Sprintf("failed to parse HTML: %v", err)), nil
	}

	text := extractContainers(doc)
	if text == "" {
		// layout drift or a silent redirect to a block page
		return models.Miss(s.Name(), "no lyrics containers on page"), nil
	}
	return models.Hit(s.Name(), text), nil
}

// extractContainers joins the text of every lyrics container with a blank line.
func extractContainers(doc *goquery.Document) string {
	var parts []string
	doc.Find(lyricsContainerSelector).Each(func(_ int, container *goquery.Selection) {
		if text := selectionText(container); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n\n")
}
