package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"lyricsfinder/helpers"
	"lyricsfinder/models"
)

type lrclibRecord struct {
	ID           int    `json:"id"`
	TrackName    string `json:"trackName"`
	ArtistName   string `json:"artistName"`
	AlbumName    string `json:"albumName"`
	Instrumental bool   `json:"instrumental"`
	PlainLyrics  string `json:"plainLyrics"`
	SyncedLyrics string `json:"syncedLyrics"`
}

// DirectLookupSource asks the open LRCLIB database for an exact
// (artist, track) match. No credential is needed.
type DirectLookupSource struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
}

func NewDirectLookupSource(baseURL string, timeout time.Duration, hc *http.Client) *DirectLookupSource {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DirectLookupSource{
		httpClient: orDefault(hc),
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
	}
}

func (s *DirectLookupSource) Name() string { return DirectLookupName }

func (s *DirectLookupSource) Fetch(ctx context.Context, meta models.TrackMetadata) (models.AttemptResult, error) {
	logger := log.WithFields(log.Fields{
		"module":     "lyrics",
		"source":     s.Name(),
		"request_id": helpers.RequestID(ctx),
	})

	if meta.Title == "" || meta.Artist == "" {
		return models.Miss(s.Name(), "title or artist missing"), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("artist_name", meta.Artist)
	params.Set("track_name", meta.Title)
	u := fmt.Sprintf("%s/get?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.AttemptResult{}, fmt.Errorf("failed to create lrclib request: %w", err)
	}
	req.Header.Set("User-Agent", "lyricsfinder/1.0")
	req.Header.Set("Accept", "application/json")

	logger.Tracef("looking up '%s' by %s", meta.Title, meta.Artist)
	body, reason := download(s.httpClient, req)
	if reason != "" {
		return models.Miss(s.Name(), reason), nil
	}

	var record lrclibRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return models.Miss(s.Name(), fmt.Sprintf("failed to decode response: %v", err)), nil
	}

	// plain text wins; synced text carries timestamp markup
	if strings.TrimSpace(record.PlainLyrics) != "" {
		return models.Hit(s.Name(), record.PlainLyrics), nil
	}
	if record.SyncedLyrics != "" {
		if text := stripTimestamps(record.SyncedLyrics); text != "" {
			logger.Debugf("only synced lyrics for '%s', stripped timestamps", meta.Title)
			return models.Hit(s.Name(), text), nil
		}
	}
	if record.Instrumental {
		return models.Miss(s.Name(), "track is instrumental"), nil
	}
	return models.Miss(s.Name(), "record has no lyrics"), nil
}
