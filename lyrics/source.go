// Package lyrics implements the lyric tiers. Each Source turns track metadata
// into plain lyric text using a different upstream and retrieval strategy.
//
// Expected failures (timeouts, blocks, non-2xx, parse misses) are reported as
// a miss with a nil error. A non-nil error means the source could not even
// attempt the request and the caller should stop.
package lyrics

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"lyricsfinder/models"
)

const (
	DirectLookupName = "DirectLookupSource"
	PageScrapeName   = "PageScrapeSource"
	EmbedBypassName  = "EmbedBypassSource"
)

const maxBodyBytes = 8 << 20

type Source interface {
	Name() string
	Fetch(ctx context.Context, meta models.TrackMetadata) (models.AttemptResult, error)
}

// download performs req and returns the body of a 200 response. Any other
// outcome is returned as a miss reason.
func download(hc *http.Client, req *http.Request) ([]byte, string) {
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Sprintf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Sprintf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Sprintf("failed to read body: %v", err)
	}
	if len(body) == 0 {
		return nil, "empty body"
	}
	return body, ""
}

func orDefault(hc *http.Client) *http.Client {
	if hc == nil {
		return http.DefaultClient
	}
	return hc
}
