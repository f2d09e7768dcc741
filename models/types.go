package models

import "encoding/json"

// TrackMetadata is the catalog's view of a song. It is produced once per
// request and never mutated afterwards.
type TrackMetadata struct {
	ExternalID   string
	Title        string
	Artist       string
	CanonicalURL string
	ArtworkURL   *string
}

// AttemptResult is the outcome of one lyrics source. Reason is only set on a
// miss and is meant for logs and metrics.
type AttemptResult struct {
	SourceName string
	Text       *string
	Succeeded  bool
	Reason     string
}

func Hit(source, text string) AttemptResult {
	return AttemptResult{SourceName: source, Text: &text, Succeeded: true}
}

func Miss(source, reason string) AttemptResult {
	return AttemptResult{SourceName: source, Reason: reason}
}

// ResolutionResult is the only value that leaves the service. Exactly one of
// Lyrics, FallbackURL or Found=false holds.
type ResolutionResult struct {
	Found            bool
	Metadata         *TrackMetadata
	Lyrics           *string
	LyricsSourceName *string
	FallbackURL      *string
}

const NotFoundMessage = "Song not found"

type notFoundResponse struct {
	Found   bool   `json:"found"`
	Message string `json:"message"`
}

type lyricsResponse struct {
	Found    bool    `json:"found"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Lyrics   string  `json:"lyrics"`
	ImageURL *string `json:"image_url"`
	Source   string  `json:"source"`
}

type fallbackResponse struct {
	Found       bool    `json:"found"`
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Lyrics      *string `json:"lyrics"`
	FallbackURL string  `json:"fallback_url"`
	ImageURL    *string `json:"image_url"`
}

// MarshalJSON renders the public /search response body.
func (r ResolutionResult) MarshalJSON() ([]byte, error) {
	if !r.Found || r.Metadata == nil {
		return json.Marshal(notFoundResponse{Found: false, Message: NotFoundMessage})
	}

	if r.Lyrics != nil {
		source := ""
		if r.LyricsSourceName != nil {
			source = *r.LyricsSourceName
		}
		return json.Marshal(lyricsResponse{
			Found:    true,
			Title:    r.Metadata.Title,
			Artist:   r.Metadata.Artist,
			Lyrics:   *r.Lyrics,
			ImageURL: r.Metadata.ArtworkURL,
			Source:   source,
		})
	}

	fallback := r.Metadata.CanonicalURL
	if r.FallbackURL != nil {
		fallback = *r.FallbackURL
	}
	return json.Marshal(fallbackResponse{
		Found:       true,
		Title:       r.Metadata.Title,
		Artist:      r.Metadata.Artist,
		FallbackURL: fallback,
		ImageURL:    r.Metadata.ArtworkURL,
	})
}
