package pipeline

import "lyricsfinder/models"

// Normalize maps a terminal Outcome onto the public result. It performs no
// I/O and cannot fail.
func Normalize(o Outcome) models.ResolutionResult {
	if o.Metadata == nil {
		return models.ResolutionResult{Found: false}
	}

	meta := *o.Metadata
	result := models.ResolutionResult{Found: true, Metadata: &meta}

	if o.Lyrics != nil && o.Lyrics.Succeeded && o.Lyrics.Text != nil {
		text := *o.Lyrics.Text
		source := o.Lyrics.SourceName
		result.Lyrics = &text
		result.LyricsSourceName = &source
		return result
	}

	fallback := meta.CanonicalURL
	result.FallbackURL = &fallback
	return result
}
