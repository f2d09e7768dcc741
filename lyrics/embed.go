package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf16"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"

	"lyricsfinder/helpers"
	"lyricsfinder/models"
)

// embedBlob matches the single-quoted string handed to JSON.parse in the
// embed script.
var embedBlob = regexp.MustCompile(`(?s)JSON\.parse\(\s*'((?:[^'\\]|\\.)*)'\s*\)`)

// EmbedBypassSource reads the third-party embed script for a song, which is
// served with far less bot protection than the lyrics page.
type EmbedBypassSource struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	timeout    time.Duration
}

func NewEmbedBypassSource(webBaseURL string, timeout time.Duration, userAgent string, hc *http.Client) *EmbedBypassSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &EmbedBypassSource{
		httpClient: orDefault(hc),
		baseURL:    strings.TrimRight(webBaseURL, "/"),
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

func (s *EmbedBypassSource) Name() string { return EmbedBypassName }

func (s *EmbedBypassSource) Fetch(ctx context.Context, meta models.TrackMetadata) (models.AttemptResult, error) {
	logger := log.WithFields(log.Fields{
		"module":     "lyrics",
		"source":     s.Name(),
		"request_id": helpers.RequestID(ctx),
	})

	if meta.ExternalID == "" {
		return models.Miss(s.Name(), "no song id"), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	embedURL := fmt.Sprintf("%s/songs/%s/embed.js", s.baseURL, url.PathEscape(meta.ExternalID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, embedURL, nil)
	if err != nil {
		return models.AttemptResult{}, fmt.Errorf("failed to create embed request: %w", err)
	}
	helpers.SetBrowserHeaders(req, s.userAgent)
	req.Header.Set("Accept", "*/*")

	logger.Tracef("fetching embed script: %s", embedURL)
	body, reason := download(s.httpClient, req)
	if reason != "" {
		return models.Miss(s.Name(), reason), nil
	}

	text, err := extractEmbedLyrics(string(body))
	if err != nil {
		return models.Miss(s.Name(), err.Error()), nil
	}
	return models.Hit(s.Name(), text), nil
}

// extractEmbedLyrics finds the serialized blob in an embed script and returns
// its lyrics as plain text.
func extractEmbedLyrics(script string) (string, error) {
	matches := embedBlob.FindAllStringSubmatch(script, -1)
	if len(matches) == 0 {
		return "", errors.New("no embedded data in script")
	}

	for _, match := range matches {
		decoded, err := unquoteJS(match[1])
		if err != nil {
			log.WithField("module", "lyrics").Tracef("skipping undecodable embed blob: %v", err)
			continue
		}
		fragment, whole := lyricsFragment(decoded)
		if fragment == "" {
			continue
		}
		if text := fragmentText(fragment, whole); text != "" {
			return text, nil
		}
	}
	return "", errors.New("embedded data has no lyrics")
}

// lyricsFragment returns the HTML inside a decoded blob. A JSON object blob
// carries it under lyrics_html and the whole fragment is lyrics. A JSON string
// blob or bare HTML needs the embed body located first.
func lyricsFragment(decoded string) (string, bool) {
	trimmed := strings.TrimSpace(decoded)
	if strings.HasPrefix(trimmed, `"`) {
		var html string
		if err := json.Unmarshal([]byte(trimmed), &html); err != nil {
			// inner quotes already unescaped by the JS literal
			if len(trimmed) < 2 || !strings.HasSuffix(trimmed, `"`) {
				return "", false
			}
			html = trimmed[1 : len(trimmed)-1]
		}
		return strings.TrimSpace(html), false
	}
	if strings.HasPrefix(trimmed, "{") {
		var payload struct {
			LyricsHTML string `json:"lyrics_html"`
		}
		if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
			return "", false
		}
		return payload.LyricsHTML, true
	}
	if strings.HasPrefix(trimmed, "<") {
		return trimmed, false
	}
	return "", false
}

func fragmentText(fragment string, whole bool) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	if body := doc.Find(".rg_embed_body"); body.Length() > 0 {
		return selectionText(body.First())
	}
	if !whole {
		return ""
	}
	return selectionText(doc.Find("body"))
}

// unquoteJS decodes the body of a single-quoted JavaScript string literal.
func unquoteJS(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", errors.New("dangling escape")
		}
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case 'x':
			if i+2 >= len(s) {
				return "", errors.New("short \\x escape")
			}
			n, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				return "", fmt.Errorf("bad \\x escape: %w", err)
			}
			b.WriteRune(rune(n))
			i += 2
		case 'u':
			r, width, err := decodeUnicodeEscape(s, i)
			if err != nil {
				return "", err
			}
			b.WriteRune(r)
			i += width
		case '\n':
			// line continuation
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String(), nil
}

// decodeUnicodeEscape reads the hex digits after the 'u' at s[i], joining
// UTF-16 surrogate pairs. It returns the rune and how many bytes past i it
// consumed.
func decodeUnicodeEscape(s string, i int) (rune, int, error) {
	if i+4 >= len(s) {
		return 0, 0, errors.New("short \\u escape")
	}
	hi, err := strconv.ParseUint(s[i+1:i+5], 16, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("bad \\u escape: %w", err)
	}
	r := rune(hi)
	if !utf16.IsSurrogate(r) {
		return r, 4, nil
	}
	if i+10 < len(s) && s[i+5] == '\\' && s[i+6] == 'u' {
		lo, err := strconv.ParseUint(s[i+7:i+11], 16, 16)
		if err == nil {
			if pair := utf16.DecodeRune(r, rune(lo)); pair != unicode.ReplacementChar {
				return pair, 10, nil
			}
		}
	}
	return unicode.ReplacementChar, 4, nil
}
