package lyrics

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	blankRuns      = regexp.MustCompile(`\n{3,}`)
	lrcTimestamp   = regexp.MustCompile(`\[\d+:\d{2}(?:[.:]\d{1,3})?\]`)
	lrcTag         = regexp.MustCompile(`^\[[a-z]+:[^\]]*\]$`)
	sourceNewlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")
)

// paragraph elements end a stanza, line elements only end a line
var (
	paragraphElements = map[string]bool{"p": true}
	lineElements      = map[string]bool{"div": true, "li": true, "h1": true, "h2": true, "h3": true}
)

// selectionText flattens s into plain lyric text. <br> becomes a newline,
// links and inline markup are reduced to their visible text, and elements
// flagged with data-exclude-from-selection are skipped.
func selectionText(s *goquery.Selection) string {
	var b strings.Builder
	writeText(&b, s)
	return normalizeText(b.String())
}

func writeText(b *strings.Builder, s *goquery.Selection) {
	s.Contents().Each(func(_ int, node *goquery.Selection) {
		name := goquery.NodeName(node)
		switch name {
		case "#text":
			b.WriteString(sourceNewlines.Replace(node.Text()))
		case "br":
			b.WriteByte('\n')
		case "script", "style", "#comment":
		default:
			if _, excluded := node.Attr("data-exclude-from-selection"); excluded {
				return
			}
			if lineElements[name] || paragraphElements[name] {
				endLine(b)
			}
			writeText(b, node)
			if lineElements[name] {
				endLine(b)
			}
			if paragraphElements[name] {
				endLine(b)
				b.WriteByte('\n')
			}
		}
	})
}

func endLine(b *strings.Builder) {
	if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteByte('\n')
	}
}

// normalizeText trims every line, keeps at most one blank line between
// stanzas and trims the whole text.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// stripTimestamps turns LRC synced text into plain lines, dropping ID tags
// such as [ar:Artist].
func stripTimestamps(synced string) string {
	var lines []string
	for _, line := range strings.Split(synced, "\n") {
		line = strings.TrimSpace(line)
		if lrcTag.MatchString(line) {
			continue
		}
		lines = append(lines, strings.TrimSpace(lrcTimestamp.ReplaceAllString(line, "")))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
