// Package material prepares user supplied study text for prompts.
package material

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

var htmlTag = regexp.MustCompile(`(?i)<(p|div|br|h[1-6]|ul|ol|li|table|b|i|strong|em|span|a)\b[^>]*>`)

// Normalize converts pasted HTML to markdown, collapses blank runs and cuts
// the text to maxChars runes. maxChars <= 0 keeps everything.
func Normalize(text string, maxChars int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	if htmlTag.MatchString(text) {
		if md, err := htmltomarkdown.ConvertString(text); err == nil {
			text = strings.TrimSpace(md)
		}
	}

	text = collapseBlankLines(text)
	return Truncate(text, maxChars)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

var blankRun = regexp.MustCompile(`\n{3,}`)

func collapseBlankLines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return blankRun.ReplaceAllString(s, "\n\n")
}
