// Package format prepares text for Telegram's legacy Markdown parse mode.
package format

import (
	"strings"
	"unicode/utf8"
)

// MaxMessage is the Telegram cap on message text, in characters.
const MaxMessage = 4096

// legacy Markdown has four markers; '[' opens a link.
var mdEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

// MD escapes user supplied text for Markdown messages.
func MD(text string) string {
	return mdEscaper.Replace(text)
}

// SplitMessage cuts text into chunks of at most limit runes. Chunks end on
// line breaks where possible; a single line longer than limit is cut hard.
// Joining the chunks gives back text.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var chunks []string
	var cur strings.Builder
	n := 0
	emit := func() {
		if n > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			n = 0
		}
	}
	for line := range strings.Lines(text) {
		ln := utf8.RuneCountInString(line)
		if n+ln > limit {
			emit()
		}
		for ln > limit {
			cut := byteOffset(line, limit)
			chunks = append(chunks, line[:cut])
			line, ln = line[cut:], ln-limit
		}
		cur.WriteString(line)
		n += ln
	}
	emit()
	return chunks
}

// byteOffset is the byte index of rune number i in s.
func byteOffset(s string, i int) int {
	for off := range s {
		if i == 0 {
			return off
		}
		i--
	}
	return len(s)
}
