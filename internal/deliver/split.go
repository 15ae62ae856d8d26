package deliver

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"chandigest/internal/domain"
)

// Split breaks text into ordered chunks of at most maxLen bytes. Boundaries
// prefer the last newline inside the window, then the last whitespace; only a
// window with neither is cut mid-word. Split points never drop characters, so
// concatenating the chunks in order reproduces the input exactly. Empty input
// yields no chunks.
func Split(text string, maxLen int) []domain.Chunk {
	if text == "" || maxLen <= 0 {
		return nil
	}

	var chunks []domain.Chunk
	for len(text) > maxLen {
		cut := splitPoint(text, maxLen)
		chunks = append(chunks, domain.Chunk{Index: len(chunks), Text: text[:cut]})
		text = text[cut:]
	}
	return append(chunks, domain.Chunk{Index: len(chunks), Text: text})
}

func splitPoint(text string, maxLen int) int {
	window := text[:maxLen]

	if idx := strings.LastIndexByte(window, '\n'); idx >= 0 {
		return idx + 1
	}
	if idx := strings.LastIndexFunc(window, unicode.IsSpace); idx >= 0 {
		_, width := utf8.DecodeRuneInString(window[idx:])
		return idx + width
	}

	// Degraded case: no boundary anywhere in the window. Hard cut, backing up
	// so a multi-byte rune is never torn across chunks.
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if cut == 0 {
		cut = maxLen
	}
	return cut
}
