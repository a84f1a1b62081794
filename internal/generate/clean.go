package generate

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// keepPunct is the punctuation allowed through sanitization, alongside
// letters, numbers, and spaces.
const keepPunct = " .,!?-"

// clean turns a raw model response into the fragment that enters the
// stream: drop a parroted prompt prefix, sanitize to the display alphabet,
// and clip to the chunk budget on a word boundary.
func (c *Client) clean(prompt, raw string) string {
	text := raw
	if prompt != "" && strings.HasPrefix(text, prompt) {
		text = text[len(prompt):]
	}
	text = sanitize(text)
	text = strings.TrimSpace(text)
	return clip(text, c.maxChunk)
}

// sanitize keeps printable letters, numbers, and light punctuation so the
// stream renders smoothly. Injection markers never survive it.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.IsPrint(r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsNumber(r) || strings.ContainsRune(keepPunct, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// clip cuts s down to at most limit bytes, preferring the last word
// boundary and never splitting a UTF-8 sequence.
func clip(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	cut := s[:limit]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}
