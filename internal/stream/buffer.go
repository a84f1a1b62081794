package stream

import (
	"strings"
	"sync"
	"unicode/utf8"
)

// Markers wrap user-injected words in the visible stream so renderers can
// tell them apart from model output. They are stripped from the prompt
// before every model call.
const (
	MarkerOpen  = "[["
	MarkerClose = "]]"
)

// Buffer owns the two views of the river: the bounded rolling context fed
// to the model each cycle, and the visible stream shown to readers. It is
// the single shared-state owner; every mutation happens under its lock and
// the driver is the only writer.
type Buffer struct {
	mu      sync.RWMutex
	rolling string
	visible string
	seq     int
	last    string

	seed       string
	maxContext int
	maxStream  int
}

// Snapshot is an immutable view of the visible stream at one point in the
// mutation sequence. Pollers compare Sequence to detect updates and render
// Last as the newest fragment.
type Snapshot struct {
	Text     string `json:"text"`
	Sequence int    `json:"sequence"`
	Last     string `json:"new_text"`
}

// New creates a buffer seeded with the fallback text. Budgets are in bytes;
// trimming never splits a UTF-8 sequence.
func New(seed string, maxContext, maxStream int) *Buffer {
	return &Buffer{
		rolling:    tail(seed, maxContext),
		visible:    tail(seed, maxStream),
		seed:       seed,
		maxContext: maxContext,
		maxStream:  maxStream,
	}
}

// Append adds a generated fragment to both views, then trims the rolling
// context from the front so its length stays within budget with the
// trailing content preserved exactly. The visible stream is trimmed only
// at its much larger display cap.
func (b *Buffer) Append(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.push(text)
}

// InsertWord adds a user word to both views as a marked fragment with a
// separating space. The markers survive into the visible stream for
// rendering; the model never sees them (the prompt is cleaned before each
// call).
func (b *Buffer) InsertWord(word string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.push(" " + MarkerOpen + word + MarkerClose)
}

func (b *Buffer) push(fragment string) {
	b.visible = tail(b.visible+fragment, b.maxStream)
	b.rolling = tail(b.rolling+fragment, b.maxContext)
	b.seq++
	b.last = fragment
}

// Snapshot returns a consistent copy of the visible stream, or just its
// last window bytes when window is positive and smaller than the stream.
func (b *Buffer) Snapshot(window int) Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	text := b.visible
	if window > 0 && window < len(text) {
		text = tail(text, window)
	}
	return Snapshot{Text: text, Sequence: b.seq, Last: b.last}
}

// Rolling returns a copy of the rolling context for the next model call.
func (b *Buffer) Rolling() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rolling
}

// ResetContext restores the rolling context to the seed text. Recovery
// path for a corrupted (empty) context; the visible stream is untouched.
func (b *Buffer) ResetContext() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rolling = tail(b.seed, b.maxContext)
}

// Sequence returns the current mutation counter.
func (b *Buffer) Sequence() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.seq
}

// Stats returns buffer counters for the stats endpoint.
func (b *Buffer) Stats() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return map[string]int{
		"sequence":      b.seq,
		"visible_bytes": len(b.visible),
		"rolling_bytes": len(b.rolling),
	}
}

// StripMarkers removes injection markers, yielding the text a model call
// or a plain-text consumer should see.
func StripMarkers(s string) string {
	s = strings.ReplaceAll(s, MarkerOpen, "")
	return strings.ReplaceAll(s, MarkerClose, "")
}

// tail returns the last limit bytes of s, moved forward as needed so the
// cut never lands inside a UTF-8 sequence.
func tail(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	i := len(s) - limit
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return s[i:]
}
