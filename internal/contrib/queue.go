package contrib

import (
	"errors"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// Validation failures returned by Submit. These are the only errors the
// submitting caller ever sees; nothing else in the system surfaces them.
var (
	ErrEmpty    = errors.New("word is empty")
	ErrTooLong  = errors.New("word is too long")
	ErrBadChars = errors.New("word contains disallowed characters")
)

// Queue collects validated user words until the next generation cycle
// drains them. Submission order is preserved through the drain.
type Queue struct {
	mu         sync.Mutex
	words      []string
	maxWordLen int
	accepted   int
	rejected   int
}

// NewQueue creates an empty queue. maxWordLen bounds accepted words in runes.
func NewQueue(maxWordLen int) *Queue {
	return &Queue{maxWordLen: maxWordLen}
}

// Submit validates raw input and, on success, appends the cleaned word and
// returns it. On failure it returns one of the sentinel validation errors
// and the queue is untouched.
func (q *Queue) Submit(raw string) (string, error) {
	word := strings.TrimSpace(raw)

	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.validate(word); err != nil {
		q.rejected++
		return "", err
	}

	q.words = append(q.words, word)
	q.accepted++
	return word, nil
}

// DrainAll atomically removes and returns all pending words in submission
// order. With nothing pending it returns an empty slice. Safe to call
// concurrently with Submit.
func (q *Queue) DrainAll() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.words
	q.words = nil
	return out
}

// Pending returns the number of words waiting for the next cycle.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.words)
}

// Stats returns queue counters for the stats endpoint.
func (q *Queue) Stats() map[string]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return map[string]int{
		"pending":  len(q.words),
		"accepted": q.accepted,
		"rejected": q.rejected,
	}
}

// validate enforces the acceptance rules: non-empty after trimming, at most
// maxWordLen runes, and only letters, digits, apostrophes, or hyphens.
func (q *Queue) validate(word string) error {
	if word == "" {
		return ErrEmpty
	}
	if utf8.RuneCountInString(word) > q.maxWordLen {
		return ErrTooLong
	}
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '-' {
			continue
		}
		return ErrBadChars
	}
	return nil
}
