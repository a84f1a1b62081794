package riverlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EntryType identifies what kind of event an entry records
type EntryType string

const (
	EntryCycle        EntryType = "cycle"        // a driver cycle appended a fragment
	EntryContribution EntryType = "contribution" // a user word was accepted
	EntryFailure      EntryType = "failure"      // a generation cycle was skipped
	EntryReset        EntryType = "reset"        // rolling context reset to the seed
)

// Entry is a single event in the river log
type Entry struct {
	Timestamp time.Time `json:"ts"`
	Type      EntryType `json:"type"`
	Sequence  int       `json:"sequence,omitempty"` // buffer sequence after the event
	Fragment  string    `json:"fragment,omitempty"` // appended continuation
	Word      string    `json:"word,omitempty"`     // accepted contribution
	Injected  int       `json:"injected,omitempty"` // words drained this cycle
	TookMS    int64     `json:"took_ms,omitempty"`  // generation latency
	Error     string    `json:"error,omitempty"`
}

// Log appends events to river.jsonl for offline inspection. It is
// observability only; nothing ever reads it back at runtime.
type Log struct {
	path string
	mu   sync.Mutex
}

// New creates a river log writer under dataDir.
func New(dataDir string) *Log {
	return &Log{path: filepath.Join(dataDir, "river.jsonl")}
}

// Write appends one entry as a JSON line.
func (l *Log) Write(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

// Cycle records a completed generation cycle.
func (l *Log) Cycle(sequence int, fragment string, injected int, took time.Duration) error {
	return l.Write(Entry{
		Type:     EntryCycle,
		Sequence: sequence,
		Fragment: fragment,
		Injected: injected,
		TookMS:   took.Milliseconds(),
	})
}

// Contribution records an accepted user word.
func (l *Log) Contribution(word string) error {
	return l.Write(Entry{Type: EntryContribution, Word: word})
}

// Failure records a skipped cycle.
func (l *Log) Failure(err error) error {
	return l.Write(Entry{Type: EntryFailure, Error: err.Error()})
}

// Reset records a rolling-context reset.
func (l *Log) Reset(sequence int) error {
	return l.Write(Entry{Type: EntryReset, Sequence: sequence})
}
