package driver

import (
	"log"
	"sync"
	"time"

	"github.com/ronthekiehn/gpt-river/internal/contrib"
	"github.com/ronthekiehn/gpt-river/internal/logging"
	"github.com/ronthekiehn/gpt-river/internal/riverlog"
	"github.com/ronthekiehn/gpt-river/internal/stream"
)

// Generator produces the next continuation for a rolling context. The
// returned fragment is non-empty; an error means the cycle should be
// skipped.
type Generator interface {
	Generate(contextText string) (string, error)
}

// Driver runs the river: one long-lived loop that drains pending
// injections, asks the generator for a continuation, appends it, and
// sleeps the pacing interval. It is the buffer's only writer.
type Driver struct {
	buf      *stream.Buffer
	queue    *contrib.Queue
	gen      Generator
	events   *riverlog.Log
	interval time.Duration

	stopChan chan struct{}

	mu       sync.Mutex
	cycles   int
	failures int
	resets   int
	injected int
	lastTook time.Duration
}

// New wires the driver to its state owners. The buffer and queue are
// passed in rather than reached through globals; request handlers share
// the same instances.
func New(buf *stream.Buffer, queue *contrib.Queue, gen Generator, events *riverlog.Log, interval time.Duration) *Driver {
	return &Driver{
		buf:      buf,
		queue:    queue,
		gen:      gen,
		events:   events,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the generation loop
func (d *Driver) Start() {
	go d.loop()
	log.Println("[driver] Started")
}

// Stop halts the loop at the end of the current cycle
func (d *Driver) Stop() {
	close(d.stopChan)
	log.Println("[driver] Stopping at end of cycle")
}

func (d *Driver) loop() {
	for {
		d.runCycle()
		select {
		case <-d.stopChan:
			return
		case <-time.After(d.interval):
		}
	}
}

// runCycle performs one drain, generate, append pass. Generation runs
// against a context snapshot with no lock held, so readers and submitters
// never wait on the model.
func (d *Driver) runCycle() {
	start := time.Now()

	words := d.queue.DrainAll()
	for _, w := range words {
		d.buf.InsertWord(w)
	}

	// A rolling context can only be empty if state was corrupted; restore
	// the seed rather than generating from nothing.
	if d.buf.Rolling() == "" {
		d.buf.ResetContext()
		d.events.Reset(d.buf.Sequence())
		logging.Info("driver", "empty rolling context, reset to seed")
		d.mu.Lock()
		d.resets++
		d.mu.Unlock()
	}

	context := d.buf.Rolling()

	text, err := d.gen.Generate(context)
	if err != nil {
		logging.Info("driver", "generation failed, skipping cycle: %v", err)
		d.events.Failure(err)
		d.mu.Lock()
		d.failures++
		d.mu.Unlock()
		return
	}

	fragment := " " + text
	d.buf.Append(fragment)

	took := time.Since(start)
	d.mu.Lock()
	d.cycles++
	d.injected += len(words)
	d.lastTook = took
	d.mu.Unlock()

	d.events.Cycle(d.buf.Sequence(), fragment, len(words), took)
	logging.Debug("driver", "cycle seq=%d injected=%d took=%s %q",
		d.buf.Sequence(), len(words), took.Round(time.Millisecond), logging.Preview(fragment, 60))
}

// Stats returns driver counters for the stats endpoint.
func (d *Driver) Stats() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return map[string]int{
		"cycles":        d.cycles,
		"failures":      d.failures,
		"resets":        d.resets,
		"injected":      d.injected,
		"last_cycle_ms": int(d.lastTook.Milliseconds()),
	}
}
