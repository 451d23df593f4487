// pkg/events/events.go - the install log event stream.
//
// The installer communicates everything except its final boolean through
// ordered, timestamped events. Consumers (CLI, session recorder, tests)
// subscribe to a Bus or collect with a Recorder; the install worker never
// touches presentation state directly.

package events

import (
	"fmt"
	"sync"
	"time"
)

// Level is the severity of a log event.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Event is a single line of the install log stream.
type Event struct {
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	App     string    `json:"app,omitempty"`
	Message string    `json:"message"`
}

// Sink receives events from a producer.
type Sink interface {
	Emit(Event)
}

// Recorder is a Sink that collects events in order. Safe for use from a
// worker goroutine while a test or UI reads snapshots.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Bus fans events out to subscriber channels. Publishing blocks when a
// subscriber's buffer is full, so a slow consumer applies backpressure to
// the worker instead of dropping log lines.
type Bus struct {
	mu     sync.Mutex
	subs   []chan Event
	closed bool
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe returns a channel that receives every event emitted after the
// call. The channel is closed when the bus is closed.
func (b *Bus) Subscribe(buffer int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, buffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

func (b *Bus) Emit(e Event) {
	b.mu.Lock()
	subs := b.subs
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return
	}
	for _, ch := range subs {
		ch <- e
	}
}

// Close closes all subscriber channels. Emit after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}

// Emitter wraps a Sink with formatting helpers and a fixed app name.
type Emitter struct {
	sink Sink
	app  string
}

func NewEmitter(sink Sink, app string) *Emitter {
	return &Emitter{sink: sink, app: app}
}

func (e *Emitter) emit(level Level, format string, args ...interface{}) {
	if e.sink == nil {
		return
	}
	e.sink.Emit(Event{
		Time:    time.Now(),
		Level:   level,
		App:     e.app,
		Message: fmt.Sprintf(format, args...),
	})
}

func (e *Emitter) Info(format string, args ...interface{})    { e.emit(LevelInfo, format, args...) }
func (e *Emitter) Success(format string, args ...interface{}) { e.emit(LevelSuccess, format, args...) }
func (e *Emitter) Warning(format string, args ...interface{}) { e.emit(LevelWarning, format, args...) }
func (e *Emitter) Error(format string, args ...interface{})   { e.emit(LevelError, format, args...) }
