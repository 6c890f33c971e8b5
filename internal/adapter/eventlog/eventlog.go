package eventlog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/domain"
)

// Fanout appends every event to each sink in order. A failing sink does not stop the others.
type Fanout struct {
	sinks []domain.EventLog
}

func NewFanout(sinks ...domain.EventLog) *Fanout {
	return &Fanout{sinks: sinks}
}

// Add registers another sink.
func (f *Fanout) Add(sink domain.EventLog) {
	f.sinks = append(f.sinks, sink)
}

func (f *Fanout) Append(ctx context.Context, event domain.Event) error {
	var errs []error
	for i, sink := range f.sinks {
		if err := sink.Append(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps appended events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func NewRecorder() *Recorder {
	return &Recorder{events: make([]domain.Event, 0, 64)}
}

func (r *Recorder) Append(_ context.Context, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t domain.EventType) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
