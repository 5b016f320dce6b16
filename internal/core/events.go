package core

import (
	"context"
	"fmt"
	"sync"
)

// EventJournal is an append-only EventSink that numbers events from 1.
type EventJournal struct {
	mu     sync.RWMutex
	events []Event
}

// NewEventJournal returns an empty journal.
func NewEventJournal() *EventJournal {
	return &EventJournal{}
}

// Deposit implements EventSink.
func (j *EventJournal) Deposit(_ context.Context, event Event) {
	event.Claim = event.Claim.Clone()
	j.mu.Lock()
	event.Seq = uint64(len(j.events)) + 1
	j.events = append(j.events, event)
	j.mu.Unlock()
}

// Events returns a copy of every recorded event in order.
func (j *EventJournal) Events() []Event {
	return j.Since(0)
}

// Since returns events with a sequence number greater than seq.
func (j *EventJournal) Since(seq uint64) []Event {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if seq >= uint64(len(j.events)) {
		return nil
	}
	out := make([]Event, 0, uint64(len(j.events))-seq)
	for _, e := range j.events[seq:] {
		e.Claim = e.Claim.Clone()
		out = append(out, e)
	}
	return out
}

// Len reports the number of recorded events.
func (j *EventJournal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.events)
}

// Load replaces the journal contents. Events must be numbered 1..n in order.
func (j *EventJournal) Load(events []Event) error {
	loaded := make([]Event, len(events))
	for i, e := range events {
		if e.Seq != uint64(i)+1 {
			return fmt.Errorf("event %d has seq %d, want %d", i, e.Seq, i+1)
		}
		e.Claim = e.Claim.Clone()
		loaded[i] = e
	}
	j.mu.Lock()
	j.events = loaded
	j.mu.Unlock()
	return nil
}

// FanoutSink delivers each event to every sink in order.
type FanoutSink struct {
	sinks []EventSink
}

// NewFanoutSink builds a FanoutSink, skipping nil sinks.
func NewFanoutSink(sinks ...EventSink) *FanoutSink {
	f := &FanoutSink{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Deposit implements EventSink.
func (f *FanoutSink) Deposit(ctx context.Context, event Event) {
	for _, s := range f.sinks {
		s.Deposit(ctx, event)
	}
}
