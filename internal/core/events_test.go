package core

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestEventJournalSequencing(t *testing.T) {
	ctx := context.Background()
	j := NewEventJournal()
	for i := 0; i < 3; i++ {
		j.Deposit(ctx, Event{Type: EventClaimCreated, Who: alice, Claim: Claim{byte(i)}, Seq: 99})
	}
	events := j.Events()
	for i, e := range events {
		if e.Seq != uint64(i+1) {
			t.Fatalf("event %d: expected seq %d, got %d", i, i+1, e.Seq)
		}
	}
	if got := j.Since(2); len(got) != 1 || got[0].Seq != 3 {
		t.Fatalf("unexpected Since(2): %+v", got)
	}
	if got := j.Since(3); got != nil {
		t.Fatalf("expected nil past the end, got %+v", got)
	}
	events[0].Claim[0] = 0xaa
	if j.Events()[0].Claim[0] != 0 {
		t.Fatalf("expected Events to return copies")
	}
}

func TestEventJournalLoad(t *testing.T) {
	j := NewEventJournal()
	if err := j.Load([]Event{{Seq: 1}, {Seq: 3}}); err == nil {
		t.Fatalf("expected gap rejection")
	}
	if err := j.Load([]Event{{Seq: 1, Type: EventClaimCreated}, {Seq: 2, Type: EventClaimRevoked}}); err != nil {
		t.Fatalf("load: %v", err)
	}
	j.Deposit(context.Background(), Event{Type: EventClaimCreated})
	if j.Len() != 3 || j.Events()[2].Seq != 3 {
		t.Fatalf("expected numbering to continue after load, got %+v", j.Events())
	}
}

func TestEventJournalConcurrentDeposits(t *testing.T) {
	j := NewEventJournal()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.Deposit(context.Background(), Event{Type: EventClaimCreated})
		}()
	}
	wg.Wait()
	seen := make(map[uint64]bool)
	for _, e := range j.Events() {
		seen[e.Seq] = true
	}
	if len(seen) != 50 {
		t.Fatalf("expected 50 distinct sequence numbers, got %d", len(seen))
	}
}

func TestFanoutSinkOrderAndMultipleSinkOption(t *testing.T) {
	var order []string
	first := EventSinkFunc(func(context.Context, Event) { order = append(order, "first") })
	second := EventSinkFunc(func(context.Context, Event) { order = append(order, "second") })
	ledger := NewInMemoryLedger(WithEventSink(first), WithEventSink(second))
	if err := ledger.CreateClaim(context.Background(), alice, Claim("x")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("unexpected delivery order %v", order)
	}

	var count int
	fan := NewFanoutSink(nil, EventSinkFunc(func(context.Context, Event) { count++ }))
	fan.Deposit(context.Background(), Event{})
	if count != 1 {
		t.Fatalf("expected nil sinks to be skipped")
	}
}

func TestBlockClock(t *testing.T) {
	c := NewBlockClock(5)
	if c.CurrentBlock() != 5 {
		t.Fatalf("expected start height")
	}
	if got := c.Advance(3); got != 8 {
		t.Fatalf("expected 8, got %d", got)
	}
	if err := c.Set(8); err != nil {
		t.Fatalf("set same height: %v", err)
	}
	if err := c.Set(20); err != nil || c.CurrentBlock() != 20 {
		t.Fatalf("set forward: %v at %d", err, c.CurrentBlock())
	}
	if err := c.Set(19); !errors.Is(err, ErrClockRegression) {
		t.Fatalf("expected regression error, got %v", err)
	}
	if c.CurrentBlock() != 20 {
		t.Fatalf("regression must not move the clock")
	}
}
