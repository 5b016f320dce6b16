package domain

import "context"

// EventType names a ledger notification.
type EventType string

// Event types emitted after successful transitions.
const (
	// EventClaimCreated follows a successful create.
	EventClaimCreated EventType = "ClaimCreated"
	// EventClaimRevoked follows a successful revoke.
	EventClaimRevoked EventType = "ClaimRevoked"
	// EventClaimTransfer follows a successful transfer.
	EventClaimTransfer EventType = "ClaimTransfer"
)

// Event is the notification for one committed transition. To is only set for
// transfers. Seq is zero until a journal assigns one.
type Event struct {
	Seq   uint64      `json:"seq,omitempty"`
	Type  EventType   `json:"type"`
	Who   AccountID   `json:"who"`
	Claim Claim       `json:"claim"`
	To    AccountID   `json:"to,omitempty"`
	Block BlockNumber `json:"block"`
}

// EventSink receives events. Delivery is fire-and-forget: the transition has
// already committed when Deposit is called.
type EventSink interface {
	Deposit(ctx context.Context, event Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, event Event)

// Deposit implements EventSink.
func (f EventSinkFunc) Deposit(ctx context.Context, event Event) { f(ctx, event) }

// Clock supplies the host's current logical timestamp.
type Clock interface {
	CurrentBlock() BlockNumber
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() BlockNumber

// CurrentBlock implements Clock.
func (f ClockFunc) CurrentBlock() BlockNumber { return f() }
