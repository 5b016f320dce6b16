package domain

import "context"

// Action indicates the type of modification performed on a claim entry.
type Action string

// Change actions captured by a transaction.
const (
	// ActionCreate indicates a claim entry was inserted.
	ActionCreate Action = "create"
	// ActionUpdate indicates a claim entry was rewritten in place.
	ActionUpdate Action = "update"
	// ActionDelete indicates a claim entry was removed.
	ActionDelete Action = "delete"
)

// Change records one mutation of the ClaimStore. Before is nil for creates and
// After is nil for deletes.
type Change struct {
	Action Action
	Claim  Claim
	Before *OwnershipRecord
	After  *OwnershipRecord
}

// Result summarises a committed transaction.
type Result struct {
	Changes []Change
}

// Transaction exposes the claim store operations available within an atomic
// scope. Writes become visible to other callers only when the surrounding
// RunInTransaction commits.
type Transaction interface {
	Snapshot() TransactionView
	FindProof(claim Claim) (OwnershipRecord, bool)
	InsertProof(claim Claim, record OwnershipRecord) error
	UpdateProof(claim Claim, mutator func(*OwnershipRecord) error) (OwnershipRecord, error)
	DeleteProof(claim Claim) error
}

// TransactionView provides read-only access to claim state.
type TransactionView interface {
	FindProof(claim Claim) (OwnershipRecord, bool)
	ListProofs() []Proof
}

// PersistentStore is the ClaimStore abstraction implemented by the memory,
// sqlite and postgres backends.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetProof(claim Claim) (OwnershipRecord, bool)
	ListProofs() []Proof
	Close() error
}
