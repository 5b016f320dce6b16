// Package memory provides the in-memory ClaimStore. It is the transactional
// core that the durable backends wrap: writes are buffered per transaction and
// only published once the transaction function and the optional commit hook
// both succeed.
package memory

import (
	"claimledger/pkg/domain"
	"context"
	"sync"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Claim aliases domain.Claim.
	Claim = domain.Claim
	// OwnershipRecord aliases domain.OwnershipRecord.
	OwnershipRecord = domain.OwnershipRecord
	// Proof aliases domain.Proof.
	Proof = domain.Proof
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result.
	Result = domain.Result
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

// CommitFunc is invoked with the transaction's changes after the transaction
// function succeeded and before the changes become visible. Returning an error
// aborts the transaction.
type CommitFunc func(ctx context.Context, changes []Change) error

// Snapshot captures a point-in-time copy of the store, sorted by claim bytes.
type Snapshot struct {
	Proofs []Proof `json:"proofs"`
}

// Store provides an in-memory transactional ClaimStore.
type Store struct {
	mu     sync.RWMutex
	proofs map[string]OwnershipRecord
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{proofs: make(map[string]OwnershipRecord)}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Proofs: listProofs(s.proofs)}
}

// ImportState replaces the store state with the provided snapshot. Later
// entries win when the snapshot repeats a claim.
func (s *Store) ImportState(snapshot Snapshot) {
	proofs := make(map[string]OwnershipRecord, len(snapshot.Proofs))
	for _, p := range snapshot.Proofs {
		proofs[p.Claim.Key()] = p.Record
	}
	s.mu.Lock()
	s.proofs = proofs
	s.mu.Unlock()
}

// GetProof returns the committed record for claim.
func (s *Store) GetProof(claim Claim) (OwnershipRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.proofs[claim.Key()]
	return rec, ok
}

// ListProofs returns every committed proof sorted by claim bytes.
func (s *Store) ListProofs() []Proof {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listProofs(s.proofs)
}

// Len reports the number of committed claims.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.proofs)
}

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// RunInTransaction executes fn within a transactional overlay of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	return s.RunInTransactionWithCommit(ctx, fn, nil)
}

// RunInTransactionWithCommit executes fn and, if it succeeds, hands the
// recorded changes to commit before publishing them. Transactions are
// serialised; readers observe either the state before or after a commit.
func (s *Store) RunInTransactionWithCommit(ctx context.Context, fn func(tx Transaction) error, commit CommitFunc) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newTransaction(s.proofs)
	if err := fn(tx); err != nil {
		return Result{}, err
	}
	if len(tx.changes) == 0 {
		return Result{}, nil
	}
	if commit != nil {
		if err := commit(ctx, tx.changes); err != nil {
			return Result{}, err
		}
	}
	tx.apply(s.proofs)
	return Result{Changes: tx.changes}, nil
}

// View executes fn against a read-only copy of the committed state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	copied := make(map[string]OwnershipRecord, len(s.proofs))
	for k, v := range s.proofs {
		copied[k] = v
	}
	s.mu.RUnlock()
	return fn(mapView(copied))
}

func listProofs(proofs map[string]OwnershipRecord) []Proof {
	out := make([]Proof, 0, len(proofs))
	for k, v := range proofs {
		out = append(out, Proof{Claim: Claim(k), Record: v})
	}
	domain.SortProofs(out)
	return out
}

type mapView map[string]OwnershipRecord

func (v mapView) FindProof(claim Claim) (OwnershipRecord, bool) {
	rec, ok := v[claim.Key()]
	return rec, ok
}

func (v mapView) ListProofs() []Proof { return listProofs(v) }
