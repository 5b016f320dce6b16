package sqlite

import (
	"claimledger/internal/infra/persistence/memory"
	"claimledger/pkg/domain"
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStorePersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store := openStore(t, path)
	ctx := context.Background()

	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if err := tx.InsertProof(domain.Claim("keep"), domain.OwnershipRecord{Owner: "alice", RecordedAt: 1}); err != nil {
			return err
		}
		if err := tx.InsertProof(domain.Claim{0xff, 0x00}, domain.OwnershipRecord{Owner: "bob", RecordedAt: 2}); err != nil {
			return err
		}
		return tx.InsertProof(domain.Claim("drop"), domain.OwnershipRecord{Owner: "carol", RecordedAt: 3})
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.UpdateProof(domain.Claim("keep"), func(r *domain.OwnershipRecord) error {
			r.Owner = "dave"
			r.RecordedAt = 4
			return nil
		}); err != nil {
			return err
		}
		return tx.DeleteProof(domain.Claim("drop"))
	}); err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded := openStore(t, path)
	proofs := reloaded.ListProofs()
	if len(proofs) != 2 {
		t.Fatalf("expected 2 proofs after reload, got %d", len(proofs))
	}
	rec, ok := reloaded.GetProof(domain.Claim("keep"))
	if !ok || rec.Owner != "dave" || rec.RecordedAt != 4 {
		t.Fatalf("unexpected reloaded record %+v ok=%v", rec, ok)
	}
	if rec, ok := reloaded.GetProof(domain.Claim{0xff, 0x00}); !ok || rec.Owner != "bob" {
		t.Fatalf("expected binary claim to survive reload, got %+v ok=%v", rec, ok)
	}
	if _, ok := reloaded.GetProof(domain.Claim("drop")); ok {
		t.Fatalf("expected deleted claim to stay deleted")
	}
	if reloaded.Path() != path {
		t.Fatalf("unexpected path %s", reloaded.Path())
	}
}

func TestSQLiteStoreFailedTransactionWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store := openStore(t, path)
	boom := errors.New("boom")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if err := tx.InsertProof(domain.Claim("a"), domain.OwnershipRecord{Owner: "alice"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	var count int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM proofs`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no rows, got %d", count)
	}
}

func TestSQLiteStoreRejectsOutOfRangeBlock(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "ledger.db"))
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.InsertProof(domain.Claim("a"), domain.OwnershipRecord{Owner: "alice", RecordedAt: domain.BlockNumber(math.MaxUint64)})
	})
	if err == nil {
		t.Fatalf("expected range error")
	}
	if store.Len() != 0 {
		t.Fatalf("expected in-memory state untouched after failed write")
	}
}

func TestSQLiteStoreWriteFailureLeavesMemoryUntouched(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "ledger.db"))
	if _, err := store.DB().Exec(`DROP TABLE proofs`); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.InsertProof(domain.Claim("a"), domain.OwnershipRecord{Owner: "alice"})
	})
	if err == nil {
		t.Fatalf("expected write failure")
	}
	if _, ok := store.GetProof(domain.Claim("a")); ok {
		t.Fatalf("expected memory state to be untouched")
	}
}

// commitBypass is the memory store's hook-taking commit; the durable store
// must not expose it, or callers could publish changes without writing rows.
type commitBypass interface {
	RunInTransactionWithCommit(context.Context, func(domain.Transaction) error, memory.CommitFunc) (domain.Result, error)
}

type stateImporter interface {
	ImportState(memory.Snapshot)
}

func TestSQLiteStoreHidesMemoryCommitPath(t *testing.T) {
	var store any = openStore(t, filepath.Join(t.TempDir(), "ledger.db"))
	if _, ok := store.(commitBypass); ok {
		t.Fatalf("sqlite store exposes RunInTransactionWithCommit")
	}
	if _, ok := store.(stateImporter); ok {
		t.Fatalf("sqlite store exposes ImportState")
	}
	if _, ok := store.(domain.PersistentStore); !ok {
		t.Fatalf("sqlite store must satisfy PersistentStore")
	}
}

func TestSQLiteStoreViewReadsCommittedRows(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "ledger.db"))
	ctx := context.Background()
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.InsertProof(domain.Claim("v"), domain.OwnershipRecord{Owner: "alice", RecordedAt: 7})
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.View(ctx, func(view domain.TransactionView) error {
		rec, ok := view.FindProof(domain.Claim("v"))
		if !ok || rec.RecordedAt != 7 || len(view.ListProofs()) != 1 {
			t.Fatalf("unexpected view %+v ok=%v", rec, ok)
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}
