// Package sqlite provides a SQLite-backed ClaimStore. Each claim is one row
// keyed by its raw bytes; the in-memory store handles transactions and the
// rows are written inside its commit step, so a failed write never becomes
// visible.
package sqlite

import (
	"claimledger/internal/infra/persistence/memory"
	"claimledger/pkg/domain"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const defaultPath = "claimledger.db"

const schema = `CREATE TABLE IF NOT EXISTS proofs (
	claim BLOB PRIMARY KEY,
	owner TEXT NOT NULL,
	recorded_at INTEGER NOT NULL
)`

// Store persists claims to SQLite while reusing the in-memory implementation for transactions.
type Store struct {
	mem  *memory.Store
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database at path and hydrates the in-memory
// state from it. An empty path falls back to ./claimledger.db.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps writes serialised and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create proofs table: %w", err)
	}
	s := &Store{mem: memory.NewStore(), db: db, path: path}
	if err := s.load(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT claim, owner, recorded_at FROM proofs`)
	if err != nil {
		return fmt.Errorf("select proofs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshot memory.Snapshot
	for rows.Next() {
		var (
			claim []byte
			owner string
			at    int64
		)
		if err := rows.Scan(&claim, &owner, &at); err != nil {
			return fmt.Errorf("scan proof: %w", err)
		}
		snapshot.Proofs = append(snapshot.Proofs, domain.Proof{
			Claim:  domain.Claim(claim),
			Record: domain.OwnershipRecord{Owner: domain.AccountID(owner), RecordedAt: domain.BlockNumber(at)},
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate proofs: %w", err)
	}
	s.mem.ImportState(snapshot)
	return nil
}

// RunInTransaction applies fn and writes the resulting changes to SQLite before they become visible.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	return s.mem.RunInTransactionWithCommit(ctx, fn, s.persist)
}

// View runs fn against a read-only copy of the committed state.
func (s *Store) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	return s.mem.View(ctx, fn)
}

// GetProof returns the committed record for claim.
func (s *Store) GetProof(claim domain.Claim) (domain.OwnershipRecord, bool) {
	return s.mem.GetProof(claim)
}

// ListProofs returns every committed proof sorted by claim bytes.
func (s *Store) ListProofs() []domain.Proof { return s.mem.ListProofs() }

// Len reports the number of committed claims.
func (s *Store) Len() int { return s.mem.Len() }

func (s *Store) persist(ctx context.Context, changes []domain.Change) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, change := range changes {
		key := rowKey(change.Claim)
		switch change.Action {
		case domain.ActionCreate, domain.ActionUpdate:
			at, err := blockToSQL(change.After.RecordedAt)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO proofs(claim, owner, recorded_at) VALUES(?,?,?) ON CONFLICT(claim) DO UPDATE SET owner=excluded.owner, recorded_at=excluded.recorded_at`,
				key, string(change.After.Owner), at); err != nil {
				return fmt.Errorf("upsert proof %s: %w", change.Claim, err)
			}
		case domain.ActionDelete:
			if _, err := tx.ExecContext(ctx, `DELETE FROM proofs WHERE claim = ?`, key); err != nil {
				return fmt.Errorf("delete proof %s: %w", change.Claim, err)
			}
		default:
			return fmt.Errorf("unknown change action %q", change.Action)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

func rowKey(c domain.Claim) []byte {
	if c == nil {
		return []byte{}
	}
	return c
}

func blockToSQL(b domain.BlockNumber) (int64, error) {
	if uint64(b) > math.MaxInt64 {
		return 0, fmt.Errorf("block number %d exceeds sqlite integer range", b)
	}
	return int64(b), nil
}
