// Package postgres provides a Postgres-backed ClaimStore that mirrors the
// in-memory semantics. Rows are keyed by the raw claim bytes (BYTEA) and are
// written inside the memory store's commit step.
package postgres

import (
	"claimledger/internal/infra/persistence/memory"
	"claimledger/pkg/domain"
	"context"
	"database/sql"
	"fmt"
	"math"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/claimledger?sslmode=disable"
)

const schema = `CREATE TABLE IF NOT EXISTS proofs (
	claim BYTEA PRIMARY KEY,
	owner TEXT NOT NULL,
	recorded_at BIGINT NOT NULL
)`

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists claims to Postgres while reusing the in-memory implementation for transactions.
type Store struct {
	mem *memory.Store
	db *sql.DB
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to defaultDSN).
// It ensures the proofs table exists and hydrates the in-memory state from it.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure proofs table: %w", err)
	}
	snapshot, err := loadSnapshot(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	mem := memory.NewStore()
	mem.ImportState(snapshot)
	return &Store{mem: mem, db: db}, nil
}

// RunInTransaction applies fn and writes the resulting changes to Postgres before they become visible.
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

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

func loadSnapshot(ctx context.Context, db *sql.DB) (memory.Snapshot, error) {
	rows, err := db.QueryContext(ctx, `SELECT claim, owner, recorded_at FROM proofs`)
	if err != nil {
		return memory.Snapshot{}, fmt.Errorf("select proofs: %w", err)
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
			return memory.Snapshot{}, fmt.Errorf("scan proof: %w", err)
		}
		snapshot.Proofs = append(snapshot.Proofs, domain.Proof{
			Claim:  domain.Claim(claim),
			Record: domain.OwnershipRecord{Owner: domain.AccountID(owner), RecordedAt: domain.BlockNumber(at)},
		})
	}
	if err := rows.Err(); err != nil {
		return memory.Snapshot{}, fmt.Errorf("iterate proofs: %w", err)
	}
	return snapshot, nil
}

func (s *Store) persist(ctx context.Context, changes []domain.Change) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, change := range changes {
		key := []byte(change.Claim)
		if key == nil {
			key = []byte{}
		}
		switch change.Action {
		case domain.ActionCreate, domain.ActionUpdate:
			if uint64(change.After.RecordedAt) > math.MaxInt64 {
				return fmt.Errorf("block number %d exceeds bigint range", change.After.RecordedAt)
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO proofs (claim, owner, recorded_at) VALUES ($1,$2,$3) ON CONFLICT (claim) DO UPDATE SET owner = EXCLUDED.owner, recorded_at = EXCLUDED.recorded_at`,
				key, string(change.After.Owner), int64(change.After.RecordedAt)); err != nil {
				return fmt.Errorf("upsert proof %s: %w", change.Claim, err)
			}
		case domain.ActionDelete:
			if _, err := tx.ExecContext(ctx, `DELETE FROM proofs WHERE claim = $1`, key); err != nil {
				return fmt.Errorf("delete proof %s: %w", change.Claim, err)
			}
		default:
			return fmt.Errorf("unknown change action %q", change.Action)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
