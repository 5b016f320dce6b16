// Package archive writes ledger snapshots and event journals to blob storage
// and reads them back. Blobs are create-only, so every archive is immutable:
//
//	<prefix>/snapshots/<block>.json     full claim listing at a block height
//	<prefix>/events/<first>-<last>.json contiguous event batch by sequence
package archive

import (
	"bytes"
	"claimledger/internal/blob"
	"claimledger/pkg/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
)

const (
	snapshotFormat = "claimledger.snapshot/v1"
	eventsFormat   = "claimledger.events/v1"
	contentType    = "application/json"
)

// ErrNoSnapshot is returned by LatestSnapshot when nothing has been archived.
var ErrNoSnapshot = errors.New("archive: no snapshot")

// ProofLister is satisfied by core.Ledger.
type ProofLister interface {
	Proofs(ctx context.Context) []domain.Proof
}

// Journal is the event source for ExportEvents. core.EventJournal satisfies it.
type Journal interface {
	Since(seq uint64) []domain.Event
}

// Snapshot is the archived form of the claim map.
type Snapshot struct {
	Format  string             `json:"format"`
	Block   domain.BlockNumber `json:"block"`
	TakenAt time.Time          `json:"taken_at"`
	Proofs  []domain.Proof     `json:"proofs"`
}

// EventBatch is the archived form of a run of events.
type EventBatch struct {
	Format string         `json:"format"`
	First  uint64         `json:"first"`
	Last   uint64         `json:"last"`
	Events []domain.Event `json:"events"`
}

// Archiver reads and writes archives under a key prefix.
type Archiver struct {
	store  blob.Store
	prefix string
	now    func() time.Time
}

// New returns an Archiver writing under prefix (may be empty).
func New(store blob.Store, prefix string) *Archiver {
	return &Archiver{
		store:  store,
		prefix: strings.Trim(prefix, "/"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (a *Archiver) key(parts ...string) string {
	if a.prefix == "" {
		return path.Join(parts...)
	}
	return path.Join(append([]string{a.prefix}, parts...)...)
}

func (a *Archiver) put(ctx context.Context, key, kind string, v any) (blob.Info, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return blob.Info{}, fmt.Errorf("encode %s: %w", kind, err)
	}
	info, err := a.store.Put(ctx, key, bytes.NewReader(raw), blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"kind": kind},
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("archive %s: %w", kind, err)
	}
	return info, nil
}

func (a *Archiver) get(ctx context.Context, key string, v any) error {
	_, rc, err := a.store.Get(ctx, key)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	if err := json.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SaveSnapshot archives every proof in src as of block. One snapshot is kept
// per block; a second save at the same block fails with blob.ErrExists.
func (a *Archiver) SaveSnapshot(ctx context.Context, src ProofLister, block domain.BlockNumber) (blob.Info, error) {
	snap := Snapshot{
		Format:  snapshotFormat,
		Block:   block,
		TakenAt: a.now(),
		Proofs:  src.Proofs(ctx),
	}
	if snap.Proofs == nil {
		snap.Proofs = []domain.Proof{}
	}
	return a.put(ctx, a.key("snapshots", fmt.Sprintf("%020d.json", uint64(block))), "snapshot", snap)
}

// Snapshots lists archived snapshot blobs, oldest block first.
func (a *Archiver) Snapshots(ctx context.Context) ([]blob.Info, error) {
	return a.store.List(ctx, a.key("snapshots")+"/")
}

// LatestSnapshot loads the snapshot with the highest block.
func (a *Archiver) LatestSnapshot(ctx context.Context) (Snapshot, error) {
	infos, err := a.Snapshots(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if len(infos) == 0 {
		return Snapshot{}, ErrNoSnapshot
	}
	var snap Snapshot
	if err := a.get(ctx, infos[len(infos)-1].Key, &snap); err != nil {
		return Snapshot{}, err
	}
	if snap.Format != snapshotFormat {
		return Snapshot{}, fmt.Errorf("unsupported snapshot format %q", snap.Format)
	}
	return snap, nil
}

// RestoreSnapshot inserts every proof of snap into store in one transaction.
// The store must not already hold any of the claims.
func RestoreSnapshot(ctx context.Context, store domain.PersistentStore, snap Snapshot) (domain.Result, error) {
	return store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		for _, p := range snap.Proofs {
			if err := tx.InsertProof(p.Claim, p.Record); err != nil {
				return fmt.Errorf("restore %s: %w", p.Claim, err)
			}
		}
		return nil
	})
}

// ExportEvents archives every journal event after the last archived sequence
// number and returns the number written. Nothing is written when there are no
// new events.
func (a *Archiver) ExportEvents(ctx context.Context, journal Journal) (int, error) {
	last, err := a.LastArchivedSeq(ctx)
	if err != nil {
		return 0, err
	}
	events := journal.Since(last)
	if len(events) == 0 {
		return 0, nil
	}
	first, end := events[0].Seq, events[len(events)-1].Seq
	if first != last+1 {
		return 0, fmt.Errorf("journal gap: archived through %d, next event is %d", last, first)
	}
	batch := EventBatch{Format: eventsFormat, First: first, Last: end, Events: events}
	if _, err := a.put(ctx, a.eventKey(first, end), "events", batch); err != nil {
		return 0, err
	}
	return len(events), nil
}

func (a *Archiver) eventKey(first, last uint64) string {
	return a.key("events", fmt.Sprintf("%020d-%020d.json", first, last))
}

// LastArchivedSeq returns the highest archived event sequence number, or 0.
func (a *Archiver) LastArchivedSeq(ctx context.Context) (uint64, error) {
	infos, err := a.store.List(ctx, a.key("events")+"/")
	if err != nil {
		return 0, err
	}
	if len(infos) == 0 {
		return 0, nil
	}
	_, last, err := parseEventKey(infos[len(infos)-1].Key)
	return last, err
}

// LoadEvents reads every archived batch in order and checks that sequence
// numbers run 1..n without gaps.
func (a *Archiver) LoadEvents(ctx context.Context) ([]domain.Event, error) {
	infos, err := a.store.List(ctx, a.key("events")+"/")
	if err != nil {
		return nil, err
	}
	var out []domain.Event
	for _, info := range infos {
		var batch EventBatch
		if err := a.get(ctx, info.Key, &batch); err != nil {
			return nil, err
		}
		if batch.Format != eventsFormat {
			return nil, fmt.Errorf("unsupported events format %q in %s", batch.Format, info.Key)
		}
		for _, e := range batch.Events {
			if e.Seq != uint64(len(out))+1 {
				return nil, fmt.Errorf("event archive gap in %s: got seq %d, want %d", info.Key, e.Seq, len(out)+1)
			}
			out = append(out, e)
		}
	}
	return out, nil
}

func parseEventKey(key string) (uint64, uint64, error) {
	name := strings.TrimSuffix(path.Base(key), ".json")
	firstRaw, lastRaw, ok := strings.Cut(name, "-")
	if !ok {
		return 0, 0, fmt.Errorf("malformed event archive key %q", key)
	}
	first, err := strconv.ParseUint(firstRaw, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed event archive key %q: %w", key, err)
	}
	last, err := strconv.ParseUint(lastRaw, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed event archive key %q: %w", key, err)
	}
	return first, last, nil
}
