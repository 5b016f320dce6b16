package core

import (
	"context"
	"errors"
	"io"
	"time"

	"claimledger/internal/infra/persistence/memory"
	"claimledger/pkg/domain"
)

// Operation names reported to loggers, metrics and tracers.
const (
	OpCreateClaim   = "create_claim"
	OpRevokeClaim   = "revoke_claim"
	OpTransferClaim = "transfer_claim"
)

// Ledger records which account owns which claim. Every operation runs inside a
// single store transaction: it either commits in full and emits one event, or
// fails with no state change and no event.
type Ledger struct {
	store   PersistentStore
	clock   Clock
	sink    EventSink
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	closers []io.Closer
}

// NewLedger constructs a ledger over store.
func NewLedger(store PersistentStore, opts ...Option) *Ledger {
	o := defaultLedgerOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	var sink EventSink = noopSink{}
	switch len(o.sinks) {
	case 0:
	case 1:
		sink = o.sinks[0]
	default:
		sink = NewFanoutSink(o.sinks...)
	}
	return &Ledger{
		store:   store,
		clock:   o.clock,
		sink:    sink,
		logger:  o.logger,
		metrics: o.metrics,
		tracer:  o.tracer,
	}
}

// NewInMemoryLedger constructs a ledger over a fresh in-memory store.
func NewInMemoryLedger(opts ...Option) *Ledger {
	return NewLedger(memory.NewStore(), opts...)
}

// Store returns the underlying storage implementation.
func (l *Ledger) Store() PersistentStore {
	return l.store
}

// Close releases the underlying store and anything OpenLedger opened for it.
func (l *Ledger) Close() error {
	errs := []error{l.store.Close()}
	for _, c := range l.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// CreateClaim registers caller as the owner of an unregistered claim.
// Fails with ProofAlreadyExist when the claim has a record, whoever owns it.
func (l *Ledger) CreateClaim(ctx context.Context, caller AccountID, claim Claim) error {
	return l.run(ctx, OpCreateClaim, caller, claim, func(tx Transaction, at BlockNumber) (Event, error) {
		if _, exists := tx.FindProof(claim); exists {
			return Event{}, domain.NewError(KindProofAlreadyExist, claim, caller)
		}
		if err := tx.InsertProof(claim, OwnershipRecord{Owner: caller, RecordedAt: at}); err != nil {
			return Event{}, err
		}
		return Event{Type: EventClaimCreated, Who: caller, Claim: claim.Clone(), Block: at}, nil
	})
}

// RevokeClaim removes a claim owned by caller. Fails with ClaimNotExist when
// the claim is unregistered and NotClaimOwner when someone else owns it.
func (l *Ledger) RevokeClaim(ctx context.Context, caller AccountID, claim Claim) error {
	return l.run(ctx, OpRevokeClaim, caller, claim, func(tx Transaction, at BlockNumber) (Event, error) {
		if err := requireOwner(tx, claim, caller); err != nil {
			return Event{}, err
		}
		if err := tx.DeleteProof(claim); err != nil {
			return Event{}, err
		}
		return Event{Type: EventClaimRevoked, Who: caller, Claim: claim.Clone(), Block: at}, nil
	})
}

// TransferClaim hands a claim owned by caller to recipient and stamps the
// record with the current block. Transferring to oneself is allowed and only
// refreshes recorded_at.
func (l *Ledger) TransferClaim(ctx context.Context, caller AccountID, claim Claim, recipient AccountID) error {
	return l.run(ctx, OpTransferClaim, caller, claim, func(tx Transaction, at BlockNumber) (Event, error) {
		if err := requireOwner(tx, claim, caller); err != nil {
			return Event{}, err
		}
		if _, err := tx.UpdateProof(claim, func(r *OwnershipRecord) error {
			r.Owner = recipient
			r.RecordedAt = at
			return nil
		}); err != nil {
			return Event{}, err
		}
		return Event{Type: EventClaimTransfer, Who: caller, Claim: claim.Clone(), To: recipient, Block: at}, nil
	})
}

// Proof returns the ownership record for claim, if any.
func (l *Ledger) Proof(_ context.Context, claim Claim) (OwnershipRecord, bool) {
	return l.store.GetProof(claim)
}

// Proofs lists every registered claim ordered by claim bytes.
func (l *Ledger) Proofs(_ context.Context) []Proof {
	return l.store.ListProofs()
}

// requireOwner checks existence before ownership.
func requireOwner(tx Transaction, claim Claim, caller AccountID) error {
	record, ok := tx.FindProof(claim)
	if !ok {
		return domain.NewError(KindClaimNotExist, claim, caller)
	}
	if record.Owner != caller {
		return domain.NewError(KindNotClaimOwner, claim, caller)
	}
	return nil
}

type transition func(tx Transaction, at BlockNumber) (Event, error)

func (l *Ledger) run(ctx context.Context, op string, caller AccountID, claim Claim, apply transition) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	ctx, span := l.tracer.Start(ctx, op)
	defer func() {
		span.End(err)
		l.metrics.Observe(ctx, op, err == nil, time.Since(start))
	}()

	var event Event
	_, err = l.store.RunInTransaction(ctx, func(tx Transaction) error {
		var applyErr error
		event, applyErr = apply(tx, l.clock.CurrentBlock())
		return applyErr
	})
	if err != nil {
		if kind, ok := domain.KindOf(err); ok {
			l.logger.Warn("claim operation rejected", "operation", op, "kind", string(kind), "claim", claim.String(), "caller", string(caller))
		} else {
			l.logger.Error("claim operation failed", "operation", op, "claim", claim.String(), "caller", string(caller), "error", err)
		}
		return err
	}
	l.logger.Debug("claim operation applied", "operation", op, "claim", claim.String(), "caller", string(caller), "block", uint64(event.Block))
	l.sink.Deposit(ctx, event)
	return nil
}

type noopSink struct{}

func (noopSink) Deposit(context.Context, Event) {}
