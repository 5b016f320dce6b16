package memory

import "claimledger/pkg/domain"

// pending is a buffered write; present=false marks a deletion.
type pending struct {
	record  OwnershipRecord
	present bool
}

// transaction buffers writes over the committed map, which it never mutates
// until apply.
type transaction struct {
	base    map[string]OwnershipRecord
	writes  map[string]pending
	changes []Change
}

func newTransaction(base map[string]OwnershipRecord) *transaction {
	return &transaction{base: base, writes: make(map[string]pending)}
}

func (tx *transaction) lookup(key string) (OwnershipRecord, bool) {
	if w, ok := tx.writes[key]; ok {
		return w.record, w.present
	}
	rec, ok := tx.base[key]
	return rec, ok
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

func (tx *transaction) apply(target map[string]OwnershipRecord) {
	for key, w := range tx.writes {
		if w.present {
			target[key] = w.record
			continue
		}
		delete(target, key)
	}
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	merged := make(mapView, len(tx.base)+len(tx.writes))
	for k, v := range tx.base {
		merged[k] = v
	}
	for k, w := range tx.writes {
		if w.present {
			merged[k] = w.record
			continue
		}
		delete(merged, k)
	}
	return merged
}

// FindProof looks a claim up, observing this transaction's own writes.
func (tx *transaction) FindProof(claim Claim) (OwnershipRecord, bool) {
	return tx.lookup(claim.Key())
}

// InsertProof stores a record for an absent claim.
func (tx *transaction) InsertProof(claim Claim, record OwnershipRecord) error {
	key := claim.Key()
	if _, exists := tx.lookup(key); exists {
		return domain.NewError(domain.KindProofAlreadyExist, claim, "")
	}
	tx.writes[key] = pending{record: record, present: true}
	after := record
	tx.recordChange(Change{Action: domain.ActionCreate, Claim: claim.Clone(), After: &after})
	return nil
}

// UpdateProof rewrites an existing record in place using mutator.
func (tx *transaction) UpdateProof(claim Claim, mutator func(*OwnershipRecord) error) (OwnershipRecord, error) {
	key := claim.Key()
	current, ok := tx.lookup(key)
	if !ok {
		return OwnershipRecord{}, domain.NewError(domain.KindClaimNotExist, claim, "")
	}
	before := current
	if err := mutator(&current); err != nil {
		return OwnershipRecord{}, err
	}
	tx.writes[key] = pending{record: current, present: true}
	after := current
	tx.recordChange(Change{Action: domain.ActionUpdate, Claim: claim.Clone(), Before: &before, After: &after})
	return current, nil
}

// DeleteProof removes an existing record.
func (tx *transaction) DeleteProof(claim Claim) error {
	key := claim.Key()
	current, ok := tx.lookup(key)
	if !ok {
		return domain.NewError(domain.KindClaimNotExist, claim, "")
	}
	tx.writes[key] = pending{present: false}
	before := current
	tx.recordChange(Change{Action: domain.ActionDelete, Claim: claim.Clone(), Before: &before})
	return nil
}
