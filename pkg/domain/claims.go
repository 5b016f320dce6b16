// Package domain defines the claim registry's value types, error kinds,
// events, and the persistence and host contracts the ledger is written
// against.
package domain

import (
	"bytes"
	"encoding/hex"
	"sort"
	"strconv"
	"unicode/utf8"
)

// Claim is an opaque byte string (typically a content hash). Two claims are
// the same claim exactly when their bytes are equal.
type Claim []byte

// AccountID identifies an actor. The ledger never interprets it; callers are
// authenticated by the host before reaching the ledger.
type AccountID string

// BlockNumber is the host's logical clock value.
type BlockNumber uint64

// Key returns the claim bytes as a map key.
func (c Claim) Key() string { return string(c) }

// Equal reports whether both claims carry identical bytes.
func (c Claim) Equal(other Claim) bool { return bytes.Equal(c, other) }

// Clone returns a copy that does not alias the receiver.
func (c Claim) Clone() Claim {
	if c == nil {
		return nil
	}
	out := make(Claim, len(c))
	copy(out, c)
	return out
}

// String renders printable claims quoted and anything else as hex.
func (c Claim) String() string {
	if printable(c) {
		return strconv.Quote(string(c))
	}
	return "0x" + hex.EncodeToString(c)
}

func printable(c Claim) bool {
	if !utf8.Valid(c) {
		return false
	}
	for _, r := range string(c) {
		if !strconv.IsPrint(r) {
			return false
		}
	}
	return true
}

// OwnershipRecord is the value stored against a claim.
type OwnershipRecord struct {
	Owner      AccountID   `json:"owner"`
	RecordedAt BlockNumber `json:"recorded_at"`
}

// Proof pairs a claim with its ownership record.
type Proof struct {
	Claim  Claim           `json:"claim"`
	Record OwnershipRecord `json:"record"`
}

// SortProofs orders proofs by claim bytes so listings are deterministic.
func SortProofs(proofs []Proof) {
	sort.Slice(proofs, func(i, j int) bool {
		return bytes.Compare(proofs[i].Claim, proofs[j].Claim) < 0
	})
}
