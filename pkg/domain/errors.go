package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a rejected transition.
type ErrorKind string

// The complete set of transition failures.
const (
	// KindProofAlreadyExist rejects a create on a claim that is already owned.
	KindProofAlreadyExist ErrorKind = "ProofAlreadyExist"
	// KindClaimNotExist rejects a revoke or transfer on an absent claim.
	KindClaimNotExist ErrorKind = "ClaimNotExist"
	// KindNotClaimOwner rejects a revoke or transfer by someone other than the owner.
	KindNotClaimOwner ErrorKind = "NotClaimOwner"
)

// Sentinels for errors.Is matching. Any *Error with the same kind matches.
var (
	ErrProofAlreadyExist = &Error{Kind: KindProofAlreadyExist}
	ErrClaimNotExist     = &Error{Kind: KindClaimNotExist}
	ErrNotClaimOwner     = &Error{Kind: KindNotClaimOwner}
)

// Error is returned by the ledger when a transition is rejected. The store is
// unchanged whenever an Error is returned.
type Error struct {
	Kind   ErrorKind
	Claim  Claim
	Caller AccountID
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Claim == nil && e.Caller == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: claim %s caller %q", e.Kind, e.Claim, e.Caller)
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError builds a kind-tagged error for the given claim and caller.
func NewError(kind ErrorKind, claim Claim, caller AccountID) *Error {
	return &Error{Kind: kind, Claim: claim.Clone(), Caller: caller}
}

// KindOf extracts the ErrorKind from err. The boolean is false for nil and
// for errors that are not transition rejections (for example storage faults).
func KindOf(err error) (ErrorKind, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind, true
	}
	return "", false
}
