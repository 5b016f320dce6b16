package core

import "claimledger/pkg/domain"

type (
	Claim           = domain.Claim
	AccountID       = domain.AccountID
	BlockNumber     = domain.BlockNumber
	OwnershipRecord = domain.OwnershipRecord
	Proof           = domain.Proof
	Event           = domain.Event
	EventType       = domain.EventType
	EventSink       = domain.EventSink
	EventSinkFunc   = domain.EventSinkFunc
	Clock           = domain.Clock
	ClockFunc       = domain.ClockFunc
	Change          = domain.Change
	Action          = domain.Action
	Result          = domain.Result
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
	Error           = domain.Error
	ErrorKind       = domain.ErrorKind
)

const (
	EventClaimCreated  = domain.EventClaimCreated
	EventClaimRevoked  = domain.EventClaimRevoked
	EventClaimTransfer = domain.EventClaimTransfer

	KindProofAlreadyExist = domain.KindProofAlreadyExist
	KindClaimNotExist     = domain.KindClaimNotExist
	KindNotClaimOwner     = domain.KindNotClaimOwner

	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

var (
	ErrProofAlreadyExist = domain.ErrProofAlreadyExist
	ErrClaimNotExist     = domain.ErrClaimNotExist
	ErrNotClaimOwner     = domain.ErrNotClaimOwner
)
