package escrow

import "errors"

// Operation failures surfaced to callers. Every violated check aborts the
// current operation with no partial state change.
var (
	// ErrNotFound indicates no escrow record exists for the order id.
	ErrNotFound = errors.New("escrow: not found")
	// ErrAlreadyProcessed indicates the record already reached a terminal
	// status and no further transition is permitted.
	ErrAlreadyProcessed = errors.New("escrow: already processed")
	// ErrNotAuthorized indicates the caller could not prove control of an
	// identity permitted to perform the operation.
	ErrNotAuthorized = errors.New("escrow: not authorized")
	// ErrInvalidAmount indicates a non-positive principal.
	ErrInvalidAmount = errors.New("escrow: amount must be positive")
	// ErrSameParty indicates buyer and seller resolve to the same identity.
	ErrSameParty = errors.New("escrow: buyer and seller must differ")
	// ErrWindowNotElapsed indicates the auto-release window has not passed.
	ErrWindowNotElapsed = errors.New("escrow: release window not yet elapsed")
	// ErrOrderExists indicates an escrow record is already stored under the
	// order id. Creation never overwrites an unresolved escrow.
	ErrOrderExists = errors.New("escrow: order id already in use")
)
