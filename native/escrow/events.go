package escrow

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"escrowd/core/types"
)

const (
	EventTypeEscrowCreated      = "escrow.created"
	EventTypeEscrowReleased     = "escrow.released"
	EventTypeEscrowAutoReleased = "escrow.auto_released"
	EventTypeEscrowRefunded     = "escrow.refunded"
)

// NewCreatedEvent returns the canonical event payload for a newly created
// escrow record.
func NewCreatedEvent(e *Escrow) *types.Event { return newEscrowEvent(EventTypeEscrowCreated, e, nil) }

// NewReleasedEvent returns the canonical event payload for a buyer-confirmed
// release, carrying the collected fee.
func NewReleasedEvent(e *Escrow, fee *big.Int) *types.Event {
	return newEscrowEvent(EventTypeEscrowReleased, e, fee)
}

// NewAutoReleasedEvent returns the canonical event payload for a time-gated
// release.
func NewAutoReleasedEvent(e *Escrow, fee *big.Int) *types.Event {
	return newEscrowEvent(EventTypeEscrowAutoReleased, e, fee)
}

// NewRefundedEvent returns the canonical event payload for a refund to the
// buyer.
func NewRefundedEvent(e *Escrow) *types.Event {
	return newEscrowEvent(EventTypeEscrowRefunded, e, nil)
}

func newEscrowEvent(eventType string, e *Escrow, fee *big.Int) *types.Event {
	attrs := make(map[string]string)
	if e == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["orderId"] = strconv.FormatUint(uint64(e.OrderID), 10)
	attrs["buyer"] = hex.EncodeToString(e.Buyer[:])
	attrs["seller"] = hex.EncodeToString(e.Seller[:])
	attrs["asset"] = e.Asset
	if e.Amount != nil {
		attrs["amount"] = e.Amount.String()
	}
	attrs["status"] = e.Status.String()
	attrs["createdAt"] = strconv.FormatInt(e.CreatedAt, 10)
	attrs["releaseWindow"] = strconv.FormatUint(e.ReleaseWindow, 10)
	if fee != nil {
		attrs["fee"] = fee.String()
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
