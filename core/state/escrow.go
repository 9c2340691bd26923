package state

import (
	"fmt"
	"math/big"

	"escrowd/native/escrow"
)

// storedEscrow is the RLP stored form of an escrow record. Timestamps are
// widened to uint64 because RLP has no signed integer encoding.
type storedEscrow struct {
	OrderID       uint32
	Buyer         [20]byte
	Seller        [20]byte
	Asset         string
	Amount        *big.Int
	Status        uint8
	CreatedAt     uint64
	ReleaseWindow uint64
}

// EscrowPut sanitizes and persists an escrow record under its order id.
func (m *Manager) EscrowPut(e *escrow.Escrow) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: manager not initialised")
	}
	sanitized, err := escrow.Sanitize(e)
	if err != nil {
		return err
	}
	if sanitized.CreatedAt < 0 {
		return fmt.Errorf("state: escrow created_at must not be negative")
	}
	stored := storedEscrow{
		OrderID:       sanitized.OrderID,
		Buyer:         sanitized.Buyer,
		Seller:        sanitized.Seller,
		Asset:         sanitized.Asset,
		Amount:        sanitized.Amount,
		Status:        uint8(sanitized.Status),
		CreatedAt:     uint64(sanitized.CreatedAt),
		ReleaseWindow: sanitized.ReleaseWindow,
	}
	return m.kvPut(escrowKey(sanitized.OrderID), &stored)
}

// EscrowGet loads the escrow record stored under the order id. The boolean
// reports whether a record exists; a failing store is surfaced as an error,
// never as absence.
func (m *Manager) EscrowGet(orderID uint32) (*escrow.Escrow, bool, error) {
	if m == nil || m.db == nil {
		return nil, false, fmt.Errorf("state: manager not initialised")
	}
	var stored storedEscrow
	ok, err := m.kvGet(escrowKey(orderID), &stored)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	amount := stored.Amount
	if amount == nil {
		amount = big.NewInt(0)
	}
	record := &escrow.Escrow{
		OrderID:       stored.OrderID,
		Buyer:         stored.Buyer,
		Seller:        stored.Seller,
		Asset:         stored.Asset,
		Amount:        new(big.Int).Set(amount),
		Status:        escrow.Status(stored.Status),
		CreatedAt:     int64(stored.CreatedAt),
		ReleaseWindow: stored.ReleaseWindow,
	}
	return record, true, nil
}
