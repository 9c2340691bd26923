package escrow

import (
	"fmt"
	"math/big"
	"strings"
)

// Status represents the lifecycle states of an escrow record. Released and
// Refunded are terminal; Disputed is a reserved value with no transitions
// wired in this engine.
type Status uint8

const (
	StatusPending Status = iota
	StatusReleased
	StatusRefunded
	StatusDisputed
)

// DefaultReleaseWindow is applied when the creator does not supply an explicit
// auto-release window (7 days, in seconds).
const DefaultReleaseWindow uint64 = 604_800

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusReleased, StatusRefunded, StatusDisputed:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusReleased || s == StatusRefunded
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReleased:
		return "released"
	case StatusRefunded:
		return "refunded"
	case StatusDisputed:
		return "disputed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Escrow captures the immutable metadata and runtime status of a single held
// order. Records are keyed by the externally supplied order identifier; every
// field other than Status is fixed at creation.
type Escrow struct {
	OrderID       uint32
	Buyer         [20]byte
	Seller        [20]byte
	Asset         string
	Amount        *big.Int
	Status        Status
	CreatedAt     int64
	ReleaseWindow uint64
}

// Clone returns a deep copy of the escrow record so callers can safely mutate
// the copy without affecting the stored instance.
func (e *Escrow) Clone() *Escrow {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Amount != nil {
		clone.Amount = new(big.Int).Set(e.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// NormalizeAsset canonicalises an asset symbol to its trimmed uppercase form.
func NormalizeAsset(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed == "" {
		return "", fmt.Errorf("escrow: asset symbol must not be empty")
	}
	return trimmed, nil
}

// Sanitize validates and normalises the supplied escrow record, returning a
// cloned instance with canonical asset casing and a non-nil amount. The
// original value is not mutated.
func Sanitize(e *Escrow) (*Escrow, error) {
	if e == nil {
		return nil, fmt.Errorf("escrow: nil record")
	}
	clone := e.Clone()
	asset, err := NormalizeAsset(clone.Asset)
	if err != nil {
		return nil, err
	}
	clone.Asset = asset
	if clone.Amount.Sign() < 0 {
		return nil, fmt.Errorf("escrow: amount must be non-negative")
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("escrow: invalid status: %d", clone.Status)
	}
	if clone.Buyer == clone.Seller {
		return nil, fmt.Errorf("escrow: buyer and seller must differ")
	}
	return clone, nil
}
