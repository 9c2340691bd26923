package escrow

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"escrowd/core/events"
	"escrowd/core/types"
	"escrowd/native/common"
	"escrowd/native/fees"
)

var (
	errNilState    = errors.New("escrow engine: state not configured")
	errNilLedger   = errors.New("escrow engine: transfer gateway not configured")
	errNilPlatform = errors.New("escrow engine: platform manager not configured")
)

type engineState interface {
	EscrowPut(*Escrow) error
	EscrowGet(orderID uint32) (*Escrow, bool, error)
}

// TransferGateway moves a fungible asset between accounts. Transfers are
// all-or-nothing: either the full amount moves or an error is returned with
// no balance change. CustodyAddress resolves the engine-owned account that
// holds value for the given asset while an escrow is pending.
type TransferGateway interface {
	Transfer(asset string, from, to [20]byte, amount *big.Int) error
	CustodyAddress(asset string) ([20]byte, error)
}

type platformPolicy interface {
	FeePolicy() (feeBps uint32, wallet [20]byte, err error)
	AdminAddress() ([20]byte, error)
	AccrueFees(amount *big.Int) error
}

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

// Engine drives the escrow lifecycle: it validates inputs, authorizes
// callers, computes fees, persists state transitions and moves value through
// the configured transfer gateway. The host is expected to serialize
// invocations; the engine itself holds no locks.
type Engine struct {
	state    engineState
	ledger   TransferGateway
	platform platformPolicy
	emitter  events.Emitter
	nowFn    func() int64
}

// NewEngine creates an escrow engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the record store backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the value transfer gateway.
func (e *Engine) SetLedger(ledger TransferGateway) { e.ledger = ledger }

// SetPlatform configures the fee policy and ledger source.
func (e *Engine) SetPlatform(p platformPolicy) { e.platform = p }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(escrowEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	switch {
	case e == nil || e.state == nil:
		return errNilState
	case e.ledger == nil:
		return errNilLedger
	case e.platform == nil:
		return errNilPlatform
	}
	return nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func (e *Engine) loadEscrow(orderID uint32) (*Escrow, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	esc, ok, err := e.state.EscrowGet(orderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	return esc, nil
}

func (e *Engine) storeEscrow(esc *Escrow) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return e.state.EscrowPut(esc)
}

// Create validates and persists a new escrow record, then moves the principal
// from the buyer into engine custody. The caller must prove control of the
// buyer identity. Reusing an order id is rejected so an unresolved escrow can
// never be silently overwritten.
func (e *Engine) Create(auth common.Authorizer, buyer, seller [20]byte, asset string, amount *big.Int, orderID uint32, releaseWindow *uint64) (*Escrow, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	normalized, err := NormalizeAsset(asset)
	if err != nil {
		return nil, err
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if buyer == seller {
		return nil, ErrSameParty
	}
	if auth == nil {
		return nil, ErrNotAuthorized
	}
	if err := auth.Require(buyer); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotAuthorized, err)
	}
	// A store that cannot be read fails the guard closed; creating blind
	// could overwrite an unresolved escrow.
	if _, ok, err := e.state.EscrowGet(orderID); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("%w: order %d", ErrOrderExists, orderID)
	}
	window := DefaultReleaseWindow
	if releaseWindow != nil {
		window = *releaseWindow
	}
	esc := &Escrow{
		OrderID:       orderID,
		Buyer:         buyer,
		Seller:        seller,
		Asset:         normalized,
		Amount:        amt,
		Status:        StatusPending,
		CreatedAt:     e.now(),
		ReleaseWindow: window,
	}
	custody, err := e.ledger.CustodyAddress(normalized)
	if err != nil {
		return nil, err
	}
	if err := e.ledger.Transfer(normalized, buyer, custody, amt); err != nil {
		return nil, err
	}
	if err := e.storeEscrow(esc); err != nil {
		// Hand the principal back so a failed persist retains no custody.
		if refundErr := e.ledger.Transfer(normalized, custody, buyer, amt); refundErr != nil {
			return nil, fmt.Errorf("escrow: store failed (%v) and custody refund failed: %w", err, refundErr)
		}
		return nil, err
	}
	e.emit(NewCreatedEvent(esc))
	return esc.Clone(), nil
}

// Release settles the escrow in favour of the seller after the buyer confirms
// delivery, skimming the configured platform fee.
func (e *Engine) Release(auth common.Authorizer, orderID uint32) error {
	if err := e.ready(); err != nil {
		return err
	}
	esc, err := e.loadEscrow(orderID)
	if err != nil {
		return err
	}
	if auth == nil {
		return ErrNotAuthorized
	}
	if err := auth.Require(esc.Buyer); err != nil {
		return fmt.Errorf("%w: %w", ErrNotAuthorized, err)
	}
	if esc.Status != StatusPending {
		return fmt.Errorf("%w: order %d is %s", ErrAlreadyProcessed, orderID, esc.Status)
	}
	return e.settle(esc, NewReleasedEvent)
}

// AutoRelease settles the escrow in favour of the seller once the release
// window has elapsed. No identity proof is required: anyone may trigger the
// transition, nobody can rush it.
func (e *Engine) AutoRelease(orderID uint32) error {
	if err := e.ready(); err != nil {
		return err
	}
	esc, err := e.loadEscrow(orderID)
	if err != nil {
		return err
	}
	if esc.Status != StatusPending {
		return fmt.Errorf("%w: order %d is %s", ErrAlreadyProcessed, orderID, esc.Status)
	}
	if !windowElapsed(e.now(), esc.CreatedAt, esc.ReleaseWindow) {
		return fmt.Errorf("%w: order %d", ErrWindowNotElapsed, orderID)
	}
	return e.settle(esc, NewAutoReleasedEvent)
}

// settle marks the record released, persists it, then pays out the fee and
// the seller share. The status write and the transfers are one logical
// transaction under the host's serialization guarantee.
func (e *Engine) settle(esc *Escrow, eventFn func(*Escrow, *big.Int) *types.Event) error {
	feeBps, wallet, err := e.platform.FeePolicy()
	if err != nil {
		return err
	}
	quote := fees.Split(esc.Amount, feeBps)
	esc.Status = StatusReleased
	if err := e.storeEscrow(esc); err != nil {
		return err
	}
	custody, err := e.ledger.CustodyAddress(esc.Asset)
	if err != nil {
		return err
	}
	if quote.Fee.Sign() > 0 {
		if err := e.ledger.Transfer(esc.Asset, custody, wallet, quote.Fee); err != nil {
			return err
		}
		if err := e.platform.AccrueFees(quote.Fee); err != nil {
			return err
		}
	}
	if quote.Net.Sign() > 0 {
		if err := e.ledger.Transfer(esc.Asset, custody, esc.Seller, quote.Net); err != nil {
			return err
		}
	}
	e.emit(eventFn(esc, quote.Fee))
	return nil
}

// Refund returns the full principal to the buyer. The claimant must prove
// their identity and be either the record's buyer or the configured platform
// admin; no fee is charged on refund.
func (e *Engine) Refund(auth common.Authorizer, orderID uint32, claimant [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	esc, err := e.loadEscrow(orderID)
	if err != nil {
		return err
	}
	if auth == nil {
		return ErrNotAuthorized
	}
	if err := auth.Require(claimant); err != nil {
		return fmt.Errorf("%w: %w", ErrNotAuthorized, err)
	}
	if claimant != esc.Buyer {
		// Platform refund authority binds to the configured admin. A
		// missing configuration means no platform principal exists yet.
		admin, adminErr := e.platform.AdminAddress()
		if adminErr != nil || claimant != admin {
			return fmt.Errorf("%w: claimant is neither buyer nor platform admin", ErrNotAuthorized)
		}
	}
	if esc.Status != StatusPending {
		return fmt.Errorf("%w: order %d is %s", ErrAlreadyProcessed, orderID, esc.Status)
	}
	esc.Status = StatusRefunded
	if err := e.storeEscrow(esc); err != nil {
		return err
	}
	custody, err := e.ledger.CustodyAddress(esc.Asset)
	if err != nil {
		return err
	}
	if err := e.ledger.Transfer(esc.Asset, custody, esc.Buyer, esc.Amount); err != nil {
		return err
	}
	e.emit(NewRefundedEvent(esc))
	return nil
}

// Get returns a copy of the stored escrow record.
func (e *Engine) Get(orderID uint32) (*Escrow, error) {
	esc, err := e.loadEscrow(orderID)
	if err != nil {
		return nil, err
	}
	return esc.Clone(), nil
}

// CanAutoRelease reports whether the time-gated release is currently
// eligible. Missing records and terminal statuses report false rather than an
// error; this is a query, not a transition.
func (e *Engine) CanAutoRelease(orderID uint32) bool {
	if e == nil || e.state == nil {
		return false
	}
	esc, ok, err := e.state.EscrowGet(orderID)
	if err != nil || !ok {
		return false
	}
	if esc.Status != StatusPending {
		return false
	}
	return windowElapsed(e.now(), esc.CreatedAt, esc.ReleaseWindow)
}

// windowElapsed compares elapsed time against the window in unsigned space.
// Windows above math.MaxInt64 can never elapse; they must not wrap negative
// and read as already expired.
func windowElapsed(now, createdAt int64, window uint64) bool {
	if now < createdAt {
		return false
	}
	return uint64(now-createdAt) >= window
}

// Quote previews the fee split the current policy would apply to the supplied
// gross amount without touching any state.
func (e *Engine) Quote(amount *big.Int) (fees.Quote, error) {
	if e == nil || e.platform == nil {
		return fees.Quote{}, errNilPlatform
	}
	feeBps, _, err := e.platform.FeePolicy()
	if err != nil {
		return fees.Quote{}, err
	}
	return fees.Split(amount, feeBps), nil
}

// CalculateFee returns the platform fee the current policy would collect.
func (e *Engine) CalculateFee(amount *big.Int) (*big.Int, error) {
	quote, err := e.Quote(amount)
	if err != nil {
		return nil, err
	}
	return quote.Fee, nil
}

// CalculateNet returns the seller share after the platform fee.
func (e *Engine) CalculateNet(amount *big.Int) (*big.Int, error) {
	quote, err := e.Quote(amount)
	if err != nil {
		return nil, err
	}
	return quote.Net, nil
}
