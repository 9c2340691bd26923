package platform

import (
	"errors"
	"fmt"
	"math/big"

	"escrowd/native/common"
)

// MaxFeeBps caps the platform fee rate at 10%.
const MaxFeeBps uint32 = 1000

var (
	// ErrFeeTooHigh indicates a fee rate above MaxFeeBps.
	ErrFeeTooHigh = errors.New("platform: fee bps above maximum")
	// ErrNotInitialized indicates the configuration singleton has not been
	// written yet.
	ErrNotInitialized = errors.New("platform: configuration not initialized")
	// ErrNotAuthorized indicates the caller is not the configured admin.
	ErrNotAuthorized = errors.New("platform: caller is not the admin")

	errNilState = errors.New("platform: state not configured")
)

// Config is the singleton fee policy applied at release time.
type Config struct {
	FeeBps uint32
	Wallet [20]byte
	Admin  [20]byte
}

// State captures the persistence capabilities required by the manager. The
// fee ledger is a single monotonic accumulator owned by this module.
type State interface {
	PlatformConfigPut(*Config) error
	PlatformConfigGet() (*Config, bool, error)
	FeeLedgerAccrue(amount *big.Int) error
	FeeLedgerTotal() (*big.Int, error)
	FeeLedgerReset() error
}

// Manager provides typed, authorization-gated access to the platform fee
// policy and the collected-fee ledger.
type Manager struct {
	state State
}

// NewManager constructs a configuration manager over the supplied state
// backend.
func NewManager(state State) *Manager {
	return &Manager{state: state}
}

func (m *Manager) withState() (State, error) {
	if m == nil || m.state == nil {
		return nil, errNilState
	}
	return m.state, nil
}

func (m *Manager) load() (*Config, error) {
	state, err := m.withState()
	if err != nil {
		return nil, err
	}
	cfg, ok, err := state.PlatformConfigGet()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return cfg, nil
}

func (m *Manager) requireAdmin(auth common.Authorizer) (*Config, error) {
	cfg, err := m.load()
	if err != nil {
		return nil, err
	}
	if auth == nil {
		return nil, ErrNotAuthorized
	}
	if err := auth.Require(cfg.Admin); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotAuthorized, err)
	}
	return cfg, nil
}

// Initialize writes the fee policy singleton and resets the collected-fee
// accumulator to zero. On first invocation the caller must prove control of
// the supplied admin identity; afterwards only the currently configured admin
// may overwrite the policy.
func (m *Manager) Initialize(auth common.Authorizer, wallet, admin [20]byte, feeBps uint32) error {
	state, err := m.withState()
	if err != nil {
		return err
	}
	if feeBps > MaxFeeBps {
		return fmt.Errorf("%w: %d > %d", ErrFeeTooHigh, feeBps, MaxFeeBps)
	}
	required := admin
	if existing, ok, err := state.PlatformConfigGet(); err != nil {
		return err
	} else if ok {
		required = existing.Admin
	}
	if auth == nil {
		return ErrNotAuthorized
	}
	if err := auth.Require(required); err != nil {
		return fmt.Errorf("%w: %w", ErrNotAuthorized, err)
	}
	cfg := &Config{FeeBps: feeBps, Wallet: wallet, Admin: admin}
	if err := state.PlatformConfigPut(cfg); err != nil {
		return err
	}
	return state.FeeLedgerReset()
}

// Config returns the current fee policy.
func (m *Manager) Config() (Config, error) {
	cfg, err := m.load()
	if err != nil {
		return Config{}, err
	}
	return *cfg, nil
}

// UpdateFee replaces the fee rate, leaving wallet and admin untouched.
func (m *Manager) UpdateFee(auth common.Authorizer, feeBps uint32) error {
	if feeBps > MaxFeeBps {
		return fmt.Errorf("%w: %d > %d", ErrFeeTooHigh, feeBps, MaxFeeBps)
	}
	cfg, err := m.requireAdmin(auth)
	if err != nil {
		return err
	}
	cfg.FeeBps = feeBps
	return m.state.PlatformConfigPut(cfg)
}

// UpdateWallet replaces the fee destination wallet, leaving the rate and
// admin untouched.
func (m *Manager) UpdateWallet(auth common.Authorizer, wallet [20]byte) error {
	cfg, err := m.requireAdmin(auth)
	if err != nil {
		return err
	}
	cfg.Wallet = wallet
	return m.state.PlatformConfigPut(cfg)
}

// Fee returns the configured fee rate in basis points.
func (m *Manager) Fee() (uint32, error) {
	cfg, err := m.load()
	if err != nil {
		return 0, err
	}
	return cfg.FeeBps, nil
}

// Wallet returns the identity that receives collected fees.
func (m *Manager) Wallet() ([20]byte, error) {
	cfg, err := m.load()
	if err != nil {
		return [20]byte{}, err
	}
	return cfg.Wallet, nil
}

// AdminAddress returns the identity authorized to change the policy.
func (m *Manager) AdminAddress() ([20]byte, error) {
	cfg, err := m.load()
	if err != nil {
		return [20]byte{}, err
	}
	return cfg.Admin, nil
}

// FeePolicy resolves the rate and destination wallet applied when an escrow
// settles in favour of the seller.
func (m *Manager) FeePolicy() (uint32, [20]byte, error) {
	cfg, err := m.load()
	if err != nil {
		return 0, [20]byte{}, err
	}
	return cfg.FeeBps, cfg.Wallet, nil
}

// AccrueFees adds a collected fee to the accumulator. Zero amounts are a
// no-op; negative amounts are rejected.
func (m *Manager) AccrueFees(amount *big.Int) error {
	state, err := m.withState()
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("platform: fee accrual must be non-negative")
	}
	return state.FeeLedgerAccrue(amount)
}

// TotalFees reads the accumulator. A ledger that was never written reports
// zero rather than an error.
func (m *Manager) TotalFees() (*big.Int, error) {
	state, err := m.withState()
	if err != nil {
		return nil, err
	}
	return state.FeeLedgerTotal()
}
