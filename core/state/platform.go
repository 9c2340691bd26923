package state

import (
	"fmt"
	"math/big"

	"escrowd/native/platform"
)

type storedPlatformConfig struct {
	FeeBps uint32
	Wallet [20]byte
	Admin  [20]byte
}

// PlatformConfigPut persists the fee policy singleton.
func (m *Manager) PlatformConfigPut(cfg *platform.Config) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: manager not initialised")
	}
	if cfg == nil {
		return fmt.Errorf("state: nil platform config")
	}
	if cfg.FeeBps > platform.MaxFeeBps {
		return fmt.Errorf("state: platform fee bps out of range: %d", cfg.FeeBps)
	}
	stored := storedPlatformConfig{FeeBps: cfg.FeeBps, Wallet: cfg.Wallet, Admin: cfg.Admin}
	return m.kvPut(platformConfigKey, &stored)
}

// PlatformConfigGet loads the fee policy singleton. The boolean reports
// whether the configuration has been initialized.
func (m *Manager) PlatformConfigGet() (*platform.Config, bool, error) {
	if m == nil || m.db == nil {
		return nil, false, fmt.Errorf("state: manager not initialised")
	}
	var stored storedPlatformConfig
	ok, err := m.kvGet(platformConfigKey, &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &platform.Config{FeeBps: stored.FeeBps, Wallet: stored.Wallet, Admin: stored.Admin}, true, nil
}

// FeeLedgerAccrue adds a collected fee to the monotonic accumulator.
func (m *Manager) FeeLedgerAccrue(amount *big.Int) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: manager not initialised")
	}
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("state: fee accrual must be non-negative")
	}
	total, err := m.FeeLedgerTotal()
	if err != nil {
		return err
	}
	total = new(big.Int).Add(total, amount)
	return m.kvPut(feeLedgerKey, total)
}

// FeeLedgerTotal reads the accumulator, reporting zero when it was never
// written.
func (m *Manager) FeeLedgerTotal() (*big.Int, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("state: manager not initialised")
	}
	total := new(big.Int)
	ok, err := m.kvGet(feeLedgerKey, total)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return total, nil
}

// FeeLedgerReset zeroes the accumulator. Only platform initialization may
// invoke this.
func (m *Manager) FeeLedgerReset() error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: manager not initialised")
	}
	return m.kvPut(feeLedgerKey, big.NewInt(0))
}
