package state

import (
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"escrowd/native/escrow"
)

// SetBalance stores an account balance for the provided asset, replacing any
// prior value.
func (m *Manager) SetBalance(addr [20]byte, asset string, amount *big.Int) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: manager not initialised")
	}
	normalized, err := escrow.NormalizeAsset(asset)
	if err != nil {
		return err
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("state: negative balance not allowed")
	}
	return m.kvPut(balanceKey(addr, normalized), amount)
}

// Balance retrieves an asset balance for the provided account. Accounts with
// no stored balance report zero.
func (m *Manager) Balance(addr [20]byte, asset string) (*big.Int, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("state: manager not initialised")
	}
	normalized, err := escrow.NormalizeAsset(asset)
	if err != nil {
		return nil, err
	}
	amount := new(big.Int)
	ok, err := m.kvGet(balanceKey(addr, normalized), amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

// Transfer moves exactly amount of the asset between the two accounts, or
// fails without any balance change. Overdrafts and negative amounts are
// rejected.
func (m *Manager) Transfer(asset string, from, to [20]byte, amount *big.Int) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: manager not initialised")
	}
	normalized, err := escrow.NormalizeAsset(asset)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("state: negative transfer amount")
	}
	if from == to {
		return nil
	}
	fromBal, err := m.Balance(from, normalized)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("state: insufficient %s balance", normalized)
	}
	toBal, err := m.Balance(to, normalized)
	if err != nil {
		return err
	}
	if err := m.kvPut(balanceKey(from, normalized), new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	return m.kvPut(balanceKey(to, normalized), new(big.Int).Add(toBal, amount))
}

// CustodyAddress derives the deterministic engine-owned account that holds
// pending escrow value for the given asset.
func (m *Manager) CustodyAddress(asset string) ([20]byte, error) {
	normalized, err := escrow.NormalizeAsset(asset)
	if err != nil {
		return [20]byte{}, err
	}
	digest := ethcrypto.Keccak256(custodyPrefix, []byte(normalized))
	var addr [20]byte
	copy(addr[:], digest[12:])
	return addr, nil
}
