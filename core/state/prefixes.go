package state

import (
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	escrowPrefix  = []byte("escrow/record/")
	balancePrefix = []byte("ledger/balance/")
	custodyPrefix = []byte("escrow/custody/")
)

var (
	platformConfigKey = []byte("platform/config")
	feeLedgerKey      = []byte("platform/fees/collected")
)

func escrowKey(orderID uint32) []byte {
	buf := make([]byte, len(escrowPrefix)+4)
	copy(buf, escrowPrefix)
	binary.BigEndian.PutUint32(buf[len(escrowPrefix):], orderID)
	return buf
}

func balanceKey(addr [20]byte, asset string) []byte {
	buf := make([]byte, len(balancePrefix)+len(asset)+1+len(addr))
	copy(buf, balancePrefix)
	offset := len(balancePrefix)
	copy(buf[offset:], asset)
	offset += len(asset)
	buf[offset] = ':'
	offset++
	copy(buf[offset:], addr[:])
	return buf
}

// hashKey collapses a logical key into the fixed-width form used by the
// underlying store, namespacing all engine state behind keccak256.
func hashKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}
