package escrow_test

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"reflect"
	"testing"

	escrowpkg "escrowd/native/escrow"
)

func TestEscrowEventsHaveDeterministicPayload(t *testing.T) {
	var buyer [20]byte
	copy(buyer[:], bytes.Repeat([]byte{0xBB}, 20))
	var seller [20]byte
	copy(seller[:], bytes.Repeat([]byte{0xCC}, 20))

	record := &escrowpkg.Escrow{
		OrderID:       42,
		Buyer:         buyer,
		Seller:        seller,
		Asset:         "USDC",
		Amount:        big.NewInt(42_000),
		Status:        escrowpkg.StatusReleased,
		CreatedAt:     1_700_000_123,
		ReleaseWindow: 3600,
	}
	event := escrowpkg.NewReleasedEvent(record, big.NewInt(525))
	if event.Type != escrowpkg.EventTypeEscrowReleased {
		t.Fatalf("unexpected event type %s", event.Type)
	}
	expected := map[string]string{
		"orderId":       "42",
		"buyer":         hex.EncodeToString(buyer[:]),
		"seller":        hex.EncodeToString(seller[:]),
		"asset":         "USDC",
		"amount":        "42000",
		"status":        "released",
		"createdAt":     "1700000123",
		"releaseWindow": "3600",
		"fee":           "525",
	}
	if !reflect.DeepEqual(event.Attributes, expected) {
		t.Fatalf("unexpected attributes: %#v", event.Attributes)
	}
}

func TestEscrowEventsTolerateNilRecord(t *testing.T) {
	event := escrowpkg.NewCreatedEvent(nil)
	if event.Type != escrowpkg.EventTypeEscrowCreated {
		t.Fatalf("unexpected event type %s", event.Type)
	}
	if len(event.Attributes) != 0 {
		t.Fatalf("nil record must yield empty attributes, got %#v", event.Attributes)
	}
}

func TestRefundEventCarriesNoFee(t *testing.T) {
	var buyer [20]byte
	copy(buyer[:], bytes.Repeat([]byte{0x01}, 20))
	var seller [20]byte
	copy(seller[:], bytes.Repeat([]byte{0x02}, 20))
	record := &escrowpkg.Escrow{
		OrderID: 1,
		Buyer:   buyer,
		Seller:  seller,
		Asset:   "USDC",
		Amount:  big.NewInt(10),
		Status:  escrowpkg.StatusRefunded,
	}
	event := escrowpkg.NewRefundedEvent(record)
	if _, ok := event.Attributes["fee"]; ok {
		t.Fatalf("refund events must not carry a fee attribute")
	}
}
