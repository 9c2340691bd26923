package common

import (
	"bytes"
	"errors"
	"testing"
)

func testAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func TestCallerAuthorizer(t *testing.T) {
	caller := testAddress(0x01)
	other := testAddress(0x02)

	auth := NewCallerAuthorizer(caller)
	if err := auth.Require(caller); err != nil {
		t.Fatalf("expected caller to be authorized: %v", err)
	}
	if err := auth.Require(other); !errors.Is(err, ErrIdentityMismatch) {
		t.Fatalf("expected mismatch for other identity, got %v", err)
	}
}

func TestZeroCallerAuthorizerDeniesEverything(t *testing.T) {
	var auth CallerAuthorizer
	if err := auth.Require([20]byte{}); !errors.Is(err, ErrIdentityMismatch) {
		t.Fatalf("zero authorizer must deny even the zero identity, got %v", err)
	}
}
