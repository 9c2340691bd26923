package common

import "errors"

// ErrIdentityMismatch is the canonical failure returned by authorizers when
// the invocation cannot be attributed to the required identity.
var ErrIdentityMismatch = errors.New("auth: identity mismatch")

// Authorizer proves that the current invocation is cryptographically
// attributable to an identity. Require succeeds only for identities the
// caller controls; any other identity aborts the operation.
type Authorizer interface {
	Require(identity [20]byte) error
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(identity [20]byte) error

// Require implements the Authorizer interface.
func (f AuthorizerFunc) Require(identity [20]byte) error { return f(identity) }

// CallerAuthorizer authorizes exactly one identity, the attributed caller.
// The zero value authorizes nobody.
type CallerAuthorizer struct {
	caller [20]byte
	valid  bool
}

// NewCallerAuthorizer binds an authorizer to a single attributed identity.
func NewCallerAuthorizer(caller [20]byte) CallerAuthorizer {
	return CallerAuthorizer{caller: caller, valid: true}
}

// Require implements the Authorizer interface.
func (a CallerAuthorizer) Require(identity [20]byte) error {
	if !a.valid || identity != a.caller {
		return ErrIdentityMismatch
	}
	return nil
}
