// Package fhe holds the client side of the encrypted value contract: the
// provider interface the external cryptographic backend fulfils, the session
// that owns one provider instance, and a mock provider for offline runs.
package fhe

import (
	"context"
	"errors"
	"math/big"

	"cipherdex/internal/model"
)

var (
	// ErrNotReady is returned when encryption is requested before the
	// session is initialized or after it was disposed.
	ErrNotReady = errors.New("encryption session not ready")

	// ErrDecryptExhausted marks a decrypt that failed every attempt. It is
	// terminal and must never be collapsed into a zero value.
	ErrDecryptExhausted = errors.New("decrypt attempts exhausted")
)

// Provider is the external encryption capability. Encrypt may block on a
// round-trip to the attestation service. Decrypt performs a single attempt;
// retry policy belongs to the Session so it is identical in mock and real
// mode.
type Provider interface {
	Encrypt(ctx context.Context, value *big.Int) (model.CiphertextHandle, error)
	EncryptBool(ctx context.Context, value bool) (model.CiphertextHandle, error)
	Decrypt(ctx context.Context, handle model.CiphertextHandle) (*big.Int, error)

	// Mock reports whether the provider is the reversible identity
	// implementation rather than a real cryptographic backend.
	Mock() bool
}
