package fhe

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"cipherdex/internal/model"
)

// Mock type tags let decrypt reject handles produced elsewhere.
const (
	mockTagUint uint8 = 0x10
	mockTagBool uint8 = 0x11
)

// MockProvider is a reversible identity "encryption": the plaintext is
// embedded directly in the handle hash. It exists so the full orchestration
// path runs end to end without the cryptographic backend; everything outside
// the provider behaves identically in both modes.
type MockProvider struct{}

// NewMockProvider returns the identity provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) Mock() bool { return true }

func (p *MockProvider) Encrypt(_ context.Context, value *big.Int) (model.CiphertextHandle, error) {
	if value == nil || value.Sign() < 0 {
		return model.CiphertextHandle{}, fmt.Errorf("mock encrypt: value must be a non-negative integer")
	}
	if value.BitLen() > 256 {
		return model.CiphertextHandle{}, fmt.Errorf("mock encrypt: value exceeds 256 bits")
	}
	return model.CiphertextHandle{
		Hash:    common.BigToHash(value),
		TypeTag: mockTagUint,
	}, nil
}

func (p *MockProvider) EncryptBool(_ context.Context, value bool) (model.CiphertextHandle, error) {
	v := big.NewInt(0)
	if value {
		v = big.NewInt(1)
	}
	return model.CiphertextHandle{
		Hash:    common.BigToHash(v),
		TypeTag: mockTagBool,
	}, nil
}

func (p *MockProvider) Decrypt(_ context.Context, handle model.CiphertextHandle) (*big.Int, error) {
	if handle.TypeTag != mockTagUint && handle.TypeTag != mockTagBool {
		return nil, fmt.Errorf("mock decrypt: unrecognized handle tag %#x", handle.TypeTag)
	}
	return handle.Hash.Big(), nil
}
