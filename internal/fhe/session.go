package fhe

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"cipherdex/internal/model"
)

// Session owns one provider instance for one (account, chain) binding. It is
// constructed explicitly, injected into orchestrators, and must be disposed
// and re-initialized on wallet disconnect or chain switch. All methods are
// safe for concurrent use by independent orchestrators.
type Session struct {
	provider      Provider
	retryInterval time.Duration
	logger        *zap.Logger

	mu      sync.RWMutex
	account common.Address
	chainID uint64
	ready   bool
}

// NewSession wraps a provider. retryInterval is the initial backoff between
// decrypt attempts; tests pass a zero-ish value to run without delay.
func NewSession(provider Provider, retryInterval time.Duration, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retryInterval <= 0 {
		retryInterval = time.Millisecond
	}
	return &Session{
		provider:      provider,
		retryInterval: retryInterval,
		logger:        logger,
	}
}

// Init binds the session to an account and chain and marks it ready.
func (s *Session) Init(account common.Address, chainID uint64) error {
	if s.provider == nil {
		return fmt.Errorf("init session: provider is nil")
	}
	s.mu.Lock()
	s.account = account
	s.chainID = chainID
	s.ready = true
	s.mu.Unlock()
	s.logger.Info("encryption session ready",
		zap.String("account", account.Hex()),
		zap.Uint64("chain_id", chainID),
		zap.Bool("mock", s.provider.Mock()))
	return nil
}

// Dispose invalidates the session. Subsequent calls fail with ErrNotReady
// until Init runs again.
func (s *Session) Dispose() {
	s.mu.Lock()
	s.ready = false
	s.mu.Unlock()
}

// Ready reports whether the session can serve encryption requests.
func (s *Session) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Matches reports whether the session is bound to the given account and
// chain. A mismatch means the caller must dispose and re-initialize.
func (s *Session) Matches(account common.Address, chainID uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready && s.account == account && s.chainID == chainID
}

// Mock reports whether the underlying provider is the identity mock.
func (s *Session) Mock() bool {
	return s.provider != nil && s.provider.Mock()
}

// Encrypt turns a plaintext amount into a ciphertext handle.
func (s *Session) Encrypt(ctx context.Context, value *big.Int) (model.CiphertextHandle, error) {
	if !s.Ready() {
		return model.CiphertextHandle{}, model.NewTxError(model.KindSessionNotReady, "", ErrNotReady)
	}
	handle, err := s.provider.Encrypt(ctx, value)
	if err != nil {
		return model.CiphertextHandle{}, fmt.Errorf("encrypt amount: %w", err)
	}
	return handle, nil
}

// EncryptBool turns a boolean into a ciphertext handle.
func (s *Session) EncryptBool(ctx context.Context, value bool) (model.CiphertextHandle, error) {
	if !s.Ready() {
		return model.CiphertextHandle{}, model.NewTxError(model.KindSessionNotReady, "", ErrNotReady)
	}
	handle, err := s.provider.EncryptBool(ctx, value)
	if err != nil {
		return model.CiphertextHandle{}, fmt.Errorf("encrypt bool: %w", err)
	}
	return handle, nil
}

// Decrypt resolves a ciphertext handle, retrying transient failures up to
// maxAttempts with exponential backoff. Exhausting attempts returns
// ErrDecryptExhausted; the caller must surface that as a failure, never as a
// zero balance.
func (s *Session) Decrypt(ctx context.Context, handle model.CiphertextHandle, maxAttempts int) (*big.Int, error) {
	if !s.Ready() {
		return nil, model.NewTxError(model.KindSessionNotReady, "", ErrNotReady)
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.retryInterval
	policy.MaxInterval = 8 * s.retryInterval

	var value *big.Int
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		decrypted, err := s.provider.Decrypt(ctx, handle)
		if err != nil {
			s.logger.Debug("decrypt attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		value = decrypted
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(maxAttempts-1)), ctx))
	if err != nil {
		return nil, fmt.Errorf("%w after %d attempts: %v", ErrDecryptExhausted, attempt, err)
	}
	return value, nil
}
