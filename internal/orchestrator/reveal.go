package orchestrator

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"cipherdex/internal/model"
)

const revealCacheSize = 256

// revealKey identifies one cached decrypted balance.
type revealKey struct {
	account common.Address
	chainID uint64
	token   common.Address
	pool    common.Hash
}

// Snapshots is the optional persistence behind the reveal cache. The cache
// is correct when empty, so load failures are treated as misses and save
// failures as log-only.
type Snapshots interface {
	Load(ctx context.Context) ([]model.RevealSnapshot, error)
	Save(ctx context.Context, snapshots []model.RevealSnapshot) error
}

// BalanceReveal decrypts a user's encrypted balance on demand, with a
// TTL-bounded cache. A failed decrypt is surfaced as an error and is never
// rendered as a zero balance.
type BalanceReveal struct {
	deps    Deps
	chainID uint64
	ttl     time.Duration
	cache   *lru.LRU[revealKey, *big.Int]
	store   Snapshots
}

// NewBalanceReveal builds the reveal orchestrator. ttl bounds how long a
// decrypted value is shown before a fresh decrypt is forced; store may be
// nil for a purely in-memory cache.
func NewBalanceReveal(deps Deps, chainID uint64, ttl time.Duration, store Snapshots) *BalanceReveal {
	d := deps.normalize()
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &BalanceReveal{
		deps:    d,
		chainID: chainID,
		ttl:     ttl,
		cache:   lru.NewLRU[revealKey, *big.Int](revealCacheSize, nil, ttl),
		store:   store,
	}
}

// Warm seeds the cache from persisted snapshots, skipping entries older than
// the TTL. Failure to load is a cache miss, not an error.
func (b *BalanceReveal) Warm(ctx context.Context) {
	if b.store == nil {
		return
	}
	snapshots, err := b.store.Load(ctx)
	if err != nil {
		b.deps.Logger.Debug("reveal cache warm skipped", zap.Error(err))
		return
	}
	cutoff := time.Now().Add(-b.ttl).Unix()
	warmed := 0
	for _, snap := range snapshots {
		if snap.ChainID != b.chainID || snap.RevealedAt < cutoff {
			continue
		}
		value, ok := new(big.Int).SetString(snap.Value, 10)
		if !ok {
			continue
		}
		b.cache.Add(revealKey{
			account: snap.Account,
			chainID: snap.ChainID,
			token:   snap.Token,
			pool:    snap.Pool,
		}, value)
		warmed++
	}
	if warmed > 0 {
		b.deps.Logger.Info("reveal cache warmed", zap.Int("entries", warmed))
	}
}

// Reveal returns the decrypted balance of token for account, reading the
// ciphertext handle from the token contract and decrypting it with bounded
// retry. Values younger than the TTL are served from cache.
func (b *BalanceReveal) Reveal(ctx context.Context, account common.Address, token model.Token) (*big.Int, error) {
	return b.reveal(ctx, account, token, common.Hash{}, func(ctx context.Context) (model.CiphertextHandle, error) {
		hash, err := b.deps.Ledger.EncryptedBalanceHandle(ctx, token.Address, account)
		if err != nil {
			return model.CiphertextHandle{}, fmt.Errorf("read balance handle: %w", err)
		}
		return model.CiphertextHandle{Hash: hash}, nil
	})
}

// RevealPosition decrypts the share balance of a position from an already
// obtained handle.
func (b *BalanceReveal) RevealPosition(ctx context.Context, position model.Position) (*big.Int, error) {
	if position.Shares != nil {
		return position.Shares, nil
	}
	owner := position.Owner
	// Cache under the pool so the same token in two pools never collides.
	return b.reveal(ctx, owner, model.Token{}, position.Bucket.PoolID, func(context.Context) (model.CiphertextHandle, error) {
		if position.SharesHandle.IsZero() {
			return model.CiphertextHandle{}, fmt.Errorf("position has no shares handle")
		}
		return position.SharesHandle, nil
	})
}

func (b *BalanceReveal) reveal(ctx context.Context, account common.Address, token model.Token, pool common.Hash, handleFn func(context.Context) (model.CiphertextHandle, error)) (*big.Int, error) {
	key := revealKey{account: account, chainID: b.chainID, token: token.Address, pool: pool}
	if cached, ok := b.cache.Get(key); ok {
		return cached, nil
	}

	handle, err := handleFn(ctx)
	if err != nil {
		return nil, classify(err)
	}
	if handle.IsZero() {
		// No ciphertext exists: the balance is legitimately zero.
		value := new(big.Int)
		b.cache.Add(key, value)
		return value, nil
	}

	value, err := b.deps.Session.Decrypt(ctx, handle, b.deps.Config.DecryptAttempts)
	if err != nil {
		return nil, classify(err)
	}

	b.cache.Add(key, value)
	b.persist(ctx, key, value)
	return value, nil
}

// Invalidate drops every cached value, e.g. on wallet or chain switch.
func (b *BalanceReveal) Invalidate() {
	b.cache.Purge()
}

func (b *BalanceReveal) persist(ctx context.Context, key revealKey, value *big.Int) {
	if b.store == nil {
		return
	}
	snap := model.RevealSnapshot{
		Account:    key.account,
		ChainID:    key.chainID,
		Token:      key.token,
		Pool:       key.pool,
		Value:      value.String(),
		RevealedAt: time.Now().Unix(),
	}
	if err := b.store.Save(ctx, []model.RevealSnapshot{snap}); err != nil {
		b.deps.Logger.Debug("reveal snapshot save failed", zap.Error(err))
	}
}
