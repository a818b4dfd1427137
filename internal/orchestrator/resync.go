package orchestrator

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"cipherdex/internal/chain"
	"cipherdex/internal/dex"
)

// ReserveResync refreshes the stale plaintext reserve cache after a mutation
// of encrypted reserves. A mutating call only schedules a decryption; the
// cache catches up when a harvest call lands after the backend resolves it.
type ReserveResync struct {
	deps Deps
}

func NewReserveResync(deps Deps) *ReserveResync {
	return &ReserveResync{deps: deps.normalize()}
}

// Baseline reads the reserves before a mutating operation so Run can detect
// the change afterwards.
func (r *ReserveResync) Baseline(ctx context.Context, dialect dex.Dialect, poolID common.Hash) (*big.Int, *big.Int, error) {
	return readReserves(ctx, r.deps.Ledger, dialect, poolID)
}

// Run polls until the reserves differ from the baseline or the attempt
// budget runs out. Each attempt waits one interval, invokes the harvest
// entry point (a harvest that resolves nothing is expected, not an error),
// and re-reads. Exhausting the budget returns changed=false with no error:
// the mutating transaction already succeeded, only the display cache is
// stale, and the caller surfaces that as a soft warning.
func (r *ReserveResync) Run(ctx context.Context, dialect dex.Dialect, poolID common.Hash, baseline0, baseline1 *big.Int) (bool, error) {
	syncCall, err := dialect.SyncReservesCall(poolID)
	if errors.Is(err, dex.ErrNoReserveSync) {
		// Plaintext reserves are never stale.
		return true, nil
	}
	if err != nil {
		return false, err
	}

	attempts := r.deps.Config.ResyncAttempts
	interval := r.deps.Config.ResyncInterval

	for attempt := 1; attempt <= attempts; attempt++ {
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
		}

		if err := r.harvest(ctx, syncCall); err != nil {
			r.deps.Logger.Debug("harvest not resolved yet",
				zap.Int("attempt", attempt),
				zap.Error(err))
		}

		r0, r1, err := readReserves(ctx, r.deps.Ledger, dialect, poolID)
		if err != nil {
			r.deps.Logger.Debug("reserve re-read failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}
		if r0.Cmp(baseline0) != 0 || r1.Cmp(baseline1) != 0 {
			r.deps.Logger.Info("reserves resynchronized",
				zap.Int("attempts", attempt),
				zap.String("pool", poolID.Hex()))
			return true, nil
		}
	}

	r.deps.Logger.Warn("reserves still stale after resync budget",
		zap.Int("attempts", attempts),
		zap.String("pool", poolID.Hex()))
	return false, nil
}

func (r *ReserveResync) harvest(ctx context.Context, call chain.Call) error {
	txHash, err := r.deps.Ledger.Submit(ctx, r.deps.Wallet, call)
	if err != nil {
		return err
	}
	_, err = r.deps.Ledger.WaitMined(ctx, txHash, r.deps.Config.WaitAttempts, r.deps.Config.WaitInterval)
	return err
}
