package orchestrator

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"cipherdex/internal/dex"
	"cipherdex/internal/model"
	"cipherdex/internal/tickmath"
)

// Withdraw cancels the unfilled remainder of a bucket position. A nil amount
// means "withdraw everything": it is encoded as the max-uint128 sentinel,
// never reinterpreted as zero.
type Withdraw struct {
	deps Deps
	m    *machine
}

func NewWithdraw(deps Deps) *Withdraw {
	d := deps.normalize()
	return &Withdraw{deps: d, m: newMachine("withdraw", d.Logger)}
}

func (w *Withdraw) Step() Step          { return w.m.Step() }
func (w *Withdraw) Err() *model.TxError { return w.m.Err() }
func (w *Withdraw) Reset()              { w.m.Reset() }

// Run withdraws amount (or everything when amount is nil) from the bucket at
// (tick, side).
func (w *Withdraw) Run(ctx context.Context, tokenA, tokenB model.Token, tick int32, side model.Side, amount *big.Int) (common.Hash, error) {
	fail := func(err error) (common.Hash, error) {
		return common.Hash{}, w.m.fail(classify(err))
	}

	if err := w.m.to(StepChecking); err != nil {
		return fail(err)
	}
	if amount == nil {
		amount = new(big.Int).Set(MaxUint128)
	}
	if amount.Sign() <= 0 {
		return common.Hash{}, w.m.fail(model.NewTxError(model.KindUnknown, "withdraw amount must be positive", nil))
	}

	pool, dialect, err := w.deps.Resolver.Resolve(tokenA, tokenB)
	if err != nil {
		return fail(err)
	}
	if err := tickmath.Validate(tick, pool.TickSpacing); err != nil {
		return fail(err)
	}
	if err := requireSession(w.deps, dialect); err != nil {
		return fail(err)
	}

	args := dex.WithdrawArgs{Pool: pool, Tick: tick, Side: side}
	if dialect.RequiresEncryption() {
		if err := w.m.to(StepEncrypting); err != nil {
			return fail(err)
		}
		handle, err := w.deps.Session.Encrypt(ctx, amount)
		if err != nil {
			return fail(err)
		}
		args.EncAmount = handle
	} else {
		args.Amount = amount
	}

	if err := w.m.to(StepSubmitting); err != nil {
		return fail(err)
	}
	call, err := dialect.Withdraw(args)
	if err != nil {
		return fail(err)
	}
	txHash, err := submitAndWait(ctx, w.deps, call)
	if err != nil {
		return fail(err)
	}

	if err := w.m.to(StepComplete); err != nil {
		return fail(err)
	}
	return txHash, nil
}
