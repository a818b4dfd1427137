package orchestrator

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"cipherdex/internal/chain"
	"cipherdex/internal/dex"
	"cipherdex/internal/model"
)

// LiquidityResult reports a confirmed liquidity change.
type LiquidityResult struct {
	TxHash         common.Hash
	ReservesSynced bool
}

// AddLiquidity provisions both legs of a pool. On mixed and encrypted
// dialects each leg must be funded on its own side of the confidentiality
// boundary; when the balance sits on the other side, a wrap or unwrap
// transaction is inserted before approval.
type AddLiquidity struct {
	deps   Deps
	resync *ReserveResync
	m      *machine
}

func NewAddLiquidity(deps Deps) *AddLiquidity {
	d := deps.normalize()
	return &AddLiquidity{deps: d, resync: NewReserveResync(d), m: newMachine("add-liquidity", d.Logger)}
}

func (a *AddLiquidity) Step() Step          { return a.m.Step() }
func (a *AddLiquidity) Err() *model.TxError { return a.m.Err() }
func (a *AddLiquidity) Reset()              { a.m.Reset() }

// Run adds amountA of tokenA and amountB of tokenB. Amounts follow the
// caller's token order and are mapped onto the pool's canonical slots here.
func (a *AddLiquidity) Run(ctx context.Context, tokenA, tokenB model.Token, amountA, amountB *big.Int) (*LiquidityResult, error) {
	fail := func(err error) (*LiquidityResult, error) {
		return nil, a.m.fail(classify(err))
	}

	if err := a.m.to(StepChecking); err != nil {
		return fail(err)
	}
	if amountA == nil || amountA.Sign() <= 0 || amountB == nil || amountB.Sign() <= 0 {
		return nil, a.m.fail(model.NewTxError(model.KindUnknown, "both liquidity amounts must be positive", nil))
	}

	pool, dialect, err := a.deps.Resolver.Resolve(tokenA, tokenB)
	if err != nil {
		return fail(err)
	}
	if err := requireSession(a.deps, dialect); err != nil {
		return fail(err)
	}

	amount0, amount1 := amountA, amountB
	if pool.Token0.Address != tokenA.Address {
		amount0, amount1 = amount1, amount0
	}

	var baseline0, baseline1 *big.Int
	if dialect.RequiresEncryption() {
		baseline0, baseline1, err = a.resync.Baseline(ctx, dialect, pool.PoolID)
		if err != nil {
			return fail(fmt.Errorf("read baseline reserves: %w", err))
		}
	}

	// Move balance between a leg and its confidential counterpart when the
	// user holds the value only on the other side.
	conversions, err := a.pendingConversions(ctx, pool, amount0, amount1)
	if err != nil {
		return fail(err)
	}
	if len(conversions) > 0 {
		if err := a.m.to(StepWrapping); err != nil {
			return fail(err)
		}
		for _, conv := range conversions {
			if err := a.convert(ctx, conv); err != nil {
				return fail(err)
			}
		}
	}

	if err := a.m.to(StepApproving); err != nil {
		return fail(err)
	}
	entry := dialect.EntryPoint()
	owner := a.deps.Wallet.Address()
	if err := ensureAllowance(ctx, a.deps, pool.Token0, entry, owner, amount0); err != nil {
		return fail(err)
	}
	if err := ensureAllowance(ctx, a.deps, pool.Token1, entry, owner, amount1); err != nil {
		return fail(err)
	}

	args := dex.AddLiquidityArgs{Pool: pool, Deadline: a.deps.deadline(time.Now())}
	if dialect.RequiresEncryption() {
		if err := a.m.to(StepEncrypting); err != nil {
			return fail(err)
		}
		if pool.Token0.Kind == model.TokenEncrypted {
			if args.EncAmount0, err = a.deps.Session.Encrypt(ctx, amount0); err != nil {
				return fail(err)
			}
		} else {
			args.Amount0 = amount0
		}
		if pool.Token1.Kind == model.TokenEncrypted {
			if args.EncAmount1, err = a.deps.Session.Encrypt(ctx, amount1); err != nil {
				return fail(err)
			}
		} else {
			args.Amount1 = amount1
		}
	} else {
		args.Amount0 = amount0
		args.Amount1 = amount1
	}

	if err := a.m.to(StepSubmitting); err != nil {
		return fail(err)
	}
	call, err := dialect.AddLiquidity(args)
	if err != nil {
		return fail(err)
	}
	txHash, err := submitAndWait(ctx, a.deps, call)
	if err != nil {
		return fail(err)
	}

	synced := true
	if dialect.RequiresEncryption() {
		synced, err = a.resync.Run(ctx, dialect, pool.PoolID, baseline0, baseline1)
		if err != nil && ctx.Err() != nil {
			return fail(err)
		}
	}

	if err := a.m.to(StepComplete); err != nil {
		return fail(err)
	}
	return &LiquidityResult{TxHash: txHash, ReservesSynced: synced}, nil
}

// pendingConversion is one wrap or unwrap to run before approval. Target is
// the confidential token contract the call goes to; wrap locks plaintext
// into ciphertext balance, unwrap burns ciphertext back to plaintext.
type pendingConversion struct {
	target common.Address
	symbol string
	amount *big.Int
	wrap   bool
}

// pendingConversions inspects both legs. An encrypted leg with no ciphertext
// balance is funded by wrapping the paired plaintext token; a plaintext leg
// short of its amount is topped up by unwrapping the paired encrypted token.
// Ciphertext magnitude is not observable, so only handle existence is
// checked and an unwrap that overdraws reverts on chain.
func (a *AddLiquidity) pendingConversions(ctx context.Context, pool model.PoolDescriptor, amount0, amount1 *big.Int) ([]pendingConversion, error) {
	var conversions []pendingConversion
	owner := a.deps.Wallet.Address()

	for _, leg := range []struct {
		token  model.Token
		amount *big.Int
	}{
		{token: pool.Token0, amount: amount0},
		{token: pool.Token1, amount: amount1},
	} {
		if !leg.token.HasPair() {
			continue
		}

		if leg.token.Kind == model.TokenEncrypted {
			handle, err := a.deps.Ledger.EncryptedBalanceHandle(ctx, leg.token.Address, owner)
			if err != nil {
				return nil, fmt.Errorf("read encrypted balance handle: %w", err)
			}
			if handle != (common.Hash{}) {
				continue
			}
			plainBalance, err := a.deps.Ledger.BalanceOf(ctx, leg.token.PairedToken, owner)
			if err != nil {
				return nil, fmt.Errorf("read paired balance: %w", err)
			}
			if plainBalance.Cmp(leg.amount) < 0 {
				return nil, model.NewTxError(model.KindInsufficientBalance,
					fmt.Sprintf("need %s %s in plaintext or wrapped form", leg.amount, leg.token.Symbol), nil)
			}
			conversions = append(conversions, pendingConversion{
				target: leg.token.Address,
				symbol: leg.token.Symbol,
				amount: leg.amount,
				wrap:   true,
			})
			continue
		}

		plainBalance, err := a.deps.Ledger.BalanceOf(ctx, leg.token.Address, owner)
		if err != nil {
			return nil, fmt.Errorf("read plaintext balance: %w", err)
		}
		if plainBalance.Cmp(leg.amount) >= 0 {
			continue
		}
		handle, err := a.deps.Ledger.EncryptedBalanceHandle(ctx, leg.token.PairedToken, owner)
		if err != nil {
			return nil, fmt.Errorf("read paired encrypted handle: %w", err)
		}
		if handle == (common.Hash{}) {
			return nil, model.NewTxError(model.KindInsufficientBalance,
				fmt.Sprintf("need %s %s in plaintext or wrapped form", leg.amount, leg.token.Symbol), nil)
		}
		conversions = append(conversions, pendingConversion{
			target: leg.token.PairedToken,
			symbol: leg.token.Symbol,
			amount: new(big.Int).Sub(leg.amount, plainBalance),
			wrap:   false,
		})
	}
	return conversions, nil
}

func (a *AddLiquidity) convert(ctx context.Context, conv pendingConversion) error {
	builder, verb := chain.WrapCall, "wrap"
	if !conv.wrap {
		builder, verb = chain.UnwrapCall, "unwrap"
	}
	call, err := builder(conv.target, conv.amount)
	if err != nil {
		return err
	}
	txHash, err := submitAndWait(ctx, a.deps, call)
	if err != nil {
		return fmt.Errorf("%s %s: %w", verb, conv.symbol, err)
	}
	a.deps.Logger.Info("converted balance between plaintext and encrypted form",
		zap.String("token", conv.symbol),
		zap.String("direction", verb),
		zap.String("amount", conv.amount.String()),
		zap.String("tx", txHash.Hex()))
	return nil
}

// RemoveLiquidity burns pool shares. Shares are confidential on encrypted
// dialects, so the amount is encrypted before submission; afterwards the
// reserve cache is resynchronized.
type RemoveLiquidity struct {
	deps   Deps
	resync *ReserveResync
	m      *machine
}

func NewRemoveLiquidity(deps Deps) *RemoveLiquidity {
	d := deps.normalize()
	return &RemoveLiquidity{deps: d, resync: NewReserveResync(d), m: newMachine("remove-liquidity", d.Logger)}
}

func (r *RemoveLiquidity) Step() Step          { return r.m.Step() }
func (r *RemoveLiquidity) Err() *model.TxError { return r.m.Err() }
func (r *RemoveLiquidity) Reset()              { r.m.Reset() }

// Run removes shares from the pool. A nil shares value means "remove all"
// and is encoded as the max-uint128 sentinel.
func (r *RemoveLiquidity) Run(ctx context.Context, tokenA, tokenB model.Token, shares *big.Int) (*LiquidityResult, error) {
	fail := func(err error) (*LiquidityResult, error) {
		return nil, r.m.fail(classify(err))
	}

	if err := r.m.to(StepChecking); err != nil {
		return fail(err)
	}
	if shares == nil {
		shares = new(big.Int).Set(MaxUint128)
	}
	if shares.Sign() <= 0 {
		return nil, r.m.fail(model.NewTxError(model.KindUnknown, "share amount must be positive", nil))
	}

	pool, dialect, err := r.deps.Resolver.Resolve(tokenA, tokenB)
	if err != nil {
		return fail(err)
	}
	if err := requireSession(r.deps, dialect); err != nil {
		return fail(err)
	}

	var baseline0, baseline1 *big.Int
	if dialect.RequiresEncryption() {
		baseline0, baseline1, err = r.resync.Baseline(ctx, dialect, pool.PoolID)
		if err != nil {
			return fail(fmt.Errorf("read baseline reserves: %w", err))
		}
	}

	args := dex.RemoveLiquidityArgs{Pool: pool, Deadline: r.deps.deadline(time.Now())}
	if dialect.RequiresEncryption() {
		if err := r.m.to(StepEncrypting); err != nil {
			return fail(err)
		}
		if args.EncShares, err = r.deps.Session.Encrypt(ctx, shares); err != nil {
			return fail(err)
		}
	} else {
		args.Shares = shares
	}

	if err := r.m.to(StepSubmitting); err != nil {
		return fail(err)
	}
	call, err := dialect.RemoveLiquidity(args)
	if err != nil {
		return fail(err)
	}
	txHash, err := submitAndWait(ctx, r.deps, call)
	if err != nil {
		return fail(err)
	}

	synced := true
	if dialect.RequiresEncryption() {
		synced, err = r.resync.Run(ctx, dialect, pool.PoolID, baseline0, baseline1)
		if err != nil && ctx.Err() != nil {
			return fail(err)
		}
	}

	if err := r.m.to(StepComplete); err != nil {
		return fail(err)
	}
	return &LiquidityResult{TxHash: txHash, ReservesSynced: synced}, nil
}
