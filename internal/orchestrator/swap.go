package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"cipherdex/internal/dex"
	"cipherdex/internal/model"
)

// SwapResult reports a confirmed swap.
type SwapResult struct {
	TxHash common.Hash
	Quote  model.Quote
	MinOut *big.Int

	// ReservesSynced is false when the post-swap reserve resynchronization
	// exhausted its budget; the swap itself still succeeded.
	ReservesSynced bool
}

// Swap executes a market swap: quote, approve, encrypt on encrypted
// dialects, submit, confirm, then resynchronize encrypted reserves.
type Swap struct {
	deps   Deps
	resync *ReserveResync
	m      *machine
}

func NewSwap(deps Deps) *Swap {
	d := deps.normalize()
	return &Swap{deps: d, resync: NewReserveResync(d), m: newMachine("swap", d.Logger)}
}

func (s *Swap) Step() Step          { return s.m.Step() }
func (s *Swap) Err() *model.TxError { return s.m.Err() }
func (s *Swap) Reset()              { s.m.Reset() }

// GetQuote reads the expected output for amountIn. On dialects without a
// quoting entry point the result is a constant-product estimate from the
// cached reserves and is flagged Estimated; it must be presented as such.
func (s *Swap) GetQuote(ctx context.Context, tokenIn, tokenOut model.Token, amountIn *big.Int) (model.Quote, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return model.Quote{}, model.NewTxError(model.KindUnknown, "swap amount must be positive", nil)
	}
	pool, dialect, err := s.deps.Resolver.Resolve(tokenIn, tokenOut)
	if err != nil {
		return model.Quote{}, classify(err)
	}
	zeroForOne := tokenIn.Address == pool.Token0.Address

	call, err := dialect.QuoteCall(pool.PoolID, zeroForOne, amountIn)
	if err == nil {
		resp, callErr := s.deps.Ledger.CallContract(ctx, call)
		if callErr != nil {
			return model.Quote{}, classify(fmt.Errorf("quote call: %w", callErr))
		}
		out, unpackErr := dialect.UnpackQuote(resp)
		if unpackErr != nil {
			return model.Quote{}, classify(unpackErr)
		}
		return model.Quote{AmountIn: amountIn, AmountOut: out, Estimated: false}, nil
	}
	if !errors.Is(err, dex.ErrNoQuoter) {
		return model.Quote{}, classify(err)
	}

	r0, r1, err := readReserves(ctx, s.deps.Ledger, dialect, pool.PoolID)
	if err != nil {
		return model.Quote{}, classify(fmt.Errorf("read reserves for estimate: %w", err))
	}
	out := constantProductOut(amountIn, r0, r1, zeroForOne)
	return model.Quote{AmountIn: amountIn, AmountOut: out, Estimated: true}, nil
}

// Run performs the swap of amountIn of tokenIn for tokenOut. The minimum
// output is always computed client-side from the quote and the configured
// slippage tolerance before anything is encrypted or submitted.
func (s *Swap) Run(ctx context.Context, tokenIn, tokenOut model.Token, amountIn *big.Int) (*SwapResult, error) {
	fail := func(err error) (*SwapResult, error) {
		return nil, s.m.fail(classify(err))
	}

	if err := s.m.to(StepChecking); err != nil {
		return fail(err)
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, s.m.fail(model.NewTxError(model.KindUnknown, "swap amount must be positive", nil))
	}

	pool, dialect, err := s.deps.Resolver.Resolve(tokenIn, tokenOut)
	if err != nil {
		return fail(err)
	}
	if err := requireSession(s.deps, dialect); err != nil {
		return fail(err)
	}
	zeroForOne := tokenIn.Address == pool.Token0.Address

	quote, err := s.GetQuote(ctx, tokenIn, tokenOut, amountIn)
	if err != nil {
		return fail(err)
	}
	minOut := quote.MinOutput(s.deps.Config.SlippageBps)
	s.deps.Logger.Info("swap quoted",
		zap.String("amount_in", amountIn.String()),
		zap.String("amount_out", quote.AmountOut.String()),
		zap.String("min_out", minOut.String()),
		zap.Bool("estimated", quote.Estimated))

	var baseline0, baseline1 *big.Int
	if dialect.RequiresEncryption() {
		baseline0, baseline1, err = s.resync.Baseline(ctx, dialect, pool.PoolID)
		if err != nil {
			return fail(fmt.Errorf("read baseline reserves: %w", err))
		}
	}

	if err := s.m.to(StepApproving); err != nil {
		return fail(err)
	}
	if err := ensureAllowance(ctx, s.deps, tokenIn, dialect.EntryPoint(), s.deps.Wallet.Address(), amountIn); err != nil {
		return fail(err)
	}

	args := dex.SwapArgs{
		Pool:       pool,
		ZeroForOne: zeroForOne,
		Deadline:   s.deps.deadline(time.Now()),
	}
	switch {
	case dialect.Kind() == model.DialectEncrypted:
		if err := s.m.to(StepEncrypting); err != nil {
			return fail(err)
		}
		if args.EncZeroForOne, err = s.deps.Session.EncryptBool(ctx, zeroForOne); err != nil {
			return fail(err)
		}
		if args.EncAmountIn, err = s.deps.Session.Encrypt(ctx, amountIn); err != nil {
			return fail(err)
		}
		if args.EncMinOut, err = s.deps.Session.Encrypt(ctx, minOut); err != nil {
			return fail(err)
		}
	case dialect.Kind() == model.DialectMixed && tokenIn.Kind == model.TokenEncrypted:
		if err := s.m.to(StepEncrypting); err != nil {
			return fail(err)
		}
		if args.EncAmountIn, err = s.deps.Session.Encrypt(ctx, amountIn); err != nil {
			return fail(err)
		}
		args.MinAmountOut = minOut
	default:
		args.AmountIn = amountIn
		args.MinAmountOut = minOut
	}

	if err := s.m.to(StepSubmitting); err != nil {
		return fail(err)
	}
	call, err := dialect.Swap(args)
	if err != nil {
		return fail(err)
	}
	txHash, err := submitAndWait(ctx, s.deps, call)
	if err != nil {
		return fail(err)
	}

	synced := true
	if dialect.RequiresEncryption() {
		synced, err = s.resync.Run(ctx, dialect, pool.PoolID, baseline0, baseline1)
		if err != nil && ctx.Err() != nil {
			return fail(err)
		}
	}

	if err := s.m.to(StepComplete); err != nil {
		return fail(err)
	}
	return &SwapResult{TxHash: txHash, Quote: quote, MinOut: minOut, ReservesSynced: synced}, nil
}

// constantProductOut applies x*y=k with no fee to estimate a swap output.
func constantProductOut(amountIn, reserve0, reserve1 *big.Int, zeroForOne bool) *big.Int {
	reserveIn, reserveOut := reserve0, reserve1
	if !zeroForOne {
		reserveIn, reserveOut = reserve1, reserve0
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return new(big.Int)
	}
	num := new(big.Int).Mul(amountIn, reserveOut)
	den := new(big.Int).Add(reserveIn, amountIn)
	return num.Div(num, den)
}
