package orchestrator

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"cipherdex/internal/dex"
	"cipherdex/internal/model"
	"cipherdex/internal/order"
	"cipherdex/internal/tickmath"
)

// OrderResult reports a confirmed order placement.
type OrderResult struct {
	TxHash         common.Hash
	Classification order.Classification
	Bucket         model.BucketKey
	DepositToken   model.Token
	ReceiveToken   model.Token
}

// PlaceOrder turns a trigger price into a bucketed order: classify, approve,
// encrypt when the dialect demands it, submit, confirm.
type PlaceOrder struct {
	deps Deps
	m    *machine
}

// NewPlaceOrder builds the orchestrator. One instance drives one action at a
// time; preventing double submission while in flight is the caller's job.
func NewPlaceOrder(deps Deps) *PlaceOrder {
	d := deps.normalize()
	return &PlaceOrder{deps: d, m: newMachine("place-order", d.Logger)}
}

// Step exposes the current progress for rendering.
func (p *PlaceOrder) Step() Step { return p.m.Step() }

// Err exposes the terminal error after a failed run.
func (p *PlaceOrder) Err() *model.TxError { return p.m.Err() }

// Reset prepares the orchestrator for the next action.
func (p *PlaceOrder) Reset() { p.m.Reset() }

// Run executes the full placement flow. It validates locally before any
// external call: a zero amount or an off-grid trigger tick fails in
// StepChecking and the ledger is never contacted.
func (p *PlaceOrder) Run(ctx context.Context, tokenA, tokenB model.Token, triggerTick int32, amount *big.Int, isBuy bool) (*OrderResult, error) {
	if err := p.m.to(StepChecking); err != nil {
		return nil, p.m.fail(classify(err))
	}

	if amount == nil || amount.Sign() <= 0 {
		return nil, p.m.fail(model.NewTxError(model.KindUnknown, "order amount must be positive", nil))
	}

	pool, dialect, err := p.deps.Resolver.Resolve(tokenA, tokenB)
	if err != nil {
		return nil, p.m.fail(classify(err))
	}
	if err := tickmath.Validate(triggerTick, pool.TickSpacing); err != nil {
		return nil, p.m.fail(classify(err))
	}
	if err := requireSession(p.deps, dialect); err != nil {
		return nil, p.m.fail(classify(err))
	}

	tick, err := currentTick(ctx, p.deps.Ledger, dialect, pool)
	if err != nil {
		return nil, p.m.fail(classify(fmt.Errorf("read current tick: %w", err)))
	}

	cls := order.Classify(triggerTick, tick, isBuy)
	if !cls.OrderType.IsMaker() {
		cls.MaxTickDrift = p.deps.Config.TakerTickDrift
	}
	depositToken, receiveToken := pool.Token0, pool.Token1
	if cls.DepositSlot == order.SlotToken1 {
		depositToken, receiveToken = pool.Token1, pool.Token0
	}

	p.deps.Logger.Info("order classified",
		zap.String("type", string(cls.OrderType)),
		zap.String("side", cls.Side.String()),
		zap.Int32("trigger_tick", triggerTick),
		zap.Int32("current_tick", tick),
		zap.String("deposit_token", depositToken.Symbol))

	if err := p.m.to(StepApproving); err != nil {
		return nil, p.m.fail(classify(err))
	}
	if err := ensureAllowance(ctx, p.deps, depositToken, dialect.EntryPoint(), p.deps.Wallet.Address(), amount); err != nil {
		return nil, p.m.fail(classify(err))
	}

	args := dex.DepositArgs{
		Pool:         pool,
		Tick:         triggerTick,
		Side:         cls.Side,
		Deadline:     p.deps.deadline(time.Now()),
		MaxTickDrift: cls.MaxTickDrift,
	}
	if dialect.RequiresEncryption() && depositToken.Kind == model.TokenEncrypted {
		if err := p.m.to(StepEncrypting); err != nil {
			return nil, p.m.fail(classify(err))
		}
		handle, err := p.deps.Session.Encrypt(ctx, amount)
		if err != nil {
			return nil, p.m.fail(classify(err))
		}
		args.EncAmount = handle
	} else {
		args.Amount = amount
	}

	if err := p.m.to(StepSubmitting); err != nil {
		return nil, p.m.fail(classify(err))
	}
	call, err := dialect.Deposit(args)
	if err != nil {
		return nil, p.m.fail(classify(err))
	}
	txHash, err := submitAndWait(ctx, p.deps, call)
	if err != nil {
		return nil, p.m.fail(classify(err))
	}

	if err := p.m.to(StepComplete); err != nil {
		return nil, p.m.fail(classify(err))
	}
	return &OrderResult{
		TxHash:         txHash,
		Classification: cls,
		Bucket:         model.BucketKey{PoolID: pool.PoolID, Tick: triggerTick, Side: cls.Side},
		DepositToken:   depositToken,
		ReceiveToken:   receiveToken,
	}, nil
}
