package orchestrator

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"cipherdex/internal/dex"
	"cipherdex/internal/model"
	"cipherdex/internal/tickmath"
)

// Claim collects all resolved proceeds of a bucket position. No amount
// parameter exists in any dialect; the call is idempotent and claiming with
// nothing pending is a ledger-side no-op, not a user-facing failure.
type Claim struct {
	deps Deps
	m    *machine
}

func NewClaim(deps Deps) *Claim {
	d := deps.normalize()
	return &Claim{deps: d, m: newMachine("claim", d.Logger)}
}

func (c *Claim) Step() Step          { return c.m.Step() }
func (c *Claim) Err() *model.TxError { return c.m.Err() }
func (c *Claim) Reset()              { c.m.Reset() }

func (c *Claim) Run(ctx context.Context, tokenA, tokenB model.Token, tick int32, side model.Side) (common.Hash, error) {
	fail := func(err error) (common.Hash, error) {
		return common.Hash{}, c.m.fail(classify(err))
	}

	if err := c.m.to(StepChecking); err != nil {
		return fail(err)
	}
	pool, dialect, err := c.deps.Resolver.Resolve(tokenA, tokenB)
	if err != nil {
		return fail(err)
	}
	if err := tickmath.Validate(tick, pool.TickSpacing); err != nil {
		return fail(err)
	}

	if err := c.m.to(StepSubmitting); err != nil {
		return fail(err)
	}
	call, err := dialect.Claim(dex.ClaimArgs{Pool: pool, Tick: tick, Side: side})
	if err != nil {
		return fail(err)
	}
	txHash, err := submitAndWait(ctx, c.deps, call)
	if err != nil {
		return fail(err)
	}

	if err := c.m.to(StepComplete); err != nil {
		return fail(err)
	}
	return txHash, nil
}
