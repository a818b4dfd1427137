package model

import (
	"math/big"
	"time"
)

// OrderType is the canonical classification of a limit-style order. It is
// always derived from the trigger tick, the pool's current tick, and the
// buy/sell intent, never chosen independently.
type OrderType string

const (
	OrderLimitBuy   OrderType = "limit-buy"
	OrderLimitSell  OrderType = "limit-sell"
	OrderStopLoss   OrderType = "stop-loss"
	OrderTakeProfit OrderType = "take-profit"
)

// IsMaker reports whether the order rests in a bucket and fills only at its
// exact trigger tick. Taker orders execute as a market swap once triggered.
func (o OrderType) IsMaker() bool {
	return o == OrderLimitBuy || o == OrderLimitSell
}

// OrderIntent is the ephemeral description of one order action. It lives for
// a single orchestrator run.
type OrderIntent struct {
	OrderType    OrderType
	TriggerTick  int32
	Amount       *big.Int
	MaxTickDrift int32
	Deadline     time.Time
}

// Quote is the result of a swap pre-read. Estimated marks dialects lacking a
// quoting entry point, where the value is derived from cached reserves and
// must not be presented as a firm price.
type Quote struct {
	AmountIn  *big.Int
	AmountOut *big.Int
	Estimated bool
}

// MinOutput applies a slippage tolerance in basis points to the quoted
// output. Computed client-side before any encryption or submission.
func (q Quote) MinOutput(slippageBps uint32) *big.Int {
	if q.AmountOut == nil {
		return new(big.Int)
	}
	keep := big.NewInt(int64(10_000 - slippageBps))
	out := new(big.Int).Mul(q.AmountOut, keep)
	return out.Div(out, big.NewInt(10_000))
}
