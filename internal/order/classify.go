// Package order derives the canonical order type for a trigger price. The
// classification is a pure function of the trigger tick, the pool's current
// tick, and the buy/sell intent; callers never pick an order type directly.
package order

import (
	"cipherdex/internal/model"
)

// TokenSlot names one of the pool's two canonically ordered tokens.
type TokenSlot uint8

const (
	SlotToken0 TokenSlot = iota
	SlotToken1
)

// NoDriftLimit is the max-tick-drift sentinel for maker orders: they fill
// only at their exact trigger tick, so the drift bound is effectively
// unlimited and never consulted.
const NoDriftLimit int32 = 1<<23 - 1 // int24 max on the wire

// DefaultTakerDrift bounds the slippage of stop-loss and take-profit orders,
// which execute as market swaps once triggered.
const DefaultTakerDrift int32 = 120

// Classification is the full derivation for one order intent.
type Classification struct {
	OrderType    model.OrderType
	Side         model.Side
	DepositSlot  TokenSlot
	ReceiveSlot  TokenSlot
	MaxTickDrift int32
}

// Classify maps (triggerTick, currentTick, isBuy) to an order classification.
// The comparisons are strict: a trigger at exactly the current tick falls to
// the taker category.
func Classify(triggerTick, currentTick int32, isBuy bool) Classification {
	var typ model.OrderType
	if isBuy {
		if triggerTick < currentTick {
			typ = model.OrderLimitBuy
		} else {
			typ = model.OrderTakeProfit
		}
	} else {
		if triggerTick > currentTick {
			typ = model.OrderLimitSell
		} else {
			typ = model.OrderStopLoss
		}
	}

	c := Classification{OrderType: typ}
	switch typ {
	case model.OrderLimitBuy, model.OrderTakeProfit:
		c.Side = model.SideBuy
	default:
		c.Side = model.SideSell
	}

	// Buy orders pay the quote token and receive the base; sell orders the
	// reverse.
	if c.Side == model.SideBuy {
		c.DepositSlot = SlotToken1
		c.ReceiveSlot = SlotToken0
	} else {
		c.DepositSlot = SlotToken0
		c.ReceiveSlot = SlotToken1
	}

	if typ.IsMaker() {
		c.MaxTickDrift = NoDriftLimit
	} else {
		c.MaxTickDrift = DefaultTakerDrift
	}
	return c
}
