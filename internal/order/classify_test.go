package order

import (
	"testing"

	"cipherdex/internal/model"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name        string
		trigger     int32
		current     int32
		isBuy       bool
		wantType    model.OrderType
		wantSide    model.Side
		wantDeposit TokenSlot
	}{
		{"buy below market", 100, 200, true, model.OrderLimitBuy, model.SideBuy, SlotToken1},
		{"buy above market", 300, 200, true, model.OrderTakeProfit, model.SideBuy, SlotToken1},
		{"sell below market", 100, 200, false, model.OrderStopLoss, model.SideSell, SlotToken0},
		{"sell above market", 300, 200, false, model.OrderLimitSell, model.SideSell, SlotToken0},
		{"buy at market", 200, 200, true, model.OrderTakeProfit, model.SideBuy, SlotToken1},
		{"sell at market", 200, 200, false, model.OrderStopLoss, model.SideSell, SlotToken0},
	}

	for _, tc := range cases {
		got := Classify(tc.trigger, tc.current, tc.isBuy)
		if got.OrderType != tc.wantType {
			t.Fatalf("%s: type %s, want %s", tc.name, got.OrderType, tc.wantType)
		}
		if got.Side != tc.wantSide {
			t.Fatalf("%s: side %s, want %s", tc.name, got.Side, tc.wantSide)
		}
		if got.DepositSlot != tc.wantDeposit {
			t.Fatalf("%s: deposit slot %d, want %d", tc.name, got.DepositSlot, tc.wantDeposit)
		}
		if got.DepositSlot == got.ReceiveSlot {
			t.Fatalf("%s: deposit and receive slots collide", tc.name)
		}
	}
}

func TestClassifyDrift(t *testing.T) {
	maker := Classify(100, 200, true)
	if maker.MaxTickDrift != NoDriftLimit {
		t.Fatalf("maker drift = %d, want unlimited sentinel", maker.MaxTickDrift)
	}
	taker := Classify(300, 200, true)
	if taker.MaxTickDrift != DefaultTakerDrift {
		t.Fatalf("taker drift = %d, want %d", taker.MaxTickDrift, DefaultTakerDrift)
	}
}
