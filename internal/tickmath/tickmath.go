package tickmath

import (
	"errors"
	"math"
	"math/big"
)

// Tick bounds follow the usual 1.0001 log-space convention: price(MaxTick) is
// the largest representable ratio, and every order tick must be a multiple of
// the pool's tick spacing inside the closed range.
const (
	MinTick int32 = -887272
	MaxTick int32 = 887272

	// DefaultTickSpacing is used wherever a pool does not override it.
	DefaultTickSpacing int32 = 60
)

// PriceScale is the number of fractional digits retained when rendering
// prices.
const PriceScale = 18

// pricePrec is the mantissa precision carried through PriceAt. 96 bits keeps
// the round trip through TickFor exact across the whole tick range.
const pricePrec = 96

var (
	ErrTickOutOfRange = errors.New("tick out of range")
	ErrTickSpacing    = errors.New("tick not a multiple of spacing")
)

// tickBase is ln(1.0001), the log-space unit of one tick.
var tickBase = math.Log(1.0001)

// PriceAt returns 1.0001^tick.
func PriceAt(tick int32) *big.Float {
	base := new(big.Float).SetPrec(pricePrec).SetRat(big.NewRat(10001, 10000))
	exp := tick
	if exp < 0 {
		base.Quo(new(big.Float).SetPrec(pricePrec).SetInt64(1), base)
		exp = -exp
	}

	result := new(big.Float).SetPrec(pricePrec).SetInt64(1)
	sq := new(big.Float).Set(base)
	for e := uint32(exp); e > 0; e >>= 1 {
		if e&1 == 1 {
			result.Mul(result, sq)
		}
		if e > 1 {
			sq.Mul(sq, sq)
		}
	}
	return result
}

// FormatPrice renders a price with PriceScale fractional digits.
func FormatPrice(price *big.Float) string {
	if price == nil {
		return "0"
	}
	return price.Text('f', PriceScale)
}

// TickFor inverts PriceAt: log(price)/log(1.0001), rounded to the nearest
// multiple of spacing and clamped into [MinTick, MaxTick]. Non-positive
// prices map to tick 0.
func TickFor(price *big.Float, spacing int32) int32 {
	if price == nil || price.Sign() <= 0 {
		return 0
	}
	f, _ := price.Float64()
	raw := math.Log(f) / tickBase
	return Snap(clampRaw(raw), spacing)
}

// Snap rounds tick to the nearest multiple of spacing, then clamps back into
// range on the grid.
func Snap(tick int32, spacing int32) int32 {
	if spacing <= 0 {
		spacing = DefaultTickSpacing
	}
	half := float64(spacing) / 2
	steps := math.Floor((float64(tick) + half) / float64(spacing))
	snapped := clampRaw(steps * float64(spacing))
	if rem := snapped % spacing; rem != 0 {
		snapped -= rem
	}
	return snapped
}

// IsValid reports whether tick is inside the range and on the spacing grid.
func IsValid(tick int32, spacing int32) bool {
	return Validate(tick, spacing) == nil
}

// Validate returns the specific violation for an invalid tick, nil otherwise.
func Validate(tick int32, spacing int32) error {
	if spacing <= 0 {
		spacing = DefaultTickSpacing
	}
	if tick < MinTick || tick > MaxTick {
		return ErrTickOutOfRange
	}
	if tick%spacing != 0 {
		return ErrTickSpacing
	}
	return nil
}

// PercentDeltaToTick converts a percentage price offset into a tick delta on
// the spacing grid. Display-only; trust-sensitive values go through TickFor.
func PercentDeltaToTick(pct float64, spacing int32) int32 {
	if spacing <= 0 {
		spacing = DefaultTickSpacing
	}
	if pct <= -100 {
		return Snap(MinTick, spacing)
	}
	raw := math.Log(1+pct/100) / tickBase
	steps := math.Round(raw / float64(spacing))
	// Snap keeps a clamped result on the spacing grid.
	return Snap(clampRaw(steps*float64(spacing)), spacing)
}

// TickFromReserves derives the current tick from a reserve ratio. Reserves
// are normalized by their token decimals first; skipping that shifts the
// result by a power of ten, so a decimal-mismatched pair must pass both
// values. Zero or negative reserves yield tick 0 (unit price).
func TickFromReserves(reserve0, reserve1 *big.Int, decimals0, decimals1 uint8, spacing int32) int32 {
	if reserve0 == nil || reserve1 == nil || reserve0.Sign() <= 0 || reserve1.Sign() <= 0 {
		return 0
	}
	num := new(big.Int).Mul(reserve1, pow10(decimals0))
	den := new(big.Int).Mul(reserve0, pow10(decimals1))
	ratio := new(big.Float).SetPrec(pricePrec).SetRat(new(big.Rat).SetFrac(num, den))
	return TickFor(ratio, spacing)
}

func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

func clampRaw(raw float64) int32 {
	rounded := math.Round(raw)
	if rounded < float64(MinTick) {
		return MinTick
	}
	if rounded > float64(MaxTick) {
		return MaxTick
	}
	return int32(rounded)
}
