package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"cipherdex/internal/chain"
	"cipherdex/internal/model"
)

// mixedDialect speaks the mixed-encryption AMM interface: the plaintext leg
// travels as plain integers while the encrypted leg travels as ciphertext
// tuples, both present in every amount-bearing call. The unused field of a
// pair is zero on the plain side and a zero handle on the encrypted side.
type mixedDialect struct {
	abi   abi.ABI
	entry common.Address
}

func newMixedDialect(entry common.Address) (*mixedDialect, error) {
	parsed, err := MixedAMMABI()
	if err != nil {
		return nil, err
	}
	return &mixedDialect{abi: parsed, entry: entry}, nil
}

func (d *mixedDialect) Kind() model.Dialect        { return model.DialectMixed }
func (d *mixedDialect) EntryPoint() common.Address { return d.entry }
func (d *mixedDialect) RequiresEncryption() bool   { return true }

func (d *mixedDialect) pack(method string, args ...interface{}) (chain.Call, error) {
	data, err := d.abi.Pack(method, args...)
	if err != nil {
		return chain.Call{}, fmt.Errorf("pack %s: %w", method, err)
	}
	return chain.Call{To: d.entry, Data: data}, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func (d *mixedDialect) Deposit(args DepositArgs) (chain.Call, error) {
	if args.Amount == nil && args.EncAmount.IsZero() {
		return chain.Call{}, fmt.Errorf("mixed deposit requires a plaintext or ciphertext amount")
	}
	return d.pack("deposit",
		[32]byte(args.Pool.PoolID),
		tickArg(args.Tick),
		uint8(args.Side),
		orZero(args.Amount),
		toEncInput(args.EncAmount),
		args.Deadline,
		tickArg(args.MaxTickDrift),
	)
}

func (d *mixedDialect) Withdraw(args WithdrawArgs) (chain.Call, error) {
	if args.EncAmount.IsZero() {
		return chain.Call{}, fmt.Errorf("mixed withdraw requires a ciphertext amount")
	}
	return d.pack("withdraw",
		[32]byte(args.Pool.PoolID),
		tickArg(args.Tick),
		uint8(args.Side),
		toEncInput(args.EncAmount),
	)
}

func (d *mixedDialect) Claim(args ClaimArgs) (chain.Call, error) {
	return d.pack("claim",
		[32]byte(args.Pool.PoolID),
		tickArg(args.Tick),
		uint8(args.Side),
	)
}

func (d *mixedDialect) Swap(args SwapArgs) (chain.Call, error) {
	if args.AmountIn == nil && args.EncAmountIn.IsZero() {
		return chain.Call{}, fmt.Errorf("mixed swap requires an input amount")
	}
	return d.pack("swap",
		[32]byte(args.Pool.PoolID),
		args.ZeroForOne,
		orZero(args.AmountIn),
		toEncInput(args.EncAmountIn),
		orZero(args.MinAmountOut),
		args.Deadline,
	)
}

func (d *mixedDialect) AddLiquidity(args AddLiquidityArgs) (chain.Call, error) {
	plain := args.Amount0
	enc := args.EncAmount1
	if plain == nil {
		plain = args.Amount1
		enc = args.EncAmount0
	}
	if plain == nil || enc.IsZero() {
		return chain.Call{}, fmt.Errorf("mixed addLiquidity requires one plaintext and one ciphertext amount")
	}
	return d.pack("addLiquidity",
		[32]byte(args.Pool.PoolID),
		plain,
		toEncInput(enc),
		args.Deadline,
	)
}

func (d *mixedDialect) RemoveLiquidity(args RemoveLiquidityArgs) (chain.Call, error) {
	if args.EncShares.IsZero() {
		return chain.Call{}, fmt.Errorf("mixed removeLiquidity requires ciphertext shares")
	}
	return d.pack("removeLiquidity",
		[32]byte(args.Pool.PoolID),
		toEncInput(args.EncShares),
		args.Deadline,
	)
}

func (d *mixedDialect) QuoteCall(poolID common.Hash, zeroForOne bool, amountIn *big.Int) (chain.Call, error) {
	return d.pack("getQuote", [32]byte(poolID), zeroForOne, amountIn)
}

func (d *mixedDialect) UnpackQuote(data []byte) (*big.Int, error) {
	values, err := d.abi.Unpack("getQuote", data)
	if err != nil {
		return nil, fmt.Errorf("unpack getQuote: %w", err)
	}
	out, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("quote is not uint256")
	}
	return out, nil
}

func (d *mixedDialect) ReservesCall(poolID common.Hash) (chain.Call, error) {
	return d.pack("getPoolReserves", [32]byte(poolID))
}

func (d *mixedDialect) UnpackReserves(data []byte) (*big.Int, *big.Int, error) {
	values, err := d.abi.Unpack("getPoolReserves", data)
	if err != nil {
		return nil, nil, fmt.Errorf("unpack getPoolReserves: %w", err)
	}
	return unpackReservePair(values)
}

func (d *mixedDialect) SyncReservesCall(poolID common.Hash) (chain.Call, error) {
	return d.pack("trySyncReserves", [32]byte(poolID))
}
