package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"cipherdex/internal/chain"
	"cipherdex/internal/model"
)

// nativeDialect speaks the plaintext-only AMM interface.
type nativeDialect struct {
	abi   abi.ABI
	entry common.Address
}

func newNativeDialect(entry common.Address) (*nativeDialect, error) {
	parsed, err := NativeAMMABI()
	if err != nil {
		return nil, err
	}
	return &nativeDialect{abi: parsed, entry: entry}, nil
}

func (d *nativeDialect) Kind() model.Dialect        { return model.DialectNative }
func (d *nativeDialect) EntryPoint() common.Address { return d.entry }
func (d *nativeDialect) RequiresEncryption() bool   { return false }

func (d *nativeDialect) pack(method string, args ...interface{}) (chain.Call, error) {
	data, err := d.abi.Pack(method, args...)
	if err != nil {
		return chain.Call{}, fmt.Errorf("pack %s: %w", method, err)
	}
	return chain.Call{To: d.entry, Data: data}, nil
}

func (d *nativeDialect) Deposit(args DepositArgs) (chain.Call, error) {
	if args.Amount == nil {
		return chain.Call{}, fmt.Errorf("native deposit requires a plaintext amount")
	}
	return d.pack("deposit",
		[32]byte(args.Pool.PoolID),
		tickArg(args.Tick),
		uint8(args.Side),
		args.Amount,
		args.Deadline,
		tickArg(args.MaxTickDrift),
	)
}

func (d *nativeDialect) Withdraw(args WithdrawArgs) (chain.Call, error) {
	if args.Amount == nil {
		return chain.Call{}, fmt.Errorf("native withdraw requires a plaintext amount")
	}
	return d.pack("withdraw",
		[32]byte(args.Pool.PoolID),
		tickArg(args.Tick),
		uint8(args.Side),
		args.Amount,
	)
}

func (d *nativeDialect) Claim(args ClaimArgs) (chain.Call, error) {
	return d.pack("claim",
		[32]byte(args.Pool.PoolID),
		tickArg(args.Tick),
		uint8(args.Side),
	)
}

func (d *nativeDialect) Swap(args SwapArgs) (chain.Call, error) {
	if args.AmountIn == nil || args.MinAmountOut == nil {
		return chain.Call{}, fmt.Errorf("native swap requires plaintext amounts")
	}
	return d.pack("swap",
		[32]byte(args.Pool.PoolID),
		args.ZeroForOne,
		args.AmountIn,
		args.MinAmountOut,
		args.Deadline,
	)
}

func (d *nativeDialect) AddLiquidity(args AddLiquidityArgs) (chain.Call, error) {
	if args.Amount0 == nil || args.Amount1 == nil {
		return chain.Call{}, fmt.Errorf("native addLiquidity requires plaintext amounts")
	}
	return d.pack("addLiquidity",
		[32]byte(args.Pool.PoolID),
		args.Amount0,
		args.Amount1,
		args.Deadline,
	)
}

func (d *nativeDialect) RemoveLiquidity(args RemoveLiquidityArgs) (chain.Call, error) {
	if args.Shares == nil {
		return chain.Call{}, fmt.Errorf("native removeLiquidity requires plaintext shares")
	}
	return d.pack("removeLiquidity",
		[32]byte(args.Pool.PoolID),
		args.Shares,
		args.Deadline,
	)
}

func (d *nativeDialect) QuoteCall(poolID common.Hash, zeroForOne bool, amountIn *big.Int) (chain.Call, error) {
	return d.pack("getQuote", [32]byte(poolID), zeroForOne, amountIn)
}

func (d *nativeDialect) UnpackQuote(data []byte) (*big.Int, error) {
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

func (d *nativeDialect) ReservesCall(poolID common.Hash) (chain.Call, error) {
	return d.pack("getPoolReserves", [32]byte(poolID))
}

func (d *nativeDialect) UnpackReserves(data []byte) (*big.Int, *big.Int, error) {
	values, err := d.abi.Unpack("getPoolReserves", data)
	if err != nil {
		return nil, nil, fmt.Errorf("unpack getPoolReserves: %w", err)
	}
	return unpackReservePair(values)
}

func (d *nativeDialect) SyncReservesCall(common.Hash) (chain.Call, error) {
	return chain.Call{}, ErrNoReserveSync
}
