// Package dex resolves token pairs to pools and builds the dialect-specific
// contract calls. Each pool speaks exactly one of three incompatible entry
// point interfaces; the Dialect implementations own their call shapes so the
// orchestrators never branch on the variant.
package dex

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"cipherdex/internal/chain"
	"cipherdex/internal/model"
)

// ErrNoQuoter marks a dialect without a quoting entry point; callers fall
// back to a reserve-based estimate.
var ErrNoQuoter = errors.New("dialect has no quoting entry point")

// ErrNoReserveSync marks a dialect whose reserves are always current.
var ErrNoReserveSync = errors.New("dialect has no reserve sync entry point")

// DepositArgs parameterizes a bucket deposit (order placement). Amount is
// consumed by the native dialect, EncAmount by the encrypted ones.
type DepositArgs struct {
	Pool         model.PoolDescriptor
	Tick         int32
	Side         model.Side
	Amount       *big.Int
	EncAmount    model.CiphertextHandle
	Deadline     *big.Int
	MaxTickDrift int32
}

// WithdrawArgs parameterizes a bucket withdrawal.
type WithdrawArgs struct {
	Pool      model.PoolDescriptor
	Tick      int32
	Side      model.Side
	Amount    *big.Int
	EncAmount model.CiphertextHandle
}

// ClaimArgs parameterizes claiming resolved proceeds of a bucket.
type ClaimArgs struct {
	Pool model.PoolDescriptor
	Tick int32
	Side model.Side
}

// SwapArgs parameterizes a market swap. The plaintext and encrypted fields
// mirror each other; each dialect consumes its own subset.
type SwapArgs struct {
	Pool          model.PoolDescriptor
	ZeroForOne    bool
	AmountIn      *big.Int
	MinAmountOut  *big.Int
	EncZeroForOne model.CiphertextHandle
	EncAmountIn   model.CiphertextHandle
	EncMinOut     model.CiphertextHandle
	Deadline      *big.Int
}

// AddLiquidityArgs parameterizes a liquidity provision.
type AddLiquidityArgs struct {
	Pool       model.PoolDescriptor
	Amount0    *big.Int
	Amount1    *big.Int
	EncAmount0 model.CiphertextHandle
	EncAmount1 model.CiphertextHandle
	Deadline   *big.Int
}

// RemoveLiquidityArgs parameterizes a liquidity removal.
type RemoveLiquidityArgs struct {
	Pool      model.PoolDescriptor
	Shares    *big.Int
	EncShares model.CiphertextHandle
	Deadline  *big.Int
}

// Dialect builds the exact calldata one contract variant expects. Argument
// order inside each implementation matches the deployed interface; many
// ledgers accept a wrong order silently, so the packing lives in one place
// per dialect and nowhere else.
type Dialect interface {
	Kind() model.Dialect
	EntryPoint() common.Address

	// RequiresEncryption reports whether amounts travel as ciphertext
	// handles on this dialect.
	RequiresEncryption() bool

	Deposit(args DepositArgs) (chain.Call, error)
	Withdraw(args WithdrawArgs) (chain.Call, error)
	Claim(args ClaimArgs) (chain.Call, error)
	Swap(args SwapArgs) (chain.Call, error)
	AddLiquidity(args AddLiquidityArgs) (chain.Call, error)
	RemoveLiquidity(args RemoveLiquidityArgs) (chain.Call, error)

	// QuoteCall builds the read for a firm quote, or ErrNoQuoter.
	QuoteCall(poolID common.Hash, zeroForOne bool, amountIn *big.Int) (chain.Call, error)
	UnpackQuote(data []byte) (*big.Int, error)

	ReservesCall(poolID common.Hash) (chain.Call, error)
	UnpackReserves(data []byte) (*big.Int, *big.Int, error)

	// SyncReservesCall builds the harvest transaction that pulls resolved
	// reserve decryptions into the plaintext cache, or ErrNoReserveSync.
	SyncReservesCall(poolID common.Hash) (chain.Call, error)
}

// encInput is the wire form of a ciphertext handle. Field names line up with
// the tuple components in the encrypted ABIs.
type encInput struct {
	CtHash       [32]byte
	SecurityZone uint8
	Utype        uint8
	Signature    []byte
}

func toEncInput(h model.CiphertextHandle) encInput {
	return encInput{
		CtHash:       [32]byte(h.Hash),
		SecurityZone: uint8(h.SecurityZone),
		Utype:        h.TypeTag,
		Signature:    h.Proof,
	}
}

func tickArg(tick int32) *big.Int {
	return big.NewInt(int64(tick))
}

func unpackReservePair(values []interface{}) (*big.Int, *big.Int, error) {
	if len(values) != 2 {
		return nil, nil, errors.New("reserves response is not a pair")
	}
	r0, ok0 := values[0].(*big.Int)
	r1, ok1 := values[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, nil, errors.New("reserves are not uint256")
	}
	return r0, r1, nil
}
