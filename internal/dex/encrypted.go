package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"cipherdex/internal/chain"
	"cipherdex/internal/model"
)

// encryptedDialect speaks the fully-encrypted AMM interface. Every amount is
// a ciphertext input tuple; there is no quoting entry point, and reserves
// are a stale plaintext cache refreshed by trySyncReserves.
type encryptedDialect struct {
	abi   abi.ABI
	entry common.Address
}

func newEncryptedDialect(entry common.Address) (*encryptedDialect, error) {
	parsed, err := EncryptedAMMABI()
	if err != nil {
		return nil, err
	}
	return &encryptedDialect{abi: parsed, entry: entry}, nil
}

func (d *encryptedDialect) Kind() model.Dialect        { return model.DialectEncrypted }
func (d *encryptedDialect) EntryPoint() common.Address { return d.entry }
func (d *encryptedDialect) RequiresEncryption() bool   { return true }

func (d *encryptedDialect) pack(method string, args ...interface{}) (chain.Call, error) {
	data, err := d.abi.Pack(method, args...)
	if err != nil {
		return chain.Call{}, fmt.Errorf("pack %s: %w", method, err)
	}
	return chain.Call{To: d.entry, Data: data}, nil
}

func (d *encryptedDialect) Deposit(args DepositArgs) (chain.Call, error) {
	if args.EncAmount.IsZero() {
		return chain.Call{}, fmt.Errorf("encrypted deposit requires a ciphertext amount")
	}
	return d.pack("deposit",
		[32]byte(args.Pool.PoolID),
		tickArg(args.Tick),
		uint8(args.Side),
		toEncInput(args.EncAmount),
		args.Deadline,
		tickArg(args.MaxTickDrift),
	)
}

func (d *encryptedDialect) Withdraw(args WithdrawArgs) (chain.Call, error) {
	if args.EncAmount.IsZero() {
		return chain.Call{}, fmt.Errorf("encrypted withdraw requires a ciphertext amount")
	}
	return d.pack("withdraw",
		[32]byte(args.Pool.PoolID),
		tickArg(args.Tick),
		uint8(args.Side),
		toEncInput(args.EncAmount),
	)
}

func (d *encryptedDialect) Claim(args ClaimArgs) (chain.Call, error) {
	return d.pack("claim",
		[32]byte(args.Pool.PoolID),
		tickArg(args.Tick),
		uint8(args.Side),
	)
}

func (d *encryptedDialect) Swap(args SwapArgs) (chain.Call, error) {
	if args.EncZeroForOne.IsZero() && args.EncAmountIn.IsZero() {
		return chain.Call{}, fmt.Errorf("encrypted swap requires ciphertext direction and amount")
	}
	return d.pack("swap",
		[32]byte(args.Pool.PoolID),
		toEncInput(args.EncZeroForOne),
		toEncInput(args.EncAmountIn),
		toEncInput(args.EncMinOut),
		args.Deadline,
	)
}

func (d *encryptedDialect) AddLiquidity(args AddLiquidityArgs) (chain.Call, error) {
	if args.EncAmount0.IsZero() || args.EncAmount1.IsZero() {
		return chain.Call{}, fmt.Errorf("encrypted addLiquidity requires ciphertext amounts")
	}
	return d.pack("addLiquidity",
		[32]byte(args.Pool.PoolID),
		toEncInput(args.EncAmount0),
		toEncInput(args.EncAmount1),
		args.Deadline,
	)
}

func (d *encryptedDialect) RemoveLiquidity(args RemoveLiquidityArgs) (chain.Call, error) {
	if args.EncShares.IsZero() {
		return chain.Call{}, fmt.Errorf("encrypted removeLiquidity requires ciphertext shares")
	}
	return d.pack("removeLiquidity",
		[32]byte(args.Pool.PoolID),
		toEncInput(args.EncShares),
		args.Deadline,
	)
}

func (d *encryptedDialect) QuoteCall(common.Hash, bool, *big.Int) (chain.Call, error) {
	return chain.Call{}, ErrNoQuoter
}

func (d *encryptedDialect) UnpackQuote([]byte) (*big.Int, error) {
	return nil, ErrNoQuoter
}

func (d *encryptedDialect) ReservesCall(poolID common.Hash) (chain.Call, error) {
	return d.pack("getPoolReserves", [32]byte(poolID))
}

func (d *encryptedDialect) UnpackReserves(data []byte) (*big.Int, *big.Int, error) {
	values, err := d.abi.Unpack("getPoolReserves", data)
	if err != nil {
		return nil, nil, fmt.Errorf("unpack getPoolReserves: %w", err)
	}
	return unpackReservePair(values)
}

func (d *encryptedDialect) SyncReservesCall(poolID common.Hash) (chain.Call, error) {
	return d.pack("trySyncReserves", [32]byte(poolID))
}
