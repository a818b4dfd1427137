package orchestrator

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"cipherdex/internal/chain"
	"cipherdex/internal/dex"
	"cipherdex/internal/model"
)

// MaxUint128 is the withdraw-everything sentinel: the widest amount the
// encrypted dialects accept. An absent withdrawal amount means "all", and it
// must be encoded as this value, never as zero.
var MaxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// Ledger is the chain capability orchestrators consume. *chain.Client
// implements it; tests substitute a fake.
type Ledger interface {
	CallContract(ctx context.Context, call chain.Call) ([]byte, error)
	Submit(ctx context.Context, wallet chain.Wallet, call chain.Call) (common.Hash, error)
	WaitMined(ctx context.Context, txHash common.Hash, maxAttempts int, interval time.Duration) (*types.Receipt, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	HasEncryptedAllowance(ctx context.Context, token, owner, spender common.Address) (bool, error)
	BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error)
	EncryptedBalanceHandle(ctx context.Context, token, account common.Address) (common.Hash, error)
}

// Encryptor is the encrypted value capability orchestrators consume.
// *fhe.Session implements it.
type Encryptor interface {
	Ready() bool
	Encrypt(ctx context.Context, value *big.Int) (model.CiphertextHandle, error)
	EncryptBool(ctx context.Context, value bool) (model.CiphertextHandle, error)
	Decrypt(ctx context.Context, handle model.CiphertextHandle, maxAttempts int) (*big.Int, error)
}

// Config holds the bounds and defaults every orchestrator shares. All retry
// counts and intervals are explicit so tests run them without delay.
type Config struct {
	DeadlineOffset  time.Duration
	SlippageBps     uint32
	TakerTickDrift  int32
	WaitAttempts    int
	WaitInterval    time.Duration
	DecryptAttempts int
	ResyncAttempts  int
	ResyncInterval  time.Duration
}

func (c Config) withDefaults() Config {
	if c.DeadlineOffset <= 0 {
		c.DeadlineOffset = 20 * time.Minute
	}
	if c.SlippageBps == 0 {
		c.SlippageBps = 50
	}
	if c.TakerTickDrift == 0 {
		c.TakerTickDrift = 120
	}
	if c.WaitAttempts < 1 {
		c.WaitAttempts = 30
	}
	if c.WaitInterval <= 0 {
		c.WaitInterval = 2 * time.Second
	}
	if c.DecryptAttempts < 1 {
		c.DecryptAttempts = 5
	}
	if c.ResyncAttempts < 1 {
		c.ResyncAttempts = 10
	}
	if c.ResyncInterval <= 0 {
		c.ResyncInterval = 3 * time.Second
	}
	return c
}

// Deps bundles the collaborators shared by all orchestrators. Orchestrators
// are independent; they share nothing mutable beyond the resolver's
// descriptor cache.
type Deps struct {
	Ledger   Ledger
	Wallet   chain.Wallet
	Session  Encryptor
	Resolver *dex.Resolver
	Config   Config
	Logger   *zap.Logger
}

func (d Deps) normalize() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	d.Config = d.Config.withDefaults()
	return d
}

func (d Deps) deadline(now time.Time) *big.Int {
	return big.NewInt(now.Add(d.Config.DeadlineOffset).Unix())
}

// readReserves performs the dialect's reserve read.
func readReserves(ctx context.Context, ledger Ledger, dialect dex.Dialect, poolID common.Hash) (*big.Int, *big.Int, error) {
	call, err := dialect.ReservesCall(poolID)
	if err != nil {
		return nil, nil, err
	}
	resp, err := ledger.CallContract(ctx, call)
	if err != nil {
		return nil, nil, err
	}
	return dialect.UnpackReserves(resp)
}

// currentTick reads the pool's present tick from its reserves.
func currentTick(ctx context.Context, ledger Ledger, dialect dex.Dialect, pool model.PoolDescriptor) (int32, error) {
	r0, r1, err := readReserves(ctx, ledger, dialect, pool.PoolID)
	if err != nil {
		return 0, err
	}
	return tickFromPoolReserves(pool, r0, r1), nil
}
