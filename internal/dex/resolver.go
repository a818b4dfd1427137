package dex

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"cipherdex/internal/model"
)

// ErrDialectUnconfigured means no entry point is deployed for the resolved
// dialect on the active chain. Resolution fails closed: no operation may
// silently fall back to a different dialect.
var ErrDialectUnconfigured = errors.New("no entry point configured for dialect")

// EntryPoints maps each dialect to its deployed entry point on one chain.
// Dialects without a deployment are simply absent.
type EntryPoints map[model.Dialect]common.Address

// Resolver canonicalizes token pairs into pool descriptors and hands out the
// dialect implementation each pool must use. Descriptors are cached for the
// session and dropped on chain switch.
type Resolver struct {
	logger *zap.Logger

	mu          sync.RWMutex
	chainID     uint64
	entries     EntryPoints
	fee         uint32
	tickSpacing int32
	pools       map[common.Hash]model.PoolDescriptor
	dialects    map[model.Dialect]Dialect
}

// NewResolver builds a resolver for one chain deployment.
func NewResolver(chainID uint64, entries EntryPoints, fee uint32, tickSpacing int32, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		logger:      logger,
		chainID:     chainID,
		entries:     entries,
		fee:         fee,
		tickSpacing: tickSpacing,
		pools:       make(map[common.Hash]model.PoolDescriptor),
		dialects:    make(map[model.Dialect]Dialect),
	}
}

// SwitchChain rebinds the resolver to a new chain deployment and drops every
// cached descriptor.
func (r *Resolver) SwitchChain(chainID uint64, entries EntryPoints) {
	r.mu.Lock()
	r.chainID = chainID
	r.entries = entries
	r.pools = make(map[common.Hash]model.PoolDescriptor)
	r.dialects = make(map[model.Dialect]Dialect)
	r.mu.Unlock()
	r.logger.Info("resolver rebound", zap.Uint64("chain_id", chainID))
}

// Resolve canonicalizes the pair, classifies the dialect from the token
// kinds, and returns the cached or newly built descriptor together with the
// dialect implementation bound to its entry point.
func (r *Resolver) Resolve(tokenA, tokenB model.Token) (model.PoolDescriptor, Dialect, error) {
	if tokenA.Address == tokenB.Address {
		return model.PoolDescriptor{}, nil, fmt.Errorf("pool requires two distinct tokens")
	}

	token0, token1 := model.SortTokens(tokenA, tokenB)
	kind := model.DialectFor(token0.Kind, token1.Kind)

	r.mu.RLock()
	entry, configured := r.entries[kind]
	r.mu.RUnlock()
	if !configured {
		return model.PoolDescriptor{}, nil, fmt.Errorf("%w: %s", ErrDialectUnconfigured, kind)
	}

	poolID := ComputePoolID(token0.Address, token1.Address, r.fee, r.tickSpacing, entry)

	r.mu.RLock()
	desc, cached := r.pools[poolID]
	r.mu.RUnlock()
	if !cached {
		desc = model.PoolDescriptor{
			Token0:      token0,
			Token1:      token1,
			Dialect:     kind,
			EntryPoint:  entry,
			PoolID:      poolID,
			Fee:         r.fee,
			TickSpacing: r.tickSpacing,
			ChainID:     r.chainID,
		}
		r.mu.Lock()
		r.pools[poolID] = desc
		r.mu.Unlock()
		r.logger.Debug("pool resolved",
			zap.String("pool", poolID.Hex()),
			zap.String("dialect", string(kind)),
			zap.String("token0", token0.Symbol),
			zap.String("token1", token1.Symbol))
	}

	dialect, err := r.dialectFor(kind, entry)
	if err != nil {
		return model.PoolDescriptor{}, nil, err
	}
	return desc, dialect, nil
}

func (r *Resolver) dialectFor(kind model.Dialect, entry common.Address) (Dialect, error) {
	r.mu.RLock()
	d, ok := r.dialects[kind]
	r.mu.RUnlock()
	if ok {
		return d, nil
	}

	var (
		built Dialect
		err   error
	)
	switch kind {
	case model.DialectNative:
		built, err = newNativeDialect(entry)
	case model.DialectEncrypted:
		built, err = newEncryptedDialect(entry)
	case model.DialectMixed:
		built, err = newMixedDialect(entry)
	default:
		err = fmt.Errorf("unknown dialect %q", kind)
	}
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.dialects[kind] = built
	r.mu.Unlock()
	return built, nil
}

// ComputePoolID derives the deterministic pool key from the canonical pair,
// the fee and spacing parameters, and the entry point address.
func ComputePoolID(token0, token1 common.Address, fee uint32, tickSpacing int32, entry common.Address) common.Hash {
	buf := make([]byte, 0, 2*common.AddressLength+8+common.AddressLength)
	buf = append(buf, token0.Bytes()...)
	buf = append(buf, token1.Bytes()...)
	buf = binary.BigEndian.AppendUint32(buf, fee)
	buf = binary.BigEndian.AppendUint32(buf, uint32(tickSpacing))
	buf = append(buf, entry.Bytes()...)
	return crypto.Keccak256Hash(buf)
}
