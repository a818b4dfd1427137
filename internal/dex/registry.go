package dex

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"cipherdex/internal/chain"
	"cipherdex/internal/model"
)

// TokenRegistry holds the tokens known to the client, keyed by symbol and by
// address. Tokens are seeded from configuration; missing decimals or symbol
// are filled from the chain on first use.
type TokenRegistry struct {
	client *chain.Client
	logger *zap.Logger

	mu        sync.RWMutex
	bySymbol  map[string]model.Token
	byAddress map[common.Address]model.Token
}

// NewTokenRegistry builds a registry over the given chain client.
func NewTokenRegistry(client *chain.Client, logger *zap.Logger) *TokenRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenRegistry{
		client:    client,
		logger:    logger,
		bySymbol:  make(map[string]model.Token),
		byAddress: make(map[common.Address]model.Token),
	}
}

// Add seeds or replaces a token.
func (r *TokenRegistry) Add(token model.Token) {
	r.mu.Lock()
	r.bySymbol[strings.ToUpper(token.Symbol)] = token
	r.byAddress[token.Address] = token
	r.mu.Unlock()
}

// BySymbol returns the token registered under symbol.
func (r *TokenRegistry) BySymbol(symbol string) (model.Token, bool) {
	r.mu.RLock()
	token, ok := r.bySymbol[strings.ToUpper(symbol)]
	r.mu.RUnlock()
	return token, ok
}

// ByAddress returns the token registered at address.
func (r *TokenRegistry) ByAddress(address common.Address) (model.Token, bool) {
	r.mu.RLock()
	token, ok := r.byAddress[address]
	r.mu.RUnlock()
	return token, ok
}

// Load returns the token at address, fetching decimals and symbol from the
// contract when it is not registered. Kind must be supplied by the caller
// for unregistered tokens since it is not observable on chain.
func (r *TokenRegistry) Load(ctx context.Context, address common.Address, kind model.TokenKind) (model.Token, error) {
	if token, ok := r.ByAddress(address); ok {
		return token, nil
	}
	if r.client == nil {
		return model.Token{}, fmt.Errorf("token %s not registered and no chain client available", address.Hex())
	}

	decimals, symbol, err := r.client.TokenMeta(ctx, address)
	if err != nil {
		return model.Token{}, fmt.Errorf("fetch token meta for %s: %w", address.Hex(), err)
	}
	token := model.Token{
		Address:  address,
		Symbol:   symbol,
		Decimals: decimals,
		Kind:     kind,
	}
	r.Add(token)
	r.logger.Debug("token loaded",
		zap.String("address", address.Hex()),
		zap.String("symbol", symbol),
		zap.Uint8("decimals", decimals))
	return token, nil
}
