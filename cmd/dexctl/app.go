package main

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cipherdex/internal/chain"
	"cipherdex/internal/config"
	"cipherdex/internal/dex"
	"cipherdex/internal/fhe"
	"cipherdex/internal/model"
	"cipherdex/internal/orchestrator"
	"cipherdex/internal/storage"
	"cipherdex/internal/storage/postgres"
)

// app bundles the wired collaborators behind every subcommand.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	client   *chain.Client
	wallet   *chain.LocalWallet
	registry *dex.TokenRegistry
	session  *fhe.Session
	deps     orchestrator.Deps
	chainID  uint64
	store    orchestrator.Snapshots

	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func setup(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	a.client, err = chain.NewClient(ctx, cfg.RPCURL, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	a.closers = append(a.closers, a.client.Close)

	a.chainID = cfg.ChainID
	if a.chainID == 0 {
		id, err := a.client.ChainID(ctx)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("query chain id: %w", err)
		}
		a.chainID = id.Uint64()
	}

	if cfg.PrivateKey == "" {
		a.close()
		return nil, fmt.Errorf("private key is required")
	}
	a.wallet, err = chain.NewLocalWallet(cfg.PrivateKey)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("load wallet: %w", err)
	}

	entries, err := parseEntryPoints(cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	resolver := dex.NewResolver(a.chainID, entries, cfg.Fee, cfg.TickSpacing, logger)

	a.registry = dex.NewTokenRegistry(a.client, logger)
	for _, tc := range cfg.Tokens {
		token, err := tokenFromConfig(tc)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("token %q: %w", tc.Symbol, err)
		}
		a.registry.Add(token)
	}

	// Only the mock provider ships with the CLI; a production coprocessor
	// is plugged in through the fhe.Provider interface.
	if !cfg.MockSession {
		a.close()
		return nil, fmt.Errorf("no encryption provider is built in, run with --mock-session")
	}
	a.session = fhe.NewSession(fhe.NewMockProvider(), 0, logger)
	if err := a.session.Init(a.wallet.Address(), a.chainID); err != nil {
		a.close()
		return nil, fmt.Errorf("init session: %w", err)
	}
	a.closers = append(a.closers, a.session.Dispose)

	if cfg.PgDSN != "" {
		pg, err := postgres.NewStore(ctx, cfg.PgDSN)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		a.store = pg
	} else if cfg.SnapshotPath != "" {
		a.store = storage.NewJsonlStore(cfg.SnapshotPath)
	}

	a.deps = orchestrator.Deps{
		Ledger:   a.client,
		Wallet:   a.wallet,
		Session:  a.session,
		Resolver: resolver,
		Config: orchestrator.Config{
			DeadlineOffset:  cfg.DeadlineOffset,
			SlippageBps:     cfg.SlippageBps,
			TakerTickDrift:  cfg.TakerTickDrift,
			WaitAttempts:    cfg.WaitAttempts,
			WaitInterval:    cfg.WaitInterval,
			DecryptAttempts: cfg.DecryptAttempts,
			ResyncAttempts:  cfg.ResyncAttempts,
			ResyncInterval:  cfg.ResyncInterval,
		},
		Logger: logger,
	}
	return a, nil
}

func parseEntryPoints(cfg config.Config) (dex.EntryPoints, error) {
	entries := dex.EntryPoints{}
	for dialect, raw := range map[model.Dialect]string{
		model.DialectNative:    cfg.NativeEntry,
		model.DialectEncrypted: cfg.EncryptedEntry,
		model.DialectMixed:     cfg.MixedEntry,
	} {
		if raw == "" {
			continue
		}
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("%s entry point %q is not an address", dialect, raw)
		}
		entries[dialect] = common.HexToAddress(raw)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("at least one entry point is required")
	}
	return entries, nil
}

func tokenFromConfig(tc config.TokenConfig) (model.Token, error) {
	if !common.IsHexAddress(tc.Address) {
		return model.Token{}, fmt.Errorf("%q is not an address", tc.Address)
	}
	token := model.Token{
		Address:  common.HexToAddress(tc.Address),
		Symbol:   tc.Symbol,
		Decimals: uint8(tc.Decimals),
		Kind:     model.TokenPlaintext,
	}
	if tc.Encrypted {
		token.Kind = model.TokenEncrypted
	}
	if tc.PairedToken != "" {
		if !common.IsHexAddress(tc.PairedToken) {
			return model.Token{}, fmt.Errorf("paired token %q is not an address", tc.PairedToken)
		}
		token.PairedToken = common.HexToAddress(tc.PairedToken)
	}
	return token, nil
}

// lookupToken resolves a symbol or address argument against the registry,
// falling back to an on-chain metadata read for unknown addresses.
func (a *app) lookupToken(ctx context.Context, arg string) (model.Token, error) {
	if common.IsHexAddress(arg) {
		address := common.HexToAddress(arg)
		if token, ok := a.registry.ByAddress(address); ok {
			return token, nil
		}
		return a.registry.Load(ctx, address, model.TokenPlaintext)
	}
	if token, ok := a.registry.BySymbol(arg); ok {
		return token, nil
	}
	return model.Token{}, fmt.Errorf("unknown token %q", arg)
}

func parseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return nil, fmt.Errorf("amount %q is not a base-unit integer", raw)
	}
	return amount, nil
}

func parseTick(raw string) (int32, error) {
	tick, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || !tick.IsInt64() {
		return 0, fmt.Errorf("tick %q is not an integer", raw)
	}
	v := tick.Int64()
	if v < -(1<<23) || v >= 1<<23 {
		return 0, fmt.Errorf("tick %d does not fit int24", v)
	}
	return int32(v), nil
}

func parseSide(raw string) (model.Side, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy":
		return model.SideBuy, nil
	case "sell":
		return model.SideSell, nil
	default:
		return 0, fmt.Errorf("side %q must be buy or sell", raw)
	}
}
