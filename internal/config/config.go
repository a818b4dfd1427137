package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// TokenConfig declares one token the client may trade.
type TokenConfig struct {
	Symbol      string
	Address     string
	Decimals    int
	Encrypted   bool
	PairedToken string
}

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL     string
	ChainID    uint64
	PrivateKey string

	NativeEntry    string
	EncryptedEntry string
	MixedEntry     string
	Fee            uint32
	TickSpacing    int32

	SlippageBps    uint32
	DeadlineOffset time.Duration
	TakerTickDrift int32

	WaitAttempts    int
	WaitInterval    time.Duration
	DecryptAttempts int
	ResyncAttempts  int
	ResyncInterval  time.Duration

	RevealTTL    time.Duration
	SnapshotPath string
	PgDSN        string

	MockSession bool
	LogLevel    string

	Tokens []TokenConfig
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CIPHERDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("fee", uint32(3000))
	v.SetDefault("tick-spacing", int32(60))
	v.SetDefault("slippage-bps", uint32(50))
	v.SetDefault("deadline-offset", 20*time.Minute)
	v.SetDefault("taker-tick-drift", int32(120))
	v.SetDefault("wait-attempts", 30)
	v.SetDefault("wait-interval", 2*time.Second)
	v.SetDefault("decrypt-attempts", 5)
	v.SetDefault("resync-attempts", 10)
	v.SetDefault("resync-interval", 3*time.Second)
	v.SetDefault("reveal-ttl", time.Minute)
	v.SetDefault("snapshot-path", "./data/reveals.jsonl")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:          v.GetString("rpc"),
		ChainID:         v.GetUint64("chain-id"),
		PrivateKey:      v.GetString("private-key"),
		NativeEntry:     v.GetString("native-entry"),
		EncryptedEntry:  v.GetString("encrypted-entry"),
		MixedEntry:      v.GetString("mixed-entry"),
		Fee:             v.GetUint32("fee"),
		TickSpacing:     v.GetInt32("tick-spacing"),
		SlippageBps:     v.GetUint32("slippage-bps"),
		DeadlineOffset:  v.GetDuration("deadline-offset"),
		TakerTickDrift:  v.GetInt32("taker-tick-drift"),
		WaitAttempts:    v.GetInt("wait-attempts"),
		WaitInterval:    v.GetDuration("wait-interval"),
		DecryptAttempts: v.GetInt("decrypt-attempts"),
		ResyncAttempts:  v.GetInt("resync-attempts"),
		ResyncInterval:  v.GetDuration("resync-interval"),
		RevealTTL:       v.GetDuration("reveal-ttl"),
		SnapshotPath:    v.GetString("snapshot-path"),
		PgDSN:           v.GetString("pg-dsn"),
		MockSession:     v.GetBool("mock-session"),
		LogLevel:        v.GetString("log-level"),
		Tokens:          getTokens(v),
	}

	if cfg.RPCURL == "" {
		return Config{}, fmt.Errorf("rpc endpoint is required")
	}

	return cfg, nil
}

// getTokens reads the token list from the config file. Tokens are only
// definable there; a flag has no sensible shape for them.
func getTokens(v *viper.Viper) []TokenConfig {
	raw, ok := v.Get("tokens").([]interface{})
	if !ok {
		return nil
	}

	tokens := make([]TokenConfig, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		token := TokenConfig{
			Symbol:      getString(entry, "symbol"),
			Address:     getString(entry, "address"),
			Decimals:    getInt(entry, "decimals"),
			Encrypted:   getBool(entry, "encrypted"),
			PairedToken: getString(entry, "paired-token"),
		}
		if token.Address == "" {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

func getString(entry map[string]interface{}, key string) string {
	if val, ok := entry[key].(string); ok {
		return strings.TrimSpace(val)
	}
	return ""
}

func getInt(entry map[string]interface{}, key string) int {
	switch val := entry[key].(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		return int(val)
	default:
		return 0
	}
}

func getBool(entry map[string]interface{}, key string) bool {
	val, _ := entry[key].(bool)
	return val
}
