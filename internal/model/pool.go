package model

import (
	"github.com/ethereum/go-ethereum/common"
)

// Dialect identifies which of the incompatible on-chain interface variants a
// pool speaks. The three dialects expose the same operations with different
// call shapes, so every submission must go through the dialect resolved for
// the pair.
type Dialect string

const (
	// DialectNative is the plaintext-only AMM: plain integer amounts everywhere.
	DialectNative Dialect = "native"
	// DialectEncrypted is the fully encrypted AMM: amounts travel as
	// ciphertext handles.
	DialectEncrypted Dialect = "encryptedOnly"
	// DialectMixed pairs one plaintext token with one encrypted token.
	DialectMixed Dialect = "mixed"
)

// DialectFor derives the pool dialect from the two token kinds. The mapping
// is total: both plaintext is native, both encrypted is encrypted-only, and
// any mix is mixed, regardless of token order.
func DialectFor(kind0, kind1 TokenKind) Dialect {
	switch {
	case kind0 == TokenPlaintext && kind1 == TokenPlaintext:
		return DialectNative
	case kind0 == TokenEncrypted && kind1 == TokenEncrypted:
		return DialectEncrypted
	default:
		return DialectMixed
	}
}

// PoolDescriptor is the resolved identity of one pool: canonical token pair,
// dialect, and the entry point every subsequent read/write must target.
// Constructed once per discovered pool and cached for the session.
type PoolDescriptor struct {
	Token0      Token          `json:"token0"`
	Token1      Token          `json:"token1"`
	Dialect     Dialect        `json:"dialect"`
	EntryPoint  common.Address `json:"entry_point"`
	PoolID      common.Hash    `json:"pool_id"`
	Fee         uint32         `json:"fee"`
	TickSpacing int32          `json:"tick_spacing"`
	ChainID     uint64         `json:"chain_id"`
}
