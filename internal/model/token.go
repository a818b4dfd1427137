package model

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
)

// TokenKind tells whether balances of a token are plaintext or ciphertext.
type TokenKind string

const (
	// TokenPlaintext is a standard ERC20 with publicly readable balances.
	TokenPlaintext TokenKind = "plaintext"
	// TokenEncrypted is an FHE ERC20 whose balances are ciphertext handles.
	TokenEncrypted TokenKind = "encrypted"
)

// Token captures the metadata of one tradeable asset. Immutable once loaded.
type Token struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
	Kind     TokenKind      `json:"kind"`

	// PairedToken is the plaintext/encrypted counterpart used by wrap and
	// unwrap, zero when the token has none.
	PairedToken common.Address `json:"paired_token,omitempty"`
}

// HasPair reports whether the token has a wrap/unwrap counterpart.
func (t Token) HasPair() bool {
	return t.PairedToken != (common.Address{})
}

// SortTokens returns the pair in canonical order: the lower address is token0.
func SortTokens(a, b Token) (Token, Token) {
	if bytes.Compare(a.Address.Bytes(), b.Address.Bytes()) > 0 {
		return b, a
	}
	return a, b
}
