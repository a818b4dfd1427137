package model

import (
	"github.com/ethereum/go-ethereum/common"
)

// RevealSnapshot is one persisted decrypted-balance cache entry. The cache is
// TTL-bounded and safe to drop at any time; snapshots only warm it.
type RevealSnapshot struct {
	Account    common.Address `json:"account"`
	ChainID    uint64         `json:"chain_id"`
	Token      common.Address `json:"token"`
	Pool       common.Hash    `json:"pool,omitempty"`
	Value      string         `json:"value"`
	RevealedAt int64          `json:"revealed_at"`
}
