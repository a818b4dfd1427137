package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Side is the order-book side a bucket occupies.
type Side uint8

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	if s == SideBuy {
		return "buy"
	}
	return "sell"
}

// BucketKey identifies one bucket of resting orders at a price level.
type BucketKey struct {
	PoolID common.Hash `json:"pool_id"`
	Tick   int32       `json:"tick"`
	Side   Side        `json:"side"`
}

// Position is a user's stake in one bucket. Shares is a plain integer on the
// native dialect and nil with SharesHandle set on encrypted dialects.
type Position struct {
	Bucket       BucketKey        `json:"bucket"`
	Owner        common.Address   `json:"owner"`
	Shares       *big.Int         `json:"shares,omitempty"`
	SharesHandle CiphertextHandle `json:"shares_handle,omitempty"`
}
