package model

import (
	"github.com/ethereum/go-ethereum/common"
)

// CiphertextHandle is an opaque reference to an encrypted value. The client
// never inspects it, only passes it between the encryption provider and the
// ledger entry points.
type CiphertextHandle struct {
	Hash         common.Hash `json:"hash"`
	SecurityZone int32       `json:"security_zone"`
	TypeTag      uint8       `json:"type_tag"`
	Proof        []byte      `json:"proof,omitempty"`
}

// IsZero reports whether the handle is unset.
func (h CiphertextHandle) IsZero() bool {
	return h.Hash == (common.Hash{})
}
