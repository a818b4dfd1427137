package storage

import (
	"context"

	"cipherdex/internal/model"
)

// Store persists reveal snapshots across restarts. It backs the short-lived
// decrypted-balance cache and nothing else; losing its contents only costs a
// fresh decrypt.
type Store interface {
	Load(ctx context.Context) ([]model.RevealSnapshot, error)
	Save(ctx context.Context, snapshots []model.RevealSnapshot) error
}
