package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cipherdex/internal/model"
)

// Store provides Postgres persistence for reveal snapshots.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	store := &Store{pool: pool}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS reveal_snapshots (
			account TEXT NOT NULL,
			chain_id BIGINT NOT NULL,
			token TEXT NOT NULL,
			pool TEXT NOT NULL,
			value TEXT NOT NULL,
			revealed_at BIGINT NOT NULL,
			PRIMARY KEY (account, chain_id, token, pool)
		)
	`)
	return err
}

// Load returns every stored snapshot. Staleness is the caller's concern.
func (s *Store) Load(ctx context.Context) ([]model.RevealSnapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT account, chain_id, token, pool, value, revealed_at
		FROM reveal_snapshots
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []model.RevealSnapshot
	for rows.Next() {
		var (
			account, token, pool string
			snap                 model.RevealSnapshot
		)
		if err := rows.Scan(&account, &snap.ChainID, &token, &pool, &snap.Value, &snap.RevealedAt); err != nil {
			return nil, err
		}
		snap.Account = common.HexToAddress(account)
		snap.Token = common.HexToAddress(token)
		snap.Pool = common.HexToHash(pool)
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// Save upserts snapshots, newest revealed_at winning.
func (s *Store) Save(ctx context.Context, snapshots []model.RevealSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		batch.Queue(`
			INSERT INTO reveal_snapshots (account, chain_id, token, pool, value, revealed_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (account, chain_id, token, pool)
			DO UPDATE SET
				value = EXCLUDED.value,
				revealed_at = EXCLUDED.revealed_at
			WHERE reveal_snapshots.revealed_at <= EXCLUDED.revealed_at
		`,
			snap.Account.Hex(),
			int64(snap.ChainID),
			snap.Token.Hex(),
			snap.Pool.Hex(),
			snap.Value,
			snap.RevealedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range snapshots {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
