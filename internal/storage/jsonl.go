package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"cipherdex/internal/model"
)

// JsonlStore keeps reveal snapshots in a JSONL file, one snapshot per line.
// Save appends; Load keeps only the newest line per (account, chain, token,
// pool) so the file compacts itself on read.
type JsonlStore struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStore(path string) *JsonlStore {
	return &JsonlStore{path: path}
}

type snapshotKey struct {
	Account string
	ChainID uint64
	Token   string
	Pool    string
}

// Load reads every snapshot from the file. A missing file is an empty cache.
// Malformed lines are skipped, not fatal: the snapshot file is a cache and
// losing an entry only forces a fresh decrypt.
func (s *JsonlStore) Load(_ context.Context) ([]model.RevealSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer file.Close()

	latest := make(map[snapshotKey]model.RevealSnapshot)
	var order []snapshotKey

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var snap model.RevealSnapshot
		if err := json.Unmarshal(line, &snap); err != nil {
			continue
		}
		key := snapshotKey{
			Account: snap.Account.Hex(),
			ChainID: snap.ChainID,
			Token:   snap.Token.Hex(),
			Pool:    snap.Pool.Hex(),
		}
		if _, seen := latest[key]; !seen {
			order = append(order, key)
		}
		latest[key] = snap
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}

	snapshots := make([]model.RevealSnapshot, 0, len(latest))
	for _, key := range order {
		snapshots = append(snapshots, latest[key])
	}
	return snapshots, nil
}

// Save appends snapshots as JSON lines.
func (s *JsonlStore) Save(_ context.Context, snapshots []model.RevealSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open snapshot file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, snap := range snapshots {
		line, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush snapshot file: %w", err)
	}
	return nil
}
