package resultstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/maumercado/flowcore/internal/engine"
)

// FilesystemStore persists results as JSON files under a root
// directory, one file per cache key, named by the key's SHA-256 hex
// digest to keep the on-disk layout flat regardless of key content.
type FilesystemStore struct {
	root string
}

// NewFilesystemStore returns a store rooted at dir, creating it if
// necessary.
func NewFilesystemStore(dir string) (*FilesystemStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("resultstore: create root dir: %w", err)
	}
	return &FilesystemStore{root: dir}, nil
}

type record struct {
	Value     json.RawMessage `json:"value"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
}

func (s *FilesystemStore) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.root, hex.EncodeToString(sum[:]))
}

func (s *FilesystemStore) Get(ctx context.Context, key string) (engine.Result, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return engine.Result{}, false, nil
	}
	if err != nil {
		return engine.Result{}, false, fmt.Errorf("resultstore: read %s: %w", key, err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return engine.Result{}, false, fmt.Errorf("resultstore: decode %s: %w", key, err)
	}
	if rec.ExpiresAt != nil && time.Now().After(*rec.ExpiresAt) {
		_ = os.Remove(s.path(key))
		return engine.Result{}, false, nil
	}

	var value any
	if err := json.Unmarshal(rec.Value, &value); err != nil {
		return engine.Result{}, false, fmt.Errorf("resultstore: decode value %s: %w", key, err)
	}
	return engine.Result{Value: value, Retrieved: true}, true, nil
}

func (s *FilesystemStore) Put(ctx context.Context, key string, result engine.Result, expiresAt *time.Time) error {
	value, err := json.Marshal(result.Value)
	if err != nil {
		return fmt.Errorf("resultstore: encode value %s: %w", key, err)
	}
	rec := record{Value: value, ExpiresAt: expiresAt}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("resultstore: encode record %s: %w", key, err)
	}
	if err := os.WriteFile(s.path(key), data, 0o644); err != nil {
		return fmt.Errorf("resultstore: write %s: %w", key, err)
	}
	return nil
}

func (s *FilesystemStore) Close() error { return nil }
