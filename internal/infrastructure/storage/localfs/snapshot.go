package localfs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
)

// SnapshotStore persists a single snapshot blob under a fixed key. A
// snapshot that was never written loads as (nil, nil).
type SnapshotStore struct {
	storage *Storage
	key     string
}

func NewSnapshotStore(storage *Storage, key string) *SnapshotStore {
	if key == "" {
		key = "snapshots/tags.json"
	}
	return &SnapshotStore{storage: storage, key: key}
}

func (s *SnapshotStore) Save(ctx context.Context, snapshot []byte) error {
	return s.storage.Save(ctx, s.key, bytes.NewReader(snapshot))
}

func (s *SnapshotStore) Load(ctx context.Context) ([]byte, error) {
	f, err := s.storage.Open(ctx, s.key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
