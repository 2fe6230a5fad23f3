package memory

import (
	"context"
	"sync"

	"github.com/vfscore/vfskernel/pkg/cas"
)

// BlobStore is a map-backed cas.BlobStore with no tiering or eviction —
// every blob lives "hot" for the process lifetime. Used for tests and
// deployments with no durability requirement.
type BlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	refs  map[string]int64
}

// NewBlobStore builds an empty BlobStore.
func NewBlobStore() *BlobStore {
	return &BlobStore{
		blobs: make(map[string][]byte),
		refs:  make(map[string]int64),
	}
}

func (s *BlobStore) Write(ctx context.Context, data []byte) (string, error) {
	hash := cas.Hash(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[hash]; !ok {
		cp := make([]byte, len(data))
		copy(cp, data)
		s.blobs[hash] = cp
	}
	return hash, nil
}

func (s *BlobStore) Incref(ctx context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[hash]++
	return nil
}

func (s *BlobStore) Decref(ctx context.Context, hash string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[hash]--
	after := s.refs[hash]
	if after <= 0 {
		delete(s.blobs, hash)
		delete(s.refs, hash)
		after = 0
	}
	return after, nil
}

func (s *BlobStore) Get(ctx context.Context, hash string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[hash]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (s *BlobStore) Info(ctx context.Context, hash string) (cas.Info, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[hash]
	if !ok {
		return cas.Info{}, false, nil
	}
	return cas.Info{Size: int64(len(data)), Tier: cas.TierHot, Refcount: s.refs[hash]}, true, nil
}

func (s *BlobStore) DedupStats(ctx context.Context) (cas.DedupStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats cas.DedupStats
	for hash, data := range s.blobs {
		stats.UniqueBlobs++
		stats.TotalPhysical += int64(len(data))
		stats.TotalLogical += int64(len(data)) * s.refs[hash]
	}
	stats.SavedBytes = stats.TotalLogical - stats.TotalPhysical
	return stats, nil
}
