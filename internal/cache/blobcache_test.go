package cache

import (
	"context"
	"testing"
	"time"

	"github.com/vfscore/vfskernel/pkg/cas"
)

type fakeBlobStore struct {
	data    map[string][]byte
	refs    map[string]int64
	getCall int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{data: map[string][]byte{}, refs: map[string]int64{}}
}

func (f *fakeBlobStore) Write(ctx context.Context, data []byte) (string, error) {
	h := cas.Hash(data)
	f.data[h] = data
	return h, nil
}
func (f *fakeBlobStore) Incref(ctx context.Context, hash string) error {
	f.refs[hash]++
	return nil
}
func (f *fakeBlobStore) Decref(ctx context.Context, hash string) (int64, error) {
	f.refs[hash]--
	if f.refs[hash] <= 0 {
		delete(f.data, hash)
		delete(f.refs, hash)
		return 0, nil
	}
	return f.refs[hash], nil
}
func (f *fakeBlobStore) Get(ctx context.Context, hash string) ([]byte, error) {
	f.getCall++
	return f.data[hash], nil
}
func (f *fakeBlobStore) Info(ctx context.Context, hash string) (cas.Info, bool, error) {
	return cas.Info{}, false, nil
}
func (f *fakeBlobStore) DedupStats(ctx context.Context) (cas.DedupStats, error) {
	return cas.DedupStats{}, nil
}

func TestBlobCache_HitsAfterFirstRead(t *testing.T) {
	backend := newFakeBlobStore()
	hash, _ := backend.Write(context.Background(), []byte("hello"))
	backend.Incref(context.Background(), hash)

	c := Wrap(backend, Config{MaxEntries: 10, TTL: time.Minute})

	if _, err := c.Get(context.Background(), hash); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(context.Background(), hash); err != nil {
		t.Fatal(err)
	}

	if backend.getCall != 1 {
		t.Errorf("expected 1 backend Get call (second served from cache), got %d", backend.getCall)
	}
	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %+v", stats)
	}
}

func TestBlobCache_DecrefToZeroEvicts(t *testing.T) {
	backend := newFakeBlobStore()
	hash, _ := backend.Write(context.Background(), []byte("data"))
	backend.Incref(context.Background(), hash)

	c := Wrap(backend, Config{MaxEntries: 10, TTL: time.Minute})
	if _, err := c.Get(context.Background(), hash); err != nil {
		t.Fatal(err)
	}
	if c.Stats().Entries != 1 {
		t.Fatalf("expected 1 cached entry before decref")
	}

	if _, err := c.Decref(context.Background(), hash); err != nil {
		t.Fatal(err)
	}
	if c.Stats().Entries != 0 {
		t.Errorf("expected cache entry evicted after refcount reached zero")
	}
}

func TestBlobCache_EvictsOverCapacity(t *testing.T) {
	backend := newFakeBlobStore()
	c := Wrap(backend, Config{MaxEntries: 2, TTL: time.Minute})

	hashes := make([]string, 3)
	for i, s := range []string{"a", "b", "c"} {
		h, _ := backend.Write(context.Background(), []byte(s))
		backend.Incref(context.Background(), h)
		hashes[i] = h
		if _, err := c.Get(context.Background(), h); err != nil {
			t.Fatal(err)
		}
	}

	if c.Stats().Entries != 2 {
		t.Errorf("expected capacity-bounded cache to hold 2 entries, got %d", c.Stats().Entries)
	}
}
