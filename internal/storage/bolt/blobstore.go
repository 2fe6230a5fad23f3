package bolt

import (
	"context"
	"encoding/binary"

	bolt "go.etcd.io/bbolt"

	"github.com/vfscore/vfskernel/pkg/cas"
)

const (
	blobsBucket = "blobs"
	refsBucket  = "blob_refs"
)

// BlobStore is a bbolt-backed cas.BlobStore, the durable local-disk
// counterpart to internal/storage/memory.BlobStore — for deployments
// that want content-addressed storage on a single node without S3.
type BlobStore struct {
	db *bolt.DB
}

// OpenBlobStore opens (creating if absent) a BoltDB file dedicated to
// blob bytes and refcounts. Pass a distinct path from the metadata
// store's — bbolt takes an exclusive file lock per database.
func OpenBlobStore(path string) (*BlobStore, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(blobsBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(refsBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BlobStore{db: db}, nil
}

func (s *BlobStore) Close() error { return s.db.Close() }

func (s *BlobStore) Write(ctx context.Context, data []byte) (string, error) {
	hash := cas.Hash(data)
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(blobsBucket))
		if b.Get([]byte(hash)) != nil {
			return nil
		}
		return b.Put([]byte(hash), data)
	})
	if err != nil {
		return "", err
	}
	return hash, nil
}

func (s *BlobStore) Incref(ctx context.Context, hash string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(refsBucket))
		return b.Put([]byte(hash), encodeRefcount(decodeRefcount(b.Get([]byte(hash)))+1))
	})
}

func (s *BlobStore) Decref(ctx context.Context, hash string) (int64, error) {
	var after int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		refs := tx.Bucket([]byte(refsBucket))
		after = decodeRefcount(refs.Get([]byte(hash))) - 1
		if after <= 0 {
			after = 0
			if err := refs.Delete([]byte(hash)); err != nil {
				return err
			}
			return tx.Bucket([]byte(blobsBucket)).Delete([]byte(hash))
		}
		return refs.Put([]byte(hash), encodeRefcount(after))
	})
	return after, err
}

func (s *BlobStore) Get(ctx context.Context, hash string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(blobsBucket)).Get([]byte(hash))
		if v == nil {
			return nil
		}
		data = make([]byte, len(v))
		copy(data, v)
		return nil
	})
	return data, err
}

func (s *BlobStore) Info(ctx context.Context, hash string) (cas.Info, bool, error) {
	var info cas.Info
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(blobsBucket)).Get([]byte(hash))
		if v == nil {
			return nil
		}
		found = true
		info = cas.Info{
			Size:     int64(len(v)),
			Tier:     cas.TierHot,
			Refcount: decodeRefcount(tx.Bucket([]byte(refsBucket)).Get([]byte(hash))),
		}
		return nil
	})
	return info, found, err
}

func (s *BlobStore) DedupStats(ctx context.Context) (cas.DedupStats, error) {
	var stats cas.DedupStats
	err := s.db.View(func(tx *bolt.Tx) error {
		blobs := tx.Bucket([]byte(blobsBucket))
		refs := tx.Bucket([]byte(refsBucket))
		return blobs.ForEach(func(k, v []byte) error {
			stats.UniqueBlobs++
			stats.TotalPhysical += int64(len(v))
			stats.TotalLogical += int64(len(v)) * decodeRefcount(refs.Get(k))
			return nil
		})
	})
	stats.SavedBytes = stats.TotalLogical - stats.TotalPhysical
	return stats, err
}

func decodeRefcount(v []byte) int64 {
	if len(v) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(v))
}

func encodeRefcount(n int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	return buf
}
