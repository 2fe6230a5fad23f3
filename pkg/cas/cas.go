// Package cas defines the content-addressed blob store contract (spec
// §3.3, §4.7): hash-indexed byte storage with reference counting and
// dedup. Concrete backends live outside this package.
package cas

import (
	"context"
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Tier classifies where a blob's bytes physically live.
type Tier string

const (
	TierHot  Tier = "hot"
	TierWarm Tier = "warm"
	TierCold Tier = "cold"
)

// Info is the read-only projection returned by BlobStore.Info.
type Info struct {
	Size     int64
	Tier     Tier
	Refcount int64
}

// DedupStats summarizes deduplication effectiveness across all live blobs
// (spec §4.7).
type DedupStats struct {
	UniqueBlobs   int64
	TotalPhysical int64
	TotalLogical  int64
	SavedBytes    int64
}

// BlobStore is the content-addressed byte store the kernel writes regular
// file contents through.
type BlobStore interface {
	// Write stores bytes if not already present (deduplicating on hash)
	// and returns the content hash. Refcount is NOT bumped by Write —
	// callers (the kernel) call Incref explicitly once they've linked an
	// entry to the hash, so that a write whose entry creation fails
	// doesn't leak a reference.
	Write(ctx context.Context, data []byte) (hash string, err error)

	Incref(ctx context.Context, hash string) error
	// Decref decrements refcount and garbage-collects the blob (removing
	// bytes and metadata) when it reaches zero, returning the refcount
	// after the decrement.
	Decref(ctx context.Context, hash string) (refcountAfter int64, err error)

	Get(ctx context.Context, hash string) ([]byte, error)
	Info(ctx context.Context, hash string) (Info, bool, error)

	DedupStats(ctx context.Context) (DedupStats, error)
}

// Hash computes the content-derived hex identifier used to key blobs.
// BLAKE3 is collision-resistant and is the hash the kernel standardizes
// on for all backends, matching the content-addressing scheme used
// elsewhere in the pack (gfbonny-cxdb's fstree snapshots).
func Hash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
