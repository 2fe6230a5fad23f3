// Package s3blob implements cas.BlobStore against AWS S3, mapping blob
// size to a storage-class tier and wrapping every remote call with the
// circuit breaker and retry policies the teacher's S3 backend uses
// (adapted from internal/storage/s3/backend.go and tiers.go, minus its
// CargoShip-specific transport acceleration, which has no home here —
// see DESIGN.md).
package s3blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/vfscore/vfskernel/internal/circuit"
	"github.com/vfscore/vfskernel/internal/svcerrors"
	"github.com/vfscore/vfskernel/pkg/cas"
	"github.com/vfscore/vfskernel/pkg/retry"
)

// Config configures the S3-backed blob store.
type Config struct {
	Bucket string
	Prefix string

	HotMaxBytes  int64
	WarmMaxBytes int64

	Retry   retry.Config
	Breaker circuit.Config

	// Logger, if set, receives a warning record on every circuit breaker
	// state transition.
	Logger *slog.Logger
}

func (c Config) tierFor(size int64) cas.Tier {
	switch {
	case size <= c.HotMaxBytes:
		return cas.TierHot
	case size <= c.WarmMaxBytes:
		return cas.TierWarm
	default:
		return cas.TierCold
	}
}

var storageClassByTier = map[cas.Tier]s3types.StorageClass{
	cas.TierHot:  s3types.StorageClassStandard,
	cas.TierWarm: s3types.StorageClassStandardIa,
	cas.TierCold: s3types.StorageClassGlacier,
}

// blobMeta is the bookkeeping kept alongside each object's bytes; the
// object body in S3 is the sole source of truth for content, this index
// tracks the refcount and tier a pure byte store has no concept of.
type blobMeta struct {
	size     int64
	tier     cas.Tier
	refcount int64
}

// Backend implements cas.BlobStore over an S3 bucket. The refcount/tier
// index is kept in memory only; it is not persisted.
type Backend struct {
	client *s3.Client
	cfg    Config
	breaker *circuit.CircuitBreaker
	retryer *retry.Retryer

	mu    sync.Mutex
	index map[string]*blobMeta
}

// New builds a Backend over an already-configured S3 client.
func New(client *s3.Client, cfg Config) *Backend {
	if cfg.HotMaxBytes <= 0 {
		cfg.HotMaxBytes = 1 << 20
	}
	if cfg.WarmMaxBytes <= 0 {
		cfg.WarmMaxBytes = 64 << 20
	}
	if cfg.Logger != nil {
		logger := cfg.Logger
		cfg.Breaker.OnStateChange = func(name string, from, to circuit.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		}
	}
	return &Backend{
		client:  client,
		cfg:     cfg,
		breaker: circuit.NewCircuitBreaker("s3blob", cfg.Breaker),
		retryer: retry.New(cfg.Retry),
		index:   make(map[string]*blobMeta),
	}
}

func (b *Backend) objectKey(hash string) string {
	if b.cfg.Prefix == "" {
		return hash
	}
	return b.cfg.Prefix + "/" + hash
}

// Write uploads data under its content hash if not already present.
// Refcount is left untouched; the kernel calls Incref explicitly.
func (b *Backend) Write(ctx context.Context, data []byte) (string, error) {
	hash := cas.Hash(data)

	b.mu.Lock()
	_, known := b.index[hash]
	b.mu.Unlock()
	if known {
		return hash, nil
	}

	tier := b.cfg.tierFor(int64(len(data)))
	err := b.call(ctx, func(ctx context.Context) error {
		_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:       aws.String(b.cfg.Bucket),
			Key:          aws.String(b.objectKey(hash)),
			Body:         bytes.NewReader(data),
			StorageClass: storageClassByTier[tier],
		})
		return err
	})
	if err != nil {
		return "", svcerrors.NewStorage(fmt.Sprintf("put blob %s", hash), err, true)
	}

	b.mu.Lock()
	b.index[hash] = &blobMeta{size: int64(len(data)), tier: tier}
	b.mu.Unlock()
	return hash, nil
}

// Incref increments hash's refcount.
func (b *Backend) Incref(ctx context.Context, hash string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.index[hash]
	if !ok {
		return svcerrors.NewStorage(fmt.Sprintf("incref unknown blob %s", hash), nil, false)
	}
	m.refcount++
	return nil
}

// Decref decrements hash's refcount, deleting the S3 object and index
// entry once it reaches zero.
func (b *Backend) Decref(ctx context.Context, hash string) (int64, error) {
	b.mu.Lock()
	m, ok := b.index[hash]
	if !ok {
		b.mu.Unlock()
		return 0, svcerrors.NewStorage(fmt.Sprintf("decref unknown blob %s", hash), nil, false)
	}
	m.refcount--
	after := m.refcount
	if after <= 0 {
		delete(b.index, hash)
	}
	b.mu.Unlock()

	if after <= 0 {
		err := b.call(ctx, func(ctx context.Context) error {
			_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(b.cfg.Bucket),
				Key:    aws.String(b.objectKey(hash)),
			})
			return err
		})
		if err != nil {
			return 0, svcerrors.NewStorage(fmt.Sprintf("delete blob %s", hash), err, true)
		}
	}
	return after, nil
}

// Get downloads the full object bytes for hash.
func (b *Backend) Get(ctx context.Context, hash string) ([]byte, error) {
	var body []byte
	err := b.call(ctx, func(ctx context.Context) error {
		out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(b.cfg.Bucket),
			Key:    aws.String(b.objectKey(hash)),
		})
		if err != nil {
			return err
		}
		defer out.Body.Close()
		body, err = io.ReadAll(out.Body)
		return err
	})
	if err != nil {
		return nil, svcerrors.NewStorage(fmt.Sprintf("get blob %s", hash), err, true)
	}
	return body, nil
}

// Info reports size/tier/refcount for hash.
func (b *Backend) Info(ctx context.Context, hash string) (cas.Info, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.index[hash]
	if !ok {
		return cas.Info{}, false, nil
	}
	return cas.Info{Size: m.size, Tier: m.tier, Refcount: m.refcount}, true, nil
}

// DedupStats aggregates physical vs. logical bytes across the index.
func (b *Backend) DedupStats(ctx context.Context) (cas.DedupStats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var stats cas.DedupStats
	for _, m := range b.index {
		stats.UniqueBlobs++
		stats.TotalPhysical += m.size
		stats.TotalLogical += m.size * m.refcount
	}
	stats.SavedBytes = stats.TotalLogical - stats.TotalPhysical
	return stats, nil
}

// call runs fn through the circuit breaker and retry policy, the same
// resilience layering the teacher's S3 backend applies to every remote
// operation.
func (b *Backend) call(ctx context.Context, fn func(context.Context) error) error {
	err := b.breaker.ExecuteWithContext(ctx, func(ctx context.Context) error {
		return b.retryer.DoWithContext(ctx, fn)
	})
	if err != nil && errors.Is(err, circuit.ErrOpenState) {
		return svcerrors.NewConnection("circuit breaker open", err)
	}
	return err
}
