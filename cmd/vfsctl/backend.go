package main

import (
	"fmt"

	"github.com/vfscore/vfskernel/internal/cache"
	"github.com/vfscore/vfskernel/internal/storage/bolt"
	"github.com/vfscore/vfskernel/internal/storage/memory"
	"github.com/vfscore/vfskernel/pkg/cas"
	"github.com/vfscore/vfskernel/pkg/kernel"
)

var (
	backendFlag  string
	boltPathFlag string
)

// openKernel builds a Kernel bound to the backend named by --backend,
// either the memory or the bolt adapter of SPEC_FULL §4.13; s3blob is not
// offered here. Closers (if any) must be invoked by the caller once done. When cacheCfg is
// non-nil, the blob store is wrapped in internal/cache's read-through
// LRU before binding, as the long-running "serve" subcommand does.
func openKernel(cacheCfg *cache.Config) (*kernel.Kernel, func() error, error) {
	switch backendFlag {
	case "memory":
		blobs := cas.BlobStore(memory.NewBlobStore())
		if cacheCfg != nil {
			blobs = cache.Wrap(blobs, *cacheCfg)
		}
		return kernel.New(memory.New(), blobs), func() error { return nil }, nil
	case "bolt":
		md, err := bolt.Open(boltPathFlag)
		if err != nil {
			return nil, nil, fmt.Errorf("open metadata store: %w", err)
		}
		blobStore, err := bolt.OpenBlobStore(boltPathFlag + ".blobs")
		if err != nil {
			_ = md.Close()
			return nil, nil, fmt.Errorf("open blob store: %w", err)
		}
		closer := func() error {
			err1 := md.Close()
			err2 := blobStore.Close()
			if err1 != nil {
				return err1
			}
			return err2
		}
		blobs := cas.BlobStore(blobStore)
		if cacheCfg != nil {
			blobs = cache.Wrap(blobs, *cacheCfg)
		}
		return kernel.New(md, blobs), closer, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q (want memory or bolt)", backendFlag)
	}
}
