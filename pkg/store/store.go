// Package store defines the abstract metadata store the operation kernel
// binds to (spec §4.6, §6). Implementations key entries by normalized
// absolute path and MUST preserve invariants I1–I10; they live outside
// this package (internal/storage/memory, internal/storage/bolt, …).
package store

import (
	"context"

	"github.com/vfscore/vfskernel/pkg/entry"
)

// MetadataStore is the mapping from normalized path to Entry the kernel
// operates against.
type MetadataStore interface {
	Get(ctx context.Context, path string) (*entry.Entry, error)
	Has(ctx context.Context, path string) (bool, error)

	// Insert adds a brand new entry; implementations may assume the path
	// does not already exist (the kernel checks this first).
	Insert(ctx context.Context, e *entry.Entry) error

	// Update replaces the stored entry at e.Path with e in full.
	Update(ctx context.Context, e *entry.Entry) error

	// Remove deletes the entry at path, reporting whether it existed.
	Remove(ctx context.Context, path string) (bool, error)

	// Children enumerates the direct children of a directory path, never
	// including "." or "..".
	Children(ctx context.Context, path string) ([]*entry.Entry, error)

	// ResolveSymlink returns the terminal non-symlink entry reached by
	// following path's symlink chain, subject to maxDepth (spec §4.8).
	// Returns (nil, nil) for broken or cyclic chains — the caller (the
	// symlink resolver) is responsible for turning that into ENOENT/ELOOP.
	ResolveSymlink(ctx context.Context, path string, maxDepth int) (*entry.Entry, error)

	// UserContext exposes the identity the permission checker evaluates
	// against.
	CurrentUID() uint32
	CurrentGID() uint32
	CurrentGroups() []uint32
	IsRoot() bool
}

// ErrNotConfigured is a sentinel a caller may use when no store is bound;
// it is distinct from the closed vfserrors taxonomy because "not
// configured" is a wiring failure, not a POSIX condition (see Exists in
// pkg/kernel, which treats an unconfigured store the same as a missing
// entry rather than surfacing this).
type ErrNotConfigured struct{}

func (ErrNotConfigured) Error() string { return "metadata store not configured" }
