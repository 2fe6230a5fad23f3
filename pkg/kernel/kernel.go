// Package kernel implements the operation family that jointly maintains
// filesystem invariants over the metadata plane, the content-addressed
// blob plane, and (optionally) a COW branch overlay (spec §4.10, C10).
// Every exported method is one POSIX-shaped operation; together they are
// the locus of correctness for the whole module.
package kernel

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vfscore/vfskernel/pkg/cas"
	"github.com/vfscore/vfskernel/pkg/entry"
	"github.com/vfscore/vfskernel/pkg/perm"
	"github.com/vfscore/vfskernel/pkg/posixmode"
	"github.com/vfscore/vfskernel/pkg/store"
	"github.com/vfscore/vfskernel/pkg/vfserrors"
	"github.com/vfscore/vfskernel/pkg/vpath"
)

// Clock returns the current time in milliseconds since epoch. Tests
// inject a deterministic Clock; production wiring uses time.Now.
type Clock func() int64

// IDGen mints a stable identifier for new entries.
type IDGen func() string

// Kernel binds the operation family to one metadata store and one blob
// store. A Kernel serializes operations against itself (spec §5: single-
// threaded from the perspective of any one instance); multiple Kernel
// values bound to independent stores are fully independent.
type Kernel struct {
	mu    sync.Mutex
	md    store.MetadataStore
	blobs cas.BlobStore
	clock Clock
	newID IDGen
}

// Option configures optional Kernel behavior.
type Option func(*Kernel)

// WithClock overrides the default wall-clock timestamp source.
func WithClock(c Clock) Option { return func(k *Kernel) { k.clock = c } }

// WithIDGen overrides the default UUID-based entry id generator.
func WithIDGen(g IDGen) Option { return func(k *Kernel) { k.newID = g } }

// New builds a Kernel over the given metadata and blob stores.
func New(md store.MetadataStore, blobs cas.BlobStore, opts ...Option) *Kernel {
	k := &Kernel{
		md:    md,
		blobs: blobs,
		clock: func() int64 { return time.Now().UnixMilli() },
		newID: func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(k)
	}
	return k
}

func (k *Kernel) now() int64 { return k.clock() }

func (k *Kernel) currentUser() perm.User {
	return perm.User{
		UID:    k.md.CurrentUID(),
		GID:    k.md.CurrentGID(),
		Groups: k.md.CurrentGroups(),
		Root:   k.md.IsRoot(),
	}
}

// lookupRaw fetches the raw entry at path with no symlink following, for
// internal bookkeeping where the distinction matters (e.g. checking
// whether a path already exists before an insert).
func (k *Kernel) lookupRaw(ctx context.Context, path string) (*entry.Entry, error) {
	return k.md.Get(ctx, vpath.Normalize(path))
}

// requireParentDir fetches the parent of child and fails ENOTDIR if it
// exists but is not a directory, ENOENT if missing, EINVAL if child is root.
func (k *Kernel) requireParentDir(ctx context.Context, child, syscall string) (*entry.Entry, error) {
	parent := vpath.Parent(vpath.Normalize(child))
	if parent == "" {
		// child is root; callers must have already rejected that.
		return nil, vfserrors.Wrap(vfserrors.EINVAL, syscall, child)
	}
	pe, err := k.lookupRaw(ctx, parent)
	if err != nil {
		return nil, err
	}
	if pe == nil {
		return nil, vfserrors.Wrap(vfserrors.ENOENT, syscall, child)
	}
	if !isDir(pe) {
		return nil, vfserrors.Wrap(vfserrors.ENOTDIR, syscall, child)
	}
	return pe, nil
}

func isDir(e *entry.Entry) bool {
	return e != nil && e.Kind == posixmode.KindDirectory
}
