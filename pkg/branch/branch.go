// Package branch implements the copy-on-write overlay that lets a branch
// inherit unmodified entries from a parent branch and privately override
// them (spec §3.4, §4.11, §9 design notes).
package branch

import (
	"context"
	"sync"

	"github.com/vfscore/vfskernel/pkg/entry"
	"github.com/vfscore/vfskernel/pkg/store"
	"github.com/vfscore/vfskernel/pkg/vfserrors"
)

// Branch is a store.MetadataStore that overlays a parent store.
// Reads consult the branch's own dirty map first, then its tombstone
// set (which aborts the lookup — the path is considered deleted in this
// branch regardless of what the parent holds), then fall through to the
// parent. Writes and deletes only ever touch the branch's own maps,
// satisfying I9: a COW branch never mutates its parent.
type Branch struct {
	ID       string
	ParentID string

	parent store.MetadataStore

	mu         sync.RWMutex
	dirty      map[string]*entry.Entry
	tombstones map[string]bool
	frozen     bool

	createdAt  int64
	modifiedAt int64
	clock      func() int64
}

// New creates a branch with the given id, overlaying parent (which may
// itself be another *Branch, allowing branch trees).
func New(id string, parent store.MetadataStore, clock func() int64) *Branch {
	return &Branch{
		ID:         id,
		parent:     parent,
		dirty:      make(map[string]*entry.Entry),
		tombstones: make(map[string]bool),
		clock:      clock,
		createdAt:  clock(),
		modifiedAt: clock(),
	}
}

func (b *Branch) touch() { b.modifiedAt = b.clock() }

// Get resolves path by consulting the branch's dirty map, then its
// tombstones, then the parent chain.
func (b *Branch) Get(ctx context.Context, path string) (*entry.Entry, error) {
	b.mu.RLock()
	if e, ok := b.dirty[path]; ok {
		b.mu.RUnlock()
		return e.Clone(), nil
	}
	if b.tombstones[path] {
		b.mu.RUnlock()
		return nil, nil
	}
	b.mu.RUnlock()
	if b.parent == nil {
		return nil, nil
	}
	return b.parent.Get(ctx, path)
}

func (b *Branch) Has(ctx context.Context, path string) (bool, error) {
	e, err := b.Get(ctx, path)
	return e != nil, err
}

func (b *Branch) Insert(ctx context.Context, e *entry.Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return vfserrors.Wrap(vfserrors.EROFS, "write", e.Path)
	}
	b.dirty[e.Path] = e.Clone()
	delete(b.tombstones, e.Path)
	b.touch()
	return nil
}

func (b *Branch) Update(ctx context.Context, e *entry.Entry) error {
	return b.Insert(ctx, e)
}

// Remove tombstones path in this branch: subsequent reads see nothing,
// regardless of whether the parent still holds an entry there.
func (b *Branch) Remove(ctx context.Context, path string) (bool, error) {
	existed, err := b.Has(ctx, path)
	if err != nil {
		return false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return false, vfserrors.Wrap(vfserrors.EROFS, "write", path)
	}
	delete(b.dirty, path)
	b.tombstones[path] = true
	b.touch()
	return existed, nil
}

// Children enumerates direct children by merging the branch's dirty
// overlay with the parent's children: dirty entries (and tombstones)
// under the given directory shadow the parent's, in a single pass keyed
// by name.
func (b *Branch) Children(ctx context.Context, path string) ([]*entry.Entry, error) {
	merged := make(map[string]*entry.Entry)

	if b.parent != nil {
		parentChildren, err := b.parent.Children(ctx, path)
		if err != nil {
			return nil, err
		}
		for _, e := range parentChildren {
			merged[e.Name()] = e
		}
	}

	b.mu.RLock()
	for _, e := range b.dirty {
		if e.Parent() == path {
			merged[e.Name()] = e
		}
	}
	for p := range b.tombstones {
		if parentOf(p) == path {
			delete(merged, nameOf(p))
		}
	}
	b.mu.RUnlock()

	out := make([]*entry.Entry, 0, len(merged))
	for _, e := range merged {
		out = append(out, e.Clone())
	}
	return out, nil
}

func (b *Branch) ResolveSymlink(ctx context.Context, path string, maxDepth int) (*entry.Entry, error) {
	// Branches delegate chain-following to pkg/symlink at the kernel
	// layer; this hook exists to satisfy MetadataStore but a Branch is
	// normally driven through pkg/symlink.Resolve(ctx, branch, ...).
	return b.Get(ctx, path)
}

func (b *Branch) CurrentUID() uint32 {
	if u, ok := b.parent.(interface{ CurrentUID() uint32 }); ok {
		return u.CurrentUID()
	}
	return 0
}

func (b *Branch) CurrentGID() uint32 {
	if g, ok := b.parent.(interface{ CurrentGID() uint32 }); ok {
		return g.CurrentGID()
	}
	return 0
}

func (b *Branch) CurrentGroups() []uint32 {
	if g, ok := b.parent.(interface{ CurrentGroups() []uint32 }); ok {
		return g.CurrentGroups()
	}
	return nil
}

func (b *Branch) IsRoot() bool {
	if r, ok := b.parent.(interface{ IsRoot() bool }); ok {
		return r.IsRoot()
	}
	return false
}

// Commit freezes the branch's dirty set: the branch keeps its current
// overrides but further writes are rejected until Discard or a new child
// branch is created from it.
func (b *Branch) Commit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frozen = true
	b.touch()
}

// Discard removes all dirty entries and tombstones without touching the
// parent, reverting the branch to a pristine view of it.
func (b *Branch) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dirty = make(map[string]*entry.Entry)
	b.tombstones = make(map[string]bool)
	b.frozen = false
	b.touch()
}

// Frozen reports whether Commit has been called since the last Discard.
func (b *Branch) Frozen() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.frozen
}

func nameOf(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}

func parentOf(p string) string {
	for i := len(p) - 1; i >= 1; i-- {
		if p[i] == '/' {
			return p[:i]
		}
	}
	return "/"
}
