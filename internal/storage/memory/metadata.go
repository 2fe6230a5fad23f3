// Package memory provides reference in-memory implementations of
// store.MetadataStore and cas.BlobStore, used for tests and single-
// process deployments with no durability requirement.
package memory

import (
	"context"
	"sync"

	"github.com/vfscore/vfskernel/pkg/entry"
	"github.com/vfscore/vfskernel/pkg/posixmode"
	"github.com/vfscore/vfskernel/pkg/vpath"
)

// MetadataStore is a map-backed store.MetadataStore, seeded with a root
// directory on construction so every fresh kernel has a valid "/" entry.
type MetadataStore struct {
	mu       sync.RWMutex
	entries  map[string]*entry.Entry
	uid, gid uint32
	groups   []uint32
	root     bool
}

// New builds an empty MetadataStore with a root directory entry,
// defaulting the acting identity to uid 0 (root).
func New() *MetadataStore {
	m := &MetadataStore{
		entries: make(map[string]*entry.Entry),
		uid:     0,
		gid:     0,
		root:    true,
	}
	m.entries["/"] = &entry.Entry{
		ID:    "root",
		Path:  "/",
		Kind:  posixmode.KindDirectory,
		Mode:  posixmode.IFMT(posixmode.KindDirectory) | 0o755,
		Nlink: 2,
	}
	return m
}

// WithIdentity returns a shallow copy of m whose CurrentUID/GID/Groups
// reflect the given identity, sharing the same underlying entry map —
// used to simulate a non-root caller against the same filesystem state.
func (m *MetadataStore) WithIdentity(uid, gid uint32, groups []uint32) *MetadataStore {
	return &MetadataStore{entries: m.entries, mu: sync.RWMutex{}, uid: uid, gid: gid, groups: groups, root: uid == 0}
}

func (m *MetadataStore) Get(ctx context.Context, path string) (*entry.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[vpath.Normalize(path)]
	if !ok {
		return nil, nil
	}
	return e.Clone(), nil
}

func (m *MetadataStore) Has(ctx context.Context, path string) (bool, error) {
	e, err := m.Get(ctx, path)
	return e != nil, err
}

func (m *MetadataStore) Insert(ctx context.Context, e *entry.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.Path] = e.Clone()
	return nil
}

func (m *MetadataStore) Update(ctx context.Context, e *entry.Entry) error {
	return m.Insert(ctx, e)
}

func (m *MetadataStore) Remove(ctx context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := vpath.Normalize(path)
	_, existed := m.entries[p]
	delete(m.entries, p)
	return existed, nil
}

func (m *MetadataStore) Children(ctx context.Context, path string) ([]*entry.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := vpath.Normalize(path)
	var out []*entry.Entry
	for _, e := range m.entries {
		if e.Parent() == p {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}

func (m *MetadataStore) ResolveSymlink(ctx context.Context, path string, maxDepth int) (*entry.Entry, error) {
	return m.Get(ctx, path)
}

func (m *MetadataStore) CurrentUID() uint32      { return m.uid }
func (m *MetadataStore) CurrentGID() uint32      { return m.gid }
func (m *MetadataStore) CurrentGroups() []uint32 { return m.groups }
func (m *MetadataStore) IsRoot() bool            { return m.root }
