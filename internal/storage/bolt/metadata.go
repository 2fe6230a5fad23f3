// Package bolt persists entries and blob metadata in a BoltDB file,
// adapted from the teacher pack's bbolt usage (ivoronin-dupedog's
// internal/cache/cache.go): one bucket keyed by normalized path holding
// gob-encoded entry.Entry records, updated inside bbolt transactions.
// Unlike dupedog's disposable, self-cleaning cache, this store is the
// filesystem's durable metadata of record, so there is no read/write
// database split — every open reuses the same file.
package bolt

import (
	"bytes"
	"context"
	"encoding/gob"

	bolt "go.etcd.io/bbolt"

	"github.com/vfscore/vfskernel/pkg/entry"
	"github.com/vfscore/vfskernel/pkg/posixmode"
	"github.com/vfscore/vfskernel/pkg/vpath"
)

const entriesBucket = "entries"

// MetadataStore is a bbolt-backed store.MetadataStore.
type MetadataStore struct {
	db       *bolt.DB
	uid, gid uint32
	groups   []uint32
	root     bool
}

// Open opens (creating if absent) the BoltDB file at path and seeds a
// root directory entry on first use.
func Open(path string) (*MetadataStore, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	m := &MetadataStore{db: db, root: true}
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(entriesBucket))
		if err != nil {
			return err
		}
		if b.Get([]byte("/")) != nil {
			return nil
		}
		root := &entry.Entry{
			ID:    "root",
			Path:  "/",
			Kind:  posixmode.KindDirectory,
			Mode:  posixmode.IFMT(posixmode.KindDirectory) | 0o755,
			Nlink: 2,
		}
		data, err := encodeEntry(root)
		if err != nil {
			return err
		}
		return b.Put([]byte("/"), data)
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return m, nil
}

// Close releases the underlying database file.
func (m *MetadataStore) Close() error { return m.db.Close() }

// WithIdentity returns a shallow copy of m acting as the given identity
// against the same underlying database.
func (m *MetadataStore) WithIdentity(uid, gid uint32, groups []uint32) *MetadataStore {
	return &MetadataStore{db: m.db, uid: uid, gid: gid, groups: groups, root: uid == 0}
}

func (m *MetadataStore) Get(ctx context.Context, path string) (*entry.Entry, error) {
	p := vpath.Normalize(path)
	var e *entry.Entry
	err := m.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(entriesBucket)).Get([]byte(p))
		if data == nil {
			return nil
		}
		e = &entry.Entry{}
		return decodeEntry(data, e)
	})
	return e, err
}

func (m *MetadataStore) Has(ctx context.Context, path string) (bool, error) {
	e, err := m.Get(ctx, path)
	return e != nil, err
}

func (m *MetadataStore) Insert(ctx context.Context, e *entry.Entry) error {
	data, err := encodeEntry(e)
	if err != nil {
		return err
	}
	return m.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(entriesBucket)).Put([]byte(e.Path), data)
	})
}

func (m *MetadataStore) Update(ctx context.Context, e *entry.Entry) error {
	return m.Insert(ctx, e)
}

func (m *MetadataStore) Remove(ctx context.Context, path string) (bool, error) {
	p := vpath.Normalize(path)
	var existed bool
	err := m.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(entriesBucket))
		existed = b.Get([]byte(p)) != nil
		if !existed {
			return nil
		}
		return b.Delete([]byte(p))
	})
	return existed, err
}

func (m *MetadataStore) Children(ctx context.Context, path string) ([]*entry.Entry, error) {
	p := vpath.Normalize(path)
	var out []*entry.Entry
	err := m.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(entriesBucket)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			e := &entry.Entry{}
			if err := decodeEntry(v, e); err != nil {
				return err
			}
			if e.Parent() == p {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}

func (m *MetadataStore) ResolveSymlink(ctx context.Context, path string, maxDepth int) (*entry.Entry, error) {
	return m.Get(ctx, path)
}

func (m *MetadataStore) CurrentUID() uint32      { return m.uid }
func (m *MetadataStore) CurrentGID() uint32      { return m.gid }
func (m *MetadataStore) CurrentGroups() []uint32 { return m.groups }
func (m *MetadataStore) IsRoot() bool            { return m.root }

func encodeEntry(e *entry.Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeEntry(data []byte, e *entry.Entry) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(e)
}
