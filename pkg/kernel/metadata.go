package kernel

import (
	"context"

	"github.com/vfscore/vfskernel/pkg/entry"
	"github.com/vfscore/vfskernel/pkg/perm"
	"github.com/vfscore/vfskernel/pkg/posixmode"
	"github.com/vfscore/vfskernel/pkg/symlink"
	"github.com/vfscore/vfskernel/pkg/validate"
	"github.com/vfscore/vfskernel/pkg/vfserrors"
	"github.com/vfscore/vfskernel/pkg/vpath"
)

// Exists never throws: it reports false for a missing entry, a broken or
// cyclic symlink, or a trailing-slash path whose resolved target is not a
// directory (spec §4.10 exists).
func (k *Kernel) Exists(ctx context.Context, path string) bool {
	if k.md == nil {
		return false
	}
	if err := validate.Path(path, "stat"); err != nil {
		return false
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	e, err := symlink.Resolve(ctx, k.md, path, true, symlink.MaxDepth)
	if err != nil || e == nil {
		return false
	}
	if len(path) > 1 && path[len(path)-1] == '/' && e.Kind != posixmode.KindDirectory {
		return false
	}
	return true
}

// Access follows symlinks (ENOENT on a broken chain) and checks each set
// bit of mask against the current user, failing EACCES on the first
// missing one. F_OK alone only tests existence.
func (k *Kernel) Access(ctx context.Context, path string, mask int) error {
	if err := validate.Path(path, "access"); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	e, err := symlink.Resolve(ctx, k.md, path, true, symlink.MaxDepth)
	if err != nil {
		return err
	}

	u := k.currentUser()
	for _, bit := range []int{posixmode.R_OK, posixmode.W_OK, posixmode.X_OK} {
		if mask&bit == 0 {
			continue
		}
		if !perm.Check(u, e, bit) {
			return vfserrors.Wrap(vfserrors.EACCES, "access", path)
		}
	}
	return nil
}

// Stat follows symlinks and returns a Stats projection.
func (k *Kernel) Stat(ctx context.Context, path string) (entry.Stats, error) {
	if err := validate.Path(path, "stat"); err != nil {
		return entry.Stats{}, err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	e, err := symlink.Resolve(ctx, k.md, path, true, symlink.MaxDepth)
	if err != nil {
		return entry.Stats{}, err
	}
	return entry.StatsOf(e), nil
}

// Lstat does not follow symlinks.
func (k *Kernel) Lstat(ctx context.Context, path string) (entry.Stats, error) {
	if err := validate.Path(path, "lstat"); err != nil {
		return entry.Stats{}, err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	e, err := symlink.Resolve(ctx, k.md, path, false, symlink.MaxDepth)
	if err != nil {
		return entry.Stats{}, err
	}
	return entry.StatsOf(e), nil
}

func (k *Kernel) chmodEntry(ctx context.Context, path string, newMode posixmode.Mode, follow bool) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, err := symlink.Resolve(ctx, k.md, path, follow, symlink.MaxDepth)
	if err != nil {
		return err
	}
	u := k.currentUser()
	if !perm.CanChmod(u, e) {
		return vfserrors.Wrap(vfserrors.EPERM, "chmod", path)
	}
	n := e.Clone()
	n.Mode = (e.Mode & posixmode.S_IFMT) | (newMode & 0o7777)
	n.Ctime = k.now()
	return k.md.Update(ctx, n)
}

// Chmod follows symlinks and sets the numeric mode, preserving file-type bits.
func (k *Kernel) Chmod(ctx context.Context, path string, mode posixmode.Mode) error {
	if err := validate.Path(path, "chmod"); err != nil {
		return err
	}
	return k.chmodEntry(ctx, path, mode, true)
}

// Lchmod is Chmod without following symlinks.
func (k *Kernel) Lchmod(ctx context.Context, path string, mode posixmode.Mode) error {
	if err := validate.Path(path, "lchmod"); err != nil {
		return err
	}
	return k.chmodEntry(ctx, path, mode, false)
}

func (k *Kernel) chmodSymbolic(ctx context.Context, path, spec string, follow bool) error {
	clauses, err := posixmode.ParseSymbolicMode(spec)
	if err != nil {
		return vfserrors.Wrap(vfserrors.EINVAL, "chmod", path)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	e, err := symlink.Resolve(ctx, k.md, path, follow, symlink.MaxDepth)
	if err != nil {
		return err
	}
	u := k.currentUser()
	if !perm.CanChmod(u, e) {
		return vfserrors.Wrap(vfserrors.EPERM, "chmod", path)
	}
	isDirectory := e.Kind == posixmode.KindDirectory
	hasExec := e.Mode&(posixmode.S_IXUSR|posixmode.S_IXGRP|posixmode.S_IXOTH) != 0
	newMode := posixmode.ApplySymbolic(e.Mode, clauses, isDirectory, hasExec)

	n := e.Clone()
	n.Mode = newMode
	n.Ctime = k.now()
	return k.md.Update(ctx, n)
}

// ChmodSymbolic parses and applies the `[ugoa]*[+-=][rwxXst]+` grammar
// (comma-separated clauses, applied left to right), following symlinks.
func (k *Kernel) ChmodSymbolic(ctx context.Context, path, spec string) error {
	if err := validate.Path(path, "chmod"); err != nil {
		return err
	}
	return k.chmodSymbolic(ctx, path, spec, true)
}

// LchmodSymbolic is ChmodSymbolic without following symlinks.
func (k *Kernel) LchmodSymbolic(ctx context.Context, path, spec string) error {
	if err := validate.Path(path, "lchmod"); err != nil {
		return err
	}
	return k.chmodSymbolic(ctx, path, spec, false)
}

// chownEntry implements chown/lchown; uid/gid of -1 leave the field unchanged.
func (k *Kernel) chownEntry(ctx context.Context, path string, uid, gid int64, follow bool) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, err := symlink.Resolve(ctx, k.md, path, follow, symlink.MaxDepth)
	if err != nil {
		return err
	}
	u := k.currentUser()
	if !perm.CanChown(u, e, uid, gid) {
		return vfserrors.Wrap(vfserrors.EPERM, "chown", path)
	}

	n := e.Clone()
	if uid >= 0 {
		n.UID = uint32(uid)
	}
	if gid >= 0 {
		n.GID = uint32(gid)
	}
	n.Ctime = k.now()
	return k.md.Update(ctx, n)
}

// Chown follows symlinks and changes ownership per spec §4.9's rules;
// only atime/mtime are left unchanged, ctime always advances.
func (k *Kernel) Chown(ctx context.Context, path string, uid, gid int64) error {
	if err := validate.Path(path, "chown"); err != nil {
		return err
	}
	return k.chownEntry(ctx, path, uid, gid, true)
}

// Lchown is Chown without following symlinks.
func (k *Kernel) Lchown(ctx context.Context, path string, uid, gid int64) error {
	if err := validate.Path(path, "lchown"); err != nil {
		return err
	}
	return k.chownEntry(ctx, path, uid, gid, false)
}

// Utimes sets atime and mtime (milliseconds since epoch); ctime becomes now.
func (k *Kernel) Utimes(ctx context.Context, path string, atimeMs, mtimeMs int64) error {
	if err := validate.Path(path, "utimes"); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	e, err := symlink.Resolve(ctx, k.md, path, true, symlink.MaxDepth)
	if err != nil {
		return err
	}
	n := e.Clone()
	n.Atime = atimeMs
	n.Mtime = mtimeMs
	n.Ctime = k.now()
	return k.md.Update(ctx, n)
}

// StatfsResult is the read-only aggregate returned by Statfs (SPEC_FULL §4).
type StatfsResult struct {
	TotalEntries    int64
	TotalBlobs      int64
	TotalBytes      int64
	DedupSavedBytes int64
}

// Statfs aggregates counts over the bound metadata and blob stores,
// rooted at path (which must exist and be a directory).
func (k *Kernel) Statfs(ctx context.Context, path string) (StatfsResult, error) {
	if err := validate.Path(path, "statfs"); err != nil {
		return StatfsResult{}, err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	root, err := symlink.Resolve(ctx, k.md, path, true, symlink.MaxDepth)
	if err != nil {
		return StatfsResult{}, err
	}
	if root.Kind != posixmode.KindDirectory {
		return StatfsResult{}, vfserrors.Wrap(vfserrors.ENOTDIR, "statfs", path)
	}

	var total int64
	var bytesTotal int64
	var walk func(p string) error
	walk = func(p string) error {
		children, err := k.md.Children(ctx, p)
		if err != nil {
			return err
		}
		for _, c := range children {
			total++
			bytesTotal += c.Size
			if c.Kind == posixmode.KindDirectory {
				if err := walk(c.Path); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(vpath.Normalize(path)); err != nil {
		return StatfsResult{}, err
	}

	dedup, err := k.blobs.DedupStats(ctx)
	if err != nil {
		return StatfsResult{}, err
	}

	return StatfsResult{
		TotalEntries:    total,
		TotalBlobs:      dedup.UniqueBlobs,
		TotalBytes:      bytesTotal,
		DedupSavedBytes: dedup.SavedBytes,
	}, nil
}
