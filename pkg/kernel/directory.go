package kernel

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/vfscore/vfskernel/pkg/entry"
	"github.com/vfscore/vfskernel/pkg/posixmode"
	"github.com/vfscore/vfskernel/pkg/symlink"
	"github.com/vfscore/vfskernel/pkg/validate"
	"github.com/vfscore/vfskernel/pkg/vfserrors"
	"github.com/vfscore/vfskernel/pkg/vpath"
)

// MkdirOptions configures Mkdir (spec §4.10 mkdir).
type MkdirOptions struct {
	Recursive bool
	Mode      posixmode.Mode // defaults to posixmode.DefaultDirMode
}

func (k *Kernel) newDirEntry(path string, mode posixmode.Mode) *entry.Entry {
	now := k.now()
	return &entry.Entry{
		ID:    k.newID(),
		Path:  path,
		Kind:  posixmode.KindDirectory,
		Mode:  posixmode.IFMT(posixmode.KindDirectory) | (mode & 0o7777),
		UID:   k.md.CurrentUID(),
		GID:   k.md.CurrentGID(),
		Size:  0,
		Nlink: 2,
		Atime: now,
		Mtime: now,
		Ctime: now,
		Birth: now,
	}
}

// Mkdir creates a directory at path. Non-recursive: the parent must exist
// and be a directory, and the target must not already exist. Recursive:
// missing ancestors are created, and it succeeds silently if the final
// path already exists as a directory.
func (k *Kernel) Mkdir(ctx context.Context, path string, opts MkdirOptions) error {
	if err := validate.Path(path, "mkdir"); err != nil {
		return err
	}
	mode := opts.Mode
	if mode == 0 {
		mode = posixmode.DefaultDirMode
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	p := vpath.Normalize(path)
	if p == "/" {
		if opts.Recursive {
			return nil
		}
		return vfserrors.Wrap(vfserrors.EEXIST, "mkdir", path)
	}

	if !opts.Recursive {
		existing, err := k.lookupRaw(ctx, p)
		if err != nil {
			return err
		}
		if existing != nil {
			return vfserrors.Wrap(vfserrors.EEXIST, "mkdir", path)
		}
		if _, err := k.requireParentDir(ctx, p, "mkdir"); err != nil {
			return err
		}
		return k.md.Insert(ctx, k.newDirEntry(p, mode))
	}

	segs := strings.Split(strings.TrimPrefix(p, "/"), "/")
	cur := ""
	for _, seg := range segs {
		cur = cur + "/" + seg
		existing, err := k.lookupRaw(ctx, cur)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Kind != posixmode.KindDirectory {
				return vfserrors.Wrap(vfserrors.EEXIST, "mkdir", cur)
			}
			continue
		}
		if err := k.md.Insert(ctx, k.newDirEntry(cur, mode)); err != nil {
			return err
		}
	}
	return nil
}

// Rmdir removes the directory at path. Non-recursive mode requires it to
// be empty; recursive mode depth-first removes children first. Root can
// never be removed.
func (k *Kernel) Rmdir(ctx context.Context, path string, recursive bool) error {
	if err := validate.Path(path, "rmdir"); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	return k.rmdirLocked(ctx, vpath.Normalize(path), recursive)
}

func (k *Kernel) rmdirLocked(ctx context.Context, p string, recursive bool) error {
	if p == "/" {
		return vfserrors.Wrap(vfserrors.EPERM, "rmdir", p)
	}
	e, err := k.lookupRaw(ctx, p)
	if err != nil {
		return err
	}
	if e == nil {
		return vfserrors.Wrap(vfserrors.ENOENT, "rmdir", p)
	}
	if e.Kind != posixmode.KindDirectory {
		return vfserrors.Wrap(vfserrors.ENOTDIR, "rmdir", p)
	}

	children, err := k.md.Children(ctx, p)
	if err != nil {
		return err
	}
	if !recursive {
		if len(children) > 0 {
			return vfserrors.Wrap(vfserrors.ENOTEMPTY, "rmdir", p)
		}
		_, err := k.md.Remove(ctx, p)
		return err
	}

	for _, c := range children {
		if c.Kind == posixmode.KindDirectory {
			if err := k.rmdirLocked(ctx, c.Path, true); err != nil {
				return err
			}
			continue
		}
		if err := k.unlinkLocked(ctx, c.Path); err != nil {
			return err
		}
	}
	_, err = k.md.Remove(ctx, p)
	return err
}

func (k *Kernel) unlinkLocked(ctx context.Context, p string) error {
	e, err := k.lookupRaw(ctx, p)
	if err != nil {
		return err
	}
	if e == nil {
		return vfserrors.Wrap(vfserrors.ENOENT, "unlink", p)
	}
	if e.Kind == posixmode.KindDirectory {
		return vfserrors.Wrap(vfserrors.EISDIR, "unlink", p)
	}
	if _, err := k.md.Remove(ctx, p); err != nil {
		return err
	}
	if e.BlobRef != "" {
		if _, err := k.blobs.Decref(ctx, e.BlobRef); err != nil {
			return err
		}
	}
	return nil
}

// Unlink removes a non-directory entry, decrementing its blob's refcount.
func (k *Kernel) Unlink(ctx context.Context, path string) error {
	if err := validate.Path(path, "unlink"); err != nil {
		return err
	}
	p := vpath.Normalize(path)
	if strings.HasSuffix(path, "/") && path != "/" {
		return vfserrors.Wrap(vfserrors.ENOTDIR, "unlink", path)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	return k.unlinkLocked(ctx, p)
}

// Rm dispatches to Unlink or Rmdir depending on the entry's kind; with
// force it suppresses ENOENT.
func (k *Kernel) Rm(ctx context.Context, path string, recursive, force bool) error {
	if err := validate.Path(path, "rm"); err != nil {
		if force && vfserrors.HasCode(err, vfserrors.ENOENT) {
			return nil
		}
		return err
	}

	k.mu.Lock()
	p := vpath.Normalize(path)
	e, err := k.lookupRaw(ctx, p)
	k.mu.Unlock()
	if err != nil {
		return err
	}
	if e == nil {
		if force {
			return nil
		}
		return vfserrors.Wrap(vfserrors.ENOENT, "rm", path)
	}

	var opErr error
	if e.Kind == posixmode.KindDirectory {
		opErr = k.Rmdir(ctx, path, recursive)
	} else {
		opErr = k.Unlink(ctx, path)
	}
	if force && vfserrors.HasCode(opErr, vfserrors.ENOENT) {
		return nil
	}
	return opErr
}

// ReaddirOptions configures Readdir (spec §4.10 readdir).
type ReaddirOptions struct {
	WithFileTypes bool
	Recursive     bool
	Limit         int
	Cursor        string
}

// ReaddirResult is Readdir's return value.
type ReaddirResult struct {
	Entries []entry.Dirent
	Cursor  string // "" means exhausted
}

// Readdir lists path's children, sorted lexicographically by name, never
// including "." or "..". recursive yields relative paths (with separator)
// depth-first, sorted at each level. limit pages results via an opaque
// cursor that is stable across identical inputs but not across mutations.
func (k *Kernel) Readdir(ctx context.Context, path string, opts ReaddirOptions) (ReaddirResult, error) {
	if err := validate.Path(path, "scandir"); err != nil {
		return ReaddirResult{}, err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	p := vpath.Normalize(path)
	e, err := symlink.Resolve(ctx, k.md, p, true, symlink.MaxDepth)
	if err != nil {
		return ReaddirResult{}, err
	}
	if e.Kind != posixmode.KindDirectory {
		return ReaddirResult{}, vfserrors.Wrap(vfserrors.ENOTDIR, "scandir", path)
	}
	p = e.Path

	var names []entry.Dirent
	if opts.Recursive {
		names, err = k.collectRecursive(ctx, p, "")
	} else {
		names, err = k.collectDirect(ctx, p)
	}
	if err != nil {
		return ReaddirResult{}, err
	}

	if opts.Limit <= 0 {
		return ReaddirResult{Entries: names}, nil
	}

	offset := 0
	if opts.Cursor != "" {
		offset, err = decodeCursor(opts.Cursor)
		if err != nil {
			return ReaddirResult{}, vfserrors.Wrap(vfserrors.EINVAL, "scandir", path)
		}
	}
	if offset >= len(names) {
		return ReaddirResult{Entries: nil, Cursor: ""}, nil
	}
	end := offset + opts.Limit
	if end > len(names) {
		end = len(names)
	}
	page := names[offset:end]
	next := ""
	if end < len(names) {
		next = encodeCursor(end)
	}
	return ReaddirResult{Entries: page, Cursor: next}, nil
}

func (k *Kernel) collectDirect(ctx context.Context, path string) ([]entry.Dirent, error) {
	children, err := k.md.Children(ctx, path)
	if err != nil {
		return nil, err
	}
	out := make([]entry.Dirent, 0, len(children))
	for _, c := range children {
		out = append(out, entry.DirentOf(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (k *Kernel) collectRecursive(ctx context.Context, path, prefix string) ([]entry.Dirent, error) {
	children, err := k.md.Children(ctx, path)
	if err != nil {
		return nil, err
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Name() < children[j].Name() })

	var out []entry.Dirent
	for _, c := range children {
		rel := prefix + c.Name()
		d := entry.Dirent{Name: rel, ParentPath: path, Kind: c.Kind}
		out = append(out, d)
		if c.Kind == posixmode.KindDirectory {
			sub, err := k.collectRecursive(ctx, c.Path, rel+"/")
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
	}
	return out, nil
}

// Rename atomically moves old to new, translating every descendant path
// when old is a directory. old == new is a no-op.
func (k *Kernel) Rename(ctx context.Context, oldPath, newPath string, overwrite bool) error {
	if err := validate.Path(oldPath, "rename"); err != nil {
		return err
	}
	if err := validate.Path(newPath, "rename"); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	op := vpath.Normalize(oldPath)
	np := vpath.Normalize(newPath)
	if op == np {
		return nil
	}

	src, err := k.lookupRaw(ctx, op)
	if err != nil {
		return err
	}
	if src == nil {
		return vfserrors.WrapDest(vfserrors.ENOENT, "rename", oldPath, newPath)
	}

	if src.Kind == posixmode.KindDirectory && (np == op || strings.HasPrefix(np, op+"/")) {
		return vfserrors.WrapDest(vfserrors.EINVAL, "rename", oldPath, newPath)
	}

	if _, err := k.requireParentDir(ctx, np, "rename"); err != nil {
		return err
	}

	dst, err := k.lookupRaw(ctx, np)
	if err != nil {
		return err
	}
	if dst != nil {
		if err := k.checkRenameDest(ctx, src, dst, oldPath, newPath, overwrite); err != nil {
			return err
		}
	}

	if src.Kind != posixmode.KindDirectory {
		n := src.Clone()
		n.Path = np
		if err := k.md.Insert(ctx, n); err != nil {
			return err
		}
		if _, err := k.md.Remove(ctx, op); err != nil {
			return err
		}
		if dst != nil {
			if dst.BlobRef != "" {
				if _, err := k.blobs.Decref(ctx, dst.BlobRef); err != nil {
					return err
				}
			}
		}
		return nil
	}

	// Directory move: relocate the directory's own entry, then translate
	// every descendant path old-prefix -> new-prefix.
	if dst != nil {
		if _, err := k.md.Remove(ctx, np); err != nil {
			return err
		}
	}
	n := src.Clone()
	n.Path = np
	if err := k.md.Insert(ctx, n); err != nil {
		return err
	}
	if err := k.moveDescendants(ctx, op, np); err != nil {
		return err
	}
	_, err = k.md.Remove(ctx, op)
	return err
}

func (k *Kernel) checkRenameDest(ctx context.Context, src, dst *entry.Entry, oldPath, newPath string, overwrite bool) error {
	srcIsDir := src.Kind == posixmode.KindDirectory
	dstIsDir := dst.Kind == posixmode.KindDirectory

	switch {
	case !srcIsDir && !dstIsDir:
		if !overwrite {
			return vfserrors.WrapDest(vfserrors.EEXIST, "rename", oldPath, newPath)
		}
		return nil
	case !srcIsDir && dstIsDir:
		return vfserrors.WrapDest(vfserrors.EISDIR, "rename", oldPath, newPath)
	case srcIsDir && !dstIsDir:
		return vfserrors.WrapDest(vfserrors.ENOTDIR, "rename", oldPath, newPath)
	default: // both directories
		children, err := k.md.Children(ctx, dst.Path)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return vfserrors.WrapDest(vfserrors.ENOTEMPTY, "rename", oldPath, newPath)
		}
		return nil
	}
}

// moveDescendants relocates every entry strictly under oldPrefix to the
// equivalent path under newPrefix. It does not touch oldPrefix/newPrefix
// themselves — the caller owns moving the directory's own entry.
func (k *Kernel) moveDescendants(ctx context.Context, oldPrefix, newPrefix string) error {
	children, err := k.md.Children(ctx, oldPrefix)
	if err != nil {
		return err
	}
	for _, c := range children {
		newChildPath := newPrefix + "/" + c.Name()
		n := c.Clone()
		n.Path = newChildPath
		if err := k.md.Insert(ctx, n); err != nil {
			return err
		}
		if c.Kind == posixmode.KindDirectory {
			if err := k.moveDescendants(ctx, c.Path, newChildPath); err != nil {
				return err
			}
		}
		if _, err := k.md.Remove(ctx, c.Path); err != nil {
			return err
		}
	}
	return nil
}

// decodeCursor/encodeCursor implement Readdir's opaque pagination cursor
// as a plain offset into the sorted entry list; stable across identical
// inputs, not across mutations of the directory.
func encodeCursor(offset int) string {
	return strconv.Itoa(offset)
}

func decodeCursor(cursor string) (int, error) {
	n, err := strconv.Atoi(cursor)
	if err != nil || n < 0 {
		return 0, vfserrors.New(vfserrors.EINVAL, "scandir")
	}
	return n, nil
}
