package kernel

import (
	"context"

	"github.com/vfscore/vfskernel/pkg/entry"
	"github.com/vfscore/vfskernel/pkg/posixmode"
	"github.com/vfscore/vfskernel/pkg/symlink"
	"github.com/vfscore/vfskernel/pkg/validate"
	"github.com/vfscore/vfskernel/pkg/vfserrors"
	"github.com/vfscore/vfskernel/pkg/vpath"
)

// Symlink creates a symbolic link at linkPath whose target is stored
// verbatim as target (not normalized, not required to exist or resolve).
func (k *Kernel) Symlink(ctx context.Context, target, linkPath string) error {
	if err := validate.Path(linkPath, "symlink"); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	lp := vpath.Normalize(linkPath)
	if lp == "/" {
		return vfserrors.WrapDest(vfserrors.EEXIST, "symlink", target, linkPath)
	}

	existing, err := k.lookupRaw(ctx, lp)
	if err != nil {
		return err
	}
	if existing != nil {
		return vfserrors.WrapDest(vfserrors.EEXIST, "symlink", target, linkPath)
	}
	if _, err := k.requireParentDir(ctx, lp, "symlink"); err != nil {
		return err
	}

	now := k.now()
	e := &entry.Entry{
		ID:         k.newID(),
		Path:       lp,
		Kind:       posixmode.KindSymlink,
		Mode:       posixmode.DefaultSymlinkMode,
		UID:        k.md.CurrentUID(),
		GID:        k.md.CurrentGID(),
		Size:       int64(len(target)),
		LinkTarget: target,
		Nlink:      1,
		Atime:      now,
		Mtime:      now,
		Ctime:      now,
		Birth:      now,
	}
	return k.md.Insert(ctx, e)
}

// Readlink returns the verbatim link_target of the symlink at path,
// without following it. ENOENT if missing, EINVAL if path is not a
// symlink.
func (k *Kernel) Readlink(ctx context.Context, path string) (string, error) {
	if err := validate.Path(path, "readlink"); err != nil {
		return "", err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	e, err := k.lookupRaw(ctx, vpath.Normalize(path))
	if err != nil {
		return "", err
	}
	if e == nil {
		return "", vfserrors.Wrap(vfserrors.ENOENT, "readlink", path)
	}
	if e.Kind != posixmode.KindSymlink {
		return "", vfserrors.Wrap(vfserrors.EINVAL, "readlink", path)
	}
	return e.LinkTarget, nil
}

// Link creates a hard link at newPath pointing at the same blob as the
// regular file at existingPath. Directories cannot be hard-linked.
func (k *Kernel) Link(ctx context.Context, existingPath, newPath string) error {
	if err := validate.Path(existingPath, "link"); err != nil {
		return err
	}
	if err := validate.Path(newPath, "link"); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	ep := vpath.Normalize(existingPath)
	np := vpath.Normalize(newPath)

	src, err := symlink.Resolve(ctx, k.md, ep, true, symlink.MaxDepth)
	if err != nil {
		return err
	}
	if src.Kind == posixmode.KindDirectory {
		return vfserrors.WrapDest(vfserrors.EPERM, "link", existingPath, newPath)
	}

	dst, err := k.lookupRaw(ctx, np)
	if err != nil {
		return err
	}
	if dst != nil {
		return vfserrors.WrapDest(vfserrors.EEXIST, "link", existingPath, newPath)
	}
	if _, err := k.requireParentDir(ctx, np, "link"); err != nil {
		return err
	}

	if src.BlobRef != "" {
		if err := k.blobs.Incref(ctx, src.BlobRef); err != nil {
			return err
		}
	}

	now := k.now()
	n := src.Clone()
	n.ID = k.newID()
	n.Path = np
	n.Nlink = src.Nlink + 1
	n.Ctime = now
	if err := k.md.Insert(ctx, n); err != nil {
		return err
	}

	orig := src.Clone()
	orig.Nlink = n.Nlink
	orig.Ctime = now
	return k.md.Update(ctx, orig)
}
