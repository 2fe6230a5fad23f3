package kernel

import (
	"context"
	"sort"

	"github.com/vfscore/vfskernel/pkg/symlink"
	"github.com/vfscore/vfskernel/pkg/validate"
	"github.com/vfscore/vfskernel/pkg/vfserrors"
)

// GetXattr reads the extended attribute name on path (symlinks followed),
// returning ENOENT if either the entry or the attribute itself is absent.
func (k *Kernel) GetXattr(ctx context.Context, path, name string) (string, error) {
	if err := validate.Path(path, "getxattr"); err != nil {
		return "", err
	}
	if err := validate.Name(name, "getxattr"); err != nil {
		return "", err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	e, err := symlink.Resolve(ctx, k.md, path, true, symlink.MaxDepth)
	if err != nil {
		return "", err
	}
	v, ok := e.Xattrs[name]
	if !ok {
		return "", vfserrors.Wrap(vfserrors.ENOENT, "getxattr", path)
	}
	return v, nil
}

// SetXattr sets or replaces an extended attribute on path, following
// symlinks, and advances ctime.
func (k *Kernel) SetXattr(ctx context.Context, path, name, value string) error {
	if err := validate.Path(path, "setxattr"); err != nil {
		return err
	}
	if err := validate.Name(name, "setxattr"); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	e, err := symlink.Resolve(ctx, k.md, path, true, symlink.MaxDepth)
	if err != nil {
		return err
	}
	n := e.Clone()
	if n.Xattrs == nil {
		n.Xattrs = make(map[string]string, 1)
	}
	n.Xattrs[name] = value
	n.Ctime = k.now()
	return k.md.Update(ctx, n)
}

// ListXattr returns the sorted names of every extended attribute on path.
func (k *Kernel) ListXattr(ctx context.Context, path string) ([]string, error) {
	if err := validate.Path(path, "listxattr"); err != nil {
		return nil, err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	e, err := symlink.Resolve(ctx, k.md, path, true, symlink.MaxDepth)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(e.Xattrs))
	for n := range e.Xattrs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// RemoveXattr removes an extended attribute from path, returning ENOENT
// if either the entry or the attribute itself is absent.
func (k *Kernel) RemoveXattr(ctx context.Context, path, name string) error {
	if err := validate.Path(path, "removexattr"); err != nil {
		return err
	}
	if err := validate.Name(name, "removexattr"); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	e, err := symlink.Resolve(ctx, k.md, path, true, symlink.MaxDepth)
	if err != nil {
		return err
	}
	if _, ok := e.Xattrs[name]; !ok {
		return vfserrors.Wrap(vfserrors.ENOENT, "removexattr", path)
	}
	n := e.Clone()
	delete(n.Xattrs, name)
	n.Ctime = k.now()
	return k.md.Update(ctx, n)
}
