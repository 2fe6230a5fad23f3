// Package symlink implements single-step and full-chain symlink
// resolution with a depth cap (spec §4.8).
package symlink

import (
	"context"

	"github.com/vfscore/vfskernel/pkg/entry"
	"github.com/vfscore/vfskernel/pkg/posixmode"
	"github.com/vfscore/vfskernel/pkg/vfserrors"
	"github.com/vfscore/vfskernel/pkg/vpath"
)

// MaxDepth is the default chain-length cap before ELOOP (spec §4.8, §8).
const MaxDepth = 40

// Getter is the minimal lookup surface Resolve needs; pkg/store's
// MetadataStore satisfies it.
type Getter interface {
	Get(ctx context.Context, path string) (*entry.Entry, error)
}

// Resolve follows path's symlink chain to its terminal entry.
//
// If follow is false and the entry at path is itself a symlink, it is
// returned verbatim (lstat-style). Otherwise, while the current entry is
// a symlink, the next path is computed by resolving LinkTarget relative
// to the symlink's own parent directory (absolute targets are taken
// as-is), normalized, and resolution continues. Exceeding maxDepth
// fails ELOOP; a step that yields no entry fails ENOENT (broken link).
func Resolve(ctx context.Context, g Getter, path string, follow bool, maxDepth int) (*entry.Entry, error) {
	e, err := g.Get(ctx, vpath.Normalize(path))
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, vfserrors.Wrap(vfserrors.ENOENT, "lstat", path)
	}
	if !follow || !posixmode.IsKind(e.Mode, posixmode.KindSymlink) {
		return e, nil
	}

	for depth := 0; posixmode.IsKind(e.Mode, posixmode.KindSymlink); depth++ {
		if depth >= maxDepth {
			return nil, vfserrors.Wrap(vfserrors.ELOOP, "stat", path)
		}
		next := e.LinkTarget
		if vpath.IsAbsolute(next) {
			next = vpath.Normalize(next)
		} else {
			next = vpath.Resolve(e.Parent(), next)
		}
		nextEntry, err := g.Get(ctx, next)
		if err != nil {
			return nil, err
		}
		if nextEntry == nil {
			return nil, vfserrors.Wrap(vfserrors.ENOENT, "stat", path)
		}
		e = nextEntry
	}
	return e, nil
}
