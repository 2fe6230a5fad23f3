package kernel

import (
	"context"

	"github.com/vfscore/vfskernel/pkg/search"
	"github.com/vfscore/vfskernel/pkg/validate"
)

// Search traverses the filesystem for entries matching pattern (spec
// §4.10 search, C12), delegating the walk/glob/grep logic to pkg/search
// against the kernel's own bound metadata and blob stores.
func (k *Kernel) Search(ctx context.Context, pattern string, opts search.Options) ([]search.Match, error) {
	root := opts.Path
	if root == "" {
		root = "/"
	}
	if err := validate.Path(root, "search"); err != nil {
		return nil, err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	return search.Search(ctx, k.md, k.blobs, pattern, opts)
}
