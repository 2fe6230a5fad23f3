package kernel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vfscore/vfskernel/internal/storage/memory"
	"github.com/vfscore/vfskernel/pkg/kernel"
	"github.com/vfscore/vfskernel/pkg/posixmode"
	"github.com/vfscore/vfskernel/pkg/vfserrors"
)

func TestChmodSymbolic_AppliesClausesLeftToRight(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)
	require.NoError(t, k.WriteFile(ctx, "/f", []byte("x"), kernel.WriteFileOptions{Mode: modePtr(0o644)}))

	require.NoError(t, k.ChmodSymbolic(ctx, "/f", "u+x,go-r"))

	st, err := k.Stat(ctx, "/f")
	require.NoError(t, err)
	require.EqualValues(t, 0o700, st.Mode&0o777)
}

func TestChmodSymbolic_InvalidGrammarIsEINVAL(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)
	require.NoError(t, k.WriteFile(ctx, "/f", []byte("x"), kernel.WriteFileOptions{}))

	err := k.ChmodSymbolic(ctx, "/f", "not-a-mode")
	requireCode(t, err, vfserrors.EINVAL)
}

func TestChown_NonRootCannotChangeUID(t *testing.T) {
	ctx := context.Background()
	md := memory.New()
	root := kernel.New(md, memory.NewBlobStore())
	require.NoError(t, root.WriteFile(ctx, "/f", []byte("x"), kernel.WriteFileOptions{}))
	require.NoError(t, root.Chown(ctx, "/f", 1000, 1000))

	owner := kernel.New(md.WithIdentity(1000, 1000, nil), memory.NewBlobStore())
	err := owner.Chown(ctx, "/f", 2000, -1)
	requireCode(t, err, vfserrors.EPERM)
}

func TestChown_OwnerMayChangeGroupWithinMembership(t *testing.T) {
	ctx := context.Background()
	md := memory.New()
	root := kernel.New(md, memory.NewBlobStore())
	require.NoError(t, root.WriteFile(ctx, "/f", []byte("x"), kernel.WriteFileOptions{}))
	require.NoError(t, root.Chown(ctx, "/f", 1000, 1000))

	owner := kernel.New(md.WithIdentity(1000, 1000, []uint32{2000}), memory.NewBlobStore())
	require.NoError(t, owner.Chown(ctx, "/f", -1, 2000))

	st, err := root.Stat(ctx, "/f")
	require.NoError(t, err)
	require.EqualValues(t, 2000, st.GID)
}

func TestUtimes_SetsAtimeAndMtimeAndAdvancesCtime(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)
	require.NoError(t, k.WriteFile(ctx, "/f", []byte("x"), kernel.WriteFileOptions{}))

	require.NoError(t, k.Utimes(ctx, "/f", 111, 222))
	st, err := k.Stat(ctx, "/f")
	require.NoError(t, err)
	require.EqualValues(t, 111, st.Atime)
	require.EqualValues(t, 222, st.Mtime)
}

func TestStatfs_AggregatesEntriesBytesAndDedup(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)
	require.NoError(t, k.Mkdir(ctx, "/d", kernel.MkdirOptions{}))
	require.NoError(t, k.WriteFile(ctx, "/d/a", []byte("xx"), kernel.WriteFileOptions{}))
	require.NoError(t, k.WriteFile(ctx, "/d/b", []byte("xx"), kernel.WriteFileOptions{}))

	fs, err := k.Statfs(ctx, "/")
	require.NoError(t, err)
	require.EqualValues(t, 3, fs.TotalEntries) // d, a, b
	require.EqualValues(t, 4, fs.TotalBytes)   // 2 + 2
	require.EqualValues(t, 1, fs.TotalBlobs)
}

func TestExists_FalseForBrokenSymlinkAndTrailingSlashMismatch(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)
	require.NoError(t, k.Symlink(ctx, "/nope", "/broken"))
	require.False(t, k.Exists(ctx, "/broken"))

	require.NoError(t, k.WriteFile(ctx, "/f", []byte("x"), kernel.WriteFileOptions{}))
	require.False(t, k.Exists(ctx, "/f/"))
}

func modePtr(m posixmode.Mode) *posixmode.Mode { return &m }
