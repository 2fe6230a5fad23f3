package kernel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vfscore/vfskernel/pkg/kernel"
	"github.com/vfscore/vfskernel/pkg/vfserrors"
)

func TestMkdir_NonRecursiveRequiresExistingParent(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)

	err := k.Mkdir(ctx, "/a/b", kernel.MkdirOptions{})
	requireCode(t, err, vfserrors.ENOENT)

	require.NoError(t, k.Mkdir(ctx, "/a", kernel.MkdirOptions{}))
	require.NoError(t, k.Mkdir(ctx, "/a/b", kernel.MkdirOptions{}))

	err = k.Mkdir(ctx, "/a/b", kernel.MkdirOptions{})
	requireCode(t, err, vfserrors.EEXIST)
}

func TestMkdir_RecursiveIsIdempotentOnDirectories(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)

	require.NoError(t, k.Mkdir(ctx, "/a/b/c", kernel.MkdirOptions{Recursive: true}))
	require.NoError(t, k.Mkdir(ctx, "/a/b/c", kernel.MkdirOptions{Recursive: true}))
	require.True(t, k.Exists(ctx, "/a/b/c"))
}

func TestMkdir_RecursiveRejectsFileInPath(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)
	require.NoError(t, k.WriteFile(ctx, "/a", []byte("x"), kernel.WriteFileOptions{}))

	err := k.Mkdir(ctx, "/a/b", kernel.MkdirOptions{Recursive: true})
	requireCode(t, err, vfserrors.EEXIST)
}

func TestReaddir_SortedAndPaginated(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)
	require.NoError(t, k.Mkdir(ctx, "/d", kernel.MkdirOptions{}))
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, k.WriteFile(ctx, "/d/"+name, []byte("x"), kernel.WriteFileOptions{}))
	}

	res, err := k.Readdir(ctx, "/d", kernel.ReaddirOptions{})
	require.NoError(t, err)
	require.Len(t, res.Entries, 3)
	require.Equal(t, "a", res.Entries[0].Name)
	require.Equal(t, "b", res.Entries[1].Name)
	require.Equal(t, "c", res.Entries[2].Name)

	page1, err := k.Readdir(ctx, "/d", kernel.ReaddirOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1.Entries, 2)
	require.NotEmpty(t, page1.Cursor)

	page2, err := k.Readdir(ctx, "/d", kernel.ReaddirOptions{Limit: 2, Cursor: page1.Cursor})
	require.NoError(t, err)
	require.Len(t, page2.Entries, 1)
	require.Empty(t, page2.Cursor)
}

func TestReaddir_NonDirectoryIsENOTDIR(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)
	require.NoError(t, k.WriteFile(ctx, "/f", []byte("x"), kernel.WriteFileOptions{}))

	_, err := k.Readdir(ctx, "/f", kernel.ReaddirOptions{})
	requireCode(t, err, vfserrors.ENOTDIR)
}

func TestRename_NoopWhenSamePath(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)
	require.NoError(t, k.WriteFile(ctx, "/a", []byte("x"), kernel.WriteFileOptions{}))

	require.NoError(t, k.Rename(ctx, "/a", "/a", false))
	require.True(t, k.Exists(ctx, "/a"))
}

func TestRename_IntoOwnSubdirectoryIsEINVAL(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)
	require.NoError(t, k.Mkdir(ctx, "/a", kernel.MkdirOptions{}))

	err := k.Rename(ctx, "/a", "/a/sub", false)
	requireCode(t, err, vfserrors.EINVAL)
}

func TestRename_FileOntoDirectoryIsEISDIR(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)
	require.NoError(t, k.WriteFile(ctx, "/f", []byte("x"), kernel.WriteFileOptions{}))
	require.NoError(t, k.Mkdir(ctx, "/d", kernel.MkdirOptions{}))

	err := k.Rename(ctx, "/f", "/d", false)
	requireCode(t, err, vfserrors.EISDIR)
}

func TestRename_OverwriteRequiresFlag(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)
	require.NoError(t, k.WriteFile(ctx, "/a", []byte("a"), kernel.WriteFileOptions{}))
	require.NoError(t, k.WriteFile(ctx, "/b", []byte("b"), kernel.WriteFileOptions{}))

	err := k.Rename(ctx, "/a", "/b", false)
	requireCode(t, err, vfserrors.EEXIST)

	require.NoError(t, k.Rename(ctx, "/a", "/b", true))
	data, err := k.ReadFile(ctx, "/b", kernel.EncodingRaw)
	require.NoError(t, err)
	require.Equal(t, "a", string(data))
}

func TestRm_ForceSuppressesMissingPath(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)

	err := k.Rm(ctx, "/missing", false, false)
	requireCode(t, err, vfserrors.ENOENT)

	require.NoError(t, k.Rm(ctx, "/missing", false, true))
}

func TestRm_DispatchesToRmdirOrUnlink(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)
	require.NoError(t, k.Mkdir(ctx, "/d", kernel.MkdirOptions{}))
	require.NoError(t, k.WriteFile(ctx, "/f", []byte("x"), kernel.WriteFileOptions{}))

	require.NoError(t, k.Rm(ctx, "/f", false, false))
	require.False(t, k.Exists(ctx, "/f"))

	require.NoError(t, k.Rm(ctx, "/d", false, false))
	require.False(t, k.Exists(ctx, "/d"))
}
