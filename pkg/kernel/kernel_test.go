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

// newTestKernel builds a Kernel over a fresh in-memory backend, acting
// as root, matching SPEC_FULL §8's "kernel tests against
// internal/storage/memory" instruction.
func newTestKernel(t *testing.T) *kernel.Kernel {
	t.Helper()
	return kernel.New(memory.New(), memory.NewBlobStore())
}

func requireCode(t *testing.T, err error, code vfserrors.Code) {
	t.Helper()
	require.Error(t, err)
	require.True(t, vfserrors.HasCode(err, code), "expected %s, got %v", code, err)
}

// S1. Write / read round-trip.
func TestSeed_WriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)

	require.NoError(t, k.WriteFile(ctx, "/a.txt", []byte("Hello"), kernel.WriteFileOptions{}))

	data, err := k.ReadFile(ctx, "/a.txt", kernel.EncodingUTF8)
	require.NoError(t, err)
	require.Equal(t, "Hello", string(data))

	st, err := k.Stat(ctx, "/a.txt")
	require.NoError(t, err)
	require.EqualValues(t, 5, st.Size)
}

// S2. Rename directory with descendants.
func TestSeed_RenameDirectoryWithDescendants(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)

	require.NoError(t, k.Mkdir(ctx, "/d/y", kernel.MkdirOptions{Recursive: true}))
	require.NoError(t, k.WriteFile(ctx, "/d/x", []byte("x"), kernel.WriteFileOptions{}))
	require.NoError(t, k.WriteFile(ctx, "/d/y/z", []byte("z"), kernel.WriteFileOptions{}))

	require.NoError(t, k.Rename(ctx, "/d", "/e", false))

	require.False(t, k.Exists(ctx, "/d"))
	require.True(t, k.Exists(ctx, "/e/x"))
	require.True(t, k.Exists(ctx, "/e/y/z"))

	res, err := k.Readdir(ctx, "/e", kernel.ReaddirOptions{Recursive: true})
	require.NoError(t, err)
	require.Len(t, res.Entries, 3) // x, y, y/z
}

// S3. Dedup.
func TestSeed_Dedup(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)

	require.NoError(t, k.WriteFile(ctx, "/a", []byte("same"), kernel.WriteFileOptions{}))
	require.NoError(t, k.WriteFile(ctx, "/b", []byte("same"), kernel.WriteFileOptions{}))

	fs, err := k.Statfs(ctx, "/")
	require.NoError(t, err)
	require.EqualValues(t, 1, fs.TotalBlobs)

	sta, err := k.Stat(ctx, "/a")
	require.NoError(t, err)
	stb, err := k.Stat(ctx, "/b")
	require.NoError(t, err)
	require.EqualValues(t, 4, sta.Size)
	require.EqualValues(t, 4, stb.Size)

	require.NoError(t, k.Unlink(ctx, "/a"))
	require.True(t, k.Exists(ctx, "/b"))

	fs, err = k.Statfs(ctx, "/")
	require.NoError(t, err)
	require.EqualValues(t, 1, fs.TotalBlobs, "blob must survive while /b still refs it")

	require.NoError(t, k.Unlink(ctx, "/b"))
	fs, err = k.Statfs(ctx, "/")
	require.NoError(t, err)
	require.EqualValues(t, 0, fs.TotalBlobs)
}

// S4. Symlink follow/no-follow.
func TestSeed_SymlinkFollowNoFollow(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)

	require.NoError(t, k.WriteFile(ctx, "/t", []byte("x"), kernel.WriteFileOptions{}))
	require.NoError(t, k.Symlink(ctx, "/t", "/l"))

	st, err := k.Stat(ctx, "/l")
	require.NoError(t, err)
	require.True(t, st.IsRegular())

	lst, err := k.Lstat(ctx, "/l")
	require.NoError(t, err)
	require.True(t, lst.IsSymlink())

	target, err := k.Readlink(ctx, "/l")
	require.NoError(t, err)
	require.Equal(t, "/t", target)

	require.NoError(t, k.Symlink(ctx, "/missing", "/bl"))
	require.False(t, k.Exists(ctx, "/bl"))

	_, err = k.Lstat(ctx, "/bl")
	require.NoError(t, err)
}

// S5. Recursive rmdir.
func TestSeed_RecursiveRmdir(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)

	require.NoError(t, k.Mkdir(ctx, "/r/a/b", kernel.MkdirOptions{Recursive: true}))
	require.NoError(t, k.WriteFile(ctx, "/r/a/b/f", []byte("y"), kernel.WriteFileOptions{}))

	require.NoError(t, k.Rmdir(ctx, "/r", true))
	require.False(t, k.Exists(ctx, "/r"))

	fs, err := k.Statfs(ctx, "/")
	require.NoError(t, err)
	require.EqualValues(t, 0, fs.TotalBlobs)
}

// S6. Permission denial.
func TestSeed_PermissionDenial(t *testing.T) {
	ctx := context.Background()
	md := memory.New()
	k := kernel.New(md, memory.NewBlobStore())

	require.NoError(t, k.WriteFile(ctx, "/p", []byte("secret"), kernel.WriteFileOptions{}))
	require.NoError(t, k.Chmod(ctx, "/p", 0o600))
	require.NoError(t, k.Chown(ctx, "/p", 1000, 1000))

	asOther := kernel.New(md.WithIdentity(2000, 2000, nil), memory.NewBlobStore())
	err := asOther.Access(ctx, "/p", posixmode.R_OK)
	requireCode(t, err, vfserrors.EACCES)

	err = k.Access(ctx, "/p", posixmode.R_OK|posixmode.W_OK)
	require.NoError(t, err, "root must always pass access checks")
}

// I2. Root is always a directory with nlink >= 2 and cannot be removed.
func TestInvariant_RootIsDirectoryAndUndeletable(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)

	st, err := k.Stat(ctx, "/")
	require.NoError(t, err)
	require.True(t, st.IsDirectory())
	require.GreaterOrEqual(t, st.Nlink, uint32(2))

	err = k.Rmdir(ctx, "/", false)
	requireCode(t, err, vfserrors.EPERM)
}

// I3. mode & S_IFMT matches kind for every entry kind the kernel creates.
func TestInvariant_ModeMatchesKind(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)

	require.NoError(t, k.Mkdir(ctx, "/dir", kernel.MkdirOptions{}))
	require.NoError(t, k.WriteFile(ctx, "/file", []byte("x"), kernel.WriteFileOptions{}))
	require.NoError(t, k.Symlink(ctx, "/file", "/link"))

	dirSt, err := k.Lstat(ctx, "/dir")
	require.NoError(t, err)
	require.True(t, dirSt.IsDirectory())

	fileSt, err := k.Lstat(ctx, "/file")
	require.NoError(t, err)
	require.True(t, fileSt.IsRegular())

	linkSt, err := k.Lstat(ctx, "/link")
	require.NoError(t, err)
	require.True(t, linkSt.IsSymlink())
}

// I8. A non-empty directory cannot be removed without recursive=true.
func TestInvariant_RmdirRequiresEmpty(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)

	require.NoError(t, k.Mkdir(ctx, "/d", kernel.MkdirOptions{}))
	require.NoError(t, k.WriteFile(ctx, "/d/f", []byte("x"), kernel.WriteFileOptions{}))

	err := k.Rmdir(ctx, "/d", false)
	requireCode(t, err, vfserrors.ENOTEMPTY)

	require.NoError(t, k.Rmdir(ctx, "/d", true))
	require.False(t, k.Exists(ctx, "/d"))
}

// I10. mtime changes on content change; ctime on metadata change;
// birthtime never changes. Reads do not update atime (DESIGN.md's atime
// policy is "none"), so atime is not checked here.
func TestInvariant_TimestampSemantics(t *testing.T) {
	ctx := context.Background()
	tick := int64(1000)
	clock := func() int64 { tick++; return tick }
	k := kernel.New(memory.New(), memory.NewBlobStore(), kernel.WithClock(clock))

	require.NoError(t, k.WriteFile(ctx, "/f", []byte("v1"), kernel.WriteFileOptions{}))
	st1, err := k.Stat(ctx, "/f")
	require.NoError(t, err)

	require.NoError(t, k.Chmod(ctx, "/f", 0o600))
	st2, err := k.Stat(ctx, "/f")
	require.NoError(t, err)
	require.Equal(t, st1.Mtime, st2.Mtime, "chmod must not touch mtime")
	require.Greater(t, st2.Ctime, st1.Ctime, "chmod must advance ctime")
	require.Equal(t, st1.Birth, st2.Birth, "birthtime is immutable")

	require.NoError(t, k.WriteFile(ctx, "/f", []byte("v2"), kernel.WriteFileOptions{}))
	st3, err := k.Stat(ctx, "/f")
	require.NoError(t, err)
	require.Greater(t, st3.Mtime, st2.Mtime, "overwrite must advance mtime")
	require.Equal(t, st1.Birth, st3.Birth)
}
