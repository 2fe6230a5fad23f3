package kernel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vfscore/vfskernel/pkg/kernel"
	"github.com/vfscore/vfskernel/pkg/vfserrors"
)

func TestWriteFile_RejectsRootAndDirectoryTarget(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)

	err := k.WriteFile(ctx, "/", []byte("x"), kernel.WriteFileOptions{})
	requireCode(t, err, vfserrors.EISDIR)

	require.NoError(t, k.Mkdir(ctx, "/d", kernel.MkdirOptions{}))
	err = k.WriteFile(ctx, "/d", []byte("x"), kernel.WriteFileOptions{})
	requireCode(t, err, vfserrors.EISDIR)
}

func TestWriteFile_MissingParentIsENOENT(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)

	err := k.WriteFile(ctx, "/missing/f", []byte("x"), kernel.WriteFileOptions{})
	requireCode(t, err, vfserrors.ENOENT)
}

func TestWriteFile_OverwriteDecrefsPreviousBlob(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)

	require.NoError(t, k.WriteFile(ctx, "/f", []byte("v1"), kernel.WriteFileOptions{}))
	require.NoError(t, k.WriteFile(ctx, "/f", []byte("v2"), kernel.WriteFileOptions{}))

	data, err := k.ReadFile(ctx, "/f", kernel.EncodingRaw)
	require.NoError(t, err)
	require.Equal(t, "v2", string(data))

	fs, err := k.Statfs(ctx, "/")
	require.NoError(t, err)
	require.EqualValues(t, 1, fs.TotalBlobs, "the v1 blob must have been collected")
}

// I4 / §3.1: blob_ref is present iff kind=regular and size>0, so an
// empty write must not intern a blob at all.
func TestWriteFile_EmptyDataSkipsBlobPlane(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)

	require.NoError(t, k.WriteFile(ctx, "/empty", nil, kernel.WriteFileOptions{}))
	stat, err := k.Stat(ctx, "/empty")
	require.NoError(t, err)
	require.EqualValues(t, 0, stat.Size)

	fs, err := k.Statfs(ctx, "/")
	require.NoError(t, err)
	require.EqualValues(t, 0, fs.TotalBlobs, "an empty write must not intern a blob")

	require.NoError(t, k.WriteFile(ctx, "/empty", []byte("x"), kernel.WriteFileOptions{}))
	fs, err = k.Statfs(ctx, "/")
	require.NoError(t, err)
	require.EqualValues(t, 1, fs.TotalBlobs)

	// Overwriting back down to empty must drop the now-unreferenced blob.
	require.NoError(t, k.WriteFile(ctx, "/empty", nil, kernel.WriteFileOptions{}))
	fs, err = k.Statfs(ctx, "/")
	require.NoError(t, err)
	require.EqualValues(t, 0, fs.TotalBlobs)
}

func TestReadFile_Encodings(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)
	require.NoError(t, k.WriteFile(ctx, "/f", []byte("hi"), kernel.WriteFileOptions{}))

	hexData, err := k.ReadFile(ctx, "/f", kernel.EncodingHex)
	require.NoError(t, err)
	require.Equal(t, "6869", string(hexData))

	b64, err := k.ReadFile(ctx, "/f", kernel.EncodingBase64)
	require.NoError(t, err)
	require.Equal(t, "aGk=", string(b64))
}

func TestReadFile_DirectoryIsEISDIR(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)
	require.NoError(t, k.Mkdir(ctx, "/d", kernel.MkdirOptions{}))

	_, err := k.ReadFile(ctx, "/d", kernel.EncodingRaw)
	requireCode(t, err, vfserrors.EISDIR)
}

func TestTruncate_ExtendZeroFillsAndShrinkDrops(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)
	require.NoError(t, k.WriteFile(ctx, "/f", []byte("abc"), kernel.WriteFileOptions{}))

	require.NoError(t, k.Truncate(ctx, "/f", 5))
	data, err := k.ReadFile(ctx, "/f", kernel.EncodingRaw)
	require.NoError(t, err)
	require.Equal(t, []byte{'a', 'b', 'c', 0, 0}, data)

	require.NoError(t, k.Truncate(ctx, "/f", 1))
	data, err = k.ReadFile(ctx, "/f", kernel.EncodingRaw)
	require.NoError(t, err)
	require.Equal(t, []byte{'a'}, data)
}

func TestTruncate_ToZeroDropsBlob(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)
	require.NoError(t, k.WriteFile(ctx, "/f", []byte("abc"), kernel.WriteFileOptions{}))

	require.NoError(t, k.Truncate(ctx, "/f", 0))
	fs, err := k.Statfs(ctx, "/")
	require.NoError(t, err)
	require.EqualValues(t, 0, fs.TotalBlobs, "truncating to zero length must not leave a blob interned")

	data, err := k.ReadFile(ctx, "/f", kernel.EncodingRaw)
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestTruncate_NegativeLengthIsEINVAL(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)
	require.NoError(t, k.WriteFile(ctx, "/f", []byte("abc"), kernel.WriteFileOptions{}))

	err := k.Truncate(ctx, "/f", -1)
	requireCode(t, err, vfserrors.EINVAL)
}

// CopyFile reflinks: both paths share a blob hash and refcount reflects it.
func TestCopyFile_Reflinks(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)
	require.NoError(t, k.WriteFile(ctx, "/src", []byte("payload"), kernel.WriteFileOptions{}))

	require.NoError(t, k.CopyFile(ctx, "/src", "/dst", 0))

	srcSt, err := k.Stat(ctx, "/src")
	require.NoError(t, err)
	dstSt, err := k.Stat(ctx, "/dst")
	require.NoError(t, err)
	require.Equal(t, srcSt.Size, dstSt.Size)

	fs, err := k.Statfs(ctx, "/")
	require.NoError(t, err)
	require.EqualValues(t, 1, fs.TotalBlobs)

	require.NoError(t, k.Unlink(ctx, "/src"))
	data, err := k.ReadFile(ctx, "/dst", kernel.EncodingRaw)
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))
}

func TestCopyFile_ExclModeRejectsExistingDest(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)
	require.NoError(t, k.WriteFile(ctx, "/src", []byte("x"), kernel.WriteFileOptions{}))
	require.NoError(t, k.WriteFile(ctx, "/dst", []byte("y"), kernel.WriteFileOptions{}))

	err := k.CopyFile(ctx, "/src", "/dst", kernel.CopyFileExcl)
	requireCode(t, err, vfserrors.EEXIST)
}

func TestReadFile_ContextCanceled(t *testing.T) {
	k := newTestKernel(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := k.ReadFile(ctx, "/f", kernel.EncodingRaw)
	require.Error(t, err)
}
