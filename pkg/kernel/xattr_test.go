package kernel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vfscore/vfskernel/pkg/kernel"
	"github.com/vfscore/vfskernel/pkg/vfserrors"
)

func TestXattr_SetGetListRemove(t *testing.T) {
	ctx := context.Background()
	k := newTestKernel(t)
	require.NoError(t, k.WriteFile(ctx, "/f", []byte("x"), kernel.WriteFileOptions{}))

	_, err := k.GetXattr(ctx, "/f", "user.tag")
	requireCode(t, err, vfserrors.ENOENT)

	require.NoError(t, k.SetXattr(ctx, "/f", "user.tag", "v1"))
	require.NoError(t, k.SetXattr(ctx, "/f", "user.other", "v2"))

	v, err := k.GetXattr(ctx, "/f", "user.tag")
	require.NoError(t, err)
	require.Equal(t, "v1", v)

	names, err := k.ListXattr(ctx, "/f")
	require.NoError(t, err)
	require.Equal(t, []string{"user.other", "user.tag"}, names)

	require.NoError(t, k.RemoveXattr(ctx, "/f", "user.tag"))
	_, err = k.GetXattr(ctx, "/f", "user.tag")
	requireCode(t, err, vfserrors.ENOENT)

	// Removing an already-absent attribute is ENOENT, matching getxattr.
	err = k.RemoveXattr(ctx, "/f", "user.tag")
	requireCode(t, err, vfserrors.ENOENT)
}
