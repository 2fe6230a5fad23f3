package branch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vfscore/vfskernel/internal/storage/memory"
	"github.com/vfscore/vfskernel/pkg/branch"
	"github.com/vfscore/vfskernel/pkg/entry"
	"github.com/vfscore/vfskernel/pkg/posixmode"
	"github.com/vfscore/vfskernel/pkg/vfserrors"
)

func clock() int64 { return 1 }

func TestBranch_ReadsFallThroughToParent(t *testing.T) {
	ctx := context.Background()
	parent := memory.New()
	require.NoError(t, parent.Insert(ctx, &entry.Entry{Path: "/f", Kind: posixmode.KindRegular, Mode: posixmode.IFMT(posixmode.KindRegular) | 0o644}))

	b := branch.New("child", parent, clock)
	e, err := b.Get(ctx, "/f")
	require.NoError(t, err)
	require.NotNil(t, e)
}

// I9: a COW branch never mutates its parent branch.
func TestBranch_WritesNeverMutateParent(t *testing.T) {
	ctx := context.Background()
	parent := memory.New()
	require.NoError(t, parent.Insert(ctx, &entry.Entry{Path: "/f", Kind: posixmode.KindRegular, Mode: posixmode.IFMT(posixmode.KindRegular) | 0o644, Size: 1}))

	b := branch.New("child", parent, clock)
	require.NoError(t, b.Insert(ctx, &entry.Entry{Path: "/f", Kind: posixmode.KindRegular, Mode: posixmode.IFMT(posixmode.KindRegular) | 0o600, Size: 99}))

	childEntry, err := b.Get(ctx, "/f")
	require.NoError(t, err)
	require.EqualValues(t, 99, childEntry.Size)

	parentEntry, err := parent.Get(ctx, "/f")
	require.NoError(t, err)
	require.EqualValues(t, 1, parentEntry.Size, "parent must be untouched by the branch's write")
}

func TestBranch_RemoveTombstonesRegardlessOfParent(t *testing.T) {
	ctx := context.Background()
	parent := memory.New()
	require.NoError(t, parent.Insert(ctx, &entry.Entry{Path: "/f", Kind: posixmode.KindRegular, Mode: posixmode.IFMT(posixmode.KindRegular) | 0o644}))

	b := branch.New("child", parent, clock)
	existed, err := b.Remove(ctx, "/f")
	require.NoError(t, err)
	require.True(t, existed)

	e, err := b.Get(ctx, "/f")
	require.NoError(t, err)
	require.Nil(t, e, "a tombstoned path must read as absent even though the parent still has it")

	parentEntry, err := parent.Get(ctx, "/f")
	require.NoError(t, err)
	require.NotNil(t, parentEntry, "parent entry must survive the branch's tombstone")
}

func TestBranch_ChildrenMergesDirtyTombstonesAndParent(t *testing.T) {
	ctx := context.Background()
	parent := memory.New()
	require.NoError(t, parent.Insert(ctx, &entry.Entry{Path: "/a", Kind: posixmode.KindRegular, Mode: posixmode.IFMT(posixmode.KindRegular) | 0o644}))
	require.NoError(t, parent.Insert(ctx, &entry.Entry{Path: "/b", Kind: posixmode.KindRegular, Mode: posixmode.IFMT(posixmode.KindRegular) | 0o644}))

	b := branch.New("child", parent, clock)
	_, err := b.Remove(ctx, "/a")
	require.NoError(t, err)
	require.NoError(t, b.Insert(ctx, &entry.Entry{Path: "/c", Kind: posixmode.KindRegular, Mode: posixmode.IFMT(posixmode.KindRegular) | 0o644}))

	children, err := b.Children(ctx, "/")
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, c := range children {
		names[c.Name()] = true
	}
	require.False(t, names["a"], "tombstoned entry must not appear")
	require.True(t, names["b"], "untouched parent entry must appear")
	require.True(t, names["c"], "branch-local entry must appear")
}

func TestBranch_CommitFreezesAgainstFurtherWrites(t *testing.T) {
	ctx := context.Background()
	parent := memory.New()
	b := branch.New("child", parent, clock)

	require.NoError(t, b.Insert(ctx, &entry.Entry{Path: "/f", Kind: posixmode.KindRegular, Mode: posixmode.IFMT(posixmode.KindRegular) | 0o644}))
	b.Commit()
	require.True(t, b.Frozen())

	err := b.Insert(ctx, &entry.Entry{Path: "/g", Kind: posixmode.KindRegular, Mode: posixmode.IFMT(posixmode.KindRegular) | 0o644})
	require.Error(t, err)
	require.True(t, vfserrors.HasCode(err, vfserrors.EROFS))
}

func TestBranch_DiscardRevertsToParentView(t *testing.T) {
	ctx := context.Background()
	parent := memory.New()
	require.NoError(t, parent.Insert(ctx, &entry.Entry{Path: "/f", Kind: posixmode.KindRegular, Mode: posixmode.IFMT(posixmode.KindRegular) | 0o644, Size: 1}))

	b := branch.New("child", parent, clock)
	require.NoError(t, b.Insert(ctx, &entry.Entry{Path: "/f", Kind: posixmode.KindRegular, Mode: posixmode.IFMT(posixmode.KindRegular) | 0o644, Size: 99}))

	b.Discard()
	require.False(t, b.Frozen())

	e, err := b.Get(ctx, "/f")
	require.NoError(t, err)
	require.EqualValues(t, 1, e.Size, "discard must revert to the parent's pristine entry")
}
