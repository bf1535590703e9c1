package fuseutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masnagam/gofuse/fuseops"
	"github.com/masnagam/gofuse/fuseutil"
)

func TestDirentListBuilderAlignsEachEntryToEightBytes(t *testing.T) {
	b := fuseutil.NewDirentListBuilder(4096)

	names := []string{"a", "bb", "ccccccc", "dddddddd"} // lengths 1,2,7,8: exercise every padding case
	for i, name := range names {
		ok := b.Add(fuseutil.DirentEntry{
			Inode:  fuseops.InodeID(i + 1),
			Offset: fuseops.DirOffset(i + 1),
			Name:   name,
			Type:   fuseops.DT_Regular,
		})
		require.True(t, ok, "entry %q should fit in a 4096-byte budget", name)
	}

	assert.Zero(t, b.Len()%8, "builder's total length must stay 8-byte aligned")
}

func TestDirentListBuilderStopsAtBudget(t *testing.T) {
	// 24 (fixed dirent size) + 8 (1-byte name padded to 8) = 32 bytes per
	// entry; a 40-byte budget fits exactly one.
	b := fuseutil.NewDirentListBuilder(40)

	first := b.Add(fuseutil.DirentEntry{Inode: 1, Offset: 1, Name: "a", Type: fuseops.DT_Regular})
	second := b.Add(fuseutil.DirentEntry{Inode: 2, Offset: 2, Name: "b", Type: fuseops.DT_Regular})

	assert.True(t, first)
	assert.False(t, second, "second entry must not fit in the remaining 8 bytes")
	assert.Equal(t, 32, b.Len())
}

func TestDirentListBuilderRejectsOversizeFirstEntry(t *testing.T) {
	b := fuseutil.NewDirentListBuilder(16)

	ok := b.Add(fuseutil.DirentEntry{Inode: 1, Offset: 1, Name: "too-long-for-budget", Type: fuseops.DT_Regular})
	assert.False(t, ok)
	assert.Zero(t, b.Len())
	assert.Zero(t, b.Bytes().Size())
}
