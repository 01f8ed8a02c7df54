package btree

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTree_Delete(t *testing.T) {
	aTree, store := initTest(t)
	aTree.maxLeafEntries = 4
	ctx := context.Background()

	for _, key := range []int32{10, 20, 30, 40, 50} {
		require.NoError(t, aTree.Insert(ctx, key, RID{PageID: uint32(key), SlotNo: 1}))
	}

	t.Run("Delete existing entry", func(t *testing.T) {
		deleted, err := aTree.Delete(ctx, int32(30), RID{PageID: 30, SlotNo: 1})
		require.NoError(t, err)
		assert.True(t, deleted)

		assert.Equal(t, ints(10, 20, 40, 50), entryKeys(scanAll(t, aTree, nil, nil)))
		assert.Empty(t, scanAll(t, aTree, int32(30), int32(30)))
	})

	t.Run("Delete twice reports not found", func(t *testing.T) {
		deleted, err := aTree.Delete(ctx, int32(30), RID{PageID: 30, SlotNo: 1})
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("Key exists but RID differs", func(t *testing.T) {
		deleted, err := aTree.Delete(ctx, int32(40), RID{PageID: 40, SlotNo: 2})
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("Key not in tree", func(t *testing.T) {
		for _, key := range []int32{5, 25, 60} {
			deleted, err := aTree.Delete(ctx, key, RID{PageID: uint32(key), SlotNo: 1})
			require.NoError(t, err)
			assert.False(t, deleted)
		}
		assert.Equal(t, ints(10, 20, 40, 50), entryKeys(scanAll(t, aTree, nil, nil)))
	})

	t.Run("Leaf emptied by deletes stays in the chain", func(t *testing.T) {
		for _, key := range []int32{40, 50} {
			deleted, err := aTree.Delete(ctx, key, RID{PageID: uint32(key), SlotNo: 1})
			require.NoError(t, err)
			assert.True(t, deleted)
		}

		nodes := collectNodes(t, aTree)
		require.Len(t, nodes, 3)
		assertLeafNode(t, nodes[2], InvalidPageID, 3, ints(10, 20))
		assertLeafNode(t, nodes[3], 2, InvalidPageID, ints())

		require.NoError(t, aTree.Insert(ctx, int32(45), RID{PageID: 45}))
		assertLeafNode(t, collectNodes(t, aTree)[3], 2, InvalidPageID, ints(45))
	})

	assert.Equal(t, 1, store.pinnedPages())
}

func TestTree_Delete_DuplicatesInOneLeaf(t *testing.T) {
	aTree, _ := initTest(t)
	ctx := context.Background()

	rids := []RID{{PageID: 1}, {PageID: 2}, {PageID: 3}}
	for _, rid := range rids {
		require.NoError(t, aTree.Insert(ctx, int32(7), rid))
	}
	require.NoError(t, aTree.Insert(ctx, int32(8), RID{PageID: 4}))

	deleted, err := aTree.Delete(ctx, int32(7), rids[2])
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = aTree.Delete(ctx, int32(7), RID{PageID: 4})
	require.NoError(t, err)
	assert.False(t, deleted, "matching RID under another key")

	entries := scanAll(t, aTree, int32(7), int32(7))
	assert.Equal(t, []Entry{{Key: int32(7), RID: rids[0]}, {Key: int32(7), RID: rids[1]}}, entries)
}

func TestTree_Delete_DuplicatesAcrossLeaves(t *testing.T) {
	aTree, store := initTest(t)
	aTree.maxLeafEntries = 4
	ctx := context.Background()

	require.NoError(t, aTree.Insert(ctx, int32(5), RID{PageID: 5}))
	rids := make([]RID, 0, 6)
	for i := range 6 {
		rid := RID{PageID: 7, SlotNo: uint16(i)}
		rids = append(rids, rid)
		require.NoError(t, aTree.Insert(ctx, int32(7), rid))
	}
	require.NoError(t, aTree.Insert(ctx, int32(9), RID{PageID: 9}))

	/*
		                     +---------+
		                     |  7 , 7  |
		                     +---------+
		                    /     |     \
		+----------+  +------------+  +------------------+
		|  5, 7a   |  |  7b, 7c    |  |  7d, 7e, 7f, 9   |
		+----------+  +------------+  +------------------+
	*/

	nodes := collectNodes(t, aTree)
	assertIndexNode(t, nodes[4], ints(7, 7), []PageID{2, 3, 5})
	assertLeafNode(t, nodes[2], InvalidPageID, 3, ints(5, 7))
	assertLeafNode(t, nodes[3], 2, 5, ints(7, 7))
	assertLeafNode(t, nodes[5], 3, InvalidPageID, ints(7, 7, 7, 9))

	t.Run("Point scan returns the whole run", func(t *testing.T) {
		entries := scanAll(t, aTree, int32(7), int32(7))
		require.Len(t, entries, 6)
		for i, anEntry := range entries {
			assert.Equal(t, rids[i], anEntry.RID)
		}
	})

	t.Run("Every duplicate is deletable on its own", func(t *testing.T) {
		// Start from the far end of the run so the walk crosses leaves
		for i := len(rids) - 1; i >= 0; i-- {
			deleted, err := aTree.Delete(ctx, int32(7), rids[i])
			require.NoError(t, err)
			assert.True(t, deleted, "rid %s", rids[i])

			assert.Len(t, scanAll(t, aTree, int32(7), int32(7)), i)
		}
		assert.Equal(t, ints(5, 9), entryKeys(scanAll(t, aTree, nil, nil)))
	})

	assert.Equal(t, 1, store.pinnedPages())
}

func TestTree_Delete_DuplicatesSurroundedBySplits(t *testing.T) {
	aTree, store := initTest(t)
	aTree.maxLeafEntries = 4
	aTree.maxIndexEntries = 3
	ctx := context.Background()

	var (
		inserted []Entry
		sevens   []Entry
	)
	insert := func(key int32, rid RID) {
		require.NoError(t, aTree.Insert(ctx, key, rid))
		inserted = append(inserted, Entry{Key: key, RID: rid})
	}

	// The run splits first, smaller keys then split the leaves to its left
	// and larger keys land after it.
	for i := range 10 {
		rid := RID{PageID: 7, SlotNo: uint16(i)}
		insert(7, rid)
		sevens = append(sevens, Entry{Key: int32(7), RID: rid})
	}
	for slot := range 3 {
		for _, key := range []int32{6, 5, 4, 3, 2, 1} {
			insert(key, RID{PageID: uint32(key), SlotNo: uint16(slot)})
		}
	}
	for slot := range 2 {
		for key := int32(8); key <= 13; key++ {
			insert(key, RID{PageID: uint32(key), SlotNo: uint16(slot)})
		}
	}

	t.Run("Scan returns every entry in key order", func(t *testing.T) {
		entries := scanAll(t, aTree, nil, nil)
		assert.ElementsMatch(t, inserted, entries)
		assert.True(t, slices.IsSortedFunc(entries, func(a, b Entry) int {
			return compareKeys(a.Key, b.Key)
		}), "keys out of order: %v", entryKeys(entries))
	})

	t.Run("Point scans return exactly their key", func(t *testing.T) {
		for key := int32(1); key <= 13; key++ {
			var expected []Entry
			for _, anEntry := range inserted {
				if anEntry.Key == key {
					expected = append(expected, anEntry)
				}
			}
			assert.ElementsMatch(t, expected, scanAll(t, aTree, key, key), "key %d", key)
		}
		assert.Equal(t, sevens, scanAll(t, aTree, int32(7), int32(7)))
	})

	t.Run("Every entry can be deleted", func(t *testing.T) {
		for i := len(inserted) - 1; i >= 0; i-- {
			anEntry := inserted[i]
			deleted, err := aTree.Delete(ctx, anEntry.Key, anEntry.RID)
			require.NoError(t, err)
			assert.True(t, deleted, "key %v rid %s", anEntry.Key, anEntry.RID)
		}
		assert.Empty(t, scanAll(t, aTree, nil, nil))
	})

	assert.Equal(t, 1, store.pinnedPages())
}

func TestTree_Delete_Random(t *testing.T) {
	aTree, store := initTest(t)
	aTree.maxLeafEntries = 6
	aTree.maxIndexEntries = 3
	var (
		ctx      = context.Background()
		gen      = newTestGen()
		inserted = make([]Entry, 0, 300)
	)

	for range 300 {
		anEntry := Entry{Key: gen.IntKey(50), RID: gen.RID()}
		require.NoError(t, aTree.Insert(ctx, anEntry.Key, anEntry.RID))
		inserted = append(inserted, anEntry)
	}

	gen.ShuffleAnySlice(inserted)
	deleted, remaining := inserted[:150], inserted[150:]
	for _, anEntry := range deleted {
		ok, err := aTree.Delete(ctx, anEntry.Key, anEntry.RID)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	assert.ElementsMatch(t, remaining, scanAll(t, aTree, nil, nil))
	assert.Equal(t, 1, store.pinnedPages())
}

func TestTree_Delete_UnsupportedPolicy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	aTree, err := OpenOrCreate(ctx, testLogger, newMemStorage(), "test_index", IntegerKey, 4, FullDelete)
	require.NoError(t, err)
	require.NoError(t, aTree.Insert(ctx, int32(1), RID{}))

	_, err = aTree.Delete(ctx, int32(1), RID{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedPolicy)
}

func TestTree_Delete_KeyFormat(t *testing.T) {
	aTree, _ := initTest(t)

	_, err := aTree.Delete(context.Background(), "1", RID{})
	assert.ErrorIs(t, err, ErrKeyFormat)
}
