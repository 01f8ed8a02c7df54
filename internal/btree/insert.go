package btree

import (
	"context"
	"fmt"
)

// insertOutcome reports whether a recursive insert split the page it was
// called on. When it did, key and sibling must be inserted into the parent.
type insertOutcome struct {
	split   bool
	key     any
	sibling PageID
}

func noSplit() insertOutcome {
	return insertOutcome{}
}

func splitInto(key any, sibling PageID) insertOutcome {
	return insertOutcome{split: true, key: key, sibling: sibling}
}

// Insert adds a (key, rid) entry. Duplicate keys are allowed, an entry goes
// after existing entries with the same key.
func (t *Tree) Insert(ctx context.Context, key any, rid RID) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	key, err := t.normalizeKey(key)
	if err != nil {
		return err
	}

	if t.header.RootPageID == InvalidPageID {
		return t.insertFirst(ctx, Entry{Key: key, RID: rid})
	}

	rootID := t.header.RootPageID
	outcome, err := t.doInsert(ctx, key, rid, rootID)
	if err != nil {
		return err
	}
	if !outcome.split {
		return nil
	}

	return t.growRoot(ctx, rootID, outcome)
}

func (t *Tree) insertFirst(ctx context.Context, anEntry Entry) (err error) {
	g, err := t.allocate(ctx, PageTypeLeaf)
	if err != nil {
		return err
	}
	defer t.release(ctx, g, &err)
	t.visit(g.pageID)

	aLeaf := g.node.(*LeafNode)
	aLeaf.insert(anEntry)

	t.logger.Sugar().With(
		"name", t.name,
		"root", int(g.pageID),
	).Debug("created root leaf")

	return t.setRoot(g.pageID)
}

// growRoot puts a new index root above a root that just split.
func (t *Tree) growRoot(ctx context.Context, oldRootID PageID, outcome insertOutcome) (err error) {
	g, err := t.allocate(ctx, PageTypeIndex)
	if err != nil {
		return err
	}
	defer t.release(ctx, g, &err)
	t.visit(g.pageID)

	aRoot := g.node.(*IndexNode)
	aRoot.LeftLink = oldRootID
	aRoot.Entries = append(aRoot.Entries, IndexEntry{Key: outcome.key, Child: outcome.sibling})

	t.logger.Sugar().With(
		"name", t.name,
		"old_root", int(oldRootID),
		"new_root", int(g.pageID),
		"key", outcome.key,
	).Debug("root split")

	return t.setRoot(g.pageID)
}

func (t *Tree) doInsert(ctx context.Context, key any, rid RID, pageID PageID) (_ insertOutcome, err error) {
	g, err := t.pin(ctx, pageID)
	if err != nil {
		return noSplit(), err
	}
	defer t.release(ctx, g, &err)
	t.visit(pageID)

	switch aNode := g.node.(type) {
	case *IndexNode:
		// This page stays pinned until the child reports back.
		slot := aNode.childSlot(key)
		childOutcome, err := t.doInsert(ctx, key, rid, aNode.childAt(slot))
		if err != nil || !childOutcome.split {
			return noSplit(), err
		}
		return t.insertIntoIndex(ctx, g, aNode, slot, IndexEntry{Key: childOutcome.key, Child: childOutcome.sibling})
	case *LeafNode:
		return t.insertIntoLeaf(ctx, g, aNode, Entry{Key: key, RID: rid})
	default:
		return noSplit(), fmt.Errorf("%w: page %d", ErrCorruptPage, pageID)
	}
}

func (t *Tree) leafHasRoom(aLeaf *LeafNode, anEntry Entry) bool {
	if t.maxLeafEntries > 0 && len(aLeaf.Entries) >= t.maxLeafEntries {
		return false
	}
	return aLeaf.AvailableSpace() >= anEntry.Size()
}

func (t *Tree) indexHasRoom(anIndex *IndexNode, anEntry IndexEntry) bool {
	if t.maxIndexEntries > 0 && len(anIndex.Entries) >= t.maxIndexEntries {
		return false
	}
	return anIndex.AvailableSpace() >= anEntry.Size()
}

func (t *Tree) insertIntoLeaf(ctx context.Context, g *pageGuard, aLeaf *LeafNode, anEntry Entry) (_ insertOutcome, err error) {
	if t.leafHasRoom(aLeaf, anEntry) {
		aLeaf.insert(anEntry)
		g.dirty = true
		return noSplit(), nil
	}

	if len(aLeaf.Entries) == 0 {
		return noSplit(), fmt.Errorf("%w: entry of %d bytes", ErrPageFull, anEntry.Size())
	}

	siblingGuard, err := t.allocate(ctx, PageTypeLeaf)
	if err != nil {
		return noSplit(), err
	}
	defer t.release(ctx, siblingGuard, &err)
	t.visit(siblingGuard.pageID)

	sibling := siblingGuard.node.(*LeafNode)
	sibling.Prev = g.pageID
	sibling.Next = aLeaf.Next
	if aLeaf.Next != InvalidPageID {
		if err := t.relinkPrev(ctx, aLeaf.Next, siblingGuard.pageID); err != nil {
			return noSplit(), err
		}
	}
	aLeaf.Next = siblingGuard.pageID

	splitAt := (len(aLeaf.Entries) + 1) / 2
	if splitAt == len(aLeaf.Entries) {
		splitAt = len(aLeaf.Entries) - 1
	}
	sibling.Entries = append(sibling.Entries, aLeaf.Entries[splitAt:]...)
	aLeaf.Entries = append([]Entry(nil), aLeaf.Entries[:splitAt]...)
	g.dirty = true

	// The first moved key is copied up, it stays in the sibling.
	boundary := sibling.Entries[0].Key
	if compareKeys(anEntry.Key, boundary) >= 0 {
		sibling.insert(anEntry)
	} else {
		aLeaf.insert(anEntry)
	}

	t.logger.Sugar().With(
		"name", t.name,
		"page", int(g.pageID),
		"sibling", int(siblingGuard.pageID),
		"left_entries", len(aLeaf.Entries),
		"right_entries", len(sibling.Entries),
		"boundary", boundary,
	).Debug("leaf split")

	return splitInto(boundary, siblingGuard.pageID), nil
}

// relinkPrev points the prev link of a leaf at a newly spliced sibling.
func (t *Tree) relinkPrev(ctx context.Context, pageID, prev PageID) (err error) {
	g, err := t.pin(ctx, pageID)
	if err != nil {
		return err
	}
	defer t.release(ctx, g, &err)
	t.visit(pageID)

	aLeaf, ok := g.node.(*LeafNode)
	if !ok {
		return fmt.Errorf("%w: next link %d is not a leaf", ErrCorruptPage, pageID)
	}
	aLeaf.Prev = prev
	g.dirty = true

	return nil
}

func (t *Tree) insertIntoIndex(ctx context.Context, g *pageGuard, anIndex *IndexNode, slot int, anEntry IndexEntry) (_ insertOutcome, err error) {
	if t.indexHasRoom(anIndex, anEntry) {
		anIndex.insertAt(slot, anEntry)
		g.dirty = true
		return noSplit(), nil
	}

	// The median is taken over the existing entries plus the promoted one.
	// It moves up, its child becomes the left link of the new page.
	combined := NewIndexNode(anIndex.LeftLink, append([]IndexEntry(nil), anIndex.Entries...)...)
	combined.insertAt(slot, anEntry)
	mid := len(anIndex.Entries) / 2
	median := combined.Entries[mid]

	siblingGuard, err := t.allocate(ctx, PageTypeIndex)
	if err != nil {
		return noSplit(), err
	}
	defer t.release(ctx, siblingGuard, &err)
	t.visit(siblingGuard.pageID)

	sibling := siblingGuard.node.(*IndexNode)
	sibling.LeftLink = median.Child
	sibling.Entries = append(sibling.Entries, combined.Entries[mid+1:]...)
	anIndex.Entries = append([]IndexEntry(nil), combined.Entries[:mid]...)
	g.dirty = true

	t.logger.Sugar().With(
		"name", t.name,
		"page", int(g.pageID),
		"sibling", int(siblingGuard.pageID),
		"left_entries", len(anIndex.Entries),
		"right_entries", len(sibling.Entries),
		"median", median.Key,
	).Debug("index split")

	return splitInto(median.Key, siblingGuard.pageID), nil
}
