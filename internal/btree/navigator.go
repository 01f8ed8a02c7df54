package btree

import (
	"context"
	"fmt"
)

// leafCursor is a position inside a pinned leaf.
type leafCursor struct {
	tree  *Tree
	guard *pageGuard
	leaf  *LeafNode
	pos   int
}

// findRunStart returns a cursor at the first entry with key >= lo, or at the
// first entry of the index when lo is nil. Routing keys equal to lo send the
// descent left since duplicates of lo can sit in the left sibling. A nil
// cursor means there is no such entry.
func (t *Tree) findRunStart(ctx context.Context, lo any) (*leafCursor, error) {
	pageID := t.header.RootPageID
	if pageID == InvalidPageID {
		return nil, nil
	}

	for {
		g, err := t.pin(ctx, pageID)
		if err != nil {
			return nil, err
		}
		t.visit(pageID)

		switch aNode := g.node.(type) {
		case *IndexNode:
			child := aNode.LeftLink
			if lo != nil {
				for _, anEntry := range aNode.Entries {
					if compareKeys(anEntry.Key, lo) >= 0 {
						break
					}
					child = anEntry.Child
				}
			}
			if err := t.unpin(ctx, g); err != nil {
				return nil, err
			}
			pageID = child
		case *LeafNode:
			c := &leafCursor{tree: t, guard: g, leaf: aNode}
			if lo != nil {
				c.pos = lowerBound(len(aNode.Entries), aNode.keyAt, lo)
			}
			return c.seek(ctx, lo)
		default:
			t.unpin(ctx, g)
			return nil, fmt.Errorf("%w: page %d", ErrCorruptPage, pageID)
		}
	}
}

// seek moves right until an entry with key >= lo, closing the cursor and
// returning nil when the chain runs out.
func (c *leafCursor) seek(ctx context.Context, lo any) (*leafCursor, error) {
	for {
		ok, err := c.settle(ctx)
		if err != nil {
			c.close(ctx)
			return nil, err
		}
		if !ok {
			return nil, c.close(ctx)
		}
		if lo == nil || compareKeys(c.entry().Key, lo) >= 0 {
			return c, nil
		}
		c.pos += 1
	}
}

// settle makes sure the cursor points at an entry, following next links past
// the end of a leaf and past empty leaves. It reports false at the end of
// the chain, in which case the last leaf stays pinned.
func (c *leafCursor) settle(ctx context.Context) (bool, error) {
	for c.pos >= len(c.leaf.Entries) {
		nextID := c.leaf.Next
		if nextID == InvalidPageID {
			return false, nil
		}

		g, err := c.tree.pin(ctx, nextID)
		if err != nil {
			return false, err
		}
		c.tree.visit(nextID)
		aLeaf, ok := g.node.(*LeafNode)
		if !ok {
			c.tree.unpin(ctx, g)
			return false, fmt.Errorf("%w: next link %d is not a leaf", ErrCorruptPage, nextID)
		}

		if err := c.tree.unpin(ctx, c.guard); err != nil {
			c.tree.unpin(ctx, g)
			return false, err
		}
		c.guard = g
		c.leaf = aLeaf
		c.pos = 0
	}
	return true, nil
}

func (c *leafCursor) entry() Entry {
	return c.leaf.Entries[c.pos]
}

func (c *leafCursor) remove() {
	c.leaf.remove(c.pos)
	c.guard.dirty = true
}

func (c *leafCursor) close(ctx context.Context) error {
	if c == nil || c.guard == nil {
		return nil
	}
	err := c.tree.unpin(ctx, c.guard)
	c.guard = nil
	c.leaf = nil
	return err
}
