package btree

import (
	"context"
	"fmt"
	"strings"
)

// TraceChildren writes the children of an index page, or the entries of a
// leaf, to the tracer.
func (t *Tree) TraceChildren(ctx context.Context, pageID PageID) (err error) {
	if t.tracer == nil {
		return nil
	}
	if err := t.checkOpen(); err != nil {
		return err
	}

	g, err := t.pin(ctx, pageID)
	if err != nil {
		return err
	}
	defer t.release(ctx, g, &err)

	var sb strings.Builder
	switch aNode := g.node.(type) {
	case *IndexNode:
		fmt.Fprintf(&sb, "INDEX CHILDREN %d nodes\n", pageID)
		fmt.Fprintf(&sb, " %d", aNode.LeftLink)
		for _, anEntry := range aNode.Entries {
			fmt.Fprintf(&sb, "   %d", anEntry.Child)
		}
	case *LeafNode:
		fmt.Fprintf(&sb, "LEAF CHILDREN %d nodes\n", pageID)
		for _, anEntry := range aNode.Entries {
			fmt.Fprintf(&sb, "   %v %s", anEntry.Key, anEntry.RID)
		}
	}
	sb.WriteString("\n")
	t.trace("%s", sb.String())

	return nil
}

type nodeCallback func(pageID PageID, aNode Node)

// BFS visits every page of the tree level by level, left to right.
func (t *Tree) BFS(ctx context.Context, f nodeCallback) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	if t.header.RootPageID == InvalidPageID {
		return nil
	}

	queue := []PageID{t.header.RootPageID}
	for len(queue) > 0 {
		pageID := queue[0]
		queue = queue[1:]

		g, err := t.pin(ctx, pageID)
		if err != nil {
			return err
		}
		if anIndex, ok := g.node.(*IndexNode); ok {
			queue = append(queue, anIndex.Children()...)
		}
		if err := t.unpin(ctx, g); err != nil {
			return err
		}

		f(pageID, g.node)
	}

	return nil
}
