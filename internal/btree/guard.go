package btree

import (
	"context"
	"fmt"
)

// pageGuard is a pinned, decoded index or leaf page. Mutations go to the
// decoded node and are encoded back into the frame when a dirty guard is
// released.
type pageGuard struct {
	pageID   PageID
	buf      []byte
	node     Node
	dirty    bool
	released bool
}

func (t *Tree) pin(ctx context.Context, pageID PageID) (*pageGuard, error) {
	buf, err := t.store.PinPage(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("pin page %d: %w", pageID, err)
	}
	aNode, err := decodeNode(buf, t.header.KeyType)
	if err != nil {
		if unpinErr := t.store.UnpinPage(ctx, pageID, false); unpinErr != nil {
			t.logger.Sugar().With("page", int(pageID), "error", unpinErr).Warn("unpin corrupt page")
		}
		return nil, fmt.Errorf("decode page %d: %w", pageID, err)
	}
	return &pageGuard{
		pageID: pageID,
		buf:    buf,
		node:   aNode,
	}, nil
}

// allocate is the tree's allocateTypedPage: a new pinned page formatted as an
// empty index or leaf node.
func (t *Tree) allocate(ctx context.Context, pageType byte) (*pageGuard, error) {
	var aNode Node
	switch pageType {
	case PageTypeIndex:
		aNode = NewIndexNode(InvalidPageID)
	case PageTypeLeaf:
		aNode = NewLeafNode()
	default:
		return nil, fmt.Errorf("allocate page of type %d", pageType)
	}

	pageID, buf, err := t.store.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate page: %w", err)
	}

	return &pageGuard{
		pageID: pageID,
		buf:    buf,
		node:   aNode,
		dirty:  true,
	}, nil
}

func (t *Tree) unpin(ctx context.Context, g *pageGuard) error {
	if g == nil || g.released {
		return nil
	}
	g.released = true

	var encodeErr error
	if g.dirty {
		encodeErr = g.node.Marshal(g.buf)
	}
	// A page that failed to encode is still unpinned, but clean, so the
	// previous image on disk survives.
	if err := t.store.UnpinPage(ctx, g.pageID, g.dirty && encodeErr == nil); err != nil {
		return fmt.Errorf("unpin page %d: %w", g.pageID, err)
	}
	if encodeErr != nil {
		return fmt.Errorf("encode page %d: %w", g.pageID, encodeErr)
	}
	return nil
}

// release unpins a guard from a defer, reporting the error through errp unless
// the operation already failed.
func (t *Tree) release(ctx context.Context, g *pageGuard, errp *error) {
	if err := t.unpin(ctx, g); err != nil && *errp == nil {
		*errp = err
	}
}
