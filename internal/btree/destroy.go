package btree

import (
	"context"
	"fmt"
)

// Destroy frees every page of the tree, the header page included, and
// removes the file entry. The tree is closed afterwards.
func (t *Tree) Destroy(ctx context.Context) error {
	if err := t.checkOpen(); err != nil {
		return err
	}

	if t.header.RootPageID != InvalidPageID {
		freed, err := t.destroyPage(ctx, t.header.RootPageID)
		if err != nil {
			return err
		}
		t.logger.Sugar().With(
			"name", t.name,
			"freed_pages", freed,
		).Debug("destroyed index pages")
		if err := t.setRoot(InvalidPageID); err != nil {
			return err
		}
	}

	t.closed = true
	if err := t.store.UnpinPage(ctx, t.headerID, false); err != nil {
		return fmt.Errorf("unpin header page %d: %w", t.headerID, err)
	}
	if err := t.store.FreePage(ctx, t.headerID); err != nil {
		return fmt.Errorf("free header page %d: %w", t.headerID, err)
	}
	if err := t.store.DeleteFileEntry(ctx, t.name); err != nil {
		return fmt.Errorf("delete file entry: %w", err)
	}

	t.logger.Sugar().With("name", t.name).Debug("destroyed index")

	return nil
}

// destroyPage frees a subtree bottom up. A page is unpinned before its
// children are visited and freed only after all of them are gone.
func (t *Tree) destroyPage(ctx context.Context, pageID PageID) (int, error) {
	g, err := t.pin(ctx, pageID)
	if err != nil {
		return 0, err
	}
	t.visit(pageID)

	var children []PageID
	if anIndex, ok := g.node.(*IndexNode); ok {
		children = anIndex.Children()
	}
	if err := t.unpin(ctx, g); err != nil {
		return 0, err
	}

	freed := 0
	for _, childID := range children {
		n, err := t.destroyPage(ctx, childID)
		freed += n
		if err != nil {
			return freed, err
		}
	}

	if err := t.store.FreePage(ctx, pageID); err != nil {
		return freed, fmt.Errorf("free page %d: %w", pageID, err)
	}

	return freed + 1, nil
}
