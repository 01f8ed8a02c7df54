package btree

import (
	"context"
	"fmt"
)

// Delete removes the entry matching both key and rid, reporting false when
// there is none. Pages are never merged, a leaf can end up empty and stays
// in the chain.
func (t *Tree) Delete(ctx context.Context, key any, rid RID) (_ bool, err error) {
	if err := t.checkOpen(); err != nil {
		return false, err
	}
	if t.header.DeletePolicy != NaiveDelete {
		return false, fmt.Errorf("%w: %s", ErrUnsupportedPolicy, t.header.DeletePolicy)
	}
	key, err = t.normalizeKey(key)
	if err != nil {
		return false, err
	}

	c, err := t.findRunStart(ctx, key)
	if err != nil || c == nil {
		return false, err
	}
	defer func() {
		if closeErr := c.close(ctx); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	// Walk the run of equal keys, it can continue into following leaves.
	for {
		ok, err := c.settle(ctx)
		if err != nil || !ok {
			return false, err
		}

		anEntry := c.entry()
		if compareKeys(anEntry.Key, key) != 0 {
			return false, nil
		}
		if anEntry.RID == rid {
			c.remove()

			t.logger.Sugar().With(
				"name", t.name,
				"page", int(c.guard.pageID),
				"key", key,
				"rid", rid.String(),
			).Debug("deleted entry")

			return true, nil
		}
		c.pos += 1
	}
}
