package btree

import (
	"context"
)

// Scan iterates entries with lo <= key <= hi in key order, entries with equal
// keys in the order they sit in the leaf chain. It holds its current leaf
// pinned until it is exhausted or closed. The tree must not be modified
// other than through DeleteCurrent while a scan is open.
type Scan struct {
	tree    *Tree
	hi      any
	cursor  *leafCursor
	current bool
	done    bool
}

// NewScan starts a scan, a nil lo scans from the first entry and a nil hi to
// the last one.
func (t *Tree) NewScan(ctx context.Context, lo, hi any) (*Scan, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}

	var err error
	if lo != nil {
		if lo, err = t.normalizeKey(lo); err != nil {
			return nil, err
		}
	}
	if hi != nil {
		if hi, err = t.normalizeKey(hi); err != nil {
			return nil, err
		}
	}

	c, err := t.findRunStart(ctx, lo)
	if err != nil {
		return nil, err
	}

	return &Scan{
		tree:   t,
		hi:     hi,
		cursor: c,
		done:   c == nil,
	}, nil
}

// Next returns the next entry in range, false once the scan is exhausted.
func (s *Scan) Next(ctx context.Context) (Entry, bool, error) {
	s.current = false
	if s.done {
		return Entry{}, false, nil
	}

	ok, err := s.cursor.settle(ctx)
	if err != nil {
		s.Close(ctx)
		return Entry{}, false, err
	}
	if !ok {
		return Entry{}, false, s.Close(ctx)
	}

	anEntry := s.cursor.entry()
	if s.hi != nil && compareKeys(anEntry.Key, s.hi) > 0 {
		return Entry{}, false, s.Close(ctx)
	}

	s.cursor.pos += 1
	s.current = true

	return anEntry, true, nil
}

// DeleteCurrent removes the entry most recently returned by Next. The next
// call to Next continues with the entry that followed it.
func (s *Scan) DeleteCurrent(ctx context.Context) error {
	if !s.current || s.done {
		return ErrNoCurrentEntry
	}
	s.current = false
	s.cursor.pos -= 1
	s.cursor.remove()
	return nil
}

// Close releases the pinned leaf, if any. Closing twice is a no-op.
func (s *Scan) Close(ctx context.Context) error {
	s.done = true
	s.current = false
	if s.cursor == nil {
		return nil
	}
	err := s.cursor.close(ctx)
	s.cursor = nil
	return err
}

func (s *Scan) KeySize() int {
	return s.tree.MaxKeySize()
}
