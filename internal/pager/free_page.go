package pager

import (
	"encoding/binary"
	"fmt"
)

// FreePage overwrites a page that sits on the free list.
type FreePage struct {
	NextFreePage PageID // InvalidPageID if last
	// Rest of page is unused
}

func (n *FreePage) Marshal(buf []byte) error {
	if len(buf) < 5 {
		return fmt.Errorf("free page buffer too small: %d", len(buf))
	}

	buf[0] = PageTypeFree
	binary.LittleEndian.PutUint32(buf[1:], uint32(n.NextFreePage))

	return nil
}

func (n *FreePage) Unmarshal(buf []byte) error {
	if buf[0] != PageTypeFree {
		return fmt.Errorf("invalid free page type byte %d", buf[0])
	}

	n.NextFreePage = PageID(binary.LittleEndian.Uint32(buf[1:]))
	return nil
}
