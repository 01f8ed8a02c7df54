package btree

import (
	"fmt"
	"slices"
)

// LeafNode holds sorted key to RID entries. Leaves form a doubly linked
// chain in key order.
type LeafNode struct {
	Prev    PageID
	Next    PageID
	Entries []Entry
}

func NewLeafNode(entries ...Entry) *LeafNode {
	return &LeafNode{
		Prev:    InvalidPageID,
		Next:    InvalidPageID,
		Entries: entries,
	}
}

func (n *LeafNode) PageType() byte {
	return PageTypeLeaf
}

func (n *LeafNode) Size() uint64 {
	size := uint64(sortedPageHeaderSize)
	for _, anEntry := range n.Entries {
		size += anEntry.Size()
	}
	return size
}

func (n *LeafNode) AvailableSpace() uint64 {
	return availableSpace(n)
}

func (n *LeafNode) Marshal(buf []byte) error {
	if size := n.Size(); size > uint64(len(buf)) {
		return fmt.Errorf("%w: leaf of %d bytes", ErrPageFull, size)
	}
	clearPage(buf)

	sortedPageHeader{
		PageType: PageTypeLeaf,
		Slots:    uint16(len(n.Entries)),
		Link1:    n.Prev,
		Link2:    n.Next,
	}.Marshal(buf)

	i := uint64(sortedPageHeaderSize)
	for _, anEntry := range n.Entries {
		written, err := marshalKey(buf, anEntry.Key, i)
		if err != nil {
			return err
		}
		i += written
		anEntry.RID.marshal(buf, i)
		i += ridSize
	}

	return nil
}

func (n *LeafNode) Unmarshal(buf []byte, keyType KeyType) error {
	var header sortedPageHeader
	header.Unmarshal(buf)
	if header.PageType != PageTypeLeaf {
		return fmt.Errorf("%w: page type %d is not a leaf", ErrCorruptPage, header.PageType)
	}
	n.Prev = header.Link1
	n.Next = header.Link2
	n.Entries = make([]Entry, 0, header.Slots)

	i := uint64(sortedPageHeaderSize)
	for range header.Slots {
		key, read, err := unmarshalKey(buf, keyType, i)
		if err != nil {
			return err
		}
		i += read
		if i+ridSize > uint64(len(buf)) {
			return fmt.Errorf("%w: leaf entry out of bounds", ErrCorruptPage)
		}
		n.Entries = append(n.Entries, Entry{Key: key, RID: unmarshalRID(buf, i)})
		i += ridSize
	}

	return nil
}

func (n *LeafNode) keyAt(i int) any {
	return n.Entries[i].Key
}

// insert puts the entry after any existing entries with an equal key.
func (n *LeafNode) insert(anEntry Entry) int {
	idx := upperBound(len(n.Entries), n.keyAt, anEntry.Key)
	n.Entries = slices.Insert(n.Entries, idx, anEntry)
	return idx
}

func (n *LeafNode) remove(idx int) {
	n.Entries = slices.Delete(n.Entries, idx, idx+1)
}

func (n *LeafNode) Keys() []any {
	keys := make([]any, 0, len(n.Entries))
	for _, anEntry := range n.Entries {
		keys = append(keys, anEntry.Key)
	}
	return keys
}
