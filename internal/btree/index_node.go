package btree

import (
	"fmt"
	"slices"
)

// IndexEntry routes keys greater than or equal to Key to Child.
type IndexEntry struct {
	Key   any
	Child PageID
}

func (e IndexEntry) Size() uint64 {
	return keySize(e.Key) + 4
}

// IndexNode holds sorted routing entries. LeftLink covers keys smaller than
// the first routing key.
type IndexNode struct {
	LeftLink PageID
	Entries  []IndexEntry
}

func NewIndexNode(leftLink PageID, entries ...IndexEntry) *IndexNode {
	return &IndexNode{
		LeftLink: leftLink,
		Entries:  entries,
	}
}

func (n *IndexNode) PageType() byte {
	return PageTypeIndex
}

func (n *IndexNode) Size() uint64 {
	size := uint64(sortedPageHeaderSize)
	for _, anEntry := range n.Entries {
		size += anEntry.Size()
	}
	return size
}

func (n *IndexNode) AvailableSpace() uint64 {
	return availableSpace(n)
}

func (n *IndexNode) Marshal(buf []byte) error {
	if size := n.Size(); size > uint64(len(buf)) {
		return fmt.Errorf("%w: index page of %d bytes", ErrPageFull, size)
	}
	clearPage(buf)

	sortedPageHeader{
		PageType: PageTypeIndex,
		Slots:    uint16(len(n.Entries)),
		Link1:    n.LeftLink,
		Link2:    InvalidPageID,
	}.Marshal(buf)

	i := uint64(sortedPageHeaderSize)
	for _, anEntry := range n.Entries {
		written, err := marshalKey(buf, anEntry.Key, i)
		if err != nil {
			return err
		}
		i += written
		marshalUint32(buf, uint32(anEntry.Child), i)
		i += 4
	}

	return nil
}

func (n *IndexNode) Unmarshal(buf []byte, keyType KeyType) error {
	var header sortedPageHeader
	header.Unmarshal(buf)
	if header.PageType != PageTypeIndex {
		return fmt.Errorf("%w: page type %d is not an index page", ErrCorruptPage, header.PageType)
	}
	n.LeftLink = header.Link1
	n.Entries = make([]IndexEntry, 0, header.Slots)

	i := uint64(sortedPageHeaderSize)
	for range header.Slots {
		key, read, err := unmarshalKey(buf, keyType, i)
		if err != nil {
			return err
		}
		i += read
		if i+4 > uint64(len(buf)) {
			return fmt.Errorf("%w: index entry out of bounds", ErrCorruptPage)
		}
		n.Entries = append(n.Entries, IndexEntry{Key: key, Child: PageID(unmarshalUint32(buf, i))})
		i += 4
	}

	return nil
}

func (n *IndexNode) keyAt(i int) any {
	return n.Entries[i].Key
}

// childSlot routes a key being inserted. Slot 0 is the left link, slot i is
// the child of routing entry i-1: the greatest routing key less than or
// equal to the key, so ties go right.
func (n *IndexNode) childSlot(key any) int {
	return upperBound(len(n.Entries), n.keyAt, key)
}

func (n *IndexNode) childAt(slot int) PageID {
	if slot == 0 {
		return n.LeftLink
	}
	return n.Entries[slot-1].Child
}

// insertAt puts the entry for a page split off the child in slot right after
// that child, which keeps children in leaf chain order when routing keys
// repeat.
func (n *IndexNode) insertAt(slot int, anEntry IndexEntry) {
	n.Entries = slices.Insert(n.Entries, slot, anEntry)
}

// Children returns the left link followed by the child of every routing entry.
func (n *IndexNode) Children() []PageID {
	children := make([]PageID, 0, len(n.Entries)+1)
	children = append(children, n.LeftLink)
	for _, anEntry := range n.Entries {
		children = append(children, anEntry.Child)
	}
	return children
}

func (n *IndexNode) Keys() []any {
	keys := make([]any, 0, len(n.Entries))
	for _, anEntry := range n.Entries {
		keys = append(keys, anEntry.Key)
	}
	return keys
}
