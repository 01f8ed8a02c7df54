package btree

import (
	"fmt"
	"sort"

	"github.com/RichardKnop/minibtree/internal/pager"
)

const (
	PageTypeIndex  byte = 11
	PageTypeLeaf   byte = 12
	PageTypeHeader byte = 13
)

// Every sorted page starts with the same header: page type, slot count and
// two page links. Leaves use them as prev and next pointers, index pages
// only use the first one as the left link.
const sortedPageHeaderSize = 1 + 2 + 4 + 4

type sortedPageHeader struct {
	PageType byte
	Slots    uint16
	Link1    PageID
	Link2    PageID
}

func (h sortedPageHeader) Marshal(buf []byte) {
	buf[0] = h.PageType
	marshalUint16(buf, h.Slots, 1)
	marshalUint32(buf, uint32(h.Link1), 3)
	marshalUint32(buf, uint32(h.Link2), 7)
}

func (h *sortedPageHeader) Unmarshal(buf []byte) {
	h.PageType = buf[0]
	h.Slots = unmarshalUint16(buf, 1)
	h.Link1 = PageID(unmarshalUint32(buf, 3))
	h.Link2 = PageID(unmarshalUint32(buf, 7))
}

// Node is a decoded index or leaf page, either *IndexNode or *LeafNode.
type Node interface {
	PageType() byte
	Size() uint64
	Marshal(buf []byte) error
}

func decodeNode(buf []byte, keyType KeyType) (Node, error) {
	if len(buf) < sortedPageHeaderSize {
		return nil, fmt.Errorf("%w: page of %d bytes", ErrCorruptPage, len(buf))
	}
	switch buf[0] {
	case PageTypeIndex:
		aNode := new(IndexNode)
		if err := aNode.Unmarshal(buf, keyType); err != nil {
			return nil, err
		}
		return aNode, nil
	case PageTypeLeaf:
		aNode := new(LeafNode)
		if err := aNode.Unmarshal(buf, keyType); err != nil {
			return nil, err
		}
		return aNode, nil
	default:
		return nil, fmt.Errorf("%w: unexpected page type %d", ErrCorruptPage, buf[0])
	}
}

func availableSpace(aNode Node) uint64 {
	size := aNode.Size()
	if size >= pager.PageSize {
		return 0
	}
	return pager.PageSize - size
}

// upperBound returns the position of the first key greater than key, which
// is where a new entry goes so ties land after existing equal keys.
func upperBound(n int, keyAt func(int) any, key any) int {
	return sort.Search(n, func(i int) bool {
		return compareKeys(keyAt(i), key) > 0
	})
}

// lowerBound returns the position of the first key greater than or equal
// to key.
func lowerBound(n int, keyAt func(int) any, key any) int {
	return sort.Search(n, func(i int) bool {
		return compareKeys(keyAt(i), key) >= 0
	})
}

func clearPage(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
