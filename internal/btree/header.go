package btree

import (
	"fmt"
)

type DeletePolicy uint8

const (
	NaiveDelete DeletePolicy = 0
	FullDelete  DeletePolicy = 1
)

func (p DeletePolicy) String() string {
	switch p {
	case NaiveDelete:
		return "naive"
	case FullDelete:
		return "full"
	default:
		return fmt.Sprintf("DeletePolicy(%d)", uint8(p))
	}
}

const headerMagic uint32 = 1989

const headerSize = 1 + 4 + 4 + 1 + 2 + 1

// HeaderRecord is the tree metadata kept in the header page.
type HeaderRecord struct {
	Magic        uint32
	RootPageID   PageID
	KeyType      KeyType
	MaxKeySize   uint16
	DeletePolicy DeletePolicy
}

func (h HeaderRecord) Marshal(buf []byte) error {
	if len(buf) < headerSize {
		return fmt.Errorf("%w: header needs %d bytes", ErrPageFull, headerSize)
	}
	clearPage(buf)

	i := uint64(0)
	buf[i] = PageTypeHeader
	i += 1
	marshalUint32(buf, h.Magic, i)
	i += 4
	marshalUint32(buf, uint32(h.RootPageID), i)
	i += 4
	buf[i] = byte(h.KeyType)
	i += 1
	marshalUint16(buf, h.MaxKeySize, i)
	i += 2
	buf[i] = byte(h.DeletePolicy)

	return nil
}

func (h *HeaderRecord) Unmarshal(buf []byte) error {
	if len(buf) < headerSize || buf[0] != PageTypeHeader {
		return fmt.Errorf("%w: not a header page", ErrCorruptPage)
	}

	i := uint64(1)
	h.Magic = unmarshalUint32(buf, i)
	i += 4
	if h.Magic != headerMagic {
		return fmt.Errorf("%w: bad header magic %d", ErrCorruptPage, h.Magic)
	}
	h.RootPageID = PageID(unmarshalUint32(buf, i))
	i += 4
	h.KeyType = KeyType(buf[i])
	i += 1
	h.MaxKeySize = unmarshalUint16(buf, i)
	i += 2
	h.DeletePolicy = DeletePolicy(buf[i])

	return nil
}
