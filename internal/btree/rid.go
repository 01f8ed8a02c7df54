package btree

import (
	"fmt"
)

// RID identifies a record stored outside of the index.
type RID struct {
	PageID uint32
	SlotNo uint16
}

const ridSize = 4 + 2

func (r RID) String() string {
	return fmt.Sprintf("[%d, %d]", r.PageID, r.SlotNo)
}

func (r RID) marshal(buf []byte, i uint64) {
	marshalUint32(buf, r.PageID, i)
	marshalUint16(buf, r.SlotNo, i+4)
}

func unmarshalRID(buf []byte, i uint64) RID {
	return RID{
		PageID: unmarshalUint32(buf, i),
		SlotNo: unmarshalUint16(buf, i+4),
	}
}

// Entry is a leaf record, a key pointing at a record id.
type Entry struct {
	Key any
	RID RID
}

func (e Entry) Size() uint64 {
	return keySize(e.Key) + ridSize
}
