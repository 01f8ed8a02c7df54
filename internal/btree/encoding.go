package btree

import (
	"encoding/binary"
)

func marshalUint16(buf []byte, n uint16, i uint64) {
	binary.LittleEndian.PutUint16(buf[i:], n)
}

func unmarshalUint16(buf []byte, i uint64) uint16 {
	return binary.LittleEndian.Uint16(buf[i:])
}

func marshalUint32(buf []byte, n uint32, i uint64) {
	binary.LittleEndian.PutUint32(buf[i:], n)
}

func unmarshalUint32(buf []byte, i uint64) uint32 {
	return binary.LittleEndian.Uint32(buf[i:])
}

func marshalInt32(buf []byte, n int32, i uint64) {
	marshalUint32(buf, uint32(n), i)
}

func unmarshalInt32(buf []byte, i uint64) int32 {
	return int32(unmarshalUint32(buf, i))
}
