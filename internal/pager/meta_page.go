package pager

import (
	"encoding/binary"
	"fmt"
)

const metaMagic uint32 = 0x42545246

// metaPage is always page 0 of the file.
type metaPage struct {
	TotalPages uint32
	FreeHead   PageID
	FreePages  uint32
}

func (m *metaPage) Marshal(buf []byte) error {
	if len(buf) < 17 {
		return fmt.Errorf("meta page buffer too small: %d", len(buf))
	}

	i := 0
	buf[i] = PageTypeMeta
	i += 1

	binary.LittleEndian.PutUint32(buf[i:], metaMagic)
	i += 4
	binary.LittleEndian.PutUint32(buf[i:], m.TotalPages)
	i += 4
	binary.LittleEndian.PutUint32(buf[i:], uint32(m.FreeHead))
	i += 4
	binary.LittleEndian.PutUint32(buf[i:], m.FreePages)

	return nil
}

func (m *metaPage) Unmarshal(buf []byte) error {
	if buf[0] != PageTypeMeta {
		return fmt.Errorf("invalid meta page type byte %d", buf[0])
	}
	i := 1

	if magic := binary.LittleEndian.Uint32(buf[i:]); magic != metaMagic {
		return fmt.Errorf("invalid meta page magic %x", magic)
	}
	i += 4

	m.TotalPages = binary.LittleEndian.Uint32(buf[i:])
	i += 4
	m.FreeHead = PageID(binary.LittleEndian.Uint32(buf[i:]))
	i += 4
	m.FreePages = binary.LittleEndian.Uint32(buf[i:])

	if m.TotalPages == 0 {
		return fmt.Errorf("meta page reports zero pages")
	}
	return nil
}
