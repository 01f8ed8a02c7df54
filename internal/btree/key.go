package btree

import (
	"cmp"
	"fmt"
	"math"
)

type KeyType uint8

const (
	IntegerKey KeyType = 1
	StringKey  KeyType = 2
)

// MaxKeySize caps the encoded size of a string key, length prefix excluded.
const MaxKeySize = 255

const (
	integerKeySize         = 4
	stringLengthPrefixSize = 2
)

func (k KeyType) String() string {
	switch k {
	case IntegerKey:
		return "integer"
	case StringKey:
		return "string"
	default:
		return fmt.Sprintf("KeyType(%d)", uint8(k))
	}
}

// checkKeyFormat validates key metadata of a new tree and returns the max key
// size to persist in its header.
func checkKeyFormat(keyType KeyType, keySize int) (uint16, error) {
	switch keyType {
	case IntegerKey:
		if keySize != 0 && keySize != integerKeySize {
			return 0, fmt.Errorf("%w: integer keys are %d bytes, not %d", ErrKeyFormat, integerKeySize, keySize)
		}
		return integerKeySize, nil
	case StringKey:
		if keySize < 1 || keySize > MaxKeySize {
			return 0, fmt.Errorf("%w: string key size %d out of range 1-%d", ErrKeyFormat, keySize, MaxKeySize)
		}
		return uint16(keySize), nil
	default:
		return 0, fmt.Errorf("%w: unknown key type %d", ErrKeyFormat, keyType)
	}
}

// normalizeKey checks a caller supplied key against the tree metadata.
// Integer trees accept int as well and store it as int32.
func normalizeKey(keyType KeyType, maxKeySize uint16, key any) (any, error) {
	switch keyType {
	case IntegerKey:
		switch v := key.(type) {
		case int32:
			return v, nil
		case int:
			if v < math.MinInt32 || v > math.MaxInt32 {
				return nil, fmt.Errorf("%w: integer key %d overflows int32", ErrKeyFormat, v)
			}
			return int32(v), nil
		}
	case StringKey:
		if v, ok := key.(string); ok {
			if len(v) > int(maxKeySize) {
				return nil, fmt.Errorf("%w: key of %d bytes exceeds max key size %d", ErrKeyFormat, len(v), maxKeySize)
			}
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %T key in %s index", ErrKeyFormat, key, keyType)
}

// compareKeys orders two keys of the same type. Nil sorts before everything.
func compareKeys(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	switch v := a.(type) {
	case int32:
		return cmp.Compare(v, b.(int32))
	case string:
		return cmp.Compare(v, b.(string))
	}
	panic(fmt.Sprintf("unsupported key type %T", a))
}

func keySize(key any) uint64 {
	switch v := key.(type) {
	case int32:
		return integerKeySize
	case string:
		return stringLengthPrefixSize + uint64(len(v))
	}
	return 0
}

func marshalKey(buf []byte, key any, i uint64) (uint64, error) {
	switch v := key.(type) {
	case int32:
		marshalInt32(buf, v, i)
		return integerKeySize, nil
	case string:
		marshalUint16(buf, uint16(len(v)), i)
		copy(buf[i+stringLengthPrefixSize:], v)
		return stringLengthPrefixSize + uint64(len(v)), nil
	default:
		return 0, fmt.Errorf("%w: unsupported key type %T", ErrKeyFormat, v)
	}
}

func unmarshalKey(buf []byte, keyType KeyType, i uint64) (any, uint64, error) {
	switch keyType {
	case IntegerKey:
		if i+integerKeySize > uint64(len(buf)) {
			return nil, 0, fmt.Errorf("%w: integer key out of bounds", ErrCorruptPage)
		}
		return unmarshalInt32(buf, i), integerKeySize, nil
	case StringKey:
		if i+stringLengthPrefixSize > uint64(len(buf)) {
			return nil, 0, fmt.Errorf("%w: string key out of bounds", ErrCorruptPage)
		}
		length := uint64(unmarshalUint16(buf, i))
		start := i + stringLengthPrefixSize
		if length > MaxKeySize || start+length > uint64(len(buf)) {
			return nil, 0, fmt.Errorf("%w: string key of %d bytes", ErrCorruptPage, length)
		}
		return string(buf[start : start+length]), stringLengthPrefixSize + length, nil
	default:
		return nil, 0, fmt.Errorf("%w: unknown key type %d", ErrKeyFormat, keyType)
	}
}
