package variant

import (
	"fmt"
	"math"
	"math/big"

	"github.com/google/uuid"

	"github.com/shredpack/variant/decimal"
	"github.com/shredpack/variant/errs"
	"github.com/shredpack/variant/format"
)

// binarySearchThreshold is the object size at or above which GetFieldByKey
// switches from a linear scan to a binary search over the sorted id table.
// Below this size a linear scan wins on real hardware because it avoids the
// extra key decodes a binary search's probe misses incur.
const binarySearchThreshold = 32

// Variant is an immutable (value, metadata) pair: value is the encoded
// Variant value bytes (always starting at offset 0 of this particular
// buffer), and metadata is the encoded key dictionary value bytes reference
// by id. Both buffers are validated at construction time.
type Variant struct {
	value    []byte
	metadata Metadata
}

// New wraps a (value, metadata) byte pair as a Variant, validating the
// metadata version and that both buffers respect the 16 MiB size ceiling.
func New(value, metadata []byte) (Variant, error) {
	md, err := NewMetadata(metadata)
	if err != nil {
		return Variant{}, err
	}
	if len(value) > format.SizeLimit {
		return Variant{}, fmt.Errorf("%w: value is %d bytes", errs.ErrSizeLimitExceeded, len(value))
	}
	if len(metadata) > format.SizeLimit {
		return Variant{}, fmt.Errorf("%w: metadata is %d bytes", errs.ErrSizeLimitExceeded, len(metadata))
	}
	return Variant{value: value, metadata: md}, nil
}

// Metadata returns the Variant's metadata dictionary.
func (v Variant) Metadata() Metadata { return v.metadata }

// MetadataBytes returns the raw metadata buffer.
func (v Variant) MetadataBytes() []byte { return v.metadata.Bytes() }

// ValueBytes returns the exact byte range of v's own value subtree, i.e.
// v.value[0:size]. For a Variant built by at(pos) this already happens to
// equal its stored slice, but value is exposed as a method (not a raw field
// access) so that callers reconstructing sub-Variants via at() get the same
// trimmed view.
func (v Variant) ValueBytes() ([]byte, error) {
	size, err := valueSize(v.value, 0)
	if err != nil {
		return nil, err
	}
	return v.value[:size], nil
}

// at returns the sub-Variant whose value begins at pos within v's value
// buffer, sharing v's metadata.
func (v Variant) at(pos int) (Variant, error) {
	size, err := valueSize(v.value, pos)
	if err != nil {
		return Variant{}, err
	}
	return Variant{value: v.value[pos : pos+size], metadata: v.metadata}, nil
}

// Type returns the logical type of v.
func (v Variant) Type() (format.Type, error) {
	return getType(v.value, 0)
}

// GetBoolean returns v's boolean value, failing if v is not BOOLEAN.
func (v Variant) GetBoolean() (bool, error) {
	if err := checkIndex(0, len(v.value)); err != nil {
		return false, err
	}
	typeInfo, err := getTypeInfo(v.value, 0)
	if err != nil {
		return false, err
	}
	if getBasicType(v.value, 0) != format.BasicPrimitive ||
		(format.PrimitiveType(typeInfo) != format.PrimitiveTrue && format.PrimitiveType(typeInfo) != format.PrimitiveFalse) {
		return false, unexpectedType(format.TypeBoolean)
	}
	return format.PrimitiveType(typeInfo) == format.PrimitiveTrue, nil
}

// GetLong returns v's integer value. It accepts any of INT1/INT2/INT4/INT8
// as well as DATE/TIMESTAMP/TIMESTAMP_NTZ, which are all stored as raw
// little-endian integers on the wire.
func (v Variant) GetLong() (int64, error) {
	if err := checkIndex(0, len(v.value)); err != nil {
		return 0, err
	}
	if getBasicType(v.value, 0) != format.BasicPrimitive {
		return 0, fmt.Errorf("%w: expected LONG/DATE/TIMESTAMP/TIMESTAMP_NTZ", errs.ErrUnexpectedType)
	}
	typeInfo, err := getTypeInfo(v.value, 0)
	if err != nil {
		return 0, err
	}
	switch format.PrimitiveType(typeInfo) {
	case format.PrimitiveInt1:
		return readLong(v.value, 1, 1)
	case format.PrimitiveInt2:
		return readLong(v.value, 1, 2)
	case format.PrimitiveInt4, format.PrimitiveDate:
		return readLong(v.value, 1, 4)
	case format.PrimitiveInt8, format.PrimitiveTimestamp, format.PrimitiveTimestampNTZ:
		return readLong(v.value, 1, 8)
	default:
		return 0, fmt.Errorf("%w: expected LONG/DATE/TIMESTAMP/TIMESTAMP_NTZ", errs.ErrUnexpectedType)
	}
}

// GetDouble returns v's DOUBLE value.
func (v Variant) GetDouble() (float64, error) {
	if err := checkIndex(0, len(v.value)); err != nil {
		return 0, err
	}
	typeInfo, err := getTypeInfo(v.value, 0)
	if err != nil {
		return 0, err
	}
	if getBasicType(v.value, 0) != format.BasicPrimitive || format.PrimitiveType(typeInfo) != format.PrimitiveDouble {
		return 0, unexpectedType(format.TypeDouble)
	}
	if err := checkIndex(8, len(v.value)); err != nil {
		return 0, err
	}
	bits := littleEndian.Uint64(v.value[1:9])
	return math.Float64frombits(bits), nil
}

// GetFloat returns v's FLOAT value.
func (v Variant) GetFloat() (float32, error) {
	if err := checkIndex(0, len(v.value)); err != nil {
		return 0, err
	}
	typeInfo, err := getTypeInfo(v.value, 0)
	if err != nil {
		return 0, err
	}
	if getBasicType(v.value, 0) != format.BasicPrimitive || format.PrimitiveType(typeInfo) != format.PrimitiveFloat {
		return 0, unexpectedType(format.TypeFloat)
	}
	if err := checkIndex(4, len(v.value)); err != nil {
		return 0, err
	}
	bits := littleEndian.Uint32(v.value[1:5])
	return math.Float32frombits(bits), nil
}

// GetDecimalWithOriginalScale returns v's decimal value preserving its
// on-wire scale (i.e. without stripping trailing zeros), and validates that
// its precision does not exceed the wire type's bound.
func (v Variant) GetDecimalWithOriginalScale() (decimal.Decimal, error) {
	if err := checkIndex(0, len(v.value)); err != nil {
		return decimal.Decimal{}, err
	}
	if getBasicType(v.value, 0) != format.BasicPrimitive {
		return decimal.Decimal{}, unexpectedType(format.TypeDecimal)
	}
	typeInfo, err := getTypeInfo(v.value, 0)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if err := checkIndex(1, len(v.value)); err != nil {
		return decimal.Decimal{}, err
	}
	scale := v.value[1]

	var unscaled int64
	var maxPrecision int
	switch format.PrimitiveType(typeInfo) {
	case format.PrimitiveDecimal4:
		unscaled, err = readLong(v.value, 2, 4)
		maxPrecision = format.MaxDecimal4Precision
	case format.PrimitiveDecimal8:
		unscaled, err = readLong(v.value, 2, 8)
		maxPrecision = format.MaxDecimal8Precision
	case format.PrimitiveDecimal16:
		if err = checkIndex(17, len(v.value)); err != nil {
			return decimal.Decimal{}, err
		}
		var be [16]byte
		for i := 0; i < 16; i++ {
			be[i] = v.value[17-i]
		}
		bi := new(big.Int).SetBytes(be[:])
		if be[0]&0x80 != 0 {
			bi.Sub(bi, new(big.Int).Lsh(big.NewInt(1), 128))
		}
		d := decimal.New(bi, scale)
		if cerr := d.CheckPrecision(format.MaxDecimal16Precision); cerr != nil {
			return decimal.Decimal{}, cerr
		}
		return d, nil
	default:
		return decimal.Decimal{}, unexpectedType(format.TypeDecimal)
	}
	if err != nil {
		return decimal.Decimal{}, err
	}
	d := decimal.New(big.NewInt(unscaled), scale)
	if cerr := d.CheckPrecision(maxPrecision); cerr != nil {
		return decimal.Decimal{}, cerr
	}
	return d, nil
}

// GetDecimal returns v's decimal value with trailing fractional zeros
// stripped (its scale reduced to the minimum needed to represent the exact
// value, same as Python Decimal.normalize()).
func (v Variant) GetDecimal() (decimal.Decimal, error) {
	d, err := v.GetDecimalWithOriginalScale()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return normalizeDecimal(d), nil
}

func normalizeDecimal(d decimal.Decimal) decimal.Decimal {
	for d.Scale() > 0 {
		rescaled, ok := d.Rescale(d.Scale() - 1)
		if !ok {
			break
		}
		d = rescaled
	}
	return d
}

// GetBinary returns v's BINARY payload.
func (v Variant) GetBinary() ([]byte, error) {
	if err := checkIndex(0, len(v.value)); err != nil {
		return nil, err
	}
	typeInfo, err := getTypeInfo(v.value, 0)
	if err != nil {
		return nil, err
	}
	if getBasicType(v.value, 0) != format.BasicPrimitive || format.PrimitiveType(typeInfo) != format.PrimitiveBinary {
		return nil, unexpectedType(format.TypeBinary)
	}
	start := 1 + format.U32Size
	length, err := readUnsigned(v.value, 1, format.U32Size)
	if err != nil {
		return nil, err
	}
	if err := checkIndex(start+int(length)-1, len(v.value)); err != nil {
		return nil, err
	}
	return v.value[start : start+int(length)], nil
}

// GetString returns v's STRING value, whether stored inline (short string)
// or as a length-prefixed LONG_STR payload.
func (v Variant) GetString() (string, error) {
	if err := checkIndex(0, len(v.value)); err != nil {
		return "", err
	}
	basicType := getBasicType(v.value, 0)
	typeInfo, err := getTypeInfo(v.value, 0)
	if err != nil {
		return "", err
	}

	if basicType == format.BasicShortStr {
		start := 1
		length := typeInfo
		if err := checkIndex(start+length-1, len(v.value)); err != nil {
			return "", err
		}
		return string(v.value[start : start+length]), nil
	}
	if basicType == format.BasicPrimitive && format.PrimitiveType(typeInfo) == format.PrimitiveLongStr {
		start := 1 + format.U32Size
		length, err := readUnsigned(v.value, 1, format.U32Size)
		if err != nil {
			return "", err
		}
		if err := checkIndex(start+int(length)-1, len(v.value)); err != nil {
			return "", err
		}
		return string(v.value[start : start+int(length)]), nil
	}
	return "", unexpectedType(format.TypeString)
}

// GetUUID returns v's UUID value, stored on the wire as 16 big-endian bytes.
func (v Variant) GetUUID() (uuid.UUID, error) {
	if err := checkIndex(0, len(v.value)); err != nil {
		return uuid.UUID{}, err
	}
	typeInfo, err := getTypeInfo(v.value, 0)
	if err != nil {
		return uuid.UUID{}, err
	}
	if getBasicType(v.value, 0) != format.BasicPrimitive || format.PrimitiveType(typeInfo) != format.PrimitiveUUID {
		return uuid.UUID{}, unexpectedType(format.TypeUUID)
	}
	start := 1
	if err := checkIndex(start+15, len(v.value)); err != nil {
		return uuid.UUID{}, err
	}
	var id uuid.UUID
	copy(id[:], v.value[start:start+16])
	return id, nil
}

// ObjectSize returns the number of fields in v, which must be OBJECT.
func (v Variant) ObjectSize() (int, error) {
	info, err := parseObjectHeader(v.value, 0)
	if err != nil {
		return 0, err
	}
	return info.size, nil
}

// ObjectField is a single key/value pair read out of an OBJECT Variant.
type ObjectField struct {
	Key   string
	Value Variant
}

// GetFieldAtIndex returns the field stored at the given position in v's id
// table (which is sorted by key, not by insertion order), or ok=false if
// index is out of range.
func (v Variant) GetFieldAtIndex(index int) (field ObjectField, ok bool, err error) {
	info, err := parseObjectHeader(v.value, 0)
	if err != nil {
		return ObjectField{}, false, err
	}
	if index < 0 || index >= info.size {
		return ObjectField{}, false, nil
	}

	dictID, err := readUnsigned(v.value, info.idStart+index*info.idSize, info.idSize)
	if err != nil {
		return ObjectField{}, false, err
	}
	key, err := v.metadata.Key(int(dictID))
	if err != nil {
		return ObjectField{}, false, err
	}
	offset, err := readUnsigned(v.value, info.offsetStart+index*info.offsetSize, info.offsetSize)
	if err != nil {
		return ObjectField{}, false, err
	}
	child, err := v.at(info.dataStart + int(offset))
	if err != nil {
		return ObjectField{}, false, err
	}
	return ObjectField{Key: key, Value: child}, true, nil
}

// GetDictionaryIDAtIndex returns the metadata dictionary id stored at the
// given position in v's id table. Unlike GetFieldAtIndex, an out-of-range
// index is malformed rather than merely absent: callers that reach this
// method already know index is within ObjectSize from other bookkeeping
// (e.g. the shredding writer iterating an object's fields up to ObjectSize).
func (v Variant) GetDictionaryIDAtIndex(index int) (int, error) {
	info, err := parseObjectHeader(v.value, 0)
	if err != nil {
		return 0, err
	}
	if index < 0 || index >= info.size {
		return 0, fmt.Errorf("%w: field index %d out of range (size %d)", errs.ErrMalformedVariant, index, info.size)
	}
	dictID, err := readUnsigned(v.value, info.idStart+index*info.idSize, info.idSize)
	if err != nil {
		return 0, err
	}
	return int(dictID), nil
}

// GetFieldByKey looks up a field by name, using a linear scan for small
// objects and a binary search for larger ones (the id table is sorted by
// key). ok is false if no field with that key exists.
func (v Variant) GetFieldByKey(key string) (field Variant, ok bool, err error) {
	info, err := parseObjectHeader(v.value, 0)
	if err != nil {
		return Variant{}, false, err
	}

	keyAt := func(i int) (string, error) {
		dictID, err := readUnsigned(v.value, info.idStart+i*info.idSize, info.idSize)
		if err != nil {
			return "", err
		}
		return v.metadata.Key(int(dictID))
	}

	find := func(i int) (Variant, bool, error) {
		offset, err := readUnsigned(v.value, info.offsetStart+i*info.offsetSize, info.offsetSize)
		if err != nil {
			return Variant{}, false, err
		}
		child, err := v.at(info.dataStart + int(offset))
		return child, true, err
	}

	if info.size < binarySearchThreshold {
		for i := 0; i < info.size; i++ {
			k, err := keyAt(i)
			if err != nil {
				return Variant{}, false, err
			}
			if k == key {
				return find(i)
			}
		}
		return Variant{}, false, nil
	}

	lo, hi := 0, info.size-1
	for lo <= hi {
		mid := (lo + hi) / 2
		k, err := keyAt(mid)
		if err != nil {
			return Variant{}, false, err
		}
		switch {
		case k == key:
			return find(mid)
		case k < key:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return Variant{}, false, nil
}

// ArraySize returns the number of elements in v, which must be ARRAY.
func (v Variant) ArraySize() (int, error) {
	info, err := parseArrayHeader(v.value, 0)
	if err != nil {
		return 0, err
	}
	return info.size, nil
}

// GetElementAtIndex returns the element at the given position in v, which
// must be ARRAY.
func (v Variant) GetElementAtIndex(index int) (Variant, error) {
	info, err := parseArrayHeader(v.value, 0)
	if err != nil {
		return Variant{}, err
	}
	if index < 0 || index >= info.size {
		return Variant{}, fmt.Errorf("%w: element index %d out of range (size %d)", errs.ErrMalformedVariant, index, info.size)
	}
	offset, err := readUnsigned(v.value, info.offsetStart+index*info.offsetSize, info.offsetSize)
	if err != nil {
		return Variant{}, err
	}
	return v.at(info.dataStart + int(offset))
}
