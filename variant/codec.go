// Package variant implements the self-describing Variant binary encoding:
// header construction and parsing (this file), metadata dictionary access
// (metadata.go), a read-only navigator over encoded bytes (reader.go), an
// append-only builder (builder.go), and JSON interop (json.go).
//
// Every exported function here operates directly on byte slices rather than
// an io.Reader/io.Writer: a Variant is a value type, not a stream, and its
// wire layout is fixed and random-access by design.
package variant

import (
	"fmt"

	"github.com/shredpack/variant/endian"
	"github.com/shredpack/variant/errs"
	"github.com/shredpack/variant/format"
)

// littleEndian is the byte order every Variant wire integer uses. The
// variable-width (1-4 byte) id/offset fields are still packed with the
// hand-rolled writeLong/readUnsigned loops below, since EndianEngine only
// has fixed-width Uint32/Uint64 methods; littleEndian itself is used for
// GetDouble/GetFloat's exactly-8/4-byte IEEE 754 bit-pattern reads.
var littleEndian = endian.GetLittleEndianEngine()

// checkIndex verifies that pos is a valid byte offset into a buffer of the
// given length, returning a wrapped errs.ErrMalformedVariant otherwise.
func checkIndex(pos, length int) error {
	if pos < 0 || pos >= length {
		return fmt.Errorf("%w: index %d out of bounds for length %d", errs.ErrMalformedVariant, pos, length)
	}
	return nil
}

// writeLong writes the least-significant numBytes bytes of value into
// buf[pos:pos+numBytes] in little-endian order.
func writeLong(buf []byte, pos int, value int64, numBytes int) {
	for i := 0; i < numBytes; i++ {
		buf[pos+i] = byte(value >> (8 * i))
	}
}

// primitiveHeader builds a header byte for a PRIMITIVE value of the given
// wire type.
func primitiveHeader(t format.PrimitiveType) byte {
	return byte(t)<<format.BasicTypeBits | byte(format.BasicPrimitive)
}

// shortStrHeader builds a header byte for an inline short string of the
// given length (must be <= format.MaxShortStringLen).
func shortStrHeader(size int) byte {
	return byte(size)<<format.BasicTypeBits | byte(format.BasicShortStr)
}

// objectHeader builds a header byte for an OBJECT container.
func objectHeader(largeSize bool, idSize, offsetSize int) byte {
	var large byte
	if largeSize {
		large = 1
	}
	return large<<(format.BasicTypeBits+4) |
		byte(idSize-1)<<(format.BasicTypeBits+2) |
		byte(offsetSize-1)<<format.BasicTypeBits |
		byte(format.BasicObject)
}

// arrayHeader builds a header byte for an ARRAY container.
func arrayHeader(largeSize bool, offsetSize int) byte {
	var large byte
	if largeSize {
		large = 1
	}
	return large<<(format.BasicTypeBits+2) |
		byte(offsetSize-1)<<format.BasicTypeBits |
		byte(format.BasicArray)
}

// readLong reads a little-endian signed integer of numBytes bytes starting
// at pos, sign-extending the most significant byte.
func readLong(buf []byte, pos, numBytes int) (int64, error) {
	if err := checkIndex(pos, len(buf)); err != nil {
		return 0, err
	}
	if err := checkIndex(pos+numBytes-1, len(buf)); err != nil {
		return 0, err
	}

	var result int64
	for i := 0; i < numBytes-1; i++ {
		result |= int64(buf[pos+i]) << (8 * i)
	}
	result |= int64(int8(buf[pos+numBytes-1])) << (8 * (numBytes - 1))
	return result, nil
}

// readUnsigned reads a little-endian unsigned integer of numBytes bytes
// (1-4) starting at pos.
func readUnsigned(buf []byte, pos, numBytes int) (uint32, error) {
	if err := checkIndex(pos, len(buf)); err != nil {
		return 0, err
	}
	if err := checkIndex(pos+numBytes-1, len(buf)); err != nil {
		return 0, err
	}

	var result uint32
	for i := 0; i < numBytes; i++ {
		result |= uint32(buf[pos+i]) << (8 * i)
	}
	return result, nil
}

// getBasicType returns the 2-bit basic type discriminant at pos.
func getBasicType(buf []byte, pos int) format.BasicType {
	return format.BasicType(buf[pos] & format.BasicTypeMask)
}

// getTypeInfo returns the 6-bit type_info field at pos.
func getTypeInfo(buf []byte, pos int) (int, error) {
	if err := checkIndex(pos, len(buf)); err != nil {
		return 0, err
	}
	return int(buf[pos]>>format.BasicTypeBits) & format.TypeInfoMask, nil
}

// getType returns the logical Type of the value at pos.
func getType(buf []byte, pos int) (format.Type, error) {
	if err := checkIndex(pos, len(buf)); err != nil {
		return 0, err
	}
	basicType := getBasicType(buf, pos)
	typeInfo := (int(buf[pos]) >> format.BasicTypeBits) & format.TypeInfoMask

	switch basicType {
	case format.BasicShortStr:
		return format.TypeString, nil
	case format.BasicObject:
		return format.TypeObject, nil
	case format.BasicArray:
		return format.TypeArray, nil
	}

	switch format.PrimitiveType(typeInfo) {
	case format.PrimitiveNull:
		return format.TypeNull, nil
	case format.PrimitiveTrue, format.PrimitiveFalse:
		return format.TypeBoolean, nil
	case format.PrimitiveInt1, format.PrimitiveInt2, format.PrimitiveInt4, format.PrimitiveInt8:
		return format.TypeLong, nil
	case format.PrimitiveDouble:
		return format.TypeDouble, nil
	case format.PrimitiveDecimal4, format.PrimitiveDecimal8, format.PrimitiveDecimal16:
		return format.TypeDecimal, nil
	case format.PrimitiveDate:
		return format.TypeDate, nil
	case format.PrimitiveTimestamp:
		return format.TypeTimestamp, nil
	case format.PrimitiveTimestampNTZ:
		return format.TypeTimestampNTZ, nil
	case format.PrimitiveFloat:
		return format.TypeFloat, nil
	case format.PrimitiveBinary:
		return format.TypeBinary, nil
	case format.PrimitiveLongStr:
		return format.TypeString, nil
	case format.PrimitiveUUID:
		return format.TypeUUID, nil
	default:
		return 0, fmt.Errorf("%w: %d", errs.ErrUnknownPrimitiveType, typeInfo)
	}
}

// unexpectedType builds the error returned when a typed accessor is called
// against a Variant of a different logical Type.
func unexpectedType(want format.Type) error {
	return fmt.Errorf("%w: expected %s", errs.ErrUnexpectedType, want)
}

// objectHeaderInfo is the decoded form of an OBJECT value's header: the
// positions of its id table, offset table, and element data, and the
// widths used to pack them. It plays the role the callback-based
// handle_object helper does in the reference implementation — returning a
// small value type is the idiomatic Go substitute for threading a closure
// through the header parse.
type objectHeaderInfo struct {
	size         int
	idSize       int
	offsetSize   int
	idStart      int
	offsetStart  int
	dataStart    int
}

// parseObjectHeader decodes the header of the OBJECT value at pos.
func parseObjectHeader(buf []byte, pos int) (objectHeaderInfo, error) {
	if err := checkIndex(pos, len(buf)); err != nil {
		return objectHeaderInfo{}, err
	}
	if getBasicType(buf, pos) != format.BasicObject {
		return objectHeaderInfo{}, unexpectedType(format.TypeObject)
	}
	typeInfo, err := getTypeInfo(buf, pos)
	if err != nil {
		return objectHeaderInfo{}, err
	}

	largeSize := (typeInfo>>4)&0x1 != 0
	sizeBytes := 1
	if largeSize {
		sizeBytes = format.U32Size
	}
	size, err := readUnsigned(buf, pos+1, sizeBytes)
	if err != nil {
		return objectHeaderInfo{}, err
	}

	idSize := ((typeInfo >> 2) & 0x3) + 1
	offsetSize := (typeInfo & 0x3) + 1

	idStart := pos + 1 + sizeBytes
	offsetStart := idStart + int(size)*idSize
	dataStart := offsetStart + (int(size)+1)*offsetSize

	return objectHeaderInfo{
		size:        int(size),
		idSize:      idSize,
		offsetSize:  offsetSize,
		idStart:     idStart,
		offsetStart: offsetStart,
		dataStart:   dataStart,
	}, nil
}

// arrayHeaderInfo is the decoded form of an ARRAY value's header, analogous
// to objectHeaderInfo.
type arrayHeaderInfo struct {
	size        int
	offsetSize  int
	offsetStart int
	dataStart   int
}

// parseArrayHeader decodes the header of the ARRAY value at pos.
func parseArrayHeader(buf []byte, pos int) (arrayHeaderInfo, error) {
	if err := checkIndex(pos, len(buf)); err != nil {
		return arrayHeaderInfo{}, err
	}
	if getBasicType(buf, pos) != format.BasicArray {
		return arrayHeaderInfo{}, unexpectedType(format.TypeArray)
	}
	typeInfo, err := getTypeInfo(buf, pos)
	if err != nil {
		return arrayHeaderInfo{}, err
	}

	largeSize := (typeInfo>>2)&0x1 != 0
	sizeBytes := 1
	if largeSize {
		sizeBytes = format.U32Size
	}
	size, err := readUnsigned(buf, pos+1, sizeBytes)
	if err != nil {
		return arrayHeaderInfo{}, err
	}

	offsetSize := (typeInfo & 0x3) + 1
	offsetStart := pos + 1 + sizeBytes
	dataStart := offsetStart + (int(size)+1)*offsetSize

	return arrayHeaderInfo{
		size:        int(size),
		offsetSize:  offsetSize,
		offsetStart: offsetStart,
		dataStart:   dataStart,
	}, nil
}

// valueSize returns the total byte length of the value at pos, including
// its header, by recursing into container offset tables as needed.
func valueSize(buf []byte, pos int) (int, error) {
	if err := checkIndex(pos, len(buf)); err != nil {
		return 0, err
	}
	basicType := getBasicType(buf, pos)
	typeInfo, err := getTypeInfo(buf, pos)
	if err != nil {
		return 0, err
	}

	switch basicType {
	case format.BasicShortStr:
		return 1 + typeInfo, nil
	case format.BasicObject:
		info, err := parseObjectHeader(buf, pos)
		if err != nil {
			return 0, err
		}
		lastOffset, err := readUnsigned(buf, info.offsetStart+info.size*info.offsetSize, info.offsetSize)
		if err != nil {
			return 0, err
		}
		return info.dataStart - pos + int(lastOffset), nil
	case format.BasicArray:
		info, err := parseArrayHeader(buf, pos)
		if err != nil {
			return 0, err
		}
		lastOffset, err := readUnsigned(buf, info.offsetStart+info.size*info.offsetSize, info.offsetSize)
		if err != nil {
			return 0, err
		}
		return info.dataStart - pos + int(lastOffset), nil
	}

	// PRIMITIVE
	switch format.PrimitiveType(typeInfo) {
	case format.PrimitiveNull, format.PrimitiveTrue, format.PrimitiveFalse:
		return 1, nil
	case format.PrimitiveInt1:
		return 2, nil
	case format.PrimitiveInt2:
		return 3, nil
	case format.PrimitiveInt4, format.PrimitiveDate, format.PrimitiveFloat:
		return 5, nil
	case format.PrimitiveInt8, format.PrimitiveDouble, format.PrimitiveTimestamp, format.PrimitiveTimestampNTZ:
		return 9, nil
	case format.PrimitiveDecimal4:
		return 6, nil
	case format.PrimitiveDecimal8:
		return 10, nil
	case format.PrimitiveDecimal16:
		return 18, nil
	case format.PrimitiveUUID:
		return 17, nil
	case format.PrimitiveBinary:
		length, err := readUnsigned(buf, pos+1, format.U32Size)
		if err != nil {
			return 0, err
		}
		return 1 + format.U32Size + int(length), nil
	case format.PrimitiveLongStr:
		length, err := readUnsigned(buf, pos+1, format.U32Size)
		if err != nil {
			return 0, err
		}
		return 1 + format.U32Size + int(length), nil
	default:
		return 0, fmt.Errorf("%w: %d", errs.ErrUnknownPrimitiveType, typeInfo)
	}
}
