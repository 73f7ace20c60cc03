// Package format defines the wire-level and logical type constants shared by
// every other package in this module. It has no dependencies of its own and
// exists purely so that variant, schema, and shred can agree on a single set
// of numeric tags without importing each other.
package format

import "fmt"

// BasicType is the 2-bit discriminant stored in the low bits of a value
// header byte.
type BasicType uint8

const (
	BasicPrimitive BasicType = 0
	BasicShortStr  BasicType = 1
	BasicObject    BasicType = 2
	BasicArray     BasicType = 3
)

// PrimitiveType is the 6-bit type_info value carried by a primitive header
// when BasicType is BasicPrimitive.
type PrimitiveType uint8

const (
	PrimitiveNull         PrimitiveType = 0
	PrimitiveTrue         PrimitiveType = 1
	PrimitiveFalse        PrimitiveType = 2
	PrimitiveInt1         PrimitiveType = 3
	PrimitiveInt2         PrimitiveType = 4
	PrimitiveInt4         PrimitiveType = 5
	PrimitiveInt8         PrimitiveType = 6
	PrimitiveDouble       PrimitiveType = 7
	PrimitiveDecimal4     PrimitiveType = 8
	PrimitiveDecimal8     PrimitiveType = 9
	PrimitiveDecimal16    PrimitiveType = 10
	PrimitiveDate         PrimitiveType = 11
	PrimitiveTimestamp    PrimitiveType = 12
	PrimitiveTimestampNTZ PrimitiveType = 13
	PrimitiveFloat        PrimitiveType = 14
	PrimitiveBinary       PrimitiveType = 15
	PrimitiveLongStr      PrimitiveType = 16
	PrimitiveUUID         PrimitiveType = 20
)

// Type is the logical type observed by callers of the Variant reader. It
// collapses the wire-level distinction between short and long strings, and
// between the four INT widths, into the categories a JSON-like data model
// actually cares about.
type Type uint8

const (
	TypeObject Type = iota + 1
	TypeArray
	TypeNull
	TypeBoolean
	TypeLong
	TypeString
	TypeDouble
	TypeDecimal
	TypeDate
	TypeTimestamp
	TypeTimestampNTZ
	TypeFloat
	TypeBinary
	TypeUUID
)

func (t Type) String() string {
	switch t {
	case TypeObject:
		return "OBJECT"
	case TypeArray:
		return "ARRAY"
	case TypeNull:
		return "NULL"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeLong:
		return "LONG"
	case TypeString:
		return "STRING"
	case TypeDouble:
		return "DOUBLE"
	case TypeDecimal:
		return "DECIMAL"
	case TypeDate:
		return "DATE"
	case TypeTimestamp:
		return "TIMESTAMP"
	case TypeTimestampNTZ:
		return "TIMESTAMP_NTZ"
	case TypeFloat:
		return "FLOAT"
	case TypeBinary:
		return "BINARY"
	case TypeUUID:
		return "UUID"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Wire-level layout constants used throughout the codec. Exported so that
// hand-rolled tooling (fuzzers, dumpers) outside this module can interpret
// raw bytes without duplicating magic numbers.
const (
	// BasicTypeBits is the width, in bits, of the basic-type field packed
	// into the low bits of every header byte.
	BasicTypeBits = 2
	BasicTypeMask = 0x3
	TypeInfoMask  = 0x3F

	// MaxShortStringLen is the largest length a short string header can
	// encode directly (6 bits of type_info).
	MaxShortStringLen = 0x3F

	// Version is the only metadata version this module understands; see
	// spec §6 and §7. Decoding any other version is malformed.
	Version     = 1
	VersionMask = 0x0F

	// U32Size is the width, in bytes, of length prefixes on BINARY and
	// LONG_STR payloads.
	U32Size = 4

	// SizeLimit is the maximum size, in bytes, of either a value or a
	// metadata buffer (2^24, i.e. 16 MiB).
	SizeLimit = 1 << 24

	// Decimal precision ceilings per on-wire width.
	MaxDecimal4Precision  = 9
	MaxDecimal8Precision  = 18
	MaxDecimal16Precision = 38
)

// IntegerWidth returns the minimum number of bytes (1, 2, 3, or 4) needed to
// hold an unsigned value up to and including max. It is used to pick
// id_size and offset_size for object/array headers and the metadata offset
// table, all of which are bounded by SizeLimit (so 4 bytes always suffices).
func IntegerWidth(max int) int {
	switch {
	case max <= 0xFF:
		return 1
	case max <= 0xFFFF:
		return 2
	case max <= 0xFFFFFF:
		return 3
	default:
		return 4
	}
}
