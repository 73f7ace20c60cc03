// Package shred implements the shredding writer and reader: projecting a
// Variant into a typed row per a schema.Schema (component F), and
// reconstructing a Variant back out of a typed row (component G).
package shred

import (
	"github.com/shredpack/variant/decimal"
)

// Row is the host-supplied typed storage a Variant is shredded into or
// rebuilt from. It mirrors a single record of a columnar typed/variant pair
// of sub-columns per schema.Schema node: the caller's storage engine
// implements Row however it represents columns (Arrow record batch,
// Parquet row group, an in-memory struct), and the shredding reader drives
// it purely through this interface.
type Row interface {
	// IsNullAt reports whether the column at ordinal is null for this row.
	IsNullAt(ordinal int) bool

	GetBoolean(ordinal int) bool
	GetByte(ordinal int) int8
	GetShort(ordinal int) int16
	GetInt(ordinal int) int32
	GetLong(ordinal int) int64
	GetFloat(ordinal int) float32
	GetDouble(ordinal int) float64
	GetString(ordinal int) string
	GetBinary(ordinal int) []byte
	GetUUID(ordinal int) [16]byte

	// GetDecimal returns the decimal stored at ordinal, already known to
	// have the given precision and scale.
	GetDecimal(ordinal, precision, scale int) decimal.Decimal

	// GetStruct returns the nested row at ordinal, which has numFields
	// typed sub-columns (a schema.Schema's ObjectFields count).
	GetStruct(ordinal, numFields int) Row

	// GetArray returns the nested repeated row at ordinal. Each logical
	// element is a "row" of its own addressed by ArrayRow.NumElements and
	// ArrayRow.Element.
	GetArray(ordinal int) ArrayRow
}

// ArrayRow is the host-supplied typed storage for a single shredded array
// value: a fixed number of elements, each itself a Row holding the array
// element schema's typed/variant sub-columns.
type ArrayRow interface {
	NumElements() int
	Element(index int) Row
}
