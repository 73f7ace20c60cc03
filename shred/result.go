package shred

import "github.com/shredpack/variant/schema"

// Result is the typed row a shredding write produces: the host's storage
// engine implements it to receive the pieces CastShredded computes, column
// by column, in whatever form that engine stores a row (builder pattern
// over an Arrow array, a Parquet column writer, etc).
type Result interface {
	// AddMetadata records the top-level metadata dictionary bytes.
	AddMetadata(metadata []byte)

	// AddScalar records a successfully-cast scalar value at the node's
	// typed column.
	AddScalar(value any)

	// AddVariantValue records raw Variant value bytes (no metadata) into
	// the node's residual variant column, used whenever a value could not
	// be cast to the node's typed column.
	AddVariantValue(value []byte)

	// AddObject records that every field of the node's ObjectFields was
	// filled (each itself a Result from a nested CastShredded call).
	AddObject(fields []Result)

	// AddArray records that the node's array was projected element by
	// element (each element a Result from a nested CastShredded call).
	AddArray(elements []Result)
}

// ResultBuilder constructs empty Results for schema nodes, used both for
// the top-level write and to materialize "nothing to report" slots (an
// object field the source Variant didn't populate still needs a typed row
// to represent its absence).
type ResultBuilder interface {
	// CreateEmpty returns a new, empty Result for the given schema node.
	CreateEmpty(s schema.Schema) Result

	// AllowNumericScaleChanges reports whether the LONG-to-Decimal and
	// Decimal-to-Decimal cast rules may rescale (changing the number of
	// fractional digits) rather than requiring an exact scale match.
	AllowNumericScaleChanges() bool
}
