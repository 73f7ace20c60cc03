// Package errs collects the sentinel errors raised across this module.
// Call sites wrap a sentinel with contextual detail via
// fmt.Errorf("%w: detail", errs.ErrSomething), so callers can always test
// the underlying cause with errors.Is regardless of the message text.
package errs

import "errors"

var (
	// ErrMalformedVariant indicates the value or metadata buffer violates
	// the wire format: a bad version nibble, a truncated offset table, an
	// out-of-range index, or any other structural inconsistency.
	ErrMalformedVariant = errors.New("MALFORMED_VARIANT")

	// ErrSizeLimitExceeded indicates a value or metadata buffer would
	// exceed the 16 MiB ceiling.
	ErrSizeLimitExceeded = errors.New("VARIANT_CONSTRUCTOR_SIZE_LIMIT")

	// ErrUnknownPrimitiveType indicates a primitive header's type_info
	// byte does not correspond to any known PrimitiveType.
	ErrUnknownPrimitiveType = errors.New("UNKNOWN_PRIMITIVE_TYPE_IN_VARIANT")

	// ErrUnexpectedType indicates a typed accessor (GetLong, GetString,
	// ...) was called on a Variant whose basic type or type_info does not
	// support it.
	ErrUnexpectedType = errors.New("unexpected variant type")

	// ErrDuplicateKey indicates an object being finalized in strict mode
	// has two fields with the same key.
	ErrDuplicateKey = errors.New("duplicate object key")

	// ErrDecimalPrecisionExceeded indicates a decimal value has more
	// significant digits than DECIMAL16 can hold.
	ErrDecimalPrecisionExceeded = errors.New("decimal precision exceeds DECIMAL16 bounds")

	// ErrSchemaMismatch indicates a shredded row does not agree with its
	// schema: a scalar/array/object mismatch, a missing field, or a field
	// present in both the typed row and the residual variant.
	ErrSchemaMismatch = errors.New("variant does not match shredding schema")

	// ErrNullMetadata indicates a shredded row's top-level metadata
	// column is null where the schema requires it to be present.
	ErrNullMetadata = errors.New("shredded row metadata is null")
)
