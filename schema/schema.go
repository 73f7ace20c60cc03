// Package schema describes a shredding schema: an immutable tree mirroring
// the expected shape of a Variant's typed projection into columnar storage.
// A Schema node says, for its position in the tree, which of a typed
// sub-column, a residual variant sub-column, and (for scalars) a specific
// target type it expects — the same three-way split the reference
// implementation's VariantSchema carries as typed_idx/variant_idx/
// scalar_schema.
package schema

// IntegralSize is the wire width an Integral scalar target is cast to.
type IntegralSize uint8

const (
	IntegralByte IntegralSize = iota + 1
	IntegralShort
	IntegralInt
	IntegralLong
)

// ScalarKind discriminates the possible scalar target types a Schema leaf
// can shred a Variant value into.
type ScalarKind uint8

const (
	ScalarString ScalarKind = iota
	ScalarIntegral
	ScalarFloat
	ScalarDouble
	ScalarBoolean
	ScalarBinary
	ScalarDecimal
	ScalarDate
	ScalarTimestamp
	ScalarTimestampNTZ
	ScalarUUID
)

// ScalarSchema is the target type for a scalar shredding leaf. Precision
// and Scale are only meaningful when Kind is ScalarDecimal; Size is only
// meaningful when Kind is ScalarIntegral.
type ScalarSchema struct {
	Kind      ScalarKind
	Size      IntegralSize
	Precision int
	Scale     int
}

// ObjectField names one field of an ObjectSchema: the key it matches in a
// source Variant object, and the schema its value must conform to.
type ObjectField struct {
	Name   string
	Schema Schema
}

// Schema is one node of a shredding schema tree. At most one of Scalar,
// ObjectFields, or ArrayElement is set, and the node's kind is whichever of
// them is non-nil (see IsScalar, IsObject, IsArray); an unshredded node
// sets none of them.
//
// TypedIdx, VariantIdx, and TopLevelMetadataIdx are column positions in the
// host's typed row layout (negative means "absent"); see shred.Row.
// NumFields is the number of fields in ObjectFields when this node is an
// object schema.
type Schema struct {
	TypedIdx            int
	VariantIdx          int
	TopLevelMetadataIdx int
	NumFields           int

	Scalar       *ScalarSchema
	ObjectFields []ObjectField
	ArrayElement *Schema

	fieldIndex map[string]int
}

// NewScalar builds a leaf Schema shredding a Variant scalar into the given
// target type.
func NewScalar(typedIdx, variantIdx, topLevelMetadataIdx int, scalar ScalarSchema) Schema {
	return Schema{
		TypedIdx:            typedIdx,
		VariantIdx:          variantIdx,
		TopLevelMetadataIdx: topLevelMetadataIdx,
		Scalar:              &scalar,
	}
}

// NewObject builds a Schema shredding a Variant object into named typed
// fields, with any unmatched fields flowing to the variantIdx residual
// column.
func NewObject(typedIdx, variantIdx, topLevelMetadataIdx int, fields []ObjectField) Schema {
	s := Schema{
		TypedIdx:            typedIdx,
		VariantIdx:          variantIdx,
		TopLevelMetadataIdx: topLevelMetadataIdx,
		NumFields:           len(fields),
		ObjectFields:        fields,
	}
	s.buildFieldIndex()
	return s
}

// NewArray builds a Schema shredding a Variant array into a typed
// repetition of element, with any non-array Variant flowing to the
// variantIdx residual column.
func NewArray(typedIdx, variantIdx, topLevelMetadataIdx int, element Schema) Schema {
	return Schema{
		TypedIdx:            typedIdx,
		VariantIdx:          variantIdx,
		TopLevelMetadataIdx: topLevelMetadataIdx,
		ArrayElement:        &element,
	}
}

// NewUnshredded builds the trivial Schema describing a row that carries a
// Variant verbatim (no typed projection at all): only the residual variant
// and top-level metadata columns are present.
func NewUnshredded(variantIdx, topLevelMetadataIdx int) Schema {
	return Schema{
		TypedIdx:            -1,
		VariantIdx:          variantIdx,
		TopLevelMetadataIdx: topLevelMetadataIdx,
	}
}

func (s *Schema) buildFieldIndex() {
	s.fieldIndex = make(map[string]int, len(s.ObjectFields))
	for i, f := range s.ObjectFields {
		s.fieldIndex[f.Name] = i
	}
}

// FieldIndex returns the position of name within ObjectFields, if this
// schema is an object schema and has a field by that name.
func (s Schema) FieldIndex(name string) (int, bool) {
	if s.fieldIndex == nil {
		return 0, false
	}
	i, ok := s.fieldIndex[name]
	return i, ok
}

// IsUnshredded reports whether this schema carries no typed projection at
// all: the row is expected to hold the full Variant verbatim in its
// residual column.
func (s Schema) IsUnshredded() bool {
	return s.TopLevelMetadataIdx >= 0 && s.VariantIdx >= 0 && s.TypedIdx < 0
}

// IsObject reports whether this schema has an object projection.
func (s Schema) IsObject() bool { return s.ObjectFields != nil }

// IsArray reports whether this schema has an array projection.
func (s Schema) IsArray() bool { return s.ArrayElement != nil }

// IsScalar reports whether this schema has a scalar projection.
func (s Schema) IsScalar() bool { return s.Scalar != nil }
