package shred

import (
	"fmt"

	"github.com/shredpack/variant/errs"
	"github.com/shredpack/variant/format"
	"github.com/shredpack/variant/schema"
	"github.com/shredpack/variant/variant"
)

// Rebuild reconstructs a Variant from a typed row, the inverse of
// CastShredded. s must be the same schema the row was shredded with; it
// must only be called with the top-level schema (the one carrying a valid
// TopLevelMetadataIdx), not a schema node nested under an object or array.
func Rebuild(row Row, s schema.Schema) (variant.Variant, error) {
	if s.TopLevelMetadataIdx < 0 || row.IsNullAt(s.TopLevelMetadataIdx) {
		return variant.Variant{}, errs.ErrNullMetadata
	}
	metadata := row.GetBinary(s.TopLevelMetadataIdx)

	if s.IsUnshredded() {
		if row.IsNullAt(s.VariantIdx) {
			return variant.Variant{}, fmt.Errorf("%w: missing variant value column", errs.ErrSchemaMismatch)
		}
		return variant.New(row.GetBinary(s.VariantIdx), metadata)
	}

	b, err := variant.NewBuilder(variant.WithAllowDuplicateKeys(false))
	if err != nil {
		return variant.Variant{}, err
	}
	if err := rebuild(row, metadata, s, b); err != nil {
		return variant.Variant{}, err
	}
	return b.Result()
}

// rebuild appends the Variant value reconstructed from row according to s
// into b. metadata is threaded down unchanged from the top-level call,
// since only the top-level schema carries a TopLevelMetadataIdx.
func rebuild(row Row, metadata []byte, s schema.Schema, b *variant.Builder) error {
	typedIdx := s.TypedIdx
	variantIdx := s.VariantIdx

	switch {
	case typedIdx >= 0 && !row.IsNullAt(typedIdx):
		switch {
		case s.IsScalar():
			return rebuildScalar(row, typedIdx, *s.Scalar, b)
		case s.IsArray():
			return rebuildArray(row, metadata, typedIdx, *s.ArrayElement, b)
		default:
			return rebuildObject(row, metadata, typedIdx, variantIdx, s, b)
		}

	case variantIdx >= 0 && !row.IsNullAt(variantIdx):
		v, err := variant.New(row.GetBinary(variantIdx), metadata)
		if err != nil {
			return err
		}
		return b.AppendVariant(v)

	default:
		return fmt.Errorf("%w: neither typed nor variant column present", errs.ErrSchemaMismatch)
	}
}

func rebuildScalar(row Row, typedIdx int, scalar schema.ScalarSchema, b *variant.Builder) error {
	switch scalar.Kind {
	case schema.ScalarString:
		return b.AppendString(row.GetString(typedIdx))

	case schema.ScalarIntegral:
		var value int64
		switch scalar.Size {
		case schema.IntegralByte:
			value = int64(row.GetByte(typedIdx))
		case schema.IntegralShort:
			value = int64(row.GetShort(typedIdx))
		case schema.IntegralInt:
			value = int64(row.GetInt(typedIdx))
		case schema.IntegralLong:
			value = row.GetLong(typedIdx)
		}
		return b.AppendLong(value)

	case schema.ScalarFloat:
		return b.AppendFloat(row.GetFloat(typedIdx))

	case schema.ScalarDouble:
		return b.AppendDouble(row.GetDouble(typedIdx))

	case schema.ScalarBoolean:
		return b.AppendBoolean(row.GetBoolean(typedIdx))

	case schema.ScalarBinary:
		return b.AppendBinary(row.GetBinary(typedIdx))

	case schema.ScalarUUID:
		return b.AppendUUID(row.GetUUID(typedIdx))

	case schema.ScalarDecimal:
		return b.AppendDecimal(row.GetDecimal(typedIdx, scalar.Precision, scalar.Scale))

	case schema.ScalarDate:
		return b.AppendDate(row.GetInt(typedIdx))

	case schema.ScalarTimestamp:
		return b.AppendTimestamp(row.GetLong(typedIdx))

	case schema.ScalarTimestampNTZ:
		return b.AppendTimestampNTZ(row.GetLong(typedIdx))

	default:
		return fmt.Errorf("%w: unhandled scalar kind %d", errs.ErrMalformedVariant, scalar.Kind)
	}
}

func rebuildArray(row Row, metadata []byte, typedIdx int, element schema.Schema, b *variant.Builder) error {
	array := row.GetArray(typedIdx)
	start := b.WritePos()
	offsets := make([]int, 0, array.NumElements())

	for i := 0; i < array.NumElements(); i++ {
		offsets = append(offsets, b.WritePos()-start)
		if err := rebuild(array.Element(i), metadata, element, b); err != nil {
			return err
		}
	}
	return b.FinishArray(start, offsets)
}

// rebuildObject reconstructs an object node: every field named in
// s.ObjectFields is reconstructed recursively from its own typed/variant
// sub-columns (the field is only considered present if its own schema
// shows a populated typed_idx or variant_idx column — not merely because
// the parent object's typed_idx column is populated), and any residual
// fields recorded in the node's own variant column are spliced back in
// verbatim, after checking none of them collide with a shredded field.
func rebuildObject(row Row, metadata []byte, typedIdx, variantIdx int, s schema.Schema, b *variant.Builder) error {
	objectRow := row.GetStruct(typedIdx, len(s.ObjectFields))
	var fields []variant.FieldEntry
	start := b.WritePos()

	for fieldIdx, field := range s.ObjectFields {
		if objectRow.IsNullAt(fieldIdx) {
			return fmt.Errorf("%w: shredded object field %q is null", errs.ErrSchemaMismatch, field.Name)
		}
		fieldValue := objectRow.GetStruct(fieldIdx, field.Schema.NumFields)

		present := (field.Schema.TypedIdx >= 0 && !fieldValue.IsNullAt(field.Schema.TypedIdx)) ||
			(field.Schema.VariantIdx >= 0 && !fieldValue.IsNullAt(field.Schema.VariantIdx))
		if !present {
			continue
		}

		id := b.AddKey(field.Name)
		fields = append(fields, variant.FieldEntry{Key: field.Name, ID: id, Offset: b.WritePos() - start})
		if err := rebuild(fieldValue, metadata, field.Schema, b); err != nil {
			return err
		}
	}

	if variantIdx >= 0 && !row.IsNullAt(variantIdx) {
		v, err := variant.New(row.GetBinary(variantIdx), metadata)
		if err != nil {
			return err
		}
		typ, err := v.Type()
		if err != nil {
			return err
		}
		if typ != format.TypeObject {
			return fmt.Errorf("%w: object residual column is not OBJECT", errs.ErrSchemaMismatch)
		}

		size, err := v.ObjectSize()
		if err != nil {
			return err
		}
		for i := 0; i < size; i++ {
			field, ok, err := v.GetFieldAtIndex(i)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if _, shredded := s.FieldIndex(field.Key); shredded {
				return fmt.Errorf("%w: residual field %q collides with a shredded field", errs.ErrSchemaMismatch, field.Key)
			}

			id := b.AddKey(field.Key)
			fields = append(fields, variant.FieldEntry{Key: field.Key, ID: id, Offset: b.WritePos() - start})
			if err := b.AppendVariant(field.Value); err != nil {
				return err
			}
		}
	}

	return b.FinishObject(start, fields)
}
