package shred

import (
	"fmt"

	"github.com/shredpack/variant/decimal"
	"github.com/shredpack/variant/errs"
	"github.com/shredpack/variant/format"
	"github.com/shredpack/variant/schema"
	"github.com/shredpack/variant/variant"
)

// CastShredded projects v into a Result shaped by s, recursively. Object
// fields not named in s.ObjectFields, and scalars that don't match s's
// target type, fall back to a residual variant sub-column rather than
// failing the whole projection: a shredding schema only needs to describe
// the fields a reader actually wants typed.
func CastShredded(v variant.Variant, s schema.Schema, builder ResultBuilder) (Result, error) {
	variantType, err := v.Type()
	if err != nil {
		return nil, err
	}
	result := builder.CreateEmpty(s)

	if s.TopLevelMetadataIdx >= 0 {
		result.AddMetadata(v.MetadataBytes())
	}

	switch {
	case s.IsArray() && variantType == format.TypeArray:
		if err := castArray(v, s, builder, result); err != nil {
			return nil, err
		}

	case s.IsObject() && variantType == format.TypeObject:
		if err := castObject(v, s, builder, result); err != nil {
			return nil, err
		}

	case s.IsScalar():
		typed, ok, err := tryTypedShred(v, variantType, *s.Scalar, builder)
		if err != nil {
			return nil, err
		}
		if ok {
			result.AddScalar(typed)
		} else {
			raw, err := v.ValueBytes()
			if err != nil {
				return nil, err
			}
			result.AddVariantValue(raw)
		}

	default:
		raw, err := v.ValueBytes()
		if err != nil {
			return nil, err
		}
		result.AddVariantValue(raw)
	}

	return result, nil
}

func castArray(v variant.Variant, s schema.Schema, builder ResultBuilder, result Result) error {
	size, err := v.ArraySize()
	if err != nil {
		return err
	}
	elements := make([]Result, 0, size)
	for i := 0; i < size; i++ {
		elem, err := v.GetElementAtIndex(i)
		if err != nil {
			return err
		}
		shredded, err := CastShredded(elem, *s.ArrayElement, builder)
		if err != nil {
			return err
		}
		elements = append(elements, shredded)
	}
	result.AddArray(elements)
	return nil
}

// castObject splits v's fields between s.ObjectFields (typed, recursively
// shredded) and everything else (collected into a residual variant value
// sharing v's own metadata ids, via ShallowAppendVariant, exactly as the
// reference writer does to keep the untyped column's dictionary ids valid
// without a metadata remap).
func castObject(v variant.Variant, s schema.Schema, builder ResultBuilder, result Result) error {
	numFields := len(s.ObjectFields)
	shreddedValues := make([]Result, numFields)
	filled := make([]bool, numFields)

	residual, err := variant.NewBuilder(variant.WithAllowDuplicateKeys(false))
	if err != nil {
		return err
	}
	var fieldEntries []variant.FieldEntry
	start := residual.WritePos()
	numMatched := 0

	objSize, err := v.ObjectSize()
	if err != nil {
		return err
	}
	for i := 0; i < objSize; i++ {
		field, ok, err := v.GetFieldAtIndex(i)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		if idx, found := s.FieldIndex(field.Key); found {
			shredded, err := CastShredded(field.Value, s.ObjectFields[idx].Schema, builder)
			if err != nil {
				return err
			}
			shreddedValues[idx] = shredded
			filled[idx] = true
			numMatched++
			continue
		}

		dictID, err := v.GetDictionaryIDAtIndex(i)
		if err != nil {
			return err
		}
		fieldEntries = append(fieldEntries, variant.FieldEntry{
			Key:    field.Key,
			ID:     dictID,
			Offset: residual.WritePos() - start,
		})
		if err := residual.ShallowAppendVariant(field.Value); err != nil {
			return err
		}
	}

	if numMatched < numFields {
		for i := 0; i < numFields; i++ {
			if filled[i] {
				continue
			}
			shreddedValues[i] = builder.CreateEmpty(s.ObjectFields[i].Schema)
			numMatched++
		}
	}
	if numMatched != numFields {
		return fmt.Errorf("%w: duplicate object field name", errs.ErrSchemaMismatch)
	}

	result.AddObject(shreddedValues)

	if residual.WritePos() != start {
		if err := residual.FinishObject(start, fieldEntries); err != nil {
			return err
		}
		result.AddVariantValue(residual.ValueWithoutMetadata())
	}
	return nil
}

// tryTypedShred attempts to cast v (of logical type variantType) into
// target, returning ok=false (not an error) whenever the source value
// simply doesn't fit the requested shredding type — that's the normal
// "send it to the residual column instead" outcome, not a malformed
// Variant.
func tryTypedShred(v variant.Variant, variantType format.Type, target schema.ScalarSchema, builder ResultBuilder) (any, bool, error) {
	switch variantType {
	case format.TypeLong:
		return tryTypedShredLong(v, target, builder)
	case format.TypeDecimal:
		return tryTypedShredDecimal(v, target, builder)
	case format.TypeBoolean:
		if target.Kind != schema.ScalarBoolean {
			return nil, false, nil
		}
		val, err := v.GetBoolean()
		return val, err == nil, err
	case format.TypeString:
		if target.Kind != schema.ScalarString {
			return nil, false, nil
		}
		val, err := v.GetString()
		return val, err == nil, err
	case format.TypeDouble:
		if target.Kind != schema.ScalarDouble {
			return nil, false, nil
		}
		val, err := v.GetDouble()
		return val, err == nil, err
	case format.TypeDate:
		if target.Kind != schema.ScalarDate {
			return nil, false, nil
		}
		val, err := v.GetLong()
		return val, err == nil, err
	case format.TypeTimestamp:
		if target.Kind != schema.ScalarTimestamp {
			return nil, false, nil
		}
		val, err := v.GetLong()
		return val, err == nil, err
	case format.TypeTimestampNTZ:
		if target.Kind != schema.ScalarTimestampNTZ {
			return nil, false, nil
		}
		val, err := v.GetLong()
		return val, err == nil, err
	case format.TypeFloat:
		if target.Kind != schema.ScalarFloat {
			return nil, false, nil
		}
		val, err := v.GetFloat()
		return val, err == nil, err
	case format.TypeBinary:
		if target.Kind != schema.ScalarBinary {
			return nil, false, nil
		}
		val, err := v.GetBinary()
		return val, err == nil, err
	case format.TypeUUID:
		if target.Kind != schema.ScalarUUID {
			return nil, false, nil
		}
		val, err := v.GetUUID()
		return val, err == nil, err
	default:
		return nil, false, nil
	}
}

func tryTypedShredLong(v variant.Variant, target schema.ScalarSchema, builder ResultBuilder) (any, bool, error) {
	switch target.Kind {
	case schema.ScalarIntegral:
		value, err := v.GetLong()
		if err != nil {
			return nil, false, err
		}
		if fitsIntegralSize(value, target.Size) {
			return value, true, nil
		}
		return nil, false, nil

	case schema.ScalarDecimal:
		if !builder.AllowNumericScaleChanges() {
			return nil, false, nil
		}
		value, err := v.GetLong()
		if err != nil {
			return nil, false, err
		}
		// A LONG always has scale 0, so rescaling up to target.Scale is
		// always exact; only the resulting precision can fail to fit.
		scaled, ok := decimal.FromInt64(value).Rescale(uint8(target.Scale))
		if !ok || scaled.Precision() > target.Precision {
			return nil, false, nil
		}
		return scaled, true, nil

	default:
		return nil, false, nil
	}
}

func tryTypedShredDecimal(v variant.Variant, target schema.ScalarSchema, builder ResultBuilder) (any, bool, error) {
	switch target.Kind {
	case schema.ScalarDecimal:
		value, err := v.GetDecimalWithOriginalScale()
		if err != nil {
			return nil, false, err
		}
		if value.Precision() <= target.Precision && int(value.Scale()) == target.Scale {
			return value, true, nil
		}
		if builder.AllowNumericScaleChanges() {
			scaled, ok := value.Rescale(uint8(target.Scale))
			if ok && scaled.Precision() <= target.Precision {
				return scaled, true, nil
			}
		}
		return nil, false, nil

	case schema.ScalarIntegral:
		if !builder.AllowNumericScaleChanges() {
			return nil, false, nil
		}
		value, err := v.GetDecimal()
		if err != nil {
			return nil, false, err
		}
		intVal, exact := value.Int64()
		if !exact {
			return nil, false, nil
		}
		if fitsIntegralSize(intVal, target.Size) {
			return intVal, true, nil
		}
		return nil, false, nil

	default:
		return nil, false, nil
	}
}

func fitsIntegralSize(value int64, size schema.IntegralSize) bool {
	switch size {
	case schema.IntegralByte:
		return value >= -128 && value <= 127
	case schema.IntegralShort:
		return value >= -32768 && value <= 32767
	case schema.IntegralInt:
		return value >= -2147483648 && value <= 2147483647
	case schema.IntegralLong:
		return true
	default:
		return false
	}
}
