package shred

import (
	"testing"

	"github.com/shredpack/variant/jsonvalue"
	"github.com/shredpack/variant/schema"
	"github.com/shredpack/variant/variant"
	"github.com/stretchr/testify/require"
)

func mustParseVariant(t *testing.T, doc string) variant.Variant {
	t.Helper()
	val, err := jsonvalue.Parse([]byte(doc))
	require.NoError(t, err)
	b, err := variant.NewBuilder()
	require.NoError(t, err)
	require.NoError(t, variant.BuildFromJSON(b, val))
	v, err := b.Result()
	require.NoError(t, err)
	return v
}

func TestCastShredded_ExactTypeScalar(t *testing.T) {
	v := mustParseVariant(t, `"hello"`)
	s := rootScalarSchema(schema.ScalarSchema{Kind: schema.ScalarString})

	result, err := CastShredded(v, s, &testResultBuilder{})
	require.NoError(t, err)

	r := result.(*testResult)
	require.True(t, r.hasTyped)
	require.Equal(t, "hello", r.scalar)
	require.True(t, r.hasMeta)
}

func TestCastShredded_ScalarFallsBackToResidual(t *testing.T) {
	v := mustParseVariant(t, `"hello"`)
	s := rootScalarSchema(schema.ScalarSchema{Kind: schema.ScalarDouble})

	result, err := CastShredded(v, s, &testResultBuilder{})
	require.NoError(t, err)

	r := result.(*testResult)
	require.False(t, r.hasTyped)
	require.True(t, r.hasVariant)
	require.NotEmpty(t, r.variantBytes)
}

func TestCastShredded_LongToIntegral(t *testing.T) {
	t.Run("fits the target width", func(t *testing.T) {
		v := mustParseVariant(t, `100`)
		s := rootScalarSchema(schema.ScalarSchema{Kind: schema.ScalarIntegral, Size: schema.IntegralByte})

		result, err := CastShredded(v, s, &testResultBuilder{})
		require.NoError(t, err)
		r := result.(*testResult)
		require.True(t, r.hasTyped)
		require.Equal(t, int64(100), r.scalar)
	})

	t.Run("overflows the target width, falls back to residual", func(t *testing.T) {
		v := mustParseVariant(t, `100000`)
		s := rootScalarSchema(schema.ScalarSchema{Kind: schema.ScalarIntegral, Size: schema.IntegralByte})

		result, err := CastShredded(v, s, &testResultBuilder{})
		require.NoError(t, err)
		r := result.(*testResult)
		require.False(t, r.hasTyped)
		require.True(t, r.hasVariant)
	})
}

func TestCastShredded_LongToDecimal(t *testing.T) {
	t.Run("refused without AllowNumericScaleChanges", func(t *testing.T) {
		v := mustParseVariant(t, `7`)
		s := rootScalarSchema(schema.ScalarSchema{Kind: schema.ScalarDecimal, Precision: 5, Scale: 2})

		result, err := CastShredded(v, s, &testResultBuilder{allowScaleChanges: false})
		require.NoError(t, err)
		r := result.(*testResult)
		require.False(t, r.hasTyped)
		require.True(t, r.hasVariant)
	})

	t.Run("rescales when allowed", func(t *testing.T) {
		v := mustParseVariant(t, `7`)
		s := rootScalarSchema(schema.ScalarSchema{Kind: schema.ScalarDecimal, Precision: 5, Scale: 2})

		result, err := CastShredded(v, s, &testResultBuilder{allowScaleChanges: true})
		require.NoError(t, err)
		r := result.(*testResult)
		require.True(t, r.hasTyped)
	})
}

func TestCastShredded_Array(t *testing.T) {
	v := mustParseVariant(t, `[1, 2, 3]`)
	elem := childScalarSchema(schema.ScalarSchema{Kind: schema.ScalarIntegral, Size: schema.IntegralLong})
	s := rootArraySchema(elem)

	result, err := CastShredded(v, s, &testResultBuilder{})
	require.NoError(t, err)
	r := result.(*testResult)
	require.Len(t, r.elements, 3)
	for i, want := range []int64{1, 2, 3} {
		elemResult := r.elements[i].(*testResult)
		require.Equal(t, want, elemResult.scalar)
	}
}

func TestCastShredded_Object_TypedAndResidual(t *testing.T) {
	v := mustParseVariant(t, `{"a": 1, "b": "x", "c": true}`)
	fields := []schema.ObjectField{
		{Name: "a", Schema: childScalarSchema(schema.ScalarSchema{Kind: schema.ScalarIntegral, Size: schema.IntegralLong})},
		{Name: "b", Schema: childScalarSchema(schema.ScalarSchema{Kind: schema.ScalarString})},
	}
	s := rootObjectSchema(fields)

	result, err := CastShredded(v, s, &testResultBuilder{})
	require.NoError(t, err)
	r := result.(*testResult)
	require.Len(t, r.fields, 2)

	aField := r.fields[0].(*testResult)
	require.Equal(t, int64(1), aField.scalar)

	bField := r.fields[1].(*testResult)
	require.Equal(t, "x", bField.scalar)

	// field "c" wasn't in the schema, so it lands in the object's own
	// residual variant column
	require.True(t, r.hasVariant)
	residual, err := variant.New(r.variantBytes, v.MetadataBytes())
	require.NoError(t, err)
	cField, ok, err := residual.GetFieldByKey("c")
	require.NoError(t, err)
	require.True(t, ok)
	cVal, err := cField.GetBoolean()
	require.NoError(t, err)
	require.True(t, cVal)
}

func TestCastShredded_Object_MissingTypedFieldBecomesEmpty(t *testing.T) {
	v := mustParseVariant(t, `{"a": 1}`)
	fields := []schema.ObjectField{
		{Name: "a", Schema: childScalarSchema(schema.ScalarSchema{Kind: schema.ScalarIntegral, Size: schema.IntegralLong})},
		{Name: "b", Schema: childScalarSchema(schema.ScalarSchema{Kind: schema.ScalarString})},
	}
	s := rootObjectSchema(fields)

	result, err := CastShredded(v, s, &testResultBuilder{})
	require.NoError(t, err)
	r := result.(*testResult)
	require.Len(t, r.fields, 2)

	bField := r.fields[1].(*testResult)
	require.False(t, bField.hasTyped)
	require.False(t, bField.hasVariant)
}

func TestCastShredded_Object_DuplicateFieldNameErrors(t *testing.T) {
	b, err := variant.NewBuilder(variant.WithAllowDuplicateKeys(true))
	require.NoError(t, err)
	start := b.WritePos()
	fields := []variant.FieldEntry{{Key: "a", ID: b.AddKey("a"), Offset: 0}}
	require.NoError(t, b.AppendLong(1))
	fields = append(fields, variant.FieldEntry{Key: "a", ID: b.AddKey("a"), Offset: b.WritePos() - start})
	require.NoError(t, b.AppendLong(2))
	require.NoError(t, b.FinishObject(start, fields))
	v, err := b.Result()
	require.NoError(t, err)

	s := rootObjectSchema([]schema.ObjectField{
		{Name: "a", Schema: childScalarSchema(schema.ScalarSchema{Kind: schema.ScalarIntegral, Size: schema.IntegralLong})},
	})

	_, err = CastShredded(v, s, &testResultBuilder{})
	require.Error(t, err)
}
