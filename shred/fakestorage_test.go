package shred

import (
	"github.com/shredpack/variant/decimal"
	"github.com/shredpack/variant/schema"
)

// testResult is an in-memory Result/ResultBuilder used only by this
// package's tests: it records exactly what CastShredded writes, and
// toRow() below turns that record into a Row tree Rebuild can consume,
// letting a single test exercise both directions without a real
// columnar storage engine.
type testResult struct {
	s            schema.Schema
	hasMeta      bool
	metadata     []byte
	hasTyped     bool
	scalar       any
	fields       []Result
	elements     []Result
	hasVariant   bool
	variantBytes []byte
}

func (r *testResult) AddMetadata(metadata []byte) { r.hasMeta = true; r.metadata = metadata }
func (r *testResult) AddScalar(value any)          { r.hasTyped = true; r.scalar = value }
func (r *testResult) AddVariantValue(value []byte) { r.hasVariant = true; r.variantBytes = value }
func (r *testResult) AddObject(fields []Result)    { r.hasTyped = true; r.fields = fields }
func (r *testResult) AddArray(elements []Result)   { r.hasTyped = true; r.elements = elements }

type testResultBuilder struct {
	allowScaleChanges bool
}

func (b *testResultBuilder) CreateEmpty(s schema.Schema) Result { return &testResult{s: s} }
func (b *testResultBuilder) AllowNumericScaleChanges() bool     { return b.allowScaleChanges }

type testValue struct {
	null bool
	raw  any
	obj  *testRow
	arr  *testArrayRow
}

type testRow struct {
	cols []testValue
}

func (r *testRow) IsNullAt(i int) bool { return i < 0 || i >= len(r.cols) || r.cols[i].null }
func (r *testRow) GetBoolean(i int) bool { return r.cols[i].raw.(bool) }
func (r *testRow) GetByte(i int) int8 { return r.cols[i].raw.(int8) }
func (r *testRow) GetShort(i int) int16 { return r.cols[i].raw.(int16) }
func (r *testRow) GetInt(i int) int32 { return r.cols[i].raw.(int32) }
func (r *testRow) GetLong(i int) int64 { return r.cols[i].raw.(int64) }
func (r *testRow) GetFloat(i int) float32 { return r.cols[i].raw.(float32) }
func (r *testRow) GetDouble(i int) float64 { return r.cols[i].raw.(float64) }
func (r *testRow) GetString(i int) string { return r.cols[i].raw.(string) }
func (r *testRow) GetBinary(i int) []byte { return r.cols[i].raw.([]byte) }
func (r *testRow) GetUUID(i int) [16]byte { return r.cols[i].raw.([16]byte) }
func (r *testRow) GetDecimal(i, precision, scale int) decimal.Decimal {
	return r.cols[i].raw.(decimal.Decimal)
}
func (r *testRow) GetStruct(i, numFields int) Row { return r.cols[i].obj }
func (r *testRow) GetArray(i int) ArrayRow { return r.cols[i].arr }

type testArrayRow struct {
	elems []*testRow
}

func (a *testArrayRow) NumElements() int   { return len(a.elems) }
func (a *testArrayRow) Element(i int) Row  { return a.elems[i] }

// toRow converts a testResult tree (as produced by CastShredded against a
// testResultBuilder) into the Row tree Rebuild expects, following the
// schema's own TypedIdx/VariantIdx/TopLevelMetadataIdx column assignment.
func toRow(res *testResult) *testRow {
	s := res.s
	numCols := 2
	if s.TopLevelMetadataIdx >= 0 {
		numCols = 3
	}
	cols := make([]testValue, numCols)

	switch {
	case s.TypedIdx < 0:
		// unshredded schema: no typed column at all
	case !res.hasTyped:
		cols[s.TypedIdx] = testValue{null: true}
	case s.IsScalar():
		cols[s.TypedIdx] = testValue{raw: res.scalar}
	case s.IsObject():
		fieldCols := make([]testValue, len(s.ObjectFields))
		for i, f := range res.fields {
			fieldCols[i] = testValue{obj: toRow(f.(*testResult))}
		}
		cols[s.TypedIdx] = testValue{obj: &testRow{cols: fieldCols}}
	case s.IsArray():
		elems := make([]*testRow, len(res.elements))
		for i, e := range res.elements {
			elems[i] = toRow(e.(*testResult))
		}
		cols[s.TypedIdx] = testValue{arr: &testArrayRow{elems: elems}}
	}

	if s.VariantIdx >= 0 {
		if res.hasVariant {
			cols[s.VariantIdx] = testValue{raw: res.variantBytes}
		} else {
			cols[s.VariantIdx] = testValue{null: true}
		}
	}

	if numCols == 3 {
		if res.hasMeta {
			cols[s.TopLevelMetadataIdx] = testValue{raw: res.metadata}
		} else {
			cols[s.TopLevelMetadataIdx] = testValue{null: true}
		}
	}

	return &testRow{cols: cols}
}

func rootScalarSchema(scalar schema.ScalarSchema) schema.Schema {
	return schema.NewScalar(0, 1, 2, scalar)
}

func childScalarSchema(scalar schema.ScalarSchema) schema.Schema {
	return schema.NewScalar(0, 1, -1, scalar)
}

func rootObjectSchema(fields []schema.ObjectField) schema.Schema {
	return schema.NewObject(0, 1, 2, fields)
}

func childObjectSchema(fields []schema.ObjectField) schema.Schema {
	return schema.NewObject(0, 1, -1, fields)
}

func rootArraySchema(elem schema.Schema) schema.Schema {
	return schema.NewArray(0, 1, 2, elem)
}

func childArraySchema(elem schema.Schema) schema.Schema {
	return schema.NewArray(0, 1, -1, elem)
}

func rootUnshreddedSchema() schema.Schema {
	return schema.NewUnshredded(1, 2)
}
