package variant

import (
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/shredpack/variant/decimal"
	"github.com/shredpack/variant/errs"
	"github.com/shredpack/variant/format"
	"github.com/stretchr/testify/require"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder()
	require.NoError(t, err)
	return b
}

func TestBuilder_Scalars_RoundTrip(t *testing.T) {
	t.Run("null", func(t *testing.T) {
		b := newTestBuilder(t)
		require.NoError(t, b.AppendNull())
		v, err := b.Result()
		require.NoError(t, err)
		typ, err := v.Type()
		require.NoError(t, err)
		require.Equal(t, format.TypeNull, typ)
	})

	t.Run("boolean", func(t *testing.T) {
		b := newTestBuilder(t)
		require.NoError(t, b.AppendBoolean(true))
		v, err := b.Result()
		require.NoError(t, err)
		got, err := v.GetBoolean()
		require.NoError(t, err)
		require.True(t, got)
	})

	t.Run("long narrows to the smallest width", func(t *testing.T) {
		cases := []int64{0, 100, -100, 1000, -40000, 1 << 30, -(1 << 40)}
		for _, n := range cases {
			b := newTestBuilder(t)
			require.NoError(t, b.AppendLong(n))
			v, err := b.Result()
			require.NoError(t, err)
			got, err := v.GetLong()
			require.NoError(t, err)
			require.Equal(t, n, got, "n=%d", n)
		}
	})

	t.Run("double", func(t *testing.T) {
		b := newTestBuilder(t)
		require.NoError(t, b.AppendDouble(3.5))
		v, err := b.Result()
		require.NoError(t, err)
		got, err := v.GetDouble()
		require.NoError(t, err)
		require.Equal(t, 3.5, got)
	})

	t.Run("float", func(t *testing.T) {
		b := newTestBuilder(t)
		require.NoError(t, b.AppendFloat(1.25))
		v, err := b.Result()
		require.NoError(t, err)
		got, err := v.GetFloat()
		require.NoError(t, err)
		require.Equal(t, float32(1.25), got)
	})

	t.Run("short string", func(t *testing.T) {
		b := newTestBuilder(t)
		require.NoError(t, b.AppendString("hi"))
		v, err := b.Result()
		require.NoError(t, err)
		got, err := v.GetString()
		require.NoError(t, err)
		require.Equal(t, "hi", got)
	})

	t.Run("long string", func(t *testing.T) {
		b := newTestBuilder(t)
		long := make([]byte, format.MaxShortStringLen+10)
		for i := range long {
			long[i] = 'a'
		}
		require.NoError(t, b.AppendString(string(long)))
		v, err := b.Result()
		require.NoError(t, err)
		got, err := v.GetString()
		require.NoError(t, err)
		require.Equal(t, string(long), got)
	})

	t.Run("binary", func(t *testing.T) {
		b := newTestBuilder(t)
		require.NoError(t, b.AppendBinary([]byte{1, 2, 3}))
		v, err := b.Result()
		require.NoError(t, err)
		got, err := v.GetBinary()
		require.NoError(t, err)
		require.Equal(t, []byte{1, 2, 3}, got)
	})

	t.Run("uuid", func(t *testing.T) {
		b := newTestBuilder(t)
		id := uuid.New()
		require.NoError(t, b.AppendUUID(id))
		v, err := b.Result()
		require.NoError(t, err)
		got, err := v.GetUUID()
		require.NoError(t, err)
		require.Equal(t, id, got)
	})

	t.Run("date", func(t *testing.T) {
		b := newTestBuilder(t)
		require.NoError(t, b.AppendDate(19723))
		v, err := b.Result()
		require.NoError(t, err)
		got, err := v.GetLong()
		require.NoError(t, err)
		require.Equal(t, int64(19723), got)
	})

	t.Run("timestamp and timestamp_ntz", func(t *testing.T) {
		b := newTestBuilder(t)
		require.NoError(t, b.AppendTimestamp(1700000000000000))
		v, err := b.Result()
		require.NoError(t, err)
		got, err := v.GetLong()
		require.NoError(t, err)
		require.Equal(t, int64(1700000000000000), got)

		b2 := newTestBuilder(t)
		require.NoError(t, b2.AppendTimestampNTZ(1700000000000000))
		v2, err := b2.Result()
		require.NoError(t, err)
		got2, err := v2.GetLong()
		require.NoError(t, err)
		require.Equal(t, int64(1700000000000000), got2)
	})
}

func TestBuilder_Decimal_RoundTrip(t *testing.T) {
	t.Run("fits DECIMAL4", func(t *testing.T) {
		b := newTestBuilder(t)
		d := decimal.New(big.NewInt(1234), 2)
		require.NoError(t, b.AppendDecimal(d))
		v, err := b.Result()
		require.NoError(t, err)
		got, err := v.GetDecimalWithOriginalScale()
		require.NoError(t, err)
		require.Equal(t, "12.34", got.String())
	})

	t.Run("fits DECIMAL16", func(t *testing.T) {
		b := newTestBuilder(t)
		big38, ok := new(big.Int).SetString("12345678901234567890123456789012345", 10)
		require.True(t, ok)
		d := decimal.New(big38, 5)
		require.NoError(t, b.AppendDecimal(d))
		v, err := b.Result()
		require.NoError(t, err)
		got, err := v.GetDecimalWithOriginalScale()
		require.NoError(t, err)
		require.Equal(t, d.String(), got.String())
	})
}

func TestBuilder_Object_RoundTrip(t *testing.T) {
	b := newTestBuilder(t)
	start := b.WritePos()

	fields := []FieldEntry{
		{Key: "b", ID: b.AddKey("b"), Offset: 0},
	}
	require.NoError(t, b.AppendLong(2))

	start2 := b.WritePos()
	fields = append(fields, FieldEntry{Key: "a", ID: b.AddKey("a"), Offset: start2 - start})
	require.NoError(t, b.AppendLong(1))

	require.NoError(t, b.FinishObject(start, fields))
	v, err := b.Result()
	require.NoError(t, err)

	typ, err := v.Type()
	require.NoError(t, err)
	require.Equal(t, format.TypeObject, typ)

	size, err := v.ObjectSize()
	require.NoError(t, err)
	require.Equal(t, 2, size)

	// fields come back sorted by key
	f0, ok, err := v.GetFieldAtIndex(0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", f0.Key)
	got, err := f0.Value.GetLong()
	require.NoError(t, err)
	require.Equal(t, int64(1), got)

	found, ok, err := v.GetFieldByKey("b")
	require.NoError(t, err)
	require.True(t, ok)
	got2, err := found.GetLong()
	require.NoError(t, err)
	require.Equal(t, int64(2), got2)

	_, ok, err = v.GetFieldByKey("missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBuilder_FinishObject_DuplicateKey(t *testing.T) {
	t.Run("strict mode rejects a duplicate key", func(t *testing.T) {
		b := newTestBuilder(t)
		start := b.WritePos()
		fields := []FieldEntry{{Key: "a", ID: b.AddKey("a"), Offset: 0}}
		require.NoError(t, b.AppendLong(1))
		fields = append(fields, FieldEntry{Key: "a", ID: b.AddKey("a"), Offset: b.WritePos() - start})
		require.NoError(t, b.AppendLong(2))

		err := b.FinishObject(start, fields)
		require.ErrorIs(t, err, errs.ErrDuplicateKey)
	})

	t.Run("lenient mode keeps the last writer", func(t *testing.T) {
		b, err := NewBuilder(WithAllowDuplicateKeys(true))
		require.NoError(t, err)
		start := b.WritePos()
		fields := []FieldEntry{{Key: "a", ID: b.AddKey("a"), Offset: 0}}
		require.NoError(t, b.AppendLong(1))
		fields = append(fields, FieldEntry{Key: "a", ID: b.AddKey("a"), Offset: b.WritePos() - start})
		require.NoError(t, b.AppendLong(2))

		require.NoError(t, b.FinishObject(start, fields))
		v, err := b.Result()
		require.NoError(t, err)

		size, err := v.ObjectSize()
		require.NoError(t, err)
		require.Equal(t, 1, size)

		field, ok, err := v.GetFieldAtIndex(0)
		require.NoError(t, err)
		require.True(t, ok)
		got, err := field.Value.GetLong()
		require.NoError(t, err)
		require.Equal(t, int64(2), got)
	})
}

func TestBuilder_Array_RoundTrip(t *testing.T) {
	b := newTestBuilder(t)
	start := b.WritePos()
	var offsets []int

	for _, n := range []int64{10, 20, 30} {
		offsets = append(offsets, b.WritePos()-start)
		require.NoError(t, b.AppendLong(n))
	}
	require.NoError(t, b.FinishArray(start, offsets))

	v, err := b.Result()
	require.NoError(t, err)

	typ, err := v.Type()
	require.NoError(t, err)
	require.Equal(t, format.TypeArray, typ)

	size, err := v.ArraySize()
	require.NoError(t, err)
	require.Equal(t, 3, size)

	for i, want := range []int64{10, 20, 30} {
		elem, err := v.GetElementAtIndex(i)
		require.NoError(t, err)
		got, err := elem.GetLong()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestBuilder_AppendVariant_RemapsDictionaryIDs(t *testing.T) {
	src := newTestBuilder(t)
	start := src.WritePos()
	fields := []FieldEntry{{Key: "x", ID: src.AddKey("x"), Offset: 0}}
	require.NoError(t, src.AppendLong(7))
	require.NoError(t, src.FinishObject(start, fields))
	srcVariant, err := src.Result()
	require.NoError(t, err)

	dst := newTestBuilder(t)
	dst.AddKey("unrelated") // force dst's dictionary ids to differ from src's
	require.NoError(t, dst.AppendVariant(srcVariant))
	dstVariant, err := dst.Result()
	require.NoError(t, err)

	field, ok, err := dstVariant.GetFieldByKey("x")
	require.NoError(t, err)
	require.True(t, ok)
	got, err := field.GetLong()
	require.NoError(t, err)
	require.Equal(t, int64(7), got)
}

func TestBuilder_ShallowAppendVariant_PreservesBytesVerbatim(t *testing.T) {
	b := newTestBuilder(t)
	require.NoError(t, b.AppendLong(99))
	v, err := b.Result()
	require.NoError(t, err)
	raw, err := v.ValueBytes()
	require.NoError(t, err)

	dst := newTestBuilder(t)
	require.NoError(t, dst.ShallowAppendVariant(v))
	require.Equal(t, raw, dst.ValueWithoutMetadata())
}

func TestBuilder_Reset(t *testing.T) {
	b := newTestBuilder(t)
	require.NoError(t, b.AppendLong(1))
	b.AddKey("k")
	require.Greater(t, b.WritePos(), 0)

	b.Reset()
	require.Equal(t, 0, b.WritePos())
	require.NoError(t, b.AppendBoolean(true))
	v, err := b.Result()
	require.NoError(t, err)
	got, err := v.GetBoolean()
	require.NoError(t, err)
	require.True(t, got)
}

func TestWithInitialCapacity_IgnoresNonPositive(t *testing.T) {
	b, err := NewBuilder(WithInitialCapacity(0))
	require.NoError(t, err)
	require.NoError(t, b.AppendNull())
	_, err = b.Result()
	require.NoError(t, err)
}
