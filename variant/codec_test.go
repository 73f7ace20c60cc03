package variant

import (
	"testing"

	"github.com/shredpack/variant/errs"
	"github.com/shredpack/variant/format"
	"github.com/stretchr/testify/require"
)

func TestCheckIndex(t *testing.T) {
	require.NoError(t, checkIndex(0, 1))
	require.ErrorIs(t, checkIndex(-1, 1), errs.ErrMalformedVariant)
	require.ErrorIs(t, checkIndex(1, 1), errs.ErrMalformedVariant)
}

func TestWriteReadLong_RoundTrip(t *testing.T) {
	cases := []struct {
		value    int64
		numBytes int
	}{
		{0, 1},
		{-1, 1},
		{127, 1},
		{-128, 1},
		{32000, 2},
		{-32000, 2},
		{1 << 20, 4},
		{-(1 << 20), 4},
		{1 << 40, 8},
		{-(1 << 40), 8},
	}

	for _, c := range cases {
		buf := make([]byte, c.numBytes)
		writeLong(buf, 0, c.value, c.numBytes)
		got, err := readLong(buf, 0, c.numBytes)
		require.NoError(t, err)
		require.Equal(t, c.value, got, "value=%d width=%d", c.value, c.numBytes)
	}
}

func TestReadUnsigned(t *testing.T) {
	buf := []byte{0xFF, 0x00, 0x01}
	v, err := readUnsigned(buf, 0, 3)
	require.NoError(t, err)
	require.Equal(t, uint32(0x000100FF), v)

	t.Run("out of range", func(t *testing.T) {
		_, err := readUnsigned(buf, 1, 10)
		require.ErrorIs(t, err, errs.ErrMalformedVariant)
	})
}

func TestPrimitiveHeader_RoundTrip(t *testing.T) {
	h := primitiveHeader(format.PrimitiveInt4)
	require.Equal(t, format.BasicPrimitive, getBasicType([]byte{h}, 0))
	info, err := getTypeInfo([]byte{h}, 0)
	require.NoError(t, err)
	require.Equal(t, int(format.PrimitiveInt4), info)
}

func TestShortStrHeader(t *testing.T) {
	h := shortStrHeader(5)
	require.Equal(t, format.BasicShortStr, getBasicType([]byte{h}, 0))
	info, err := getTypeInfo([]byte{h}, 0)
	require.NoError(t, err)
	require.Equal(t, 5, info)
}

func TestObjectArrayHeader_RoundTrip(t *testing.T) {
	t.Run("object header encodes widths", func(t *testing.T) {
		h := objectHeader(false, 2, 3)
		buf := []byte{h, 0, 0, 0} // size byte placeholder
		info, err := parseObjectHeader(buf, 0)
		require.NoError(t, err)
		require.Equal(t, 2, info.idSize)
		require.Equal(t, 3, info.offsetSize)
	})

	t.Run("array header encodes offset width", func(t *testing.T) {
		h := arrayHeader(true, 4)
		buf := append([]byte{h}, make([]byte, format.U32Size)...)
		info, err := parseArrayHeader(buf, 0)
		require.NoError(t, err)
		require.Equal(t, 4, info.offsetSize)
	})
}

func TestGetType(t *testing.T) {
	t.Run("unknown primitive type_info is rejected as an unknown primitive", func(t *testing.T) {
		h := byte(63)<<format.BasicTypeBits | byte(format.BasicPrimitive)
		_, err := getType([]byte{h}, 0)
		require.ErrorIs(t, err, errs.ErrUnknownPrimitiveType)
	})

	t.Run("short string maps to STRING", func(t *testing.T) {
		typ, err := getType([]byte{shortStrHeader(0)}, 0)
		require.NoError(t, err)
		require.Equal(t, format.TypeString, typ)
	})
}

func TestValueSize_Primitives(t *testing.T) {
	buf := []byte{primitiveHeader(format.PrimitiveNull)}
	size, err := valueSize(buf, 0)
	require.NoError(t, err)
	require.Equal(t, 1, size)
}
