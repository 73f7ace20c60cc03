package variant

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/shredpack/variant/decimal"
	"github.com/shredpack/variant/errs"
	"github.com/shredpack/variant/format"
	"github.com/shredpack/variant/internal/dictionary"
	"github.com/shredpack/variant/internal/options"
	"github.com/shredpack/variant/internal/pool"
)

// BuilderOption configures a Builder at construction time.
type BuilderOption = options.Option[*builderConfig]

type builderConfig struct {
	allowDuplicateKeys bool
	initialCapacity    int
}

// WithAllowDuplicateKeys controls how FinishObject (and AppendVariant's
// recursive object handling) resolves two fields sharing a key: when true,
// the field written last (the one with the greatest write offset) wins and
// the others are discarded; when false, a duplicate key is a build error.
func WithAllowDuplicateKeys(allow bool) BuilderOption {
	return options.NoError(func(c *builderConfig) { c.allowDuplicateKeys = allow })
}

// WithInitialCapacity sets the Builder's initial write buffer capacity,
// overriding the default. Use this when the approximate output size is
// known in advance to avoid the first few growth reallocations.
func WithInitialCapacity(n int) BuilderOption {
	return options.NoError(func(c *builderConfig) {
		if n > 0 {
			c.initialCapacity = n
		}
	})
}

// Builder accumulates Variant value bytes and a key dictionary
// incrementally, then emits an immutable Variant via Result. A Builder must
// not be reused concurrently; Result already leaves it ready to build the
// next Variant, and Reset is only needed to abandon a partially-built value.
type Builder struct {
	storage            *pool.ByteBuffer
	buf                []byte // alias of storage.Bytes(), refreshed by checkCapacity
	writePos           int
	allowDuplicateKeys bool
	interner           *dictionary.Interner
}

// NewBuilder creates an empty Builder.
func NewBuilder(opts ...BuilderOption) (*Builder, error) {
	cfg := &builderConfig{initialCapacity: 128}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	storage := pool.Get()
	if err := storage.Grow(cfg.initialCapacity); err != nil {
		return nil, err
	}
	storage.SetLength(cfg.initialCapacity)

	b := &Builder{
		storage:            storage,
		buf:                storage.Bytes(),
		allowDuplicateKeys: cfg.allowDuplicateKeys,
		interner:           dictionary.New(),
	}
	return b, nil
}

// Reset clears b for reuse, retaining its allocated buffer.
func (b *Builder) Reset() {
	b.writePos = 0
	b.storage.Reset()
	b.buf = b.storage.Bytes()
	b.interner.Reset()
}

// WritePos returns the number of value bytes written so far.
func (b *Builder) WritePos() int { return b.writePos }

// AddKey interns key into b's dictionary, returning its id. Keys are
// assigned ids in first-seen order; calling AddKey twice with the same key
// returns the same id both times.
func (b *Builder) AddKey(key string) int {
	id, _ := b.interner.Intern(key)
	return id
}

// checkCapacity ensures the write buffer can hold writePos+additional
// bytes, growing it through the pooled backing buffer's growth policy
// (double while small, then by 25% thereafter, hard-capped at
// format.SizeLimit) if necessary.
func (b *Builder) checkCapacity(additional int) error {
	required := b.writePos + additional
	if required <= len(b.buf) {
		return nil
	}
	if err := b.storage.Grow(required - b.storage.Len()); err != nil {
		return err
	}
	b.storage.SetLength(required)
	b.buf = b.storage.Bytes()
	return nil
}

// AppendNull appends a NULL value.
func (b *Builder) AppendNull() error {
	if err := b.checkCapacity(1); err != nil {
		return err
	}
	b.buf[b.writePos] = primitiveHeader(format.PrimitiveNull)
	b.writePos++
	return nil
}

// AppendBoolean appends a BOOLEAN value.
func (b *Builder) AppendBoolean(v bool) error {
	if err := b.checkCapacity(1); err != nil {
		return err
	}
	t := format.PrimitiveFalse
	if v {
		t = format.PrimitiveTrue
	}
	b.buf[b.writePos] = primitiveHeader(t)
	b.writePos++
	return nil
}

// AppendLong appends an integer value, picking the narrowest of
// INT1/INT2/INT4/INT8 that can represent it exactly.
func (b *Builder) AppendLong(v int64) error {
	if err := b.checkCapacity(1 + 8); err != nil {
		return err
	}
	switch {
	case v >= -128 && v < 128:
		b.buf[b.writePos] = primitiveHeader(format.PrimitiveInt1)
		b.writePos++
		writeLong(b.buf, b.writePos, v, 1)
		b.writePos++
	case v >= -32768 && v < 32768:
		b.buf[b.writePos] = primitiveHeader(format.PrimitiveInt2)
		b.writePos++
		writeLong(b.buf, b.writePos, v, 2)
		b.writePos += 2
	case v >= -2147483648 && v < 2147483648:
		b.buf[b.writePos] = primitiveHeader(format.PrimitiveInt4)
		b.writePos++
		writeLong(b.buf, b.writePos, v, 4)
		b.writePos += 4
	default:
		b.buf[b.writePos] = primitiveHeader(format.PrimitiveInt8)
		b.writePos++
		writeLong(b.buf, b.writePos, v, 8)
		b.writePos += 8
	}
	return nil
}

// AppendDouble appends a DOUBLE value.
func (b *Builder) AppendDouble(v float64) error {
	if err := b.checkCapacity(1 + 8); err != nil {
		return err
	}
	b.buf[b.writePos] = primitiveHeader(format.PrimitiveDouble)
	b.writePos++
	writeLong(b.buf, b.writePos, int64(math.Float64bits(v)), 8)
	b.writePos += 8
	return nil
}

// AppendFloat appends a FLOAT value.
func (b *Builder) AppendFloat(v float32) error {
	if err := b.checkCapacity(1 + 4); err != nil {
		return err
	}
	b.buf[b.writePos] = primitiveHeader(format.PrimitiveFloat)
	b.writePos++
	writeLong(b.buf, b.writePos, int64(math.Float32bits(v)), 4)
	b.writePos += 4
	return nil
}

// AppendDecimal appends a decimal value, picking the narrowest of
// DECIMAL4/DECIMAL8/DECIMAL16 whose scale and precision can hold it.
func (b *Builder) AppendDecimal(d decimal.Decimal) error {
	if err := b.checkCapacity(2 + 16); err != nil {
		return err
	}
	scale := d.Scale()
	precision := d.Precision()

	switch {
	case int(scale) <= format.MaxDecimal4Precision && precision <= format.MaxDecimal4Precision:
		u, ok := d.UnscaledInt64()
		if !ok {
			return fmt.Errorf("%w: DECIMAL4 mantissa out of range", errs.ErrDecimalPrecisionExceeded)
		}
		b.buf[b.writePos] = primitiveHeader(format.PrimitiveDecimal4)
		b.writePos++
		b.buf[b.writePos] = scale
		b.writePos++
		writeLong(b.buf, b.writePos, u, 4)
		b.writePos += 4
	case int(scale) <= format.MaxDecimal8Precision && precision <= format.MaxDecimal8Precision:
		u, ok := d.UnscaledInt64()
		if !ok {
			return fmt.Errorf("%w: DECIMAL8 mantissa out of range", errs.ErrDecimalPrecisionExceeded)
		}
		b.buf[b.writePos] = primitiveHeader(format.PrimitiveDecimal8)
		b.writePos++
		b.buf[b.writePos] = scale
		b.writePos++
		writeLong(b.buf, b.writePos, u, 8)
		b.writePos += 8
	default:
		if int(scale) > format.MaxDecimal16Precision || precision > format.MaxDecimal16Precision {
			return fmt.Errorf("%w: exceeds DECIMAL16 bounds", errs.ErrDecimalPrecisionExceeded)
		}
		be, err := d.SignedBytes(16)
		if err != nil {
			return err
		}
		b.buf[b.writePos] = primitiveHeader(format.PrimitiveDecimal16)
		b.writePos++
		b.buf[b.writePos] = scale
		b.writePos++
		for i := 0; i < 16; i++ {
			b.buf[b.writePos+i] = be[15-i]
		}
		b.writePos += 16
	}
	return nil
}

// AppendDate appends a DATE value (days since the Unix epoch).
func (b *Builder) AppendDate(daysSinceEpoch int32) error {
	if err := b.checkCapacity(1 + 4); err != nil {
		return err
	}
	b.buf[b.writePos] = primitiveHeader(format.PrimitiveDate)
	b.writePos++
	writeLong(b.buf, b.writePos, int64(daysSinceEpoch), 4)
	b.writePos += 4
	return nil
}

// AppendTimestamp appends a TIMESTAMP value (microseconds since the Unix
// epoch, UTC).
func (b *Builder) AppendTimestamp(microsSinceEpoch int64) error {
	if err := b.checkCapacity(1 + 8); err != nil {
		return err
	}
	b.buf[b.writePos] = primitiveHeader(format.PrimitiveTimestamp)
	b.writePos++
	writeLong(b.buf, b.writePos, microsSinceEpoch, 8)
	b.writePos += 8
	return nil
}

// AppendTimestampNTZ appends a TIMESTAMP_NTZ value (microseconds since the
// Unix epoch, no time zone).
func (b *Builder) AppendTimestampNTZ(microsSinceEpoch int64) error {
	if err := b.checkCapacity(1 + 8); err != nil {
		return err
	}
	b.buf[b.writePos] = primitiveHeader(format.PrimitiveTimestampNTZ)
	b.writePos++
	writeLong(b.buf, b.writePos, microsSinceEpoch, 8)
	b.writePos += 8
	return nil
}

// AppendBinary appends a BINARY payload.
func (b *Builder) AppendBinary(data []byte) error {
	if err := b.checkCapacity(1 + format.U32Size + len(data)); err != nil {
		return err
	}
	b.buf[b.writePos] = primitiveHeader(format.PrimitiveBinary)
	b.writePos++
	writeLong(b.buf, b.writePos, int64(len(data)), format.U32Size)
	b.writePos += format.U32Size
	copy(b.buf[b.writePos:], data)
	b.writePos += len(data)
	return nil
}

// AppendString appends a STRING value, using the inline short-string form
// when it fits and a length-prefixed LONG_STR payload otherwise.
func (b *Builder) AppendString(s string) error {
	longStr := len(s) > format.MaxShortStringLen
	extra := 1
	if longStr {
		extra += format.U32Size
	}
	if err := b.checkCapacity(extra + len(s)); err != nil {
		return err
	}

	if longStr {
		b.buf[b.writePos] = primitiveHeader(format.PrimitiveLongStr)
		b.writePos++
		writeLong(b.buf, b.writePos, int64(len(s)), format.U32Size)
		b.writePos += format.U32Size
	} else {
		b.buf[b.writePos] = shortStrHeader(len(s))
		b.writePos++
	}
	copy(b.buf[b.writePos:], s)
	b.writePos += len(s)
	return nil
}

// AppendUUID appends a UUID value, stored big-endian.
func (b *Builder) AppendUUID(id uuid.UUID) error {
	if err := b.checkCapacity(1 + 16); err != nil {
		return err
	}
	b.buf[b.writePos] = primitiveHeader(format.PrimitiveUUID)
	b.writePos++
	copy(b.buf[b.writePos:b.writePos+16], id[:])
	b.writePos += 16
	return nil
}

// FieldEntry describes one field written into an object under
// construction: its key, the dictionary id assigned to that key, and its
// byte offset relative to the object's start position.
type FieldEntry struct {
	Key    string
	ID     int
	Offset int
}

// withOffset returns a copy of f with a new Offset.
func (f FieldEntry) withOffset(offset int) FieldEntry {
	return FieldEntry{Key: f.Key, ID: f.ID, Offset: offset}
}

// FinishObject closes out an object whose fields were written starting at
// byte position start, each described by an entry in fields (in the order
// their values were appended). It sorts fields by key, resolves duplicate
// keys according to the builder's AllowDuplicateKeys setting, and inserts
// the object header in front of the already-written field data.
func (b *Builder) FinishObject(start int, fields []FieldEntry) error {
	sortFieldsByKey(fields)

	maxID := 0
	for _, f := range fields {
		if f.ID > maxID {
			maxID = f.ID
		}
	}

	if b.allowDuplicateKeys {
		fields = b.dedupeFields(start, fields)
	} else {
		for i := 1; i < len(fields); i++ {
			if fields[i].Key == fields[i-1].Key {
				return fmt.Errorf("%w: %q", errs.ErrDuplicateKey, fields[i].Key)
			}
		}
	}

	size := len(fields)
	dataSize := b.writePos - start
	largeSize := size > 0xFF
	sizeBytes := 1
	if largeSize {
		sizeBytes = format.U32Size
	}
	idSize := format.IntegerWidth(maxID)
	offsetSize := format.IntegerWidth(dataSize)

	headerSize := 1 + sizeBytes + size*idSize + (size+1)*offsetSize
	if err := b.checkCapacity(headerSize); err != nil {
		return err
	}

	for i := dataSize - 1; i >= 0; i-- {
		b.buf[start+headerSize+i] = b.buf[start+i]
	}
	b.writePos += headerSize

	b.buf[start] = objectHeader(largeSize, idSize, offsetSize)
	writeLong(b.buf, start+1, int64(size), sizeBytes)

	idStart := start + 1 + sizeBytes
	offsetStart := idStart + size*idSize
	for i, f := range fields {
		writeLong(b.buf, idStart+i*idSize, int64(f.ID), idSize)
		writeLong(b.buf, offsetStart+i*offsetSize, int64(f.Offset), offsetSize)
	}
	writeLong(b.buf, offsetStart+size*offsetSize, int64(dataSize), offsetSize)
	return nil
}

// dedupeFields keeps, for each repeated key, the field with the greatest
// write offset (the last writer wins) and compacts the retained fields'
// payload bytes to be contiguous, in offset order, before re-sorting by key
// so FinishObject's caller sees a clean sorted-by-key slice either way.
// start is the object's write position, the same value passed to
// FinishObject, since field offsets are relative to it.
func (b *Builder) dedupeFields(start int, fields []FieldEntry) []FieldEntry {
	distinct := make([]FieldEntry, 0, len(fields))
	i := 0
	for i < len(fields) {
		current := fields[i]
		j := i + 1
		for j < len(fields) && fields[j].Key == current.Key {
			if fields[j].Offset > current.Offset {
				current = fields[j]
			}
			j++
		}
		distinct = append(distinct, current)
		i = j
	}

	if len(distinct) == len(fields) {
		return fields
	}

	sortFieldsByOffset(distinct)

	currentOffset := 0
	for i, f := range distinct {
		oldOffset := f.Offset
		fieldSize, err := valueSize(b.buf, start+oldOffset)
		if err != nil {
			fieldSize = 0
		}
		if currentOffset != oldOffset {
			copy(b.buf[start+currentOffset:start+currentOffset+fieldSize], b.buf[start+oldOffset:start+oldOffset+fieldSize])
		}
		distinct[i] = f.withOffset(currentOffset)
		currentOffset += fieldSize
	}
	b.writePos = start + currentOffset

	sortFieldsByKey(distinct)
	return distinct
}

// FinishArray closes out an array whose elements were written starting at
// byte position start, each beginning at the corresponding entry in
// offsets (relative to start).
func (b *Builder) FinishArray(start int, offsets []int) error {
	size := len(offsets)
	dataSize := b.writePos - start
	largeSize := size > 0xFF
	sizeBytes := 1
	if largeSize {
		sizeBytes = format.U32Size
	}
	offsetSize := format.IntegerWidth(dataSize)

	headerSize := 1 + sizeBytes + (size+1)*offsetSize
	if err := b.checkCapacity(headerSize); err != nil {
		return err
	}

	for i := dataSize - 1; i >= 0; i-- {
		b.buf[start+headerSize+i] = b.buf[start+i]
	}
	b.writePos += headerSize

	b.buf[start] = arrayHeader(largeSize, offsetSize)
	writeLong(b.buf, start+1, int64(size), sizeBytes)

	offsetStart := start + 1 + sizeBytes
	for i, off := range offsets {
		writeLong(b.buf, offsetStart+i*offsetSize, int64(off), offsetSize)
	}
	writeLong(b.buf, offsetStart+size*offsetSize, int64(dataSize), offsetSize)
	return nil
}

// AppendVariant deep-copies v into b, remapping its dictionary ids into b's
// own dictionary (interning any keys not already present). Use this when
// splicing a Variant built against different metadata into b.
func (b *Builder) AppendVariant(v Variant) error {
	return b.appendVariantAt(v.value, v.metadata, 0)
}

func (b *Builder) appendVariantAt(value []byte, metadata Metadata, pos int) error {
	if err := checkIndex(pos, len(value)); err != nil {
		return err
	}
	switch getBasicType(value, pos) {
	case format.BasicObject:
		info, err := parseObjectHeader(value, pos)
		if err != nil {
			return err
		}
		return b.appendObject(value, metadata, info)
	case format.BasicArray:
		info, err := parseArrayHeader(value, pos)
		if err != nil {
			return err
		}
		return b.appendArray(value, metadata, info)
	default:
		return b.shallowAppendVariantAt(value, pos)
	}
}

func (b *Builder) appendObject(value []byte, metadata Metadata, info objectHeaderInfo) error {
	start := b.writePos
	fields := make([]FieldEntry, 0, info.size)

	for i := 0; i < info.size; i++ {
		idVal, err := readUnsigned(value, info.idStart+info.idSize*i, info.idSize)
		if err != nil {
			return err
		}
		offset, err := readUnsigned(value, info.offsetStart+info.offsetSize*i, info.offsetSize)
		if err != nil {
			return err
		}
		elementPos := info.dataStart + int(offset)

		key, err := metadata.Key(int(idVal))
		if err != nil {
			return err
		}
		newID := b.AddKey(key)
		fields = append(fields, FieldEntry{Key: key, ID: newID, Offset: b.writePos - start})

		if err := b.appendVariantAt(value, metadata, elementPos); err != nil {
			return err
		}
	}

	return b.FinishObject(start, fields)
}

func (b *Builder) appendArray(value []byte, metadata Metadata, info arrayHeaderInfo) error {
	start := b.writePos
	offsets := make([]int, 0, info.size)

	for i := 0; i < info.size; i++ {
		offset, err := readUnsigned(value, info.offsetStart+info.offsetSize*i, info.offsetSize)
		if err != nil {
			return err
		}
		elementPos := info.dataStart + int(offset)

		offsets = append(offsets, b.writePos-start)
		if err := b.appendVariantAt(value, metadata, elementPos); err != nil {
			return err
		}
	}

	return b.FinishArray(start, offsets)
}

// ShallowAppendVariant copies v's exact subtree bytes into b without
// remapping dictionary ids. It must only be used when b's eventual metadata
// is guaranteed to be compatible with v's own metadata (typically: b is
// building a residual value that will be paired with the same metadata v
// came from), since the copied bytes still reference v's dictionary ids
// verbatim.
func (b *Builder) ShallowAppendVariant(v Variant) error {
	return b.shallowAppendVariantAt(v.value, 0)
}

func (b *Builder) shallowAppendVariantAt(value []byte, pos int) error {
	size, err := valueSize(value, pos)
	if err != nil {
		return err
	}
	if err := checkIndex(pos+size-1, len(value)); err != nil {
		return err
	}
	if err := b.checkCapacity(size); err != nil {
		return err
	}
	copy(b.buf[b.writePos:b.writePos+size], value[pos:pos+size])
	b.writePos += size
	return nil
}

// ValueWithoutMetadata returns the value bytes written so far, without
// pairing them with a metadata dictionary. Useful when the caller already
// holds a compatible metadata buffer (e.g. the shredding writer's residual
// column, which shares its parent's metadata).
func (b *Builder) ValueWithoutMetadata() []byte {
	out := make([]byte, b.writePos)
	copy(out, b.buf[:b.writePos])
	return out
}

// Result builds the metadata dictionary from the keys interned so far and
// returns the completed Variant. The returned Variant holds its own copy of
// the value bytes, so b is left in the same state a call to Reset would
// leave it in — its backing buffer is recycled to the package pool and
// replaced with a freshly pooled one, the same cycle-buffers-on-Finish
// pattern the teacher's streaming encoders use — letting a Builder build a
// second, unrelated Variant right away with no explicit Reset call needed.
func (b *Builder) Result() (Variant, error) {
	metadata, err := encodeMetadata(b.interner.Keys())
	if err != nil {
		return Variant{}, err
	}
	v, err := New(b.ValueWithoutMetadata(), metadata)
	if err != nil {
		return Variant{}, err
	}
	b.recycleStorage()
	return v, nil
}

// recycleStorage returns b's backing buffer to the package pool, replaces
// it with a freshly pooled one, and clears the key dictionary, leaving b
// ready to build an unrelated Variant from scratch.
func (b *Builder) recycleStorage() {
	pool.Put(b.storage)
	b.storage = pool.Get()
	b.writePos = 0
	b.buf = b.storage.Bytes()
	b.interner.Reset()
}

func sortFieldsByKey(fields []FieldEntry) {
	insertionSort(fields, func(a, b FieldEntry) bool { return a.Key < b.Key })
}

func sortFieldsByOffset(fields []FieldEntry) {
	insertionSort(fields, func(a, b FieldEntry) bool { return a.Offset < b.Offset })
}

// insertionSort is used instead of sort.Slice for the small field lists
// objects typically carry; it keeps FieldEntry comparisons free of
// reflection overhead. Field counts large enough for this to matter are
// already outside what this format's fixed-width id/offset tables target.
func insertionSort(fields []FieldEntry, less func(a, b FieldEntry) bool) {
	for i := 1; i < len(fields); i++ {
		for j := i; j > 0 && less(fields[j], fields[j-1]); j-- {
			fields[j], fields[j-1] = fields[j-1], fields[j]
		}
	}
}

