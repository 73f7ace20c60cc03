package variant

import (
	"fmt"

	"github.com/shredpack/variant/errs"
	"github.com/shredpack/variant/format"
)

// Metadata wraps an encoded metadata buffer (the key dictionary, in id
// assignment order, that a Variant's value bytes reference by id) and
// provides random-access key lookup.
type Metadata struct {
	buf []byte
}

// NewMetadata wraps raw metadata bytes without validating them further than
// checking the buffer is non-empty and carries a supported version. Use
// Variant to validate a (value, metadata) pair together.
func NewMetadata(buf []byte) (Metadata, error) {
	if len(buf) == 0 {
		return Metadata{}, fmt.Errorf("%w: empty metadata", errs.ErrMalformedVariant)
	}
	if buf[0]&format.VersionMask != format.Version {
		return Metadata{}, fmt.Errorf("%w: unsupported metadata version %d", errs.ErrMalformedVariant, buf[0]&format.VersionMask)
	}
	return Metadata{buf: buf}, nil
}

// Bytes returns the underlying metadata buffer.
func (m Metadata) Bytes() []byte { return m.buf }

// offsetSize returns the width, in bytes, of each entry in the metadata's
// offset table, packed into the top 2 bits of the header byte.
func (m Metadata) offsetSize() int {
	return int((m.buf[0]>>6)&0x3) + 1
}

// Size returns the number of keys in the dictionary.
func (m Metadata) Size() (int, error) {
	offsetSize := m.offsetSize()
	dictSize, err := readUnsigned(m.buf, 1, offsetSize)
	if err != nil {
		return 0, err
	}
	return int(dictSize), nil
}

// Key returns the key string assigned to id.
func (m Metadata) Key(id int) (string, error) {
	if err := checkIndex(0, len(m.buf)); err != nil {
		return "", err
	}
	offsetSize := m.offsetSize()
	dictSize, err := readUnsigned(m.buf, 1, offsetSize)
	if err != nil {
		return "", err
	}
	if id < 0 || id >= int(dictSize) {
		return "", fmt.Errorf("%w: dictionary id %d out of range (size %d)", errs.ErrMalformedVariant, id, dictSize)
	}

	stringStart := 1 + (int(dictSize)+2)*offsetSize
	offset, err := readUnsigned(m.buf, 1+(id+1)*offsetSize, offsetSize)
	if err != nil {
		return "", err
	}
	nextOffset, err := readUnsigned(m.buf, 1+(id+2)*offsetSize, offsetSize)
	if err != nil {
		return "", err
	}
	if offset > nextOffset {
		return "", fmt.Errorf("%w: dictionary offsets out of order at id %d", errs.ErrMalformedVariant, id)
	}
	if err := checkIndex(stringStart+int(nextOffset)-1, len(m.buf)); err != nil {
		return "", err
	}

	return string(m.buf[stringStart+int(offset) : stringStart+int(nextOffset)]), nil
}

// encodeMetadata builds a metadata buffer from keys, in assignment order
// (id == index into keys). The on-wire dictionary stores its string bytes
// and offset table in that same assignment order — it is not sorted by key
// — so this function writes keys through unchanged; sorted lookup is a
// property of an object's own id/offset tables, not of the dictionary.
func encodeMetadata(keys []string) ([]byte, error) {
	n := len(keys)
	maxOffset := 0
	total := 0
	for _, k := range keys {
		total += len(k)
	}
	if total > maxOffset {
		maxOffset = total
	}
	if n > maxOffset {
		maxOffset = n
	}
	offsetSize := format.IntegerWidth(maxOffset)

	headerSize := 1 + (n+2)*offsetSize
	size := headerSize + total
	if size > format.SizeLimit {
		return nil, fmt.Errorf("%w: metadata would be %d bytes", errs.ErrSizeLimitExceeded, size)
	}

	buf := make([]byte, size)
	buf[0] = format.Version | byte(offsetSize-1)<<6
	writeUint(buf, 1, uint32(n), offsetSize)

	pos := 1 + offsetSize
	strPos := headerSize
	offset := 0
	for i, k := range keys {
		writeUint(buf, pos+i*offsetSize, uint32(offset), offsetSize)
		copy(buf[strPos:], k)
		strPos += len(k)
		offset += len(k)
	}
	writeUint(buf, pos+n*offsetSize, uint32(offset), offsetSize)

	return buf, nil
}

// writeUint writes v into buf[pos:pos+width] in little-endian order. width
// is at most format.U32Size since every offset here is bounded by
// format.SizeLimit.
func writeUint(buf []byte, pos int, v uint32, width int) {
	for i := 0; i < width; i++ {
		buf[pos+i] = byte(v >> (8 * i))
	}
}
