// Package pool provides a growth-capped, poolable byte buffer used by the
// Variant builder's append-only write buffer. The growth policy mirrors
// mebo's internal/pool.ByteBuffer: double while small, then grow by 25%,
// but every buffer here hard-caps at format.SizeLimit (16 MiB) since that
// ceiling is a wire-format invariant, not a tuning knob.
package pool

import (
	"fmt"
	"sync"

	"github.com/shredpack/variant/errs"
	"github.com/shredpack/variant/format"
)

// BufferDefaultSize is the initial capacity handed out by the default pool.
const BufferDefaultSize = 128

// growThreshold is the capacity above which Grow switches from doubling to
// 25%-at-a-time growth, mirroring the teacher's 4x-default-size threshold.
const growThreshold = 4 * BufferDefaultSize

// ByteBuffer is a reusable, growable byte slice. Unlike bytes.Buffer it
// exposes SetLength so callers can reserve space up front and index into it
// directly, which is how the Variant builder writes its append-only value
// buffer.
type ByteBuffer struct {
	B []byte
}

// NewByteBuffer creates a ByteBuffer with the given initial capacity.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{B: make([]byte, 0, defaultSize)}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte { return bb.B }

// Reset empties the buffer while retaining its allocated memory.
func (bb *ByteBuffer) Reset() { bb.B = bb.B[:0] }

// Len returns the number of bytes written so far.
func (bb *ByteBuffer) Len() int { return len(bb.B) }

// Cap returns the buffer's current capacity.
func (bb *ByteBuffer) Cap() int { return cap(bb.B) }

// SetLength sets the buffer's length to n without reallocating, panicking
// if n exceeds the current capacity.
func (bb *ByteBuffer) SetLength(n int) {
	if n < 0 || n > cap(bb.B) {
		panic("pool: SetLength: invalid length")
	}
	bb.B = bb.B[:n]
}

// Grow ensures the buffer has room for at least requiredBytes more bytes,
// reallocating if needed. It returns errs.ErrSizeLimitExceeded if doing so
// would push the buffer's capacity past format.SizeLimit.
func (bb *ByteBuffer) Grow(requiredBytes int) error {
	available := cap(bb.B) - len(bb.B)
	if available >= requiredBytes {
		return nil
	}

	growBy := cap(bb.B)
	if growBy < BufferDefaultSize {
		growBy = BufferDefaultSize
	}
	if cap(bb.B) > growThreshold {
		growBy = cap(bb.B) / 4
	}
	if growBy < requiredBytes {
		growBy = requiredBytes
	}

	newCap := len(bb.B) + growBy
	if newCap > format.SizeLimit {
		if len(bb.B)+requiredBytes > format.SizeLimit {
			return fmt.Errorf("%w: buffer would grow to %d bytes", errs.ErrSizeLimitExceeded, len(bb.B)+requiredBytes)
		}
		newCap = format.SizeLimit
	}

	newBuf := make([]byte, len(bb.B), newCap)
	copy(newBuf, bb.B)
	bb.B = newBuf
	return nil
}

// ByteBufferPool is a sync.Pool-backed source of ByteBuffers. Buffers whose
// capacity exceeds maxThreshold are discarded on Put rather than retained,
// so one oversized Variant doesn't bloat the pool for every subsequent,
// ordinarily-sized one.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a pool whose buffers start at defaultSize and
// are discarded on Put once they grow past maxThreshold.
func NewByteBufferPool(defaultSize, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any { return NewByteBuffer(defaultSize) },
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves a ByteBuffer from the pool, allocating one if the pool is
// empty.
func (p *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := p.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns bb to the pool for reuse, or discards it if it has grown
// beyond the pool's threshold.
func (p *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}
	if p.maxThreshold > 0 && cap(bb.B) > p.maxThreshold {
		return
	}
	bb.Reset()
	p.pool.Put(bb)
}

// defaultPoolMaxThreshold caps retained buffers at 1 MiB; builders that
// routinely exceed this still work, they just won't have their backing
// array recycled.
const defaultPoolMaxThreshold = 1024 * 1024

var defaultPool = NewByteBufferPool(BufferDefaultSize, defaultPoolMaxThreshold)

// Get retrieves a ByteBuffer from the package-level default pool.
func Get() *ByteBuffer { return defaultPool.Get() }

// Put returns a ByteBuffer to the package-level default pool.
func Put(bb *ByteBuffer) { defaultPool.Put(bb) }
