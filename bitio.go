package bled

import "encoding/binary"

// BitReader reads sub-byte fields and fixed-width big-endian integers
// out of a byte buffer. Bit fields may not straddle a byte boundary:
// once read_bits has consumed some but not all of the current byte,
// only further read_bits calls (against the same byte) or a byte-
// aligned read are legal.
//
// On any failure the reader does not advance; callers may inspect the
// error and give up on the whole frame without special-casing partial
// progress.
type BitReader struct {
	buf     []byte
	byteIdx int
	bitIdx  uint8 // number of high bits already consumed from buf[byteIdx], 0..7
}

// NewBitReader returns a reader positioned at the start of buf. buf is
// not copied; callers must not mutate it while the reader is in use.
func NewBitReader(buf []byte) *BitReader {
	return &BitReader{buf: buf}
}

// Remaining reports the number of whole bytes not yet consumed. A
// reader with a nonzero bit accumulator still reports the current byte
// as remaining, since ReadBits can still draw from it.
func (r *BitReader) Remaining() int {
	return len(r.buf) - r.byteIdx
}

// aligned reports whether the bit accumulator is empty.
func (r *BitReader) aligned() bool {
	return r.bitIdx == 0
}

// ReadBits reads the next n bits (1 <= n <= 8) as an unsigned value,
// most-significant-bit first, from the current byte. It fails if n is
// out of range, if the buffer is exhausted, or if n would straddle
// into the next byte.
func (r *BitReader) ReadBits(n int) (uint8, error) {
	if n < 1 || n > 8 {
		return 0, newCodecErr(KindFieldOutOfRange, nil, "read_bits: n=%d out of [1,8]", n)
	}
	if r.byteIdx >= len(r.buf) {
		return 0, newCodecErr(KindInputTooShort, nil, "read_bits: buffer exhausted")
	}
	if int(r.bitIdx)+n > 8 {
		return 0, newCodecErr(KindFieldOutOfRange, nil, "read_bits: %d bits would straddle a byte boundary at bit %d", n, r.bitIdx)
	}
	b := r.buf[r.byteIdx]
	shift := 8 - int(r.bitIdx) - n
	mask := uint8(1<<uint(n)) - 1
	val := (b >> uint(shift)) & mask
	r.bitIdx += uint8(n)
	if r.bitIdx == 8 {
		r.bitIdx = 0
		r.byteIdx++
	}
	return val, nil
}

// ReadBytes reads n raw bytes. It requires the reader to be byte
// aligned (no partially-consumed bit accumulator); otherwise it fails
// with KindUnalignedBitAccess without advancing.
func (r *BitReader) ReadBytes(n int) ([]byte, error) {
	if !r.aligned() {
		return nil, newCodecErr(KindUnalignedBitAccess, nil, "read_bytes: %d bits already consumed from current byte", r.bitIdx)
	}
	if n < 0 {
		return nil, newCodecErr(KindFieldOutOfRange, nil, "read_bytes: negative length %d", n)
	}
	if r.byteIdx+n > len(r.buf) {
		return nil, newCodecErr(KindInputTooShort, r.buf[r.byteIdx:], "read_bytes: want %d, have %d", n, len(r.buf)-r.byteIdx)
	}
	out := r.buf[r.byteIdx : r.byteIdx+n]
	r.byteIdx += n
	return out, nil
}

func (r *BitReader) readUint(n int) (uint64, error) {
	b, err := r.ReadBytes(n)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, by := range b {
		v = v<<8 | uint64(by)
	}
	return v, nil
}

// ReadU8 reads one byte-aligned byte.
func (r *BitReader) ReadU8() (uint8, error) {
	v, err := r.readUint(1)
	return uint8(v), err
}

// ReadI8 reads one byte-aligned signed byte.
func (r *BitReader) ReadI8() (int8, error) {
	v, err := r.ReadU8()
	return int8(v), err
}

// ReadU16 reads a byte-aligned big-endian uint16.
func (r *BitReader) ReadU16() (uint16, error) {
	v, err := r.readUint(2)
	return uint16(v), err
}

// ReadI16 reads a byte-aligned big-endian int16.
func (r *BitReader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

// ReadU32 reads a byte-aligned big-endian uint32.
func (r *BitReader) ReadU32() (uint32, error) {
	v, err := r.readUint(4)
	return uint32(v), err
}

// ReadI32 reads a byte-aligned big-endian int32.
func (r *BitReader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadU64 reads a byte-aligned big-endian uint64.
func (r *BitReader) ReadU64() (uint64, error) {
	return r.readUint(8)
}

// ReadI64 reads a byte-aligned big-endian int64.
func (r *BitReader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

// BitWriter is the write-side counterpart of BitReader. WriteBits
// applies the same rules as ReadBits: n must be in 1..8 and a field may
// not straddle a byte boundary; violations are returned as errors.
type BitWriter struct {
	buf    []byte
	cur    uint8
	bitIdx uint8
}

// NewBitWriter returns an empty writer.
func NewBitWriter() *BitWriter {
	return &BitWriter{}
}

// WriteBits appends the low n bits of value (1 <= n <= 8).
func (w *BitWriter) WriteBits(value uint8, n int) error {
	if n < 1 || n > 8 {
		return newCodecErr(KindFieldOutOfRange, nil, "write_bits: n=%d out of [1,8]", n)
	}
	if int(w.bitIdx)+n > 8 {
		return newCodecErr(KindFieldOutOfRange, nil, "write_bits: %d bits would straddle a byte boundary at bit %d", n, w.bitIdx)
	}
	mask := uint8(1<<uint(n)) - 1
	v := value & mask
	shift := 8 - int(w.bitIdx) - n
	w.cur |= v << uint(shift)
	w.bitIdx += uint8(n)
	if w.bitIdx == 8 {
		w.buf = append(w.buf, w.cur)
		w.cur = 0
		w.bitIdx = 0
	}
	return nil
}

// WriteBytes requires byte alignment and appends b verbatim.
func (w *BitWriter) WriteBytes(b []byte) error {
	if w.bitIdx != 0 {
		return newCodecErr(KindUnalignedBitAccess, nil, "write_bytes: %d bits pending in accumulator", w.bitIdx)
	}
	w.buf = append(w.buf, b...)
	return nil
}

func (w *BitWriter) writeUint(v uint64, n int) error {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return w.WriteBytes(b[8-n:])
}

// WriteU8 appends a byte-aligned byte.
func (w *BitWriter) WriteU8(v uint8) error { return w.writeUint(uint64(v), 1) }

// WriteI8 appends a byte-aligned signed byte.
func (w *BitWriter) WriteI8(v int8) error { return w.writeUint(uint64(uint8(v)), 1) }

// WriteU16 appends a byte-aligned big-endian uint16.
func (w *BitWriter) WriteU16(v uint16) error { return w.writeUint(uint64(v), 2) }

// WriteI16 appends a byte-aligned big-endian int16.
func (w *BitWriter) WriteI16(v int16) error { return w.writeUint(uint64(uint16(v)), 2) }

// WriteU32 appends a byte-aligned big-endian uint32.
func (w *BitWriter) WriteU32(v uint32) error { return w.writeUint(uint64(v), 4) }

// WriteI32 appends a byte-aligned big-endian int32.
func (w *BitWriter) WriteI32(v int32) error { return w.writeUint(uint64(uint32(v)), 4) }

// WriteU64 appends a byte-aligned big-endian uint64.
func (w *BitWriter) WriteU64(v uint64) error { return w.writeUint(v, 8) }

// WriteI64 appends a byte-aligned big-endian int64.
func (w *BitWriter) WriteI64(v int64) error { return w.writeUint(uint64(v), 8) }

// Bytes returns the bytes written so far. It panics if a partial bit
// accumulator is pending, since that would silently drop bits; callers
// must pad or finish their bit fields to a byte boundary first.
func (w *BitWriter) Bytes() []byte {
	if w.bitIdx != 0 {
		panic("bled: BitWriter.Bytes called with a partial byte pending")
	}
	return w.buf
}
