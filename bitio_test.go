package bled

import (
	"bytes"
	"testing"
)

func TestBitReaderReadBits(t *testing.T) {
	r := NewBitReader([]byte{0b10110010})
	cases := []struct {
		n    int
		want uint8
	}{
		{3, 0b101},
		{1, 0b1},
		{4, 0b0010},
	}
	for i, c := range cases {
		got, err := r.ReadBits(c.n)
		if err != nil {
			t.Fatalf("case %d: ReadBits(%d): %v", i, c.n, err)
		}
		if got != c.want {
			t.Errorf("case %d: ReadBits(%d) = %0b, want %0b", i, c.n, got, c.want)
		}
	}
}

func TestBitReaderStraddleFails(t *testing.T) {
	r := NewBitReader([]byte{0xFF})
	if _, err := r.ReadBits(9); err == nil {
		t.Fatalf("ReadBits(9) on a fresh byte boundary should fail")
	} else if k, ok := KindOf(err); !ok || k != KindFieldOutOfRange {
		t.Errorf("got kind %v, want KindFieldOutOfRange", k)
	}
}

func TestBitReaderUnalignedReadFails(t *testing.T) {
	r := NewBitReader([]byte{0xFF, 0xFF, 0xFF})
	if _, err := r.ReadBits(1); err != nil {
		t.Fatalf("ReadBits(1): %v", err)
	}
	if _, err := r.ReadU16(); err == nil {
		t.Fatalf("ReadU16 after ReadBits(1) should fail unaligned")
	} else if k, ok := KindOf(err); !ok || k != KindUnalignedBitAccess {
		t.Errorf("got kind %v, want KindUnalignedBitAccess", k)
	}
}

func TestBitReaderDoesNotAdvanceOnFailure(t *testing.T) {
	r := NewBitReader([]byte{0xAB})
	if _, err := r.ReadBits(9); err == nil {
		t.Fatalf("expected failure")
	}
	got, err := r.ReadBits(8)
	if err != nil {
		t.Fatalf("ReadBits(8) after failed ReadBits(9): %v", err)
	}
	if got != 0xAB {
		t.Errorf("got %x, want %x", got, 0xAB)
	}
}

func TestBitReaderFixedWidthRoundTrip(t *testing.T) {
	w := NewBitWriter()
	_ = w.WriteU8(0x12)
	_ = w.WriteI8(-1)
	_ = w.WriteU16(0x1234)
	_ = w.WriteI16(-2)
	_ = w.WriteU32(0xdeadbeef)
	_ = w.WriteI32(-3)
	_ = w.WriteU64(0x0102030405060708)
	_ = w.WriteI64(-4)

	r := NewBitReader(w.Bytes())
	if v, _ := r.ReadU8(); v != 0x12 {
		t.Errorf("ReadU8 = %x", v)
	}
	if v, _ := r.ReadI8(); v != -1 {
		t.Errorf("ReadI8 = %d", v)
	}
	if v, _ := r.ReadU16(); v != 0x1234 {
		t.Errorf("ReadU16 = %x", v)
	}
	if v, _ := r.ReadI16(); v != -2 {
		t.Errorf("ReadI16 = %d", v)
	}
	if v, _ := r.ReadU32(); v != 0xdeadbeef {
		t.Errorf("ReadU32 = %x", v)
	}
	if v, _ := r.ReadI32(); v != -3 {
		t.Errorf("ReadI32 = %d", v)
	}
	if v, _ := r.ReadU64(); v != 0x0102030405060708 {
		t.Errorf("ReadU64 = %x", v)
	}
	if v, _ := r.ReadI64(); v != -4 {
		t.Errorf("ReadI64 = %d", v)
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", r.Remaining())
	}
}

func TestBitWriterBitsRoundTrip(t *testing.T) {
	w := NewBitWriter()
	_ = w.WriteBits(0b101, 3)
	_ = w.WriteBits(0b1, 1)
	_ = w.WriteBits(0b0010, 4)
	want := []byte{0b10110010}
	if got := w.Bytes(); !bytes.Equal(got, want) {
		t.Errorf("got %08b, want %08b", got, want)
	}
}

func TestBitWriterStraddleFails(t *testing.T) {
	w := NewBitWriter()
	_ = w.WriteBits(0b1, 7)
	if err := w.WriteBits(0b11, 2); err == nil {
		t.Fatalf("expected straddle failure")
	}
}

func TestBitReaderReadBytesRequiresAlignment(t *testing.T) {
	r := NewBitReader([]byte{0xFF, 0x00, 0x01})
	_, _ = r.ReadBits(4)
	if _, err := r.ReadBytes(1); err == nil {
		t.Fatalf("ReadBytes should fail when unaligned")
	}
}

func TestBitReaderInputTooShort(t *testing.T) {
	r := NewBitReader([]byte{0x01})
	if _, err := r.ReadU16(); err == nil {
		t.Fatalf("expected input-too-short error")
	} else if k, ok := KindOf(err); !ok || k != KindInputTooShort {
		t.Errorf("got kind %v, want KindInputTooShort", k)
	}
}
