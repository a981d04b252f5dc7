package binary

import (
	"bytes"
	"errors"
	"testing"
)

func TestPeekFixedWidths(t *testing.T) {
	r := NewReader([]byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88})

	if v, err := r.PeekU8(0); err != nil || v != 0x11 {
		t.Errorf("PeekU8 = %#x, %v", v, err)
	}
	if v, err := r.PeekU16(0); err != nil || v != 0x2211 {
		t.Errorf("PeekU16 = %#x, %v", v, err)
	}
	if v, err := r.PeekU32(2); err != nil || v != 0x66554433 {
		t.Errorf("PeekU32 = %#x, %v", v, err)
	}
	if v, err := r.PeekU64(0); err != nil || v != 0x8877665544332211 {
		t.Errorf("PeekU64 = %#x, %v", v, err)
	}
	if r.Pos() != 0 {
		t.Errorf("peek moved the cursor to %d", r.Pos())
	}
}

func TestPeekOutOfRange(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4})
	tests := []struct {
		name string
		call func() error
	}{
		{"u32 past end", func() error { _, err := r.PeekU32(2); return err }},
		{"u64 on short image", func() error { _, err := r.PeekU64(0); return err }},
		{"negative offset", func() error { _, err := r.PeekU8(-1); return err }},
		{"bytes past end", func() error { _, err := r.PeekBytes(3, 2); return err }},
		{"huge length", func() error { _, err := r.PeekBytes(0, 1<<62); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, ErrOutOfRange) {
				t.Errorf("err = %v, want ErrOutOfRange", err)
			}
		})
	}
}

func TestReadAdvancesCursor(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06})

	if v, err := r.ReadU16(); err != nil || v != 0x0201 {
		t.Fatalf("ReadU16 = %#x, %v", v, err)
	}
	if r.Pos() != 2 {
		t.Fatalf("pos = %d, want 2", r.Pos())
	}
	if v, err := r.ReadU32(); err != nil || v != 0x06050403 {
		t.Fatalf("ReadU32 = %#x, %v", v, err)
	}
	if _, err := r.ReadU8(); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("read past end = %v, want ErrOutOfRange", err)
	}
	// a failed read must not move the cursor
	if r.Pos() != 6 {
		t.Errorf("pos after failed read = %d, want 6", r.Pos())
	}
}

func TestSetPosClampsNegative(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	r.SetPos(-5)
	if r.Pos() != 0 {
		t.Errorf("pos = %d, want 0", r.Pos())
	}
	r.SetPos(100)
	if _, err := r.ReadU8(); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("read at far position = %v, want ErrOutOfRange", err)
	}
}

func TestPeekInto(t *testing.T) {
	type record struct {
		A uint16
		B uint32
		C [2]byte
	}
	r := NewReader([]byte{0x11, 0x22, 0x44, 0x33, 0x22, 0x11, 0xaa, 0xbb, 0xcc})

	var rec record
	if err := r.PeekInto(1, &rec); err != nil {
		t.Fatalf("PeekInto: %v", err)
	}
	if rec.A != 0x4422 || rec.B != 0xaa112233 || rec.C != [2]byte{0xbb, 0xcc} {
		t.Errorf("rec = %+v", rec)
	}
	if err := r.PeekInto(4, &rec); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("PeekInto past end = %v, want ErrOutOfRange", err)
	}
}

func TestReadIntoAdvances(t *testing.T) {
	type pair struct {
		X uint16
		Y uint16
	}
	r := NewReader([]byte{1, 0, 2, 0, 3, 0})
	var p pair
	if err := r.ReadInto(&p); err != nil {
		t.Fatalf("ReadInto: %v", err)
	}
	if p.X != 1 || p.Y != 2 {
		t.Errorf("pair = %+v, want {1 2}", p)
	}
	if r.Pos() != 4 {
		t.Errorf("pos = %d, want 4", r.Pos())
	}
}

func TestPeekBytesCopies(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	r := NewReader(data)
	buf, err := r.PeekBytes(1, 2)
	if err != nil {
		t.Fatalf("PeekBytes: %v", err)
	}
	buf[0] = 0xff
	if data[1] != 2 {
		t.Error("PeekBytes must not alias the image")
	}
	if !bytes.Equal(buf, []byte{0xff, 3}) {
		t.Errorf("buf = %v", buf)
	}
}

func TestPeekString(t *testing.T) {
	r := NewReader([]byte("lib.dll\x00tail"))

	tests := []struct {
		name string
		off  int
		max  int
		want string
	}{
		{"terminated", 0, 64, "lib.dll"},
		{"max reached", 0, 3, "lib"},
		{"runs to image end", 8, 64, "tail"},
		{"empty at terminator", 7, 64, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.PeekString(tt.off, tt.max)
			if err != nil {
				t.Fatalf("PeekString: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := r.PeekString(100, 4); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("offset past end = %v, want ErrOutOfRange", err)
	}
}
