package pe_test

import (
	"errors"
	"testing"

	peerrors "github.com/wippyai/pefile/errors"
	"github.com/wippyai/pefile/pe"
)

func TestRVAToOffset(t *testing.T) {
	img := newImage(false).
		section(".text", 0x1000, make([]byte, 0x200)).
		section(".data", 0x2000, make([]byte, 0x200)).
		build()
	f, err := pe.Parse(img)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	tests := []struct {
		rva  uint32
		want uint32
	}{
		{0x1000, 0x400},
		{0x11ff, 0x5ff},
		{0x2000, 0x600},
		{0x2080, 0x680},
	}
	for _, tt := range tests {
		got, err := f.RVAToOffset(tt.rva)
		if err != nil {
			t.Errorf("rva %#x: %v", tt.rva, err)
			continue
		}
		if got != tt.want {
			t.Errorf("rva %#x = %#x, want %#x", tt.rva, got, tt.want)
		}
	}
}

func TestRVAToOffsetUnmappedFailsExplicitly(t *testing.T) {
	img := newImage(false).
		section(".text", 0x1000, make([]byte, 0x200)).
		build()
	f, err := pe.Parse(img)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = f.RVAToOffset(0x9000)
	if err == nil {
		t.Fatal("expected error for uncovered rva")
	}
	if !errors.Is(err, &peerrors.Error{Phase: peerrors.PhaseTranslate, Kind: peerrors.KindNotMapped}) {
		t.Errorf("error = %v, want a not_mapped translate error", err)
	}
}

// Overlapping sections resolve to the first declared one, matching
// loader behavior; the ambiguity is preserved, not rejected.
func TestRVAToOffsetOverlapFirstDeclaredWins(t *testing.T) {
	f := &pe.File{Sections: []*pe.Section{
		{Name: ".a", VirtualAddress: 0x1000, VirtualSize: 0x1000, Offset: 0x400},
		{Name: ".b", VirtualAddress: 0x1800, VirtualSize: 0x1000, Offset: 0x2000},
	}}
	got, err := f.RVAToOffset(0x1900)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if got != 0x400+0x900 {
		t.Errorf("offset = %#x, want %#x (first section)", got, 0x400+0x900)
	}
	if si := f.SectionByRVA(0x1900); si != 0 {
		t.Errorf("section index = %d, want 0", si)
	}
}

// A translation result of zero is a valid offset, distinguishable from
// failure only through the error value.
func TestRVAToOffsetZeroIsValid(t *testing.T) {
	f := &pe.File{Sections: []*pe.Section{
		{Name: ".hdr", VirtualAddress: 0, VirtualSize: 0x400, Offset: 0},
	}}
	got, err := f.RVAToOffset(0)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if got != 0 {
		t.Errorf("offset = %#x, want 0", got)
	}
}

func TestVAToOffsetRebases(t *testing.T) {
	img := newImage(false).
		section(".data", 0x2000, make([]byte, 0x200)).
		build()
	f, err := pe.Parse(img)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	got, err := f.VAToOffset(0x402080)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if got != 0x480 {
		t.Errorf("offset = %#x, want 0x480", got)
	}

	if _, err := f.VAToOffset(0x1000); err == nil {
		t.Error("expected error for va below image base")
	}
}

func TestSectionByName(t *testing.T) {
	img := newImage(false).
		section(".text", 0x1000, make([]byte, 0x10)).
		section(".rsrc", 0x2000, make([]byte, 0x10)).
		build()
	f, err := pe.Parse(img)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s := f.SectionByName(".rsrc"); s == nil || s.VirtualAddress != 0x2000 {
		t.Errorf("SectionByName(.rsrc) = %+v, want va 0x2000", s)
	}
	if s := f.SectionByName(".missing"); s != nil {
		t.Errorf("SectionByName(.missing) = %+v, want nil", s)
	}
}
