package pe_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	peerrors "github.com/wippyai/pefile/errors"
	"github.com/wippyai/pefile/pe"
)

func regionState(f *pe.File, name string) pe.RegionState {
	for _, r := range f.Regions {
		if r.Name == name {
			return r.State
		}
	}
	return pe.RegionState(-1)
}

func hasDiag(f *pe.File, region, substr string) bool {
	for _, d := range f.Diagnostics() {
		if d.Region == region && strings.Contains(d.Message, substr) {
			return true
		}
	}
	return false
}

func TestParseRejectsShortData(t *testing.T) {
	if _, err := pe.Parse([]byte{0x4d, 0x5a, 0x90}); err == nil {
		t.Fatal("expected error for truncated DOS header")
	}
}

func TestParseRejectsBadHeaders(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(img []byte)
	}{
		{"dos magic", func(img []byte) { put16(img, 0, 0x4141) }},
		{"pe signature", func(img []byte) { put32(img, 0x80, 0x41414141) }},
		{"optional magic", func(img []byte) { put16(img, 0x98, 0x999) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := newImage(false).
				section(".text", 0x1000, make([]byte, 0x40)).
				build()
			tt.corrupt(img)
			if _, err := pe.Parse(img); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}

func TestParseHeaders32(t *testing.T) {
	img := newImage(false).
		section(".text", 0x1000, []byte{0xc3}).
		build()
	f, err := pe.Parse(img)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.Is64() {
		t.Error("expected PE32 image")
	}
	if f.FileHeader.Machine != pe.MachineI386 {
		t.Errorf("machine = %#x, want %#x", f.FileHeader.Machine, pe.MachineI386)
	}
	if f.OptionalHeader.ImageBase != 0x400000 {
		t.Errorf("image base = %#x, want 0x400000", f.OptionalHeader.ImageBase)
	}
	if got := len(f.DataDirectories); got != 16 {
		t.Errorf("directory slots = %d, want 16", got)
	}
	if len(f.Sections) != 1 || f.Sections[0].Name != ".text" {
		t.Fatalf("sections = %+v, want one .text", f.Sections)
	}
	if f.Sections[0].VirtualAddress != 0x1000 {
		t.Errorf("section va = %#x, want 0x1000", f.Sections[0].VirtualAddress)
	}
}

func TestParseHeaders64(t *testing.T) {
	img := newImage(true).
		section(".text", 0x1000, []byte{0xc3}).
		build()
	f, err := pe.Parse(img)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !f.Is64() {
		t.Error("expected PE32+ image")
	}
	if f.FileHeader.Machine != pe.MachineAMD64 {
		t.Errorf("machine = %#x, want %#x", f.FileHeader.Machine, pe.MachineAMD64)
	}
	if f.OptionalHeader.ImageBase != 0x140000000 {
		t.Errorf("image base = %#x, want 0x140000000", f.OptionalHeader.ImageBase)
	}
}

func TestParseRegionsAbsent(t *testing.T) {
	img := newImage(false).
		section(".text", 0x1000, []byte{0xc3}).
		build()
	f, err := pe.Parse(img)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := []string{
		"import", "export", "certificate", "tls",
		"load config", "relocation", "debug", "resource",
	}
	if len(f.Regions) != len(want) {
		t.Fatalf("regions = %d, want %d", len(f.Regions), len(want))
	}
	for i, name := range want {
		if f.Regions[i].Name != name {
			t.Errorf("region %d = %q, want %q", i, f.Regions[i].Name, name)
		}
		if f.Regions[i].State != pe.RegionAbsent {
			t.Errorf("region %q state = %s, want absent", name, f.Regions[i].State)
		}
	}
}

func TestParseOverlay(t *testing.T) {
	b := newImage(false).section(".text", 0x1000, make([]byte, 0x200))
	b.overlay = []byte("trailing signature blob")
	img := b.build()

	f, err := pe.Parse(img)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.OverlayOffset != 0x600 {
		t.Errorf("overlay offset = %#x, want 0x600", f.OverlayOffset)
	}
	if got := len(img) - int(f.OverlayOffset); got != len(b.overlay) {
		t.Errorf("overlay length = %d, want %d", got, len(b.overlay))
	}
}

func TestParseSectionContentClamped(t *testing.T) {
	opts := pe.DefaultOptions()
	opts.SectionContentLimit = 0x10
	img := newImage(false).
		section(".data", 0x1000, bytes.Repeat([]byte{0x5a}, 0x100)).
		build()
	f, err := pe.ParseWithOptions(img, opts)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := len(f.Sections[0].Raw); got != 0x10 {
		t.Errorf("retained content = %d bytes, want 0x10", got)
	}
	if f.Sections[0].Size != 0x100 {
		t.Errorf("declared size = %#x, want 0x100", f.Sections[0].Size)
	}
}

func TestParseRichHeader(t *testing.T) {
	const key = uint32(0xdeadbeef)
	stub := make([]byte, 0x40)
	put32(stub, 0, 0x536e6144^key) // DanS
	put32(stub, 4, key)            // pad
	put32(stub, 8, key)
	put32(stub, 12, key)
	put32(stub, 16, 0x00937809^key) // product 0x93, build 0x7809
	put32(stub, 20, 5^key)
	put32(stub, 24, 0x01048a0b^key)
	put32(stub, 28, 2^key)
	put32(stub, 32, 0x68636952) // Rich
	put32(stub, 36, key)

	b := newImage(false).section(".text", 0x1000, []byte{0xc3})
	b.stub = stub
	f, err := pe.Parse(b.build())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.Rich == nil {
		t.Fatal("rich header not recovered")
	}
	if f.Rich.XORKey != key {
		t.Errorf("xor key = %#x, want %#x", f.Rich.XORKey, key)
	}
	if f.Rich.Offset != 0x40 {
		t.Errorf("offset = %#x, want 0x40", f.Rich.Offset)
	}
	want := []pe.RichRecord{
		{ProductID: 0x93, BuildID: 0x7809, Count: 5},
		{ProductID: 0x104, BuildID: 0x8a0b, Count: 2},
	}
	if len(f.Rich.Records) != len(want) {
		t.Fatalf("records = %d, want %d", len(f.Rich.Records), len(want))
	}
	for i, r := range want {
		if f.Rich.Records[i] != r {
			t.Errorf("record %d = %+v, want %+v", i, f.Rich.Records[i], r)
		}
	}
}

func TestParseNoRichHeader(t *testing.T) {
	img := newImage(false).section(".text", 0x1000, []byte{0xc3}).build()
	f, err := pe.Parse(img)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.Rich != nil {
		t.Errorf("rich header = %+v, want nil", f.Rich)
	}
}

func TestVerifyCleanImage(t *testing.T) {
	img := newImage(false).
		section(".text", 0x1000, []byte{0xc3}).
		build()
	f, err := pe.Parse(img)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if errs := f.Verify(); len(errs) != 0 {
		t.Errorf("verify reported %d errors: %v", len(errs), errs)
	}
}

func TestVerifyUnmappedEntryPoint(t *testing.T) {
	// entry point is fixed at rva 0x1000; the only section sits elsewhere
	img := newImage(false).
		section(".data", 0x2000, []byte{1, 2, 3}).
		build()
	f, err := pe.Parse(img)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	errs := f.Verify()
	found := false
	for _, e := range errs {
		if errors.Is(e, &peerrors.Error{Phase: peerrors.PhaseVerify, Kind: peerrors.KindNotMapped}) {
			found = true
		}
	}
	if !found {
		t.Errorf("verify errors %v lack an unmapped entry point finding", errs)
	}
}
