package pe

import (
	"github.com/wippyai/pefile/errors"
)

// RVAToOffset translates an image-relative virtual address to a file
// offset. Sections are scanned in declaration order and the first one
// whose [VirtualAddress, VirtualAddress+VirtualSize) covers rva wins;
// real loaders resolve overlapping sections the same way, so the
// ambiguity is preserved rather than rejected. Failure is explicit:
// offset zero is a valid result and callers must not treat it as a
// sentinel.
func (f *File) RVAToOffset(rva uint32) (uint32, error) {
	for _, s := range f.Sections {
		if rva >= s.VirtualAddress && rva-s.VirtualAddress < s.VirtualSize {
			return s.Offset + (rva - s.VirtualAddress), nil
		}
	}
	return 0, errors.NotMapped(uint64(rva))
}

// SectionByRVA returns the index of the first-declared section covering
// rva, or -1.
func (f *File) SectionByRVA(rva uint32) int {
	for i, s := range f.Sections {
		if rva >= s.VirtualAddress && rva-s.VirtualAddress < s.VirtualSize {
			return i
		}
	}
	return -1
}

// SectionByName returns the first section with the given name, or nil.
func (f *File) SectionByName(name string) *Section {
	for _, s := range f.Sections {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// VAToOffset translates an absolute virtual address (as stored in TLS
// and load-config pointer fields) by rebasing against ImageBase first.
func (f *File) VAToOffset(va uint64) (uint32, error) {
	base := f.OptionalHeader.ImageBase
	if va < base || va-base > 0xffffffff {
		return 0, errors.NotMapped(va)
	}
	return f.RVAToOffset(uint32(va - base))
}

// DataDirectory returns the directory entry at idx, or a zero entry
// when the table does not extend that far.
func (f *File) DataDirectory(idx int) DataDirectory {
	if idx < 0 || idx >= len(f.DataDirectories) {
		return DataDirectory{SectionIndex: -1}
	}
	return f.DataDirectories[idx]
}

// Is64 reports whether the image uses the PE32+ layout.
func (f *File) Is64() bool {
	return f.OptionalHeader.Magic == optionalMagic64
}

func (f *File) ptrSize() int {
	if f.Is64() {
		return 8
	}
	return 4
}

func (f *File) ordinalFlag() uint64 {
	if f.Is64() {
		return ordinalFlag64
	}
	return ordinalFlag32
}
