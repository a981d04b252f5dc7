package pe

import (
	"github.com/wippyai/pefile/errors"
)

// Verify runs strict structural checks over the parsed model and
// returns everything it finds. The parser itself is deliberately
// permissive, mirroring loader leniency; callers that need hard
// validation opt in here and inspect the diagnostic trail.
func (f *File) Verify() []error {
	var errs []error

	if f.OptionalHeader.NumberOfRvaAndSizes > numDirectories {
		errs = append(errs, errors.New(errors.PhaseVerify, errors.KindInvalidRecord).
			Detail("directory count %d exceeds %d", f.OptionalHeader.NumberOfRvaAndSizes, numDirectories).
			Build())
	}

	imageEnd := uint64(len(f.data))
	var prevEnd uint32
	for i, s := range f.Sections {
		if s.Size > 0 && uint64(s.Offset)+uint64(s.Size) > imageEnd {
			errs = append(errs, errors.New(errors.PhaseVerify, errors.KindTruncated).
				Offset(int64(s.Offset)).
				Detail("section %d (%s) raw data extends past image end", i, s.Name).
				Build())
		}
		if i > 0 && s.VirtualAddress < prevEnd {
			errs = append(errs, errors.New(errors.PhaseVerify, errors.KindInvalidRecord).
				Detail("section %d (%s) overlaps its predecessor in memory", i, s.Name).
				Build())
		}
		end := s.VirtualAddress + s.VirtualSize
		if end > prevEnd {
			prevEnd = end
		}
		if vaEnd := uint64(s.VirtualAddress) + uint64(s.VirtualSize); vaEnd > uint64(f.OptionalHeader.SizeOfImage) {
			errs = append(errs, errors.New(errors.PhaseVerify, errors.KindInvalidRecord).
				Detail("section %d (%s) extends past SizeOfImage %#x", i, s.Name, f.OptionalHeader.SizeOfImage).
				Build())
		}
	}

	if ep := f.OptionalHeader.AddressOfEntryPoint; ep != 0 {
		if f.SectionByRVA(ep) < 0 {
			errs = append(errs, errors.New(errors.PhaseVerify, errors.KindNotMapped).
				Detail("entry point rva %#x not covered by any section", ep).
				Build())
		}
	}

	for _, reg := range f.Regions {
		if reg.State == RegionFailed {
			errs = append(errs, errors.Wrap(errors.PhaseVerify, errors.KindInvalidRecord,
				reg.Err, reg.Name+" region failed"))
		}
	}

	return errs
}
