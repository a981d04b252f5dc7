package pe

import (
	"github.com/wippyai/pefile/errors"
	"github.com/wippyai/pefile/pe/internal/binary"
)

type parser struct {
	r *binary.Reader
	f *File
}

// Parse parses a PE image with default options. It is best-effort:
// only an unreadable mandatory header (DOS, PE signature, COFF,
// optional header) is fatal; every directory region after that
// independently succeeds, degrades, or fails, and the returned File is
// the most complete model achievable plus its diagnostic trail.
func Parse(data []byte) (*File, error) {
	return ParseWithOptions(data, DefaultOptions())
}

// ParseWithOptions parses a PE image with explicit resource caps.
func ParseWithOptions(data []byte, opts Options) (*File, error) {
	p := &parser{
		r: binary.NewReader(data),
		f: &File{data: data, opts: opts},
	}
	if err := p.parseDOSHeader(); err != nil {
		return nil, err
	}
	p.parseRichHeader()
	if err := p.parseNTHeaders(); err != nil {
		return nil, err
	}
	p.parseSections()
	p.parseDirectories()
	p.computeOverlay()
	return p.f, nil
}

func (p *parser) parseDOSHeader() error {
	if err := p.r.PeekInto(0, &p.f.DOSHeader); err != nil {
		return errors.StreamBounds(errors.PhaseHeader, "", 0, err)
	}
	if p.f.DOSHeader.Magic != dosSignature {
		return errors.New(errors.PhaseHeader, errors.KindInvalidInput).
			Detail("bad DOS signature %#x", p.f.DOSHeader.Magic).
			Build()
	}
	return nil
}

func (p *parser) parseNTHeaders() error {
	f := p.f
	peOff := int(f.DOSHeader.PEOffset)

	sig, err := p.r.PeekU32(peOff)
	if err != nil {
		return errors.StreamBounds(errors.PhaseHeader, "", int64(peOff), err)
	}
	if sig != ntSignature {
		return errors.New(errors.PhaseHeader, errors.KindInvalidInput).
			Offset(int64(peOff)).
			Detail("bad PE signature %#x", sig).
			Build()
	}

	coffOff := peOff + 4
	if err := p.r.PeekInto(coffOff, &f.FileHeader); err != nil {
		return errors.StreamBounds(errors.PhaseHeader, "", int64(coffOff), err)
	}

	optOff := coffOff + coffHeaderSize
	magic, err := p.r.PeekU16(optOff)
	if err != nil {
		return errors.StreamBounds(errors.PhaseHeader, "", int64(optOff), err)
	}

	var fixedSize int
	switch magic {
	case optionalMagic32:
		var raw optionalHeader32
		if err := p.r.PeekInto(optOff, &raw); err != nil {
			return errors.StreamBounds(errors.PhaseHeader, "", int64(optOff), err)
		}
		f.OptionalHeader = raw.unify()
		fixedSize = 96
	case optionalMagic64:
		var raw optionalHeader64
		if err := p.r.PeekInto(optOff, &raw); err != nil {
			return errors.StreamBounds(errors.PhaseHeader, "", int64(optOff), err)
		}
		f.OptionalHeader = raw.unify()
		fixedSize = 112
	default:
		return errors.New(errors.PhaseHeader, errors.KindInvalidInput).
			Offset(int64(optOff)).
			Detail("bad optional header magic %#x", magic).
			Build()
	}

	p.parseDataDirectories(optOff + fixedSize)
	return nil
}

// parseDataDirectories reads the directory table. Truncation here is a
// degrade, not a fatal error: the slots read so far are kept and the
// rest stay zero.
func (p *parser) parseDataDirectories(off int) {
	f := p.f
	count := int(f.OptionalHeader.NumberOfRvaAndSizes)
	if count > numDirectories {
		f.diag(SeverityWarning, "", int64(off),
			"directory count %d clamped to %d", count, numDirectories)
		count = numDirectories
	}

	f.DataDirectories = make([]DataDirectory, numDirectories)
	for i := range f.DataDirectories {
		f.DataDirectories[i].SectionIndex = -1
	}
	for i := 0; i < count; i++ {
		va, err := p.r.PeekU32(off + i*8)
		if err != nil {
			f.diag(SeverityWarning, "", int64(off+i*8), "directory table truncated: %v", err)
			return
		}
		size, err := p.r.PeekU32(off + i*8 + 4)
		if err != nil {
			f.diag(SeverityWarning, "", int64(off+i*8+4), "directory table truncated: %v", err)
			return
		}
		f.DataDirectories[i].VirtualAddress = va
		f.DataDirectories[i].Size = size
	}
}

type sectionHeaderRaw struct {
	Name                 [8]byte
	VirtualSize          uint32
	VirtualAddress       uint32
	SizeOfRawData        uint32
	PointerToRawData     uint32
	PointerToRelocations uint32
	PointerToLinenumbers uint32
	NumberOfRelocations  uint16
	NumberOfLinenumbers  uint16
	Characteristics      uint32
}

// parseSections reads the section table and each section's raw bytes.
// A truncated table keeps the prefix; unreachable raw data leaves the
// section with empty content.
func (p *parser) parseSections() {
	f := p.f
	base := int(f.DOSHeader.PEOffset) + 4 + coffHeaderSize + int(f.FileHeader.SizeOfOptionalHeader)

	for i := 0; i < int(f.FileHeader.NumberOfSections); i++ {
		off := base + i*sectionHeaderSize
		var raw sectionHeaderRaw
		if err := p.r.PeekInto(off, &raw); err != nil {
			f.diag(SeverityWarning, "", int64(off),
				"section table truncated at entry %d: %v", i, err)
			return
		}
		s := &Section{
			Name:            sectionName(raw.Name),
			VirtualSize:     raw.VirtualSize,
			VirtualAddress:  raw.VirtualAddress,
			Size:            raw.SizeOfRawData,
			Offset:          raw.PointerToRawData,
			Characteristics: raw.Characteristics,
		}
		p.loadSectionContent(s, i)
		f.Sections = append(f.Sections, s)
	}
}

func sectionName(raw [8]byte) string {
	n := 0
	for n < len(raw) && raw[n] != 0 {
		n++
	}
	return string(raw[:n])
}

func (p *parser) loadSectionContent(s *Section, idx int) {
	f := p.f
	if s.Size == 0 {
		return
	}
	size := int(s.Size)
	if int(s.Offset) >= p.r.Len() {
		f.diag(SeverityWarning, "", int64(s.Offset),
			"section %d (%s) raw data outside image", idx, s.Name)
		return
	}
	if int(s.Offset)+size > p.r.Len() {
		size = p.r.Len() - int(s.Offset)
		f.diag(SeverityInfo, "", int64(s.Offset),
			"section %d (%s) raw data truncated to %d bytes", idx, s.Name, size)
	}
	if limit := f.opts.SectionContentLimit; limit > 0 && size > limit {
		size = limit
		f.diag(SeverityInfo, "", int64(s.Offset),
			"section %d (%s) content clamped to %d bytes", idx, s.Name, limit)
	}
	buf, err := p.r.PeekBytes(int(s.Offset), size)
	if err != nil {
		f.diag(SeverityWarning, "", int64(s.Offset),
			"section %d (%s) content unreadable: %v", idx, s.Name, err)
		return
	}
	s.Raw = buf
}

// parseDirectories walks every directory region in fixed order. The
// order matters: later regions consult section roles attributed by
// earlier ones, so reordering changes observable annotation results.
func (p *parser) parseDirectories() {
	f := p.f
	regions := []struct {
		name  string
		index int
		role  SectionRole
		skip  bool
		parse func(*parser, DataDirectory) error
	}{
		{"import", DirectoryImport, RoleImport, false, (*parser).parseImports},
		{"export", DirectoryExport, RoleExport, false, (*parser).parseExports},
		{"certificate", DirectorySecurity, RoleCertificate, f.opts.SkipCertificates, (*parser).parseCertificates},
		{"tls", DirectoryTLS, RoleTLS, false, (*parser).parseTLS},
		{"load config", DirectoryLoadConfig, RoleLoadConfig, false, (*parser).parseLoadConfig},
		{"relocation", DirectoryBaseReloc, RoleRelocation, false, (*parser).parseRelocations},
		{"debug", DirectoryDebug, RoleDebug, false, (*parser).parseDebug},
		{"resource", DirectoryResource, RoleResource, f.opts.SkipResources, (*parser).parseResources},
	}

	for _, reg := range regions {
		dd := f.DataDirectory(reg.index)
		if dd.VirtualAddress == 0 {
			f.diag(SeverityDebug, reg.name, -1, "directory absent")
			f.Regions = append(f.Regions, RegionResult{Name: reg.name, State: RegionAbsent})
			continue
		}
		if reg.skip {
			f.diag(SeverityInfo, reg.name, -1, "skipped by options")
			f.Regions = append(f.Regions, RegionResult{Name: reg.name, State: RegionAbsent})
			continue
		}

		// The certificate table is addressed by file offset, so it has
		// no owning section to annotate.
		if reg.index != DirectorySecurity {
			if si := f.SectionByRVA(dd.VirtualAddress); si >= 0 {
				f.DataDirectories[reg.index].SectionIndex = si
				f.Sections[si].Roles |= reg.role
				dd.SectionIndex = si
			}
		}

		if err := reg.parse(p, dd); err != nil {
			f.diag(SeverityWarning, reg.name, -1, "region failed: %v", err)
			f.Regions = append(f.Regions, RegionResult{Name: reg.name, State: RegionFailed, Err: err})
			continue
		}
		f.Regions = append(f.Regions, RegionResult{Name: reg.name, State: RegionDone})
	}
}

func (p *parser) computeOverlay() {
	f := p.f
	end := 0
	for _, s := range f.Sections {
		se := int(s.Offset) + int(s.Size)
		if se > end {
			end = se
		}
	}
	if end > p.r.Len() || end == 0 {
		end = p.r.Len()
	}
	f.OverlayOffset = int64(end)
}

// readWord peeks one pointer-sized little-endian value for the image's
// bit width, widened to 64 bits.
func (p *parser) readWord(off int) (uint64, error) {
	if p.f.Is64() {
		return p.r.PeekU64(off)
	}
	v, err := p.r.PeekU32(off)
	return uint64(v), err
}

func (f *File) reparser() *parser {
	return &parser{r: binary.NewReader(f.data), f: f}
}

type optionalHeader32 struct {
	Magic                   uint16
	MajorLinkerVersion      uint8
	MinorLinkerVersion      uint8
	SizeOfCode              uint32
	SizeOfInitializedData   uint32
	SizeOfUninitializedData uint32
	AddressOfEntryPoint     uint32
	BaseOfCode              uint32
	BaseOfData              uint32
	ImageBase               uint32
	SectionAlignment        uint32
	FileAlignment           uint32
	MajorOSVersion          uint16
	MinorOSVersion          uint16
	MajorImageVersion       uint16
	MinorImageVersion       uint16
	MajorSubsystemVersion   uint16
	MinorSubsystemVersion   uint16
	Win32VersionValue       uint32
	SizeOfImage             uint32
	SizeOfHeaders           uint32
	CheckSum                uint32
	Subsystem               uint16
	DllCharacteristics      uint16
	SizeOfStackReserve      uint32
	SizeOfStackCommit       uint32
	SizeOfHeapReserve       uint32
	SizeOfHeapCommit        uint32
	LoaderFlags             uint32
	NumberOfRvaAndSizes     uint32
}

func (h *optionalHeader32) unify() OptionalHeader {
	return OptionalHeader{
		Magic:                   h.Magic,
		MajorLinkerVersion:      h.MajorLinkerVersion,
		MinorLinkerVersion:      h.MinorLinkerVersion,
		SizeOfCode:              h.SizeOfCode,
		SizeOfInitializedData:   h.SizeOfInitializedData,
		SizeOfUninitializedData: h.SizeOfUninitializedData,
		AddressOfEntryPoint:     h.AddressOfEntryPoint,
		BaseOfCode:              h.BaseOfCode,
		BaseOfData:              h.BaseOfData,
		ImageBase:               uint64(h.ImageBase),
		SectionAlignment:        h.SectionAlignment,
		FileAlignment:           h.FileAlignment,
		MajorOSVersion:          h.MajorOSVersion,
		MinorOSVersion:          h.MinorOSVersion,
		MajorImageVersion:       h.MajorImageVersion,
		MinorImageVersion:       h.MinorImageVersion,
		MajorSubsystemVersion:   h.MajorSubsystemVersion,
		MinorSubsystemVersion:   h.MinorSubsystemVersion,
		Win32VersionValue:       h.Win32VersionValue,
		SizeOfImage:             h.SizeOfImage,
		SizeOfHeaders:           h.SizeOfHeaders,
		CheckSum:                h.CheckSum,
		Subsystem:               h.Subsystem,
		DllCharacteristics:      h.DllCharacteristics,
		SizeOfStackReserve:      uint64(h.SizeOfStackReserve),
		SizeOfStackCommit:       uint64(h.SizeOfStackCommit),
		SizeOfHeapReserve:       uint64(h.SizeOfHeapReserve),
		SizeOfHeapCommit:        uint64(h.SizeOfHeapCommit),
		LoaderFlags:             h.LoaderFlags,
		NumberOfRvaAndSizes:     h.NumberOfRvaAndSizes,
	}
}

type optionalHeader64 struct {
	Magic                   uint16
	MajorLinkerVersion      uint8
	MinorLinkerVersion      uint8
	SizeOfCode              uint32
	SizeOfInitializedData   uint32
	SizeOfUninitializedData uint32
	AddressOfEntryPoint     uint32
	BaseOfCode              uint32
	ImageBase               uint64
	SectionAlignment        uint32
	FileAlignment           uint32
	MajorOSVersion          uint16
	MinorOSVersion          uint16
	MajorImageVersion       uint16
	MinorImageVersion       uint16
	MajorSubsystemVersion   uint16
	MinorSubsystemVersion   uint16
	Win32VersionValue       uint32
	SizeOfImage             uint32
	SizeOfHeaders           uint32
	CheckSum                uint32
	Subsystem               uint16
	DllCharacteristics      uint16
	SizeOfStackReserve      uint64
	SizeOfStackCommit       uint64
	SizeOfHeapReserve       uint64
	SizeOfHeapCommit        uint64
	LoaderFlags             uint32
	NumberOfRvaAndSizes     uint32
}

func (h *optionalHeader64) unify() OptionalHeader {
	return OptionalHeader{
		Magic:                   h.Magic,
		MajorLinkerVersion:      h.MajorLinkerVersion,
		MinorLinkerVersion:      h.MinorLinkerVersion,
		SizeOfCode:              h.SizeOfCode,
		SizeOfInitializedData:   h.SizeOfInitializedData,
		SizeOfUninitializedData: h.SizeOfUninitializedData,
		AddressOfEntryPoint:     h.AddressOfEntryPoint,
		BaseOfCode:              h.BaseOfCode,
		ImageBase:               h.ImageBase,
		SectionAlignment:        h.SectionAlignment,
		FileAlignment:           h.FileAlignment,
		MajorOSVersion:          h.MajorOSVersion,
		MinorOSVersion:          h.MinorOSVersion,
		MajorImageVersion:       h.MajorImageVersion,
		MinorImageVersion:       h.MinorImageVersion,
		MajorSubsystemVersion:   h.MajorSubsystemVersion,
		MinorSubsystemVersion:   h.MinorSubsystemVersion,
		Win32VersionValue:       h.Win32VersionValue,
		SizeOfImage:             h.SizeOfImage,
		SizeOfHeaders:           h.SizeOfHeaders,
		CheckSum:                h.CheckSum,
		Subsystem:               h.Subsystem,
		DllCharacteristics:      h.DllCharacteristics,
		SizeOfStackReserve:      h.SizeOfStackReserve,
		SizeOfStackCommit:       h.SizeOfStackCommit,
		SizeOfHeapReserve:       h.SizeOfHeapReserve,
		SizeOfHeapCommit:        h.SizeOfHeapCommit,
		LoaderFlags:             h.LoaderFlags,
		NumberOfRvaAndSizes:     h.NumberOfRvaAndSizes,
	}
}
