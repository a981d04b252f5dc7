package pe

import (
	"github.com/wippyai/pefile/errors"
)

type debugEntryRaw struct {
	Characteristics  uint32
	TimeDateStamp    uint32
	MajorVersion     uint16
	MinorVersion     uint16
	Type             uint32
	SizeOfData       uint32
	AddressOfRawData uint32
	PointerToRawData uint32
}

// parseDebug reads the debug directory's fixed-size entries and, for
// CodeView records, the RSDS payload linking the image to its PDB.
func (p *parser) parseDebug(dd DataDirectory) error {
	f := p.f
	off, err := f.RVAToOffset(dd.VirtualAddress)
	if err != nil {
		return err
	}

	count := int(dd.Size) / debugEntrySize
	if count == 0 {
		f.diag(SeverityInfo, "debug", int64(off), "directory size %d holds no entries", dd.Size)
		return nil
	}
	if count > f.opts.MaxDebugEntries {
		f.diag(SeverityWarning, "debug", int64(off),
			"entry count %d clamped to cap %d", count, f.opts.MaxDebugEntries)
		count = f.opts.MaxDebugEntries
	}

	var entries []DebugEntry
	for i := 0; i < count; i++ {
		entryOff := int(off) + i*debugEntrySize
		var raw debugEntryRaw
		if err := p.r.PeekInto(entryOff, &raw); err != nil {
			if i == 0 {
				return errors.StreamBounds(errors.PhaseDirectory, "debug", int64(entryOff), err)
			}
			f.diag(SeverityWarning, "debug", int64(entryOff),
				"entry table truncated after %d entries: %v", i, err)
			break
		}
		entry := DebugEntry{
			Characteristics:  raw.Characteristics,
			TimeDateStamp:    raw.TimeDateStamp,
			MajorVersion:     raw.MajorVersion,
			MinorVersion:     raw.MinorVersion,
			Type:             raw.Type,
			SizeOfData:       raw.SizeOfData,
			AddressOfRawData: raw.AddressOfRawData,
			PointerToRawData: raw.PointerToRawData,
		}
		if raw.Type == DebugTypeCodeView {
			entry.CodeView = p.parseCodeView(&raw)
		}
		entries = append(entries, entry)
	}

	f.DebugEntries = entries
	return nil
}

// parseCodeView decodes an RSDS payload. The raw-data pointer is
// already a file offset. Any failure leaves the entry without CodeView
// rather than failing the region.
func (p *parser) parseCodeView(raw *debugEntryRaw) *CodeView {
	f := p.f
	// sig + guid + age is the minimum RSDS payload
	if raw.PointerToRawData == 0 || raw.SizeOfData < 24 {
		return nil
	}
	off := int(raw.PointerToRawData)
	sig, err := p.r.PeekU32(off)
	if err != nil {
		f.diag(SeverityInfo, "debug", int64(off), "codeview payload unreadable: %v", err)
		return nil
	}
	if sig != codeViewRSDS {
		f.diag(SeverityDebug, "debug", int64(off), "codeview signature %#x is not RSDS", sig)
		return nil
	}
	cv := &CodeView{}
	guid, err := p.r.PeekBytes(off+4, 16)
	if err != nil {
		f.diag(SeverityInfo, "debug", int64(off), "codeview guid unreadable: %v", err)
		return nil
	}
	copy(cv.GUID[:], guid)
	cv.Age, err = p.r.PeekU32(off + 20)
	if err != nil {
		f.diag(SeverityInfo, "debug", int64(off), "codeview age unreadable: %v", err)
		return nil
	}
	cv.PDB, err = p.r.PeekString(off+24, f.opts.MaxStringLength)
	if err != nil {
		f.diag(SeverityInfo, "debug", int64(off), "codeview pdb path unreadable: %v", err)
		return nil
	}
	return cv
}

// ParseDebug re-runs the debug sub-parser against the retained image
// bytes, replacing File.DebugEntries.
func (f *File) ParseDebug() error {
	f.DebugEntries = nil
	dd := f.DataDirectory(DirectoryDebug)
	if dd.VirtualAddress == 0 {
		return nil
	}
	return f.reparser().parseDebug(dd)
}
