package pe

import (
	"github.com/wippyai/pefile/errors"
)

type exportDirectory struct {
	Characteristics       uint32
	TimeDateStamp         uint32
	MajorVersion          uint16
	MinorVersion          uint16
	Name                  uint32
	Base                  uint32
	NumberOfFunctions     uint32
	NumberOfNames         uint32
	AddressOfFunctions    uint32
	AddressOfNames        uint32
	AddressOfNameOrdinals uint32
}

// parseExports decodes the export directory: the address table first,
// then names attached by ordinal index. A function whose address falls
// inside the export directory itself is a forwarder and carries the
// forwarder string instead of a resolvable address.
func (p *parser) parseExports(dd DataDirectory) error {
	f := p.f
	off, err := f.RVAToOffset(dd.VirtualAddress)
	if err != nil {
		return err
	}
	var raw exportDirectory
	if err := p.r.PeekInto(int(off), &raw); err != nil {
		return errors.StreamBounds(errors.PhaseDirectory, "export", int64(off), err)
	}

	e := &Export{
		TimeDateStamp: raw.TimeDateStamp,
		MajorVersion:  raw.MajorVersion,
		MinorVersion:  raw.MinorVersion,
		OrdinalBase:   raw.Base,
	}
	if raw.Name != 0 {
		if nameOff, err := f.RVAToOffset(raw.Name); err == nil {
			if name, err := p.r.PeekString(int(nameOff), f.opts.MaxStringLength); err == nil {
				e.Name = name
			}
		}
		if e.Name == "" {
			f.diag(SeverityInfo, "export", -1, "library name rva %#x unreadable", raw.Name)
		}
	}

	nf := int(raw.NumberOfFunctions)
	if nf > f.opts.MaxExportEntries {
		f.diag(SeverityWarning, "export", -1,
			"function count %d clamped to cap %d", nf, f.opts.MaxExportEntries)
		nf = f.opts.MaxExportEntries
	}

	entries := make([]ExportEntry, nf)
	if nf > 0 {
		funcsOff, err := f.RVAToOffset(raw.AddressOfFunctions)
		if err != nil {
			f.diag(SeverityWarning, "export", -1,
				"address table rva %#x unmapped", raw.AddressOfFunctions)
			nf = 0
			entries = nil
		} else {
			for i := 0; i < nf; i++ {
				addr, err := p.r.PeekU32(int(funcsOff) + i*4)
				if err != nil {
					f.diag(SeverityWarning, "export", int64(int(funcsOff)+i*4),
						"address table truncated after %d entries: %v", i, err)
					entries = entries[:i]
					nf = i
					break
				}
				entries[i] = ExportEntry{Ordinal: raw.Base + uint32(i), Address: addr}
				// Forwarded exports point back into the directory span.
				if addr >= dd.VirtualAddress && addr < dd.VirtualAddress+dd.Size {
					if fwdOff, err := f.RVAToOffset(addr); err == nil {
						if fwd, err := p.r.PeekString(int(fwdOff), f.opts.MaxStringLength); err == nil {
							entries[i].Forwarder = fwd
						}
					}
				}
			}
		}
	}

	p.attachExportNames(&raw, entries)

	// Keep only slots that resolve to something.
	for _, entry := range entries {
		if entry.Address != 0 || entry.Name != "" {
			e.Entries = append(e.Entries, entry)
		}
	}

	f.Export = e
	return nil
}

func (p *parser) attachExportNames(raw *exportDirectory, entries []ExportEntry) {
	f := p.f
	nn := int(raw.NumberOfNames)
	if nn == 0 || len(entries) == 0 {
		return
	}
	if nn > f.opts.MaxExportEntries {
		f.diag(SeverityWarning, "export", -1,
			"name count %d clamped to cap %d", nn, f.opts.MaxExportEntries)
		nn = f.opts.MaxExportEntries
	}
	namesOff, err := f.RVAToOffset(raw.AddressOfNames)
	if err != nil {
		f.diag(SeverityWarning, "export", -1, "name table rva %#x unmapped", raw.AddressOfNames)
		return
	}
	ordsOff, err := f.RVAToOffset(raw.AddressOfNameOrdinals)
	if err != nil {
		f.diag(SeverityWarning, "export", -1,
			"ordinal table rva %#x unmapped", raw.AddressOfNameOrdinals)
		return
	}

	for i := 0; i < nn; i++ {
		nameRVA, err := p.r.PeekU32(int(namesOff) + i*4)
		if err != nil {
			f.diag(SeverityWarning, "export", int64(int(namesOff)+i*4),
				"name table truncated after %d entries: %v", i, err)
			return
		}
		ord, err := p.r.PeekU16(int(ordsOff) + i*2)
		if err != nil {
			f.diag(SeverityWarning, "export", int64(int(ordsOff)+i*2),
				"ordinal table truncated after %d entries: %v", i, err)
			return
		}
		if int(ord) >= len(entries) {
			f.diag(SeverityWarning, "export", -1,
				"name %d ordinal index %d out of range, discarding", i, ord)
			continue
		}
		nameOff, err := f.RVAToOffset(nameRVA)
		if err != nil {
			f.diag(SeverityWarning, "export", -1,
				"name %d rva %#x unmapped, discarding", i, nameRVA)
			continue
		}
		name, err := p.r.PeekString(int(nameOff), f.opts.MaxStringLength)
		if err != nil {
			f.diag(SeverityWarning, "export", int64(nameOff),
				"name %d unreadable, discarding: %v", i, err)
			continue
		}
		if !validImportName(name) {
			f.diag(SeverityWarning, "export", int64(nameOff),
				"name %d %q invalid, discarding", i, name)
			continue
		}
		entries[ord].Name = name
	}
}

// ParseExports re-runs the export sub-parser against the retained image
// bytes, replacing File.Export.
func (f *File) ParseExports() error {
	f.Export = nil
	dd := f.DataDirectory(DirectoryExport)
	if dd.VirtualAddress == 0 {
		return nil
	}
	return f.reparser().parseExports(dd)
}
