package pe

import (
	"github.com/wippyai/pefile/errors"
)

const minImportNameLen = 2

// validImportName is the validity predicate shared by library names and
// entry names: minimum length and printable ASCII throughout.
func validImportName(name string) bool {
	if len(name) < minImportNameLen {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] < 0x20 || name[i] >= 0x7f {
			return false
		}
	}
	return true
}

type importDescriptor struct {
	OriginalFirstThunk uint32
	TimeDateStamp      uint32
	ForwarderChain     uint32
	Name               uint32
	FirstThunk         uint32
}

// parseImports streams import descriptors from the resolved directory
// offset until a record whose name field is zero (a terminator, not a
// count). Recovery is two-tier: an invalid library name discards the
// whole descriptor, an invalid entry discards only that entry.
func (p *parser) parseImports(dd DataDirectory) error {
	f := p.f
	off, err := f.RVAToOffset(dd.VirtualAddress)
	if err != nil {
		return err
	}

	var imports []Import
	for i := 0; ; i++ {
		if i >= f.opts.MaxImportDescriptors {
			f.diag(SeverityWarning, "import", int64(off),
				"descriptor walk stopped at cap %d", f.opts.MaxImportDescriptors)
			break
		}
		descOff := int(off) + i*importDescriptorSize
		var d importDescriptor
		if err := p.r.PeekInto(descOff, &d); err != nil {
			if i == 0 {
				return errors.StreamBounds(errors.PhaseDirectory, "import", int64(descOff), err)
			}
			f.diag(SeverityWarning, "import", int64(descOff),
				"descriptor table truncated after %d entries: %v", i, err)
			break
		}
		if d.Name == 0 {
			break
		}

		nameOff, err := f.RVAToOffset(d.Name)
		if err != nil {
			f.diag(SeverityWarning, "import", int64(descOff),
				"descriptor %d name rva %#x unmapped, discarding", i, d.Name)
			continue
		}
		name, err := p.r.PeekString(int(nameOff), f.opts.MaxStringLength)
		if err != nil {
			f.diag(SeverityWarning, "import", int64(nameOff),
				"descriptor %d name unreadable, discarding: %v", i, err)
			continue
		}
		if !validImportName(name) {
			f.diag(SeverityWarning, "import", int64(nameOff),
				"descriptor %d library name %q invalid, discarding", i, name)
			continue
		}

		imp := Import{
			Library:          name,
			DescriptorOffset: int64(descOff),
			LookupTableRVA:   d.OriginalFirstThunk,
			TimeDateStamp:    d.TimeDateStamp,
			ForwarderChain:   d.ForwarderChain,
			NameRVA:          d.Name,
			AddressTableRVA:  d.FirstThunk,
		}
		imp.Entries = p.parseThunks(name, d.OriginalFirstThunk, d.FirstThunk)
		imports = append(imports, imp)
	}

	f.Imports = imports
	return nil
}

// parseThunks walks the lookup and address tables in parallel,
// word-sized steps, advancing both independently. Either table may be
// absent; at each step whichever table currently holds a non-zero value
// supplies the entry, and the walk ends only when both yield zero.
// Malformed images rely on this exact rule, so it is not reducible to
// "shorter table wins" or "longer table wins".
func (p *parser) parseThunks(library string, lookupRVA, addrRVA uint32) []ImportEntry {
	f := p.f
	step := f.ptrSize()
	flag := f.ordinalFlag()

	var lookupOff, addrOff uint32
	lookupOK := lookupRVA != 0
	addrOK := addrRVA != 0
	if lookupOK {
		var err error
		lookupOff, err = f.RVAToOffset(lookupRVA)
		if err != nil {
			f.diag(SeverityDebug, "import", -1,
				"%s: lookup table rva %#x unmapped", library, lookupRVA)
			lookupOK = false
		}
	}
	if addrOK {
		var err error
		addrOff, err = f.RVAToOffset(addrRVA)
		if err != nil {
			f.diag(SeverityDebug, "import", -1,
				"%s: address table rva %#x unmapped", library, addrRVA)
			addrOK = false
		}
	}
	if !lookupOK && !addrOK {
		f.diag(SeverityWarning, "import", -1, "%s: no reachable thunk table", library)
		return nil
	}

	var entries []ImportEntry
	for i := 0; ; i++ {
		if i >= f.opts.MaxThunks {
			f.diag(SeverityWarning, "import", -1,
				"%s: thunk walk stopped at cap %d", library, f.opts.MaxThunks)
			break
		}

		var lval, aval uint64
		if lookupOK {
			v, err := p.readWord(int(lookupOff) + i*step)
			if err != nil {
				f.diag(SeverityDebug, "import", int64(int(lookupOff)+i*step),
					"%s: lookup table ends unterminated: %v", library, err)
				lookupOK = false
			} else {
				lval = v
			}
		}
		if addrOK {
			v, err := p.readWord(int(addrOff) + i*step)
			if err != nil {
				f.diag(SeverityDebug, "import", int64(int(addrOff)+i*step),
					"%s: address table ends unterminated: %v", library, err)
				addrOK = false
			} else {
				aval = v
			}
		}
		if !lookupOK && !addrOK {
			break
		}
		if lval == 0 && aval == 0 {
			break
		}

		data := lval
		if data == 0 {
			data = aval
		}
		entry := ImportEntry{
			Data:       data,
			IATAddress: addrRVA + uint32(i*step),
		}

		if data&flag != 0 {
			ord := uint16(data)
			entry.Ordinal = &ord
			entries = append(entries, entry)
			continue
		}

		// Name-form: the low 31 bits are the rva of a (hint, name) pair.
		// A bad entry discards only itself, the walk continues.
		hintRVA := uint32(data & 0x7fffffff)
		hintOff, err := f.RVAToOffset(hintRVA)
		if err != nil {
			f.diag(SeverityWarning, "import", -1,
				"%s: entry %d hint/name rva %#x unmapped, discarding entry", library, i, hintRVA)
			continue
		}
		hint, err := p.r.PeekU16(int(hintOff))
		if err != nil {
			f.diag(SeverityWarning, "import", int64(hintOff),
				"%s: entry %d hint unreadable, discarding entry: %v", library, i, err)
			continue
		}
		name, err := p.r.PeekString(int(hintOff)+2, f.opts.MaxStringLength)
		if err != nil {
			f.diag(SeverityWarning, "import", int64(hintOff),
				"%s: entry %d name unreadable, discarding entry: %v", library, i, err)
			continue
		}
		if !validImportName(name) {
			f.diag(SeverityWarning, "import", int64(hintOff),
				"%s: entry %d name %q invalid, discarding entry", library, i, name)
			continue
		}
		entry.Hint = hint
		entry.Name = name
		entries = append(entries, entry)
	}
	return entries
}

// ParseImports re-runs the import sub-parser against the retained image
// bytes, replacing File.Imports.
func (f *File) ParseImports() error {
	f.Imports = nil
	dd := f.DataDirectory(DirectoryImport)
	if dd.VirtualAddress == 0 {
		return nil
	}
	return f.reparser().parseImports(dd)
}
