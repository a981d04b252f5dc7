package pe

import (
	"unicode/utf16"

	"github.com/wippyai/pefile/errors"
)

const maxResourceNameLen = 256

type resourceDirectoryRaw struct {
	Characteristics      uint32
	TimeDateStamp        uint32
	MajorVersion         uint16
	MinorVersion         uint16
	NumberOfNamedEntries uint16
	NumberOfIDEntries    uint16
}

type resourceWalker struct {
	p      *parser
	base   int // file offset of the resource section start
	budget int
}

// parseResources decodes the resource tree to a bounded depth. All
// inner-node offsets are relative to the tree's base; only an
// unreachable root fails the region.
func (p *parser) parseResources(dd DataDirectory) error {
	f := p.f
	base, err := f.RVAToOffset(dd.VirtualAddress)
	if err != nil {
		return err
	}
	w := &resourceWalker{p: p, base: int(base), budget: f.opts.MaxResourceEntries}
	root, err := w.directory(0, 0)
	if err != nil {
		return err
	}
	f.Resources = root
	return nil
}

func (w *resourceWalker) directory(rel uint32, depth int) (*ResourceDirectory, error) {
	p := w.p
	f := p.f
	off := w.base + int(rel)

	var raw resourceDirectoryRaw
	if err := p.r.PeekInto(off, &raw); err != nil {
		if depth == 0 {
			return nil, errors.StreamBounds(errors.PhaseDirectory, "resource", int64(off), err)
		}
		f.diag(SeverityWarning, "resource", int64(off),
			"subdirectory header unreadable at depth %d: %v", depth, err)
		return nil, nil
	}

	dir := &ResourceDirectory{
		Characteristics: raw.Characteristics,
		TimeDateStamp:   raw.TimeDateStamp,
		MajorVersion:    raw.MajorVersion,
		MinorVersion:    raw.MinorVersion,
	}

	n := int(raw.NumberOfNamedEntries) + int(raw.NumberOfIDEntries)
	for i := 0; i < n; i++ {
		if w.budget <= 0 {
			f.diag(SeverityWarning, "resource", int64(off),
				"tree walk stopped at cap %d entries", f.opts.MaxResourceEntries)
			break
		}
		w.budget--

		entryOff := off + 16 + i*8
		nameOrID, err := p.r.PeekU32(entryOff)
		if err != nil {
			f.diag(SeverityWarning, "resource", int64(entryOff),
				"entry table truncated after %d entries: %v", i, err)
			break
		}
		target, err := p.r.PeekU32(entryOff + 4)
		if err != nil {
			f.diag(SeverityWarning, "resource", int64(entryOff+4),
				"entry table truncated after %d entries: %v", i, err)
			break
		}

		entry := ResourceEntry{}
		if nameOrID&0x80000000 != 0 {
			entry.Name = w.name(nameOrID & 0x7fffffff)
		} else {
			entry.ID = nameOrID
		}

		if target&0x80000000 != 0 {
			if depth+1 >= f.opts.MaxResourceDepth {
				f.diag(SeverityWarning, "resource", int64(entryOff),
					"subdirectory beyond depth cap %d, pruning", f.opts.MaxResourceDepth)
			} else {
				sub, _ := w.directory(target&0x7fffffff, depth+1)
				entry.Directory = sub
			}
		} else {
			entry.Data = w.data(target)
		}
		dir.Entries = append(dir.Entries, entry)
	}
	return dir, nil
}

// name decodes a length-prefixed UTF-16 resource name.
func (w *resourceWalker) name(rel uint32) string {
	p := w.p
	off := w.base + int(rel)
	n, err := p.r.PeekU16(off)
	if err != nil {
		p.f.diag(SeverityInfo, "resource", int64(off), "name length unreadable: %v", err)
		return ""
	}
	if n > maxResourceNameLen {
		n = maxResourceNameLen
	}
	units := make([]uint16, 0, n)
	for i := 0; i < int(n); i++ {
		u, err := p.r.PeekU16(off + 2 + i*2)
		if err != nil {
			p.f.diag(SeverityInfo, "resource", int64(off), "name truncated: %v", err)
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

func (w *resourceWalker) data(rel uint32) *ResourceData {
	p := w.p
	f := p.f
	off := w.base + int(rel)

	var raw struct {
		DataRVA  uint32
		Size     uint32
		CodePage uint32
		Reserved uint32
	}
	if err := p.r.PeekInto(off, &raw); err != nil {
		f.diag(SeverityInfo, "resource", int64(off), "data entry unreadable: %v", err)
		return nil
	}
	rd := &ResourceData{DataRVA: raw.DataRVA, Size: raw.Size, CodePage: raw.CodePage}

	size := int(raw.Size)
	if size > f.opts.MaxResourceData {
		f.diag(SeverityInfo, "resource", int64(off),
			"leaf %d bytes clamped to cap %d", size, f.opts.MaxResourceData)
		size = f.opts.MaxResourceData
	}
	if size > 0 {
		dataOff, err := f.RVAToOffset(raw.DataRVA)
		if err != nil {
			f.diag(SeverityInfo, "resource", int64(off),
				"leaf rva %#x unmapped", raw.DataRVA)
			return rd
		}
		content, err := p.r.PeekBytes(int(dataOff), size)
		if err != nil {
			f.diag(SeverityInfo, "resource", int64(dataOff), "leaf content unreadable: %v", err)
			return rd
		}
		rd.Content = content
	}
	return rd
}

// ParseResources re-runs the resource sub-parser against the retained
// image bytes, replacing File.Resources.
func (f *File) ParseResources() error {
	f.Resources = nil
	dd := f.DataDirectory(DirectoryResource)
	if dd.VirtualAddress == 0 {
		return nil
	}
	return f.reparser().parseResources(dd)
}
