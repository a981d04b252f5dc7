package pe

import (
	"github.com/wippyai/pefile/errors"
)

type tlsDirectory32 struct {
	StartAddressOfRawData uint32
	EndAddressOfRawData   uint32
	AddressOfIndex        uint32
	AddressOfCallBacks    uint32
	SizeOfZeroFill        uint32
	Characteristics       uint32
}

type tlsDirectory64 struct {
	StartAddressOfRawData uint64
	EndAddressOfRawData   uint64
	AddressOfIndex        uint64
	AddressOfCallBacks    uint64
	SizeOfZeroFill        uint32
	Characteristics       uint32
}

// parseTLS materializes the thread-local data template and the
// zero-terminated callback list. The template requires start < end and
// both bounds translating after rebase; any failure there yields an
// empty template, not a region failure, and callbacks still parse
// independently.
func (p *parser) parseTLS(dd DataDirectory) error {
	f := p.f
	off, err := f.RVAToOffset(dd.VirtualAddress)
	if err != nil {
		return err
	}

	t := &TLS{}
	if f.Is64() {
		var raw tlsDirectory64
		if err := p.r.PeekInto(int(off), &raw); err != nil {
			return errors.StreamBounds(errors.PhaseDirectory, "tls", int64(off), err)
		}
		t.StartRaw = raw.StartAddressOfRawData
		t.EndRaw = raw.EndAddressOfRawData
		t.AddressOfIndex = raw.AddressOfIndex
		t.AddressOfCallbacks = raw.AddressOfCallBacks
		t.SizeOfZeroFill = raw.SizeOfZeroFill
		t.Characteristics = raw.Characteristics
	} else {
		var raw tlsDirectory32
		if err := p.r.PeekInto(int(off), &raw); err != nil {
			return errors.StreamBounds(errors.PhaseDirectory, "tls", int64(off), err)
		}
		t.StartRaw = uint64(raw.StartAddressOfRawData)
		t.EndRaw = uint64(raw.EndAddressOfRawData)
		t.AddressOfIndex = uint64(raw.AddressOfIndex)
		t.AddressOfCallbacks = uint64(raw.AddressOfCallBacks)
		t.SizeOfZeroFill = raw.SizeOfZeroFill
		t.Characteristics = raw.Characteristics
	}

	p.loadTLSTemplate(t)
	p.loadTLSCallbacks(t)

	f.TLS = t
	return nil
}

func (p *parser) loadTLSTemplate(t *TLS) {
	f := p.f
	if t.StartRaw >= t.EndRaw {
		if t.StartRaw > t.EndRaw {
			f.diag(SeverityWarning, "tls", -1,
				"data template range inverted (%#x >= %#x), leaving empty", t.StartRaw, t.EndRaw)
		}
		return
	}
	size := t.EndRaw - t.StartRaw
	if size > uint64(f.opts.MaxTLSTemplate) {
		f.diag(SeverityWarning, "tls", -1,
			"data template %d bytes clamped to cap %d", size, f.opts.MaxTLSTemplate)
		size = uint64(f.opts.MaxTLSTemplate)
	}

	startOff, serr := f.VAToOffset(t.StartRaw)
	_, eerr := f.VAToOffset(t.StartRaw + size - 1)
	if serr != nil || eerr != nil {
		f.diag(SeverityWarning, "tls", -1, "data template does not translate, leaving empty")
		return
	}
	buf, err := p.r.PeekBytes(int(startOff), int(size))
	if err != nil {
		f.diag(SeverityWarning, "tls", int64(startOff),
			"data template unreadable, leaving empty: %v", err)
		return
	}
	t.Template = buf
}

// loadTLSCallbacks reads pointer-sized callback addresses until a zero
// terminator or the hard cap, whichever comes first. The cap bounds
// memory against a corrupted non-terminated array.
func (p *parser) loadTLSCallbacks(t *TLS) {
	f := p.f
	if t.AddressOfCallbacks == 0 {
		return
	}
	cbOff, err := f.VAToOffset(t.AddressOfCallbacks)
	if err != nil {
		f.diag(SeverityWarning, "tls", -1,
			"callback array va %#x unmapped", t.AddressOfCallbacks)
		return
	}
	step := f.ptrSize()
	for i := 0; ; i++ {
		if i >= f.opts.MaxTLSCallbacks {
			f.diag(SeverityWarning, "tls", -1,
				"callback list stopped at cap %d without terminator", f.opts.MaxTLSCallbacks)
			break
		}
		v, err := p.readWord(int(cbOff) + i*step)
		if err != nil {
			f.diag(SeverityWarning, "tls", int64(int(cbOff)+i*step),
				"callback array truncated after %d entries: %v", i, err)
			break
		}
		if v == 0 {
			break
		}
		t.Callbacks = append(t.Callbacks, v)
	}
}

// ParseTLS re-runs the TLS sub-parser against the retained image bytes,
// replacing File.TLS.
func (f *File) ParseTLS() error {
	f.TLS = nil
	dd := f.DataDirectory(DirectoryTLS)
	if dd.VirtualAddress == 0 {
		return nil
	}
	return f.reparser().parseTLS(dd)
}
