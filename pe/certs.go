package pe

import (
	"github.com/wippyai/pefile/errors"
)

// parseCertificates walks the attribute certificate table. Unlike every
// other directory, the security entry's virtual_address field is a
// plain file offset, so no translation happens here. Entries are
// 8-byte aligned.
func (p *parser) parseCertificates(dd DataDirectory) error {
	f := p.f
	start := int(dd.VirtualAddress)
	end := start + int(dd.Size)
	if start >= p.r.Len() {
		return errors.New(errors.PhaseDirectory, errors.KindStreamBounds).
			Region("certificate").
			Offset(int64(start)).
			Detail("table offset outside image (%d bytes)", p.r.Len()).
			Build()
	}
	if end > p.r.Len() {
		f.diag(SeverityInfo, "certificate", int64(start),
			"table extends past image end, clamping")
		end = p.r.Len()
	}

	var certs []Certificate
	pos := start
	for pos+8 <= end {
		if len(certs) >= f.opts.MaxCertificates {
			f.diag(SeverityWarning, "certificate", int64(pos),
				"table walk stopped at cap %d", f.opts.MaxCertificates)
			break
		}
		length, err := p.r.PeekU32(pos)
		if err != nil {
			f.diag(SeverityWarning, "certificate", int64(pos), "entry header unreadable: %v", err)
			break
		}
		revision, err := p.r.PeekU16(pos + 4)
		if err != nil {
			f.diag(SeverityWarning, "certificate", int64(pos+4), "entry header unreadable: %v", err)
			break
		}
		certType, err := p.r.PeekU16(pos + 6)
		if err != nil {
			f.diag(SeverityWarning, "certificate", int64(pos+6), "entry header unreadable: %v", err)
			break
		}
		if length < 8 {
			f.diag(SeverityWarning, "certificate", int64(pos),
				"entry length %d below header size, stopping", length)
			break
		}

		dataLen := int(length) - 8
		if pos+8+dataLen > end {
			f.diag(SeverityInfo, "certificate", int64(pos),
				"entry truncated by table end")
			dataLen = end - pos - 8
		}
		raw, err := p.r.PeekBytes(pos+8, dataLen)
		if err != nil {
			f.diag(SeverityWarning, "certificate", int64(pos+8), "entry data unreadable: %v", err)
			break
		}
		certs = append(certs, Certificate{
			Length:   length,
			Revision: revision,
			Type:     certType,
			Raw:      raw,
		})

		// next entry is 8-byte aligned
		pos += (int(length) + 7) &^ 7
	}

	f.Certificates = certs
	return nil
}

// ParseCertificates re-runs the certificate sub-parser against the
// retained image bytes, replacing File.Certificates.
func (f *File) ParseCertificates() error {
	f.Certificates = nil
	dd := f.DataDirectory(DirectorySecurity)
	if dd.VirtualAddress == 0 {
		return nil
	}
	return f.reparser().parseCertificates(dd)
}
