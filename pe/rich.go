package pe

// parseRichHeader recovers the undocumented toolchain record hidden in
// the DOS stub: a "DanS" block XOR-masked with the key stored after the
// trailing "Rich" marker. Absence is normal; nothing here ever fails
// the parse.
func (p *parser) parseRichHeader() {
	f := p.f
	stubEnd := int(f.DOSHeader.PEOffset)
	if stubEnd > p.r.Len() {
		stubEnd = p.r.Len()
	}
	if stubEnd > dosHeaderSize {
		if stub, err := p.r.PeekBytes(dosHeaderSize, stubEnd-dosHeaderSize); err == nil {
			f.DOSStub = stub
		}
	}

	for off := dosHeaderSize; off+8 <= stubEnd; off += 4 {
		v, err := p.r.PeekU32(off)
		if err != nil {
			return
		}
		if v != richMarker {
			continue
		}
		key, err := p.r.PeekU32(off + 4)
		if err != nil {
			return
		}
		if rich := p.decodeRich(off, key); rich != nil {
			f.Rich = rich
		}
		return
	}
}

// decodeRich walks backwards from the marker in 8-byte pairs until the
// masked "DanS" anchor. The three padding words after the anchor decode
// to zero pairs and are skipped.
func (p *parser) decodeRich(markerOff int, key uint32) *RichHeader {
	var records []RichRecord
	start := -1
	for pos := markerOff - 8; pos >= dosHeaderSize; pos -= 8 {
		v1, err := p.r.PeekU32(pos)
		if err != nil {
			return nil
		}
		v2, err := p.r.PeekU32(pos + 4)
		if err != nil {
			return nil
		}
		v1 ^= key
		v2 ^= key
		if v1 == dansMarker {
			start = pos
			break
		}
		if v1 == 0 && v2 == 0 {
			continue
		}
		records = append(records, RichRecord{
			ProductID: uint16(v1 >> 16),
			BuildID:   uint16(v1),
			Count:     v2,
		})
	}
	if start < 0 {
		p.f.diag(SeverityDebug, "", int64(markerOff), "rich marker without DanS anchor")
		return nil
	}

	// records were gathered back-to-front
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return &RichHeader{XORKey: key, Offset: int64(start), Records: records}
}
