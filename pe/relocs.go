package pe

// parseRelocations walks base-relocation blocks across the directory
// span. Blocks with an implausible size end the walk; the collected
// prefix is kept.
func (p *parser) parseRelocations(dd DataDirectory) error {
	f := p.f
	off, err := f.RVAToOffset(dd.VirtualAddress)
	if err != nil {
		return err
	}

	pos := int(off)
	end := int(off) + int(dd.Size)
	var blocks []Relocation
	for pos+8 <= end {
		if len(blocks) >= f.opts.MaxRelocBlocks {
			f.diag(SeverityWarning, "relocation", int64(pos),
				"block walk stopped at cap %d", f.opts.MaxRelocBlocks)
			break
		}
		va, err := p.r.PeekU32(pos)
		if err != nil {
			f.diag(SeverityWarning, "relocation", int64(pos),
				"block header unreadable after %d blocks: %v", len(blocks), err)
			break
		}
		blockSize, err := p.r.PeekU32(pos + 4)
		if err != nil {
			f.diag(SeverityWarning, "relocation", int64(pos+4),
				"block header unreadable after %d blocks: %v", len(blocks), err)
			break
		}
		if blockSize < 8 {
			f.diag(SeverityWarning, "relocation", int64(pos),
				"block size %d below header size, stopping", blockSize)
			break
		}

		count := int(blockSize-8) / 2
		if avail := (end - pos - 8) / 2; count > avail {
			f.diag(SeverityInfo, "relocation", int64(pos),
				"block at rva %#x truncated by directory size", va)
			count = avail
		}
		if count > f.opts.MaxRelocEntries {
			f.diag(SeverityWarning, "relocation", int64(pos),
				"block entry count %d clamped to cap %d", count, f.opts.MaxRelocEntries)
			count = f.opts.MaxRelocEntries
		}

		block := Relocation{VirtualAddress: va, BlockSize: blockSize}
		truncated := false
		for i := 0; i < count; i++ {
			v, err := p.r.PeekU16(pos + 8 + i*2)
			if err != nil {
				f.diag(SeverityWarning, "relocation", int64(pos+8+i*2),
					"block entries truncated after %d: %v", i, err)
				truncated = true
				break
			}
			block.Entries = append(block.Entries, RelocationEntry{
				Type:   v >> 12,
				Offset: v & 0x0fff,
			})
		}
		blocks = append(blocks, block)
		if truncated {
			break
		}
		pos += int(blockSize)
	}

	f.Relocations = blocks
	return nil
}

// ParseRelocations re-runs the relocation sub-parser against the
// retained image bytes, replacing File.Relocations.
func (f *File) ParseRelocations() error {
	f.Relocations = nil
	dd := f.DataDirectory(DirectoryBaseReloc)
	if dd.VirtualAddress == 0 {
		return nil
	}
	return f.reparser().parseRelocations(dd)
}
