package pe

import (
	"github.com/wippyai/pefile/errors"
	"github.com/wippyai/pefile/pe/internal/binary"
)

// parseLoadConfig peeks the leading size field, selects the historical
// layout that fits, and decodes exactly that layout. A read failure at
// the chosen size degrades to "no load configuration" with a
// diagnostic; a present-but-unparseable directory must not block the
// remaining regions.
func (p *parser) parseLoadConfig(dd DataDirectory) error {
	f := p.f
	off, err := f.RVAToOffset(dd.VirtualAddress)
	if err != nil {
		return err
	}
	observed, err := p.r.PeekU32(int(off))
	if err != nil {
		return errors.StreamBounds(errors.PhaseDirectory, "load config", int64(off), err)
	}

	v := selectLoadConfigVersion(observed, loadConfigSizeTable(f.Is64()))
	if v == LoadConfigUnknown {
		f.diag(SeverityWarning, "load config", int64(off),
			"size %#x below smallest known layout", observed)
		f.LoadConfig = &LoadConfig{Version: LoadConfigUnknown, Size: observed}
		return nil
	}

	lc, err := p.decodeLoadConfig(int(off), v)
	if err != nil {
		f.diag(SeverityWarning, "load config", int64(off),
			"unreadable at %s layout, dropping: %v", v, err)
		return nil
	}
	f.LoadConfig = lc
	return nil
}

// fieldReader reads consecutive load-config fields with a sticky error,
// widening pointer fields to 64 bits.
type fieldReader struct {
	r    *binary.Reader
	is64 bool
	err  error
}

func (d *fieldReader) u16() uint16 {
	if d.err != nil {
		return 0
	}
	v, err := d.r.ReadU16()
	d.err = err
	return v
}

func (d *fieldReader) u32() uint32 {
	if d.err != nil {
		return 0
	}
	v, err := d.r.ReadU32()
	d.err = err
	return v
}

func (d *fieldReader) ptr() uint64 {
	if d.err != nil {
		return 0
	}
	if d.is64 {
		v, err := d.r.ReadU64()
		d.err = err
		return v
	}
	v, err := d.r.ReadU32()
	d.err = err
	return uint64(v)
}

func (p *parser) decodeLoadConfig(off int, v LoadConfigVersion) (*LoadConfig, error) {
	is64 := p.f.Is64()
	p.r.SetPos(off)
	d := &fieldReader{r: p.r, is64: is64}

	lc := &LoadConfig{Version: v}
	lc.Size = d.u32()
	lc.TimeDateStamp = d.u32()
	lc.MajorVersion = d.u16()
	lc.MinorVersion = d.u16()
	lc.GlobalFlagsClear = d.u32()
	lc.GlobalFlagsSet = d.u32()
	lc.CriticalSectionDefaultTimeout = d.u32()
	lc.DeCommitFreeBlockThreshold = d.ptr()
	lc.DeCommitTotalFreeThreshold = d.ptr()
	lc.LockPrefixTable = d.ptr()
	lc.MaximumAllocationSize = d.ptr()
	lc.VirtualMemoryThreshold = d.ptr()
	// The 32-bit layout puts ProcessHeapFlags before the affinity mask,
	// the 64-bit layout the other way around.
	if is64 {
		lc.ProcessAffinityMask = d.ptr()
		lc.ProcessHeapFlags = d.u32()
	} else {
		lc.ProcessHeapFlags = d.u32()
		lc.ProcessAffinityMask = d.ptr()
	}
	lc.CSDVersion = d.u16()
	lc.DependentLoadFlags = d.u16()
	lc.EditList = d.ptr()
	lc.SecurityCookie = d.ptr()

	if v >= LoadConfigV1 {
		lc.SEHandlerTable = d.ptr()
		lc.SEHandlerCount = d.ptr()
	}
	if v >= LoadConfigV2 {
		lc.GuardCFCheckFunctionPointer = d.ptr()
		lc.GuardCFDispatchFunctionPointer = d.ptr()
		lc.GuardCFFunctionTable = d.ptr()
		lc.GuardCFFunctionCount = d.ptr()
		lc.GuardFlags = d.u32()
	}
	if v >= LoadConfigV3 {
		lc.CodeIntegrity.Flags = d.u16()
		lc.CodeIntegrity.Catalog = d.u16()
		lc.CodeIntegrity.CatalogOffset = d.u32()
		lc.CodeIntegrity.Reserved = d.u32()
	}
	if v >= LoadConfigV4 {
		lc.GuardAddressTakenIATEntryTable = d.ptr()
		lc.GuardAddressTakenIATEntryCount = d.ptr()
		lc.GuardLongJumpTargetTable = d.ptr()
		lc.GuardLongJumpTargetCount = d.ptr()
	}
	if v >= LoadConfigV5 {
		lc.DynamicValueRelocTable = d.ptr()
		lc.CHPEMetadataPointer = d.ptr()
	}
	if v >= LoadConfigV6 {
		lc.GuardRFFailureRoutine = d.ptr()
		lc.GuardRFFailureRoutineFunctionPointer = d.ptr()
		lc.DynamicValueRelocTableOffset = d.u32()
		lc.DynamicValueRelocTableSection = d.u16()
		lc.Reserved2 = d.u16()
	}
	if v >= LoadConfigV7 {
		lc.GuardRFVerifyStackPointerFunctionPointer = d.ptr()
		lc.HotPatchTableOffset = d.u32()
		lc.Reserved3 = d.u32()
		lc.EnclaveConfigurationPointer = d.ptr()
	}

	if d.err != nil {
		return nil, d.err
	}
	return lc, nil
}

// ParseLoadConfig re-runs the load-configuration sub-parser against the
// retained image bytes, replacing File.LoadConfig.
func (f *File) ParseLoadConfig() error {
	f.LoadConfig = nil
	dd := f.DataDirectory(DirectoryLoadConfig)
	if dd.VirtualAddress == 0 {
		return nil
	}
	return f.reparser().parseLoadConfig(dd)
}
