package pe

// LoadConfigVersion tags which historical load-configuration layout a
// parsed record used. Each version's field set strictly extends its
// predecessor's; LoadConfigUnknown is the minimal fallback when the
// observed size is below every known layout.
type LoadConfigVersion int8

const (
	LoadConfigUnknown LoadConfigVersion = iota - 1
	LoadConfigV0                        // base layout through SecurityCookie
	LoadConfigV1                        // + SEH handler table
	LoadConfigV2                        // + control-flow guard
	LoadConfigV3                        // + code integrity
	LoadConfigV4                        // + guard IAT / long-jump tables
	LoadConfigV5                        // + dynamic value relocs, CHPE
	LoadConfigV6                        // + return-flow guard
	LoadConfigV7                        // + stack verify, hot patch, enclave
)

func (v LoadConfigVersion) String() string {
	switch v {
	case LoadConfigV0:
		return "v0"
	case LoadConfigV1:
		return "v1"
	case LoadConfigV2:
		return "v2"
	case LoadConfigV3:
		return "v3"
	case LoadConfigV4:
		return "v4"
	case LoadConfigV5:
		return "v5"
	case LoadConfigV6:
		return "v6"
	case LoadConfigV7:
		return "v7"
	default:
		return "unknown"
	}
}

type versionSize struct {
	version LoadConfigVersion
	size    uint32
}

// Known on-disk sizes per layout revision. Tables are ordered by size;
// selection takes the last entry that still fits.
var (
	loadConfigSizes32 = []versionSize{
		{LoadConfigV0, 0x40},
		{LoadConfigV1, 0x48},
		{LoadConfigV2, 0x5c},
		{LoadConfigV3, 0x68},
		{LoadConfigV4, 0x78},
		{LoadConfigV5, 0x80},
		{LoadConfigV6, 0x90},
		{LoadConfigV7, 0xa0},
	}
	loadConfigSizes64 = []versionSize{
		{LoadConfigV0, 0x60},
		{LoadConfigV1, 0x70},
		{LoadConfigV2, 0x94},
		{LoadConfigV3, 0xa0},
		{LoadConfigV4, 0xc0},
		{LoadConfigV5, 0xd0},
		{LoadConfigV6, 0xe8},
		{LoadConfigV7, 0x100},
	}
)

// selectLoadConfigVersion chooses the best layout for an observed size
// field: the version with the largest known size that still fits, never
// the closest one, because writers legitimately emit sizes between two
// revisions. Selection is monotonic non-decreasing in observed.
func selectLoadConfigVersion(observed uint32, table []versionSize) LoadConfigVersion {
	chosen := LoadConfigUnknown
	for _, vs := range table {
		if vs.size <= observed {
			chosen = vs.version
		}
	}
	return chosen
}

func loadConfigSizeTable(is64 bool) []versionSize {
	if is64 {
		return loadConfigSizes64
	}
	return loadConfigSizes32
}
