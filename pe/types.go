package pe

// File is the parsed object model for one PE image. It owns every
// entity produced by the parse; back-references between entities are
// indices into its slices, never lifetime-controlling pointers. A File
// is immutable after Parse returns.
type File struct {
	DOSHeader      DOSHeader
	DOSStub        []byte
	Rich           *RichHeader
	FileHeader     FileHeader
	OptionalHeader OptionalHeader

	// DataDirectories holds the directory table padded or truncated to
	// its canonical sixteen slots. A zero VirtualAddress means the
	// region is absent.
	DataDirectories []DataDirectory

	Sections []*Section

	Imports      []Import
	Export       *Export
	TLS          *TLS
	LoadConfig   *LoadConfig
	Relocations  []Relocation
	DebugEntries []DebugEntry
	Certificates []Certificate
	Resources    *ResourceDirectory

	// Regions records the terminal state of every directory region the
	// walker visited, in processing order.
	Regions []RegionResult

	// OverlayOffset is the file offset of the first byte past the last
	// section's raw data, or the image size if there is no overlay.
	OverlayOffset int64

	data  []byte
	opts  Options
	diags []Diagnostic
}

// DOSHeader is the legacy MZ header at offset zero.
type DOSHeader struct {
	Magic      uint16
	UsedBytes  uint16
	FileSize   uint16
	Relocs     uint16
	HeaderSize uint16
	MinAlloc   uint16
	MaxAlloc   uint16
	InitialSS  uint16
	InitialSP  uint16
	Checksum   uint16
	InitialIP  uint16
	InitialCS  uint16
	RelocAddr  uint16
	OverlayNum uint16
	Reserved   [4]uint16
	OEMID      uint16
	OEMInfo    uint16
	Reserved2  [10]uint16
	PEOffset   uint32 // e_lfanew
}

// RichHeader is the undocumented toolchain record hidden in the DOS
// stub, recovered by XOR against its trailing key.
type RichHeader struct {
	XORKey  uint32
	Offset  int64
	Records []RichRecord
}

// RichRecord is one (tool, build, count) triple from the Rich header.
type RichRecord struct {
	ProductID uint16
	BuildID   uint16
	Count     uint32
}

// FileHeader is the COFF header following the PE signature.
type FileHeader struct {
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

// OptionalHeader unifies the PE32 and PE32+ layouts; pointer-width
// fields are widened to 64 bits. Magic records which layout was read.
type OptionalHeader struct {
	Magic                   uint16
	MajorLinkerVersion      uint8
	MinorLinkerVersion      uint8
	SizeOfCode              uint32
	SizeOfInitializedData   uint32
	SizeOfUninitializedData uint32
	AddressOfEntryPoint     uint32
	BaseOfCode              uint32
	BaseOfData              uint32 // PE32 only
	ImageBase               uint64
	SectionAlignment        uint32
	FileAlignment           uint32
	MajorOSVersion          uint16
	MinorOSVersion          uint16
	MajorImageVersion       uint16
	MinorImageVersion       uint16
	MajorSubsystemVersion   uint16
	MinorSubsystemVersion   uint16
	Win32VersionValue       uint32
	SizeOfImage             uint32
	SizeOfHeaders           uint32
	CheckSum                uint32
	Subsystem               uint16
	DllCharacteristics      uint16
	SizeOfStackReserve      uint64
	SizeOfStackCommit       uint64
	SizeOfHeapReserve       uint64
	SizeOfHeapCommit        uint64
	LoaderFlags             uint32
	NumberOfRvaAndSizes     uint32
}

// DataDirectory names the location of one directory region.
// SectionIndex is a non-owning lookup key into File.Sections for the
// section covering VirtualAddress, or -1 when no section covers it;
// it is resolved by the directory walker, not stored ownership.
type DataDirectory struct {
	VirtualAddress uint32
	Size           uint32
	SectionIndex   int
}

// SectionRole annotates what directory regions were found inside a
// section. Roles accumulate as the walker proceeds; later regions may
// consult roles set by earlier ones.
type SectionRole uint16

const (
	RoleImport SectionRole = 1 << iota
	RoleExport
	RoleCertificate
	RoleTLS
	RoleLoadConfig
	RoleRelocation
	RoleDebug
	RoleResource
)

// Section is one entry of the section table plus its raw content.
// [Offset, Offset+Size) in the file backs
// [VirtualAddress, VirtualAddress+VirtualSize) in memory.
type Section struct {
	Name            string
	VirtualSize     uint32
	VirtualAddress  uint32
	Size            uint32 // SizeOfRawData
	Offset          uint32 // PointerToRawData
	Characteristics uint32
	Roles           SectionRole

	// Raw holds the section's file-backed bytes, clamped to the image
	// and to Options.SectionContentLimit.
	Raw []byte
}

// HasRole reports whether the walker attributed the given role to s.
func (s *Section) HasRole(r SectionRole) bool {
	return s.Roles&r != 0
}

// Import is one imported library and its resolved entries.
// DescriptorOffset is the file offset of the descriptor record that
// produced it.
type Import struct {
	Library          string
	Entries          []ImportEntry
	DescriptorOffset int64

	// Directory back-reference fields from the descriptor.
	LookupTableRVA  uint32 // OriginalFirstThunk
	TimeDateStamp   uint32
	ForwarderChain  uint32
	NameRVA         uint32
	AddressTableRVA uint32 // FirstThunk
}

// ImportEntry is one slot of an import's thunk tables. Ordinal-form
// entries carry Ordinal and no name; name-form entries carry Hint and
// Name. Data is the raw word observed in whichever table supplied the
// entry, and IATAddress is the RVA of the bound slot.
type ImportEntry struct {
	Ordinal    *uint16
	Hint       uint16
	Name       string
	Data       uint64
	IATAddress uint32
}

// IsOrdinal reports whether the entry references its target by ordinal.
func (e *ImportEntry) IsOrdinal() bool {
	return e.Ordinal != nil
}

// Export is the export directory and its entries.
type Export struct {
	Name          string
	TimeDateStamp uint32
	MajorVersion  uint16
	MinorVersion  uint16
	OrdinalBase   uint32
	Entries       []ExportEntry
}

// ExportEntry is one exported symbol. Forwarded entries carry the
// forwarder string instead of a meaningful Address.
type ExportEntry struct {
	Ordinal   uint32
	Address   uint32
	Name      string
	Forwarder string
}

// IsForwarder reports whether the entry forwards to another library.
func (e *ExportEntry) IsForwarder() bool {
	return e.Forwarder != ""
}

// TLS is the thread-local storage directory. Template holds the
// initialization image for [StartRaw, EndRaw); it is empty (not nil
// semantics, just zero length) whenever the range is inverted or does
// not translate. Callbacks is the zero-terminated callback list,
// bounded by Options.MaxTLSCallbacks.
type TLS struct {
	StartRaw           uint64 // virtual address, not RVA
	EndRaw             uint64
	AddressOfIndex     uint64
	AddressOfCallbacks uint64
	SizeOfZeroFill     uint32
	Characteristics    uint32

	Template  []byte
	Callbacks []uint64
}

// CodeIntegrity is the embedded code-integrity record carried by
// LoadConfig versions V3 and later.
type CodeIntegrity struct {
	Flags         uint16
	Catalog       uint16
	CatalogOffset uint32
	Reserved      uint32
}

// LoadConfig is the load-configuration directory as a tagged variant:
// Version selects which trailing field groups were actually read; all
// later groups are zero. Pointer-width fields are widened to 64 bits.
type LoadConfig struct {
	Version LoadConfigVersion

	// V0 (base layout)
	Size                          uint32
	TimeDateStamp                 uint32
	MajorVersion                  uint16
	MinorVersion                  uint16
	GlobalFlagsClear              uint32
	GlobalFlagsSet                uint32
	CriticalSectionDefaultTimeout uint32
	DeCommitFreeBlockThreshold    uint64
	DeCommitTotalFreeThreshold    uint64
	LockPrefixTable               uint64
	MaximumAllocationSize         uint64
	VirtualMemoryThreshold        uint64
	ProcessAffinityMask           uint64
	ProcessHeapFlags              uint32
	CSDVersion                    uint16
	DependentLoadFlags            uint16
	EditList                      uint64
	SecurityCookie                uint64

	// V1: structured exception handling
	SEHandlerTable uint64
	SEHandlerCount uint64

	// V2: control-flow guard
	GuardCFCheckFunctionPointer    uint64
	GuardCFDispatchFunctionPointer uint64
	GuardCFFunctionTable           uint64
	GuardCFFunctionCount           uint64
	GuardFlags                     uint32

	// V3: code integrity
	CodeIntegrity CodeIntegrity

	// V4: guard address-taken IAT and long-jump tables
	GuardAddressTakenIATEntryTable uint64
	GuardAddressTakenIATEntryCount uint64
	GuardLongJumpTargetTable       uint64
	GuardLongJumpTargetCount       uint64

	// V5: dynamic value relocations, hybrid metadata
	DynamicValueRelocTable uint64
	CHPEMetadataPointer    uint64

	// V6: return-flow guard
	GuardRFFailureRoutine                uint64
	GuardRFFailureRoutineFunctionPointer uint64
	DynamicValueRelocTableOffset         uint32
	DynamicValueRelocTableSection        uint16
	Reserved2                            uint16

	// V7: stack-pointer verification, hot patching, enclaves
	GuardRFVerifyStackPointerFunctionPointer uint64
	HotPatchTableOffset                      uint32
	Reserved3                                uint32
	EnclaveConfigurationPointer              uint64
}

// Relocation is one base-relocation block and its entries.
type Relocation struct {
	VirtualAddress uint32
	BlockSize      uint32
	Entries        []RelocationEntry
}

// RelocationEntry is one packed (type, offset) relocation.
type RelocationEntry struct {
	Type   uint16 // high 4 bits of the raw entry
	Offset uint16 // low 12 bits, relative to the block's VirtualAddress
}

// DebugEntry is one debug directory record. CodeView is populated for
// RSDS records whose payload was reachable.
type DebugEntry struct {
	Characteristics  uint32
	TimeDateStamp    uint32
	MajorVersion     uint16
	MinorVersion     uint16
	Type             uint32
	SizeOfData       uint32
	AddressOfRawData uint32
	PointerToRawData uint32

	CodeView *CodeView
}

// CodeView is the RSDS debug payload linking an image to its PDB.
type CodeView struct {
	GUID [16]byte
	Age  uint32
	PDB  string
}

// Certificate is one attribute certificate table entry. Raw holds the
// certificate bytes without the 8-byte entry header.
type Certificate struct {
	Length   uint32
	Revision uint16
	Type     uint16
	Raw      []byte
}

// ResourceDirectory is one level of the resource tree.
type ResourceDirectory struct {
	Characteristics uint32
	TimeDateStamp   uint32
	MajorVersion    uint16
	MinorVersion    uint16
	Entries         []ResourceEntry
}

// ResourceEntry is one directory slot: either a named or ID entry,
// leading to a subdirectory or a data leaf.
type ResourceEntry struct {
	ID        uint32
	Name      string
	Directory *ResourceDirectory
	Data      *ResourceData
}

// ResourceData is a resource tree leaf.
type ResourceData struct {
	DataRVA  uint32
	Size     uint32
	CodePage uint32
	Content  []byte
}

// RegionState is the terminal state of one directory region after the
// walk: absent (zero directory address), done, or failed.
type RegionState int8

const (
	RegionAbsent RegionState = iota
	RegionDone
	RegionFailed
)

func (s RegionState) String() string {
	switch s {
	case RegionAbsent:
		return "absent"
	case RegionDone:
		return "done"
	case RegionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RegionResult records one region's outcome in the walker's fixed
// processing order.
type RegionResult struct {
	Name  string
	State RegionState
	Err   error
}
