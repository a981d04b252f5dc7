package pe

// Header signatures.
const (
	dosSignature    = 0x5a4d     // "MZ"
	ntSignature     = 0x00004550 // "PE\0\0"
	optionalMagic32 = 0x10b
	optionalMagic64 = 0x20b

	richMarker = 0x68636952 // "Rich"
	dansMarker = 0x536e6144 // "DanS"
)

// Machine types (FileHeader.Machine).
const (
	MachineUnknown uint16 = 0x0
	MachineI386    uint16 = 0x14c
	MachineAMD64   uint16 = 0x8664
	MachineARM     uint16 = 0x1c0
	MachineARM64   uint16 = 0xaa64
	MachineARMNT   uint16 = 0x1c4
	MachineIA64    uint16 = 0x200
	MachineRISCV64 uint16 = 0x5064
)

// Data directory indices into OptionalHeader's directory table.
const (
	DirectoryExport = iota
	DirectoryImport
	DirectoryResource
	DirectoryException
	DirectorySecurity
	DirectoryBaseReloc
	DirectoryDebug
	DirectoryArchitecture
	DirectoryGlobalPtr
	DirectoryTLS
	DirectoryLoadConfig
	DirectoryBoundImport
	DirectoryIAT
	DirectoryDelayImport
	DirectoryCOMDescriptor
	DirectoryReserved

	numDirectories = 16
)

// Section characteristics (subset consumers commonly test).
const (
	SectionCntCode            uint32 = 0x00000020
	SectionCntInitializedData uint32 = 0x00000040
	SectionMemDiscardable     uint32 = 0x02000000
	SectionMemShared          uint32 = 0x10000000
	SectionMemExecute         uint32 = 0x20000000
	SectionMemRead            uint32 = 0x40000000
	SectionMemWrite           uint32 = 0x80000000
)

// Import lookup-table entries flag ordinal-form in the top bit.
const (
	ordinalFlag32 = uint64(1) << 31
	ordinalFlag64 = uint64(1) << 63
)

// Debug directory entry types.
const (
	DebugTypeUnknown  uint32 = 0
	DebugTypeCOFF     uint32 = 1
	DebugTypeCodeView uint32 = 2
	DebugTypeFPO      uint32 = 3
	DebugTypeMisc     uint32 = 4
	DebugTypePOGO     uint32 = 13
	DebugTypeRepro    uint32 = 16
)

const codeViewRSDS = 0x53445352 // "RSDS"

// Base relocation entry types.
const (
	RelocAbsolute uint16 = 0
	RelocHigh     uint16 = 1
	RelocLow      uint16 = 2
	RelocHighLow  uint16 = 3
	RelocHighAdj  uint16 = 4
	RelocDir64    uint16 = 10
)

// Attribute certificate revisions and types.
const (
	CertRevision10         uint16 = 0x0100
	CertRevision20         uint16 = 0x0200
	CertTypePKCSSignedData uint16 = 0x0002
)

// Control-flow guard flags (LoadConfig.GuardFlags, subset).
const (
	GuardCFInstrumented       uint32 = 0x00000100
	GuardCFWInstrumented      uint32 = 0x00000200
	GuardCFFunctionPresent    uint32 = 0x00000400
	GuardSecurityCookieUnused uint32 = 0x00000800
	GuardRetpolinePresent     uint32 = 0x00100000
)

// Fixed record sizes.
const (
	dosHeaderSize        = 64
	coffHeaderSize       = 20
	sectionHeaderSize    = 40
	importDescriptorSize = 20
	exportDirectorySize  = 40
	debugEntrySize       = 28
	tlsDirectorySize32   = 24
	tlsDirectorySize64   = 40
)
