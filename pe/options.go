package pe

// Options bounds the parse against hostile size fields. Every cap is
// checked before the corresponding allocation or walk step; exceeding
// one stops that walk with a limit_exceeded diagnostic and keeps the
// prefix collected so far.
type Options struct {
	MaxImportDescriptors int
	MaxThunks            int // per descriptor, per table
	MaxStringLength      int
	MaxTLSCallbacks      int
	MaxTLSTemplate       int
	MaxExportEntries     int
	MaxRelocBlocks       int
	MaxRelocEntries      int // per block
	MaxDebugEntries      int
	MaxCertificates      int
	MaxResourceDepth     int
	MaxResourceEntries   int // total across the tree
	MaxResourceData      int // bytes retained per leaf

	// SectionContentLimit clamps how many raw bytes are retained per
	// section. Zero keeps everything the file backs.
	SectionContentLimit int

	SkipResources    bool
	SkipCertificates bool
}

// DefaultOptions returns the caps Parse uses.
func DefaultOptions() Options {
	return Options{
		MaxImportDescriptors: 8192,
		MaxThunks:            65536,
		MaxStringLength:      4096,
		MaxTLSCallbacks:      4096,
		MaxTLSTemplate:       1 << 20,
		MaxExportEntries:     65536,
		MaxRelocBlocks:       65536,
		MaxRelocEntries:      65536,
		MaxDebugEntries:      256,
		MaxCertificates:      1024,
		MaxResourceDepth:     3,
		MaxResourceEntries:   4096,
		MaxResourceData:      1 << 20,
	}
}
