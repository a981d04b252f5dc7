// Package pe parses Portable Executable (PE/PE32+) images into a
// structured, navigable object model, tolerant of malformed or
// adversarial input.
//
// The parser is directory-driven: after the mandatory headers and the
// section table, each data-directory region (imports, exports,
// certificates, TLS, load configuration, relocations, debug,
// resources) is located through virtual-address translation and decoded
// by its own sub-parser. Regions fail independently: one corrupted
// region degrades with a diagnostic while every other region still
// parses, and only an unreadable mandatory header aborts the parse.
//
// # Parsing
//
// Parse an image already resident in memory:
//
//	data, _ := os.ReadFile("app.exe")
//	f, err := pe.Parse(data)
//	if err != nil {
//	    log.Fatal(err) // mandatory headers unreadable
//	}
//
//	for _, imp := range f.Imports {
//	    fmt.Println(imp.Library, len(imp.Entries))
//	}
//	for _, d := range f.Diagnostics() {
//	    fmt.Println(d)
//	}
//
// Resource caps and parse toggles are explicit:
//
//	opts := pe.DefaultOptions()
//	opts.SkipResources = true
//	f, err := pe.ParseWithOptions(data, opts)
//
// # Untrusted input
//
// Sizes, counts, and offsets in a PE image are attacker-influenced.
// Every walk is bounded by a hard cap checked before allocation, every
// read is bounds-checked, and recovery is tiered: an invalid individual
// record is discarded and scanning continues, an unreachable region is
// marked failed and the walk moves on. The returned File is always the
// most complete model achievable; strict validation is available
// separately through Verify.
//
// # Addressing
//
// Directory contents are located by image-relative virtual address
// (RVA). RVAToOffset translates through the section table in
// declaration order, first match wins, and fails explicitly when no
// section covers the address - offset zero is a valid translation
// result, not a sentinel.
package pe
