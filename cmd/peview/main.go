package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/wippyai/pefile/pe"
)

type dumpFlags struct {
	headers    bool
	sections   bool
	imports    bool
	exports    bool
	tls        bool
	loadConfig bool
	relocs     bool
	debug      bool
	certs      bool
	resources  bool
	rich       bool
	verify     bool
	diags      bool
}

func (d *dumpFlags) any() bool {
	return d.headers || d.sections || d.imports || d.exports || d.tls ||
		d.loadConfig || d.relocs || d.debug || d.certs || d.resources ||
		d.rich || d.verify || d.diags
}

func main() {
	var (
		file        = flag.String("file", "", "Path to PE image")
		all         = flag.Bool("all", false, "Dump every region")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		d           dumpFlags
	)
	flag.BoolVar(&d.headers, "headers", false, "Dump DOS/COFF/optional headers")
	flag.BoolVar(&d.sections, "sections", false, "Dump the section table")
	flag.BoolVar(&d.imports, "imports", false, "Dump imported libraries and entries")
	flag.BoolVar(&d.exports, "exports", false, "Dump the export directory")
	flag.BoolVar(&d.tls, "tls", false, "Dump the TLS directory")
	flag.BoolVar(&d.loadConfig, "loadconfig", false, "Dump the load-configuration directory")
	flag.BoolVar(&d.relocs, "relocs", false, "Dump base relocation blocks")
	flag.BoolVar(&d.debug, "debug", false, "Dump the debug directory")
	flag.BoolVar(&d.certs, "certs", false, "Dump the attribute certificate table")
	flag.BoolVar(&d.resources, "resources", false, "Dump the resource tree")
	flag.BoolVar(&d.rich, "rich", false, "Dump the Rich header")
	flag.BoolVar(&d.verify, "verify", false, "Run strict validation and print findings")
	flag.BoolVar(&d.diags, "diag", false, "Print the diagnostic trail")
	flag.Parse()

	if *file == "" && flag.NArg() > 0 {
		*file = flag.Arg(0)
	}
	if *file == "" {
		fmt.Fprintln(os.Stderr, "Usage: peview -file <image.exe> [-imports] [-tls] [-all] ...")
		fmt.Fprintln(os.Stderr, "       peview -file <image.exe> -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(*file); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *all {
		d = dumpFlags{
			headers: true, sections: true, imports: true, exports: true,
			tls: true, loadConfig: true, relocs: true, debug: true,
			certs: true, resources: true, rich: true, diags: true,
		}
	}
	if !d.any() {
		// default view: headers and sections
		d.headers = true
		d.sections = true
	}

	if err := run(*file, d); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(file string, d dumpFlags) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	f, err := pe.Parse(data)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	width := 100
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 40 {
		width = w
	}
	w := os.Stdout

	fmt.Fprintf(w, "File: %s (%d bytes)\n", file, len(data))
	if d.headers {
		dumpHeaders(w, f)
	}
	if d.sections {
		dumpSections(w, f)
	}
	if d.rich {
		dumpRich(w, f)
	}
	if d.imports {
		dumpImports(w, f, width)
	}
	if d.exports {
		dumpExports(w, f, width)
	}
	if d.tls {
		dumpTLS(w, f)
	}
	if d.loadConfig {
		dumpLoadConfig(w, f)
	}
	if d.relocs {
		dumpRelocations(w, f)
	}
	if d.debug {
		dumpDebug(w, f, width)
	}
	if d.certs {
		dumpCertificates(w, f)
	}
	if d.resources {
		dumpResources(w, f)
	}
	if d.diags {
		dumpDiagnostics(w, f, width)
	}
	if d.verify {
		dumpVerify(w, f, width)
	}
	return nil
}

func trunc(s string, max int) string {
	if max < 4 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func bitness(f *pe.File) string {
	if f.Is64() {
		return "PE32+"
	}
	return "PE32"
}

func dumpHeaders(w io.Writer, f *pe.File) {
	oh := &f.OptionalHeader
	fmt.Fprintf(w, "\nFormat:          %s\n", bitness(f))
	fmt.Fprintf(w, "Machine:         %#x\n", f.FileHeader.Machine)
	fmt.Fprintf(w, "Sections:        %d\n", f.FileHeader.NumberOfSections)
	fmt.Fprintf(w, "Timestamp:       %#x\n", f.FileHeader.TimeDateStamp)
	fmt.Fprintf(w, "Characteristics: %#x\n", f.FileHeader.Characteristics)
	fmt.Fprintf(w, "Image base:      %#x\n", oh.ImageBase)
	fmt.Fprintf(w, "Entry point:     %#x\n", oh.AddressOfEntryPoint)
	fmt.Fprintf(w, "Size of image:   %#x\n", oh.SizeOfImage)
	fmt.Fprintf(w, "Subsystem:       %d\n", oh.Subsystem)
	fmt.Fprintf(w, "Overlay offset:  %#x\n", f.OverlayOffset)

	fmt.Fprintf(w, "\nRegions:\n")
	for _, r := range f.Regions {
		fmt.Fprintf(w, "  %-12s %s\n", r.Name, r.State)
	}
}

func dumpSections(w io.Writer, f *pe.File) {
	fmt.Fprintf(w, "\nSections:\n")
	fmt.Fprintf(w, "  %-10s %-10s %-10s %-10s %-10s %s\n",
		"name", "va", "vsize", "offset", "rawsize", "roles")
	for _, s := range f.Sections {
		fmt.Fprintf(w, "  %-10s %-#10x %-#10x %-#10x %-#10x %s\n",
			s.Name, s.VirtualAddress, s.VirtualSize, s.Offset, s.Size, roleNames(s))
	}
}

func roleNames(s *pe.Section) string {
	var names []string
	for _, r := range []struct {
		role pe.SectionRole
		name string
	}{
		{pe.RoleImport, "import"},
		{pe.RoleExport, "export"},
		{pe.RoleTLS, "tls"},
		{pe.RoleLoadConfig, "loadconfig"},
		{pe.RoleRelocation, "reloc"},
		{pe.RoleDebug, "debug"},
		{pe.RoleResource, "resource"},
	} {
		if s.HasRole(r.role) {
			names = append(names, r.name)
		}
	}
	return strings.Join(names, ",")
}

func dumpRich(w io.Writer, f *pe.File) {
	fmt.Fprintf(w, "\nRich header: ")
	if f.Rich == nil {
		fmt.Fprintln(w, "absent")
		return
	}
	fmt.Fprintf(w, "key %#x, %d records\n", f.Rich.XORKey, len(f.Rich.Records))
	for _, r := range f.Rich.Records {
		fmt.Fprintf(w, "  product %#06x build %-6d count %d\n", r.ProductID, r.BuildID, r.Count)
	}
}

func dumpImports(w io.Writer, f *pe.File, width int) {
	fmt.Fprintf(w, "\nImports: %d libraries\n", len(f.Imports))
	for _, imp := range f.Imports {
		fmt.Fprintf(w, "  %s (%d entries)\n", imp.Library, len(imp.Entries))
		for _, e := range imp.Entries {
			if e.IsOrdinal() {
				fmt.Fprintf(w, "    ordinal %-5d iat %#x\n", *e.Ordinal, e.IATAddress)
			} else {
				fmt.Fprintf(w, "    %-40s hint %-5d iat %#x\n",
					trunc(e.Name, width-30), e.Hint, e.IATAddress)
			}
		}
	}
}

func dumpExports(w io.Writer, f *pe.File, width int) {
	fmt.Fprintf(w, "\nExports: ")
	if f.Export == nil {
		fmt.Fprintln(w, "absent")
		return
	}
	fmt.Fprintf(w, "%s (base %d, %d entries)\n",
		f.Export.Name, f.Export.OrdinalBase, len(f.Export.Entries))
	for _, e := range f.Export.Entries {
		if e.IsForwarder() {
			fmt.Fprintf(w, "  %-5d %-30s -> %s\n",
				e.Ordinal, trunc(e.Name, 30), trunc(e.Forwarder, width-45))
			continue
		}
		fmt.Fprintf(w, "  %-5d %-30s %#x\n", e.Ordinal, trunc(e.Name, 30), e.Address)
	}
}

func dumpTLS(w io.Writer, f *pe.File) {
	fmt.Fprintf(w, "\nTLS: ")
	if f.TLS == nil {
		fmt.Fprintln(w, "absent")
		return
	}
	t := f.TLS
	fmt.Fprintf(w, "data [%#x, %#x), template %d bytes\n", t.StartRaw, t.EndRaw, len(t.Template))
	fmt.Fprintf(w, "  index at %#x, zero fill %d\n", t.AddressOfIndex, t.SizeOfZeroFill)
	fmt.Fprintf(w, "  callbacks (%d):\n", len(t.Callbacks))
	for _, cb := range t.Callbacks {
		fmt.Fprintf(w, "    %#x\n", cb)
	}
}

func dumpLoadConfig(w io.Writer, f *pe.File) {
	fmt.Fprintf(w, "\nLoad config: ")
	if f.LoadConfig == nil {
		fmt.Fprintln(w, "absent")
		return
	}
	lc := f.LoadConfig
	fmt.Fprintf(w, "layout %s, size %#x\n", lc.Version, lc.Size)
	if lc.Version == pe.LoadConfigUnknown {
		return
	}
	fmt.Fprintf(w, "  security cookie: %#x\n", lc.SecurityCookie)
	if lc.Version >= pe.LoadConfigV1 {
		fmt.Fprintf(w, "  seh handlers:    %d at %#x\n", lc.SEHandlerCount, lc.SEHandlerTable)
	}
	if lc.Version >= pe.LoadConfigV2 {
		fmt.Fprintf(w, "  guard flags:     %#x\n", lc.GuardFlags)
		fmt.Fprintf(w, "  guard functions: %d at %#x\n", lc.GuardCFFunctionCount, lc.GuardCFFunctionTable)
	}
	if lc.Version >= pe.LoadConfigV7 {
		fmt.Fprintf(w, "  enclave config:  %#x\n", lc.EnclaveConfigurationPointer)
	}
}

func dumpRelocations(w io.Writer, f *pe.File) {
	total := 0
	for _, b := range f.Relocations {
		total += len(b.Entries)
	}
	fmt.Fprintf(w, "\nRelocations: %d blocks, %d entries\n", len(f.Relocations), total)
	for _, b := range f.Relocations {
		fmt.Fprintf(w, "  rva %#-10x size %-6d entries %d\n", b.VirtualAddress, b.BlockSize, len(b.Entries))
	}
}

func dumpDebug(w io.Writer, f *pe.File, width int) {
	fmt.Fprintf(w, "\nDebug: %d entries\n", len(f.DebugEntries))
	for _, e := range f.DebugEntries {
		fmt.Fprintf(w, "  type %-3d size %-8d raw %#x\n", e.Type, e.SizeOfData, e.PointerToRawData)
		if e.CodeView != nil {
			fmt.Fprintf(w, "    pdb %s (age %d, guid %x)\n",
				trunc(e.CodeView.PDB, width-30), e.CodeView.Age, e.CodeView.GUID)
		}
	}
}

func dumpCertificates(w io.Writer, f *pe.File) {
	fmt.Fprintf(w, "\nCertificates: %d entries\n", len(f.Certificates))
	for i, c := range f.Certificates {
		fmt.Fprintf(w, "  %d: length %-8d revision %#x type %#x\n", i, c.Length, c.Revision, c.Type)
	}
}

func dumpResources(w io.Writer, f *pe.File) {
	fmt.Fprintf(w, "\nResources: ")
	if f.Resources == nil {
		fmt.Fprintln(w, "absent")
		return
	}
	fmt.Fprintln(w)
	dumpResourceDir(w, f.Resources, 1)
}

func dumpResourceDir(w io.Writer, dir *pe.ResourceDirectory, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, e := range dir.Entries {
		label := fmt.Sprintf("id %d", e.ID)
		if e.Name != "" {
			label = fmt.Sprintf("name %q", e.Name)
		}
		switch {
		case e.Directory != nil:
			fmt.Fprintf(w, "%s%s/\n", indent, label)
			dumpResourceDir(w, e.Directory, depth+1)
		case e.Data != nil:
			fmt.Fprintf(w, "%s%s: %d bytes (codepage %d)\n", indent, label, e.Data.Size, e.Data.CodePage)
		default:
			fmt.Fprintf(w, "%s%s: unreadable\n", indent, label)
		}
	}
}

func dumpDiagnostics(w io.Writer, f *pe.File, width int) {
	diags := f.Diagnostics()
	fmt.Fprintf(w, "\nDiagnostics: %d\n", len(diags))
	for _, d := range diags {
		fmt.Fprintf(w, "  %s\n", trunc(d.String(), width-2))
	}
}

func dumpVerify(w io.Writer, f *pe.File, width int) {
	errs := f.Verify()
	if len(errs) == 0 {
		fmt.Fprintf(w, "\nVerify: ok\n")
		return
	}
	fmt.Fprintf(w, "\nVerify: %d findings\n", len(errs))
	for _, err := range errs {
		fmt.Fprintf(w, "  %s\n", trunc(err.Error(), width-2))
	}
}
