package pe_test

import (
	"encoding/binary"
)

// imageBuilder assembles minimal crafted PE images for tests. Header
// space occupies [0, 0x400); section raw data follows at 0x200-aligned
// offsets, then any overlay bytes.
type imageBuilder struct {
	is64         bool
	dirs         [16][2]uint32
	secs         []*buildSection
	stub         []byte
	overlay      []byte
	truncateLast bool
}

type buildSection struct {
	name            string
	va              uint32
	vsize           uint32
	data            []byte
	characteristics uint32
}

const (
	testHeaderSpace = 0x400
	testFileAlign   = 0x200
)

func newImage(is64 bool) *imageBuilder {
	return &imageBuilder{is64: is64}
}

func (b *imageBuilder) imageBase() uint64 {
	if b.is64 {
		return 0x140000000
	}
	return 0x400000
}

func (b *imageBuilder) section(name string, va uint32, data []byte) *imageBuilder {
	return b.sectionV(name, va, uint32(len(data)), data)
}

func (b *imageBuilder) sectionV(name string, va, vsize uint32, data []byte) *imageBuilder {
	b.secs = append(b.secs, &buildSection{
		name:            name,
		va:              va,
		vsize:           vsize,
		data:            data,
		characteristics: 0xc0000040, // read | write | initialized data
	})
	return b
}

func (b *imageBuilder) dir(idx int, va, size uint32) *imageBuilder {
	b.dirs[idx] = [2]uint32{va, size}
	return b
}

// sectionOffset returns the file offset build will assign to section i.
func (b *imageBuilder) sectionOffset(i int) uint32 {
	pos := testHeaderSpace
	for j := 0; j < i; j++ {
		pos += alignUp(len(b.secs[j].data), testFileAlign)
	}
	return uint32(pos)
}

func (b *imageBuilder) build() []byte {
	offs := make([]int, len(b.secs))
	pos := testHeaderSpace
	for i, s := range b.secs {
		offs[i] = pos
		if i == len(b.secs)-1 && b.truncateLast {
			pos += len(s.data)
		} else {
			pos += alignUp(len(s.data), testFileAlign)
		}
	}
	img := make([]byte, pos+len(b.overlay))

	// DOS header and stub
	put16(img, 0, 0x5a4d)
	put32(img, 0x3c, 0x80)
	copy(img[0x40:0x80], b.stub)

	// PE signature and COFF header
	put32(img, 0x80, 0x00004550)
	machine := uint16(0x14c)
	optSize, fixed := 0xe0, 96
	if b.is64 {
		machine = 0x8664
		optSize, fixed = 0xf0, 112
	}
	put16(img, 0x84, machine)
	put16(img, 0x86, uint16(len(b.secs)))
	put16(img, 0x94, uint16(optSize))
	put16(img, 0x96, 0x0102)

	// optional header
	opt := 0x98
	if b.is64 {
		put16(img, opt, 0x20b)
		put64(img, opt+24, b.imageBase())
	} else {
		put16(img, opt, 0x10b)
		put32(img, opt+28, uint32(b.imageBase()))
	}
	put32(img, opt+16, 0x1000) // entry point
	put32(img, opt+20, 0x1000) // base of code
	put32(img, opt+32, 0x1000) // section alignment
	put32(img, opt+36, testFileAlign)
	maxVA := uint32(0x2000)
	for _, s := range b.secs {
		if end := s.va + s.vsize; end > maxVA {
			maxVA = end
		}
	}
	put32(img, opt+56, uint32(alignUp(int(maxVA), 0x1000))) // size of image
	put32(img, opt+60, testHeaderSpace)                     // size of headers
	put16(img, opt+68, 3)                                   // subsystem: console
	if b.is64 {
		put32(img, opt+108, 16)
	} else {
		put32(img, opt+92, 16)
	}

	// data directories
	dirBase := opt + fixed
	for i, d := range b.dirs {
		put32(img, dirBase+i*8, d[0])
		put32(img, dirBase+i*8+4, d[1])
	}

	// section table and raw data
	sh := dirBase + 16*8
	for i, s := range b.secs {
		copy(img[sh:sh+8], s.name)
		put32(img, sh+8, s.vsize)
		put32(img, sh+12, s.va)
		put32(img, sh+16, uint32(len(s.data)))
		put32(img, sh+20, uint32(offs[i]))
		put32(img, sh+36, s.characteristics)
		copy(img[offs[i]:], s.data)
		sh += 40
	}

	copy(img[pos:], b.overlay)
	return img
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

func put16(b []byte, off int, v uint16) { binary.LittleEndian.PutUint16(b[off:], v) }
func put32(b []byte, off int, v uint32) { binary.LittleEndian.PutUint32(b[off:], v) }
func put64(b []byte, off int, v uint64) { binary.LittleEndian.PutUint64(b[off:], v) }
