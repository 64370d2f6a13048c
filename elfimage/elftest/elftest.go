// Package elftest builds small synthetic ELF32 images for tests.
package elftest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

const (
	// Base is the virtual address the image's file offset 0 maps to.
	Base = 0x08048000

	headerSize  = 52
	shdrSize    = 40
	dataStart   = 0x60
	sectionAlgn = 16
)

// Section describes one section to lay out. NOBITS sections get Size zero
// bytes in the file at their offset, so scanners that ignore the type
// would see a zero run there.
type Section struct {
	Name  string
	Type  elf.SectionType
	Flags elf.SectionFlag
	Data  []byte
	Size  uint32
}

// Layout records where Build placed each section, in input order.
type Layout struct {
	Offsets []uint32
	Addrs   []uint32
	Entry   uint32
}

// Build lays out the sections after the header, appends .shstrtab and the
// section header table, and points the entry at the first section.
func Build(machine elf.Machine, secs []Section) ([]byte, Layout) {
	var lay Layout

	strtab := []byte{0}
	nameOff := make([]uint32, len(secs)+1)
	for i, s := range secs {
		nameOff[i] = uint32(len(strtab))
		strtab = append(append(strtab, s.Name...), 0)
	}
	nameOff[len(secs)] = uint32(len(strtab))
	strtab = append(strtab, ".shstrtab\x00"...)

	body := make([]byte, dataStart)
	align := func() {
		for len(body)%sectionAlgn != 0 {
			body = append(body, 0)
		}
	}

	type shdr = elf.Section32
	hdrs := []shdr{{}}
	for i, s := range secs {
		align()
		off := uint32(len(body))
		size := uint32(len(s.Data))
		if s.Type == elf.SHT_NOBITS {
			size = s.Size
			body = append(body, make([]byte, size)...)
		} else {
			body = append(body, s.Data...)
		}
		lay.Offsets = append(lay.Offsets, off)
		lay.Addrs = append(lay.Addrs, Base+off)
		hdrs = append(hdrs, shdr{
			Name:      nameOff[i],
			Type:      uint32(s.Type),
			Flags:     uint32(s.Flags),
			Addr:      Base + off,
			Off:       off,
			Size:      size,
			Addralign: 1,
		})
	}

	align()
	strOff := uint32(len(body))
	body = append(body, strtab...)
	hdrs = append(hdrs, shdr{
		Name: nameOff[len(secs)],
		Type: uint32(elf.SHT_STRTAB),
		Off:  strOff,
		Size: uint32(len(strtab)),
	})

	align()
	shoff := uint32(len(body))
	var tbl bytes.Buffer
	binary.Write(&tbl, binary.LittleEndian, hdrs)
	body = append(body, tbl.Bytes()...)

	if len(lay.Addrs) > 0 {
		lay.Entry = lay.Addrs[0]
	}
	hdr := elf.Header32{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(machine),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     lay.Entry,
		Shoff:     shoff,
		Ehsize:    headerSize,
		Shentsize: shdrSize,
		Shnum:     uint16(len(hdrs)),
		Shstrndx:  uint16(len(hdrs) - 1),
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	var hb bytes.Buffer
	binary.Write(&hb, binary.LittleEndian, &hdr)
	copy(body, hb.Bytes())
	return body, lay
}

// Pattern returns n bytes that are never zero and never equal to key, so
// they contain no zero run before or after XOR with key.
func Pattern(n int, key byte) []byte {
	p := make([]byte, n)
	v := byte(1)
	for i := range p {
		for v == 0 || v == key {
			v++
		}
		p[i] = v
		v++
	}
	return p
}
