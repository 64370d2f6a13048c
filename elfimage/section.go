package elfimage

import (
	"bytes"
	"debug/elf"
	"encoding/binary"

	"github.com/pkg/errors"
)

// SectionHeaderSize is the size of one Elf32_Shdr record.
const SectionHeaderSize = 40

// Section is one decoded section header. Name is filled in after the whole
// table has been read.
type Section struct {
	Index     int
	Name      string
	NameOff   uint32
	Type      elf.SectionType
	Flags     elf.SectionFlag
	Addr      uint32
	Offset    uint32
	Size      uint32
	Link      uint32
	Info      uint32
	Addralign uint32
	Entsize   uint32
}

// HasFileBytes reports whether the section occupies space in the file.
func (s *Section) HasFileBytes() bool {
	return s.Type != elf.SHT_NOBITS
}

// Contents returns the slice of raw covered by the section, or nil for
// sections without file bytes.
func (s *Section) Contents(raw []byte) []byte {
	if !s.HasFileBytes() {
		return nil
	}
	return raw[s.Offset : s.Offset+s.Size]
}

// SectionTable holds the section headers in table order, plus a by-type index.
// Anything that must be reproducible iterates Sections(), never the index.
type SectionTable struct {
	sections []*Section
	byType   map[elf.SectionType][]*Section

	// StrtabIndex is e_shstrndx, the section that names all the others.
	StrtabIndex int
	Strtab      StringTable
}

// Sections returns the descriptors in section header table order.
func (t *SectionTable) Sections() []*Section {
	return t.sections
}

// OfType returns the descriptors of type typ in table order.
func (t *SectionTable) OfType(typ elf.SectionType) []*Section {
	return t.byType[typ]
}

// Len returns the number of parsed descriptors (the null entry excluded).
func (t *SectionTable) Len() int {
	return len(t.sections)
}

// Lookup returns the first section named name.
func (t *SectionTable) Lookup(name string) (*Section, error) {
	for _, s := range t.sections {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, errors.Wrapf(ErrSectionNotFound, "%q", name)
}

// ParseSections decodes the section header table described by h. Entry 0
// is the reserved null section and is skipped.
func ParseSections(raw []byte, h Header) (*SectionTable, error) {
	shnum := int(h.Shnum)
	shentsize := int(h.Shentsize)
	if shnum > 1 && shentsize < SectionHeaderSize {
		return nil, errors.Wrapf(ErrMalformedSectionTable, "e_shentsize %d is smaller than %d", shentsize, SectionHeaderSize)
	}
	tableEnd := uint64(h.Shoff) + uint64(shnum)*uint64(shentsize)
	if tableEnd > uint64(len(raw)) {
		return nil, errors.Wrapf(ErrMalformedSectionTable, "table ends at 0x%x, file is 0x%x bytes", tableEnd, len(raw))
	}
	strndx := int(h.Shstrndx)
	if strndx == int(elf.SHN_UNDEF) || strndx >= shnum {
		return nil, errors.Wrapf(ErrMalformedSectionTable, "e_shstrndx %d out of range (%d sections)", strndx, shnum)
	}

	t := &SectionTable{
		byType:      make(map[elf.SectionType][]*Section),
		StrtabIndex: strndx,
	}

	for i := 1; i < shnum; i++ {
		off := int(h.Shoff) + i*shentsize
		var rec elf.Section32
		if err := binary.Read(bytes.NewReader(raw[off:off+SectionHeaderSize]), binary.LittleEndian, &rec); err != nil {
			return nil, errors.Wrap(ErrMalformedSectionTable, err.Error())
		}

		s := &Section{
			Index:     i,
			NameOff:   rec.Name,
			Type:      elf.SectionType(rec.Type),
			Flags:     elf.SectionFlag(rec.Flags),
			Addr:      rec.Addr,
			Offset:    rec.Off,
			Size:      rec.Size,
			Link:      rec.Link,
			Info:      rec.Info,
			Addralign: rec.Addralign,
			Entsize:   rec.Entsize,
		}
		if s.HasFileBytes() && uint64(s.Offset)+uint64(s.Size) > uint64(len(raw)) {
			return nil, errors.Wrapf(ErrMalformedSectionTable,
				"section %d spans 0x%x+0x%x, past end of file (0x%x)", i, s.Offset, s.Size, len(raw))
		}

		t.sections = append(t.sections, s)
		t.byType[s.Type] = append(t.byType[s.Type], s)
		if i == strndx {
			t.Strtab = NewStringTable(raw, s.Offset)
		}
	}

	// every name, the string table's own included, indexes into the same table
	for _, s := range t.sections {
		name, err := t.Strtab.Lookup(s.NameOff)
		if err != nil {
			return nil, errors.Wrapf(err, "name of section %d", s.Index)
		}
		s.Name = name
	}
	return t, nil
}
