package elfimage

import (
	"debug/elf"
	"encoding/binary"
	"testing"

	"cavepack/elfimage/elftest"

	"github.com/pkg/errors"
)

func sampleImage() ([]byte, elftest.Layout) {
	return elftest.Build(elf.EM_386, []elftest.Section{
		{Name: ".text", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, Data: elftest.Pattern(48, 0)},
		{Name: ".rodata", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC, Data: elftest.Pattern(16, 0)},
		{Name: ".bss", Type: elf.SHT_NOBITS, Flags: elf.SHF_ALLOC | elf.SHF_WRITE, Size: 0x100},
		{Name: ".data", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_WRITE, Data: make([]byte, 32)},
	})
}

func TestParseSections(t *testing.T) {
	raw, lay := sampleImage()
	img, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := []string{".text", ".rodata", ".bss", ".data", ".shstrtab"}
	secs := img.Sections.Sections()
	if len(secs) != len(want) {
		t.Fatalf("got %d sections, want %d", len(secs), len(want))
	}
	for i, s := range secs {
		if s.Name != want[i] {
			t.Errorf("section %d name = %q, want %q", i, s.Name, want[i])
		}
		if s.Index != i+1 {
			t.Errorf("section %q index = %d, want %d", s.Name, s.Index, i+1)
		}
	}
	if secs[0].Offset != lay.Offsets[0] || secs[0].Addr != lay.Addrs[0] || secs[0].Size != 48 {
		t.Errorf(".text = %+v", secs[0])
	}
	if img.Sections.StrtabIndex != 5 || img.Sections.Strtab.Base != secs[4].Offset {
		t.Errorf("strtab index %d base 0x%x", img.Sections.StrtabIndex, img.Sections.Strtab.Base)
	}

	progbits := img.Sections.OfType(elf.SHT_PROGBITS)
	if len(progbits) != 3 || progbits[0].Name != ".text" || progbits[1].Name != ".rodata" || progbits[2].Name != ".data" {
		t.Errorf("OfType(PROGBITS) not in table order: %v", names(progbits))
	}
	if nb := img.Sections.OfType(elf.SHT_NOBITS); len(nb) != 1 || nb[0].HasFileBytes() {
		t.Errorf("OfType(NOBITS) = %v", names(nb))
	}
}

func TestSectionLookup(t *testing.T) {
	raw, _ := sampleImage()
	img, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	s, err := img.Section(".data")
	if err != nil {
		t.Fatalf("Lookup(.data): %v", err)
	}
	if s.Type != elf.SHT_PROGBITS || s.Size != 32 {
		t.Errorf(".data = %+v", s)
	}
	if _, err := img.Section(".init"); !errors.Is(err, ErrSectionNotFound) {
		t.Errorf("Lookup(.init) error = %v, want ErrSectionNotFound", err)
	}
}

func TestParseSectionsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mangle func(raw []byte, h *Header)
		want   error
	}{
		{"table past end", func(raw []byte, h *Header) {
			h.Shoff = uint32(len(raw)) - 8
		}, ErrMalformedSectionTable},
		{"short entries", func(raw []byte, h *Header) {
			h.Shentsize = 20
		}, ErrMalformedSectionTable},
		{"strndx out of range", func(raw []byte, h *Header) {
			h.Shstrndx = h.Shnum
		}, ErrMalformedSectionTable},
		{"strndx undefined", func(raw []byte, h *Header) {
			h.Shstrndx = 0
		}, ErrMalformedSectionTable},
		{"section past end", func(raw []byte, h *Header) {
			// .text size field of entry 1
			binary.LittleEndian.PutUint32(raw[h.Shoff+SectionHeaderSize+20:], uint32(len(raw)))
		}, ErrMalformedSectionTable},
		{"name past end", func(raw []byte, h *Header) {
			binary.LittleEndian.PutUint32(raw[h.Shoff+SectionHeaderSize:], uint32(len(raw)))
		}, ErrStringTableOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, _ := sampleImage()
			h, err := ParseHeader(raw)
			if err != nil {
				t.Fatalf("ParseHeader: %v", err)
			}
			tt.mangle(raw, &h)
			if _, err := ParseSections(raw, h); !errors.Is(err, tt.want) {
				t.Fatalf("ParseSections error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNobitsMayExceedFile(t *testing.T) {
	raw, _ := sampleImage()
	h, _ := ParseHeader(raw)
	// .bss is entry 3; give it a size far beyond the file
	binary.LittleEndian.PutUint32(raw[h.Shoff+3*SectionHeaderSize+20:], 0x100000)
	if _, err := ParseSections(raw, h); err != nil {
		t.Fatalf("ParseSections: %v", err)
	}
}

func names(secs []*Section) []string {
	var out []string
	for _, s := range secs {
		out = append(out, s.Name)
	}
	return out
}
