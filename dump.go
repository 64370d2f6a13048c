package main

import (
	"debug/elf"
	"fmt"
	"io"
	"strings"

	"cavepack/elfimage"

	"github.com/olekukonko/tablewriter"
)

// dumpSections prints the parsed section table in table order.
func dumpSections(w io.Writer, img *elfimage.Image) {
	h := img.Header
	fmt.Fprintf(w, "ELF32 %s, %s, entry 0x%x, %d sections, names in [%d]\n",
		h.Type, h.Machine, h.Entry, h.Shnum, h.Shstrndx)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Nr", "Name", "Type", "Flags", "Addr", "Off", "Size"})
	table.SetBorder(false)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, s := range img.Sections.Sections() {
		table.Append([]string{
			fmt.Sprint(s.Index),
			s.Name,
			strings.TrimPrefix(s.Type.String(), "SHT_"),
			flagString(s),
			fmt.Sprintf("%08x", s.Addr),
			fmt.Sprintf("%06x", s.Offset),
			fmt.Sprintf("%06x", s.Size),
		})
	}
	table.Render()
}

// flagString abbreviates section flags the way readelf does.
func flagString(s *elfimage.Section) string {
	var b strings.Builder
	if s.Flags&elf.SHF_WRITE != 0 {
		b.WriteByte('W')
	}
	if s.Flags&elf.SHF_ALLOC != 0 {
		b.WriteByte('A')
	}
	if s.Flags&elf.SHF_EXECINSTR != 0 {
		b.WriteByte('X')
	}
	return b.String()
}
