package elfimage

import (
	"debug/elf"
	"math"

	"github.com/pkg/errors"
)

// Cave is the start of a run of zero bytes large enough to hold a stub.
type Cave struct {
	Addr    uint32
	Offset  uint32
	Section *Section
}

// CaveFinder locates the first run of Size zero bytes inside a section.
type CaveFinder struct {
	Size int

	// Flags, if set, restricts the search to sections carrying all of them.
	Flags elf.SectionFlag

	// Exclude is never searched. The packer sets it to the encoded section,
	// which the stub rewrites while it runs.
	Exclude *Section
}

// Find scans the sections in table order and returns the first qualifying
// run. First found wins; no attempt is made at a best fit.
func (f CaveFinder) Find(raw []byte, t *SectionTable) (Cave, error) {
	if f.Size <= 0 {
		return Cave{}, errors.Errorf("invalid cave size %d", f.Size)
	}
	for _, s := range t.Sections() {
		// NOBITS sections have no bytes in the file to reuse
		if s == f.Exclude || !s.HasFileBytes() || s.Flags&f.Flags != f.Flags {
			continue
		}
		start, ok := zeroRun(s.Contents(raw), f.Size)
		if !ok {
			continue
		}
		addr := uint64(s.Addr) + uint64(start)
		if addr > math.MaxUint32 {
			return Cave{}, errors.Wrapf(ErrMalformedSectionTable, "section %q address overflows", s.Name)
		}
		return Cave{
			Addr:    uint32(addr),
			Offset:  s.Offset + uint32(start),
			Section: s,
		}, nil
	}
	return Cave{}, errors.Wrapf(ErrNoCaveFound, "need %d bytes", f.Size)
}

// zeroRun returns the index where the first run of n zero bytes in data starts.
func zeroRun(data []byte, n int) (int, bool) {
	run := 0
	for i, b := range data {
		if b != 0 {
			run = 0
			continue
		}
		run++
		if run == n {
			return i + 1 - n, true
		}
	}
	return 0, false
}
