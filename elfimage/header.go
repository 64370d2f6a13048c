// Package elfimage reads and patches 32-bit little-endian ELF images in place.
package elfimage

import (
	"bytes"
	"debug/elf"
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	// HeaderSize is the size of an Elf32_Ehdr: 16 ident bytes + 36 bytes of fields.
	HeaderSize = elf.EI_NIDENT + 36

	// entryOffset is the file offset of e_entry.
	entryOffset = 24
)

var elfMagic = []byte(elf.ELFMAG)

// Header is the fixed ELF32 file header.
type Header struct {
	Ident     [elf.EI_NIDENT]byte
	Type      elf.Type
	Machine   elf.Machine
	Version   uint32
	Entry     uint32
	Phoff     uint32
	Shoff     uint32
	Flags     uint32
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

// IsELF reports whether raw starts with the ELF magic.
func IsELF(raw []byte) bool {
	return bytes.HasPrefix(raw, elfMagic)
}

// ParseHeader decodes the ELF32 header at the start of raw.
func ParseHeader(raw []byte) (Header, error) {
	var h Header
	if !IsELF(raw) {
		return h, ErrInvalidMagic
	}
	if len(raw) < HeaderSize {
		return h, errors.Wrapf(ErrMalformedHeader, "file is %d bytes, header needs %d", len(raw), HeaderSize)
	}
	if c := elf.Class(raw[elf.EI_CLASS]); c != elf.ELFCLASS32 {
		return h, errors.Wrapf(ErrMalformedHeader, "not a 32-bit ELF (%s)", c)
	}
	if d := elf.Data(raw[elf.EI_DATA]); d != elf.ELFDATA2LSB {
		return h, errors.Wrapf(ErrMalformedHeader, "not little-endian (%s)", d)
	}

	if err := binary.Read(bytes.NewReader(raw[:HeaderSize]), binary.LittleEndian, &h); err != nil {
		return h, errors.Wrap(ErrMalformedHeader, err.Error())
	}
	return h, nil
}

// PatchEntry overwrites e_entry in raw with addr.
func PatchEntry(raw []byte, addr uint32) error {
	if len(raw) < HeaderSize {
		return errors.Wrap(ErrMalformedHeader, "buffer too short to patch entry point")
	}
	binary.LittleEndian.PutUint32(raw[entryOffset:], addr)
	return nil
}
