package elfimage

import (
	"bytes"

	"github.com/pkg/errors"
)

// StringTable resolves NUL-terminated names stored at Base in the image.
type StringTable struct {
	raw  []byte
	Base uint32
}

// NewStringTable returns a resolver for the string table starting at file offset base.
func NewStringTable(raw []byte, base uint32) StringTable {
	return StringTable{raw: raw, Base: base}
}

// Lookup returns the string starting at Base+off. A name that runs off the
// end of the image is treated as corruption, never truncated.
func (s StringTable) Lookup(off uint32) (string, error) {
	start := uint64(s.Base) + uint64(off)
	if start >= uint64(len(s.raw)) {
		return "", errors.Wrapf(ErrStringTableOutOfBounds, "name offset 0x%x starts past end of file", start)
	}
	end := bytes.IndexByte(s.raw[start:], 0)
	if end < 0 {
		return "", errors.Wrapf(ErrStringTableOutOfBounds, "name at 0x%x has no terminator", start)
	}
	return string(s.raw[start : start+uint64(end)]), nil
}
