package elfimage

import "github.com/pkg/errors"

// XOR applies key to every byte of data in place. Applying it twice with
// the same key restores data.
func XOR(data []byte, key byte) {
	for i := range data {
		data[i] ^= key
	}
}

// EncodeSection XORs the file contents of s with key.
func EncodeSection(raw []byte, s *Section, key byte) error {
	if !s.HasFileBytes() {
		return errors.Wrapf(ErrEmptySection, "%q is %s", s.Name, s.Type)
	}
	XOR(s.Contents(raw), key)
	return nil
}
