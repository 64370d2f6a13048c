package elfimage

import "github.com/pkg/errors"

var (
	ErrInvalidMagic           = errors.New("not an ELF file")
	ErrMalformedHeader        = errors.New("malformed ELF header")
	ErrMalformedSectionTable  = errors.New("malformed section header table")
	ErrStringTableOutOfBounds = errors.New("string table read past end of file")
	ErrSectionNotFound        = errors.New("section not found")
	ErrNoCaveFound            = errors.New("no code cave found")
	ErrEmptySection           = errors.New("section has no file contents")
)
