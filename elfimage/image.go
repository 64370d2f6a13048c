package elfimage

// Image is a whole ELF32 file held in memory together with its parsed
// header and section table. The header and table are read-only views; all
// patching goes straight to Raw.
type Image struct {
	Raw      []byte
	Header   Header
	Sections *SectionTable
}

// Parse decodes the header and section table of raw. raw is not copied.
func Parse(raw []byte) (*Image, error) {
	h, err := ParseHeader(raw)
	if err != nil {
		return nil, err
	}
	t, err := ParseSections(raw, h)
	if err != nil {
		return nil, err
	}
	return &Image{Raw: raw, Header: h, Sections: t}, nil
}

// Section looks up a section by name.
func (img *Image) Section(name string) (*Section, error) {
	return img.Sections.Lookup(name)
}

// Encode XORs the named section with key.
func (img *Image) Encode(name string, key byte) (*Section, error) {
	s, err := img.Section(name)
	if err != nil {
		return nil, err
	}
	if err := EncodeSection(img.Raw, s, key); err != nil {
		return nil, err
	}
	return s, nil
}

// FindCave runs f over the image.
func (img *Image) FindCave(f CaveFinder) (Cave, error) {
	return f.Find(img.Raw, img.Sections)
}

// Redirect points the entry point at c and writes stub there.
func (img *Image) Redirect(c Cave, stub []byte) error {
	if err := PatchEntry(img.Raw, c.Addr); err != nil {
		return err
	}
	InjectStub(img.Raw, c, stub)
	return nil
}
