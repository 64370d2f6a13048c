package main

import (
	"debug/elf"
	"encoding/hex"
	"os"

	"cavepack/elfimage"
	transformation "cavepack/transformations"

	"github.com/pkg/errors"
)

// ErrUnsupportedTarget is returned for ELF32 images that are not i386.
var ErrUnsupportedTarget = errors.New("unsupported target machine")

// Result summarises a successful pack.
type Result struct {
	Section  *elfimage.Section
	OldEntry uint32
	Cave     elfimage.Cave
	Stub     []byte
}

// processELF reads inputPath, packs it and writes outputPath. Nothing is
// written unless every step succeeds.
func processELF(inputPath, outputPath string, cfg Config, log *Logger) error {
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return errors.Wrap(err, "read file")
	}
	log.Info("Original file: %s (%d bytes)", inputPath, len(raw))

	res, err := packELF(raw, cfg, log)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, raw, 0755); err != nil {
		return errors.Wrap(err, "write")
	}
	log.Success("%s packed as %s: %s encoded, entry 0x%x -> 0x%x (cave in %s)",
		inputPath, outputPath, res.Section.Name, res.OldEntry, res.Cave.Addr, res.Cave.Section.Name)
	return nil
}

// packELF transforms raw in place: parse, encode the target section, emit
// the decoder stub, find a cave for it, then patch the entry point and
// write the stub. Each failure is wrapped with the stage it came from.
func packELF(raw []byte, cfg Config, log *Logger) (*Result, error) {
	if !elfimage.IsELF(raw) {
		return nil, errors.Wrap(elfimage.ErrInvalidMagic, "check magic")
	}

	img, err := elfimage.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}
	h := img.Header
	log.Debug("Type %s, machine %s, entry 0x%x, %d section headers @ 0x%x (strtab index %d)",
		h.Type, h.Machine, h.Entry, h.Shnum, h.Shoff, h.Shstrndx)
	if h.Machine != elf.EM_386 {
		return nil, errors.Wrapf(ErrUnsupportedTarget, "parse: %s", h.Machine)
	}
	for _, s := range img.Sections.Sections() {
		log.Debug("[%2d] %-20s %-14s addr=0x%08x off=0x%06x size=0x%x",
			s.Index, s.Name, s.Type, s.Addr, s.Offset, s.Size)
	}

	sec, err := img.Encode(cfg.Section, cfg.Key)
	if err != nil {
		return nil, errors.Wrap(err, "encode")
	}
	if sec.Size == 0 {
		return nil, errors.Wrapf(elfimage.ErrEmptySection, "encode: %q", sec.Name)
	}
	log.Info("%s section: offset=0x%x, size=%d bytes, XORed with 0x%02x", sec.Name, sec.Offset, sec.Size, cfg.Key)
	if sec.Flags&elf.SHF_EXECINSTR == 0 {
		log.Warning("%s is not marked executable", sec.Name)
	}

	stub, prog, err := transformation.EmitStub(transformation.StubParams{
		Addr:  sec.Addr,
		Size:  sec.Size,
		Key:   cfg.Key,
		Entry: h.Entry,
	})
	if err != nil {
		return nil, errors.Wrap(err, "emit stub")
	}
	log.Info("Decoder stub: %d instructions, %d bytes", len(prog), len(stub))

	finder := elfimage.CaveFinder{Size: len(stub), Exclude: sec}
	if cfg.MinCave > finder.Size {
		finder.Size = cfg.MinCave
	}
	if cfg.ExecCave {
		finder.Flags = elf.SHF_ALLOC | elf.SHF_EXECINSTR
	}
	cave, err := img.FindCave(finder)
	if err != nil {
		return nil, errors.Wrap(err, "find cave")
	}
	log.Info("Code cave in %s: offset=0x%x, addr=0x%x (%d bytes needed)",
		cave.Section.Name, cave.Offset, cave.Addr, finder.Size)
	if cave.Section.Flags&elf.SHF_EXECINSTR == 0 {
		log.Warning("cave section %s is not executable; the loader may fault on entry", cave.Section.Name)
	}

	if err := img.Redirect(cave, stub); err != nil {
		return nil, errors.Wrap(err, "patch entry")
	}
	if log.Level >= LevelDebug {
		debugStub(log, stub, cave.Addr)
	}

	return &Result{Section: sec, OldEntry: h.Entry, Cave: cave, Stub: stub}, nil
}

func debugStub(log *Logger, stub []byte, base uint32) {
	lines, err := transformation.Listing(stub, base)
	if err != nil {
		log.Debug("stub does not disassemble: %v\n%s", err, hex.Dump(stub))
		return
	}
	for _, l := range lines {
		log.Debug("  %s", l)
	}
}
