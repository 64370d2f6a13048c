package main

import (
	"bytes"
	"debug/elf"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cavepack/elfimage"
	"cavepack/elfimage/elftest"
)

func TestDumpSections(t *testing.T) {
	raw, _ := elftest.Build(elf.EM_386, []elftest.Section{
		{Name: ".text", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, Data: elftest.Pattern(16, 0)},
		{Name: ".bss", Type: elf.SHT_NOBITS, Flags: elf.SHF_ALLOC | elf.SHF_WRITE, Size: 32},
	})
	img, err := elfimage.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var out bytes.Buffer
	dumpSections(&out, img)
	s := out.String()
	for _, want := range []string{"EM_386", ".text", "PROGBITS", "AX", ".bss", "NOBITS", "WA", ".shstrtab"} {
		if !strings.Contains(s, want) {
			t.Errorf("dump missing %q:\n%s", want, s)
		}
	}
	if strings.Index(s, ".text") > strings.Index(s, ".bss") {
		t.Errorf("sections not in table order:\n%s", s)
	}
}

func TestSectionsCommand(t *testing.T) {
	raw, _ := elftest.Build(elf.EM_386, []elftest.Section{
		{Name: ".text", Type: elf.SHT_PROGBITS, Data: elftest.Pattern(16, 0)},
	})
	path := filepath.Join(t.TempDir(), "bin")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"sections", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("sections: %v", err)
	}
	if !strings.Contains(out.String(), ".text") {
		t.Errorf("output missing .text:\n%s", out.String())
	}
}
