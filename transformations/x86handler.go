package transformation

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/arch/x86/x86asm"
)

type Instruction struct {
	Offset uint64
	Size   int
	Inst   x86asm.Inst
}

// Disassemble decodes code as 32-bit x86. Unlike a linear sweep over
// arbitrary .text, stub bytes must decode cleanly end to end.
func Disassemble(code []byte) ([]Instruction, error) {
	var instructions []Instruction
	offset := uint64(0)

	for offset < uint64(len(code)) {
		inst, err := x86asm.Decode(code[offset:], 32)
		if err != nil {
			return instructions, errors.Wrapf(ErrAssembly, "decode at 0x%x: %v", offset, err)
		}
		// x86asm reports truncated or unknown bytes as a zero Op, not an error
		if inst.Op == 0 {
			return instructions, errors.Wrapf(ErrAssembly, "undecodable bytes at 0x%x", offset)
		}

		instructions = append(instructions, Instruction{
			Offset: offset,
			Size:   inst.Len,
			Inst:   inst,
		})

		offset += uint64(inst.Len)
	}

	return instructions, nil
}

// Listing renders code in Intel syntax, one line per instruction, as it
// would appear when loaded at base.
func Listing(code []byte, base uint32) ([]string, error) {
	instructions, err := Disassemble(code)
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(instructions))
	for _, in := range instructions {
		pc := uint64(base) + in.Offset
		lines = append(lines, fmt.Sprintf("%08x  % -15x  %s",
			pc, code[in.Offset:in.Offset+uint64(in.Size)], x86asm.IntelSyntax(in.Inst, pc, nil)))
	}
	return lines, nil
}

func regBits(reg x86asm.Reg) (byte, error) {
	switch reg {
	case x86asm.EAX:
		return 0, nil
	case x86asm.ECX:
		return 1, nil
	case x86asm.EDX:
		return 2, nil
	case x86asm.EBX:
		return 3, nil
	case x86asm.ESP:
		return 4, nil
	case x86asm.EBP:
		return 5, nil
	case x86asm.ESI:
		return 6, nil
	case x86asm.EDI:
		return 7, nil
	}
	return 0, errors.Wrapf(ErrAssembly, "%s is not a 32-bit general purpose register", reg)
}
