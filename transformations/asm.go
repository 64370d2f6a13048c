package transformation

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/arch/x86/x86asm"
)

// ErrAssembly is returned for any instruction sequence Assemble cannot encode.
var ErrAssembly = errors.New("assembly failed")

// ErrEmptyRegion is returned by DecoderStub for a zero-length region.
var ErrEmptyRegion = errors.New("decoder stub: empty region")

// Arch names the target instruction set.
type Arch string

const ArchI386 Arch = "i386"

// Op is a symbolic stub instruction.
type Op int

const (
	OpLabel Op = iota // marks a position, emits nothing
	OpPush            // push r32
	OpPop             // pop r32
	OpPushImm         // push imm32
	OpMovImm          // mov r32, imm32
	OpInt             // int imm8
	OpCld             // cld
	OpLodsb           // lodsb
	OpStosb           // stosb
	OpXorAL           // xor al, imm8
	OpLoop            // loop rel8
	OpRet             // ret
	OpJmpReg          // jmp r32
)

// Inst is one symbolic instruction. Only the operands its Op needs are set.
type Inst struct {
	Op    Op
	Reg   x86asm.Reg
	Imm   uint32
	Label string
}

func Label(name string) Inst { return Inst{Op: OpLabel, Label: name} }
func Push(r x86asm.Reg) Inst { return Inst{Op: OpPush, Reg: r} }
func Pop(r x86asm.Reg) Inst { return Inst{Op: OpPop, Reg: r} }
func PushImm(v uint32) Inst { return Inst{Op: OpPushImm, Imm: v} }
func MovImm(r x86asm.Reg, v uint32) Inst { return Inst{Op: OpMovImm, Reg: r, Imm: v} }
func Int(v uint8) Inst { return Inst{Op: OpInt, Imm: uint32(v)} }
func Cld() Inst { return Inst{Op: OpCld} }
func Lodsb() Inst { return Inst{Op: OpLodsb} }
func Stosb() Inst { return Inst{Op: OpStosb} }
func XorAL(k uint8) Inst { return Inst{Op: OpXorAL, Imm: uint32(k)} }
func Loop(label string) Inst { return Inst{Op: OpLoop, Label: label} }
func Ret() Inst { return Inst{Op: OpRet} }
func JmpReg(r x86asm.Reg) Inst { return Inst{Op: OpJmpReg, Reg: r} }

func (i Inst) String() string {
	switch i.Op {
	case OpLabel:
		return i.Label + ":"
	case OpPush:
		return fmt.Sprintf("push %s", i.Reg)
	case OpPop:
		return fmt.Sprintf("pop %s", i.Reg)
	case OpPushImm:
		return fmt.Sprintf("push 0x%x", i.Imm)
	case OpMovImm:
		return fmt.Sprintf("mov %s, 0x%x", i.Reg, i.Imm)
	case OpInt:
		return fmt.Sprintf("int 0x%x", i.Imm)
	case OpCld:
		return "cld"
	case OpLodsb:
		return "lodsb"
	case OpStosb:
		return "stosb"
	case OpXorAL:
		return fmt.Sprintf("xor al, 0x%x", i.Imm)
	case OpLoop:
		return "loop " + i.Label
	case OpRet:
		return "ret"
	case OpJmpReg:
		return fmt.Sprintf("jmp %s", i.Reg)
	}
	return fmt.Sprintf("op(%d)", int(i.Op))
}

// Assemble encodes prog for arch. Labels are resolved in a first pass over
// the fixed instruction sizes, bytes are emitted in a second.
func Assemble(arch Arch, prog []Inst) ([]byte, error) {
	if arch != ArchI386 {
		return nil, errors.Wrapf(ErrAssembly, "unsupported architecture %q", arch)
	}

	labels := make(map[string]int)
	pc := 0
	for _, in := range prog {
		if in.Op == OpLabel {
			if _, dup := labels[in.Label]; dup {
				return nil, errors.Wrapf(ErrAssembly, "label %q defined twice", in.Label)
			}
			labels[in.Label] = pc
		}
		n, err := instSize(in)
		if err != nil {
			return nil, err
		}
		pc += n
	}

	code := make([]byte, 0, pc)
	for _, in := range prog {
		var err error
		code, err = encode(code, in, labels)
		if err != nil {
			return nil, errors.Wrapf(err, "at 0x%x (%s)", len(code), in)
		}
	}
	return code, nil
}

func instSize(in Inst) (int, error) {
	switch in.Op {
	case OpLabel:
		return 0, nil
	case OpPush, OpPop, OpCld, OpLodsb, OpStosb, OpRet:
		return 1, nil
	case OpInt, OpXorAL, OpLoop, OpJmpReg:
		return 2, nil
	case OpPushImm, OpMovImm:
		return 5, nil
	}
	return 0, errors.Wrapf(ErrAssembly, "unknown instruction %s", in)
}

func encode(code []byte, in Inst, labels map[string]int) ([]byte, error) {
	switch in.Op {
	case OpLabel:
		return code, nil

	case OpPush, OpPop, OpMovImm, OpJmpReg:
		r, err := regBits(in.Reg)
		if err != nil {
			return code, err
		}
		switch in.Op {
		case OpPush:
			return append(code, 0x50+r), nil
		case OpPop:
			return append(code, 0x58+r), nil
		case OpMovImm:
			return imm32(append(code, 0xb8+r), in.Imm), nil
		default:
			// FF /4, mod=11
			return append(code, 0xff, 0xe0|r), nil
		}

	case OpPushImm:
		return imm32(append(code, 0x68), in.Imm), nil

	case OpInt:
		if in.Imm > 0xff {
			return code, errors.Wrapf(ErrAssembly, "interrupt vector 0x%x", in.Imm)
		}
		return append(code, 0xcd, byte(in.Imm)), nil

	case OpXorAL:
		if in.Imm > 0xff {
			return code, errors.Wrapf(ErrAssembly, "imm8 0x%x", in.Imm)
		}
		return append(code, 0x34, byte(in.Imm)), nil

	case OpLoop:
		target, ok := labels[in.Label]
		if !ok {
			return code, errors.Wrapf(ErrAssembly, "undefined label %q", in.Label)
		}
		rel := target - (len(code) + 2)
		if rel < -128 || rel > 127 {
			return code, errors.Wrapf(ErrAssembly, "loop target %q out of rel8 range (%d)", in.Label, rel)
		}
		return append(code, 0xe2, byte(int8(rel))), nil

	case OpCld:
		return append(code, 0xfc), nil
	case OpLodsb:
		return append(code, 0xac), nil
	case OpStosb:
		return append(code, 0xaa), nil
	case OpRet:
		return append(code, 0xc3), nil
	}
	return code, errors.Wrapf(ErrAssembly, "unknown instruction %s", in)
}

func imm32(code []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(code, v)
}
