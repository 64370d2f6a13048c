package transformation

import (
	"github.com/pkg/errors"
	"golang.org/x/arch/x86/x86asm"
	"golang.org/x/sys/unix"
)

const (
	PageSize = 4096

	// i386 __NR_mprotect, entered through int 0x80
	sysMprotect = 125
	intSyscall  = 0x80

	protRWX = unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC
	protRX  = unix.PROT_READ | unix.PROT_EXEC
)

// saved in push order, restored in reverse
var stubRegs = []x86asm.Reg{x86asm.EAX, x86asm.EBX, x86asm.ECX, x86asm.EDX, x86asm.ESI, x86asm.EDI}

// StubParams describes the encoded region the stub restores at load time.
type StubParams struct {
	Addr  uint32 // virtual address of the encoded section
	Size  uint32
	Key   byte
	Entry uint32 // original entry point
}

// Pages returns the page-aligned start and the length from there that
// covers the whole region.
func (p StubParams) Pages() (start, length uint32) {
	start = p.Addr &^ (PageSize - 1)
	return start, p.Addr - start + p.Size
}

// DecoderStub builds the instruction sequence that makes the region
// writable, XORs it back in memory, restores R-X protection, and jumps to
// the original entry point with every register it touched restored.
func DecoderStub(p StubParams) ([]Inst, error) {
	if p.Size == 0 {
		return nil, errors.Wrapf(ErrEmptyRegion, "at 0x%x", p.Addr)
	}
	page, span := p.Pages()

	var prog []Inst
	for _, r := range stubRegs {
		prog = append(prog, Push(r))
	}

	prog = append(prog, mprotect(page, span, protRWX)...)
	prog = append(prog,
		MovImm(x86asm.EDI, p.Addr),
		MovImm(x86asm.ESI, p.Addr),
		MovImm(x86asm.ECX, p.Size),
		Cld(),
		Label("decode"),
		Lodsb(),
		XorAL(p.Key),
		Stosb(),
		Loop("decode"),
	)
	prog = append(prog, mprotect(page, span, protRX)...)

	for i := len(stubRegs) - 1; i >= 0; i-- {
		prog = append(prog, Pop(stubRegs[i]))
	}
	return append(prog, PushImm(p.Entry), Ret()), nil
}

func mprotect(addr, length uint32, prot uint32) []Inst {
	return []Inst{
		MovImm(x86asm.EAX, sysMprotect),
		MovImm(x86asm.EBX, addr),
		MovImm(x86asm.ECX, length),
		MovImm(x86asm.EDX, prot),
		Int(intSyscall),
	}
}

// EmitStub assembles DecoderStub(p) for i386.
func EmitStub(p StubParams) ([]byte, []Inst, error) {
	prog, err := DecoderStub(p)
	if err != nil {
		return nil, nil, err
	}
	code, err := Assemble(ArchI386, prog)
	if err != nil {
		return nil, prog, err
	}
	return code, prog, nil
}
