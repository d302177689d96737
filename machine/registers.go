package machine

import "github.com/comp3toolchain/comp3/isa"

// AluLopSel selects the ALU's left operand for the current microcycle.
type AluLopSel int

const (
	AluLopAC AluLopSel = iota
	AluLopBR
	AluLopIR
	AluLopPC
	AluLopSP
	AluLopDR
	AluLopZero
)

// AluRopSel selects the ALU's right operand for the current microcycle.
type AluRopSel int

const (
	AluRopDR AluRopSel = iota
	AluRopAR
	AluRopSP
	AluRopIR
	AluRopAC
	AluRopZero
)

// BrMuxSel selects what feeds AR, SP, PC, and BR when one of them
// latches: either the ALU's result, or the current PC (used to carry PC
// forward into AR/BR/SP without disturbing it, and to hold PC steady when
// it latches its own unchanged value).
type BrMuxSel int

const (
	BrMuxALU BrMuxSel = iota
	BrMuxPC
)

// DataIoMuxSel selects what DR reads from: data memory at the current AR,
// or the next character of the input stream.
type DataIoMuxSel int

const (
	DataIoMuxData DataIoMuxSel = iota
	DataIoMuxIO
)

// DrMuxSel selects what feeds DR when it latches: the ALU's result, or
// the data/IO mux's output.
type DrMuxSel int

const (
	DrMuxALU DrMuxSel = iota
	DrMuxData
)

// InstructionMemory is the fixed, read-only instruction store a compiled
// program loads into. Address is a plain index, matching how the
// compiler resolved every branch target to an instruction index.
type InstructionMemory struct {
	instrs []isa.Instruction
}

// NewInstructionMemory wraps a resolved instruction slice for read-only
// fetch during execution.
func NewInstructionMemory(instrs []isa.Instruction) *InstructionMemory {
	return &InstructionMemory{instrs: instrs}
}

// Fetch returns the instruction at addr. Reading past the end of the
// loaded program is a fetch error: it means the program fell through
// instead of halting.
func (m *InstructionMemory) Fetch(addr uint32) (isa.Instruction, bool) {
	if int(addr) >= len(m.instrs) {
		return isa.Instruction{}, false
	}
	return m.instrs[addr], true
}

func (m *InstructionMemory) Len() int { return len(m.instrs) }
