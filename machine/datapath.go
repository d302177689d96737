// Package machine implements the COMP-3 microcoded datapath: the
// registers, ALU, memories, and I/O peripheral that the microcode package
// drives one microcycle at a time.
package machine

import "github.com/comp3toolchain/comp3/isa"

// DataPath wires together every component a microcycle can touch. Its
// exported Alu*Sel/BrMuxSel/DrMuxSel/DataIoMuxSel fields are the control
// lines a microinstruction sets before calling one or more of the Latch*
// methods; its registers (AC, AR, SP, PC, DR, BR, IR) are read directly by
// microcode that needs their current value (for a microcode branch
// guard, for instance).
type DataPath struct {
	AC, AR, SP, PC, DR, BR uint32
	IR                     isa.Instruction

	InstrMem *InstructionMemory
	Mem      *DataMemory
	IO       *IOInterface
	Status   Status

	AluLopSel    AluLopSel
	AluRopSel    AluRopSel
	AluOp        isa.AluOp
	BrMuxSel     BrMuxSel
	DrMuxSel     DrMuxSel
	DataIoMuxSel DataIoMuxSel
}

// DefaultStackTop is the stack pointer's reset value: the highest data
// address reserved for the runtime stack, which grows down from here.
const DefaultStackTop = 4096

// New creates a DataPath loaded with program and ready to run, with the
// stack pointer reset to stackTop (DefaultStackTop if zero) and the input
// stream set to input.
func New(program *isa.Program, input string, stackTop uint32) *DataPath {
	if stackTop == 0 {
		stackTop = DefaultStackTop
	}
	return &DataPath{
		SP:       stackTop,
		PC:       program.EntryPoint,
		InstrMem: NewInstructionMemory(program.Instructions),
		Mem:      NewDataMemory(program.DataMemory),
		IO:       NewIOInterface(input),
	}
}

// aluOperands resolves the ALU's current left and right operands from the
// selected sources.
func (d *DataPath) aluOperands() (left, right uint32) {
	switch d.AluLopSel {
	case AluLopAC:
		left = d.AC
	case AluLopBR:
		left = d.BR
	case AluLopIR:
		left = d.IR.Operand
	case AluLopPC:
		left = d.PC
	case AluLopSP:
		left = d.SP
	case AluLopDR:
		left = d.DR
	case AluLopZero:
		left = 0
	}
	switch d.AluRopSel {
	case AluRopDR:
		right = d.DR
	case AluRopAR:
		right = d.AR
	case AluRopSP:
		right = d.SP
	case AluRopIR:
		right = d.IR.Operand
	case AluRopAC:
		right = d.AC
	case AluRopZero:
		right = 0
	}
	return left, right
}

// aluResult evaluates the ALU combinationally from the current operand
// selection and opcode, without latching anything.
func (d *DataPath) aluResult() (result uint32, n, z, c bool) {
	left, right := d.aluOperands()
	return aluCompute(d.AluOp, left, right)
}

// brMuxValue resolves what AR, SP, PC, or BR would read if latched this
// microcycle.
func (d *DataPath) brMuxValue() uint32 {
	if d.BrMuxSel == BrMuxPC {
		return d.PC
	}
	result, _, _, _ := d.aluResult()
	return result
}

// dataIoMuxValue resolves what DR would read from the data/IO side this
// microcycle. Selecting the IO side consumes one input character: call
// this at most once per microcycle, which LatchDR already guarantees.
func (d *DataPath) dataIoMuxValue() uint32 {
	if d.DataIoMuxSel == DataIoMuxIO {
		return d.IO.Read()
	}
	return d.Mem.Read(d.AR)
}

// LatchAC commits the ALU's current result to the accumulator and its
// flags to status.
func (d *DataPath) LatchAC() {
	result, n, z, c := d.aluResult()
	d.AC = result
	d.Status.Latch(n, z, c)
}

// LatchAR commits the BR mux's current value to the address register.
func (d *DataPath) LatchAR() { d.AR = d.brMuxValue() }

// LatchSP commits the BR mux's current value to the stack pointer.
func (d *DataPath) LatchSP() { d.SP = d.brMuxValue() }

// LatchPC commits the BR mux's current value to the program counter.
func (d *DataPath) LatchPC() { d.PC = d.brMuxValue() }

// LatchBR commits the BR mux's current value to the branch-target stash
// register, which later feeds back in as an ALU left operand.
func (d *DataPath) LatchBR() { d.BR = d.brMuxValue() }

// LatchDR commits the DR mux's current value (ALU result, or the
// data/IO mux) to the data register.
func (d *DataPath) LatchDR() {
	if d.DrMuxSel == DrMuxData {
		d.DR = d.dataIoMuxValue()
		return
	}
	result, _, _, _ := d.aluResult()
	d.DR = result
}

// LatchIR fetches the instruction at the current PC into the instruction
// register. It reports false if PC has run off the end of the loaded
// program, which the control unit treats the same as an explicit HLT.
func (d *DataPath) LatchIR() bool {
	instr, ok := d.InstrMem.Fetch(d.PC)
	if !ok {
		return false
	}
	d.IR = instr
	return true
}

// WriteData commits DR to data memory at the current AR.
func (d *DataPath) WriteData() { d.Mem.Write(d.AR, d.DR) }

// WriteIO commits DR to the output stream.
func (d *DataPath) WriteIO() { d.IO.Write(d.DR) }

// LatchPS is an alias for the flag capture LatchAC already performs; it
// exists because some microinstructions latch flags without wanting the
// ALU result written anywhere else (a bare CMP).
func (d *DataPath) LatchPS() {
	_, n, z, c := d.aluResult()
	d.Status.Latch(n, z, c)
}

// ClearPS resets the condition flags.
func (d *DataPath) ClearPS() { d.Status.Clear() }

// LatchHalt stops the control unit's fetch/execute loop.
func (d *DataPath) LatchHalt() { d.Status.Halted = true }
