// Package microcode implements the COMP-3 control unit: a flat table of
// microinstructions driven by a micro-program counter, grounded directly
// on the machine datapath's register-transfer primitives. Every ISA
// instruction decodes to a handful of microcycles through this table
// rather than being interpreted directly - the same architecture the
// datapath's Latch*/Write* methods were designed to be driven by.
package microcode

import (
	"fmt"

	"github.com/comp3toolchain/comp3/isa"
	"github.com/comp3toolchain/comp3/machine"
)

// Step is one plain microinstruction: a set of mux selections and latch
// signals applied to the datapath in a single microcycle.
type Step struct {
	AluLopSel    machine.AluLopSel
	AluRopSel    machine.AluRopSel
	AluOp        isa.AluOp
	BrMuxSel     machine.BrMuxSel
	DrMuxSel     machine.DrMuxSel
	DataIoMuxSel machine.DataIoMuxSel

	LatchAC, LatchAR, LatchSP, LatchPC, LatchBR, LatchDR, LatchIR bool
	WriteData, WriteIO                                            bool
	LatchPS, ClearPS, Halt                                        bool
}

// run applies the step to d. It returns false only when the step was an
// instruction fetch that ran off the end of the loaded program; the
// caller treats that exactly like an explicit HLT.
func (s Step) run(d *machine.DataPath) bool {
	d.AluLopSel = s.AluLopSel
	d.AluRopSel = s.AluRopSel
	d.AluOp = s.AluOp
	d.BrMuxSel = s.BrMuxSel
	d.DrMuxSel = s.DrMuxSel
	d.DataIoMuxSel = s.DataIoMuxSel

	if s.LatchIR && !d.LatchIR() {
		d.LatchHalt()
		return false
	}
	if s.LatchAC {
		d.LatchAC()
	}
	if s.LatchAR {
		d.LatchAR()
	}
	if s.LatchSP {
		d.LatchSP()
	}
	if s.LatchPC {
		d.LatchPC()
	}
	if s.LatchBR {
		d.LatchBR()
	}
	if s.LatchDR {
		d.LatchDR()
	}
	if s.WriteData {
		d.WriteData()
	}
	if s.WriteIO {
		d.WriteIO()
	}
	if s.LatchPS {
		d.LatchPS()
	}
	if s.ClearPS {
		d.ClearPS()
	}
	if s.Halt {
		d.LatchHalt()
	}
	return true
}

// guard decides whether a branch microinstruction takes its target. A
// nil guard always takes it - an unconditional jump to another point in
// the table.
type guard func(d *machine.DataPath) bool

// entry is one row of the microprogram as authored: either a Step, or a
// branch naming its target by alias. Aliases are resolved to table
// indices once, at Build time.
type entry struct {
	alias  string
	step   *Step
	guard  guard
	target string
}

// resolvedEntry is an entry with its target alias replaced by the
// instruction index it names.
type resolvedEntry struct {
	step   *Step
	guard  guard
	target int
}

// Table is the resolved, alias-free microprogram a Control steps
// through.
type Table struct {
	entries []resolvedEntry
}

// Build assembles the microprogram and resolves every branch's alias to
// a concrete table index. It fails the same way the reference control
// store's label pass did: any branch target that was never defined, or
// any alias defined twice, is reported immediately rather than surfacing
// as a wrong jump during execution.
func Build() (*Table, error) {
	return buildFrom(program())
}

// buildFrom resolves a raw entry slice into a Table. Split out from
// Build so the label-resolution logic can be exercised directly against
// a small hand-built table, rather than only indirectly through the full
// microprogram.
func buildFrom(raw []entry) (*Table, error) {
	addr := make(map[string]int, len(raw))
	for i, e := range raw {
		if e.alias == "" {
			continue
		}
		if _, dup := addr[e.alias]; dup {
			return nil, fmt.Errorf("microcode: label %q is defined more than once", e.alias)
		}
		addr[e.alias] = i
	}

	resolved := make([]resolvedEntry, len(raw))
	for i, e := range raw {
		resolved[i] = resolvedEntry{step: e.step, guard: e.guard}
		if e.step == nil {
			target, ok := addr[e.target]
			if !ok {
				return nil, fmt.Errorf("microcode: branch targets undefined label %q", e.target)
			}
			resolved[i].target = target
		}
	}
	return &Table{entries: resolved}, nil
}

func isOp(op isa.OpCode) guard {
	return func(d *machine.DataPath) bool { return d.IR.OpCode == op }
}

func isOperandType(ot isa.OperandType) guard {
	return func(d *machine.DataPath) bool { return d.IR.OperandType == ot }
}

func isOneOf(ops ...isa.OpCode) guard {
	return func(d *machine.DataPath) bool {
		for _, op := range ops {
			if d.IR.OpCode == op {
				return true
			}
		}
		return false
	}
}

// program authors the microprogram in the order the control unit's
// mPC walks it: fetch, decode, per-opcode operand fetch, execute.
// alias "fetch" must stay at index 0 - Control tracks a completed
// instruction by noticing the mPC has wrapped back here.
func program() []entry {
	return []entry{
		// --- fetch / increment PC ---
		{alias: "fetch", step: &Step{LatchIR: true}},
		{step: &Step{AluLopSel: machine.AluLopPC, AluOp: isa.AluInc, BrMuxSel: machine.BrMuxALU, LatchPC: true}},

		// --- decode ---
		{guard: isOp(isa.HLT), target: "exec_hlt"},
		{guard: isOp(isa.PUSH), target: "exec_push"},
		{guard: isOp(isa.POP), target: "exec_pop"},
		{guard: isOp(isa.SHL), target: "exec_shl"},
		{guard: isOp(isa.SHR), target: "exec_shr"},
		{guard: func(d *machine.DataPath) bool {
			return d.IR.OpCode == isa.JMP && d.IR.OperandType == isa.PointerStackOffset
		}, target: "jump_indirect"},
		{guard: isOp(isa.JMP), target: "do_jump"},
		{guard: func(d *machine.DataPath) bool { return d.IR.OpCode == isa.JZ && d.Status.Z }, target: "do_jump"},
		{guard: func(d *machine.DataPath) bool { return d.IR.OpCode == isa.JNZ && !d.Status.Z }, target: "do_jump"},
		{guard: func(d *machine.DataPath) bool { return d.IR.OpCode == isa.JA && d.Status.C && !d.Status.Z }, target: "do_jump"},
		{guard: func(d *machine.DataPath) bool { return d.IR.OpCode == isa.JAE && d.Status.C }, target: "do_jump"},
		{guard: func(d *machine.DataPath) bool { return d.IR.OpCode == isa.JB && !d.Status.C }, target: "do_jump"},
		{guard: func(d *machine.DataPath) bool { return d.IR.OpCode == isa.JBE && (!d.Status.C || d.Status.Z) }, target: "do_jump"},
		{guard: isOneOf(isa.ADD, isa.SUB, isa.AND, isa.OR, isa.CMP, isa.LD, isa.ST), target: "fetch_operand"},
		{target: "fetch"}, // a conditional jump that wasn't taken falls all the way here

		// --- HLT ---
		{alias: "exec_hlt", step: &Step{Halt: true}},

		// --- PUSH: DR<-AC, AR<-SP, Mem[AR]<-DR, SP<-SP-1 ---
		{alias: "exec_push", step: &Step{
			AluLopSel: machine.AluLopAC, AluRopSel: machine.AluRopZero, AluOp: isa.AluOr,
			DrMuxSel: machine.DrMuxALU, LatchDR: true,
		}},
		{step: &Step{
			AluLopSel: machine.AluLopSP, AluRopSel: machine.AluRopZero, AluOp: isa.AluOr,
			BrMuxSel: machine.BrMuxALU, LatchAR: true,
		}},
		{step: &Step{WriteData: true}},
		{step: &Step{AluLopSel: machine.AluLopSP, AluOp: isa.AluDec, BrMuxSel: machine.BrMuxALU, LatchSP: true}},
		{target: "fetch"},

		// --- POP: SP<-SP+1, AR<-SP, DR<-Mem[AR], AC<-DR ---
		{alias: "exec_pop", step: &Step{AluLopSel: machine.AluLopSP, AluOp: isa.AluInc, BrMuxSel: machine.BrMuxALU, LatchSP: true}},
		{step: &Step{
			AluLopSel: machine.AluLopSP, AluRopSel: machine.AluRopZero, AluOp: isa.AluOr,
			BrMuxSel: machine.BrMuxALU, LatchAR: true,
		}},
		{step: &Step{DataIoMuxSel: machine.DataIoMuxData, DrMuxSel: machine.DrMuxData, LatchDR: true}},
		{step: &Step{AluLopSel: machine.AluLopZero, AluRopSel: machine.AluRopDR, AluOp: isa.AluOr, LatchAC: true}},
		{target: "fetch"},

		// --- SHL/SHR: the ALU only ever shifts the accumulator by one bit ---
		{alias: "exec_shl", step: &Step{AluLopSel: machine.AluLopAC, AluOp: isa.AluShl, LatchAC: true}},
		{target: "fetch"},
		{alias: "exec_shr", step: &Step{AluLopSel: machine.AluLopAC, AluOp: isa.AluShr, LatchAC: true}},
		{target: "fetch"},

		// --- unconditional/conditional jump: PC<-IR.Operand ---
		{alias: "do_jump", step: &Step{
			AluLopSel: machine.AluLopIR, AluRopSel: machine.AluRopZero, AluOp: isa.AluOr,
			BrMuxSel: machine.BrMuxALU, LatchPC: true,
		}},
		{target: "fetch"},

		// --- indirect jump: PC<-Mem[SP+IR.Operand], a function return.
		// The pushed value is a plain return address, not a pointer to one,
		// so this reads memory once and latches straight into PC - it does
		// not chain through resolve_address_value like LD/ST's pointer
		// operand types do. ---
		{alias: "jump_indirect", step: &Step{
			AluLopSel: machine.AluLopSP, AluRopSel: machine.AluRopIR, AluOp: isa.AluAdd,
			BrMuxSel: machine.BrMuxALU, LatchAR: true,
		}},
		{step: &Step{DataIoMuxSel: machine.DataIoMuxData, DrMuxSel: machine.DrMuxData, LatchDR: true}},
		{step: &Step{
			AluLopSel: machine.AluLopZero, AluRopSel: machine.AluRopDR, AluOp: isa.AluOr,
			BrMuxSel: machine.BrMuxALU, LatchPC: true,
		}},
		{target: "fetch"},

		// --- operand fetch: dispatch on IR's operand type ---
		{alias: "fetch_operand", guard: isOperandType(isa.Immediate), target: "op_immediate"},
		{guard: isOperandType(isa.Address), target: "op_address"},
		{guard: isOperandType(isa.PointerAddress), target: "op_pointer_address"},
		{guard: isOperandType(isa.StackOffset), target: "op_stack_offset"},
		{guard: isOperandType(isa.PointerStackOffset), target: "op_pointer_stack_offset"},

		{alias: "op_immediate", step: &Step{
			AluLopSel: machine.AluLopIR, AluRopSel: machine.AluRopZero, AluOp: isa.AluOr,
			DrMuxSel: machine.DrMuxALU, LatchDR: true,
		}},
		{target: "execute"},

		{alias: "op_address", step: &Step{
			AluLopSel: machine.AluLopIR, AluRopSel: machine.AluRopZero, AluOp: isa.AluOr,
			BrMuxSel: machine.BrMuxALU, LatchAR: true,
		}},
		{target: "resolve_address_value"},

		{alias: "op_stack_offset", step: &Step{
			AluLopSel: machine.AluLopSP, AluRopSel: machine.AluRopIR, AluOp: isa.AluAdd,
			BrMuxSel: machine.BrMuxALU, LatchAR: true,
		}},
		{target: "resolve_address_value"},

		{alias: "op_pointer_address", step: &Step{
			AluLopSel: machine.AluLopIR, AluRopSel: machine.AluRopZero, AluOp: isa.AluOr,
			BrMuxSel: machine.BrMuxALU, LatchAR: true,
		}},
		{step: &Step{DataIoMuxSel: machine.DataIoMuxData, DrMuxSel: machine.DrMuxData, LatchDR: true}},
		{step: &Step{
			AluLopSel: machine.AluLopZero, AluRopSel: machine.AluRopDR, AluOp: isa.AluOr,
			BrMuxSel: machine.BrMuxALU, LatchAR: true,
		}},
		{target: "resolve_address_value"},

		{alias: "op_pointer_stack_offset", step: &Step{
			AluLopSel: machine.AluLopSP, AluRopSel: machine.AluRopIR, AluOp: isa.AluAdd,
			BrMuxSel: machine.BrMuxALU, LatchAR: true,
		}},
		{step: &Step{DataIoMuxSel: machine.DataIoMuxData, DrMuxSel: machine.DrMuxData, LatchDR: true}},
		{step: &Step{
			AluLopSel: machine.AluLopZero, AluRopSel: machine.AluRopDR, AluOp: isa.AluOr,
			BrMuxSel: machine.BrMuxALU, LatchAR: true,
		}},
		{target: "resolve_address_value"},

		// AR now holds the final target address. ST needs nothing read -
		// it supplies its own value from AC at execute time - everything
		// else reads through the data/IO mux, picking IO only for the
		// one address wired to the input stream.
		{alias: "resolve_address_value", guard: isOp(isa.ST), target: "execute"},
		{guard: func(d *machine.DataPath) bool { return d.AR == isa.IOReadAddr }, target: "read_io"},
		{target: "read_data"},

		{alias: "read_io", step: &Step{DataIoMuxSel: machine.DataIoMuxIO, DrMuxSel: machine.DrMuxData, LatchDR: true}},
		{target: "execute"},

		{alias: "read_data", step: &Step{DataIoMuxSel: machine.DataIoMuxData, DrMuxSel: machine.DrMuxData, LatchDR: true}},
		{target: "execute"},

		// --- execute: DR (and, for ST, AR) are ready; dispatch on opcode ---
		{alias: "execute", guard: isOp(isa.ST), target: "exec_st"},
		{guard: isOp(isa.LD), target: "exec_ld"},
		{guard: isOp(isa.CMP), target: "exec_cmp"},
		{guard: isOp(isa.ADD), target: "exec_add"},
		{guard: isOp(isa.SUB), target: "exec_sub"},
		{guard: isOp(isa.AND), target: "exec_and"},
		{guard: isOp(isa.OR), target: "exec_or"},

		{alias: "exec_st", step: &Step{
			AluLopSel: machine.AluLopAC, AluRopSel: machine.AluRopZero, AluOp: isa.AluOr,
			DrMuxSel: machine.DrMuxALU, LatchDR: true,
		}},
		{guard: func(d *machine.DataPath) bool { return d.AR == isa.IOWriteAddr }, target: "exec_st_io"},
		{step: &Step{WriteData: true}},
		{target: "fetch"},

		{alias: "exec_st_io", step: &Step{WriteIO: true}},
		{target: "fetch"},

		{alias: "exec_ld", step: &Step{AluLopSel: machine.AluLopZero, AluRopSel: machine.AluRopDR, AluOp: isa.AluOr, LatchAC: true}},
		{target: "fetch"},

		{alias: "exec_cmp", step: &Step{AluLopSel: machine.AluLopDR, AluRopSel: machine.AluRopAC, AluOp: isa.AluSub, LatchPS: true}},
		{target: "fetch"},

		{alias: "exec_add", step: &Step{AluLopSel: machine.AluLopDR, AluRopSel: machine.AluRopAC, AluOp: isa.AluAdd, LatchAC: true}},
		{target: "fetch"},

		{alias: "exec_sub", step: &Step{AluLopSel: machine.AluLopDR, AluRopSel: machine.AluRopAC, AluOp: isa.AluSub, LatchAC: true}},
		{target: "fetch"},

		{alias: "exec_and", step: &Step{AluLopSel: machine.AluLopDR, AluRopSel: machine.AluRopAC, AluOp: isa.AluAnd, LatchAC: true}},
		{target: "fetch"},

		{alias: "exec_or", step: &Step{AluLopSel: machine.AluLopDR, AluRopSel: machine.AluRopAC, AluOp: isa.AluOr, LatchAC: true}},
		{target: "fetch"},
	}
}
