package codegen

import (
	"fmt"

	"github.com/comp3toolchain/comp3/isa"
)

// stubInstr is one instruction as produced during emission. When isStub
// is set, instr.Operand is meaningless and must be replaced by the
// instruction address that label resolves to before the program is
// usable.
type stubInstr struct {
	instr  isa.Instruction
	label  string
	isStub bool
}

// resolve performs the single linear pass that turns every stub into a
// plain, addressed isa.Instruction. It runs once, after the whole tree
// has been lowered, so every label - forward or backward reference - is
// already present in g.labels regardless of emission order.
func (g *Generator) resolve() ([]isa.Instruction, error) {
	out := make([]isa.Instruction, len(g.instrs))
	for i, si := range g.instrs {
		instr := si.instr
		if si.isStub {
			addr, ok := g.labels[si.label]
			if !ok {
				return nil, fmt.Errorf("codegen: internal error: unresolved label %q", si.label)
			}
			instr.Operand = uint32(addr)
		}
		out[i] = instr
	}
	return out, nil
}
