// Package codegen lowers an ast.Node tree to a resolved isa.Program. It
// walks the tree once, dispatching on the concrete node type with a
// single type switch, and tracks the runtime stack's shape at compile
// time (shadowStack) so that local-variable references can be lowered to
// STACK_OFFSET operands without a symbol table lookup at run time.
//
// Forward branch targets (the far side of an if, the exit of a loop) are
// not yet known when the branch instruction is emitted, so they are
// emitted as stubInstr values carrying a symbolic label instead of a
// resolved address. A final linear pass (resolver.go) replaces every
// label with the instruction index it came to refer to. Backward
// branches (a loop's repeat jump) never need this: the target address is
// already known when the jump is emitted.
package codegen

import (
	"fmt"

	"github.com/comp3toolchain/comp3/ast"
	"github.com/comp3toolchain/comp3/isa"
)

// funcInfo is a registered top-level function: its parameter names, body,
// and the label its compiled body is emitted under. Functions are
// compiled exactly once, as a global, ahead of the program's other
// top-level code; a call site jumps to label rather than re-expanding
// the body, which is what lets two calls to the same function - or a
// function calling itself - share one compiled copy.
type funcInfo struct {
	params []string
	body   []ast.Node
	label  string
}

// Generator lowers a parsed source file to a resolved program. A
// Generator is single-use: call Generate once and discard it.
type Generator struct {
	instrs []stubInstr
	data   []isa.DataWord

	shadowStack []string // identifier names, bottom of runtime stack first
	globals     map[string]uint32
	funcs       map[string]*funcInfo

	scratch uint32 // reserved data cell used to shuttle AC around a POP that must not disturb it

	labelCounter int
	labels       map[string]int // label -> resolved instruction address, populated as code is emitted
}

// NewGenerator creates an empty Generator ready to compile one source
// file's top-level node sequence.
func NewGenerator() *Generator {
	return &Generator{
		globals: make(map[string]uint32),
		funcs:   make(map[string]*funcInfo),
		labels:  make(map[string]int),
	}
}

// Generate compiles a complete top-level node sequence to a resolved
// program image. Functions are globals: every defun's body is compiled
// first, each to one labeled block reached only by a call's JMP, before
// any non-global code is emitted. The first non-global instruction
// becomes the program's entry point, since instruction 0 now belongs to
// whichever function happened to be declared first.
func (g *Generator) Generate(nodes []ast.Node) (*isa.Program, error) {
	g.scratch = g.allocData(isa.DataWord{})

	if err := g.registerTopLevel(nodes); err != nil {
		return nil, err
	}

	for _, n := range nodes {
		if fn, ok := n.(*ast.Func); ok {
			if err := g.lowerFunc(fn); err != nil {
				return nil, err
			}
		}
	}

	entryPoint := g.here()

	for _, n := range nodes {
		switch n.(type) {
		case *ast.Func, *ast.StrAlloc:
			continue // already handled above / by registerTopLevel
		}
		if err := g.lower(n); err != nil {
			return nil, err
		}
	}

	g.emit(isa.Instruction{OpCode: isa.HLT, OperandType: isa.NoOperand})

	instrs, err := g.resolve()
	if err != nil {
		return nil, err
	}
	return &isa.Program{Instructions: instrs, DataMemory: g.data, EntryPoint: entryPoint}, nil
}

// registerTopLevel makes every top-level function and string buffer
// visible before any code is generated, so a call or reference may
// precede the declaration it names in the source text.
func (g *Generator) registerTopLevel(nodes []ast.Node) error {
	for _, n := range nodes {
		switch node := n.(type) {
		case *ast.Func:
			if _, exists := g.funcs[node.Identifier]; exists {
				return newError(node.StartToken().Pos, "function %q is already defined", node.Identifier)
			}
			g.funcs[node.Identifier] = &funcInfo{params: node.Params, body: node.Body, label: "fn$" + node.Identifier}

		case *ast.StrAlloc:
			if _, exists := g.globals[node.Identifier]; exists {
				return newError(node.StartToken().Pos, "identifier %q is already defined", node.Identifier)
			}
			if node.Size <= 0 {
				return newError(node.StartToken().Pos, "alloc_str size must be positive, got %d", node.Size)
			}
			addr := g.allocData(isa.DataWord{})
			for i := 1; i < node.Size; i++ {
				g.allocData(isa.DataWord{})
			}
			g.globals[node.Identifier] = addr
		}
	}
	return nil
}

func (g *Generator) allocData(w isa.DataWord) uint32 {
	addr := uint32(len(g.data))
	g.data = append(g.data, w)
	return addr
}

func (g *Generator) emit(i isa.Instruction) {
	g.instrs = append(g.instrs, stubInstr{instr: i})
}

func (g *Generator) emitStub(opCode isa.OpCode, operandType isa.OperandType, label string, comment string) {
	g.instrs = append(g.instrs, stubInstr{
		instr:  isa.Instruction{OpCode: opCode, OperandType: operandType, Comment: comment},
		label:  label,
		isStub: true,
	})
}

// newLabel returns a fresh, Generator-local symbolic branch target. Scoping
// the counter to the Generator instance (rather than a package-level
// counter) keeps compiler output deterministic across independent
// compilations run in the same process.
func (g *Generator) newLabel() string {
	g.labelCounter++
	return fmt.Sprintf("L%d", g.labelCounter)
}

// markLabel records that label refers to the next instruction about to
// be emitted.
func (g *Generator) markLabel(label string) {
	g.labels[label] = len(g.instrs)
}

// here returns the address of the next instruction about to be emitted,
// for backward branches that never need a stub.
func (g *Generator) here() uint32 {
	return uint32(len(g.instrs))
}

// popDiscard removes n words from the runtime stack and the shadow
// stack without disturbing the accumulator: the single instruction set
// has no way to adjust the stack pointer directly or to pop into
// anything but the accumulator, so the current accumulator value is
// shuttled through the reserved scratch cell around the POPs.
func (g *Generator) popDiscard(n int) {
	if n == 0 {
		return
	}
	g.emit(isa.Instruction{OpCode: isa.ST, OperandType: isa.Address, Operand: g.scratch})
	for i := 0; i < n; i++ {
		g.emit(isa.Instruction{OpCode: isa.POP, OperandType: isa.NoOperand})
		g.shadowStack = g.shadowStack[:len(g.shadowStack)-1]
	}
	g.emit(isa.Instruction{OpCode: isa.LD, OperandType: isa.Address, Operand: g.scratch})
}

// push evaluates value, pushes the accumulator onto the runtime stack,
// and extends the shadow stack with name so later lookups can resolve a
// STACK_OFFSET to it.
func (g *Generator) push(value ast.Node, name string) error {
	if err := g.lower(value); err != nil {
		return err
	}
	g.emit(isa.Instruction{OpCode: isa.PUSH, OperandType: isa.NoOperand})
	g.shadowStack = append(g.shadowStack, name)
	return nil
}

// reserveShadow extends the shadow stack with names already present on
// the runtime stack - a function body's return address and parameters,
// which its caller pushed - without emitting any instructions.
func (g *Generator) reserveShadow(names ...string) {
	g.shadowStack = append(g.shadowStack, names...)
}

// releaseShadow removes the top n entries from the shadow stack without
// emitting instructions: the body leaves through its JMP
// POINTER_STACK_OFFSET return with its frame still on the stack, and the
// caller pops that frame after the call, so no POPs are compiled into
// the body.
func (g *Generator) releaseShadow(n int) {
	g.shadowStack = g.shadowStack[:len(g.shadowStack)-n]
}

// stackOffset returns the STACK_OFFSET operand that reaches name: the
// distance from the stack pointer to name's slot. SP always points at the
// next free slot below the filled region, so the most recently pushed
// value needs an offset of 1, not 0.
func (g *Generator) stackOffset(name string) (uint32, bool) {
	for i := len(g.shadowStack) - 1; i >= 0; i-- {
		if g.shadowStack[i] == name {
			return uint32(len(g.shadowStack)-i), true
		}
	}
	return 0, false
}
