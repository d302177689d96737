package codegen

import (
	"github.com/comp3toolchain/comp3/ast"
	"github.com/comp3toolchain/comp3/isa"
	"github.com/comp3toolchain/comp3/token"
)

// lower emits the instructions for one node, leaving its value (where it
// has one) in the accumulator. This is the single dispatch point
// mentioned in the package doc: every node kind is handled by exactly one
// case here, rather than through a visitor interface each node type
// would otherwise have to implement.
func (g *Generator) lower(n ast.Node) error {
	switch node := n.(type) {
	case *ast.IntLiteral:
		g.emit(isa.Instruction{OpCode: isa.LD, OperandType: isa.Immediate, Operand: node.Value})
		return nil

	case *ast.StringLiteral:
		addr := g.allocString(node.Value)
		g.emit(isa.Instruction{OpCode: isa.LD, OperandType: isa.Immediate, Operand: addr})
		return nil

	case *ast.GetChar:
		g.emit(isa.Instruction{OpCode: isa.LD, OperandType: isa.Address, Operand: isa.IOReadAddr})
		return nil

	case *ast.PutChar:
		if err := g.lower(node.Value); err != nil {
			return err
		}
		g.emit(isa.Instruction{OpCode: isa.ST, OperandType: isa.Address, Operand: isa.IOWriteAddr})
		return nil

	case *ast.LoadById:
		return g.lowerLoad(node.Identifier, node.StartToken().Pos, false)

	case *ast.LoadByPtrId:
		return g.lowerLoad(node.Identifier, node.StartToken().Pos, true)

	case *ast.Set:
		return g.lowerSet(node.Identifier, node.Value, node.StartToken().Pos, false)

	case *ast.SetPtr:
		return g.lowerSet(node.Identifier, node.Value, node.StartToken().Pos, true)

	case *ast.Math:
		return g.lowerMath(node)

	case *ast.Let:
		return g.lowerLet(node)

	case *ast.If:
		return g.lowerIf(node)

	case *ast.LoopWhile:
		return g.lowerLoop(node)

	case *ast.FuncCall:
		return g.lowerFuncCall(node)

	case *ast.MultiExpr:
		for _, e := range node.Exprs {
			if err := g.lower(e); err != nil {
				return err
			}
		}
		return nil

	case *ast.Func:
		return newError(node.StartToken().Pos, "defun is only legal at the top level")

	case *ast.StrAlloc:
		return newError(node.StartToken().Pos, "alloc_str is only legal at the top level")

	default:
		return newError(n.StartToken().Pos, "codegen: unhandled node type %T", n)
	}
}

// allocString writes s's characters and a NUL terminator into data
// memory and returns the address of the first character.
func (g *Generator) allocString(s string) uint32 {
	addr := uint32(len(g.data))
	for _, r := range s {
		g.allocData(isa.DataWord{Value: uint32(r)})
	}
	g.allocData(isa.DataWord{}) // NUL terminator
	return addr
}

func (g *Generator) lowerLoad(name string, pos token.Position, pointer bool) error {
	if off, ok := g.stackOffset(name); ok {
		ot := isa.StackOffset
		if pointer {
			ot = isa.PointerStackOffset
		}
		g.emit(isa.Instruction{OpCode: isa.LD, OperandType: ot, Operand: off})
		return nil
	}
	if addr, ok := g.globals[name]; ok {
		ot := isa.Address
		if pointer {
			ot = isa.PointerAddress
		}
		g.emit(isa.Instruction{OpCode: isa.LD, OperandType: ot, Operand: addr})
		return nil
	}
	return newError(pos, "undefined identifier %q", name)
}

func (g *Generator) lowerSet(name string, value ast.Node, pos token.Position, pointer bool) error {
	if err := g.lower(value); err != nil {
		return err
	}
	if off, ok := g.stackOffset(name); ok {
		ot := isa.StackOffset
		if pointer {
			ot = isa.PointerStackOffset
		}
		g.emit(isa.Instruction{OpCode: isa.ST, OperandType: ot, Operand: off})
		return nil
	}
	if addr, ok := g.globals[name]; ok {
		ot := isa.Address
		if pointer {
			ot = isa.PointerAddress
		}
		g.emit(isa.Instruction{OpCode: isa.ST, OperandType: ot, Operand: addr})
		return nil
	}
	return newError(pos, "undefined identifier %q", name)
}

// mathAluOp maps a non-comparison operator directly to its ALU opcode.
func mathAluOp(op ast.MathOp) (isa.OpCode, bool) {
	switch op {
	case ast.OpAdd:
		return isa.ADD, true
	case ast.OpSub:
		return isa.SUB, true
	case ast.OpAnd:
		return isa.AND, true
	case ast.OpOr:
		return isa.OR, true
	}
	return "", false
}

// comparisonJump maps a comparison operator to the branch taken when it
// is true, comparing the left operand (held on the stack) against the
// right (held in the accumulator) via CMP.
func comparisonJump(op ast.MathOp) isa.OpCode {
	switch op {
	case ast.OpLt:
		return isa.JB
	case ast.OpLe:
		return isa.JBE
	case ast.OpGt:
		return isa.JA
	case ast.OpGe:
		return isa.JAE
	case ast.OpEq:
		return isa.JZ
	default: // ast.OpNe
		return isa.JNZ
	}
}

func (g *Generator) lowerMath(node *ast.Math) error {
	// The ALU's shifter moves the accumulator by exactly one bit per
	// SHL/SHR instruction - there is no variable-distance shift - so a
	// "shift by n" expression compiles to n repeated single-bit shifts.
	// That only works when n is known at compile time.
	if node.Op == ast.OpShl || node.Op == ast.OpShr {
		count, ok := node.Right.(*ast.IntLiteral)
		if !ok {
			return newError(node.StartToken().Pos, "shift amount must be a constant integer")
		}
		if err := g.lower(node.Left); err != nil {
			return err
		}
		opCode := isa.SHL
		if node.Op == ast.OpShr {
			opCode = isa.SHR
		}
		for i := uint32(0); i < count.Value; i++ {
			g.emit(isa.Instruction{OpCode: opCode, OperandType: isa.NoOperand})
		}
		return nil
	}

	tmp := "%math" + g.newLabel()
	if err := g.push(node.Left, tmp); err != nil {
		return err
	}
	if err := g.lower(node.Right); err != nil {
		return err
	}
	off, _ := g.stackOffset(tmp) // always the topmost slot: nothing has been pushed since

	if node.Op.IsComparison() {
		// The conditional jump has to follow the CMP directly: the POP and
		// LD that popDiscard emits latch flags of their own.
		g.emit(isa.Instruction{OpCode: isa.CMP, OperandType: isa.StackOffset, Operand: off})
		if err := g.materializeBool(comparisonJump(node.Op)); err != nil {
			return err
		}
		g.popDiscard(1)
		return nil
	}

	opCode, ok := mathAluOp(node.Op)
	if !ok {
		return newError(node.StartToken().Pos, "codegen: unhandled operator %q", node.Op)
	}
	g.emit(isa.Instruction{OpCode: opCode, OperandType: isa.StackOffset, Operand: off})
	g.popDiscard(1)
	return nil
}

// materializeBool turns the flags set by a preceding CMP into 0 or 1 in
// the accumulator, taking jumpIfTrue when the comparison holds.
func (g *Generator) materializeBool(jumpIfTrue isa.OpCode) error {
	trueLabel := g.newLabel()
	endLabel := g.newLabel()

	g.emitStub(jumpIfTrue, isa.Address, trueLabel, "")
	g.emit(isa.Instruction{OpCode: isa.LD, OperandType: isa.Immediate, Operand: 0})
	g.emitStub(isa.JMP, isa.Address, endLabel, "")
	g.markLabel(trueLabel)
	g.emit(isa.Instruction{OpCode: isa.LD, OperandType: isa.Immediate, Operand: 1})
	g.markLabel(endLabel)
	return nil
}

func (g *Generator) lowerLet(node *ast.Let) error {
	for _, v := range node.Vars {
		if err := g.push(v.Value, v.Identifier); err != nil {
			return err
		}
	}
	for _, b := range node.Body {
		if err := g.lower(b); err != nil {
			return err
		}
	}
	g.popDiscard(len(node.Vars))
	return nil
}

func (g *Generator) lowerIf(node *ast.If) error {
	if err := g.lower(node.Cond); err != nil {
		return err
	}
	g.emit(isa.Instruction{OpCode: isa.CMP, OperandType: isa.Immediate, Operand: 0})

	elseLabel := g.newLabel()
	endLabel := g.newLabel()

	g.emitStub(isa.JZ, isa.Address, elseLabel, "")
	if err := g.lower(node.Then); err != nil {
		return err
	}
	g.emitStub(isa.JMP, isa.Address, endLabel, "")

	g.markLabel(elseLabel)
	if node.Else != nil {
		if err := g.lower(node.Else); err != nil {
			return err
		}
	}
	g.markLabel(endLabel)
	return nil
}

func (g *Generator) lowerLoop(node *ast.LoopWhile) error {
	start := g.here()

	if err := g.lower(node.Cond); err != nil {
		return err
	}
	g.emit(isa.Instruction{OpCode: isa.CMP, OperandType: isa.Immediate, Operand: 0})

	endLabel := g.newLabel()
	g.emitStub(isa.JZ, isa.Address, endLabel, "")

	for _, b := range node.Body {
		if err := g.lower(b); err != nil {
			return err
		}
	}
	g.emit(isa.Instruction{OpCode: isa.JMP, OperandType: isa.Address, Operand: start})

	g.markLabel(endLabel)
	return nil
}

// lowerFunc compiles one defun's body as a global: a labeled block,
// reached only via JMP, that a call site jumps into and out of. The
// caller has already pushed a return address and the arguments in
// order, so the body reserves shadow slots for them rather than
// emitting PUSH instructions of its own, then exits with the one
// instruction the ISA gives a function to get back to its caller: a
// JMP through the stack slot the return address was pushed into.
func (g *Generator) lowerFunc(node *ast.Func) error {
	fn := g.funcs[node.Identifier]
	g.markLabel(fn.label)

	frame := append([]string{"$return"}, fn.params...)
	g.reserveShadow(frame...)

	for _, b := range fn.body {
		if err := g.lower(b); err != nil {
			return err
		}
	}

	returnSlot, _ := g.stackOffset("$return")
	g.emit(isa.Instruction{OpCode: isa.JMP, OperandType: isa.PointerStackOffset, Operand: returnSlot})

	g.releaseShadow(len(frame))
	return nil
}

// lowerFuncCall emits the caller side of a call: a return-address stub
// resolved once the instruction after the call's JMP is known, the
// arguments in order, and a jump to the callee's label. Because the
// callee is a single compiled block reached by JMP rather than expanded
// inline, a function calling itself works the same way any other call
// does - each call simply pushes a fresh return address and argument
// frame.
func (g *Generator) lowerFuncCall(node *ast.FuncCall) error {
	fn, ok := g.funcs[node.Identifier]
	if !ok {
		return newError(node.StartToken().Pos, "call to undefined function %q", node.Identifier)
	}
	if len(node.Args) != len(fn.params) {
		return newError(node.StartToken().Pos, "function %q expects %d argument(s), got %d",
			node.Identifier, len(fn.params), len(node.Args))
	}

	returnLabel := g.newLabel()
	g.emitStub(isa.LD, isa.Immediate, returnLabel, "return address for call to "+node.Identifier)
	g.emit(isa.Instruction{OpCode: isa.PUSH, OperandType: isa.NoOperand})
	g.shadowStack = append(g.shadowStack, "$return")

	for i, arg := range node.Args {
		if err := g.push(arg, fn.params[i]); err != nil {
			return err
		}
	}

	g.emitStub(isa.JMP, isa.Address, fn.label, "")
	g.markLabel(returnLabel)

	g.popDiscard(len(node.Args) + 1)
	return nil
}
