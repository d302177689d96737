package microcode

import (
	"context"
	"testing"

	"github.com/comp3toolchain/comp3/ast"
	"github.com/comp3toolchain/comp3/codegen"
	"github.com/comp3toolchain/comp3/isa"
	"github.com/comp3toolchain/comp3/lexer"
	"github.com/comp3toolchain/comp3/machine"
)

// runSource compiles src end to end and runs it to completion against
// input, returning everything the program wrote to the output stream.
func runSource(t *testing.T, src, input string) string {
	t.Helper()

	tokens, err := lexer.New(src).Lex()
	if err != nil {
		t.Fatalf("lexing %q: %v", src, err)
	}
	nodes, err := ast.NewBuilder(tokens).Build()
	if err != nil {
		t.Fatalf("building %q: %v", src, err)
	}
	program, err := codegen.NewGenerator().Generate(nodes)
	if err != nil {
		t.Fatalf("generating %q: %v", src, err)
	}

	table, err := Build()
	if err != nil {
		t.Fatalf("building microcode table: %v", err)
	}

	d := machine.New(program, input, machine.DefaultStackTop)
	control := NewControl(table)
	if err := control.Run(context.Background(), d, 1_000_000); err != nil {
		t.Fatalf("running %q: %v", src, err)
	}
	return d.IO.Output()
}

func TestRunCatEchoesInputUntilExhausted(t *testing.T) {
	src := `
(let ((c 0))
  (loop while (!= (set c (get_char)) 0)
    (put_char c)))`
	if got := runSource(t, src, "ab"); got != "ab" {
		t.Errorf("got %q, want %q", got, "ab")
	}
}

func TestRunArithmetic(t *testing.T) {
	src := `(put_char (+ 40 2))`
	if got := runSource(t, src, ""); got != "*" {
		t.Errorf("got %q, want %q", got, "*")
	}
}

func TestRunConditionalTakesThenBranch(t *testing.T) {
	src := `(if (> 5 3) (put_char 89) (put_char 78))`
	if got := runSource(t, src, ""); got != "Y" {
		t.Errorf("got %q, want %q", got, "Y")
	}
}

func TestRunConditionalTakesElseBranch(t *testing.T) {
	src := `(if (< 5 3) (put_char 89) (put_char 78))`
	if got := runSource(t, src, ""); got != "N" {
		t.Errorf("got %q, want %q", got, "N")
	}
}

func TestRunFunctionCallReturnsViaStack(t *testing.T) {
	src := `
(defun double (x) (+ x x))
(put_char (double 33))`
	if got := runSource(t, src, ""); got != "B" {
		t.Errorf("got %q, want %q", got, "B")
	}
}

func TestRunRecursiveFunctionCallsItself(t *testing.T) {
	src := `
(defun count_down (n)
  (if (> n 0)
    ((put_char (+ n 48))
     (count_down (- n 1)))
    0))
(count_down 3)`
	if got := runSource(t, src, ""); got != "321" {
		t.Errorf("got %q, want %q", got, "321")
	}
}

func TestRunLoopWalksStringByPointer(t *testing.T) {
	src := `
(let ((p "AB") (c 0))
  (loop while (!= (set c (@ p)) 0)
    ((put_char c)
     (set p (+ p 1)))))`
	if got := runSource(t, src, ""); got != "AB" {
		t.Errorf("got %q, want %q", got, "AB")
	}
}

func TestRunGreetingComputesCharCodes(t *testing.T) {
	src := `
(let ((base 72))
  (put_char base)
  (put_char (+ base 33)))`
	if got := runSource(t, src, ""); got != "Hi" {
		t.Errorf("got %q, want %q", got, "Hi")
	}
}

func TestRunHaltsOnTickLimit(t *testing.T) {
	src := `(loop while (= 1 1) (put_char 46))`
	tokens, err := lexer.New(src).Lex()
	if err != nil {
		t.Fatalf("lexing: %v", err)
	}
	nodes, err := ast.NewBuilder(tokens).Build()
	if err != nil {
		t.Fatalf("building: %v", err)
	}
	program, err := codegen.NewGenerator().Generate(nodes)
	if err != nil {
		t.Fatalf("generating: %v", err)
	}

	table, err := Build()
	if err != nil {
		t.Fatalf("building microcode table: %v", err)
	}
	d := machine.New(program, "", machine.DefaultStackTop)
	control := NewControl(table)

	err = control.Run(context.Background(), d, 500)
	if err == nil {
		t.Fatal("expected a tick-limit error for an infinite loop")
	}
	if _, ok := err.(*TickLimitError); !ok {
		t.Errorf("got error of type %T, want *TickLimitError", err)
	}
}

func TestRunReturnsFetchErrorWhenProgramLacksHalt(t *testing.T) {
	program := &isa.Program{
		Instructions: []isa.Instruction{
			{OpCode: isa.ADD, OperandType: isa.Immediate, Operand: 1},
		},
	}
	table, err := Build()
	if err != nil {
		t.Fatalf("building microcode table: %v", err)
	}
	d := machine.New(program, "", machine.DefaultStackTop)
	control := NewControl(table)

	err = control.Run(context.Background(), d, 0)
	if err == nil {
		t.Fatal("expected a fetch error when the program counter runs off the end")
	}
	if _, ok := err.(*FetchError); !ok {
		t.Errorf("got error of type %T, want *FetchError", err)
	}
	if !control.FetchFailed() {
		t.Error("expected FetchFailed to report true")
	}
}

func TestRunStopsPromptlyWhenContextCancelled(t *testing.T) {
	src := `(loop while (= 1 1) (put_char 46))`
	tokens, err := lexer.New(src).Lex()
	if err != nil {
		t.Fatalf("lexing: %v", err)
	}
	nodes, err := ast.NewBuilder(tokens).Build()
	if err != nil {
		t.Fatalf("building: %v", err)
	}
	program, err := codegen.NewGenerator().Generate(nodes)
	if err != nil {
		t.Fatalf("generating: %v", err)
	}
	table, err := Build()
	if err != nil {
		t.Fatalf("building microcode table: %v", err)
	}
	d := machine.New(program, "", machine.DefaultStackTop)
	control := NewControl(table)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = control.Run(ctx, d, 0)
	if err == nil {
		t.Fatal("expected a context error for an already-cancelled context")
	}
}

func TestBuildFromRejectsUndefinedLabel(t *testing.T) {
	raw := []entry{
		{alias: "start", step: &Step{}},
		{target: "nowhere"},
	}
	if _, err := buildFrom(raw); err == nil {
		t.Fatal("expected an error for a branch targeting an undefined label")
	}
}

func TestBuildFromRejectsDuplicateLabel(t *testing.T) {
	raw := []entry{
		{alias: "start", step: &Step{}},
		{alias: "start", step: &Step{}},
	}
	if _, err := buildFrom(raw); err == nil {
		t.Fatal("expected an error for a label defined twice")
	}
}

func TestBuild(t *testing.T) {
	if _, err := Build(); err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
}
