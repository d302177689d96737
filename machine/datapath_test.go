package machine

import (
	"testing"

	"github.com/comp3toolchain/comp3/isa"
)

func TestNewDataPathResetsStackPointer(t *testing.T) {
	program := &isa.Program{Instructions: []isa.Instruction{{OpCode: isa.HLT}}}
	d := New(program, "", 0)
	if d.SP != DefaultStackTop {
		t.Errorf("got SP=%d, want DefaultStackTop=%d", d.SP, DefaultStackTop)
	}

	d2 := New(program, "", 100)
	if d2.SP != 100 {
		t.Errorf("got SP=%d, want 100", d2.SP)
	}
}

func TestLatchIRReportsEndOfProgram(t *testing.T) {
	program := &isa.Program{Instructions: []isa.Instruction{{OpCode: isa.HLT}}}
	d := New(program, "", 1)

	if ok := d.LatchIR(); !ok {
		t.Fatal("expected the first fetch to succeed")
	}
	d.PC = 1
	if ok := d.LatchIR(); ok {
		t.Fatal("expected a fetch past the end of the program to fail")
	}
}

func TestLatchACComputesAndLatchesFlags(t *testing.T) {
	d := New(&isa.Program{Instructions: []isa.Instruction{{OpCode: isa.HLT}}}, "", 1)
	d.AC = 10
	d.DR = 5
	d.AluLopSel = AluLopAC
	d.AluRopSel = AluRopDR
	d.AluOp = isa.AluAdd
	d.LatchAC()
	if d.AC != 15 {
		t.Errorf("got AC=%d, want 15", d.AC)
	}
	if d.Status.Z {
		t.Error("15 is not zero")
	}
}

func TestWriteDataAndReadBack(t *testing.T) {
	d := New(&isa.Program{Instructions: []isa.Instruction{{OpCode: isa.HLT}}}, "", 1)
	d.AR = 7
	d.DR = 99
	d.WriteData()
	if got := d.Mem.Read(7); got != 99 {
		t.Errorf("got %d, want 99", got)
	}
}

func TestDataIoMuxReadsIOStream(t *testing.T) {
	d := New(&isa.Program{Instructions: []isa.Instruction{{OpCode: isa.HLT}}}, "hi", 1)
	d.DataIoMuxSel = DataIoMuxIO
	d.DrMuxSel = DrMuxData
	d.LatchDR()
	if d.DR != uint32('h') {
		t.Errorf("got %d, want %d ('h')", d.DR, 'h')
	}
}

func TestIOInterfaceReadPastEndReturnsZero(t *testing.T) {
	term := NewIOInterface("a")
	if got := term.Read(); got != uint32('a') {
		t.Errorf("got %d, want %d", got, 'a')
	}
	if got := term.Read(); got != 0 {
		t.Errorf("got %d past end of input, want 0", got)
	}
}

func TestIOInterfaceOutputAccumulates(t *testing.T) {
	term := NewIOInterface("")
	term.Write(uint32('O'))
	term.Write(uint32('K'))
	if got := term.Output(); got != "OK" {
		t.Errorf("got %q, want %q", got, "OK")
	}
}

func TestDataMemorySparseZeroWritesDeleteCells(t *testing.T) {
	m := NewDataMemory(nil)
	m.Write(3, 5)
	if got := m.Read(3); got != 5 {
		t.Errorf("got %d, want 5", got)
	}
	m.Write(3, 0)
	if got := m.Read(3); got != 0 {
		t.Errorf("got %d, want 0 after clearing", got)
	}
}

func TestStatusLatchAndClear(t *testing.T) {
	var s Status
	s.Latch(true, false, true)
	if !s.N || s.Z || !s.C {
		t.Errorf("got %+v", s)
	}
	s.Halted = true
	s.Clear()
	if s.N || s.C || !s.Halted {
		t.Error("Clear should reset flags but leave Halted untouched")
	}
}
