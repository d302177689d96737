// Package loader installs a compiled program image into a machine
// datapath, and handles the JSON boundary a compiled program crosses on
// its way from the compiler to the emulator.
package loader

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/comp3toolchain/comp3/isa"
	"github.com/comp3toolchain/comp3/machine"
)

// DecodeProgram reads and validates a compiled program image from path.
// The compiler has already resolved every address and label, so this is
// a straight JSON decode - no segments, directives, or literal pools to
// reconstruct.
func DecodeProgram(path string) (*isa.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	var program isa.Program
	if err := json.Unmarshal(data, &program); err != nil {
		return nil, fmt.Errorf("loader: %s: %w", path, err)
	}
	if len(program.Instructions) == 0 {
		return nil, fmt.Errorf("loader: %s: program has no instructions", path)
	}
	return &program, nil
}

// EncodeProgram writes program to path as indented JSON. Missing parent
// directories are not created; cmd/comp3c creates them before calling it.
func EncodeProgram(path string, program *isa.Program) error {
	data, err := json.MarshalIndent(program, "", "  ")
	if err != nil {
		return fmt.Errorf("loader: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("loader: %w", err)
	}
	return nil
}

// Into loads program into d's instruction and data memory and resets SP
// to stackTop and PC to program's entry point, reusing a DataPath across
// programs instead of constructing a fresh one.
func Into(d *machine.DataPath, program *isa.Program, stackTop uint32) {
	d.InstrMem = machine.NewInstructionMemory(program.Instructions)
	d.Mem = machine.NewDataMemory(program.DataMemory)
	d.SP = stackTop
	d.PC = program.EntryPoint
}
