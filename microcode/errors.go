package microcode

import "fmt"

// TickLimitError reports that execution was stopped after reaching a
// configured tick ceiling without the program halting on its own - most
// likely an infinite loop in the compiled program.
type TickLimitError struct {
	Ticks int
}

func (e *TickLimitError) Error() string {
	return fmt.Sprintf("microcode: exceeded tick limit of %d without halting", e.Ticks)
}

// FetchError reports that the program counter ran past the end of the
// loaded program without executing an HLT instruction.
type FetchError struct {
	PC uint32
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("microcode: program counter %d ran past the end of the loaded program", e.PC)
}
