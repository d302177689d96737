package microcode

import (
	"context"

	"github.com/comp3toolchain/comp3/machine"
)

// Control drives a DataPath through a Table one microcycle at a time. It
// is the only piece of the toolchain that interprets an instruction's
// meaning procedurally - the compiler and the datapath both stay
// ignorant of it.
type Control struct {
	table *Table
	mpc   int

	totalTicks        int
	totalInstructions int
	fetchFailed       bool
}

// NewControl returns a Control positioned at the table's fetch entry,
// ready to drive d.
func NewControl(table *Table) *Control {
	return &Control{table: table}
}

// Ticks reports the number of microcycles executed so far.
func (c *Control) Ticks() int { return c.totalTicks }

// Instructions reports the number of machine instructions completed so
// far - every time the mPC returns to the fetch entry.
func (c *Control) Instructions() int { return c.totalInstructions }

// FetchFailed reports whether the most recent halt was caused by the
// program counter running off the end of the loaded program, as opposed
// to an explicit HLT. Both set d.Status.Halted, so callers driving Step
// directly need this to tell the two apart.
func (c *Control) FetchFailed() bool { return c.fetchFailed }

// advance moves the mPC to next, counting a completed instruction
// whenever it lands back on the fetch entry (index 0).
func (c *Control) advance(next int) {
	c.mpc = next
	if c.mpc == 0 {
		c.totalInstructions++
	}
}

// Step runs exactly one microcycle against d and advances the mPC. It
// reports whether the datapath halted this cycle (either by executing
// HLT or by fetching past the end of the loaded program).
func (c *Control) Step(d *machine.DataPath) bool {
	entry := c.table.entries[c.mpc]
	c.totalTicks++

	if entry.step != nil {
		ok := entry.step.run(d)
		c.advance((c.mpc + 1) % len(c.table.entries))
		if !ok {
			c.fetchFailed = true
		}
		return !ok || d.Status.Halted
	}

	if entry.guard == nil || entry.guard(d) {
		c.advance(entry.target)
	} else {
		c.advance(c.mpc + 1)
	}
	return d.Status.Halted
}

// Run drives d to completion, one microcycle at a time, stopping when the
// datapath halts. maxTicks bounds runaway programs; a non-positive value
// means unbounded. ctx carries no cancellation semantics of the
// microcode model itself - a caller with no deadline or cancel button of
// its own can pass context.Background() - but is checked between
// microcycles so a caller that does impose one gets a prompt exit
// instead of running to the tick limit.
func (c *Control) Run(ctx context.Context, d *machine.DataPath, maxTicks int) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if maxTicks > 0 && c.totalTicks >= maxTicks {
			return &TickLimitError{Ticks: maxTicks}
		}
		if c.Step(d) {
			if c.fetchFailed {
				return &FetchError{PC: d.PC}
			}
			return nil
		}
	}
}
