package machine

import "github.com/comp3toolchain/comp3/isa"

// DataMemory is the machine's read/write data store. It is sparse: a
// 32-bit address space with almost all of it unused would waste gigabytes
// as a flat array, so unset cells simply read back as zero.
type DataMemory struct {
	cells map[uint32]uint32
}

// NewDataMemory seeds a DataMemory from a program's initial data image.
func NewDataMemory(words []isa.DataWord) *DataMemory {
	m := &DataMemory{cells: make(map[uint32]uint32, len(words))}
	for addr, w := range words {
		if w.Value != 0 {
			m.cells[uint32(addr)] = w.Value
		}
	}
	return m
}

// Read returns the value at addr, or zero if nothing has been written
// there.
func (m *DataMemory) Read(addr uint32) uint32 {
	return m.cells[addr]
}

// Write stores val at addr. Writing zero removes the cell rather than
// storing it, keeping the sparse map from growing on the common case of
// a stack frame being zero-initialized then immediately overwritten.
func (m *DataMemory) Write(addr, val uint32) {
	if val == 0 {
		delete(m.cells, addr)
		return
	}
	m.cells[addr] = val
}
