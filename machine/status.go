package machine

// Status holds the three condition flags and the halt latch. Unlike AC,
// AR, SP, and friends, it is never read by the ALU - only the control
// unit's branch micro-instructions and the final halt check consult it.
type Status struct {
	N, Z, C bool
	Halted  bool
}

// Latch captures a fresh set of flags, as produced by the ALU on the
// microcycle that just ran.
func (s *Status) Latch(n, z, c bool) {
	s.N, s.Z, s.C = n, z, c
}

// Clear resets the flags without affecting the halt latch.
func (s *Status) Clear() {
	s.N, s.Z, s.C = false, false, false
}
