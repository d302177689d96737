package codegen

import (
	"fmt"

	"github.com/comp3toolchain/comp3/token"
)

// Error is a fatal code generation error. An unresolvable identifier
// reference is reported here, at the point of use, rather than surviving
// as a dangling stub that only fails during resolution.
type Error struct {
	Pos     token.Position
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: codegen error: %s", e.Pos, e.Message)
}

func newError(pos token.Position, format string, args ...any) *Error {
	return &Error{Pos: pos, Message: fmt.Sprintf(format, args...)}
}
