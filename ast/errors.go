package ast

import (
	"fmt"

	"github.com/comp3toolchain/comp3/token"
)

// Error is a fatal parse error, always carrying the source position at
// which it was detected.
type Error struct {
	Pos     token.Position
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: parse error: %s", e.Pos, e.Message)
}

func newError(pos token.Position, format string, args ...any) *Error {
	return &Error{Pos: pos, Message: fmt.Sprintf(format, args...)}
}
