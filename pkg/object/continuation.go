package object

import (
	"fmt"

	"github.com/avl-labs/wisp/pkg/value"
)

// JumpTarget stands in for the host non-local-jump cookie of spec.md §4.8
// ("the current jmp_buf pointer"). WISP's dispatch loop is implemented as
// a recursive Go function invoked under panic/recover (see pkg/vm), so the
// "jump buffer" that must be "stored by pointer and re-used when restored"
// (spec.md §9) is the identity of the goroutine-local run frame that owns
// this continuation; ID distinguishes which live run frame to unwind to.
type JumpTarget struct {
	ID int64
}

// Continuation is a captured "rest of the computation" (spec.md §3.2
// "continuation: captured stack (copy), captured jump-buffer pointer").
// Stack is a shallow copy frozen at capture time; spec.md §4.8 requires
// restoring to replace the thread's stack with a *fresh* copy of Stack, so
// that one Continuation value can be invoked any number of times
// independently (the "Continuation replay" testable property, spec.md §8).
type Continuation struct {
	Stack []value.Value
	Jump  *JumpTarget
	PC    int64
}

func (c *Continuation) ObjType() value.ObjectType { return value.TContinuation }
func (c *Continuation) String() string            { return fmt.Sprintf("#<continuation@%d>", c.PC) }

// Copy returns a continuation with an independent copy of Stack, per
// spec.md §4.8 "Restoring ... a fresh copy of the continuation's stored
// stack (never the original)".
func (c *Continuation) Copy() *Continuation {
	fresh := make([]value.Value, len(c.Stack))
	copy(fresh, c.Stack)
	return &Continuation{Stack: fresh, Jump: c.Jump, PC: c.PC}
}
