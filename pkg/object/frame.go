package object

import (
	"strings"

	"github.com/avl-labs/wisp/pkg/value"
)

// Frame is a lexical environment slice for one function call (spec.md §3.2
// "frame: next, argument count, argument slot table, optional name list for
// introspection", and §4.9). Names is a constant index (gci) into the
// global constants table resolving to a list of parameter name symbols; it
// is interpretive-only and never consulted by the dispatch loop itself.
type Frame struct {
	Next  *Frame
	Args  []value.Value
	Names int64
}

func (f *Frame) ObjType() value.ObjectType { return value.TFrame }

func (f *Frame) String() string {
	var b strings.Builder
	b.WriteString("#<frame")
	for _, a := range f.Args {
		b.WriteByte(' ')
		b.WriteString(a.String())
	}
	b.WriteByte('>')
	return b.String()
}

// NewFrame allocates a frame with n argument slots, all nil (spec.md §4.9
// "ALLOCATE-FRAME n names").
func NewFrame(n int, names int64) *Frame {
	f := &Frame{Args: make([]value.Value, n), Names: names}
	for i := range f.Args {
		f.Args[i] = value.Nil
	}
	return f
}

// Nth walks i links up the frame chain from f (spec.md §4.6
// "DEEP-ARGUMENT-REF/SET i j: walk i links up the frame chain"). ok is
// false if the chain is shorter than i.
func (f *Frame) Nth(i int) (*Frame, bool) {
	for ; i > 0; i-- {
		if f == nil {
			return nil, false
		}
		f = f.Next
	}
	if f == nil {
		return nil, false
	}
	return f, true
}
