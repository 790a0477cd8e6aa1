package vm

import "github.com/avl-labs/wisp/pkg/value"

// Marker values delimit stack-encoded control structures (return
// addresses, trap frames, dynamic/environ bindings, preserved-state
// blocks, frozen continuations) so that popping the wrong shape is
// detected rather than silently corrupting the stack (spec.md §4.5 "a
// mismatch is a fatal error, not a condition"). They reuse the
// already-closed reader-token constant family from the value model
// instead of adding a new Value kind: reader tokens are, like these
// markers, a fixed small set of interpreter-internal tags that a running
// program never constructs or compares against, which is exactly the
// property a stack marker needs.
var (
	markerReturn               = value.ReaderToken(100)
	markerPreserveState        = value.ReaderToken(101)
	markerPreserveAllState     = value.ReaderToken(102)
	markerTrap                 = value.ReaderToken(103)
	markerDynamic              = value.ReaderToken(104)
	markerEnviron              = value.ReaderToken(105)
	markerPreserveContinuation = value.ReaderToken(106)
)

func expectMarker(got, want value.Value, name string) {
	if got != want {
		fatalf("marker discipline violated: expected %s, got %v", name, got)
	}
}

// PreserveState pushes the "state" grain of spec.md §4.5: environ-sp,
// dynamic-sp, trap-sp, frame, env, then a marker.
func (t *Thread) PreserveState() {
	t.Push(value.Fixnum(t.EnvironSP))
	t.Push(value.Fixnum(t.DynamicSP))
	t.Push(value.Fixnum(t.TrapSP))
	t.Push(framePointer(t.Frame))
	t.Push(modulePointer(t.Env))
	t.Push(markerPreserveState)
}

// RestoreState pops a "state" block, restoring environ-sp/dynamic-sp/
// trap-sp/frame/env. Popping the marker first means a mismatched restore
// (e.g. against an "all-state" block) is caught immediately.
func (t *Thread) RestoreState() {
	expectMarker(t.Pop(), markerPreserveState, "preserve-state")
	t.Env = asModule(t.Pop())
	t.Frame = asFrame(t.Pop())
	t.TrapSP = asFixnum(t.Pop())
	t.DynamicSP = asFixnum(t.Pop())
	t.EnvironSP = asFixnum(t.Pop())
}

// PreserveAllState pushes the "all-state" grain: the state grain's five
// slots plus reg1, reg2, expr, func, val, then a distinct marker.
func (t *Thread) PreserveAllState() {
	t.Push(value.Fixnum(t.EnvironSP))
	t.Push(value.Fixnum(t.DynamicSP))
	t.Push(value.Fixnum(t.TrapSP))
	t.Push(framePointer(t.Frame))
	t.Push(modulePointer(t.Env))
	t.Push(t.Reg1)
	t.Push(t.Reg2)
	t.Push(value.Fixnum(t.Expr))
	t.Push(t.Func)
	t.Push(t.Val)
	t.Push(markerPreserveAllState)
}

// RestoreAllState pops an "all-state" block.
func (t *Thread) RestoreAllState() {
	expectMarker(t.Pop(), markerPreserveAllState, "preserve-all-state")
	t.Val = t.Pop()
	t.Func = t.Pop()
	t.Expr = asFixnum(t.Pop())
	t.Reg2 = t.Pop()
	t.Reg1 = t.Pop()
	t.Env = asModule(t.Pop())
	t.Frame = asFrame(t.Pop())
	t.TrapSP = asFixnum(t.Pop())
	t.DynamicSP = asFixnum(t.Pop())
	t.EnvironSP = asFixnum(t.Pop())
}

func asFixnum(v value.Value) int64 {
	n, ok := v.FixnumValue()
	if !ok {
		fatalf("expected fixnum on control stack, got %v", v)
	}
	return n
}
