package vm

import (
	"fmt"

	"github.com/avl-labs/wisp/pkg/object"
	"github.com/avl-labs/wisp/pkg/value"
)

// trapFrame is the four-slot stack-encoded record of spec.md §4.7:
// next-trap-sp, condition-type, handler, marker.
type trapFrame struct {
	base int // index of the "next-trap-sp" slot in t.Stack
}

// PushTrap implements PUSH-TRAP mci: the condition type is resolved like a
// global symbol reference (mci names the ^condition-subtype constant),
// the handler closure is expected on top of the value stack (compiled as
// PUSH-VALUE of the handler followed by PUSH-TRAP).
func (t *Thread) PushTrap(mci int64) {
	ctype := t.globalRef(mci)
	handler := t.Pop()
	t.Push(value.Fixnum(t.TrapSP))
	t.Push(ctype)
	t.Push(handler)
	t.Push(markerTrap)
	t.TrapSP = int64(len(t.Stack) - 4)
}

// popTrapFrame removes the innermost trap frame, used by both POP-TRAP
// (normal exit from a protected dynamic extent) and RESTORE-TRAP (the
// interrupt-handler-return prologue, reached only once raise has already
// truncated the stack down to the matched frame) — both leave the stack
// and trap_sp in the same state, so they share one implementation.
func (t *Thread) popTrapFrame() {
	expectMarker(t.Pop(), markerTrap, "trap")
	t.Pop() // handler
	t.Pop() // condition-type
	t.TrapSP = asFixnum(t.Pop())
}

// PopTrap implements POP-TRAP.
func (t *Thread) PopTrap() { t.popTrapFrame() }

// RestoreTrap implements RESTORE-TRAP (the CHR_pc prologue step).
func (t *Thread) RestoreTrap() { t.popTrapFrame() }

// Raise implements spec.md §4.7's raise(condition, continuable?):
//  1. walk the trap chain from trap_sp outward for the innermost frame
//     whose condition-type the condition isa?,
//  2. if none matches, run the default (unhandled) behavior,
//  3. otherwise unlink that frame and every frame nested inside it,
//  4. invoke its handler with the condition; if continuable, the
//     handler's return value becomes Raise's own return value and
//     execution resumes at the raise call site, otherwise the handler is
//     expected to perform a non-local transfer (escape via a
//     continuation) and Raise does not return.
func (t *Thread) Raise(condition *object.StructInstance, continuable bool) value.Value {
	sp := t.TrapSP
	for sp >= 0 {
		ctypeVal := t.Stack[sp+1]
		handler := t.Stack[sp+2]
		next := asFixnum(t.Stack[sp])
		if conditionMatches(condition, ctypeVal) {
			// Unlink this frame and everything nested inside it.
			t.Stack = t.Stack[:sp]
			t.TrapSP = next
			return t.invokeHandler(handler, condition, continuable)
		}
		sp = next
	}
	t.defaultUnhandled(condition, continuable)
	return value.Unspec
}

func conditionMatches(condition *object.StructInstance, ctypeVal value.Value) bool {
	ctype, ok := ctypeVal.Object().(*object.StructType)
	if !ok {
		return false
	}
	return condition.Type.IsA(ctype)
}

// invokeHandler calls handler(condition) as an ordinary non-tail call. It
// relies on the thread's own RETURN bookkeeping to resume right after
// Raise's caller once the handler's call frame returns normally (the
// continuable case); a non-continuable raise whose handler returns
// without escaping is itself an error, reported as an unhandled condition.
func (t *Thread) invokeHandler(handler value.Value, condition *object.StructInstance, continuable bool) value.Value {
	argFrame := object.NewFrame(1, -1)
	argFrame.Args[0] = value.Pointer(condition)
	result, err := t.Apply(handler, argFrame)
	if err != nil {
		panic(err)
	}
	if continuable {
		return result
	}
	t.defaultUnhandled(conditionFromValue(result, condition), false)
	return value.Unspec
}

func conditionFromValue(result value.Value, fallback *object.StructInstance) *object.StructInstance {
	if inst, ok := result.Object().(*object.StructInstance); ok {
		return inst
	}
	return fallback
}

// defaultUnhandled implements spec.md §7's unhandled-error behavior: print
// the condition's message to the error handle (no source location is
// recorded on conditions, so none is printed), then unwind
// to the outermost krun entry and resume there (spec.md §4.8
// "%vm-apply-continuation 0 v").
func (t *Thread) defaultUnhandled(condition *object.StructInstance, continuable bool) {
	msg := conditionMessage(condition)
	if t.ErrorHandle != nil {
		_ = t.ErrorHandle.Print(fmt.Sprintf("unhandled condition: %s\n", msg))
		_ = t.ErrorHandle.Flush()
	}
	if len(t.Krun) == 0 {
		fatalf("unhandled condition with no toplevel to resume: %s", msg)
	}
	t.ApplyKrun(0, value.False)
}

func conditionMessage(c *object.StructInstance) string {
	if c == nil {
		return "(nil condition)"
	}
	if v, ok := c.Get("message"); ok {
		return v.String()
	}
	return c.String()
}
