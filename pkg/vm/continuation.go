package vm

import (
	"github.com/avl-labs/wisp/pkg/object"
	"github.com/avl-labs/wisp/pkg/value"
)

// CallCC implements call-with-current-continuation as a Go-level
// primitive rather than a bytecode sequence: it captures the continuation
// of the currently executing run frame, then applies the given procedure
// to it, returning whatever that application returns (spec.md §4.8). The
// capture itself is done by pushing an all-state block plus a saved-pc +
// continuation marker, copying the live stack, and then immediately
// undoing those pushes on the live stack — the copy is the frozen
// continuation, the live stack is left exactly as it was.
func (t *Thread) CallCC(proc value.Value) (value.Value, error) {
	cont := t.captureContinuation()
	argFrame := object.NewFrame(1, -1)
	argFrame.Args[0] = value.Pointer(cont)
	return t.Apply(proc, argFrame)
}

func (t *Thread) captureContinuation() *object.Continuation {
	t.PreserveAllState()
	t.Push(value.Fixnum(t.PC))
	t.Push(markerPreserveContinuation)

	snapshot := make([]value.Value, len(t.Stack))
	copy(snapshot, t.Stack)

	expectMarker(t.Pop(), markerPreserveContinuation, "preserve-continuation")
	savedPC := asFixnum(t.Pop())
	t.RestoreAllState()

	_, target := t.currentRunTarget()
	return &object.Continuation{Stack: snapshot, Jump: target, PC: savedPC}
}

// InvokeContinuation restores cont (applying v as its value) by unwinding
// to the run frame that owns it. A continuation may be invoked any number
// of times, each time from its frozen snapshot, never the original
// (spec.md §4.8's "Continuation replay" property) — Copy makes that
// guarantee here.
func (t *Thread) InvokeContinuation(cont *object.Continuation, v value.Value) {
	jumpToContinuation(cont.Copy(), JumpContinuation, v)
}

// installContinuation reinstalls a frozen continuation snapshot into the
// live thread state once the owning run frame has caught its jumpSignal;
// called only from Run's dispatch loop.
func (t *Thread) installContinuation(cont *object.Continuation, v value.Value) {
	t.Stack = cont.Stack
	expectMarker(t.Pop(), markerPreserveContinuation, "preserve-continuation")
	savedPC := asFixnum(t.Pop())
	t.RestoreAllState()
	t.Val = v
	t.PC = savedPC
}

// PushKrun records a new top-level run's abort continuation, for the
// default unhandled-condition handler to unwind to (spec.md §4.8's krun
// array of (continuation, description) pairs).
func (t *Thread) PushKrun(description string) {
	_, target := t.currentRunTarget()
	t.Krun = append(t.Krun, KrunEntry{
		Continuation: &object.Continuation{Jump: target, PC: t.Code.Prologue.FinishPC},
		Description:  description,
	})
}

// PopKrun removes the innermost krun entry, called when a top-level run
// finishes normally.
func (t *Thread) PopKrun() {
	if len(t.Krun) == 0 {
		return
	}
	t.Krun = t.Krun[:len(t.Krun)-1]
}

// ApplyKrun implements %vm-apply-continuation n v: jump to the nth krun
// entry's continuation as if it had been invoked with v (spec.md §4.8's
// "base ^condition handler uses %vm-apply-continuation n v", and §7's
// unhandled-error behavior of unwinding to the outermost krun entry).
func (t *Thread) ApplyKrun(n int, v value.Value) {
	if n < 0 || n >= len(t.Krun) {
		fatalf("%%vm-apply-continuation: no krun entry %d", n)
	}
	jumpTo(t.Krun[n].Continuation.Jump, JumpCondition, v)
}
