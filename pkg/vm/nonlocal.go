package vm

import (
	"fmt"

	"github.com/avl-labs/wisp/pkg/object"
	"github.com/avl-labs/wisp/pkg/value"
)

// Jump codes identify why a run frame is being unwound (spec.md §5's five
// jump codes). Dispatch never sees these directly; they travel as the Code
// field of a jumpSignal panic value recovered by recoverRunFrame.
const (
	JumpCondition    = 1
	JumpContinuation = 2
	JumpCallCC       = 3
	JumpEvent        = 4
	JumpExit         = 5
)

// jumpSignal is the typed panic payload used to implement the host's
// non-local jump (jmp_buf/longjmp) without a C-style setjmp. Grounded on
// the sibling example's internal/panicerr package, which recovers a typed
// panic value at a known call boundary rather than using Go's error
// returns to unwind arbitrarily deep Go call stacks (exactly the situation
// a continuation invoked from deep inside the dispatch loop needs: it must
// cross however many nested Go calls separate it from the target run
// frame, not just return once).
type jumpSignal struct {
	Code     int
	TargetID int64
	Payload  value.Value
	Cont     *object.Continuation // non-nil only for JumpContinuation/JumpCallCC
}

// runFrame identifies one nested invocation of Run (spec.md §5's "LIFO
// nest of jump buffers" for nested run invocations, e.g. a callback
// invoked from a primitive re-entering the dispatch loop). Each call to
// Run pushes one of these; a continuation or raise names the frame it
// wants to unwind to by ID, and jumpTo panics until that frame's recover
// point catches it.
type runFrame struct {
	id int64
}

// newRunFrame allocates a fresh run-frame identity and corresponding
// *object.JumpTarget (the value stored inside captured continuations).
func (t *Thread) newRunFrame() (*runFrame, *object.JumpTarget) {
	id := t.nextJumpID()
	return &runFrame{id: id}, &object.JumpTarget{ID: id}
}

// jumpTo unwinds the Go call stack to the run frame named by target,
// carrying payload. It never returns normally.
func jumpTo(target *object.JumpTarget, code int, payload value.Value) {
	if target == nil {
		panic(jumpSignal{Code: code, TargetID: -1, Payload: payload})
	}
	panic(jumpSignal{Code: code, TargetID: target.ID, Payload: payload})
}

// jumpToContinuation unwinds to the run frame that owns cont, carrying
// both the invocation value and the continuation itself so the recovering
// frame can reinstall its frozen state (spec.md §4.8).
func jumpToContinuation(cont *object.Continuation, code int, v value.Value) {
	id := int64(-1)
	if cont.Jump != nil {
		id = cont.Jump.ID
	}
	panic(jumpSignal{Code: code, TargetID: id, Payload: v, Cont: cont})
}

// recoverRunFrame is deferred at the top of Run. It recovers a jumpSignal
// destined for this frame (returning it via *caught) and re-panics any
// jumpSignal destined for an outer frame, or any non-jumpSignal panic
// (a genuine programmer error, not a VM-level control transfer).
func recoverRunFrame(frame *runFrame, caught *jumpSignal) {
	r := recover()
	if r == nil {
		return
	}
	sig, ok := r.(jumpSignal)
	if !ok {
		panic(r)
	}
	if sig.TargetID != frame.id {
		panic(sig)
	}
	*caught = sig
}

// fatalf panics with a plain error, used for invariants the compiler is
// assumed to uphold (marker discipline, stack balance) rather than
// conditions a running program can observe or handle.
func fatalf(format string, args ...interface{}) {
	panic(fmt.Errorf("vm: fatal: "+format, args...))
}
