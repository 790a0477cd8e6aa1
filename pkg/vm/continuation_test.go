package vm

import (
	"testing"

	"github.com/avl-labs/wisp/pkg/bytecode"
	"github.com/avl-labs/wisp/pkg/object"
	"github.com/avl-labs/wisp/pkg/value"
)

// TestCallCCEscape drives call/cc through an ordinary PRIMCALL1, with the
// escaping procedure a Go primitive that invokes its continuation argument
// immediately rather than returning — an escape continuation, the common
// case a compiled (call/cc (lambda (k) ... (k v) ...)) lowers to. The
// invocation unwinds the Go call stack all the way back up through CallCC's
// own Apply, caught by Run's own recoverRunFrame since both the capture and
// the invocation happen inside the same outer Run call.
func TestCallCCEscape(t *testing.T) {
	th, bc, env, g := newTestThread()
	baseline := th.SP()

	ccMCI := int64(0)
	internSymbolConstant(env, g, ccMCI, "call/cc")
	th.globalSet(ccMCI, value.Pointer(prim("call/cc", 1, false, func(a []value.Value) (value.Value, error) {
		return th.CallCC(a[0])
	})))

	procMCI := int64(1)
	internSymbolConstant(env, g, procMCI, "escape-proc")
	th.globalSet(procMCI, value.Pointer(prim("escape-proc", 1, false, func(a []value.Value) (value.Value, error) {
		k, ok := a[0].Object().(*object.Continuation)
		if !ok {
			t.Fatalf("expected a continuation argument, got %v", a[0])
		}
		th.InvokeContinuation(k, value.Fixnum(99))
		panic("unreachable: InvokeContinuation does not return")
	})))

	start := bc.Len()
	bc.EmitReference(bytecode.OpGlobalSymRef, uint64(procMCI))
	bc.Emit(bytecode.OpPushValue)
	bc.EmitReference(bytecode.OpPrimCall1, uint64(ccMCI))
	bc.Emit(bytecode.OpFinish)

	result := runFrom(t, th, start)
	if n, ok := result.FixnumValue(); !ok || n != 99 {
		t.Fatalf("expected fixnum 99 from the escaped continuation, got %v", result)
	}
	if th.SP() != baseline {
		t.Fatalf("expected stack back at baseline %d after the escape, got SP=%d", baseline, th.SP())
	}
}

// TestCallCCReplayInvokedTwice captures a continuation once and invokes it
// twice from within the same outer Run call, checking each invocation
// resumes independently and correctly at the PRIMCALL1 call site rather
// than corrupting state on the second replay — InvokeContinuation always
// unwinds a fresh cont.Copy() of the frozen snapshot (continuation.go), so
// neither invocation can see the other's resumed state.
func TestCallCCReplayInvokedTwice(t *testing.T) {
	th, bc, env, g := newTestThread()

	ccMCI := int64(0)
	internSymbolConstant(env, g, ccMCI, "call/cc")
	th.globalSet(ccMCI, value.Pointer(prim("call/cc", 1, false, func(a []value.Value) (value.Value, error) {
		return th.CallCC(a[0])
	})))

	var captured *object.Continuation
	procMCI := int64(1)
	internSymbolConstant(env, g, procMCI, "capture-proc")
	th.globalSet(procMCI, value.Pointer(prim("capture-proc", 1, false, func(a []value.Value) (value.Value, error) {
		captured = a[0].Object().(*object.Continuation)
		th.InvokeContinuation(captured, value.Fixnum(1))
		panic("unreachable: InvokeContinuation does not return")
	})))

	counterMCI := int64(2)
	internSymbolConstant(env, g, counterMCI, "resume-count")

	resumes := 0
	replayMCI := int64(3)
	internSymbolConstant(env, g, replayMCI, "%maybe-replay")
	th.globalSet(replayMCI, value.Pointer(prim("%maybe-replay", 0, false, func(a []value.Value) (value.Value, error) {
		resumes++
		if resumes == 1 {
			th.InvokeContinuation(captured, value.Fixnum(2))
			panic("unreachable: InvokeContinuation does not return")
		}
		return value.Fixnum(int64(resumes)), nil
	})))

	start := bc.Len()
	bc.EmitReference(bytecode.OpGlobalSymRef, uint64(procMCI))
	bc.Emit(bytecode.OpPushValue)
	bc.EmitReference(bytecode.OpPrimCall1, uint64(ccMCI)) // resumes here on each invocation
	bc.EmitReference(bytecode.OpGlobalSymSet, uint64(counterMCI))
	bc.EmitReference(bytecode.OpPrimCall0, uint64(replayMCI))
	bc.Emit(bytecode.OpFinish)

	result := runFrom(t, th, start)
	if n, ok := result.FixnumValue(); !ok || n != 2 {
		t.Fatalf("expected fixnum 2 (the replay primitive's second, non-re-invoking return), got %v", result)
	}
	if resumes != 2 {
		t.Fatalf("expected the replay primitive to run exactly twice, got %d", resumes)
	}
	finalCount, ok := th.globalRef(counterMCI).FixnumValue()
	if !ok || finalCount != 2 {
		t.Fatalf("expected resume-count's last write to be 2 (the second replay), got %v", th.globalRef(counterMCI))
	}
}
