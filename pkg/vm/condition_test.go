package vm

import (
	"testing"

	"github.com/avl-labs/wisp/pkg/bytecode"
	"github.com/avl-labs/wisp/pkg/value"
)

// TestConditionHandlerCatchesContinuable assembles a program that installs a
// trap frame via PUSH-TRAP, then raises a matching condition through a
// continuable raise-continuable-style primitive. The handler (an ordinary Go
// primitive standing in for a compiled handler closure) returns a value that
// becomes the raise call's own result, exercising the continuable half of
// Raise without needing a reader/compiler front end to build the handler
// body.
func TestConditionHandlerCatchesContinuable(t *testing.T) {
	th, bc, env, g := newTestThread()
	baseline := th.SP()

	ctypeMCI := int64(0)
	internSymbolConstant(env, g, ctypeMCI, "my-error-type")
	th.globalSet(ctypeMCI, value.Pointer(condFunctionError.Type))

	handlerMCI := int64(1)
	internSymbolConstant(env, g, handlerMCI, "handler")
	th.globalSet(handlerMCI, value.Pointer(prim("handler", 1, false, func(a []value.Value) (value.Value, error) {
		return value.Fixnum(123), nil
	})))

	raiseMCI := int64(2)
	internSymbolConstant(env, g, raiseMCI, "do-raise")
	th.globalSet(raiseMCI, value.Pointer(prim("do-raise", 0, false, func(a []value.Value) (value.Value, error) {
		return th.Raise(newCondition(condFunctionError, "boom"), true), nil
	})))

	start := bc.Len()
	bc.EmitReference(bytecode.OpGlobalSymRef, uint64(handlerMCI))
	bc.Emit(bytecode.OpPushValue)
	bc.EmitReference(bytecode.OpPushTrap, uint64(ctypeMCI))
	bc.EmitReference(bytecode.OpPrimCall0, uint64(raiseMCI))
	bc.Emit(bytecode.OpFinish)

	result := runFrom(t, th, start)
	if n, ok := result.FixnumValue(); !ok || n != 123 {
		t.Fatalf("expected fixnum 123 from handler, got %v", result)
	}
	// Raise truncates the stack back down to the matched frame's base
	// before invoking the handler, so the trap frame PUSH-TRAP installed
	// is already gone — no POP-TRAP is emitted above.
	if th.SP() != baseline {
		t.Fatalf("expected stack back at baseline %d, got SP=%d", baseline, th.SP())
	}
	if th.TrapSP != 0 {
		t.Fatalf("expected trap_sp restored to the thread-birth base frame at 0, got %d", th.TrapSP)
	}
}

// TestConditionPopTrapNormalExit exercises the non-raising path: a protected
// extent that completes normally pops its own trap frame via POP-TRAP,
// leaving the stack and trap_sp exactly as PushTrap found them.
func TestConditionPopTrapNormalExit(t *testing.T) {
	th, bc, env, g := newTestThread()
	baseline := th.SP()
	baseTrapSP := th.TrapSP

	ctypeMCI := int64(0)
	internSymbolConstant(env, g, ctypeMCI, "my-error-type")
	th.globalSet(ctypeMCI, value.Pointer(condFunctionError.Type))

	handlerMCI := int64(1)
	internSymbolConstant(env, g, handlerMCI, "handler")
	th.globalSet(handlerMCI, value.Pointer(prim("handler", 1, false, func(a []value.Value) (value.Value, error) {
		return value.Fixnum(0), nil
	})))

	start := bc.Len()
	bc.EmitReference(bytecode.OpGlobalSymRef, uint64(handlerMCI))
	bc.Emit(bytecode.OpPushValue)
	bc.EmitReference(bytecode.OpPushTrap, uint64(ctypeMCI))
	bc.EmitVaruint(bytecode.OpFixnum, 7) // the protected extent's own work
	bc.Emit(bytecode.OpPopTrap)
	bc.Emit(bytecode.OpFinish)

	result := runFrom(t, th, start)
	if n, ok := result.FixnumValue(); !ok || n != 7 {
		t.Fatalf("expected fixnum 7, got %v", result)
	}
	if th.SP() != baseline {
		t.Fatalf("expected stack back at baseline %d, got SP=%d", baseline, th.SP())
	}
	if th.TrapSP != baseTrapSP {
		t.Fatalf("expected trap_sp restored to %d, got %d", baseTrapSP, th.TrapSP)
	}
}

// TestConditionNonContinuableFallsThroughToKrun exercises a non-continuable
// raise whose handler returns normally instead of escaping: invokeHandler
// treats that as itself unhandled (the "re-signal" convention implemented by
// defaultUnhandled), which unwinds to the outermost krun entry via
// ApplyKrun(0, ...) rather than resuming at the raise call site.
// ApplyKrun's jump targets the run frame active when PushKrun was called, so
// the krun registration itself happens from inside the same Run invocation,
// exactly as a real toplevel REPL loop would install its own abort point
// before running each form.
func TestConditionNonContinuableFallsThroughToKrun(t *testing.T) {
	th, bc, env, g := newTestThread()

	ctypeMCI := int64(0)
	internSymbolConstant(env, g, ctypeMCI, "my-error-type")
	th.globalSet(ctypeMCI, value.Pointer(condFunctionError.Type))

	handlerMCI := int64(1)
	internSymbolConstant(env, g, handlerMCI, "handler")
	th.globalSet(handlerMCI, value.Pointer(prim("handler", 1, false, func(a []value.Value) (value.Value, error) {
		return value.Fixnum(0), nil // returns instead of escaping: itself unhandled
	})))

	raiseMCI := int64(1000)
	internSymbolConstant(env, g, raiseMCI, "do-raise")
	th.globalSet(raiseMCI, value.Pointer(prim("do-raise", 0, false, func(a []value.Value) (value.Value, error) {
		return th.Raise(newCondition(condFunctionError, "boom"), false), nil
	})))

	pushKrunMCI := int64(1001)
	internSymbolConstant(env, g, pushKrunMCI, "%install-krun")
	th.globalSet(pushKrunMCI, value.Pointer(prim("%install-krun", 0, false, func(a []value.Value) (value.Value, error) {
		th.PushKrun("toplevel")
		return value.Unspec, nil
	})))

	start := bc.Len()
	bc.EmitReference(bytecode.OpPrimCall0, uint64(pushKrunMCI))
	bc.EmitReference(bytecode.OpGlobalSymRef, uint64(handlerMCI))
	bc.Emit(bytecode.OpPushValue)
	bc.EmitReference(bytecode.OpPushTrap, uint64(ctypeMCI))
	bc.EmitReference(bytecode.OpPrimCall0, uint64(raiseMCI))
	bc.EmitVaruint(bytecode.OpFixnum, 999) // never reached: the krun unwind returns from Run first
	bc.Emit(bytecode.OpFinish)

	result := runFrom(t, th, start)
	if result != value.False {
		t.Fatalf("expected the krun unwind's False payload (defaultUnhandled's ApplyKrun(0, False)), got %v", result)
	}
}

// TestMarkerDisciplineViolation confirms a mismatched trap-frame pop panics
// via expectMarker/fatalf rather than silently corrupting the stack — a
// genuine Go panic, not a jumpSignal, since it signals a compiler bug rather
// than a user-observable condition (nonlocal.go's fatalf doc comment).
func TestMarkerDisciplineViolation(t *testing.T) {
	th, _, _, _ := newTestThread()
	th.Push(value.Fixnum(0)) // not a trap frame's marker

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected PopTrap to panic on marker discipline violation")
		}
	}()
	th.PopTrap()
}
