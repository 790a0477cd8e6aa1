package vm

import (
	"fmt"

	"github.com/avl-labs/wisp/pkg/module"
	"github.com/avl-labs/wisp/pkg/object"
	"github.com/avl-labs/wisp/pkg/value"
)

// resolveConstant maps a module-local constant index to its global slot,
// backfilling vci lazily the way a freshly merged module would have
// already had it backfilled (spec.md §4.4); a mci the compiler emitted
// must already be present, so a miss is fatal rather than a condition.
func (t *Thread) resolveConstant(mci int64) value.Value {
	gci, ok := t.Env.VCI[mci]
	if !ok {
		fatalf("unresolved constant index %d in module %s", mci, t.Env.Name)
	}
	if gci < 0 || int(gci) >= len(t.Globals.Constants) {
		fatalf("constant index %d out of range", gci)
	}
	return t.Globals.Constants[gci]
}

func (t *Thread) resolveSymbol(mci int64) *object.Symbol {
	sym, ok := t.resolveConstant(mci).Object().(*object.Symbol)
	if !ok {
		fatalf("constant at mci %d is not a symbol", mci)
	}
	return sym
}

// globalRef implements the value side of GLOBAL-SYM-REF mci: look up (or
// lazily create) the variable slot for the symbol named at mci and return
// its current value (spec.md §4.4 get-or-create-vvi).
func (t *Thread) globalRef(mci int64) value.Value {
	sym := t.resolveSymbol(mci)
	gvi := t.Globals.GetOrCreateVVI(t.Env, mci, sym.Name, value.Pointer(sym))
	return t.Globals.Values[gvi]
}

// globalSet implements GLOBAL-SYM-SET mci: store v into the symbol's
// variable slot, and if v is a closure, record the symbol's name as the
// closure's queryable metadata name (spec.md §4.6, §9).
func (t *Thread) globalSet(mci int64, v value.Value) {
	sym := t.resolveSymbol(mci)
	gvi := t.Globals.GetOrCreateVVI(t.Env, mci, sym.Name, value.Pointer(sym))
	t.Globals.Values[gvi] = v
	if c, ok := asClosure(v); ok {
		object.SetClosureName(c, sym.Name)
	}
}

// globalDefine implements GLOBAL-SYM-DEF mci mkci: like globalSet, but
// always creates a fresh binding in the current module (scope named by
// the mkci-resolved scope-marker constant) rather than chasing an
// existing one up the import chain (define vs set!).
func (t *Thread) globalDefine(mci, mkci int64, v value.Value) {
	sym := t.resolveSymbol(mci)
	gvi := t.Globals.AllocateValue(v)
	t.Env.Symbols[sym.Name] = &module.Binding{
		Scope:       scopeFromMarker(t.resolveConstant(mkci)),
		MCI:         mci,
		GVI:         gvi,
		DefiningMod: t.Env.Name,
	}
	t.Env.VVI[mci] = gvi
	if c, ok := asClosure(v); ok {
		object.SetClosureName(c, sym.Name)
	}
}

// scopeFromMarker maps one of the scope-marker singleton constants
// (spec.md §4.4: toplevel, predef, environ, computed) to the module
// package's Scope enum.
func scopeFromMarker(marker value.Value) module.Scope {
	switch marker {
	case value.ScopePredef:
		return module.ScopePredef
	case value.ScopeEnviron:
		return module.ScopeEnviron
	case value.ScopeComputed:
		return module.ScopeComputed
	default:
		return module.ScopeToplevel
	}
}

// arityError builds and raises an ^rt-function-arity-error condition.
func (t *Thread) arityError(name string, want, got int) {
	t.RaiseErrorf(condFunctionArityError, "%s", fmt.Sprintf(
		"wrong number of arguments to %s: expected %d, got %d", name, want, got))
}

// Apply dispatches a callable (closure, primitive, or continuation)
// against an argument frame without touching PC/Frame/Env directly — used
// by condition handler invocation and by Go-level helpers (e.g. the
// apply/call-with-current-continuation primitives) that need to call back
// into user code without going through the bytecode FUNCTION-INVOKE path.
// Closures are run via a nested Run so that their own RETURN eventually
// lands back here.
func (t *Thread) Apply(callable value.Value, args *object.Frame) (value.Value, error) {
	switch obj := callable.Object().(type) {
	case *object.Primitive:
		return t.applyPrimitive(obj, args)
	case *object.Closure:
		return t.applyClosure(obj, args)
	case *object.Continuation:
		t.InvokeContinuation(obj, frameToValue(args))
		panic("unreachable: InvokeContinuation does not return")
	default:
		return value.Value{}, fmt.Errorf("not applicable: %v", callable)
	}
}

func (t *Thread) applyPrimitive(p *object.Primitive, args *object.Frame) (value.Value, error) {
	if !p.Varargs && len(args.Args) != p.Arity {
		return value.Value{}, fmt.Errorf("%s: expected %d arguments, got %d", p.Name, p.Arity, len(args.Args))
	}
	if p.Varargs && len(args.Args) < p.Arity {
		return value.Value{}, fmt.Errorf("%s: expected at least %d arguments, got %d", p.Name, p.Arity, len(args.Args))
	}
	return p.Fn(args.Args)
}

// applyClosure runs a closure to completion in a fresh nested run frame,
// reusing Run's own recover point, so that a re-entrant call (e.g. a
// condition handler, or Scheme-level `apply`) nests correctly inside
// spec.md §5's LIFO jump-buffer stack.
func (t *Thread) applyClosure(c *object.Closure, args *object.Frame) (value.Value, error) {
	args.Next = c.Frame
	savedPC, savedFrame, savedEnv, savedFunc, savedVal := t.PC, t.Frame, t.Env, t.Func, t.Val
	savedStack := t.Stack
	t.Stack = nil
	t.Push(value.Fixnum(t.Code.Prologue.FinishPC))
	t.Push(markerReturn)
	t.Frame = args
	t.Env = c.Module
	t.Func = value.Pointer(c)
	t.Val = frameToValue(args)
	t.PC = c.PC

	result, err := t.Run()

	t.PC, t.Frame, t.Env, t.Func, t.Val = savedPC, savedFrame, savedEnv, savedFunc, savedVal
	t.Stack = savedStack
	return result, err
}

func frameToValue(f *object.Frame) value.Value {
	if f == nil {
		return value.Nil
	}
	return value.Pointer(f)
}

// invoke performs FUNCTION-INVOKE/FUNCTION-GOTO: func holds the callable,
// val holds the argument frame. tailCall selects whether a return address
// is pushed (non-tail) or the existing one is reused (tail).
func (t *Thread) invoke(tailCall bool) {
	argFrame := asFrame(t.Val)
	switch callee := t.Func.Object().(type) {
	case *object.Primitive:
		result, err := t.applyPrimitive(callee, argFrame)
		if err != nil {
			t.RaiseErrorf(condFunctionError, "%s", err.Error())
			return
		}
		t.Val = result
		// Primitives never change PC; RETURN (already on the stack from
		// the enclosing call) takes over normally.
	case *object.Closure:
		if argFrame != nil {
			argFrame.Next = callee.Frame
		}
		callee.CallCnt++
		if !tailCall {
			t.Push(value.Fixnum(t.PC))
			t.Push(markerReturn)
		}
		t.Frame = argFrame
		t.Env = callee.Module
		t.PC = callee.PC
	case *object.Continuation:
		t.InvokeContinuation(callee, t.Val)
	default:
		t.RaiseErrorf(condFunctionError, "%s", fmt.Sprintf("not applicable: %v", t.Func))
	}
}
