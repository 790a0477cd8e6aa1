// Package vm - the instruction-fetch/decode/execute loop.
//
// Grounded on the teacher's pkg/vm Run loop (fetch an Instruction, switch
// on its Op, mutate vm state, advance ip) generalized from the teacher's
// fixed-width Instruction struct to the append-only byte stream of
// spec.md §6: every opcode here reads its own operands directly off
// Code.Code via the decode helpers below rather than through a
// pre-decoded Instruction value.
package vm

import (
	"fmt"

	"github.com/avl-labs/wisp/pkg/bytecode"
	"github.com/avl-labs/wisp/pkg/object"
	"github.com/avl-labs/wisp/pkg/value"
)

func (t *Thread) fetchByte() byte {
	b := t.Code.Code[t.PC]
	t.PC++
	return b
}

func (t *Thread) fetchOp() bytecode.Op {
	return bytecode.Op(t.fetchByte())
}

func (t *Thread) readVaruint() int64 {
	n, next, err := bytecode.GetVaruint(t.Code.Code, int(t.PC))
	if err != nil {
		fatalf("%v", err)
	}
	t.PC = int64(next)
	return int64(n)
}

func (t *Thread) readVaruint2() (int64, int64) {
	a := t.readVaruint()
	b := t.readVaruint()
	return a, b
}

func (t *Thread) readReference() int64 {
	n, next, err := bytecode.GetReference(t.Code.Code, int(t.PC))
	if err != nil {
		fatalf("%v", err)
	}
	t.PC = int64(next)
	return int64(n)
}

func (t *Thread) readReference2() (int64, int64) {
	a := t.readReference()
	b := t.readReference()
	return a, b
}

func (t *Thread) readSigned() int64 {
	n, next, err := bytecode.GetSignedVaruint(t.Code.Code, int(t.PC))
	if err != nil {
		fatalf("%v", err)
	}
	t.PC = int64(next)
	return n
}

func (t *Thread) readFixuint4() int64 {
	n, next, err := bytecode.GetFixuint(t.Code.Code, int(t.PC), 4)
	if err != nil {
		fatalf("%v", err)
	}
	t.PC = int64(next)
	return int64(n)
}

// deepCopyValue implements CONSTANT-SYM-REF's "deep-copy the heap
// constant into val; immediates are copied by value" (spec.md §4.6): a
// quoted literal must not let a running program's mutation of the
// returned list/string/array leak back into the shared constant table.
// Bignums, symbols, and every other heap object here are treated as
// immutable once built (nothing in pkg/bignum or pkg/object mutates a
// Bignum/Symbol in place), so sharing the pointer is indistinguishable
// from copying it and only the genuinely mutable aggregate types recurse.
func deepCopyValue(v value.Value) value.Value {
	switch obj := v.Object().(type) {
	case *object.Pair:
		return value.Pointer(&object.Pair{Head: deepCopyValue(obj.Head), Tail: deepCopyValue(obj.Tail)})
	case *object.String:
		cp := make([]byte, len(obj.Bytes))
		copy(cp, obj.Bytes)
		return value.Pointer(&object.String{Bytes: cp})
	case *object.Array:
		cp := make([]value.Value, len(obj.Elems))
		for i, e := range obj.Elems {
			cp[i] = deepCopyValue(e)
		}
		return value.Pointer(&object.Array{Default: obj.Default, Used: obj.Used, Elems: cp})
	default:
		return v
	}
}

// checkedGlobalRef implements CHECKED-GLOBAL-SYM-REF mci: unlike plain
// GLOBAL-SYM-REF (which lazily fabricates a self-valued binding for an
// unbound name, supporting shell-style external-command dispatch), this
// form raises ^rt-variable-unbound-error when the name has no binding
// anywhere in the import chain at all.
func (t *Thread) checkedGlobalRef(mci int64) {
	sym := t.resolveSymbol(mci)
	if b, _, ok := t.Env.FindSymbolRecurse(sym.Name, true); ok {
		t.Val = t.Globals.Values[b.GVI]
		return
	}
	inst := newCondition(condVariableUnboundError, "unbound variable: "+sym.Name)
	inst.Set("name", value.Pointer(sym))
	t.Raise(inst, false)
}

// computedPair splits a COMPUTED-SYM-* slot's (getter . setter) value,
// raising ^rt-computed-variable-no-accessor-error if the needed half is
// missing (spec.md §4.4 "computed: gvi holds a pair of getter/setter
// closures").
func (t *Thread) computedPair(mci int64, name string) (getter, setter value.Value, ok bool) {
	sym := t.resolveSymbol(mci)
	gvi := t.Globals.GetOrCreateVVI(t.Env, mci, sym.Name, value.Nil)
	pair, isPair := t.Globals.Values[gvi].Object().(*object.Pair)
	if !isPair {
		inst := newCondition(condComputedVariableNoAccessor, name+": no "+name+" pair installed")
		inst.Set("name", value.Pointer(sym))
		t.Raise(inst, false)
		return value.Value{}, value.Value{}, false
	}
	return pair.Head, pair.Tail, true
}

func (t *Thread) computedRef(mci int64) {
	getter, _, ok := t.computedPair(mci, "computed-sym-ref")
	if !ok {
		return
	}
	if getter.IsFalse() || getter.IsNil() {
		sym := t.resolveSymbol(mci)
		inst := newCondition(condComputedVariableNoAccessor, "no getter installed for "+sym.Name)
		inst.Set("name", value.Pointer(sym))
		t.Raise(inst, false)
		return
	}
	result, err := t.Apply(getter, object.NewFrame(0, -1))
	if err != nil {
		t.raiseFromError(err)
		return
	}
	t.Val = result
}

func (t *Thread) computedSet(mci int64) {
	_, setter, ok := t.computedPair(mci, "computed-sym-set")
	if !ok {
		return
	}
	if setter.IsFalse() || setter.IsNil() {
		sym := t.resolveSymbol(mci)
		inst := newCondition(condComputedVariableNoAccessor, "no setter installed for "+sym.Name)
		inst.Set("name", value.Pointer(sym))
		t.Raise(inst, false)
		return
	}
	argFrame := object.NewFrame(1, -1)
	argFrame.Args[0] = t.Val
	result, err := t.Apply(setter, argFrame)
	if err != nil {
		t.raiseFromError(err)
		return
	}
	t.Val = result
}

func (t *Thread) computedDefine(mci int64) {
	sym := t.resolveSymbol(mci)
	gvi := t.Globals.GetOrCreateVVI(t.Env, mci, sym.Name, value.Nil)
	t.Globals.Values[gvi] = t.Val
}

// pushChain pushes one (next-sp, gvi, old-value, marker) slot onto the
// value stack and returns the new chain head, the shared shape both
// PUSH-DYNAMIC and PUSH-ENVIRON use (spec.md §4.4's dynamic/environ
// binding stacks), differing only in their marker and which side register
// they chain through.
func (t *Thread) pushChain(sp, gvi int64, old value.Value, marker value.Value) int64 {
	t.Push(value.Fixnum(sp))
	t.Push(value.Fixnum(gvi))
	t.Push(old)
	t.Push(marker)
	return int64(len(t.Stack) - 4)
}

func (t *Thread) popChain(marker value.Value, name string) (sp, gvi int64, old value.Value) {
	expectMarker(t.Pop(), marker, name)
	old = t.Pop()
	gvi = asFixnum(t.Pop())
	sp = asFixnum(t.Pop())
	return sp, gvi, old
}

// pushDynamic implements PUSH-DYNAMIC mci: mutates the live global slot in
// place and records the old value on the stack for POP-DYNAMIC to
// restore, rather than threading a separate chain structure through
// lookups — DYNAMIC-SYM-REF is then just an ordinary global read, since
// the live slot always holds the innermost active dynamic binding.
func (t *Thread) pushDynamic(mci int64) {
	sym := t.resolveSymbol(mci)
	gvi := t.Globals.GetOrCreateVVI(t.Env, mci, sym.Name, value.Pointer(sym))
	old := t.Globals.Values[gvi]
	t.DynamicSP = t.pushChain(t.DynamicSP, gvi, old, markerDynamic)
	t.Globals.Values[gvi] = t.Val
}

func (t *Thread) popDynamic() {
	sp, gvi, old := t.popChain(markerDynamic, "dynamic")
	t.Globals.Values[gvi] = old
	t.DynamicSP = sp
}

// pushEnviron implements PUSH-ENVIRON mci, the same chain shape as
// dynamic binding but tracked on its own stack pointer.
func (t *Thread) pushEnviron(mci int64) {
	sym := t.resolveSymbol(mci)
	gvi := t.Globals.GetOrCreateVVI(t.Env, mci, sym.Name, value.Unset)
	old := t.Globals.Values[gvi]
	t.EnvironSP = t.pushChain(t.EnvironSP, gvi, old, markerEnviron)
	t.Globals.Values[gvi] = t.Val
}

func (t *Thread) popEnviron() {
	sp, gvi, old := t.popChain(markerEnviron, "environ")
	t.Globals.Values[gvi] = old
	t.EnvironSP = sp
}

// environRef implements ENVIRON-SYM-REF mci: the slot defaults to the
// Unset singleton (spec.md §4.4), distinct from Undef, and reading an
// unset environ variable is a condition rather than a silent Unset value.
func (t *Thread) environRef(mci int64) {
	sym := t.resolveSymbol(mci)
	gvi := t.Globals.GetOrCreateVVI(t.Env, mci, sym.Name, value.Unset)
	v := t.Globals.Values[gvi]
	if v == value.Unset {
		inst := newCondition(condEnvironVariableUnboundError, "unbound environ variable: "+sym.Name)
		inst.Set("name", value.Pointer(sym))
		t.Raise(inst, false)
		return
	}
	t.Val = v
}

// relJump resolves a signed offset read by readSigned into an absolute
// target, relative to the PC just past the operand (spec.md §6.1's
// relative-jump convention).
func (t *Thread) relJump(offset int64) int64 {
	return t.PC + offset
}

// calleeName names the closure currently being invoked (t.Func, at the
// point an ARITYEQP/ARITYGEP check runs just inside its own prologue
// code), falling back to a placeholder for anonymous/unnamed closures.
func (t *Thread) calleeName() string {
	if c, ok := asClosure(t.Func); ok {
		if meta := object.Metadata(c); meta.Name != "" {
			return meta.Name
		}
	}
	return "<closure>"
}

// primCallN pops n arguments off the value stack (right-to-left, so the
// last-pushed argument is popped first) into a fresh frame and applies
// the primitive/closure named at mci.
func (t *Thread) primCallN(mci int64, n int) {
	callee := t.globalRef(mci)
	args := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = t.Pop()
	}
	frame := &object.Frame{Args: args, Names: -1}
	result, err := t.Apply(callee, frame)
	if err != nil {
		t.raiseFromError(err)
		return
	}
	t.Val = result
}

// step executes exactly one instruction. It returns finish=true when
// OpFinish is reached (spec.md §6.3's FINISH_pc, the only opcode that
// terminates the dispatch loop rather than falling through to the next
// fetch).
func (t *Thread) step() (finish bool) {
	op := t.fetchOp()
	switch op {
	case bytecode.OpShallowArgumentRef:
		i := t.readVaruint()
		t.Val = t.Frame.Args[i]
	case bytecode.OpShallowArgumentRef0:
		t.Val = t.Frame.Args[0]
	case bytecode.OpShallowArgumentRef1:
		t.Val = t.Frame.Args[1]
	case bytecode.OpShallowArgumentRef2:
		t.Val = t.Frame.Args[2]
	case bytecode.OpShallowArgumentRef3:
		t.Val = t.Frame.Args[3]
	case bytecode.OpShallowArgumentSet:
		i := t.readVaruint()
		t.Frame.Args[i] = t.Val
	case bytecode.OpDeepArgumentRef:
		i, j := t.readVaruint2()
		f, ok := t.Frame.Nth(int(i))
		if !ok {
			fatalf("deep-argument-ref: frame chain shorter than %d", i)
		}
		t.Val = f.Args[j]
	case bytecode.OpDeepArgumentSet:
		i, j := t.readVaruint2()
		f, ok := t.Frame.Nth(int(i))
		if !ok {
			fatalf("deep-argument-set: frame chain shorter than %d", i)
		}
		f.Args[j] = t.Val

	case bytecode.OpGlobalSymRef, bytecode.OpGlobalFunctionRef:
		mci := t.readReference()
		t.Val = t.globalRef(mci)
	case bytecode.OpCheckedGlobalSymRef:
		mci := t.readReference()
		t.checkedGlobalRef(mci)
	case bytecode.OpGlobalSymSet:
		mci := t.readReference()
		t.globalSet(mci, t.Val)
	case bytecode.OpGlobalSymDef:
		mci, mkci := t.readReference2()
		t.globalDefine(mci, mkci, t.Val)

	case bytecode.OpComputedSymRef:
		mci := t.readReference()
		t.computedRef(mci)
	case bytecode.OpComputedSymSet:
		mci := t.readReference()
		t.computedSet(mci)
	case bytecode.OpComputedSymDefine:
		mci := t.readReference()
		t.computedDefine(mci)

	case bytecode.OpConstantSymRef:
		mci := t.readReference()
		t.Val = deepCopyValue(t.resolveConstant(mci))

	case bytecode.OpPredefined0:
		t.Val = value.True
	case bytecode.OpPredefined1:
		t.Val = value.False
	case bytecode.OpPredefined2:
		t.Val = value.Nil
	case bytecode.OpPredefinedN:
		i := t.readVaruint()
		if i < 0 || int(i) >= len(t.Predefined) {
			fatalf("predefinedn: index %d out of range", i)
		}
		t.Val = t.Predefined[i]

	case bytecode.OpShortGoto, bytecode.OpLongGoto:
		offset := t.readSigned()
		t.PC = t.relJump(offset)
	case bytecode.OpShortJumpFalse, bytecode.OpLongJumpFalse:
		offset := t.readSigned()
		target := t.relJump(offset)
		if t.Val.IsFalse() {
			t.PC = target
		}
	case bytecode.OpShortJumpTrue, bytecode.OpLongJumpTrue:
		offset := t.readSigned()
		target := t.relJump(offset)
		if t.Val.IsTrue() {
			t.PC = target
		}

	case bytecode.OpPushValue:
		t.Push(t.Val)
	case bytecode.OpPopValue:
		t.Val = t.Pop()
	case bytecode.OpPopReg1:
		t.Reg1 = t.Pop()
	case bytecode.OpPopReg2:
		t.Reg2 = t.Pop()
	case bytecode.OpPopFunction:
		t.Func = t.Pop()
	case bytecode.OpPopExpr:
		t.Expr = t.readVaruint()

	case bytecode.OpPreserveState:
		t.PreserveState()
	case bytecode.OpRestoreState:
		t.RestoreState()
	case bytecode.OpRestoreAllState:
		t.RestoreAllState()

	case bytecode.OpCreateClosure:
		instrPC := t.PC - 1
		offset := t.readFixuint4()
		length := t.readFixuint4()
		sigci := t.readFixuint4()
		docci := t.readFixuint4()
		t.Val = value.Pointer(&object.Closure{
			PC:     instrPC + offset,
			Len:    length,
			Frame:  t.Frame,
			Module: t.Env,
			SigCI:  sigci,
			DocCI:  docci,
		})

	case bytecode.OpFunctionInvoke:
		t.invoke(false)
	case bytecode.OpFunctionGoto:
		t.invoke(true)
	case bytecode.OpReturn:
		expectMarker(t.Pop(), markerReturn, "return")
		t.PC = asFixnum(t.Pop())
	case bytecode.OpFinish:
		return true
	case bytecode.OpAbort:
		offset := t.readSigned()
		target := t.relJump(offset)
		_, jump := t.currentRunTarget()
		t.Krun = append(t.Krun, KrunEntry{
			Continuation: &object.Continuation{Jump: jump, PC: target},
			Description:  "abort",
		})

	case bytecode.OpAllocateFrame, bytecode.OpAllocateDottedFrame:
		n := t.readVaruint()
		t.Val = value.Pointer(object.NewFrame(int(n), -1))
	case bytecode.OpPopFrame:
		k := t.readVaruint()
		f := asFrame(t.Val)
		f.Args[k] = t.Pop()
	case bytecode.OpExtendFrame:
		newFrame := asFrame(t.Val)
		newFrame.Next = t.Frame
		t.Frame = newFrame
	case bytecode.OpUnlinkFrame:
		t.Frame = t.Frame.Next
	case bytecode.OpPackFrame:
		arity := int(t.readVaruint())
		f := asFrame(t.Val)
		var rest value.Value = value.Nil
		for i := len(f.Args) - 1; i >= arity; i-- {
			rest = value.Pointer(&object.Pair{Head: f.Args[i], Tail: rest})
		}
		f.Args = append(f.Args[:arity], rest)
	case bytecode.OpPopConsFrame:
		arity := int(t.readVaruint())
		f := asFrame(t.Val)
		v := t.Pop()
		f.Args[arity] = value.Pointer(&object.Pair{Head: v, Tail: f.Args[arity]})

	case bytecode.OpArity1P:
		t.Val = value.Bool(len(t.Frame.Args) == 1)
	case bytecode.OpArity2P:
		t.Val = value.Bool(len(t.Frame.Args) == 2)
	case bytecode.OpArity3P:
		t.Val = value.Bool(len(t.Frame.Args) == 3)
	case bytecode.OpArity4P:
		t.Val = value.Bool(len(t.Frame.Args) == 4)
	case bytecode.OpArityEqP:
		k := int(t.readVaruint())
		if len(t.Frame.Args) != k {
			t.arityError(t.calleeName(), k, len(t.Frame.Args))
			return false
		}
	case bytecode.OpArityGeP:
		k := int(t.readVaruint())
		if len(t.Frame.Args) < k {
			t.arityError(t.calleeName(), k, len(t.Frame.Args))
			return false
		}

	case bytecode.OpConstant0:
		t.Val = t.Globals.Constants[0]
	case bytecode.OpConstant1:
		t.Val = t.Globals.Constants[1]
	case bytecode.OpConstant2:
		t.Val = t.Globals.Constants[2]
	case bytecode.OpConstant3:
		t.Val = t.Globals.Constants[3]
	case bytecode.OpConstant4:
		t.Val = t.Globals.Constants[4]
	case bytecode.OpConstantN:
		gci := t.readVaruint()
		t.Val = t.Globals.Constants[gci]
	case bytecode.OpFixnum:
		n := t.readVaruint()
		t.Val = value.Fixnum(n)
	case bytecode.OpNegFixnum:
		n := t.readVaruint()
		t.Val = value.Fixnum(-n)
	case bytecode.OpCharacter, bytecode.OpUnicode:
		n := t.readVaruint()
		t.Val = value.Character(rune(n))

	case bytecode.OpPrimCall0:
		mci := t.readReference()
		t.primCallN(mci, 0)
	case bytecode.OpPrimCall1:
		mci := t.readReference()
		t.primCallN(mci, 1)
	case bytecode.OpPrimCall2:
		mci := t.readReference()
		t.primCallN(mci, 2)
	case bytecode.OpPrimCall1Head:
		t.fastHead(t.Pop())
	case bytecode.OpPrimCall1Tail:
		t.fastTail(t.Pop())
	case bytecode.OpPrimCall1Pairp:
		t.fastPairp(t.Pop())
	case bytecode.OpPrimCall1Nullp:
		t.fastNullp(t.Pop())
	case bytecode.OpPrimCall1Not:
		t.fastNot(t.Pop())
	case bytecode.OpPrimCall2Add:
		b, a := t.Pop(), t.Pop()
		t.fastAdd(a, b)
	case bytecode.OpPrimCall2Subtract:
		b, a := t.Pop(), t.Pop()
		t.fastSubtract(a, b)
	case bytecode.OpPrimCall2Multiply:
		b, a := t.Pop(), t.Pop()
		t.fastMultiply(a, b)
	case bytecode.OpPrimCall2Eq:
		b, a := t.Pop(), t.Pop()
		t.fastEq(a, b)
	case bytecode.OpPrimCall2Lt:
		b, a := t.Pop(), t.Pop()
		t.fastCompare(a, b, func(c int) bool { return c < 0 })
	case bytecode.OpPrimCall2Gt:
		b, a := t.Pop(), t.Pop()
		t.fastCompare(a, b, func(c int) bool { return c > 0 })
	case bytecode.OpPrimCall2Cons:
		b, a := t.Pop(), t.Pop()
		t.fastCons(a, b)

	case bytecode.OpExpander:
		mci := t.readReference()
		t.expanders[mci] = t.Val
	case bytecode.OpInfixOperator:
		mci, pri := t.readReference2()
		t.operators[mci] = operatorDef{priority: int(pri), postfix: false, handler: t.Val}
	case bytecode.OpPostfixOperator:
		mci, pri := t.readReference2()
		t.operators[mci] = operatorDef{priority: int(pri), postfix: true, handler: t.Val}

	case bytecode.OpPushDynamic:
		mci := t.readReference()
		t.pushDynamic(mci)
	case bytecode.OpPopDynamic:
		t.popDynamic()
	case bytecode.OpDynamicSymRef:
		mci := t.readReference()
		t.Val = t.globalRef(mci)

	case bytecode.OpPushEnviron:
		mci := t.readReference()
		t.pushEnviron(mci)
	case bytecode.OpPopEnviron:
		t.popEnviron()
	case bytecode.OpEnvironSymRef:
		mci := t.readReference()
		t.environRef(mci)

	case bytecode.OpPushTrap:
		mci := t.readReference()
		t.PushTrap(mci)
	case bytecode.OpPopTrap:
		t.PopTrap()
	case bytecode.OpRestoreTrap:
		t.RestoreTrap()

	case bytecode.OpNonContErr:
		inst, ok := t.Val.Object().(*object.StructInstance)
		if !ok {
			inst = newCondition(condFunctionError, t.Val.String())
		}
		t.defaultUnhandled(inst, false)

	default:
		fatalf("unimplemented opcode %s", op)
	}
	return false
}

// Run drives the dispatch loop from the thread's current PC until FINISH
// is reached or a jump signal destined for this run frame is caught
// (spec.md §5's nested-run-frame model: a callback invoked from a
// primitive that re-enters Run pushes its own frame here). A krun entry
// described as "run" is kept for the lifetime of this call, so a
// condition raised anywhere beneath it can unwind straight back here via
// %vm-apply-continuation.
func (t *Thread) Run() (result value.Value, err error) {
	frame, jump := t.newRunFrame()
	prevRun, prevJump := t.currentRun, t.currentJump
	t.currentRun, t.currentJump = frame, jump
	defer func() { t.currentRun, t.currentJump = prevRun, prevJump }()

	t.PushKrun("run")
	defer t.PopKrun()

	// A continuation invoked back into this same run frame resumes by
	// looping rather than recursing: recursing would mint a fresh run-frame
	// ID via newRunFrame, and a *second* invocation of the same
	// continuation (spec.md §8's "Continuation replay" property) would
	// then have no live frame left bearing its original ID to unwind to.
	for {
		var caught jumpSignal
		func() {
			defer recoverRunFrame(frame, &caught)
			t.dispatchLoop()
		}()

		if caught.Code == 0 {
			return t.Val, nil
		}
		switch caught.Code {
		case JumpContinuation, JumpCallCC:
			if caught.Cont != nil {
				t.installContinuation(caught.Cont, caught.Payload)
				continue
			}
			return caught.Payload, nil
		case JumpCondition, JumpEvent, JumpExit:
			return caught.Payload, nil
		default:
			return value.Value{}, fmt.Errorf("vm: unrecognized jump code %d", caught.Code)
		}
	}
}

// dispatchLoop executes instructions until step reports FINISH, polling
// for pending signals and consulting an attached debugger between
// instructions (spec.md §5 "suspension points: only between
// instructions").
func (t *Thread) dispatchLoop() {
	for {
		t.pollSignals()
		if t.debugger != nil && t.debugger.ShouldPause() {
			if !t.debugger.InteractivePrompt() {
				return
			}
		}
		if t.step() {
			return
		}
	}
}
