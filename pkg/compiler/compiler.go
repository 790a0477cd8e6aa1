// Package compiler lowers s-expressions produced by pkg/reader into the
// append-only opcode stream pkg/bytecode defines and pkg/vm's dispatch loop
// drives, generalized from the teacher's pkg/compiler (a single-pass
// AST-walking emitter over pkg/ast's Smalltalk-shaped node set) to a
// single-pass emitter walking value.Value s-expressions directly: there is
// no intermediate AST package here, pairs and symbols already are the tree.
//
// The emission shape — PRESERVE-STATE/FUNCTION-INVOKE/RESTORE-STATE around
// every non-tail call, FUNCTION-GOTO in tail position, frames built via
// ALLOCATE-FRAME/POP-FRAME, closures via CREATE-CLOSURE followed by a
// SHORT-GOTO skipping the inline body — is the calling convention
// pkg/vm/dispatch_test.go hand-assembles; this package generates it
// programmatically instead of by hand.
package compiler

import (
	"encoding/binary"
	"fmt"

	"github.com/avl-labs/wisp/pkg/bytecode"
	"github.com/avl-labs/wisp/pkg/module"
	"github.com/avl-labs/wisp/pkg/object"
	"github.com/avl-labs/wisp/pkg/value"
)

// scope tracks one lambda frame's formal parameter names for lexical
// variable resolution (spec.md §4.6's SHALLOW/DEEP-ARGUMENT-REF pair).
type scope struct {
	names []string
}

// Compiler walks s-expressions and emits opcodes into a *bytecode.Bytecode,
// wiring module-local constant/symbol references into env/globals exactly
// as a loaded module's own LoadConstants merge would have (pkg/module).
type Compiler struct {
	env *module.Module
	g   *module.Globals

	symMCI       map[string]int64
	nextMCI      int64
	scopeMarker  int64
	haveScopeMCI bool

	scopes []scope
}

// New returns a Compiler that wires constant and global references into env
// and g as it emits.
func New(env *module.Module, g *module.Globals) *Compiler {
	return &Compiler{env: env, g: g, symMCI: map[string]int64{}}
}

// fastBinOps/fastUnOps name the operators the compiler open-codes directly
// to the dedicated PRIMCALL2-*/PRIMCALL1-* fast paths (spec.md §4.6) rather
// than dispatching through a general function call — these names are never
// treated as rebindable globals by the compiler, matching a small inlined
// operator set rather than ordinary first-class procedures.
var fastBinOps = map[string]bytecode.Op{
	"+":    bytecode.OpPrimCall2Add,
	"-":    bytecode.OpPrimCall2Subtract,
	"*":    bytecode.OpPrimCall2Multiply,
	"=":    bytecode.OpPrimCall2Eq,
	"<":    bytecode.OpPrimCall2Lt,
	">":    bytecode.OpPrimCall2Gt,
	"cons": bytecode.OpPrimCall2Cons,
}

var fastUnOps = map[string]bytecode.Op{
	"car":    bytecode.OpPrimCall1Head,
	"head":   bytecode.OpPrimCall1Head,
	"cdr":    bytecode.OpPrimCall1Tail,
	"tail":   bytecode.OpPrimCall1Tail,
	"pair?":  bytecode.OpPrimCall1Pairp,
	"null?":  bytecode.OpPrimCall1Nullp,
	"not":    bytecode.OpPrimCall1Not,
}

// CompileProgram compiles forms in sequence directly into bc (no forward
// jump ever needs to cross a top-level form boundary, so none of the
// scratch-buffer machinery compileExpr uses internally is needed here) and
// terminates with FINISH. It returns the PC a caller should set Thread.PC to
// before calling Run.
func (c *Compiler) CompileProgram(bc *bytecode.Bytecode, forms []value.Value) (int64, error) {
	start := bc.Len()
	for _, f := range forms {
		if err := c.compileExpr(bc, f, false); err != nil {
			return 0, err
		}
	}
	bc.Emit(bytecode.OpFinish)
	return start, nil
}

// symbolMCI returns the stable module-local constant index for a variable
// name, interning it (and caching the gci backing it, the way a freshly
// loaded module's constants array would already have been merged and
// backfilled by LoadConstants) the first time it is seen.
func (c *Compiler) symbolMCI(name string) int64 {
	if mci, ok := c.symMCI[name]; ok {
		return mci
	}
	mci := c.nextMCI
	c.nextMCI++
	c.env.VCI[mci] = c.g.InternConstant(name, value.Pointer(object.Intern(name)))
	c.symMCI[name] = mci
	return mci
}

// literalMCI allocates a fresh module-local constant index for a non-symbol
// literal (quoted data or a synthesized default value) — literals are never
// deduplicated, since two occurrences of an equal-but-distinct quoted list
// must stay independently mutable (spec.md §4.6 CONSTANT-SYM-REF deep-copies
// on every read regardless).
func (c *Compiler) literalMCI(v value.Value) int64 {
	mci := c.nextMCI
	c.nextMCI++
	c.env.VCI[mci] = c.g.AppendConstant(v)
	return mci
}

// scopeMarkerMCI returns the (lazily allocated, shared) mci of the toplevel
// scope-marker constant GLOBAL-SYM-DEF's second operand expects.
func (c *Compiler) scopeMarkerMCI() int64 {
	if !c.haveScopeMCI {
		c.scopeMarker = c.literalMCI(value.ScopeToplevel)
		c.haveScopeMCI = true
	}
	return c.scopeMarker
}

// lookupVar searches the active lambda scopes innermost-first, returning
// the lexical depth (0 = the current frame) and argument index.
func (c *Compiler) lookupVar(name string) (depth, idx int, ok bool) {
	for d, s := 0, len(c.scopes)-1; s >= 0; s, d = s-1, d+1 {
		for i, n := range c.scopes[s].names {
			if n == name {
				return d, i, true
			}
		}
	}
	return 0, 0, false
}

func patchFixuint4(code []byte, pos int, n int64) {
	binary.BigEndian.PutUint32(code[pos:], uint32(n))
}

func (c *Compiler) compileExpr(dst *bytecode.Bytecode, expr value.Value, tail bool) error {
	if sym, ok := expr.Object().(*object.Symbol); ok {
		return c.compileVarRef(dst, sym.Name)
	}
	if pair, ok := expr.Object().(*object.Pair); ok {
		return c.compilePair(dst, pair, tail)
	}
	return c.compileLiteral(dst, expr)
}

func (c *Compiler) compileVarRef(dst *bytecode.Bytecode, name string) error {
	if depth, idx, ok := c.lookupVar(name); ok {
		if depth == 0 {
			switch idx {
			case 0:
				dst.Emit(bytecode.OpShallowArgumentRef0)
			case 1:
				dst.Emit(bytecode.OpShallowArgumentRef1)
			case 2:
				dst.Emit(bytecode.OpShallowArgumentRef2)
			case 3:
				dst.Emit(bytecode.OpShallowArgumentRef3)
			default:
				dst.EmitVaruint(bytecode.OpShallowArgumentRef, uint64(idx))
			}
		} else {
			dst.EmitVaruint2(bytecode.OpDeepArgumentRef, uint64(depth), uint64(idx))
		}
		return nil
	}
	dst.EmitReference(bytecode.OpGlobalSymRef, uint64(c.symbolMCI(name)))
	return nil
}

func (c *Compiler) compileVarSet(dst *bytecode.Bytecode, name string) {
	if depth, idx, ok := c.lookupVar(name); ok {
		if depth == 0 {
			dst.EmitVaruint(bytecode.OpShallowArgumentSet, uint64(idx))
		} else {
			dst.EmitVaruint2(bytecode.OpDeepArgumentSet, uint64(depth), uint64(idx))
		}
		return
	}
	dst.EmitReference(bytecode.OpGlobalSymSet, uint64(c.symbolMCI(name)))
}

func (c *Compiler) compileLiteral(dst *bytecode.Bytecode, v value.Value) error {
	switch v {
	case value.Nil:
		dst.Emit(bytecode.OpPredefined2)
		return nil
	case value.True:
		dst.Emit(bytecode.OpPredefined0)
		return nil
	case value.False:
		dst.Emit(bytecode.OpPredefined1)
		return nil
	}
	if n, ok := v.FixnumValue(); ok {
		if n >= 0 {
			dst.EmitVaruint(bytecode.OpFixnum, uint64(n))
		} else {
			dst.EmitVaruint(bytecode.OpNegFixnum, uint64(-n))
		}
		return nil
	}
	if r, ok := v.CharacterValue(); ok {
		dst.EmitVaruint(bytecode.OpCharacter, uint64(r))
		return nil
	}
	dst.EmitReference(bytecode.OpConstantSymRef, uint64(c.literalMCI(v)))
	return nil
}

func (c *Compiler) compilePair(dst *bytecode.Bytecode, p *object.Pair, tail bool) error {
	if sym, ok := p.Head.Object().(*object.Symbol); ok {
		if !c.isLocal(sym.Name) {
			switch sym.Name {
			case "quote":
				args, ok := object.ToSlice(p.Tail)
				if !ok || len(args) != 1 {
					return fmt.Errorf("compiler: quote takes exactly one argument")
				}
				return c.compileLiteral(dst, args[0])
			case "if":
				return c.compileIf(dst, p.Tail, tail)
			case "define":
				return c.compileDefine(dst, p.Tail)
			case "set!":
				return c.compileSet(dst, p.Tail)
			case "lambda":
				return c.compileLambda(dst, p.Tail)
			case "begin":
				forms, ok := object.ToSlice(p.Tail)
				if !ok {
					return fmt.Errorf("compiler: malformed begin")
				}
				return c.compileBody(dst, forms, tail)
			case "and":
				forms, ok := object.ToSlice(p.Tail)
				if !ok {
					return fmt.Errorf("compiler: malformed and")
				}
				return c.compileAnd(dst, forms, tail)
			case "or":
				forms, ok := object.ToSlice(p.Tail)
				if !ok {
					return fmt.Errorf("compiler: malformed or")
				}
				return c.compileOr(dst, forms, tail)
			case "cond":
				clauses, ok := object.ToSlice(p.Tail)
				if !ok {
					return fmt.Errorf("compiler: malformed cond")
				}
				return c.compileCond(dst, clauses, tail)
			case "let":
				return c.compileLet(dst, p.Tail, tail)
			}
		}
	}
	args, ok := object.ToSlice(p.Tail)
	if !ok {
		return fmt.Errorf("compiler: improper argument list in call")
	}
	return c.compileCall(dst, p.Head, args, tail)
}

// isLocal reports whether name is bound by an enclosing lambda — a local of
// that name shadows a special-form keyword or open-coded fast operator.
func (c *Compiler) isLocal(name string) bool {
	_, _, ok := c.lookupVar(name)
	return ok
}

func (c *Compiler) compileIf(dst *bytecode.Bytecode, rest value.Value, tail bool) error {
	parts, ok := object.ToSlice(rest)
	if !ok || (len(parts) != 2 && len(parts) != 3) {
		return fmt.Errorf("compiler: if takes a test, a then-branch, and an optional else-branch")
	}
	if err := c.compileExpr(dst, parts[0], false); err != nil {
		return err
	}

	thenBuf := &bytecode.Bytecode{}
	if err := c.compileExpr(thenBuf, parts[1], tail); err != nil {
		return err
	}
	elseBuf := &bytecode.Bytecode{}
	if len(parts) == 3 {
		if err := c.compileExpr(elseBuf, parts[2], tail); err != nil {
			return err
		}
	} else {
		if err := c.compileLiteral(elseBuf, value.Unspec); err != nil {
			return err
		}
	}

	gotoBuf := &bytecode.Bytecode{}
	gotoBuf.EmitSigned(bytecode.OpShortGoto, int64(len(elseBuf.Code)))

	skip := int64(len(thenBuf.Code) + len(gotoBuf.Code))
	dst.EmitSigned(bytecode.OpShortJumpFalse, skip)
	dst.Code = append(dst.Code, thenBuf.Code...)
	dst.Code = append(dst.Code, gotoBuf.Code...)
	dst.Code = append(dst.Code, elseBuf.Code...)
	return nil
}

func (c *Compiler) compileAnd(dst *bytecode.Bytecode, forms []value.Value, tail bool) error {
	if len(forms) == 0 {
		return c.compileLiteral(dst, value.True)
	}
	if len(forms) == 1 {
		return c.compileExpr(dst, forms[0], tail)
	}
	if err := c.compileExpr(dst, forms[0], false); err != nil {
		return err
	}
	restBuf := &bytecode.Bytecode{}
	if err := c.compileAnd(restBuf, forms[1:], tail); err != nil {
		return err
	}
	dst.EmitSigned(bytecode.OpShortJumpFalse, int64(len(restBuf.Code)))
	dst.Code = append(dst.Code, restBuf.Code...)
	return nil
}

func (c *Compiler) compileOr(dst *bytecode.Bytecode, forms []value.Value, tail bool) error {
	if len(forms) == 0 {
		return c.compileLiteral(dst, value.False)
	}
	if len(forms) == 1 {
		return c.compileExpr(dst, forms[0], tail)
	}
	if err := c.compileExpr(dst, forms[0], false); err != nil {
		return err
	}
	restBuf := &bytecode.Bytecode{}
	if err := c.compileOr(restBuf, forms[1:], tail); err != nil {
		return err
	}
	dst.EmitSigned(bytecode.OpShortJumpTrue, int64(len(restBuf.Code)))
	dst.Code = append(dst.Code, restBuf.Code...)
	return nil
}

func (c *Compiler) compileCond(dst *bytecode.Bytecode, clauses []value.Value, tail bool) error {
	if len(clauses) == 0 {
		return c.compileLiteral(dst, value.Unspec)
	}
	clausePair, ok := clauses[0].Object().(*object.Pair)
	if !ok {
		return fmt.Errorf("compiler: malformed cond clause")
	}
	body, ok := object.ToSlice(clausePair.Tail)
	if !ok {
		return fmt.Errorf("compiler: malformed cond clause body")
	}
	if sym, ok := clausePair.Head.Object().(*object.Symbol); ok && sym.Name == "else" {
		return c.compileBody(dst, body, tail)
	}

	if err := c.compileExpr(dst, clausePair.Head, false); err != nil {
		return err
	}
	thenBuf := &bytecode.Bytecode{}
	if err := c.compileBody(thenBuf, body, tail); err != nil {
		return err
	}
	elseBuf := &bytecode.Bytecode{}
	if err := c.compileCond(elseBuf, clauses[1:], tail); err != nil {
		return err
	}
	gotoBuf := &bytecode.Bytecode{}
	gotoBuf.EmitSigned(bytecode.OpShortGoto, int64(len(elseBuf.Code)))

	skip := int64(len(thenBuf.Code) + len(gotoBuf.Code))
	dst.EmitSigned(bytecode.OpShortJumpFalse, skip)
	dst.Code = append(dst.Code, thenBuf.Code...)
	dst.Code = append(dst.Code, gotoBuf.Code...)
	dst.Code = append(dst.Code, elseBuf.Code...)
	return nil
}

func (c *Compiler) compileBody(dst *bytecode.Bytecode, forms []value.Value, tail bool) error {
	if len(forms) == 0 {
		return c.compileLiteral(dst, value.Unspec)
	}
	for i, f := range forms {
		last := i == len(forms)-1
		if err := c.compileExpr(dst, f, last && tail); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileDefine(dst *bytecode.Bytecode, rest value.Value) error {
	parts, ok := object.ToSlice(rest)
	if !ok || len(parts) < 1 {
		return fmt.Errorf("compiler: malformed define")
	}
	// (define (name . params) body...) sugars a named-function lambda.
	if sig, ok := parts[0].Object().(*object.Pair); ok {
		nameSym, ok := sig.Head.Object().(*object.Symbol)
		if !ok {
			return fmt.Errorf("compiler: define's function name must be a symbol")
		}
		lambdaRest := object.List(append([]value.Value{sig.Tail}, parts[1:]...)...)
		if err := c.compileLambda(dst, lambdaRest); err != nil {
			return err
		}
		dst.EmitReference2(bytecode.OpGlobalSymDef, uint64(c.symbolMCI(nameSym.Name)), uint64(c.scopeMarkerMCI()))
		return nil
	}
	nameSym, ok := parts[0].Object().(*object.Symbol)
	if !ok {
		return fmt.Errorf("compiler: define's target must be a symbol")
	}
	if len(parts) == 1 {
		if err := c.compileLiteral(dst, value.Unspec); err != nil {
			return err
		}
	} else if err := c.compileExpr(dst, parts[1], false); err != nil {
		return err
	}
	dst.EmitReference2(bytecode.OpGlobalSymDef, uint64(c.symbolMCI(nameSym.Name)), uint64(c.scopeMarkerMCI()))
	return nil
}

func (c *Compiler) compileSet(dst *bytecode.Bytecode, rest value.Value) error {
	parts, ok := object.ToSlice(rest)
	if !ok || len(parts) != 2 {
		return fmt.Errorf("compiler: set! takes exactly a name and a value")
	}
	nameSym, ok := parts[0].Object().(*object.Symbol)
	if !ok {
		return fmt.Errorf("compiler: set!'s target must be a symbol")
	}
	if err := c.compileExpr(dst, parts[1], false); err != nil {
		return err
	}
	c.compileVarSet(dst, nameSym.Name)
	return nil
}

// compileLambda compiles (params...) body... into a CREATE-CLOSURE
// instruction followed by a SHORT-GOTO skipping its own inline body
// (dispatch_test.go's TestDispatchCreateClosure), so ordinary sequential
// fallthrough past a closure literal never re-enters its body. Only fixed
// (non-dotted) parameter lists are supported by this minimal front end —
// see DESIGN.md.
func (c *Compiler) compileLambda(dst *bytecode.Bytecode, rest value.Value) error {
	parts, ok := object.ToSlice(rest)
	if !ok || len(parts) < 1 {
		return fmt.Errorf("compiler: malformed lambda")
	}
	paramVals, ok := object.ToSlice(parts[0])
	if !ok {
		return fmt.Errorf("compiler: only fixed-arity parameter lists are supported")
	}
	names := make([]string, len(paramVals))
	for i, pv := range paramVals {
		sym, ok := pv.Object().(*object.Symbol)
		if !ok {
			return fmt.Errorf("compiler: lambda parameter must be a symbol")
		}
		names[i] = sym.Name
	}

	bodyBuf := &bytecode.Bytecode{}
	c.scopes = append(c.scopes, scope{names: names})
	err := c.compileBody(bodyBuf, parts[1:], true)
	c.scopes = c.scopes[:len(c.scopes)-1]
	if err != nil {
		return err
	}
	bodyBuf.Emit(bytecode.OpReturn)

	instrPC := dst.Len()
	dst.EmitClosure(0, int64(len(bodyBuf.Code)), 0, 0)

	gotoBuf := &bytecode.Bytecode{}
	gotoBuf.EmitSigned(bytecode.OpShortGoto, int64(len(bodyBuf.Code)))
	dst.Code = append(dst.Code, gotoBuf.Code...)

	bodyStart := dst.Len()
	patchFixuint4(dst.Code, int(instrPC+1), bodyStart-instrPC)
	dst.Code = append(dst.Code, bodyBuf.Code...)
	return nil
}

// compileLet desugars (let ((v e)...) body...) into an application of an
// anonymous lambda, the standard reduction (the teacher's compiler has no
// analogue; grounded directly on spec.md §4.6's note that let is sugar over
// lambda application, not its own opcode).
func (c *Compiler) compileLet(dst *bytecode.Bytecode, rest value.Value, tail bool) error {
	parts, ok := object.ToSlice(rest)
	if !ok || len(parts) < 1 {
		return fmt.Errorf("compiler: malformed let")
	}
	bindings, ok := object.ToSlice(parts[0])
	if !ok {
		return fmt.Errorf("compiler: malformed let bindings")
	}
	names := make([]value.Value, len(bindings))
	inits := make([]value.Value, len(bindings))
	for i, b := range bindings {
		bp, ok := object.ToSlice(b)
		if !ok || len(bp) != 2 {
			return fmt.Errorf("compiler: malformed let binding")
		}
		names[i] = bp[0]
		inits[i] = bp[1]
	}

	paramList := object.List(names...)
	lambdaRest := object.List(append([]value.Value{paramList}, parts[1:]...)...)
	return c.compileApplyLambda(dst, lambdaRest, inits, tail)
}

// compileApplyLambda compiles a lambda with the given (params...)+body form
// (as lambda's own argument list, i.e. without the leading "lambda" symbol)
// applied immediately to args.
func (c *Compiler) compileApplyLambda(dst *bytecode.Bytecode, lambdaRest value.Value, args []value.Value, tail bool) error {
	for _, a := range args {
		if err := c.compileExpr(dst, a, false); err != nil {
			return err
		}
		dst.Emit(bytecode.OpPushValue)
	}
	if err := c.compileLambda(dst, lambdaRest); err != nil {
		return err
	}
	return c.finishCall(dst, len(args), tail)
}

func (c *Compiler) compileCall(dst *bytecode.Bytecode, head value.Value, args []value.Value, tail bool) error {
	if sym, ok := head.Object().(*object.Symbol); ok {
		if !c.isLocal(sym.Name) {
			if op, ok := fastBinOps[sym.Name]; ok && len(args) == 2 {
				if err := c.compileExpr(dst, args[0], false); err != nil {
					return err
				}
				dst.Emit(bytecode.OpPushValue)
				if err := c.compileExpr(dst, args[1], false); err != nil {
					return err
				}
				dst.Emit(bytecode.OpPushValue)
				dst.Emit(op)
				return nil
			}
			if op, ok := fastUnOps[sym.Name]; ok && len(args) == 1 {
				if err := c.compileExpr(dst, args[0], false); err != nil {
					return err
				}
				dst.Emit(bytecode.OpPushValue)
				dst.Emit(op)
				return nil
			}
		}
	}

	for _, a := range args {
		if err := c.compileExpr(dst, a, false); err != nil {
			return err
		}
		dst.Emit(bytecode.OpPushValue)
	}
	if err := c.compileExpr(dst, head, false); err != nil {
		return err
	}
	return c.finishCall(dst, len(args), tail)
}

// finishCall expects the callee's value already in Val (just computed) and
// the argument values already pushed on the stack in evaluation order; it
// emits the ALLOCATE-FRAME/POP-FRAME/PRESERVE-STATE/FUNCTION-INVOKE (or
// FUNCTION-GOTO in tail position) sequence pkg/vm/dispatch_test.go's
// recursive-fibonacci example hand-assembles.
func (c *Compiler) finishCall(dst *bytecode.Bytecode, nargs int, tail bool) error {
	dst.Emit(bytecode.OpPushValue)
	dst.Emit(bytecode.OpPopFunction)
	dst.EmitVaruint(bytecode.OpAllocateFrame, uint64(nargs))
	for i := nargs - 1; i >= 0; i-- {
		dst.EmitVaruint(bytecode.OpPopFrame, uint64(i))
	}
	if tail {
		dst.Emit(bytecode.OpFunctionGoto)
		return nil
	}
	dst.Emit(bytecode.OpPreserveState)
	dst.Emit(bytecode.OpFunctionInvoke)
	dst.Emit(bytecode.OpRestoreState)
	return nil
}
