package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avl-labs/wisp/pkg/bytecode"
	"github.com/avl-labs/wisp/pkg/module"
	"github.com/avl-labs/wisp/pkg/reader"
	"github.com/avl-labs/wisp/pkg/vm"
)

// compileAndRun is the round-trip helper every test below shares: read src
// into s-expressions, compile them against a fresh module/globals pair, and
// drive a Thread to completion.
func compileAndRun(t *testing.T, src string) (value string) {
	t.Helper()
	forms, err := reader.New(src).ReadAll()
	require.NoError(t, err)

	bc := bytecode.New()
	env := module.New("test")
	g := module.NewGlobals()
	th := vm.New(bc, g, env)
	vm.RegisterBuiltins(th, env, g)

	c := New(env, g)
	start, err := c.CompileProgram(bc, forms)
	require.NoError(t, err)

	th.PC = start
	result, err := th.Run()
	require.NoError(t, err)
	return result.String()
}

func TestCompileArithmetic(t *testing.T) {
	require.Equal(t, "7", compileAndRun(t, "(+ 3 4)"))
	require.Equal(t, "6", compileAndRun(t, "(* 2 3)"))
	require.Equal(t, "-1", compileAndRun(t, "(- 3 4)"))
}

func TestCompileIfBranches(t *testing.T) {
	require.Equal(t, "yes", compileAndRun(t, `(if (< 1 2) (quote yes) (quote no))`))
	require.Equal(t, "no", compileAndRun(t, `(if (> 1 2) (quote yes) (quote no))`))
}

func TestCompileDefineAndGlobalRef(t *testing.T) {
	require.Equal(t, "5", compileAndRun(t, "(define x 5) x"))
}

func TestCompileSetBang(t *testing.T) {
	require.Equal(t, "9", compileAndRun(t, "(define x 1) (set! x 9) x"))
}

func TestCompileLambdaApplication(t *testing.T) {
	require.Equal(t, "3", compileAndRun(t, "((lambda (a b) (+ a b)) 1 2)"))
}

func TestCompileNamedFunctionDefine(t *testing.T) {
	require.Equal(t, "120", compileAndRun(t, `
		(define (fact n)
		  (if (< n 2) 1 (* n (fact (- n 1)))))
		(fact 5)`))
}

func TestCompileLet(t *testing.T) {
	require.Equal(t, "30", compileAndRun(t, "(let ((a 10) (b 20)) (+ a b))"))
}

func TestCompileAndOrShortCircuit(t *testing.T) {
	require.Equal(t, "#f", compileAndRun(t, "(and 1 #f 2)"))
	require.Equal(t, "2", compileAndRun(t, "(or #f 2 3)"))
}

func TestCompileCond(t *testing.T) {
	require.Equal(t, "middle", compileAndRun(t, `
		(cond
		  ((= 1 2) (quote first))
		  ((= 2 2) (quote middle))
		  (else (quote last)))`))
}

func TestCompileQuoteAndFastListOps(t *testing.T) {
	require.Equal(t, "(1 2 3)", compileAndRun(t, "(cons 1 (quote (2 3)))"))
	require.Equal(t, "1", compileAndRun(t, "(car (quote (1 2 3)))"))
	require.Equal(t, "#t", compileAndRun(t, "(null? (quote ()))"))
}

func TestCompileRecursiveClosureNonTail(t *testing.T) {
	require.Equal(t, "55", compileAndRun(t, `
		(define (fib n)
		  (if (< n 2) n (+ (fib (- n 1)) (fib (- n 2)))))
		(fib 10)`))
}

func TestCompileBuiltinPrimitiveCall(t *testing.T) {
	got := compileAndRun(t, `(sha256 "abc")`)
	require.Equal(t, `"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"`, got)
}
