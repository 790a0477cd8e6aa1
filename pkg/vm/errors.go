// Package vm - error handling with condition-kind tagging
package vm

import "fmt"

// StackFrame is one entry of a captured Go-level diagnostic trace,
// generalized from the teacher's Name/Selector/IP/SourceLine/SourceCol
// shape to the closure-name-plus-PC pair this dispatch loop has
// available. Control flow never inspects these; they exist purely for
// %vm-dasm-style debugging output (condition structs, not Go errors, are
// what user code observes and traps).
type StackFrame struct {
	Name string
	PC   int64
}

// kindError is the error value primitives return when they want a
// specific condition kind raised (e.g. ^rt-divide-by-zero-error) rather
// than the generic ^rt-function-error every other Go error collapses to.
type kindError struct {
	kind *conditionKind
	msg  string
}

func (e *kindError) Error() string { return e.msg }

// raiseKind wraps msg as a kindError of kind k, for primitives.go to
// return from a Primitive.Fn without needing access to a *Thread.
func raiseKind(k *conditionKind, format string, args ...interface{}) error {
	return &kindError{kind: k, msg: fmt.Sprintf(format, args...)}
}

// RaiseErrorf builds a struct instance of the named condition kind with a
// "message" field and raises it as non-continuable (spec.md §7's runtime
// error kinds are all fatal-unless-trapped; a handler that returns
// normally rather than escaping via a continuation is treated as not
// having handled it, matching the common Lisp "returning from an error
// handler re-signals" convention).
func (t *Thread) RaiseErrorf(k *conditionKind, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	inst := newCondition(k, msg)
	t.Raise(inst, false)
}

// raiseFromError maps a Go error returned by a primitive to a specific
// condition kind when the error was constructed via raiseKind, defaulting
// to ^rt-function-error otherwise.
func (t *Thread) raiseFromError(err error) {
	if ce, ok := err.(*kindError); ok {
		t.RaiseErrorf(ce.kind, "%s", ce.msg)
		return
	}
	t.RaiseErrorf(condFunctionError, "%s", err.Error())
}
