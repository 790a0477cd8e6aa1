package object

import (
	"fmt"

	"github.com/avl-labs/wisp/pkg/module"
	"github.com/avl-labs/wisp/pkg/value"
)

// Closure is a compiled function value: a code span plus the lexical
// context it closed over (spec.md §3.2 "closure: start PC, code length,
// captured frame, captured module/environment, optional call counters").
type Closure struct {
	PC      int64
	Len     int64
	Frame   *Frame
	Module  *module.Module
	CallCnt int64
	SigCI   int64 // gci of the parameter-signature constant (CREATE-CLOSURE's unsigned fixuint-4 field; no value is reserved for "absent")
	DocCI   int64 // gci of the docstring constant (CREATE-CLOSURE's unsigned fixuint-4 field; no value is reserved for "absent")
}

func (c *Closure) ObjType() value.ObjectType { return value.TClosure }

func (c *Closure) String() string {
	if meta, ok := closureMeta[c]; ok && meta.Name != "" {
		return fmt.Sprintf("#<closure %s>", meta.Name)
	}
	return fmt.Sprintf("#<closure@%d>", c.PC)
}

// ClosureMetadata is the out-of-band name/signature/docstring triple spec.md
// §9 describes as "external properties keyed by the closure object"; the
// VM updates Name on GLOBAL-SYM-SET so it is queryable post-facto even
// though the closure itself carries no name field.
type ClosureMetadata struct {
	Name   string
	SigStr string
	DocStr string
}

var closureMeta = map[*Closure]*ClosureMetadata{}

// SetClosureName records or updates c's queryable name (spec.md §4.6
// "GLOBAL-SYM-SET ... set closure metadata (name, sigstr, docstr) if the
// value is a closure").
func SetClosureName(c *Closure, name string) {
	meta, ok := closureMeta[c]
	if !ok {
		meta = &ClosureMetadata{}
		closureMeta[c] = meta
	}
	meta.Name = name
}

// Metadata returns c's metadata, or a zero value if none has been recorded.
func Metadata(c *Closure) ClosureMetadata {
	if meta, ok := closureMeta[c]; ok {
		return *meta
	}
	return ClosureMetadata{}
}

// Primitive is a VM-builtin callable (spec.md §3.2 "primitive: C function
// pointer, arity, varargs flag, name"). Fn receives the argument frame and
// returns a result or an error that the caller raises as a condition.
type Primitive struct {
	Name    string
	Arity   int
	Varargs bool
	Fn      func(args []value.Value) (value.Value, error)
}

func (p *Primitive) ObjType() value.ObjectType { return value.TPrimitive }
func (p *Primitive) String() string            { return fmt.Sprintf("#<primitive %s>", p.Name) }
