package vm

import (
	"github.com/avl-labs/wisp/pkg/module"
	"github.com/avl-labs/wisp/pkg/object"
	"github.com/avl-labs/wisp/pkg/value"
)

// framePointer/asFrame and modulePointer/asModule round-trip the nil case
// through value.Nil, since neither *object.Frame nor *module.Module may be
// wrapped as a nil HeapObject and compared usefully afterward.

func framePointer(f *object.Frame) value.Value {
	if f == nil {
		return value.Nil
	}
	return value.Pointer(f)
}

func asFrame(v value.Value) *object.Frame {
	if v == value.Nil {
		return nil
	}
	f, ok := v.Object().(*object.Frame)
	if !ok {
		fatalf("expected frame on control stack, got %v", v)
	}
	return f
}

func modulePointer(m *module.Module) value.Value {
	if m == nil {
		return value.Nil
	}
	return value.Pointer(m)
}

func asModule(v value.Value) *module.Module {
	if v == value.Nil {
		return nil
	}
	m, ok := v.Object().(*module.Module)
	if !ok {
		fatalf("expected module on control stack, got %v", v)
	}
	return m
}

func asClosure(v value.Value) (*object.Closure, bool) {
	c, ok := v.Object().(*object.Closure)
	return c, ok
}

func asPrimitive(v value.Value) (*object.Primitive, bool) {
	p, ok := v.Object().(*object.Primitive)
	return p, ok
}

func asContinuation(v value.Value) (*object.Continuation, bool) {
	c, ok := v.Object().(*object.Continuation)
	return c, ok
}
