package object

import (
	"fmt"
	"strings"

	"github.com/avl-labs/wisp/pkg/value"
)

// StructType is a named record type with a parent chain (spec.md §3.2
// "struct-type / struct-instance: named record types with parent chain").
// The condition-type hierarchy of spec.md §4.7/§7 is built from StructType
// values at VM init.
type StructType struct {
	Name   string
	Parent *StructType
	Fields []string
}

func (t *StructType) ObjType() value.ObjectType { return value.TStructType }
func (t *StructType) String() string            { return "#<struct-type " + t.Name + ">" }

// IsA reports whether t is other or descends from it, walking the parent
// chain (spec.md §4.7 "resolve ... check isa? against the raised
// condition").
func (t *StructType) IsA(other *StructType) bool {
	for cur := t; cur != nil; cur = cur.Parent {
		if cur == other {
			return true
		}
	}
	return false
}

// StructInstance carries a type pointer and field array (spec.md §3.2
// "instances carry type pointer + field array").
type StructInstance struct {
	Type   *StructType
	Fields []value.Value
}

func (s *StructInstance) ObjType() value.ObjectType { return value.TStructInstance }

func (s *StructInstance) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "#<%s", s.Type.Name)
	for i, f := range s.Fields {
		name := "?"
		if i < len(s.Type.Fields) {
			name = s.Type.Fields[i]
		}
		fmt.Fprintf(&b, " %s=%s", name, f.String())
	}
	b.WriteByte('>')
	return b.String()
}

// NewInstance allocates a zero-initialized instance of t.
func NewInstance(t *StructType) *StructInstance {
	fields := make([]value.Value, len(t.Fields))
	for i := range fields {
		fields[i] = value.Nil
	}
	return &StructInstance{Type: t, Fields: fields}
}

// Get returns the named field's value; ok is false if t has no such field.
func (s *StructInstance) Get(name string) (value.Value, bool) {
	for i, f := range s.Type.Fields {
		if f == name {
			return s.Fields[i], true
		}
	}
	return value.Value{}, false
}

// Set writes the named field's value; ok is false if t has no such field.
func (s *StructInstance) Set(name string, v value.Value) bool {
	for i, f := range s.Type.Fields {
		if f == name {
			s.Fields[i] = v
			return true
		}
	}
	return false
}
