package object

import (
	"strings"

	"github.com/avl-labs/wisp/pkg/value"
)

// Array is a dense, ordered, growable vector (spec.md §3.2 "array: default
// value, used-size, allocated-size, element pointer table; dense,
// ordered"). Elems is grown geometrically; Used tracks the logical length
// and may be less than len(Elems).
type Array struct {
	Default value.Value
	Used    int
	Elems   []value.Value
}

func (a *Array) ObjType() value.ObjectType { return value.TArray }

func (a *Array) String() string {
	var b strings.Builder
	b.WriteString("#(")
	for i := 0; i < a.Used; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(a.Elems[i].String())
	}
	b.WriteByte(')')
	return b.String()
}

// NewArray allocates an array of length n, every slot initialized to def.
func NewArray(n int, def value.Value) *Array {
	a := &Array{Default: def, Used: n, Elems: make([]value.Value, n)}
	for i := range a.Elems {
		a.Elems[i] = def
	}
	return a
}

// Get returns the element at i; ok is false if i is out of range.
func (a *Array) Get(i int) (value.Value, bool) {
	if i < 0 || i >= a.Used {
		return value.Value{}, false
	}
	return a.Elems[i], true
}

// Set writes v at i; ok is false if i is out of range.
func (a *Array) Set(i int, v value.Value) bool {
	if i < 0 || i >= a.Used {
		return false
	}
	a.Elems[i] = v
	return true
}

// Push appends v, growing the backing slice as needed.
func (a *Array) Push(v value.Value) {
	if a.Used < len(a.Elems) {
		a.Elems[a.Used] = v
	} else {
		a.Elems = append(a.Elems, v)
	}
	a.Used++
}

// Pop removes and returns the last element; ok is false if the array is empty.
func (a *Array) Pop() (value.Value, bool) {
	if a.Used == 0 {
		return value.Value{}, false
	}
	a.Used--
	v := a.Elems[a.Used]
	a.Elems[a.Used] = a.Default
	return v, true
}
