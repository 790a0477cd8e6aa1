// Package value implements the tagged-value model described in spec.md §3.1.
//
// A value is conceptually one machine word whose low 2 bits distinguish four
// families: pointer, fixnum, constant, placeholder. Go does not let a
// program alias an arbitrary pointer with an integer safely, so Value is
// represented as a small tagged struct instead of a raw word; the family
// tag, the packed immediate payload, and the heap reference are kept
// together so that Value remains a single comparable value — two Values
// compare == exactly when the word-level encoding they stand in for would
// have been bit-identical. That comparability is what backs the symbol
// interning and eq? invariants of spec.md §3.3.
//
// Heap objects (pair, array, hash, string, symbol, closure, ...) live in
// sibling packages (object, bignum, module, handle) and are referenced
// through the HeapObject interface so that this package never needs to
// import them — avoiding an import cycle, since those packages import
// Value to hold their own fields.
package value

import "fmt"

// Kind is the family tag of a Value: the low 2 bits of spec.md §3.1.
type Kind uint8

const (
	// KindPointer values reference a heap object.
	KindPointer Kind = iota
	// KindFixnum values carry a signed integer directly.
	KindFixnum
	// KindConstant values are one of a closed, build-time-known set:
	// singleton constants, reader tokens, intermediate opcodes, characters.
	KindConstant
	// KindPlaceholder is reserved (spec.md §3.1, family "11").
	KindPlaceholder
)

// ObjectType tags a heap object's concrete type (spec.md §3.2).
type ObjectType byte

const (
	TString ObjectType = iota
	TSubstring
	TSymbol
	TKeyword
	TPair
	TArray
	THash
	TClosure
	TPrimitive
	TBignum
	TModule
	TFrame
	THandle
	TStructType
	TStructInstance
	TThread
	TContinuation
)

func (t ObjectType) String() string {
	names := [...]string{
		"string", "substring", "symbol", "keyword", "pair", "array", "hash",
		"closure", "primitive", "bignum", "module", "frame", "handle",
		"struct-type", "struct-instance", "thread", "continuation",
	}
	if int(t) < len(names) {
		return names[t]
	}
	return "unknown"
}

// HeapObject is implemented by every heap-allocated type in the object,
// bignum, module, and handle packages. It exists purely to let this
// package reference those types without importing them.
type HeapObject interface {
	ObjType() ObjectType
}

// constCode enumerates the closed set of singleton constants (spec.md §3.1).
type constCode int64

const (
	constNil constCode = iota
	constUndef
	constUnspec
	constEOF
	constTrue
	constFalse
	constVoid
	constNaN
	constScopeToplevel
	constScopePredef
	constScopeLocal
	constScopeEnviron
	constScopeComputed
	constUnset // environ-variable "not set" default, distinct from Undef
)

// constKind distinguishes the 3-bit subdivision of KindConstant.
type constKind uint8

const (
	subSingleton constKind = iota
	subReaderToken
	subOpcode
	subCharacter
)

// Value is a single tagged value: one word in spec.md's model.
type Value struct {
	kind Kind
	sub  constKind
	n    int64
	obj  HeapObject
}

// Fixnum range: spec.md §3.3 "Fixnum range" invariant. 61 usable bits leaves
// room for the 3-bit subdivision used by constants sharing the same word
// layout conceptually; chosen so overflow detection in the arithmetic fast
// paths (spec.md §4.6 PRIMCALL2-ADD et al.) is cheap int64 math.
const (
	FixnumBits = 61
	FixnumMax  = int64(1)<<(FixnumBits-1) - 1
	FixnumMin  = -(int64(1) << (FixnumBits - 1))
)

// Fixnum constructs a fixnum value. It panics if n is out of FIXNUM range;
// callers on the overflow-prone arithmetic paths must range-check first and
// promote to bignum instead of calling this directly (spec.md §3.3).
func Fixnum(n int64) Value {
	if n < FixnumMin || n > FixnumMax {
		panic(fmt.Sprintf("value: fixnum out of range: %d", n))
	}
	return Value{kind: KindFixnum, n: n}
}

// IsFixnum reports whether v holds an immediate fixnum.
func (v Value) IsFixnum() bool { return v.kind == KindFixnum }

// FixnumValue returns the fixnum payload; ok is false if v is not a fixnum.
func (v Value) FixnumValue() (n int64, ok bool) {
	if v.kind != KindFixnum {
		return 0, false
	}
	return v.n, true
}

// Character constructs a character value from a rune.
func Character(r rune) Value {
	return Value{kind: KindConstant, sub: subCharacter, n: int64(r)}
}

// IsCharacter reports whether v holds a character.
func (v Value) IsCharacter() bool { return v.kind == KindConstant && v.sub == subCharacter }

// CharacterValue returns the rune payload; ok is false if v is not a character.
func (v Value) CharacterValue() (r rune, ok bool) {
	if !v.IsCharacter() {
		return 0, false
	}
	return rune(v.n), true
}

func singleton(c constCode) Value { return Value{kind: KindConstant, sub: subSingleton, n: int64(c)} }

var (
	Nil            = singleton(constNil)
	Undef          = singleton(constUndef)
	Unspec         = singleton(constUnspec)
	EOF            = singleton(constEOF)
	True           = singleton(constTrue)
	False          = singleton(constFalse)
	Void           = singleton(constVoid)
	NaN            = singleton(constNaN)
	ScopeToplevel  = singleton(constScopeToplevel)
	ScopePredef    = singleton(constScopePredef)
	ScopeLocal     = singleton(constScopeLocal)
	ScopeEnviron   = singleton(constScopeEnviron)
	ScopeComputed  = singleton(constScopeComputed)
	Unset          = singleton(constUnset)
)

// IsNil reports whether v is the empty-list/nil singleton.
func (v Value) IsNil() bool { return v == Nil }

// IsUndef reports whether v is the "unbound" sentinel.
func (v Value) IsUndef() bool { return v == Undef }

// IsFalse reports whether v is exactly #f — the only value that is
// "false" in conditional contexts (spec.md §4.6 JUMP-{TRUE,FALSE}).
func (v Value) IsFalse() bool { return v == False }

// IsTrue is the complement of IsFalse, matching the VM's "val != #f" test.
func (v Value) IsTrue() bool { return v != False }

// Bool converts a Go bool to the #t/#f singleton.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Pointer wraps a heap object as a Value.
func Pointer(obj HeapObject) Value {
	if obj == nil {
		return Nil
	}
	return Value{kind: KindPointer, obj: obj}
}

// IsPointer reports whether v references a heap object.
func (v Value) IsPointer() bool { return v.kind == KindPointer && v.obj != nil }

// Object returns the heap object referenced by v, or nil if v is not a pointer.
func (v Value) Object() HeapObject {
	if v.kind != KindPointer {
		return nil
	}
	return v.obj
}

// ObjectType returns the type tag of the referenced heap object, or false
// if v is not a pointer.
func (v Value) ObjectType() (ObjectType, bool) {
	if !v.IsPointer() {
		return 0, false
	}
	return v.obj.ObjType(), true
}

// Eq implements pointer-equality style eq?: immediates compare by value,
// heap references compare by identity (spec.md §3.3 symbol interning
// invariant, generalized to all heap objects).
func Eq(a, b Value) bool { return a == b }

// IntermediateOpcode constructs a reader-time "intermediate opcode" marker
// value distinct from singleton constants (spec.md §3.1's third
// subdivision); used by the expander/operator machinery.
func IntermediateOpcode(code int64) Value {
	return Value{kind: KindConstant, sub: subOpcode, n: code}
}

// ReaderToken constructs a reader-token marker value (spec.md §3.1's
// second subdivision); pkg/vm uses these as its stack markers, and
// pkg/reader does not use them.
func ReaderToken(code int64) Value {
	return Value{kind: KindConstant, sub: subReaderToken, n: code}
}

// String renders v for debugging; full printer semantics (quote sigils,
// dotted-pair separators, cyclic detection) live with the object types
// that know how to print themselves (spec.md §4.2, §9).
func (v Value) String() string {
	switch v.kind {
	case KindFixnum:
		return fmt.Sprintf("%d", v.n)
	case KindConstant:
		switch v.sub {
		case subCharacter:
			return fmt.Sprintf("#\\%c", rune(v.n))
		case subSingleton:
			switch constCode(v.n) {
			case constNil:
				return "nil"
			case constUndef:
				return "#<undef>"
			case constUnspec:
				return "#<unspec>"
			case constEOF:
				return "#<eof>"
			case constTrue:
				return "#t"
			case constFalse:
				return "#f"
			case constVoid:
				return "#<void>"
			case constNaN:
				return "#<NaN>"
			case constUnset:
				return "#<unset>"
			default:
				return "#<scope-marker>"
			}
		default:
			return fmt.Sprintf("#<marker %d/%d>", v.sub, v.n)
		}
	case KindPointer:
		if v.obj == nil {
			return "nil"
		}
		if s, ok := v.obj.(fmt.Stringer); ok {
			return s.String()
		}
		return fmt.Sprintf("#<%s>", v.obj.ObjType())
	default:
		return "#<placeholder>"
	}
}
