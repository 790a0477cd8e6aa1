// Package object implements the heap object types described in spec.md §3.2:
// strings, symbols, keywords, pairs, arrays, hashes, closures, primitives,
// structs, frames, and continuations. Each type implements
// value.HeapObject so it can be wrapped in a value.Value via value.Pointer.
package object

import (
	"strings"

	"github.com/avl-labs/wisp/pkg/value"
)

// String is a heap-allocated byte string (spec.md §3.2 "string / substring").
type String struct {
	Bytes []byte
}

func (s *String) ObjType() value.ObjectType { return value.TString }
func (s *String) String() string            { return escapeStringLiteral(string(s.Bytes)) }

// NewString copies s into a fresh String object.
func NewString(s string) *String {
	return &String{Bytes: []byte(s)}
}

// Substring is a weak view into a parent String: it holds a strong
// back-reference to the parent (keeping it alive) and a byte range into it
// (spec.md §3.2 "substring holds a strong back-reference to its parent
// string"). "Weak" in spec.md's invariant sense means the reverse direction
// — the parent never references its substrings — not that this reference is
// itself weak.
type Substring struct {
	Parent *String
	Start  int
	End    int
}

func (s *Substring) ObjType() value.ObjectType { return value.TSubstring }
func (s *Substring) String() string            { return escapeStringLiteral(string(s.Bytes())) }

// Bytes returns the substring's own byte range.
func (s *Substring) Bytes() []byte { return s.Parent.Bytes[s.Start:s.End] }

// Symbol is an interned identifier; equality is pointer-equality (spec.md
// §3.3 "Symbol interning"). The intern table is process-wide and
// lazily-initialized (spec.md §9 "Global mutable state"); the VM's
// single-threaded execution model (spec.md §5) means no lock is required
// around interning, and none is taken: the table is a plain map, also
// written during module loading.
type Symbol struct {
	Name string
}

func (s *Symbol) ObjType() value.ObjectType { return value.TSymbol }
func (s *Symbol) String() string            { return s.Name }

var internTable = map[string]*Symbol{}

// Intern returns the unique *Symbol for name, creating it on first sight.
// Repeated calls with equal name return the identical pointer (spec.md §8
// "Symbol interning" testable property).
func Intern(name string) *Symbol {
	if sym, ok := internTable[name]; ok {
		return sym
	}
	sym := &Symbol{Name: name}
	internTable[name] = sym
	return sym
}

// Keyword is printed with a leading colon but otherwise behaves like Symbol
// (spec.md §3.2 "keyword: like symbol, printed with a leading colon").
type Keyword struct {
	Name string
}

func (k *Keyword) ObjType() value.ObjectType { return value.TKeyword }
func (k *Keyword) String() string            { return ":" + k.Name }

var keywordTable = map[string]*Keyword{}

// InternKeyword is Intern's keyword counterpart.
func InternKeyword(name string) *Keyword {
	if kw, ok := keywordTable[name]; ok {
		return kw
	}
	kw := &Keyword{Name: name}
	keywordTable[name] = kw
	return kw
}

// QuoteSigil maps the four reader-facing forms to their printed sigil
// (spec.md §4.2 "the pair printer recognizes the four reader-facing forms
// ... and prints using their sigils").
func QuoteSigil(head string) (sigil string, ok bool) {
	switch head {
	case "quote":
		return "'", true
	case "quasiquote":
		return "`", true
	case "unquote":
		return ",", true
	case "unquote-splicing":
		return ",@", true
	}
	return "", false
}

func escapeStringLiteral(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
