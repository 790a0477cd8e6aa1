package object

import (
	"fmt"
	"strings"

	"github.com/avl-labs/wisp/pkg/value"
)

// Pair is a cons cell (spec.md §3.2 "pair: (head, tail)").
type Pair struct {
	Head value.Value
	Tail value.Value
}

func (p *Pair) ObjType() value.ObjectType { return value.TPair }

// maxPrintDepth bounds cycle detection in the printer (spec.md §9 "bounded
// by a configurable depth").
const maxPrintDepth = 100_000

func (p *Pair) String() string {
	if head, ok := p.Head.Object().(*Symbol); ok && p.Tail.IsPointer() {
		if tailPair, ok := p.Tail.Object().(*Pair); ok && tailPair.Tail.IsNil() {
			if sigil, ok := QuoteSigil(head.Name); ok {
				return sigil + tailPair.Head.String()
			}
		}
	}
	var b strings.Builder
	b.WriteByte('(')
	printList(&b, p, map[*Pair]bool{}, 0)
	b.WriteByte(')')
	return b.String()
}

// printList walks the spine of a (possibly improper or cyclic) list,
// writing "a b & rest" for improper tails (spec.md §4.2's fixed dotted-pair
// separator character '&') and "..." once a previously visited pair is seen
// again.
func printList(b *strings.Builder, p *Pair, seen map[*Pair]bool, depth int) {
	first := true
	for {
		if depth > maxPrintDepth || seen[p] {
			if !first {
				b.WriteByte(' ')
			}
			b.WriteString("...")
			return
		}
		seen[p] = true
		depth++
		if !first {
			b.WriteByte(' ')
		}
		first = false
		b.WriteString(p.Head.String())

		if p.Tail.IsNil() {
			return
		}
		if next, ok := p.Tail.Object().(*Pair); ok {
			p = next
			continue
		}
		fmt.Fprintf(b, " & %s", p.Tail.String())
		return
	}
}

// List builds a proper list from vs, right to left.
func List(vs ...value.Value) value.Value {
	out := value.Nil
	for i := len(vs) - 1; i >= 0; i-- {
		out = value.Pointer(&Pair{Head: vs[i], Tail: out})
	}
	return out
}

// ToSlice flattens a proper list into a slice; ok is false if the list is
// improper (a non-nil, non-pair tail is reached).
func ToSlice(v value.Value) (out []value.Value, ok bool) {
	for {
		if v.IsNil() {
			return out, true
		}
		pair, isPair := v.Object().(*Pair)
		if !v.IsPointer() || !isPair {
			return out, false
		}
		out = append(out, pair.Head)
		v = pair.Tail
	}
}

// Length returns the number of cons cells along v's spine, and whether the
// list is proper.
func Length(v value.Value) (n int, proper bool) {
	for {
		if v.IsNil() {
			return n, true
		}
		pair, isPair := v.Object().(*Pair)
		if !v.IsPointer() || !isPair {
			return n, false
		}
		n++
		v = pair.Tail
	}
}
