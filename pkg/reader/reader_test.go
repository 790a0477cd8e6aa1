package reader

import (
	"testing"

	"github.com/avl-labs/wisp/pkg/object"
	"github.com/avl-labs/wisp/pkg/value"
)

func readOne(t *testing.T, src string) value.Value {
	t.Helper()
	r := New(src)
	v, ok, err := r.Read()
	if err != nil {
		t.Fatalf("Read(%q): %v", src, err)
	}
	if !ok {
		t.Fatalf("Read(%q): expected a datum, got none", src)
	}
	return v
}

func TestReadFixnum(t *testing.T) {
	v := readOne(t, "42")
	n, ok := v.FixnumValue()
	if !ok || n != 42 {
		t.Fatalf("expected fixnum 42, got %v", v)
	}
}

func TestReadNegativeFixnum(t *testing.T) {
	v := readOne(t, "-17")
	n, ok := v.FixnumValue()
	if !ok || n != -17 {
		t.Fatalf("expected fixnum -17, got %v", v)
	}
}

func TestReadSymbol(t *testing.T) {
	v := readOne(t, "foo-bar?")
	sym, ok := v.Object().(*object.Symbol)
	if !ok || sym.Name != "foo-bar?" {
		t.Fatalf("expected symbol foo-bar?, got %v", v)
	}
}

func TestReadString(t *testing.T) {
	v := readOne(t, `"hello\nworld"`)
	s, ok := v.Object().(*object.String)
	if !ok || string(s.Bytes) != "hello\nworld" {
		t.Fatalf("expected string hello\\nworld, got %v", v)
	}
}

func TestReadBooleanAndChar(t *testing.T) {
	if v := readOne(t, "#t"); v != value.True {
		t.Fatalf("expected #t, got %v", v)
	}
	if v := readOne(t, "#f"); v != value.False {
		t.Fatalf("expected #f, got %v", v)
	}
	v := readOne(t, `#\a`)
	r, ok := v.CharacterValue()
	if !ok || r != 'a' {
		t.Fatalf("expected character a, got %v", v)
	}
	v = readOne(t, `#\space`)
	r, ok = v.CharacterValue()
	if !ok || r != ' ' {
		t.Fatalf("expected character space, got %v", v)
	}
}

// TestReadProperList checks a plain s-expression list round-trips through
// object.Pair's own printer.
func TestReadProperList(t *testing.T) {
	v := readOne(t, "(1 2 3)")
	got := v.String()
	if got != "(1 2 3)" {
		t.Fatalf("expected (1 2 3), got %s", got)
	}
}

// TestReadDottedPair exercises the '&' dotted-tail reader syntax, which
// must produce exactly what object/pair.go's printList prints back out.
func TestReadDottedPair(t *testing.T) {
	v := readOne(t, "(1 2 & 3)")
	got := v.String()
	if got != "(1 2 & 3)" {
		t.Fatalf("expected (1 2 & 3), got %s", got)
	}
}

// TestReadQuoteSigils checks each of the four quote-family sigils expands
// to a pair headed by exactly the symbol name object.QuoteSigil expects, so
// the printer's sigil shorthand round-trips.
func TestReadQuoteSigils(t *testing.T) {
	cases := map[string]string{
		"'x":  "'x",
		"`x":  "`x",
		",x":  ",x",
		",@x": ",@x",
	}
	for src, want := range cases {
		v := readOne(t, src)
		if got := v.String(); got != want {
			t.Fatalf("Read(%q).String() = %s, want %s", src, got, want)
		}
	}
}

func TestReadVectorLiteral(t *testing.T) {
	v := readOne(t, "#(1 2 3)")
	arr, ok := v.Object().(*object.Array)
	if !ok || arr.Used != 3 {
		t.Fatalf("expected a 3-element array, got %v", v)
	}
	if got := v.String(); got != "#(1 2 3)" {
		t.Fatalf("expected #(1 2 3), got %s", got)
	}
}

func TestReadAllMultipleForms(t *testing.T) {
	r := New("1 2 3")
	vs, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(vs) != 3 {
		t.Fatalf("expected 3 forms, got %d", len(vs))
	}
}

func TestReadSkipsCommentsAndWhitespace(t *testing.T) {
	v := readOne(t, "  ; this is a comment\n  99 ; trailing\n")
	n, ok := v.FixnumValue()
	if !ok || n != 99 {
		t.Fatalf("expected fixnum 99, got %v", v)
	}
}

func TestReadNestedList(t *testing.T) {
	v := readOne(t, "(define (f x) (+ x 1))")
	if got := v.String(); got != "(define (f x) (+ x 1))" {
		t.Fatalf("expected (define (f x) (+ x 1)), got %s", got)
	}
}

func TestReadUnterminatedListErrors(t *testing.T) {
	r := New("(1 2")
	if _, _, err := r.Read(); err == nil {
		t.Fatal("expected an error for an unterminated list")
	}
}
