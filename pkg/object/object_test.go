package object

import (
	"testing"

	"github.com/avl-labs/wisp/pkg/value"
)

func TestInternIsPointerEqual(t *testing.T) {
	a := Intern("car")
	b := Intern("car")
	if a != b {
		t.Errorf("Intern(car) not pointer-equal across calls")
	}
	av := value.Pointer(a)
	bv := value.Pointer(b)
	if !value.Eq(av, bv) {
		t.Errorf("interned symbols not Eq as values")
	}
}

func TestListRoundTrip(t *testing.T) {
	lst := List(value.Fixnum(1), value.Fixnum(2), value.Fixnum(3))
	got, ok := ToSlice(lst)
	if !ok || len(got) != 3 {
		t.Fatalf("ToSlice(List(1,2,3)) = %v, %v", got, ok)
	}
	for i, v := range got {
		n, _ := v.FixnumValue()
		if n != int64(i+1) {
			t.Errorf("element %d = %d, want %d", i, n, i+1)
		}
	}
}

func TestImproperListToSliceFails(t *testing.T) {
	improper := value.Pointer(&Pair{Head: value.Fixnum(1), Tail: value.Fixnum(2)})
	if _, ok := ToSlice(improper); ok {
		t.Errorf("ToSlice on improper list: want ok=false")
	}
}

func TestPairPrintDottedTail(t *testing.T) {
	p := &Pair{Head: value.Fixnum(1), Tail: value.Fixnum(2)}
	if got := p.String(); got != "(1 & 2)" {
		t.Errorf("improper pair print = %q, want (1 & 2)", got)
	}
}

func TestPairPrintQuoteSigil(t *testing.T) {
	quoted := &Pair{
		Head: value.Pointer(Intern("quote")),
		Tail: value.Pointer(&Pair{Head: value.Fixnum(5), Tail: value.Nil}),
	}
	if got := quoted.String(); got != "'5" {
		t.Errorf("quoted pair print = %q, want '5", got)
	}
}

func TestArrayPushPop(t *testing.T) {
	a := NewArray(0, value.Nil)
	a.Push(value.Fixnum(1))
	a.Push(value.Fixnum(2))
	if a.Used != 2 {
		t.Fatalf("Used = %d, want 2", a.Used)
	}
	v, ok := a.Pop()
	n, _ := v.FixnumValue()
	if !ok || n != 2 {
		t.Errorf("Pop = %v, %v, want 2 true", n, ok)
	}
	if a.Used != 1 {
		t.Errorf("Used after pop = %d, want 1", a.Used)
	}
}

func TestHashSetGetDelete(t *testing.T) {
	h := NewHash(nil, nil)
	key := value.Pointer(NewString("hello"))
	h.Set(key, value.Fixnum(42))
	got, ok := h.Get(value.Pointer(NewString("hello")))
	n, _ := got.FixnumValue()
	if !ok || n != 42 {
		t.Fatalf("Get(hello) = %v, %v, want 42 true", n, ok)
	}
	h.Delete(key)
	if _, ok := h.Get(key); ok {
		t.Errorf("Get after Delete: want ok=false")
	}
}

func TestHashGrows(t *testing.T) {
	h := NewHash(nil, nil)
	for i := 0; i < 100; i++ {
		h.Set(value.Fixnum(int64(i)), value.Fixnum(int64(i*i)))
	}
	if h.Size() != 100 {
		t.Fatalf("Size = %d, want 100", h.Size())
	}
	v, ok := h.Get(value.Fixnum(42))
	n, _ := v.FixnumValue()
	if !ok || n != 42*42 {
		t.Errorf("Get(42) = %v, want 1764", n)
	}
}

func TestStructTypeIsA(t *testing.T) {
	root := &StructType{Name: "^condition"}
	errType := &StructType{Name: "^error", Parent: root}
	divZero := &StructType{Name: "^rt-divide-by-zero-error", Parent: errType}

	if !divZero.IsA(root) {
		t.Errorf("divide-by-zero should be-a ^condition")
	}
	if divZero.IsA(&StructType{Name: "^i/o-error"}) {
		t.Errorf("divide-by-zero should not be-a unrelated type")
	}
}

func TestStructInstanceGetSet(t *testing.T) {
	st := &StructType{Name: "point", Fields: []string{"x", "y"}}
	inst := NewInstance(st)
	inst.Set("x", value.Fixnum(3))
	got, ok := inst.Get("x")
	n, _ := got.FixnumValue()
	if !ok || n != 3 {
		t.Fatalf("Get(x) = %v, %v", n, ok)
	}
	if _, ok := inst.Get("z"); ok {
		t.Errorf("Get(z) on undefined field: want ok=false")
	}
}

func TestContinuationCopyIsIndependent(t *testing.T) {
	c := &Continuation{Stack: []value.Value{value.Fixnum(1), value.Fixnum(2)}, PC: 10}
	copy1 := c.Copy()
	copy1.Stack[0] = value.Fixnum(99)
	orig, _ := c.Stack[0].FixnumValue()
	if orig != 1 {
		t.Errorf("mutating a copy mutated the original: %d", orig)
	}
}

func TestClosureMetadataQueryablePostFacto(t *testing.T) {
	c := &Closure{PC: 100}
	SetClosureName(c, "fib")
	meta := Metadata(c)
	if meta.Name != "fib" {
		t.Errorf("Metadata(c).Name = %q, want fib", meta.Name)
	}
}
