package module

import "testing"

import "github.com/avl-labs/wisp/pkg/value"

func TestFindSymbolRecurseOwnModule(t *testing.T) {
	m := New("main")
	m.Symbols["x"] = &Binding{Scope: ScopeToplevel, GVI: 1}
	b, owner, ok := m.FindSymbolRecurse("x", true)
	if !ok || owner != m || b.GVI != 1 {
		t.Fatalf("FindSymbolRecurse(x) = %v, %v, %v", b, owner, ok)
	}
}

func TestFindSymbolRecurseImportRequiresExport(t *testing.T) {
	base := New("base")
	base.Symbols["car"] = &Binding{Scope: ScopePredef, GVI: 5}
	m := New("main")
	m.Import(base)

	if _, _, ok := m.FindSymbolRecurse("car", true); ok {
		t.Fatalf("FindSymbolRecurse(car) found unexported symbol")
	}
	base.Export("car")
	if b, owner, ok := m.FindSymbolRecurse("car", true); !ok || owner != base || b.GVI != 5 {
		t.Fatalf("FindSymbolRecurse(car) after export = %v, %v, %v", b, owner, ok)
	}
}

func TestFindSymbolRecurseNoRecurse(t *testing.T) {
	base := New("base")
	base.Symbols["car"] = &Binding{Scope: ScopePredef}
	base.Export("car")
	m := New("main")
	m.Import(base)
	if _, _, ok := m.FindSymbolRecurse("car", false); ok {
		t.Fatalf("FindSymbolRecurse without recurse should not search imports")
	}
}

func TestGetOrCreateVVISelfValueFallback(t *testing.T) {
	g := NewGlobals()
	m := New("main")
	self := value.Fixnum(99)
	gvi := g.GetOrCreateVVI(m, 0, "ls", self)
	if g.Values[gvi] != self {
		t.Errorf("self-value fallback: got %v, want %v", g.Values[gvi], self)
	}
	b, ok := m.Symbols["ls"]
	if !ok || b.Scope != ScopeToplevel {
		t.Errorf("expected cached toplevel binding for self-value fallback, got %v ok=%v", b, ok)
	}
	// Second call is memoized via vvi.
	gvi2 := g.GetOrCreateVVI(m, 0, "ls", self)
	if gvi2 != gvi {
		t.Errorf("GetOrCreateVVI not memoized: %d != %d", gvi2, gvi)
	}
}

func TestGlobalsReservedSlotZero(t *testing.T) {
	g := NewGlobals()
	if len(g.Values) != 1 {
		t.Fatalf("expected one reserved value slot, got %d", len(g.Values))
	}
	if g.Values[0] != value.Undef {
		t.Errorf("reserved slot 0 = %v, want Undef", g.Values[0])
	}
}

func TestInternConstantDeduplicatesSymbols(t *testing.T) {
	g := NewGlobals()
	a := g.InternConstant("foo", value.Fixnum(1))
	b := g.InternConstant("foo", value.Fixnum(1))
	if a != b {
		t.Errorf("InternConstant(foo) not deduplicated: %d != %d", a, b)
	}
}
