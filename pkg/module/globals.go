package module

import "github.com/avl-labs/wisp/pkg/value"

// Globals holds the three process-wide tables of spec.md §3.5: the
// constants array (gci-indexed), the values array (gvi-indexed, slot 0
// reserved), and the symbol-name -> gci intern map used when merging a
// freshly loaded module's constants.
//
// Symbols are addressed by their interned name string rather than by
// *object.Symbol to keep this package independent of pkg/object (see the
// package doc comment in module.go).
type Globals struct {
	Constants []value.Value
	Values    []value.Value
	symbolGCI map[string]int64
}

// NewGlobals creates a fresh global table set with the reserved gvi 0 slot
// already allocated (spec.md §3.5 "Index 0 is a reserved sentinel").
func NewGlobals() *Globals {
	return &Globals{
		Values:    []value.Value{value.Undef},
		symbolGCI: map[string]int64{},
	}
}

// InternConstant returns the gci for v, appending a fresh slot if v has not
// been seen before (spec.md §3.5 "Pure append-only during a session").
// Symbol-name deduplication lets repeated symbol literals across modules
// share one gci, as real compiled output would.
func (g *Globals) InternConstant(name string, v value.Value) int64 {
	if gci, ok := g.symbolGCI[name]; ok {
		return gci
	}
	gci := int64(len(g.Constants))
	g.Constants = append(g.Constants, v)
	g.symbolGCI[name] = gci
	return gci
}

// AppendConstant appends v unconditionally and returns its gci, for
// non-symbol literals which are never deduplicated.
func (g *Globals) AppendConstant(v value.Value) int64 {
	gci := int64(len(g.Constants))
	g.Constants = append(g.Constants, v)
	return gci
}

// AllocateValue reserves a fresh gvi initialized to v.
func (g *Globals) AllocateValue(v value.Value) int64 {
	gvi := int64(len(g.Values))
	g.Values = append(g.Values, v)
	return gvi
}

// GetOrCreateVVI implements spec.md §4.4's "get-or-create-vvi(mci)":
//  1. return the cached gvi if m's vvi already holds mci,
//  2. otherwise look up symbolName (which the caller has already resolved
//     from mci via m's vci; this function does not read m.VCI) in m,
//  3. if m has no binding, search imports,
//  4. otherwise allocate a new gvi, initialize it to the symbol's own
//     value (self-value), and cache the binding as toplevel — supporting
//     shell-style dispatch of unbound names as external commands.
func (g *Globals) GetOrCreateVVI(m *Module, mci int64, symbolName string, selfValue value.Value) int64 {
	if gvi, ok := m.VVI[mci]; ok {
		return gvi
	}
	if b, _, ok := m.FindSymbolRecurse(symbolName, false); ok {
		m.VVI[mci] = b.GVI
		return b.GVI
	}
	if b, _, ok := m.FindSymbolRecurse(symbolName, true); ok {
		m.VVI[mci] = b.GVI
		return b.GVI
	}
	gvi := g.AllocateValue(selfValue)
	m.Symbols[symbolName] = &Binding{Scope: ScopeToplevel, MCI: mci, GVI: gvi, DefiningMod: m.Name}
	m.VVI[mci] = gvi
	return gvi
}

// LoadConstants merges a freshly loaded module's own constants array into
// the global table, backfilling vci with the assigned gci values (spec.md
// §6.4 "On load, the host merges the constants into the global constants
// array, backfilling vci with freshly assigned gci").
func (g *Globals) LoadConstants(m *Module, moduleConstants []value.Value, symbolNames map[int64]string) {
	for mci, v := range moduleConstants {
		if name, isSymbol := symbolNames[int64(mci)]; isSymbol {
			m.VCI[int64(mci)] = g.InternConstant(name, v)
			continue
		}
		m.VCI[int64(mci)] = g.AppendConstant(v)
	}
}
