// Package module implements the module/binding tables described in
// spec.md §3.5 and §4.4: three global tables (constants, values, and each
// module's mci→gci/mci→gvi maps) plus per-module symbol binding records.
//
// Symbols are keyed here by their interned name (a string) rather than by
// *object.Symbol, so that this package never needs to import pkg/object —
// pkg/object's Closure type captures a *module.Module, so the dependency
// only runs one way.
package module

import "github.com/avl-labs/wisp/pkg/value"

// Scope is one of the binding-record scope markers (spec.md §4.4).
type Scope int

const (
	ScopeToplevel Scope = iota
	ScopePredef
	ScopeEnviron
	ScopeComputed
)

// Binding is the 5-tuple (scope-marker, mci, gvi, defining-module,
// description-string) of spec.md §4.4.
type Binding struct {
	Scope       Scope
	MCI         int64
	GVI         int64
	DefiningMod string
	Description string
}

// Module owns exports, imports, a symbol table, and the per-module
// mci→gci/mci→gvi maps (spec.md §4.4).
type Module struct {
	Name    string
	Exports map[string]bool
	Imports []*Module
	Symbols map[string]*Binding
	VCI     map[int64]int64 // mci -> gci
	VVI     map[int64]int64 // mci -> gvi
}

func (m *Module) ObjType() value.ObjectType { return value.TModule }
func (m *Module) String() string            { return "#<module " + m.Name + ">" }

// New creates an empty module.
func New(name string) *Module {
	return &Module{
		Name:    name,
		Exports: map[string]bool{},
		Symbols: map[string]*Binding{},
		VCI:     map[int64]int64{},
		VVI:     map[int64]int64{},
	}
}

// Export marks name as exported from m.
func (m *Module) Export(name string) { m.Exports[name] = true }

// Import appends dep to m's import list.
func (m *Module) Import(dep *Module) { m.Imports = append(m.Imports, dep) }

// FindSymbolRecurse implements spec.md §4.4's "find-symbol-recurse"
// lookup contract: search m's own symbols first, then (if recurse) each
// import in order, first hit wins. It never implicitly searches any module
// outside m.Imports.
func (m *Module) FindSymbolRecurse(name string, recurse bool) (*Binding, *Module, bool) {
	if b, ok := m.Symbols[name]; ok {
		return b, m, true
	}
	if !recurse {
		return nil, nil, false
	}
	for _, imp := range m.Imports {
		if b, owner, ok := imp.FindSymbolRecurse(name, true); ok && imp.Exports[name] {
			return b, owner, true
		}
	}
	return nil, nil, false
}
