package lower

import (
	"fmt"

	"github.com/roach88/tinypy/internal/ir"
)

// ScopeID indexes a scope in a SymbolTable.
type ScopeID int

// NoScope is the parent of the root scope.
const NoScope ScopeID = -1

// SymbolTable maps source names to SSA values through a chain of scopes.
// Scopes live in an arena and refer to their parent by index.
//
// Bindings are append-only: assigning a name again adds a newer binding
// that shadows the older one, which stays valid for anything already
// referring to its value.
type SymbolTable struct {
	scopes []scope
}

type binding struct {
	name  string
	value *ir.Value
}

type scope struct {
	parent   ScopeID
	bindings []binding
}

// NewSymbolTable returns a table holding only the root scope.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{scopes: []scope{{parent: NoScope}}}
}

// Root returns the root scope.
func (st *SymbolTable) Root() ScopeID { return 0 }

// Child creates a new scope whose parent is s.
func (st *SymbolTable) Child(s ScopeID) ScopeID {
	st.scopes = append(st.scopes, scope{parent: s})
	return ScopeID(len(st.scopes) - 1)
}

// Parent returns the parent of s, or NoScope for the root.
func (st *SymbolTable) Parent(s ScopeID) ScopeID {
	return st.scopes[s].parent
}

// Define binds name in s. It fails if s already binds name.
func (st *SymbolTable) Define(s ScopeID, name string, v *ir.Value) error {
	if _, ok := st.local(s, name); ok {
		return fmt.Errorf("%q is already defined in this scope", name)
	}
	st.Bind(s, name, v)
	return nil
}

// Bind introduces a new binding of name in s, shadowing any visible one.
func (st *SymbolTable) Bind(s ScopeID, name string, v *ir.Value) {
	st.scopes[s].bindings = append(st.scopes[s].bindings, binding{name: name, value: v})
}

// Lookup returns the newest binding of name in s or its ancestors.
func (st *SymbolTable) Lookup(s ScopeID, name string) (*ir.Value, error) {
	for cur := s; cur != NoScope; cur = st.scopes[cur].parent {
		if v, ok := st.local(cur, name); ok {
			return v, nil
		}
	}
	return nil, unbound(name)
}

// Names returns the distinct names bound directly in s, in first-binding
// order.
func (st *SymbolTable) Names(s ScopeID) []string {
	seen := map[string]bool{}
	var out []string
	for _, b := range st.scopes[s].bindings {
		if !seen[b.name] {
			seen[b.name] = true
			out = append(out, b.name)
		}
	}
	return out
}

func (st *SymbolTable) local(s ScopeID, name string) (*ir.Value, bool) {
	bs := st.scopes[s].bindings
	for i := len(bs) - 1; i >= 0; i-- {
		if bs[i].name == name {
			return bs[i].value, true
		}
	}
	return nil, false
}
