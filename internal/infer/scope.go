package infer

import (
	"github.com/blazify/blazify/internal/token"
	"github.com/blazify/blazify/internal/types"
)

// scope is a chain of binding frames, one per lexical block, grounded on the
// same nested-environment idea the teacher's VM uses for lexical frames
// (ir/lir scopes), specialized here to carry inferred types instead of
// runtime values.
type scope struct {
	parent *scope
	vars   map[token.SymbolID]types.Type
	// fnReturn is the type variable standing for the nearest enclosing
	// function's return type, used by Return constraints. nil at top level.
	fnReturn *types.Type
}

func newScope(parent *scope) *scope {
	fr := parent.currentFnReturn()
	return &scope{parent: parent, vars: make(map[token.SymbolID]types.Type), fnReturn: fr}
}

func newRootScope() *scope {
	return &scope{vars: make(map[token.SymbolID]types.Type)}
}

func (s *scope) currentFnReturn() *types.Type {
	if s == nil {
		return nil
	}
	return s.fnReturn
}

func (s *scope) bind(name token.SymbolID, t types.Type) {
	s.vars[name] = t
}

func (s *scope) lookup(name token.SymbolID) (types.Type, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if t, ok := cur.vars[name]; ok {
			return t, true
		}
	}
	return types.Type{}, false
}
