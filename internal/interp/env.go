package interp

// binding is a name's slot: its current value plus whether var let it be
// reassigned (mirrors bytecode.Symbol's {Value, Mutable} pair, spec §4.5).
type binding struct {
	value   Value
	mutable bool
}

// Env is a chain of lexical scopes, parented the way a Func's closure
// captures its defining environment.
type Env struct {
	vars   map[string]*binding
	parent *Env
}

func NewEnv(parent *Env) *Env {
	return &Env{vars: make(map[string]*binding), parent: parent}
}

func (e *Env) bind(name string, v Value, mutable bool) {
	e.vars[name] = &binding{value: v, mutable: mutable}
}

func (e *Env) lookup(name string) (*binding, bool) {
	for s := e; s != nil; s = s.parent {
		if b, ok := s.vars[name]; ok {
			return b, true
		}
	}
	return nil, false
}
