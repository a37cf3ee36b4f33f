package bytecode

import "github.com/blazify/blazify/internal/token"

// SymbolTable assigns dense, compiler-wide 16-bit indices to interned
// identifiers, separate from internal/token's lexical Interner: token.
// Interner exists for the lifetime of one lex/parse, while a SymbolTable is
// rebuilt fresh for every Compile call and its indices are what the VM's
// scope frames key on (spec §4.4). Index 0 is reserved and never handed out.
type SymbolTable struct {
	ids map[token.SymbolID]SymIdx
	rev []token.SymbolID
}

// NewSymbolTable returns an empty table with index 0 reserved.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{ids: make(map[token.SymbolID]SymIdx), rev: []token.SymbolID{0}}
}

// Index returns the symbol index for name, allocating a fresh one if name
// has not been interned into this table before.
func (st *SymbolTable) Index(name token.SymbolID) SymIdx {
	if idx, ok := st.ids[name]; ok {
		return idx
	}
	idx := SymIdx(len(st.rev))
	st.rev = append(st.rev, name)
	st.ids[name] = idx
	return idx
}

// Name returns the interned identifier at idx, or the zero SymbolID if idx
// is out of range.
func (st *SymbolTable) Name(idx SymIdx) token.SymbolID {
	if int(idx) < 0 || int(idx) >= len(st.rev) {
		return 0
	}
	return st.rev[idx]
}

// names resolves every allocated index in st back to its source-text
// identifier via in, producing the map<u16,string> form spec §6 places on
// the wire alongside the constant pool and instructions.
func (st *SymbolTable) names(in *token.Interner) map[SymIdx]string {
	out := make(map[SymIdx]string, len(st.rev)-1)
	for idx := 1; idx < len(st.rev); idx++ {
		out[SymIdx(idx)] = in.Lookup(st.rev[idx])
	}
	return out
}
