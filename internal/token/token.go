// Package token defines the lexical token kinds of Blaze and the string
// interner shared by the lexer and parser, grounded on the tagged-item shape
// of the teacher's frontend.lexer item type.
package token

import "github.com/blazify/blazify/internal/diag"

// Kind discriminates the sum type described by spec §3 "Token". Payload
// data that doesn't fit in the tag (numbers, interned strings, identifiers)
// lives alongside the Kind in Token.
type Kind int

const (
	EOF Kind = iota
	Newline

	Int
	Float
	StringLit
	CharLit
	BooleanLit
	Identifier
	Keyword

	Plus
	PlusEquals
	Minus
	MinusEquals
	Star
	StarEquals
	Slash
	SlashEquals
	Caret
	CaretEquals

	Equals
	DoubleEquals
	NotEquals
	Bang
	Less
	LessEquals
	Greater
	GreaterEquals
	Arrow // =>
	And   // &&
	Or    // ||

	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Dot
	Colon
)

var names = map[Kind]string{
	EOF:          "EOF",
	Newline:      "Newline",
	Int:          "Int",
	Float:        "Float",
	StringLit:    "String",
	CharLit:      "Char",
	BooleanLit:   "Boolean",
	Identifier:   "Identifier",
	Keyword:      "Keyword",
	Plus:         "+",
	PlusEquals:   "+=",
	Minus:        "-",
	MinusEquals:  "-=",
	Star:         "*",
	StarEquals:   "*=",
	Slash:        "/",
	SlashEquals:  "/=",
	Caret:        "^",
	CaretEquals:  "^=",
	Equals:       "=",
	DoubleEquals: "==",
	NotEquals:    "!=",
	Bang:         "!",
	Less:         "<",
	LessEquals:   "<=",
	Greater:      ">",
	GreaterEquals: ">=",
	Arrow:        "=>",
	And:          "&&",
	Or:           "||",
	LParen:       "(",
	RParen:       ")",
	LBrace:       "{",
	RBrace:       "}",
	LBracket:     "[",
	RBracket:     "]",
	Comma:        ",",
	Dot:          ".",
	Colon:        ":",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return "?"
}

// Keywords is the closed keyword set of spec §3.
var Keywords = map[string]bool{
	"val": true, "var": true, "and": true, "or": true, "not": true,
	"if": true, "else": true, "for": true, "to": true, "step": true,
	"while": true, "fun": true, "return": true, "class": true, "new": true,
	"extern": true, "soul": true, "static": true, "void": true,
	"int": true, "float": true, "bool": true, "string": true, "char": true,
}

// SymbolID is an interned identifier/string/keyword handle, handed out by an
// Interner. Two equal strings interned by the same Interner always yield the
// same SymbolID.
type SymbolID int

// Interner assigns dense integer ids to strings, grounded on the teacher's
// package-global ir.Strings table but kept as an instance so that multiple
// lexer runs never share state (REDESIGN FLAG in spec §9).
type Interner struct {
	ids   map[string]SymbolID
	names []string
}

// NewInterner returns an empty Interner. Index 0 is never handed out as a
// real symbol, mirroring the bytecode compiler's reserved symbol index 0
// (spec §4.4).
func NewInterner() *Interner {
	return &Interner{ids: make(map[string]SymbolID), names: []string{""}}
}

// Intern returns the SymbolID for s, allocating a fresh one if s has not
// been seen before.
func (in *Interner) Intern(s string) SymbolID {
	if id, ok := in.ids[s]; ok {
		return id
	}
	id := SymbolID(len(in.names))
	in.names = append(in.names, s)
	in.ids[s] = id
	return id
}

// Lookup returns the string interned under id.
func (in *Interner) Lookup(id SymbolID) string {
	if int(id) < 0 || int(id) >= len(in.names) {
		return ""
	}
	return in.names[id]
}

// Token is the lexer's output unit: a Kind tag, a byte Span, and whichever
// payload Kind needs.
type Token struct {
	Kind  Kind
	Span  diag.Span
	Int   int64     // Kind == Int
	Float float64   // Kind == Float
	Str   SymbolID  // Kind == StringLit, Identifier, Keyword
	Char  rune      // Kind == CharLit
	Bool  bool      // Kind == BooleanLit
}
