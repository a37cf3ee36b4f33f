package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blazify/blazify/internal/diag"
	"github.com/blazify/blazify/internal/token"
)

// lex is a small test helper: lex src and require success.
func lex(t *testing.T, src string) ([]token.Token, *token.Interner) {
	t.Helper()
	interner := token.NewInterner()
	toks, err := New(&diag.Source{File: "test.bz", Content: src}, interner).Lex()
	require.Nil(t, err, "unexpected lex error: %v", err)
	return toks, interner
}

// TestLexerSample tokenizes a short Blaze program and verifies the token
// kind sequence, grounded on the teacher's table-driven lexer test shape.
func TestLexerSample(t *testing.T) {
	toks, interner := lex(t, `val x = 1 + 2 * 3 ^ 2`)

	kinds := make([]token.Kind, 0, len(toks))
	for _, tk := range toks {
		kinds = append(kinds, tk.Kind)
	}
	require.Equal(t, []token.Kind{
		token.Keyword, token.Identifier, token.Equals, token.Int, token.Plus,
		token.Int, token.Star, token.Int, token.Caret, token.Int, token.EOF,
	}, kinds)
	require.Equal(t, "val", interner.Lookup(toks[0].Str))
	require.Equal(t, "x", interner.Lookup(toks[1].Str))
}

func TestLexerCompoundOperators(t *testing.T) {
	toks, _ := lex(t, `+= -= *= /= ^= == != <= >= => && ||`)
	want := []token.Kind{
		token.PlusEquals, token.MinusEquals, token.StarEquals, token.SlashEquals,
		token.CaretEquals, token.DoubleEquals, token.NotEquals, token.LessEquals,
		token.GreaterEquals, token.Arrow, token.And, token.Or, token.EOF,
	}
	got := make([]token.Kind, 0, len(toks))
	for _, tk := range toks {
		got = append(got, tk.Kind)
	}
	require.Equal(t, want, got)
}

func TestLexerMaximalMunchSingleForms(t *testing.T) {
	toks, _ := lex(t, `= < > ! + - * / ^`)
	want := []token.Kind{
		token.Equals, token.Less, token.Greater, token.Bang,
		token.Plus, token.Minus, token.Star, token.Slash, token.Caret, token.EOF,
	}
	got := make([]token.Kind, 0, len(toks))
	for _, tk := range toks {
		got = append(got, tk.Kind)
	}
	require.Equal(t, want, got)
}

func TestLexerStringEscapes(t *testing.T) {
	toks, interner := lex(t, `"a\nb\tc\\d\qe"`)
	require.Equal(t, token.StringLit, toks[0].Kind)
	require.Equal(t, "a\nb\tc\\dqe", interner.Lookup(toks[0].Str))
}

func TestLexerCharLiteral(t *testing.T) {
	toks, _ := lex(t, `'x'`)
	require.Equal(t, token.CharLit, toks[0].Kind)
	require.Equal(t, 'x', toks[0].Char)
}

func TestLexerUnterminatedCharLiteral(t *testing.T) {
	_, err := New(&diag.Source{File: "t.bz", Content: `'x`}, token.NewInterner()).Lex()
	require.NotNil(t, err)
	require.Equal(t, diag.LexError, err.Kind)
	require.Equal(t, "UnterminatedCharLiteral", err.Name)
}

func TestLexerIllegalCharacter(t *testing.T) {
	_, err := New(&diag.Source{File: "t.bz", Content: `val x = 1 # 2`}, token.NewInterner()).Lex()
	require.NotNil(t, err)
	require.Equal(t, "IllegalCharacter", err.Name)
}

func TestLexerExpectedSecondAmpersand(t *testing.T) {
	_, err := New(&diag.Source{File: "t.bz", Content: `a & b`}, token.NewInterner()).Lex()
	require.NotNil(t, err)
	require.Equal(t, "ExpectedSecond", err.Name)
}

func TestLexerNumberKinds(t *testing.T) {
	toks, _ := lex(t, `1 1.5 .5 5.`)
	require.Equal(t, token.Int, toks[0].Kind)
	require.Equal(t, int64(1), toks[0].Int)
	require.Equal(t, token.Float, toks[1].Kind)
	require.InDelta(t, 1.5, toks[1].Float, 1e-9)
	require.Equal(t, token.Float, toks[2].Kind)
	require.InDelta(t, 0.5, toks[2].Float, 1e-9)
	require.Equal(t, token.Float, toks[3].Kind)
	require.InDelta(t, 5.0, toks[3].Float, 1e-9)
}

func TestLexerComments(t *testing.T) {
	toks, _ := lex(t, "val x = 1 @ line comment\n@@ block\ncomment @@@\nval y = 2")
	kinds := make([]token.Kind, 0, len(toks))
	for _, tk := range toks {
		kinds = append(kinds, tk.Kind)
	}
	require.Equal(t, []token.Kind{
		token.Keyword, token.Identifier, token.Equals, token.Int, token.Newline, token.Newline,
		token.Keyword, token.Identifier, token.Equals, token.Int, token.EOF,
	}, kinds)
}

// TestLexerTotality is a fuzz-seeded property test for the "lexer totality"
// and "token span monotonicity" invariants of spec §8.
func TestLexerTotality(t *testing.T) {
	samples := []string{
		"", " ", "\n", "@@@", `"unterminated`, `'`, "val", "1.2.3", "& |",
		"fun f(a,b) => { return a+b }", "class K { var a = 0 }",
	}
	for _, s := range samples {
		interner := token.NewInterner()
		toks, err := New(&diag.Source{File: "t.bz", Content: s}, interner).Lex()
		if err != nil {
			require.GreaterOrEqual(t, err.Span.Start, 0)
			require.LessOrEqual(t, err.Span.End, len(s))
			continue
		}
		require.NotEmpty(t, toks)
		require.Equal(t, token.EOF, toks[len(toks)-1].Kind)
		for i := 1; i < len(toks); i++ {
			require.LessOrEqual(t, toks[i-1].Span.End, toks[i].Span.Start)
		}
	}
}
