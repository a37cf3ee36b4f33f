// Package lexer turns Blaze source text into a token stream, grounded on the
// rune-at-a-time scanning style of the teacher's frontend.lexer (itself based
// on Rob Pike's "Lexical Scanning in Go" talk), adapted from the teacher's
// goroutine/channel pump into a synchronous pull model: this core has no
// suspension points per spec §5, so there is nothing to overlap with.
package lexer

import (
	"fmt"
	"unicode/utf8"

	"github.com/blazify/blazify/internal/diag"
	"github.com/blazify/blazify/internal/token"
)

const eof = rune(0)

// Lexer scans one Source into a slice of Tokens.
type Lexer struct {
	src   *diag.Source
	input string
	pos   int // current byte offset
	start int // start byte offset of the token being scanned
	width int // width in bytes of the last rune returned by next

	interner *token.Interner
}

// New returns a Lexer over src, interning identifiers/strings/keywords into
// interner.
func New(src *diag.Source, interner *token.Interner) *Lexer {
	return &Lexer{src: src, input: src.Content, interner: interner}
}

// Lex scans the full token stream, returning a LexError diagnostic (spec
// §4.1) on the first illegal input.
func (l *Lexer) Lex() ([]token.Token, *diag.Diagnostic) {
	var toks []token.Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) span(start, end int) diag.Span {
	return diag.NewSpan(l.src, start, end)
}

func (l *Lexer) peekByte() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) peekByteAt(off int) byte {
	if l.pos+off >= len(l.input) {
		return 0
	}
	return l.input[l.pos+off]
}

func (l *Lexer) advanceRune() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += w
	return r
}

func (l *Lexer) backup() {
	l.pos -= l.width
}

// next scans and returns the next token starting at l.pos, skipping
// whitespace and comments first.
func (l *Lexer) next() (token.Token, *diag.Diagnostic) {
	l.skipIgnorable()
	l.start = l.pos

	if l.pos >= len(l.input) {
		return token.Token{Kind: token.EOF, Span: l.span(l.pos, l.pos)}, nil
	}

	r := l.advanceRune()

	switch {
	case r == '\n' || r == ';':
		return token.Token{Kind: token.Newline, Span: l.span(l.start, l.pos)}, nil
	case r == '"':
		return l.lexString()
	case r == '\'':
		return l.lexChar()
	case isDigit(r) || (r == '.' && isDigit(rune(l.peekByte()))):
		return l.lexNumber()
	case isAlpha(r):
		return l.lexWord()
	default:
		return l.lexOperator(r)
	}
}

// skipIgnorable discards spaces/tabs/CR and line/block comments. Newline and
// ';' are significant (they emit Newline tokens) so they are left alone.
func (l *Lexer) skipIgnorable() {
	for {
		switch l.peekByte() {
		case ' ', '\t', '\r':
			l.pos++
			continue
		case '@':
			if l.peekByteAt(1) == '@' {
				l.skipBlockComment()
				continue
			}
			l.skipLineComment()
			continue
		}
		return
	}
}

func (l *Lexer) skipLineComment() {
	for l.peekByte() != '\n' && l.pos < len(l.input) {
		l.pos++
	}
}

func (l *Lexer) skipBlockComment() {
	l.pos += 2 // consume "@@"
	for l.pos < len(l.input) {
		if l.peekByte() == '@' && l.peekByteAt(1) == '@' && l.peekByteAt(2) == '@' {
			l.pos += 3
			return
		}
		l.pos++
	}
}

func isAlpha(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func (l *Lexer) lexWord() (token.Token, *diag.Diagnostic) {
	for {
		r := l.advanceRune()
		if !isAlpha(r) && !isDigit(r) {
			if r != eof {
				l.backup()
			}
			break
		}
	}
	text := l.input[l.start:l.pos]
	sp := l.span(l.start, l.pos)

	switch text {
	case "true":
		return token.Token{Kind: token.BooleanLit, Span: sp, Bool: true}, nil
	case "false":
		return token.Token{Kind: token.BooleanLit, Span: sp, Bool: false}, nil
	}
	if token.Keywords[text] {
		return token.Token{Kind: token.Keyword, Span: sp, Str: l.interner.Intern(text)}, nil
	}
	return token.Token{Kind: token.Identifier, Span: sp, Str: l.interner.Intern(text)}, nil
}

func (l *Lexer) lexNumber() (token.Token, *diag.Diagnostic) {
	l.backup() // put back the first digit/dot so the scan loop is uniform
	isFloat := false
	for {
		r := l.advanceRune()
		switch {
		case isDigit(r):
			continue
		case r == '.' && !isFloat:
			isFloat = true
			continue
		default:
			if r != eof {
				l.backup()
			}
		}
		break
	}
	text := l.input[l.start:l.pos]
	sp := l.span(l.start, l.pos)
	if isFloat {
		f := parseFloatLoose(text)
		return token.Token{Kind: token.Float, Span: sp, Float: f}, nil
	}
	n := parseIntLoose(text)
	return token.Token{Kind: token.Int, Span: sp, Int: n}, nil
}

// parseIntLoose/parseFloatLoose never fail: the scan loop above only ever
// accepts digits and at most one '.', so they convert digit by digit without
// strconv. parseFloatLoose first pads the leading/trailing '.' forms spec
// §4.1 explicitly accepts (".5", "5.") with a '0'.
func parseIntLoose(s string) int64 {
	var n int64
	for _, c := range s {
		n = n*10 + int64(c-'0')
	}
	return n
}

func parseFloatLoose(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	if s[0] == '.' {
		s = "0" + s
	}
	if s[len(s)-1] == '.' {
		s = s + "0"
	}
	var whole, frac float64
	var fracDiv float64 = 1
	seenDot := false
	for _, c := range s {
		if c == '.' {
			seenDot = true
			continue
		}
		d := float64(c - '0')
		if !seenDot {
			whole = whole*10 + d
		} else {
			fracDiv *= 10
			frac = frac*10 + d
		}
	}
	return whole + frac/fracDiv
}

func (l *Lexer) lexString() (token.Token, *diag.Diagnostic) {
	var sb []byte
	for {
		if l.pos >= len(l.input) {
			return token.Token{}, diag.New(diag.LexError, l.span(l.start, l.pos), "UnterminatedString",
				"string literal is missing a closing '\"'")
		}
		r := l.advanceRune()
		if r == '"' {
			break
		}
		if r == '\\' {
			esc := l.advanceRune()
			switch esc {
			case 'n':
				sb = append(sb, '\n')
			case 't':
				sb = append(sb, '\t')
			default:
				sb = utf8.AppendRune(sb, esc)
			}
			continue
		}
		sb = utf8.AppendRune(sb, r)
	}
	sp := l.span(l.start, l.pos)
	return token.Token{Kind: token.StringLit, Span: sp, Str: l.interner.Intern(string(sb))}, nil
}

func (l *Lexer) lexChar() (token.Token, *diag.Diagnostic) {
	if l.pos >= len(l.input) {
		return token.Token{}, diag.New(diag.LexError, l.span(l.start, l.pos), "UnterminatedCharLiteral",
			"character literal is missing a closing \"'\"")
	}
	r := l.advanceRune()
	if l.peekByte() != '\'' {
		return token.Token{}, diag.New(diag.LexError, l.span(l.start, l.pos), "UnterminatedCharLiteral",
			"character literal must contain exactly one code point")
	}
	l.pos++ // consume closing quote
	return token.Token{Kind: token.CharLit, Span: l.span(l.start, l.pos), Char: r}, nil
}

func (l *Lexer) lexOperator(r rune) (token.Token, *diag.Diagnostic) {
	emit := func(k token.Kind) (token.Token, *diag.Diagnostic) {
		return token.Token{Kind: k, Span: l.span(l.start, l.pos)}, nil
	}
	eq := func() bool {
		if l.peekByte() == '=' {
			l.pos++
			return true
		}
		return false
	}

	switch r {
	case '+':
		if eq() {
			return emit(token.PlusEquals)
		}
		return emit(token.Plus)
	case '-':
		if eq() {
			return emit(token.MinusEquals)
		}
		return emit(token.Minus)
	case '*':
		if eq() {
			return emit(token.StarEquals)
		}
		return emit(token.Star)
	case '/':
		if eq() {
			return emit(token.SlashEquals)
		}
		return emit(token.Slash)
	case '^':
		if eq() {
			return emit(token.CaretEquals)
		}
		return emit(token.Caret)
	case '=':
		if l.peekByte() == '>' {
			l.pos++
			return emit(token.Arrow)
		}
		if eq() {
			return emit(token.DoubleEquals)
		}
		return emit(token.Equals)
	case '!':
		if eq() {
			return emit(token.NotEquals)
		}
		return emit(token.Bang)
	case '<':
		if eq() {
			return emit(token.LessEquals)
		}
		return emit(token.Less)
	case '>':
		if eq() {
			return emit(token.GreaterEquals)
		}
		return emit(token.Greater)
	case '&':
		if l.peekByte() == '&' {
			l.pos++
			return emit(token.And)
		}
		return token.Token{}, diag.New(diag.LexError, l.span(l.start, l.pos), "ExpectedSecond",
			"expected a second '&' to form '&&'")
	case '|':
		if l.peekByte() == '|' {
			l.pos++
			return emit(token.Or)
		}
		return token.Token{}, diag.New(diag.LexError, l.span(l.start, l.pos), "ExpectedSecond",
			"expected a second '|' to form '||'")
	case '(':
		return emit(token.LParen)
	case ')':
		return emit(token.RParen)
	case '{':
		return emit(token.LBrace)
	case '}':
		return emit(token.RBrace)
	case '[':
		return emit(token.LBracket)
	case ']':
		return emit(token.RBracket)
	case ',':
		return emit(token.Comma)
	case '.':
		return emit(token.Dot)
	case ':':
		return emit(token.Colon)
	default:
		return token.Token{}, diag.New(diag.LexError, l.span(l.start, l.pos), "IllegalCharacter",
			fmt.Sprintf("unexpected character %q", r))
	}
}
