// Package reader implements the s-expression reader: turning program text
// directly into value.Values (pairs, symbols, strings, numbers, vectors)
// without an intermediate AST package, for pkg/compiler to walk.
//
// Grounded on the teacher's pkg/lexer (a hand-rolled byte scanner with
// input/position/readPosition/ch/line/column fields, New/readChar/peekChar/
// NextToken) reworked from smog's Smalltalk token set to the s-expression
// grammar spec.md's reader/compiler pair needs, and retargeted so the
// grammar round-trips with pkg/object's existing printers: '&' is the
// dotted-pair tail separator (object/pair.go's printList), ', `, ,, ,@ expand
// to symbol-headed pairs using the exact names object.QuoteSigil expects,
// and #( opens a vector literal matching Array.String()'s "#(...)" output.
package reader

import (
	"fmt"
	"strings"

	"github.com/avl-labs/wisp/pkg/bignum"
	"github.com/avl-labs/wisp/pkg/object"
	"github.com/avl-labs/wisp/pkg/value"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokLParen
	tokRParen
	tokDot // the '&' dotted-tail marker
	tokQuote
	tokQuasiquote
	tokUnquote
	tokUnquoteSplicing
	tokHashLParen
	tokString
	tokChar
	tokBool
	tokAtom // number-or-symbol, disambiguated by the parser
	tokIllegal
)

type token struct {
	typ     tokenType
	literal string
	line    int
	column  int
}

// lexer is the byte scanner, shaped like the teacher's: a single lookahead
// byte (ch) plus position/readPosition, advanced by readChar.
type lexer struct {
	input        string
	position     int
	readPosition int
	ch           byte
	line, column int
}

func newLexer(input string) *lexer {
	l := &lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
	l.position = l.readPosition
	l.readPosition++
}

func (l *lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func isDelimiter(ch byte) bool {
	switch ch {
	case 0, ' ', '\t', '\n', '\r', '(', ')', '"', ';', '\'', '`', ',':
		return true
	}
	return false
}

func (l *lexer) skipWhitespaceAndComments() {
	for {
		switch l.ch {
		case ' ', '\t', '\n', '\r':
			l.readChar()
			continue
		case ';':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		return
	}
}

func (l *lexer) readAtom() string {
	start := l.position
	for !isDelimiter(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readString reads a "..."-delimited string body, processing \", \\, and \n
// escapes (the inverse of object/string.go's escapeStringLiteral).
func (l *lexer) readString() (string, error) {
	var b strings.Builder
	l.readChar() // skip opening quote
	for {
		if l.ch == 0 {
			return "", fmt.Errorf("reader: unterminated string starting near line %d", l.line)
		}
		if l.ch == '"' {
			l.readChar()
			return b.String(), nil
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			default:
				b.WriteByte(l.ch)
			}
			l.readChar()
			continue
		}
		b.WriteByte(l.ch)
		l.readChar()
	}
}

func (l *lexer) nextToken() token {
	l.skipWhitespaceAndComments()
	line, col := l.line, l.column

	switch {
	case l.ch == 0:
		return token{typ: tokEOF, line: line, column: col}
	case l.ch == '(':
		l.readChar()
		return token{typ: tokLParen, line: line, column: col}
	case l.ch == ')':
		l.readChar()
		return token{typ: tokRParen, line: line, column: col}
	case l.ch == '\'':
		l.readChar()
		return token{typ: tokQuote, line: line, column: col}
	case l.ch == '`':
		l.readChar()
		return token{typ: tokQuasiquote, line: line, column: col}
	case l.ch == ',':
		l.readChar()
		if l.ch == '@' {
			l.readChar()
			return token{typ: tokUnquoteSplicing, line: line, column: col}
		}
		return token{typ: tokUnquote, line: line, column: col}
	case l.ch == '"':
		s, err := l.readString()
		if err != nil {
			return token{typ: tokIllegal, literal: err.Error(), line: line, column: col}
		}
		return token{typ: tokString, literal: s, line: line, column: col}
	case l.ch == '#' && l.peekChar() == '(':
		l.readChar()
		l.readChar()
		return token{typ: tokHashLParen, line: line, column: col}
	case l.ch == '#' && l.peekChar() == '\\':
		l.readChar()
		l.readChar()
		start := l.position
		l.readChar() // every character literal consumes at least one byte
		for !isDelimiter(l.ch) {
			l.readChar()
		}
		return token{typ: tokChar, literal: l.input[start:l.position], line: line, column: col}
	case l.ch == '#' && (l.peekChar() == 't' || l.peekChar() == 'f'):
		atom := l.readAtom()
		return token{typ: tokBool, literal: atom, line: line, column: col}
	case l.ch == '&' && isDelimiter(l.peekChar()):
		l.readChar()
		return token{typ: tokDot, line: line, column: col}
	default:
		atom := l.readAtom()
		if atom == "" {
			// An unrecognized single byte (e.g. a stray '&' glued to other
			// punctuation); consume it so the scanner always makes progress.
			l.readChar()
			return token{typ: tokIllegal, literal: string(rune(l.input[l.position-1])), line: line, column: col}
		}
		return token{typ: tokAtom, literal: atom, line: line, column: col}
	}
}

var charNames = map[string]rune{
	"space":   ' ',
	"newline": '\n',
	"tab":     '\t',
	"nul":     0,
	"null":    0,
}

// Reader parses a stream of s-expressions into value.Values.
type Reader struct {
	l       *lexer
	tok     token
	primed  bool
}

// New returns a Reader over the given source text.
func New(input string) *Reader {
	return &Reader{l: newLexer(input)}
}

func (r *Reader) advance() {
	r.tok = r.l.nextToken()
}

func (r *Reader) peek() token {
	if !r.primed {
		r.advance()
		r.primed = true
	}
	return r.tok
}

func (r *Reader) consume() token {
	t := r.peek()
	r.primed = false
	return t
}

// AtEOF reports whether the reader has no more data.
func (r *Reader) AtEOF() bool { return r.peek().typ == tokEOF }

// Read parses and returns the next datum. ok is false at end of input.
func (r *Reader) Read() (v value.Value, ok bool, err error) {
	if r.AtEOF() {
		return value.Value{}, false, nil
	}
	v, err = r.readExpr()
	if err != nil {
		return value.Value{}, false, err
	}
	return v, true, nil
}

// ReadAll parses every remaining datum in the input.
func (r *Reader) ReadAll() ([]value.Value, error) {
	var out []value.Value
	for {
		v, ok, err := r.Read()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

func wrapQuote(head string, body value.Value) value.Value {
	return object.List(value.Pointer(object.Intern(head)), body)
}

func (r *Reader) readExpr() (value.Value, error) {
	t := r.consume()
	switch t.typ {
	case tokEOF:
		return value.Value{}, fmt.Errorf("reader: unexpected end of input")
	case tokLParen:
		return r.readList()
	case tokHashLParen:
		return r.readVector()
	case tokRParen:
		return value.Value{}, fmt.Errorf("reader: unexpected ')' at line %d", t.line)
	case tokDot:
		return value.Value{}, fmt.Errorf("reader: unexpected '&' at line %d", t.line)
	case tokQuote:
		body, err := r.readExpr()
		if err != nil {
			return value.Value{}, err
		}
		return wrapQuote("quote", body), nil
	case tokQuasiquote:
		body, err := r.readExpr()
		if err != nil {
			return value.Value{}, err
		}
		return wrapQuote("quasiquote", body), nil
	case tokUnquote:
		body, err := r.readExpr()
		if err != nil {
			return value.Value{}, err
		}
		return wrapQuote("unquote", body), nil
	case tokUnquoteSplicing:
		body, err := r.readExpr()
		if err != nil {
			return value.Value{}, err
		}
		return wrapQuote("unquote-splicing", body), nil
	case tokString:
		return value.Pointer(object.NewString(t.literal)), nil
	case tokBool:
		return value.Bool(t.literal == "#t"), nil
	case tokChar:
		return r.readCharLiteral(t)
	case tokAtom:
		return r.readAtomValue(t)
	case tokIllegal:
		return value.Value{}, fmt.Errorf("reader: illegal token %q at line %d", t.literal, t.line)
	default:
		return value.Value{}, fmt.Errorf("reader: unhandled token at line %d", t.line)
	}
}

func (r *Reader) readCharLiteral(t token) (value.Value, error) {
	if len(t.literal) == 1 {
		return value.Character(rune(t.literal[0])), nil
	}
	if rn, ok := charNames[strings.ToLower(t.literal)]; ok {
		return value.Character(rn), nil
	}
	runes := []rune(t.literal)
	return value.Character(runes[0]), nil
}

// readAtomValue disambiguates a bare atom as a number (delegating to
// bignum.Parse, spec.md §4.1's textual-form constructor) or, failing that,
// an interned symbol.
func (r *Reader) readAtomValue(t token) (value.Value, error) {
	if bn, err := bignum.Parse(t.literal); err == nil {
		if n, ok := bn.ToFixnum(); ok {
			return value.Fixnum(n), nil
		}
		return value.Pointer(bn), nil
	}
	return value.Pointer(object.Intern(t.literal)), nil
}

// readList parses the contents of a '(' already consumed, up to its
// matching ')', honoring '&' as the dotted-tail marker (object/pair.go's
// printed separator) rather than the conventional Scheme '.'.
func (r *Reader) readList() (value.Value, error) {
	var items []value.Value
	tail := value.Nil
	for {
		t := r.peek()
		if t.typ == tokEOF {
			return value.Value{}, fmt.Errorf("reader: unterminated list at line %d", t.line)
		}
		if t.typ == tokRParen {
			r.consume()
			break
		}
		if t.typ == tokDot {
			r.consume()
			var err error
			tail, err = r.readExpr()
			if err != nil {
				return value.Value{}, err
			}
			closing := r.consume()
			if closing.typ != tokRParen {
				return value.Value{}, fmt.Errorf("reader: expected ')' after dotted tail at line %d", closing.line)
			}
			break
		}
		item, err := r.readExpr()
		if err != nil {
			return value.Value{}, err
		}
		items = append(items, item)
	}
	out := tail
	for i := len(items) - 1; i >= 0; i-- {
		out = value.Pointer(&object.Pair{Head: items[i], Tail: out})
	}
	return out, nil
}

// readVector parses the contents of a '#(' already consumed, up to its
// matching ')', into an object.Array matching Array.String()'s "#(...)"
// print format.
func (r *Reader) readVector() (value.Value, error) {
	var items []value.Value
	for {
		t := r.peek()
		if t.typ == tokEOF {
			return value.Value{}, fmt.Errorf("reader: unterminated vector at line %d", t.line)
		}
		if t.typ == tokRParen {
			r.consume()
			break
		}
		item, err := r.readExpr()
		if err != nil {
			return value.Value{}, err
		}
		items = append(items, item)
	}
	arr := object.NewArray(len(items), value.False)
	for i, v := range items {
		arr.Elems[i] = v
	}
	return value.Pointer(arr), nil
}
