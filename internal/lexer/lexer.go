// Package lexer turns query text into tokens with 1-based line and column
// information.
package lexer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/nlstn/go-rql/internal/rqlerrors"
)

// TokenType represents the type of a token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdentifier
	TokenString
	TokenInt
	TokenFloat
	TokenTimestamp
	TokenLParen
	TokenRParen
	TokenComma
	TokenAmp
	TokenEquals
	TokenPlus
	TokenMinus
	TokenIllegal
)

var tokenNames = [...]string{
	TokenEOF:        "<EOF>",
	TokenIdentifier: "identifier",
	TokenString:     "string",
	TokenInt:        "integer",
	TokenFloat:      "decimal",
	TokenTimestamp:  "timestamp",
	TokenLParen:     "'('",
	TokenRParen:     "')'",
	TokenComma:      "','",
	TokenAmp:        "'&'",
	TokenEquals:     "'='",
	TokenPlus:       "'+'",
	TokenMinus:      "'-'",
	TokenIllegal:    "illegal",
}

func (t TokenType) String() string {
	return tokenNames[t]
}

// Token is a single lexeme. Value holds the decoded content for strings and
// the raw text otherwise; Text is the raw source text.
type Token struct {
	Type   TokenType
	Value  string
	Text   string
	Pos    int
	Line   int
	Column int
}

// Problem returns a located problem at the token position.
func (t *Token) Problem(format string, args ...any) rqlerrors.Problem {
	return rqlerrors.Problem{Msg: fmt.Sprintf(format, args...), Line: t.Line, Column: t.Column, Located: true}
}

// Display renders the token the way it appears in error messages.
func (t *Token) Display() string {
	if t.Type == TokenEOF {
		return "<EOF>"
	}
	return "'" + t.Text + "'"
}

// Error is a lexical error with its source location.
type Error struct {
	Msg    string
	Line   int
	Column int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s @[line:%d, column:%d]", e.Msg, e.Line, e.Column)
}

func (e *Error) Problem() rqlerrors.Problem {
	return rqlerrors.Problem{Msg: e.Msg, Line: e.Line, Column: e.Column, Located: true}
}

var timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[Tt]\d{2}:\d{2}:\d{2}([.,]\d+)?([Zz]|[+-]\d{2}:\d{2})$`)

var secondsSuffix = regexp.MustCompile(`[Tt]\d{2}:\d{2}:\d{2}$`)

// Tokenizer tokenizes query strings
type Tokenizer struct {
	input []rune
	pos   int
	ch    rune
	line  int
	col   int
}

// NewTokenizer creates a new tokenizer
func NewTokenizer(input string) *Tokenizer {
	t := &Tokenizer{input: []rune(input), line: 1, col: 1}
	if len(t.input) > 0 {
		t.ch = t.input[0]
	}
	return t
}

func (t *Tokenizer) advance() {
	if t.ch == '\n' {
		t.line++
		t.col = 1
	} else {
		t.col++
	}
	t.pos++
	if t.pos >= len(t.input) {
		t.ch = 0
		t.pos = len(t.input)
	} else {
		t.ch = t.input[t.pos]
	}
}

func (t *Tokenizer) peek() rune {
	return t.peekAt(1)
}

func (t *Tokenizer) peekAt(n int) rune {
	if t.pos+n >= len(t.input) {
		return 0
	}
	return t.input[t.pos+n]
}

func (t *Tokenizer) atEOF() bool {
	return t.pos >= len(t.input)
}

func (t *Tokenizer) skipWhitespace() {
	for !t.atEOF() && (t.ch == ' ' || t.ch == '\t' || t.ch == '\n' || t.ch == '\r') {
		t.advance()
	}
}

func (t *Tokenizer) errorf(line, col int, format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...), Line: line, Column: col}
}

// readString reads a double-quoted string. The returned error, if any, does
// not invalidate the token.
func (t *Tokenizer) readString() (string, *Error) {
	line, col := t.line, t.col
	t.advance() // opening quote

	var result strings.Builder
	var firstErr *Error
	for !t.atEOF() && t.ch != '"' {
		if t.ch != '\\' {
			result.WriteRune(t.ch)
			t.advance()
			continue
		}
		escLine, escCol := t.line, t.col
		t.advance()
		switch t.ch {
		case '\\', '"':
			result.WriteRune(t.ch)
		case 't':
			result.WriteByte('\t')
		case 'n':
			result.WriteByte('\n')
		case 'r':
			result.WriteByte('\r')
		case 'b':
			result.WriteByte('\b')
		case 'f':
			result.WriteByte('\f')
		default:
			if firstErr == nil {
				firstErr = t.errorf(escLine, escCol, "invalid escape sequence '\\%c'", t.ch)
			}
			if t.atEOF() {
				continue
			}
			result.WriteRune(t.ch)
		}
		t.advance()
	}

	if t.atEOF() {
		return result.String(), t.errorf(line, col, "unterminated string literal")
	}
	t.advance() // closing quote
	return result.String(), firstErr
}

func (t *Tokenizer) readDigits(b *strings.Builder) int {
	n := 0
	for !t.atEOF() && t.ch >= '0' && t.ch <= '9' {
		b.WriteRune(t.ch)
		t.advance()
		n++
	}
	return n
}

// readNumber reads an integer or a decimal with optional fraction and exponent.
func (t *Tokenizer) readNumber() (string, TokenType) {
	var result strings.Builder
	typ := TokenInt

	if t.ch == '-' {
		result.WriteRune(t.ch)
		t.advance()
	}
	t.readDigits(&result)

	if t.ch == '.' && isDigit(t.peek()) {
		typ = TokenFloat
		result.WriteRune(t.ch)
		t.advance()
		t.readDigits(&result)
	}

	if (t.ch == 'e' || t.ch == 'E') && (isDigit(t.peek()) || ((t.peek() == '+' || t.peek() == '-') && isDigit(t.peekAt(2)))) {
		typ = TokenFloat
		result.WriteRune(t.ch)
		t.advance()
		if t.ch == '+' || t.ch == '-' {
			result.WriteRune(t.ch)
			t.advance()
		}
		t.readDigits(&result)
	}

	return result.String(), typ
}

// isTimestampStart reports whether the input at the current position looks
// like the beginning of a date: four digits and a dash.
func (t *Tokenizer) isTimestampStart() bool {
	for i := 0; i < 4; i++ {
		if !isDigit(t.peekAt(i)) {
			return false
		}
	}
	return t.peekAt(4) == '-' && isDigit(t.peekAt(5))
}

// readTimestamp reads a date-time chunk. A ',' is taken as fraction
// separator only directly after the seconds.
func (t *Tokenizer) readTimestamp() string {
	var result strings.Builder
	for !t.atEOF() {
		switch {
		case isDigit(t.ch), t.ch == '-', t.ch == '+', t.ch == ':', t.ch == '.',
			t.ch == 'T', t.ch == 't', t.ch == 'Z', t.ch == 'z':
		case t.ch == ',' && isDigit(t.peek()) && secondsSuffix.MatchString(result.String()):
		default:
			return result.String()
		}
		result.WriteRune(t.ch)
		t.advance()
	}
	return result.String()
}

func (t *Tokenizer) readIdentifier() string {
	var result strings.Builder
	for !t.atEOF() && isIdentifierPart(t.ch) {
		result.WriteRune(t.ch)
		t.advance()
	}
	return result.String()
}

// NextToken returns the next token. A non-nil error describes a lexical
// problem; the token, when also non-nil, is still part of the stream.
func (t *Tokenizer) NextToken() (*Token, error) {
	t.skipWhitespace()

	tok := &Token{Pos: t.pos, Line: t.line, Column: t.col}
	if t.atEOF() {
		tok.Type = TokenEOF
		return tok, nil
	}
	start := t.pos

	switch {
	case t.ch == '"':
		value, err := t.readString()
		tok.Type, tok.Value = TokenString, value
		tok.Text = string(t.input[start:t.pos])
		if err != nil {
			return tok, err
		}
		return tok, nil
	case isDigit(t.ch) && t.isTimestampStart():
		text := t.readTimestamp()
		tok.Type, tok.Value, tok.Text = TokenTimestamp, text, text
		if !timestampPattern.MatchString(text) {
			tok.Type = TokenIllegal
			return tok, t.errorf(tok.Line, tok.Column, "mismatched input '%s'", text)
		}
		return tok, nil
	case isDigit(t.ch) || (t.ch == '-' && isDigit(t.peek())):
		text, typ := t.readNumber()
		tok.Type, tok.Value, tok.Text = typ, text, text
		return tok, nil
	case isIdentifierStart(t.ch):
		text := t.readIdentifier()
		tok.Type, tok.Value, tok.Text = TokenIdentifier, text, text
		return tok, nil
	}

	if typ, ok := specialChars[t.ch]; ok {
		tok.Type, tok.Value, tok.Text = typ, string(t.ch), string(t.ch)
		t.advance()
		return tok, nil
	}

	ch := t.ch
	t.advance()
	return nil, t.errorf(tok.Line, tok.Column, "token recognition error at: '%c'", ch)
}

var specialChars = map[rune]TokenType{
	'(': TokenLParen,
	')': TokenRParen,
	',': TokenComma,
	'&': TokenAmp,
	'=': TokenEquals,
	'+': TokenPlus,
	'-': TokenMinus,
}

// TokenizeAll returns all tokens from the input, always terminated by an
// EOF token, together with every lexical problem found on the way.
func (t *Tokenizer) TokenizeAll() ([]*Token, []rqlerrors.Problem) {
	var tokens []*Token
	var problems []rqlerrors.Problem

	for {
		token, err := t.NextToken()
		if err != nil {
			problems = append(problems, err.(*Error).Problem())
		}
		if token == nil {
			continue
		}
		tokens = append(tokens, token)
		if token.Type == TokenEOF {
			break
		}
	}

	return tokens, problems
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentifierStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentifierPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == '/'
}
