package condition

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenEq
	tokenNeq
	tokenLt
	tokenLte
	tokenGt
	tokenGte
	tokenAnd
	tokenOr
	tokenNot
	tokenLParen
	tokenRParen
)

func (k tokenKind) String() string {
	switch k {
	case tokenEq:
		return "=="
	case tokenNeq:
		return "!="
	case tokenLt:
		return "<"
	case tokenLte:
		return "<="
	case tokenGt:
		return ">"
	case tokenGte:
		return ">="
	case tokenAnd:
		return "&&"
	case tokenOr:
		return "||"
	case tokenNot:
		return "!"
	default:
		return "?"
	}
}

type token struct {
	kind tokenKind
	raw  string
}

type lexer struct {
	input  string
	pos    int
	tokens []token
}

func tokenize(input string) ([]token, error) {
	lx := &lexer{input: input}
	for lx.pos < len(lx.input) {
		if err := lx.step(); err != nil {
			return nil, err
		}
	}
	return lx.tokens, nil
}

func (lx *lexer) peek() byte {
	if lx.pos >= len(lx.input) {
		return 0
	}
	return lx.input[lx.pos]
}

func (lx *lexer) emit(kind tokenKind, raw string) {
	lx.tokens = append(lx.tokens, token{kind: kind, raw: raw})
}

// pair consumes a one or two byte operator: when the byte after the current
// one equals second, the two-byte form is emitted.
func (lx *lexer) pair(second byte, single, double tokenKind) {
	lx.pos++
	if lx.peek() == second {
		lx.pos++
		lx.emit(double, double.String())
		return
	}
	lx.emit(single, single.String())
}

func (lx *lexer) step() error {
	ch := lx.peek()
	switch ch {
	case ' ', '\t', '\n', '\r':
		lx.pos++
	case '(':
		lx.pos++
		lx.emit(tokenLParen, "(")
	case ')':
		lx.pos++
		lx.emit(tokenRParen, ")")
	case '!':
		lx.pair('=', tokenNot, tokenNeq)
	case '<':
		lx.pair('=', tokenLt, tokenLte)
	case '>':
		lx.pair('=', tokenGt, tokenGte)
	case '=':
		lx.pos++
		if lx.peek() != '=' {
			return errors.New("condition: unexpected '='; use '=='")
		}
		lx.pos++
		lx.emit(tokenEq, "==")
	case '&':
		lx.pos++
		if lx.peek() != '&' {
			return errors.New("condition: unexpected '&'; use '&&'")
		}
		lx.pos++
		lx.emit(tokenAnd, "&&")
	case '|':
		lx.pos++
		if lx.peek() != '|' {
			return errors.New("condition: unexpected '|'; use '||'")
		}
		lx.pos++
		lx.emit(tokenOr, "||")
	case '"', '\'':
		return lx.quoted(ch)
	default:
		lx.word()
	}
	return nil
}

func (lx *lexer) quoted(quote byte) error {
	lx.pos++
	var b strings.Builder
	for lx.pos < len(lx.input) {
		c := lx.input[lx.pos]
		lx.pos++
		switch c {
		case '\\':
			if lx.pos >= len(lx.input) {
				return errors.New("condition: unterminated escape sequence")
			}
			b.WriteByte(lx.input[lx.pos])
			lx.pos++
		case quote:
			lx.emit(tokenString, b.String())
			return nil
		default:
			b.WriteByte(c)
		}
	}
	return errors.New("condition: unterminated string literal")
}

func (lx *lexer) word() {
	start := lx.pos
	for lx.pos < len(lx.input) && !isDelimiter(lx.input[lx.pos]) {
		lx.pos++
	}
	raw := lx.input[start:lx.pos]
	switch strings.ToLower(raw) {
	case "true", "false":
		lx.emit(tokenBool, strings.ToLower(raw))
	case "null", "nil", "undefined":
		lx.emit(tokenNull, "null")
	case "and":
		lx.emit(tokenAnd, "&&")
	case "or":
		lx.emit(tokenOr, "||")
	case "not":
		lx.emit(tokenNot, "!")
	default:
		if _, err := strconv.ParseFloat(raw, 64); err == nil {
			lx.emit(tokenNumber, raw)
			return
		}
		lx.emit(tokenIdentifier, raw)
	}
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '(', ')', '!', '=', '&', '|', '<', '>', '"', '\'':
		return true
	}
	return false
}

func describe(tok token) string {
	return fmt.Sprintf("%q", tok.raw)
}
