package sqlguard

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type TokenType int

const (
	TokenWord TokenType = iota
	TokenQuotedIdent
	TokenNumber
	TokenString
	TokenOperator
	TokenComma
	TokenLParen
	TokenRParen
	TokenDot
	TokenSemicolon
)

func (t TokenType) String() string {
	switch t {
	case TokenWord:
		return "WORD"
	case TokenQuotedIdent:
		return "QUOTED_IDENT"
	case TokenNumber:
		return "NUMBER"
	case TokenString:
		return "STRING"
	case TokenOperator:
		return "OPERATOR"
	case TokenComma:
		return ","
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	case TokenDot:
		return "."
	case TokenSemicolon:
		return ";"
	default:
		return "UNKNOWN"
	}
}

type Token struct {
	Type    TokenType
	Literal string
	Pos     int
	End     int
}

func (t Token) Upper() string {
	return strings.ToUpper(t.Literal)
}

func (t Token) String() string {
	return fmt.Sprintf("Token{%s, %q, %d}", t.Type, t.Literal, t.Pos)
}

type LexError struct {
	Pos     int
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at %d: %s", e.Pos, e.Message)
}

type lexer struct {
	input string
	pos   int
}

func Tokenize(input string) ([]Token, error) {
	l := &lexer{input: input}
	var tokens []Token
	for {
		tok, ok, err := l.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

func (l *lexer) peek(offset int) byte {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func (l *lexer) next() (Token, bool, error) {
	if err := l.skipSpaceAndComments(); err != nil {
		return Token{}, false, err
	}
	if l.pos >= len(l.input) {
		return Token{}, false, nil
	}

	start := l.pos
	ch := l.input[l.pos]
	switch {
	case ch == '\'':
		return l.readQuoted('\'', TokenString)
	case ch == '"':
		return l.readQuoted('"', TokenQuotedIdent)
	case ch == '`':
		return l.readQuoted('`', TokenQuotedIdent)
	case ch == ',':
		return l.single(TokenComma), true, nil
	case ch == '(':
		return l.single(TokenLParen), true, nil
	case ch == ')':
		return l.single(TokenRParen), true, nil
	case ch == ';':
		return l.single(TokenSemicolon), true, nil
	case ch == '.' && isDigit(l.peek(1)):
		return l.readNumber(), true, nil
	case ch == '.':
		return l.single(TokenDot), true, nil
	case isDigit(ch):
		return l.readNumber(), true, nil
	}

	if op := l.readOperator(); op != "" {
		return Token{Type: TokenOperator, Literal: op, Pos: start, End: l.pos}, true, nil
	}

	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	if r == '_' || unicode.IsLetter(r) {
		return l.readWord(), true, nil
	}
	if r == utf8.RuneError && size <= 1 {
		return Token{}, false, &LexError{Pos: start, Message: "invalid utf-8"}
	}
	return Token{}, false, &LexError{Pos: start, Message: fmt.Sprintf("unexpected character %q", r)}
}

func (l *lexer) single(typ TokenType) Token {
	tok := Token{Type: typ, Literal: l.input[l.pos : l.pos+1], Pos: l.pos, End: l.pos + 1}
	l.pos++
	return tok
}

func (l *lexer) skipSpaceAndComments() error {
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		switch {
		case unicode.IsSpace(r):
			l.pos += size
		case r == '-' && l.peek(1) == '-':
			end := strings.IndexByte(l.input[l.pos:], '\n')
			if end < 0 {
				l.pos = len(l.input)
			} else {
				l.pos += end + 1
			}
		case r == '/' && l.peek(1) == '*':
			end := strings.Index(l.input[l.pos+2:], "*/")
			if end < 0 {
				return &LexError{Pos: l.pos, Message: "unterminated block comment"}
			}
			l.pos += 2 + end + 2
		default:
			return nil
		}
	}
	return nil
}

func (l *lexer) readQuoted(quote byte, typ TokenType) (Token, bool, error) {
	start := l.pos
	l.pos++
	var b strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == quote {
			if l.peek(1) == quote {
				b.WriteByte(quote)
				l.pos += 2
				continue
			}
			l.pos++
			if typ == TokenQuotedIdent && b.Len() == 0 {
				return Token{}, false, &LexError{Pos: start, Message: "empty quoted identifier"}
			}
			return Token{Type: typ, Literal: b.String(), Pos: start, End: l.pos}, true, nil
		}
		b.WriteByte(ch)
		l.pos++
	}
	if typ == TokenString {
		return Token{}, false, &LexError{Pos: start, Message: "unterminated string literal"}
	}
	return Token{}, false, &LexError{Pos: start, Message: "unterminated quoted identifier"}
}

func (l *lexer) readNumber() Token {
	start := l.pos
	for isDigit(l.peek(0)) {
		l.pos++
	}
	if l.peek(0) == '.' && (l.pos > start || isDigit(l.peek(1))) {
		l.pos++
		for isDigit(l.peek(0)) {
			l.pos++
		}
	}
	if e := l.peek(0); e == 'e' || e == 'E' {
		offset := 1
		if s := l.peek(1); s == '+' || s == '-' {
			offset = 2
		}
		if isDigit(l.peek(offset)) {
			l.pos += offset
			for isDigit(l.peek(0)) {
				l.pos++
			}
		}
	}
	return Token{Type: TokenNumber, Literal: l.input[start:l.pos], Pos: start, End: l.pos}
}

func (l *lexer) readWord() Token {
	start := l.pos
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		l.pos += size
	}
	return Token{Type: TokenWord, Literal: l.input[start:l.pos], Pos: start, End: l.pos}
}

var twoCharOperators = []string{"<=", ">=", "<>", "!=", "==", "||", "::"}

func (l *lexer) readOperator() string {
	rest := l.input[l.pos:]
	for _, op := range twoCharOperators {
		if strings.HasPrefix(rest, op) {
			l.pos += len(op)
			return op
		}
	}
	switch rest[0] {
	case '=', '<', '>', '+', '-', '*', '/', '%', '|', '&', '~':
		l.pos++
		return rest[:1]
	}
	return ""
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
