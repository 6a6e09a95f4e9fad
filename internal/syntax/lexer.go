// Package syntax implements the textual grammar of spec §4.L: a lexer
// and recursive-descent parser producing term.Term, term.Equation, and
// statement.Statement values, plus a pretty-printer used by the CLI's
// query/repl verbs.
package syntax

import (
	"kindelia/internal/kerr"
)

// Lexer scans source text into a Token stream, grounded on the
// teacher's internal/lexer.Scanner: a start/current/line cursor over
// the source, one rune of lookahead via match.
type Lexer struct {
	source  []rune
	tokens  []Token
	start   int
	current int
	line    int
}

func NewLexer(source string) *Lexer {
	return &Lexer{source: []rune(source), line: 1}
}

// Tokenize scans the whole source and appends a trailing TokenEOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	for {
		l.skipTrivia()
		l.start = l.current
		if l.isAtEnd() {
			break
		}
		if err := l.scanToken(); err != nil {
			return nil, err
		}
	}
	l.tokens = append(l.tokens, Token{Type: TokenEOF, Line: l.line})
	return l.tokens, nil
}

// skipTrivia consumes whitespace and "//" line comments, matching
// spec §4.L ("Line comments //"). The original Rust source instead
// treats any bare '/' as a comment starter, which silently swallows
// the DIV operator token — we require the doubled slash so '/' stays
// usable as a binary operator; see DESIGN.md.
func (l *Lexer) skipTrivia() {
	for !l.isAtEnd() {
		switch l.peek() {
		case ' ', '\t', '\r':
			l.advance()
		case '\n':
			l.line++
			l.advance()
		case '/':
			if l.peekAt(1) == '/' {
				for !l.isAtEnd() && l.peek() != '\n' {
					l.advance()
				}
				continue
			}
			return
		default:
			return
		}
	}
}

func (l *Lexer) scanToken() error {
	c := l.advance()
	switch c {
	case '(':
		l.add(TokenLParen)
	case ')':
		l.add(TokenRParen)
	case '{':
		l.add(TokenLBrace)
	case '}':
		l.add(TokenRBrace)
	case '$':
		l.add(TokenDollar)
	case '~':
		l.add(TokenTilde)
	case '&':
		l.add(TokenAmp)
	case ';':
		l.add(TokenSemi)
	case 'λ':
		l.add(TokenLambda)
	case '+', '-', '*', '/', '%', '|', '^':
		l.addOp(string(c))
	case '<':
		switch {
		case l.match('='):
			l.addOp("<=")
		case l.match('<'):
			l.addOp("<<")
		default:
			l.addOp("<")
		}
	case '>':
		switch {
		case l.match('='):
			l.addOp(">=")
		case l.match('>'):
			l.addOp(">>")
		default:
			l.addOp(">")
		}
	case '=':
		if l.match('=') {
			l.addOp("==")
		} else {
			l.add(TokenEquals)
		}
	case '!':
		if l.match('=') {
			l.addOp("!=")
		} else {
			l.add(TokenBang)
		}
	case '#':
		l.number()
	case '@':
		l.atName()
	default:
		if isNameChar(c) {
			l.identifier()
			return nil
		}
		return kerr.New(kerr.SyntaxError, "unexpected character %q at line %d", string(c), l.line)
	}
	return nil
}

// number reads the decimal digits of a "#n" literal. The Rust original
// allows trivia between '#' and its digits (read_numb calls skip first);
// preserved here for fidelity.
func (l *Lexer) number() {
	l.skipTrivia()
	start := l.current
	for !l.isAtEnd() && isDigit(l.peek()) {
		l.advance()
	}
	l.tokens = append(l.tokens, Token{Type: TokenNumber, Lexeme: string(l.source[start:l.current]), Line: l.line})
}

// atName reads the identifier following '@', emitted as a TokenAt
// whose Lexeme is the bare name text (the parser packs it through the
// name codec, not decimal parsing) — the original's "@name" numeric
// literal, supplemented from original_source since spec §4.L's grammar
// sketch omits it.
func (l *Lexer) atName() {
	l.skipTrivia()
	start := l.current
	for !l.isAtEnd() && isNameChar(l.peek()) {
		l.advance()
	}
	l.tokens = append(l.tokens, Token{Type: TokenAt, Lexeme: string(l.source[start:l.current]), Line: l.line})
}

func (l *Lexer) identifier() {
	for !l.isAtEnd() && isNameChar(l.peek()) {
		l.advance()
	}
	l.tokens = append(l.tokens, Token{Type: TokenIdent, Lexeme: string(l.source[l.start:l.current]), Line: l.line})
}

func (l *Lexer) add(t TokenType) {
	l.tokens = append(l.tokens, Token{Type: t, Lexeme: string(l.source[l.start:l.current]), Line: l.line})
}

func (l *Lexer) addOp(sym string) {
	l.tokens = append(l.tokens, Token{Type: TokenOp, Lexeme: sym, Line: l.line})
}

func (l *Lexer) advance() rune {
	c := l.source[l.current]
	l.current++
	return c
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.current] != expected {
		return false
	}
	l.current++
	return true
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.current]
}

func (l *Lexer) peekAt(n int) rune {
	if l.current+n >= len(l.source) {
		return 0
	}
	return l.source[l.current+n]
}

func (l *Lexer) isAtEnd() bool { return l.current >= len(l.source) }

// isNameChar matches the codec alphabet (spec §4.M): '.', '0'-'9',
// 'A'-'Z', 'a'-'z', '_'.
func isNameChar(c rune) bool {
	return c == '.' || c == '_' ||
		(c >= '0' && c <= '9') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z')
}

func isDigit(c rune) bool { return c >= '0' && c <= '9' }
