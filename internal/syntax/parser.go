package syntax

import (
	"strconv"

	"kindelia/internal/kerr"
	"kindelia/internal/link"
	"kindelia/internal/name"
	"kindelia/internal/statement"
	"kindelia/internal/term"
	"kindelia/internal/word"
)

// Parser is a recursive-descent parser over a Token stream, grounded
// on the Rust original's read_term/read_action functions (original_
// source/src/hvm.rs) rather than the teacher's expression-statement
// grammar, since the term/statement shapes here are entirely different
// from the teacher's source language.
type Parser struct {
	toks []Token
	pos  int
}

func NewParser(toks []Token) *Parser { return &Parser{toks: toks} }

// ParseProgram parses source into the sequence of Fun/Ctr/Run
// statements it declares (spec §6 "to the parser (in)").
func ParseProgram(source string) ([]statement.Statement, error) {
	toks, err := NewLexer(source).Tokenize()
	if err != nil {
		return nil, err
	}
	p := NewParser(toks)
	var out []statement.Statement
	for p.peek().Type != TokenEOF {
		st, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (p *Parser) peek() Token { return p.toks[p.pos] }

func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(t TokenType) (Token, error) {
	tok := p.peek()
	if tok.Type != t {
		return tok, kerr.New(kerr.SyntaxError, "unexpected token %q at line %d", tok.Lexeme, tok.Line)
	}
	return p.advance(), nil
}

func (p *Parser) parseStatement() (statement.Statement, error) {
	tok := p.peek()
	if tok.Type != TokenIdent {
		return statement.Statement{}, kerr.New(kerr.SyntaxError, "expected a statement keyword at line %d", tok.Line)
	}
	switch tok.Lexeme {
	case "fun":
		return p.parseFun()
	case "ctr":
		return p.parseCtr()
	case "run":
		return p.parseRun()
	default:
		return statement.Statement{}, kerr.New(kerr.SyntaxError, "unknown statement %q at line %d", tok.Lexeme, tok.Line)
	}
}

// parseFun: "fun N A { lhs = rhs ; ... } = init" (spec §4.L).
func (p *Parser) parseFun() (statement.Statement, error) {
	p.advance()
	nm, err := p.parseDeclName()
	if err != nil {
		return statement.Statement{}, err
	}
	arity, err := p.parseArity()
	if err != nil {
		return statement.Statement{}, err
	}
	if _, err := p.expect(TokenLBrace); err != nil {
		return statement.Statement{}, err
	}
	var equations []term.Equation
	for p.peek().Type != TokenRBrace {
		lhs, err := p.parseTerm()
		if err != nil {
			return statement.Statement{}, err
		}
		if _, err := p.expect(TokenEquals); err != nil {
			return statement.Statement{}, err
		}
		rhs, err := p.parseTerm()
		if err != nil {
			return statement.Statement{}, err
		}
		equations = append(equations, term.Equation{Lhs: lhs, Rhs: rhs})
		if p.peek().Type == TokenSemi {
			p.advance()
		}
	}
	if _, err := p.expect(TokenRBrace); err != nil {
		return statement.Statement{}, err
	}
	if _, err := p.expect(TokenEquals); err != nil {
		return statement.Statement{}, err
	}
	init, err := p.parseTerm()
	if err != nil {
		return statement.Statement{}, err
	}
	return statement.Statement{Kind: statement.KindFun, Name: nm, Arity: arity, Equations: equations, Init: init}, nil
}

// parseCtr: "ctr N A".
func (p *Parser) parseCtr() (statement.Statement, error) {
	p.advance()
	nm, err := p.parseDeclName()
	if err != nil {
		return statement.Statement{}, err
	}
	arity, err := p.parseArity()
	if err != nil {
		return statement.Statement{}, err
	}
	return statement.Statement{Kind: statement.KindCtr, Name: nm, Arity: arity}, nil
}

// parseRun: "run { expr }".
func (p *Parser) parseRun() (statement.Statement, error) {
	p.advance()
	if _, err := p.expect(TokenLBrace); err != nil {
		return statement.Statement{}, err
	}
	expr, err := p.parseTerm()
	if err != nil {
		return statement.Statement{}, err
	}
	if _, err := p.expect(TokenRBrace); err != nil {
		return statement.Statement{}, err
	}
	return statement.Statement{Kind: statement.KindRun, Expr: expr}, nil
}

func (p *Parser) parseDeclName() (word.U120, error) {
	tok, err := p.expect(TokenIdent)
	if err != nil {
		return word.U120{}, err
	}
	return name.Encode(tok.Lexeme)
}

// parseArity reads a declaration's arity. A bare decimal such as "1"
// lexes as an identifier, since digits are name characters; a
// '#'-prefixed number is accepted as well.
func (p *Parser) parseArity() (uint64, error) {
	tok := p.peek()
	if tok.Type != TokenIdent && tok.Type != TokenNumber {
		return 0, kerr.New(kerr.SyntaxError, "unexpected token %q at line %d", tok.Lexeme, tok.Line)
	}
	p.advance()
	v, perr := strconv.ParseUint(tok.Lexeme, 10, 64)
	if perr != nil {
		return 0, kerr.New(kerr.SyntaxError, "invalid arity %q at line %d", tok.Lexeme, tok.Line)
	}
	return v, nil
}

// parseName resolves a binder or variable reference: "~" is the erase
// wildcard, anything else is a codec-packed identifier.
func (p *Parser) parseName() (word.U120, error) {
	if p.peek().Type == TokenTilde {
		p.advance()
		return name.Wildcard(), nil
	}
	tok, err := p.expect(TokenIdent)
	if err != nil {
		return word.U120{}, err
	}
	return name.Encode(tok.Lexeme)
}

// parseTerm implements the full term grammar (spec §4.L), one sigil
// per production: 'λ' lambda, '&' dup-let, '(' app/op2, '$(' ctr,
// '!(' fun call, '#n' number, '@name' name-as-number, bare identifier
// or '~' a variable.
func (p *Parser) parseTerm() (term.Term, error) {
	tok := p.peek()
	switch tok.Type {
	case TokenLambda:
		p.advance()
		nm, err := p.parseName()
		if err != nil {
			return nil, err
		}
		body, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		return &term.Lam{Name: nm, Body: body}, nil

	case TokenAmp:
		p.advance()
		nam0, err := p.parseName()
		if err != nil {
			return nil, err
		}
		nam1, err := p.parseName()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenEquals); err != nil {
			return nil, err
		}
		expr, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenSemi); err != nil {
			return nil, err
		}
		body, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		return &term.Dup{Nam0: nam0, Nam1: nam1, Expr: expr, Body: body}, nil

	case TokenLParen:
		return p.parseParen()

	case TokenDollar:
		p.advance()
		return p.parseCallLike(func(nm word.U120, args []term.Term) term.Term {
			return &term.Ctr{Name: nm, Args: args}
		})

	case TokenBang:
		p.advance()
		return p.parseCallLike(func(nm word.U120, args []term.Term) term.Term {
			return &term.Fun{Name: nm, Args: args}
		})

	case TokenNumber:
		p.advance()
		v, ok := word.FromString(tok.Lexeme)
		if !ok {
			return nil, kerr.New(kerr.SyntaxError, "invalid number %q at line %d", tok.Lexeme, tok.Line)
		}
		return &term.Num{Value: v}, nil

	case TokenAt:
		p.advance()
		v, err := name.Encode(tok.Lexeme)
		if err != nil {
			return nil, err
		}
		return &term.Num{Value: v}, nil

	case TokenTilde:
		p.advance()
		return &term.Var{Name: name.Wildcard()}, nil

	case TokenIdent:
		p.advance()
		v, err := name.Encode(tok.Lexeme)
		if err != nil {
			return nil, err
		}
		return &term.Var{Name: v}, nil

	default:
		return nil, kerr.New(kerr.SyntaxError, "unexpected token %q at line %d", tok.Lexeme, tok.Line)
	}
}

// parseCallLike parses the shared "(" Name term* ")" shape of both
// constructor and function-call terms.
func (p *Parser) parseCallLike(build func(word.U120, []term.Term) term.Term) (term.Term, error) {
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	nm, err := p.parseDeclName()
	if err != nil {
		return nil, err
	}
	var args []term.Term
	for p.peek().Type != TokenRParen {
		a, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	p.advance() // ')'
	return build(nm, args), nil
}

// parseParen disambiguates "(op a b)" from "(f x)" by the first token
// after '(': an operator symbol always wins, matching the Rust
// original's read_oper-before-read_term ordering.
func (p *Parser) parseParen() (term.Term, error) {
	p.advance() // '('
	if op, ok := p.tryOper(p.peek()); ok {
		p.advance()
		val0, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		val1, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return &term.Op2{Oper: op, Val0: val0, Val1: val1}, nil
	}

	fn, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	argm, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return &term.App{Func: fn, Argm: argm}, nil
}

func (p *Parser) tryOper(tok Token) (link.Oper, bool) {
	switch tok.Type {
	case TokenOp:
		return link.OperFromSymbol(tok.Lexeme)
	case TokenAmp:
		return link.OperFromSymbol("&")
	default:
		return 0, false
	}
}
