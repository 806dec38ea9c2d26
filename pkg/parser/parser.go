// Package parser builds an AST from bc80 tokens using recursive descent.
package parser

import (
	"fmt"

	"github.com/bc80/bc80/pkg/ast"
	"github.com/bc80/bc80/pkg/lexer"
)

// Error is a parse error with a source position
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message)
}

// Parser consumes a token stream and produces an AST
type Parser struct {
	tokens []lexer.Token
	pos    int
}

// New creates a parser over a token stream
func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse tokenizes and parses a whole source string
func Parse(src string) (*ast.Program, error) {
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	return New(tokens).ParseProgram()
}

// ParseProgram parses the token stream into a program
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for {
		p.skipTerminators()
		if p.cur().Type == lexer.TokenEOF {
			return prog, nil
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Stmts = append(prog.Stmts, stmt)
	}
}

func (p *Parser) cur() lexer.Token {
	return p.tokens[p.pos]
}

func (p *Parser) advance() lexer.Token {
	tok := p.tokens[p.pos]
	if tok.Type != lexer.TokenEOF {
		p.pos++
	}
	return tok
}

func (p *Parser) at(typ lexer.TokenType, text string) bool {
	tok := p.cur()
	return tok.Type == typ && tok.Text == text
}

func (p *Parser) accept(typ lexer.TokenType, text string) bool {
	if p.at(typ, text) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(typ lexer.TokenType, text string) (lexer.Token, error) {
	if !p.at(typ, text) {
		return lexer.Token{}, p.errorf("expected %q, found %s", text, describe(p.cur()))
	}
	return p.advance(), nil
}

// skipTerminators consumes any run of newlines and semicolons
func (p *Parser) skipTerminators() {
	for p.cur().Type == lexer.TokenNewline || p.at(lexer.TokenPunc, ";") {
		p.advance()
	}
}

// skipNewlines consumes newlines only, for positions where a statement
// has not ended (after an if/while/for header, after 'else', and before
// a define body's '{')
func (p *Parser) skipNewlines() {
	for p.cur().Type == lexer.TokenNewline {
		p.advance()
	}
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	tok := p.cur()
	return &Error{Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf(format, args...)}
}

func describe(tok lexer.Token) string {
	if tok.Type == lexer.TokenEOF {
		return "end of input"
	}
	if tok.Type == lexer.TokenNewline {
		return "newline"
	}
	return fmt.Sprintf("%q", tok.Text)
}

func pos(tok lexer.Token) ast.Position {
	return ast.Position{Line: tok.Line, Column: tok.Column}
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	tok := p.cur()
	if tok.Type == lexer.TokenKeyword {
		switch tok.Text {
		case "if":
			return p.parseIf()
		case "while":
			return p.parseWhile()
		case "for":
			return p.parseFor()
		case "define":
			return p.parseDefine()
		case "return":
			return p.parseReturn()
		}
	}
	if p.at(lexer.TokenPunc, "{") {
		return p.parseBlock()
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.endStatement(); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Expr: expr, Position: expr.Pos()}, nil
}

// endStatement requires a statement terminator: newline, semicolon,
// end of input, or a closing brace left for the caller
func (p *Parser) endStatement() error {
	tok := p.cur()
	switch {
	case tok.Type == lexer.TokenNewline, tok.Type == lexer.TokenEOF:
		return nil
	case tok.Type == lexer.TokenPunc && (tok.Text == ";" || tok.Text == "}"):
		return nil
	case tok.Type == lexer.TokenKeyword && tok.Text == "else":
		// an inline else ends the then-branch of an if
		return nil
	}
	return p.errorf("expected end of statement, found %s", describe(tok))
}

func (p *Parser) parseIf() (ast.Statement, error) {
	start := p.advance() // if
	if _, err := p.expect(lexer.TokenPunc, "("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenPunc, ")"); err != nil {
		return nil, err
	}
	p.skipNewlines()
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStmt{Cond: cond, Then: then, Position: pos(start)}
	// Peek past terminators for an else clause
	save := p.pos
	p.skipTerminators()
	if p.at(lexer.TokenKeyword, "else") {
		p.advance()
		p.skipNewlines()
		stmt.Else, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	} else {
		p.pos = save
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (ast.Statement, error) {
	start := p.advance() // while
	if _, err := p.expect(lexer.TokenPunc, "("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenPunc, ")"); err != nil {
		return nil, err
	}
	p.skipNewlines()
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Cond: cond, Body: body, Position: pos(start)}, nil
}

func (p *Parser) parseFor() (ast.Statement, error) {
	start := p.advance() // for
	if _, err := p.expect(lexer.TokenPunc, "("); err != nil {
		return nil, err
	}
	init, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenPunc, ";"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenPunc, ";"); err != nil {
		return nil, err
	}
	step, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenPunc, ")"); err != nil {
		return nil, err
	}
	p.skipNewlines()
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.ForStmt{Init: init, Cond: cond, Step: step, Body: body, Position: pos(start)}, nil
}

func (p *Parser) parseReturn() (ast.Statement, error) {
	start := p.advance() // return
	stmt := &ast.ReturnStmt{Position: pos(start)}
	tok := p.cur()
	if tok.Type != lexer.TokenNewline && tok.Type != lexer.TokenEOF &&
		!p.at(lexer.TokenPunc, ";") && !p.at(lexer.TokenPunc, "}") {
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Value = value
	}
	if err := p.endStatement(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseBlock() (*ast.BlockStmt, error) {
	start, err := p.expect(lexer.TokenPunc, "{")
	if err != nil {
		return nil, err
	}
	block := &ast.BlockStmt{Position: pos(start)}
	for {
		p.skipTerminators()
		if p.accept(lexer.TokenPunc, "}") {
			return block, nil
		}
		if p.cur().Type == lexer.TokenEOF {
			return nil, p.errorf("unterminated block")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
	}
}

func (p *Parser) parseDefine() (ast.Statement, error) {
	start := p.advance() // define
	name := p.cur()
	if name.Type != lexer.TokenName {
		return nil, p.errorf("expected function name after define, found %s", describe(name))
	}
	p.advance()
	if _, err := p.expect(lexer.TokenPunc, "("); err != nil {
		return nil, err
	}
	var params []byte
	if !p.at(lexer.TokenPunc, ")") {
		for {
			letter, err := p.parseLetter("parameter")
			if err != nil {
				return nil, err
			}
			params = append(params, letter)
			if !p.accept(lexer.TokenPunc, ",") {
				break
			}
		}
	}
	if _, err := p.expect(lexer.TokenPunc, ")"); err != nil {
		return nil, err
	}
	p.skipNewlines()
	if _, err := p.expect(lexer.TokenPunc, "{"); err != nil {
		return nil, err
	}
	p.skipTerminators()

	var autos []byte
	if p.accept(lexer.TokenKeyword, "auto") {
		for {
			letter, err := p.parseLetter("auto variable")
			if err != nil {
				return nil, err
			}
			autos = append(autos, letter)
			if !p.accept(lexer.TokenPunc, ",") {
				break
			}
		}
		if err := p.endStatement(); err != nil {
			return nil, err
		}
	}

	body := &ast.BlockStmt{Position: pos(start)}
	for {
		p.skipTerminators()
		if p.accept(lexer.TokenPunc, "}") {
			break
		}
		if p.cur().Type == lexer.TokenEOF {
			return nil, p.errorf("unterminated function body")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		body.Stmts = append(body.Stmts, stmt)
	}

	return &ast.FuncDecl{
		Name:     name.Text,
		Params:   params,
		Autos:    autos,
		Body:     body,
		Position: pos(start),
	}, nil
}

func (p *Parser) parseLetter(what string) (byte, error) {
	tok := p.cur()
	if tok.Type != lexer.TokenName || len(tok.Text) != 1 {
		return 0, p.errorf("expected single-letter %s, found %s", what, describe(tok))
	}
	p.advance()
	return tok.Text[0], nil
}

// Expression parsing, lowest precedence first.

func (p *Parser) parseExpr() (ast.Expression, error) {
	return p.parseAssign()
}

// parseAssign handles right-associative assignment
func (p *Parser) parseAssign() (ast.Expression, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.TokenOp, "=") {
		tok := p.advance()
		value, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		return &ast.AssignExpr{Target: left, Value: value, Position: pos(tok)}, nil
	}
	return left, nil
}

func (p *Parser) parseComparison() (ast.Expression, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for isComparison(p.cur()) {
		op := p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op.Text, Left: left, Right: right, Position: pos(op)}
	}
	return left, nil
}

func isComparison(tok lexer.Token) bool {
	if tok.Type != lexer.TokenOp {
		return false
	}
	switch tok.Text {
	case "<", ">", "<=", ">=", "==", "!=":
		return true
	}
	return false
}

func (p *Parser) parseAdditive() (ast.Expression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.TokenOp, "+") || p.at(lexer.TokenOp, "-") {
		op := p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op.Text, Left: left, Right: right, Position: pos(op)}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.TokenOp, "*") || p.at(lexer.TokenOp, "/") {
		op := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op.Text, Left: left, Right: right, Position: pos(op)}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	if p.at(lexer.TokenOp, "-") {
		tok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Operand: operand, Position: pos(tok)}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	tok := p.cur()
	switch {
	case tok.Type == lexer.TokenNumber:
		p.advance()
		return &ast.NumberLit{Digits: tok.Digits, Scale: tok.Scale, Position: pos(tok)}, nil
	case tok.Type == lexer.TokenKeyword && tok.Text == "scale":
		p.advance()
		return &ast.ScaleRef{Position: pos(tok)}, nil
	case tok.Type == lexer.TokenName:
		p.advance()
		if p.at(lexer.TokenPunc, "(") {
			return p.parseCall(tok)
		}
		if len(tok.Text) != 1 {
			return nil, &Error{Line: tok.Line, Column: tok.Column,
				Message: fmt.Sprintf("variable names are a single letter: %q", tok.Text)}
		}
		return &ast.VarRef{Name: tok.Text[0], Position: pos(tok)}, nil
	case tok.Type == lexer.TokenPunc && tok.Text == "(":
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenPunc, ")"); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return nil, p.errorf("unexpected %s in expression", describe(tok))
}

func (p *Parser) parseCall(name lexer.Token) (ast.Expression, error) {
	if _, err := p.expect(lexer.TokenPunc, "("); err != nil {
		return nil, err
	}
	call := &ast.CallExpr{Name: name.Text, Position: pos(name)}
	if !p.at(lexer.TokenPunc, ")") {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if !p.accept(lexer.TokenPunc, ",") {
				break
			}
		}
	}
	if _, err := p.expect(lexer.TokenPunc, ")"); err != nil {
		return nil, err
	}
	return call, nil
}
