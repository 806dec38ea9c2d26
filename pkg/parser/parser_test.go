package parser

import (
	"testing"

	"github.com/bc80/bc80/pkg/ast"
)

func parseOne(t *testing.T, src string) ast.Statement {
	t.Helper()
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	if len(prog.Stmts) != 1 {
		t.Fatalf("parse %q: got %d statements, want 1", src, len(prog.Stmts))
	}
	return prog.Stmts[0]
}

func exprOf(t *testing.T, src string) ast.Expression {
	t.Helper()
	stmt, ok := parseOne(t, src).(*ast.ExprStmt)
	if !ok {
		t.Fatalf("parse %q: not an expression statement", src)
	}
	return stmt.Expr
}

func TestPrecedence(t *testing.T) {
	// 2+3*4 parses as 2+(3*4)
	add, ok := exprOf(t, "2+3*4").(*ast.BinaryExpr)
	if !ok || add.Op != "+" {
		t.Fatalf("top operator should be +, got %#v", add)
	}
	mul, ok := add.Right.(*ast.BinaryExpr)
	if !ok || mul.Op != "*" {
		t.Fatalf("right operand should be a product, got %#v", add.Right)
	}
}

func TestAssociativity(t *testing.T) {
	// 10-20-30 parses as (10-20)-30
	sub, ok := exprOf(t, "10-20-30").(*ast.BinaryExpr)
	if !ok || sub.Op != "-" {
		t.Fatalf("top operator should be -, got %#v", sub)
	}
	if _, ok := sub.Left.(*ast.BinaryExpr); !ok {
		t.Fatalf("subtraction should associate left, got %#v", sub.Left)
	}
}

func TestParentheses(t *testing.T) {
	mul, ok := exprOf(t, "(2+3)*4").(*ast.BinaryExpr)
	if !ok || mul.Op != "*" {
		t.Fatalf("top operator should be *, got %#v", mul)
	}
	if _, ok := mul.Left.(*ast.BinaryExpr); !ok {
		t.Fatalf("left operand should be the parenthesized sum")
	}
}

func TestAssignmentRightAssociative(t *testing.T) {
	outer, ok := exprOf(t, "a = b = 5").(*ast.AssignExpr)
	if !ok {
		t.Fatal("expected an assignment")
	}
	if _, ok := outer.Value.(*ast.AssignExpr); !ok {
		t.Fatalf("assignment should nest to the right, got %#v", outer.Value)
	}
}

func TestScalePseudoVariable(t *testing.T) {
	assign, ok := exprOf(t, "scale = 2").(*ast.AssignExpr)
	if !ok {
		t.Fatal("expected an assignment")
	}
	if _, ok := assign.Target.(*ast.ScaleRef); !ok {
		t.Fatalf("target should be scale, got %#v", assign.Target)
	}
	if _, ok := exprOf(t, "scale").(*ast.ScaleRef); !ok {
		t.Fatal("scale should parse as an rvalue")
	}
}

func TestUnaryMinus(t *testing.T) {
	neg, ok := exprOf(t, "-5").(*ast.UnaryExpr)
	if !ok {
		t.Fatalf("expected a unary minus")
	}
	if _, ok := neg.Operand.(*ast.NumberLit); !ok {
		t.Fatalf("operand should be a literal")
	}
}

func TestIfElse(t *testing.T) {
	stmt, ok := parseOne(t, "if (a < 2) 1 else 2").(*ast.IfStmt)
	if !ok {
		t.Fatal("expected an if statement")
	}
	if stmt.Else == nil {
		t.Error("else branch missing")
	}
	noElse, ok := parseOne(t, "if (a < 2) 1").(*ast.IfStmt)
	if !ok || noElse.Else != nil {
		t.Error("missing else should be legal and empty")
	}
}

func TestForHeader(t *testing.T) {
	stmt, ok := parseOne(t, "for (i=0; i<10; i=i+1) s=s+i").(*ast.ForStmt)
	if !ok {
		t.Fatal("expected a for statement")
	}
	if _, ok := stmt.Init.(*ast.AssignExpr); !ok {
		t.Error("init clause should be an assignment")
	}
	if _, ok := stmt.Cond.(*ast.BinaryExpr); !ok {
		t.Error("cond clause should be a comparison")
	}
}

func TestDefine(t *testing.T) {
	src := "define fact(n) {\n auto r\n r = 1\n return r\n}"
	decl, ok := parseOne(t, src).(*ast.FuncDecl)
	if !ok {
		t.Fatal("expected a function definition")
	}
	if decl.Name != "fact" || len(decl.Params) != 1 || decl.Params[0] != 'n' {
		t.Errorf("bad header: %#v", decl)
	}
	if len(decl.Autos) != 1 || decl.Autos[0] != 'r' {
		t.Errorf("bad autos: %v", decl.Autos)
	}
	if len(decl.Body.Stmts) != 2 {
		t.Errorf("got %d body statements, want 2", len(decl.Body.Stmts))
	}
}

func TestCall(t *testing.T) {
	call, ok := exprOf(t, "f(1, 2+3)").(*ast.CallExpr)
	if !ok {
		t.Fatal("expected a call")
	}
	if call.Name != "f" || len(call.Args) != 2 {
		t.Errorf("bad call: %#v", call)
	}
}

func TestStatementTerminators(t *testing.T) {
	prog, err := Parse("1; 2\n3")
	if err != nil {
		t.Fatal(err)
	}
	if len(prog.Stmts) != 3 {
		t.Errorf("got %d statements, want 3", len(prog.Stmts))
	}
}

func TestErrors(t *testing.T) {
	bad := []string{
		"(1+2",
		"if (1 1",
		"define (a) { }",
		"define f(ab) { }",
		"for (1; 2) 3",
		"ab",
		"1 +",
		"{ 1",
	}
	for _, src := range bad {
		if _, err := Parse(src); err == nil {
			t.Errorf("%q should fail to parse", src)
		}
	}
}
