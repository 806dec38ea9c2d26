// Package semantic lowers the AST to bytecode, checking name and
// call-site rules on the way.
package semantic

import (
	"fmt"
	"strings"

	"github.com/bc80/bc80/pkg/ast"
	"github.com/bc80/bc80/pkg/ir"
)

// Error is a semantic error with a source position
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message)
}

// Analyzer lowers a program to bytecode
type Analyzer struct {
	prog       *ir.Program
	constIndex map[string]int
	funcs      map[string]*ir.Function
	labelCount int

	current *ir.Function // nil at top level
	locals  map[byte]int // letter -> frame slot in the current function
}

// NewAnalyzer creates an analyzer
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		prog:       &ir.Program{},
		constIndex: make(map[string]int),
		funcs:      make(map[string]*ir.Function),
	}
}

// Analyze lowers the program. Functions must be defined before their
// first call; self-recursion is allowed.
func (a *Analyzer) Analyze(prog *ast.Program) (*ir.Program, error) {
	for _, stmt := range prog.Stmts {
		if fn, ok := stmt.(*ast.FuncDecl); ok {
			if err := a.lowerFunc(fn); err != nil {
				return nil, err
			}
			continue
		}
		if err := a.lowerStmt(stmt, &a.prog.Main); err != nil {
			return nil, err
		}
	}
	return a.prog, nil
}

func (a *Analyzer) errorf(pos ast.Position, format string, args ...interface{}) error {
	return &Error{Line: pos.Line, Column: pos.Column, Message: fmt.Sprintf(format, args...)}
}

func (a *Analyzer) newLabel() int {
	a.labelCount++
	return a.labelCount
}

// intern adds a literal to the constant pool, deduplicating by the
// canonical digit string and scale.
func (a *Analyzer) intern(digits string, scale int) int {
	canon := strings.TrimLeft(digits, "0")
	if canon == "" {
		canon = "0"
	}
	key := fmt.Sprintf("%s@%d", canon, scale)
	if idx, ok := a.constIndex[key]; ok {
		return idx
	}
	idx := len(a.prog.Consts)
	a.prog.Consts = append(a.prog.Consts, ir.Const{Digits: canon, Scale: scale})
	a.constIndex[key] = idx
	return idx
}

func (a *Analyzer) zeroConst() int {
	return a.intern("0", 0)
}

func (a *Analyzer) lowerFunc(decl *ast.FuncDecl) error {
	if a.current != nil {
		return a.errorf(decl.Position, "define is not allowed inside a function")
	}
	if _, exists := a.funcs[decl.Name]; exists {
		return a.errorf(decl.Position, "function %s is already defined", decl.Name)
	}

	fn := &ir.Function{
		Name:   decl.Name,
		Params: decl.Params,
		Autos:  decl.Autos,
		Exit:   a.newLabel(),
	}
	locals := make(map[byte]int)
	for _, letter := range decl.Params {
		if _, dup := locals[letter]; dup {
			return a.errorf(decl.Position, "duplicate parameter %c in %s", letter, decl.Name)
		}
		locals[letter] = len(locals)
	}
	for _, letter := range decl.Autos {
		if _, dup := locals[letter]; dup {
			return a.errorf(decl.Position, "duplicate local %c in %s", letter, decl.Name)
		}
		locals[letter] = len(locals)
	}

	// Register before lowering the body so the function can call itself.
	a.funcs[decl.Name] = fn
	a.prog.Funcs = append(a.prog.Funcs, fn)

	a.current = fn
	a.locals = locals
	defer func() {
		a.current = nil
		a.locals = nil
	}()

	fn.Body = append(fn.Body, ir.Instruction{Op: ir.OpEnterFrame, Imm: len(decl.Autos)})
	for _, stmt := range decl.Body.Stmts {
		if err := a.lowerStmt(stmt, &fn.Body); err != nil {
			return err
		}
	}
	// Falling off the end returns zero.
	fn.Body = append(fn.Body,
		ir.Instruction{Op: ir.OpPushConst, Imm: a.zeroConst()},
		ir.Instruction{Op: ir.OpLabel, Label: fn.Exit},
		ir.Instruction{Op: ir.OpLeaveFrame},
	)
	return nil
}

func (a *Analyzer) lowerStmt(stmt ast.Statement, out *[]ir.Instruction) error {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		if err := a.lowerExpr(s.Expr, out); err != nil {
			return err
		}
		// An expression statement prints its value. Variable
		// assignments are silent; a scale assignment echoes.
		if assign, ok := s.Expr.(*ast.AssignExpr); ok {
			if _, isScale := assign.Target.(*ast.ScaleRef); !isScale {
				*out = append(*out, ir.Instruction{Op: ir.OpPop})
				return nil
			}
		}
		*out = append(*out, ir.Instruction{Op: ir.OpPrint})
		return nil

	case *ast.BlockStmt:
		for _, inner := range s.Stmts {
			if err := a.lowerStmt(inner, out); err != nil {
				return err
			}
		}
		return nil

	case *ast.IfStmt:
		elseLabel := a.newLabel()
		if err := a.lowerExpr(s.Cond, out); err != nil {
			return err
		}
		*out = append(*out, ir.Instruction{Op: ir.OpJumpIfNot, Label: elseLabel})
		if err := a.lowerStmt(s.Then, out); err != nil {
			return err
		}
		if s.Else == nil {
			*out = append(*out, ir.Instruction{Op: ir.OpLabel, Label: elseLabel})
			return nil
		}
		endLabel := a.newLabel()
		*out = append(*out,
			ir.Instruction{Op: ir.OpJump, Label: endLabel},
			ir.Instruction{Op: ir.OpLabel, Label: elseLabel},
		)
		if err := a.lowerStmt(s.Else, out); err != nil {
			return err
		}
		*out = append(*out, ir.Instruction{Op: ir.OpLabel, Label: endLabel})
		return nil

	case *ast.WhileStmt:
		top := a.newLabel()
		end := a.newLabel()
		*out = append(*out, ir.Instruction{Op: ir.OpLabel, Label: top})
		if err := a.lowerExpr(s.Cond, out); err != nil {
			return err
		}
		*out = append(*out, ir.Instruction{Op: ir.OpJumpIfNot, Label: end})
		if err := a.lowerStmt(s.Body, out); err != nil {
			return err
		}
		*out = append(*out,
			ir.Instruction{Op: ir.OpJump, Label: top},
			ir.Instruction{Op: ir.OpLabel, Label: end},
		)
		return nil

	case *ast.ForStmt:
		top := a.newLabel()
		end := a.newLabel()
		if err := a.lowerExpr(s.Init, out); err != nil {
			return err
		}
		*out = append(*out, ir.Instruction{Op: ir.OpPop})
		*out = append(*out, ir.Instruction{Op: ir.OpLabel, Label: top})
		if err := a.lowerExpr(s.Cond, out); err != nil {
			return err
		}
		*out = append(*out, ir.Instruction{Op: ir.OpJumpIfNot, Label: end})
		if err := a.lowerStmt(s.Body, out); err != nil {
			return err
		}
		if err := a.lowerExpr(s.Step, out); err != nil {
			return err
		}
		*out = append(*out,
			ir.Instruction{Op: ir.OpPop},
			ir.Instruction{Op: ir.OpJump, Label: top},
			ir.Instruction{Op: ir.OpLabel, Label: end},
		)
		return nil

	case *ast.ReturnStmt:
		if a.current == nil {
			return a.errorf(s.Position, "return outside of a function")
		}
		if s.Value != nil {
			if err := a.lowerExpr(s.Value, out); err != nil {
				return err
			}
		} else {
			*out = append(*out, ir.Instruction{Op: ir.OpPushConst, Imm: a.zeroConst()})
		}
		*out = append(*out, ir.Instruction{Op: ir.OpReturn, Label: a.current.Exit})
		return nil

	case *ast.FuncDecl:
		return a.errorf(s.Position, "define is not allowed inside a function")
	}
	return fmt.Errorf("unhandled statement %T", stmt)
}

func (a *Analyzer) lowerExpr(expr ast.Expression, out *[]ir.Instruction) error {
	switch e := expr.(type) {
	case *ast.NumberLit:
		*out = append(*out, ir.Instruction{Op: ir.OpPushConst, Imm: a.intern(e.Digits, e.Scale)})
		return nil

	case *ast.VarRef:
		if slot, ok := a.localSlot(e.Name); ok {
			*out = append(*out, ir.Instruction{Op: ir.OpLoadLocal, Imm: slot})
			return nil
		}
		*out = append(*out, ir.Instruction{Op: ir.OpLoadVar, Sym: string(e.Name)})
		return nil

	case *ast.ScaleRef:
		*out = append(*out, ir.Instruction{Op: ir.OpLoadScale})
		return nil

	case *ast.UnaryExpr:
		if err := a.lowerExpr(e.Operand, out); err != nil {
			return err
		}
		*out = append(*out, ir.Instruction{Op: ir.OpNeg})
		return nil

	case *ast.BinaryExpr:
		if err := a.lowerExpr(e.Left, out); err != nil {
			return err
		}
		if err := a.lowerExpr(e.Right, out); err != nil {
			return err
		}
		op, ok := binaryOps[e.Op]
		if !ok {
			return a.errorf(e.Position, "unknown operator %q", e.Op)
		}
		*out = append(*out, ir.Instruction{Op: op})
		return nil

	case *ast.CallExpr:
		fn, ok := a.funcs[e.Name]
		if !ok {
			return a.errorf(e.Position, "call to undefined function %s", e.Name)
		}
		if len(e.Args) != len(fn.Params) {
			return a.errorf(e.Position, "%s takes %d arguments, got %d",
				e.Name, len(fn.Params), len(e.Args))
		}
		for _, arg := range e.Args {
			if err := a.lowerExpr(arg, out); err != nil {
				return err
			}
		}
		*out = append(*out, ir.Instruction{Op: ir.OpCall, Sym: e.Name, Imm: len(e.Args)})
		return nil

	case *ast.AssignExpr:
		if err := a.lowerExpr(e.Value, out); err != nil {
			return err
		}
		switch target := e.Target.(type) {
		case *ast.VarRef:
			if slot, ok := a.localSlot(target.Name); ok {
				*out = append(*out, ir.Instruction{Op: ir.OpStoreLocal, Imm: slot})
				return nil
			}
			*out = append(*out, ir.Instruction{Op: ir.OpStoreVar, Sym: string(target.Name)})
			return nil
		case *ast.ScaleRef:
			*out = append(*out, ir.Instruction{Op: ir.OpStoreScale})
			return nil
		}
		return a.errorf(e.Position, "invalid assignment target")
	}
	return fmt.Errorf("unhandled expression %T", expr)
}

func (a *Analyzer) localSlot(letter byte) (int, bool) {
	if a.locals == nil {
		return 0, false
	}
	slot, ok := a.locals[letter]
	return slot, ok
}

var binaryOps = map[string]ir.Opcode{
	"+":  ir.OpAdd,
	"-":  ir.OpSub,
	"*":  ir.OpMul,
	"/":  ir.OpDiv,
	"<":  ir.OpCmpLt,
	"<=": ir.OpCmpLe,
	">":  ir.OpCmpGt,
	">=": ir.OpCmpGe,
	"==": ir.OpCmpEq,
	"!=": ir.OpCmpNe,
}
