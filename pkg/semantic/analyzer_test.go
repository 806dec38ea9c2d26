package semantic

import (
	"testing"

	"github.com/bc80/bc80/pkg/ir"
	"github.com/bc80/bc80/pkg/parser"
)

func lower(t *testing.T, src string) *ir.Program {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	lowered, err := NewAnalyzer().Analyze(prog)
	if err != nil {
		t.Fatalf("lower %q: %v", src, err)
	}
	return lowered
}

func lowerErr(t *testing.T, src string) error {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	_, err = NewAnalyzer().Analyze(prog)
	return err
}

func ops(instrs []ir.Instruction) []ir.Opcode {
	out := make([]ir.Opcode, len(instrs))
	for i, ins := range instrs {
		out[i] = ins.Op
	}
	return out
}

func TestExpressionStatementPrints(t *testing.T) {
	prog := lower(t, "1+2")
	want := []ir.Opcode{ir.OpPushConst, ir.OpPushConst, ir.OpAdd, ir.OpPrint}
	got := ops(prog.Main)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestVariableAssignmentIsSilent(t *testing.T) {
	prog := lower(t, "a=5")
	got := ops(prog.Main)
	if got[len(got)-1] != ir.OpPop {
		t.Errorf("a variable assignment statement should end in pop, got %v", got)
	}
}

func TestScaleAssignmentEchoes(t *testing.T) {
	prog := lower(t, "scale=2")
	got := ops(prog.Main)
	if got[len(got)-1] != ir.OpPrint {
		t.Errorf("a scale assignment statement should end in print, got %v", got)
	}
	if got[len(got)-2] != ir.OpStoreScale {
		t.Errorf("expected store_scale before print, got %v", got)
	}
}

func TestConstantInterning(t *testing.T) {
	prog := lower(t, "2+2; 2.0+2")
	// "2" appears three times and is interned once; "2.0" differs by scale
	if len(prog.Consts) != 2 {
		t.Errorf("got %d constants, want 2: %v", len(prog.Consts), prog.Consts)
	}
}

func TestLeadingZerosCanonicalized(t *testing.T) {
	prog := lower(t, "007; 7")
	if len(prog.Consts) != 1 {
		t.Errorf("007 and 7 should intern to one constant, got %v", prog.Consts)
	}
}

func TestLocalSlots(t *testing.T) {
	prog := lower(t, "define f(a, b) { auto c\n return c }")
	fn := prog.Func("f")
	if fn == nil {
		t.Fatal("function not registered")
	}
	if fn.Body[0].Op != ir.OpEnterFrame || fn.Body[0].Imm != 1 {
		t.Errorf("body should open with enter_frame 1, got %v", fn.Body[0])
	}
	var sawLocal bool
	for _, ins := range fn.Body {
		if ins.Op == ir.OpLoadLocal && ins.Imm == 2 {
			sawLocal = true
		}
	}
	if !sawLocal {
		t.Error("auto c should occupy slot 2 after the two parameters")
	}
}

func TestGlobalsInsideFunctions(t *testing.T) {
	prog := lower(t, "define f(a) { return a + b }")
	fn := prog.Func("f")
	var sawVar bool
	for _, ins := range fn.Body {
		if ins.Op == ir.OpLoadVar && ins.Sym == "b" {
			sawVar = true
		}
	}
	if !sawVar {
		t.Error("b should resolve to the global variable")
	}
}

func TestImplicitReturnZero(t *testing.T) {
	prog := lower(t, "define f() { 1 }")
	fn := prog.Func("f")
	n := len(fn.Body)
	if fn.Body[n-1].Op != ir.OpLeaveFrame || fn.Body[n-2].Op != ir.OpLabel ||
		fn.Body[n-3].Op != ir.OpPushConst {
		t.Errorf("body should end with an implicit zero return, got %v", ops(fn.Body))
	}
}

func TestWhileShape(t *testing.T) {
	prog := lower(t, "while (1) 2")
	got := ops(prog.Main)
	want := []ir.Opcode{
		ir.OpLabel, ir.OpPushConst, ir.OpJumpIfNot,
		ir.OpPushConst, ir.OpPrint, ir.OpJump, ir.OpLabel,
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestForDropsInitAndStep(t *testing.T) {
	prog := lower(t, "for (i=0; i<2; i=i+1) 5")
	count := 0
	for _, ins := range prog.Main {
		if ins.Op == ir.OpPop {
			count++
		}
	}
	if count != 2 {
		t.Errorf("init and step values should both be dropped, got %d pops", count)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"undefined-function", "f(1)"},
		{"forward-reference", "f(1)\ndefine f(x) { return x }"},
		{"return-at-top-level", "return 1"},
		{"argument-count", "define f(a, b) { return a }\nf(1)"},
		{"duplicate-define", "define f() { }\ndefine f() { }"},
		{"duplicate-param", "define f(a, a) { }"},
		{"assignment-to-expression", "1 = 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := lowerErr(t, tt.src); err == nil {
				t.Errorf("%q should fail", tt.src)
			}
		})
	}
}

func TestSelfRecursionAllowed(t *testing.T) {
	if err := lowerErr(t, "define f(n) { return f(n) }"); err != nil {
		t.Errorf("self recursion should lower, got %v", err)
	}
}
