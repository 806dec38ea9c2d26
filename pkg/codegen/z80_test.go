package codegen

import (
	"strings"
	"testing"

	"github.com/bc80/bc80/pkg/ir"
	"github.com/bc80/bc80/pkg/parser"
	"github.com/bc80/bc80/pkg/semantic"
)

func generate(t *testing.T, src string) string {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	lowered, err := semantic.NewAnalyzer().Analyze(prog)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	var out strings.Builder
	if err := NewZ80Generator(&out).Generate(lowered); err != nil {
		t.Fatalf("generate: %v", err)
	}
	return out.String()
}

func TestGenerateLayout(t *testing.T) {
	asm := generate(t, "1+2")
	for _, want := range []string{
		"ORG $0000",
		"JP init",
		"ORG $0040",
		"LD SP, $FFFF",
		"rt_vpush:",
		"rt_add:",
		"rt_print:",
		"prog_main:",
		"HALT",
		"const_0:",
	} {
		if !strings.Contains(asm, want) {
			t.Errorf("assembly missing %q", want)
		}
	}
}

func TestGenerateFunctions(t *testing.T) {
	asm := generate(t, "define f(x) { return x }\nf(1)")
	for _, want := range []string{
		"fn_f:",
		"CALL fn_f",
		"CALL rt_leave",
	} {
		if !strings.Contains(asm, want) {
			t.Errorf("assembly missing %q", want)
		}
	}
}

func TestGenerateVarAddressing(t *testing.T) {
	asm := generate(t, "c=1; c")
	if !strings.Contains(asm, "var_base+56") {
		t.Error("variable c should live at var_base+56")
	}
}

func TestMultiplierWidthCheck(t *testing.T) {
	prog, err := parser.Parse("12345*67890")
	if err != nil {
		t.Fatal(err)
	}
	lowered, err := semantic.NewAnalyzer().Analyze(prog)
	if err != nil {
		t.Fatal(err)
	}
	var out strings.Builder
	if err := NewZ80Generator(&out).Generate(lowered); err == nil {
		t.Error("a product of two wide constants should be rejected")
	}

	// One narrow operand is fine: the runtime multiplies by it.
	asm := generate(t, "12345*9")
	if asm == "" {
		t.Error("narrow multiplier should generate")
	}
}

func TestGenerateREPL(t *testing.T) {
	var out strings.Builder
	if err := NewZ80Generator(&out).GenerateREPL(); err != nil {
		t.Fatal(err)
	}
	asm := out.String()
	for _, want := range []string{"repl_main:", "rt_read:", "rt_print:"} {
		if !strings.Contains(asm, want) {
			t.Errorf("REPL assembly missing %q", want)
		}
	}
}

func TestSigDigits(t *testing.T) {
	tests := []struct {
		c    ir.Const
		want int
	}{
		{ir.Const{Digits: "0"}, 0},
		{ir.Const{Digits: "7"}, 1},
		{ir.Const{Digits: "9999"}, 4},
		{ir.Const{Digits: "10000"}, 5},
	}
	for _, tt := range tests {
		if got := sigDigits(tt.c); got != tt.want {
			t.Errorf("sigDigits(%q) = %d, want %d", tt.c.Digits, got, tt.want)
		}
	}
}
