// Package codegen emits Z80 assembly for a lowered program: the reset
// prelude, the BCD runtime library, the translated bytecode and the
// constant pool. The z80asm package turns the text into ROM bytes.
package codegen

import (
	"fmt"
	"io"

	"github.com/bc80/bc80/pkg/ir"
)

// Error is a code generation error
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Memory map. ROM occupies 0x0000..0x7FFF, work RAM starts at 0x8000.
const (
	varBase    = 0x8000 // 26 variable records, 28 bytes each
	scaleAddr  = 0x82D8 // global scale, one byte
	opAddrA    = 0x8300 // scratch operand A
	opAddrB    = 0x8320 // scratch operand B
	opAddrR    = 0x8340 // scratch result
	opAddrT    = 0x8360 // scratch temp (remainder, scale conversion)
	mulScratch = 0x83A0 // sign, operand scales, product scale
	prScratch  = 0x83A8 // print cursor: pointer, nibble flag, scale
	rdScratch  = 0x83B0 // reader state: dot flag, scale, sign
	vspAddr    = 0x83C0 // value stack pointer, one word
	fpAddr     = 0x83C2 // frame pointer, one word
	vstackBase = 0x8400 // value stack, grows upward
	stackTop   = 0xFFFF // machine stack, grows downward
	ramClear   = 0x0600 // bytes of work RAM zeroed at reset
)

// ACIA ports: status bit 1 is TX-ready, bit 0 is RX-full
const (
	aciaStatus = 0x80
	aciaData   = 0x81
)

// maxMulDigits bounds the multiplier in the emitted multiply routine.
// The runtime picks the operand with fewer significant digits, so only
// a product of two wide operands is rejected, and only when both are
// compile-time constants.
const maxMulDigits = 4

// Z80Generator emits Z80 assembly from bytecode
type Z80Generator struct {
	writer  io.Writer
	prog    *ir.Program
	current *ir.Function
}

// NewZ80Generator creates a generator writing to w
func NewZ80Generator(w io.Writer) *Z80Generator {
	return &Z80Generator{writer: w}
}

func (g *Z80Generator) emit(format string, args ...interface{}) {
	fmt.Fprintf(g.writer, format+"\n", args...)
}

// Generate emits the complete assembly program
func (g *Z80Generator) Generate(prog *ir.Program) error {
	g.prog = prog
	if err := g.checkMultiplierWidth(prog); err != nil {
		return err
	}

	g.emit("; generated by bc80")
	g.emitEquates()
	g.emitVectors()
	g.emitInit("prog_main")
	g.emitRuntime()

	g.emit("")
	g.emit("prog_main:")
	if err := g.genBody(prog.Main); err != nil {
		return err
	}
	g.emit("    HALT")

	for _, fn := range prog.Funcs {
		g.emit("")
		g.emit("fn_%s:", fn.Name)
		g.current = fn
		if err := g.genBody(fn.Body); err != nil {
			return err
		}
		g.current = nil
	}

	g.emit("")
	g.emit("; constant pool")
	for i, c := range prog.Consts {
		rec, err := EncodeBCD(c)
		if err != nil {
			return err
		}
		g.emit("const_%d:", i)
		g.emitRecord(rec)
	}
	return nil
}

func (g *Z80Generator) emitRecord(rec []byte) {
	for off := 0; off < len(rec); off += 14 {
		end := off + 14
		if end > len(rec) {
			end = len(rec)
		}
		line := "    DB "
		for i := off; i < end; i++ {
			if i > off {
				line += ","
			}
			line += fmt.Sprintf("$%02X", rec[i])
		}
		g.emit("%s", line)
	}
}

func (g *Z80Generator) emitEquates() {
	g.emit("")
	g.emit("var_base   EQU $%04X", varBase)
	g.emit("scale_v    EQU $%04X", scaleAddr)
	g.emit("opa        EQU $%04X", opAddrA)
	g.emit("opb        EQU $%04X", opAddrB)
	g.emit("opr        EQU $%04X", opAddrR)
	g.emit("opt        EQU $%04X", opAddrT)
	g.emit("mul_sign   EQU $%04X", mulScratch)
	g.emit("mul_s1     EQU $%04X", mulScratch+1)
	g.emit("mul_s2     EQU $%04X", mulScratch+2)
	g.emit("mul_sp     EQU $%04X", mulScratch+3)
	g.emit("pr_ptr     EQU $%04X", prScratch)
	g.emit("pr_nib     EQU $%04X", prScratch+2)
	g.emit("pr_sc      EQU $%04X", prScratch+3)
	g.emit("rd_dot     EQU $%04X", rdScratch)
	g.emit("rd_sc      EQU $%04X", rdScratch+1)
	g.emit("rd_neg     EQU $%04X", rdScratch+2)
	g.emit("vsp        EQU $%04X", vspAddr)
	g.emit("fp         EQU $%04X", fpAddr)
	g.emit("vstack     EQU $%04X", vstackBase)
}

// emitVectors fills the reset vector and the RST slots
func (g *Z80Generator) emitVectors() {
	g.emit("")
	g.emit("    ORG $0000")
	g.emit("    JP init")
	for addr := 0x08; addr <= 0x38; addr += 8 {
		g.emit("    ORG $%04X", addr)
		g.emit("    RET")
	}
}

// emitInit zeroes the work RAM, sets up the stacks and falls into the
// program entry
func (g *Z80Generator) emitInit(entry string) {
	g.emit("")
	g.emit("    ORG $0040")
	g.emit("init:")
	g.emit("    LD SP, $%04X", stackTop)
	g.emit("    LD HL, $%04X", varBase)
	g.emit("    LD DE, $%04X", varBase+1)
	g.emit("    LD BC, $%04X", ramClear-1)
	g.emit("    LD (HL), 0")
	g.emit("    LDIR")
	g.emit("    LD HL, var_base+1")
	g.emit("    LD DE, 28")
	g.emit("    LD B, 26")
	g.emit("init_len:")
	g.emit("    LD (HL), 50")
	g.emit("    ADD HL, DE")
	g.emit("    DJNZ init_len")
	g.emit("    LD HL, vstack")
	g.emit("    LD (vsp), HL")
	g.emit("    LD HL, 0")
	g.emit("    LD (fp), HL")
	g.emit("    XOR A")
	g.emit("    LD (scale_v), A")
	g.emit("    JP %s", entry)
}

// genBody translates a bytecode sequence
func (g *Z80Generator) genBody(instrs []ir.Instruction) error {
	for _, ins := range instrs {
		if err := g.genInstr(ins); err != nil {
			return err
		}
	}
	return nil
}

func (g *Z80Generator) genInstr(ins ir.Instruction) error {
	switch ins.Op {
	case ir.OpNop:

	case ir.OpPushConst:
		g.emit("    LD HL, const_%d", ins.Imm)
		g.emit("    CALL rt_vpush")

	case ir.OpLoadVar:
		g.emit("    LD HL, var_base+%d          ; %s", varOffset(ins.Sym), ins.Sym)
		g.emit("    CALL rt_vpush")

	case ir.OpStoreVar:
		g.emit("    LD DE, var_base+%d          ; %s", varOffset(ins.Sym), ins.Sym)
		g.emit("    CALL rt_store")

	case ir.OpLoadLocal:
		g.emit("    LD HL, (fp)")
		if ins.Imm > 0 {
			g.emit("    LD DE, %d", ins.Imm*recordSize)
			g.emit("    ADD HL, DE")
		}
		g.emit("    CALL rt_vpush")

	case ir.OpStoreLocal:
		g.emit("    LD HL, (fp)")
		if ins.Imm > 0 {
			g.emit("    LD DE, %d", ins.Imm*recordSize)
			g.emit("    ADD HL, DE")
		}
		g.emit("    EX DE, HL")
		g.emit("    CALL rt_store")

	case ir.OpLoadScale:
		g.emit("    CALL rt_load_scale")

	case ir.OpStoreScale:
		g.emit("    CALL rt_store_scale")

	case ir.OpPop:
		g.emit("    CALL rt_drop")

	case ir.OpAdd:
		g.emit("    CALL rt_add")
	case ir.OpSub:
		g.emit("    CALL rt_sub")
	case ir.OpMul:
		g.emit("    CALL rt_mul")
	case ir.OpDiv:
		g.emit("    CALL rt_div")
	case ir.OpNeg:
		g.emit("    CALL rt_neg")

	case ir.OpCmpLt:
		g.emit("    CALL rt_cmp_lt")
	case ir.OpCmpLe:
		g.emit("    CALL rt_cmp_le")
	case ir.OpCmpGt:
		g.emit("    CALL rt_cmp_gt")
	case ir.OpCmpGe:
		g.emit("    CALL rt_cmp_ge")
	case ir.OpCmpEq:
		g.emit("    CALL rt_cmp_eq")
	case ir.OpCmpNe:
		g.emit("    CALL rt_cmp_ne")

	case ir.OpLabel:
		g.emit("l_%d:", ins.Label)

	case ir.OpJump:
		g.emit("    JP l_%d", ins.Label)

	case ir.OpJumpIfNot:
		g.emit("    CALL rt_truthy")
		g.emit("    JP Z, l_%d", ins.Label)

	case ir.OpCall:
		// Save the caller's frame pointer on the machine stack and
		// point the frame at the pushed arguments.
		g.emit("    LD HL, (fp)")
		g.emit("    PUSH HL")
		g.emit("    LD HL, (vsp)")
		if ins.Imm > 0 {
			g.emit("    LD DE, $%04X", 0x10000-ins.Imm*recordSize)
			g.emit("    ADD HL, DE")
		}
		g.emit("    LD (fp), HL")
		g.emit("    CALL fn_%s", ins.Sym)
		g.emit("    POP HL")
		g.emit("    LD (fp), HL")

	case ir.OpReturn:
		g.emit("    JP l_%d", ins.Label)

	case ir.OpEnterFrame:
		for i := 0; i < ins.Imm; i++ {
			g.emit("    CALL rt_push_zero")
		}

	case ir.OpLeaveFrame:
		g.emit("    CALL rt_leave")
		g.emit("    RET")

	case ir.OpPrint:
		g.emit("    CALL rt_print")

	default:
		return &Error{Message: fmt.Sprintf("cannot generate opcode %d", ins.Op)}
	}
	return nil
}

func varOffset(sym string) int {
	return int(sym[0]-'a') * recordSize
}

// checkMultiplierWidth rejects a product of two constants that both
// exceed the multiplier width; the runtime would pick the narrower
// operand, but here neither qualifies.
func (g *Z80Generator) checkMultiplierWidth(prog *ir.Program) error {
	check := func(instrs []ir.Instruction) error {
		for i := 2; i < len(instrs); i++ {
			if instrs[i].Op != ir.OpMul {
				continue
			}
			a, b := instrs[i-2], instrs[i-1]
			if a.Op != ir.OpPushConst || b.Op != ir.OpPushConst {
				continue
			}
			if sigDigits(prog.Consts[a.Imm]) > maxMulDigits &&
				sigDigits(prog.Consts[b.Imm]) > maxMulDigits {
				return &Error{Message: fmt.Sprintf(
					"multiply needs an operand of at most %d significant digits", maxMulDigits)}
			}
		}
		return nil
	}
	if err := check(prog.Main); err != nil {
		return err
	}
	for _, fn := range prog.Funcs {
		if err := check(fn.Body); err != nil {
			return err
		}
	}
	return nil
}
