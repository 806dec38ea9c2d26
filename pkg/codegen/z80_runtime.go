package codegen

// emitRuntime emits the BCD runtime library. Every routine sits at a
// fixed label ahead of the program body. Records are addressed by their
// base; digit fields are the 25 packed bytes at offset 3, most
// significant digit first, so byte-wise compares order magnitudes and
// RLD/RRD walk one decimal place per byte.
func (g *Z80Generator) emitRuntime() {
	g.emitStackOps()
	g.emitDigitOps()
	g.emitArithmetic()
	g.emitCompare()
	g.emitScaleOps()
	g.emitPrint()
	g.emitSerial()
	g.emitReader()
}

// Value stack: 28-byte records at (vsp), growing upward. The machine
// stack at SP is reserved for CALL/RET and frame pointer saves.
func (g *Z80Generator) emitStackOps() {
	g.emit("")
	g.emit("rt_vpush:                   ; push a copy of the record at HL")
	g.emit("    LD DE, (vsp)")
	g.emit("    LD BC, 28")
	g.emit("    LDIR")
	g.emit("    LD (vsp), DE")
	g.emit("    RET")
	g.emit("")
	g.emit("rt_drop:                    ; drop the top record, HL -> it")
	g.emit("rt_pop_hl:")
	g.emit("    LD HL, (vsp)")
	g.emit("    LD BC, $FFE4")
	g.emit("    ADD HL, BC")
	g.emit("    LD (vsp), HL")
	g.emit("    RET")
	g.emit("")
	g.emit("rt_pop_opa:")
	g.emit("    CALL rt_pop_hl")
	g.emit("    LD DE, opa")
	g.emit("    LD BC, 28")
	g.emit("    LDIR")
	g.emit("    RET")
	g.emit("")
	g.emit("rt_pop_opb:")
	g.emit("    CALL rt_pop_hl")
	g.emit("    LD DE, opb")
	g.emit("    LD BC, 28")
	g.emit("    LDIR")
	g.emit("    RET")
	g.emit("")
	g.emit("rt_push_r:")
	g.emit("    LD HL, opr")
	g.emit("    JP rt_vpush")
	g.emit("")
	g.emit("rt_store:                   ; copy the top record to (DE), stack unchanged")
	g.emit("    LD HL, (vsp)")
	g.emit("    LD BC, $FFE4")
	g.emit("    ADD HL, BC")
	g.emit("    LD BC, 28")
	g.emit("    LDIR")
	g.emit("    RET")
	g.emit("")
	g.emit("rt_push_zero:               ; push a canonical zero record")
	g.emit("    LD HL, (vsp)")
	g.emit("    PUSH HL")
	g.emit("    LD B, 28")
	g.emit("    XOR A")
	g.emit("rpz_loop:")
	g.emit("    LD (HL), A")
	g.emit("    INC HL")
	g.emit("    DJNZ rpz_loop")
	g.emit("    LD (vsp), HL")
	g.emit("    POP HL")
	g.emit("    INC HL")
	g.emit("    LD (HL), 50")
	g.emit("    RET")
	g.emit("")
	g.emit("rt_truthy:                  ; pop; Z when the value is zero")
	g.emit("    CALL rt_pop_hl")
	g.emit("    JP dig_test_zero")
	g.emit("")
	g.emit("rt_leave:                   ; move the result to the frame base, pop the frame")
	g.emit("    LD HL, (vsp)")
	g.emit("    LD BC, $FFE4")
	g.emit("    ADD HL, BC")
	g.emit("    LD DE, (fp)")
	g.emit("    LD BC, 28")
	g.emit("    LDIR")
	g.emit("    LD (vsp), DE")
	g.emit("    RET")
}

// Digit-field helpers. All but swap_ab preserve HL, DE and BC; results
// come back in A and the flags.
func (g *Z80Generator) emitDigitOps() {
	g.emit("")
	g.emit("dig_add:                    ; digits at (DE) += digits at (HL), packed BCD")
	g.emit("    PUSH BC")
	g.emit("    PUSH DE")
	g.emit("    PUSH HL")
	g.emit("    LD BC, 27")
	g.emit("    ADD HL, BC")
	g.emit("    EX DE, HL")
	g.emit("    ADD HL, BC")
	g.emit("    EX DE, HL")
	g.emit("    LD B, 25")
	g.emit("    OR A")
	g.emit("da_loop:")
	g.emit("    LD A, (DE)")
	g.emit("    ADC A, (HL)")
	g.emit("    DAA")
	g.emit("    LD (DE), A")
	g.emit("    DEC DE")
	g.emit("    DEC HL")
	g.emit("    DJNZ da_loop")
	g.emit("    POP HL")
	g.emit("    POP DE")
	g.emit("    POP BC")
	g.emit("    RET")
	g.emit("")
	g.emit("dig_sub:                    ; digits at (DE) -= digits at (HL); caller keeps (DE) >= (HL)")
	g.emit("    PUSH BC")
	g.emit("    PUSH DE")
	g.emit("    PUSH HL")
	g.emit("    LD BC, 27")
	g.emit("    ADD HL, BC")
	g.emit("    EX DE, HL")
	g.emit("    ADD HL, BC")
	g.emit("    EX DE, HL")
	g.emit("    LD B, 25")
	g.emit("    OR A")
	g.emit("ds_loop:")
	g.emit("    LD A, (DE)")
	g.emit("    SBC A, (HL)")
	g.emit("    DAA")
	g.emit("    LD (DE), A")
	g.emit("    DEC DE")
	g.emit("    DEC HL")
	g.emit("    DJNZ ds_loop")
	g.emit("    POP HL")
	g.emit("    POP DE")
	g.emit("    POP BC")
	g.emit("    RET")
	g.emit("")
	g.emit("dig_cmp:                    ; CY when digits at (DE) < digits at (HL), Z when equal")
	g.emit("    PUSH BC")
	g.emit("    PUSH DE")
	g.emit("    PUSH HL")
	g.emit("    INC DE")
	g.emit("    INC DE")
	g.emit("    INC DE")
	g.emit("    INC HL")
	g.emit("    INC HL")
	g.emit("    INC HL")
	g.emit("    LD B, 25")
	g.emit("dc_loop:")
	g.emit("    LD A, (DE)")
	g.emit("    CP (HL)")
	g.emit("    JR NZ, dc_done")
	g.emit("    INC DE")
	g.emit("    INC HL")
	g.emit("    DJNZ dc_loop")
	g.emit("dc_done:")
	g.emit("    POP HL")
	g.emit("    POP DE")
	g.emit("    POP BC")
	g.emit("    RET")
	g.emit("")
	g.emit("dig_shl:                    ; shift one place left; A = the dropped top digit")
	g.emit("    PUSH BC")
	g.emit("    PUSH HL")
	g.emit("    LD BC, 27")
	g.emit("    ADD HL, BC")
	g.emit("    LD B, 25")
	g.emit("    XOR A")
	g.emit("dsl_loop:")
	g.emit("    RLD")
	g.emit("    DEC HL")
	g.emit("    DJNZ dsl_loop")
	g.emit("    POP HL")
	g.emit("    POP BC")
	g.emit("    AND $0F")
	g.emit("    RET")
	g.emit("")
	g.emit("dig_shr:                    ; shift one place right, dropping the last digit")
	g.emit("    PUSH BC")
	g.emit("    PUSH HL")
	g.emit("    INC HL")
	g.emit("    INC HL")
	g.emit("    INC HL")
	g.emit("    LD B, 25")
	g.emit("    XOR A")
	g.emit("dsr_loop:")
	g.emit("    RRD")
	g.emit("    INC HL")
	g.emit("    DJNZ dsr_loop")
	g.emit("    POP HL")
	g.emit("    POP BC")
	g.emit("    RET")
	g.emit("")
	g.emit("dig_test_zero:              ; Z when every digit at (HL) is zero")
	g.emit("    PUSH BC")
	g.emit("    PUSH HL")
	g.emit("    INC HL")
	g.emit("    INC HL")
	g.emit("    INC HL")
	g.emit("    LD B, 25")
	g.emit("    XOR A")
	g.emit("dt_loop:")
	g.emit("    OR (HL)")
	g.emit("    INC HL")
	g.emit("    DJNZ dt_loop")
	g.emit("    OR A")
	g.emit("    POP HL")
	g.emit("    POP BC")
	g.emit("    RET")
	g.emit("")
	g.emit("rec_zero:                   ; clear the record at HL, nominal length 50")
	g.emit("    PUSH BC")
	g.emit("    PUSH HL")
	g.emit("    LD B, 28")
	g.emit("    XOR A")
	g.emit("rz_loop:")
	g.emit("    LD (HL), A")
	g.emit("    INC HL")
	g.emit("    DJNZ rz_loop")
	g.emit("    POP HL")
	g.emit("    PUSH HL")
	g.emit("    INC HL")
	g.emit("    LD (HL), 50")
	g.emit("    POP HL")
	g.emit("    POP BC")
	g.emit("    RET")
	g.emit("")
	g.emit("sig_count:                  ; A = significant digit count of the record at HL")
	g.emit("    PUSH BC")
	g.emit("    PUSH HL")
	g.emit("    INC HL")
	g.emit("    INC HL")
	g.emit("    INC HL")
	g.emit("    LD B, 25")
	g.emit("    LD C, 50")
	g.emit("sc_loop:")
	g.emit("    LD A, (HL)")
	g.emit("    AND $F0")
	g.emit("    JR NZ, sc_done")
	g.emit("    DEC C")
	g.emit("    LD A, (HL)")
	g.emit("    AND $0F")
	g.emit("    JR NZ, sc_done")
	g.emit("    DEC C")
	g.emit("    INC HL")
	g.emit("    DJNZ sc_loop")
	g.emit("sc_done:")
	g.emit("    LD A, C")
	g.emit("    POP HL")
	g.emit("    POP BC")
	g.emit("    RET")
	g.emit("")
	g.emit("swap_ab:                    ; exchange the scratch operands")
	g.emit("    LD HL, opa")
	g.emit("    LD DE, opb")
	g.emit("    LD B, 28")
	g.emit("swab_loop:")
	g.emit("    LD C, (HL)")
	g.emit("    LD A, (DE)")
	g.emit("    LD (HL), A")
	g.emit("    LD A, C")
	g.emit("    LD (DE), A")
	g.emit("    INC HL")
	g.emit("    INC DE")
	g.emit("    DJNZ swab_loop")
	g.emit("    RET")
}

func (g *Z80Generator) emitArithmetic() {
	// Signed add over magnitudes: equal signs add, differing signs
	// subtract the smaller magnitude from the larger and keep the
	// larger's sign. Scales are aligned first by padding the shorter
	// fraction with trailing zeros, so the result scale is the max.
	g.emit("")
	g.emit("add_core:                   ; opr = opa + opb")
	g.emit("    LD A, (opb+2)")
	g.emit("    LD HL, opa+2")
	g.emit("    CP (HL)")
	g.emit("    JR Z, ac_aligned")
	g.emit("    JR C, ac_shb")
	g.emit("    LD HL, opa")
	g.emit("    CALL dig_shl")
	g.emit("    LD HL, opa+2")
	g.emit("    INC (HL)")
	g.emit("    JR add_core")
	g.emit("ac_shb:")
	g.emit("    LD HL, opb")
	g.emit("    CALL dig_shl")
	g.emit("    LD HL, opb+2")
	g.emit("    INC (HL)")
	g.emit("    JR add_core")
	g.emit("ac_aligned:")
	g.emit("    LD A, (opa)")
	g.emit("    LD HL, opb")
	g.emit("    CP (HL)")
	g.emit("    JR NZ, ac_diff")
	g.emit("    LD HL, opa")
	g.emit("    LD DE, opr")
	g.emit("    LD BC, 28")
	g.emit("    LDIR")
	g.emit("    LD DE, opr")
	g.emit("    LD HL, opb")
	g.emit("    CALL dig_add")
	g.emit("    JR ac_canon")
	g.emit("ac_diff:")
	g.emit("    LD DE, opa")
	g.emit("    LD HL, opb")
	g.emit("    CALL dig_cmp")
	g.emit("    JR C, ac_flip")
	g.emit("    LD HL, opa")
	g.emit("    LD DE, opr")
	g.emit("    LD BC, 28")
	g.emit("    LDIR")
	g.emit("    LD DE, opr")
	g.emit("    LD HL, opb")
	g.emit("    CALL dig_sub")
	g.emit("    JR ac_canon")
	g.emit("ac_flip:")
	g.emit("    LD HL, opb")
	g.emit("    LD DE, opr")
	g.emit("    LD BC, 28")
	g.emit("    LDIR")
	g.emit("    LD DE, opr")
	g.emit("    LD HL, opa")
	g.emit("    CALL dig_sub")
	g.emit("ac_canon:                   ; zero never carries a sign")
	g.emit("    LD HL, opr")
	g.emit("    CALL dig_test_zero")
	g.emit("    RET NZ")
	g.emit("    XOR A")
	g.emit("    LD (opr), A")
	g.emit("    RET")
	g.emit("")
	g.emit("rt_add:")
	g.emit("    CALL rt_pop_opb")
	g.emit("    CALL rt_pop_opa")
	g.emit("    CALL add_core")
	g.emit("    JP rt_push_r")
	g.emit("")
	g.emit("cmp_core:                   ; opr = lhs - rhs")
	g.emit("    CALL rt_pop_opb")
	g.emit("    CALL rt_pop_opa")
	g.emit("    LD HL, opb")
	g.emit("    CALL dig_test_zero")
	g.emit("    JR Z, cc_add")
	g.emit("    LD A, (opb)")
	g.emit("    XOR $80")
	g.emit("    LD (opb), A")
	g.emit("cc_add:")
	g.emit("    JP add_core")
	g.emit("")
	g.emit("rt_sub:")
	g.emit("    CALL cmp_core")
	g.emit("    JP rt_push_r")
	g.emit("")
	g.emit("rt_neg:                     ; negate the top of stack in place")
	g.emit("    LD HL, (vsp)")
	g.emit("    LD BC, $FFE4")
	g.emit("    ADD HL, BC")
	g.emit("    CALL dig_test_zero")
	g.emit("    RET Z")
	g.emit("    LD A, (HL)")
	g.emit("    XOR $80")
	g.emit("    LD (HL), A")
	g.emit("    RET")

	// Multiply is repeated addition over the four low places of the
	// multiplier. The narrower operand is made the multiplier, so a
	// long factorial chain still multiplies by the small counter. The
	// product scale starts at s1+s2; a nonzero global scale truncates
	// it to max(scale, s1, s2).
	g.emit("")
	g.emit("rt_mul:")
	g.emit("    CALL rt_pop_opb")
	g.emit("    CALL rt_pop_opa")
	g.emit("    LD A, (opa)")
	g.emit("    LD HL, opb")
	g.emit("    XOR (HL)")
	g.emit("    LD (mul_sign), A")
	g.emit("    LD A, (opa+2)")
	g.emit("    LD (mul_s1), A")
	g.emit("    LD B, A")
	g.emit("    LD A, (opb+2)")
	g.emit("    LD (mul_s2), A")
	g.emit("    ADD A, B")
	g.emit("    LD (mul_sp), A")
	g.emit("    LD HL, opa")
	g.emit("    CALL sig_count")
	g.emit("    LD B, A")
	g.emit("    LD HL, opb")
	g.emit("    CALL sig_count")
	g.emit("    CP B")
	g.emit("    JR C, mul_go")
	g.emit("    JR Z, mul_go")
	g.emit("    CALL swap_ab")
	g.emit("mul_go:")
	g.emit("    LD HL, opr")
	g.emit("    CALL rec_zero")
	g.emit("    LD A, (opb+27)")
	g.emit("    AND $0F")
	g.emit("    CALL mul_addn")
	g.emit("    LD HL, opa")
	g.emit("    CALL dig_shl")
	g.emit("    LD A, (opb+27)")
	g.emit("    RRCA")
	g.emit("    RRCA")
	g.emit("    RRCA")
	g.emit("    RRCA")
	g.emit("    AND $0F")
	g.emit("    CALL mul_addn")
	g.emit("    LD HL, opa")
	g.emit("    CALL dig_shl")
	g.emit("    LD A, (opb+26)")
	g.emit("    AND $0F")
	g.emit("    CALL mul_addn")
	g.emit("    LD HL, opa")
	g.emit("    CALL dig_shl")
	g.emit("    LD A, (opb+26)")
	g.emit("    RRCA")
	g.emit("    RRCA")
	g.emit("    RRCA")
	g.emit("    RRCA")
	g.emit("    AND $0F")
	g.emit("    CALL mul_addn")
	g.emit("    LD A, (mul_sp)")
	g.emit("    CP 51")
	g.emit("    JR C, mul_scale")
	g.emit("    LD A, 50")
	g.emit("    LD (mul_sp), A")
	g.emit("mul_scale:")
	g.emit("    LD A, (scale_v)")
	g.emit("    OR A")
	g.emit("    JR Z, mul_fin")
	g.emit("    LD B, A")
	g.emit("    LD A, (mul_s1)")
	g.emit("    CP B")
	g.emit("    JR C, msc1")
	g.emit("    LD B, A")
	g.emit("msc1:")
	g.emit("    LD A, (mul_s2)")
	g.emit("    CP B")
	g.emit("    JR C, msc2")
	g.emit("    LD B, A")
	g.emit("msc2:")
	g.emit("    LD A, (mul_sp)")
	g.emit("    SUB B")
	g.emit("    JR C, mul_fin")
	g.emit("    JR Z, mul_fin")
	g.emit("    LD C, B")
	g.emit("    LD B, A")
	g.emit("msc3:")
	g.emit("    LD HL, opr")
	g.emit("    CALL dig_shr")
	g.emit("    DJNZ msc3")
	g.emit("    LD A, C")
	g.emit("    LD (mul_sp), A")
	g.emit("mul_fin:")
	g.emit("    LD A, (mul_sp)")
	g.emit("    LD (opr+2), A")
	g.emit("    LD A, (mul_sign)")
	g.emit("    LD (opr), A")
	g.emit("    LD HL, opr")
	g.emit("    CALL dig_test_zero")
	g.emit("    JR NZ, mul_push")
	g.emit("    XOR A")
	g.emit("    LD (opr), A")
	g.emit("mul_push:")
	g.emit("    JP rt_push_r")
	g.emit("")
	g.emit("mul_addn:                   ; add the multiplicand into opr, A times")
	g.emit("    OR A")
	g.emit("    RET Z")
	g.emit("    LD B, A")
	g.emit("man_loop:")
	g.emit("    LD DE, opr")
	g.emit("    LD HL, opa")
	g.emit("    CALL dig_add")
	g.emit("    DJNZ man_loop")
	g.emit("    RET")

	// Long division. The dividend is pre-shifted by scale + s2 - s1
	// places so the integer quotient carries exactly scale fractional
	// digits; magnitudes divide, the sign is applied afterwards, so
	// truncation is toward zero.
	g.emit("")
	g.emit("rt_div:")
	g.emit("    CALL rt_pop_opb")
	g.emit("    CALL rt_pop_opa")
	g.emit("    LD HL, opb")
	g.emit("    CALL dig_test_zero")
	g.emit("    JP Z, rt_diverr")
	g.emit("    LD A, (opa)")
	g.emit("    LD HL, opb")
	g.emit("    XOR (HL)")
	g.emit("    LD (mul_sign), A")
	g.emit("    LD A, (scale_v)")
	g.emit("    LD HL, opb+2")
	g.emit("    ADD A, (HL)")
	g.emit("    LD HL, opa+2")
	g.emit("    SUB (HL)")
	g.emit("    JR Z, div_ready")
	g.emit("    JP M, div_shr")
	g.emit("    LD B, A")
	g.emit("div_shl_loop:")
	g.emit("    LD HL, opa")
	g.emit("    CALL dig_shl")
	g.emit("    DJNZ div_shl_loop")
	g.emit("    JR div_ready")
	g.emit("div_shr:")
	g.emit("    NEG")
	g.emit("    LD B, A")
	g.emit("div_shr_loop:")
	g.emit("    LD HL, opa")
	g.emit("    CALL dig_shr")
	g.emit("    DJNZ div_shr_loop")
	g.emit("div_ready:")
	g.emit("    LD HL, opr")
	g.emit("    CALL rec_zero")
	g.emit("    LD HL, opt")
	g.emit("    CALL rec_zero")
	g.emit("    LD B, 50")
	g.emit("div_loop:")
	g.emit("    PUSH BC")
	g.emit("    LD HL, opa")
	g.emit("    CALL dig_shl")
	g.emit("    LD C, A")
	g.emit("    LD HL, opt")
	g.emit("    CALL dig_shl")
	g.emit("    LD A, C")
	g.emit("    LD HL, opt+27")
	g.emit("    OR (HL)")
	g.emit("    LD (HL), A")
	g.emit("    LD HL, opr")
	g.emit("    CALL dig_shl")
	g.emit("    LD C, 0")
	g.emit("div_trial:")
	g.emit("    LD DE, opt")
	g.emit("    LD HL, opb")
	g.emit("    CALL dig_cmp")
	g.emit("    JR C, div_digit")
	g.emit("    CALL dig_sub")
	g.emit("    INC C")
	g.emit("    JR div_trial")
	g.emit("div_digit:")
	g.emit("    LD A, C")
	g.emit("    LD HL, opr+27")
	g.emit("    OR (HL)")
	g.emit("    LD (HL), A")
	g.emit("    POP BC")
	g.emit("    DJNZ div_loop")
	g.emit("    LD A, (scale_v)")
	g.emit("    LD (opr+2), A")
	g.emit("    LD A, (mul_sign)")
	g.emit("    LD (opr), A")
	g.emit("    LD HL, opr")
	g.emit("    CALL dig_test_zero")
	g.emit("    JR NZ, div_push")
	g.emit("    XOR A")
	g.emit("    LD (opr), A")
	g.emit("div_push:")
	g.emit("    JP rt_push_r")
	g.emit("")
	g.emit("rt_diverr:                  ; division by zero: marker, then stop")
	g.emit("    LD A, 'E'")
	g.emit("    CALL rt_putc")
	g.emit("    LD A, 13")
	g.emit("    CALL rt_putc")
	g.emit("    LD A, 10")
	g.emit("    CALL rt_putc")
	g.emit("    HALT")
}

// Comparisons reuse the subtract core and fold the result's sign and
// zero test into a pushed 0 or 1.
func (g *Z80Generator) emitCompare() {
	g.emit("")
	g.emit("rt_cmp_lt:")
	g.emit("    CALL cmp_core")
	g.emit("    LD A, (opr)")
	g.emit("    AND $80")
	g.emit("    JP NZ, push_one")
	g.emit("    JP push_false")
	g.emit("")
	g.emit("rt_cmp_le:")
	g.emit("    CALL cmp_core")
	g.emit("    LD A, (opr)")
	g.emit("    AND $80")
	g.emit("    JP NZ, push_one")
	g.emit("    LD HL, opr")
	g.emit("    CALL dig_test_zero")
	g.emit("    JP Z, push_one")
	g.emit("    JP push_false")
	g.emit("")
	g.emit("rt_cmp_gt:")
	g.emit("    CALL cmp_core")
	g.emit("    LD A, (opr)")
	g.emit("    AND $80")
	g.emit("    JP NZ, push_false")
	g.emit("    LD HL, opr")
	g.emit("    CALL dig_test_zero")
	g.emit("    JP Z, push_false")
	g.emit("    JP push_one")
	g.emit("")
	g.emit("rt_cmp_ge:")
	g.emit("    CALL cmp_core")
	g.emit("    LD A, (opr)")
	g.emit("    AND $80")
	g.emit("    JP NZ, push_false")
	g.emit("    JP push_one")
	g.emit("")
	g.emit("rt_cmp_eq:")
	g.emit("    CALL cmp_core")
	g.emit("    LD HL, opr")
	g.emit("    CALL dig_test_zero")
	g.emit("    JP Z, push_one")
	g.emit("    JP push_false")
	g.emit("")
	g.emit("rt_cmp_ne:")
	g.emit("    CALL cmp_core")
	g.emit("    LD HL, opr")
	g.emit("    CALL dig_test_zero")
	g.emit("    JP NZ, push_one")
	g.emit("")
	g.emit("push_false:")
	g.emit("    JP rt_push_zero")
	g.emit("")
	g.emit("push_one:")
	g.emit("    CALL rt_push_zero")
	g.emit("    LD HL, (vsp)")
	g.emit("    DEC HL")
	g.emit("    LD (HL), $01")
	g.emit("    RET")
}

func (g *Z80Generator) emitScaleOps() {
	// scale assignment keeps the integer part of the stored value and
	// clamps it to the 0..50 range; a negative value sets scale 0.
	g.emit("")
	g.emit("rt_store_scale:             ; scale = integer part of the top value")
	g.emit("    LD HL, (vsp)")
	g.emit("    LD BC, $FFE4")
	g.emit("    ADD HL, BC")
	g.emit("    LD DE, opt")
	g.emit("    LD BC, 28")
	g.emit("    LDIR")
	g.emit("    LD A, (opt)")
	g.emit("    OR A")
	g.emit("    JR Z, sts_pos")
	g.emit("    XOR A")
	g.emit("    JR sts_set")
	g.emit("sts_pos:")
	g.emit("    LD A, (opt+2)")
	g.emit("    OR A")
	g.emit("    JR Z, sts_whole")
	g.emit("    LD B, A")
	g.emit("sts_drop:")
	g.emit("    LD HL, opt")
	g.emit("    CALL dig_shr")
	g.emit("    DJNZ sts_drop")
	g.emit("sts_whole:")
	g.emit("    LD HL, opt+3")
	g.emit("    LD B, 24")
	g.emit("    XOR A")
	g.emit("sts_scan:")
	g.emit("    OR (HL)")
	g.emit("    INC HL")
	g.emit("    DJNZ sts_scan")
	g.emit("    OR A")
	g.emit("    JR NZ, sts_clamp")
	g.emit("    LD A, (opt+27)")
	g.emit("    LD B, A")
	g.emit("    AND $0F")
	g.emit("    LD C, A")
	g.emit("    LD A, B")
	g.emit("    RRCA")
	g.emit("    RRCA")
	g.emit("    RRCA")
	g.emit("    RRCA")
	g.emit("    AND $0F")
	g.emit("    LD B, A")
	g.emit("    ADD A, A")
	g.emit("    ADD A, A")
	g.emit("    ADD A, B")
	g.emit("    ADD A, A")
	g.emit("    ADD A, C")
	g.emit("    CP 51")
	g.emit("    JR C, sts_set")
	g.emit("sts_clamp:")
	g.emit("    LD A, 50")
	g.emit("sts_set:")
	g.emit("    LD (scale_v), A")
	g.emit("    RET")
	g.emit("")
	g.emit("rt_load_scale:              ; push scale as a one- or two-digit value")
	g.emit("    CALL rt_push_zero")
	g.emit("    LD A, (scale_v)")
	g.emit("    LD B, 0")
	g.emit("lsc_tens:")
	g.emit("    CP 10")
	g.emit("    JR C, lsc_ones")
	g.emit("    SUB 10")
	g.emit("    INC B")
	g.emit("    JR lsc_tens")
	g.emit("lsc_ones:")
	g.emit("    LD C, A")
	g.emit("    LD A, B")
	g.emit("    RLCA")
	g.emit("    RLCA")
	g.emit("    RLCA")
	g.emit("    RLCA")
	g.emit("    OR C")
	g.emit("    LD HL, (vsp)")
	g.emit("    DEC HL")
	g.emit("    LD (HL), A")
	g.emit("    RET")
}

// Decimal output: integer part with leading zeros suppressed, a bare 0
// only for a scale-0 zero, then '.' and exactly scale fractional
// digits, then CR LF.
func (g *Z80Generator) emitPrint() {
	g.emit("")
	g.emit("rt_print:")
	g.emit("    CALL rt_pop_opa")
	g.emit("    LD A, (opa)")
	g.emit("    AND $80")
	g.emit("    JR Z, prn_mag")
	g.emit("    LD A, '-'")
	g.emit("    CALL rt_putc")
	g.emit("prn_mag:")
	g.emit("    LD HL, opa+3")
	g.emit("    LD (pr_ptr), HL")
	g.emit("    XOR A")
	g.emit("    LD (pr_nib), A")
	g.emit("    LD A, (opa+2)")
	g.emit("    LD (pr_sc), A")
	g.emit("    LD B, A")
	g.emit("    LD A, 50")
	g.emit("    SUB B")
	g.emit("    OR A")
	g.emit("    JR Z, prn_frac")
	g.emit("    LD B, A")
	g.emit("    LD C, 0")
	g.emit("prn_int:")
	g.emit("    PUSH BC")
	g.emit("    CALL next_digit")
	g.emit("    POP BC")
	g.emit("    OR A")
	g.emit("    JR NZ, prn_put")
	g.emit("    LD A, C")
	g.emit("    OR A")
	g.emit("    JR Z, prn_skip")
	g.emit("    XOR A")
	g.emit("prn_put:")
	g.emit("    ADD A, '0'")
	g.emit("    PUSH BC")
	g.emit("    CALL rt_putc")
	g.emit("    POP BC")
	g.emit("    LD C, 1")
	g.emit("prn_skip:")
	g.emit("    DJNZ prn_int")
	g.emit("    LD A, C")
	g.emit("    OR A")
	g.emit("    JR NZ, prn_frac")
	g.emit("    LD A, (pr_sc)")
	g.emit("    OR A")
	g.emit("    JR NZ, prn_frac")
	g.emit("    LD A, '0'")
	g.emit("    CALL rt_putc")
	g.emit("prn_frac:")
	g.emit("    LD A, (pr_sc)")
	g.emit("    OR A")
	g.emit("    JR Z, prn_nl")
	g.emit("    LD B, A")
	g.emit("    LD A, '.'")
	g.emit("    PUSH BC")
	g.emit("    CALL rt_putc")
	g.emit("    POP BC")
	g.emit("prn_floop:")
	g.emit("    PUSH BC")
	g.emit("    CALL next_digit")
	g.emit("    ADD A, '0'")
	g.emit("    CALL rt_putc")
	g.emit("    POP BC")
	g.emit("    DJNZ prn_floop")
	g.emit("prn_nl:")
	g.emit("    LD A, 13")
	g.emit("    CALL rt_putc")
	g.emit("    LD A, 10")
	g.emit("    JP rt_putc")
	g.emit("")
	g.emit("next_digit:                 ; A = next digit of the print cursor")
	g.emit("    LD A, (pr_nib)")
	g.emit("    OR A")
	g.emit("    LD HL, (pr_ptr)")
	g.emit("    JR NZ, nd_low")
	g.emit("    LD A, 1")
	g.emit("    LD (pr_nib), A")
	g.emit("    LD A, (HL)")
	g.emit("    RRCA")
	g.emit("    RRCA")
	g.emit("    RRCA")
	g.emit("    RRCA")
	g.emit("    AND $0F")
	g.emit("    RET")
	g.emit("nd_low:")
	g.emit("    XOR A")
	g.emit("    LD (pr_nib), A")
	g.emit("    LD A, (HL)")
	g.emit("    INC HL")
	g.emit("    LD (pr_ptr), HL")
	g.emit("    AND $0F")
	g.emit("    RET")
}

// ACIA output: poll the status register for TX-ready, then write the
// data register. If the device never raises the bit this spins, which
// is the contract for the target hardware.
func (g *Z80Generator) emitSerial() {
	g.emit("")
	g.emit("rt_putc:")
	g.emit("    PUSH AF")
	g.emit("putc_wait:")
	g.emit("    IN A, ($%02X)", aciaStatus)
	g.emit("    AND $02")
	g.emit("    JR Z, putc_wait")
	g.emit("    POP AF")
	g.emit("    OUT ($%02X), A", aciaData)
	g.emit("    RET")
	g.emit("")
	g.emit("rt_getc:")
	g.emit("    IN A, ($%02X)", aciaStatus)
	g.emit("    AND $01")
	g.emit("    JR Z, rt_getc")
	g.emit("    IN A, ($%02X)", aciaData)
	g.emit("    RET")
}

// Decimal input: read characters until CR into opa, echoing as they
// arrive. Digits shift in from the right; a dot starts counting the
// scale; a leading '-' sets the sign. Used by the REPL ROM.
func (g *Z80Generator) emitReader() {
	g.emit("")
	g.emit("rt_read:")
	g.emit("    LD HL, opa")
	g.emit("    CALL rec_zero")
	g.emit("    XOR A")
	g.emit("    LD (rd_dot), A")
	g.emit("    LD (rd_sc), A")
	g.emit("    LD (rd_neg), A")
	g.emit("rd_next:")
	g.emit("    CALL rt_getc")
	g.emit("    CP 13")
	g.emit("    JR Z, rd_done")
	g.emit("    CP '-'")
	g.emit("    JR NZ, rd_dotq")
	g.emit("    CALL rt_putc")
	g.emit("    LD A, 1")
	g.emit("    LD (rd_neg), A")
	g.emit("    JR rd_next")
	g.emit("rd_dotq:")
	g.emit("    CP '.'")
	g.emit("    JR NZ, rd_digq")
	g.emit("    CALL rt_putc")
	g.emit("    LD A, 1")
	g.emit("    LD (rd_dot), A")
	g.emit("    JR rd_next")
	g.emit("rd_digq:")
	g.emit("    CP '0'")
	g.emit("    JR C, rd_next")
	g.emit("    CP '9'+1")
	g.emit("    JR NC, rd_next")
	g.emit("    CALL rt_putc")
	g.emit("    SUB '0'")
	g.emit("    LD C, A")
	g.emit("    LD HL, opa")
	g.emit("    CALL dig_shl")
	g.emit("    LD A, C")
	g.emit("    LD HL, opa+27")
	g.emit("    OR (HL)")
	g.emit("    LD (HL), A")
	g.emit("    LD A, (rd_dot)")
	g.emit("    OR A")
	g.emit("    JR Z, rd_next")
	g.emit("    LD HL, rd_sc")
	g.emit("    INC (HL)")
	g.emit("    JR rd_next")
	g.emit("rd_done:")
	g.emit("    LD A, (rd_sc)")
	g.emit("    LD (opa+2), A")
	g.emit("    LD A, (rd_neg)")
	g.emit("    OR A")
	g.emit("    JR Z, rd_canon")
	g.emit("    LD A, $80")
	g.emit("    LD (opa), A")
	g.emit("rd_canon:")
	g.emit("    LD HL, opa")
	g.emit("    CALL dig_test_zero")
	g.emit("    RET NZ")
	g.emit("    XOR A")
	g.emit("    LD (opa), A")
	g.emit("    RET")
}
