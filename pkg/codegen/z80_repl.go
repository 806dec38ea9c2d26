package codegen

// GenerateREPL emits the bundled read-eval-print ROM: the same runtime
// library driven by a loop that prompts, parses one signed decimal
// number from the serial port and prints it back.
func (g *Z80Generator) GenerateREPL() error {
	g.emit("; bc80 REPL ROM")
	g.emitEquates()
	g.emitVectors()
	g.emitInit("repl_main")
	g.emitRuntime()
	g.emit("")
	g.emit("repl_main:")
	g.emit("    LD A, '>'")
	g.emit("    CALL rt_putc")
	g.emit("    LD A, ' '")
	g.emit("    CALL rt_putc")
	g.emit("    CALL rt_read")
	g.emit("    LD A, 13")
	g.emit("    CALL rt_putc")
	g.emit("    LD A, 10")
	g.emit("    CALL rt_putc")
	g.emit("    LD HL, opa")
	g.emit("    CALL rt_vpush")
	g.emit("    CALL rt_print")
	g.emit("    JP repl_main")
	return nil
}
