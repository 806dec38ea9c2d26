// Package z80testing runs compiled programs end to end on the emulator
// and checks their serial output.
package z80testing

import (
	"strings"
	"testing"

	"github.com/bc80/bc80/pkg/compiler"
	"github.com/bc80/bc80/pkg/emulator"
)

// Harness compiles sources and runs the resulting ROMs
type Harness struct {
	t *testing.T
}

// NewHarness creates a harness bound to a test
func NewHarness(t *testing.T) *Harness {
	return &Harness{t: t}
}

// Compile builds a ROM image, failing the test on a compile error
func (h *Harness) Compile(source string) []byte {
	h.t.Helper()
	artifact, err := compiler.Build(source)
	if err != nil {
		h.t.Fatalf("compile failed: %v\nsource:\n%s", err, source)
	}
	return artifact.ROM
}

// Run compiles and executes a program, returning its serial output
// with CR LF line endings normalized to \n
func (h *Harness) Run(source string) string {
	h.t.Helper()
	rom := h.Compile(source)
	machine, err := emulator.NewMachine(rom)
	if err != nil {
		h.t.Fatalf("machine setup failed: %v", err)
	}
	if err := machine.Run(); err != nil {
		h.t.Fatalf("execution failed: %v\nsource:\n%s", err, source)
	}
	return normalize(machine.Output())
}

// Lines runs a program and splits its output into lines
func (h *Harness) Lines(source string) []string {
	h.t.Helper()
	out := strings.TrimSuffix(h.Run(source), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func normalize(raw []byte) string {
	return strings.ReplaceAll(string(raw), "\r\n", "\n")
}
