// Package compiler drives the pipeline: source text in, ROM image out.
package compiler

import (
	"fmt"
	"strings"

	"github.com/bc80/bc80/pkg/codegen"
	"github.com/bc80/bc80/pkg/parser"
	"github.com/bc80/bc80/pkg/semantic"
	"github.com/bc80/bc80/pkg/z80asm"
)

// DefaultROMSize is the pad target for emitted images
const DefaultROMSize = 8192

// romCeiling is the end of the ROM address space
const romCeiling = 0x8000

// Artifact is the result of a build
type Artifact struct {
	ROM     []byte
	Asm     string
	Symbols map[string]uint16
}

// Build compiles a source program into a padded ROM image
func Build(source string) (*Artifact, error) {
	return BuildSized(source, DefaultROMSize)
}

// BuildSized compiles with an explicit pad target, which must be a
// power of two no larger than the 32K ROM window.
func BuildSized(source string, romSize int) (*Artifact, error) {
	if err := checkROMSize(romSize); err != nil {
		return nil, err
	}
	prog, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	lowered, err := semantic.NewAnalyzer().Analyze(prog)
	if err != nil {
		return nil, err
	}
	var asm strings.Builder
	gen := codegen.NewZ80Generator(&asm)
	if err := gen.Generate(lowered); err != nil {
		return nil, err
	}
	return assemble(asm.String(), romSize)
}

// BuildREPL emits the bundled REPL ROM
func BuildREPL(romSize int) (*Artifact, error) {
	if err := checkROMSize(romSize); err != nil {
		return nil, err
	}
	var asm strings.Builder
	gen := codegen.NewZ80Generator(&asm)
	if err := gen.GenerateREPL(); err != nil {
		return nil, err
	}
	return assemble(asm.String(), romSize)
}

func assemble(asm string, romSize int) (*Artifact, error) {
	result, err := z80asm.NewAssembler().Assemble(asm)
	if err != nil {
		return nil, err
	}
	size := int(result.Origin) + len(result.Binary)
	for size > romSize {
		romSize *= 2
	}
	if romSize > romCeiling {
		return nil, &codegen.Error{Message: fmt.Sprintf(
			"program needs %d bytes, exceeding the 32K ROM window", size)}
	}
	rom := make([]byte, romSize)
	copy(rom[result.Origin:], result.Binary)
	return &Artifact{ROM: rom, Asm: asm, Symbols: result.Symbols}, nil
}

func checkROMSize(romSize int) error {
	if romSize <= 0 || romSize&(romSize-1) != 0 || romSize > romCeiling {
		return &codegen.Error{Message: fmt.Sprintf(
			"ROM size must be a power of two up to 32K, got %d", romSize)}
	}
	return nil
}
