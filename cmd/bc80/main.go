package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bc80/bc80/pkg/compiler"
	"github.com/bc80/bc80/pkg/lexer"
	"github.com/bc80/bc80/pkg/parser"
	"github.com/bc80/bc80/pkg/semantic"
	"github.com/bc80/bc80/pkg/version"
	"github.com/spf13/cobra"
)

var (
	romFile      string
	asmFile      string
	replFile     string
	romSize      int
	dumpTokens   bool
	dumpAST      bool
	dumpBytecode bool
	debug        bool
	showVersion  bool
)

var rootCmd = &cobra.Command{
	Use:   "bc80 [source file]",
	Short: "bc80 - bc compiler for Z80 machines " + version.GetVersion(),
	Long: `bc80 compiles a small bc-style arbitrary-precision calculator
language into a Z80 ROM image. Run the ROM on a machine with an
MC6850-style ACIA at ports $80/$81 and results arrive over serial.

EXAMPLES:
  bc80 sum.bc --rom sum.rom          # Compile to an 8K ROM
  bc80 sum.bc --asm sum.a80          # Write the assembly listing
  bc80 sum.bc --bytecode             # Dump the stack bytecode
  bc80 --repl repl.rom               # Emit the bundled REPL ROM`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			fmt.Println(version.GetFullVersion())
			return
		}
		if replFile != "" {
			if err := emitREPL(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
		if len(args) == 0 {
			cmd.Help()
			os.Exit(0)
		}
		if err := compile(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVar(&romFile, "rom", "", "output ROM image")
	rootCmd.Flags().StringVar(&asmFile, "asm", "", "output assembly listing")
	rootCmd.Flags().StringVar(&replFile, "repl", "", "emit the bundled REPL ROM")
	rootCmd.Flags().IntVar(&romSize, "rom-size", compiler.DefaultROMSize, "ROM pad size (power of two)")
	rootCmd.Flags().BoolVar(&dumpTokens, "tokens", false, "dump the token stream")
	rootCmd.Flags().BoolVar(&dumpAST, "ast", false, "dump the AST in JSON format")
	rootCmd.Flags().BoolVar(&dumpBytecode, "bytecode", false, "dump the stack bytecode")
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "show compilation details")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "show version")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func compile(sourceFile string) error {
	source, err := os.ReadFile(sourceFile)
	if err != nil {
		return err
	}
	if debug {
		fmt.Printf("Compiling %s...\n", sourceFile)
	}

	if dumpTokens {
		tokens, err := lexer.Tokenize(string(source))
		if err != nil {
			return err
		}
		for _, tok := range tokens {
			fmt.Println(tok)
		}
		return nil
	}

	if dumpAST {
		prog, err := parser.Parse(string(source))
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(prog)
	}

	if dumpBytecode {
		prog, err := parser.Parse(string(source))
		if err != nil {
			return err
		}
		lowered, err := semantic.NewAnalyzer().Analyze(prog)
		if err != nil {
			return err
		}
		fmt.Print(lowered)
		return nil
	}

	artifact, err := compiler.BuildSized(string(source), romSize)
	if err != nil {
		return err
	}
	if asmFile != "" {
		if err := os.WriteFile(asmFile, []byte(artifact.Asm), 0644); err != nil {
			return err
		}
		if debug {
			fmt.Printf("Wrote listing to %s\n", asmFile)
		}
	}
	if romFile != "" {
		if err := os.WriteFile(romFile, artifact.ROM, 0644); err != nil {
			return err
		}
		if debug {
			fmt.Printf("Wrote %d byte ROM to %s\n", len(artifact.ROM), romFile)
		}
	}
	if romFile == "" && asmFile == "" {
		return fmt.Errorf("nothing to do: pass --rom or --asm")
	}
	return nil
}

func emitREPL() error {
	artifact, err := compiler.BuildREPL(romSize)
	if err != nil {
		return err
	}
	if err := os.WriteFile(replFile, artifact.ROM, 0644); err != nil {
		return err
	}
	if debug {
		fmt.Printf("Wrote %d byte REPL ROM to %s\n", len(artifact.ROM), replFile)
	}
	return nil
}
