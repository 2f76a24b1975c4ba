package cmd

import (
	"fmt"
	"os"

	"github.com/thirawat27/QB-COM/internal/bytecode"
	"github.com/thirawat27/QB-COM/internal/diagnostics"
	"github.com/thirawat27/QB-COM/internal/host"
	"github.com/spf13/cobra"
)

var (
	dumpAST    bool
	showDisasm bool
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Compile and run a BASIC program",
	Long: `Lex, parse, type-check, compile, and execute a BASIC program in one step.

Examples:
  qbc run game.bas
  qbc run - < game.bas      # read the program from stdin
  qbc run --dump-ast game.bas`,
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&dumpAST, "dump-ast", false, "print the parsed AST before running")
	runCmd.Flags().BoolVar(&showDisasm, "disasm", false, "print disassembled bytecode before running")
}

func runScript(_ *cobra.Command, args []string) error {
	filename := args[0]
	source, err := readSource(filename)
	if err != nil {
		return err
	}

	program, ok := parseSource(filename, source)
	if !ok {
		return fmt.Errorf("compilation failed")
	}

	if dumpAST {
		fmt.Println(program.String())
	}

	ctx, ok := analyzeSource(source, program)
	if !ok {
		return fmt.Errorf("compilation failed")
	}

	chunk, err := bytecode.Compile(program, ctx)
	if err != nil {
		return fmt.Errorf("bytecode compilation failed: %w", err)
	}

	if showDisasm {
		bytecode.NewDisassembler(chunk, os.Stderr).Disassemble()
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "running %s (%d instructions)\n", filename, len(chunk.Code))
	}

	h := host.New(os.Stdout, os.Stdin)
	defer h.CloseAllChannels()

	vm := bytecode.NewVM(chunk, h)
	if trace {
		vm.SetTracer(os.Stderr)
	}
	rerr, err := vm.Run()
	if err != nil {
		return err
	}
	if rerr != nil {
		se := diagnostics.FromRuntimeError(rerr)
		fmt.Fprint(os.Stderr, se.Format(source))
		return fmt.Errorf("runtime error")
	}
	return nil
}
