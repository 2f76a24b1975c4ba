package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/thirawat27/QB-COM/internal/bytecode"
	"github.com/spf13/cobra"
)

var (
	outputFile    string
	buildDisasm   bool
)

var buildCmd = &cobra.Command{
	Use:   "build <file>",
	Short: "Compile a BASIC program to a bytecode image",
	Long: `Lex, parse, type-check, and compile a BASIC program, writing the
result as a binary bytecode image (default extension .qbx) that
"qbc exec" can load and run without recompiling.

Examples:
  qbc build game.bas                # writes game.qbx
  qbc build game.bas -o out.qbx
  qbc build game.bas --disasm`,
	Args: cobra.ExactArgs(1),
	RunE: buildScript,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: <input>.qbx)")
	buildCmd.Flags().BoolVar(&buildDisasm, "disasm", false, "print disassembled bytecode after compiling")
}

func buildScript(_ *cobra.Command, args []string) error {
	filename := args[0]
	source, err := readSource(filename)
	if err != nil {
		return err
	}

	program, ok := parseSource(filename, source)
	if !ok {
		return fmt.Errorf("compilation failed")
	}

	ctx, ok := analyzeSource(source, program)
	if !ok {
		return fmt.Errorf("compilation failed")
	}

	chunk, err := bytecode.Compile(program, ctx)
	if err != nil {
		return fmt.Errorf("bytecode compilation failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "compiled %s: %d instructions, %d constants, %d procs\n",
			filename, len(chunk.Code), len(chunk.Constants), len(chunk.Procs))
	}

	if buildDisasm {
		bytecode.NewDisassembler(chunk, os.Stderr).Disassemble()
	}

	data, err := bytecode.NewSerializer().SerializeChunk(chunk)
	if err != nil {
		return fmt.Errorf("serializing bytecode: %w", err)
	}

	outFile := outputFile
	if outFile == "" {
		ext := filepath.Ext(filename)
		if ext != "" {
			outFile = strings.TrimSuffix(filename, ext) + ".qbx"
		} else {
			outFile = filename + ".qbx"
		}
	}
	if err := os.WriteFile(outFile, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", outFile, err)
	}

	fmt.Printf("compiled %s -> %s (%d bytes)\n", filename, outFile, len(data))
	return nil
}
