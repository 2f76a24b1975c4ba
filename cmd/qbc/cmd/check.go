package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Lex, parse, and type-check a program without compiling or running it",
	Long: `Report every lexical, syntax, and semantic diagnostic for a program and
exit nonzero if any were found, without generating or running bytecode.
Intended for editor integration and CI linting.`,
	Args: cobra.ExactArgs(1),
	RunE: checkScript,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func checkScript(_ *cobra.Command, args []string) error {
	filename := args[0]
	source, err := readSource(filename)
	if err != nil {
		return err
	}

	program, ok := parseSource(filename, source)
	if !ok {
		return fmt.Errorf("%s: found errors", filename)
	}
	if _, ok := analyzeSource(source, program); !ok {
		return fmt.Errorf("%s: found errors", filename)
	}

	fmt.Printf("%s: OK\n", filename)
	return nil
}
