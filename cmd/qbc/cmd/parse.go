package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Lex and parse a program and print its AST",
	Long: `Run the lexer and parser over a program and print the resulting AST,
without type-checking, compiling, or running it.

Examples:
  qbc parse game.bas
  qbc parse - < game.bas`,
	Args: cobra.ExactArgs(1),
	RunE: parseScript,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func parseScript(_ *cobra.Command, args []string) error {
	filename := args[0]
	source, err := readSource(filename)
	if err != nil {
		return err
	}

	program, ok := parseSource(filename, source)
	if !ok {
		return fmt.Errorf("%s: found errors", filename)
	}

	fmt.Println(program.String())
	return nil
}
