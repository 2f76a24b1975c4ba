package cmd

import (
	"fmt"
	"os"

	"github.com/thirawat27/QB-COM/internal/diagnostics"
	"github.com/thirawat27/QB-COM/internal/lexer"
	"github.com/thirawat27/QB-COM/pkg/token"
	"github.com/spf13/cobra"
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize <file>",
	Short: "Lex a program and print its token stream",
	Long: `Run only the lexer over a program and print one line per token, for
inspecting how the lexer classifies a source file without involving the
parser.

Examples:
  qbc tokenize game.bas
  qbc tokenize - < game.bas`,
	Args: cobra.ExactArgs(1),
	RunE: tokenizeScript,
}

func init() {
	rootCmd.AddCommand(tokenizeCmd)
}

func tokenizeScript(_ *cobra.Command, args []string) error {
	filename := args[0]
	source, err := readSource(filename)
	if err != nil {
		return err
	}

	l := lexer.New(source)
	for {
		tok := l.NextToken()
		fmt.Println(tok.String())
		if tok.Type == token.EOF {
			break
		}
	}
	if errs := l.Errors(); len(errs) > 0 {
		fmt.Fprint(os.Stderr, diagnostics.FormatErrors(diagnostics.FromLexErrors(errs), source))
		return fmt.Errorf("%s: found lex errors", filename)
	}
	return nil
}
