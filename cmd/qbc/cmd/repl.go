package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/thirawat27/QB-COM/internal/bytecode"
	"github.com/thirawat27/QB-COM/internal/diagnostics"
	"github.com/thirawat27/QB-COM/internal/host"
	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive read-eval-print loop",
	Long: `Read one line at a time, appending it to a running program, and
re-analyze, recompile, and re-run the accumulated program after every
line — so DIM'd variables, SUBs, and FUNCTIONs defined on earlier lines
stay in scope for later ones. Only the output produced by the newest
line is printed; earlier lines' output is not repeated.`,
	Args: cobra.NoArgs,
	RunE: runRepl,
}

func init() {
	rootCmd.AddCommand(replCmd)
}

func runRepl(_ *cobra.Command, _ []string) error {
	fmt.Fprintln(os.Stderr, "qbc repl — blank lines are ignored, Ctrl-D to exit")
	scanner := bufio.NewScanner(os.Stdin)

	var source strings.Builder
	var printed int

	for {
		fmt.Fprint(os.Stderr, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(os.Stderr)
			return nil
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		candidate := source.String() + line + "\n"

		program, ok := parseSource("<repl>", candidate)
		if !ok {
			continue
		}

		ctx, ok := analyzeSource(candidate, program)
		if !ok {
			continue
		}

		chunk, err := bytecode.Compile(program, ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "compile error: %v\n", err)
			continue
		}

		var out strings.Builder
		h := host.New(&out, os.Stdin)
		vm := bytecode.NewVM(chunk, h)
		rerr, err := vm.Run()
		h.CloseAllChannels()
		if err != nil {
			fmt.Fprintf(os.Stderr, "internal VM error: %v\n", err)
			continue
		}
		if rerr != nil {
			se := diagnostics.FromRuntimeError(rerr)
			fmt.Fprint(os.Stderr, se.Format(candidate))
			continue
		}

		if full := out.String(); len(full) > printed {
			fmt.Print(full[printed:])
			printed = len(full)
		}
		source.WriteString(line + "\n")
	}
}
