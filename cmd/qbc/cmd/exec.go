package cmd

import (
	"fmt"
	"os"

	"github.com/thirawat27/QB-COM/internal/bytecode"
	"github.com/thirawat27/QB-COM/internal/host"
	"github.com/spf13/cobra"
)

var execCmd = &cobra.Command{
	Use:   "exec <image.qbx>",
	Short: "Run a previously compiled bytecode image",
	Long: `Load a .qbx bytecode image written by "qbc build" and execute it
directly, skipping the lex/parse/compile steps.

Examples:
  qbc exec game.qbx`,
	Args: cobra.ExactArgs(1),
	RunE: execImage,
}

func init() {
	rootCmd.AddCommand(execCmd)
}

func execImage(_ *cobra.Command, args []string) error {
	filename := args[0]
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}

	chunk, err := bytecode.NewSerializer().DeserializeChunk(data)
	if err != nil {
		return fmt.Errorf("loading bytecode image: %w", err)
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
		fmt.Fprintln(os.Stderr, rerr.Error())
		return fmt.Errorf("runtime error")
	}
	return nil
}
