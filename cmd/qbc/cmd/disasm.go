package cmd

import (
	"fmt"
	"os"

	"github.com/thirawat27/QB-COM/internal/bytecode"
	"github.com/spf13/cobra"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm <image.qbx>",
	Short: "Disassemble a bytecode image",
	Args:  cobra.ExactArgs(1),
	RunE:  disasmImage,
}

func init() {
	rootCmd.AddCommand(disasmCmd)
}

func disasmImage(_ *cobra.Command, args []string) error {
	filename := args[0]
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}
	chunk, err := bytecode.NewSerializer().DeserializeChunk(data)
	if err != nil {
		return fmt.Errorf("loading bytecode image: %w", err)
	}
	bytecode.NewDisassembler(chunk, os.Stdout).Disassemble()
	return nil
}
