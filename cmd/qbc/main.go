// Command qbc is the BASIC toolchain entry point: lex/parse/check a
// program, compile it to a bytecode image, disassemble an image, or run a
// program directly.
package main

import (
	"os"

	"github.com/thirawat27/QB-COM/cmd/qbc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
