package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information, overridden by build flags (-ldflags "-X ...").
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	verbose bool
	trace   bool
)

var rootCmd = &cobra.Command{
	Use:   "qbc",
	Short: "A compiler and runtime for a QuickBASIC-flavored BASIC dialect",
	Long: `qbc lexes, parses, type-checks, compiles, and runs programs written in
a case-insensitive BASIC dialect in the QuickBASIC/GW-BASIC family:
labels or numeric line numbers as jump targets, type-sigil variables,
GOSUB/RETURN alongside SUB/
FUNCTION, DATA/READ/RESTORE, SELECT CASE, and sequential file I/O.`,
	Version: Version,
}

// Execute runs the root command, printing any returned error to stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return err
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&trace, "trace", false, "print one line per dispatched instruction to stderr while running")
}

func exitWithError(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+msg+"\n", args...)
	os.Exit(1)
}
