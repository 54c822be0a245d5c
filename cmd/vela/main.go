// Vela CLI - assembler, linker, and VM front end for VLBC modules.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	"golang.org/x/term"

	_ "github.com/tliron/commonlog/simple"
)

const velaVersion = "0.3.0"

var log = commonlog.GetLogger("vela")

var rootCmd = &cobra.Command{
	Use:           "vela",
	Short:         "Vela bytecode toolchain",
	Long:          "Vela assembles, links, inspects, and runs VLBC bytecode modules.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		commonlog.Configure(verbosity, nil)

		mode, _ := cmd.Flags().GetString("color")
		configureColor(mode, isTerminal(os.Stderr))
	},
}

func main() {
	rootCmd.Version = velaVersion

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(disasmCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(buildCmd)

	rootCmd.PersistentFlags().CountP("verbose", "v", "increase log verbosity")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, renderError(err))
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
