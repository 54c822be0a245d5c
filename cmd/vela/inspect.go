package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vela-lang/vela/vlbc"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm <module.vlbc>",
	Short: "Disassemble a VLBC module",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadInput(args[0], "")
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), m.DisassembleWithName(filepath.Base(args[0])))
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <module.vlbc>",
	Short: "Summarize a VLBC module's header, pool, and code",
	Args:  cobra.ExactArgs(1),
	RunE:  inspectExecution,
}

func init() {
	inspectCmd.Flags().Bool("strings", false, "list every pool string")
}

func inspectExecution(cmd *cobra.Command, args []string) error {
	listStrings, _ := cmd.Flags().GetBool("strings")

	m, err := loadInput(args[0], "")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "module:       %s\n", args[0])
	fmt.Fprintf(out, "format:       VLBC v%d\n", vlbc.FormatVersion)
	fmt.Fprintf(out, "pool strings: %d\n", m.Pool.Len())
	fmt.Fprintf(out, "code bytes:   %d\n", len(m.Code))

	fmt.Fprintf(out, "instructions: %d\n", m.InstructionCount())

	if len(m.Labels) > 0 {
		fmt.Fprintf(out, "labels:       %d\n", len(m.Labels))
	}

	if listStrings {
		fmt.Fprintln(out, "strings:")
		m.Pool.Each(func(e *vlbc.Interned) {
			fmt.Fprintf(out, "  [%d] %q\n", e.Index(), e.String())
		})
	}
	return nil
}
