package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vela-lang/vela/link"
	"github.com/vela-lang/vela/vlbc"
)

var linkCmd = &cobra.Command{
	Use:   "link [flags] <module.vlbc|source.asm>...",
	Short: "Link modules into one VLBC module",
	Long: "Link merges the string pools of the given modules, rewrites string-index " +
		"operands, and concatenates code in argument order. Inputs ending in .asm " +
		"are assembled first.",
	Args: cobra.MinimumNArgs(1),
	RunE: linkExecution,
}

func init() {
	linkCmd.Flags().StringP("output", "o", "linked.vlbc", "output path")
	linkCmd.Flags().String("map", "", "write a textual link map to this path")
	linkCmd.Flags().String("map-cbor", "", "write a CBOR link map to this path")
	linkCmd.Flags().Bool("disasm", false, "print a disassembly of the result")
	linkCmd.Flags().String("cache", "", "build cache database path (for .asm inputs)")
}

func linkExecution(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	mapPath, _ := cmd.Flags().GetString("map")
	mapCBORPath, _ := cmd.Flags().GetString("map-cbor")
	showDisasm, _ := cmd.Flags().GetBool("disasm")
	cachePath, _ := cmd.Flags().GetString("cache")

	inputs := make([]link.Input, 0, len(args))
	for _, path := range args {
		m, err := loadInput(path, cachePath)
		if err != nil {
			return err
		}
		inputs = append(inputs, link.Input{Name: path, Module: m})
	}

	merged, lm, err := link.Link(inputs)
	if err != nil {
		return err
	}

	if err := writeModule(output, merged); err != nil {
		return err
	}
	log.Infof("linked %d modules -> %s (%d strings, %d code bytes)",
		len(inputs), output, merged.Pool.Len(), len(merged.Code))

	if mapPath != "" {
		if err := os.WriteFile(mapPath, []byte(lm.Text()), 0o644); err != nil {
			return fmt.Errorf("writing link map %s: %w", mapPath, err)
		}
	}
	if mapCBORPath != "" {
		data, err := link.MarshalMap(lm)
		if err != nil {
			return err
		}
		if err := os.WriteFile(mapCBORPath, data, 0o644); err != nil {
			return fmt.Errorf("writing link map %s: %w", mapCBORPath, err)
		}
	}

	if showDisasm {
		fmt.Fprint(cmd.OutOrStdout(), merged.DisassembleWithName(filepath.Base(output)))
	}
	return nil
}

// loadInput turns one CLI argument into a module: .asm sources are
// assembled, anything else is decoded as a VLBC container.
func loadInput(path, cachePath string) (*vlbc.Module, error) {
	if strings.HasSuffix(path, ".asm") {
		return assembleFile(path, cachePath)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	m, err := vlbc.Decode(data)
	if err != nil {
		return nil, diag(path, err)
	}
	return m, nil
}
