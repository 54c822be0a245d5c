package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vela-lang/vela/asm"
	"github.com/vela-lang/vela/store"
	"github.com/vela-lang/vela/vlbc"
)

var compileCmd = &cobra.Command{
	Use:   "compile [flags] <input.asm>",
	Short: "Assemble a source file into a VLBC module",
	Args:  cobra.ExactArgs(1),
	RunE:  compileExecution,
}

func init() {
	compileCmd.Flags().StringP("output", "o", "", "output path (default: input with .vlbc extension)")
	compileCmd.Flags().String("cache", "", "build cache database path")
	compileCmd.Flags().Bool("disasm", false, "print a disassembly of the result")
}

func compileExecution(cmd *cobra.Command, args []string) error {
	input := args[0]
	output, _ := cmd.Flags().GetString("output")
	cachePath, _ := cmd.Flags().GetString("cache")
	showDisasm, _ := cmd.Flags().GetBool("disasm")

	if output == "" {
		output = replaceExt(input, ".vlbc")
	}

	m, err := assembleFile(input, cachePath)
	if err != nil {
		return err
	}

	if err := writeModule(output, m); err != nil {
		return err
	}
	log.Infof("compiled %s -> %s (%d strings, %d code bytes)",
		input, output, m.Pool.Len(), len(m.Code))

	if showDisasm {
		fmt.Fprint(cmd.OutOrStdout(), m.DisassembleWithName(filepath.Base(output)))
	}
	return nil
}

// assembleFile assembles one source file, going through the build cache
// when one is configured.
func assembleFile(path, cachePath string) (*vlbc.Module, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var cache *store.Cache
	if cachePath != "" {
		cache, err = store.Open(cachePath)
		if err != nil {
			return nil, err
		}
		defer cache.Close()
	}

	key := store.Key(src)
	if cache != nil {
		if m, err := cache.Get(key); err == nil {
			log.Infof("cache hit for %s", path)
			return m, nil
		}
	}

	m, err := asm.Assemble(string(src))
	if err != nil {
		return nil, diag(path, err)
	}

	if cache != nil {
		if err := cache.Put(key, len(src), m); err != nil {
			log.Warningf("cache put for %s failed: %v", path, err)
		}
	}
	return m, nil
}

func writeModule(path string, m *vlbc.Module) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	data, err := m.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
