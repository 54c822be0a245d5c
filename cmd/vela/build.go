package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vela-lang/vela/link"
	"github.com/vela-lang/vela/manifest"
)

var buildCmd = &cobra.Command{
	Use:   "build [path]",
	Short: "Build a vela project",
	Long: "Build assembles and links every source listed in vela.toml, in order, " +
		"into the configured output. With no path the manifest is searched for " +
		"upward from the current directory.",
	Args: cobra.MaximumNArgs(1),
	RunE: buildExecution,
}

func buildExecution(cmd *cobra.Command, args []string) error {
	start := "."
	if len(args) == 1 {
		start = args[0]
	}

	m, err := manifest.FindAndLoad(start)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("no vela.toml found from %s upward", start)
	}
	log.Infof("building %s v%s from %s", m.Project.Name, m.Project.Version, m.Dir)

	inputs := make([]link.Input, 0, len(m.Build.Sources))
	for _, path := range m.SourcePaths() {
		mod, err := assembleFile(path, m.CachePath())
		if err != nil {
			return err
		}
		inputs = append(inputs, link.Input{Name: path, Module: mod})
	}

	merged, lm, err := link.Link(inputs)
	if err != nil {
		return err
	}

	if err := writeModule(m.OutputPath(), merged); err != nil {
		return err
	}
	log.Infof("built %s (%d strings, %d code bytes)",
		m.OutputPath(), merged.Pool.Len(), len(merged.Code))

	if mapPath := m.MapPath(); mapPath != "" {
		if err := os.WriteFile(mapPath, []byte(lm.Text()), 0o644); err != nil {
			return fmt.Errorf("writing link map %s: %w", mapPath, err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", m.OutputPath())
	return nil
}
