// Package manifest handles vela.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a vela.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Build   Build   `toml:"build"`
	Run     Run     `toml:"run"`

	// Dir is the directory containing the vela.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Build configures assembly inputs and link outputs. Sources is ordered;
// the linker concatenates code in exactly this order.
type Build struct {
	Sources []string `toml:"sources"`
	Output  string   `toml:"output"`
	Map     string   `toml:"map"`
	Cache   string   `toml:"cache"`
}

// Run configures execution defaults for `vela run` on the built output.
type Run struct {
	MaxSteps int  `toml:"max-steps"`
	Trace    bool `toml:"trace"`
}

// Load parses a vela.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "vela.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Project.Name == "" {
		m.Project.Name = filepath.Base(m.Dir)
	}
	if m.Build.Output == "" {
		m.Build.Output = m.Project.Name + ".vlbc"
	}

	if len(m.Build.Sources) == 0 {
		return nil, fmt.Errorf("%s lists no sources under [build]", path)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a vela.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "vela.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// SourcePaths returns absolute paths for the configured sources, in link
// order.
func (m *Manifest) SourcePaths() []string {
	var paths []string
	for _, s := range m.Build.Sources {
		paths = append(paths, m.abs(s))
	}
	return paths
}

// OutputPath returns the absolute path of the linked output.
func (m *Manifest) OutputPath() string {
	return m.abs(m.Build.Output)
}

// MapPath returns the absolute path of the link-map artifact, or "" when
// no map is configured.
func (m *Manifest) MapPath() string {
	if m.Build.Map == "" {
		return ""
	}
	return m.abs(m.Build.Map)
}

// CachePath returns the absolute path of the build cache database, or ""
// when caching is disabled.
func (m *Manifest) CachePath() string {
	if m.Build.Cache == "" {
		return ""
	}
	return m.abs(m.Build.Cache)
}

func (m *Manifest) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
