// Package manifest handles helix.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/helixlab/helix/vm"
)

// Manifest represents a helix.toml project configuration.
type Manifest struct {
	Project Project      `toml:"project"`
	Source  Source       `toml:"source"`
	Engine  EngineConfig `toml:"engine"`
	Library Library      `toml:"library"`

	// Dir is the directory containing the helix.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Author  string `toml:"author"`
	Version string `toml:"version"`
}

// Source configures genome file locations.
type Source struct {
	Dirs  []string `toml:"dirs"`
	Entry string   `toml:"entry"`
}

// EngineConfig overrides the sandbox limits. Zero values keep the defaults.
type EngineConfig struct {
	MaxInstructions int `toml:"max-instructions"`
	StackDepth      int `toml:"stack-depth"`
	StateStackDepth int `toml:"state-stack-depth"`
}

// Library configures the local genome library database.
type Library struct {
	Path string `toml:"path"`
}

// Load parses a helix.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "helix.toml")
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
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{"genomes"}
	}
	if m.Library.Path == "" {
		m.Library.Path = filepath.Join(".helix", "library.db")
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a helix.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "helix.toml")
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

func (m *Manifest) validate() error {
	if m.Engine.MaxInstructions < 0 {
		return fmt.Errorf("engine.max-instructions must not be negative")
	}
	if m.Engine.StackDepth < 0 {
		return fmt.Errorf("engine.stack-depth must not be negative")
	}
	if m.Engine.StateStackDepth < 0 {
		return fmt.Errorf("engine.state-stack-depth must not be negative")
	}
	return nil
}

// SourceDirPaths returns absolute paths for the configured genome directories.
func (m *Manifest) SourceDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Dirs {
		paths = append(paths, filepath.Join(m.Dir, d))
	}
	return paths
}

// EntryPath returns the absolute path of the entry genome, or "" when the
// manifest does not name one.
func (m *Manifest) EntryPath() string {
	if m.Source.Entry == "" {
		return ""
	}
	return filepath.Join(m.Dir, m.Source.Entry)
}

// LibraryPath returns the absolute path of the genome library database.
func (m *Manifest) LibraryPath() string {
	if filepath.IsAbs(m.Library.Path) {
		return m.Library.Path
	}
	return filepath.Join(m.Dir, m.Library.Path)
}

// EngineOptions translates the configured limits into engine options,
// skipping zero values so defaults apply.
func (m *Manifest) EngineOptions() []vm.Option {
	var opts []vm.Option
	if m.Engine.MaxInstructions > 0 {
		opts = append(opts, vm.WithMaxInstructions(m.Engine.MaxInstructions))
	}
	if m.Engine.StackDepth > 0 {
		opts = append(opts, vm.WithStackDepth(m.Engine.StackDepth))
	}
	if m.Engine.StateStackDepth > 0 {
		opts = append(opts, vm.WithStateStackDepth(m.Engine.StateStackDepth))
	}
	return opts
}
