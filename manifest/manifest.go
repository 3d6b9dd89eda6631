// Package manifest reads zlox.toml, the per-project configuration file.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest is a parsed zlox.toml.
type Manifest struct {
	Project Project     `toml:"project"`
	Source  Source      `toml:"source"`
	VM      VMConfig    `toml:"vm"`
	Build   BuildConfig `toml:"build"`

	// Dir is the directory containing the zlox.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures the program entry point.
type Source struct {
	Entry string `toml:"entry"`
}

// VMConfig configures the virtual machine. Zero values defer to the
// VM's own defaults.
type VMConfig struct {
	StackSize int  `toml:"stack-size"`
	HeapLimit int  `toml:"heap-limit"`
	StressGC  bool `toml:"stress-gc"`
}

// BuildConfig configures the compiled-program cache. Cache is a pointer
// so an absent key means enabled.
type BuildConfig struct {
	Cache *bool  `toml:"cache"`
	DB    string `toml:"db"`
}

// fileName is what marks a directory as a zlox project.
const fileName = "zlox.toml"

// Load parses the zlox.toml in dir.
func Load(dir string) (*Manifest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}

	path := filepath.Join(abs, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	m := Manifest{Dir: abs}
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if m.Source.Entry == "" {
		m.Source.Entry = "main.zlox"
	}
	return &m, nil
}

// FindAndLoad searches startDir and its parents for a zlox.toml and
// loads the nearest one. Both results are nil when no manifest exists:
// running outside a project is not an error.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, fileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// EntryPath returns the absolute path of the program entry point.
func (m *Manifest) EntryPath() string {
	return filepath.Join(m.Dir, m.Source.Entry)
}

// CacheEnabled reports whether the compiled-program cache is on. It is
// on unless the manifest disables it.
func (m *Manifest) CacheEnabled() bool {
	return m.Build.Cache == nil || *m.Build.Cache
}

// CacheDBPath returns the cache database path configured by the
// manifest, or "" to use the user-level default.
func (m *Manifest) CacheDBPath() string {
	if m.Build.DB == "" {
		return ""
	}
	return filepath.Join(m.Dir, m.Build.DB)
}
