package config

import (
	"errors"
	"os"
	"path/filepath"
)

// DefaultDataDir is the seed data directory name, resolved against the
// project root when given as a relative path.
const DefaultDataDir = "seed_data"

// Filenames inside the data directory.
const (
	tempDirName        = "temp"
	discoveredFileName = "discovered.json"
	outputFileName     = "validated_observatories.json"
)

const maxRootSearchDepth = 10

// PathsConfig locates the on-disk files at the pipeline boundary.
type PathsConfig struct {
	// DataDir holds the durable output and the temp workspace. A relative
	// value is resolved by walking up from the working directory to the
	// project root (the directory containing seed_data/ or .git/).
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

// Validate validates the path configuration.
func (p *PathsConfig) Validate() error {
	if p.DataDir == "" {
		return errors.New("paths data_dir must be set")
	}
	return nil
}

// Resolve turns a relative DataDir into an absolute path anchored at the
// project root.
func (p *PathsConfig) Resolve() error {
	if p.DataDir == "" || filepath.IsAbs(p.DataDir) {
		return nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	root := findProjectRoot(cwd, p.DataDir)
	p.DataDir = filepath.Join(root, p.DataDir)
	return nil
}

// findProjectRoot walks upward from start looking for an existing data
// directory or a repository root marker. Falls back to start so a fresh
// checkout still works (the data dir is created on first write).
func findProjectRoot(start, dataDir string) string {
	current := start
	for range maxRootSearchDepth {
		if dirExists(filepath.Join(current, dataDir)) || dirExists(filepath.Join(current, ".git")) {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return start
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// TempDir is the transient workspace for discovered.json and candidate
// images.
func (p PathsConfig) TempDir() string {
	return filepath.Join(p.DataDir, tempDirName)
}

// DiscoveredFile is the path of the transient discovery output.
func (p PathsConfig) DiscoveredFile() string {
	return filepath.Join(p.TempDir(), discoveredFileName)
}

// OutputFile is the path of the durable validated observatory store.
func (p PathsConfig) OutputFile() string {
	return filepath.Join(p.DataDir, outputFileName)
}

// ObservatoryDir is the per-observatory image directory keyed by slug.
func (p PathsConfig) ObservatoryDir(slug string) string {
	return filepath.Join(p.TempDir(), slug)
}
