// Package store persists pipeline state: the transient discovered.json
// produced by discovery and the durable validated_observatories.json that
// accumulates across runs.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adiazpar/starview-agent/internal/config"
	"github.com/adiazpar/starview-agent/internal/domain"
)

// OutputVersion is the schema version of validated_observatories.json.
const OutputVersion = "3.0"

// OutputSource records where validated entries come from.
const OutputSource = "Wikidata + image validation"

const generatedAtLayout = "2006-01-02 15:04:05 UTC"

// Output is the durable validated_observatories.json envelope.
type Output struct {
	Version        string                        `json:"version"`
	Source         string                        `json:"source"`
	GeneratedAt    string                        `json:"generated_at"`
	TotalValidated int                           `json:"total_validated"`
	Observatories  []domain.ValidatedObservatory `json:"observatories"`
}

// discoveredFile is the transient discovery envelope.
type discoveredFile struct {
	Observatories []domain.DiscoveredEntry `json:"observatories"`
}

// PendingValidation is a discovered observatory with downloaded images
// awaiting review.
type PendingValidation struct {
	domain.DiscoveredEntry
	ImagePaths []string `json:"image_paths"`
	ImageCount int      `json:"image_count"`
}

// Store reads and writes pipeline files under the configured paths.
type Store struct {
	paths config.PathsConfig
	now   func() time.Time
}

// New creates a Store over the given paths.
func New(paths config.PathsConfig) *Store {
	return &Store{paths: paths, now: time.Now}
}

// SaveDiscovered writes entries to discovered.json, replacing any previous
// discovery run.
func (s *Store) SaveDiscovered(entries []domain.DiscoveredEntry) error {
	if entries == nil {
		entries = []domain.DiscoveredEntry{}
	}
	return writeJSON(s.paths.DiscoveredFile(), discoveredFile{Observatories: entries})
}

// LoadDiscovered reads discovered.json. A missing file is an empty list, not
// an error, so each phase can run independently.
func (s *Store) LoadDiscovered() ([]domain.DiscoveredEntry, error) {
	var parsed discoveredFile
	err := readJSON(s.paths.DiscoveredFile(), &parsed)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return parsed.Observatories, nil
}

// LoadValidated reads the durable output file. A missing file means no
// observatories have been validated yet.
func (s *Store) LoadValidated() (*Output, error) {
	var out Output
	err := readJSON(s.paths.OutputFile(), &out)
	if errors.Is(err, fs.ErrNotExist) {
		return &Output{Version: OutputVersion, Source: OutputSource}, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidatedCoordKeys returns the coarse coordinate keys of every observatory
// already in the durable output, for discovery-time dedupe.
func (s *Store) ValidatedCoordKeys() (map[domain.CoordKey]bool, error) {
	out, err := s.LoadValidated()
	if err != nil {
		return nil, err
	}
	keys := make(map[domain.CoordKey]bool, len(out.Observatories))
	for _, obs := range out.Observatories {
		keys[domain.CoarseCoordKey(obs.Latitude, obs.Longitude)] = true
	}
	return keys, nil
}

// Merge appends new observatories to the durable output, skipping entries
// whose merge key already exists. The file accumulates across runs; entries
// are kept sorted by lowercased name. Returns the total count and how many
// of the given observatories were actually added.
func (s *Store) Merge(newObservatories []domain.ValidatedObservatory) (total, added int, err error) {
	existing, err := s.LoadValidated()
	if err != nil {
		return 0, 0, err
	}

	seen := make(map[domain.MergeKey]bool, len(existing.Observatories))
	for _, obs := range existing.Observatories {
		seen[domain.MergeDedupeKey(obs.Latitude, obs.Longitude, obs.Name)] = true
	}

	merged := existing.Observatories
	for _, obs := range newObservatories {
		key := domain.MergeDedupeKey(obs.Latitude, obs.Longitude, obs.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, obs)
		added++
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return strings.ToLower(merged[i].Name) < strings.ToLower(merged[j].Name)
	})
	if merged == nil {
		merged = []domain.ValidatedObservatory{}
	}

	out := Output{
		Version:        OutputVersion,
		Source:         OutputSource,
		GeneratedAt:    s.now().UTC().Format(generatedAtLayout),
		TotalValidated: len(merged),
		Observatories:  merged,
	}
	if err := writeJSON(s.paths.OutputFile(), out); err != nil {
		return 0, 0, err
	}
	return len(merged), added, nil
}

// ObservatoryBySlug looks up a discovered observatory by slug. Returns nil
// when discovery has not run or the slug is unknown.
func (s *Store) ObservatoryBySlug(slug string) (*domain.DiscoveredEntry, error) {
	entries, err := s.LoadDiscovered()
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Slug == slug {
			return &entries[i], nil
		}
	}
	return nil, nil
}

// ObservatoryImages lists the downloaded images for a slug in filename
// order.
func (s *Store) ObservatoryImages(slug string) ([]string, error) {
	pattern := filepath.Join(s.paths.ObservatoryDir(slug), "*.jpg")
	images, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("listing images for %s: %w", slug, err)
	}
	sort.Strings(images)
	return images, nil
}

// PendingValidations returns discovered observatories that have at least one
// downloaded image and so are ready for review.
func (s *Store) PendingValidations() ([]PendingValidation, error) {
	entries, err := s.LoadDiscovered()
	if err != nil {
		return nil, err
	}

	var pending []PendingValidation
	for _, e := range entries {
		images, err := s.ObservatoryImages(e.Slug)
		if err != nil {
			return nil, err
		}
		if len(images) == 0 {
			continue
		}
		pending = append(pending, PendingValidation{
			DiscoveredEntry: e,
			ImagePaths:      images,
			ImageCount:      len(images),
		})
	}
	return pending, nil
}

// Cleanup removes the transient temp workspace. The durable output file is
// untouched.
func (s *Store) Cleanup() error {
	if err := os.RemoveAll(s.paths.TempDir()); err != nil {
		return fmt.Errorf("removing temp dir: %w", err)
	}
	return nil
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
