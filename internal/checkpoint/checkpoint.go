// Package checkpoint normalizes validation checkpoint files into a single
// canonical shape. Validation runs are resumable and different runs have
// produced checkpoints in three formats over time, so every reader goes
// through Normalize first.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Checkpoint is the canonical checkpoint shape. Validated maps observatory
// slugs to their accepted image URL, or null when the image was rejected.
type Checkpoint struct {
	BatchNum       int                `json:"batch_num"`
	Validated      map[string]*string `json:"validated"`
	WebsitesFound  map[string]string  `json:"websites_found"`
	RejectionNotes map[string]string  `json:"rejection_notes"`
}

// New returns an empty canonical checkpoint for the given batch.
func New(batchNum int) *Checkpoint {
	return &Checkpoint{
		BatchNum:       batchNum,
		Validated:      map[string]*string{},
		WebsitesFound:  map[string]string{},
		RejectionNotes: map[string]string{},
	}
}

// entry covers the fields seen across the legacy per-observatory records.
// URL-ish fields have gone by several names.
type entry struct {
	Slug            string `json:"slug"`
	FinalURL        string `json:"final_url"`
	ImageURL        string `json:"image_url"`
	URL             string `json:"url"`
	Accepted        *bool  `json:"accepted"`
	ImageStatus     string `json:"image_status"`
	RejectionReason string `json:"rejection_reason"`
	Reason          string `json:"reason"`
	TypeMetadata    struct {
		Website string `json:"website"`
	} `json:"type_metadata"`
}

func (e entry) reason() string {
	if e.RejectionReason != "" {
		return e.RejectionReason
	}
	return e.Reason
}

func (e entry) bestURL() string {
	for _, u := range []string{e.FinalURL, e.ImageURL, e.URL} {
		if u != "" {
			return u
		}
	}
	return ""
}

// Normalize converts any known checkpoint format to the canonical shape.
// Recognized inputs are the canonical format itself, the legacy
// {"batch_num": N, "results": [...]} format, and a bare array of
// per-observatory records. The batch number is always overwritten with
// expectedBatch. Unrecognized input is an error.
func Normalize(raw json.RawMessage, expectedBatch int) (*Checkpoint, error) {
	normalized := New(expectedBatch)

	trimmed := strings.TrimLeftFunc(string(raw), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})

	if strings.HasPrefix(trimmed, "[") {
		var entries []entry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("parsing checkpoint array: %w", err)
		}
		normalizeArray(normalized, entries)
		return normalized, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("parsing checkpoint: %w", err)
	}

	if _, ok := fields["validated"]; ok {
		var canonical Checkpoint
		if err := json.Unmarshal(raw, &canonical); err != nil {
			return nil, fmt.Errorf("parsing canonical checkpoint: %w", err)
		}
		if canonical.Validated != nil {
			normalized.Validated = canonical.Validated
		}
		if canonical.WebsitesFound != nil {
			normalized.WebsitesFound = canonical.WebsitesFound
		}
		if canonical.RejectionNotes != nil {
			normalized.RejectionNotes = canonical.RejectionNotes
		}
		return normalized, nil
	}

	if resultsRaw, ok := fields["results"]; ok {
		var entries []entry
		if err := json.Unmarshal(resultsRaw, &entries); err != nil {
			return nil, fmt.Errorf("parsing checkpoint results: %w", err)
		}
		normalizeResults(normalized, entries)
		return normalized, nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	return nil, fmt.Errorf("unrecognized checkpoint format with keys %v", keys)
}

// normalizeResults handles the legacy results-list format, where records are
// accepted unless explicitly marked otherwise.
func normalizeResults(cp *Checkpoint, entries []entry) {
	for _, e := range entries {
		if e.Slug == "" {
			continue
		}

		var finalURL *string
		if u := e.bestURL(); u != "" {
			finalURL = &u
		}
		if (e.Accepted != nil && !*e.Accepted) || e.ImageStatus == "rejected" {
			finalURL = nil
			if reason := e.reason(); reason != "" {
				cp.RejectionNotes[e.Slug] = reason
			}
		}
		cp.Validated[e.Slug] = finalURL

		if e.TypeMetadata.Website != "" {
			cp.WebsitesFound[e.Slug] = e.TypeMetadata.Website
		}
	}
}

// normalizeArray handles bare record arrays, where acceptance must be
// inferred per record.
func normalizeArray(cp *Checkpoint, entries []entry) {
	for _, e := range entries {
		if e.Slug == "" {
			continue
		}

		accepted := e.ImageStatus == "accepted" ||
			(e.Accepted != nil && *e.Accepted) ||
			(e.ImageURL != "" && !strings.Contains(e.ImageStatus, "rejected"))

		var finalURL *string
		if accepted && e.ImageURL != "" {
			u := e.ImageURL
			finalURL = &u
		}
		cp.Validated[e.Slug] = finalURL

		if !accepted {
			if reason := e.reason(); reason != "" {
				cp.RejectionNotes[e.Slug] = reason
			}
		}
		if e.TypeMetadata.Website != "" {
			cp.WebsitesFound[e.Slug] = e.TypeMetadata.Website
		}
	}
}

// NormalizeFile reads a checkpoint file, normalizes it, and rewrites it in
// place in canonical form.
func NormalizeFile(path string, expectedBatch int) (*Checkpoint, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint %s: %w", path, err)
	}

	normalized, err := Normalize(raw, expectedBatch)
	if err != nil {
		return nil, err
	}

	encoded, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding checkpoint: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return nil, fmt.Errorf("writing checkpoint %s: %w", path, err)
	}
	return normalized, nil
}
