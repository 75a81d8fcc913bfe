// Package pipeline orchestrates the seeding phases: discovery, dedupe, URL
// validation, image download, checkpoint application, and the final merge
// into the durable output.
package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/adiazpar/starview-agent/internal/checkpoint"
	"github.com/adiazpar/starview-agent/internal/domain"
	"github.com/adiazpar/starview-agent/internal/logger"
	"github.com/adiazpar/starview-agent/internal/store"
	"github.com/adiazpar/starview-agent/internal/urlcheck"
	"github.com/adiazpar/starview-agent/internal/wikidata"
)

// Discoverer finds observatories in Wikidata. Satisfied by the wikidata
// client.
type Discoverer interface {
	TotalCount(ctx context.Context) (int, error)
	Discover(ctx context.Context, q wikidata.Query) ([]domain.Observatory, error)
}

// URLValidator checks website URLs. Satisfied by the urlcheck validator.
type URLValidator interface {
	Validate(ctx context.Context, rawURL string) urlcheck.Result
	EnsureHTTPS(ctx context.Context, rawURL string) string
}

// ImageFetcher stores candidate images for one observatory. Satisfied by the
// images downloader.
type ImageFetcher interface {
	DownloadImages(ctx context.Context, obs domain.Observatory, dir string) ([]string, error)
}

// Pipeline wires the seeding phases over a shared store.
type Pipeline struct {
	store      *store.Store
	discoverer Discoverer
	validator  URLValidator
	log        logger.Interface
}

// New creates a Pipeline. Phases that do not need a discoverer or validator
// tolerate nil for the ones they do not use.
func New(st *store.Store, d Discoverer, v URLValidator, log logger.Interface) *Pipeline {
	return &Pipeline{store: st, discoverer: d, validator: v, log: log}
}

// DiscoverResult summarizes a discovery run.
type DiscoverResult struct {
	TotalInWikidata int
	Entries         []domain.DiscoveredEntry
}

// Discover runs the discovery phase: queries Wikidata, converts hits to
// their serialized form, and replaces discovered.json.
func (p *Pipeline) Discover(ctx context.Context, q wikidata.Query) (*DiscoverResult, error) {
	total, err := p.discoverer.TotalCount(ctx)
	if err != nil {
		p.log.Warn("could not fetch total observatory count", "error", err)
		total = -1
	}

	observatories, err := p.discoverer.Discover(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("discovering observatories: %w", err)
	}

	entries := make([]domain.DiscoveredEntry, 0, len(observatories))
	for _, obs := range observatories {
		entries = append(entries, obs.Entry())
	}

	if err := p.store.SaveDiscovered(entries); err != nil {
		return nil, err
	}

	p.log.Info("discovery complete",
		"found", len(entries),
		"total_in_wikidata", total)
	return &DiscoverResult{TotalInWikidata: total, Entries: entries}, nil
}

// DedupeResult summarizes a dedupe pass.
type DedupeResult struct {
	OriginalCount int
	Kept          []domain.DiscoveredEntry
	Duplicates    []string
}

// Dedupe removes discovered observatories whose coarse coordinate key
// already appears in the durable output or earlier in the same batch, then
// rewrites discovered.json with the survivors. Coordinates alone decide
// here; the same site often appears under different names.
func (p *Pipeline) Dedupe() (*DedupeResult, error) {
	entries, err := p.store.LoadDiscovered()
	if err != nil {
		return nil, err
	}

	existing, err := p.store.ValidatedCoordKeys()
	if err != nil {
		return nil, err
	}

	result := &DedupeResult{OriginalCount: len(entries)}
	seen := map[domain.CoordKey]bool{}

	for _, e := range entries {
		key := domain.CoarseCoordKey(e.Latitude, e.Longitude)
		switch {
		case existing[key]:
			result.Duplicates = append(result.Duplicates, e.Name)
		case seen[key]:
			result.Duplicates = append(result.Duplicates, e.Name+" (duplicate coords in batch)")
		default:
			seen[key] = true
			result.Kept = append(result.Kept, e)
		}
	}

	if err := p.store.SaveDiscovered(result.Kept); err != nil {
		return nil, err
	}

	p.log.Info("dedupe complete",
		"original", result.OriginalCount,
		"kept", len(result.Kept),
		"duplicates", len(result.Duplicates))
	return result, nil
}

// URLValidationResult summarizes a URL validation pass.
type URLValidationResult struct {
	Valid   int
	Invalid int
	NoURL   int
	Entries []domain.DiscoveredEntry
}

// ValidateURLs checks each discovered observatory's website. Valid sites are
// rewritten to their post-redirect URL with an HTTPS upgrade when the secure
// endpoint answers. Invalid sites are stripped from the metadata entirely so
// no dead link survives to the output; metadata left empty is dropped.
func (p *Pipeline) ValidateURLs(ctx context.Context) (*URLValidationResult, error) {
	entries, err := p.store.LoadDiscovered()
	if err != nil {
		return nil, err
	}

	result := &URLValidationResult{}
	for i := range entries {
		md := entries[i].TypeMetadata
		if md == nil || md.Website == "" {
			result.NoURL++
			continue
		}

		check := p.validator.Validate(ctx, md.Website)
		if !check.Valid {
			result.Invalid++
			p.log.Info("removing invalid website",
				"observatory", entries[i].Name,
				"url", md.Website,
				"reason", check.Reason)
			md.Website = ""
			if md.IsEmpty() {
				entries[i].TypeMetadata = nil
			}
			continue
		}

		result.Valid++
		finalURL := check.FinalURL
		if finalURL == "" {
			finalURL = md.Website
		}
		md.Website = p.validator.EnsureHTTPS(ctx, finalURL)
	}

	if err := p.store.SaveDiscovered(entries); err != nil {
		return nil, err
	}
	result.Entries = entries

	p.log.Info("url validation complete",
		"valid", result.Valid,
		"invalid", result.Invalid,
		"no_url", result.NoURL)
	return result, nil
}

// DownloadResult summarizes an image download pass.
type DownloadResult struct {
	Downloaded int
	Skipped    int
}

// DownloadImages fetches candidate images for every discovered observatory
// into its per-slug directory. Per-observatory failures are logged and
// skipped so a single dead host cannot stall the batch.
func (p *Pipeline) DownloadImages(ctx context.Context, fetcher ImageFetcher, dirFor func(slug string) string) (*DownloadResult, error) {
	entries, err := p.store.LoadDiscovered()
	if err != nil {
		return nil, err
	}

	result := &DownloadResult{}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		obs := domain.Observatory{
			WikidataID: e.WikidataID,
			Name:       e.Name,
			Latitude:   e.Latitude,
			Longitude:  e.Longitude,
			ImageURL:   e.ImageURL,
		}

		saved, err := fetcher.DownloadImages(ctx, obs, dirFor(e.Slug))
		if err != nil {
			p.log.Warn("image download failed",
				"observatory", e.Name,
				"error", err)
			result.Skipped++
			continue
		}
		if len(saved) == 0 {
			result.Skipped++
			continue
		}
		result.Downloaded++
	}

	p.log.Info("image download complete",
		"downloaded", result.Downloaded,
		"skipped", result.Skipped)
	return result, nil
}

// ApplyCheckpoint turns a normalized validation checkpoint into the list of
// observatories ready to merge. Slugs validated to null were rejected and
// are dropped. A website recorded in websites_found overrides the one the
// discovery metadata carried.
func (p *Pipeline) ApplyCheckpoint(cp *checkpoint.Checkpoint) ([]domain.ValidatedObservatory, error) {
	slugs := make([]string, 0, len(cp.Validated))
	for slug := range cp.Validated {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	var validated []domain.ValidatedObservatory
	for _, slug := range slugs {
		imageURL := cp.Validated[slug]
		if imageURL == nil || *imageURL == "" {
			p.log.Debug("checkpoint rejected observatory",
				"slug", slug,
				"note", cp.RejectionNotes[slug])
			continue
		}

		entry, err := p.store.ObservatoryBySlug(slug)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			p.log.Warn("checkpoint references unknown slug", "slug", slug)
			continue
		}

		md := entry.TypeMetadata
		if site, ok := cp.WebsitesFound[slug]; ok && site != "" {
			if md == nil {
				md = &domain.TypeMetadata{}
			} else {
				copied := *md
				md = &copied
			}
			md.Website = site
		}

		validated = append(validated, domain.ValidatedObservatory{
			Name:         entry.Name,
			Latitude:     entry.Latitude,
			Longitude:    entry.Longitude,
			ImageURL:     *imageURL,
			TypeMetadata: md,
		})
	}
	return validated, nil
}

// MergeResult summarizes a merge into the durable output.
type MergeResult struct {
	Total int
	Added int
}

// Merge appends validated observatories to the durable output file.
func (p *Pipeline) Merge(validated []domain.ValidatedObservatory) (*MergeResult, error) {
	total, added, err := p.store.Merge(validated)
	if err != nil {
		return nil, err
	}
	p.log.Info("merge complete", "total", total, "added", added)
	return &MergeResult{Total: total, Added: added}, nil
}
