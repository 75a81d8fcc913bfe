package urlcheck

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

const maxSearchCandidates = 5

// SearchResult is one raw web-search hit. The search capability itself is
// injected; this package only builds queries and scores results.
type SearchResult struct {
	URL     string
	Title   string
	Snippet string
}

// SearchFunc executes a web search query. Supplied by the caller, typically
// backed by an external search tool.
type SearchFunc func(query string) ([]SearchResult, error)

// Candidate is a scored search result.
type Candidate struct {
	SearchResult
	Score float64
}

// ScoreWeights are the heuristic bonuses and penalties applied when ranking
// search results. Tunable; the defaults have no derivation beyond having
// worked in practice.
type ScoreWeights struct {
	EduGovBonus        float64
	OrgBonus           float64
	AcademicBonus      float64
	WikiPenalty        float64
	DomainNameBonus    float64
	TitleExactBonus    float64
	TitlePartialBonus  float64
	OfficialKeyword    float64
	ObservatoryKeyword float64
}

// DefaultScoreWeights returns the default ranking weights.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		EduGovBonus:        3.0,
		OrgBonus:           2.0,
		AcademicBonus:      2.5,
		WikiPenalty:        2.0,
		DomainNameBonus:    1.5,
		TitleExactBonus:    1.0,
		TitlePartialBonus:  0.5,
		OfficialKeyword:    0.5,
		ObservatoryKeyword: 0.3,
	}
}

var (
	officialKeywords    = []string{"official", "home", "welcome", "about us", "visitor"}
	observatoryKeywords = []string{"telescope", "astronomy", "observation", "research"}
)

// SearchWebsite searches for an observatory's official website and returns
// up to five scored candidates, best first. Returns nil when no search
// function is supplied.
func (v *Validator) SearchWebsite(name, country string, search SearchFunc) []Candidate {
	if search == nil {
		return nil
	}

	queries := []string{
		fmt.Sprintf("%q official website", name),
		fmt.Sprintf("%q observatory", name),
	}
	if country != "" {
		queries = append(queries, fmt.Sprintf("%q %s observatory", name, country))
	}

	weights := DefaultScoreWeights()
	var candidates []Candidate
	seenDomains := map[string]bool{}

	for _, query := range queries {
		results, err := search(query)
		if err != nil {
			v.log.Warn("web search failed", "query", query, "error", err)
			continue
		}

		for _, r := range results {
			if r.URL == "" {
				continue
			}

			parsed, err := url.Parse(r.URL)
			if err != nil {
				continue
			}
			domain := strings.ToLower(parsed.Host)
			if seenDomains[domain] {
				continue
			}
			seenDomains[domain] = true

			candidates = append(candidates, Candidate{
				SearchResult: r,
				Score:        weights.Score(r, name),
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > maxSearchCandidates {
		candidates = candidates[:maxSearchCandidates]
	}
	return candidates
}

// Score rates how likely a search result is the official site for the named
// observatory.
func (w ScoreWeights) Score(r SearchResult, observatoryName string) float64 {
	score := 0.0
	title := strings.ToLower(r.Title)
	snippet := strings.ToLower(r.Snippet)
	name := strings.ToLower(observatoryName)

	domain := ""
	if parsed, err := url.Parse(strings.ToLower(r.URL)); err == nil {
		domain = parsed.Host
	}

	// University and government domains are the most trustworthy.
	switch {
	case strings.Contains(domain, ".edu"), strings.Contains(domain, ".gov"):
		score += w.EduGovBonus
	case strings.Contains(domain, ".ac."):
		score += w.AcademicBonus
	case strings.Contains(domain, ".org"):
		score += w.OrgBonus
	}

	// We want primary sources, not reference sites.
	if strings.Contains(domain, "wikipedia") {
		score -= w.WikiPenalty
	}
	if strings.Contains(domain, "wikidata") {
		score -= w.WikiPenalty
	}

	nameWords := strings.Fields(name)
	for _, word := range nameWords {
		if len(word) > 3 && strings.Contains(domain, word) {
			score += w.DomainNameBonus
			break
		}
	}

	if strings.Contains(title, name) {
		score += w.TitleExactBonus
	} else {
		for _, word := range nameWords {
			if len(word) > 3 && strings.Contains(title, word) {
				score += w.TitlePartialBonus
				break
			}
		}
	}

	for _, kw := range officialKeywords {
		if strings.Contains(title, kw) || strings.Contains(snippet, kw) {
			score += w.OfficialKeyword
			break
		}
	}

	for _, kw := range observatoryKeywords {
		if strings.Contains(title, kw) || strings.Contains(snippet, kw) {
			score += w.ObservatoryKeyword
		}
	}

	return score
}

// Source values reported by FindBestWebsiteURL.
const (
	SourceWikidata = "wikidata"
	SourceSearch   = "search"
)

// BestURL is the outcome of the tiered website discovery.
type BestURL struct {
	URL        string
	Source     string
	Validation *Result
}

// FindBestWebsiteURL finds a valid website URL for an observatory.
//
// Tier 1 validates the Wikidata-supplied URL; tier 2 searches for and
// validates alternatives. Valid HTTP URLs are upgraded to HTTPS when
// possible. (Tier 3, AI-vision confirmation, happens outside this
// pipeline.)
func (v *Validator) FindBestWebsiteURL(
	ctx context.Context,
	name, wikidataURL, country string,
	search SearchFunc,
) BestURL {
	best := BestURL{}

	if wikidataURL != "" {
		validation := v.Validate(ctx, wikidataURL)
		best.Validation = &validation
		if validation.Valid {
			resolved := validation.FinalURL
			if resolved == "" {
				resolved = wikidataURL
			}
			best.URL = v.EnsureHTTPS(ctx, resolved)
			best.Source = SourceWikidata
			return best
		}
	}

	for _, candidate := range v.SearchWebsite(name, country, search) {
		validation := v.Validate(ctx, candidate.URL)
		if !validation.Valid {
			continue
		}
		resolved := validation.FinalURL
		if resolved == "" {
			resolved = candidate.URL
		}
		best.URL = v.EnsureHTTPS(ctx, resolved)
		best.Source = SourceSearch
		best.Validation = &validation
		return best
	}

	return best
}
