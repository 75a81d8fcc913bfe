// Package wikidata discovers astronomical observatories via SPARQL queries
// against the public Wikidata endpoint. Everything is discovered dynamically
// from the knowledge graph; nothing is hardcoded.
package wikidata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/adiazpar/starview-agent/internal/config"
	"github.com/adiazpar/starview-agent/internal/domain"
	"github.com/adiazpar/starview-agent/internal/logger"
)

// coordDecimals is the precision coordinates are rounded to on ingest
// (~111m), matching the merge-time dedupe key precision.
const coordDecimals = 3

// Query describes one discovery call. Limit/Offset paginate through the full
// observatory set; the optional filters narrow it.
type Query struct {
	Limit        int
	Offset       int
	MinElevation *float64
	RequireImage bool
	Country      string
}

// Discoverer issues SPARQL queries against Wikidata.
type Discoverer struct {
	cfg    config.WikidataConfig
	client *http.Client
	log    logger.Interface
	sleep  func(time.Duration)
}

// New creates a Discoverer from the given configuration.
func New(cfg config.WikidataConfig, log logger.Interface) *Discoverer {
	return &Discoverer{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
		sleep:  time.Sleep,
	}
}

// sparqlResponse mirrors the SPARQL JSON results envelope.
type sparqlResponse struct {
	Results struct {
		Bindings []map[string]sparqlValue `json:"bindings"`
	} `json:"results"`
}

type sparqlValue struct {
	Value string `json:"value"`
}

// Discover queries Wikidata for astronomical observatories with coordinates
// and returns them with normalized metadata. A fixed politeness delay is
// taken after the call; the shared endpoint throttles aggressive clients.
func (d *Discoverer) Discover(ctx context.Context, q Query) ([]domain.Observatory, error) {
	resp, err := d.runQuery(ctx, buildDiscoveryQuery(q))
	if err != nil {
		return nil, err
	}

	observatories := make([]domain.Observatory, 0, len(resp.Results.Bindings))
	for _, binding := range resp.Results.Bindings {
		obs, ok := d.parseBinding(binding)
		if !ok {
			continue
		}
		observatories = append(observatories, obs)
	}

	d.sleep(d.cfg.Delay)
	return observatories, nil
}

// TotalCount returns the total number of observatories with coordinates in
// Wikidata. Used only for progress reporting.
func (d *Discoverer) TotalCount(ctx context.Context) (int, error) {
	const countQuery = `
	SELECT (COUNT(DISTINCT ?observatory) as ?count) WHERE {
	  ?observatory wdt:P31/wdt:P279* wd:Q62832 .
	  ?observatory wdt:P625 ?coord .
	}
	`

	resp, err := d.runQuery(ctx, countQuery)
	if err != nil {
		return 0, err
	}
	if len(resp.Results.Bindings) == 0 {
		return 0, fmt.Errorf("count query returned no bindings")
	}

	count, err := strconv.Atoi(resp.Results.Bindings[0]["count"].Value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse count: %w", err)
	}
	return count, nil
}

// buildDiscoveryQuery assembles the SPARQL text. P31/P279* walks the
// subclass tree under Q62832 (astronomical observatory); coordinates are
// mandatory, everything else optional.
func buildDiscoveryQuery(q Query) string {
	var filters []string

	if q.MinElevation != nil {
		filters = append(filters, fmt.Sprintf("FILTER(?elevation >= %g)", *q.MinElevation))
	}
	if q.RequireImage {
		filters = append(filters, "FILTER(BOUND(?image))")
	}
	if q.Country != "" {
		filters = append(filters, fmt.Sprintf("FILTER(?countryLabel = %q)", q.Country))
	}

	return fmt.Sprintf(`
	SELECT DISTINCT ?observatory ?observatoryLabel ?coord ?image ?countryLabel ?elevation ?website ?phone WHERE {
	  ?observatory wdt:P31/wdt:P279* wd:Q62832 .
	  ?observatory wdt:P625 ?coord .
	  ?observatory rdfs:label ?observatoryLabel .
	  FILTER(LANG(?observatoryLabel) = "en")

	  OPTIONAL { ?observatory wdt:P18 ?image }
	  OPTIONAL {
	    ?observatory wdt:P17 ?country .
	    ?country rdfs:label ?countryLabel .
	    FILTER(LANG(?countryLabel) = "en")
	  }
	  OPTIONAL { ?observatory wdt:P2044 ?elevation }
	  OPTIONAL { ?observatory wdt:P856 ?website }
	  OPTIONAL { ?observatory wdt:P1329 ?phone }

	  %s
	}
	ORDER BY DESC(?elevation)
	LIMIT %d
	OFFSET %d
	`, strings.Join(filters, "\n  "), q.Limit, q.Offset)
}

func (d *Discoverer) runQuery(ctx context.Context, query string) (*sparqlResponse, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.cfg.Endpoint+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build query request: %w", err)
	}
	req.Header.Set("User-Agent", d.cfg.UserAgent)
	req.Header.Set("Accept", "application/sparql-results+json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sparql query failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sparql query returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read sparql response: %w", err)
	}

	var parsed sparqlResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode sparql response: %w", err)
	}
	return &parsed, nil
}

// parseBinding converts one SPARQL result row to an Observatory. Rows with
// unparseable coordinates are skipped, not fatal.
func (d *Discoverer) parseBinding(binding map[string]sparqlValue) (domain.Observatory, bool) {
	lat, lon, ok := parsePoint(binding["coord"].Value)
	if !ok {
		return domain.Observatory{}, false
	}

	name := binding["observatoryLabel"].Value
	if name == "" {
		name = "Unknown"
	}

	var rawElevation *float64
	if s := binding["elevation"].Value; s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			rawElevation = &v
		}
	}
	elevation, note := domain.NormalizeElevation(rawElevation)

	country := binding["countryLabel"].Value
	if country == "" {
		country = "Unknown"
	}

	return domain.Observatory{
		WikidataID:    qidFromURI(binding["observatory"].Value),
		Name:          name,
		Latitude:      lat,
		Longitude:     lon,
		Elevation:     elevation,
		ElevationNote: note,
		Country:       country,
		ImageURL:      binding["image"].Value,
		Website:       binding["website"].Value,
		Phone:         binding["phone"].Value,
	}, true
}

// parsePoint parses the WKT-style "Point(lon lat)" coordinate literal and
// rounds to three decimals.
func parsePoint(coord string) (lat, lon float64, ok bool) {
	if !strings.HasPrefix(coord, "Point(") || !strings.HasSuffix(coord, ")") {
		return 0, 0, false
	}

	parts := strings.Fields(coord[len("Point(") : len(coord)-1])
	if len(parts) != 2 {
		return 0, 0, false
	}

	lonVal, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, false
	}
	latVal, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, false
	}

	return roundCoord(latVal), roundCoord(lonVal), true
}

func roundCoord(v float64) float64 {
	scale := math.Pow10(coordDecimals)
	return math.Round(v*scale) / scale
}

// qidFromURI extracts the QID suffix from a full entity URI, e.g.
// "http://www.wikidata.org/entity/Q1067305" -> "Q1067305".
func qidFromURI(uri string) string {
	if uri == "" {
		return ""
	}
	if idx := strings.LastIndex(uri, "/"); idx >= 0 {
		return uri[idx+1:]
	}
	return uri
}
