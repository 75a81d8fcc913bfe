package wikidata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adiazpar/starview-agent/internal/config"
	"github.com/adiazpar/starview-agent/internal/logger"
)

func sparqlFixture(bindings []map[string]map[string]string) []byte {
	payload := map[string]any{
		"results": map[string]any{"bindings": bindings},
	}
	data, _ := json.Marshal(payload)
	return data
}

func binding(values map[string]string) map[string]map[string]string {
	out := map[string]map[string]string{}
	for k, v := range values {
		out[k] = map[string]string{"value": v}
	}
	return out
}

func newTestDiscoverer(t *testing.T, handler http.HandlerFunc) *Discoverer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.WikidataConfig{
		Endpoint:  srv.URL,
		UserAgent: config.DefaultUserAgent,
		Delay:     0,
		Timeout:   config.DefaultWikidataTimeout,
	}
	return New(cfg, logger.NewNoOp())
}

func TestDiscoverParsesBindings(t *testing.T) {
	var gotQuery string
	d := newTestDiscoverer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, config.DefaultUserAgent, r.Header.Get("User-Agent"))

		_, _ = w.Write(sparqlFixture([]map[string]map[string]string{
			binding(map[string]string{
				"observatory":      "http://www.wikidata.org/entity/Q1067305",
				"observatoryLabel": "W. M. Keck Observatory",
				"coord":            "Point(-155.47833 19.82636)",
				"countryLabel":     "United States of America",
				"elevation":        "4145",
				"image":            "http://commons.wikimedia.org/keck.jpg",
				"website":          "http://www.keckobservatory.org",
				"phone":            "+1-808-885-7887",
			}),
			binding(map[string]string{
				"observatory":      "http://www.wikidata.org/entity/Q2297290",
				"observatoryLabel": "Sphinx Observatory",
				"coord":            "not-a-point",
			}),
		}))
	})

	obs, err := d.Discover(context.Background(), Query{Limit: 10})
	require.NoError(t, err)

	// The malformed coordinate row is skipped.
	require.Len(t, obs, 1)
	keck := obs[0]
	assert.Equal(t, "Q1067305", keck.WikidataID)
	assert.Equal(t, "W. M. Keck Observatory", keck.Name)
	assert.Equal(t, 19.826, keck.Latitude)
	assert.Equal(t, -155.478, keck.Longitude)
	require.NotNil(t, keck.Elevation)
	assert.Equal(t, 4145.0, *keck.Elevation)
	assert.Equal(t, "meters", keck.ElevationNote)
	assert.Equal(t, "United States of America", keck.Country)
	assert.Equal(t, "http://www.keckobservatory.org", keck.Website)

	assert.Contains(t, gotQuery, "wd:Q62832")
	assert.Contains(t, gotQuery, "LIMIT 10")
}

func TestDiscoverNormalizesFeetElevations(t *testing.T) {
	d := newTestDiscoverer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(sparqlFixture([]map[string]map[string]string{
			binding(map[string]string{
				"observatory":      "http://www.wikidata.org/entity/Q555",
				"observatoryLabel": "Feet Observatory",
				"coord":            "Point(10.0 45.0)",
				"elevation":        "13796",
			}),
		}))
	})

	obs, err := d.Discover(context.Background(), Query{Limit: 1})
	require.NoError(t, err)
	require.Len(t, obs, 1)
	require.NotNil(t, obs[0].Elevation)
	assert.Equal(t, "converted_from_feet", obs[0].ElevationNote)
	assert.InDelta(t, 4205.0, *obs[0].Elevation, 0.1)
}

func TestDiscoverQueryFilters(t *testing.T) {
	minElev := 3000.0

	var gotQuery string
	d := newTestDiscoverer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		_, _ = w.Write(sparqlFixture(nil))
	})

	_, err := d.Discover(context.Background(), Query{
		Limit:        25,
		Offset:       50,
		MinElevation: &minElev,
		RequireImage: true,
		Country:      "Chile",
	})
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "FILTER(?elevation >= 3000)")
	assert.Contains(t, gotQuery, "FILTER(BOUND(?image))")
	assert.Contains(t, gotQuery, `FILTER(?countryLabel = "Chile")`)
	assert.Contains(t, gotQuery, "LIMIT 25")
	assert.Contains(t, gotQuery, "OFFSET 50")
}

func TestDiscoverHTTPError(t *testing.T) {
	d := newTestDiscoverer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "throttled", http.StatusTooManyRequests)
	})

	_, err := d.Discover(context.Background(), Query{Limit: 5})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestTotalCount(t *testing.T) {
	d := newTestDiscoverer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(sparqlFixture([]map[string]map[string]string{
			binding(map[string]string{"count": "5823"}),
		}))
	})

	count, err := d.TotalCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5823, count)
}

func TestParsePoint(t *testing.T) {
	lat, lon, ok := parsePoint("Point(-70.404 -24.627)")
	require.True(t, ok)
	assert.Equal(t, -24.627, lat)
	assert.Equal(t, -70.404, lon)

	_, _, ok = parsePoint("POINT(-70.404)")
	assert.False(t, ok)
	_, _, ok = parsePoint("")
	assert.False(t, ok)
}
