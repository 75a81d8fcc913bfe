package urlcheck_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adiazpar/starview-agent/internal/config"
	"github.com/adiazpar/starview-agent/internal/logger"
	"github.com/adiazpar/starview-agent/internal/urlcheck"
)

func testConfig() config.URLCheckConfig {
	return config.URLCheckConfig{
		Timeout:           config.DefaultURLCheckTimeout,
		HTTPSProbeTimeout: config.DefaultHTTPSProbeTimeout,
		MinContentLength:  config.DefaultMinContentLength,
		UserAgent:         config.DefaultBrowserUserAgent,
	}
}

func newValidator() *urlcheck.Validator {
	return urlcheck.New(testConfig(), logger.NewNoOp())
}

// longPage pads content past the short-page threshold with neutral filler.
func longPage(content string) string {
	return content + strings.Repeat("<p>Astronomy outreach and visitor information.</p>\n", 60)
}

func serve(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestValidateOKPage(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(longPage("<html><head><title>Lick Observatory</title></head><body>Welcome to the observatory.</body></html>")))
	})

	result := newValidator().Validate(context.Background(), srv.URL)

	assert.True(t, result.Valid)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.False(t, result.IsSoft404)
	assert.Equal(t, srv.URL+"/", result.FinalURL)
	assert.Greater(t, result.ContentLength, 1000)
}

func TestValidateHard404(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})

	result := newValidator().Validate(context.Background(), srv.URL)

	assert.False(t, result.Valid)
	assert.Equal(t, http.StatusNotFound, result.StatusCode)
	assert.Contains(t, result.Reason, "HTTP 404")
}

func TestValidateSoft404ShortPage(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>Page not found</body></html>"))
	})

	result := newValidator().Validate(context.Background(), srv.URL)

	assert.False(t, result.Valid)
	assert.True(t, result.IsSoft404)
	assert.Equal(t, http.StatusOK, result.StatusCode)
}

func TestValidateSoft404RepeatedPattern(t *testing.T) {
	// HTTP 200 long page with "Page Not Found" twice near the top.
	body := longPage("<html><body><h1>Page Not Found</h1><p>The page not found error means this content moved.</p></body></html>")
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})

	result := newValidator().Validate(context.Background(), srv.URL)

	assert.False(t, result.Valid)
	assert.True(t, result.IsSoft404)
}

func TestValidateSingleIncidentalMatchTolerated(t *testing.T) {
	// One pattern hit in a long legitimate page (a footer link) must not
	// flag the page.
	body := longPage("<html><head><title>Griffith Observatory</title></head><body><p>Exhibits and telescopes.</p><footer><a href=\"/missing\">not found reports</a></footer></body></html>")
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})

	result := newValidator().Validate(context.Background(), srv.URL)

	assert.True(t, result.Valid, "reason: %s", result.Reason)
	assert.False(t, result.IsSoft404)
}

func TestValidateSoft404Title(t *testing.T) {
	body := longPage("<html><head><title>Seite nicht gefunden</title></head><body><p>Startseite der Sternwarte.</p></body></html>")
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})

	result := newValidator().Validate(context.Background(), srv.URL)

	assert.False(t, result.Valid)
	assert.True(t, result.IsSoft404)
	assert.Contains(t, result.Reason, "title")
}

func TestValidateConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // guaranteed-dead address

	result := newValidator().Validate(context.Background(), srv.URL)

	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Reason)
}

func TestValidateEmptyURL(t *testing.T) {
	result := newValidator().Validate(context.Background(), "")
	assert.False(t, result.Valid)
	assert.Equal(t, "no URL provided", result.Reason)
}

func TestValidateFollowsRedirects(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/home", http.StatusMovedPermanently)
			return
		}
		_, _ = w.Write([]byte(longPage("<html><head><title>Observatory Home</title></head><body>Welcome.</body></html>")))
	})

	result := newValidator().Validate(context.Background(), srv.URL)

	assert.True(t, result.Valid)
	assert.Equal(t, srv.URL+"/home", result.FinalURL)
}

func TestEnsureHTTPSKeepsHTTPSAndFallsBack(t *testing.T) {
	v := newValidator()

	// Already HTTPS: untouched, no probe.
	assert.Equal(t, "https://example.org", v.EnsureHTTPS(context.Background(), "https://example.org"))

	// HTTP with an unreachable HTTPS equivalent: falls back to the
	// original, never errors.
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {})
	got := v.EnsureHTTPS(context.Background(), srv.URL)
	assert.Equal(t, srv.URL, got)
}

func TestFindBestWebsiteURLPrefersWikidata(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(longPage("<html><head><title>Palomar Observatory</title></head><body>Caltech optical observatory.</body></html>")))
	})

	searchCalled := false
	search := func(query string) ([]urlcheck.SearchResult, error) {
		searchCalled = true
		return nil, nil
	}

	best := newValidator().FindBestWebsiteURL(context.Background(), "Palomar Observatory", srv.URL, "", search)

	require.NotNil(t, best.Validation)
	assert.Equal(t, urlcheck.SourceWikidata, best.Source)
	assert.NotEmpty(t, best.URL)
	assert.False(t, searchCalled, "tier 2 must not run when tier 1 succeeds")
}

func TestFindBestWebsiteURLFallsBackToSearch(t *testing.T) {
	good := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(longPage("<html><head><title>Yerkes Observatory</title></head><body>Historic refractor telescope.</body></html>")))
	})
	bad := serve(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	search := func(query string) ([]urlcheck.SearchResult, error) {
		return []urlcheck.SearchResult{
			{URL: good.URL, Title: "Yerkes Observatory - official", Snippet: "telescope"},
		}, nil
	}

	best := newValidator().FindBestWebsiteURL(context.Background(), "Yerkes Observatory", bad.URL, "United States", search)

	assert.Equal(t, urlcheck.SourceSearch, best.Source)
	assert.Contains(t, best.URL, good.URL)
}

func TestFindBestWebsiteURLNothingFound(t *testing.T) {
	best := newValidator().FindBestWebsiteURL(context.Background(), "Ghost Observatory", "", "", nil)
	assert.Empty(t, best.URL)
	assert.Empty(t, best.Source)
}
