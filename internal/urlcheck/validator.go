// Package urlcheck performs content-based validation of observatory website
// URLs. Beyond HTTP status codes it detects "soft 404" pages — error pages
// served with HTTP 200 — via multilingual pattern matching, and supports
// HTTPS upgrade probing and search-based fallback discovery.
package urlcheck

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/adiazpar/starview-agent/internal/config"
	"github.com/adiazpar/starview-agent/internal/logger"
)

// contentScanWindow is how far into the page body soft-404 patterns are
// searched; error messages appear near the top.
const contentScanWindow = 5000

// maxBodyBytes caps how much of a page is read during validation.
const maxBodyBytes = 10 * 1024 * 1024 // 10 MB

const reasonTruncateLen = 50

// Result describes the outcome of validating one URL.
type Result struct {
	Valid         bool
	StatusCode    int
	Reason        string
	FinalURL      string
	IsSoft404     bool
	ContentLength int
}

// Validator validates website URLs.
type Validator struct {
	cfg         config.URLCheckConfig
	client      *http.Client
	probeClient *http.Client
	log         logger.Interface
}

// New creates a Validator from the given configuration.
func New(cfg config.URLCheckConfig, log logger.Interface) *Validator {
	return &Validator{
		cfg:         cfg,
		client:      &http.Client{Timeout: cfg.Timeout},
		probeClient: &http.Client{Timeout: cfg.HTTPSProbeTimeout},
		log:         log,
	}
}

// Validate fetches the URL and classifies it. Redirects are followed; the
// final URL after redirects is reported in Result.FinalURL. Network-level
// failures produce an invalid Result with a descriptive reason, never an
// error.
func (v *Validator) Validate(ctx context.Context, rawURL string) Result {
	result := Result{}

	if rawURL == "" {
		result.Reason = "no URL provided"
		return result
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		result.Reason = "invalid URL: " + truncate(err.Error(), reasonTruncateLen)
		return result
	}
	req.Header.Set("User-Agent", v.cfg.UserAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		result.Reason = classifyRequestError(err)
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.FinalURL = resp.Request.URL.String()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		result.Reason = "failed to read response body"
		return result
	}
	result.ContentLength = len(body)

	if resp.StatusCode >= http.StatusBadRequest {
		result.Reason = fmt.Sprintf("HTTP %d", resp.StatusCode)
		return result
	}

	// The client follows redirects, so a 3xx here means redirect handling
	// was exhausted or bypassed. Treat it as suspicious.
	if resp.StatusCode >= http.StatusMultipleChoices && resp.StatusCode < http.StatusBadRequest {
		result.Reason = "redirect to " + result.FinalURL
		return result
	}

	content := strings.ToLower(string(body))

	// Very short pages that also carry an error pattern are soft 404s.
	// Short pages without one might be legitimately minimal sites.
	if result.ContentLength < v.cfg.MinContentLength && soft404Regex.MatchString(content) {
		result.IsSoft404 = true
		result.Reason = "soft 404 detected (short page with error content)"
		return result
	}

	// Search the top of the page. A single incidental match (footer link,
	// navigation boilerplate) is tolerated; two or more matches, or a
	// literal "404", flag the page.
	window := content
	if len(window) > contentScanWindow {
		window = window[:contentScanWindow]
	}
	if matches := soft404Regex.FindAllString(window, -1); len(matches) > 0 {
		if len(matches) >= 2 || strings.Contains(window, "404") {
			result.IsSoft404 = true
			result.Reason = fmt.Sprintf("soft 404 detected (found: %v)", firstN(matches, 3))
			return result
		}
	}

	// A matching title is stronger evidence than body text.
	if title := pageTitle(content); title != "" && soft404Regex.MatchString(title) {
		result.IsSoft404 = true
		result.Reason = "error in page title: " + truncate(title, reasonTruncateLen)
		return result
	}

	result.Valid = true
	result.Reason = "valid"
	return result
}

// EnsureHTTPS upgrades an HTTP URL to HTTPS when the HTTPS equivalent
// responds. The probe is a HEAD request with a short timeout; any probe
// failure falls back to the original URL.
func (v *Validator) EnsureHTTPS(ctx context.Context, rawURL string) string {
	if rawURL == "" || !strings.HasPrefix(rawURL, "http://") {
		return rawURL
	}

	httpsURL := "https://" + strings.TrimPrefix(rawURL, "http://")

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, httpsURL, http.NoBody)
	if err != nil {
		return rawURL
	}
	req.Header.Set("User-Agent", v.cfg.UserAgent)

	resp, err := v.probeClient.Do(req)
	if err != nil {
		return rawURL
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusBadRequest {
		return httpsURL
	}
	return rawURL
}

// pageTitle extracts the <title> text from already-lowercased HTML.
func pageTitle(content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// classifyRequestError converts transport errors into the reason strings
// surfaced to the operator.
func classifyRequestError(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "request timeout"
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return "ssl certificate error"
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "connection failed"
	}

	return "request error: " + truncate(err.Error(), reasonTruncateLen)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
