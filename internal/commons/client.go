// Package commons searches Wikimedia Commons for candidate observatory
// images. Used as the fallback source when the primary Wikidata image is
// rejected during validation.
package commons

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/adiazpar/starview-agent/internal/config"
	"github.com/adiazpar/starview-agent/internal/logger"
)

const (
	// fileNamespace is the MediaWiki File: namespace.
	fileNamespace = "6"
	// perVariantLimit caps results requested per query variant.
	perVariantLimit = 10
	// descriptionTruncateLen keeps descriptions short in results.
	descriptionTruncateLen = 200
)

// ImageResult is one candidate image from a Commons search.
type ImageResult struct {
	URL         string
	Title       string
	Width       int
	Height      int
	License     string
	Description string
}

// Client queries the Wikimedia Commons API.
type Client struct {
	cfg    config.CommonsConfig
	client *http.Client
	log    logger.Interface
	sleep  func(time.Duration)
}

// New creates a Client from the given configuration.
func New(cfg config.CommonsConfig, log logger.Interface) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
		sleep:  time.Sleep,
	}
}

// commonsResponse mirrors the generator=search API envelope.
type commonsResponse struct {
	Query struct {
		Pages map[string]commonsPage `json:"pages"`
	} `json:"query"`
}

type commonsPage struct {
	Title     string             `json:"title"`
	ImageInfo []commonsImageInfo `json:"imageinfo"`
}

type commonsImageInfo struct {
	URL         string                    `json:"url"`
	Width       int                       `json:"width"`
	Height      int                       `json:"height"`
	Mime        string                    `json:"mime"`
	ExtMetadata map[string]commonsMDValue `json:"extmetadata"`
}

type commonsMDValue struct {
	Value string `json:"value"`
}

// Search looks for images matching the term, trying query variants that add
// observatory context ("X observatory", "X telescope", "X dome", bare term).
// Results are filtered to permissively-licensed bitmap images meeting the
// minimum resolution, deduplicated by URL, sorted by resolution descending,
// and capped to limit. Per-variant request failures are logged and skipped;
// a politeness delay follows every API call.
func (c *Client) Search(ctx context.Context, term string, limit int, minWidth, minHeight int) []ImageResult {
	variants := []string{
		term + " observatory",
		term + " telescope",
		term + " dome",
		term,
	}

	var results []ImageResult
	seenURLs := map[string]bool{}

	for _, variant := range variants {
		if len(results) >= limit {
			break
		}

		pages, err := c.search(ctx, variant, limit)
		if err != nil {
			c.log.Warn("commons search failed", "term", variant, "error", err)
			continue
		}

		for _, page := range pages {
			if len(page.ImageInfo) == 0 {
				continue
			}
			info := page.ImageInfo[0]

			license := strings.ToLower(info.ExtMetadata["LicenseShortName"].Value)
			if !c.licenseAllowed(license) {
				continue
			}
			if info.Width < minWidth || info.Height < minHeight {
				continue
			}
			if !strings.HasPrefix(info.Mime, "image/") || strings.Contains(info.Mime, "svg") {
				continue
			}
			if info.URL == "" || seenURLs[info.URL] {
				continue
			}
			seenURLs[info.URL] = true

			description := info.ExtMetadata["ImageDescription"].Value
			if len(description) > descriptionTruncateLen {
				description = description[:descriptionTruncateLen]
			}

			results = append(results, ImageResult{
				URL:         info.URL,
				Title:       page.Title,
				Width:       info.Width,
				Height:      info.Height,
				License:     license,
				Description: description,
			})
		}

		c.sleep(c.cfg.Delay)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Width*results[i].Height > results[j].Width*results[j].Height
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func (c *Client) licenseAllowed(license string) bool {
	for _, pattern := range c.cfg.AllowedLicenses {
		if strings.Contains(license, pattern) {
			return true
		}
	}
	return false
}

func (c *Client) search(ctx context.Context, term string, limit int) (map[string]commonsPage, error) {
	if limit > perVariantLimit {
		limit = perVariantLimit
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("generator", "search")
	params.Set("gsrnamespace", fileNamespace)
	params.Set("gsrsearch", "filetype:bitmap "+term)
	params.Set("gsrlimit", strconv.Itoa(limit))
	params.Set("prop", "imageinfo")
	params.Set("iiprop", "url|size|extmetadata|mime")
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("commons API returned HTTP %d", resp.StatusCode)
	}

	var parsed commonsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return parsed.Query.Pages, nil
}
