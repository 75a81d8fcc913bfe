package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/adiazpar/starview-agent/internal/commons"
	"github.com/adiazpar/starview-agent/internal/config"
	"github.com/adiazpar/starview-agent/internal/domain"
	"github.com/adiazpar/starview-agent/internal/logger"
)

const (
	// retryBackoff scales linearly with the attempt number on repeated 429s.
	retryBackoff = 30 * time.Second
	// maxImageBytes caps a single download.
	maxImageBytes = 50 << 20
)

// Searcher finds candidate images for a search term. Satisfied by the
// Commons client.
type Searcher interface {
	Search(ctx context.Context, term string, limit, minWidth, minHeight int) []commons.ImageResult
}

// Downloader fetches, compresses, and stores observatory images under a
// shared rate limiter.
type Downloader struct {
	cfg     config.ImagesConfig
	client  *http.Client
	limiter *RateLimiter
	search  Searcher
	log     logger.Interface
	sleep   func(time.Duration)
}

// NewDownloader creates a Downloader sharing the given rate limiter. The
// searcher provides fallback candidates and may be nil to disable fallback.
func NewDownloader(cfg config.ImagesConfig, limiter *RateLimiter, search Searcher, log logger.Interface) *Downloader {
	return &Downloader{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.DownloadTimeout},
		limiter: limiter,
		search:  search,
		log:     log,
		sleep:   time.Sleep,
	}
}

// Download fetches the image at url, honoring any active global cooldown.
// The first HTTP 429 in a run triggers the global cooldown and retries
// immediately after it; later 429s back off linearly per attempt until the
// retry budget is exhausted.
func (d *Downloader) Download(ctx context.Context, url string) ([]byte, error) {
	d.limiter.WaitCooldown()

	retries := d.cfg.MaxRetries
	if retries < 1 {
		retries = 1
	}

	for attempt := 0; attempt < retries; attempt++ {
		data, status, err := d.fetch(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("downloading %s: %w", url, err)
		}

		if status == http.StatusTooManyRequests {
			if d.limiter.TriggerCooldown() {
				d.limiter.WaitCooldown()
				continue
			}
			if attempt < retries-1 {
				backoff := retryBackoff * time.Duration(attempt+1)
				d.log.Warn("rate limited, backing off", "url", url, "backoff", backoff)
				d.sleep(backoff)
				continue
			}
			return nil, fmt.Errorf("downloading %s: rate limited after %d attempts", url, retries)
		}

		if status != http.StatusOK {
			return nil, fmt.Errorf("downloading %s: HTTP %d", url, status)
		}
		return data, nil
	}

	return nil, fmt.Errorf("downloading %s: retries exhausted", url)
}

func (d *Downloader) fetch(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", d.cfg.UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return data, resp.StatusCode, nil
}

// SaveImage downloads, compresses, and writes one image as
// <dir>/<index>.jpg (zero-padded). It counts the download against the
// limiter's batch and applies the base politeness delay.
func (d *Downloader) SaveImage(ctx context.Context, dir string, index int, url string) (string, error) {
	data, err := d.Download(ctx, url)
	if err != nil {
		return "", err
	}

	compressed, err := Compress(data, d.cfg.MaxDimension, d.cfg.JPEGQuality, d.cfg.MinWidth, d.cfg.MinHeight)
	if err != nil {
		return "", fmt.Errorf("compressing %s: %w", url, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating image dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%02d.jpg", index))
	if err := os.WriteFile(path, compressed, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}

	d.limiter.RecordDownload()
	d.sleep(d.cfg.DownloadDelay)

	return path, nil
}

// DownloadImages stores images for one observatory under dir. The primary
// image comes first when present; Commons search results fill the remaining
// slots up to the per-observatory target. Failed candidates are logged and
// skipped rather than failing the observatory.
func (d *Downloader) DownloadImages(ctx context.Context, obs domain.Observatory, dir string) ([]string, error) {
	target := d.cfg.TargetPerObservatory
	if target < 1 {
		target = 1
	}

	var candidates []string
	if obs.ImageURL != "" {
		candidates = append(candidates, obs.ImageURL)
	}

	if len(candidates) < target && d.search != nil {
		for _, result := range d.search.Search(ctx, obs.Name, target*2, d.cfg.MinWidth, d.cfg.MinHeight) {
			candidates = append(candidates, result.URL)
		}
	}

	var saved []string
	for _, url := range candidates {
		if len(saved) >= target {
			break
		}
		if err := ctx.Err(); err != nil {
			return saved, err
		}

		path, err := d.SaveImage(ctx, dir, len(saved)+1, url)
		if err != nil {
			d.log.Warn("skipping image candidate",
				"observatory", obs.Name,
				"url", url,
				"error", err)
			continue
		}
		saved = append(saved, path)
	}

	if len(saved) == 0 && len(candidates) > 0 {
		return nil, fmt.Errorf("no usable images for %s", obs.Name)
	}
	return saved, nil
}
