package images

import (
	"bytes"
	"context"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adiazpar/starview-agent/internal/commons"
	"github.com/adiazpar/starview-agent/internal/config"
	"github.com/adiazpar/starview-agent/internal/domain"
	"github.com/adiazpar/starview-agent/internal/logger"
)

type fakeSearcher struct {
	results []commons.ImageResult
	calls   int
}

func (f *fakeSearcher) Search(_ context.Context, _ string, _, _, _ int) []commons.ImageResult {
	f.calls++
	return f.results
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := imaging.New(w, h, color.NRGBA{R: 180, G: 180, B: 200, A: 255})
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)))
	return buf.Bytes()
}

func testImagesConfig() config.ImagesConfig {
	return config.ImagesConfig{
		UserAgent:            config.DefaultUserAgent,
		DownloadTimeout:      5 * time.Second,
		MaxRetries:           3,
		BatchSize:            5,
		BatchBreak:           60 * time.Second,
		GlobalCooldown:       180 * time.Second,
		MaxDimension:         1920,
		JPEGQuality:          85,
		MinWidth:             640,
		MinHeight:            480,
		TargetPerObservatory: 2,
	}
}

func newTestDownloader(cfg config.ImagesConfig, search Searcher) (*Downloader, *RateLimiter, *[]time.Duration) {
	limiter := NewRateLimiter(cfg, logger.NewNoOp())
	var slept []time.Duration
	limiter.sleep = func(d time.Duration) { slept = append(slept, d) }
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return base }

	d := NewDownloader(cfg, limiter, search, logger.NewNoOp())
	d.sleep = func(d time.Duration) { slept = append(slept, d) }
	return d, limiter, &slept
}

func TestDownloadSuccess(t *testing.T) {
	body := jpegBytes(t, 800, 600)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	d, _, _ := newTestDownloader(testImagesConfig(), nil)

	data, err := d.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, body, data)
}

func TestDownloadFirstRateLimitTriggersCooldown(t *testing.T) {
	calls := 0
	body := jpegBytes(t, 800, 600)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	d, _, slept := newTestDownloader(testImagesConfig(), nil)

	data, err := d.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, body, data)
	assert.Equal(t, 2, calls)
	assert.Contains(t, *slept, 180*time.Second)
}

func TestDownloadExhaustsRetriesOnPersistentRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	d, _, slept := newTestDownloader(testImagesConfig(), nil)

	_, err := d.Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited after 3 attempts")
	// Global cooldown on the first 429, then one linear backoff.
	assert.Equal(t, []time.Duration{180 * time.Second, 60 * time.Second}, *slept)
}

func TestDownloadHardErrorIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	d, _, _ := newTestDownloader(testImagesConfig(), nil)

	_, err := d.Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
	assert.Equal(t, 1, calls)
}

func TestSaveImageWritesCompressedJPEG(t *testing.T) {
	body := jpegBytes(t, 3000, 2000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	cfg := testImagesConfig()
	cfg.DownloadDelay = 10 * time.Second
	d, limiter, slept := newTestDownloader(cfg, nil)
	dir := filepath.Join(t.TempDir(), "mauna-kea-q123")

	path, err := d.SaveImage(context.Background(), dir, 1, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "01.jpg"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	decoded, err := imaging.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 1920, decoded.Bounds().Dx())

	assert.Equal(t, 1, limiter.Downloads())
	assert.Contains(t, *slept, 10*time.Second)
}

func TestSaveImageRejectsSmallDownload(t *testing.T) {
	body := jpegBytes(t, 200, 150)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	d, limiter, _ := newTestDownloader(testImagesConfig(), nil)

	_, err := d.SaveImage(context.Background(), t.TempDir(), 1, srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too small")
	assert.Equal(t, 0, limiter.Downloads(), "rejected images do not count toward the batch")
}

func TestDownloadImagesUsesFallbackSearch(t *testing.T) {
	good := jpegBytes(t, 800, 600)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(good)
	}))
	t.Cleanup(srv.Close)

	search := &fakeSearcher{results: []commons.ImageResult{
		{URL: srv.URL + "/fallback1.jpg", Width: 800, Height: 600},
		{URL: srv.URL + "/fallback2.jpg", Width: 800, Height: 600},
	}}
	d, _, _ := newTestDownloader(testImagesConfig(), search)

	obs := domain.Observatory{
		WikidataID: "Q123",
		Name:       "Mauna Kea Observatory",
		ImageURL:   srv.URL + "/broken",
	}

	dir := t.TempDir()
	saved, err := d.DownloadImages(context.Background(), obs, dir)
	require.NoError(t, err)

	// The primary image 404s; both fallback candidates fill the target.
	require.Len(t, saved, 2)
	assert.Equal(t, filepath.Join(dir, "01.jpg"), saved[0])
	assert.Equal(t, filepath.Join(dir, "02.jpg"), saved[1])
	assert.Equal(t, 1, search.calls)
}

func TestDownloadImagesNoCandidates(t *testing.T) {
	d, _, _ := newTestDownloader(testImagesConfig(), nil)

	obs := domain.Observatory{WikidataID: "Q9", Name: "Unphotographed Observatory"}
	saved, err := d.DownloadImages(context.Background(), obs, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, saved)
}
