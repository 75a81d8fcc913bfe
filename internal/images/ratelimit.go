// Package images downloads candidate observatory photos, paces requests so
// the image hosts are not hammered, and re-encodes everything to a bounded
// JPEG suitable for serving.
package images

import (
	"time"

	"github.com/adiazpar/starview-agent/internal/config"
	"github.com/adiazpar/starview-agent/internal/logger"
)

// RateLimiter paces image downloads. It enforces a mandatory break after each
// batch of downloads and a one-time global cooldown the first time a host
// answers HTTP 429. The cooldown fires at most once per run; callers reset the
// limiter to start a fresh run.
type RateLimiter struct {
	batchSize      int
	batchBreak     time.Duration
	globalCooldown time.Duration

	downloads     int
	cooldownUntil time.Time
	cooldownFired bool

	log   logger.Interface
	sleep func(time.Duration)
	now   func() time.Time
}

// NewRateLimiter creates a limiter from the images configuration.
func NewRateLimiter(cfg config.ImagesConfig, log logger.Interface) *RateLimiter {
	return &RateLimiter{
		batchSize:      cfg.BatchSize,
		batchBreak:     cfg.BatchBreak,
		globalCooldown: cfg.GlobalCooldown,
		log:            log,
		sleep:          time.Sleep,
		now:            time.Now,
	}
}

// WaitCooldown blocks while a global cooldown is in effect.
func (r *RateLimiter) WaitCooldown() {
	remaining := r.cooldownUntil.Sub(r.now())
	if remaining <= 0 {
		return
	}
	r.log.Warn("waiting out rate limit cooldown", "remaining", remaining)
	r.sleep(remaining)
}

// TriggerCooldown starts the global cooldown. Only the first trigger in a run
// has effect; repeated 429s fall through to per-attempt backoff instead.
func (r *RateLimiter) TriggerCooldown() bool {
	if r.cooldownFired {
		return false
	}
	r.cooldownFired = true
	r.cooldownUntil = r.now().Add(r.globalCooldown)
	r.log.Warn("rate limited, entering global cooldown", "duration", r.globalCooldown)
	return true
}

// RecordDownload counts a completed download and takes the batch break when
// the batch is full.
func (r *RateLimiter) RecordDownload() {
	r.downloads++
	if r.batchSize > 0 && r.downloads%r.batchSize == 0 {
		r.log.Info("batch complete, pausing",
			"downloads", r.downloads,
			"pause", r.batchBreak)
		r.sleep(r.batchBreak)
	}
}

// Downloads reports the number of downloads recorded this run.
func (r *RateLimiter) Downloads() int {
	return r.downloads
}

// Reset clears all pacing state so the limiter can serve a new run.
func (r *RateLimiter) Reset() {
	r.downloads = 0
	r.cooldownUntil = time.Time{}
	r.cooldownFired = false
}
