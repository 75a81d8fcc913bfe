// Package config provides configuration management for the observatory
// seeding pipeline: endpoints, pacing delays, image processing thresholds,
// and output paths. Values load from config.yaml, environment variables,
// and defaults via viper.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/adiazpar/starview-agent/internal/logger"
)

// DefaultUserAgent identifies the seeder to Wikimedia services, which
// require a descriptive User-Agent with contact information.
const DefaultUserAgent = "StarviewApp/1.0 (https://starview.app; observatory-seeding)"

// Default endpoint and pacing values.
const (
	DefaultWikidataEndpoint = "https://query.wikidata.org/sparql"
	DefaultCommonsAPI       = "https://commons.wikimedia.org/w/api.php"

	// Wikidata is lenient; Commons is stricter; image downloads are the
	// most rate-limit sensitive of the three.
	DefaultWikidataDelay = 1 * time.Second
	DefaultCommonsDelay  = 3 * time.Second
	DefaultImageDelay    = 10 * time.Second

	DefaultWikidataTimeout = 60 * time.Second
	DefaultCommonsTimeout  = 30 * time.Second
	DefaultImageTimeout    = 60 * time.Second
)

// Default image processing thresholds.
const (
	DefaultMaxImageDimension = 1920
	DefaultJPEGQuality       = 85
	DefaultMinImageWidth     = 640
	DefaultMinImageHeight    = 480
	DefaultTargetImages      = 5
	DefaultImageMaxRetries   = 3

	DefaultBatchSize      = 5
	DefaultBatchBreak     = 60 * time.Second
	DefaultGlobalCooldown = 180 * time.Second
)

// Config is the root configuration for the seeder.
type Config struct {
	Logger   logger.Config  `mapstructure:"logger" yaml:"logger"`
	Wikidata WikidataConfig `mapstructure:"wikidata" yaml:"wikidata"`
	Commons  CommonsConfig  `mapstructure:"commons" yaml:"commons"`
	Images   ImagesConfig   `mapstructure:"images" yaml:"images"`
	URLCheck URLCheckConfig `mapstructure:"urlcheck" yaml:"urlcheck"`
	Paths    PathsConfig    `mapstructure:"paths" yaml:"paths"`
}

// WikidataConfig configures the SPARQL discoverer.
type WikidataConfig struct {
	// Endpoint is the SPARQL endpoint URL.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	// UserAgent is sent with every query.
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
	// Delay is the politeness sleep after each query.
	Delay time.Duration `mapstructure:"delay" yaml:"delay"`
	// Timeout bounds a single query round trip.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// CommonsConfig configures the Wikimedia Commons search client.
type CommonsConfig struct {
	// APIURL is the MediaWiki API endpoint.
	APIURL string `mapstructure:"api_url" yaml:"api_url"`
	// UserAgent is sent with every request.
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
	// Delay is the politeness sleep after each search call.
	Delay time.Duration `mapstructure:"delay" yaml:"delay"`
	// Timeout bounds a single API round trip.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// AllowedLicenses is the permissive-license whitelist; a result is kept
	// when its short license name contains any of these substrings.
	AllowedLicenses []string `mapstructure:"allowed_licenses" yaml:"allowed_licenses"`
}

// ImagesConfig configures image download pacing and compression.
type ImagesConfig struct {
	// UserAgent is sent with every download.
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
	// DownloadDelay is the base sleep after each successful download.
	DownloadDelay time.Duration `mapstructure:"download_delay" yaml:"download_delay"`
	// DownloadTimeout bounds a single image GET.
	DownloadTimeout time.Duration `mapstructure:"download_timeout" yaml:"download_timeout"`
	// MaxRetries is the retry budget for rate-limited downloads.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
	// BatchSize is the number of downloads before a mandatory break.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`
	// BatchBreak is the pause taken between batches.
	BatchBreak time.Duration `mapstructure:"batch_break" yaml:"batch_break"`
	// GlobalCooldown is the process-wide pause after the first HTTP 429.
	GlobalCooldown time.Duration `mapstructure:"global_cooldown" yaml:"global_cooldown"`
	// MaxDimension is the max width/height for stored images.
	MaxDimension int `mapstructure:"max_dimension" yaml:"max_dimension"`
	// JPEGQuality is the re-encode quality.
	JPEGQuality int `mapstructure:"jpeg_quality" yaml:"jpeg_quality"`
	// MinWidth and MinHeight reject thumbnails and icons.
	MinWidth  int `mapstructure:"min_width" yaml:"min_width"`
	MinHeight int `mapstructure:"min_height" yaml:"min_height"`
	// TargetPerObservatory caps candidate images per location.
	TargetPerObservatory int `mapstructure:"target_per_observatory" yaml:"target_per_observatory"`
}

// Validate validates the root configuration.
func (c *Config) Validate() error {
	if c.Wikidata.Endpoint == "" {
		return errors.New("wikidata endpoint must be set")
	}
	if c.Wikidata.Delay < 0 || c.Commons.Delay < 0 || c.Images.DownloadDelay < 0 {
		return errors.New("delays must be non-negative")
	}
	if c.Images.BatchSize < 1 {
		return errors.New("images batch_size must be positive")
	}
	if c.Images.JPEGQuality < 1 || c.Images.JPEGQuality > 100 {
		return errors.New("images jpeg_quality must be in 1..100")
	}
	if c.Images.MinWidth < 1 || c.Images.MinHeight < 1 {
		return errors.New("images min dimensions must be positive")
	}
	if c.Images.MaxDimension < c.Images.MinWidth {
		return errors.New("images max_dimension must not be below min_width")
	}
	if err := c.URLCheck.Validate(); err != nil {
		return err
	}
	return c.Paths.Validate()
}

// SetDefaults registers default values on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger", map[string]any{
		"level":       "info",
		"encoding":    "console",
		"development": true,
	})

	v.SetDefault("wikidata", map[string]any{
		"endpoint":   DefaultWikidataEndpoint,
		"user_agent": DefaultUserAgent,
		"delay":      DefaultWikidataDelay.String(),
		"timeout":    DefaultWikidataTimeout.String(),
	})

	v.SetDefault("commons", map[string]any{
		"api_url":    DefaultCommonsAPI,
		"user_agent": DefaultUserAgent,
		"delay":      DefaultCommonsDelay.String(),
		"timeout":    DefaultCommonsTimeout.String(),
		"allowed_licenses": []string{
			"cc by", "cc-by", "cc by-sa", "cc-by-sa", "cc0",
			"public domain", "pd", "attribution",
		},
	})

	v.SetDefault("images", map[string]any{
		"user_agent":             DefaultUserAgent,
		"download_delay":         DefaultImageDelay.String(),
		"download_timeout":       DefaultImageTimeout.String(),
		"max_retries":            DefaultImageMaxRetries,
		"batch_size":             DefaultBatchSize,
		"batch_break":            DefaultBatchBreak.String(),
		"global_cooldown":        DefaultGlobalCooldown.String(),
		"max_dimension":          DefaultMaxImageDimension,
		"jpeg_quality":           DefaultJPEGQuality,
		"min_width":              DefaultMinImageWidth,
		"min_height":             DefaultMinImageHeight,
		"target_per_observatory": DefaultTargetImages,
	})

	v.SetDefault("urlcheck", map[string]any{
		"timeout":             DefaultURLCheckTimeout.String(),
		"https_probe_timeout": DefaultHTTPSProbeTimeout.String(),
		"min_content_length":  DefaultMinContentLength,
		"user_agent":          DefaultBrowserUserAgent,
	})

	v.SetDefault("paths", map[string]any{
		"data_dir": DefaultDataDir,
	})
}

// Load unmarshals the configuration from the given viper instance and
// validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config

	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Paths.Resolve(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
