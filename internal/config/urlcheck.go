package config

import (
	"errors"
	"time"
)

// URL validation defaults.
const (
	DefaultURLCheckTimeout   = 10 * time.Second
	DefaultHTTPSProbeTimeout = 5 * time.Second
	// DefaultMinContentLength marks pages shorter than this as suspicious.
	DefaultMinContentLength = 1000
)

// DefaultBrowserUserAgent is a realistic desktop User-Agent. Observatory
// sites occasionally serve error pages to obvious bots, which would defeat
// soft-404 detection.
const DefaultBrowserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/120.0.0.0 Safari/537.36"

// URLCheckConfig configures website URL validation.
type URLCheckConfig struct {
	// Timeout bounds a single validation GET.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// HTTPSProbeTimeout bounds the HEAD request used for HTTPS upgrades.
	HTTPSProbeTimeout time.Duration `mapstructure:"https_probe_timeout" yaml:"https_probe_timeout"`
	// MinContentLength is the byte count below which a page is suspicious.
	MinContentLength int `mapstructure:"min_content_length" yaml:"min_content_length"`
	// UserAgent is sent with validation requests.
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
}

// Validate validates the URL check configuration.
func (c *URLCheckConfig) Validate() error {
	if c.Timeout <= 0 {
		return errors.New("urlcheck timeout must be positive")
	}
	if c.MinContentLength < 0 {
		return errors.New("urlcheck min_content_length must be non-negative")
	}
	return nil
}
