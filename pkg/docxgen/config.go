package docxgen

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dfir-iris/docx-generator/pkg/docxgen/assets"
)

// Config contains all configuration options of a Generator
type Config struct {
	// LogLevel controls the verbosity of logging (debug, info, warn, error)
	LogLevel string
	// MaxRenderDepth is the number of extra passes allowed when a pass
	// leaves markers in its output
	MaxRenderDepth int
	// AllowExternalDownload lets pictures be fetched over HTTP(S)
	AllowExternalDownload bool
	// FetchTimeout bounds one remote picture download
	FetchTimeout time.Duration
	// Proxies maps "http" and "https" to proxy URLs
	Proxies map[string]string
	// ImageDirectory receives downloaded pictures. Empty means an images
	// folder next to the output document.
	ImageDirectory string
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LogLevel:              "info",
		MaxRenderDepth:        5,
		AllowExternalDownload: false,
		FetchTimeout:          assets.DefaultFetchTimeout,
	}
}

// ConfigFromEnvironment creates a configuration from environment variables
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()

	if val := os.Getenv("DOCXGEN_LOG_LEVEL"); val != "" {
		config.LogLevel = strings.ToLower(val)
	}

	if val := os.Getenv("DOCXGEN_MAX_RENDER_DEPTH"); val != "" {
		if depth, err := strconv.Atoi(val); err == nil {
			config.MaxRenderDepth = depth
		}
	}

	if val := os.Getenv("DOCXGEN_ALLOW_EXTERNAL_DOWNLOAD"); val != "" {
		config.AllowExternalDownload = parseBool(val)
	}

	if val := os.Getenv("DOCXGEN_FETCH_TIMEOUT"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.FetchTimeout = duration
		}
	}

	for scheme, name := range map[string]string{"http": "DOCXGEN_HTTP_PROXY", "https": "DOCXGEN_HTTPS_PROXY"} {
		if val := os.Getenv(name); val != "" {
			if config.Proxies == nil {
				config.Proxies = make(map[string]string)
			}
			config.Proxies[scheme] = val
		}
	}

	if val := os.Getenv("DOCXGEN_IMAGE_DIRECTORY"); val != "" {
		config.ImageDirectory = val
	}

	return config
}

// NewConfigWithDefaults creates a new configuration with defaults applied to unset fields
func NewConfigWithDefaults(overrides *Config) *Config {
	defaults := DefaultConfig()
	if overrides == nil {
		return defaults
	}

	config := *overrides
	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}
	if config.MaxRenderDepth == 0 {
		config.MaxRenderDepth = defaults.MaxRenderDepth
	}
	if config.FetchTimeout == 0 {
		config.FetchTimeout = defaults.FetchTimeout
	}
	if overrides.Proxies != nil {
		config.Proxies = make(map[string]string, len(overrides.Proxies))
		for k, v := range overrides.Proxies {
			config.Proxies[k] = v
		}
	}
	return &config
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return errors.New("invalid log level: " + c.LogLevel)
	}

	if c.MaxRenderDepth <= 0 {
		return errors.New("max render depth must be positive")
	}

	if c.FetchTimeout < 0 {
		return errors.New("fetch timeout cannot be negative")
	}

	return assets.ValidateProxies(c.Proxies)
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
