package config

import (
	"fmt"
	"strings"

	"github.com/ajitpratap0/nebula-arrow/pkg/logger"
	"github.com/ajitpratap0/nebula-arrow/pkg/nebulaerrors"
)

// Capability level names accepted in Capability.Overrides.
const (
	LevelSupported   = "supported"
	LevelCaveat      = "caveat"
	LevelUnsupported = "unsupported"
)

// Config is the root configuration of the library and the CLI.
type Config struct {
	// Logging configures the global zap logger
	Logging logger.Config `yaml:"logging" json:"logging"`

	// Capability controls which compute kernels may be used
	Capability CapabilityConfig `yaml:"capability" json:"capability"`

	// Compute holds defaults for statistical kernels
	Compute ComputeConfig `yaml:"compute" json:"compute"`

	// Metrics toggles prometheus instrumentation of kernel calls
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// CapabilityConfig is read once by the capability probe.
type CapabilityConfig struct {
	// MinimumVersion is the lowest arrow-go version arrays may be built on
	MinimumVersion string `yaml:"minimum_version" json:"minimum_version"`
	// Overrides maps kernel name to supported, caveat or unsupported
	Overrides map[string]string `yaml:"overrides" json:"overrides"`
}

// ComputeConfig holds defaults for reductions and parsing.
type ComputeConfig struct {
	// DefaultDDof is the delta degrees of freedom for std, var and sem
	DefaultDDof int `yaml:"default_ddof" json:"default_ddof"`
	// MedianCompression is the t-digest compression used for median
	MedianCompression float64 `yaml:"median_compression" json:"median_compression"`
	// NullTokens are strings parsed as missing values by FromStrings
	NullTokens []string `yaml:"null_tokens" json:"null_tokens"`
}

// MetricsConfig controls kernel instrumentation.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Logging: logger.Config{
			Level:    "warn",
			Encoding: "json",
		},
		Capability: CapabilityConfig{
			MinimumVersion: "v18.0.0",
			Overrides:      map[string]string{},
		},
		Compute: ComputeConfig{
			DefaultDDof:       1,
			MedianCompression: 100,
			NullTokens:        []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "None", "NaT", "<NA>"},
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Validate checks the configuration for values the library cannot honour.
func (c *Config) Validate() error {
	if c.Capability.MinimumVersion != "" && !strings.HasPrefix(c.Capability.MinimumVersion, "v") {
		return nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig,
			"capability.minimum_version must be a semantic version like v18.0.0, got %q", c.Capability.MinimumVersion)
	}
	for kernel, level := range c.Capability.Overrides {
		switch strings.ToLower(level) {
		case LevelSupported, LevelCaveat, "supported-with-caveat", LevelUnsupported:
		default:
			return nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig,
				"capability.overrides[%s]: unknown level %q", kernel, level)
		}
	}
	if c.Compute.DefaultDDof < 0 {
		return nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "compute.default_ddof must be non-negative").
			WithDetail("default_ddof", c.Compute.DefaultDDof)
	}
	if c.Compute.MedianCompression <= 0 {
		return nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "compute.median_compression must be positive").
			WithDetail("median_compression", c.Compute.MedianCompression)
	}
	return nil
}

// String renders a short summary used in CLI debug output.
func (c *Config) String() string {
	return fmt.Sprintf("logging=%s capability.min=%s overrides=%d ddof=%d",
		c.Logging.Level, c.Capability.MinimumVersion, len(c.Capability.Overrides), c.Compute.DefaultDDof)
}
