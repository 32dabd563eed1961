// Package capability probes the compute kernels available to the columnar
// array once and answers, per kernel, whether it can be used as-is, used
// with a known caveat, or must be replaced by a generic implementation.
//
// The probe inspects the arrow-go compute registry, the extension kernels
// registered by package kernels, and the arrow-go module version linked
// into the binary. Configuration can downgrade any kernel, which is how
// deployments pin themselves to the generic paths.
package capability

import (
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow/compute"
	"go.uber.org/zap"
	"golang.org/x/mod/semver"

	"github.com/ajitpratap0/nebula-arrow/pkg/config"
	"github.com/ajitpratap0/nebula-arrow/pkg/kernels"
	"github.com/ajitpratap0/nebula-arrow/pkg/logger"
)

// Level is the usability of a kernel.
type Level int

const (
	// Unsupported kernels must not be called.
	Unsupported Level = iota
	// SupportedWithCaveat kernels exist but callers should prefer a safer path.
	SupportedWithCaveat
	// Supported kernels are used directly.
	Supported
)

func (l Level) String() string {
	switch l {
	case Supported:
		return config.LevelSupported
	case SupportedWithCaveat:
		return "supported-with-caveat"
	default:
		return config.LevelUnsupported
	}
}

// ParseLevel reads a level name as used in configuration files.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case config.LevelSupported:
		return Supported, true
	case config.LevelCaveat, "supported-with-caveat":
		return SupportedWithCaveat, true
	case config.LevelUnsupported:
		return Unsupported, true
	}
	return Unsupported, false
}

// ArrowModule is the module path whose version gates construction.
const ArrowModule = "github.com/apache/arrow-go/v18"

// UnknownVersion is reported when build info carries no arrow-go version,
// as happens for binaries built from a workspace checkout.
const UnknownVersion = "unknown"

// Probe is an immutable snapshot of kernel availability.
type Probe struct {
	version        string
	minimumVersion string
	levels         map[string]Level
}

// Version returns the linked arrow-go version or UnknownVersion.
func (p *Probe) Version() string { return p.version }

// MinimumVersion returns the configured minimum arrow-go version.
func (p *Probe) MinimumVersion() string { return p.minimumVersion }

// MeetsMinimum reports whether arrays may be constructed. An unknown
// version is assumed to be recent enough.
func (p *Probe) MeetsMinimum() bool {
	if p.minimumVersion == "" || !semver.IsValid(p.version) {
		return true
	}
	return semver.Compare(p.version, p.minimumVersion) >= 0
}

// Level returns the usability of kernel. Kernels the probe has never heard
// of are Unsupported.
func (p *Probe) Level(kernel string) Level {
	return p.levels[kernel]
}

// Supports reports whether kernel is usable, with or without caveat.
func (p *Probe) Supports(kernel string) bool {
	return p.Level(kernel) >= SupportedWithCaveat
}

// Reliable reports whether kernel is usable without caveat.
func (p *Probe) Reliable(kernel string) bool {
	return p.Level(kernel) == Supported
}

// Kernels lists probed kernel names in sorted order.
func (p *Probe) Kernels() []string {
	names := make([]string, 0, len(p.levels))
	for name := range p.levels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	current   atomic.Pointer[Probe]
	probeOnce sync.Once
	probeMu   sync.Mutex
)

// Current returns the active probe, running the default probe on first use.
func Current() *Probe {
	if p := current.Load(); p != nil {
		return p
	}
	probeOnce.Do(func() {
		probeMu.Lock()
		defer probeMu.Unlock()
		if current.Load() == nil {
			current.Store(Run(config.Default().Capability))
		}
	})
	return current.Load()
}

// Configure replaces the active probe with one built from cfg.
func Configure(cfg config.CapabilityConfig) *Probe {
	probeMu.Lock()
	defer probeMu.Unlock()
	p := Run(cfg)
	current.Store(p)
	return p
}

// Run probes kernels without installing the result.
func Run(cfg config.CapabilityConfig) *Probe {
	p := &Probe{
		version:        linkedVersion(),
		minimumVersion: cfg.MinimumVersion,
		levels:         make(map[string]Level),
	}

	for _, name := range compute.GetFunctionRegistry().GetFunctionNames() {
		p.levels[name] = Supported
	}
	for _, name := range kernels.Names() {
		if kernels.Has(name) {
			p.levels[name] = Supported
		}
	}

	for kernel, raw := range cfg.Overrides {
		level, ok := ParseLevel(raw)
		if !ok {
			logger.Warn("ignoring unknown capability level",
				zap.String("kernel", kernel), zap.String("level", raw))
			continue
		}
		p.levels[kernel] = level
	}

	logger.Debug("capability probe complete",
		zap.String("arrow_version", p.version),
		zap.Int("kernels", len(p.levels)),
		zap.Int("overrides", len(cfg.Overrides)))
	return p
}

func linkedVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return UnknownVersion
	}
	for _, dep := range info.Deps {
		if dep.Path != ArrowModule {
			continue
		}
		if dep.Replace != nil && dep.Replace.Version != "" {
			return dep.Replace.Version
		}
		return dep.Version
	}
	return UnknownVersion
}
