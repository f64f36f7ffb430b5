package qualitygate

import (
	"fmt"
	"time"
)

// GateConfig defines the configuration for quality gates.
type GateConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`

	CompositionRequired bool `mapstructure:"composition_required" json:"composition_required"`

	FixturePassRate float64 `mapstructure:"fixture_pass_rate" json:"fixture_pass_rate"`
	FixtureSeverity string  `mapstructure:"fixture_severity" json:"fixture_severity"`

	CoverageThreshold float64 `mapstructure:"coverage_threshold" json:"coverage_threshold"`
	CoverageSeverity  string  `mapstructure:"coverage_severity" json:"coverage_severity"`

	MaxChangeRate float64 `mapstructure:"max_change_rate" json:"max_change_rate"`
	DriftSeverity string  `mapstructure:"drift_severity" json:"drift_severity"`

	MaxDuration      time.Duration `mapstructure:"max_duration" json:"max_duration"`
	DurationSeverity string        `mapstructure:"duration_severity" json:"duration_severity"`

	MaxErrors     int    `mapstructure:"max_errors" json:"max_errors"`
	ErrorSeverity string `mapstructure:"error_severity" json:"error_severity"`
}

// DefaultConfig returns the default gate configuration. Fixtures pin
// exact outputs, so the default pass rate is 1.0: one mismatch is one
// real regression.
func DefaultConfig() *GateConfig {
	return &GateConfig{
		Enabled:             true,
		CompositionRequired: true,
		FixturePassRate:     1.0,
		FixtureSeverity:     "required",
		CoverageThreshold:   0.9,
		CoverageSeverity:    "advisory",
		MaxChangeRate:       0.5,
		DriftSeverity:       "advisory",
		MaxDuration:         0, // disabled by default
		DurationSeverity:    "advisory",
		MaxErrors:           0,
		ErrorSeverity:       "critical",
	}
}

// parseSeverity converts a string to GateSeverity.
func parseSeverity(s string) GateSeverity {
	switch s {
	case "critical":
		return SeverityCritical
	case "required":
		return SeverityRequired
	case "advisory":
		return SeverityAdvisory
	default:
		return SeverityRequired
	}
}

// BuildPipeline constructs a gate pipeline from configuration.
func BuildPipeline(cfg *GateConfig) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	p := NewPipeline()

	if cfg.CompositionRequired {
		p.AddGate(NewCompositionGate(SeverityCritical))
	}

	if cfg.FixturePassRate > 0 {
		p.AddGate(NewFixtureGate(cfg.FixturePassRate, parseSeverity(cfg.FixtureSeverity)))
	}

	if cfg.CoverageThreshold > 0 {
		p.AddGate(NewCoverageGate(cfg.CoverageThreshold, parseSeverity(cfg.CoverageSeverity)))
	}

	if cfg.MaxChangeRate > 0 {
		p.AddGate(NewDriftGate(cfg.MaxChangeRate, parseSeverity(cfg.DriftSeverity)))
	}

	if cfg.MaxDuration > 0 {
		p.AddGate(NewDurationGate(cfg.MaxDuration, parseSeverity(cfg.DurationSeverity)))
	}

	if cfg.MaxErrors >= 0 {
		p.AddGate(NewErrorGate(cfg.MaxErrors, parseSeverity(cfg.ErrorSeverity)))
	}

	return p
}

// FormatReport returns a human-readable quality gate report.
func FormatReport(result *PipelineResult) string {
	var s string
	s += "╔══════════════════════════════════════════╗\n"
	s += "║      Verification Gate Report            ║\n"
	s += "╠══════════════════════════════════════════╣\n"

	for _, gr := range result.Gates {
		icon := "✓"
		switch gr.Status {
		case GateFailed:
			icon = "✗"
		case GateSkipped:
			icon = "○"
		case GateWarning:
			icon = "⚠"
		}

		severity := ""
		switch gr.Severity {
		case SeverityCritical:
			severity = "[CRITICAL]"
		case SeverityRequired:
			severity = "[REQUIRED]"
		case SeverityAdvisory:
			severity = "[ADVISORY]"
		}

		s += fmt.Sprintf("║ %s %-12s %-10s %s\n", icon, gr.Name, severity, gr.Message)
		for _, d := range gr.Details {
			s += fmt.Sprintf("║   → %s\n", d)
		}
	}

	s += "╠══════════════════════════════════════════╣\n"
	status := "PASSED"
	if result.Status == GateFailed {
		status = "FAILED"
	}
	s += fmt.Sprintf("║ Result: %s (%s)\n", status, result.Summary)
	s += "╚══════════════════════════════════════════╝\n"

	return s
}
