package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is the dotted config key
// (e.g. "metrics.pushgateway_url").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be returned as one.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether issues contains at least one SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static checks over c without mutating it. Callers decide
// whether warnings are fatal.
func Validate(c Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "dsn",
			Message:  "dsn must not be empty",
		})
	}

	issues = append(issues, validateMode(c)...)
	issues = append(issues, validateSizing(c)...)
	issues = append(issues, validateMetrics(c.Metrics)...)

	if _, err := ParseLevel(c.LogLevel); err != nil {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "log_level",
			Message:  fmt.Sprintf("%v; falling back to info", err),
		})
	}

	return issues
}

func validateMode(c Config) []Issue {
	var issues []Issue

	switch c.Mode {
	case ModeInsert, ModeSimulate, ModeStream:
	case ModeUpdate:
		if strings.TrimSpace(c.UpdateColumn) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "update_column",
				Message:  "update mode requires update_column",
			})
		}
	case "":
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "mode",
			Message:  "mode must not be empty",
		})
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "mode",
			Message:  fmt.Sprintf("unknown mode %q; want insert, simulate, update or stream", c.Mode),
		})
	}

	if c.Mode != ModeStream && c.Workers > 1 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "workers",
			Message:  fmt.Sprintf("workers=%d only applies to stream mode", c.Workers),
		})
	}
	return issues
}

func validateSizing(c Config) []Issue {
	var issues []Issue

	if c.Rows < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "rows",
			Message:  "rows must not be negative",
		})
	} else if c.Rows == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "rows",
			Message:  "rows=0; nothing will be written",
		})
	}
	if c.BatchSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "batch_size",
			Message:  fmt.Sprintf("batch_size=%d; the default will be used", c.BatchSize),
		})
	}
	if c.Workers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "workers",
			Message:  "workers must not be negative",
		})
	}
	if c.Pool.MaxConns < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "pool.max_conns",
			Message:  "pool.max_conns must not be negative",
		})
	} else if c.Mode == ModeStream && c.Pool.MaxConns > 0 && int(c.Pool.MaxConns) < c.Workers {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "pool.max_conns",
			Message:  fmt.Sprintf("pool.max_conns=%d is below workers=%d; workers will wait on the pool", c.Pool.MaxConns, c.Workers),
		})
	}
	return issues
}

func validateMetrics(m MetricsConfig) []Issue {
	var issues []Issue

	switch m.Backend {
	case "", BackendNone:
	case BackendPrometheus:
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "prometheus backend requires pushgateway_url",
			})
		}
	case BackendDatadog:
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.datadog_addr",
				Message:  "datadog backend requires datadog_addr",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics will be disabled", m.Backend),
		})
	}
	return issues
}

// ParseLevel maps a log_level string onto a slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
