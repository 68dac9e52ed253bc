package config

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validConfig() Config {
	return Config{
		DSN:       "postgres://u@localhost/db",
		Mode:      ModeInsert,
		Rows:      10,
		BatchSize: 5,
		Workers:   1,
		Pool:      PoolConfig{MaxConns: 4},
		Metrics:   MetricsConfig{Backend: BackendNone},
	}
}

func TestValidate_ValidMinimal(t *testing.T) {
	t.Parallel()
	require.Empty(t, Validate(validConfig()))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		sev    IssueSeverity
		path   string
		msg    string
	}{
		{"empty dsn", func(c *Config) { c.DSN = " " }, SeverityError, "dsn", "must not be empty"},
		{"empty mode", func(c *Config) { c.Mode = "" }, SeverityError, "mode", "must not be empty"},
		{"unknown mode", func(c *Config) { c.Mode = "merge" }, SeverityError, "mode", `unknown mode "merge"`},
		{"update without column", func(c *Config) { c.Mode = ModeUpdate; c.UpdateColumn = "" }, SeverityError, "update_column", "requires update_column"},
		{"workers outside stream", func(c *Config) { c.Workers = 4 }, SeverityWarning, "workers", "only applies to stream"},
		{"negative workers", func(c *Config) { c.Mode = ModeStream; c.Workers = -1 }, SeverityError, "workers", "must not be negative"},
		{"negative rows", func(c *Config) { c.Rows = -1 }, SeverityError, "rows", "must not be negative"},
		{"zero rows", func(c *Config) { c.Rows = 0 }, SeverityWarning, "rows", "nothing will be written"},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }, SeverityWarning, "batch_size", "default will be used"},
		{"negative pool", func(c *Config) { c.Pool.MaxConns = -2 }, SeverityError, "pool.max_conns", "must not be negative"},
		{"pool below workers", func(c *Config) { c.Mode = ModeStream; c.Workers = 8 }, SeverityWarning, "pool.max_conns", "below workers=8"},
		{"prometheus without url", func(c *Config) { c.Metrics.Backend = BackendPrometheus }, SeverityError, "metrics.pushgateway_url", "requires pushgateway_url"},
		{"datadog without addr", func(c *Config) { c.Metrics.Backend = BackendDatadog }, SeverityError, "metrics.datadog_addr", "requires datadog_addr"},
		{"unknown backend", func(c *Config) { c.Metrics.Backend = "statsd" }, SeverityWarning, "metrics.backend", "metrics will be disabled"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, SeverityWarning, "log_level", "falling back to info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := validConfig()
			tt.mutate(&c)
			issues := Validate(c)
			require.True(t, hasIssue(issues, tt.sev, tt.path, tt.msg), "got issues: %+v", issues)
		})
	}
}

func TestHasErrors(t *testing.T) {
	t.Parallel()

	require.False(t, HasErrors(nil))
	require.False(t, HasErrors([]Issue{{Severity: SeverityWarning}}))
	require.True(t, HasErrors([]Issue{{Severity: SeverityWarning}, {Severity: SeverityError}}))
	require.Equal(t, "error at dsn: x", Issue{Severity: SeverityError, Path: "dsn", Message: "x"}.Error())
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]slog.Level{
		"": slog.LevelInfo, "DEBUG": slog.LevelDebug, "warning": slog.LevelWarn, "error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseLevel("trace")
	require.Error(t, err)
}
