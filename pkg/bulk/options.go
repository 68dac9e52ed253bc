package bulk

import (
	"log/slog"

	"dataflow/internal/model"
	"dataflow/internal/storage/postgres"
)

// Provider hands out one pooled connection per operation; see postgres.Pool.
type Provider = postgres.Provider

// Conn is the connection surface a Provider returns.
type Conn = postgres.Conn

// Option configures a Writer.
type Option func(*options)

type options struct {
	registry *model.Registry
	log      *slog.Logger
	job      string
}

func defaults() options {
	return options{
		log: slog.Default(),
		job: "dataflow",
	}
}

// WithRegistry shares a model registry between writers. Without it each
// writer reflects its record type into a private registry.
func WithRegistry(r *model.Registry) Option {
	return func(o *options) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithJob sets the job label attached to metrics.
func WithJob(job string) Option {
	return func(o *options) {
		if job != "" {
			o.job = job
		}
	}
}
