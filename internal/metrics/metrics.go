// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from bulk writers.
//
// A process installs one Backend (Prometheus Pushgateway, Datadog, or the
// default no-op) with SetBackend; writers call the Record* helpers and never
// see the concrete metrics system.
package metrics

import (
	"sync/atomic"
	"time"
)

// Metric names emitted by the Record* helpers.
const (
	StepTotal           = "dataflow_step_total"
	StepDurationSeconds = "dataflow_step_duration_seconds"
	RecordsTotal        = "dataflow_records_total"
	BatchesTotal        = "dataflow_batches_total"
)

// Steps recorded by the bulk writer.
const (
	StepBind     = "bind"
	StepCopy     = "copy"
	StepSimulate = "simulate"
	StepUpdate   = "update"
	StepStream   = "stream"
)

// Record kinds.
const (
	KindEncoded  = "encoded"
	KindInserted = "inserted"
	KindUpdated  = "updated"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

type holder struct{ Backend }

var current atomic.Pointer[holder]

func init() { current.Store(&holder{nopBackend{}}) }

func backend() Backend { return current.Load().Backend }

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	current.Store(&holder{b})
}

// Flush delegates to the current backend.
func Flush() error {
	return backend().Flush()
}

// RecordStep measures latency and success/failure of one writer operation.
func RecordStep(job, table, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"job":    job,
		"table":  table,
		"step":   step,
		"status": status,
	}
	b := backend()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRow increments a record-level counter, e.g. KindInserted.
func RecordRow(job, table, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend().IncCounter(RecordsTotal, float64(delta), Labels{
		"job":   job,
		"table": table,
		"kind":  kind,
	})
}

// RecordBatches increments the flushed-batch counter.
func RecordBatches(job, table string, delta int64) {
	if delta <= 0 {
		return
	}
	backend().IncCounter(BatchesTotal, float64(delta), Labels{
		"job":   job,
		"table": table,
	})
}
