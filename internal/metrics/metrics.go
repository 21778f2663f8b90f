// Package metrics records operational metrics for the bridge behind a small
// backend-agnostic interface.
//
// A global backend defaults to a no-op, so instrumented code never has to
// check whether metrics are configured. Concrete systems live in
// subpackages (prompush, datadog) and are installed with SetBackend.
package metrics

import "time"

// Metric names shared by every backend.
const (
	StepTotal    = "chbridge_step_total"
	StepDuration = "chbridge_step_duration_seconds"
	ColumnsTotal = "chbridge_columns_total"
	RowsTotal    = "chbridge_rows_total"
)

// Column mapping outcomes counted under ColumnsTotal.
const (
	ColumnMapped          = "mapped"
	ColumnUnsupported     = "unsupported"
	ColumnForcedVarchar   = "forced_varchar"
	ColumnJSON            = "json"
	ColumnDecimalOverflow = "decimal_overflow"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a latency style value.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes buffered metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one bridge operation (list_schemas, rename_table, ...)
// and its latency, split by outcome.
func RecordStep(catalog, op string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"catalog": catalog,
		"op":      op,
		"status":  status,
	}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordColumn counts one column translation by outcome kind.
func RecordColumn(catalog, kind string) {
	backend.IncCounter(ColumnsTotal, 1, Labels{"catalog": catalog, "kind": kind})
}

// RecordRows counts rows moved by the write path, e.g. kind "staged" or
// "committed".
func RecordRows(catalog, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{"catalog": catalog, "kind": kind})
}
