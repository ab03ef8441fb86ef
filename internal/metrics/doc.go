// Package metrics exposes Prometheus instrumentation for the job
// scheduler: counters for jobs scheduled/completed/allocated/reclaimed
// and for work-stealing attempts, plus a gauge for pool utilization.
// Wholly optional — a nil *Registry is always safe to use (see
// jobsystem.schedulerMetrics).
package metrics
