// Package config loads scheduler tuning knobs from a file, environment
// variables, and flags, in that order of increasing precedence, via
// spf13/viper. It exists separately from the root package's Config so that
// cmd/jobsystemdemo (and any other embedding program) can resolve
// configuration without importing viper into the scheduler's own
// dependency surface.
//
// # Fields
//
//	┌───────────────┬─────────┬──────────────────────────────────────┐
//	│ Field         │ Default │ Description                          │
//	├───────────────┼─────────┼──────────────────────────────────────┤
//	│ NumWorkers    │ 0       │ Worker pool size; 0 means NumCPU      │
//	│ PoolCapacity  │ 4096    │ Fixed Job pool capacity               │
//	│ StealWaitMS   │ 1       │ Cooperative wait bound, milliseconds  │
//	│ MetricsAddr   │ ""      │ Prometheus listen address, if any     │
//	└───────────────┴─────────┴──────────────────────────────────────┘
//
// Environment variables use the JOBSYSTEM_ prefix (JOBSYSTEM_NUM_WORKERS,
// JOBSYSTEM_POOL_CAPACITY, JOBSYSTEM_STEAL_WAIT_MS, JOBSYSTEM_METRICS_ADDR).
package config
