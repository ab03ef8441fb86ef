package jobsystem

import (
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/go-foundations/jobsystem/internal/metrics"
)

// Config holds configuration for the scheduler.
type Config struct {
	// NumWorkers is the fixed worker-pool size. Zero or negative
	// defaults to runtime.NumCPU().
	NumWorkers int

	// PoolCapacity bounds the Job pool. Size it for your peak fan-out:
	// exhausting it is fatal.
	PoolCapacity int

	// StealWait bounds the cooperative wait between Work() attempts.
	StealWait time.Duration

	// Logger receives scheduler lifecycle and fatal-condition logging.
	// Defaults to a no-op logger, as a library should.
	Logger *zap.Logger

	// Metrics, if non-nil, receives Prometheus instrumentation for job
	// scheduling, completion, and steal attempts. Optional; nil-safe.
	Metrics *metrics.Registry
}

// DefaultConfig returns sensible defaults: one worker per logical CPU, a
// pool sized generously for typical per-frame fan-out, and a 1ms steal
// wait.
func DefaultConfig() Config {
	return Config{
		NumWorkers:   runtime.NumCPU(),
		PoolCapacity: 4096,
		StealWait:    time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	if c.NumWorkers <= 0 {
		c.NumWorkers = runtime.NumCPU()
	}
	if c.NumWorkers <= 0 {
		c.NumWorkers = 1
	}
	if c.PoolCapacity <= 0 {
		c.PoolCapacity = 4096
	}
	if c.StealWait <= 0 {
		c.StealWait = time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}
