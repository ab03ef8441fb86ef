package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the Prometheus collectors the scheduler reports
// through. Construct with New and register with your own
// prometheus.Registerer (NewRegistry does not auto-register against the
// default registry, so embedding programs stay in control of their
// metrics namespace).
type Registry struct {
	JobsScheduled  prometheus.Counter
	JobsCompleted  prometheus.Counter
	JobsAllocated  prometheus.Counter
	JobsReclaimed  prometheus.Counter
	StealAttempts  prometheus.Counter
	StealSuccesses prometheus.Counter
	PoolBlocksUsed prometheus.Gauge
}

// New creates a Registry and registers its collectors against reg.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		JobsScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jobsystem",
			Name:      "jobs_scheduled_total",
			Help:      "Total jobs pushed onto a queue via Schedule, ScheduleDetached, or ScheduleForThread, or published as a continuation.",
		}),
		JobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jobsystem",
			Name:      "jobs_completed_total",
			Help:      "Total jobs whose outstanding-children counter reached zero.",
		}),
		JobsAllocated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jobsystem",
			Name:      "jobs_allocated_total",
			Help:      "Total Job records handed out by a worker's free list or the shared pool.",
		}),
		JobsReclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jobsystem",
			Name:      "jobs_reclaimed_total",
			Help:      "Total Job records reset and returned to a free list or delete list.",
		}),
		StealAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jobsystem",
			Name:      "steal_attempts_total",
			Help:      "Total Work() passes that fell through to scanning global queues.",
		}),
		StealSuccesses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jobsystem",
			Name:      "steal_successes_total",
			Help:      "Total Work() passes that found a job in another worker's global queue.",
		}),
		PoolBlocksUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jobsystem",
			Name:      "pool_blocks_in_use",
			Help:      "Job pool blocks checked out of the free stack, sampled at each Job allocation; releases back to the pool do not update it.",
		}),
	}
	reg.MustRegister(
		r.JobsScheduled,
		r.JobsCompleted,
		r.JobsAllocated,
		r.JobsReclaimed,
		r.StealAttempts,
		r.StealSuccesses,
		r.PoolBlocksUsed,
	)
	return r
}
