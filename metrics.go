package jobsystem

import "github.com/go-foundations/jobsystem/internal/metrics"

// schedulerMetrics adapts an optional *metrics.Registry into a set of
// nil-safe recording methods, so the hot path (worker.go, completion.go)
// never has to branch on whether the caller configured Prometheus
// instrumentation.
type schedulerMetrics struct {
	reg  *metrics.Registry
	pool *Pool
}

func (m schedulerMetrics) recordSchedule() {
	if m.reg == nil {
		return
	}
	m.reg.JobsScheduled.Inc()
}

func (m schedulerMetrics) recordComplete() {
	if m.reg == nil {
		return
	}
	m.reg.JobsCompleted.Inc()
}

func (m schedulerMetrics) recordAlloc() {
	if m.reg == nil {
		return
	}
	m.reg.JobsAllocated.Inc()
	if m.pool != nil {
		m.reg.PoolBlocksUsed.Set(float64(m.pool.BlocksInUse()))
	}
}

func (m schedulerMetrics) recordReclaim() {
	if m.reg == nil {
		return
	}
	m.reg.JobsReclaimed.Inc()
}

func (m schedulerMetrics) recordSteal(success bool) {
	if m.reg == nil {
		return
	}
	m.reg.StealAttempts.Inc()
	if success {
		m.reg.StealSuccesses.Inc()
	}
}
