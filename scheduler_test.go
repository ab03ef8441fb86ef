package jobsystem

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/go-foundations/jobsystem/internal/metrics"
)

// SchedulerTestSuite exercises end-to-end scenarios through RunJob with a
// fully Init'd pool of detached background workers.
type SchedulerTestSuite struct {
	suite.Suite
}

func TestSchedulerTestSuite(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}

func newTestScheduler(ts *SchedulerTestSuite, numWorkers int) (*Scheduler, *metrics.Registry) {
	reg := metrics.New(prometheus.NewRegistry())
	s := New(Config{
		NumWorkers:   numWorkers,
		PoolCapacity: 1 << 16,
		StealWait:    time.Millisecond,
		Logger:       zap.NewNop(),
		Metrics:      reg,
	})
	s.Init()
	return s, reg
}

// TestFanOutFanIn: a root job schedules 1000 children writing into a
// shared slice, and exactly 1001 Job records are allocated across the
// whole run.
func (ts *SchedulerTestSuite) TestFanOutFanIn() {
	s, reg := newTestScheduler(ts, 4)

	const n = 1000
	results := make([]int32, n)

	s.RunJob(func(w *Worker) {
		for i := 0; i < n; i++ {
			i := i
			w.Schedule(func(w *Worker) {
				atomic.StoreInt32(&results[i], int32(i))
			})
		}
	})

	for i := 0; i < n; i++ {
		ts.EqualValues(i, results[i])
	}
	ts.Equal(float64(n+1), testutil.ToFloat64(reg.JobsAllocated))
	ts.Equal(float64(n+1), testutil.ToFloat64(reg.JobsReclaimed))

	s.Stop()
	ts.Equal(0, s.Pool().BlocksInUse(), "memory should be bounded once the graph is quiescent")
}

// TestContinuationChainRunsInOrder: A schedules continuation B which
// schedules continuation C; the three must run in that order and
// exactly once each.
func (ts *SchedulerTestSuite) TestContinuationChainRunsInOrder() {
	s, _ := newTestScheduler(ts, 2)
	defer s.Stop()

	var mu sync.Mutex
	var order string

	s.RunJob(func(w *Worker) {
		mu.Lock()
		order += "A"
		mu.Unlock()
		w.Continuation(func(w *Worker) {
			mu.Lock()
			order += "B"
			mu.Unlock()
			w.Continuation(func(w *Worker) {
				mu.Lock()
				order += "C"
				mu.Unlock()
			})
		})
	})

	ts.Equal("ABC", order)
}

// TestNestedParentingKeepsAncestorsAliveUntilDescendantsFinish: root
// schedules X, X schedules Y; root and X must not reclaim before Y does.
func (ts *SchedulerTestSuite) TestNestedParentingKeepsAncestorsAliveUntilDescendantsFinish() {
	s, _ := newTestScheduler(ts, 2)
	defer s.Stop()

	var mu sync.Mutex
	var reclaimOrder []string
	var idMu sync.Mutex
	ids := map[string]string{}

	s.JoinAsWorker().scheduler.onReclaim = func(id string) {
		mu.Lock()
		defer mu.Unlock()
		idMu.Lock()
		name := ids[id]
		idMu.Unlock()
		if name != "" {
			reclaimOrder = append(reclaimOrder, name)
		}
	}

	s.RunJob(func(w *Worker) {
		idMu.Lock()
		ids[w.runningJob.ID] = "root"
		idMu.Unlock()
		x := w.Schedule(func(w *Worker) {
			idMu.Lock()
			ids[w.runningJob.ID] = "X"
			idMu.Unlock()
			y := w.Schedule(func(w *Worker) {
				idMu.Lock()
				ids[w.runningJob.ID] = "Y"
				idMu.Unlock()
			})
			_ = y
		})
		_ = x
	})

	ts.Equal([]string{"Y", "X", "root"}, reclaimOrder)
}

// TestDetachedJobIsIsolatedFromItsScheduler: RunJob returns without
// waiting on a detached job, but the detached job still eventually runs.
func (ts *SchedulerTestSuite) TestDetachedJobIsIsolatedFromItsScheduler() {
	s, _ := newTestScheduler(ts, 2)
	defer s.Stop()

	done := make(chan struct{})
	s.RunJob(func(w *Worker) {
		w.ScheduleDetached(func(w *Worker) {
			close(done)
		})
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		ts.Fail("detached job never ran")
	}
}

// TestAffinityIsRespected: every job pinned to worker 2 via
// ScheduleForThread runs on worker 2, never elsewhere.
func (ts *SchedulerTestSuite) TestAffinityIsRespected() {
	s, _ := newTestScheduler(ts, 4)
	defer s.Stop()

	const n = 100
	observed := make([]int32, n)

	s.RunJob(func(w *Worker) {
		for i := 0; i < n; i++ {
			i := i
			w.ScheduleForThread(2, func(w *Worker) {
				atomic.StoreInt32(&observed[i], int32(w.Index()))
			})
		}
	})

	for i := 0; i < n; i++ {
		ts.EqualValues(2, observed[i])
	}
}

// TestNoLostWakeups is a regression test for lost wakeups: jobs scheduled
// while every background worker is mid-wait (not mid-steal) must still be
// picked up promptly rather than stalling for a full StealWait interval
// per hop.
func (ts *SchedulerTestSuite) TestNoLostWakeups() {
	s, _ := newTestScheduler(ts, 4)
	defer s.Stop()

	// Let the background workers settle into waitBriefly.
	time.Sleep(5 * time.Millisecond)

	start := time.Now()
	done := make(chan struct{})
	s.RunJob(func(w *Worker) {
		w.Schedule(func(w *Worker) {
			close(done)
		})
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		ts.Fail("job never ran")
	}
	ts.Less(time.Since(start), 500*time.Millisecond)
}

// TestRunJobPanicsIfAlreadyRunning guards the ambient-job precondition
// RunJob documents: calling it from a goroutine that already has a running
// job is a fatal caller error.
func (ts *SchedulerTestSuite) TestRunJobPanicsIfAlreadyRunning() {
	s, _ := newTestScheduler(ts, 1)
	defer s.Stop()

	s.RunJob(func(w *Worker) {
		ts.Panics(func() {
			s.RunJob(func(w *Worker) {})
		})
	})
}

// TestStopDrainsDeleteListsToZeroBlocksInUse is a regression test for the
// case where a free-list high-water mark forces entries onto the delete
// list: Stop must drain every worker's delete list so BlocksInUse settles
// at zero.
func (ts *SchedulerTestSuite) TestStopDrainsDeleteListsToZeroBlocksInUse() {
	s, _ := newTestScheduler(ts, 1)

	const n = freeListCap*2 + 10
	s.RunJob(func(w *Worker) {
		for i := 0; i < n; i++ {
			w.Schedule(func(w *Worker) {})
		}
	})

	s.Stop()
	ts.Equal(0, s.Pool().BlocksInUse())
}

// TestContinuationOverwriteReplacesFirst exercises the documented caller
// contract: scheduling a second continuation on the same running job
// overwrites the first without panicking.
func (ts *SchedulerTestSuite) TestContinuationOverwriteReplacesFirst() {
	s, _ := newTestScheduler(ts, 1)
	defer s.Stop()

	var ran string
	s.RunJob(func(w *Worker) {
		w.Continuation(func(w *Worker) { ran += "first" })
		w.Continuation(func(w *Worker) { ran += "second" })
	})
	ts.Equal("second", ran)
	ts.False(strings.Contains(ran, "first"))
}
