package jobsystem

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Scheduler owns the fixed worker pool, the shared Job pool, and the
// wake signal workers sleep on between Work() attempts. It carries no
// package-level mutable state: nothing prevents multiple Scheduler
// instances from coexisting in one process, even though a typical host
// process only ever needs one.
type Scheduler struct {
	config  Config
	pool    *Pool
	workers []*Worker
	metrics schedulerMetrics
	logger  *zap.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	wakeMu sync.Mutex
	wakeCh chan struct{}

	started atomic.Bool

	// onReclaim, when non-nil, is invoked with a Job's ID immediately
	// before it is reset and returned to a free/delete list. It exists
	// solely so tests can observe reclamation order; production callers
	// have no need for it.
	onReclaim func(id string)
}

// New constructs a Scheduler from cfg and allocates its worker and pool
// state, but does not start any background goroutines — call Init for
// that. Separating construction from Init lets a caller build and
// inspect a Scheduler (wiring metrics, grabbing JoinAsWorker) before any
// goroutine is running.
func New(cfg Config) *Scheduler {
	cfg = cfg.withDefaults()

	s := &Scheduler{
		config: cfg,
		logger: cfg.Logger,
		pool:   newPool(cfg.PoolCapacity, cfg.Logger),
		stopCh: make(chan struct{}),
		wakeCh: make(chan struct{}),
	}
	s.metrics = schedulerMetrics{reg: cfg.Metrics, pool: s.pool}

	s.workers = make([]*Worker, cfg.NumWorkers)
	for i := range s.workers {
		s.workers[i] = &Worker{
			id:        i,
			scheduler: s,
			local:     newQueue(),
			global:    newQueue(),
		}
	}
	return s
}

// Init starts the detached background workers (indices 1..N-1). Worker 0
// is never given its own goroutine here: it is driven by whichever
// goroutine calls JoinAsWorker or RunJob.
func (s *Scheduler) Init() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	for i := 1; i < len(s.workers); i++ {
		w := s.workers[i]
		s.wg.Add(1)
		go w.loop()
	}
	s.logger.Info("jobsystem: initialized", zap.Int("workers", len(s.workers)))
}

// JoinAsWorker returns worker 0's handle, the foreground thread's
// participation point in the pool. Safe to call repeatedly; it always
// returns the same *Worker.
func (s *Scheduler) JoinAsWorker() *Worker {
	return s.workers[0]
}

// NumWorkers returns the fixed size of the worker pool.
func (s *Scheduler) NumWorkers() int {
	return len(s.workers)
}

// Pool exposes the scheduler's Job pool, mainly for tests verifying
// bounded memory via Pool.BlocksInUse.
func (s *Scheduler) Pool() *Pool {
	return s.pool
}

// RunJob is the top-level entry point used by a foreground thread. It
// requires no job already running on the calling worker, executes fn as
// a root job, and loops: while the root has outstanding children, the
// calling thread participates via Work() and a bounded cooperative wait
// rather than blocking; once drained, the completion protocol runs and,
// if the root (or any job in its continuation chain) scheduled a
// continuation via Continuation, that continuation becomes the next job
// the loop runs directly. Driving the chain this way — rather than
// re-queuing the continuation and returning — guarantees it runs exactly
// once, on the thread that is already waiting for it, with no other
// worker racing to steal the same job.
func (s *Scheduler) RunJob(fn Func) {
	w := s.JoinAsWorker()
	if w.runningJob != nil {
		fatal("RunJob", ErrAmbientJobViolation)
	}

	cur := w.allocJob(fn)
	for cur != nil {
		w.runningJob = cur
		cur.fn(w)
		w.runningJob = nil

		for cur.JobsLeft() > 1 {
			if !w.Work() {
				w.waitBriefly()
			}
		}

		cur = complete(w, cur, true)
	}
}

// Stop signals every worker to exit after finishing its current job
// (a graceful shutdown; any jobs still queued are lost), waits for the
// detached workers to return, then drains every worker's free list and
// delete list back to the shared pool so a subsequent Pool().BlocksInUse() call
// reports 0 once the graph is quiescent, instead of leaving each worker's
// reuse cache counted as permanently checked out. Safe to call more than
// once; only the first call has any effect.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		for _, w := range s.workers {
			w.drainAll()
		}
		s.logger.Info("jobsystem: stopped")
	})
}

// wake closes the current wake channel (releasing every worker blocked
// in waitBriefly) and installs a fresh one — the channel-based idiom
// this codebase uses in place of a condvar broadcast, since sync.Cond
// has no timeout-aware Wait.
func (s *Scheduler) wake() {
	s.wakeMu.Lock()
	ch := s.wakeCh
	s.wakeCh = make(chan struct{})
	s.wakeMu.Unlock()
	close(ch)
}

func (s *Scheduler) waitChan() chan struct{} {
	s.wakeMu.Lock()
	defer s.wakeMu.Unlock()
	return s.wakeCh
}
