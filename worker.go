package jobsystem

import (
	"runtime"
	"time"

	"go.uber.org/zap"
)

// freeListCap is the per-worker free-list high-water mark: once a
// worker's reclaimed-job free list holds this many entries, further
// reclamations divert to the delete list instead.
const freeListCap = 100

// deleteDrainBatch bounds how many delete-list entries a worker returns
// to the pool in one idle-time drain.
const deleteDrainBatch = 16

// Worker is a single scheduling participant: either a detached
// background goroutine (workers 1..N-1) or the foreground goroutine
// driving worker 0 via RunJob/JoinAsWorker. It owns a local queue (only
// it, and explicit ScheduleForThread callers, push to it), a global
// queue (any worker may steal from it), and per-worker free/delete-list
// caches that absorb job recycling without touching the shared pool's
// mutex on the hot path.
//
// Worker is also the ambient-job carrier: job functors receive the
// *Worker executing them, and runningJob tracks the job whose functor is
// currently on this worker's stack, the way a thread-local would.
type Worker struct {
	id        int
	scheduler *Scheduler

	local  *Queue
	global *Queue

	runningJob *Job

	freeList    *Job
	freeListLen int

	deleteList    *Job
	deleteListLen int
}

// Index returns this worker's index in [0, N), usable for affinity
// decisions.
func (w *Worker) Index() int {
	return w.id
}

// loop is the steady-state body of a detached background worker.
// Worker 0 never calls this; it is driven directly by RunJob.
func (w *Worker) loop() {
	defer w.scheduler.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	w.scheduler.logger.Debug("worker started", zap.Int("worker", w.id))
	for {
		select {
		case <-w.scheduler.stopCh:
			w.scheduler.logger.Debug("worker stopped", zap.Int("worker", w.id))
			return
		default:
		}
		if !w.Work() {
			w.waitBriefly()
		}
	}
}

// Work performs one scheduling attempt: pop local, else steal from
// global queues in round-robin order starting at this worker's own
// index, else drain a batch of the delete list, else report idle. It
// returns true whenever it did something (ran a job or drained
// delete-list entries), matching the worker loop's contract for
// deciding whether to sleep next.
func (w *Worker) Work() bool {
	if j, ok := w.local.Pop(); ok {
		w.runQueued(j)
		return true
	}

	workers := w.scheduler.workers
	n := len(workers)
	for i := 0; i < n; i++ {
		idx := (w.id + i) % n
		if j, ok := workers[idx].global.Pop(); ok {
			w.scheduler.metrics.recordSteal(idx != w.id)
			w.runQueued(j)
			return true
		}
	}
	w.scheduler.metrics.recordSteal(false)

	if w.drainDeleteList() {
		return true
	}
	return false
}

// runQueued executes a job popped from a queue and runs the completion
// protocol on it. The ambient running job is cleared before the
// completion protocol runs so continuation scheduling never parents the
// continuation to the job that just finished.
func (w *Worker) runQueued(j *Job) {
	w.runningJob = j
	j.fn(w)
	w.runningJob = nil
	complete(w, j, false)
}

// waitBriefly is the cooperative-wait primitive: instead of blocking
// indefinitely, a worker (or RunJob's outer loop) waits at most
// StealWait on the scheduler's wake channel, which is closed and
// replaced every time Schedule publishes a job — the idiomatic Go
// stand-in for a condvar broadcast.
func (w *Worker) waitBriefly() {
	ch := w.scheduler.waitChan()
	timer := time.NewTimer(w.scheduler.config.StealWait)
	defer timer.Stop()
	select {
	case <-w.scheduler.stopCh:
	case <-ch:
	case <-timer.C:
	}
}

// allocJob takes a Job from this worker's free list, falling back to the
// shared pool (taking its mutex) only when the free list is empty —
// keeping the hot path lock-free per worker.
func (w *Worker) allocJob(fn Func) *Job {
	var j *Job
	if w.freeList != nil {
		j = w.freeList
		w.freeList = j.freeNext
		w.freeListLen--
		j.freeNext = nil
	} else {
		j = w.scheduler.pool.alloc()
	}
	j.init(fn)
	w.scheduler.metrics.recordAlloc()
	return j
}

// reclaim resets j and pushes it onto this worker's free list, diverting
// to the delete list once the free list reaches freeListCap.
func (w *Worker) reclaim(j *Job) {
	if w.scheduler.onReclaim != nil {
		w.scheduler.onReclaim(j.ID)
	}
	j.reset()
	if w.freeListLen < freeListCap {
		j.freeNext = w.freeList
		w.freeList = j
		w.freeListLen++
	} else {
		j.freeNext = w.deleteList
		w.deleteList = j
		w.deleteListLen++
	}
	w.scheduler.metrics.recordReclaim()
}

// drainDeleteList returns up to deleteDrainBatch entries from this
// worker's delete list to the shared pool, taking the pool mutex once
// for the whole batch. It reports whether it drained anything, so the
// worker loop can treat a drain as "did work" for the purposes of
// deciding whether to sleep.
func (w *Worker) drainDeleteList() bool {
	if w.deleteList == nil {
		return false
	}
	n := 0
	for w.deleteList != nil && n < deleteDrainBatch {
		j := w.deleteList
		w.deleteList = j.freeNext
		w.deleteListLen--
		w.scheduler.pool.release(j)
		n++
	}
	return true
}

// drainAll returns every entry on both this worker's free list and its
// delete list to the shared pool, unbounded. Unlike drainDeleteList (sized
// for an opportunistic idle-time call from the hot loop), this is only
// safe to call once the worker has stopped servicing new jobs — Stop uses
// it so that a fully quiesced Scheduler reports BlocksInUse() == 0 instead
// of leaving every worker's reuse cache counted as checked out forever.
func (w *Worker) drainAll() {
	for w.freeList != nil {
		j := w.freeList
		w.freeList = j.freeNext
		w.freeListLen--
		w.scheduler.pool.release(j)
	}
	for w.deleteList != nil {
		j := w.deleteList
		w.deleteList = j.freeNext
		w.deleteListLen--
		w.scheduler.pool.release(j)
	}
}

// schedule materializes fn into a Job, parents it to the ambient running
// job unless detached, and publishes it either to targetWorker's local
// queue (local == true) or to this worker's own global queue.
func (w *Worker) schedule(fn Func, targetWorker int, local bool, detached bool) *Job {
	return w.scheduleSized(fn, 0, targetWorker, local, detached)
}

// scheduleSized is schedule with an explicit functorSize, set on the Job
// before it is parented and published. Parenting and publishing must
// never run before functorSize is assigned: once published, any other
// worker may pop, run, and reclaim the job before a later field write on
// this goroutine would land, producing an unsynchronized concurrent
// write.
func (w *Worker) scheduleSized(fn Func, size int, targetWorker int, local bool, detached bool) *Job {
	j := w.allocJob(fn)
	j.functorSize = size
	if !detached {
		if ambient := w.runningJob; ambient != nil {
			ambient.addChild()
			j.parent = ambient
		}
	}
	w.publish(j, targetWorker, local)
	return j
}

// publish pushes j onto the requested queue without touching j.parent —
// used both by schedule (which has already applied the ambient-parent
// rule) and by the completion protocol (which sets a continuation's
// parent explicitly).
func (w *Worker) publish(j *Job, targetWorker int, local bool) {
	if local {
		w.scheduler.workers[targetWorker].local.Push(j)
	} else {
		w.scheduler.workers[w.id].global.Push(j)
	}
	w.scheduler.metrics.recordSchedule()
	w.scheduler.wake()
}

// Schedule materializes fn into a Job and pushes it onto the current
// worker's global queue. If a job is currently executing on w (the
// ambient running job) and fn is not detached, the new job's parent
// becomes that ambient job and its outstanding-children counter is
// incremented.
func (w *Worker) Schedule(fn Func) *Job {
	return w.schedule(fn, w.id, false, false)
}

// ScheduleDetached is like Schedule but never parents the new job to the
// ambient running job — for fire-and-forget work whose completion no
// enclosing job should wait on.
func (w *Worker) ScheduleDetached(fn Func) *Job {
	return w.schedule(fn, w.id, false, true)
}

// ScheduleForThread pushes fn to threadIndex's local queue, so only that
// worker will ever pop and execute it. Parenting follows the same rule
// as Schedule.
func (w *Worker) ScheduleForThread(threadIndex int, fn Func) *Job {
	return w.schedule(fn, threadIndex, true, false)
}

// Continuation records fn as the continuation of the ambient running
// job. At most one continuation is kept per job; a second call on the
// same job overwrites the first and logs a warning instead of erroring,
// since a caller stacking continuations is almost certainly a bug worth
// surfacing rather than silently compounding. The continuation is not
// pushed to any queue here; it is scheduled only when the predecessor's
// completion protocol runs.
func (w *Worker) Continuation(fn Func) *Job {
	if w.runningJob == nil {
		fatal("Continuation", ErrAmbientJobViolation)
	}
	if w.runningJob.continuation != nil {
		w.scheduler.logger.Warn("continuation overwritten without running",
			zap.String("job", w.runningJob.ID))
	}
	j := w.allocJob(fn)
	w.runningJob.continuation = j
	return j
}
