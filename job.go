package jobsystem

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Func is the type-erased unit of work a Job runs exactly once. It
// receives the *Worker currently executing it, which doubles as the
// ambient "currently running job" context: Schedule, ScheduleDetached,
// ScheduleForThread, and Continuation all live on *Worker rather than
// being free functions, because each of them needs to know what job it
// is relative to and Go has no thread-local storage to carry that
// implicitly.
type Func func(w *Worker)

// FunctorCapacity bounds what ScheduleCapture will accept as an inline
// value capture. A hand-managed inline functor buffer would need a byte
// budget to stay allocation-free; Go closures don't need one, but the
// same submission-time contract — reject an oversized capture outright
// rather than silently falling back to a heap allocation — is preserved
// at this boundary.
const FunctorCapacity = 96

// Job is a one-shot unit of scheduled work with an implicit parent link,
// an optional continuation, and an atomic outstanding-children counter.
//
// Invariant A: JobsLeft() >= 0 always; while queued or executing it is
// >= 1.
// Invariant B: while JobsLeft() > 1 the job has unfinished descendants;
// it is neither reclaimed nor does its continuation run.
// Invariant D: a Job is owned by exactly one of a queue, the executing
// worker, a free list, or a delete list at any time; ownership transfers
// are serialized by the owning Queue's spinlock, the allocating Worker's
// single-goroutine access, or the Pool's mutex.
type Job struct {
	ID string

	parent       *Job
	continuation *Job
	jobsLeft     int32 // atomic; see completion protocol in completion.go

	fn          Func
	functorSize int

	// freeNext links this Job into a Worker's free list or delete list,
	// or a Pool's free stack. Valid only while the Job is not live in a
	// queue or executing (Invariant D).
	freeNext *Job
}

func newJob() *Job {
	return &Job{jobsLeft: 1}
}

// reset clears a Job for reuse. Callers must hold exclusive ownership of
// j per Invariant D (i.e. j must not be reachable from any queue and must
// not be the ambient running job of any worker).
func (j *Job) reset() {
	j.ID = ""
	j.parent = nil
	j.continuation = nil
	j.fn = nil
	j.functorSize = 0
	j.freeNext = nil
	atomic.StoreInt32(&j.jobsLeft, 1)
}

func (j *Job) init(fn Func) {
	j.fn = fn
	j.ID = uuid.NewString()
	atomic.StoreInt32(&j.jobsLeft, 1)
}

// addChild increments the outstanding-children counter. Called whenever
// a newly scheduled job chooses j as its ambient parent, before the
// child is pushed to a queue (so the child's eventual completion-time
// decrement can never observe a count that hasn't accounted for it yet).
func (j *Job) addChild() {
	atomic.AddInt32(&j.jobsLeft, 1)
}

// JobsLeft reports the outstanding-children counter. Exposed for tests
// and diagnostics.
func (j *Job) JobsLeft() int32 {
	return atomic.LoadInt32(&j.jobsLeft)
}

// Parent returns the job this job was parented to at submission time, or
// nil if it was scheduled detached or as a root.
func (j *Job) Parent() *Job {
	return j.parent
}
