package jobsystem

import "sync/atomic"

// complete runs the completion protocol for job j on behalf of worker w:
// decrement j's outstanding-children counter; if it has reached zero,
// splice in any continuation, bubble the decrement up to j's parent, and
// reclaim j.
//
// chainOwned is true only when j is privately held by a single driver
// that is about to run its continuation directly itself — which is
// exactly RunJob's root/continuation-chain loop (scheduler.go). In that
// case any continuation is handed back to the caller instead of being
// published to the global queue, so it is guaranteed to run exactly
// once on the thread that is already waiting for it, with no second
// worker racing to steal the same job. Every other caller (a worker
// that popped j from a queue, or a bubble-up to a parent) passes false,
// so the continuation is published for any worker to pick up.
func complete(w *Worker, j *Job, chainOwned bool) *Job {
	newVal := atomic.AddInt32(&j.jobsLeft, -1)
	prev := newVal + 1
	if prev != 1 {
		// j still has outstanding children; it will be revisited when
		// the last one bubbles its own decrement up to j.
		return nil
	}

	var handedBack *Job
	if j.continuation != nil {
		cont := j.continuation
		if j.parent != nil {
			j.parent.addChild()
			cont.parent = j.parent
		} else {
			cont.parent = nil
		}
		if chainOwned {
			handedBack = cont
		} else {
			w.publish(cont, w.id, false)
		}
	}

	w.scheduler.metrics.recordComplete()
	parent := j.parent
	w.reclaim(j)

	// j is reclaimed before bubbling to its parent, not after: a job
	// always frees itself before notifying whatever is waiting on it, so
	// reclamation order matches completion order (descendants reclaim
	// before ancestors) instead of the reverse.
	if parent != nil {
		complete(w, parent, false)
	}
	return handedBack
}
