// Package jobsystem implements a fork-join job scheduler with implicit
// parent tracking and continuations, intended to drive a soft-realtime
// frame loop (graphics, audio, and input subsystems submit work to it as
// external collaborators; this package knows nothing about any of them).
//
// The scheduler combines:
//   - a fixed pool of OS-thread-bound workers, one of which (worker 0)
//     is driven by the calling goroutine rather than owning its own loop,
//   - a spinlocked FIFO queue pair (local + global) per worker,
//   - round-robin work stealing starting from a worker's own index,
//   - hierarchical dependency counting via an ambient "current job",
//     threaded explicitly through job functors as a *Worker handle,
//   - deferred, auto-scheduled continuations, and
//   - a fixed-capacity block pool with per-worker free/delete caches to
//     keep job allocation off the steady-state hot path.
//
// A job is scheduled with Schedule, ScheduleDetached, or
// ScheduleForThread, all methods on *Worker — there is no free-standing
// top-level Schedule, because every non-detached job needs an ambient
// parent to count against, and that parent only exists inside a running
// job or the foreground thread's RunJob loop. RunJob is the entry point
// that lets the calling goroutine participate as worker 0 until a job
// graph (and its continuation chain) has fully drained.
//
// Jobs must not block on external I/O; a long operation decomposes into
// child jobs instead. There is no priority, no deadline, no cancellation
// of in-flight jobs, and no cross-process distribution; SPEC_FULL.md §1
// lists these as non-goals.
package jobsystem
