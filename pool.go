package jobsystem

import (
	"sync"

	"go.uber.org/zap"
)

// Pool is a Scheduler's fixed-capacity block allocator backing Job
// storage; each Scheduler owns its own. It is deliberately not growable: pool exhaustion must be an
// observable, fatal condition, which a pool that grows on demand could
// never produce. A single mutex guards both allocation and
// deallocation; the hot path avoids it via each Worker's free list and
// delete list (see worker.go).
type Pool struct {
	mu     sync.Mutex
	blocks []Job
	free   []*Job
	logger *zap.Logger
}

func newPool(capacity int, logger *zap.Logger) *Pool {
	if capacity <= 0 {
		capacity = 1
	}
	p := &Pool{
		blocks: make([]Job, capacity),
		free:   make([]*Job, 0, capacity),
		logger: logger,
	}
	for i := range p.blocks {
		p.free = append(p.free, &p.blocks[i])
	}
	return p
}

// alloc takes a block from the pool's free stack. Only the cold path
// (a Worker whose own free list is empty) should reach this; it is
// fatal, not an error return, when the pool is exhausted — callers must
// size the pool for peak fan-out.
func (p *Pool) alloc() *Job {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.free)
	if n == 0 {
		p.logger.Error("pool exhausted", zap.Int("capacity", len(p.blocks)))
		fatal("Pool.alloc", ErrPoolExhausted)
	}
	j := p.free[n-1]
	p.free = p.free[:n-1]
	return j
}

// release returns a block to the pool's free stack. Safe to call on an
// already-reset Job; reset is idempotent.
func (p *Pool) release(j *Job) {
	j.reset()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, j)
}

// Capacity returns the pool's fixed block capacity.
func (p *Pool) Capacity() int {
	return len(p.blocks)
}

// BlocksInUse reports how many blocks are currently checked out of the
// pool's free stack — to a queue, an executing worker, or a worker's
// private free/delete list. Useful for confirming that memory stays
// bounded once a scheduler has gone quiet.
func (p *Pool) BlocksInUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.blocks) - len(p.free)
}
