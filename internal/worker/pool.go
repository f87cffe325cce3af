package worker

import (
	"context"
	"sort"
	"sync"
)

// Job is one unit of work run by the pool
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is what a Job produces
type Result interface {
	GetError() error
}

type queuedJob struct {
	seq int
	job Job
}

type queuedResult struct {
	seq    int
	result Result
}

// Pool runs jobs on a fixed number of workers. Results are drained as they
// arrive, so callers may submit any number of jobs before calling Wait.
type Pool struct {
	workers    int
	jobQueue   chan queuedJob
	results    chan queuedResult
	collected  []queuedResult
	collector  chan struct{}
	submitted  int
	submitMu   sync.Mutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
	queueOnce  sync.Once

	// OnResult, when set before Start, is called from the collector
	// goroutine for every finished job.
	OnResult func(Result)
}

// NewPool creates a pool bound to ctx. Cancelling ctx stops the workers.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan queuedJob, workers*2),
		results:    make(chan queuedResult, workers*2),
		collector:  make(chan struct{}),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the workers and the result collector
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	go func() {
		defer close(p.collector)
		for r := range p.results {
			p.collected = append(p.collected, r)
			if p.OnResult != nil {
				p.OnResult(r.result)
			}
		}
	}()
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case queued, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := queued.job.Execute(p.ctx)
			select {
			case p.results <- queuedResult{seq: queued.seq, result: result}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job. It returns false when the pool is already stopped.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}

	p.submitMu.Lock()
	seq := p.submitted
	p.submitted++
	p.submitMu.Unlock()

	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- queuedJob{seq: seq, job: job}:
		return true
	}
}

// Wait stops accepting jobs, waits for the workers and returns one slot per
// submitted job in submission order. Jobs that never ran leave a nil slot.
// The pool cannot be reused afterwards.
func (p *Pool) Wait() []Result {
	p.closeQueue()
	p.wg.Wait()
	p.closeResults()
	<-p.collector
	p.cancelFunc()

	p.submitMu.Lock()
	out := make([]Result, p.submitted)
	p.submitMu.Unlock()

	sort.Slice(p.collected, func(i, j int) bool { return p.collected[i].seq < p.collected[j].seq })
	for _, r := range p.collected {
		if r.seq < len(out) {
			out[r.seq] = r.result
		}
	}
	return out
}

// Shutdown cancels running jobs and stops the workers
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeQueue() {
	p.queueOnce.Do(func() {
		close(p.jobQueue)
	})
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
