package planar

import "sync"

// workerPool runs scene steps. With zero workers, jobs run on the submitting
// goroutine.
type workerPool struct {
	jobs    chan func()
	wg      sync.WaitGroup
	workers int
	once    sync.Once
}

func newWorkerPool(workers int) *workerPool {
	p := &workerPool{workers: workers}
	if workers <= 0 {
		return p
	}

	p.jobs = make(chan func(), workers*4)
	p.wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				job()
			}
		}()
	}
	return p
}

func (p *workerPool) submit(job func()) {
	if p.jobs == nil {
		job()
		return
	}
	p.jobs <- job
}

// stop drains queued jobs and waits for the workers to exit.
func (p *workerPool) stop() {
	p.once.Do(func() {
		if p.jobs != nil {
			close(p.jobs)
		}
		p.wg.Wait()
	})
}

type dispatcher struct {
	pool   *workerPool
	scenes int
}
