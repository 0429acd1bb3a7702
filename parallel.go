package advect

import (
	"fmt"
	"sync"
)

// workChunk is a range of a block's particle list for one worker
type workChunk struct {
	start, end int
	fn         func(i0, i1 int)
	done       *sync.WaitGroup
	errs       chan<- error // buffered to the number of chunks of the dispatch
}

// workerPool is a set of persistent goroutines stepping chunks of particles.
// Several blocks may dispatch to it at once; each dispatch waits only on its own chunks.
type workerPool struct {
	numWorkers int

	workChan chan workChunk // sends work to workers
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool
}

func newWorkerPool(numWorkers int) *workerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &workerPool{numWorkers: numWorkers}
}

// startWorkers launches the worker goroutines
func (p *workerPool) startWorkers() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// stopWorkers signals all workers to exit and waits for them
func (p *workerPool) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	p.running = false
}

func (p *workerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			p.run(chunk)
		}
	}
}

// run steps one chunk, turning a panic into an error for the dispatching caller
func (p *workerPool) run(c workChunk) {
	defer c.done.Done()
	defer func() {
		if r := recover(); r != nil {
			c.errs <- fmt.Errorf("particles [%d,%d): %v", c.start, c.end, r)
		}
	}()
	c.fn(c.start, c.end)
}

// forEach calls fn over [0,n) split into one chunk per worker, returning once
// every chunk is complete. A panicking chunk is reported as the returned error.
// Small ranges, and any range while the pool is stopped, run on the calling
// goroutine, where a panic propagates to the caller. startWorkers must not race
// with forEach.
func (p *workerPool) forEach(n int, fn func(i0, i1 int)) error {
	if n == 0 {
		return nil
	}
	if n < parallelThreshold || p.numWorkers == 1 || !p.running {
		fn(0, n)
		return nil
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	var done sync.WaitGroup
	errs := make(chan error, p.numWorkers)
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		done.Add(1)
		p.workChan <- workChunk{start: start, end: end, fn: fn, done: &done, errs: errs}
	}
	done.Wait()
	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}
