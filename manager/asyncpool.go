package manager

import (
	"sync"

	"github.com/CognotEngine/amberpipeline/internal/corelog"
	"github.com/CognotEngine/amberpipeline/pkgformat"
)

// asyncTask is one unit of work submitted to the asyncPool: perform a
// load and deliver exactly one terminal callback.
type asyncTask struct {
	run func() (pkgformat.AssetID, LoadStatus)
	cb  func(pkgformat.AssetID, LoadStatus)
}

// asyncPool is a small fixed-size worker pool that backs LoadAsync: a
// buffered channel of tasks drained by a fixed set of goroutines
// started at construction and drained at Stop.
type asyncPool struct {
	tasks chan asyncTask
	wg    sync.WaitGroup
}

func newAsyncPool(workers, queueSize int) *asyncPool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	p := &asyncPool{tasks: make(chan asyncTask, queueSize)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *asyncPool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		id, status := task.run()
		if task.cb != nil {
			task.cb(id, status)
		}
	}
}

// submit enqueues task, blocking if the queue is full.
func (p *asyncPool) submit(task asyncTask) {
	p.tasks <- task
}

// stop closes the task queue and waits for in-flight work to drain.
func (p *asyncPool) stop() {
	close(p.tasks)
	p.wg.Wait()
	corelog.Debug("manager: async pool drained")
}
