package tessellate

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// batcher is the implementation of the Batcher interface.
type batcher struct {
	pool    worker.DynamicWorkerPool
	workers int
}

// Batcher tessellates many shapes concurrently over a persistent worker
// pool. Tessellating a whole alphabet's glyph set is an init-time burst of
// independent CPU work, which is exactly the shape of load the pool absorbs
// without per-call goroutine churn.
type Batcher interface {
	// TessellateAll tessellates every shape and returns the meshes in input
	// order. Blocks until all shapes are done.
	//
	// Parameters:
	//   - shapes: the shapes to tessellate
	//
	// Returns:
	//   - []Mesh: one mesh per shape, index-aligned with the input
	TessellateAll(shapes []Shape) []Mesh
}

var _ Batcher = &batcher{}

// NewBatcher creates a Batcher with the specified options. The worker count
// defaults to runtime.NumCPU()-1 with a floor of 1.
//
// Parameters:
//   - options: functional options to configure the batcher
//
// Returns:
//   - Batcher: the configured batcher
func NewBatcher(options ...BatcherBuilderOption) Batcher {
	b := &batcher{
		workers: max(runtime.NumCPU()-1, 1),
	}
	for _, opt := range options {
		opt(b)
	}

	// Queue size of 256 accommodates typical glyph-set sizes with headroom.
	b.pool = worker.NewDynamicWorkerPool(b.workers, 256, 1*time.Second)

	return b
}

func (b *batcher) TessellateAll(shapes []Shape) []Mesh {
	meshes := make([]Mesh, len(shapes))

	var wg sync.WaitGroup
	for i, shape := range shapes {
		wg.Add(1)
		idx := i
		s := shape
		b.pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				meshes[idx] = s.Tessellate()
				return nil, nil
			},
		})
	}
	wg.Wait()

	return meshes
}
