package renderer

import (
	"context"
	"image/color"
	"runtime"
	"sync"

	"github.com/milkru/go-tracer/pkg/core"
)

// ScanlineTask represents one output row to render
type ScanlineTask struct {
	Row  int   // Output row, 0 = top
	Seed int64 // Seed for this task's private random generator
}

// ScanlineResult contains a finished output row
type ScanlineResult struct {
	Row    int
	Pixels []color.RGBA
}

// WorkerPool manages parallel scanline rendering.
// Results arrive in completion order; callers restore raster order by Row.
type WorkerPool struct {
	taskQueue   chan ScanlineTask
	resultQueue chan ScanlineResult
	workers     []*Worker
	numWorkers  int
	wg          sync.WaitGroup
	stopChan    chan struct{}
	stopOnce    sync.Once
}

// Worker handles individual scanline rendering tasks
type Worker struct {
	ID          int
	raytracer   *Raytracer
	taskQueue   chan ScanlineTask
	resultQueue chan ScanlineResult
	stopChan    chan struct{}
}

// NewWorkerPool creates a worker pool with the specified number of workers.
// maxTasks bounds the queues so that neither submitting nor reporting blocks.
func NewWorkerPool(raytracer *Raytracer, numWorkers, maxTasks int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	wp := &WorkerPool{
		taskQueue:   make(chan ScanlineTask, maxTasks),
		resultQueue: make(chan ScanlineResult, maxTasks),
		numWorkers:  numWorkers,
		stopChan:    make(chan struct{}),
	}

	for i := 0; i < numWorkers; i++ {
		wp.workers = append(wp.workers, &Worker{
			ID:          i,
			raytracer:   raytracer,
			taskQueue:   wp.taskQueue,
			resultQueue: wp.resultQueue,
			stopChan:    wp.stopChan,
		})
	}

	return wp
}

// Start begins all workers
func (wp *WorkerPool) Start() {
	for _, worker := range wp.workers {
		wp.wg.Add(1)
		go worker.run(&wp.wg)
	}
}

// Stop shuts down all workers; queued tasks that have not started are skipped
func (wp *WorkerPool) Stop() {
	wp.stopOnce.Do(func() {
		close(wp.stopChan)
		close(wp.taskQueue)
		wp.wg.Wait()
		close(wp.resultQueue)
	})
}

// SubmitTask submits a scanline task to the worker pool
func (wp *WorkerPool) SubmitTask(task ScanlineTask) {
	wp.taskQueue <- task
}

// GetResult waits for the next completed scanline. It fails with
// errPoolClosed once the pool is stopped and drained, or with ctx.Err().
func (wp *WorkerPool) GetResult(ctx context.Context) (ScanlineResult, error) {
	select {
	case result, ok := <-wp.resultQueue:
		if !ok {
			return ScanlineResult{}, errPoolClosed
		}
		return result, nil
	case <-ctx.Done():
		return ScanlineResult{}, ctx.Err()
	}
}

// GetNumWorkers returns the number of workers in the pool
func (wp *WorkerPool) GetNumWorkers() int {
	return wp.numWorkers
}

// run is the main worker loop
func (w *Worker) run(wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range w.taskQueue {
		select {
		case <-w.stopChan:
			continue
		default:
		}

		// Each task owns its generator, so rows never share random state
		sampler := core.NewSeededSampler(task.Seed)
		w.resultQueue <- ScanlineResult{
			Row:    task.Row,
			Pixels: w.raytracer.RenderScanline(task.Row, sampler),
		}
	}
}
