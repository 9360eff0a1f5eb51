package engine

import (
	"context"
	"log/slog"
	"sync"

	"plantcare/internal/types"
)

const defaultWorkerQueueSize = 64

// DetectionOutcome is delivered on the channel returned by SubmitDetection.
type DetectionOutcome struct {
	Result *TransitionResult
	Err    error
}

type detectionJob struct {
	ctx        context.Context
	plantID    string
	detections []types.Detection
	done       chan DetectionOutcome
}

// Worker runs detection transitions on a single background goroutine.
// Funneling every transition through one goroutine serializes schedule
// mutations, so two scans of the same plant can never interleave their
// cancel and regenerate phases.
type Worker struct {
	engine *Engine
	logger *slog.Logger

	jobs      chan detectionJob
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewWorker starts the background goroutine. queueSize <= 0 selects the
// default queue depth.
func NewWorker(engine *Engine, logger *slog.Logger, queueSize int) *Worker {
	if queueSize <= 0 {
		queueSize = defaultWorkerQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	w := &Worker{
		engine: engine,
		logger: logger.With("component", "engine_worker"),
		jobs:   make(chan detectionJob, queueSize),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// SubmitDetection queues a detection for processing and returns a channel
// that receives exactly one outcome. Submission blocks only when the queue
// is full; a cancelled context aborts the wait and the caller receives the
// context error on the returned channel.
func (w *Worker) SubmitDetection(ctx context.Context, plantID string, detections []types.Detection) <-chan DetectionOutcome {
	done := make(chan DetectionOutcome, 1)
	j := detectionJob{ctx: ctx, plantID: plantID, detections: detections, done: done}
	select {
	case w.jobs <- j:
	case <-ctx.Done():
		done <- DetectionOutcome{Err: ctx.Err()}
	}
	return done
}

// Close stops accepting work and blocks until queued jobs have drained.
func (w *Worker) Close() {
	w.closeOnce.Do(func() {
		close(w.jobs)
	})
	w.wg.Wait()
}

func (w *Worker) run() {
	defer w.wg.Done()
	for j := range w.jobs {
		if err := j.ctx.Err(); err != nil {
			j.done <- DetectionOutcome{Err: err}
			continue
		}
		res, err := w.engine.ApplyDetection(j.ctx, j.plantID, j.detections)
		if err != nil {
			w.logger.ErrorContext(j.ctx, "detection processing failed",
				"plant_id", j.plantID, "error", err)
		}
		j.done <- DetectionOutcome{Result: res, Err: err}
	}
}
