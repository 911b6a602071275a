package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dgallion1/codechunk/internal/chunker"
)

// Worker processes a single extraction job.
type Worker struct {
	log        *slog.Logger
	onComplete func(*Result)
}

func NewWorker(log *slog.Logger, onComplete func(*Result)) *Worker {
	return &Worker{log: log, onComplete: onComplete}
}

// Process runs the extraction for a job and records its outcome.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)

	opts := job.opts
	opts.OnPhase = func(s JobStatus) {
		job.SetStatus(s, string(s))
	}

	res, err := Run(ctx, opts, log)
	if err != nil {
		var inv *chunker.InvariantError
		switch {
		case errors.As(err, &inv):
			log.Error("chunk invariant violated", "chunk_id", inv.ChunkID, "error", err)
		case errors.Is(err, ErrInputNotFound):
			log.Error("input missing", "error", err)
		default:
			log.Error("extraction failed", "error", err)
		}
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, job.Snapshot().Phase)
		return
	}

	job.SetResult(res)
	if w.onComplete != nil {
		w.onComplete(res)
	}
	log.Info("job complete", "chunks", len(res.Chunks), "elapsed", res.Elapsed)
	job.SetStatus(StatusCompleted, "done")
}
