// Package worker runs queued export jobs to completion. Jobs arrive over
// AMQP; a startup sweep catches jobs whose message was lost while the
// worker was down. Jobs are processed one at a time: PDF rendering over
// photo-bearing records is long-running, and sequential handling keeps
// memory bounded.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"maon/internal/amqp"
	"maon/internal/services"
	"maon/internal/storage"
)

const sweepBatchSize = 50

type ExportWorker struct {
	exports *services.ExportService
	store   *storage.Repository
}

func NewExportWorker(exports *services.ExportService, store *storage.Repository) *ExportWorker {
	return &ExportWorker{
		exports: exports,
		store:   store,
	}
}

// HandleJobMessage processes one queued export job. Errors are returned
// so the AMQP consumer can nack/requeue; a job already claimed by another
// run is skipped inside ProcessJob without error.
func (w *ExportWorker) HandleJobMessage(ctx context.Context, msg *amqp.ExportJobMessage) error {
	slog.InfoContext(ctx, "Processing export job", "job_id", msg.JobID)
	if err := w.exports.ProcessJob(ctx, msg.JobID); err != nil {
		return fmt.Errorf("handle export job: %w", err)
	}
	return nil
}

// SweepPending processes jobs still pending in the database, oldest
// first. Called on startup and periodically as a safety net.
func (w *ExportWorker) SweepPending(ctx context.Context) error {
	jobs, err := w.store.ListPendingJobs(ctx, sweepBatchSize)
	if err != nil {
		return fmt.Errorf("sweep pending jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Sweeping pending export jobs", "count", len(jobs))
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.exports.ProcessJob(ctx, job.ID); err != nil {
			// recorded on the job row; keep sweeping
			slog.ErrorContext(ctx, "Export job failed during sweep",
				"job_id", job.ID, "error", err)
		}
	}
	return nil
}
