package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"maon/internal/core"
	"maon/internal/report"
	"maon/internal/storage"
)

// JobStore persists export jobs. Satisfied by *storage.Repository.
type JobStore interface {
	CreateJob(ctx context.Context, job storage.ExportJob) (storage.ExportJob, error)
	GetJob(ctx context.Context, id string) (storage.ExportJob, error)
	UpdateJobState(ctx context.Context, id string, from, to storage.JobState, filename, errMsg string) error
}

// JobPublisher notifies the worker of a queued job. Satisfied by
// *amqp.Client.
type JobPublisher interface {
	PublishExportJob(ctx context.Context, jobID string) error
}

// ExportService renders export documents, either synchronously for direct
// downloads or through queued jobs processed by the worker.
type ExportService struct {
	store     RecordStore
	jobs      JobStore
	publisher JobPublisher
	exporter  *report.Exporter
	exportDir string
}

func NewExportService(store RecordStore, jobs JobStore, publisher JobPublisher, exporter *report.Exporter, exportDir string) *ExportService {
	return &ExportService{
		store:     store,
		jobs:      jobs,
		publisher: publisher,
		exporter:  exporter,
		exportDir: exportDir,
	}
}

// ExportNow runs the whole pipeline for a direct download: snapshot,
// filter, aggregate, render.
func (s *ExportService) ExportNow(ctx context.Context, kind core.Kind, spec report.Spec, format report.Format) (report.Result, error) {
	if !kind.Valid() {
		return report.Result{}, core.ErrUnknownKind
	}
	records, err := s.store.ListRecords(ctx, kind)
	if err != nil {
		return report.Result{}, fmt.Errorf("list %s records: %w", kind, err)
	}

	now := time.Now()
	filtered := report.Apply(records, spec, now)
	result, err := s.exporter.Export(ctx, filtered, spec, kind, format, now)
	if err != nil {
		return report.Result{}, err
	}

	slog.InfoContext(ctx, "Export rendered",
		"record_kind", kind,
		"format", format,
		"filename", result.Filename,
		"records", len(filtered),
		"photos_embedded", result.Stats.Embedded,
		"photos_placeholder", result.Stats.Placeholders)
	return result, nil
}

// Enqueue persists an export job and hands it to the worker. Without a
// publisher (AMQP not configured) the job is processed inline so the
// caller still gets a finished document to poll for.
func (s *ExportService) Enqueue(ctx context.Context, kind core.Kind, spec report.Spec, format report.Format) (storage.ExportJob, error) {
	if !kind.Valid() {
		return storage.ExportJob{}, core.ErrUnknownKind
	}
	if !format.Valid() {
		return storage.ExportJob{}, fmt.Errorf("unsupported export format %q", format)
	}

	specJSON, err := json.Marshal(spec)
	if err != nil {
		return storage.ExportJob{}, fmt.Errorf("marshal filter spec: %w", err)
	}

	job, err := s.jobs.CreateJob(ctx, storage.ExportJob{
		Kind:     kind,
		Format:   string(format),
		SpecJSON: string(specJSON),
	})
	if err != nil {
		return storage.ExportJob{}, fmt.Errorf("enqueue export job: %w", err)
	}

	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP not configured, processing export job inline", "job_id", job.ID)
		if err := s.ProcessJob(ctx, job.ID); err != nil {
			return storage.ExportJob{}, err
		}
		return s.jobs.GetJob(ctx, job.ID)
	}

	if err := s.publisher.PublishExportJob(ctx, job.ID); err != nil {
		// job row stays pending; the worker's startup sweep will pick it up
		slog.ErrorContext(ctx, "Failed to publish export job", "job_id", job.ID, "error", err)
	}
	return job, nil
}

// Job returns the current state of an export job.
func (s *ExportService) Job(ctx context.Context, id string) (storage.ExportJob, error) {
	return s.jobs.GetJob(ctx, id)
}

// ArtifactPath resolves the on-disk document of a finished job.
func (s *ExportService) ArtifactPath(job storage.ExportJob) string {
	return filepath.Join(s.exportDir, job.ID+"_"+job.Filename)
}

// ProcessJob runs one queued export to completion: pending -> running ->
// done, or failed with the error recorded on the job row.
func (s *ExportService) ProcessJob(ctx context.Context, jobID string) error {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.State != storage.JobPending {
		slog.InfoContext(ctx, "Skipping export job not in pending state",
			"job_id", jobID, "state", job.State)
		return nil
	}

	if err := s.jobs.UpdateJobState(ctx, jobID, storage.JobPending, storage.JobRunning, "", ""); err != nil {
		return err
	}

	result, err := s.renderJob(ctx, job)
	if err != nil {
		if stateErr := s.jobs.UpdateJobState(ctx, jobID, storage.JobRunning, storage.JobFailed, "", err.Error()); stateErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export job failed", "job_id", jobID, "error", stateErr)
		}
		return fmt.Errorf("process export job %s: %w", jobID, err)
	}

	return s.jobs.UpdateJobState(ctx, jobID, storage.JobRunning, storage.JobDone, result.Filename, "")
}

func (s *ExportService) renderJob(ctx context.Context, job storage.ExportJob) (report.Result, error) {
	var spec report.Spec
	if err := json.Unmarshal([]byte(job.SpecJSON), &spec); err != nil {
		return report.Result{}, fmt.Errorf("unmarshal filter spec: %w", err)
	}

	result, err := s.ExportNow(ctx, job.Kind, spec, report.Format(job.Format))
	if err != nil {
		return report.Result{}, err
	}

	if err := os.MkdirAll(s.exportDir, 0755); err != nil {
		return report.Result{}, fmt.Errorf("create export directory: %w", err)
	}
	path := filepath.Join(s.exportDir, job.ID+"_"+result.Filename)
	if err := os.WriteFile(path, result.Data, 0644); err != nil {
		return report.Result{}, fmt.Errorf("write export document: %w", err)
	}
	return result, nil
}
