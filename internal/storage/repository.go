package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"maon/internal/core"

	_ "modernc.org/sqlite"
)

// JobState is the lifecycle of an asynchronous export job. Transitions
// are guarded in UpdateJobState: pending -> running -> done | failed.
type JobState string

const (
	JobPending JobState = "pending"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

var ErrJobNotFound = errors.New("export job not found")

// ExportJob is one queued export request, processed by the worker.
type ExportJob struct {
	ID       string
	Kind     core.Kind
	Format   string
	SpecJSON string
	State    JobState
	Filename string
	Error    string
	Created  core.Instant
	Updated  core.Instant
}

var jobTransitions = map[JobState]map[JobState]bool{
	JobPending: {JobRunning: true, JobFailed: true},
	JobRunning: {JobDone: true, JobFailed: true},
}

// Repository persists records and export jobs in SQLite. It stands in for
// the managed document store of the hosted deployment: records are never
// deleted, only resolved in place, and every write bumps a data-version
// counter so cached summaries can be invalidated exactly.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateRecord inserts a record, assigning its identity and creation time.
func (r *Repository) CreateRecord(ctx context.Context, rec core.Record) (core.Record, error) {
	rec.ID = uuid.NewString()
	rec.Created = core.NewInstant(time.Now())
	if rec.Status == core.StatusNone {
		rec.Status = rec.Kind.InitialStatus()
	}

	err := r.withVersionBump(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO records (id, kind, title, amount_cents, category, payment_method,
				owner_name, owner_room, date_ms, notes, photo_url, status, resolved_ms, created_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.Kind, rec.Title, rec.Amount.Cents, rec.Category, rec.PaymentMethod,
			rec.OwnerName, rec.OwnerRoom, rec.Date.Millis(), rec.Notes, rec.PhotoURL,
			rec.Status, rec.Resolved.Millis(), rec.Created.Millis())
		return err
	})
	if err != nil {
		return core.Record{}, fmt.Errorf("create record: %w", err)
	}

	slog.InfoContext(ctx, "Record saved",
		"id", rec.ID,
		"kind", rec.Kind,
		"title", rec.Title,
		"amount_cents", rec.Amount.Cents)
	return rec, nil
}

// UpdateRecord overwrites the mutable fields of an existing record.
func (r *Repository) UpdateRecord(ctx context.Context, rec core.Record) error {
	err := r.withVersionBump(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE records SET title = ?, amount_cents = ?, category = ?, payment_method = ?,
				owner_name = ?, owner_room = ?, date_ms = ?, notes = ?, photo_url = ?,
				status = ?, resolved_ms = ?
			WHERE id = ?`,
			rec.Title, rec.Amount.Cents, rec.Category, rec.PaymentMethod,
			rec.OwnerName, rec.OwnerRoom, rec.Date.Millis(), rec.Notes, rec.PhotoURL,
			rec.Status, rec.Resolved.Millis(), rec.ID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return core.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, core.ErrRecordNotFound) {
			return core.ErrRecordNotFound
		}
		return fmt.Errorf("update record: %w", err)
	}
	return nil
}

const recordColumns = `id, kind, title, amount_cents, category, payment_method,
	owner_name, owner_room, date_ms, notes, photo_url, status, resolved_ms, created_ms`

func (r *Repository) GetRecord(ctx context.Context, id string) (core.Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, core.ErrRecordNotFound
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// ListRecords returns all records of a kind in creation order, archived
// ones included. Filtering happens in memory in the report pipeline; this
// is the snapshot read.
func (r *Repository) ListRecords(ctx context.Context, kind core.Kind) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE kind = ? ORDER BY created_ms, id`, kind)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (core.Record, error) {
	var rec core.Record
	var dateMS, resolvedMS, createdMS int64
	err := s.Scan(&rec.ID, &rec.Kind, &rec.Title, &rec.Amount.Cents, &rec.Category,
		&rec.PaymentMethod, &rec.OwnerName, &rec.OwnerRoom, &dateMS, &rec.Notes,
		&rec.PhotoURL, &rec.Status, &resolvedMS, &createdMS)
	if err != nil {
		return core.Record{}, err
	}
	rec.Date = core.InstantFromMillis(dateMS)
	rec.Resolved = core.InstantFromMillis(resolvedMS)
	rec.Created = core.InstantFromMillis(createdMS)
	return rec, nil
}

// DataVersion returns the current write counter. It changes on every
// record mutation and keys cached filter/aggregate results.
func (r *Repository) DataVersion(ctx context.Context) (int64, error) {
	var v int64
	err := r.db.QueryRowContext(ctx, `SELECT version FROM data_version WHERE id = 1`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("read data version: %w", err)
	}
	return v, nil
}

func (r *Repository) withVersionBump(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE data_version SET version = version + 1 WHERE id = 1`); err != nil {
		return fmt.Errorf("bump data version: %w", err)
	}
	return tx.Commit()
}

// CreateJob persists a pending export job and returns it with identity
// assigned.
func (r *Repository) CreateJob(ctx context.Context, job ExportJob) (ExportJob, error) {
	job.ID = uuid.NewString()
	job.State = JobPending
	job.Created = core.NewInstant(time.Now())
	job.Updated = job.Created

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO export_jobs (id, kind, format, spec_json, state, filename, error, created_ms, updated_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Kind, job.Format, job.SpecJSON, job.State, job.Filename, job.Error,
		job.Created.Millis(), job.Updated.Millis())
	if err != nil {
		return ExportJob{}, fmt.Errorf("create export job: %w", err)
	}
	return job, nil
}

func (r *Repository) GetJob(ctx context.Context, id string) (ExportJob, error) {
	var job ExportJob
	var createdMS, updatedMS int64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, kind, format, spec_json, state, filename, error, created_ms, updated_ms
		FROM export_jobs WHERE id = ?`, id).
		Scan(&job.ID, &job.Kind, &job.Format, &job.SpecJSON, &job.State,
			&job.Filename, &job.Error, &createdMS, &updatedMS)
	if errors.Is(err, sql.ErrNoRows) {
		return ExportJob{}, ErrJobNotFound
	}
	if err != nil {
		return ExportJob{}, fmt.Errorf("get export job: %w", err)
	}
	job.Created = core.InstantFromMillis(createdMS)
	job.Updated = core.InstantFromMillis(updatedMS)
	return job, nil
}

// ListPendingJobs returns pending export jobs oldest-first, for the
// worker's startup sweep of messages lost while it was down.
func (r *Repository) ListPendingJobs(ctx context.Context, limit int) ([]ExportJob, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, format, spec_json, state, filename, error, created_ms, updated_ms
		FROM export_jobs WHERE state = ? ORDER BY created_ms LIMIT ?`, JobPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}
	defer rows.Close()

	var out []ExportJob
	for rows.Next() {
		var job ExportJob
		var createdMS, updatedMS int64
		if err := rows.Scan(&job.ID, &job.Kind, &job.Format, &job.SpecJSON, &job.State,
			&job.Filename, &job.Error, &createdMS, &updatedMS); err != nil {
			return nil, fmt.Errorf("scan pending job: %w", err)
		}
		job.Created = core.InstantFromMillis(createdMS)
		job.Updated = core.InstantFromMillis(updatedMS)
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending jobs: %w", err)
	}
	return out, nil
}

// UpdateJobState advances a job through its lifecycle. The WHERE clause
// enforces the transition table, so a stale or duplicate worker cannot
// move a finished job backwards.
func (r *Repository) UpdateJobState(ctx context.Context, id string, from, to JobState, filename, errMsg string) error {
	if !jobTransitions[from][to] {
		return fmt.Errorf("export job %s: illegal transition %s -> %s", id, from, to)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE export_jobs SET state = ?, filename = ?, error = ?, updated_ms = ?
		WHERE id = ? AND state = ?`,
		to, filename, errMsg, time.Now().UnixMilli(), id, from)
	if err != nil {
		return fmt.Errorf("update export job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update export job: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("export job %s: not in state %s", id, from)
	}
	return nil
}
