package services

import (
	"context"
	"errors"
	"os"
	"testing"

	"maon/internal/core"
	"maon/internal/report"
	"maon/internal/storage"
)

type fakePublisher struct {
	published []string
	err       error
}

func (p *fakePublisher) PublishExportJob(ctx context.Context, jobID string) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, jobID)
	return nil
}

func seedRefunds(t *testing.T, store *fakeStore, n int) {
	t.Helper()
	svc := NewRecordService(store)
	for i := 0; i < n; i++ {
		if _, err := svc.Create(context.Background(), core.KindRefund, validRefundForm()); err != nil {
			t.Fatalf("seed record %d: %v", i, err)
		}
	}
}

func newExportService(store *fakeStore, pub JobPublisher, dir string) *ExportService {
	return NewExportService(store, store, pub, report.NewExporter(nil), dir)
}

func TestExportNowCSV(t *testing.T) {
	store := newFakeStore()
	seedRefunds(t, store, 2)
	svc := newExportService(store, nil, t.TempDir())

	res, err := svc.ExportNow(context.Background(), core.KindRefund, report.Spec{Range: report.RangeAll}, report.FormatCSV)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if res.Filename != "RefundReport-All Time.csv" {
		t.Fatalf("filename = %q", res.Filename)
	}
	if len(res.Data) == 0 {
		t.Fatal("empty export body")
	}
}

func TestExportNowUnknownKind(t *testing.T) {
	svc := newExportService(newFakeStore(), nil, t.TempDir())
	_, err := svc.ExportNow(context.Background(), "invoice", report.Spec{}, report.FormatCSV)
	if !errors.Is(err, core.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestEnqueueInlineWithoutPublisher(t *testing.T) {
	store := newFakeStore()
	seedRefunds(t, store, 1)
	dir := t.TempDir()
	svc := newExportService(store, nil, dir)

	job, err := svc.Enqueue(context.Background(), core.KindRefund, report.Spec{Range: report.RangeWeek}, report.FormatCSV)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if job.State != storage.JobDone {
		t.Fatalf("inline job should finish, state = %q", job.State)
	}
	if job.Filename == "" {
		t.Fatal("finished job should carry its filename")
	}
	if _, err := os.Stat(svc.ArtifactPath(job)); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
}

func TestEnqueueWithPublisherStaysPending(t *testing.T) {
	store := newFakeStore()
	seedRefunds(t, store, 1)
	pub := &fakePublisher{}
	svc := newExportService(store, pub, t.TempDir())

	job, err := svc.Enqueue(context.Background(), core.KindRefund, report.Spec{}, report.FormatPDF)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if job.State != storage.JobPending {
		t.Fatalf("state = %q, want pending", job.State)
	}
	if len(pub.published) != 1 || pub.published[0] != job.ID {
		t.Fatalf("published = %v", pub.published)
	}
}

func TestEnqueuePublishFailureKeepsJob(t *testing.T) {
	store := newFakeStore()
	seedRefunds(t, store, 1)
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := newExportService(store, pub, t.TempDir())

	job, err := svc.Enqueue(context.Background(), core.KindRefund, report.Spec{}, report.FormatCSV)
	if err != nil {
		t.Fatalf("publish failure must not fail the enqueue: %v", err)
	}
	// the pending row survives for the worker's sweep
	got, err := svc.Job(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.State != storage.JobPending {
		t.Fatalf("state = %q, want pending", got.State)
	}
}

func TestEnqueueRejectsBadFormat(t *testing.T) {
	svc := newExportService(newFakeStore(), nil, t.TempDir())
	if _, err := svc.Enqueue(context.Background(), core.KindRefund, report.Spec{}, report.Format("xlsx")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestProcessJobLifecycle(t *testing.T) {
	store := newFakeStore()
	seedRefunds(t, store, 1)
	pub := &fakePublisher{}
	dir := t.TempDir()
	svc := newExportService(store, pub, dir)
	ctx := context.Background()

	job, err := svc.Enqueue(ctx, core.KindRefund, report.Spec{Range: report.RangeAll}, report.FormatCSV)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := svc.ProcessJob(ctx, job.ID); err != nil {
		t.Fatalf("process: %v", err)
	}
	done, err := svc.Job(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if done.State != storage.JobDone {
		t.Fatalf("state = %q, want done", done.State)
	}
	if _, err := os.Stat(svc.ArtifactPath(done)); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}

	// duplicate delivery is a no-op
	if err := svc.ProcessJob(ctx, job.ID); err != nil {
		t.Fatalf("reprocessing a finished job must not fail: %v", err)
	}
}

func TestProcessJobRenderFailure(t *testing.T) {
	store := newFakeStore()
	svc := newExportService(store, &fakePublisher{}, t.TempDir())
	ctx := context.Background()

	job, err := store.CreateJob(ctx, storage.ExportJob{
		Kind:     core.KindRefund,
		Format:   "csv",
		SpecJSON: "{not json",
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	if err := svc.ProcessJob(ctx, job.ID); err == nil {
		t.Fatal("expected render error")
	}
	failed, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if failed.State != storage.JobFailed {
		t.Fatalf("state = %q, want failed", failed.State)
	}
	if failed.Error == "" {
		t.Fatal("failure reason should be recorded on the job")
	}
}
