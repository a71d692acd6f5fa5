// Package services orchestrates record workflows and exports on top of
// storage, the report pipeline, and the job queue.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"maon/internal/cache"
	"maon/internal/core"
	"maon/internal/report"
)

// RecordStore is the storage surface the services need. Satisfied by
// *storage.Repository; kept narrow so tests can use in-memory fakes.
type RecordStore interface {
	CreateRecord(ctx context.Context, rec core.Record) (core.Record, error)
	UpdateRecord(ctx context.Context, rec core.Record) error
	GetRecord(ctx context.Context, id string) (core.Record, error)
	ListRecords(ctx context.Context, kind core.Kind) ([]core.Record, error)
	DataVersion(ctx context.Context) (int64, error)
}

// FilteredList is a filtered snapshot with its summary. The summary is
// always computed from exactly the records slice, never independently, so
// the two can never disagree.
type FilteredList struct {
	Records []core.Record
	Summary report.Summary
}

// RecordService handles create/edit/status workflows and filtered reads.
type RecordService struct {
	store     RecordStore
	listCache *cache.LRUCache[FilteredList]
}

func NewRecordService(store RecordStore) *RecordService {
	return &RecordService{
		store:     store,
		listCache: cache.NewLRUCache[FilteredList](128, 30*time.Second),
	}
}

// Cache exposes the list cache for cleanup registration.
func (s *RecordService) Cache() *cache.LRUCache[FilteredList] {
	return s.listCache
}

// Create validates submitted form values against the kind's field schema
// and persists a new record.
func (s *RecordService) Create(ctx context.Context, kind core.Kind, values map[string]string) (core.Record, error) {
	rec := core.Record{Kind: kind, Status: kind.InitialStatus()}
	if err := core.ApplyFields(&rec, values, true); err != nil {
		return core.Record{}, err
	}
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}

	saved, err := s.store.CreateRecord(ctx, rec)
	if err != nil {
		return core.Record{}, fmt.Errorf("create %s record: %w", kind, err)
	}
	return saved, nil
}

// Edit applies admin changes to an existing, unarchived record.
func (s *RecordService) Edit(ctx context.Context, id string, values map[string]string) (core.Record, error) {
	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return core.Record{}, err
	}
	if rec.Archived() {
		return core.Record{}, core.ErrRecordArchived
	}
	if err := core.ApplyFields(&rec, values, false); err != nil {
		return core.Record{}, err
	}
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}
	if err := s.store.UpdateRecord(ctx, rec); err != nil {
		return core.Record{}, fmt.Errorf("edit record: %w", err)
	}

	slog.InfoContext(ctx, "Record edited", "record_id", id, "record_kind", rec.Kind)
	return rec, nil
}

// Transition resolves a record (approve/deny a refund, fix a problem).
// Archived records stay in place; nothing is ever deleted.
func (s *RecordService) Transition(ctx context.Context, id string, to core.Status) (core.Record, error) {
	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return core.Record{}, err
	}
	if err := rec.Transition(to, core.NewInstant(time.Now())); err != nil {
		return core.Record{}, err
	}
	if err := s.store.UpdateRecord(ctx, rec); err != nil {
		return core.Record{}, fmt.Errorf("transition record: %w", err)
	}

	slog.InfoContext(ctx, "Record resolved",
		"record_id", id,
		"record_kind", rec.Kind,
		"status", rec.Status)
	return rec, nil
}

// Get returns one record by ID.
func (s *RecordService) Get(ctx context.Context, id string) (core.Record, error) {
	return s.store.GetRecord(ctx, id)
}

// ListFiltered returns the filtered snapshot for a kind plus its summary.
// Results are cached keyed by (kind, spec fingerprint, data version);
// any write bumps the version, so a cached summary always matches what a
// fresh read would produce.
func (s *RecordService) ListFiltered(ctx context.Context, kind core.Kind, spec report.Spec, now time.Time) (FilteredList, error) {
	version, err := s.store.DataVersion(ctx)
	if err != nil {
		return FilteredList{}, err
	}
	// named date ranges move with the clock; bucket the anchor per minute
	key := fmt.Sprintf("%s|%s|%d|%d", kind, spec.Fingerprint(), version, now.Unix()/60)
	if cached, ok := s.listCache.Get(key); ok {
		return cached, nil
	}

	records, err := s.store.ListRecords(ctx, kind)
	if err != nil {
		return FilteredList{}, fmt.Errorf("list %s records: %w", kind, err)
	}

	filtered := report.Apply(records, spec, now)
	result := FilteredList{
		Records: filtered,
		Summary: report.Aggregate(filtered),
	}
	s.listCache.Set(key, result)
	return result, nil
}
