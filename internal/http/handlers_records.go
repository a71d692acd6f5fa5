package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"maon/internal/core"
)

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown record kind")
		return
	}
	spec, err := parseSpec(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid custom date range")
		return
	}

	list, err := s.records.ListFiltered(r.Context(), kind, spec, time.Now())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list records",
			"error", err, "record_kind", kind, "operation", "list")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records": list.Records,
		"summary": list.Summary,
	})
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown record kind")
		return
	}
	values, err := formValues(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	rec, err := s.records.Create(r.Context(), kind, values)
	if err != nil {
		slog.WarnContext(r.Context(), "Record creation rejected",
			"error", err, "record_kind", kind, "operation", "create")
		writeDomainError(w, err)
		return
	}

	slog.InfoContext(r.Context(), "Record created",
		"record_id", rec.ID,
		"record_kind", rec.Kind,
		"amount_cents", rec.Amount.Cents,
		"operation", "create")
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.records.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleEditRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	values, err := formValues(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	rec, err := s.records.Edit(r.Context(), id, values)
	if err != nil {
		slog.WarnContext(r.Context(), "Record edit rejected",
			"error", err, "record_id", id, "operation", "update")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	to := core.Status(strings.TrimSpace(r.PostForm.Get("status")))
	if to == core.StatusNone {
		writeError(w, http.StatusUnprocessableEntity, "missing status")
		return
	}

	rec, err := s.records.Transition(r.Context(), id, to)
	if err != nil {
		slog.WarnContext(r.Context(), "Status transition rejected",
			"error", err, "record_id", id, "operation", "transition")
		writeDomainError(w, err)
		return
	}

	slog.InfoContext(r.Context(), "Record status changed",
		"record_id", id,
		"record_kind", rec.Kind,
		"status", rec.Status,
		"operation", "transition")
	writeJSON(w, http.StatusOK, rec)
}
