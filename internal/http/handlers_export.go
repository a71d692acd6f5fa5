package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"maon/internal/report"
	"maon/internal/storage"
)

func (s *Server) handleExportNow(w http.ResponseWriter, r *http.Request) {
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
	format := report.Format(r.URL.Query().Get("format"))
	if !format.Valid() {
		writeError(w, http.StatusBadRequest, "format must be csv or pdf")
		return
	}

	result, err := s.exports.ExportNow(r.Context(), kind, spec, format)
	if err != nil {
		slog.ErrorContext(r.Context(), "Export failed",
			"error", err, "record_kind", kind, "format", format, "operation", "export")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

type jobResponse struct {
	ID       string `json:"id"`
	State    string `json:"state"`
	Filename string `json:"filename,omitempty"`
	Error    string `json:"error,omitempty"`
}

func toJobResponse(job storage.ExportJob) jobResponse {
	return jobResponse{
		ID:       job.ID,
		State:    string(job.State),
		Filename: job.Filename,
		Error:    job.Error,
	}
}

func (s *Server) handleEnqueueExport(w http.ResponseWriter, r *http.Request) {
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
	format := report.Format(r.URL.Query().Get("format"))
	if !format.Valid() {
		writeError(w, http.StatusBadRequest, "format must be csv or pdf")
		return
	}

	job, err := s.exports.Enqueue(r.Context(), kind, spec, format)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to enqueue export",
			"error", err, "record_kind", kind, "format", format, "operation", "export")
		writeError(w, http.StatusInternalServerError, "could not enqueue export")
		return
	}

	writeJSON(w, http.StatusAccepted, toJobResponse(job))
}

func (s *Server) handleGetExportJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.exports.Job(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(job))
}

func (s *Server) handleDownloadExport(w http.ResponseWriter, r *http.Request) {
	job, err := s.exports.Job(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if job.State != storage.JobDone {
		writeError(w, http.StatusConflict, fmt.Sprintf("export job is %s", job.State))
		return
	}

	path := s.exports.ArtifactPath(job)
	if _, err := os.Stat(path); err != nil {
		slog.ErrorContext(r.Context(), "Export artifact missing",
			"job_id", job.ID, "path", path, "error", err)
		writeError(w, http.StatusNotFound, "export document not found")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", job.Filename))
	http.ServeFile(w, r, path)
}
