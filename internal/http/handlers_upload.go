package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleBeginUpload(w http.ResponseWriter, r *http.Request) {
	session, err := s.uploads.Begin()
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to begin upload", "error", err, "operation", "create")
		writeError(w, http.StatusInternalServerError, "could not begin upload")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": session.ID})
}

func (s *Server) handleReceiveUpload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.uploads.Receive(id, r.Body); err != nil {
		slog.WarnContext(r.Context(), "Upload chunk rejected",
			"error", err, "upload_id", id)
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompleteUpload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	photoURL, err := s.uploads.Complete(id)
	if err != nil {
		slog.WarnContext(r.Context(), "Upload completion rejected",
			"error", err, "upload_id", id)
		writeDomainError(w, err)
		return
	}

	slog.InfoContext(r.Context(), "Upload stored", "upload_id", id, "photo_url", photoURL)
	writeJSON(w, http.StatusOK, map[string]string{"photoUrl": photoURL})
}

func (s *Server) handleAbortUpload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.uploads.Abort(id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
