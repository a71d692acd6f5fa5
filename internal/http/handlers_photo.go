package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

// proxyMaxBytes caps a proxied photo response.
const proxyMaxBytes = 20 << 20

// handlePhotoProxy fetches an external photo on behalf of the browser and
// the PDF renderer, sidestepping cross-origin restrictions on the photo
// host. Only absolute http(s) URLs are accepted.
func (s *Server) handlePhotoProxy(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing url parameter")
		return
	}
	target, err := url.Parse(raw)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		writeError(w, http.StatusBadRequest, "url must be absolute http(s)")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid url")
		return
	}
	resp, err := s.proxyClient.Do(req)
	if err != nil {
		slog.WarnContext(r.Context(), "Photo proxy fetch failed",
			"url", target.String(), "error", err, "operation", "fetch")
		writeError(w, http.StatusBadGateway, "photo fetch failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		writeError(w, http.StatusBadGateway, "photo host returned "+resp.Status)
		return
	}

	w.Header().Set("Content-Type", resp.Header.Get("Content-Type"))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, io.LimitReader(resp.Body, proxyMaxBytes)); err != nil {
		slog.WarnContext(r.Context(), "Photo proxy copy interrupted",
			"url", target.String(), "error", err)
	}
}

// handleServePhoto serves a previously uploaded photo by ID.
func (s *Server) handleServePhoto(w http.ResponseWriter, r *http.Request) {
	photoID := chi.URLParam(r, "photoID")
	http.ServeFile(w, r, s.uploads.PhotoPath(photoID))
}
