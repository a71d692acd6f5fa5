// Package http exposes the residence service over a JSON API: record
// CRUD and status workflows, filtered lists with summaries, direct and
// queued exports, photo uploads, and the same-origin photo proxy used by
// PDF generation.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	applog "maon/internal/log"
	"maon/internal/middleware/ratelimit"
	"maon/internal/services"
	"maon/internal/upload"
)

// proxyRateLimit bounds per-client requests to the endpoints that do
// outbound network or disk work per call.
const proxyRateLimit = 30

type Server struct {
	http.Server

	records *services.RecordService
	exports *services.ExportService
	uploads *upload.Manager
	limiter *ratelimit.Limiter

	// proxyClient serves /photos/proxy; bounded so a slow photo host
	// cannot pin a handler
	proxyClient *http.Client
}

func NewServer(addr string, records *services.RecordService, exports *services.ExportService, uploads *upload.Manager, logger *applog.Logger) *Server {
	s := &Server{
		records:     records,
		exports:     exports,
		uploads:     uploads,
		limiter:     ratelimit.NewLimiter(proxyRateLimit),
		proxyClient: &http.Client{Timeout: 30 * time.Second},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(applog.RequestLogger(logger))
	r.Use(securityHeaders)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleHealth)
	r.Get("/photos/{photoID}", s.handleServePhoto)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/{kind}", func(r chi.Router) {
			r.Get("/records", s.handleListRecords)
			r.Post("/records", s.handleCreateRecord)
			r.Get("/export", s.handleExportNow)
			r.Post("/exports", s.handleEnqueueExport)
		})

		r.Route("/records/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetRecord)
			r.Patch("/", s.handleEditRecord)
			r.Post("/status", s.handleTransition)
		})

		r.Get("/exports/{id}", s.handleGetExportJob)
		r.Get("/exports/{id}/download", s.handleDownloadExport)

		r.With(s.limiter.Middleware).Get("/photos/proxy", s.handlePhotoProxy)

		r.Route("/uploads", func(r chi.Router) {
			r.Use(s.limiter.Middleware)
			r.Post("/", s.handleBeginUpload)
			r.Put("/{id}", s.handleReceiveUpload)
			r.Post("/{id}/complete", s.handleCompleteUpload)
			r.Delete("/{id}", s.handleAbortUpload)
		})
	})

	s.Server = http.Server{
		Addr:    addr,
		Handler: r,
	}
	s.RegisterOnShutdown(s.limiter.Stop)
	return s
}

// securityHeaders sets the response headers a JSON API should carry.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
