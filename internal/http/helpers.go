package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"maon/internal/core"
	"maon/internal/report"
	"maon/internal/storage"
	"maon/internal/upload"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeDomainError maps domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrRecordNotFound),
		errors.Is(err, storage.ErrJobNotFound),
		errors.Is(err, upload.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrBadTransition),
		errors.Is(err, core.ErrRecordArchived),
		errors.Is(err, upload.ErrBadState):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrUnknownKind),
		errors.Is(err, core.ErrUnknownField):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrMissingField),
		errors.Is(err, core.ErrEmptyTitle),
		errors.Is(err, core.ErrBadTimestamp):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, upload.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func pathKind(r *http.Request) (core.Kind, bool) {
	kind := core.Kind(chi.URLParam(r, "kind"))
	return kind, kind.Valid()
}

// parseSpec builds the filter spec from query parameters. Unknown values
// degrade to the permissive default rather than failing the request.
func parseSpec(r *http.Request) (report.Spec, error) {
	q := r.URL.Query()

	spec := report.Spec{
		Range:         report.RangeAll,
		Category:      strings.TrimSpace(q.Get("category")),
		PaymentMethod: strings.TrimSpace(q.Get("paymentMethod")),
		SearchTerm:    strings.TrimSpace(q.Get("search")),
		Sort:          report.SortNewest,
	}

	switch report.DateRange(q.Get("dateRange")) {
	case report.RangeDay:
		spec.Range = report.RangeDay
	case report.RangeWeek:
		spec.Range = report.RangeWeek
	case report.RangeMonth:
		spec.Range = report.RangeMonth
	case report.RangeCustom:
		spec.Range = report.RangeCustom
		from, err := core.ParseInstant(strings.TrimSpace(q.Get("customFrom")))
		if err != nil {
			return report.Spec{}, err
		}
		to, err := core.ParseInstant(strings.TrimSpace(q.Get("customTo")))
		if err != nil {
			return report.Spec{}, err
		}
		if from.IsZero() && to.IsZero() {
			return report.Spec{}, fmt.Errorf("%w: custom range needs customFrom or customTo", core.ErrBadTimestamp)
		}
		spec.CustomFrom = from
		spec.CustomTo = to
	}

	if report.SortDir(q.Get("sort")) == report.SortOldest {
		spec.Sort = report.SortOldest
	}
	return spec, nil
}

// formValues converts a urlencoded body into the field map consumed by
// the schema validator.
func formValues(r *http.Request) (map[string]string, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	values := make(map[string]string, len(r.PostForm))
	for name := range r.PostForm {
		values[name] = r.PostForm.Get(name)
	}
	return values, nil
}
