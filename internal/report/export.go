package report

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"maon/internal/core"
)

// Format selects the export document type.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

func (f Format) Valid() bool {
	return f == FormatCSV || f == FormatPDF
}

// ContentType returns the MIME type served with the exported document.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// Result is one rendered export document.
type Result struct {
	Data        []byte
	Filename    string
	ContentType string
	Stats       PDFStats
}

// Exporter renders filtered record sets into downloadable documents.
// It owns no shared state: every call operates on the snapshot it is
// given and on a drawing object created for that call alone.
type Exporter struct {
	fetcher PhotoFetcher
}

func NewExporter(fetcher PhotoFetcher) *Exporter {
	return &Exporter{fetcher: fetcher}
}

// Export runs the full pipeline tail: aggregates the (already filtered)
// snapshot and renders it in the requested format. The context cancels
// long-running PDF generation between photo embeds.
func (e *Exporter) Export(ctx context.Context, records []core.Record, spec Spec, kind core.Kind, format Format, now time.Time) (Result, error) {
	if !format.Valid() {
		return Result{}, fmt.Errorf("unsupported export format %q", format)
	}

	res := Result{
		Filename:    Filename(kind, format, spec, now),
		ContentType: format.ContentType(),
	}

	var buf bytes.Buffer
	switch format {
	case FormatCSV:
		if err := WriteCSV(&buf, records); err != nil {
			return Result{}, fmt.Errorf("export csv: %w", err)
		}
	case FormatPDF:
		sum := Aggregate(records)
		opts := PDFOptions{
			Title:   reportTitle(kind),
			Now:     now,
			Fetcher: e.fetcher,
		}
		if kind == core.KindRefund {
			opts.RangeLabel = spec.RangeLabel()
		}
		stats, err := WritePDF(ctx, &buf, records, sum, opts)
		if err != nil {
			return Result{}, fmt.Errorf("export pdf: %w", err)
		}
		res.Stats = stats
	}

	res.Data = buf.Bytes()
	return res, nil
}

// Filename derives the deterministic download name. Refund reports are
// named after the resolved date-range label; direct expense and problem
// exports after the current date.
func Filename(kind core.Kind, format Format, spec Spec, now time.Time) string {
	ext := string(format)
	switch kind {
	case core.KindRefund:
		return fmt.Sprintf("RefundReport-%s.%s", spec.RangeLabel(), ext)
	case core.KindProblem:
		return fmt.Sprintf("problems_report_%s.%s", now.Format("2006-01-02"), ext)
	default:
		return fmt.Sprintf("expenses_report_%s.%s", now.Format("2006-01-02"), ext)
	}
}

func reportTitle(kind core.Kind) string {
	switch kind {
	case core.KindRefund:
		return "Refund Report"
	case core.KindProblem:
		return "Problem Report"
	default:
		return "Expense Report"
	}
}

// formatILS renders cents as a currency string, e.g. "ILS 123.45".
func formatILS(cents int64) string {
	return fmt.Sprintf("ILS %.2f", float64(cents)/100.0)
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
