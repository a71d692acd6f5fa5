package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maon/internal/core"
)

func TestFilename(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		kind   core.Kind
		format Format
		spec   Spec
		want   string
	}{
		{core.KindRefund, FormatPDF, Spec{Range: RangeWeek}, "RefundReport-7 Days.pdf"},
		{core.KindRefund, FormatCSV, Spec{Range: RangeAll}, "RefundReport-All Time.csv"},
		{core.KindExpense, FormatCSV, Spec{}, "expenses_report_2025-06-15.csv"},
		{core.KindExpense, FormatPDF, Spec{}, "expenses_report_2025-06-15.pdf"},
		{core.KindProblem, FormatCSV, Spec{}, "problems_report_2025-06-15.csv"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Filename(tc.kind, tc.format, tc.spec, now))
	}
}

func TestFormatValidAndContentType(t *testing.T) {
	assert.True(t, FormatCSV.Valid())
	assert.True(t, FormatPDF.Valid())
	assert.False(t, Format("xlsx").Valid())
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
}

func TestExporterRejectsUnknownFormat(t *testing.T) {
	e := NewExporter(nil)
	_, err := e.Export(context.Background(), nil, Spec{}, core.KindExpense, Format("xlsx"), time.Now())
	require.Error(t, err)
}

func TestExporterCSV(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	records := []core.Record{rec("a", "groceries", "Food", "Cash", 5000, now)}

	e := NewExporter(nil)
	res, err := e.Export(context.Background(), records, Spec{Range: RangeAll}, core.KindExpense, FormatCSV, now)
	require.NoError(t, err)
	assert.Equal(t, "expenses_report_2025-06-15.csv", res.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", res.ContentType)
	assert.NotEmpty(t, res.Data)
}

func TestExporterPDF(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	records := []core.Record{rec("a", "groceries", "Food", "Cash", 5000, now)}

	e := NewExporter(nil)
	res, err := e.Export(context.Background(), records, Spec{Range: RangeWeek}, core.KindRefund, FormatPDF, now)
	require.NoError(t, err)
	assert.Equal(t, "RefundReport-7 Days.pdf", res.Filename)
	assert.Equal(t, "application/pdf", res.ContentType)
	assert.True(t, len(res.Data) > 4 && string(res.Data[:4]) == "%PDF")
}

func TestFormatILS(t *testing.T) {
	assert.Equal(t, "ILS 123.45", formatILS(12345))
	assert.Equal(t, "ILS 0.00", formatILS(0))
}
