package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"maon/internal/core"
)

// Columns is the fixed CSV header, in emission order.
var Columns = []string{"title", "category", "amount", "date", "notes", "payment method", "created by", "photo"}

const noPhoto = "no photo"

// WriteCSV renders records as UTF-8 comma-separated text with a header
// row. Textual fields pass through Normalize; embedded commas and quotes
// are escaped by the writer (quote doubling). Photo URLs are emitted
// verbatim since lowercasing would corrupt them.
func WriteCSV(w io.Writer, records []core.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		row := []string{
			Normalize(r.Title),
			Normalize(r.Category),
			fmt.Sprintf("%.2f", r.Amount.Shekels()),
			r.Date.Format("2006-01-02"),
			Normalize(r.Notes),
			Normalize(r.PaymentMethod),
			Normalize(r.OwnerName),
			photoCell(r),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func photoCell(r core.Record) string {
	if r.PhotoURL == "" {
		return noPhoto
	}
	return r.PhotoURL
}
