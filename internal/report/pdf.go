package report

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/sync/errgroup"

	"maon/internal/core"
)

// PDFOptions controls one PDF rendering call.
type PDFOptions struct {
	Title      string
	RangeLabel string // empty hides the period line
	Now        time.Time
	Fetcher    PhotoFetcher
}

// PDFStats reports what happened to the photo gallery of one export.
type PDFStats struct {
	Embedded     int
	Placeholders int
}

// photoFetchConcurrency bounds parallel gallery downloads. Results are
// buffered by index so the final page layout stays deterministic no matter
// which fetch finishes first.
const photoFetchConcurrency = 4

// Gallery grid geometry, millimeters on A4 portrait.
const (
	galleryImgW   = 90.0
	galleryImgH   = 65.0
	galleryLabelH = 6.0
	galleryGapY   = 8.0
	pageMargin    = 10.0
)

// WritePDF renders the full report document: title block, summary,
// detail table, and a photo gallery appended as extra pages. A photo that
// fails to fetch or decode becomes a placeholder; the export as a whole
// fails only when the drawing library itself errors or ctx is canceled.
func WritePDF(ctx context.Context, w io.Writer, records []core.Record, sum Summary, opts PDFOptions) (PDFStats, error) {
	var stats PDFStats

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetAutoPageBreak(true, pageMargin)
	doc.AddPage()

	writeTitleBlock(doc, opts)
	writeSummaryBlock(doc, sum)
	rowByID := writeDetailTable(doc, records)

	photoRecs := photoBearing(records)
	if len(photoRecs) > 0 {
		images, err := fetchGalleryImages(ctx, photoRecs, opts.Fetcher)
		if err != nil {
			return stats, err
		}
		stats = writeGallery(doc, photoRecs, images, rowByID)
	}

	if doc.Err() {
		return stats, fmt.Errorf("render pdf: %w", doc.Error())
	}
	if err := doc.Output(w); err != nil {
		return stats, fmt.Errorf("write pdf: %w", err)
	}
	return stats, nil
}

func writeTitleBlock(doc *fpdf.Fpdf, opts PDFOptions) {
	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 10, opts.Title, "", 1, "C", false, 0, "")

	doc.SetFont("Helvetica", "", 9)
	doc.SetTextColor(100, 100, 100)
	doc.CellFormat(0, 5, "Generated: "+opts.Now.Format("2006-01-02 15:04"), "", 1, "C", false, 0, "")
	if opts.RangeLabel != "" {
		doc.CellFormat(0, 5, "Period: "+opts.RangeLabel, "", 1, "C", false, 0, "")
	}
	doc.SetTextColor(0, 0, 0)
	doc.Ln(4)
}

func writeSummaryBlock(doc *fpdf.Fpdf, sum Summary) {
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(0, 7, "Summary", "", 1, "L", false, 0, "")

	doc.SetFont("Helvetica", "", 9)
	doc.CellFormat(0, 5, fmt.Sprintf("Records: %d", sum.TotalCount), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 5, "Total: "+formatILS(sum.TotalCents), "", 1, "L", false, 0, "")

	for _, name := range sortedKeys(sum.CategoryCents) {
		doc.CellFormat(0, 5, fmt.Sprintf("  %s: %s", name, formatILS(sum.CategoryCents[name])), "", 1, "L", false, 0, "")
	}
	for _, name := range sortedKeys(sum.MethodCents) {
		doc.CellFormat(0, 5, fmt.Sprintf("  via %s: %s", name, formatILS(sum.MethodCents[name])), "", 1, "L", false, 0, "")
	}
	doc.Ln(4)
}

// detail table column widths, summing to the printable width of A4.
var tableCols = []struct {
	header string
	width  float64
}{
	{"#", 8},
	{"title", 48},
	{"category", 24},
	{"amount", 20},
	{"date", 22},
	{"method", 25},
	{"created by", 29},
	{"photo", 14},
}

// writeDetailTable emits one row per record and returns the record-ID to
// row-number mapping used to label gallery images.
func writeDetailTable(doc *fpdf.Fpdf, records []core.Record) map[string]int {
	doc.SetFont("Helvetica", "B", 8)
	doc.SetFillColor(230, 230, 230)
	for _, col := range tableCols {
		doc.CellFormat(col.width, 6, col.header, "1", 0, "L", true, 0, "")
	}
	doc.Ln(-1)

	rowByID := make(map[string]int, len(records))
	doc.SetFont("Helvetica", "", 8)
	for i, r := range records {
		row := i + 1
		rowByID[r.ID] = row

		photoLabel, photoLink := "n/a", ""
		if r.PhotoURL != "" {
			photoLabel = fmt.Sprintf("photo %d", row)
			photoLink = r.PhotoURL
		}

		cells := []string{
			fmt.Sprintf("%d", row),
			truncate(Normalize(r.Title), 34),
			truncate(Normalize(r.Category), 16),
			fmt.Sprintf("%.2f", r.Amount.Shekels()),
			r.Date.Format("2006-01-02"),
			truncate(Normalize(r.PaymentMethod), 17),
			truncate(Normalize(r.OwnerName), 20),
		}
		for j, cell := range cells {
			doc.CellFormat(tableCols[j].width, 6, cell, "1", 0, "L", false, 0, "")
		}
		doc.CellFormat(tableCols[7].width, 6, photoLabel, "1", 0, "L", false, 0, photoLink)
		doc.Ln(-1)
	}
	doc.Ln(4)
	return rowByID
}

func photoBearing(records []core.Record) []core.Record {
	var out []core.Record
	for _, r := range records {
		if r.PhotoURL != "" {
			out = append(out, r)
		}
	}
	return out
}

// fetchGalleryImages downloads gallery photos with bounded parallelism.
// A failed fetch leaves a nil slot (placeholder downstream); only context
// cancellation aborts the whole export.
func fetchGalleryImages(ctx context.Context, photoRecs []core.Record, fetcher PhotoFetcher) ([][]byte, error) {
	images := make([][]byte, len(photoRecs))
	if fetcher == nil {
		return images, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(photoFetchConcurrency)
	for i, r := range photoRecs {
		i, r := i, r
		g.Go(func() error {
			data, err := fetcher.Fetch(gctx, r.PhotoURL)
			if err != nil {
				// placeholder downstream, unless the export itself is being
				// torn down
				if gctx.Err() != nil {
					return gctx.Err()
				}
				return nil
			}
			images[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch gallery photos: %w", err)
	}
	return images, nil
}

func writeGallery(doc *fpdf.Fpdf, photoRecs []core.Record, images [][]byte, rowByID map[string]int) PDFStats {
	var stats PDFStats

	doc.AddPage()
	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(0, 8, "Photos", "", 1, "L", false, 0, "")
	doc.Ln(2)

	_, pageH := doc.GetPageSize()
	y := doc.GetY()
	for i, r := range photoRecs {
		col := i % 2
		if col == 0 && y+galleryImgH+galleryLabelH > pageH-pageMargin {
			doc.AddPage()
			y = doc.GetY()
		}
		x := pageMargin + float64(col)*(galleryImgW+pageMargin)

		if embedImage(doc, galleryImageName(r.ID), images[i], x, y) {
			stats.Embedded++
		} else {
			drawPlaceholder(doc, x, y)
			stats.Placeholders++
		}

		doc.SetFont("Helvetica", "", 8)
		doc.SetXY(x, y+galleryImgH)
		doc.CellFormat(galleryImgW, galleryLabelH, fmt.Sprintf("Row %d", rowByID[r.ID]), "", 0, "C", false, 0, "")

		if col == 1 {
			y += galleryImgH + galleryLabelH + galleryGapY
		}
	}
	return stats
}

// embedImage registers and draws one gallery photo. The bytes are decoded
// up front so a corrupt image degrades to a placeholder instead of
// poisoning the document with a sticky library error.
func embedImage(doc *fpdf.Fpdf, name string, data []byte, x, y float64) bool {
	if len(data) == 0 {
		return false
	}
	imageType := sniffImageType(data)
	if imageType == "" {
		return false
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return false
	}

	info := doc.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: imageType}, bytes.NewReader(data))
	if info == nil || doc.Err() {
		// clear a registration error so one bad image cannot fail the export
		doc.ClearError()
		return false
	}
	doc.ImageOptions(name, x, y, galleryImgW, galleryImgH, false, fpdf.ImageOptions{ImageType: imageType}, 0, "")
	if doc.Err() {
		doc.ClearError()
		return false
	}
	return true
}

func drawPlaceholder(doc *fpdf.Fpdf, x, y float64) {
	doc.SetDrawColor(160, 160, 160)
	doc.SetFillColor(245, 245, 245)
	doc.Rect(x, y, galleryImgW, galleryImgH, "FD")

	doc.SetFont("Helvetica", "B", 22)
	doc.SetTextColor(160, 160, 160)
	doc.SetXY(x, y+galleryImgH/2-8)
	doc.CellFormat(galleryImgW, 8, "X", "", 1, "C", false, 0, "")
	doc.SetFont("Helvetica", "", 9)
	doc.SetX(x)
	doc.CellFormat(galleryImgW, 6, "photo unavailable", "", 0, "C", false, 0, "")
	doc.SetTextColor(0, 0, 0)
	doc.SetDrawColor(0, 0, 0)
}

func galleryImageName(id string) string {
	return "photo-" + id
}

func sniffImageType(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return "JPG"
	case "image/png":
		return "PNG"
	case "image/gif":
		return "GIF"
	default:
		return ""
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
