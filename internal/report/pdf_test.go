package report

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maon/internal/core"
)

// stubFetcher serves canned responses by URL.
type stubFetcher struct {
	responses map[string][]byte
	errs      map[string]error
}

func (s *stubFetcher) Fetch(ctx context.Context, photoURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := s.errs[photoURL]; ok {
		return nil, err
	}
	if data, ok := s.responses[photoURL]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("no stub for %s", photoURL)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for x := 0; x < 4; x++ {
		for y := 0; y < 3; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func photoRecords(now time.Time) []core.Record {
	mk := func(id, url string) core.Record {
		r := rec(id, "item "+id, "Food", "Cash", 1000, now)
		r.PhotoURL = url
		return r
	}
	return []core.Record{
		mk("a", "https://photos.example/a.png"),
		mk("b", "https://photos.example/b.png"),
		mk("c", "https://photos.example/dead.png"),
	}
}

func TestWritePDFMixedGallery(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	records := photoRecords(now)
	img := pngBytes(t)

	fetcher := &stubFetcher{
		responses: map[string][]byte{
			records[0].PhotoURL: img,
			records[1].PhotoURL: img,
		},
		errs: map[string]error{
			records[2].PhotoURL: fmt.Errorf("connection refused"),
		},
	}

	var buf bytes.Buffer
	stats, err := WritePDF(context.Background(), &buf, records, Aggregate(records), PDFOptions{
		Title:   "Expense Report",
		Now:     now,
		Fetcher: fetcher,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Embedded)
	assert.Equal(t, 1, stats.Placeholders)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestWritePDFNilFetcherAllPlaceholders(t *testing.T) {
	now := time.Now()
	records := photoRecords(now)

	var buf bytes.Buffer
	stats, err := WritePDF(context.Background(), &buf, records, Aggregate(records), PDFOptions{
		Title: "Expense Report",
		Now:   now,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Embedded)
	assert.Equal(t, 3, stats.Placeholders)
}

func TestWritePDFCorruptImageBecomesPlaceholder(t *testing.T) {
	now := time.Now()
	records := photoRecords(now)[:1]

	fetcher := &stubFetcher{
		responses: map[string][]byte{
			records[0].PhotoURL: []byte("this is not an image at all, truly"),
		},
	}

	var buf bytes.Buffer
	stats, err := WritePDF(context.Background(), &buf, records, Aggregate(records), PDFOptions{
		Title:   "Expense Report",
		Now:     now,
		Fetcher: fetcher,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Embedded)
	assert.Equal(t, 1, stats.Placeholders)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestWritePDFNoPhotosNoGallery(t *testing.T) {
	now := time.Now()
	records := []core.Record{rec("a", "groceries", "Food", "Cash", 5000, now)}

	var buf bytes.Buffer
	stats, err := WritePDF(context.Background(), &buf, records, Aggregate(records), PDFOptions{
		Title: "Expense Report",
		Now:   now,
	})
	require.NoError(t, err)
	assert.Equal(t, PDFStats{}, stats)
	assert.NotEmpty(t, buf.Bytes())
}

func TestWritePDFCanceledContext(t *testing.T) {
	now := time.Now()
	records := photoRecords(now)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	_, err := WritePDF(ctx, &buf, records, Aggregate(records), PDFOptions{
		Title:   "Expense Report",
		Now:     now,
		Fetcher: &stubFetcher{},
	})
	require.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a ver...", truncate("a very long string", 8))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
