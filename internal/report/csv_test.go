package report

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maon/internal/core"
)

func parseCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteCSVHeaderAndColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	rows := parseCSV(t, buf.Bytes())
	require.Len(t, rows, 1)
	assert.Equal(t, Columns, rows[0])
}

func TestWriteCSVRow(t *testing.T) {
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	r := core.Record{
		ID:            "x",
		Kind:          core.KindExpense,
		Title:         "קניית מזון",
		Category:      "Food",
		Amount:        core.Money{Cents: 12345},
		Date:          core.NewInstant(date),
		Notes:         "Weekly Shop",
		PaymentMethod: "Cash",
		OwnerName:     "Dana",
		PhotoURL:      "https://Example.com/Receipt.JPG",
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []core.Record{r}))

	rows := parseCSV(t, buf.Bytes())
	require.Len(t, rows, 2)
	row := rows[1]
	assert.Equal(t, "purchase of food", row[0])
	assert.Equal(t, "food", row[1])
	assert.Equal(t, "123.45", row[2])
	assert.Equal(t, "2025-06-10", row[3])
	assert.Equal(t, "weekly shop", row[4])
	assert.Equal(t, "cash", row[5])
	assert.Equal(t, "dana", row[6])
	// photo URL kept verbatim, lowercasing would corrupt it
	assert.Equal(t, "https://Example.com/Receipt.JPG", row[7])
}

func TestWriteCSVNoPhotoSentinel(t *testing.T) {
	r := core.Record{ID: "x", Kind: core.KindExpense, Title: "bus"}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []core.Record{r}))

	rows := parseCSV(t, buf.Bytes())
	assert.Equal(t, "no photo", rows[1][7])
}

func TestWriteCSVEscapesDelimiters(t *testing.T) {
	r := core.Record{
		ID:    "x",
		Kind:  core.KindExpense,
		Title: `pots, pans and "stuff"`,
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []core.Record{r}))

	// a conforming reader must recover the exact field
	rows := parseCSV(t, buf.Bytes())
	assert.Equal(t, `pots, pans and "stuff"`, rows[1][0])
}

func TestWriteCSVRowCountMatchesInput(t *testing.T) {
	now := time.Now()
	records := []core.Record{
		rec("a", "one", "Food", "Cash", 100, now),
		rec("b", "two", "Food", "Cash", 200, now),
		rec("c", "three", "Food", "Cash", 300, now),
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))

	rows := parseCSV(t, buf.Bytes())
	assert.Len(t, rows, len(records)+1)
}
