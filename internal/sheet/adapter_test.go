package sheet

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l.WithField("component", "test")
}

// buildClientFile writes one workbook with a single "Client 5" sheet laid out
// the way staff keep them: URL declarations up top, then per-platform marker
// rows with review rows underneath.
func buildClientFile(t *testing.T) (*excelize.File, string) {
	t.Helper()

	f := excelize.NewFile()
	const name = "Client 5"
	require.NoError(t, f.SetSheetName("Sheet1", name))

	require.NoError(t, f.SetCellValue(name, "A1", "https://example.com/maps"))
	require.NoError(t, f.SetCellValue(name, "B1", "https://example.com/reviews"))

	set := func(row int, vals []interface{}) {
		cell, err := excelize.CoordinatesToCellName(1, row)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(name, cell, &vals))
	}
	set(3, []interface{}{"PLATFORM 1"})
	set(4, []interface{}{"", "2024-01-02", "", "", "Great service", ""})
	set(5, []interface{}{"", "2024-01-03", "thanks", "", "Loved it", ""})
	set(6, []interface{}{"PLATFORM 2"})
	set(7, []interface{}{"", "2024-01-04", "", "🟢", "Would recommend", ""})

	return f, name
}

func TestClientSheetPlatforms(t *testing.T) {
	f, name := buildClientFile(t)
	cs := &ClientSheet{f: f, Name: name, Number: 5}

	platforms, err := cs.Platforms()
	require.NoError(t, err)
	require.Equal(t, map[int]string{
		1: "https://example.com/maps",
		2: "https://example.com/reviews",
	}, platforms)
}

func TestClientSheetReviews(t *testing.T) {
	f, name := buildClientFile(t)
	cs := &ClientSheet{f: f, Name: name, Number: 5}

	rows, err := cs.Reviews()
	require.NoError(t, err)
	require.Len(t, rows[1], 2)
	require.Len(t, rows[2], 1)
	require.Equal(t, "Great service", rows[1][0].Text)
	require.Equal(t, "Loved it", rows[1][1].Text)
	require.Equal(t, "Would recommend", rows[2][0].Text)
}

func TestClientSheetReviewsMalformedMarker(t *testing.T) {
	f := excelize.NewFile()
	const name = "Client 9"
	require.NoError(t, f.SetSheetName("Sheet1", name))
	require.NoError(t, f.SetCellValue(name, "A1", "PLATFORM X"))
	require.NoError(t, f.SetCellValue(name, "E2", "orphaned review"))
	require.NoError(t, f.SetCellValue(name, "A3", "PLATFORM 2"))
	require.NoError(t, f.SetCellValue(name, "E4", "counted review"))

	cs := &ClientSheet{f: f, Name: name, Number: 9}
	rows, err := cs.Reviews()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Len(t, rows[2], 1)
	require.Equal(t, "counted review", rows[2][0].Text)
}

func TestInsertionIndex(t *testing.T) {
	rows := [][]string{
		{"https://example.com/maps"},
		{},
		{"PLATFORM 1"},
		{"", "2024-01-02", "", "", "Great service", ""},
		{"", "2024-01-03", "", "", "Loved it", ""},
		{"PLATFORM 2"},
		{"", "2024-01-04", "", "", "Would recommend", ""},
	}

	// Before the next marker for a middle platform.
	require.Equal(t, 6, insertionIndex(rows, 1))
	// Past the last row for the final platform.
	require.Equal(t, 8, insertionIndex(rows, 2))
	// Missing marker appends at the very end.
	require.Equal(t, 8, insertionIndex(rows, 3))
}

// Successive inserts for the same platform land contiguously after its last
// existing row and strictly before the next platform's marker.
func TestInsertRowPlacement(t *testing.T) {
	f, name := buildClientFile(t)
	cs := &ClientSheet{f: f, Name: name, Number: 5}

	for _, text := range []string{"first", "second", "third"} {
		err := cs.InsertRow(1, Row{
			Origin:     OriginClient,
			Date:       "2024-02-01 10:00:00",
			StatusCell: SymbolPending,
			Text:       text,
		})
		require.NoError(t, err)
	}

	rows, err := cs.rows()
	require.NoError(t, err)

	require.Equal(t, "first", cellAt(rows[5], 4))
	require.Equal(t, "second", cellAt(rows[6], 4))
	require.Equal(t, "third", cellAt(rows[7], 4))
	require.Equal(t, "PLATFORM 2", cellAt(rows[8], 0))
	require.Equal(t, OriginClient, cellAt(rows[5], 0))
	require.Equal(t, SymbolPending, cellAt(rows[5], 3))
}

func TestInsertRowAppendsWhenMarkerLast(t *testing.T) {
	f := excelize.NewFile()
	const name = "Client 3"
	require.NoError(t, f.SetSheetName("Sheet1", name))
	require.NoError(t, f.SetCellValue(name, "A1", PlatformMarker(1)))
	require.NoError(t, f.SetCellValue(name, "E2", "existing"))

	cs := &ClientSheet{f: f, Name: name, Number: 3}
	require.NoError(t, cs.InsertRow(1, Row{Text: "appended"}))

	rows, err := cs.rows()
	require.NoError(t, err)
	require.Equal(t, "appended", cellAt(rows[2], 4))
}

func TestAdapterForClient(t *testing.T) {
	f, _ := buildClientFile(t)
	path := filepath.Join(t.TempDir(), "book1.xlsx")
	require.NoError(t, f.SaveAs(path))

	a := NewAdapter([]string{path}, testLog())

	wb, err := a.ForClient(5)
	require.NoError(t, err)
	cs, ok := wb.ClientSheet(5)
	require.True(t, ok)
	require.Equal(t, 5, cs.Number)

	// Second open hits the cache and hands back the same handle.
	wb2, err := a.ForClient(42)
	require.NoError(t, err)
	require.Same(t, wb.f, wb2.f)

	_, err = a.ForClient(105)
	require.True(t, errors.Is(err, ErrNoWorkbook))
	_, err = a.ForClient(0)
	require.True(t, errors.Is(err, ErrNoWorkbook))
}

// An edit made to the file after the first open must be visible on the next
// access; the cached snapshot would otherwise be saved back over it.
func TestAdapterReloadsAfterExternalWrite(t *testing.T) {
	f, _ := buildClientFile(t)
	path := filepath.Join(t.TempDir(), "book1.xlsx")
	require.NoError(t, f.SaveAs(path))

	a := NewAdapter([]string{path}, testLog())
	wb, err := a.Workbook(0)
	require.NoError(t, err)
	cs, ok := wb.ClientSheet(5)
	require.True(t, ok)
	rows, err := cs.Reviews()
	require.NoError(t, err)
	require.Empty(t, rows[1][0].StatusCell)

	// Staff approve a row behind the adapter's back.
	ext, err := excelize.OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, ext.SetCellValue("Client 5", "D4", SymbolApproved))
	require.NoError(t, ext.Save())
	require.NoError(t, ext.Close())
	require.NoError(t, os.Chtimes(path, time.Now(), time.Now().Add(time.Second)))

	wb2, err := a.Workbook(0)
	require.NoError(t, err)
	require.NotSame(t, wb.f, wb2.f)
	cs2, ok := wb2.ClientSheet(5)
	require.True(t, ok)
	rows2, err := cs2.Reviews()
	require.NoError(t, err)
	require.Equal(t, SymbolApproved, rows2[1][0].StatusCell)
}

func TestWorkbookClientSheets(t *testing.T) {
	f, _ := buildClientFile(t)
	_, err := f.NewSheet("Summary")
	require.NoError(t, err)
	_, err = f.NewSheet("client 12")
	require.NoError(t, err)

	wb := &Workbook{f: f, path: "mem"}
	sheets := wb.ClientSheets()
	require.Len(t, sheets, 2)

	nums := []int{sheets[0].Number, sheets[1].Number}
	require.ElementsMatch(t, []int{5, 12}, nums)
}
