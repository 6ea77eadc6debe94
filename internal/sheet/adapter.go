package sheet

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// ErrNoWorkbook means no configured workbook covers the client number.
var ErrNoWorkbook = errors.New("no workbook for client number")

// cachedFile pairs an open handle with the mtime of the file it was read
// from. The handle is a point-in-time snapshot, not a live view; the mtime
// decides whether it still reflects the disk file.
type cachedFile struct {
	f       *excelize.File
	modTime time.Time
}

// Adapter reads and writes the staff-edited workbooks. Opened files are
// cached by path and reused only while the file on disk is unchanged; staff
// edits (and our own saves) bump the mtime and force a reopen, so a stale
// snapshot is never read from or saved over them.
type Adapter struct {
	mu    sync.Mutex
	paths []string
	cache map[string]*cachedFile
	log   *logrus.Entry
}

func NewAdapter(paths []string, log *logrus.Entry) *Adapter {
	return &Adapter{
		paths: paths,
		cache: make(map[string]*cachedFile),
		log:   log,
	}
}

func (a *Adapter) NumWorkbooks() int { return len(a.paths) }

// Workbook opens the idx-th configured workbook, retrying with bounded
// exponential backoff. Exhausted retries surface as an error so the caller
// can skip the document for this cycle.
func (a *Adapter) Workbook(idx int) (*Workbook, error) {
	if idx < 0 || idx >= len(a.paths) {
		return nil, fmt.Errorf("workbook index %d out of range", idx)
	}
	path := a.paths[idx]
	f, err := a.open(path)
	if err != nil {
		return nil, err
	}
	return &Workbook{f: f, path: path}, nil
}

// ForClient maps a client number to its workbook: numbers 1-99 live in the
// first file, 100-199 in the second, and so on.
func (a *Adapter) ForClient(number int) (*Workbook, error) {
	if number < 1 {
		return nil, ErrNoWorkbook
	}
	idx := number / 100
	if idx >= len(a.paths) {
		return nil, ErrNoWorkbook
	}
	return a.Workbook(idx)
}

func (a *Adapter) open(path string) (*excelize.File, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if c, ok := a.cache[path]; ok {
		info, err := os.Stat(path)
		if err == nil && info.ModTime().Equal(c.modTime) {
			return c.f, nil
		}
		// The file changed on disk since this handle was opened. Reading the
		// snapshot would miss staff edits and saving it would destroy them.
		_ = c.f.Close()
		delete(a.cache, path)
	}

	var (
		f   *excelize.File
		mod time.Time
	)
	op := func() error {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		mod = info.ModTime()
		f, err = excelize.OpenFile(path)
		return err
	}
	// 5 attempts total before the document counts as unreachable.
	if err := backoff.Retry(op, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4)); err != nil {
		a.log.WithFields(logrus.Fields{"path": path}).WithError(err).Warn("workbook open failed")
		return nil, err
	}

	a.cache[path] = &cachedFile{f: f, modTime: mod}
	return f, nil
}

// Invalidate drops a cached handle, forcing a reopen on next access.
func (a *Adapter) Invalidate(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.cache[path]; ok {
		_ = c.f.Close()
		delete(a.cache, path)
	}
}

// Workbook is one open spreadsheet file holding many client sheets.
type Workbook struct {
	f    *excelize.File
	path string
}

func (w *Workbook) Path() string { return w.path }

// Save persists pending row inserts back to disk.
func (w *Workbook) Save() error { return w.f.Save() }

// ClientSheets lists every sheet titled like "Client {n}".
func (w *Workbook) ClientSheets() []*ClientSheet {
	var out []*ClientSheet
	for _, name := range w.f.GetSheetList() {
		if n, ok := ParseClientNumber(name); ok {
			out = append(out, &ClientSheet{f: w.f, Name: name, Number: n})
		}
	}
	return out
}

// ClientSheet finds the sheet for one client: exact title first, then a
// normalized scan of all titles.
func (w *Workbook) ClientSheet(number int) (*ClientSheet, bool) {
	want := ClientSheetTitle(number)
	for _, name := range w.f.GetSheetList() {
		if name == want {
			return &ClientSheet{f: w.f, Name: name, Number: number}, true
		}
	}
	for _, name := range w.f.GetSheetList() {
		if strings.EqualFold(strings.TrimSpace(name), want) {
			return &ClientSheet{f: w.f, Name: name, Number: number}, true
		}
	}
	return nil, false
}

// ClientSheet is one client's section of a workbook.
type ClientSheet struct {
	f      *excelize.File
	Name   string
	Number int
}

func (s *ClientSheet) rows() ([][]string, error) {
	return s.f.GetRows(s.Name)
}

// Platforms scans the top of the sheet for URL cells and numbers them in
// declaration order: platform 1 is the first URL found, and so on.
func (s *ClientSheet) Platforms() (map[int]string, error) {
	rows, err := s.rows()
	if err != nil {
		return nil, err
	}
	platforms := make(map[int]string)
	count := 1
	for r := 0; r < platformScanRows && r < len(rows); r++ {
		for c := 0; c < platformScanColumns && c < len(rows[r]); c++ {
			cell := strings.TrimSpace(rows[r][c])
			if cell != "" && IsURL(cell) {
				platforms[count] = cell
				count++
			}
		}
	}
	return platforms, nil
}

// Reviews returns the review rows grouped by platform number. A row belongs
// to the marker above it and only counts when its text column is non-empty.
// Sections under an unparsable marker are skipped.
func (s *ClientSheet) Reviews() (map[int][]Row, error) {
	rows, err := s.rows()
	if err != nil {
		return nil, err
	}
	out := make(map[int][]Row)
	current := 0 // 0 = before any marker, -1 = malformed marker
	for _, cells := range rows {
		first := cellAt(cells, 0)
		if strings.HasPrefix(strings.ToUpper(first), platformMarkerWord) {
			if n, ok := parsePlatformNumber(first); ok {
				current = n
				if _, seen := out[n]; !seen {
					out[n] = nil
				}
			} else {
				current = -1
			}
			continue
		}
		if current <= 0 {
			continue
		}
		r := ParseRow(cells)
		if r.Text != "" {
			out[current] = append(out[current], r)
		}
	}
	return out, nil
}

// InsertionIndex computes the 1-based row at which a new entry for the
// platform should land: right before the next platform marker, or past the
// last row when the marker is last (or missing entirely). It always rescans;
// positions are never cached across inserts.
func (s *ClientSheet) InsertionIndex(platformNumber int) (int, error) {
	rows, err := s.rows()
	if err != nil {
		return 0, err
	}
	return insertionIndex(rows, platformNumber), nil
}

func insertionIndex(rows [][]string, platformNumber int) int {
	start := 0
	for i, cells := range rows {
		if n, ok := parsePlatformNumber(cellAt(cells, 0)); ok && n == platformNumber {
			start = i + 1
			break
		}
	}
	if start == 0 {
		return len(rows) + 1
	}
	idx := start + 1
	for j := start + 1; j <= len(rows); j++ {
		if n, ok := parsePlatformNumber(cellAt(rows[j-1], 0)); ok && n != platformNumber {
			return j
		}
		idx = j + 1
	}
	return idx
}

// InsertRow places a new row in the platform's section. The index is
// resolved immediately before the insert so concurrent edits that shifted
// rows do not corrupt placement.
func (s *ClientSheet) InsertRow(platformNumber int, r Row) error {
	rows, err := s.rows()
	if err != nil {
		return err
	}
	idx := insertionIndex(rows, platformNumber)
	if idx <= len(rows) {
		if err := s.f.InsertRows(s.Name, idx, 1); err != nil {
			return err
		}
	}
	cell, err := excelize.CoordinatesToCellName(1, idx)
	if err != nil {
		return err
	}
	vals := []interface{}{r.Origin, r.Date, r.Comment, r.StatusCell, r.Text, r.PhotoLink}
	return s.f.SetSheetRow(s.Name, cell, &vals)
}
