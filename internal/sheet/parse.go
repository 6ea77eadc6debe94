package sheet

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"reviewsync/internal/review"
)

// Cell values forming the two-way status contract with staff editing the
// workbook. Words are accepted on read alongside the symbols.
const (
	SymbolApproved = "🟢"
	SymbolRejected = "🚫"
	SymbolPending  = "⚠️"

	WordApproved = "Approved"
	WordRejected = "Rejected"
)

// Origin markers written into column A of bot-exported rows so staff can
// tell them apart from rows they typed in themselves.
const (
	OriginClient    = "Added by client"
	OriginPhotoPack = "Client photo pack for the whole platform"
)

const (
	clientTitleFormat   = "Client %d"
	platformMarkerWord  = "PLATFORM"
	platformScanRows    = 10
	platformScanColumns = 6
)

var (
	clientTitleRe    = regexp.MustCompile(`(?i)^client\s+(\d+)$`)
	platformMarkerRe = regexp.MustCompile(`(?i)^platform\s+(\d+)$`)
)

func ClientSheetTitle(number int) string {
	return fmt.Sprintf(clientTitleFormat, number)
}

// ParseClientNumber extracts the client number from a sheet title like
// "Client 42"; non-client sheets return false.
func ParseClientNumber(title string) (int, bool) {
	m := clientTitleRe.FindStringSubmatch(strings.TrimSpace(title))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func PlatformMarker(number int) string {
	return fmt.Sprintf("%s %d", platformMarkerWord, number)
}

func parsePlatformNumber(cell string) (int, bool) {
	m := platformMarkerRe.FindStringSubmatch(strings.TrimSpace(cell))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsURL reports whether a cell holds an http(s) link.
func IsURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Row is one review line of a client sheet:
// [origin, date, manager comment, status symbol, text, photo link].
type Row struct {
	Origin     string
	Date       string
	Comment    string
	StatusCell string
	Text       string
	PhotoLink  string
}

func cellAt(cells []string, i int) string {
	if i < len(cells) {
		return strings.TrimSpace(cells[i])
	}
	return ""
}

// ParseRow normalizes a raw sheet row. excelize trims trailing empty cells,
// so missing columns read as empty strings.
func ParseRow(cells []string) Row {
	return Row{
		Origin:     cellAt(cells, 0),
		Date:       cellAt(cells, 1),
		Comment:    cellAt(cells, 2),
		StatusCell: cellAt(cells, 3),
		Text:       cellAt(cells, 4),
		PhotoLink:  cellAt(cells, 5),
	}
}

// Status maps the row's cells to a store status. A manager comment with no
// status symbol counts as sign-off.
func (r Row) Status() string {
	switch {
	case r.Comment != "" && r.StatusCell == "":
		return review.StatusApproved
	case r.StatusCell == SymbolApproved || strings.EqualFold(r.StatusCell, WordApproved):
		return review.StatusApproved
	case r.StatusCell == SymbolRejected || strings.EqualFold(r.StatusCell, WordRejected):
		return review.StatusRejected
	case r.StatusCell == SymbolPending:
		return review.StatusPending
	default:
		return review.StatusNew
	}
}
