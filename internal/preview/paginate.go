package preview

import (
	"errors"
	"fmt"
)

// DefaultPageSize is the number of rows per preview page.
const DefaultPageSize = 20

// windowSize is the most page numbers offered for navigation at once.
const windowSize = 5

// ErrPageOutOfRange is returned for a page number outside 1..TotalPages.
var ErrPageOutOfRange = errors.New("page out of range")

// Page is one slice of a result set.
type Page struct {
	Number     int        `json:"page"`
	Size       int        `json:"pageSize"`
	TotalPages int        `json:"totalPages"`
	TotalRows  int        `json:"totalRows"`
	Start      int        `json:"start"`
	End        int        `json:"end"`
	Columns    []string   `json:"columns"`
	Rows       [][]string `json:"rows"`
	Window     []int      `json:"window"`
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool {
	return p.Number > 1
}

// HasNext reports whether a following page exists.
func (p Page) HasNext() bool {
	return p.Number < p.TotalPages
}

// Paginate returns page number (1-based) of rs with size rows per page.
// A size of zero or less uses DefaultPageSize.
//
// Start and End are the 0-based half-open row range of the page. Window
// lists up to five page numbers centred on the current page, clamped to
// the available pages. An empty result set has a single empty page.
func Paginate(rs *ResultSet, number, size int) (Page, error) {
	if size <= 0 {
		size = DefaultPageSize
	}

	total := len(rs.Rows)
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if number < 1 || number > pages {
		return Page{}, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, number, pages)
	}

	start := (number - 1) * size
	end := min(start+size, total)

	return Page{
		Number:     number,
		Size:       size,
		TotalPages: pages,
		TotalRows:  total,
		Start:      start,
		End:        end,
		Columns:    rs.Columns,
		Rows:       rs.Rows[start:end],
		Window:     window(number, pages),
	}, nil
}

// window returns the page numbers to offer around current.
func window(current, pages int) []int {
	count := min(windowSize, pages)
	first := max(1, min(pages-windowSize+1, current-windowSize/2))
	out := make([]int, count)
	for i := range out {
		out[i] = first + i
	}
	return out
}
