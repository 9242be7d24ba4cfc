package domain

// Page describes one page of a paginated listing.
// Current is 1-based.
type Page struct {
	Current int
	PerPage int
	Total   int
}

// NewPage clamps current to >= 1 and perPage to >= 1.
func NewPage(current, perPage, total int) Page {
	if current < 1 {
		current = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	return Page{Current: current, PerPage: perPage, Total: total}
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int { return (p.Current - 1) * p.PerPage }

// Limit returns the page size.
func (p Page) Limit() int { return p.PerPage }

// HasNext reports whether a page follows this one.
func (p Page) HasNext() bool { return p.PerPage*p.Current < p.Total }

// HasPrev reports whether a page precedes this one.
func (p Page) HasPrev() bool { return p.Current > 1 }

// Next returns the following page number.
func (p Page) Next() int { return p.Current + 1 }

// Prev returns the preceding page number.
func (p Page) Prev() int { return p.Current - 1 }

// Last returns the last page number, at least 1.
func (p Page) Last() int {
	if p.Total == 0 {
		return 1
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}
