package pipeline

// DefaultPerPage is used when a caller asks for a non-positive page size.
const DefaultPerPage = 10

// Page is one slice of a paginated list.
type Page[T any] struct {
	Items        []T `json:"items"`
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`
}

// TotalPages returns max(1, ceil(count/perPage)).
func TotalPages(count, perPage int) int {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	pages := (count + perPage - 1) / perPage
	if pages < 1 {
		return 1
	}
	return pages
}

// Paginate returns the requested page of items. Out of range pages are
// clamped to [1, TotalPages]; an empty list yields one empty page.
func Paginate[T any](items []T, page, perPage int) Page[T] {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	total := TotalPages(len(items), perPage)
	page = clamp(page, total)

	start := (page - 1) * perPage
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	slice := make([]T, 0, end-start)
	slice = append(slice, items[start:end]...)
	return Page[T]{
		Items:        slice,
		CurrentPage:  page,
		TotalPages:   total,
		TotalItems:   len(items),
		ItemsPerPage: perPage,
	}
}

// ServerPagination is the pagination block returned by upstream endpoints
// that paginate themselves.
type ServerPagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`
}

// AdoptServerPage wraps an already paginated upstream result without
// slicing it again.
func AdoptServerPage[T any](items []T, sp ServerPagination) Page[T] {
	if items == nil {
		items = []T{}
	}
	p := Page[T]{
		Items:        items,
		CurrentPage:  sp.CurrentPage,
		TotalPages:   sp.TotalPages,
		TotalItems:   sp.TotalItems,
		ItemsPerPage: sp.ItemsPerPage,
	}
	if p.TotalPages < 1 {
		p.TotalPages = 1
	}
	p.CurrentPage = clamp(p.CurrentPage, p.TotalPages)
	if p.ItemsPerPage <= 0 {
		p.ItemsPerPage = len(items)
	}
	return p
}

// Cursor tracks the page a viewer is on for a given filter. Changing the
// filter returns to page one; changing the page leaves the filter alone.
type Cursor[F comparable] struct {
	Filter  F
	Page    int
	PerPage int
}

// NewCursor starts at page one of the unfiltered list.
func NewCursor[F comparable](perPage int) Cursor[F] {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return Cursor[F]{Page: 1, PerPage: perPage}
}

// WithFilter applies f. The page resets to one only when f differs from the
// current filter.
func (c Cursor[F]) WithFilter(f F) Cursor[F] {
	if f != c.Filter {
		c.Filter = f
		c.Page = 1
	}
	return c
}

// WithPage moves to page p, keeping filters.
func (c Cursor[F]) WithPage(p int) Cursor[F] {
	if p < 1 {
		p = 1
	}
	c.Page = p
	return c
}

// WithPerPage changes the page size and returns to page one.
func (c Cursor[F]) WithPerPage(n int) Cursor[F] {
	if n <= 0 {
		n = DefaultPerPage
	}
	if n != c.PerPage {
		c.PerPage = n
		c.Page = 1
	}
	return c
}

// Clamp keeps the page inside [1, totalPages] after the result size changed.
func (c Cursor[F]) Clamp(totalPages int) Cursor[F] {
	c.Page = clamp(c.Page, totalPages)
	return c
}

func clamp(page, total int) int {
	if total < 1 {
		total = 1
	}
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}
