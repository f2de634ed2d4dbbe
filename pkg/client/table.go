package client

import (
	"net/url"
	"strconv"
	"strings"
)

// DefaultTablePageSize is the number of rows a table shows per page.
const DefaultTablePageSize = 6

// SortDirection of the active sort column. SortNone means no column is
// sorted and the server applies its default order.
type SortDirection string

const (
	SortNone SortDirection = ""
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// PageRequest is the list request derived from a table state.
type PageRequest struct {
	Page      int
	PageSize  int
	Search    string
	SortField string
	SortOrder SortDirection
}

// Values encodes the request as query parameters. An empty search and an
// inactive sort are left out entirely.
func (r PageRequest) Values() url.Values {
	v := url.Values{}
	if r.Page > 0 {
		v.Set("page", strconv.Itoa(r.Page))
	}
	if r.PageSize > 0 {
		v.Set("limit", strconv.Itoa(r.PageSize))
	}
	if r.Search != "" {
		v.Set("search", r.Search)
	}
	if r.SortField != "" && r.SortOrder != SortNone {
		v.Set("sort", r.SortField)
		v.Set("order", string(r.SortOrder))
	}
	return v
}

// TableState is the paging, filter and sort state of a user table. It does
// no I/O; callers fetch with Request() whenever the state changes.
type TableState struct {
	page      int
	pageSize  int
	search    string
	sortField string
	sortOrder SortDirection
}

// NewTableState returns a state on page 1. A pageSize below 1 uses
// DefaultTablePageSize.
func NewTableState(pageSize int) *TableState {
	if pageSize < 1 {
		pageSize = DefaultTablePageSize
	}
	return &TableState{page: 1, pageSize: pageSize}
}

// SetSearch changes the filter. A changed term moves back to page 1 so the
// table never stays on a page the new filter does not have.
func (t *TableState) SetSearch(term string) {
	term = strings.TrimSpace(term)
	if term == t.search {
		return
	}
	t.search = term
	t.page = 1
}

// SetPage moves to page p; values below 1 select page 1.
func (t *TableState) SetPage(p int) {
	if p < 1 {
		p = 1
	}
	t.page = p
}

// SetPageSize changes the rows per page and returns to page 1.
func (t *TableState) SetPageSize(size int) {
	if size < 1 {
		size = DefaultTablePageSize
	}
	if size == t.pageSize {
		return
	}
	t.pageSize = size
	t.page = 1
}

// ToggleSort cycles column through ascending, descending and unsorted.
// Picking another column replaces the current one and starts ascending.
func (t *TableState) ToggleSort(column string) {
	if column != t.sortField || t.sortOrder == SortNone {
		t.sortField = column
		t.sortOrder = SortAsc
		return
	}
	switch t.sortOrder {
	case SortAsc:
		t.sortOrder = SortDesc
	default:
		t.sortField = ""
		t.sortOrder = SortNone
	}
}

// Sort returns the active sort column and direction.
func (t *TableState) Sort() (string, SortDirection) {
	return t.sortField, t.sortOrder
}

// Page returns the current page number.
func (t *TableState) Page() int { return t.page }

// PageSize returns the rows per page.
func (t *TableState) PageSize() int { return t.pageSize }

// Search returns the current filter term.
func (t *TableState) Search() string { return t.search }

// Request builds the list request for the current state.
func (t *TableState) Request() PageRequest {
	return PageRequest{
		Page:      t.page,
		PageSize:  t.pageSize,
		Search:    t.search,
		SortField: t.sortField,
		SortOrder: t.sortOrder,
	}
}

// PageCount returns how many pages total rows fill at pageSize rows each.
func PageCount(total int64, pageSize int) int64 {
	if total <= 0 || pageSize < 1 {
		return 0
	}
	size := int64(pageSize)
	return (total + size - 1) / size
}
