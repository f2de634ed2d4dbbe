// Package query turns a page request into the count and data statements run
// against the users table.
package query

import (
	"fmt"
	"math"
	"strings"

	"github.com/spec-kit/user-directory/internal/domain"
)

// Direction is the sort direction of a page request.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

const (
	DefaultPage      = 1
	DefaultPageSize  = 10
	MaxPageSize      = 100
	DefaultSortField = "id"

	maxPage = math.MaxInt32
)

// sortColumns is the allow-list of sortable fields. Only values taken from
// this map are ever written into an ORDER BY clause.
var sortColumns = map[string]string{
	"id":    "id",
	"name":  "name",
	"email": "email",
}

// SortableFields lists the request field names accepted for sorting.
func SortableFields() []string {
	return []string{"id", "name", "email"}
}

// PageRequest describes one paginated fetch.
type PageRequest struct {
	Page          int
	PageSize      int
	Search        string
	SortField     string
	SortDirection Direction
}

// PageResult is the page envelope returned for a PageRequest. Page and
// PageSize echo the effective values after normalization.
type PageResult struct {
	Rows     []domain.User `json:"rows"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// Limits configures page size coercion.
type Limits struct {
	DefaultPageSize int
	MaxPageSize     int
}

func (l Limits) withDefaults() Limits {
	if l.DefaultPageSize <= 0 {
		l.DefaultPageSize = DefaultPageSize
	}
	if l.MaxPageSize <= 0 {
		l.MaxPageSize = MaxPageSize
	}
	if l.DefaultPageSize > l.MaxPageSize {
		l.DefaultPageSize = l.MaxPageSize
	}
	return l
}

// Normalize coerces out-of-range values instead of rejecting them: page and
// page size fall back to their defaults, an unknown sort field becomes "id"
// and an unknown direction becomes ascending.
func (r PageRequest) Normalize(limits Limits) PageRequest {
	limits = limits.withDefaults()

	out := r
	if out.Page < 1 {
		out.Page = DefaultPage
	}
	if out.Page > maxPage {
		out.Page = maxPage
	}
	if out.PageSize < 1 {
		out.PageSize = limits.DefaultPageSize
	}
	if out.PageSize > limits.MaxPageSize {
		out.PageSize = limits.MaxPageSize
	}
	out.Search = strings.TrimSpace(out.Search)
	out.SortField = resolveSortColumn(out.SortField)
	out.SortDirection = resolveDirection(string(out.SortDirection))
	return out
}

// Offset returns the number of rows skipped before the page starts.
func (r PageRequest) Offset() int64 {
	if r.Page < 1 || r.PageSize < 1 {
		return 0
	}
	return int64(r.Page-1) * int64(r.PageSize)
}

func (r PageRequest) normalized() bool {
	col, ok := sortColumns[r.SortField]
	return ok && col == r.SortField &&
		r.Page >= 1 && r.Page <= maxPage && r.PageSize >= 1 &&
		(r.SortDirection == Asc || r.SortDirection == Desc)
}

func resolveSortColumn(field string) string {
	if col, ok := sortColumns[strings.ToLower(strings.TrimSpace(field))]; ok {
		return col
	}
	return DefaultSortField
}

func resolveDirection(dir string) Direction {
	if Direction(strings.ToLower(strings.TrimSpace(dir))) == Desc {
		return Desc
	}
	return Asc
}

// Dialect selects the placeholder syntax of the target database.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// Statement is a SQL string with its bound arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Plan holds the two statements that resolve a page. Both share the same
// filter predicate so Total always matches the rows that can be paged.
// Request is the normalized request the statements were built from.
type Plan struct {
	Request PageRequest
	Count   Statement
	Data    Statement
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchPattern returns the LIKE pattern for a substring search, with LIKE
// wildcards in the term escaped.
func SearchPattern(term string) string {
	return "%" + strings.ToLower(likeEscaper.Replace(term)) + "%"
}

type binder struct {
	dialect Dialect
	args    []any
}

func (b *binder) bind(v any) string {
	b.args = append(b.args, v)
	if b.dialect == SQLite {
		return "?"
	}
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *binder) snapshot() []any {
	return append([]any(nil), b.args...)
}

// Compose builds the count and data statements for a request. The request is
// normalized with default limits first, so callers may pass raw input.
func Compose(req PageRequest, dialect Dialect) Plan {
	if !req.normalized() {
		req = req.Normalize(Limits{})
	}

	b := &binder{dialect: dialect}
	where := ""
	if req.Search != "" {
		pattern := SearchPattern(req.Search)
		where = fmt.Sprintf(` WHERE (LOWER(name) LIKE %s ESCAPE '\' OR LOWER(email) LIKE %s ESCAPE '\')`,
			b.bind(pattern), b.bind(pattern))
	}
	countArgs := b.snapshot()

	column := sortColumns[req.SortField]
	dir := "ASC"
	if req.SortDirection == Desc {
		dir = "DESC"
	}
	// id breaks ties so pages never overlap and desc is the exact reverse of asc.
	order := column + " " + dir
	if column != "id" {
		order += ", id " + dir
	}

	data := fmt.Sprintf(`SELECT id, name, email FROM users%s ORDER BY %s LIMIT %s OFFSET %s`,
		where, order, b.bind(req.PageSize), b.bind(req.Offset()))

	return Plan{
		Request: req,
		Count:   Statement{SQL: "SELECT COUNT(*) FROM users" + where, Args: countArgs},
		Data:    Statement{SQL: data, Args: b.args},
	}
}
