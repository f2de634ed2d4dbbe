package client

import (
	"net/url"
	"testing"
)

func TestTableState_SearchResetsPage(t *testing.T) {
	s := NewTableState(0)
	if s.PageSize() != DefaultTablePageSize {
		t.Fatalf("PageSize() = %d, want %d", s.PageSize(), DefaultTablePageSize)
	}

	s.SetPage(4)
	s.SetSearch("  ")
	if s.Page() != 4 {
		t.Errorf("blank search moved page to %d", s.Page())
	}

	s.SetSearch("alice")
	if s.Page() != 1 {
		t.Errorf("Page() after search change = %d, want 1", s.Page())
	}

	s.SetPage(3)
	s.SetSearch("alice")
	if s.Page() != 3 {
		t.Errorf("Page() after same search = %d, want 3", s.Page())
	}

	s.SetPage(-2)
	if s.Page() != 1 {
		t.Errorf("SetPage(-2) gave page %d, want 1", s.Page())
	}
}

func TestTableState_ToggleSort(t *testing.T) {
	s := NewTableState(6)

	steps := []struct {
		column    string
		wantField string
		wantOrder SortDirection
	}{
		{"name", "name", SortAsc},
		{"name", "name", SortDesc},
		{"name", "", SortNone},
		{"name", "name", SortAsc},
		{"email", "email", SortAsc},
		{"email", "email", SortDesc},
		{"id", "id", SortAsc},
	}

	for i, step := range steps {
		s.ToggleSort(step.column)
		field, order := s.Sort()
		if field != step.wantField || order != step.wantOrder {
			t.Errorf("step %d ToggleSort(%q) = (%q, %q), want (%q, %q)",
				i, step.column, field, order, step.wantField, step.wantOrder)
		}
	}
}

func TestPageRequest_Values(t *testing.T) {
	tests := []struct {
		name string
		req  PageRequest
		want url.Values
	}{
		{
			name: "empty search and no sort are omitted",
			req:  PageRequest{Page: 1, PageSize: 6},
			want: url.Values{"page": {"1"}, "limit": {"6"}},
		},
		{
			name: "sort without direction is omitted",
			req:  PageRequest{Page: 2, PageSize: 6, SortField: "name"},
			want: url.Values{"page": {"2"}, "limit": {"6"}},
		},
		{
			name: "all fields",
			req:  PageRequest{Page: 3, PageSize: 10, Search: "a b&c", SortField: "email", SortOrder: SortDesc},
			want: url.Values{"page": {"3"}, "limit": {"10"}, "search": {"a b&c"}, "sort": {"email"}, "order": {"desc"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.req.Values()
			if got.Encode() != tt.want.Encode() {
				t.Errorf("Values() = %q, want %q", got.Encode(), tt.want.Encode())
			}
		})
	}
}

func TestTableState_Request(t *testing.T) {
	s := NewTableState(6)
	s.SetSearch("example")
	s.ToggleSort("name")
	s.ToggleSort("name")
	s.SetPage(2)

	want := PageRequest{Page: 2, PageSize: 6, Search: "example", SortField: "name", SortOrder: SortDesc}
	if got := s.Request(); got != want {
		t.Errorf("Request() = %+v, want %+v", got, want)
	}

	s.SetPageSize(20)
	if s.Page() != 1 || s.Request().PageSize != 20 {
		t.Errorf("SetPageSize(20) gave %+v", s.Request())
	}
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		total    int64
		pageSize int
		want     int64
	}{
		{0, 6, 0},
		{1, 6, 1},
		{6, 6, 1},
		{7, 6, 2},
		{11, 10, 2},
		{100, 0, 0},
	}
	for _, tt := range tests {
		if got := PageCount(tt.total, tt.pageSize); got != tt.want {
			t.Errorf("PageCount(%d, %d) = %d, want %d", tt.total, tt.pageSize, got, tt.want)
		}
	}
}
