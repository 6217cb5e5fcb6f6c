package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		pageSize int
		total    int
		want     Pagination
	}{
		{
			name: "first of several pages",
			page: 1, pageSize: 10, total: 25,
			want: Pagination{CurrentPage: 1, TotalPages: 3, TotalCount: 25, HasNextPage: true, HasPrevPage: false},
		},
		{
			name: "middle page",
			page: 2, pageSize: 10, total: 25,
			want: Pagination{CurrentPage: 2, TotalPages: 3, TotalCount: 25, HasNextPage: true, HasPrevPage: true},
		},
		{
			name: "last page",
			page: 3, pageSize: 10, total: 25,
			want: Pagination{CurrentPage: 3, TotalPages: 3, TotalCount: 25, HasNextPage: false, HasPrevPage: true},
		},
		{
			name: "page past the end",
			page: 9, pageSize: 10, total: 25,
			want: Pagination{CurrentPage: 9, TotalPages: 3, TotalCount: 25, HasNextPage: false, HasPrevPage: true},
		},
		{
			name: "empty result",
			page: 1, pageSize: 10, total: 0,
			want: Pagination{CurrentPage: 1, TotalPages: 0, TotalCount: 0, HasNextPage: false, HasPrevPage: false},
		},
		{
			name: "exact page boundary",
			page: 2, pageSize: 5, total: 10,
			want: Pagination{CurrentPage: 2, TotalPages: 2, TotalCount: 10, HasNextPage: false, HasPrevPage: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, &tt.want, NewPagination(tt.page, tt.pageSize, tt.total))
		})
	}
}
