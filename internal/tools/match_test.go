package tools

import (
	"errors"
	"testing"
)

func TestResolveCourseTitle(t *testing.T) {
	titles := []string{
		"Introduction to Compilers",
		"Advanced Retrieval Systems",
		"MCP: Build Rich-Context AI Apps",
	}

	tests := []struct {
		name    string
		query   string
		want    string
		wantErr bool
	}{
		{
			name:  "exact match ignores case",
			query: "introduction to compilers",
			want:  "Introduction to Compilers",
		},
		{
			name:  "partial name matches as substring",
			query: "compilers",
			want:  "Introduction to Compilers",
		},
		{
			name:  "abbreviation matches as substring",
			query: "MCP",
			want:  "MCP: Build Rich-Context AI Apps",
		},
		{
			name:  "token containment above threshold",
			query: "retrieval systems course",
			want:  "Advanced Retrieval Systems",
		},
		{
			name:    "below threshold fails",
			query:   "underwater basket weaving",
			wantErr: true,
		},
		{
			name:    "empty query fails",
			query:   "   ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveCourseTitle(tt.query, titles, 0.55)
			if tt.wantErr {
				if !errors.Is(err, ErrCourseNotFound) {
					t.Fatalf("ResolveCourseTitle(%q) error = %v, want ErrCourseNotFound", tt.query, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveCourseTitle(%q) error = %v", tt.query, err)
			}
			if got != tt.want {
				t.Errorf("ResolveCourseTitle(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}

	t.Run("no titles indexed", func(t *testing.T) {
		_, err := ResolveCourseTitle("anything", nil, 0.55)
		if !errors.Is(err, ErrCourseNotFound) {
			t.Fatalf("error = %v, want ErrCourseNotFound", err)
		}
	})
}
