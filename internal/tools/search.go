package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/lectern-ai/lectern/internal/index"
)

// Searcher is the slice of the index the search tools need.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...index.SearchOption) ([]index.SearchResult, error)
	CourseTitles(ctx context.Context) ([]string, error)
	Outline(ctx context.Context, title string) (index.CourseRecord, error)
}

// CourseSearchInput defines input for the search_course_content tool.
type CourseSearchInput struct {
	Query        string `json:"query" jsonschema_description:"What to look for in the course materials"`
	CourseName   string `json:"course_name,omitempty" jsonschema_description:"Course title to search within; partial names are resolved"`
	LessonNumber *int   `json:"lesson_number,omitempty" jsonschema_description:"Restrict the search to one lesson number"`
}

// CourseSearch finds course content relevant to a query, optionally
// scoped to one course or lesson.
type CourseSearch struct {
	searcher   Searcher
	maxResults int
	threshold  float64
	logger     *slog.Logger
}

// NewCourseSearch creates the content search tool.
func NewCourseSearch(searcher Searcher, maxResults int, threshold float64, logger *slog.Logger) *CourseSearch {
	if logger == nil {
		logger = slog.Default()
	}
	return &CourseSearch{
		searcher:   searcher,
		maxResults: maxResults,
		threshold:  threshold,
		logger:     logger,
	}
}

// Name implements Tool.
func (t *CourseSearch) Name() string { return "search_course_content" }

// Description implements Tool.
func (t *CourseSearch) Description() string {
	return "Search the indexed course materials for content relevant to a query. " +
		"Optionally restrict the search to one course (partial names work) or one lesson."
}

// InputSchema implements Tool.
func (t *CourseSearch) InputSchema() (*jsonschema.Schema, error) {
	return jsonschema.For[CourseSearchInput](nil)
}

// Execute implements Tool. Results come back as labeled text blocks for
// the model; the sources list records where they came from.
func (t *CourseSearch) Execute(ctx context.Context, args map[string]any) (string, []SourceLabel, error) {
	var input CourseSearchInput
	if err := decodeArgs(args, &input); err != nil {
		return "", nil, err
	}
	if strings.TrimSpace(input.Query) == "" {
		return "", nil, fmt.Errorf("query must not be empty")
	}

	opts := []index.SearchOption{index.WithTopK(t.maxResults)}

	resolvedCourse := ""
	if input.CourseName != "" {
		titles, err := t.searcher.CourseTitles(ctx)
		if err != nil {
			return "", nil, fmt.Errorf("listing courses: %w", err)
		}
		resolvedCourse, err = ResolveCourseTitle(input.CourseName, titles, t.threshold)
		if err != nil {
			return "", nil, err
		}
		opts = append(opts, index.WithCourse(resolvedCourse))
	}
	if input.LessonNumber != nil {
		opts = append(opts, index.WithLesson(*input.LessonNumber))
	}

	results, err := t.searcher.Search(ctx, input.Query, opts...)
	if err != nil {
		return "", nil, err
	}
	if len(results) == 0 {
		return emptyMessage(resolvedCourse, input.LessonNumber), nil, nil
	}

	text, sources := t.format(ctx, results)
	return text, sources, nil
}

// format renders result blocks and collects source labels, deduplicated
// in result order. Lesson links come from the course catalog.
func (t *CourseSearch) format(ctx context.Context, results []index.SearchResult) (string, []SourceLabel) {
	outlines := make(map[string]index.CourseRecord)
	lessonLink := func(courseTitle string, lesson *int) string {
		if lesson == nil {
			return ""
		}
		record, ok := outlines[courseTitle]
		if !ok {
			fetched, err := t.searcher.Outline(ctx, courseTitle)
			if err != nil {
				// A missing catalog entry only costs the link.
				t.logger.Debug("no catalog entry for source link", "course", courseTitle)
				fetched = index.CourseRecord{}
			}
			outlines[courseTitle] = fetched
			record = fetched
		}
		for _, l := range record.Lessons {
			if l.Number == *lesson {
				return l.Link
			}
		}
		return ""
	}

	var sb strings.Builder
	var sources []SourceLabel
	seen := make(map[string]bool)
	for i, res := range results {
		header := res.Chunk.CourseTitle
		if res.Chunk.LessonNumber != nil {
			header = fmt.Sprintf("%s - Lesson %d", res.Chunk.CourseTitle, *res.Chunk.LessonNumber)
		}
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%s]\n%s", header, res.Chunk.Text)

		if !seen[header] {
			seen[header] = true
			sources = append(sources, SourceLabel{
				Display: header,
				Link:    lessonLink(res.Chunk.CourseTitle, res.Chunk.LessonNumber),
			})
		}
	}
	return sb.String(), sources
}

func emptyMessage(course string, lesson *int) string {
	var scope []string
	if course != "" {
		scope = append(scope, fmt.Sprintf("in course '%s'", course))
	}
	if lesson != nil {
		scope = append(scope, fmt.Sprintf("in lesson %d", *lesson))
	}
	if len(scope) == 0 {
		return "No relevant content found."
	}
	return fmt.Sprintf("No relevant content found %s.", strings.Join(scope, " "))
}

// decodeArgs maps loosely typed JSON arguments onto a typed input struct.
func decodeArgs(args map[string]any, out any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encoding arguments: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
