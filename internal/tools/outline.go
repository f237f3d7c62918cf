package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// CourseOutlineInput defines input for the get_course_outline tool.
type CourseOutlineInput struct {
	CourseTitle string `json:"course_title" jsonschema_description:"Course title to outline; partial names are resolved"`
}

// CourseOutline returns a course's metadata and full lesson list.
type CourseOutline struct {
	searcher  Searcher
	threshold float64
	logger    *slog.Logger
}

// NewCourseOutline creates the outline tool.
func NewCourseOutline(searcher Searcher, threshold float64, logger *slog.Logger) *CourseOutline {
	if logger == nil {
		logger = slog.Default()
	}
	return &CourseOutline{
		searcher:  searcher,
		threshold: threshold,
		logger:    logger,
	}
}

// Name implements Tool.
func (t *CourseOutline) Name() string { return "get_course_outline" }

// Description implements Tool.
func (t *CourseOutline) Description() string {
	return "Get a course's title, link, instructor and complete lesson list. " +
		"Use this for questions about course structure rather than course content."
}

// InputSchema implements Tool.
func (t *CourseOutline) InputSchema() (*jsonschema.Schema, error) {
	return jsonschema.For[CourseOutlineInput](nil)
}

// Execute implements Tool.
func (t *CourseOutline) Execute(ctx context.Context, args map[string]any) (string, []SourceLabel, error) {
	var input CourseOutlineInput
	if err := decodeArgs(args, &input); err != nil {
		return "", nil, err
	}

	titles, err := t.searcher.CourseTitles(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("listing courses: %w", err)
	}
	title, err := ResolveCourseTitle(input.CourseTitle, titles, t.threshold)
	if err != nil {
		return "", nil, err
	}

	course, err := t.searcher.Outline(ctx, title)
	if err != nil {
		return "", nil, fmt.Errorf("fetching outline: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Course: %s\n", course.Title)
	if course.Link != "" {
		fmt.Fprintf(&sb, "Link: %s\n", course.Link)
	}
	if course.Instructor != "" {
		fmt.Fprintf(&sb, "Instructor: %s\n", course.Instructor)
	}
	fmt.Fprintf(&sb, "Lessons (%d):\n", len(course.Lessons))
	for _, lesson := range course.Lessons {
		fmt.Fprintf(&sb, "%d. %s\n", lesson.Number, lesson.Title)
	}

	sources := []SourceLabel{{Display: course.Title, Link: course.Link}}
	return sb.String(), sources, nil
}
