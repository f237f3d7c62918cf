// Package ingest parses raw course documents into metadata and overlapping
// text chunks ready for indexing.
//
// A course document is plain text with a structured header:
//
//	Course Title: Building Toward Computer Use
//	Course Link: https://example.com/courses/computer-use
//	Course Instructor: Colt Steele
//
//	Lesson 0: Introduction
//	Lesson Link: https://example.com/lesson/0
//	<lesson text...>
//
//	Lesson 1: ...
//
// The course link and instructor lines are optional. Each "Lesson N:" marker
// starts a new lesson. Malformed headers fail with *ParseError so the caller
// can skip the file and continue startup.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// ParseError indicates a structurally malformed course document.
// It is recoverable: the caller reports the file and skips indexing it.
type ParseError struct {
	Filename string
	Reason   string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %s", e.Filename, e.Reason)
}

// Lesson describes one lesson within a course.
type Lesson struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
}

// CourseMeta is the parsed course header plus the ordered lesson list.
// Read-only after parsing.
type CourseMeta struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []Lesson
}

// Chunk is one overlapping slice of lesson text with attached provenance.
// Immutable once created; the vector index owns it after ingestion.
//
// Start and End are byte offsets into the source document, so Text is always
// exactly raw[Start:End].
type Chunk struct {
	ID           string
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   int
	Text         string
	Start        int
	End          int
}

// ContextualText returns the text that gets embedded: the chunk prefixed with
// a short provenance header so the embedding captures course and lesson even
// when the raw text alone would be ambiguous. The unprefixed span is what is
// stored and displayed.
func (c Chunk) ContextualText() string {
	if c.LessonNumber != nil {
		return fmt.Sprintf("Course %s Lesson %d: %s", c.CourseTitle, *c.LessonNumber, c.Text)
	}
	return fmt.Sprintf("Course %s: %s", c.CourseTitle, c.Text)
}

// Header line prefixes and the lesson marker grammar.
const (
	courseTitlePrefix      = "Course Title:"
	courseLinkPrefix       = "Course Link:"
	courseInstructorPrefix = "Course Instructor:"
	lessonLinkPrefix       = "Lesson Link:"
)

var lessonMarkerRe = regexp.MustCompile(`^Lesson (\d+):\s*(.*)$`)

// Processor parses course documents and chunks their lesson text.
// Safe for concurrent use: all state is immutable after construction.
type Processor struct {
	chunker *Chunker
	logger  *slog.Logger
}

// NewProcessor creates a Processor with the given chunking parameters.
// chunkSize is the target chunk size in characters, overlap the number of
// characters shared between consecutive chunks.
func NewProcessor(chunkSize, overlap int, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		chunker: NewChunker(chunkSize, overlap),
		logger:  logger,
	}
}

// Process parses a raw course document and returns its metadata together
// with the ordered chunk list. It fails with *ParseError if the course title
// line or all lesson markers are absent.
func (p *Processor) Process(raw, filename string) (CourseMeta, []Chunk, error) {
	var meta CourseMeta

	lines := splitLinesWithOffsets(raw)

	// Header: the first non-blank line must carry the course title.
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i].text) == "" {
		i++
	}
	if i >= len(lines) || !strings.HasPrefix(lines[i].text, courseTitlePrefix) {
		return meta, nil, &ParseError{Filename: filename, Reason: "missing course title line"}
	}
	meta.Title = strings.TrimSpace(strings.TrimPrefix(lines[i].text, courseTitlePrefix))
	if meta.Title == "" {
		return meta, nil, &ParseError{Filename: filename, Reason: "empty course title"}
	}
	i++

	// Optional course link and instructor lines, in any order.
	for i < len(lines) {
		text := lines[i].text
		switch {
		case strings.HasPrefix(text, courseLinkPrefix):
			meta.Link = strings.TrimSpace(strings.TrimPrefix(text, courseLinkPrefix))
			i++
		case strings.HasPrefix(text, courseInstructorPrefix):
			meta.Instructor = strings.TrimSpace(strings.TrimPrefix(text, courseInstructorPrefix))
			i++
		case strings.TrimSpace(text) == "":
			i++
		default:
			goto lessons
		}
	}

lessons:
	type lessonBody struct {
		lesson     Lesson
		start, end int // byte span of the lesson text in raw
	}
	var bodies []lessonBody

	for i < len(lines) {
		m := lessonMarkerRe.FindStringSubmatch(lines[i].text)
		if m == nil {
			// Text before the first lesson marker is ignored; text after a
			// marker belongs to the current lesson and was consumed below.
			i++
			continue
		}

		number, err := strconv.Atoi(m[1])
		if err != nil {
			return meta, nil, &ParseError{Filename: filename, Reason: fmt.Sprintf("invalid lesson number %q", m[1])}
		}
		lesson := Lesson{Number: number, Title: strings.TrimSpace(m[2])}
		i++

		if i < len(lines) && strings.HasPrefix(lines[i].text, lessonLinkPrefix) {
			lesson.Link = strings.TrimSpace(strings.TrimPrefix(lines[i].text, lessonLinkPrefix))
			i++
		}

		// Lesson text runs until the next lesson marker or end of document.
		start := len(raw)
		if i < len(lines) {
			start = lines[i].offset
		}
		for i < len(lines) && lessonMarkerRe.FindStringSubmatch(lines[i].text) == nil {
			i++
		}
		end := len(raw)
		if i < len(lines) {
			end = lines[i].offset
		}

		meta.Lessons = append(meta.Lessons, lesson)
		bodies = append(bodies, lessonBody{lesson: lesson, start: start, end: end})
	}

	if len(meta.Lessons) == 0 {
		return meta, nil, &ParseError{Filename: filename, Reason: "no lesson markers found"}
	}

	var chunks []Chunk
	for _, b := range bodies {
		spans := p.chunker.Split(raw[b.start:b.end])
		number := b.lesson.Number
		for idx, span := range spans {
			start := b.start + span.Start
			end := b.start + span.End
			chunks = append(chunks, Chunk{
				ID:           chunkID(meta.Title, number, idx),
				CourseTitle:  meta.Title,
				LessonNumber: &number,
				ChunkIndex:   idx,
				Text:         raw[start:end],
				Start:        start,
				End:          end,
			})
		}
	}

	p.logger.Debug("processed course document",
		"file", filename,
		"course", meta.Title,
		"lessons", len(meta.Lessons),
		"chunks", len(chunks))

	return meta, chunks, nil
}

// chunkID derives a deterministic chunk identifier so that re-ingesting the
// same course produces identical ids.
func chunkID(courseTitle string, lessonNumber, chunkIndex int) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%d|%d", courseTitle, lessonNumber, chunkIndex))
	return "chunk_" + hex.EncodeToString(sum[:16])
}

// offsetLine pairs a line's text with its byte offset in the source document.
type offsetLine struct {
	text   string
	offset int
}

// splitLinesWithOffsets splits raw into lines while remembering each line's
// starting byte offset, so lesson bodies can be addressed as spans of raw.
func splitLinesWithOffsets(raw string) []offsetLine {
	var lines []offsetLine
	offset := 0
	for {
		idx := strings.IndexByte(raw[offset:], '\n')
		if idx < 0 {
			if offset < len(raw) {
				lines = append(lines, offsetLine{text: raw[offset:], offset: offset})
			}
			return lines
		}
		lines = append(lines, offsetLine{text: raw[offset : offset+idx], offset: offset})
		offset += idx + 1
	}
}
