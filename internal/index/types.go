package index

import (
	"errors"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/lectern-ai/lectern/internal/ingest"
)

var (
	// ErrEmptyIndex indicates a search against an index holding zero chunks.
	// Recoverable: surfaced to the model as a tool result, not fatal.
	ErrEmptyIndex = errors.New("vector index is empty")

	// ErrCourseNotFound indicates a course title that is not indexed.
	ErrCourseNotFound = errors.New("course not indexed")
)

// SearchResult is one retrieved chunk with its similarity score.
// Produced transiently per search; not persisted beyond the current turn.
type SearchResult struct {
	Chunk ingest.Chunk
	Score float32 // cosine similarity, higher is better
}

// CourseRecord is the stored course catalog entry.
type CourseRecord struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []ingest.Lesson
}

// ChunkRecord pairs a chunk with its embedding for storage.
type ChunkRecord struct {
	ingest.Chunk
	Embedding pgvector.Vector
}

// ChunkRow is one row returned by a vector search.
type ChunkRow struct {
	Chunk      ingest.Chunk
	Similarity float32
}

// SearchParams describes a filtered top-k vector search.
type SearchParams struct {
	Embedding    pgvector.Vector
	CourseTitle  string // empty disables the course filter
	LessonNumber *int   // nil disables the lesson filter
	Limit        int
}

// SearchOption configures search behavior using the functional options
// pattern.
type SearchOption func(*searchConfig)

// searchConfig holds internal search configuration.
type searchConfig struct {
	topK    int
	course  string
	lesson  *int
	timeout time.Duration
}

// WithTopK sets the maximum number of results to return. Default is 5.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
	}
}

// WithCourse restricts results to one course title (exact match; fuzzy
// resolution happens in the search tool, not here).
func WithCourse(title string) SearchOption {
	return func(c *searchConfig) {
		c.course = title
	}
}

// WithLesson restricts results to one lesson number.
func WithLesson(n int) SearchOption {
	return func(c *searchConfig) {
		lesson := n
		c.lesson = &lesson
	}
}

// withTimeout overrides the search deadline. Only used by tests.
func withTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		c.timeout = d
	}
}

// buildSearchConfig applies search options over the defaults.
func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    5,
		timeout: defaultSearchTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
