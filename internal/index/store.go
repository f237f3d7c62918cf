// Package index stores course chunks with their embeddings in PostgreSQL +
// pgvector and answers filtered top-k semantic queries. It is a thin adapter:
// embedding happens through a genkit ai.Embedder, persistence through the
// Querier interface.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"

	"github.com/lectern-ai/lectern/internal/ingest"
)

// defaultSearchTimeout bounds a single vector search (embedding + query) so
// a slow backend cannot stall the tool-use loop.
const defaultSearchTimeout = 10 * time.Second

// Querier defines the database operations the Store needs.
// The interface is defined by the consumer, not the provider, so the Store
// depends on an abstraction and tests can use an in-memory fake.
type Querier interface {
	// ReplaceCourse atomically removes all prior chunks of the course and
	// inserts the given ones, updating the catalog entry. Readers must never
	// observe a half-replaced course.
	ReplaceCourse(ctx context.Context, course CourseRecord, chunks []ChunkRecord) error

	// SearchChunks performs a filtered vector search, ordered by descending
	// similarity with ascending chunk_index as the deterministic tie-break.
	SearchChunks(ctx context.Context, p SearchParams) ([]ChunkRow, error)

	// CountChunks counts all stored chunks.
	CountChunks(ctx context.Context) (int64, error)

	// ListCourseTitles lists all catalog titles in lexical order.
	ListCourseTitles(ctx context.Context) ([]string, error)

	// GetCourse fetches one catalog entry; ErrCourseNotFound when absent.
	GetCourse(ctx context.Context, title string) (CourseRecord, error)
}

// Store manages course chunks with vector search capabilities.
//
// Store is safe for concurrent use. Writes go through ReplaceCourse, which
// the Querier implementation serializes; reads may run concurrently with a
// replacement and see either the old or the new course, never a mix.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a Store.
func New(querier Querier, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// UpsertCourse indexes a course's chunks, fully replacing any chunks the
// course had before. Re-ingesting the same document is therefore idempotent.
// The embedded text is each chunk's contextual form (with the course/lesson
// prefix); the stored content is the raw span.
func (s *Store) UpsertCourse(ctx context.Context, meta ingest.CourseMeta, chunks []ingest.Chunk) error {
	if meta.Title == "" {
		return fmt.Errorf("course title must not be empty")
	}

	embeddings, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embedding %q: %w", meta.Title, err)
	}

	records := make([]ChunkRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = ChunkRecord{Chunk: chunk, Embedding: embeddings[i]}
	}

	course := CourseRecord{
		Title:      meta.Title,
		Link:       meta.Link,
		Instructor: meta.Instructor,
		Lessons:    meta.Lessons,
	}
	if err := s.queries.ReplaceCourse(ctx, course, records); err != nil {
		return fmt.Errorf("replacing course %q: %w", meta.Title, err)
	}

	s.logger.Debug("indexed course", "course", meta.Title, "chunks", len(chunks))
	return nil
}

// Search performs a semantic search and returns up to topK results, best
// match first. It fails with ErrEmptyIndex when no chunks are indexed at
// all; an empty result from a populated index is a successful search.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]SearchResult, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	total, err := s.queries.CountChunks(queryCtx)
	if err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}
	if total == 0 {
		return nil, ErrEmptyIndex
	}

	embedding, err := s.embedText(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding query timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.queries.SearchChunks(queryCtx, SearchParams{
		Embedding:    embedding,
		CourseTitle:  cfg.course,
		LessonNumber: cfg.lesson,
		Limit:        cfg.topK,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]SearchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, SearchResult{Chunk: row.Chunk, Score: row.Similarity})
	}
	return results, nil
}

// Count returns the total number of indexed chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	total, err := s.queries.CountChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return int(total), nil
}

// CourseTitles returns all indexed course titles in lexical order.
func (s *Store) CourseTitles(ctx context.Context) ([]string, error) {
	titles, err := s.queries.ListCourseTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing course titles: %w", err)
	}
	return titles, nil
}

// Outline returns the catalog entry for a course, including its lesson list.
// Fails with ErrCourseNotFound for unknown titles.
func (s *Store) Outline(ctx context.Context, title string) (CourseRecord, error) {
	course, err := s.queries.GetCourse(ctx, title)
	if err != nil {
		return CourseRecord{}, fmt.Errorf("fetching course %q: %w", title, err)
	}
	return course, nil
}

// embedChunks embeds all chunk texts in a single request, preserving order.
func (s *Store) embedChunks(ctx context.Context, chunks []ingest.Chunk) ([]pgvector.Vector, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	input := make([]*ai.Document, len(chunks))
	for i, chunk := range chunks {
		input[i] = ai.DocumentFromText(chunk.ContextualText(), nil)
	}

	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{Input: input})
	if err != nil {
		return nil, fmt.Errorf("embed failed: %w", err)
	}
	if len(resp.Embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d embeddings for %d chunks", len(resp.Embeddings), len(chunks))
	}

	vectors := make([]pgvector.Vector, len(chunks))
	for i, emb := range resp.Embeddings {
		if len(emb.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding for chunk %q", chunks[i].ID)
		}
		vectors[i] = pgvector.NewVector(emb.Embedding)
	}
	return vectors, nil
}

// embedText embeds a single query string.
func (s *Store) embedText(ctx context.Context, text string) (pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(text, nil)},
	})
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("embed failed: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, fmt.Errorf("empty embedding returned")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}
