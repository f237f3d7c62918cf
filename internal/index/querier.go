package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lectern-ai/lectern/internal/ingest"
)

// PGQuerier implements Querier over a pgx connection pool.
type PGQuerier struct {
	pool *pgxpool.Pool
}

// NewPGQuerier creates a PGQuerier.
func NewPGQuerier(pool *pgxpool.Pool) *PGQuerier {
	return &PGQuerier{pool: pool}
}

// ReplaceCourse swaps out the course's chunks and catalog entry in one
// transaction, so concurrent readers see the old course or the new one.
func (q *PGQuerier) ReplaceCourse(ctx context.Context, course CourseRecord, chunks []ChunkRecord) error {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lessons, err := json.Marshal(course.Lessons)
	if err != nil {
		return fmt.Errorf("encoding lessons: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO courses (title, link, instructor, lessons)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (title) DO UPDATE
		SET link = EXCLUDED.link,
		    instructor = EXCLUDED.instructor,
		    lessons = EXCLUDED.lessons,
		    updated_at = now()`,
		course.Title, course.Link, course.Instructor, lessons)
	if err != nil {
		return fmt.Errorf("upserting course: %w", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM course_chunks WHERE course_title = $1`, course.Title)
	if err != nil {
		return fmt.Errorf("deleting stale chunks: %w", err)
	}

	for _, chunk := range chunks {
		_, err = tx.Exec(ctx, `
			INSERT INTO course_chunks
				(id, course_title, lesson_number, chunk_index, content, start_offset, end_offset, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			chunk.ID, chunk.CourseTitle, chunk.LessonNumber, chunk.ChunkIndex,
			chunk.Text, chunk.Start, chunk.End, chunk.Embedding)
		if err != nil {
			return fmt.Errorf("inserting chunk %q: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// SearchChunks runs the filtered nearest-neighbor query. Similarity is
// cosine similarity; ties break on ascending chunk_index so result order
// is stable across runs.
func (q *PGQuerier) SearchChunks(ctx context.Context, p SearchParams) ([]ChunkRow, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT id, course_title, lesson_number, chunk_index, content,
		       start_offset, end_offset,
		       1 - (embedding <=> $1) AS similarity
		FROM course_chunks
		WHERE ($2 = '' OR course_title = $2)
		  AND ($3::int IS NULL OR lesson_number = $3)
		ORDER BY embedding <=> $1 ASC, chunk_index ASC
		LIMIT $4`,
		p.Embedding, p.CourseTitle, p.LessonNumber, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var results []ChunkRow
	for rows.Next() {
		var row ChunkRow
		var chunk ingest.Chunk
		err := rows.Scan(&chunk.ID, &chunk.CourseTitle, &chunk.LessonNumber,
			&chunk.ChunkIndex, &chunk.Text, &chunk.Start, &chunk.End, &row.Similarity)
		if err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		row.Chunk = chunk
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading chunk rows: %w", err)
	}
	return results, nil
}

// CountChunks counts all indexed chunks.
func (q *PGQuerier) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := q.pool.QueryRow(ctx, `SELECT count(*) FROM course_chunks`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

// ListCourseTitles lists catalog titles in lexical order.
func (q *PGQuerier) ListCourseTitles(ctx context.Context) ([]string, error) {
	rows, err := q.pool.Query(ctx, `SELECT title FROM courses ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("query titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading titles: %w", err)
	}
	return titles, nil
}

// GetCourse fetches a catalog entry by exact title.
func (q *PGQuerier) GetCourse(ctx context.Context, title string) (CourseRecord, error) {
	var course CourseRecord
	var lessons []byte
	err := q.pool.QueryRow(ctx, `
		SELECT title, link, instructor, lessons
		FROM courses
		WHERE title = $1`, title).
		Scan(&course.Title, &course.Link, &course.Instructor, &lessons)
	if errors.Is(err, pgx.ErrNoRows) {
		return CourseRecord{}, ErrCourseNotFound
	}
	if err != nil {
		return CourseRecord{}, fmt.Errorf("query course: %w", err)
	}
	if len(lessons) > 0 {
		if err := json.Unmarshal(lessons, &course.Lessons); err != nil {
			return CourseRecord{}, fmt.Errorf("decoding lessons: %w", err)
		}
	}
	return course, nil
}
