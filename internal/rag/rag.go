// Package rag ties ingestion, retrieval, sessions and the answer loop
// into one system the transports talk to.
package rag

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/lectern-ai/lectern/internal/answer"
	"github.com/lectern-ai/lectern/internal/ingest"
	"github.com/lectern-ai/lectern/internal/session"
	"github.com/lectern-ai/lectern/internal/tools"
)

// Indexer is the slice of the vector index the system needs.
type Indexer interface {
	UpsertCourse(ctx context.Context, meta ingest.CourseMeta, chunks []ingest.Chunk) error
	CourseTitles(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
}

// Answerer resolves one question against conversation history.
type Answerer interface {
	Answer(ctx context.Context, query string, history []session.Turn) (*answer.Result, error)
}

// QueryResponse is one answered question.
type QueryResponse struct {
	Answer    string              `json:"answer"`
	Sources   []tools.SourceLabel `json:"sources,omitempty"`
	SessionID string              `json:"session_id"`
}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	CoursesAdded int      `json:"courses_added"`
	ChunksAdded  int      `json:"chunks_added"`
	Skipped      []string `json:"skipped,omitempty"`
}

// Stats describes the current index contents.
type Stats struct {
	TotalCourses int      `json:"total_courses"`
	TotalChunks  int      `json:"total_chunks"`
	CourseTitles []string `json:"course_titles"`
}

// System is the facade over the whole answering pipeline.
type System struct {
	index     Indexer
	sessions  *session.Memory
	answerer  Answerer
	processor *ingest.Processor
	logger    *slog.Logger
}

// New creates a System.
func New(index Indexer, sessions *session.Memory, answerer Answerer, processor *ingest.Processor, logger *slog.Logger) *System {
	if logger == nil {
		logger = slog.Default()
	}
	return &System{
		index:     index,
		sessions:  sessions,
		answerer:  answerer,
		processor: processor,
		logger:    logger,
	}
}

// Query answers one question within a session. An empty sessionID starts
// a new session. On failure the returned response still carries the
// session id, so callers can retry in the same conversation; history is
// only updated on success.
func (s *System) Query(ctx context.Context, query, sessionID string) (*QueryResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if sessionID == "" {
		sessionID = s.sessions.NewSessionID()
	}

	history := s.sessions.History(sessionID)

	result, err := s.answerer.Answer(ctx, query, history)
	if err != nil {
		s.logger.Error("query failed", "session_id", sessionID, "error", err)
		return &QueryResponse{SessionID: sessionID}, fmt.Errorf("answering query: %w", err)
	}

	s.sessions.Append(sessionID,
		session.Turn{Role: session.RoleUser, Content: query},
		session.Turn{Role: session.RoleAssistant, Content: result.Answer},
	)

	return &QueryResponse{
		Answer:    result.Answer,
		Sources:   result.Sources,
		SessionID: sessionID,
	}, nil
}

// IngestDirectory indexes every .txt course document under dir. Already
// indexed courses are skipped unless force is set; documents that fail to
// parse are skipped with a warning rather than aborting the run.
func (s *System) IngestDirectory(ctx context.Context, dir string, force bool) (*IngestReport, error) {
	existing, err := s.index.CourseTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing indexed courses: %w", err)
	}

	report := &IngestReport{}
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".txt") {
			return nil
		}
		if err := s.ingestFile(ctx, path, existing, force, report); err != nil {
			return err
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, walkErr)
	}

	s.logger.Info("ingestion finished",
		"dir", dir,
		"courses", report.CoursesAdded,
		"chunks", report.ChunksAdded,
		"skipped", len(report.Skipped))
	return report, nil
}

func (s *System) ingestFile(ctx context.Context, path string, existing []string, force bool, report *IngestReport) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	meta, chunks, err := s.processor.Process(string(raw), filepath.Base(path))
	if err != nil {
		var parseErr *ingest.ParseError
		if errors.As(err, &parseErr) {
			s.logger.Warn("skipping unparseable document", "file", path, "reason", parseErr.Reason)
			report.Skipped = append(report.Skipped, filepath.Base(path))
			return nil
		}
		return fmt.Errorf("processing %s: %w", path, err)
	}

	if !force && slices.Contains(existing, meta.Title) {
		s.logger.Debug("course already indexed", "course", meta.Title)
		report.Skipped = append(report.Skipped, filepath.Base(path))
		return nil
	}

	if err := s.index.UpsertCourse(ctx, meta, chunks); err != nil {
		return fmt.Errorf("indexing %s: %w", meta.Title, err)
	}
	report.CoursesAdded++
	report.ChunksAdded += len(chunks)
	return nil
}

// Stats reports what the index currently holds.
func (s *System) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}
	titles, err := s.index.CourseTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	return &Stats{TotalCourses: len(titles), TotalChunks: total, CourseTitles: titles}, nil
}

// ClearSession forgets one conversation.
func (s *System) ClearSession(sessionID string) {
	s.sessions.Clear(sessionID)
}
