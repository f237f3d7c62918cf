package ingest

import (
	"errors"
	"strings"
	"testing"

	"github.com/lectern-ai/lectern/internal/log"
)

const sampleDoc = `Course Title: Intro to X
Course Link: https://example.com/intro-to-x
Course Instructor: Ada Lovelace

Lesson 0: Welcome
Lesson Link: https://example.com/intro-to-x/0
Welcome to the course. This lesson introduces the overall structure and the
tools you will need. Nothing here is graded.

Lesson 1: Fundamentals
Lesson Link: https://example.com/intro-to-x/1
The fundamentals lesson covers variables, control flow, and functions. Each
concept builds on the previous one. Practice the exercises before moving on.

Lesson 2: Advanced Topics
Advanced topics include concurrency and error handling. These are the parts
most learners find difficult at first.
`

func TestProcess(t *testing.T) {
	p := NewProcessor(200, 40, log.NewNop())

	meta, chunks, err := p.Process(sampleDoc, "intro_to_x.txt")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	t.Run("header metadata", func(t *testing.T) {
		if meta.Title != "Intro to X" {
			t.Errorf("Title = %q, want %q", meta.Title, "Intro to X")
		}
		if meta.Link != "https://example.com/intro-to-x" {
			t.Errorf("Link = %q", meta.Link)
		}
		if meta.Instructor != "Ada Lovelace" {
			t.Errorf("Instructor = %q", meta.Instructor)
		}
	})

	t.Run("lessons parsed in order", func(t *testing.T) {
		if len(meta.Lessons) != 3 {
			t.Fatalf("len(Lessons) = %d, want 3", len(meta.Lessons))
		}
		wantTitles := []string{"Welcome", "Fundamentals", "Advanced Topics"}
		for i, lesson := range meta.Lessons {
			if lesson.Number != i {
				t.Errorf("Lessons[%d].Number = %d, want %d", i, lesson.Number, i)
			}
			if lesson.Title != wantTitles[i] {
				t.Errorf("Lessons[%d].Title = %q, want %q", i, lesson.Title, wantTitles[i])
			}
		}
		if meta.Lessons[2].Link != "" {
			t.Errorf("Lessons[2].Link = %q, want empty (no link line)", meta.Lessons[2].Link)
		}
	})

	t.Run("chunk invariants", func(t *testing.T) {
		if len(chunks) == 0 {
			t.Fatal("no chunks produced")
		}
		lastIndex := map[int]int{}
		for _, c := range chunks {
			if c.CourseTitle != meta.Title {
				t.Errorf("chunk %s course = %q", c.ID, c.CourseTitle)
			}
			if c.LessonNumber == nil {
				t.Fatalf("chunk %s has nil lesson number", c.ID)
			}
			if c.Text != sampleDoc[c.Start:c.End] {
				t.Errorf("chunk %s text does not match its span", c.ID)
			}
			if prev, ok := lastIndex[*c.LessonNumber]; ok && c.ChunkIndex <= prev {
				t.Errorf("chunk index not strictly increasing in lesson %d: %d after %d",
					*c.LessonNumber, c.ChunkIndex, prev)
			}
			lastIndex[*c.LessonNumber] = c.ChunkIndex
		}
	})

	t.Run("contextual text carries provenance", func(t *testing.T) {
		got := chunks[0].ContextualText()
		if !strings.HasPrefix(got, "Course Intro to X Lesson 0: ") {
			t.Errorf("ContextualText() = %q, want provenance prefix", got)
		}
		if !strings.HasSuffix(got, chunks[0].Text) {
			t.Error("ContextualText() must end with the raw chunk text")
		}
	})

	t.Run("deterministic ids across re-ingestion", func(t *testing.T) {
		_, again, err := p.Process(sampleDoc, "intro_to_x.txt")
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if len(again) != len(chunks) {
			t.Fatalf("re-ingestion chunk count = %d, want %d", len(again), len(chunks))
		}
		for i := range chunks {
			if again[i].ID != chunks[i].ID || again[i].Text != chunks[i].Text {
				t.Errorf("chunk %d differs across identical ingestions", i)
			}
		}
	})
}

func TestProcessMalformed(t *testing.T) {
	p := NewProcessor(800, 100, log.NewNop())

	tests := []struct {
		name string
		raw  string
	}{
		{"missing title line", "Some random text\nLesson 0: Hi\nBody."},
		{"empty title", "Course Title:   \nLesson 0: Hi\nBody."},
		{"no lesson markers", "Course Title: Orphan Course\n\nJust prose, no lessons."},
		{"empty document", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := p.Process(tt.raw, "bad.txt")
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("Process() error = %v, want *ParseError", err)
			}
			if parseErr.Filename != "bad.txt" {
				t.Errorf("ParseError.Filename = %q, want bad.txt", parseErr.Filename)
			}
		})
	}
}

func TestChunkerCoverage(t *testing.T) {
	// A long synthetic lesson with sentence boundaries scattered through it.
	var b strings.Builder
	for i := 0; i < 60; i++ {
		b.WriteString("This is sentence number ")
		b.WriteString(strings.Repeat("x", i%7))
		b.WriteString(" and it keeps the text varied. ")
	}
	text := b.String()

	const size, overlap = 300, 60
	c := NewChunker(size, overlap)
	spans := c.Split(text)

	if len(spans) < 2 {
		t.Fatalf("len(spans) = %d, want several", len(spans))
	}
	if spans[0].Start != 0 {
		t.Errorf("first span starts at %d, want 0", spans[0].Start)
	}
	if spans[len(spans)-1].End != len(text) {
		t.Errorf("last span ends at %d, want %d", spans[len(spans)-1].End, len(text))
	}
	for i, s := range spans {
		if s.End <= s.Start {
			t.Fatalf("span %d is empty or inverted: %+v", i, s)
		}
		if s.End-s.Start > size {
			t.Errorf("span %d length %d exceeds chunk size %d", i, s.End-s.Start, size)
		}
		if i > 0 && s.Start > spans[i-1].End {
			t.Errorf("gap between span %d and %d: %d > %d", i-1, i, s.Start, spans[i-1].End)
		}
	}

	// Reconstruction: stitching spans back together, dropping each span's
	// overlap with its predecessor, must reproduce the input exactly.
	var rebuilt strings.Builder
	covered := 0
	for _, s := range spans {
		if s.End <= covered {
			continue
		}
		from := s.Start
		if from < covered {
			from = covered
		}
		rebuilt.WriteString(text[from:s.End])
		covered = s.End
	}
	if rebuilt.String() != text {
		t.Error("reconstructed text differs from the original")
	}
}

func TestChunkerSmallInputs(t *testing.T) {
	c := NewChunker(800, 100)

	t.Run("empty text", func(t *testing.T) {
		if spans := c.Split(""); spans != nil {
			t.Errorf("Split(\"\") = %v, want nil", spans)
		}
	})

	t.Run("whitespace only", func(t *testing.T) {
		if spans := c.Split("  \n\t "); spans != nil {
			t.Errorf("Split(whitespace) = %v, want nil", spans)
		}
	})

	t.Run("shorter than chunk size", func(t *testing.T) {
		text := "One short lesson."
		spans := c.Split(text)
		if len(spans) != 1 || spans[0].Start != 0 || spans[0].End != len(text) {
			t.Errorf("Split(short) = %v, want single full span", spans)
		}
	})
}
