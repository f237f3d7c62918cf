package config

import "fmt"

// Validate checks all configuration values and fails fast with a sentinel
// error describing the first invalid field.
func (c *Config) Validate() error {
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name must not be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model must not be empty", ErrInvalidEmbedderModel)
	}

	if c.ChunkSize < 100 || c.ChunkSize > 10_000 {
		return fmt.Errorf("%w: chunk_size %d not in [100, 10000]", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d must be in [0, chunk_size)", ErrInvalidChunking, c.ChunkOverlap)
	}

	if c.MaxSearchResults < 1 || c.MaxSearchResults > 50 {
		return fmt.Errorf("%w: max_search_results %d not in [1, 50]", ErrInvalidSearchResults, c.MaxSearchResults)
	}
	if c.MaxHistoryTurns < 1 || c.MaxHistoryTurns > 100 {
		return fmt.Errorf("%w: max_history_turns %d not in [1, 100]", ErrInvalidHistoryTurns, c.MaxHistoryTurns)
	}
	if c.MaxToolRounds < 1 || c.MaxToolRounds > 10 {
		return fmt.Errorf("%w: max_tool_rounds %d not in [1, 10]", ErrInvalidToolRounds, c.MaxToolRounds)
	}
	if c.CourseMatchThreshold < 0 || c.CourseMatchThreshold > 1 {
		return fmt.Errorf("%w: course_match_threshold %v not in [0, 1]", ErrInvalidMatchThreshold, c.CourseMatchThreshold)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: postgres_host must not be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: postgres_port %d not in [1, 65535]", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: postgres_db_name must not be empty", ErrInvalidPostgresDBName)
	}

	return nil
}
