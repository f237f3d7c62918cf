// Package model wraps Genkit generation behind the answer loop's client
// interface, adding proactive rate limiting and retry with backoff.
package model

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"golang.org/x/time/rate"

	"github.com/lectern-ai/lectern/internal/answer"
)

// Init initializes Genkit with the Google AI plugin and resolves the
// embedder. Called once at startup.
func Init(ctx context.Context, embedderModel string) (*genkit.Genkit, ai.Embedder, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))

	embedder := googlegenai.GoogleAIEmbedder(g, embedderModel)
	if embedder == nil {
		return nil, nil, fmt.Errorf("embedder %q not available", embedderModel)
	}
	return g, embedder, nil
}

// Client calls the model through Genkit. Tool requests come back to the
// caller instead of being executed inside Genkit, so the answer loop
// keeps control of execution and round limits.
type Client struct {
	genkit    *genkit.Genkit
	modelName string
	limiter   *rate.Limiter
	retry     RetryConfig
	logger    *slog.Logger
}

// NewClient creates a Client for the named model. A nil limiter gets the
// default of 10 requests/sec with a burst of 30.
func NewClient(g *genkit.Genkit, modelName string, limiter *rate.Limiter, logger *slog.Logger) *Client {
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		genkit:    g,
		modelName: modelName,
		limiter:   limiter,
		retry:     DefaultRetryConfig(),
		logger:    logger,
	}
}

// Generate implements answer.ModelClient.
func (c *Client) Generate(ctx context.Context, req *answer.ModelRequest) (*answer.ModelReply, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName(c.modelName),
		ai.WithMessages(req.Messages...),
	}
	if req.System != "" {
		opts = append(opts, ai.WithSystem(req.System))
	}
	if len(req.Tools) > 0 {
		refs := make([]ai.ToolRef, 0, len(req.Tools))
		for _, name := range req.Tools {
			tool := genkit.LookupTool(c.genkit, name)
			if tool == nil {
				return nil, fmt.Errorf("tool %q not registered with genkit", name)
			}
			refs = append(refs, tool)
		}
		opts = append(opts, ai.WithTools(refs...), ai.WithReturnToolRequests(true))
	}

	resp, err := c.generateWithRetry(ctx, opts)
	if err != nil {
		return nil, err
	}

	return &answer.ModelReply{
		Text:         resp.Text(),
		ToolRequests: resp.ToolRequests(),
	}, nil
}
