package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/healthrag/internal/domain/grounding"
)

const maxTopK = 20

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the health question to answer from the trusted corpus"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of passages to retrieve (default 3, max 20)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer       string         `json:"answer"`
	Sources      []SourceOutput `json:"sources"`
	OutOfContext bool           `json:"out_of_context"`
}

// SourceOutput is one cited passage.
type SourceOutput struct {
	Title   string `json:"doc_title"`
	URL     string `json:"doc_url,omitempty"`
	Year    *int   `json:"doc_year"`
	ChunkID int    `json:"chunk_id"`
	Text    string `json:"text"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: ToolName,
		Description: "Answer a health question strictly from a curated corpus of trusted health documents. " +
			"Returns the answer with inline citations and the source passages, or a refusal " +
			"when the corpus does not cover the question.",
	}, s.handleAsk)
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, AskOutput{}, fmt.Errorf("question is required")
	}
	if input.TopK < 0 || input.TopK > maxTopK {
		return nil, AskOutput{}, fmt.Errorf("top_k must be between 1 and %d", maxTopK)
	}

	res, err := s.answers.Answer(ctx, input.Question, input.TopK)
	if err != nil {
		return nil, AskOutput{}, fmt.Errorf("answer: %w", err)
	}

	out := AskOutput{
		Answer:       res.Answer,
		Sources:      make([]SourceOutput, len(res.Sources)),
		OutOfContext: res.OutOfContext,
	}
	for i, c := range res.Sources {
		out.Sources[i] = SourceOutput{
			Title:   c.DocTitle,
			URL:     c.DocURL,
			Year:    c.DocYear,
			ChunkID: c.ID,
			Text:    c.Text,
		}
	}

	s.logger.Debug("MCP ask served",
		zap.String("outcome", string(res.Outcome)),
		zap.Int("sources", len(out.Sources)),
		zap.Bool("refusal", grounding.IsRefusal(res.Answer)),
	)
	return nil, out, nil
}
