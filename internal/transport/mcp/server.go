// Package mcp exposes the query pipeline as a Model Context Protocol tool.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	domanswer "github.com/kailas-cloud/healthrag/internal/domain/answer"
	"github.com/kailas-cloud/healthrag/internal/version"
)

// ToolName is the name of the question answering tool.
const ToolName = "ask_health_question"

// Answerer runs the query pipeline.
type Answerer interface {
	Answer(ctx context.Context, query string, topK int) (domanswer.Result, error)
}

// Server is the MCP server for healthrag.
type Server struct {
	answers Answerer
	server  *mcp.Server
	logger  *zap.Logger
}

// NewServer creates an MCP server with the ask tool registered.
func NewServer(answers Answerer, logger *zap.Logger) (*Server, error) {
	if answers == nil {
		return nil, errors.New("answerer is required")
	}

	impl := &mcp.Implementation{
		Name:    "healthrag",
		Version: version.Version,
	}

	s := &Server{
		answers: answers,
		server:  mcp.NewServer(impl, nil),
		logger:  logger,
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio until ctx is canceled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
