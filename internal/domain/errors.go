package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig signals invalid configuration, e.g. chunk overlap >= chunk size.
	ErrConfig = errors.New("invalid configuration")
	// ErrIndexLoad signals a missing, corrupt or inconsistent persisted index.
	ErrIndexLoad = errors.New("index load failed")
	// ErrGateway signals a generation service failure (unreachable, timeout, bad response).
	ErrGateway = errors.New("generation gateway error")
	// ErrDimensionMismatch signals that query embeddings do not match the index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmptyQuestion signals a blank question.
	ErrEmptyQuestion = errors.New("question is required")
	// ErrEmptyCorpus signals that there is nothing to index.
	ErrEmptyCorpus = errors.New("empty corpus")
)

// GatewayError wraps a generation provider failure. It matches ErrGateway.
type GatewayError struct {
	Provider string
	Err      error
}

func (e *GatewayError) Error() string {
	if e.Provider == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Err.Error())
}

func (e *GatewayError) Unwrap() []error { return []error{ErrGateway, e.Err} }

// NewGatewayError wraps err as a gateway failure of the given provider.
func NewGatewayError(provider string, err error) error {
	return &GatewayError{Provider: provider, Err: err}
}

// IndexLoadError wraps a failure to read the persisted index at Path. It matches ErrIndexLoad.
type IndexLoadError struct {
	Path string
	Err  error
}

func (e *IndexLoadError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrIndexLoad.Error(), e.Path, e.Err.Error())
}

func (e *IndexLoadError) Unwrap() []error { return []error{ErrIndexLoad, e.Err} }

// NewIndexLoadError creates an index load error for path.
func NewIndexLoadError(path string, err error) error {
	return &IndexLoadError{Path: path, Err: err}
}
