package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/healthrag/internal/domain/chunk"
)

// WriteChunks stores the chunk set as indented JSON, replacing path atomically.
func WriteChunks(path string, chunks []chunk.Chunk) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create chunks dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp chunks file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(chunks); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode chunks: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync chunks: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close chunks: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace chunks file: %w", err)
	}
	return nil
}

// ReadChunks loads a chunk set written by WriteChunks.
func ReadChunks(path string) ([]chunk.Chunk, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read chunks %s: %w", path, err)
	}
	var chunks []chunk.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("decode chunks %s: %w", path, err)
	}
	return chunks, nil
}
