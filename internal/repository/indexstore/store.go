// Package indexstore persists the (index, metadata, manifest) triple on local disk.
//
// Every build is written to its own generation directory. A CURRENT file names
// the live generation and is replaced with write-temp + rename, so readers see
// either the previous triple or the new one, never a mix.
package indexstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/healthrag/internal/domain"
	"github.com/kailas-cloud/healthrag/internal/domain/chunk"
	"github.com/kailas-cloud/healthrag/internal/index"
)

// FormatVersion is bumped whenever the on-disk layout changes.
const FormatVersion = 1

const (
	indexFile    = "index.bin"
	metaFile     = "meta.json"
	manifestFile = "manifest.json"
	currentFile  = "CURRENT"

	genPrefix     = "gen-"
	stagingPrefix = ".staging-"

	// live generation plus one previous
	keepGenerations = 2
)

// EmbedderInfo identifies the embedding space an index was built in.
type EmbedderInfo struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Manifest describes a persisted build.
type Manifest struct {
	FormatVersion int          `json:"format_version"`
	Dimension     int          `json:"dimension"`
	Count         int          `json:"count"`
	Embedder      EmbedderInfo `json:"embedder"`
	ChunkSize     int          `json:"chunk_size"`
	ChunkOverlap  int          `json:"chunk_overlap"`
	BuiltAt       time.Time    `json:"built_at"`
}

// Snapshot is a loaded, internally consistent triple.
type Snapshot struct {
	Index      *index.Flat
	Chunks     []chunk.Chunk
	Manifest   Manifest
	Generation string
}

// Store reads and writes index generations under a root directory.
type Store struct {
	dir    string
	logger *zap.Logger
}

// New creates a store rooted at dir.
func New(dir string, logger *zap.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// Dir returns the root directory.
func (s *Store) Dir() string { return s.dir }

// Save persists a new generation and makes it current. Count and Dimension in m
// are filled from idx. Returns the generation name.
func (s *Store) Save(ctx context.Context, idx *index.Flat, chunks []chunk.Chunk, m Manifest) (string, error) {
	if idx.Len() != len(chunks) {
		return "", fmt.Errorf("save index: %d vectors but %d chunks", idx.Len(), len(chunks))
	}
	m.FormatVersion = FormatVersion
	m.Dimension = idx.Dim()
	m.Count = idx.Len()
	if m.BuiltAt.IsZero() {
		m.BuiltAt = time.Now().UTC()
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", fmt.Errorf("create index dir: %w", err)
	}

	staging, err := os.MkdirTemp(s.dir, stagingPrefix)
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(staging)
		}
	}()

	if err := writeFileSync(filepath.Join(staging, indexFile), func(f *os.File) error {
		_, err := idx.WriteTo(f)
		return err //nolint:wrapcheck // wrapped by writeFileSync
	}); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(staging, metaFile), chunks); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(staging, manifestFile), m); err != nil {
		return "", err
	}
	if err := syncDir(staging); err != nil {
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("save index: %w", err)
	}

	gen, err := s.nextGeneration()
	if err != nil {
		return "", err
	}
	if err := os.Rename(staging, filepath.Join(s.dir, gen)); err != nil {
		return "", fmt.Errorf("publish generation %s: %w", gen, err)
	}
	committed = true

	if err := s.swapCurrent(gen); err != nil {
		return "", err
	}

	s.logger.Info("Index generation committed",
		zap.String("dir", s.dir),
		zap.String("generation", gen),
		zap.Int("count", m.Count),
		zap.Int("dimension", m.Dimension),
	)

	s.prune(gen)
	return gen, nil
}

// Load reads the current generation and checks that its parts agree.
// Every failure is a *domain.IndexLoadError.
func (s *Store) Load(_ context.Context) (*Snapshot, error) {
	gen, err := s.Current()
	if err != nil {
		return nil, domain.NewIndexLoadError(s.dir, err)
	}
	genDir := filepath.Join(s.dir, gen)

	var m Manifest
	if err := readJSON(filepath.Join(genDir, manifestFile), &m); err != nil {
		return nil, domain.NewIndexLoadError(genDir, err)
	}
	if m.FormatVersion != FormatVersion {
		return nil, domain.NewIndexLoadError(genDir,
			fmt.Errorf("unsupported format version %d (want %d)", m.FormatVersion, FormatVersion))
	}

	f, err := os.Open(filepath.Join(genDir, indexFile)) //nolint:gosec // path built from our own dir
	if err != nil {
		return nil, domain.NewIndexLoadError(genDir, err)
	}
	idx, err := index.ReadFlat(f)
	_ = f.Close()
	if err != nil {
		return nil, domain.NewIndexLoadError(genDir, err)
	}

	var chunks []chunk.Chunk
	if err := readJSON(filepath.Join(genDir, metaFile), &chunks); err != nil {
		return nil, domain.NewIndexLoadError(genDir, err)
	}

	switch {
	case idx.Len() != len(chunks):
		return nil, domain.NewIndexLoadError(genDir,
			fmt.Errorf("index has %d vectors but metadata has %d records", idx.Len(), len(chunks)))
	case idx.Len() != m.Count:
		return nil, domain.NewIndexLoadError(genDir,
			fmt.Errorf("index has %d vectors but manifest declares %d", idx.Len(), m.Count))
	case idx.Dim() != m.Dimension:
		return nil, domain.NewIndexLoadError(genDir,
			fmt.Errorf("%w: index dimension %d, manifest declares %d",
				domain.ErrDimensionMismatch, idx.Dim(), m.Dimension))
	}

	return &Snapshot{Index: idx, Chunks: chunks, Manifest: m, Generation: gen}, nil
}

// Current returns the live generation name.
func (s *Store) Current() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, currentFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("no index built yet (run the build command): %w", err)
		}
		return "", fmt.Errorf("read current pointer: %w", err)
	}
	gen := strings.TrimSpace(string(data))
	if !strings.HasPrefix(gen, genPrefix) || strings.ContainsAny(gen, `/\`) {
		return "", fmt.Errorf("invalid current pointer %q", gen)
	}
	return gen, nil
}

func (s *Store) swapCurrent(gen string) error {
	tmp := filepath.Join(s.dir, currentFile+".tmp")
	if err := writeFileSync(tmp, func(f *os.File) error {
		_, err := f.WriteString(gen + "\n")
		return err //nolint:wrapcheck // wrapped by writeFileSync
	}); err != nil {
		return err
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, currentFile)); err != nil {
		return fmt.Errorf("swap current pointer: %w", err)
	}
	return syncDir(s.dir)
}

func (s *Store) nextGeneration() (string, error) {
	gens, err := s.generations()
	if err != nil {
		return "", err
	}
	next := 1
	if len(gens) > 0 {
		next = gens[len(gens)-1] + 1
	}
	return fmt.Sprintf("%s%06d", genPrefix, next), nil
}

// generations returns existing generation numbers in ascending order.
func (s *Store) generations() ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list index dir: %w", err)
	}
	var gens []int
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), genPrefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(e.Name(), genPrefix))
		if err != nil {
			continue
		}
		gens = append(gens, n)
	}
	sort.Ints(gens)
	return gens, nil
}

// prune removes generations older than the retention window and leftover staging dirs.
// Failures are logged only; the new generation is already live.
func (s *Store) prune(current string) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("Failed to list index dir for pruning", zap.Error(err))
		return
	}
	gens, err := s.generations()
	if err != nil {
		s.logger.Warn("Failed to list generations for pruning", zap.Error(err))
		return
	}

	keep := map[string]bool{current: true}
	for i := len(gens) - 1; i >= 0 && len(keep) < keepGenerations; i-- {
		keep[fmt.Sprintf("%s%06d", genPrefix, gens[i])] = true
	}

	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || keep[name] {
			continue
		}
		if !strings.HasPrefix(name, genPrefix) && !strings.HasPrefix(name, stagingPrefix) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.dir, name)); err != nil {
			s.logger.Warn("Failed to prune index generation", zap.String("name", name), zap.Error(err))
			continue
		}
		s.logger.Debug("Pruned index generation", zap.String("name", name))
	}
}

func writeJSON(path string, v any) error {
	return writeFileSync(path, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(v) //nolint:wrapcheck // wrapped by writeFileSync
	})
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path) //nolint:gosec // path built from our own dir
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeFileSync creates path, runs write, then fsyncs and closes the file.
func writeFileSync(path string, write func(f *os.File) error) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640) //nolint:gosec // path built from our own dir
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir) //nolint:gosec // path built from our own dir
	if err != nil {
		return fmt.Errorf("open dir for sync: %w", err)
	}
	defer func() { _ = d.Close() }()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync dir: %w", err)
	}
	return nil
}
