// Package chunk splits cleaned document text into overlapping fixed-size word windows.
//
// Boundaries depend only on word count and overlap; sentences and paragraphs
// are not respected.
package chunk

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/healthrag/internal/domain"
	"github.com/kailas-cloud/healthrag/internal/domain/corpus"
)

const (
	// DefaultSize is the default window size in words.
	DefaultSize = 300
	// DefaultOverlap is the default number of words shared by consecutive windows.
	DefaultOverlap = 50
)

// Chunk is the unit of retrieval: a word window plus the provenance used for citations.
// ID is a sequence number within its source document, not globally unique.
type Chunk struct {
	DocTitle string `json:"doc_title"`
	DocURL   string `json:"doc_url"`
	DocYear  *int   `json:"doc_year"`
	ID       int    `json:"chunk_id"`
	Text     string `json:"text"`
}

// Validate checks window parameters. overlap must be strictly less than size
// so that every step advances.
func Validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrConfig, size)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", domain.ErrConfig, overlap)
	}
	if overlap >= size {
		return fmt.Errorf("%w: chunk overlap (%d) must be less than chunk size (%d)",
			domain.ErrConfig, overlap, size)
	}
	return nil
}

// Window splits text on whitespace and returns windows of size words, each
// starting size-overlap words after the previous one. The last window may be shorter.
func Window(text string, size, overlap int) ([]string, error) {
	if err := Validate(size, overlap); err != nil {
		return nil, err
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	step := size - overlap
	out := make([]string, 0, (len(words)+step-1)/step)
	for start := 0; start < len(words); start += step {
		end := min(start+size, len(words))
		out = append(out, strings.Join(words[start:end], " "))
	}
	return out, nil
}

// Split windows doc.Text and tags every window with the document provenance.
func Split(doc corpus.Document, size, overlap int) ([]Chunk, error) {
	windows, err := Window(doc.Text, size, overlap)
	if err != nil {
		return nil, err
	}

	chunks := make([]Chunk, len(windows))
	for i, w := range windows {
		chunks[i] = Chunk{
			DocTitle: doc.Title,
			DocURL:   doc.URL,
			DocYear:  doc.Year,
			ID:       i,
			Text:     w,
		}
	}
	return chunks, nil
}
