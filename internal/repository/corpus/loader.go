package corpus

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	domcorpus "github.com/kailas-cloud/healthrag/internal/domain/corpus"
)

// ErrUnsupportedFormat is returned for document extensions the loader cannot read.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Loader reads document text from local files.
type Loader struct{}

// NewLoader creates a Loader.
func NewLoader() *Loader { return &Loader{} }

// Load fills doc.Text with the cleaned text of doc.Path.
// Plain text (.txt, .text, .md) is read as UTF-8; .pdf goes through text extraction.
func (l *Loader) Load(ctx context.Context, doc domcorpus.Document) (domcorpus.Document, error) {
	if err := ctx.Err(); err != nil {
		return doc, fmt.Errorf("load %s: %w", doc.Path, err)
	}

	var (
		raw string
		err error
	)
	switch strings.ToLower(filepath.Ext(doc.Path)) {
	case ".txt", ".text", ".md":
		raw, err = readText(doc.Path)
	case ".pdf":
		raw, err = readPDF(doc.Path)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(doc.Path))
	}
	if err != nil {
		return doc, fmt.Errorf("load %q (%s): %w", doc.Title, doc.Path, err)
	}

	doc.Text = domcorpus.CleanText(raw)
	return doc, nil
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	if !utf8.Valid(data) {
		return "", errors.New("file is not valid UTF-8")
	}
	return string(data), nil
}

func readPDF(path string) (string, error) {
	f, rdr, err := pdf.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	plain, err := rdr.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}
