package corpus

import (
	"fmt"
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Document is one cleaned source document of the trusted corpus.
type Document struct {
	Title string `yaml:"title" json:"title"`
	URL   string `yaml:"url" json:"url"`
	Year  *int   `yaml:"year,omitempty" json:"year,omitempty"`
	Path  string `yaml:"path" json:"path"`
	Text  string `yaml:"-" json:"-"`
}

// Validate checks the descriptor fields required for citation.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("document title is required")
	}
	if strings.TrimSpace(d.Path) == "" {
		return fmt.Errorf("document %q: path is required", d.Title)
	}
	return nil
}

// CleanText collapses all whitespace runs into single spaces and trims the result.
func CleanText(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}
