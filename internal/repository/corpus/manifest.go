// Package corpus reads the corpus manifest and source documents from disk and
// persists the intermediate chunk set.
package corpus

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	domcorpus "github.com/kailas-cloud/healthrag/internal/domain/corpus"
)

type manifestFile struct {
	Documents []domcorpus.Document `yaml:"documents"`
}

// LoadManifest reads the YAML document list. Relative document paths are
// resolved against the manifest's directory.
func LoadManifest(path string) ([]domcorpus.Document, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read corpus manifest %s: %w", path, err)
	}

	var mf manifestFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse corpus manifest %s: %w", path, err)
	}
	if len(mf.Documents) == 0 {
		return nil, fmt.Errorf("corpus manifest %s lists no documents", path)
	}

	base := filepath.Dir(path)
	for i := range mf.Documents {
		doc := &mf.Documents[i]
		if err := doc.Validate(); err != nil {
			return nil, fmt.Errorf("corpus manifest %s, document %d: %w", path, i, err)
		}
		if !filepath.IsAbs(doc.Path) {
			doc.Path = filepath.Join(base, doc.Path)
		}
	}
	return mf.Documents, nil
}
