package config

import (
	"fmt"

	"github.com/cognicore/tactica/pkg/tactica/enrich"
	"github.com/cognicore/tactica/pkg/tactica/extract"
)

// Loader loads the tuning files and constructs components
type Loader struct {
	VocabularyPath string
	TaxonomyPath   string
}

// Components holds the configured extraction and enrichment stages
type Components struct {
	Extractor *extract.Extractor
	Enricher  *enrich.Enricher
}

// Load reads the configured files; empty paths select the built-ins.
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}

	vocab := extract.DefaultVocabulary()
	if l.VocabularyPath != "" {
		v, err := LoadVocabulary(l.VocabularyPath)
		if err != nil {
			return nil, fmt.Errorf("load vocabulary: %w", err)
		}
		vocab = v
	}
	comp.Extractor = extract.NewExtractor(vocab)

	tax := enrich.DefaultTaxonomy()
	if l.TaxonomyPath != "" {
		t, err := LoadTaxonomy(l.TaxonomyPath)
		if err != nil {
			return nil, fmt.Errorf("load taxonomy: %w", err)
		}
		tax = t
	}
	enricher, err := enrich.New(tax)
	if err != nil {
		return nil, err
	}
	comp.Enricher = enricher

	return comp, nil
}
