// Package config loads tactica's application settings and the YAML files
// that tune extraction and enrichment.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/tactica/pkg/tactica/enrich"
	"github.com/cognicore/tactica/pkg/tactica/extract"
)

// VocabularyFile is the on-disk form of the extraction vocabulary.
// SubHeaders maps each field to the header texts that route into it.
type VocabularyFile struct {
	Replace    bool                `yaml:"replace"`
	Denylist   []string            `yaml:"denylist"`
	SubHeaders map[string][]string `yaml:"sub_headers"`
}

// LoadVocabulary loads a vocabulary YAML file. Unless the file sets
// replace: true its entries extend the built-in vocabulary.
func LoadVocabulary(path string) (extract.Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return extract.Vocabulary{}, err
	}

	var vf VocabularyFile
	if err := yaml.Unmarshal(data, &vf); err != nil {
		return extract.Vocabulary{}, err
	}

	vocab := extract.Vocabulary{
		Denylist:   vf.Denylist,
		SubHeaders: make(map[string]extract.Field),
	}
	for field, headers := range vf.SubHeaders {
		f := extract.Field(strings.ToLower(strings.TrimSpace(field)))
		if !f.Valid() {
			return extract.Vocabulary{}, fmt.Errorf("vocabulary %s: unknown field %q", path, field)
		}
		for _, h := range headers {
			vocab.SubHeaders[h] = f
		}
	}
	if vf.Replace {
		return vocab, nil
	}
	return extract.DefaultVocabulary().Merge(vocab), nil
}

// TaxonomyFile is the on-disk form of the enrichment taxonomy.
type TaxonomyFile struct {
	Replace         bool `yaml:"replace"`
	enrich.Taxonomy `yaml:",inline"`
}

// LoadTaxonomy loads a taxonomy YAML file. Unless the file sets
// replace: true it is merged onto the built-in tables.
func LoadTaxonomy(path string) (enrich.Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return enrich.Taxonomy{}, err
	}

	var tf TaxonomyFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return enrich.Taxonomy{}, err
	}

	tax := tf.Taxonomy
	if !tf.Replace {
		tax = enrich.DefaultTaxonomy().Merge(tf.Taxonomy)
	}
	if err := tax.Validate(); err != nil {
		return enrich.Taxonomy{}, fmt.Errorf("taxonomy %s: %w", path, err)
	}
	return tax, nil
}
