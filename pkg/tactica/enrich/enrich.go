// Package enrich classifies drills into the tactical taxonomy by keyword
// matching over the drill's text.
package enrich

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/cognicore/tactica/pkg/tactica/internalerr"
	"github.com/cognicore/tactica/pkg/tactica/schema"
)

var numericalRE = regexp.MustCompile(`\b(\d+)\s*(?:v|vs|versus)\.?\s*(\d+)`)

type matcher struct {
	value string
	res   []*regexp.Regexp
}

func (m matcher) match(corpus string) bool {
	for _, re := range m.res {
		if re.MatchString(corpus) {
			return true
		}
	}
	return false
}

// Enricher attaches a TacticalContext to drills. It holds no mutable state
// and is safe for concurrent use.
type Enricher struct {
	taxonomy     Taxonomy
	gameElements []matcher
	situations   []matcher
	lanes        []matcher
}

// New compiles the taxonomy into an enricher.
func New(tax Taxonomy) (*Enricher, error) {
	if err := tax.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	return &Enricher{
		taxonomy:     tax,
		gameElements: compile(tax.GameElements),
		situations:   compile(tax.Situations),
		lanes:        compile(tax.Lanes),
	}, nil
}

// Default returns an enricher over DefaultTaxonomy.
func Default() *Enricher {
	e, err := New(DefaultTaxonomy())
	if err != nil {
		panic(err)
	}
	return e
}

// Taxonomy returns the tables the enricher was built from.
func (e *Enricher) Taxonomy() Taxonomy { return e.taxonomy }

// compile turns keywords into word-start patterns so "press" matches
// "pressing" but not "express".
func compile(entries []Entry) []matcher {
	out := make([]matcher, 0, len(entries))
	for _, entry := range entries {
		m := matcher{value: entry.Value}
		for _, kw := range entry.Keywords {
			kw = normalize(kw)
			if kw == "" {
				continue
			}
			m.res = append(m.res, regexp.MustCompile(`\b`+regexp.QuoteMeta(kw)))
		}
		out = append(out, m)
	}
	return out
}

// normalize lowercases, folds hyphens and underscores to spaces and
// collapses whitespace.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("-", " ", "_", " ", "–", " ", "‐", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Corpus joins every textual field of the drill into one search string.
func Corpus(d *schema.DrillBlock) string {
	parts := []string{d.Name, d.Setup.Description, d.Setup.PlayerCount, d.Setup.AreaDimensions}
	if d.VLMDescription != nil {
		parts = append(parts, *d.VLMDescription)
	}
	parts = append(parts, d.Sequence...)
	parts = append(parts, d.Rules...)
	parts = append(parts, d.Scoring...)
	parts = append(parts, d.CoachingPoints...)
	parts = append(parts, d.Progressions...)
	return normalize(strings.Join(parts, " "))
}

// Enrich classifies the drill. It returns nil when no axis matched. The
// result depends only on the drill text and the taxonomy.
func (e *Enricher) Enrich(d *schema.DrillBlock) *schema.TacticalContext {
	corpus := Corpus(d)
	if corpus == "" {
		return nil
	}

	tc := &schema.TacticalContext{Methodology: e.taxonomy.Methodology, Lanes: []schema.Lane{}}
	matched := false

	for _, m := range e.gameElements {
		if m.match(corpus) {
			g, _ := schema.ParseGameElement(m.value)
			tc.GameElement = &g
			matched = true
			break
		}
	}
	for _, m := range e.situations {
		if m.match(corpus) {
			s, _ := schema.ParseSituationType(m.value)
			tc.SituationType = &s
			matched = true
			break
		}
	}

	seen := make(map[schema.Lane]struct{})
	for _, m := range e.lanes {
		if !m.match(corpus) {
			continue
		}
		l, _ := schema.ParseLane(m.value)
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		tc.Lanes = append(tc.Lanes, l)
	}
	if len(tc.Lanes) > 0 {
		sort.Slice(tc.Lanes, func(i, j int) bool { return tc.Lanes[i].Order() < tc.Lanes[j].Order() })
		matched = true
	}

	if m := numericalRE.FindStringSubmatch(corpus); m != nil {
		na := m[1] + "v" + m[2]
		tc.NumericalAdvantage = &na
		matched = true
	}

	if !matched {
		return nil
	}
	return tc
}

// EnrichPlan attaches a context to every drill and reports quality
// warnings for incomplete plans.
func (e *Enricher) EnrichPlan(plan *schema.SessionPlan) []internalerr.Warning {
	var warnings []internalerr.Warning
	if strings.TrimSpace(plan.Metadata.Title) == "" {
		warnings = append(warnings, internalerr.Warn(internalerr.KindExtraction, "session plan has no title"))
	}
	if len(plan.Drills) == 0 {
		warnings = append(warnings, internalerr.Warn(internalerr.KindExtraction, "session plan has no drill blocks"))
	}
	for i := range plan.Drills {
		d := &plan.Drills[i]
		d.TacticalContext = e.Enrich(d)
		if len(d.CoachingPoints) == 0 {
			warnings = append(warnings, internalerr.Warn(internalerr.KindExtraction,
				"drill %q has no coaching points", d.Name))
		}
		if len(d.Sequence) == 0 {
			warnings = append(warnings, internalerr.Warn(internalerr.KindExtraction,
				"drill %q has no sequence steps", d.Name))
		}
	}
	return warnings
}
