package extract

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/cognicore/tactica/pkg/tactica/internalerr"
	"github.com/cognicore/tactica/pkg/tactica/schema"
)

var (
	playerCountRE = regexp.MustCompile(`(?i)(\d+\s*(?:v|vs)\s*\d+[^.\n]*|\d+\s+(?:field\s+)?players?[^.\n]*|(?:goalkeeper|GK)\s+plus\s+\d+[^.\n]*)`)
	areaRE        = regexp.MustCompile(`(?i)(\d+\s*x\s*\d+\s*(?:meters?|metres?|yards?|yds|m)\b[^.\n]*)`)
	inlineSubRE   = regexp.MustCompile(`^\**([A-Za-z][A-Za-z ()\-]{1,40}?)\s*:\**\s*(.*)$`)
)

// Result is the output of a single extraction.
type Result struct {
	Drills   []schema.DrillBlock
	Warnings []internalerr.Warning
}

// Extractor turns decomposed markdown into drill records. It never fails:
// malformed input yields fewer drills plus warnings.
type Extractor struct {
	vocab Vocabulary
}

// NewExtractor creates an extractor with the given vocabulary.
func NewExtractor(vocab Vocabulary) *Extractor {
	if vocab.SubHeaders == nil && vocab.Denylist == nil {
		vocab = DefaultVocabulary()
	}
	return &Extractor{vocab: Vocabulary{}.Merge(vocab)}
}

// Vocabulary returns the active vocabulary.
func (e *Extractor) Vocabulary() Vocabulary { return e.vocab }

const fieldExtra Field = "_extra"

// drillGroup accumulates the lines belonging to one drill header.
type drillGroup struct {
	name   string
	level  int
	body   []string
	fields map[Field][]string
	extra  []string
	target Field
}

func newGroup(name string, level int) *drillGroup {
	return &drillGroup{name: name, level: level, fields: make(map[Field][]string)}
}

func (g *drillGroup) add(line string) {
	switch g.target {
	case "":
		g.body = append(g.body, line)
	case fieldExtra:
		g.extra = append(g.extra, line)
	default:
		g.fields[g.target] = append(g.fields[g.target], line)
	}
}

// route switches the group to a sub-header. Repeated sub-headers keep
// appending to the same list in encounter order.
func (g *drillGroup) route(f Field) {
	g.target = f
	if _, ok := g.fields[f]; !ok {
		g.fields[f] = nil
	}
}

func (g *drillGroup) addLines(lines []string, vocab Vocabulary) {
	for _, line := range trimBlank(lines) {
		if m := inlineSubRE.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			if f, ok := vocab.SubHeaderField(m[1]); ok {
				g.route(f)
				if rest := strings.TrimSpace(strings.Trim(m[2], "*")); rest != "" {
					g.add(rest)
				}
				continue
			}
		}
		g.add(line)
	}
}

// Extract parses markdown into drills in document order.
func (e *Extractor) Extract(markdown string) Result {
	_, sections := splitSections(markdown)

	// Level-1 headers are document or part titles whenever deeper headers
	// exist; otherwise they are the only candidates for drills.
	titleLevel := 0
	for _, sec := range sections {
		if sec.level > 1 {
			titleLevel = 1
			break
		}
	}
	title := documentTitle(sections)

	var (
		groups   []*drillGroup
		cur      *drillGroup
		orphans  int
		warnings []internalerr.Warning
	)
	for _, sec := range sections {
		if sec.level <= titleLevel || e.vocab.IsStructural(sec.header) {
			cur = nil
			continue
		}
		if f, ok := e.vocab.SubHeaderField(sec.header); ok {
			if cur == nil {
				orphans++
				continue
			}
			cur.route(f)
			cur.addLines(sec.body, e.vocab)
			continue
		}
		if cur != nil && sec.level > cur.level {
			cur.target = fieldExtra
			cur.add(sec.header)
			cur.addLines(sec.body, e.vocab)
			continue
		}
		if !hasLetter(sec.header) {
			continue
		}
		cur = newGroup(sec.header, sec.level)
		cur.addLines(sec.body, e.vocab)
		groups = append(groups, cur)
	}

	groups = dropTitleCard(groups, title, titleLevel == 1 && hasLevel(sections, 1))

	drills := make([]schema.DrillBlock, 0, len(groups))
	for _, g := range groups {
		drills = append(drills, g.build())
	}

	if orphans > 0 {
		warnings = append(warnings, internalerr.Warn(internalerr.KindExtraction,
			"%d sub-section(s) appeared before any drill header and were discarded", orphans))
	}
	if len(drills) == 0 {
		warnings = append(warnings, internalerr.Warn(internalerr.KindExtraction,
			"no drill headers recognized"))
	}
	return Result{Drills: drills, Warnings: warnings}
}

// dropTitleCard removes a leading group that only repeats the document
// title. With an explicit level-1 title the names must match; otherwise the
// first header is the title and is dropped when it carries nothing but
// metadata lines and real drills follow it.
func dropTitleCard(groups []*drillGroup, title string, explicitTitle bool) []*drillGroup {
	if len(groups) < 2 {
		return groups
	}
	first := groups[0]
	if len(first.fields) > 0 || len(first.extra) > 0 {
		return groups
	}
	if explicitTitle {
		if isTitleCard(first.name, title) {
			return groups[1:]
		}
		return groups
	}
	if first.name == title && metadataOnly(first.body) {
		return groups[1:]
	}
	return groups
}

func isTitleCard(name, title string) bool {
	a := strings.TrimRight(strings.ToLower(strings.TrimSpace(name)), ":;., ")
	b := strings.TrimRight(strings.ToLower(strings.TrimSpace(title)), ":;., ")
	if a == "" || b == "" {
		return false
	}
	if a == b || strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	return len(a) > 30 && len(b) > 30 && a[:30] == b[:30]
}

func hasLevel(sections []section, level int) bool {
	for _, sec := range sections {
		if sec.level == level {
			return true
		}
	}
	return false
}

func (g *drillGroup) build() schema.DrillBlock {
	setupLines := g.body
	if lines, ok := g.fields[FieldSetup]; ok {
		setupLines = append(append([]string{}, g.body...), lines...)
	}
	setupLines = append(setupLines, g.extra...)
	setupRaw := strings.Join(setupLines, "\n")

	d := schema.DrillBlock{
		Name: g.name,
		Setup: schema.DrillSetup{
			Description: bodyText(setupLines),
			Equipment:   listItems(g.fields[FieldEquipment]),
		},
		Sequence:       listItems(g.fields[FieldSequence]),
		Rules:          listItems(g.fields[FieldRules]),
		Scoring:        listItems(g.fields[FieldScoring]),
		CoachingPoints: listItems(g.fields[FieldCoachingPoints]),
		Progressions:   listItems(g.fields[FieldProgressions]),
	}
	if m := playerCountRE.FindString(setupRaw); m != "" {
		d.Setup.PlayerCount = strings.TrimSpace(m)
	}
	if m := areaRE.FindString(setupRaw); m != "" {
		d.Setup.AreaDimensions = strings.TrimSpace(m)
	}
	d.Normalize()
	return d
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// ExtractPlan builds an unenriched session plan: metadata, drills in
// document order and the source descriptor.
func (e *Extractor) ExtractPlan(markdown, filename string, pageCount int) (schema.SessionPlan, []internalerr.Warning) {
	res := e.Extract(markdown)
	plan := schema.SessionPlan{
		Metadata: ExtractMetadata(markdown, filename),
		Drills:   res.Drills,
		Source: schema.Source{
			Filename:    filename,
			PageCount:   pageCount,
			ExtractedAt: time.Now().UTC(),
		},
	}
	plan.Normalize()
	return plan, res.Warnings
}
