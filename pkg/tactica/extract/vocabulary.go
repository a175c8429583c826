package extract

import (
	"regexp"
	"strings"
)

// bookPartRE matches part headers such as "Part 2", "Part Three" or
// "Part IV: Defending", but not drill names that merely start with "part".
var bookPartRE = regexp.MustCompile(`^part\s+(?:one|two|three|four|five|six|seven|eight|nine|ten|\d+|[ivx]+)(?:$|[\s:.\-–])`)

// Field names the DrillBlock list a sub-header routes its body into.
type Field string

const (
	FieldSetup          Field = "setup"
	FieldSequence       Field = "sequence"
	FieldCoachingPoints Field = "coaching_points"
	FieldProgressions   Field = "progressions"
	FieldRules          Field = "rules"
	FieldScoring        Field = "scoring"
	FieldEquipment      Field = "equipment"
)

// Fields lists every routable field.
var Fields = []Field{
	FieldSetup, FieldSequence, FieldCoachingPoints, FieldProgressions,
	FieldRules, FieldScoring, FieldEquipment,
}

// Valid reports whether f is a routable field.
func (f Field) Valid() bool {
	for _, v := range Fields {
		if v == f {
			return true
		}
	}
	return false
}

// Vocabulary controls header classification. Denylist entries mark book
// structure: an entry matches a header that equals it (case-insensitive,
// optional plural "s") or that continues with a subtitle after a colon or
// spaced dash. SubHeaders maps normalized sub-header text to its field.
// Numbered part headers are always structural.
type Vocabulary struct {
	Denylist   []string
	SubHeaders map[string]Field
}

// DefaultVocabulary returns the built-in vocabulary tuned to coaching books.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Denylist: []string{
			"author", "acknowledgment", "acknowledgement",
			"contents", "table of contents", "introduction", "foreword",
			"preface", "bibliography", "references", "index", "appendix",
			"glossary", "about the author",
		},
		SubHeaders: map[string]Field{
			"setup":                  FieldSetup,
			"set up":                 FieldSetup,
			"set-up":                 FieldSetup,
			"setup and organisation": FieldSetup,
			"setup and organization": FieldSetup,
			"organisation":           FieldSetup,
			"organization":           FieldSetup,
			"sequence":               FieldSequence,
			"process":                FieldSequence,
			"process and objectives": FieldSequence,
			"execution":              FieldSequence,
			"procedure":              FieldSequence,
			"objective":              FieldSequence,
			"objectives":             FieldSequence,
			"coaching points":        FieldCoachingPoints,
			"coaching point":         FieldCoachingPoints,
			"coaching tips":          FieldCoachingPoints,
			"coaching notes":         FieldCoachingPoints,
			"coaching tasks":         FieldCoachingPoints,
			"key points":             FieldCoachingPoints,
			"key point":              FieldCoachingPoints,
			"variations":             FieldProgressions,
			"variation":              FieldProgressions,
			"progressions":           FieldProgressions,
			"progression":            FieldProgressions,
			"regressions":            FieldProgressions,
			"regression":             FieldProgressions,
			"rules":                  FieldRules,
			"rule":                   FieldRules,
			"constraints":            FieldRules,
			"constraint":             FieldRules,
			"scoring":                FieldScoring,
			"points":                 FieldScoring,
			"equipment":              FieldEquipment,
			"materials":              FieldEquipment,
			"material":               FieldEquipment,
		},
	}
}

// Merge returns a copy of v extended with extra entries. Entries in extra win.
func (v Vocabulary) Merge(extra Vocabulary) Vocabulary {
	out := Vocabulary{
		Denylist:   append(append([]string{}, v.Denylist...), extra.Denylist...),
		SubHeaders: make(map[string]Field, len(v.SubHeaders)+len(extra.SubHeaders)),
	}
	for k, f := range v.SubHeaders {
		out.SubHeaders[normalizeHeader(k)] = f
	}
	for k, f := range extra.SubHeaders {
		out.SubHeaders[normalizeHeader(k)] = f
	}
	return out
}

// IsStructural reports whether header names book structure rather than a drill.
func (v Vocabulary) IsStructural(header string) bool {
	norm := normalizeHeader(header)
	if norm == "" {
		return false
	}
	if bookPartRE.MatchString(norm) {
		return true
	}
	for _, entry := range v.Denylist {
		entry = normalizeHeader(entry)
		if entry == "" || !strings.HasPrefix(norm, entry) {
			continue
		}
		rest := norm[len(entry):]
		if rest == "s" {
			rest = ""
		} else if strings.HasPrefix(rest, "s ") || strings.HasPrefix(rest, "s:") {
			rest = rest[1:]
		}
		if titleSuffix(rest) {
			return true
		}
	}
	return false
}

// titleSuffix reports whether rest is empty or starts a subtitle, as in
// "Introduction: Why Rondos" or "Appendix - Templates".
func titleSuffix(rest string) bool {
	if rest == "" {
		return true
	}
	trimmed := strings.TrimLeft(rest, " ")
	if strings.HasPrefix(trimmed, ":") {
		return true
	}
	if trimmed == rest {
		return false
	}
	return strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "– ") || strings.HasPrefix(trimmed, "— ")
}

// SubHeaderField returns the field a sub-header routes into.
func (v Vocabulary) SubHeaderField(header string) (Field, bool) {
	f, ok := v.SubHeaders[normalizeHeader(header)]
	return f, ok
}

// normalizeHeader lowercases, strips emphasis markers, a trailing colon and
// "(s)" plural suffixes, and collapses whitespace.
func normalizeHeader(s string) string {
	s = strings.ToLower(s)
	s = strings.Trim(s, " \t*_#")
	s = strings.TrimSpace(strings.TrimSuffix(s, ":"))
	s = strings.Trim(s, " \t*_")
	s = strings.TrimSpace(strings.TrimSuffix(s, ":"))
	s = strings.ReplaceAll(s, "(s)", "s")
	return strings.Join(strings.Fields(s), " ")
}
