package extract

import (
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cognicore/tactica/pkg/tactica/schema"
)

var (
	inlineCategoryRE = regexp.MustCompile(`(?i)Category\s*:\s*(.+?)\s+Difficulty\s*:\s*(\w+)`)
	categoryRE       = regexp.MustCompile(`(?im)^\**(?:Category|Topic|Theme)\**\s*:\**\s*(.+?)\s*$`)
	difficultyRE     = regexp.MustCompile(`(?im)^\**(?:Difficulty|Level)\**\s*:\**\s*(\w+)`)
	authorRE         = regexp.MustCompile(`(?im)^\**(?:Author|Coach|Created\s+by)\**\s*:\**\s*(.+?)\s*$`)
	outcomeRE        = regexp.MustCompile(`(?im)^\**(?:Desired\s+Outcome|Learning\s+Objective|Session\s+Objective|Aim)\**\s*:\**\s*(.+?)\s*$`)
	boldNameRE       = regexp.MustCompile(`\*\*(.+?)\*\*|^([A-Z][a-z]+\s+[A-Z][a-z]+)`)
	metaLineRE       = regexp.MustCompile(`^[A-Za-z][A-Za-z ]{1,30}:\s*\S`)
)

const (
	maxCategoryLen   = 60
	maxDifficultyLen = 30
	maxAuthorLen     = 100
	maxOutcomeLen    = 200
)

var titleCaser = cases.Title(language.English)

// ExtractMetadata derives session metadata from the markdown. The title
// falls back to the filename stem when the document has no headers.
func ExtractMetadata(markdown, filename string) schema.Metadata {
	_, sections := splitSections(markdown)

	md := schema.Metadata{Title: documentTitle(sections)}
	if md.Title == "" {
		md.Title = titleFromFilename(filename)
	}

	if m := inlineCategoryRE.FindStringSubmatch(markdown); m != nil {
		md.Category = capField(strings.TrimSpace(m[1]), maxCategoryLen)
		md.Difficulty = strings.TrimSpace(m[2])
	}
	if md.Category == "" {
		md.Category = matchField(categoryRE, markdown, maxCategoryLen)
	}
	if md.Difficulty == "" {
		md.Difficulty = matchField(difficultyRE, markdown, maxDifficultyLen)
	}

	md.Author = matchField(authorRE, markdown, maxAuthorLen)
	if md.Author == "" {
		md.Author = authorFromSection(sections)
	}
	md.DesiredOutcome = matchField(outcomeRE, markdown, maxOutcomeLen)
	return md
}

// documentTitle returns the first level-1 header, else the first header.
func documentTitle(sections []section) string {
	for _, sec := range sections {
		if sec.level == 1 {
			return sec.header
		}
	}
	if len(sections) > 0 {
		return sections[0].header
	}
	return ""
}

func titleFromFilename(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	stem = strings.NewReplacer("_", " ", "-", " ").Replace(stem)
	stem = strings.Join(strings.Fields(stem), " ")
	if stem == "" || stem == "." {
		return "Untitled Session"
	}
	return titleCaser.String(stem)
}

// authorFromSection reads the first name out of an AUTHORS section, as
// found in book-format material.
func authorFromSection(sections []section) string {
	for _, sec := range sections {
		h := strings.ToLower(sec.header)
		if h != "author" && h != "authors" {
			continue
		}
		text := strings.TrimSpace(strings.Join(trimBlank(sec.body), "\n"))
		if text == "" {
			return ""
		}
		if m := boldNameRE.FindStringSubmatch(text); m != nil {
			if m[1] != "" {
				return strings.TrimSpace(m[1])
			}
			return strings.TrimSpace(m[2])
		}
		first, _, _ := strings.Cut(text, ".")
		if first = strings.TrimSpace(first); len(first) < maxAuthorLen {
			return first
		}
		return ""
	}
	return ""
}

func matchField(re *regexp.Regexp, text string, max int) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return capField(strings.Trim(strings.TrimSpace(m[1]), "*"), max)
}

// capField truncates at the first sentence break within max, else at max.
func capField(v string, max int) string {
	if len(v) <= max {
		return v
	}
	for _, sep := range []string{". ", "\n", ",  "} {
		if idx := strings.Index(v, sep); idx > 0 && idx <= max {
			return v[:idx]
		}
	}
	return strings.TrimSpace(truncateRunes(v, max))
}

func truncateRunes(s string, max int) string {
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// metadataOnly reports whether the lines hold at least one "Key: value" pair
// and nothing else.
func metadataOnly(lines []string) bool {
	found := false
	for _, line := range lines {
		line = cleanLine(line)
		if line == "" {
			continue
		}
		if !metaLineRE.MatchString(strings.Trim(line, "*")) {
			return false
		}
		found = true
	}
	return found
}
