package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	headerRE = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)
	bulletRE = regexp.MustCompile(`^(?:[-*•+]|\(?\d{1,3}[.)])\s+`)
	digitsRE = regexp.MustCompile(`^\d+$`)
)

// section is a header with the raw lines up to the next header.
type section struct {
	level  int
	header string
	body   []string
}

// splitSections scans markdown into header sections. Lines before the first
// header are returned separately as preamble.
func splitSections(markdown string) (preamble []string, sections []section) {
	markdown = strings.ReplaceAll(markdown, "\r\n", "\n")
	var cur *section
	inFence := false
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
		}
		if !inFence {
			if m := headerRE.FindStringSubmatch(trimmed); m != nil {
				header := cleanHeader(m[2])
				if header != "" {
					sections = append(sections, section{level: len(m[1]), header: header})
					cur = &sections[len(sections)-1]
					continue
				}
			}
		}
		if cur == nil {
			preamble = append(preamble, line)
			continue
		}
		cur.body = append(cur.body, line)
	}
	return preamble, sections
}

func cleanHeader(s string) string {
	s = stripHTML(s)
	return strings.TrimSpace(strings.Trim(s, "*_# \t"))
}

// stripHTML drops tags and comments (e.g. "<!-- image -->" markers emitted by
// PDF converters) and returns the remaining text with entities decoded.
func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}

// listItems converts a body into ordered, non-empty list entries with
// bullet/number prefixes, page numbers and image markers removed.
func listItems(lines []string) []string {
	var items []string
	for _, line := range lines {
		if item := cleanLine(line); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// bodyText joins cleaned lines into free text.
func bodyText(lines []string) string {
	return strings.Join(listItems(lines), "\n")
}

func cleanLine(line string) string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "<!--") {
		return ""
	}
	line = strings.TrimSpace(stripHTML(line))
	line = strings.TrimSpace(bulletRE.ReplaceAllString(line, ""))
	if line == "" || digitsRE.MatchString(line) {
		return ""
	}
	// Table separators and rules carry no text.
	if strings.Trim(line, "-|:* ") == "" {
		return ""
	}
	return line
}

// trimBlank drops leading and trailing blank lines.
func trimBlank(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}
