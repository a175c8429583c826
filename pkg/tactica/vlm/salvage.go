package vlm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	thinkBlockRE    = regexp.MustCompile(`(?s)<think>.*?</think>`)
	trailingCommaRE = regexp.MustCompile(`,\s*([}\]])`)
)

// ErrNoJSON is returned when no JSON object can be recovered from a reply.
var ErrNoJSON = errors.New("vlm: no JSON object in response")

// DecodeJSON recovers a JSON object from model output that may include
// reasoning blocks, code fences or surrounding prose, and decodes it into
// target.
func DecodeJSON(text string, target any) error {
	cleaned := stripThink(text)
	if cleaned == "" {
		return ErrNoJSON
	}
	if json.Unmarshal([]byte(cleaned), target) == nil {
		return nil
	}
	if inner := stripFence(cleaned); inner != cleaned {
		if json.Unmarshal([]byte(inner), target) == nil {
			return nil
		}
	}
	candidate := outermostObject(cleaned)
	if candidate == "" {
		return ErrNoJSON
	}
	if json.Unmarshal([]byte(candidate), target) == nil {
		return nil
	}
	fixed := trailingCommaRE.ReplaceAllString(candidate, "$1")
	if err := json.Unmarshal([]byte(fixed), target); err != nil {
		return errors.Join(ErrNoJSON, err)
	}
	return nil
}

// stripThink removes <think> blocks. An unclosed block is cut up to the
// first brace after it, or to the end when no JSON follows.
func stripThink(text string) string {
	cleaned := thinkBlockRE.ReplaceAllString(text, "")
	if start := strings.Index(cleaned, "<think>"); start >= 0 {
		if brace := strings.Index(cleaned[start:], "{"); brace >= 0 {
			cleaned = cleaned[:start] + cleaned[start+brace:]
		} else {
			cleaned = cleaned[:start]
		}
	}
	return strings.TrimSpace(cleaned)
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	var inner []string
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "```" {
			break
		}
		inner = append(inner, line)
	}
	return strings.TrimSpace(strings.Join(inner, "\n"))
}

// outermostObject returns the first balanced {...} span, ignoring braces
// inside strings.
func outermostObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
