package payload

import (
	"regexp"
	"strings"
)

var fencedJSON = regexp.MustCompile("(?is)```[ \t]*json[ \t]*\\r?\\n(.*?)```")

// fencedBlock returns the body of the first ```json fence.
func fencedBlock(text string) (string, bool) {
	match := fencedJSON.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	body := strings.TrimSpace(match[1])
	if body == "" {
		return "", false
	}
	return body, true
}

// balancedSpans returns every balanced {...} span, one per opening brace that
// closes, in order of the opening brace. Braces inside JSON string literals
// are ignored.
func balancedSpans(text string) []string {
	var spans []string
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		if end, ok := matchBrace(text, start); ok {
			spans = append(spans, text[start:end+1])
		}
	}
	return spans
}

// hasUnclosedBrace reports whether some opening brace outside a string
// literal never closes.
func hasUnclosedBrace(text string) bool {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		}
	}
	return depth > 0
}

// matchBrace finds the index of the brace closing text[start].
func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func snippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
