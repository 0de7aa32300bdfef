package apply

import (
	"regexp"
	"strings"
)

var (
	createTriggerRe = regexp.MustCompile(`(?i)^CREATE\s+(TEMP\s+|TEMPORARY\s+)?TRIGGER\b`)
	triggerEndRe    = regexp.MustCompile(`(?i)\bEND\s*$`)
)

// splitStatements splits a SQLite script on semicolons that are outside string
// literals, quoted identifiers and comments. Trigger bodies are kept whole up to
// their closing END. Comments are dropped.
func splitStatements(content string) []string {
	var (
		statements []string
		current    strings.Builder
	)

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for i := 0; i < len(content); i++ {
		ch := content[i]
		switch {
		case ch == '-' && i+1 < len(content) && content[i+1] == '-':
			for i < len(content) && content[i] != '\n' {
				i++
			}
			current.WriteByte('\n')
		case ch == '/' && i+1 < len(content) && content[i+1] == '*':
			end := strings.Index(content[i+2:], "*/")
			if end < 0 {
				i = len(content)
			} else {
				i += end + 3
			}
			current.WriteByte(' ')
		case ch == '\'' || ch == '"' || ch == '`' || ch == '[':
			closing := ch
			if ch == '[' {
				closing = ']'
			}
			j := quotedEnd(content, i, closing)
			current.WriteString(content[i:j])
			i = j - 1
		case ch == ';':
			stmt := strings.TrimSpace(current.String())
			if createTriggerRe.MatchString(stmt) && !triggerEndRe.MatchString(stmt) {
				current.WriteByte(ch)
				continue
			}
			flush()
		default:
			current.WriteByte(ch)
		}
	}
	flush()
	return statements
}

// quotedEnd returns the index just past the literal opened at start. A doubled
// closing quote is an escaped quote inside the literal.
func quotedEnd(s string, start int, closing byte) int {
	for i := start + 1; i < len(s); i++ {
		if s[i] != closing {
			continue
		}
		if closing != ']' && i+1 < len(s) && s[i+1] == closing {
			i++
			continue
		}
		return i + 1
	}
	return len(s)
}
