package editparse

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes
const (
	whitespaceCode = iota
	fieldCode
	separatorCode
	valueCode
)

// Token definitions
var (
	whitespaceToken = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	fieldToken      = parsly.NewToken(fieldCode, "Field", &fieldMatcher{})
	separatorToken  = parsly.NewToken(separatorCode, "Separator", &separatorMatcher{})
	valueToken      = parsly.NewToken(valueCode, "Value", &valueMatcher{})
)

// fieldMatcher matches a field name: letters, digits and underscore.
type fieldMatcher struct{}

func (m *fieldMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	matched := 0
	for pos < size {
		c := input[pos]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			matched++
			pos++
			continue
		}
		break
	}
	return matched
}

// separatorMatcher matches the field/value separator: ':' or '='.
type separatorMatcher struct{}

func (m *separatorMatcher) Match(cursor *parsly.Cursor) int {
	if cursor.Pos >= cursor.InputSize {
		return 0
	}
	switch cursor.Input[cursor.Pos] {
	case ':', '=':
		return 1
	}
	return 0
}

// valueMatcher consumes everything up to the next assignment separator
// (';' or newline).
type valueMatcher struct{}

func (m *valueMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	matched := 0
	for pos < size {
		c := input[pos]
		if c == ';' || c == '\n' {
			break
		}
		matched++
		pos++
	}
	return matched
}
