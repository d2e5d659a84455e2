// Package editparse turns free-text reviewer edits of the form
// "field: value; other = value" into field modifications that can be merged
// into a pending action request.  Text that does not match the assignment
// shape is reported as unparseable so that the approval loop can fall back to
// a re-prompt instead of guessing.
package editparse

import (
	"fmt"
	"strings"

	"github.com/viant/parsly"
)

// Parse parses one or more assignments separated by ';' or newlines.  It
// returns an error when the input contains no parseable assignment.
func Parse(input string) (map[string]interface{}, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, fmt.Errorf("empty edit expression")
	}
	cursor := parsly.NewCursor("", []byte(trimmed), 0)
	modifications := make(map[string]interface{})
	for {
		matched := cursor.MatchAfterOptional(whitespaceToken, fieldToken)
		if matched.Code != fieldToken.Code {
			return nil, fmt.Errorf("expected field name at position %d", cursor.Pos)
		}
		field := matched.Text(cursor)

		matched = cursor.MatchAfterOptional(whitespaceToken, separatorToken)
		if matched.Code != separatorToken.Code {
			return nil, fmt.Errorf("expected ':' or '=' after %q", field)
		}

		matched = cursor.MatchAfterOptional(whitespaceToken, valueToken)
		if matched.Code != valueToken.Code {
			return nil, fmt.Errorf("missing value for %q", field)
		}
		value := strings.TrimSpace(matched.Text(cursor))
		value = strings.Trim(value, `"'`)
		if value == "" {
			return nil, fmt.Errorf("missing value for %q", field)
		}
		modifications[field] = value

		// Consume the assignment separator, if any.
		if cursor.Pos >= cursor.InputSize {
			break
		}
		cursor.Pos++
		if isExhausted(cursor) {
			break
		}
	}
	if len(modifications) == 0 {
		return nil, fmt.Errorf("no assignments found")
	}
	return modifications, nil
}

func isExhausted(cursor *parsly.Cursor) bool {
	for i := cursor.Pos; i < cursor.InputSize; i++ {
		switch cursor.Input[i] {
		case ' ', '\t', '\r', '\n', ';':
			continue
		default:
			cursor.Pos = i
			return false
		}
	}
	return true
}
