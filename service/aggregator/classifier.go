package aggregator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/arkadia-labs/approvia/model/outcome"
)

// Classification is the classifier's verdict on one raw backend result.
type Classification struct {
	Status       outcome.Status
	Success      bool
	Restrictions []string
}

// ResultClassifier interprets the implementation-defined raw payload of a
// backend call.  It must tolerate any shape - string, structured object or
// nil - and is the seam behind which the keyword heuristic is isolated so it
// can be replaced with a structured-result contract as providers mature.
type ResultClassifier interface {
	Classify(action string, raw interface{}, callErr error) Classification
}

// keyword lists driving the default classifier.
var (
	successKeywords = []string{
		"success", "successfully", "created", "updated", "deleted",
		"sent", "scheduled", "booked", "confirmed",
	}
	failureKeywords = []string{
		"error", "failed", "failure", "unable", "denied", "rejected",
		"not found", "exception", "invalid", "timeout",
	}
	restrictionKeywords = []string{
		"restriction", "not supported", "does not support", "unsupported",
		"cannot remove", "cannot modify", "read-only",
	}
)

// ConservativeClassifier is the default ResultClassifier.  Its policy is
// conservative: whenever success cannot be positively established - ambiguous
// text, mixed success and failure vocabulary, or no recognisable vocabulary
// at all - the result is classified as Failed rather than Success, to avoid
// falsely reporting a side effect that did not happen.
type ConservativeClassifier struct{}

// NewConservativeClassifier returns the default classifier.
func NewConservativeClassifier() *ConservativeClassifier {
	return &ConservativeClassifier{}
}

// Classify implements ResultClassifier.
func (c *ConservativeClassifier) Classify(_ string, raw interface{}, callErr error) Classification {
	if callErr != nil {
		return Classification{Status: outcome.StatusFailed}
	}

	// Structured payloads may carry an explicit verdict.
	if verdict, ok := structuredVerdict(raw); ok {
		return verdict
	}

	text := strings.ToLower(renderText(raw))
	restrictions := matchAll(text, restrictionKeywords)

	hasFailure := containsAny(text, failureKeywords)
	hasSuccess := containsAny(text, successKeywords)

	switch {
	case hasFailure:
		// Mixed vocabulary ("successfully updated despite restriction
		// errors") ties conservatively to Failed.
		return Classification{Status: outcome.StatusFailed, Restrictions: restrictions}
	case hasSuccess && len(restrictions) > 0:
		return Classification{Status: outcome.StatusPartialSuccess, Success: true, Restrictions: restrictions}
	case hasSuccess:
		return Classification{Status: outcome.StatusSuccess, Success: true}
	}
	// Neither success nor failure vocabulary: ambiguous, never Success.
	return Classification{Status: outcome.StatusFailed, Restrictions: restrictions}
}

// structuredVerdict inspects map-shaped payloads for an explicit success
// flag or status field.
func structuredVerdict(raw interface{}) (Classification, bool) {
	aMap, ok := raw.(map[string]interface{})
	if !ok {
		return Classification{}, false
	}
	if flag, ok := aMap["success"].(bool); ok {
		if flag {
			return Classification{Status: outcome.StatusSuccess, Success: true}, true
		}
		return Classification{Status: outcome.StatusFailed}, true
	}
	if status, ok := aMap["status"].(string); ok {
		switch strings.ToLower(status) {
		case "success", "ok", "completed":
			return Classification{Status: outcome.StatusSuccess, Success: true}, true
		case "failed", "error":
			return Classification{Status: outcome.StatusFailed}, true
		}
	}
	return Classification{}, false
}

func renderText(raw interface{}) string {
	switch actual := raw.(type) {
	case nil:
		return ""
	case string:
		return actual
	case error:
		return actual.Error()
	case fmt.Stringer:
		return actual.String()
	}
	if data, err := json.Marshal(raw); err == nil {
		return string(data)
	}
	return fmt.Sprintf("%v", raw)
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func matchAll(text string, keywords []string) []string {
	var matched []string
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			matched = append(matched, keyword)
		}
	}
	return matched
}

var _ ResultClassifier = (*ConservativeClassifier)(nil)
