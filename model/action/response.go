package action

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ResponseKind is a closed enumeration of human response variants.  Dispatch
// on it with an exhaustive switch; there is deliberately no string-keyed
// fallthrough.
type ResponseKind int

const (
	// KindFeedback is free text that is neither an approval, a rejection nor
	// a parseable edit.  The orchestrator re-prompts on it.
	KindFeedback ResponseKind = iota
	// KindApprove approves the pending request as presented.
	KindApprove
	// KindReject cancels the pending request.
	KindReject
	// KindEdit carries field modifications to merge into the request.
	KindEdit
)

// String returns the wire name of the kind.
func (k ResponseKind) String() string {
	switch k {
	case KindApprove:
		return "accept"
	case KindReject:
		return "reject"
	case KindEdit:
		return "edit"
	default:
		return "response"
	}
}

// Response is the validated form of a human reply to an approval prompt.
type Response struct {
	Kind          ResponseKind
	Modifications map[string]interface{}
	Text          string
}

// ValidationError describes malformed human input.  It is recovered locally
// by re-prompting and is never surfaced as a crash.
type ValidationError struct {
	Reason string
}

// Error implements error.
func (e *ValidationError) Error() string { return e.Reason }

// NewValidationError creates a validation error with the supplied reason.
func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

// envelope mirrors the structured wire shape {type, args}.
type envelope struct {
	Type string                 `json:"type"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// ParseResponse interprets an untrusted human reply.  Accepted shapes:
//   - a bare string ("accept", "reject", or free text)
//   - a non-empty list, in which case the first element is used
//   - a map / JSON object {type: accept|reject|edit|response, args?}
//
// Anything else yields a *ValidationError.
func ParseResponse(raw interface{}) (*Response, error) {
	switch actual := raw.(type) {
	case nil:
		return nil, NewValidationError("empty response")
	case string:
		return parseText(actual), nil
	case []interface{}:
		if len(actual) == 0 {
			return nil, NewValidationError("empty response list")
		}
		return ParseResponse(actual[0])
	case []string:
		if len(actual) == 0 {
			return nil, NewValidationError("empty response list")
		}
		return parseText(actual[0]), nil
	case map[string]interface{}:
		return parseEnvelope(actual)
	case json.RawMessage:
		return parseJSON(actual)
	case []byte:
		return parseJSON(actual)
	case *Response:
		return actual, nil
	case Response:
		return &actual, nil
	}
	return nil, NewValidationError(fmt.Sprintf("unsupported response type %T", raw))
}

func parseJSON(data []byte) (*Response, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, NewValidationError("empty response")
	}
	var value interface{}
	if err := json.Unmarshal([]byte(trimmed), &value); err != nil {
		// Not JSON at all - treat the payload as free text.
		return parseText(trimmed), nil
	}
	return ParseResponse(value)
}

func parseEnvelope(value map[string]interface{}) (*Response, error) {
	kindValue, ok := value["type"]
	if !ok {
		return nil, NewValidationError("response object is missing 'type'")
	}
	kindText, ok := kindValue.(string)
	if !ok {
		return nil, NewValidationError(fmt.Sprintf("response 'type' must be a string, got %T", kindValue))
	}
	args, _ := value["args"].(map[string]interface{})
	switch strings.ToLower(strings.TrimSpace(kindText)) {
	case "accept", "approve", "yes":
		return &Response{Kind: KindApprove}, nil
	case "reject", "cancel", "no":
		text, _ := value["text"].(string)
		return &Response{Kind: KindReject, Text: text}, nil
	case "edit":
		if len(args) == 0 {
			return nil, NewValidationError("edit response carries no modifications")
		}
		return &Response{Kind: KindEdit, Modifications: args}, nil
	case "response":
		text, _ := value["text"].(string)
		if text == "" {
			if raw, ok := args["text"].(string); ok {
				text = raw
			}
		}
		return &Response{Kind: KindFeedback, Text: text}, nil
	}
	return nil, NewValidationError(fmt.Sprintf("unknown response type %q", kindText))
}

func parseText(text string) *Response {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "accept", "approve", "approved", "yes", "ok", "lgtm":
		return &Response{Kind: KindApprove}
	case "reject", "rejected", "cancel", "no":
		return &Response{Kind: KindReject}
	}
	return &Response{Kind: KindFeedback, Text: text}
}
