package action

import (
	"fmt"
	"sort"
	"strings"
)

// Request represents a candidate side-effecting operation (create, update or
// delete a calendar event, send an email) awaiting human approval.  It is
// created by the intent router, mutated by the approval orchestrator on every
// edit and consumed read-only by the executor layer.
type Request struct {
	Name        string   `json:"name"`
	Title       string   `json:"title,omitempty"`
	Start       string   `json:"start,omitempty"`
	End         string   `json:"end,omitempty"`
	Location    string   `json:"location,omitempty"`
	Description string   `json:"description,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`

	// Args carries transport-specific raw arguments supplied by the router.
	Args map[string]interface{} `json:"args,omitempty"`

	// RequiresTargetID is set for update/delete operations that must resolve
	// an existing entity before they may be dispatched.
	RequiresTargetID bool `json:"requiresTargetId,omitempty"`

	// ActionsToUse optionally lists sub-actions executed in sequence for this
	// request (e.g. create event then add attendees).  When empty the primary
	// Name is the only action.
	ActionsToUse []string `json:"actionsToUse,omitempty"`
}

// targetIDKeys lists argument keys accepted as a target entity identifier.
var targetIDKeys = []string{"eventId", "targetId", "id"}

// TargetID resolves the target entity identifier from the request arguments.
// It returns an empty string when none is present.
func (r *Request) TargetID() string {
	if r == nil || len(r.Args) == 0 {
		return ""
	}
	for _, key := range targetIDKeys {
		if v, ok := r.Args[key]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}

// Validate verifies the request is dispatchable.  A request that requires a
// target identifier without a resolvable one is rejected before any executor
// is invoked.
func (r *Request) Validate() error {
	if r == nil {
		return NewValidationError("request is nil")
	}
	if r.Name == "" {
		return NewValidationError("action name is empty")
	}
	if r.RequiresTargetID && r.TargetID() == "" {
		return NewValidationError(fmt.Sprintf("action %s requires a target identifier, none was resolved", r.Name))
	}
	return nil
}

// Actions returns the ordered sub-action list, falling back to the primary
// action name when no explicit list was supplied.
func (r *Request) Actions() []string {
	if len(r.ActionsToUse) > 0 {
		return r.ActionsToUse
	}
	return []string{r.Name}
}

// Merge applies human-supplied modifications with shallow overwrite by field
// name.  Well-known fields update the typed attributes, everything else lands
// in Args.  Re-applying the same modification leaves the request unchanged.
func (r *Request) Merge(modifications map[string]interface{}) {
	if r == nil || len(modifications) == 0 {
		return
	}
	for name, value := range modifications {
		text := coerceString(value)
		switch strings.ToLower(name) {
		case "title":
			r.Title = text
		case "start":
			r.Start = text
		case "end":
			r.End = text
		case "location":
			r.Location = text
		case "description":
			r.Description = text
		case "attendees":
			r.Attendees = toStringSlice(value)
		default:
			if r.Args == nil {
				r.Args = make(map[string]interface{})
			}
			r.Args[name] = value
		}
	}
}

// Field is a single rendered attribute of a request.
type Field struct {
	Name  string
	Value string
}

// Fields renders the request as a flat, deterministically ordered field list
// used to build approval prompts.
func (r *Request) Fields() []Field {
	if r == nil {
		return nil
	}
	fields := []Field{{Name: "action", Value: r.Name}}
	add := func(name, value string) {
		if value != "" {
			fields = append(fields, Field{Name: name, Value: value})
		}
	}
	add("title", r.Title)
	add("start", r.Start)
	add("end", r.End)
	add("location", r.Location)
	add("description", r.Description)
	if len(r.Attendees) > 0 {
		add("attendees", strings.Join(r.Attendees, ", "))
	}
	if len(r.Args) > 0 {
		keys := make([]string, 0, len(r.Args))
		for k := range r.Args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			add(k, fmt.Sprintf("%v", r.Args[k]))
		}
	}
	return fields
}

// Clone returns a deep copy so that the orchestrator can mutate a working
// copy without touching the persisted continuation.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Attendees != nil {
		clone.Attendees = append([]string(nil), r.Attendees...)
	}
	if r.ActionsToUse != nil {
		clone.ActionsToUse = append([]string(nil), r.ActionsToUse...)
	}
	if r.Args != nil {
		clone.Args = make(map[string]interface{}, len(r.Args))
		for k, v := range r.Args {
			clone.Args[k] = v
		}
	}
	return &clone
}

// coerceString renders a modification value for a typed string attribute.  A
// structured payload may carry non-string values (numbers, booleans), which
// must not silently clear the field.
func coerceString(value interface{}) string {
	switch actual := value.(type) {
	case nil:
		return ""
	case string:
		return actual
	default:
		return fmt.Sprintf("%v", actual)
	}
}

func toStringSlice(value interface{}) []string {
	switch actual := value.(type) {
	case []string:
		return append([]string(nil), actual...)
	case []interface{}:
		out := make([]string, 0, len(actual))
		for _, item := range actual {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	case string:
		if strings.TrimSpace(actual) == "" {
			return nil
		}
		parts := strings.Split(actual, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	return nil
}
