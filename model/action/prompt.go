package action

import (
	"strings"
)

// Prompt types understood by the hosting workflow engine.
const (
	PromptTypeApproval = "approval"
)

// Prompt headers.
const (
	HeaderPleaseReview        = "Please Review"
	HeaderUpdatedPleaseReview = "Updated — Please Review"
)

// DefaultInstructions is the baseline instruction text attached to a fresh
// approval prompt.
const DefaultInstructions = "Reply 'accept' to approve, 'reject' to cancel, or send field edits (e.g. title: Piano Session)."

// Capabilities advertises what the reviewer may do with a prompt.
type Capabilities struct {
	CanAccept  bool `json:"canAccept"`
	CanEdit    bool `json:"canEdit"`
	CanRespond bool `json:"canRespond"`
	CanReject  bool `json:"canReject"`
}

// FullCapabilities returns the default capability set for approval prompts.
func FullCapabilities() Capabilities {
	return Capabilities{CanAccept: true, CanEdit: true, CanRespond: true, CanReject: true}
}

// Prompt is the structured payload presented to the human reviewer.  A fresh
// prompt is rendered on every iteration of the approval loop and is immutable
// once sent.
type Prompt struct {
	Type         string            `json:"type"`
	Message      string            `json:"message"`
	Details      map[string]string `json:"details,omitempty"`
	Instructions string            `json:"instructions,omitempty"`
	Capabilities Capabilities      `json:"capabilities"`
}

// NewPrompt renders the supplied request into an approval prompt.  The header
// becomes the prompt message; extra lines (validation errors, field diffs)
// are appended to the message body.
func NewPrompt(request *Request, header string, extra ...string) *Prompt {
	if header == "" {
		header = HeaderPleaseReview
	}
	message := header
	if len(extra) > 0 {
		body := strings.TrimSpace(strings.Join(extra, "\n"))
		if body != "" {
			message = header + "\n" + body
		}
	}
	details := make(map[string]string)
	for _, field := range request.Fields() {
		details[field.Name] = field.Value
	}
	return &Prompt{
		Type:         PromptTypeApproval,
		Message:      message,
		Details:      details,
		Instructions: DefaultInstructions,
		Capabilities: FullCapabilities(),
	}
}

// WithInstructions returns a copy of the prompt with replaced instruction
// text.  The original prompt is left untouched.
func (p *Prompt) WithInstructions(instructions string) *Prompt {
	clone := *p
	clone.Instructions = instructions
	return &clone
}
