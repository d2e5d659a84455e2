// Package router classifies an in-flight conversation into a routing
// decision: execute an action, ask for human approval first, or end the turn.
// Classification is two-tier: a probabilistic classifier (typically an LLM
// call) is the primary, with a mandatory deterministic keyword fallback so
// that total unavailability of the classification backend degrades to a safe
// default instead of an error.
package router

import (
	"context"
	"strings"
	"time"

	"github.com/arkadia-labs/approvia/policy"
)

// NextAction is the closed set of routing verdicts.
type NextAction int

const (
	// End finishes the turn without any side-effecting action.
	End NextAction = iota
	// Execute dispatches the resolved action without human approval.
	Execute
	// AskApproval routes the resolved action through the approval loop.
	AskApproval
)

// String returns the verdict name.
func (a NextAction) String() string {
	switch a {
	case Execute:
		return "execute"
	case AskApproval:
		return "askApproval"
	default:
		return "end"
	}
}

// Decision is the routing outcome for one conversation tail.
type Decision struct {
	NextAction NextAction `json:"nextAction"`
	ActionName string     `json:"actionName,omitempty"`
	Confidence float64    `json:"confidence,omitempty"`
}

// Result is what a Classifier produces: the structured decision when the
// backend managed to produce one, plus the literal response text which the
// deterministic fallback inspects when the structured decision is missing.
type Result struct {
	Decision *Decision
	Raw      string
}

// Classifier is the probabilistic classification collaborator (an LLM call
// behind the scenes).  It is consumed as a black box: given conversation
// text, produce a routing result or fail.
type Classifier interface {
	Classify(ctx context.Context, conversationTail []string) (*Result, error)
}

// DefaultTimeout bounds a single classification call.
const DefaultTimeout = 30 * time.Second

// approvalKeywords drive the deterministic fallback.  Their presence in the
// classifier's literal response (or, failing that, the conversation tail)
// routes to the approval loop.
var approvalKeywords = []string{
	"booking approval",
	"requires booking",
	"requires approval",
	"needs approval",
	"approval required",
}

// Service routes conversations.
type Service struct {
	classifier Classifier
	timeout    time.Duration
}

// Option customises the router.
type Option func(*Service)

// WithTimeout overrides the classification call timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// New creates a router backed by the supplied classifier.  A nil classifier
// is allowed - routing then relies on the keyword fallback alone.
func New(classifier Classifier, options ...Option) *Service {
	ret := &Service{classifier: classifier, timeout: DefaultTimeout}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Route classifies the conversation tail.  The classifier is consulted first;
// when it fails, times out, or returns no structured decision, the keyword
// fallback inspects the literal response text before defaulting to End.  An
// embedded policy (see package policy) may downgrade AskApproval to Execute
// (auto mode) or to End (deny / blocked action).
func (s *Service) Route(ctx context.Context, conversationTail []string) (*Decision, error) {
	decision := s.classify(ctx, conversationTail)
	return s.applyPolicy(ctx, decision), nil
}

func (s *Service) classify(ctx context.Context, conversationTail []string) *Decision {
	var raw string
	if s.classifier != nil {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		result, err := s.classifier.Classify(callCtx, conversationTail)
		if err == nil && result != nil && result.Decision != nil {
			return result.Decision
		}
		if result != nil {
			raw = result.Raw
		}
	}
	// Deterministic fallback: keyword matching on the literal response text,
	// then on the conversation itself.
	if fallback := matchKeywords(raw); fallback != nil {
		return fallback
	}
	if fallback := matchKeywords(strings.Join(conversationTail, "\n")); fallback != nil {
		return fallback
	}
	return &Decision{NextAction: End}
}

func (s *Service) applyPolicy(ctx context.Context, decision *Decision) *Decision {
	if decision.NextAction != AskApproval {
		return decision
	}
	p := policy.FromContext(ctx)
	if p == nil {
		return decision
	}
	if !p.IsAllowed(decision.ActionName) || p.Mode == policy.ModeDeny {
		return &Decision{NextAction: End, ActionName: decision.ActionName, Confidence: decision.Confidence}
	}
	if !p.RequiresApproval(decision.ActionName) {
		return &Decision{NextAction: Execute, ActionName: decision.ActionName, Confidence: decision.Confidence}
	}
	return decision
}

func matchKeywords(text string) *Decision {
	if text == "" {
		return nil
	}
	normalized := strings.ToLower(text)
	for _, keyword := range approvalKeywords {
		if strings.Contains(normalized, keyword) {
			return &Decision{NextAction: AskApproval, Confidence: 0.5}
		}
	}
	return nil
}
