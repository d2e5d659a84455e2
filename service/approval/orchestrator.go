package approval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/arkadia-labs/approvia/internal/clock"
	"github.com/arkadia-labs/approvia/model/action"
	"github.com/arkadia-labs/approvia/service/approval/editparse"
	"github.com/arkadia-labs/approvia/service/dao"
	"github.com/arkadia-labs/approvia/service/dao/store"
	"github.com/arkadia-labs/approvia/service/messaging"
	qmem "github.com/arkadia-labs/approvia/service/messaging/memory"
)

// CancellationNotice is the fixed message returned when the reviewer rejects
// a request.
const CancellationNotice = "Request cancelled - no action was performed."

// DefaultMaxAttempts bounds the re-prompt loop.  Once exceeded the request is
// auto-rejected so that a misbehaving reviewer (or integration) can never
// spin the loop forever.
const DefaultMaxAttempts = 10

var (
	// ErrApprovalOutstanding is returned by Begin when the session already
	// has a suspended approval loop.  Starting a second loop against the same
	// conversation session is a caller error.
	ErrApprovalOutstanding = errors.New("approval: request already outstanding for session")

	// ErrNoPendingApproval is returned by Resume when no suspended loop
	// exists for the session.
	ErrNoPendingApproval = errors.New("approval: no pending request for session")
)

// Service is the approval orchestrator.  It has two entry points instead of
// a single blocking call: Begin renders the first prompt and suspends, Resume
// delivers one human response and either re-suspends or terminates.  All
// state lives in the continuation DAO, so the process may restart between the
// two calls.
type Service struct {
	continuations dao.Service[string, Continuation]
	events        messaging.Queue[Event]
	maxAttempts   int
	now           clock.Clock
}

// Option customises the orchestrator.
type Option func(*Service)

// WithContinuationDAO overrides the continuation store (e.g. with the
// afs-backed filesystem store for durability across restarts).
func WithContinuationDAO(service dao.Service[string, Continuation]) Option {
	return func(s *Service) { s.continuations = service }
}

// WithQueue overrides the approval event queue.
func WithQueue(queue messaging.Queue[Event]) Option {
	return func(s *Service) { s.events = queue }
}

// WithMaxAttempts overrides the bounded retry count.
func WithMaxAttempts(max int) Option {
	return func(s *Service) {
		if max > 0 {
			s.maxAttempts = max
		}
	}
}

// WithClock injects the time source.
func WithClock(now clock.Clock) Option {
	return func(s *Service) { s.now = now }
}

func continuationKey(c *Continuation) string { return c.SessionID }

// New creates an approval orchestrator with in-memory continuation storage
// and event queue unless overridden by options.
func New(options ...Option) *Service {
	ret := &Service{
		maxAttempts: DefaultMaxAttempts,
		now:         clock.System(),
	}
	for _, option := range options {
		option(ret)
	}
	if ret.continuations == nil {
		ret.continuations = store.NewMemoryStore[string, Continuation](continuationKey)
	}
	if ret.events == nil {
		ret.events = qmem.NewQueue[Event](qmem.DefaultConfig())
	}
	return ret
}

// Queue exposes the approval event stream.
func (s *Service) Queue() messaging.Queue[Event] { return s.events }

// Begin starts (or restarts) the approval loop for a session: it renders the
// initial prompt from the supplied request, persists the continuation and
// suspends.  Begin fails with ErrApprovalOutstanding when a suspended loop
// already exists for the session.
func (s *Service) Begin(ctx context.Context, sessionID string, request *action.Request) (*action.Prompt, error) {
	if sessionID == "" {
		return nil, dao.ErrInvalidID
	}
	if request == nil || request.Name == "" {
		return nil, action.NewValidationError("action request is empty")
	}
	existing, err := s.continuations.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.State == StateAwaitingHuman {
		return nil, ErrApprovalOutstanding
	}

	now := s.now()
	prompt := action.NewPrompt(request, action.HeaderPleaseReview)
	continuation := &Continuation{
		SessionID: sessionID,
		Request:   request.Clone(),
		Prompt:    prompt,
		State:     StateAwaitingHuman,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = s.continuations.Save(ctx, continuation); err != nil {
		return nil, err
	}
	_ = s.events.Publish(ctx, &Event{Topic: TopicRequestCreated, Data: continuation})
	return prompt, nil
}

// Resume delivers exactly one human response to the suspended loop for the
// session.  Malformed input never escapes as an error: it is converted into a
// re-prompt until the bounded retry count is exhausted, at which point the
// request is auto-rejected with a diagnostic reason.
func (s *Service) Resume(ctx context.Context, sessionID string, raw interface{}) (*Outcome, error) {
	if sessionID == "" {
		return nil, dao.ErrInvalidID
	}
	continuation, err := s.continuations.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if continuation == nil {
		return nil, ErrNoPendingApproval
	}
	if continuation.State != StateAwaitingHuman {
		return nil, fmt.Errorf("approval for session %s already decided: %s", sessionID, continuation.State)
	}

	response, err := action.ParseResponse(raw)
	if err != nil {
		var invalid *action.ValidationError
		if errors.As(err, &invalid) {
			return s.reprompt(ctx, continuation, invalid.Reason)
		}
		return nil, err
	}

	switch response.Kind {
	case action.KindApprove:
		return s.decide(ctx, continuation, true, "")
	case action.KindReject:
		// A structured rejection may carry an explicit reason; a bare one
		// falls back to the fixed cancellation notice.
		reason := response.Text
		if reason == "" {
			reason = CancellationNotice
		}
		return s.decide(ctx, continuation, false, reason)
	case action.KindEdit:
		return s.edit(ctx, continuation, response.Modifications)
	case action.KindFeedback:
		// Free text may still be a parseable edit expression; anything else
		// triggers a validation re-prompt.
		if modifications, parseErr := editparse.Parse(response.Text); parseErr == nil {
			return s.edit(ctx, continuation, modifications)
		}
		return s.reprompt(ctx, continuation, fmt.Sprintf("could not interpret response %q", truncate(response.Text, 80)))
	}
	return nil, action.NewValidationError(fmt.Sprintf("unsupported response kind %v", response.Kind))
}

// Pending returns all continuations still awaiting a human decision.
func (s *Service) Pending(ctx context.Context) ([]*Continuation, error) {
	all, err := s.continuations.List(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]*Continuation, 0, len(all))
	for _, c := range all {
		if c.State == StateAwaitingHuman {
			pending = append(pending, c)
		}
	}
	return pending, nil
}

// Lookup returns the continuation for a session, or nil when absent.
func (s *Service) Lookup(ctx context.Context, sessionID string) (*Continuation, error) {
	return s.continuations.Load(ctx, sessionID)
}

// Expire terminates a suspended loop as rejected with the supplied reason.
// Used by the AutoExpire helper when a continuation passed its deadline.
func (s *Service) Expire(ctx context.Context, sessionID string, reason string) (*Outcome, error) {
	continuation, err := s.continuations.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if continuation == nil {
		return nil, ErrNoPendingApproval
	}
	if continuation.State != StateAwaitingHuman {
		return nil, fmt.Errorf("approval for session %s already decided: %s", sessionID, continuation.State)
	}
	return s.decide(ctx, continuation, false, reason)
}

// Discard removes the continuation once the hosting engine has consumed the
// terminal outcome.
func (s *Service) Discard(ctx context.Context, sessionID string) error {
	return s.continuations.Delete(ctx, sessionID)
}

func (s *Service) decide(ctx context.Context, continuation *Continuation, approved bool, reason string) (*Outcome, error) {
	now := s.now()
	if approved {
		continuation.State = StateApproved
	} else {
		continuation.State = StateRejected
	}
	continuation.Reason = reason
	continuation.UpdatedAt = now
	if err := s.continuations.Save(ctx, continuation); err != nil {
		return nil, err
	}
	decision := &Decision{SessionID: continuation.SessionID, Approved: approved, Reason: reason, DecidedAt: now}
	_ = s.events.Publish(ctx, &Event{Topic: TopicDecisionCreated, Data: decision})

	outcome := &Outcome{
		SessionID: continuation.SessionID,
		State:     continuation.State,
		Reason:    reason,
		DecidedAt: &now,
	}
	if approved {
		outcome.Request = continuation.Request.Clone()
	}
	return outcome, nil
}

// edit merges reviewer modifications into the pending request and re-renders
// the prompt under the updated header, including a unified diff of the field
// list so the reviewer sees exactly what changed.
func (s *Service) edit(ctx context.Context, continuation *Continuation, modifications map[string]interface{}) (*Outcome, error) {
	continuation.Attempts++
	if continuation.Attempts > s.maxAttempts {
		return s.decide(ctx, continuation, false, s.tooManyAttemptsReason())
	}

	before := renderFields(continuation.Request)
	continuation.Request.Merge(modifications)
	after := renderFields(continuation.Request)

	var extra []string
	if diff := fieldDiff(before, after); diff != "" {
		extra = append(extra, diff)
	}
	prompt := action.NewPrompt(continuation.Request, action.HeaderUpdatedPleaseReview, extra...)
	continuation.Prompt = prompt
	continuation.UpdatedAt = s.now()
	if err := s.continuations.Save(ctx, continuation); err != nil {
		return nil, err
	}
	_ = s.events.Publish(ctx, &Event{Topic: TopicRequestUpdated, Data: continuation})
	return &Outcome{SessionID: continuation.SessionID, State: StateAwaitingHuman, Prompt: prompt}, nil
}

// reprompt re-renders the current prompt with a validation error in the
// instruction text.  The loop stays suspended.
func (s *Service) reprompt(ctx context.Context, continuation *Continuation, reason string) (*Outcome, error) {
	continuation.Attempts++
	if continuation.Attempts > s.maxAttempts {
		return s.decide(ctx, continuation, false, s.tooManyAttemptsReason())
	}

	prompt := action.NewPrompt(continuation.Request, action.HeaderPleaseReview)
	prompt = prompt.WithInstructions(fmt.Sprintf("Invalid response: %s. %s", reason, action.DefaultInstructions))
	continuation.Prompt = prompt
	continuation.UpdatedAt = s.now()
	if err := s.continuations.Save(ctx, continuation); err != nil {
		return nil, err
	}
	_ = s.events.Publish(ctx, &Event{Topic: TopicRequestUpdated, Data: continuation})
	return &Outcome{SessionID: continuation.SessionID, State: StateAwaitingHuman, Prompt: prompt}, nil
}

func (s *Service) tooManyAttemptsReason() string {
	return fmt.Sprintf("too many invalid responses (%d), request auto-rejected", s.maxAttempts)
}

func renderFields(request *action.Request) string {
	var b strings.Builder
	for _, field := range request.Fields() {
		b.WriteString(field.Name)
		b.WriteString(": ")
		b.WriteString(field.Value)
		b.WriteString("\n")
	}
	return b.String()
}

func fieldDiff(before, after string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "previous",
		ToFile:   "updated",
		Context:  1,
	})
	if err != nil {
		return ""
	}
	return strings.TrimSpace(diff)
}

// truncate shortens text to limit runes, never splitting a multi-byte rune.
func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}
