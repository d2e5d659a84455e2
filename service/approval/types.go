package approval

import (
	"time"

	"github.com/arkadia-labs/approvia/model/action"
)

// Event envelope published on the approval queue for every lifecycle change.
type Event struct {
	Topic   string            // see topic constants below
	Data    interface{}       // *Continuation | *Decision
	Headers map[string]string `json:"headers,omitempty"` // optional - tenant, correlation-id etc.
}

// Standard event topics.
const (
	TopicRequestCreated  = "request.created"
	TopicRequestUpdated  = "request.updated"
	TopicRequestExpired  = "request.expired"
	TopicDecisionCreated = "decision.created"
)

// State enumerates the orchestrator states persisted between invocations.
// BuildingPrompt and Validating are transient - a continuation is only ever
// observed suspended (awaiting human) or terminal.
type State string

const (
	StateAwaitingHuman State = "awaitingHuman"
	StateApproved      State = "approved"
	StateRejected      State = "rejected"
)

// IsTerminal reports whether the approval loop has reached a decision.
func (s State) IsTerminal() bool {
	return s == StateApproved || s == StateRejected
}

// Continuation is the persisted record of one suspended approval loop, keyed
// by session id.  It carries everything needed to resume after a process
// restart: the current (possibly edited) request, the attempt counter and the
// last rendered prompt.
type Continuation struct {
	SessionID string          `json:"sessionId"`
	Request   *action.Request `json:"request"`
	Prompt    *action.Prompt  `json:"prompt,omitempty"`
	Attempts  int             `json:"attempts,omitempty"`
	State     State           `json:"state"`
	Reason    string          `json:"reason,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	ExpiresAt *time.Time      `json:"expiresAt,omitempty"` // optional deadline
	Meta      map[string]any  `json:"meta,omitempty"`      // free-form: tenant, user, environment, etc.
}

// Decision records the terminal outcome of an approval loop.
type Decision struct {
	SessionID string    `json:"sessionId"`
	Approved  bool      `json:"approved"`
	Reason    string    `json:"reason,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}

// Outcome is returned by Resume.  Exactly one of the three shapes applies:
//   - State==StateAwaitingHuman: the loop continues, Prompt carries the
//     re-rendered approval prompt.
//   - State==StateApproved: Request carries the approved (possibly edited)
//     action request, ready for execution.
//   - State==StateRejected: Reason carries the cancellation notice or the
//     retry-bound diagnostic.
type Outcome struct {
	SessionID string          `json:"sessionId"`
	State     State           `json:"state"`
	Prompt    *action.Prompt  `json:"prompt,omitempty"`
	Request   *action.Request `json:"request,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	DecidedAt *time.Time      `json:"decidedAt,omitempty"`
}

// Approved reports whether the outcome is a terminal approval.
func (o *Outcome) Approved() bool { return o != nil && o.State == StateApproved }
