package executor

import (
	"context"
	"errors"

	"github.com/arkadia-labs/approvia/model/outcome"
)

// Preference selects which provider must perform an approved action.
type Preference string

const (
	// PreferenceAuto picks the direct provider when per-user credentials
	// resolve, falling through to the toolset provider otherwise.
	PreferenceAuto Preference = "auto"
	// PreferenceDirect requires the direct API provider.
	PreferenceDirect Preference = "direct"
	// PreferenceToolset requires the generic multi-tool provider.
	PreferenceToolset Preference = "toolset"
)

// ErrNoExecutorAvailable is the only fatal selection outcome: no provider
// could serve the request.
var ErrNoExecutorAvailable = errors.New("executor: no executor available")

// Capability is a read-only description of one operation a provider can
// perform.
type Capability struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Session identifies the conversation on whose behalf actions run.  Distinct
// sessions execute fully independently; provider clients behind a Service are
// shared and must be safe for concurrent use.
type Session struct {
	ID     string
	UserID string
}

// Service is the uniform provider contract: one side-effecting entry point
// plus read-only query operations used for context gathering without
// triggering approval.
type Service interface {
	Name() string

	// Execute performs one approved action.  Transport failures are recorded
	// on the returned ToolResult and also returned as an error; the result
	// classification itself happens in the aggregator.
	Execute(ctx context.Context, action string, args map[string]interface{}) (*outcome.ToolResult, error)

	// Capabilities lists the operations this provider can currently perform.
	Capabilities(ctx context.Context) ([]Capability, error)

	// Read-only query operations.
	ListEvents(ctx context.Context, windowStart, windowEnd string) (interface{}, error)
	GetEvent(ctx context.Context, id string) (interface{}, error)
	ListResources(ctx context.Context) (interface{}, error)
}

// Prober is implemented by providers whose availability depends on
// per-session state (e.g. resolvable user credentials).
type Prober interface {
	Ready(ctx context.Context, session *Session) bool
}

type sessionKeyT struct{}

var sessionKey sessionKeyT

// WithSession embeds the session in ctx so providers can resolve per-user
// state (credentials) without widening the Execute contract.
func WithSession(ctx context.Context, session *Session) context.Context {
	if session == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, session)
}

// SessionFromContext extracts the session, or nil.
func SessionFromContext(ctx context.Context) *Session {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(sessionKey).(*Session); ok {
		return v
	}
	return nil
}
