// Package direct implements the direct-API provider: it performs approved
// actions against the calendar/email provider on behalf of a concrete user,
// which requires resolvable per-user credentials.
package direct

import (
	"context"
	"fmt"
	"time"

	"github.com/arkadia-labs/approvia/model/outcome"
	"github.com/arkadia-labs/approvia/service/executor"
)

const name = "direct"

// DefaultCallTimeout bounds every remote call.
const DefaultCallTimeout = 30 * time.Second

// Client is the remote action collaborator: given an action name and an
// argument map, perform the operation and return an implementation-defined
// raw result.  The shared client is long-lived and must be safe for
// concurrent use across sessions.
type Client interface {
	Invoke(ctx context.Context, action string, args map[string]interface{}, credentials *Credentials) (interface{}, error)
}

// Service is the direct-API provider.
type Service struct {
	client       Client
	store        Store
	timeout      time.Duration
	capabilities []executor.Capability
}

// Option customises the provider.
type Option func(*Service)

// WithCallTimeout overrides the per-call timeout.
func WithCallTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithCapabilities overrides the advertised capability list.
func WithCapabilities(capabilities []executor.Capability) Option {
	return func(s *Service) { s.capabilities = capabilities }
}

// New creates the direct provider over the shared API client and credential
// store.
func New(client Client, store Store, options ...Option) *Service {
	ret := &Service{
		client:  client,
		store:   store,
		timeout: DefaultCallTimeout,
		capabilities: []executor.Capability{
			{Name: "createEvent", Description: "Create a calendar event"},
			{Name: "updateEvent", Description: "Update an existing calendar event"},
			{Name: "deleteEvent", Description: "Delete a calendar event"},
			{Name: "sendEmail", Description: "Send an email message"},
			{Name: "listEvents", Description: "List calendar events in a time window"},
			{Name: "getEvent", Description: "Fetch a single calendar event"},
			{Name: "listResources", Description: "List bookable calendars and rooms"},
		},
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Name returns the provider name.
func (s *Service) Name() string { return name }

// Ready reports whether per-user credentials resolve for the session.
func (s *Service) Ready(ctx context.Context, session *executor.Session) bool {
	if session == nil || s.store == nil {
		return false
	}
	credentials, err := s.store.Load(ctx, session.UserID)
	return err == nil && credentials != nil
}

// Capabilities lists the operations the direct API supports.
func (s *Service) Capabilities(_ context.Context) ([]executor.Capability, error) {
	return s.capabilities, nil
}

// Execute performs one approved action.  The transport error, if any, is
// recorded on the returned ToolResult; classification of the raw payload is
// left to the aggregator.
func (s *Service) Execute(ctx context.Context, action string, args map[string]interface{}) (*outcome.ToolResult, error) {
	result := &outcome.ToolResult{Action: action, Status: outcome.StatusInProgress}
	raw, err := s.invoke(ctx, action, args)
	if err != nil {
		result.Status = outcome.StatusFailed
		result.Error = err.Error()
		return result, err
	}
	result.Raw = raw
	return result, nil
}

// ListEvents returns events in the supplied time window.
func (s *Service) ListEvents(ctx context.Context, windowStart, windowEnd string) (interface{}, error) {
	return s.invoke(ctx, "listEvents", map[string]interface{}{"start": windowStart, "end": windowEnd})
}

// GetEvent fetches a single event.
func (s *Service) GetEvent(ctx context.Context, id string) (interface{}, error) {
	return s.invoke(ctx, "getEvent", map[string]interface{}{"id": id})
}

// ListResources lists bookable calendars and rooms.
func (s *Service) ListResources(ctx context.Context) (interface{}, error) {
	return s.invoke(ctx, "listResources", nil)
}

func (s *Service) invoke(ctx context.Context, action string, args map[string]interface{}) (interface{}, error) {
	session := executor.SessionFromContext(ctx)
	if session == nil {
		return nil, fmt.Errorf("no session in context")
	}
	credentials, err := s.store.Load(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if credentials == nil {
		return nil, fmt.Errorf("no credentials for user %s", session.UserID)
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Invoke(callCtx, action, args, credentials)
}

var _ executor.Service = (*Service)(nil)
var _ executor.Prober = (*Service)(nil)
