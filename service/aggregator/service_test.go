package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/arkadia-labs/approvia/model/action"
	"github.com/arkadia-labs/approvia/model/outcome"
	"github.com/arkadia-labs/approvia/service/executor"
)

// stubProvider scripts one raw payload (or error, or panic) per action name.
type stubProvider struct {
	name     string
	raw      map[string]interface{}
	errors   map[string]error
	panics   map[string]string
	executed []string
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Execute(_ context.Context, actionName string, _ map[string]interface{}) (*outcome.ToolResult, error) {
	p.executed = append(p.executed, actionName)
	if message, ok := p.panics[actionName]; ok {
		panic(message)
	}
	if err := p.errors[actionName]; err != nil {
		return &outcome.ToolResult{Action: actionName, Status: outcome.StatusFailed, Error: err.Error()}, err
	}
	return &outcome.ToolResult{Action: actionName, Raw: p.raw[actionName]}, nil
}

func (p *stubProvider) Capabilities(_ context.Context) ([]executor.Capability, error) {
	return []executor.Capability{{Name: "createEvent"}}, nil
}

func (p *stubProvider) ListEvents(_ context.Context, _, _ string) (interface{}, error) {
	return nil, nil
}

func (p *stubProvider) GetEvent(_ context.Context, _ string) (interface{}, error) {
	return nil, nil
}

func (p *stubProvider) ListResources(_ context.Context) (interface{}, error) {
	return nil, nil
}

func newAggregator(provider *stubProvider) *Service {
	selector := executor.NewSelector(nil, provider)
	at := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	return New(selector, WithClock(func() time.Time { return at }))
}

func TestService_Execute_success(t *testing.T) {
	provider := &stubProvider{
		name: "toolset",
		raw:  map[string]interface{}{"createEvent": "Piano Session created successfully"},
	}
	svc := newAggregator(provider)
	session := &executor.Session{ID: "session-1", UserID: "alice"}
	request := &action.Request{Name: "createEvent", Title: "Piano Session"}

	aggregated := svc.Execute(context.Background(), session, request)
	assert.Equal(t, outcome.StatusSuccess, aggregated.Status)
	assert.True(t, aggregated.Succeeded())
	assert.Equal(t, "session-1", aggregated.RequestID)
	assert.Equal(t, 1, len(aggregated.Results))
	assert.Equal(t, "Completed: createEvent", aggregated.SuccessMsg)
	assert.Empty(t, aggregated.ErrorMsg)
}

func TestService_Execute_missingTargetID(t *testing.T) {
	provider := &stubProvider{name: "toolset"}
	svc := newAggregator(provider)
	request := &action.Request{Name: "updateEvent", RequiresTargetID: true}

	aggregated := svc.Execute(context.Background(), &executor.Session{ID: "s"}, request)
	assert.Equal(t, outcome.StatusFailed, aggregated.Status)
	assert.Empty(t, aggregated.Results)
	assert.Contains(t, aggregated.ErrorMsg, "target identifier")
	// The short-circuit happens before any provider call.
	assert.Empty(t, provider.executed)
}

func TestService_Execute_partialSuccess(t *testing.T) {
	provider := &stubProvider{
		name:   "toolset",
		raw:    map[string]interface{}{"createEvent": "created successfully"},
		errors: map[string]error{"sendEmail": errors.New("smtp unavailable")},
	}
	svc := newAggregator(provider)
	request := &action.Request{
		Name:         "bookSession",
		ActionsToUse: []string{"createEvent", "sendEmail"},
	}

	aggregated := svc.Execute(context.Background(), &executor.Session{ID: "s"}, request)
	assert.Equal(t, outcome.StatusPartialSuccess, aggregated.Status)
	assert.Equal(t, 2, len(aggregated.Results))
	assert.Equal(t, "Completed: createEvent", aggregated.SuccessMsg)
	assert.Contains(t, aggregated.ErrorMsg, "sendEmail")
	assert.Contains(t, aggregated.ErrorMsg, "smtp unavailable")
	// Sequential dispatch in declaration order, failure does not abort.
	assert.Equal(t, []string{"createEvent", "sendEmail"}, provider.executed)
}

func TestService_Execute_ambiguousIsFailed(t *testing.T) {
	provider := &stubProvider{
		name: "toolset",
		raw:  map[string]interface{}{"createEvent": "well, the room might be free"},
	}
	svc := newAggregator(provider)
	request := &action.Request{Name: "createEvent"}

	aggregated := svc.Execute(context.Background(), &executor.Session{ID: "s"}, request)
	assert.Equal(t, outcome.StatusFailed, aggregated.Status)
	assert.False(t, aggregated.Succeeded())
}

func TestService_Execute_restrictions(t *testing.T) {
	provider := &stubProvider{
		name: "toolset",
		raw:  map[string]interface{}{"createEvent": "created successfully, attendee removal not supported"},
	}
	svc := newAggregator(provider)
	request := &action.Request{Name: "createEvent"}

	aggregated := svc.Execute(context.Background(), &executor.Session{ID: "s"}, request)
	assert.Equal(t, outcome.StatusPartialSuccess, aggregated.Status)
	assert.Contains(t, aggregated.InfoMsg, "not supported")
}

func TestService_Execute_panicMidLoop(t *testing.T) {
	provider := &stubProvider{
		name: "toolset",
		raw: map[string]interface{}{
			"createEvent": "created successfully",
			"sendEmail":   "sent successfully",
		},
		panics: map[string]string{"inviteAttendees": "backend blew up"},
	}
	svc := newAggregator(provider)
	request := &action.Request{
		Name:         "bookSession",
		ActionsToUse: []string{"createEvent", "inviteAttendees", "sendEmail"},
	}

	aggregated := svc.Execute(context.Background(), &executor.Session{ID: "s"}, request)
	// One of three sub-actions completed before the fault; the aggregate is
	// never reported as a full success.
	assert.Equal(t, outcome.StatusPartialSuccess, aggregated.Status)
	assert.False(t, aggregated.Succeeded())
	assert.Equal(t, 1, len(aggregated.Results))
	assert.Contains(t, aggregated.ErrorMsg, "execution aborted")
	assert.Contains(t, aggregated.ErrorMsg, "backend blew up")
	// The loop stopped at the fault, the third sub-action never ran.
	assert.Equal(t, []string{"createEvent", "inviteAttendees"}, provider.executed)
}

func TestService_Execute_panicBeforeAnyResult(t *testing.T) {
	provider := &stubProvider{
		name:   "toolset",
		panics: map[string]string{"createEvent": "backend blew up"},
	}
	svc := newAggregator(provider)
	request := &action.Request{Name: "createEvent"}

	aggregated := svc.Execute(context.Background(), &executor.Session{ID: "s"}, request)
	assert.Equal(t, outcome.StatusFailed, aggregated.Status)
	assert.Contains(t, aggregated.ErrorMsg, "execution aborted")
}

func TestService_Execute_noExecutor(t *testing.T) {
	// No providers at all: selection fails before dispatch.
	svc := New(executor.NewSelector(nil, nil))
	request := &action.Request{Name: "createEvent"}

	aggregated := svc.Execute(context.Background(), &executor.Session{ID: "s"}, request)
	assert.Equal(t, outcome.StatusFailed, aggregated.Status)
	assert.Contains(t, aggregated.ErrorMsg, "no executor available")
}

func TestService_Execute_customClassifier(t *testing.T) {
	provider := &stubProvider{
		name: "toolset",
		raw:  map[string]interface{}{"createEvent": "whatever the backend said"},
	}
	selector := executor.NewSelector(nil, provider)
	svc := New(selector, WithClassifier(classifierFunc(func(string, interface{}, error) Classification {
		return Classification{Status: outcome.StatusSuccess, Success: true}
	})))

	aggregated := svc.Execute(context.Background(), &executor.Session{ID: "s"}, &action.Request{Name: "createEvent"})
	assert.Equal(t, outcome.StatusSuccess, aggregated.Status)
}

type classifierFunc func(action string, raw interface{}, callErr error) Classification

func (f classifierFunc) Classify(action string, raw interface{}, callErr error) Classification {
	return f(action, raw, callErr)
}
