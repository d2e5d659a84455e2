package toolset

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arkadia-labs/approvia/model/types"
)

type createEventInput struct {
	Title    string
	Start    string
	Location string
}

type createEventOutput struct {
	EventID string
	Status  string
}

// calendarTool is a minimal tool service used by the tests.
type calendarTool struct {
	created []*createEventInput
}

func (t *calendarTool) Name() string { return "calendar" }

func (t *calendarTool) Methods() types.Signatures {
	return types.Signatures{
		{
			Name:        "createEvent",
			Description: "Create a calendar event",
			Input:       reflect.TypeOf(&createEventInput{}),
			Output:      reflect.TypeOf(&createEventOutput{}),
		},
	}
}

func (t *calendarTool) Method(name string) (types.Executable, error) {
	if name != "createEvent" {
		return nil, types.NewMethodNotFoundError(name)
	}
	return func(_ context.Context, input, output interface{}) error {
		in, ok := input.(*createEventInput)
		if !ok {
			return fmt.Errorf("unexpected input type %T", input)
		}
		if in.Title == "" {
			return fmt.Errorf("title is required")
		}
		t.created = append(t.created, in)
		out := output.(*createEventOutput)
		out.EventID = "evt-1"
		out.Status = "success"
		return nil
	}, nil
}

func newTestService(tool *calendarTool) *Service {
	registry := NewRegistry()
	registry.Register(tool)
	return New(registry)
}

func TestService_Capabilities(t *testing.T) {
	svc := newTestService(&calendarTool{})
	capabilities, err := svc.Capabilities(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, 1, len(capabilities))
	assert.Equal(t, "calendar.createEvent", capabilities[0].Name)
	assert.Equal(t, "Create a calendar event", capabilities[0].Description)
}

func TestService_Execute(t *testing.T) {
	tool := &calendarTool{}
	svc := newTestService(tool)
	args := map[string]interface{}{
		"title":    "Piano Session",
		"start":    "2026-09-01T10:00",
		"location": "Studio 2",
	}

	// Fully qualified action name.
	result, err := svc.Execute(context.Background(), "calendar.createEvent", args)
	assert.Nil(t, err)
	output, ok := result.Raw.(*createEventOutput)
	if assert.True(t, ok) {
		assert.Equal(t, "evt-1", output.EventID)
		assert.Equal(t, "success", output.Status)
	}
	if assert.Equal(t, 1, len(tool.created)) {
		assert.Equal(t, "Piano Session", tool.created[0].Title)
		assert.Equal(t, "Studio 2", tool.created[0].Location)
	}

	// Bare method name resolves by searching registered services.
	_, err = svc.Execute(context.Background(), "createEvent", args)
	assert.Nil(t, err)
}

func TestService_Execute_errors(t *testing.T) {
	svc := newTestService(&calendarTool{})

	// Unknown service.
	result, err := svc.Execute(context.Background(), "mail.send", nil)
	assert.NotNil(t, err)
	assert.NotEmpty(t, result.Error)

	// Unknown bare action.
	_, err = svc.Execute(context.Background(), "teleport", nil)
	assert.NotNil(t, err)

	// Tool-level failure propagates.
	_, err = svc.Execute(context.Background(), "calendar.createEvent", map[string]interface{}{"start": "2026-09-01T10:00"})
	assert.NotNil(t, err)
}
