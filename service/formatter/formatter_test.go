package formatter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arkadia-labs/approvia/model/outcome"
	"github.com/arkadia-labs/approvia/service/approval"
)

func TestService_FormatAggregated(t *testing.T) {
	svc := New()
	testCases := []struct {
		description string
		aggregated  *outcome.Aggregated
		contains    []string
	}{
		{
			description: "nil aggregate",
			contains:    []string{"No result is available."},
		},
		{
			description: "success",
			aggregated: &outcome.Aggregated{
				Action:     "createEvent",
				Status:     outcome.StatusSuccess,
				SuccessMsg: "Completed: createEvent",
			},
			contains: []string{"✓", `"createEvent" completed`, "Completed: createEvent"},
		},
		{
			description: "partial success carries all three sections",
			aggregated: &outcome.Aggregated{
				Action:     "bookSession",
				Status:     outcome.StatusPartialSuccess,
				SuccessMsg: "Completed: createEvent",
				ErrorMsg:   "Failed: sendEmail (smtp unavailable)",
				InfoMsg:    "Provider restrictions: not supported",
			},
			contains: []string{"◐", "partially completed", "Completed: createEvent", "smtp unavailable", "Provider restrictions"},
		},
		{
			description: "failure",
			aggregated: &outcome.Aggregated{
				Action:   "updateEvent",
				Status:   outcome.StatusFailed,
				ErrorMsg: "Failed: updateEvent (not found)",
			},
			contains: []string{"✕", `"updateEvent" failed`, "not found"},
		},
	}

	for _, testCase := range testCases {
		message := svc.FormatAggregated(testCase.aggregated)
		for _, fragment := range testCase.contains {
			assert.Contains(t, message, fragment, testCase.description)
		}
	}
}

func TestService_FormatRejection(t *testing.T) {
	svc := New()
	assert.Equal(t, approval.CancellationNotice, svc.FormatRejection(nil))
	assert.Equal(t, approval.CancellationNotice,
		svc.FormatRejection(&approval.Outcome{State: approval.StateRejected}))
	assert.Equal(t, "too risky",
		svc.FormatRejection(&approval.Outcome{State: approval.StateRejected, Reason: "too risky"}))
}
