// Package outcome defines per-call and per-request outcome records produced
// by the result aggregator: the ToolResult of a single backend invocation,
// the Status enumeration with its fold rule, and the Aggregated record owned
// by exactly one approved request.
package outcome

import (
	"time"
)

// Status represents the derived state of a request or a single tool call.
type Status string

const (
	StatusPending        Status = "pending"
	StatusInProgress     Status = "inProgress"
	StatusSuccess        Status = "success"
	StatusPartialSuccess Status = "partialSuccess"
	StatusFailed         Status = "failed"
	StatusCancelled      Status = "cancelled"
)

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusPartialSuccess, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// ToolResult captures the outcome of one backend call.
type ToolResult struct {
	Action       string        `json:"action"`
	Status       Status        `json:"status"`
	Raw          interface{}   `json:"raw,omitempty"`
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
	Restrictions []string      `json:"restrictions,omitempty"`
	Elapsed      time.Duration `json:"elapsed,omitempty"`
}

// Fold derives the overall status from a collected set of tool results:
// Success when all succeeded, PartialSuccess when some did, Failed when none
// succeeded and at least one ran, Pending when none ran.  A result that
// succeeded with restrictions (per-call PartialSuccess) degrades an otherwise
// clean aggregate to PartialSuccess.  The result is independent of the order
// of the inputs.
func Fold(results []*ToolResult) Status {
	if len(results) == 0 {
		return StatusPending
	}
	succeeded, restricted := 0, 0
	for _, result := range results {
		if result == nil || !result.Success {
			continue
		}
		succeeded++
		if result.Status == StatusPartialSuccess {
			restricted++
		}
	}
	switch {
	case succeeded == len(results) && restricted == 0:
		return StatusSuccess
	case succeeded > 0:
		return StatusPartialSuccess
	}
	return StatusFailed
}

// Aggregated owns the ordered tool results of one approved request together
// with the derived status and the rendered message fields.  It is created per
// request and never shared across requests.
type Aggregated struct {
	RequestID  string        `json:"requestId,omitempty"`
	Action     string        `json:"action,omitempty"`
	Results    []*ToolResult `json:"results"`
	Status     Status        `json:"status"`
	SuccessMsg string        `json:"successMessage,omitempty"`
	ErrorMsg   string        `json:"errorMessage,omitempty"`
	InfoMsg    string        `json:"infoMessage,omitempty"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
}

// Succeeded reports whether every sub-action completed successfully.
func (a *Aggregated) Succeeded() bool {
	return a != nil && a.Status == StatusSuccess
}

// Restrictions returns all provider restriction notices detected across the
// collected tool results, in execution order.
func (a *Aggregated) Restrictions() []string {
	if a == nil {
		return nil
	}
	var notices []string
	for _, result := range a.Results {
		if result != nil {
			notices = append(notices, result.Restrictions...)
		}
	}
	return notices
}
