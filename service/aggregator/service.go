// Package aggregator executes the sub-actions of one approved request and
// folds their outcomes into a single coherent status.  Dispatch is strictly
// sequential per request - later sub-actions may depend on earlier ones - and
// the caller always receives a well-formed aggregate, even when a backend
// call panics mid-loop.
package aggregator

import (
	"context"
	"fmt"
	"strings"

	"github.com/arkadia-labs/approvia/internal/clock"
	"github.com/arkadia-labs/approvia/model/action"
	"github.com/arkadia-labs/approvia/model/outcome"
	"github.com/arkadia-labs/approvia/service/executor"
	"github.com/arkadia-labs/approvia/tracing"
)

// Service is the result aggregator.
type Service struct {
	selector   *executor.Selector
	classifier ResultClassifier
	preference executor.Preference
	now        clock.Clock
}

// Option customises the aggregator.
type Option func(*Service)

// WithClassifier overrides the result classifier.
func WithClassifier(classifier ResultClassifier) Option {
	return func(s *Service) {
		if classifier != nil {
			s.classifier = classifier
		}
	}
}

// WithPreference overrides the provider preference (default auto).
func WithPreference(preference executor.Preference) Option {
	return func(s *Service) { s.preference = preference }
}

// WithClock injects the time source.
func WithClock(now clock.Clock) Option {
	return func(s *Service) { s.now = now }
}

// New creates an aggregator over the provider selector.
func New(selector *executor.Selector, options ...Option) *Service {
	ret := &Service{
		selector:   selector,
		classifier: NewConservativeClassifier(),
		preference: executor.PreferenceAuto,
		now:        clock.System(),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Execute runs every sub-action of the approved request in order and returns
// the aggregate.  It never returns a partial or nil aggregate: a fault
// mid-loop still yields an aggregate reflecting the tool results captured
// before the fault, with status Failed when nothing ran.  An aborted or
// incomplete dispatch loop never reports full Success - sub-actions that
// never ran cap the aggregate at PartialSuccess.
func (s *Service) Execute(ctx context.Context, session *executor.Session, request *action.Request) (aggregated *outcome.Aggregated) {
	aggregated = &outcome.Aggregated{
		Action:    request.Name,
		StartedAt: s.now(),
	}
	if session != nil {
		aggregated.RequestID = session.ID
	}
	planned := 0
	defer func() {
		aborted := false
		if r := recover(); r != nil {
			aborted = true
			aggregated.ErrorMsg = fmt.Sprintf("execution aborted: %v", r)
		}
		s.finalize(aggregated)
		if aggregated.Status == outcome.StatusSuccess && (aborted || len(aggregated.Results) < planned) {
			aggregated.Status = outcome.StatusPartialSuccess
		}
	}()

	// Missing target identifier short-circuits before any provider call.
	if err := request.Validate(); err != nil {
		aggregated.ErrorMsg = err.Error()
		return aggregated
	}

	provider, _, err := s.selector.Select(ctx, session, s.preference)
	if err != nil {
		aggregated.ErrorMsg = fmt.Sprintf("no executor available for %s: %v", request.Name, err)
		return aggregated
	}

	ctx = executor.WithSession(ctx, session)
	args := argumentsOf(request)
	actions := request.Actions()
	planned = len(actions)
	for _, subAction := range actions {
		aggregated.Results = append(aggregated.Results, s.dispatch(ctx, provider, subAction, args))
	}
	return aggregated
}

// dispatch runs one sub-action, captures elapsed time and classifies the raw
// outcome.  A failed call is recorded and does not abort remaining
// sub-actions.
func (s *Service) dispatch(ctx context.Context, provider executor.Service, subAction string, args map[string]interface{}) *outcome.ToolResult {
	ctx, span := tracing.StartSpan(ctx, "aggregator.dispatch", "CLIENT")
	if span != nil {
		span.WithAttributes(map[string]string{"action": subAction, "provider": provider.Name()})
	}

	started := s.now()
	result, callErr := provider.Execute(ctx, subAction, args)
	if result == nil {
		result = &outcome.ToolResult{Action: subAction}
	}
	result.Elapsed = s.now().Sub(started)

	classification := s.classifier.Classify(subAction, result.Raw, callErr)
	result.Status = classification.Status
	result.Success = classification.Success
	if len(classification.Restrictions) > 0 {
		result.Restrictions = append(result.Restrictions, classification.Restrictions...)
	}
	if callErr != nil && result.Error == "" {
		result.Error = callErr.Error()
	}
	tracing.EndSpan(span, callErr)
	return result
}

// finalize derives the overall status and renders the three message fields.
// Status is forced to Failed when nothing ran, so the caller never observes a
// pending aggregate for a request that was dispatched.
func (s *Service) finalize(aggregated *outcome.Aggregated) {
	aggregated.FinishedAt = s.now()
	aggregated.Status = outcome.Fold(aggregated.Results)
	if aggregated.Status == outcome.StatusPending {
		aggregated.Status = outcome.StatusFailed
		if aggregated.ErrorMsg == "" {
			aggregated.ErrorMsg = "no actions were executed"
		}
	}

	var succeeded, failed []string
	for _, result := range aggregated.Results {
		if result == nil {
			continue
		}
		if result.Success {
			succeeded = append(succeeded, result.Action)
		} else {
			detail := result.Action
			if result.Error != "" {
				detail = fmt.Sprintf("%s (%s)", result.Action, result.Error)
			}
			failed = append(failed, detail)
		}
	}
	if len(succeeded) > 0 {
		aggregated.SuccessMsg = fmt.Sprintf("Completed: %s", strings.Join(succeeded, ", "))
	}
	if len(failed) > 0 {
		message := fmt.Sprintf("Failed: %s", strings.Join(failed, ", "))
		if aggregated.ErrorMsg != "" {
			message = aggregated.ErrorMsg + "; " + message
		}
		aggregated.ErrorMsg = message
	}
	if notices := aggregated.Restrictions(); len(notices) > 0 {
		aggregated.InfoMsg = fmt.Sprintf("Provider restrictions: %s", strings.Join(notices, "; "))
	}
}

// argumentsOf flattens the request into the argument map handed to the
// provider: typed attributes first, then raw args overriding by key.
func argumentsOf(request *action.Request) map[string]interface{} {
	args := make(map[string]interface{})
	if request.Title != "" {
		args["title"] = request.Title
	}
	if request.Start != "" {
		args["start"] = request.Start
	}
	if request.End != "" {
		args["end"] = request.End
	}
	if request.Location != "" {
		args["location"] = request.Location
	}
	if request.Description != "" {
		args["description"] = request.Description
	}
	if len(request.Attendees) > 0 {
		args["attendees"] = append([]string(nil), request.Attendees...)
	}
	for key, value := range request.Args {
		args[key] = value
	}
	return args
}
