package approvia

import (
	"context"
	"errors"
	"fmt"

	"github.com/arkadia-labs/approvia/internal/clock"
	"github.com/arkadia-labs/approvia/model/action"
	"github.com/arkadia-labs/approvia/model/outcome"
	"github.com/arkadia-labs/approvia/model/types"
	"github.com/arkadia-labs/approvia/service/aggregator"
	"github.com/arkadia-labs/approvia/service/approval"
	"github.com/arkadia-labs/approvia/service/dao"
	"github.com/arkadia-labs/approvia/service/dao/store"
	"github.com/arkadia-labs/approvia/service/executor"
	"github.com/arkadia-labs/approvia/service/executor/direct"
	"github.com/arkadia-labs/approvia/service/executor/toolset"
	"github.com/arkadia-labs/approvia/service/formatter"
	"github.com/arkadia-labs/approvia/service/router"
)

// Service is the engine facade: it wires the intent router, the approval
// orchestrator, provider selection, result aggregation and response
// formatting, and is invoked as a library by a surrounding workflow engine.
type Service struct {
	config *Config
	now    clock.Clock

	classifier       router.Classifier
	router           *router.Service
	approvals        *approval.Service
	continuationDAO  dao.Service[string, approval.Continuation]
	registry         *toolset.Registry
	toolset          *toolset.Service
	direct           *direct.Service
	directClient     direct.Client
	credentialStore  direct.Store
	selector         *executor.Selector
	aggregator       *aggregator.Service
	resultClassifier aggregator.ResultClassifier
	formatter        *formatter.Service
}

// Result is the terminal product of one resumed approval loop.
type Result struct {
	Outcome    *approval.Outcome   `json:"outcome"`
	Aggregated *outcome.Aggregated `json:"aggregated,omitempty"`
	Message    string              `json:"message"`
}

// Suspended reports whether the loop re-suspended awaiting another human
// response.
func (r *Result) Suspended() bool {
	return r != nil && r.Outcome != nil && r.Outcome.State == approval.StateAwaitingHuman
}

// New creates the engine.  Sensible defaults are applied for everything that
// is not overridden via options: in-memory continuation storage, an empty
// tool registry and the conservative result classifier.
func New(options ...Option) *Service {
	ret := &Service{}
	ret.init(options)
	return ret
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()

	s.toolset = toolset.New(s.registry, toolset.WithCallTimeout(s.config.CallTimeout()))
	if s.directClient != nil && s.credentialStore != nil {
		s.direct = direct.New(s.directClient, s.credentialStore,
			direct.WithCallTimeout(s.config.CallTimeout()))
	}
	var directService executor.Service
	if s.direct != nil {
		directService = s.direct
	}
	s.selector = executor.NewSelector(directService, s.toolset,
		executor.WithCapabilityTTL(s.config.CapabilityTTL()),
		executor.WithClock(s.now))

	s.approvals = approval.New(
		approval.WithContinuationDAO(s.continuationDAO),
		approval.WithMaxAttempts(s.config.Approval.MaxAttempts),
		approval.WithClock(s.now))

	s.router = router.New(s.classifier, router.WithTimeout(s.config.RouterTimeout()))

	aggregatorOptions := []aggregator.Option{
		aggregator.WithPreference(executor.Preference(s.config.Executor.Preference)),
		aggregator.WithClock(s.now),
	}
	if s.resultClassifier != nil {
		aggregatorOptions = append(aggregatorOptions, aggregator.WithClassifier(s.resultClassifier))
	}
	s.aggregator = aggregator.New(s.selector, aggregatorOptions...)
	s.formatter = formatter.New()
}

func (s *Service) ensureBaseSetup() {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if s.now == nil {
		s.now = clock.System()
	}
	if s.registry == nil {
		s.registry = toolset.NewRegistry()
	}
	if s.continuationDAO == nil {
		if s.config.Approval.ContinuationURL != "" {
			s.continuationDAO = store.NewFsStore[approval.Continuation](
				s.config.Approval.ContinuationURL,
				func(c *approval.Continuation) string { return c.SessionID })
		} else {
			s.continuationDAO = store.NewMemoryStore[string, approval.Continuation](
				func(c *approval.Continuation) string { return c.SessionID })
		}
	}
	if s.credentialStore == nil && s.config.Executor.CredentialsURL != "" {
		s.credentialStore = direct.NewScyStore(s.config.Executor.CredentialsURL)
	}
}

// RegisterTools registers tool services with the toolset provider.
func (s *Service) RegisterTools(services ...types.Service) {
	for _, service := range services {
		s.registry.Register(service)
	}
}

// Approvals exposes the approval orchestrator (event queue, pending list,
// auto-decider helpers).
func (s *Service) Approvals() *approval.Service { return s.approvals }

// Selector exposes the provider selector.
func (s *Service) Selector() *executor.Selector { return s.selector }

// Route classifies the conversation tail into a routing decision.
func (s *Service) Route(ctx context.Context, conversationTail []string) (*router.Decision, error) {
	return s.router.Route(ctx, conversationTail)
}

// Begin starts the approval loop for the session and returns the first
// prompt.  The hosting engine delivers the prompt to the reviewer, suspends,
// and later calls Resume with the reviewer's response.
func (s *Service) Begin(ctx context.Context, session *executor.Session, request *action.Request) (*action.Prompt, error) {
	if session == nil || session.ID == "" {
		return nil, fmt.Errorf("session is required")
	}
	return s.approvals.Begin(ctx, session.ID, request)
}

// Resume delivers one human response.  When the loop terminates approved,
// the request is executed and the aggregate is rendered; when it terminates
// rejected, the cancellation notice is rendered; otherwise the loop stays
// suspended and the result carries the re-rendered prompt.
func (s *Service) Resume(ctx context.Context, session *executor.Session, response interface{}) (*Result, error) {
	if session == nil || session.ID == "" {
		return nil, fmt.Errorf("session is required")
	}
	approvalOutcome, err := s.approvals.Resume(ctx, session.ID, response)
	if err != nil {
		return nil, err
	}
	result := &Result{Outcome: approvalOutcome}
	switch approvalOutcome.State {
	case approval.StateAwaitingHuman:
		if approvalOutcome.Prompt != nil {
			result.Message = approvalOutcome.Prompt.Message
		}
		return result, nil
	case approval.StateRejected:
		result.Message = s.formatter.FormatRejection(approvalOutcome)
		_ = s.approvals.Discard(ctx, session.ID)
		return result, nil
	case approval.StateApproved:
		result.Aggregated = s.aggregator.Execute(ctx, session, approvalOutcome.Request)
		result.Message = s.formatter.FormatAggregated(result.Aggregated)
		_ = s.approvals.Discard(ctx, session.ID)
		return result, nil
	}
	return nil, errors.New("unexpected approval state")
}

// Execute dispatches a request that does not require approval (router
// verdict Execute, e.g. under an auto policy) and renders the aggregate.
func (s *Service) Execute(ctx context.Context, session *executor.Session, request *action.Request) (*Result, error) {
	if session == nil || session.ID == "" {
		return nil, fmt.Errorf("session is required")
	}
	aggregated := s.aggregator.Execute(ctx, session, request)
	return &Result{Aggregated: aggregated, Message: s.formatter.FormatAggregated(aggregated)}, nil
}
