package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/arkadia-labs/approvia/internal/clock"
	"github.com/arkadia-labs/approvia/tracing"
)

// Selector picks one of the registered providers for an approved action and
// returns it together with its read-only capability list.  Selection is a
// typed result, never a side-channel log line.
type Selector struct {
	direct  Service
	toolset Service
	cache   *CapabilityCache
}

// SelectorOption customises the selector.
type SelectorOption func(*selectorOptions)

type selectorOptions struct {
	ttl time.Duration
	now clock.Clock
}

// WithCapabilityTTL overrides the capability cache TTL.
func WithCapabilityTTL(ttl time.Duration) SelectorOption {
	return func(o *selectorOptions) { o.ttl = ttl }
}

// WithClock injects the cache time source.
func WithClock(now clock.Clock) SelectorOption {
	return func(o *selectorOptions) { o.now = now }
}

// NewSelector creates a selector over the two providers.  Either provider may
// be nil - it is then simply never selectable.
func NewSelector(direct, toolset Service, options ...SelectorOption) *Selector {
	opts := &selectorOptions{}
	for _, option := range options {
		option(opts)
	}
	return &Selector{
		direct:  direct,
		toolset: toolset,
		cache:   NewCapabilityCache(opts.ttl, opts.now),
	}
}

// Select resolves the provider for the session according to preference:
//
//   - PreferenceDirect / PreferenceToolset require that specific provider and
//     fail immediately when it cannot serve - no silent fallback.
//   - PreferenceAuto tries the direct provider first and silently falls
//     through to the toolset provider when per-user credentials are absent.
//     When the toolset provider has no capabilities either, selection fails
//     with ErrNoExecutorAvailable - the only fatal case.
func (s *Selector) Select(ctx context.Context, session *Session, preference Preference) (Service, []Capability, error) {
	ctx, span := tracing.StartSpan(ctx, "executor.select", "INTERNAL")
	service, capabilities, err := s.selectProvider(ctx, session, preference)
	if span != nil {
		if service != nil {
			span.WithAttributes(map[string]string{"provider": service.Name()})
		}
		tracing.EndSpan(span, err)
	}
	return service, capabilities, err
}

func (s *Selector) selectProvider(ctx context.Context, session *Session, preference Preference) (Service, []Capability, error) {
	switch preference {
	case PreferenceDirect:
		if s.direct == nil {
			return nil, nil, fmt.Errorf("direct provider not configured: %w", ErrNoExecutorAvailable)
		}
		if !s.ready(ctx, s.direct, session) {
			return nil, nil, fmt.Errorf("direct provider has no credentials for session %v: %w", sessionID(session), ErrNoExecutorAvailable)
		}
		return s.withCapabilities(ctx, s.direct)
	case PreferenceToolset:
		if s.toolset == nil {
			return nil, nil, fmt.Errorf("toolset provider not configured: %w", ErrNoExecutorAvailable)
		}
		capabilities, err := s.cache.Capabilities(ctx, s.toolset)
		if err != nil {
			return nil, nil, err
		}
		if len(capabilities) == 0 {
			return nil, nil, fmt.Errorf("toolset provider has no capabilities: %w", ErrNoExecutorAvailable)
		}
		return s.toolset, capabilities, nil
	case PreferenceAuto, "":
		if s.direct != nil && s.ready(ctx, s.direct, session) {
			return s.withCapabilities(ctx, s.direct)
		}
		if s.toolset != nil {
			capabilities, err := s.cache.Capabilities(ctx, s.toolset)
			if err == nil && len(capabilities) > 0 {
				return s.toolset, capabilities, nil
			}
		}
		return nil, nil, ErrNoExecutorAvailable
	}
	return nil, nil, fmt.Errorf("unknown preference %q", preference)
}

func (s *Selector) withCapabilities(ctx context.Context, service Service) (Service, []Capability, error) {
	capabilities, err := s.cache.Capabilities(ctx, service)
	if err != nil {
		return nil, nil, err
	}
	return service, capabilities, nil
}

func (s *Selector) ready(ctx context.Context, service Service, session *Session) bool {
	prober, ok := service.(Prober)
	if !ok {
		return true
	}
	return prober.Ready(ctx, session)
}

func sessionID(session *Session) string {
	if session == nil {
		return ""
	}
	return session.ID
}
