package approvia

import (
	"github.com/arkadia-labs/approvia/internal/clock"
	"github.com/arkadia-labs/approvia/service/aggregator"
	"github.com/arkadia-labs/approvia/service/approval"
	"github.com/arkadia-labs/approvia/service/dao"
	"github.com/arkadia-labs/approvia/service/executor/direct"
	"github.com/arkadia-labs/approvia/service/executor/toolset"
	"github.com/arkadia-labs/approvia/service/router"
)

// Option customises the engine at construction time.
type Option func(*Service)

// WithConfig supplies the engine configuration (defaults are used otherwise).
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithClock injects the time source used by the approval loop, the capability
// cache and elapsed-time accounting.
func WithClock(now clock.Clock) Option {
	return func(s *Service) { s.now = now }
}

// WithClassifier supplies the probabilistic intent classifier backing the
// router.  Without it, routing relies on the keyword fallback alone.
func WithClassifier(classifier router.Classifier) Option {
	return func(s *Service) { s.classifier = classifier }
}

// WithResultClassifier overrides the aggregator's result classifier.
func WithResultClassifier(classifier aggregator.ResultClassifier) Option {
	return func(s *Service) { s.resultClassifier = classifier }
}

// WithContinuationDAO overrides the approval continuation store.
func WithContinuationDAO(service dao.Service[string, approval.Continuation]) Option {
	return func(s *Service) { s.continuationDAO = service }
}

// WithRegistry supplies a pre-populated tool registry for the toolset
// provider.
func WithRegistry(registry *toolset.Registry) Option {
	return func(s *Service) { s.registry = registry }
}

// WithDirectClient supplies the direct-API transport.  The direct provider is
// only assembled when both a client and a credential store are present.
func WithDirectClient(client direct.Client) Option {
	return func(s *Service) { s.directClient = client }
}

// WithCredentialStore overrides the per-user credential store (defaults to a
// scy store at config.Executor.CredentialsURL when set).
func WithCredentialStore(store direct.Store) Option {
	return func(s *Service) { s.credentialStore = store }
}
