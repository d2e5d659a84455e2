package approvia

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the engine configuration.  It
// can be populated from YAML or JSON, with ${env.KEY} expressions expanded
// against the process environment.  The zero-value is useful - all nested
// fields inherit their package defaults.
type Config struct {
	Approval ApprovalConfig `json:"approval" yaml:"approval"`
	Executor ExecutorConfig `json:"executor" yaml:"executor"`
	Router   RouterConfig   `json:"router" yaml:"router"`
}

// ApprovalConfig tunes the approval loop.
type ApprovalConfig struct {
	// MaxAttempts bounds the re-prompt loop; exceeded attempts auto-reject.
	MaxAttempts int `json:"maxAttempts" yaml:"maxAttempts"`
	// ContinuationURL, when set, stores approval continuations under this
	// afs location (file://, mem://, s3://...) so loops survive restarts.
	ContinuationURL string `json:"continuationURL,omitempty" yaml:"continuationURL,omitempty"`
}

// ExecutorConfig tunes provider selection and remote calls.
type ExecutorConfig struct {
	CallTimeoutSec   int    `json:"callTimeoutSec" yaml:"callTimeoutSec"`
	CapabilityTTLSec int    `json:"capabilityTTLSec" yaml:"capabilityTTLSec"`
	Preference       string `json:"preference,omitempty" yaml:"preference,omitempty"`
	// CredentialsURL is the scy secret base location for per-user provider
	// credentials.
	CredentialsURL string `json:"credentialsURL,omitempty" yaml:"credentialsURL,omitempty"`
}

// RouterConfig tunes intent classification.
type RouterConfig struct {
	TimeoutSec int `json:"timeoutSec" yaml:"timeoutSec"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() *Config {
	return &Config{
		Approval: ApprovalConfig{MaxAttempts: 10},
		Executor: ExecutorConfig{CallTimeoutSec: 30, CapabilityTTLSec: 300, Preference: "auto"},
		Router:   RouterConfig{TimeoutSec: 30},
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Approval.MaxAttempts <= 0 {
		return fmt.Errorf("approval.maxAttempts must be > 0")
	}
	if c.Executor.CallTimeoutSec <= 0 {
		return fmt.Errorf("executor.callTimeoutSec must be > 0")
	}
	if c.Executor.CapabilityTTLSec <= 0 {
		return fmt.Errorf("executor.capabilityTTLSec must be > 0")
	}
	switch c.Executor.Preference {
	case "", "auto", "direct", "toolset":
	default:
		return fmt.Errorf("executor.preference must be auto, direct or toolset")
	}
	return nil
}

// CallTimeout returns the per-call timeout.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Executor.CallTimeoutSec) * time.Second
}

// CapabilityTTL returns the capability cache TTL.
func (c *Config) CapabilityTTL() time.Duration {
	return time.Duration(c.Executor.CapabilityTTLSec) * time.Second
}

// RouterTimeout returns the classification call timeout.
func (c *Config) RouterTimeout() time.Duration {
	return time.Duration(c.Router.TimeoutSec) * time.Second
}

// LoadConfig reads a YAML config document from any afs location, expands
// ${env.KEY} expressions and overlays the result on the defaults.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", URL, err)
	}
	config := DefaultConfig()
	expanded := expandEnvExpr(string(data))
	if err = yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", URL, err)
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
