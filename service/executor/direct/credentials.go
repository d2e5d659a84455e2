package direct

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/afs/url"
	"github.com/viant/scy"
	"github.com/viant/scy/cred"
	"github.com/viant/toolbox"
)

// Credentials holds resolved per-user provider credentials.
type Credentials struct {
	UserID string                 `json:"userId"`
	Data   map[string]interface{} `json:"data,omitempty"`
}

// Store resolves per-user provider credentials.  Implementations must be
// idempotent and side-effect-free; a missing user yields (nil, nil), never an
// error.
type Store interface {
	Load(ctx context.Context, userID string) (*Credentials, error)
}

// ScyStore loads credentials as encrypted scy secrets from
// <baseURL>/<userID>.json.  The secret payload is exposed as a flat map with
// empty keys removed.
type ScyStore struct {
	baseURL string
	key     string
	target  string
	service *scy.Service
	fs      afs.Service
}

// ScyOption customises the store.
type ScyOption func(*ScyStore)

// WithKey sets the decryption key, e.g. "blowfish://default".
func WithKey(key string) ScyOption {
	return func(s *ScyStore) { s.key = key }
}

// WithTarget sets the credential target type name ('generic', 'basic', ...).
func WithTarget(target string) ScyOption {
	return func(s *ScyStore) { s.target = target }
}

// NewScyStore creates a scy-backed credential store rooted at baseURL.
func NewScyStore(baseURL string, options ...ScyOption) *ScyStore {
	ret := &ScyStore{baseURL: baseURL, target: "generic", service: scy.New(), fs: afs.New()}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Load resolves the credentials for userID, or (nil, nil) when no secret
// exists for the user.
func (s *ScyStore) Load(ctx context.Context, userID string) (*Credentials, error) {
	if userID == "" {
		return nil, nil
	}
	var target interface{}
	if s.target != "" && s.target != "raw" {
		targetType, err := cred.TargetType(s.target)
		if err != nil {
			return nil, fmt.Errorf("invalid credential target %q: %w", s.target, err)
		}
		if targetType != nil {
			target = targetType
		}
	}
	location := url.Join(s.baseURL, userID+".json")
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to check credentials at %s: %w", location, err)
	}
	if !exists {
		// Absent credentials are not an error from the caller's perspective;
		// selection falls through to another provider.
		return nil, nil
	}
	resource := scy.NewResource(target, location, s.key)
	secret, err := s.service.Load(ctx, resource)
	if err != nil {
		// The secret exists but could not be decoded, e.g. a wrong key or a
		// corrupt payload.
		return nil, fmt.Errorf("failed to load credentials for %s: %w", userID, err)
	}

	credentials := &Credentials{UserID: userID}
	if !secret.IsPlain && secret.Target != nil {
		aMap := map[string]interface{}{}
		if err := toolbox.DefaultConverter.AssignConverted(&aMap, secret.Target); err != nil {
			return nil, fmt.Errorf("failed to convert credentials for %s: %w", userID, err)
		}
		credentials.Data = toolbox.DeleteEmptyKeys(aMap)
	} else {
		credentials.Data = map[string]interface{}{"token": secret.String()}
	}
	return credentials, nil
}

var _ Store = (*ScyStore)(nil)
