// Package policy provides a simple, optional per-action approval layer that
// can be attached to a conversation session via context.  It is deliberately
// decoupled from the rest of the engine so that using it is entirely opt-in -
// hosts that do not embed a Policy in their context keep the default "ask"
// behaviour for side-effecting actions.

package policy

import (
	"context"
	"strings"
)

// Approval modes recognised by the engine.
const (
	ModeAsk  = "ask"  // require human approval before every action
	ModeAuto = "auto" // execute automatically without approval
	ModeDeny = "deny" // block execution
)

// Policy represents the approval settings for the current conversation
// session.
//
//   - Mode controls the high-level behaviour (ask / auto / deny).
//   - AllowList, BlockList allow coarse per-action filtering regardless of
//     Mode.
//
// A nil *Policy means "ask for every side-effecting action" and is therefore
// the safe default.
type Policy struct {
	Mode      string   // ask / auto / deny      (default = ask)
	AllowList []string // whitelist (empty => all)
	BlockList []string // blacklist
}

// Config represents the declarative, serialisable form of a Policy.
type Config struct {
	Mode      string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	AllowList []string `json:"allow,omitempty" yaml:"allow,omitempty"`
	BlockList []string `json:"block,omitempty" yaml:"block,omitempty"`
}

// ToConfig converts a runtime Policy into a persistable Config.
func ToConfig(p *Policy) *Config {
	if p == nil {
		return nil
	}
	return &Config{
		Mode:      p.Mode,
		AllowList: append([]string(nil), p.AllowList...),
		BlockList: append([]string(nil), p.BlockList...),
	}
}

// FromConfig converts a stored Config back to a runtime Policy.
func FromConfig(c *Config) *Policy {
	if c == nil {
		return nil
	}
	return &Policy{
		Mode:      c.Mode,
		AllowList: append([]string(nil), c.AllowList...),
		BlockList: append([]string(nil), c.BlockList...),
	}
}

// IsAllowed evaluates AllowList / BlockList.  Both lists match by exact
// string comparison (case-insensitive) of the action name.
func (p *Policy) IsAllowed(action string) bool {
	if p == nil {
		return true
	}

	normalized := strings.ToLower(action)

	// BlockList has priority.
	for _, b := range p.BlockList {
		if normalized == strings.ToLower(b) {
			return false
		}
	}

	// AllowList - if empty everything is allowed, otherwise only the listed
	// entries.
	if len(p.AllowList) == 0 {
		return true
	}

	for _, a := range p.AllowList {
		if normalized == strings.ToLower(a) {
			return true
		}
	}

	return false
}

// RequiresApproval reports whether the action must go through the human
// approval loop.  Blocked actions never reach the loop; ModeAuto bypasses it.
func (p *Policy) RequiresApproval(action string) bool {
	if p == nil {
		return true
	}
	if !p.IsAllowed(action) {
		return false
	}
	switch p.Mode {
	case ModeAuto:
		return false
	case ModeDeny:
		return false
	}
	return true
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy embeds policy in ctx.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext extracts (*Policy, ok).
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Policy); ok {
		return v
	}
	return nil
}
