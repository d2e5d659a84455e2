package approval

import (
	"context"
	"fmt"
	"time"
)

// DecisionFunc decides what to do with a pending continuation.
// Return (true,  "") to approve
//
//	(false, "…") to reject with reason.
type DecisionFunc func(c *Continuation) (approved bool, reason string)

// AutoDecider starts a goroutine that polls Pending and applies fn to every
// suspended continuation.  It returns stop() - call it (or cancel ctx) to
// exit.
func AutoDecider(ctx context.Context,
	svc *Service,
	fn DecisionFunc,
	interval time.Duration) (stop func()) {

	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				pending, _ := svc.Pending(ctx)
				for _, c := range pending {
					ok, reason := fn(c)
					if ok {
						_, _ = svc.Resume(ctx, c.SessionID, "accept")
					} else {
						_, _ = svc.Resume(ctx, c.SessionID, map[string]interface{}{"type": "reject", "text": reason})
					}
				}
			}
		}
	}()
	return func() { close(done) }
}

// AutoApprove automatically approves all pending requests.
func AutoApprove(ctx context.Context, svc *Service, interval time.Duration) func() {
	return AutoDecider(ctx, svc,
		func(*Continuation) (bool, string) { return true, "" }, interval)
}

// AutoReject automatically rejects all pending requests with the given reason.
func AutoReject(ctx context.Context, svc *Service, reason string, interval time.Duration) func() {
	return AutoDecider(ctx, svc,
		func(*Continuation) (bool, string) { return false, reason }, interval)
}

// AutoExpire rejects continuations whose ExpiresAt deadline passed, leaving
// all other pending requests untouched.  It publishes a request.expired event
// before the decision.
func AutoExpire(ctx context.Context, svc *Service, reason string, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				pending, _ := svc.Pending(ctx)
				for _, c := range pending {
					if c.ExpiresAt == nil || !svc.now().After(*c.ExpiresAt) {
						continue
					}
					_ = svc.events.Publish(ctx, &Event{Topic: TopicRequestExpired, Data: c})
					_, _ = svc.Expire(ctx, c.SessionID, reason)
				}
			}
		}
	}()
	return func() { close(done) }
}

// WaitForDecision blocks until the approval loop for the session reaches a
// terminal state or the timeout elapses.  It polls the continuation store, so
// it can be used by hosts that are not consuming the event queue.
func WaitForDecision(ctx context.Context, svc *Service, sessionID string, timeout time.Duration) (*Decision, error) {
	deadline := time.Now().Add(timeout)
	for {
		continuation, err := svc.Lookup(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if continuation != nil && continuation.State.IsTerminal() {
			return &Decision{
				SessionID: continuation.SessionID,
				Approved:  continuation.State == StateApproved,
				Reason:    continuation.Reason,
				DecidedAt: continuation.UpdatedAt,
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timeout waiting for decision on session %s", sessionID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}
