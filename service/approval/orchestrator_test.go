package approval

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/arkadia-labs/approvia/internal/clock"
	"github.com/arkadia-labs/approvia/model/action"
	"github.com/arkadia-labs/approvia/service/dao/store"
)

func testClock(at time.Time) clock.Clock {
	return func() time.Time { return at }
}

func newRequest() *action.Request {
	return &action.Request{
		Name:  "createEvent",
		Title: "Guitar Session",
		Start: "2026-09-01T10:00",
	}
}

func TestService_Begin(t *testing.T) {
	ctx := context.Background()
	svc := New(WithClock(testClock(time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC))))

	prompt, err := svc.Begin(ctx, "session-1", newRequest())
	assert.Nil(t, err)
	assert.Equal(t, action.HeaderPleaseReview, prompt.Message)
	assert.Equal(t, "Guitar Session", prompt.Details["title"])
	assert.True(t, prompt.Capabilities.CanEdit)

	// A second Begin against the same suspended session is a caller error.
	_, err = svc.Begin(ctx, "session-1", newRequest())
	assert.ErrorIs(t, err, ErrApprovalOutstanding)

	// Other sessions are unaffected.
	_, err = svc.Begin(ctx, "session-2", newRequest())
	assert.Nil(t, err)

	pending, err := svc.Pending(ctx)
	assert.Nil(t, err)
	assert.Equal(t, 2, len(pending))
}

func TestService_Begin_invalid(t *testing.T) {
	ctx := context.Background()
	svc := New()
	_, err := svc.Begin(ctx, "", newRequest())
	assert.NotNil(t, err)
	_, err = svc.Begin(ctx, "session-1", nil)
	assert.NotNil(t, err)
}

func TestService_Resume_accept(t *testing.T) {
	ctx := context.Background()
	svc := New()
	_, err := svc.Begin(ctx, "session-1", newRequest())
	assert.Nil(t, err)

	outcome, err := svc.Resume(ctx, "session-1", "accept")
	assert.Nil(t, err)
	assert.True(t, outcome.Approved())
	assert.Equal(t, "Guitar Session", outcome.Request.Title)

	// A decided loop cannot be resumed again.
	_, err = svc.Resume(ctx, "session-1", "accept")
	assert.NotNil(t, err)
}

func TestService_Resume_reject(t *testing.T) {
	ctx := context.Background()
	svc := New()
	_, err := svc.Begin(ctx, "session-1", newRequest())
	assert.Nil(t, err)

	outcome, err := svc.Resume(ctx, "session-1", "reject")
	assert.Nil(t, err)
	assert.Equal(t, StateRejected, outcome.State)
	assert.Equal(t, CancellationNotice, outcome.Reason)
	assert.Nil(t, outcome.Request)
}

func TestService_Resume_noPending(t *testing.T) {
	svc := New()
	_, err := svc.Resume(context.Background(), "session-1", "accept")
	assert.ErrorIs(t, err, ErrNoPendingApproval)
}

func TestService_Resume_edit(t *testing.T) {
	ctx := context.Background()
	svc := New()
	_, err := svc.Begin(ctx, "session-1", newRequest())
	assert.Nil(t, err)

	edit := map[string]interface{}{
		"type": "edit",
		"args": map[string]interface{}{"title": "Piano Session"},
	}
	outcome, err := svc.Resume(ctx, "session-1", edit)
	assert.Nil(t, err)
	assert.Equal(t, StateAwaitingHuman, outcome.State)
	assert.True(t, strings.HasPrefix(outcome.Prompt.Message, action.HeaderUpdatedPleaseReview))
	assert.Equal(t, "Piano Session", outcome.Prompt.Details["title"])
	// The prompt body carries a diff of the changed field list.
	assert.Contains(t, outcome.Prompt.Message, "Piano Session")
	assert.Contains(t, outcome.Prompt.Message, "Guitar Session")

	// Re-applying the identical edit changes nothing, so no diff is rendered.
	outcome, err = svc.Resume(ctx, "session-1", edit)
	assert.Nil(t, err)
	assert.Equal(t, action.HeaderUpdatedPleaseReview, outcome.Prompt.Message)

	// The merged title survives into approval.
	outcome, err = svc.Resume(ctx, "session-1", "accept")
	assert.Nil(t, err)
	assert.True(t, outcome.Approved())
	assert.Equal(t, "Piano Session", outcome.Request.Title)
}

func TestService_Resume_freeTextEdit(t *testing.T) {
	ctx := context.Background()
	svc := New()
	_, err := svc.Begin(ctx, "session-1", newRequest())
	assert.Nil(t, err)

	outcome, err := svc.Resume(ctx, "session-1", "title: Piano Session; location: Studio 2")
	assert.Nil(t, err)
	assert.Equal(t, StateAwaitingHuman, outcome.State)
	assert.Equal(t, "Piano Session", outcome.Prompt.Details["title"])
	assert.Equal(t, "Studio 2", outcome.Prompt.Details["location"])
}

func TestService_Resume_reprompt(t *testing.T) {
	ctx := context.Background()
	svc := New()
	_, err := svc.Begin(ctx, "session-1", newRequest())
	assert.Nil(t, err)

	// Unparseable free text re-prompts instead of failing.
	outcome, err := svc.Resume(ctx, "session-1", "hmm let me think about it")
	assert.Nil(t, err)
	assert.Equal(t, StateAwaitingHuman, outcome.State)
	assert.Contains(t, outcome.Prompt.Instructions, "Invalid response")

	// So does a malformed structured payload.
	outcome, err = svc.Resume(ctx, "session-1", map[string]interface{}{"type": "maybe"})
	assert.Nil(t, err)
	assert.Equal(t, StateAwaitingHuman, outcome.State)

	// And a nil one.
	outcome, err = svc.Resume(ctx, "session-1", nil)
	assert.Nil(t, err)
	assert.Equal(t, StateAwaitingHuman, outcome.State)
}

func TestService_Resume_repromptMultiByteText(t *testing.T) {
	ctx := context.Background()
	svc := New()
	_, err := svc.Begin(ctx, "session-1", newRequest())
	assert.Nil(t, err)

	// Long multi-byte free text is truncated in the re-prompt without
	// splitting a rune.
	outcome, err := svc.Resume(ctx, "session-1", strings.Repeat("приём", 40))
	assert.Nil(t, err)
	assert.Equal(t, StateAwaitingHuman, outcome.State)
	assert.True(t, utf8.ValidString(outcome.Prompt.Instructions))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 80))
	truncated := truncate(strings.Repeat("日本語", 40), 80)
	assert.True(t, utf8.ValidString(truncated))
	assert.Equal(t, 81, len([]rune(truncated)))
}

func TestService_Resume_boundedRetry(t *testing.T) {
	ctx := context.Background()
	svc := New(WithMaxAttempts(3))
	_, err := svc.Begin(ctx, "session-1", newRequest())
	assert.Nil(t, err)

	for i := 0; i < 3; i++ {
		outcome, err := svc.Resume(ctx, "session-1", fmt.Sprintf("garbage %d", i))
		assert.Nil(t, err)
		assert.Equal(t, StateAwaitingHuman, outcome.State, "attempt %d", i)
	}

	// The attempt after the bound auto-rejects with a diagnostic reason.
	outcome, err := svc.Resume(ctx, "session-1", "still garbage")
	assert.Nil(t, err)
	assert.Equal(t, StateRejected, outcome.State)
	assert.Contains(t, outcome.Reason, "too many invalid responses")
}

func TestService_Resume_editsShareRetryBound(t *testing.T) {
	ctx := context.Background()
	svc := New(WithMaxAttempts(2))
	_, err := svc.Begin(ctx, "session-1", newRequest())
	assert.Nil(t, err)

	for i := 0; i < 2; i++ {
		outcome, err := svc.Resume(ctx, "session-1", map[string]interface{}{
			"type": "edit",
			"args": map[string]interface{}{"title": fmt.Sprintf("Draft %d", i)},
		})
		assert.Nil(t, err)
		assert.Equal(t, StateAwaitingHuman, outcome.State, "edit %d", i)
	}

	// Edits count against the same bound as invalid responses.
	outcome, err := svc.Resume(ctx, "session-1", map[string]interface{}{
		"type": "edit",
		"args": map[string]interface{}{"title": "Draft 2"},
	})
	assert.Nil(t, err)
	assert.Equal(t, StateRejected, outcome.State)
	assert.Contains(t, outcome.Reason, "too many invalid responses")
}

func TestService_Expire(t *testing.T) {
	ctx := context.Background()
	svc := New()
	_, err := svc.Begin(ctx, "session-1", newRequest())
	assert.Nil(t, err)

	outcome, err := svc.Expire(ctx, "session-1", "approval timed out")
	assert.Nil(t, err)
	assert.Equal(t, StateRejected, outcome.State)
	assert.Equal(t, "approval timed out", outcome.Reason)

	_, err = svc.Expire(ctx, "session-1", "again")
	assert.NotNil(t, err)
}

func TestService_Discard(t *testing.T) {
	ctx := context.Background()
	svc := New()
	_, err := svc.Begin(ctx, "session-1", newRequest())
	assert.Nil(t, err)
	_, err = svc.Resume(ctx, "session-1", "accept")
	assert.Nil(t, err)

	assert.Nil(t, svc.Discard(ctx, "session-1"))

	// Once discarded the session may start a fresh loop.
	_, err = svc.Begin(ctx, "session-1", newRequest())
	assert.Nil(t, err)
}

func TestService_fsContinuationStore(t *testing.T) {
	ctx := context.Background()
	baseURL := "mem://localhost/approvia/continuations"
	continuations := store.NewFsStore[Continuation](baseURL,
		func(c *Continuation) string { return c.SessionID })

	svc := New(WithContinuationDAO(continuations))
	_, err := svc.Begin(ctx, "session-1", newRequest())
	assert.Nil(t, err)

	// A second orchestrator over the same store picks up the suspended loop,
	// as after a process restart.
	restarted := New(WithContinuationDAO(store.NewFsStore[Continuation](baseURL,
		func(c *Continuation) string { return c.SessionID })))
	outcome, err := restarted.Resume(ctx, "session-1", "accept")
	assert.Nil(t, err)
	assert.True(t, outcome.Approved())
	assert.Equal(t, "Guitar Session", outcome.Request.Title)
}

func TestWaitForDecision(t *testing.T) {
	ctx := context.Background()
	svc := New()
	_, err := svc.Begin(ctx, "session-1", newRequest())
	assert.Nil(t, err)

	stop := AutoApprove(ctx, svc, 5*time.Millisecond)
	defer stop()

	decision, err := WaitForDecision(ctx, svc, "session-1", time.Second)
	assert.Nil(t, err)
	assert.True(t, decision.Approved)
}

func TestAutoReject(t *testing.T) {
	ctx := context.Background()
	svc := New()
	_, err := svc.Begin(ctx, "session-1", newRequest())
	assert.Nil(t, err)

	stop := AutoReject(ctx, svc, "maintenance window", 5*time.Millisecond)
	defer stop()

	decision, err := WaitForDecision(ctx, svc, "session-1", time.Second)
	assert.Nil(t, err)
	assert.False(t, decision.Approved)
	assert.Equal(t, "maintenance window", decision.Reason)
}
