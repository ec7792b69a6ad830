package firewall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdlc-agents/orchestrator/runtime/agent/sdlcerrors"
	"github.com/sdlc-agents/orchestrator/runtime/agent/session"
)

func newParent() *session.SessionContext {
	return session.New("parent-1", session.WithTools([]string{"Read", "Grep", "Write"}))
}

func TestTrackForkRejectsNonSubagentContext(t *testing.T) {
	fw := New(Options{})
	parent := newParent()

	err := fw.TrackFork(parent)
	require.Error(t, err)
	assert.Equal(t, sdlcerrors.KindFirewall, sdlcerrors.KindOf(err))
}

func TestCreateIsolatedContextTracksFork(t *testing.T) {
	fw := New(Options{})
	parent := newParent()

	fork, err := fw.CreateIsolatedContext(parent, "investigate flaky test", []string{"Read", "Grep"}, 8000, 5)
	require.NoError(t, err)
	assert.True(t, fork.IsSubagent)

	active := fw.GetActiveForks()
	assert.Contains(t, active, fork.SessionID)

	got, ok := fw.GetFork(fork.SessionID)
	require.True(t, ok)
	assert.Equal(t, fork.SessionID, got.SessionID)
}

// TestMaxActiveContextsBoundsFanOut covers G-2: bounded fan-out.
func TestMaxActiveContextsBoundsFanOut(t *testing.T) {
	fw := New(Options{MaxActiveContexts: 2})
	parent := newParent()

	_, err := fw.CreateIsolatedContext(parent, "task 1", nil, 1000, 1)
	require.NoError(t, err)
	_, err = fw.CreateIsolatedContext(parent, "task 2", nil, 1000, 1)
	require.NoError(t, err)

	_, err = fw.CreateIsolatedContext(parent, "task 3", nil, 1000, 1)
	require.Error(t, err)
	assert.Equal(t, sdlcerrors.KindFirewall, sdlcerrors.KindOf(err))
}

// TestCompleteContextContainsRawState covers G-1: only the distilled Result
// crosses back, never the fork's raw SessionContext.
func TestCompleteContextContainsRawState(t *testing.T) {
	fw := New(Options{})
	parent := newParent()
	fork, err := fw.CreateIsolatedContext(parent, "investigate auth bug", []string{"Read"}, 8000, 5)
	require.NoError(t, err)

	result, err := fw.CompleteContext(fork.SessionID, "auth bug traced to expired JWT clock skew",
		[]string{"token expiry check uses server time, not client-reported time"},
		[]string{"internal/auth/jwt.go:42"}, 5000, 3)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 5000, result.TokensConsumed)
	assert.Less(t, result.TokensReturned, result.TokensConsumed)

	_, ok := fw.GetFork(fork.SessionID)
	assert.False(t, ok, "completed fork must no longer be reachable as an active fork")
}

// TestCompletedContextCannotBeResurrected covers G-3.
func TestCompletedContextCannotBeResurrected(t *testing.T) {
	fw := New(Options{})
	parent := newParent()
	fork, err := fw.CreateIsolatedContext(parent, "task", nil, 1000, 1)
	require.NoError(t, err)

	_, err = fw.CompleteContext(fork.SessionID, "done", nil, nil, 100, 1)
	require.NoError(t, err)

	err = fw.TrackFork(fork)
	require.Error(t, err)
}

func TestCompleteContextUnknownSessionErrors(t *testing.T) {
	fw := New(Options{})
	_, err := fw.CompleteContext("does-not-exist", "summary", nil, nil, 10, 1)
	require.Error(t, err)
	assert.Equal(t, sdlcerrors.KindFirewall, sdlcerrors.KindOf(err))
}

func TestCompleteContextWithErrorRecordsFailure(t *testing.T) {
	fw := New(Options{})
	parent := newParent()
	fork, err := fw.CreateIsolatedContext(parent, "task", nil, 1000, 1)
	require.NoError(t, err)

	result, err := fw.CompleteContextWithError(fork.SessionID, "tool call exceeded retry budget", 500, 2)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "tool call exceeded retry budget", result.Error)
}

func TestCancelContextDropsForkWithoutResult(t *testing.T) {
	fw := New(Options{})
	parent := newParent()
	fork, err := fw.CreateIsolatedContext(parent, "task", nil, 1000, 1)
	require.NoError(t, err)

	fw.CancelContext(fork.SessionID)

	_, ok := fw.GetFork(fork.SessionID)
	assert.False(t, ok)
	_, ok = fw.GetResult(fork.SessionID)
	assert.False(t, ok)
}

func TestGetSummaryForParentFormatsMarkdown(t *testing.T) {
	fw := New(Options{})
	parent := newParent()
	fork, err := fw.CreateIsolatedContext(parent, "investigate flaky CI", []string{"Read", "Grep"}, 8000, 5)
	require.NoError(t, err)

	_, err = fw.CompleteContext(fork.SessionID, "flakiness traced to unseeded RNG in the retry backoff",
		[]string{"backoff jitter uses time.Now() without a seed"},
		[]string{"internal/retry/backoff.go:17"}, 4200, 4)
	require.NoError(t, err)

	summary, ok := fw.GetSummaryForParent(fork.SessionID)
	require.True(t, ok)

	assert.Contains(t, summary, "## Sub-Agent Result")
	assert.Contains(t, summary, "flakiness traced to unseeded RNG")
	assert.Contains(t, summary, "### Findings")
	assert.Contains(t, summary, "backoff jitter uses time.Now() without a seed")
	assert.Contains(t, summary, "### References")
	assert.Contains(t, summary, "internal/retry/backoff.go:17")
}

func TestGetSummaryForParentUnknownContextReturnsFalse(t *testing.T) {
	fw := New(Options{})
	_, ok := fw.GetSummaryForParent("does-not-exist")
	assert.False(t, ok)
}

func TestOnContextCreatedAndCompletedCallbacksFire(t *testing.T) {
	var created, completed []string
	fw := New(Options{
		OnContextCreated:   func(sessionID string) { created = append(created, sessionID) },
		OnContextCompleted: func(result Result) { completed = append(completed, result.ContextID) },
	})
	parent := newParent()
	fork, err := fw.CreateIsolatedContext(parent, "task", nil, 1000, 1)
	require.NoError(t, err)

	_, err = fw.CompleteContext(fork.SessionID, "done", nil, nil, 10, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{fork.SessionID}, created)
	assert.Equal(t, []string{fork.SessionID}, completed)
}
