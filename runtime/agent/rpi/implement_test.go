package rpi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdlc-agents/orchestrator/runtime/agent/compactor"
)

func planWithOneStep() *compactor.Plan {
	return &compactor.Plan{
		Objective:    "fix the bug",
		Steps:        []compactor.PlanStep{{ID: "step_0", TargetFile: "handler.go", TestCommand: "go test ./..."}},
		TargetFiles:  []string{"handler.go"},
		TestCommands: []string{"go test ./..."},
	}
}

func TestImplementPhaseSucceedsOnFirstPassingRun(t *testing.T) {
	w := New(Options{RunTestsFn: alwaysPass})
	w.currentPlan = planWithOneStep()

	result, err := w.ImplementPhase(context.Background(), w.currentPlan)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.TestsPassed)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, result.TestRuns)
	assert.Equal(t, 1, result.StepsCompleted)
	assert.False(t, result.SelfHealed)
	assert.Equal(t, StateComplete, w.State())
}

func TestImplementPhaseSelfHealsAfterFailingAttempts(t *testing.T) {
	var fixesApplied []string
	w := New(Options{
		RunTestsFn: failThenPass(2),
		ApplyFixFn: func(ctx context.Context, errorContext string, plan *compactor.Plan) error {
			fixesApplied = append(fixesApplied, errorContext)
			return nil
		},
	})
	w.currentPlan = planWithOneStep()

	result, err := w.ImplementPhase(context.Background(), w.currentPlan)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.FixesApplied)
	assert.True(t, result.SelfHealed)
	assert.Equal(t, 3, result.Attempts)
	assert.Len(t, fixesApplied, 2)
	assert.Contains(t, fixesApplied[0], "assertion failed")
}

func TestImplementPhaseFailsAfterMaxRetries(t *testing.T) {
	w := New(Options{RunTestsFn: alwaysFail, MaxRetries: 3})
	w.currentPlan = planWithOneStep()

	result, err := w.ImplementPhase(context.Background(), w.currentPlan)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.False(t, result.TestsPassed)
	assert.Equal(t, "Max retries exceeded - tests still failing", result.Error)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 0, result.StepsCompleted, "stepsCompleted stays at its zero value on the failure path")
	assert.Equal(t, StateFailed, w.State())
}

func TestImplementPhaseCallsEnsureTestExistsEveryAttempt(t *testing.T) {
	calls := 0
	w := New(Options{
		RunTestsFn:        failThenPass(2),
		EnsureTestExistFn: func(ctx context.Context, plan *compactor.Plan) error { calls++; return nil },
	})
	w.currentPlan = planWithOneStep()

	_, err := w.ImplementPhase(context.Background(), w.currentPlan)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestImplementPhaseFiresTestResultAndFixCallbacks(t *testing.T) {
	var testResults []TestResult
	var fixContexts []string
	w := New(Options{
		RunTestsFn:   failThenPass(1),
		ApplyFixFn:   func(ctx context.Context, errorContext string, plan *compactor.Plan) error { return nil },
		OnTestResult: func(r TestResult) { testResults = append(testResults, r) },
		OnFixApplied: func(errCtx string) { fixContexts = append(fixContexts, errCtx) },
	})
	w.currentPlan = planWithOneStep()

	_, err := w.ImplementPhase(context.Background(), w.currentPlan)
	require.NoError(t, err)
	require.Len(t, testResults, 2)
	assert.False(t, testResults[0].PassedAll)
	assert.True(t, testResults[1].PassedAll)
	require.Len(t, fixContexts, 1)
}

func TestBuildErrorContextFallsBackWhenEmpty(t *testing.T) {
	assert.Equal(t, fallbackErrorContext, buildErrorContext(TestResult{}))
}

func TestBuildErrorContextIncludesStdoutErrorSection(t *testing.T) {
	ctx := buildErrorContext(TestResult{Stdout: "running suite\nerror: timeout waiting for server"})
	assert.Contains(t, ctx, "error: timeout waiting for server")
}

func TestBuildErrorContextTruncatesStderr(t *testing.T) {
	long := make([]byte, maxErrorContextChars+500)
	for i := range long {
		long[i] = 'x'
	}
	ctx := buildErrorContext(TestResult{Stderr: string(long)})
	assert.Len(t, ctx, maxErrorContextChars)
}
