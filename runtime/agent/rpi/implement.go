package rpi

import (
	"context"
	"strings"

	"github.com/sdlc-agents/orchestrator/runtime/agent/compactor"
	"github.com/sdlc-agents/orchestrator/runtime/agent/sdlcerrors"
)

const maxErrorContextChars = 2000

const fallbackErrorContext = "Tests failed with no error output"

// TestResult is what RunTestsFunc reports for one test run (§4.8.3).
type TestResult struct {
	PassedAll bool
	Stdout    string
	Stderr    string
}

// ImplementationResult is ImplementPhase's return value (§4.8.3).
type ImplementationResult struct {
	Success        bool
	StepsCompleted int
	TestsPassed    bool
	Attempts       int
	TestRuns       int
	FixesApplied   int
	SelfHealed     bool
	Error          string
}

// ImplementPhase runs the TDD loop (§4.8.3): on each attempt it ensures the
// plan's tests exist, runs them, and on failure builds a bounded error
// context and applies a fix, retrying up to maxRetries times. It cannot
// return success=true without at least one passing test run, and cannot
// return success=false in fewer than maxRetries iterations unless an
// earlier call returned an error.
func (w *Workflow) ImplementPhase(ctx context.Context, plan *compactor.Plan) (ImplementationResult, error) {
	if !w.CanImplement() {
		return ImplementationResult{}, sdlcerrors.New(sdlcerrors.KindBudget, "rpi: implement phase requires a stored plan (Gate invariant)")
	}
	w.transition(StateImplement)

	result := ImplementationResult{}
	for attempt := 0; attempt < w.maxRetries; attempt++ {
		result.Attempts = attempt + 1

		if w.ensureTestExistFn != nil {
			if err := w.ensureTestExistFn(ctx, plan); err != nil {
				return ImplementationResult{}, err
			}
		}

		testResult, err := w.runTests(ctx, plan)
		if err != nil {
			return ImplementationResult{}, err
		}
		result.TestRuns++
		if w.onTestResult != nil {
			w.onTestResult(testResult)
		}

		if testResult.PassedAll {
			w.transition(StateComplete)
			result.Success = true
			result.TestsPassed = true
			result.StepsCompleted = len(plan.Steps)
			result.SelfHealed = result.FixesApplied > 0
			return result, nil
		}

		errCtx := buildErrorContext(testResult)
		if w.applyFixFn != nil {
			if err := w.applyFixFn(ctx, errCtx, plan); err != nil {
				return ImplementationResult{}, err
			}
		}
		result.FixesApplied++
		if w.onFixApplied != nil {
			w.onFixApplied(errCtx)
		}
	}

	w.transition(StateFailed)
	result.Success = false
	result.TestsPassed = false
	result.Error = "Max retries exceeded - tests still failing"
	return result, nil
}

func (w *Workflow) runTests(ctx context.Context, plan *compactor.Plan) (TestResult, error) {
	if w.runTestsFn != nil {
		return w.runTestsFn(ctx, plan)
	}
	cmd := w.defaultTestCmd
	if len(plan.TestCommands) > 0 {
		cmd = plan.TestCommands[0]
	}
	return DefaultShellRunner(cmd)(ctx, plan)
}

// buildErrorContext concatenates at most maxErrorContextChars of stderr with
// any stdout section that mentions "error" (§4.8.3 step 5).
func buildErrorContext(t TestResult) string {
	var sb strings.Builder
	sb.WriteString(truncate(t.Stderr, maxErrorContextChars))
	if idx := strings.Index(strings.ToLower(t.Stdout), "error"); idx >= 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(t.Stdout)
	}
	if sb.Len() == 0 {
		return fallbackErrorContext
	}
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
