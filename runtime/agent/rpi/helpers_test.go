package rpi

import (
	"context"

	"github.com/sdlc-agents/orchestrator/runtime/agent/compactor"
)

func contextBG() context.Context {
	return context.Background()
}

func alwaysPass(ctx context.Context, plan *compactor.Plan) (TestResult, error) {
	return TestResult{PassedAll: true, Stdout: "PASS"}, nil
}

// failThenPass fails the first n calls, then passes every call after.
func failThenPass(n int) RunTestsFunc {
	calls := 0
	return func(ctx context.Context, plan *compactor.Plan) (TestResult, error) {
		calls++
		if calls <= n {
			return TestResult{PassedAll: false, Stderr: "assertion failed: expected 2 got 1"}, nil
		}
		return TestResult{PassedAll: true, Stdout: "PASS"}, nil
	}
}

func alwaysFail(ctx context.Context, plan *compactor.Plan) (TestResult, error) {
	return TestResult{PassedAll: false, Stderr: "panic: nil pointer dereference"}, nil
}
