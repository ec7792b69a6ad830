package rpi

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/sdlc-agents/orchestrator/runtime/agent/compactor"
)

// defaultTestTimeout bounds the default shell executor (§4.8.3: "timeout
// 300 s").
const defaultTestTimeout = 300 * time.Second

// DefaultShellRunner builds a RunTestsFunc that shells out to testCommand
// via /bin/sh -c, capturing stdout/stderr separately: an
// exec.CommandContext-driven, context-scoped process with piped output and
// no shared process state across calls.
func DefaultShellRunner(testCommand string) RunTestsFunc {
	return func(ctx context.Context, _ *compactor.Plan) (TestResult, error) {
		runCtx, cancel := context.WithTimeout(ctx, defaultTestTimeout)
		defer cancel()

		cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", testCommand)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		err := cmd.Run()
		result := TestResult{
			PassedAll: err == nil,
			Stdout:    stdout.String(),
			Stderr:    stderr.String(),
		}
		if err != nil && result.Stderr == "" {
			result.Stderr = strings.TrimSpace(err.Error())
		}
		return result, nil
	}
}
