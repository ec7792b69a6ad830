// Package policy defines the tool-allowlist and execution-budget contract
// hooks.PolicyDecisionEvent reports and a policy.Engine evaluates each turn:
// which tools a planner may call next and how much budget remains.
package policy

import (
	"context"

	"github.com/sdlc-agents/orchestrator/runtime/agent/tools"
)

// CapsState is the execution budget remaining for the current run, as
// adjusted by the most recent policy decision.
type CapsState struct {
	RemainingToolCalls      int
	ConsecutiveFailureLimit int
	RemainingDuration       int64 // nanoseconds
}

// ToolMetadata is the subset of a tool's registration a policy engine filters
// on: its identity and the tags it was registered with.
type ToolMetadata struct {
	ID   tools.Ident
	Tags []string
}

// RetryReason classifies why a RetryHint was raised.
type RetryReason string

const (
	RetryReasonToolUnavailable RetryReason = "tool_unavailable"
	RetryReasonInvalidArgs     RetryReason = "invalid_arguments"
)

// RetryHint carries the runtime's suggestion for how the policy should react
// to a failed tool call on the next turn.
type RetryHint struct {
	Tool           tools.Ident
	Reason         RetryReason
	RestrictToTool bool
}

// Input is what an Engine evaluates to produce a Decision for one turn.
type Input struct {
	Requested     []tools.Ident
	Tools         []ToolMetadata
	RemainingCaps CapsState
	RetryHint     *RetryHint
}

// Decision is the outcome of evaluating an Input: which tools remain
// allowed, the caps after adjustment, and any labels/metadata to propagate.
type Decision struct {
	AllowedTools []tools.Ident
	Caps         CapsState
	Labels       map[string]string
	Metadata     map[string]any
}

// Engine evaluates policy for one turn of a run.
type Engine interface {
	Decide(ctx context.Context, input Input) (Decision, error)
}
