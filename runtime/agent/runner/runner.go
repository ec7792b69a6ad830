// Package runner stipulates the Agent Runner contract (C9): the engine
// consumes this interface without depending on any concrete model backend.
// The control flow of an actual LLM call loop is deliberately left
// unimplemented here (§4.9); features/model/anthropic already implements
// this package's model.Client contract, and NewAnthropicBackend wires it in
// directly so the interface has a real implementation to integration-test
// against.
package runner

import (
	"context"

	"github.com/sdlc-agents/orchestrator/features/model/anthropic"
	"github.com/sdlc-agents/orchestrator/runtime/agent/cost"
	"github.com/sdlc-agents/orchestrator/runtime/agent/model"
	"github.com/sdlc-agents/orchestrator/runtime/agent/sdlcerrors"
	"github.com/sdlc-agents/orchestrator/runtime/agent/session"
	"github.com/sdlc-agents/orchestrator/runtime/agent/tools"
)

// AgentResult is what RunAgent reports once an agent run ends, whether it
// succeeded, failed, or was cut short by a budget guard (§4.9).
type AgentResult struct {
	Success          bool
	SessionID        string
	Error            string
	StructuredOutput any
	CostSummary      cost.Summary
	CostUSD          float64
}

// Runner executes one agent turn against a bound session. Implementations
// stream from a model.Client, call CostTracker.ProcessMessage for every
// message received, and must honour a ContextBudgetError raised from
// EnforcePlanRequirement by terminating the stream and returning
// success=false rather than continuing to call the model (§4.9).
type Runner interface {
	RunAgent(ctx context.Context, agentID, objective string, sc *session.SessionContext) (AgentResult, error)
}

// Dispatcher resolves a tool call against the session's currently
// loaded-schema tool set (§4.2). Unknown tool names fail with a
// KindTool error, never silently (§4.9).
type Dispatcher struct {
	registry *tools.Registry
}

// NewDispatcher constructs a Dispatcher bound to registry.
func NewDispatcher(registry *tools.Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Resolve looks up a tool definition by name for dispatch. It fails with a
// KindTool error when the name is not in the loaded-schema tool set, rather
// than silently skipping the call.
func (d *Dispatcher) Resolve(toolName string) (*tools.Definition, error) {
	def := d.registry.GetTool(toolName)
	if def == nil {
		return nil, sdlcerrors.Newf(sdlcerrors.KindTool, "runner: unknown tool %q", toolName)
	}
	return def, nil
}

// ProcessStream feeds every message in msgs through tracker.ProcessMessage,
// stopping as soon as EnforcePlanRequirement reports a budget violation
// (§4.9: "honour a ContextBudgetError ... by terminating the stream").
func ProcessStream(tracker *cost.Tracker, hasPlan bool, msgs []cost.Message) error {
	for _, msg := range msgs {
		if err := tracker.EnforcePlanRequirement(hasPlan); err != nil {
			return err
		}
		tracker.ProcessMessage(msg)
	}
	return nil
}

// ModelBackends names the concrete model.Client backends a Runner
// implementation selects from (§2.2/§4.9).
type ModelBackends struct {
	Anthropic model.Client
}

// NewAnthropicBackend builds the Anthropic-backed model.Client used as the
// default ModelBackends.Anthropic entry, reading credentials from apiKey
// rather than the environment so callers control secret sourcing.
func NewAnthropicBackend(apiKey, defaultModel string) (model.Client, error) {
	client, err := anthropic.NewFromAPIKey(apiKey, defaultModel)
	if err != nil {
		return nil, sdlcerrors.Wrap(sdlcerrors.KindConfiguration, "runner: anthropic backend construction failed", err)
	}
	return client, nil
}
