package planner

import "github.com/sdlc-agents/orchestrator/runtime/agent/tools"

// RetryHintProvider can be implemented by domain-specific errors that want
// to surface structured retry guidance to the runtime. A tool executor can
// detect this interface and attach the provided RetryHint to ToolResult
// so policies and UIs can react without relying on string parsing. No
// executor in this module checks for it.
type RetryHintProvider interface {
	RetryHint(tool tools.Ident) *RetryHint
}



