package rpi

import (
	"context"

	"github.com/sdlc-agents/orchestrator/runtime/agent/compactor"
	"github.com/sdlc-agents/orchestrator/runtime/agent/session"
)

// simulatedResearchTokens is the token count attributed to a research task
// when no spawnSubagentFn is injected (test mode).
const simulatedResearchTokens = 5000

// researchTask binds a fixed research task name to the tool subset a
// sub-agent spawned for it is allowed to use (§4.8.1).
type researchTask struct {
	name  string
	tools []string
}

var researchTaskList = []researchTask{
	{name: "codebase_search", tools: []string{"Read", "Grep", "Glob", "list_symbols"}},
	{name: "pattern_analysis", tools: []string{"Read", "Grep", "find_definition"}},
	{name: "dependency_check", tools: []string{"Read", "Glob", "get_call_graph"}},
}

// SpawnResult is what an injected spawnSubagentFn reports back for one
// research task; its fields map directly onto firewall.CompleteContext's
// arguments (§3.1 FirewallResult).
type SpawnResult struct {
	Success        bool
	Summary        string
	KeyFindings    []string
	FileReferences []string
	TokensConsumed int
	TurnsUsed      int
	Error          string
}

// ResearchContext aggregates the findings gathered across every research
// task (§4.8.1).
type ResearchContext struct {
	Findings      []compactor.Finding
	FilesExplored []string
	TotalTokens   int
}

// ResearchPhase runs researchPhase(objective, parentSession?, scope?,
// maxSubagents) (§4.8.1): it transitions to RESEARCH, runs the fixed ordered
// research task list capped to maxSubagents, forking and tracking an
// isolated sub-session per task when a parent session is supplied, and
// aggregates every task's findings into a ResearchContext. Every forked
// sub-session is terminated (complete or cancel) before this method
// returns.
func (w *Workflow) ResearchPhase(ctx context.Context, objective string, parent *SessionForker, maxSubagents int) (ResearchContext, error) {
	w.transition(StateResearch)

	if maxSubagents <= 0 || maxSubagents > len(researchTaskList) {
		maxSubagents = len(researchTaskList)
	}
	tasks := researchTaskList[:maxSubagents]

	research := ResearchContext{}
	for _, task := range tasks {
		result, err := w.runResearchTask(ctx, task, objective, parent)
		if err != nil {
			return research, err
		}
		if !result.Success {
			continue
		}
		research.Findings = append(research.Findings, findingsFromResult(task, result)...)
		research.FilesExplored = append(research.FilesExplored, result.FileReferences...)
		research.TotalTokens += result.TokensConsumed
	}
	return research, nil
}

// runResearchTask runs a single research task, forking+tracking a
// sub-session via the Firewall (C4) when a parent is supplied, and always
// terminating that fork (complete or cancel) before returning.
func (w *Workflow) runResearchTask(ctx context.Context, task researchTask, objective string, parent *SessionForker) (SpawnResult, error) {
	if parent == nil || w.firewall == nil {
		return w.spawn(ctx, task, objective)
	}

	fork, err := w.firewall.CreateIsolatedContext(parent.SessionContext, objective, task.tools, parent.MaxTokens, parent.MaxTurns)
	if err != nil {
		return SpawnResult{}, err
	}

	result, spawnErr := w.spawn(ctx, task, objective)
	if spawnErr != nil {
		w.firewall.CancelContext(fork.SessionID)
		return SpawnResult{}, spawnErr
	}
	if !result.Success {
		if _, err := w.firewall.CompleteContextWithError(fork.SessionID, result.Error, result.TokensConsumed, result.TurnsUsed); err != nil {
			return SpawnResult{}, err
		}
		return result, nil
	}
	if _, err := w.firewall.CompleteContext(fork.SessionID, result.Summary, result.KeyFindings, result.FileReferences, result.TokensConsumed, result.TurnsUsed); err != nil {
		return SpawnResult{}, err
	}
	return result, nil
}

// spawn calls the injected spawnSubagentFn, or simulates a fixed-size
// result when none is configured (test mode, §4.8.1).
func (w *Workflow) spawn(ctx context.Context, task researchTask, objective string) (SpawnResult, error) {
	if w.spawnSubagentFn == nil {
		return SpawnResult{
			Success:        true,
			Summary:        "simulated research for " + task.name,
			TokensConsumed: simulatedResearchTokens,
			TurnsUsed:      1,
		}, nil
	}
	return w.spawnSubagentFn(ctx, task.name, objective, task.tools)
}

func findingsFromResult(task researchTask, result SpawnResult) []compactor.Finding {
	findings := make([]compactor.Finding, 0, len(result.KeyFindings))
	for _, content := range result.KeyFindings {
		findings = append(findings, compactor.Finding{
			Content:        content,
			Source:         task.name,
			RelevanceScore: 1,
			Category:       task.name,
		})
	}
	return findings
}

// SessionForker is the minimal view of a parent session ResearchPhase needs
// in order to fork and track sub-sessions through the Firewall (C4/C5).
type SessionForker struct {
	SessionContext *session.SessionContext
	MaxTokens      int
	MaxTurns       int
}
