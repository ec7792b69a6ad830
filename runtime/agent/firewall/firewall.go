// Package firewall implements the Context Firewall (C4): it registers,
// tracks, and finalizes sub-agent session forks, and guarantees that only
// the explicitly distilled result of a fork — never its raw operational
// state — ever crosses back into a parent's context.
package firewall

import (
	"strings"
	"sync"

	"github.com/sdlc-agents/orchestrator/runtime/agent/sdlcerrors"
	"github.com/sdlc-agents/orchestrator/runtime/agent/session"
)

const defaultMaxActiveContexts = 10

const tokensPerWord = 1.3

// Result is the distilled artefact returned from a completed sub-session
// (§3.1 FirewallResult). tokensReturned << tokensConsumed by construction:
// only what is explicitly passed to CompleteContext ever reaches the parent.
type Result struct {
	Success        bool
	ContextID      string
	Summary        string
	KeyFindings    []string
	FileReferences []string
	TokensConsumed int
	TokensReturned int
	TurnsUsed      int
	Error          string
}

// Options configures a Firewall.
type Options struct {
	MaxActiveContexts int
	OnContextCreated  func(sessionID string)
	OnContextCompleted func(result Result)
}

// Firewall tracks active sub-agent forks and the completed results they
// produce. Safe for concurrent use.
type Firewall struct {
	mu sync.RWMutex

	maxActive int
	onCreated func(sessionID string)
	onDone    func(result Result)

	activeForks map[string]*session.SessionContext
	results     map[string]Result
}

// New constructs a Firewall.
func New(opts Options) *Firewall {
	maxActive := opts.MaxActiveContexts
	if maxActive == 0 {
		maxActive = defaultMaxActiveContexts
	}
	return &Firewall{
		maxActive:   maxActive,
		onCreated:   opts.OnContextCreated,
		onDone:      opts.OnContextCompleted,
		activeForks: make(map[string]*session.SessionContext),
		results:     make(map[string]Result),
	}
}

// TrackFork registers a sub-agent fork as active. Rejects non-subagent
// contexts and rejects once the number of active forks has reached
// maxActiveContexts (G-2: bounded fan-out).
func (f *Firewall) TrackFork(sc *session.SessionContext) error {
	if !sc.IsSubagent {
		return sdlcerrors.New(sdlcerrors.KindFirewall, "firewall: only sub-agent contexts may be tracked")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.results[sc.SessionID]; exists {
		// G-3: no resurrection once completed. CancelContext records no result,
		// so a cancelled session id is not blocked here and can be tracked again.
		return sdlcerrors.Newf(sdlcerrors.KindFirewall, "firewall: context %s already completed, cannot be re-tracked", sc.SessionID)
	}
	if len(f.activeForks) >= f.maxActive {
		return sdlcerrors.Newf(sdlcerrors.KindFirewall, "firewall: max active contexts (%d) reached", f.maxActive)
	}

	f.activeForks[sc.SessionID] = sc
	if f.onCreated != nil {
		f.onCreated(sc.SessionID)
	}
	return nil
}

// CreateIsolatedContext is a thin wrapper: it forks parent via
// CreateIsolatedFork, then tracks the fork.
func (f *Firewall) CreateIsolatedContext(parent *session.SessionContext, objective string, allowedTools []string, maxTokens, maxTurns int) (*session.SessionContext, error) {
	fork := parent.CreateIsolatedFork(objective, allowedTools, session.ForkOptions{MaxTurns: maxTurns, MaxTokens: maxTokens})
	if err := f.TrackFork(fork); err != nil {
		return nil, err
	}
	return fork, nil
}

// CompleteContext is the Kill Switch: it removes sessionID from the active
// set, estimates tokensReturned from the text actually being returned,
// stores the Result, fires OnContextCompleted, and returns it. After this
// call the fork's operational SessionContext is no longer reachable through
// the firewall — only the returned Result is (G-1: containment).
func (f *Firewall) CompleteContext(sessionID, summary string, findings, fileReferences []string, tokensConsumed, turnsUsed int) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.activeForks[sessionID]; !ok {
		return Result{}, sdlcerrors.Newf(sdlcerrors.KindFirewall, "firewall: no active context %s", sessionID)
	}
	delete(f.activeForks, sessionID)

	result := Result{
		Success:        true,
		ContextID:      sessionID,
		Summary:        summary,
		KeyFindings:    append([]string{}, findings...),
		FileReferences: append([]string{}, fileReferences...),
		TokensConsumed: tokensConsumed,
		TokensReturned: estimateTokensReturned(summary, findings, fileReferences),
		TurnsUsed:      turnsUsed,
	}
	f.results[sessionID] = result
	if f.onDone != nil {
		f.onDone(result)
	}
	return result, nil
}

// CompleteContextWithError is CompleteContext's failure counterpart: the
// fork ran but did not succeed. findings/fileReferences may be empty.
func (f *Firewall) CompleteContextWithError(sessionID, errMsg string, tokensConsumed, turnsUsed int) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.activeForks[sessionID]; !ok {
		return Result{}, sdlcerrors.Newf(sdlcerrors.KindFirewall, "firewall: no active context %s", sessionID)
	}
	delete(f.activeForks, sessionID)

	result := Result{
		Success:        false,
		ContextID:      sessionID,
		TokensConsumed: tokensConsumed,
		TokensReturned: estimateTokensReturned(errMsg, nil, nil),
		TurnsUsed:      turnsUsed,
		Error:          errMsg,
	}
	f.results[sessionID] = result
	if f.onDone != nil {
		f.onDone(result)
	}
	return result, nil
}

// CancelContext drops an active fork without ever emitting a Result.
func (f *Firewall) CancelContext(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.activeForks, sessionID)
}

// GetFork returns the active fork for sessionID, if any.
func (f *Firewall) GetFork(sessionID string) (*session.SessionContext, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	sc, ok := f.activeForks[sessionID]
	return sc, ok
}

// GetResult returns the completed Result for sessionID, if any.
func (f *Firewall) GetResult(sessionID string) (Result, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	r, ok := f.results[sessionID]
	return r, ok
}

// GetActiveForks lists the session ids of all currently active forks.
func (f *Firewall) GetActiveForks() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.activeForks))
	for id := range f.activeForks {
		out = append(out, id)
	}
	return out
}

// GetSummaryForParent formats a completed context's Result as Markdown for
// injection into the parent agent's context.
func (f *Firewall) GetSummaryForParent(contextID string) (string, bool) {
	result, ok := f.GetResult(contextID)
	if !ok {
		return "", false
	}

	var sb strings.Builder
	sb.WriteString("## Sub-Agent Result\n\n")
	sb.WriteString(result.Summary)
	sb.WriteString("\n")

	if len(result.KeyFindings) > 0 {
		sb.WriteString("\n### Findings\n\n")
		for _, finding := range result.KeyFindings {
			sb.WriteString("- ")
			sb.WriteString(finding)
			sb.WriteString("\n")
		}
	}

	if len(result.FileReferences) > 0 {
		sb.WriteString("\n### References\n\n")
		for _, ref := range result.FileReferences {
			sb.WriteString("- ")
			sb.WriteString(ref)
			sb.WriteString("\n")
		}
	}

	return sb.String(), true
}

func estimateTokensReturned(summary string, findings, fileReferences []string) int {
	words := len(strings.Fields(summary))
	for _, f := range findings {
		words += len(strings.Fields(f))
	}
	for _, r := range fileReferences {
		words += len(strings.Fields(r))
	}
	return int(float64(words) * tokensPerWord)
}
