// Package session implements the Session Context & Isolated Forking
// component (C5): the per-task execution envelope agents run inside, and the
// mechanism ("createIsolatedFork") by which a parent context spins up a
// resource-bounded sub-agent context without leaking conversation history,
// accumulated findings, or its own tool list into the fork.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sdlc-agents/orchestrator/runtime/agent/sdlcerrors"
)

// IsolationLevel describes how strictly a context is separated from its
// parent.
type IsolationLevel string

const (
	// IsolationFull is used by every sub-agent fork: no shared mutable state
	// beyond the explicitly inherited references.
	IsolationFull IsolationLevel = "full"
	// IsolationShared marks the root, non-forked session.
	IsolationShared IsolationLevel = "shared"
)

const (
	defaultForkMaxTurns  = 10
	defaultForkMaxTokens = 30000
)

// ExternalClients bundles the guarded external-service clients a session (and
// every fork of it) shares by reference. A nil field means that service was
// never configured for this repo — callers must treat absence as "fewer
// registered tools", never as a fatal condition (§4.7).
type ExternalClients struct {
	GitHub     any
	Linear     any
	Navigation any
	Docker     any
}

// SessionContext is the execution envelope an agent (or sub-agent) runs
// inside. See SPEC_FULL.md §3.1 for the full field contract.
type SessionContext struct {
	mu sync.Mutex

	SessionID       string
	ParentSessionID string
	IsSubagent      bool
	IsolationLevel  IsolationLevel

	RepoID        string
	RepoURL       string
	RepoOwner     string
	RepoName      string
	CurrentBranch string

	TicketID string

	MaxTurns       int
	MaxTokens      int
	tokensConsumed int

	// References shared across forks, never copied.
	ProjectConfig   any
	MemoryPath      string
	ToolRegistry    any
	ExternalClients *ExternalClients

	Tools []string

	CreatedAt time.Time
}

// New constructs a root (non-subagent) SessionContext.
func New(sessionID string, opts ...Option) *SessionContext {
	sc := &SessionContext{
		SessionID:      sessionID,
		IsolationLevel: IsolationShared,
		MaxTurns:       defaultForkMaxTurns,
		MaxTokens:      defaultForkMaxTokens,
		CreatedAt:      time.Now(),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// Option configures a SessionContext at construction.
type Option func(*SessionContext)

func WithRepoBinding(repoID, repoURL, repoOwner, repoName, branch string) Option {
	return func(sc *SessionContext) {
		sc.RepoID, sc.RepoURL, sc.RepoOwner, sc.RepoName, sc.CurrentBranch = repoID, repoURL, repoOwner, repoName, branch
	}
}

func WithTicketID(ticketID string) Option {
	return func(sc *SessionContext) { sc.TicketID = ticketID }
}

func WithProjectConfig(cfg any) Option {
	return func(sc *SessionContext) { sc.ProjectConfig = cfg }
}

func WithMemoryPath(path string) Option {
	return func(sc *SessionContext) { sc.MemoryPath = path }
}

func WithToolRegistry(registry any) Option {
	return func(sc *SessionContext) { sc.ToolRegistry = registry }
}

func WithExternalClients(clients *ExternalClients) Option {
	return func(sc *SessionContext) { sc.ExternalClients = clients }
}

func WithTools(tools []string) Option {
	return func(sc *SessionContext) { sc.Tools = tools }
}

func WithResourceLimits(maxTurns, maxTokens int) Option {
	return func(sc *SessionContext) { sc.MaxTurns, sc.MaxTokens = maxTurns, maxTokens }
}

// ForkOptions configures CreateIsolatedFork. MaxTurns/MaxTokens default to
// 10/30000 when zero.
type ForkOptions struct {
	MaxTurns  int
	MaxTokens int
}

// CreateIsolatedFork spins up a sub-agent SessionContext bound to the given
// objective and tool subset (§4.5):
//
//  1. a new id of the shape "<parentId|main>-sub-<8 hex chars>";
//  2. repo binding, project config, memory path, tool registry, and external
//     clients are inherited BY REFERENCE;
//  3. tools are filtered to exactly the subset named in the tools argument
//     (principle of least privilege) — never the parent's full tool list;
//  4. resource counters are reset to zero and bounded by the fork's own
//     maxTurns/maxTokens;
//  5. conversation history, accumulated findings, and CostTracker state are
//     NOT copied — a fresh fork starts with none of that context.
func (sc *SessionContext) CreateIsolatedFork(objective string, tools []string, opts ForkOptions) *SessionContext {
	maxTurns := opts.MaxTurns
	if maxTurns == 0 {
		maxTurns = defaultForkMaxTurns
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultForkMaxTokens
	}

	parentID := sc.SessionID
	if parentID == "" {
		parentID = "main"
	}

	filtered := make([]string, len(tools))
	copy(filtered, tools)

	return &SessionContext{
		SessionID:       forkID(parentID),
		ParentSessionID: sc.SessionID,
		IsSubagent:      true,
		IsolationLevel:  IsolationFull,

		RepoID:        sc.RepoID,
		RepoURL:       sc.RepoURL,
		RepoOwner:     sc.RepoOwner,
		RepoName:      sc.RepoName,
		CurrentBranch: sc.CurrentBranch,

		TicketID: sc.TicketID,

		MaxTurns:       maxTurns,
		MaxTokens:      maxTokens,
		tokensConsumed: 0,

		ProjectConfig:   sc.ProjectConfig,
		MemoryPath:      sc.MemoryPath,
		ToolRegistry:    sc.ToolRegistry,
		ExternalClients: sc.ExternalClients,

		Tools: filtered,

		CreatedAt: time.Now(),
	}
}

func forkID(parentID string) string {
	return fmt.Sprintf("%s-sub-%s", parentID, uuid.New().String()[:8])
}

// TokensConsumed returns the running token counter.
func (sc *SessionContext) TokensConsumed() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.tokensConsumed
}

// ConsumeTokens adds n to the running counter. Enforces I-2: tokensConsumed
// must not exceed maxTokens on entry to a new turn; callers invoke this at
// turn boundaries and must treat the returned error as fatal to the turn.
func (sc *SessionContext) ConsumeTokens(n int) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.MaxTokens > 0 && sc.tokensConsumed > sc.MaxTokens {
		return sdlcerrors.Newf(sdlcerrors.KindBudget, "session %s: tokensConsumed %d exceeds maxTokens %d on turn entry", sc.SessionID, sc.tokensConsumed, sc.MaxTokens)
	}
	sc.tokensConsumed += n
	return nil
}

// Snapshot returns a deep-enough copy of sc suitable for handing to a Store:
// a fresh SessionContext with its own zero-value mutex and its own Tools
// slice, safe to mutate independently of sc.
func Snapshot(sc *SessionContext) *SessionContext {
	sc.mu.Lock()
	tokensConsumed := sc.tokensConsumed
	sc.mu.Unlock()

	tools := make([]string, len(sc.Tools))
	copy(tools, sc.Tools)

	return &SessionContext{
		SessionID:       sc.SessionID,
		ParentSessionID: sc.ParentSessionID,
		IsSubagent:      sc.IsSubagent,
		IsolationLevel:  sc.IsolationLevel,
		RepoID:          sc.RepoID,
		RepoURL:         sc.RepoURL,
		RepoOwner:       sc.RepoOwner,
		RepoName:        sc.RepoName,
		CurrentBranch:   sc.CurrentBranch,
		TicketID:        sc.TicketID,
		MaxTurns:        sc.MaxTurns,
		MaxTokens:       sc.MaxTokens,
		tokensConsumed:  tokensConsumed,
		ProjectConfig:   sc.ProjectConfig,
		MemoryPath:      sc.MemoryPath,
		ToolRegistry:    sc.ToolRegistry,
		ExternalClients: sc.ExternalClients,
		Tools:           tools,
		CreatedAt:       sc.CreatedAt,
	}
}

// Store persists SessionContext lifecycle snapshots. Optional: the
// orchestrator core runs entirely in memory. The implementation in this
// module is session/inmem, which keeps snapshots in process memory only.
type Store interface {
	Save(ctx context.Context, sc *SessionContext) error
	Load(ctx context.Context, sessionID string) (*SessionContext, error)
	Delete(ctx context.Context, sessionID string) error
}

// ErrSessionNotFound indicates a session does not exist in a Store.
var ErrSessionNotFound = errors.New("session not found")
