// Package cost implements per-session token/cost accounting and the context-health
// gate that prevents an agent from writing code once its working set is full of
// unstructured research (the "Dumb Zone").
package cost

import (
	"sync"

	"github.com/sdlc-agents/orchestrator/runtime/agent/model"
	"github.com/sdlc-agents/orchestrator/runtime/agent/sdlcerrors"
)

// Health is a four-level classification of token utilization.
type Health string

const (
	HealthHealthy   Health = "healthy"
	HealthWarning   Health = "warning"
	HealthCritical  Health = "critical"
	HealthSaturated Health = "saturated"
)

const (
	warningThreshold   = 0.70
	criticalThreshold  = 0.85
	saturatedThreshold = 0.95

	maxHealthHistory = 200
)

// StepUsage records the token usage attributed to a single processed message.
type StepUsage struct {
	MessageID string
	Usage     model.TokenUsage
}

// Message is the subset of an LLM stream event the tracker needs to account for
// usage. TotalCostUSD is only set on the authoritative, stream-terminal message
// that carries the provider's own billing figure.
type Message struct {
	ID           string
	Usage        *model.TokenUsage
	TotalCostUSD *float64
}

// Summary is a point-in-time snapshot of a Tracker's state.
type Summary struct {
	InputTokens      int
	OutputTokens     int
	CacheReadTokens  int
	CacheWriteTokens int
	TotalTokens      int
	EstimatedCostUSD float64
	ActualCostUSD    *float64
	BudgetUSD        *float64
	BudgetExceeded   bool
	Health           Health
	Utilization      float64
	HasPlan          bool
	CompactionCount  int
	StepCount        int
}

// Tracker accounts tokens and cost for a single SessionContext. All mutating
// methods hold a single mutex so O-1 (per-tracker serialized message processing)
// and O-2 (recordCompaction never interleaves with processMessage) hold by
// construction; callers never need an external lock.
type Tracker struct {
	mu sync.Mutex

	sessionID string
	model     string
	maxTokens int
	budgetUSD *float64

	inputTokens      int
	outputTokens     int
	cacheReadTokens  int
	cacheWriteTokens int

	estimatedCostUSD float64
	actualCostUSD    *float64

	processedMessageIDs map[string]struct{}
	stepUsages          []StepUsage

	hasPlan         bool
	compactionCount int

	healthHistory []Health
}

// Options configures a new Tracker.
type Options struct {
	SessionID string
	Model     string
	MaxTokens int
	BudgetUSD *float64
}

// New constructs a Tracker for a single SessionContext.
func New(opts Options) *Tracker {
	return &Tracker{
		sessionID:           opts.SessionID,
		model:               opts.Model,
		maxTokens:           opts.MaxTokens,
		budgetUSD:           opts.BudgetUSD,
		processedMessageIDs: make(map[string]struct{}),
	}
}

// ProcessMessage ingests one message from the LLM stream. See the Cost Tracker
// contract for the dedup (I-3) and authoritative-overwrite (I-4) semantics.
func (t *Tracker) ProcessMessage(msg Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if msg.TotalCostUSD != nil && msg.Usage != nil {
		t.inputTokens = msg.Usage.InputTokens
		t.outputTokens = msg.Usage.OutputTokens
		t.cacheReadTokens = msg.Usage.CacheReadTokens
		t.cacheWriteTokens = msg.Usage.CacheWriteTokens
		t.estimatedCostUSD = t.calculateCost()
		cost := *msg.TotalCostUSD
		t.actualCostUSD = &cost
		return
	}

	if msg.Usage == nil || msg.ID == "" {
		return
	}
	if _, seen := t.processedMessageIDs[msg.ID]; seen {
		return
	}

	t.processedMessageIDs[msg.ID] = struct{}{}
	t.stepUsages = append(t.stepUsages, StepUsage{MessageID: msg.ID, Usage: *msg.Usage})
	t.inputTokens += msg.Usage.InputTokens
	t.outputTokens += msg.Usage.OutputTokens
	t.cacheReadTokens += msg.Usage.CacheReadTokens
	t.cacheWriteTokens += msg.Usage.CacheWriteTokens
	t.estimatedCostUSD = t.calculateCost()
}

func (t *Tracker) calculateCost() float64 {
	p := PricingFor(t.model)
	return float64(t.inputTokens)/1000*p.InputPer1K +
		float64(t.outputTokens)/1000*p.OutputPer1K +
		float64(t.cacheReadTokens)/1000*p.CacheReadPer1K +
		float64(t.cacheWriteTokens)/1000*p.CacheCreatePer1K
}

func (t *Tracker) currentCost() float64 {
	if t.actualCostUSD != nil {
		return *t.actualCostUSD
	}
	return t.estimatedCostUSD
}

// BudgetExceeded reports whether current cost has reached or passed BudgetUSD.
// A nil budget never triggers this.
func (t *Tracker) BudgetExceeded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.budgetUSD == nil {
		return false
	}
	return t.currentCost() >= *t.budgetUSD
}

func (t *Tracker) totalTokensLocked() int {
	return t.inputTokens + t.outputTokens + t.cacheReadTokens + t.cacheWriteTokens
}

// TokenUtilization returns totalTokens/maxTokens, guarding division by zero.
func (t *Tracker) TokenUtilization() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.maxTokens == 0 {
		return 0.0
	}
	return float64(t.totalTokensLocked()) / float64(t.maxTokens)
}

// CheckContextHealth classifies current utilization into a Health bucket per
// I-5, and appends the result to a bounded history.
func (t *Tracker) CheckContextHealth() Health {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.checkContextHealthLocked()
}

func (t *Tracker) checkContextHealthLocked() Health {
	u := 0.0
	if t.maxTokens != 0 {
		u = float64(t.totalTokensLocked()) / float64(t.maxTokens)
	}

	var h Health
	switch {
	case u >= saturatedThreshold:
		h = HealthSaturated
	case u >= criticalThreshold:
		h = HealthCritical
	case u >= warningThreshold:
		h = HealthWarning
	default:
		h = HealthHealthy
	}

	t.healthHistory = append(t.healthHistory, h)
	if len(t.healthHistory) > maxHealthHistory {
		t.healthHistory = t.healthHistory[len(t.healthHistory)-maxHealthHistory:]
	}
	return h
}

// EnforcePlanRequirement implements the Dumb-Zone guard: when context health is
// critical or saturated and neither hasPlan nor the tracker's internal flag is
// set, work must stop with a budget error.
func (t *Tracker) EnforcePlanRequirement(hasPlan bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := t.checkContextHealthLocked()
	if (h == HealthCritical || h == HealthSaturated) && !hasPlan && !t.hasPlan {
		return sdlcerrors.Newf(sdlcerrors.KindBudget,
			"context health is %s with no compacted plan: refusing further work (Dumb Zone guard)", h)
	}
	return nil
}

// SetHasPlan records that a compacted plan artefact now exists for this session.
func (t *Tracker) SetHasPlan(hasPlan bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hasPlan = hasPlan
}

// RecordCompaction models a compacted plan replacing raw research in the working
// set: inputTokens decrements by tokensSaved, cacheReadTokens by tokensSaved/2,
// both floored at zero. Must not interleave with ProcessMessage (O-2); the shared
// mutex enforces this.
func (t *Tracker) RecordCompaction(tokensSaved int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.inputTokens = floorZero(t.inputTokens - tokensSaved)
	t.cacheReadTokens = floorZero(t.cacheReadTokens - tokensSaved/2)
	t.compactionCount++
}

func floorZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// GetSummary returns a snapshot of the tracker's current state.
func (t *Tracker) GetSummary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := t.checkContextHealthLocked()
	u := 0.0
	if t.maxTokens != 0 {
		u = float64(t.totalTokensLocked()) / float64(t.maxTokens)
	}

	var budgetExceeded bool
	if t.budgetUSD != nil {
		budgetExceeded = t.currentCost() >= *t.budgetUSD
	}

	return Summary{
		InputTokens:      t.inputTokens,
		OutputTokens:     t.outputTokens,
		CacheReadTokens:  t.cacheReadTokens,
		CacheWriteTokens: t.cacheWriteTokens,
		TotalTokens:      t.totalTokensLocked(),
		EstimatedCostUSD: t.estimatedCostUSD,
		ActualCostUSD:    t.actualCostUSD,
		BudgetUSD:        t.budgetUSD,
		BudgetExceeded:   budgetExceeded,
		Health:           h,
		Utilization:      u,
		HasPlan:          t.hasPlan,
		CompactionCount:  t.compactionCount,
		StepCount:        len(t.stepUsages),
	}
}

// StepUsages returns a defensive copy of the ordered per-message usage records.
func (t *Tracker) StepUsages() []StepUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]StepUsage, len(t.stepUsages))
	copy(out, t.stepUsages)
	return out
}
