package compactor

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultTestCommand is used whenever a plan step (or the plan itself) does
// not carry an explicit test command.
const DefaultTestCommand = "go test ./..."

const (
	defaultMinRelevance = 0.5
	defaultMaxFindings  = 100
	tokensPerWord       = 1.3
)

// Options configures a Compactor.
type Options struct {
	MinRelevance float64
	MaxFindings  int
	TestCommand  string
}

// Compactor accumulates findings and compacts them on demand. Safe for
// concurrent use: readers of Compact never observe a slice a concurrent
// AddFinding is mutating, mirroring the defensive-copy discipline of
// runtime/agents/memory/inmem.Store.
type Compactor struct {
	mu sync.RWMutex

	minRelevance float64
	maxFindings  int
	testCommand  string

	findings      []Finding
	categoryIndex map[string][]Finding

	totalInputTokens int
}

// New constructs a Compactor with the given options, applying defaults for
// zero values.
func New(opts Options) *Compactor {
	minRelevance := opts.MinRelevance
	if minRelevance == 0 {
		minRelevance = defaultMinRelevance
	}
	maxFindings := opts.MaxFindings
	if maxFindings == 0 {
		maxFindings = defaultMaxFindings
	}
	testCommand := opts.TestCommand
	if testCommand == "" {
		testCommand = DefaultTestCommand
	}
	return &Compactor{
		minRelevance:  minRelevance,
		maxFindings:   maxFindings,
		testCommand:   testCommand,
		categoryIndex: make(map[string][]Finding),
	}
}

// estimateTokens is the shared rough token estimate: word count x 1.3.
func estimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return int(float64(len(strings.Fields(s))) * tokensPerWord)
}

// AddFinding records a finding. Token count of the input is accumulated
// unconditionally, before the relevance filter runs — this mirrors the
// reference implementation's behaviour of bumping its running input-token
// counter on every call, relevant or not, and is preserved deliberately (see
// DESIGN.md).
func (c *Compactor) AddFinding(f Finding) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalInputTokens += estimateTokens(f.Content)

	if f.RelevanceScore < c.minRelevance {
		return
	}
	if len(c.findings) >= c.maxFindings {
		return
	}
	c.findings = append(c.findings, f)
	c.categoryIndex[f.Category] = append(c.categoryIndex[f.Category], f)
}

// Reset clears all accumulated findings, for the start of the next research
// cycle.
func (c *Compactor) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.findings = nil
	c.categoryIndex = make(map[string][]Finding)
	c.totalInputTokens = 0
}

// Compact runs the given strategy over the accumulated findings.
func (c *Compactor) Compact(strategy Strategy, objective string) Result {
	start := time.Now()

	c.mu.RLock()
	sorted := make([]Finding, len(c.findings))
	copy(sorted, c.findings)
	categoryIndex := make(map[string][]Finding, len(c.categoryIndex))
	for k, v := range c.categoryIndex {
		cp := make([]Finding, len(v))
		copy(cp, v)
		categoryIndex[k] = cp
	}
	originalTokens := c.totalInputTokens
	testCommand := c.testCommand
	maxFindings := c.maxFindings
	c.mu.RUnlock()

	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].RelevanceScore > sorted[j].RelevanceScore })
	if len(sorted) > maxFindings {
		sorted = sorted[:maxFindings]
	}

	res := Result{Strategy: strategy, OriginalTokenCount: originalTokens}

	switch strategy {
	case StrategySummarize:
		res.Summary = summarize(sorted)
	case StrategyExtract:
		res.Extract = extract(sorted)
	case StrategyHierarchical:
		// Deliberately iterates the incrementally built category index, not
		// the truncated/sorted slice above — faithfully matching the
		// reference implementation's _compact_hierarchical (see DESIGN.md).
		res.Hierarchical = hierarchical(categoryIndex)
	case StrategyPlan:
		res.Plan = buildPlan(sorted, objective, testCommand)
	}

	res.CompactedTokenCount = compactedTokenCount(res)
	res.TokensSaved = res.OriginalTokenCount - res.CompactedTokenCount
	if res.TokensSaved < 0 {
		res.TokensSaved = 0
	}
	if res.OriginalTokenCount > 0 {
		res.CompressionRatio = 1 - float64(res.CompactedTokenCount)/float64(res.OriginalTokenCount)
	}
	res.CompactionTimeMs = time.Since(start).Milliseconds()

	return res
}

func compactedTokenCount(res Result) int {
	switch res.Strategy {
	case StrategySummarize:
		return estimateTokens(strings.Join(res.Summary, " "))
	case StrategyExtract:
		if res.Extract == nil {
			return 0
		}
		all := append(append(append([]string{}, res.Extract.References...), res.Extract.Constraints...), res.Extract.Dependencies...)
		return estimateTokens(strings.Join(all, " "))
	case StrategyHierarchical:
		return estimateTokens(strings.Join(res.Hierarchical, " "))
	case StrategyPlan:
		if res.Plan == nil {
			return 0
		}
		var sb strings.Builder
		for _, s := range res.Plan.Steps {
			sb.WriteString(s.Details)
			sb.WriteString(" ")
		}
		return estimateTokens(sb.String())
	default:
		return 0
	}
}
