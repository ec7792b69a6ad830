package compactor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdlc-agents/orchestrator/runtime/agent/compactor"
)

func TestAddFindingFiltersByRelevanceButAlwaysCountsTokens(t *testing.T) {
	c := compactor.New(compactor.Options{MinRelevance: 0.5})

	c.AddFinding(compactor.Finding{Content: "irrelevant noise here", RelevanceScore: 0.1, Source: "a.go"})
	c.AddFinding(compactor.Finding{Content: "important constraint must hold", RelevanceScore: 0.9, Source: "b.go", Category: "auth"})

	res := c.Compact(compactor.StrategySummarize, "")
	// Token accounting includes the filtered-out finding too (preserved quirk).
	assert.Greater(t, res.OriginalTokenCount, 0)
	assert.Len(t, res.Summary, 2) // 1 key point + 1 "Source files" line
}

func TestAddFindingCapsAtMaxFindings(t *testing.T) {
	c := compactor.New(compactor.Options{MaxFindings: 2})
	for i := 0; i < 5; i++ {
		c.AddFinding(compactor.Finding{Content: "finding text", RelevanceScore: 1, Source: "f.go"})
	}
	res := c.Compact(compactor.StrategySummarize, "")
	// Only 2 key points retained, plus 1 "Source files" summary line.
	assert.Len(t, res.Summary, 3)
}

func TestSummarizeStrategy(t *testing.T) {
	c := compactor.New(compactor.Options{})
	c.AddFinding(compactor.Finding{Content: "the handler validates input", RelevanceScore: 0.8, Source: "handler.go"})
	c.AddFinding(compactor.Finding{Content: "the router dispatches requests", RelevanceScore: 0.7, Source: "router.go"})

	res := c.Compact(compactor.StrategySummarize, "")
	require.Len(t, res.Summary, 3)
	assert.Contains(t, res.Summary[2], "handler.go")
	assert.Contains(t, res.Summary[2], "router.go")
}

func TestExtractStrategyClassifiesConstraintsAndDependencies(t *testing.T) {
	c := compactor.New(compactor.Options{})
	c.AddFinding(compactor.Finding{Content: "This field is required and cannot be empty", RelevanceScore: 0.9, Source: "a.go"})
	c.AddFinding(compactor.Finding{Content: "imports the logging package", RelevanceScore: 0.9, Source: "b.go"})

	res := c.Compact(compactor.StrategyExtract, "")
	require.NotNil(t, res.Extract)
	assert.Len(t, res.Extract.References, 2)
	assert.Len(t, res.Extract.Constraints, 1)
	// "required" contains the keyword "require", so both findings count as dependencies.
	assert.Len(t, res.Extract.Dependencies, 2)
}

func TestHierarchicalStrategyGroupsByCategoryTop5(t *testing.T) {
	c := compactor.New(compactor.Options{})
	for i := 0; i < 7; i++ {
		c.AddFinding(compactor.Finding{Content: "auth finding", RelevanceScore: 0.5 + float64(i)/20, Source: "auth.go", Category: "auth"})
	}
	res := c.Compact(compactor.StrategyHierarchical, "")
	// Only top 5 per category survive, even though 7 were added.
	assert.Len(t, res.Hierarchical, 5)
	for _, line := range res.Hierarchical {
		assert.Contains(t, line, "[auth]")
	}
}

func TestPlanStrategyGroupsBySourceFile(t *testing.T) {
	c := compactor.New(compactor.Options{})
	c.AddFinding(compactor.Finding{Content: "finding 1", RelevanceScore: 0.9, Source: "a.go"})
	c.AddFinding(compactor.Finding{Content: "finding 2", RelevanceScore: 0.9, Source: "a.go"})
	c.AddFinding(compactor.Finding{Content: "finding 3", RelevanceScore: 0.9, Source: "b.go"})

	res := c.Compact(compactor.StrategyPlan, "fix the bug")
	require.NotNil(t, res.Plan)
	assert.Equal(t, "fix the bug", res.Plan.Objective)
	assert.Len(t, res.Plan.Steps, 2)
	assert.ElementsMatch(t, []string{"a.go", "b.go"}, res.Plan.TargetFiles)
	assert.Equal(t, []string{compactor.DefaultTestCommand}, res.Plan.TestCommands)
	assert.Contains(t, res.Plan.Steps[0].Details, "finding")
}

func TestCompactReportsCompressionMetrics(t *testing.T) {
	c := compactor.New(compactor.Options{})
	c.AddFinding(compactor.Finding{Content: "a very long finding with many words describing behavior in detail", RelevanceScore: 0.9, Source: "a.go"})

	res := c.Compact(compactor.StrategySummarize, "")
	assert.GreaterOrEqual(t, res.TokensSaved, 0)
	assert.LessOrEqual(t, res.CompressionRatio, 1.0)
}

func TestResetClearsFindingsAndTokenCount(t *testing.T) {
	c := compactor.New(compactor.Options{})
	c.AddFinding(compactor.Finding{Content: "something", RelevanceScore: 0.9, Source: "a.go"})
	c.Reset()

	res := c.Compact(compactor.StrategySummarize, "")
	assert.Equal(t, 0, res.OriginalTokenCount)
	assert.Empty(t, res.Summary)
}
