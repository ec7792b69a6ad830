package cost_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdlc-agents/orchestrator/runtime/agent/cost"
	"github.com/sdlc-agents/orchestrator/runtime/agent/model"
	"github.com/sdlc-agents/orchestrator/runtime/agent/sdlcerrors"
)

func f64(v float64) *float64 { return &v }

func TestDedup(t *testing.T) {
	tr := cost.New(cost.Options{Model: "claude-sonnet-4-20250514", MaxTokens: 100000})

	tr.ProcessMessage(cost.Message{ID: "msg-1", Usage: &model.TokenUsage{InputTokens: 100, OutputTokens: 100}})
	tr.ProcessMessage(cost.Message{ID: "msg-1", Usage: &model.TokenUsage{InputTokens: 100, OutputTokens: 100}})

	s := tr.GetSummary()
	assert.Equal(t, 100, s.InputTokens)
	assert.Equal(t, 100, s.OutputTokens)
	assert.Equal(t, 1, s.StepCount)
}

func TestAuthoritativeOverwrite(t *testing.T) {
	tr := cost.New(cost.Options{Model: "claude-sonnet-4-20250514", MaxTokens: 100000})

	tr.ProcessMessage(cost.Message{ID: "a", Usage: &model.TokenUsage{InputTokens: 10, OutputTokens: 10}})
	tr.ProcessMessage(cost.Message{ID: "b", Usage: &model.TokenUsage{InputTokens: 20, OutputTokens: 20}})
	tr.ProcessMessage(cost.Message{
		TotalCostUSD: f64(1.23),
		Usage:        &model.TokenUsage{InputTokens: 1000, OutputTokens: 500},
	})

	s := tr.GetSummary()
	require.NotNil(t, s.ActualCostUSD)
	assert.Equal(t, 1.23, *s.ActualCostUSD)
	assert.Equal(t, 1000, s.InputTokens)
	assert.Equal(t, 500, s.OutputTokens)
}

func TestHealthThresholds(t *testing.T) {
	tr := cost.New(cost.Options{MaxTokens: 1000})
	tr.ProcessMessage(cost.Message{ID: "1", Usage: &model.TokenUsage{InputTokens: 500}})
	assert.Equal(t, cost.HealthHealthy, tr.CheckContextHealth())

	tr2 := cost.New(cost.Options{MaxTokens: 1000})
	tr2.ProcessMessage(cost.Message{ID: "1", Usage: &model.TokenUsage{InputTokens: 900}})
	assert.Equal(t, cost.HealthCritical, tr2.CheckContextHealth())

	tr3 := cost.New(cost.Options{MaxTokens: 1000})
	tr3.ProcessMessage(cost.Message{ID: "1", Usage: &model.TokenUsage{InputTokens: 960}})
	assert.Equal(t, cost.HealthSaturated, tr3.CheckContextHealth())
}

func TestMaxTokensZeroGuardsDivisionByZero(t *testing.T) {
	tr := cost.New(cost.Options{MaxTokens: 0})
	tr.ProcessMessage(cost.Message{ID: "1", Usage: &model.TokenUsage{InputTokens: 5000}})
	assert.Equal(t, 0.0, tr.TokenUtilization())
	assert.Equal(t, cost.HealthHealthy, tr.CheckContextHealth())
}

func TestEnforcePlanRequirementDumbZone(t *testing.T) {
	tr := cost.New(cost.Options{MaxTokens: 1000})
	tr.ProcessMessage(cost.Message{ID: "1", Usage: &model.TokenUsage{InputTokens: 960}})

	err := tr.EnforcePlanRequirement(false)
	require.Error(t, err)
	assert.Equal(t, sdlcerrors.KindBudget, sdlcerrors.KindOf(err))

	tr.SetHasPlan(true)
	assert.NoError(t, tr.EnforcePlanRequirement(false))
}

func TestRecordCompactionFloorsAtZero(t *testing.T) {
	tr := cost.New(cost.Options{MaxTokens: 1000})
	tr.ProcessMessage(cost.Message{ID: "1", Usage: &model.TokenUsage{InputTokens: 50, CacheReadTokens: 10}})

	tr.RecordCompaction(1000)
	s := tr.GetSummary()
	assert.Equal(t, 0, s.InputTokens)
	assert.Equal(t, 0, s.CacheReadTokens)
	assert.Equal(t, 1, s.CompactionCount)
}

func TestBudgetExceeded(t *testing.T) {
	budget := 0.001
	tr := cost.New(cost.Options{Model: "claude-sonnet-4-20250514", MaxTokens: 100000, BudgetUSD: &budget})
	assert.False(t, tr.BudgetExceeded())

	tr.ProcessMessage(cost.Message{ID: "1", Usage: &model.TokenUsage{InputTokens: 1000, OutputTokens: 500}})
	assert.True(t, tr.BudgetExceeded())
	assert.True(t, tr.GetSummary().BudgetExceeded)
}
