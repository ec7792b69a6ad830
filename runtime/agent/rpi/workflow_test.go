package rpi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdlc-agents/orchestrator/runtime/agent/compactor"
	"github.com/sdlc-agents/orchestrator/runtime/agent/cost"
)

func TestNewWorkflowStartsIdle(t *testing.T) {
	w := New(Options{})
	assert.Equal(t, StateIdle, w.State())
	assert.False(t, w.CanImplement())
}

func TestPlanningPhaseTransitionsAndStoresPlan(t *testing.T) {
	c := compactor.New(compactor.Options{})
	tracker := cost.New(cost.Options{})
	w := New(Options{Compactor: c, CostTracker: tracker})

	research := ResearchContext{Findings: []compactor.Finding{
		{Content: "handler missing nil check", Source: "handler.go", RelevanceScore: 0.9},
	}}

	plan, err := w.PlanningPhase(research, "fix nil pointer panic")
	require.NoError(t, err)
	require.NotNil(t, plan)

	assert.Equal(t, StatePlanning, w.State())
	assert.True(t, w.CanImplement())
	assert.Same(t, plan, w.CurrentPlan())
	assert.Contains(t, plan.TestCommands, compactor.DefaultTestCommand)
	for _, step := range plan.Steps {
		assert.NotEmpty(t, step.TestCommand)
	}
}

func TestPlanningPhaseWithoutCompactorErrors(t *testing.T) {
	w := New(Options{})
	_, err := w.PlanningPhase(ResearchContext{}, "objective")
	require.Error(t, err)
}

func TestImplementPhaseRequiresGateInvariant(t *testing.T) {
	w := New(Options{})
	_, err := w.ImplementPhase(contextBG(), &compactor.Plan{})
	require.Error(t, err)
	assert.Equal(t, StateIdle, w.State(), "a rejected implement call must not transition state")
}

func TestHistoryRecordsEveryTransitionInOrder(t *testing.T) {
	c := compactor.New(compactor.Options{})
	w := New(Options{Compactor: c, RunTestsFn: alwaysPass})

	_, err := w.PlanningPhase(ResearchContext{}, "objective")
	require.NoError(t, err)
	_, err = w.ImplementPhase(contextBG(), w.CurrentPlan())
	require.NoError(t, err)

	history := w.History()
	require.Len(t, history, 3)
	assert.Equal(t, Transition{From: StateIdle, To: StatePlanning}, stripTimestamp(history[0]))
	assert.Equal(t, Transition{From: StatePlanning, To: StateImplement}, stripTimestamp(history[1]))
	assert.Equal(t, Transition{From: StateImplement, To: StateComplete}, stripTimestamp(history[2]))
}

func stripTimestamp(t Transition) Transition {
	t.Timestamp = ""
	return t
}
