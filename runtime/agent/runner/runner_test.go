package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdlc-agents/orchestrator/runtime/agent/cost"
	"github.com/sdlc-agents/orchestrator/runtime/agent/model"
	"github.com/sdlc-agents/orchestrator/runtime/agent/sdlcerrors"
	"github.com/sdlc-agents/orchestrator/runtime/agent/tools"
)

func TestDispatcherResolveKnownTool(t *testing.T) {
	registry := tools.New()
	registry.RegisterTool("grep_files", "search file contents", tools.CategoryFile, tools.RegisterToolOptions{})
	d := NewDispatcher(registry)

	def, err := d.Resolve("grep_files")
	require.NoError(t, err)
	assert.Equal(t, "grep_files", def.Name)
}

func TestDispatcherResolveUnknownToolFailsLoudly(t *testing.T) {
	d := NewDispatcher(tools.New())

	_, err := d.Resolve("does_not_exist")
	require.Error(t, err)
	assert.Equal(t, sdlcerrors.KindTool, sdlcerrors.KindOf(err))
}

func usageMsg(id string, total int) cost.Message {
	return cost.Message{ID: id, Usage: &model.TokenUsage{InputTokens: total}}
}

func TestProcessStreamFeedsEveryMessageWhenPlanPresent(t *testing.T) {
	tracker := cost.New(cost.Options{MaxTokens: 1_000_000})
	msgs := []cost.Message{usageMsg("m1", 10), usageMsg("m2", 20), usageMsg("m3", 30)}

	err := ProcessStream(tracker, true, msgs)
	require.NoError(t, err)
	assert.Equal(t, 3, len(tracker.StepUsages()))
}

func TestNewAnthropicBackendRequiresAPIKey(t *testing.T) {
	_, err := NewAnthropicBackend("", "claude-sonnet-4-5")
	require.Error(t, err)
	assert.Equal(t, sdlcerrors.KindConfiguration, sdlcerrors.KindOf(err))
}

func TestNewAnthropicBackendBuildsAModelClient(t *testing.T) {
	client, err := NewAnthropicBackend("test-api-key", "claude-sonnet-4-5")
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestProcessStreamStopsOnBudgetViolation(t *testing.T) {
	tracker := cost.New(cost.Options{MaxTokens: 10})
	tracker.ProcessMessage(usageMsg("warmup", 1000))

	msgs := []cost.Message{usageMsg("m1", 1), usageMsg("m2", 1)}
	err := ProcessStream(tracker, false, msgs)
	require.Error(t, err)
	assert.Equal(t, sdlcerrors.KindBudget, sdlcerrors.KindOf(err))
}
