package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdlc-agents/orchestrator/features/policy/basic"
	"github.com/sdlc-agents/orchestrator/runtime/agent/repository"
	"github.com/sdlc-agents/orchestrator/runtime/agent/tools"
)

func testRegistry(t *testing.T, localPath string) *repository.Registry {
	t.Helper()
	reg := repository.New()
	require.NoError(t, reg.Register(repository.Config{
		ID:                  "payments-service",
		Description:         "Handles payment processing",
		GitHubURL:           "https://github.com/acme/payments-service",
		LocalPath:           localPath,
		Branch:              "main",
		EnableCodeExecution: true,
	}))
	return reg
}

func TestPrepareSessionResolvesRepoFromPromptHint(t *testing.T) {
	dir := t.TempDir()
	orch, err := New(Options{Registry: testRegistry(t, dir)})
	require.NoError(t, err)

	sc, err := orch.PrepareSession(context.Background(), "fix the refund bug in payments-service", "")
	require.NoError(t, err)
	assert.Equal(t, "payments-service", sc.RepoID)
	assert.Equal(t, "acme", sc.RepoOwner)
	assert.Equal(t, "payments-service", sc.RepoName)
	assert.Equal(t, "main", sc.CurrentBranch)
}

func TestPrepareSessionCreatesMemoryDirectory(t *testing.T) {
	dir := t.TempDir()
	orch, err := New(Options{Registry: testRegistry(t, dir)})
	require.NoError(t, err)

	sc, err := orch.PrepareSession(context.Background(), "there is a bug in payments-service", "")
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, ".sdlc", "memories"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, filepath.Join(dir, ".sdlc", "memories"), sc.MemoryPath)
}

func TestPrepareSessionSelectsMetaToolsOnly(t *testing.T) {
	dir := t.TempDir()
	orch, err := New(Options{Registry: testRegistry(t, dir)})
	require.NoError(t, err)

	sc, err := orch.PrepareSession(context.Background(), "there is a bug in payments-service", "")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"list_categories", "list_tools", "get_tool_schema", "search_tools"}, sc.Tools)
}

func TestPrepareSessionRegistersExecutionToolsWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	reg := testRegistry(t, dir)
	orch, err := New(Options{Registry: reg})
	require.NoError(t, err)

	sc, err := orch.PrepareSession(context.Background(), "there is a bug in payments-service", "")
	require.NoError(t, err)

	registry, ok := sc.ToolRegistry.(*tools.Registry)
	require.True(t, ok)
	assert.NotNil(t, registry.GetTool("batch_process_files"))
	assert.NotNil(t, registry.GetTool("batch_search"))
}

func TestPrepareSessionGuardsFailingExternalClient(t *testing.T) {
	dir := t.TempDir()
	orch, err := New(Options{
		Registry: testRegistry(t, dir),
		Clients: ClientFactories{
			GitHub: func(ctx context.Context, repo repository.Config) (any, error) {
				return nil, errUnavailable
			},
		},
	})
	require.NoError(t, err)

	sc, err := orch.PrepareSession(context.Background(), "there is a bug in payments-service", "")
	require.NoError(t, err, "a failing external client factory must not fail session assembly")

	clients := sc.ExternalClients
	require.NotNil(t, clients)
	assert.Nil(t, clients.GitHub)
}

func TestPrepareSessionFallsBackToRouterWhenNoHintMatches(t *testing.T) {
	dir := t.TempDir()
	orch, err := New(Options{Registry: testRegistry(t, dir)})
	require.NoError(t, err)

	_, err = orch.PrepareSession(context.Background(), "totally unrelated task with no hints", "")
	require.Error(t, err, "with no router configured and no prompt hint, resolution must fail")
}

func TestPrepareSessionUsesDiscoveryWhenTicketIDProvided(t *testing.T) {
	dir := t.TempDir()
	reg := repository.New()
	discovered := repository.Config{
		ID:          "checkout-bff",
		Description: "Checkout BFF",
		GitHubURL:   "https://github.com/acme/checkout-bff",
		LocalPath:   dir,
		Branch:      "main",
	}
	orch, err := New(Options{
		Registry: reg,
		Discover: func(ctx context.Context, ticketID string) (repository.Config, bool, error) {
			if ticketID == "ENG-42" {
				return discovered, true, nil
			}
			return repository.Config{}, false, nil
		},
	})
	require.NoError(t, err)

	sc, err := orch.PrepareSession(context.Background(), "fix the bug", "ENG-42")
	require.NoError(t, err)
	assert.Equal(t, "checkout-bff", sc.RepoID)
	assert.True(t, reg.Has("checkout-bff"), "discovered repo must be auto-registered")
}

func TestPrepareSessionFiltersMetaToolsThroughPolicy(t *testing.T) {
	dir := t.TempDir()
	policyEngine, err := basic.New(basic.Options{BlockTools: []string{"search_tools"}})
	require.NoError(t, err)
	orch, err := New(Options{Registry: testRegistry(t, dir), Policy: policyEngine})
	require.NoError(t, err)

	sc, err := orch.PrepareSession(context.Background(), "there is a bug in payments-service", "")
	require.NoError(t, err)

	assert.NotContains(t, sc.Tools, "search_tools")
	assert.Contains(t, sc.Tools, "list_tools")
}

var errUnavailable = errors.New("github client unavailable")
