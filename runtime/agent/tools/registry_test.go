package tools_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdlc-agents/orchestrator/runtime/agent/tools"
)

func TestMetaToolsAreTheOnlyToolsVisibleUpFront(t *testing.T) {
	r := tools.New()

	// I-6: nothing has been loaded yet.
	assert.Empty(t, r.GetLoadedSchemas())
	assert.ElementsMatch(t, []string{"list_categories", "list_tools", "get_tool_schema", "search_tools"}, r.GetMetaTools())
}

func TestListCategoriesOnlyReturnsNonEmptyCategories(t *testing.T) {
	r := tools.New()

	cats := r.ListCategories()
	assert.Contains(t, cats, "file")
	assert.Contains(t, cats, "git")
	assert.NotContains(t, cats, "api") // no built-in API tools registered

	// R-1: every category ListTools can return for any tool is present here.
	for _, desc := range r.ListTools("", false) {
		assert.Contains(t, cats, string(desc.Category))
	}
}

func TestGetToolSchemaLazyLoadsAndTracksUsage(t *testing.T) {
	r := tools.New()

	schema, ok := r.GetToolSchema("Read")
	require.True(t, ok)
	require.NotNil(t, schema)
	assert.Equal(t, "Read", schema.Name)

	// R-2: once loaded, it shows up in GetLoadedSchemas.
	assert.Contains(t, r.GetLoadedSchemas(), "Read")

	def := r.GetTool("Read")
	require.NotNil(t, def)
	assert.Equal(t, 1, def.UsageCount)
	require.NotNil(t, def.LastUsed)

	// Second call bumps usage again but doesn't duplicate the loaded-set entry.
	_, _ = r.GetToolSchema("Read")
	assert.Equal(t, 2, r.GetTool("Read").UsageCount)
	assert.Len(t, r.GetLoadedSchemas(), 1)
}

func TestGetToolSchemaUnknownToolReturnsFalse(t *testing.T) {
	r := tools.New()
	schema, ok := r.GetToolSchema("does_not_exist")
	assert.False(t, ok)
	assert.Nil(t, schema)
}

func TestGetToolSchemaFallsBackToEmptyObjectSchema(t *testing.T) {
	r := tools.New()
	schema, ok := r.GetToolSchema("git_status")
	require.True(t, ok)
	assert.Equal(t, "object", schema.InputSchema["type"])
	assert.Empty(t, schema.InputSchema["properties"].(map[string]any))
}

func TestRegisterToolAddsToCategoryAndIsFindable(t *testing.T) {
	r := tools.New()
	r.RegisterTool("custom_lint", "Run custom linter", tools.CategoryAnalysis, tools.RegisterToolOptions{})

	assert.Contains(t, r.ListCategories(), "analysis")

	found := false
	for _, desc := range r.ListTools("analysis", false) {
		if desc.Name == "custom_lint" {
			found = true
			assert.Equal(t, "analysis/custom_lint", desc.Path)
		}
	}
	assert.True(t, found)
}

func TestRegisterMCPServerUsesServerPathAndCategory(t *testing.T) {
	r := tools.New()
	defs := r.RegisterMCPServer("jira", []tools.MCPToolSpec{
		{Name: "create_issue", Description: "Create a Jira issue"},
	})

	require.Len(t, defs, 1)
	assert.Equal(t, tools.CategoryMCP, defs[0].Category)
	assert.Equal(t, "servers/jira/create_issue", defs[0].Path)
	assert.Equal(t, "jira", defs[0].Server)
	assert.Contains(t, r.ListCategories(), "mcp")
}

func TestSearchToolsScoring(t *testing.T) {
	r := tools.New()

	// "Read" matches name substring (+10) regardless of case.
	result := r.SearchTools("read", nil, 10)
	require.NotEmpty(t, result.Tools)
	assert.Equal(t, "Read", result.Tools[0].Name)

	// "repository" and "status" match description words of git_status (+2 each).
	result = r.SearchTools("repository status", nil, 10)
	names := make([]string, 0, len(result.Tools))
	for _, d := range result.Tools {
		names = append(names, d.Name)
	}
	assert.Contains(t, names, "git_status")
}

func TestSearchToolsRespectsCategoryFilter(t *testing.T) {
	r := tools.New()
	result := r.SearchTools("git", []string{"file"}, 10)
	for _, d := range result.Tools {
		assert.Equal(t, tools.CategoryFile, d.Category)
	}
}

func TestSearchToolsRespectsLimit(t *testing.T) {
	r := tools.New()
	result := r.SearchTools("e", nil, 2)
	assert.LessOrEqual(t, len(result.Tools), 2)
	assert.GreaterOrEqual(t, result.TotalMatches, len(result.Tools))
}

func TestGetFilesystemViewNestsByPath(t *testing.T) {
	r := tools.New()
	view := r.GetFilesystemView()

	fileDir, ok := view["file"].(map[string]any)
	require.True(t, ok)
	_, ok = fileDir["read"].(map[string]any)
	assert.True(t, ok)
}

func TestSchemaValidateRejectsMissingRequiredField(t *testing.T) {
	r := tools.New()
	schema, ok := r.GetToolSchema("Read")
	require.True(t, ok)

	err := schema.Validate([]byte(`{}`))
	assert.Error(t, err)

	err = schema.Validate([]byte(`{"file_path": "main.go"}`))
	assert.NoError(t, err)
}
