package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProjectConfigReturnsNilWhenAbsent(t *testing.T) {
	cfg, err := LoadProjectConfig(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoadProjectConfigParsesYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".sdlc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".sdlc", "config.yaml"), []byte(`
enable_code_execution: true
linear_team_id: TEAM-1
allowed_tools: [Read, Grep]
`), 0o644))

	cfg, err := LoadProjectConfig(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.True(t, cfg.EnableCodeExecution)
	assert.Equal(t, "TEAM-1", cfg.LinearTeamID)
	assert.Equal(t, []string{"Read", "Grep"}, cfg.AllowedTools)
}

func TestGetMemoryPathDefaultsUnderTargetDir(t *testing.T) {
	var cfg *ProjectConfig
	assert.Equal(t, filepath.Join("/repo", ".sdlc", "memories"), cfg.GetMemoryPath("/repo"))
}

func TestGetMemoryPathHonoursOverride(t *testing.T) {
	cfg := &ProjectConfig{MemoryPath: "/custom/memories"}
	assert.Equal(t, "/custom/memories", cfg.GetMemoryPath("/repo"))
}

func TestEnsureMemoryPathCreatesDirectoryIdempotently(t *testing.T) {
	dir := t.TempDir()
	path, err := EnsureMemoryPath(dir, nil)
	require.NoError(t, err)

	path2, err := EnsureMemoryPath(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, path, path2)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
