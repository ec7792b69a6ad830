package orchestrator

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configRelPath = ".sdlc/config.yaml"
const memoriesRelPath = ".sdlc/memories"

// ProjectConfig is the per-repo configuration read from a target repo's
// .sdlc/config.yaml (§6.2). It is opaque to the rest of the core aside from
// GetMemoryPath; absence of the file is non-fatal (LoadProjectConfig returns
// nil, nil).
type ProjectConfig struct {
	MemoryPath          string   `yaml:"memory_path"`
	EnableCodeExecution bool     `yaml:"enable_code_execution"`
	LinearTeamID        string   `yaml:"linear_team_id"`
	AllowedTools        []string `yaml:"allowed_tools"`
}

// GetMemoryPath returns the memory bank directory for targetDir, honouring
// an explicit override from the config file or falling back to the
// standard <targetDir>/.sdlc/memories layout (§6.3).
func (pc *ProjectConfig) GetMemoryPath(targetDir string) string {
	if pc != nil && pc.MemoryPath != "" {
		return pc.MemoryPath
	}
	return filepath.Join(targetDir, memoriesRelPath)
}

// LoadProjectConfig reads <targetDir>/.sdlc/config.yaml. A missing file is
// not an error: it returns (nil, nil), since project configuration is
// entirely optional (§6.2).
func LoadProjectConfig(targetDir string) (*ProjectConfig, error) {
	data, err := os.ReadFile(filepath.Join(targetDir, configRelPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// EnsureMemoryPath creates the memory bank directory idempotently and
// returns its path.
func EnsureMemoryPath(targetDir string, cfg *ProjectConfig) (string, error) {
	path := cfg.GetMemoryPath(targetDir)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	return path, nil
}
