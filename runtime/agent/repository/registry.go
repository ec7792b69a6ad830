// Package repository implements the Repository Registry & Router (C6): a
// YAML-loaded catalogue of repositories the orchestrator can operate on, and
// an LLM-backed router that maps a free-form prompt to one of them.
package repository

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/sdlc-agents/orchestrator/runtime/agent/sdlcerrors"
)

// Config describes a single registered repository (§6.1). Unknown YAML keys
// are rejected at load time via yaml.Decoder.KnownFields(true).
type Config struct {
	ID                  string `yaml:"id"`
	Description         string `yaml:"description"`
	GitHubURL           string `yaml:"github_url"`
	LocalPath           string `yaml:"local_path"`
	Branch              string `yaml:"branch"`
	EnableCodeExecution bool   `yaml:"enable_code_execution"`
}

type repositoryFile struct {
	Repositories []Config `yaml:"repositories"`
}

const (
	defaultLocalPath = "./repos"
	defaultBranch    = "main"
)

// Registry is an O(1)-lookup, stable-order catalogue of repository configs.
// Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	repos map[string]Config
	order []string
}

// New constructs an empty Registry. Use LoadFile/LoadYAML to populate it, or
// Register to add entries programmatically (e.g. from repo discovery).
func New() *Registry {
	return &Registry{repos: make(map[string]Config)}
}

// LoadFile reads and parses a repository registry YAML file (§6.1),
// registering every entry into a fresh Registry. Fails fast on a missing
// file, malformed YAML, unknown keys, or a duplicate id.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sdlcerrors.Wrap(sdlcerrors.KindConfiguration, fmt.Sprintf("repository registry: read %s", path), err)
	}
	return LoadYAML(data)
}

// LoadYAML parses repository registry YAML content into a fresh Registry.
func LoadYAML(data []byte) (*Registry, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc repositoryFile
	if err := dec.Decode(&doc); err != nil {
		return nil, sdlcerrors.Wrap(sdlcerrors.KindConfiguration, "repository registry: malformed YAML", err)
	}

	r := New()
	for _, cfg := range doc.Repositories {
		if cfg.ID == "" {
			return nil, sdlcerrors.New(sdlcerrors.KindConfiguration, "repository registry: entry missing required id")
		}
		if cfg.Description == "" {
			return nil, sdlcerrors.Newf(sdlcerrors.KindConfiguration, "repository registry: %s missing required description", cfg.ID)
		}
		if cfg.GitHubURL == "" {
			return nil, sdlcerrors.Newf(sdlcerrors.KindConfiguration, "repository registry: %s missing required github_url", cfg.ID)
		}
		if cfg.LocalPath == "" {
			cfg.LocalPath = defaultLocalPath
		}
		if cfg.Branch == "" {
			cfg.Branch = defaultBranch
		}
		if err := r.Register(cfg); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds cfg to the registry, failing fast on a duplicate id
// (binding divergence from the Python original's silent overwrite — see
// DESIGN.md).
func (r *Registry) Register(cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.repos[cfg.ID]; exists {
		return sdlcerrors.Newf(sdlcerrors.KindConfiguration, "repository registry: duplicate repository id %q", cfg.ID)
	}
	r.repos[cfg.ID] = cfg
	r.order = append(r.order, cfg.ID)
	return nil
}

// ErrNotFound is returned by Get when a repository id is not registered.
var ErrNotFound = sdlcerrors.New(sdlcerrors.KindSessionAssembly, "repository not found")

// Get looks up a repository by id in O(1).
func (r *Registry) Get(ctx context.Context, id string) (Config, error) {
	select {
	case <-ctx.Done():
		return Config{}, ctx.Err()
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.repos[id]
	if !ok {
		return Config{}, sdlcerrors.Newf(sdlcerrors.KindSessionAssembly, "repository registry: unknown repository id %q", id)
	}
	return cfg, nil
}

// List returns every registered repository in stable insertion order.
func (r *Registry) List() []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Config, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.repos[id])
	}
	return out
}

// Has reports whether id is a known repository, without an error allocation.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.repos[id]
	return ok
}
