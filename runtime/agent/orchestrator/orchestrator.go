// Package orchestrator implements the Context Orchestrator (C7): it turns a
// prompt (and optional ticket id) into a ready-to-run SessionContext,
// resolving the target repository, loading project configuration, standing
// up the Progressive Tool Registry, and guardedly initialising external
// clients (§4.7).
package orchestrator

import (
	"context"

	"github.com/sdlc-agents/orchestrator/runtime/agent/policy"
	"github.com/sdlc-agents/orchestrator/runtime/agent/repository"
	"github.com/sdlc-agents/orchestrator/runtime/agent/sdlcerrors"
	"github.com/sdlc-agents/orchestrator/runtime/agent/session"
	"github.com/sdlc-agents/orchestrator/runtime/agent/telemetry"
	"github.com/sdlc-agents/orchestrator/runtime/agent/tools"
)

// ClientFactories builds guarded external-service clients for a resolved
// repository. Each factory is optional; a nil factory or a factory that
// returns an error simply yields a session with one fewer registered
// external service — never a fatal session-assembly error (§4.7 step 5).
type ClientFactories struct {
	GitHub     func(ctx context.Context, repo repository.Config) (any, error)
	Linear     func(ctx context.Context, teamID string) (any, error)
	Navigation func(ctx context.Context, localPath string) (any, error)
	Docker     func(ctx context.Context, repo repository.Config) (any, error)
}

// DiscoverFunc resolves a ticket id to a repository config via an external
// collaborator path (GitHub lookup, Backstage catalog, ticket regex
// extraction). Optional; returning ok=false means discovery did not find a
// repo and resolution falls through to prompt-based extraction/routing.
type DiscoverFunc func(ctx context.Context, ticketID string) (repository.Config, bool, error)

// Options configures an Orchestrator.
type Options struct {
	Registry *repository.Registry
	Router   *repository.Router
	Discover DiscoverFunc
	Clients  ClientFactories
	Logger   telemetry.Logger
	// Policy restricts the meta-tool set a session starts with. Optional;
	// a nil Policy leaves the registry's meta tools unfiltered.
	Policy policy.Engine
}

// Orchestrator implements prepareSession (§4.7).
type Orchestrator struct {
	registry *repository.Registry
	router   *repository.Router
	discover DiscoverFunc
	clients  ClientFactories
	logger   telemetry.Logger
	policy   policy.Engine
}

// New constructs an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Registry == nil {
		return nil, sdlcerrors.New(sdlcerrors.KindConfiguration, "orchestrator: registry is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Orchestrator{
		registry: opts.Registry,
		router:   opts.Router,
		discover: opts.Discover,
		clients:  opts.Clients,
		logger:   logger,
		policy:   opts.Policy,
	}, nil
}

// PrepareSession implements the 8-step algorithm in §4.7: resolve repo, load
// project config, resolve memory path, build the tool registry, guardedly
// init external clients, inject repo context, select meta-tools only, and
// emit a SessionContext.
func (o *Orchestrator) PrepareSession(ctx context.Context, prompt, ticketID string) (*session.SessionContext, error) {
	repo, err := o.resolveRepo(ctx, prompt, ticketID)
	if err != nil {
		return nil, sdlcerrors.Wrap(sdlcerrors.KindSessionAssembly, "orchestrator: repo resolution failed", err)
	}

	projectConfig, err := LoadProjectConfig(repo.LocalPath)
	if err != nil {
		return nil, sdlcerrors.Wrap(sdlcerrors.KindSessionAssembly, "orchestrator: project config load failed", err)
	}

	memoryPath, err := EnsureMemoryPath(repo.LocalPath, projectConfig)
	if err != nil {
		return nil, sdlcerrors.Wrap(sdlcerrors.KindSessionAssembly, "orchestrator: memory path could not be created", err)
	}

	registry := o.buildToolRegistry(repo)
	externalClients := o.initExternalClients(ctx, repo, projectConfig)
	metaTools, err := o.filterMetaTools(ctx, registry)
	if err != nil {
		return nil, sdlcerrors.Wrap(sdlcerrors.KindSessionAssembly, "orchestrator: policy evaluation failed", err)
	}

	opts := []session.Option{
		session.WithRepoBinding(repo.ID, repo.GitHubURL, repoOwner(repo), repoName(repo), repo.Branch),
		session.WithMemoryPath(memoryPath),
		session.WithToolRegistry(registry),
		session.WithExternalClients(externalClients),
		session.WithTools(metaTools),
	}
	if projectConfig != nil {
		opts = append(opts, session.WithProjectConfig(projectConfig))
	}
	if ticketID != "" {
		opts = append(opts, session.WithTicketID(ticketID))
	}

	return session.New(sessionIDFor(repo, ticketID), opts...), nil
}

func (o *Orchestrator) resolveRepo(ctx context.Context, prompt, ticketID string) (repository.Config, error) {
	if o.discover != nil && ticketID != "" {
		if cfg, ok, err := o.discover(ctx, ticketID); err != nil {
			return repository.Config{}, err
		} else if ok {
			if !o.registry.Has(cfg.ID) {
				if err := o.registry.Register(cfg); err != nil {
					return repository.Config{}, err
				}
			}
			return cfg, nil
		}
	}

	if hint, ok := ExtractRepoHint(prompt); ok && o.registry.Has(hint) {
		return o.registry.Get(ctx, hint)
	}

	if o.router == nil {
		return repository.Config{}, sdlcerrors.New(sdlcerrors.KindSessionAssembly, "orchestrator: no router configured and repo could not be resolved from prompt")
	}
	return o.router.Route(ctx, prompt)
}

func (o *Orchestrator) buildToolRegistry(repo repository.Config) *tools.Registry {
	registry := tools.New()

	if o.clients.GitHub != nil {
		registry.RegisterMCPServer("github", []tools.MCPToolSpec{
			{Name: "create_pr", Description: "Open a pull request on the bound repository"},
			{Name: "list_issues", Description: "List open issues on the bound repository"},
		})
	}
	if o.clients.Linear != nil {
		registry.RegisterMCPServer("linear", []tools.MCPToolSpec{
			{Name: "get_ticket", Description: "Fetch a Linear ticket by id"},
			{Name: "update_ticket_status", Description: "Update a Linear ticket's status"},
		})
	}
	if o.clients.Navigation != nil {
		registry.RegisterMCPServer("navigation", []tools.MCPToolSpec{
			{Name: "get_call_graph", Description: "Resolve the call graph for a symbol"},
		})
	}
	if repo.EnableCodeExecution {
		registry.RegisterTool("batch_process_files", "Run a transformation across a batch of files", tools.CategoryExecution, tools.RegisterToolOptions{})
		registry.RegisterTool("batch_search", "Search across a batch of files", tools.CategoryExecution, tools.RegisterToolOptions{})
	}

	return registry
}

// filterMetaTools runs the configured policy engine, if any, over the
// registry's meta tools and returns the tool names it allows. No policy
// configured means no filtering: the registry's full meta-tool set starts
// the session.
func (o *Orchestrator) filterMetaTools(ctx context.Context, registry *tools.Registry) ([]string, error) {
	meta := registry.GetMetaTools()
	if o.policy == nil {
		return meta, nil
	}

	candidates := make([]tools.Ident, len(meta))
	toolMeta := make([]policy.ToolMetadata, len(meta))
	for i, name := range meta {
		candidates[i] = tools.Ident(name)
		toolMeta[i] = policy.ToolMetadata{ID: tools.Ident(name)}
	}

	decision, err := o.policy.Decide(ctx, policy.Input{Requested: candidates, Tools: toolMeta})
	if err != nil {
		return nil, err
	}
	allowed := make([]string, len(decision.AllowedTools))
	for i, id := range decision.AllowedTools {
		allowed[i] = string(id)
	}
	return allowed, nil
}

// initExternalClients guardedly constructs each configured client. A nil
// factory or a factory error simply means that service is absent from this
// session — never a fatal session-assembly error.
func (o *Orchestrator) initExternalClients(ctx context.Context, repo repository.Config, cfg *ProjectConfig) *session.ExternalClients {
	clients := &session.ExternalClients{}

	if o.clients.GitHub != nil {
		if c, err := o.clients.GitHub(ctx, repo); err != nil {
			o.logger.Warn(ctx, "orchestrator: github client init failed, continuing without it", "repo", repo.ID, "error", err)
		} else {
			clients.GitHub = c
		}
	}
	if o.clients.Linear != nil {
		teamID := ""
		if cfg != nil {
			teamID = cfg.LinearTeamID
		}
		if c, err := o.clients.Linear(ctx, teamID); err != nil {
			o.logger.Warn(ctx, "orchestrator: linear client init failed, continuing without it", "repo", repo.ID, "error", err)
		} else {
			clients.Linear = c
		}
	}
	if o.clients.Navigation != nil {
		if c, err := o.clients.Navigation(ctx, repo.LocalPath); err != nil {
			o.logger.Warn(ctx, "orchestrator: navigation client init failed, continuing without it", "repo", repo.ID, "error", err)
		} else {
			clients.Navigation = c
		}
	}
	if repo.EnableCodeExecution && o.clients.Docker != nil {
		if c, err := o.clients.Docker(ctx, repo); err != nil {
			o.logger.Warn(ctx, "orchestrator: docker client init failed, continuing without it", "repo", repo.ID, "error", err)
		} else {
			clients.Docker = c
		}
	}

	return clients
}

func sessionIDFor(repo repository.Config, ticketID string) string {
	if ticketID != "" {
		return repo.ID + "-" + ticketID
	}
	return repo.ID
}

// repoOwner/repoName are best-effort splits of a GitHub URL's "owner/name"
// suffix; a malformed URL simply leaves both empty rather than failing
// session assembly.
func repoOwner(repo repository.Config) string {
	owner, _ := splitGitHubURL(repo.GitHubURL)
	return owner
}

func repoName(repo repository.Config) string {
	_, name := splitGitHubURL(repo.GitHubURL)
	return name
}
