package repository

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/sdlc-agents/orchestrator/runtime/agent/model"
	"github.com/sdlc-agents/orchestrator/runtime/agent/sdlcerrors"
)

const (
	routingTemperature = 0.1
	routingMaxTokens   = 50
	unknownResponse    = "UNKNOWN"
	defaultRateLimit   = rate.Limit(2) // requests/sec
	defaultRateBurst   = 2
)

// RouterOptions configures a Router.
type RouterOptions struct {
	// Client performs the routing completion call. Required.
	Client model.Client
	// Model selects the provider-specific model identifier for routing
	// calls. Optional; left empty to use the client's configured default.
	Model string
	// Limiter throttles routing calls. Defaults to 2 req/s, burst 2.
	Limiter *rate.Limiter
}

// Router classifies a free-form prompt against a Registry's known
// repository ids via an LLM completion call (§4.6, §6.5).
type Router struct {
	registry *Registry
	client   model.Client
	modelID  string
	limiter  *rate.Limiter
}

// NewRouter builds a Router bound to registry.
func NewRouter(registry *Registry, opts RouterOptions) (*Router, error) {
	if registry == nil {
		return nil, sdlcerrors.New(sdlcerrors.KindConfiguration, "router: registry is required")
	}
	if opts.Client == nil {
		return nil, sdlcerrors.New(sdlcerrors.KindConfiguration, "router: model client is required")
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(defaultRateLimit, defaultRateBurst)
	}
	return &Router{registry: registry, client: opts.Client, modelID: opts.Model, limiter: limiter}, nil
}

// Route classifies prompt against the registry's known repository ids,
// returning the matched Config or a KindRouting error.
//
// The LLM is asked to return only an id or the literal "UNKNOWN" (§6.5). A
// response that names an unregistered id falls back to a case-insensitive
// substring match against known ids before raising.
func (rt *Router) Route(ctx context.Context, prompt string) (Config, error) {
	if strings.TrimSpace(prompt) == "" {
		return Config{}, sdlcerrors.New(sdlcerrors.KindRouting, "router: empty prompt cannot be routed")
	}

	repos := rt.registry.List()
	if len(repos) == 0 {
		return Config{}, sdlcerrors.New(sdlcerrors.KindRouting, "router: no repositories registered")
	}

	if err := rt.limiter.Wait(ctx); err != nil {
		return Config{}, sdlcerrors.Wrap(sdlcerrors.KindRouting, "router: rate limiter", err)
	}

	raw, err := rt.classify(ctx, prompt, repos)
	if err != nil {
		return Config{}, err
	}

	id := strings.Trim(strings.TrimSpace(raw), "\"'\n\r")
	if strings.EqualFold(id, unknownResponse) {
		return Config{}, sdlcerrors.Newf(sdlcerrors.KindRouting, "router: could not determine a repository for prompt %q", prompt)
	}

	if cfg, ok := rt.lookupExact(id); ok {
		return cfg, nil
	}
	if cfg, ok := rt.lookupSubstring(id, repos); ok {
		return cfg, nil
	}
	return Config{}, sdlcerrors.Newf(sdlcerrors.KindRouting, "router: response %q does not match any registered repository", raw)
}

func (rt *Router) lookupExact(id string) (Config, bool) {
	if !rt.registry.Has(id) {
		return Config{}, false
	}
	cfg, err := rt.registry.Get(context.Background(), id)
	return cfg, err == nil
}

func (rt *Router) lookupSubstring(id string, repos []Config) (Config, bool) {
	lowerID := strings.ToLower(id)
	for _, cfg := range repos {
		if strings.Contains(strings.ToLower(cfg.ID), lowerID) || strings.Contains(lowerID, strings.ToLower(cfg.ID)) {
			return cfg, true
		}
	}
	return Config{}, false
}

func (rt *Router) classify(ctx context.Context, prompt string, repos []Config) (string, error) {
	resp, err := rt.client.Complete(ctx, &model.Request{
		Model:       rt.modelID,
		Temperature: routingTemperature,
		MaxTokens:   routingMaxTokens,
		Messages: []*model.Message{
			{Role: model.ConversationRoleUser, Parts: []model.Part{model.TextPart{Text: buildRoutingPrompt(prompt, repos)}}},
		},
	})
	if err != nil {
		return "", sdlcerrors.Wrap(sdlcerrors.KindRouting, "router: classification call failed", err)
	}

	var sb strings.Builder
	for _, msg := range resp.Content {
		for _, part := range msg.Parts {
			if tp, ok := part.(model.TextPart); ok {
				sb.WriteString(tp.Text)
			}
		}
	}
	return sb.String(), nil
}

// buildRoutingPrompt renders the stable classification prompt contract
// (§6.5). The format (including the exact header strings) must not change
// without updating collaborators that parse the response.
func buildRoutingPrompt(prompt string, repos []Config) string {
	var sb strings.Builder
	sb.WriteString("You are a repository routing assistant. Given a user's task, determine which repository it applies to.\n\n")
	sb.WriteString("## Available Repositories:\n")
	for _, cfg := range repos {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", cfg.ID, cfg.Description))
	}
	sb.WriteString("\n## User's Task:\n")
	sb.WriteString(fmt.Sprintf("%q\n\n", prompt))
	sb.WriteString(`Return ONLY the repository ID or "UNKNOWN".`)
	return sb.String()
}
