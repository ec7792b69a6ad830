package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sdlc-agents/orchestrator/runtime/agent/model"
	"github.com/sdlc-agents/orchestrator/runtime/agent/sdlcerrors"
)

type fakeModelClient struct {
	reply string
	err   error
	calls []*model.Request
}

func (f *fakeModelClient) Complete(_ context.Context, req *model.Request) (*model.Response, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return &model.Response{
		Content: []model.Message{{
			Role:  model.ConversationRoleAssistant,
			Parts: []model.Part{model.TextPart{Text: f.reply}},
		}},
	}, nil
}

func (f *fakeModelClient) Stream(context.Context, *model.Request) (model.Streamer, error) {
	panic("not used by the router")
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := LoadYAML([]byte(validYAML))
	require.NoError(t, err)
	return reg
}

func noThrottleOpts(client model.Client) RouterOptions {
	return RouterOptions{Client: client, Limiter: rate.NewLimiter(rate.Inf, 1)}
}

func TestRouteReturnsMatchedRepository(t *testing.T) {
	client := &fakeModelClient{reply: "payments-service"}
	router, err := NewRouter(testRegistry(t), noThrottleOpts(client))
	require.NoError(t, err)

	cfg, err := router.Route(context.Background(), "fix the refund calculation bug")
	require.NoError(t, err)
	assert.Equal(t, "payments-service", cfg.ID)
}

func TestRouteStripsQuotesAndNewlines(t *testing.T) {
	client := &fakeModelClient{reply: "\"payments-service\"\n"}
	router, err := NewRouter(testRegistry(t), noThrottleOpts(client))
	require.NoError(t, err)

	cfg, err := router.Route(context.Background(), "task")
	require.NoError(t, err)
	assert.Equal(t, "payments-service", cfg.ID)
}

func TestRouteFallsBackToSubstringMatch(t *testing.T) {
	client := &fakeModelClient{reply: "payments"}
	router, err := NewRouter(testRegistry(t), noThrottleOpts(client))
	require.NoError(t, err)

	cfg, err := router.Route(context.Background(), "task")
	require.NoError(t, err)
	assert.Equal(t, "payments-service", cfg.ID)
}

func TestRouteUnknownResponseRaisesRoutingError(t *testing.T) {
	client := &fakeModelClient{reply: "UNKNOWN"}
	router, err := NewRouter(testRegistry(t), noThrottleOpts(client))
	require.NoError(t, err)

	_, err = router.Route(context.Background(), "totally unrelated task")
	require.Error(t, err)
	assert.Equal(t, sdlcerrors.KindRouting, sdlcerrors.KindOf(err))
}

func TestRouteUnmatchedIDRaisesRoutingError(t *testing.T) {
	client := &fakeModelClient{reply: "some-other-repo-nobody-registered"}
	router, err := NewRouter(testRegistry(t), noThrottleOpts(client))
	require.NoError(t, err)

	_, err = router.Route(context.Background(), "task")
	require.Error(t, err)
	assert.Equal(t, sdlcerrors.KindRouting, sdlcerrors.KindOf(err))
}

func TestRouteEmptyPromptIsARoutingErrorBoundary(t *testing.T) {
	client := &fakeModelClient{reply: "payments-service"}
	router, err := NewRouter(testRegistry(t), noThrottleOpts(client))
	require.NoError(t, err)

	_, err = router.Route(context.Background(), "   ")
	require.Error(t, err)
	assert.Equal(t, sdlcerrors.KindRouting, sdlcerrors.KindOf(err))
	assert.Empty(t, client.calls, "an empty prompt must never reach the model")
}

func TestRouteSendsStableClassificationPrompt(t *testing.T) {
	client := &fakeModelClient{reply: "payments-service"}
	router, err := NewRouter(testRegistry(t), noThrottleOpts(client))
	require.NoError(t, err)

	_, err = router.Route(context.Background(), "fix the refund bug")
	require.NoError(t, err)

	require.Len(t, client.calls, 1)
	req := client.calls[0]
	assert.InDelta(t, routingTemperature, req.Temperature, 0.0001)
	assert.Equal(t, routingMaxTokens, req.MaxTokens)

	text := req.Messages[0].Parts[0].(model.TextPart).Text
	assert.Contains(t, text, "## Available Repositories:")
	assert.Contains(t, text, "- payments-service: Handles payment processing and refunds")
	assert.Contains(t, text, "## User's Task:")
	assert.Contains(t, text, `Return ONLY the repository ID or "UNKNOWN".`)
}

func TestNewRouterRequiresRegistryAndClient(t *testing.T) {
	_, err := NewRouter(nil, RouterOptions{Client: &fakeModelClient{}})
	require.Error(t, err)

	_, err = NewRouter(New(), RouterOptions{})
	require.Error(t, err)
}

func TestRouteWithNoRegisteredRepositoriesErrors(t *testing.T) {
	client := &fakeModelClient{reply: "anything"}
	router, err := NewRouter(New(), noThrottleOpts(client))
	require.NoError(t, err)

	_, err = router.Route(context.Background(), "task")
	require.Error(t, err)
	assert.Empty(t, client.calls)
}
