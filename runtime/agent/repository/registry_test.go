package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdlc-agents/orchestrator/runtime/agent/sdlcerrors"
)

const validYAML = `
repositories:
  - id: payments-service
    description: Handles payment processing and refunds
    github_url: https://github.com/acme/payments-service
  - id: checkout-bff
    description: BFF for the checkout flow
    github_url: https://github.com/acme/checkout-bff
    branch: develop
    enable_code_execution: true
`

func TestLoadYAMLPopulatesRegistryInStableOrder(t *testing.T) {
	reg, err := LoadYAML([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"payments-service", "checkout-bff"}, idsOf(reg.List()))
}

func TestLoadYAMLAppliesDefaults(t *testing.T) {
	reg, err := LoadYAML([]byte(validYAML))
	require.NoError(t, err)

	cfg, err := reg.Get(context.Background(), "payments-service")
	require.NoError(t, err)
	assert.Equal(t, defaultLocalPath, cfg.LocalPath)
	assert.Equal(t, defaultBranch, cfg.Branch)
	assert.False(t, cfg.EnableCodeExecution)

	cfg2, err := reg.Get(context.Background(), "checkout-bff")
	require.NoError(t, err)
	assert.Equal(t, "develop", cfg2.Branch)
	assert.True(t, cfg2.EnableCodeExecution)
}

func TestLoadYAMLRejectsUnknownKeys(t *testing.T) {
	_, err := LoadYAML([]byte(`
repositories:
  - id: x
    description: y
    github_url: z
    bogus_field: oops
`))
	require.Error(t, err)
	assert.Equal(t, sdlcerrors.KindConfiguration, sdlcerrors.KindOf(err))
}

func TestLoadYAMLFailsFastOnDuplicateID(t *testing.T) {
	_, err := LoadYAML([]byte(`
repositories:
  - id: dup
    description: first
    github_url: https://github.com/acme/a
  - id: dup
    description: second
    github_url: https://github.com/acme/b
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate repository id")
}

func TestLoadYAMLRejectsMissingRequiredFields(t *testing.T) {
	_, err := LoadYAML([]byte(`
repositories:
  - id: missing-description
    github_url: https://github.com/acme/a
`))
	require.Error(t, err)
}

func TestLoadYAMLRejectsMalformedYAML(t *testing.T) {
	_, err := LoadYAML([]byte("repositories: [this is not valid: yaml"))
	require.Error(t, err)
	assert.Equal(t, sdlcerrors.KindConfiguration, sdlcerrors.KindOf(err))
}

func TestGetUnknownIDReturnsError(t *testing.T) {
	reg := New()
	_, err := reg.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.False(t, reg.Has("nope"))
}

func TestRegisterRejectsDuplicateAfterLoad(t *testing.T) {
	reg, err := LoadYAML([]byte(validYAML))
	require.NoError(t, err)

	err = reg.Register(Config{ID: "payments-service", Description: "dup", GitHubURL: "https://github.com/acme/x"})
	require.Error(t, err)
}

func idsOf(repos []Config) []string {
	ids := make([]string, len(repos))
	for i, r := range repos {
		ids[i] = r.ID
	}
	return ids
}
