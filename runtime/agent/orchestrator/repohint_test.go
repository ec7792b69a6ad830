package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractRepoHintMatchesInPattern(t *testing.T) {
	hint, ok := ExtractRepoHint("there's a bug in payments-service that needs fixing")
	assert.True(t, ok)
	assert.Equal(t, "payments-service", hint)
}

func TestExtractRepoHintMatchesRepoSuffix(t *testing.T) {
	hint, ok := ExtractRepoHint("checkout-bff repo is failing health checks")
	assert.True(t, ok)
	assert.Equal(t, "checkout-bff", hint)
}

func TestExtractRepoHintMatchesRepositoryPrefix(t *testing.T) {
	hint, ok := ExtractRepoHint("open a PR against repository checkout-api")
	assert.True(t, ok)
	assert.Equal(t, "checkout-api", hint)
}

func TestExtractRepoHintNoMatchReturnsFalse(t *testing.T) {
	_, ok := ExtractRepoHint("fix the bug somewhere in the system")
	assert.False(t, ok)
}
