package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
)

func TestClient_HandleIsCachedByModelAndTemperature(t *testing.T) {
	c := New(Config{APIKey: "default-key"})

	h1 := c.Handle("gpt-4o-mini", 0.1)
	h2 := c.Handle("gpt-4o-mini", 0.1)
	h3 := c.Handle("gpt-4o-mini", 0.0)

	assert.Same(t, h1, h2, "same (model, temperature) should reuse the handle")
	assert.NotSame(t, h1, h3, "different temperature should get a distinct handle")
}

func TestClient_ResolveAPIKey_PriorityOrder(t *testing.T) {
	c := New(Config{APIKey: "default-key"})

	key, err := c.resolveAPIKey(context.Background(), "call-site-key")
	require.NoError(t, err)
	assert.Equal(t, "call-site-key", key)

	ctx := WithAPIKey(context.Background(), "context-key")
	key, err = c.resolveAPIKey(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "context-key", key)

	key, err = c.resolveAPIKey(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "default-key", key)
}

func TestClient_ResolveAPIKey_MissingIsToolMisconfigured(t *testing.T) {
	c := New(Config{})
	_, err := c.resolveAPIKey(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, domain.KindToolMisconfigured, domain.KindOf(err))
}

func TestClient_ClientForReusesClientPerAPIKey(t *testing.T) {
	c := New(Config{})
	cl1 := c.clientFor("key-a")
	cl2 := c.clientFor("key-a")
	cl3 := c.clientFor("key-b")

	assert.Same(t, cl1, cl2)
	assert.NotSame(t, cl1, cl3)
}
