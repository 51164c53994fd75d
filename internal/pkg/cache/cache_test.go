package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ManuelReschke/InstaGrowth/internal/pkg/config"
)

func TestSetupCache(t *testing.T) {
	mr := miniredis.RunT(t)

	c := SetupCache(context.Background(), config.CacheConfig{Host: mr.Host(), Port: mr.Port()}, zap.NewNop())
	require.NotNil(t, c)
	t.Cleanup(func() { _ = Close(c) })

	assert.Same(t, c, GetClient())
	assert.NoError(t, c.Set(context.Background(), "k", "v", 0).Err())
	mr.CheckGet(t, "k", "v")
}

func TestSetupCache_Unconfigured(t *testing.T) {
	assert.Nil(t, SetupCache(context.Background(), config.CacheConfig{}, zap.NewNop()))
	assert.NoError(t, Close(nil))
}
