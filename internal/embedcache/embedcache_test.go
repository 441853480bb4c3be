package embedcache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jimmy12-d/rean-ai/internal/embedcache"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) ModelName() string { return "counting" }

func TestWrapLRUCachesRepeatedQueries(t *testing.T) {
	inner := &countingEmbedder{}
	cached := embedcache.WrapLRU(inner, 16, time.Minute)

	first, err := cached.Embed(context.Background(), "F = ma")
	require.NoError(t, err)
	second, err := cached.Embed(context.Background(), "F = ma")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, inner.calls)

	_, err = cached.Embed(context.Background(), "different text")
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestWrapLRUDoesNotCacheFailures(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("provider down")}
	cached := embedcache.WrapLRU(inner, 16, time.Minute)

	_, err := cached.Embed(context.Background(), "x")
	require.Error(t, err)
	_, err = cached.Embed(context.Background(), "x")
	require.Error(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestWrapLRUReturnsIndependentCopies(t *testing.T) {
	inner := &countingEmbedder{}
	cached := embedcache.WrapLRU(inner, 16, time.Minute)

	first, err := cached.Embed(context.Background(), "abc")
	require.NoError(t, err)
	first[0] = -99

	second, err := cached.Embed(context.Background(), "abc")
	require.NoError(t, err)
	require.NotEqual(t, float32(-99), second[0])
}

func TestWrapLRUDisabled(t *testing.T) {
	inner := &countingEmbedder{}
	require.Equal(t, inner, embedcache.WrapLRU(inner, 0, time.Minute))
	require.Equal(t, inner, embedcache.WrapLRU(inner, 16, 0))
	require.Nil(t, embedcache.WrapLRU(nil, 16, time.Minute))
}
