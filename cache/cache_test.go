package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var got string
	ok, err := m.Get(ctx, "articles.get:slug=x", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "articles.get:slug=x", "value", 0))
	ok, err = m.Get(ctx, "articles.get:slug=x", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "value", got)
}

func TestMemoryTTL(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	current := time.Now()
	m.now = func() time.Time { return current }

	require.NoError(t, m.Set(ctx, "k", 1, time.Minute))

	var got int
	ok, err := m.Get(ctx, "k", &got)
	require.NoError(t, err)
	require.True(t, ok)

	// One minute later the entry is expired and gone.
	current = current.Add(time.Minute + time.Second)
	ok, err = m.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestMemoryCleanPrefix(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "articles.get:slug=x", 1, 0))
	require.NoError(t, m.Set(ctx, "articles.list:limit=20", 2, 0))
	require.NoError(t, m.Set(ctx, "comments.list:article=1", 3, 0))

	require.NoError(t, m.CleanPrefix(ctx, "articles."))

	var got int
	ok, _ := m.Get(ctx, "articles.get:slug=x", &got)
	assert.False(t, ok)
	ok, _ = m.Get(ctx, "articles.list:limit=20", &got)
	assert.False(t, ok)
	ok, _ = m.Get(ctx, "comments.list:article=1", &got)
	assert.True(t, ok)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "articles.tags", Key("articles.tags"))
	assert.Equal(t, "articles.get:token=abc|slug=x", Key("articles.get", "token=abc", "slug=x"))
}
