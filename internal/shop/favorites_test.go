package shop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFavoritesAddIsIdempotent(t *testing.T) {
	_, session := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, session.Favorites.Add(ctx, "sn-1"))
	require.NoError(t, session.Favorites.Add(ctx, "sn-1"))
	require.NoError(t, session.Favorites.Add(ctx, "sn-2"))

	assert.Equal(t, []string{"sn-1", "sn-2"}, session.Favorites.List())
}

func TestFavoritesToggleFlipsMembership(t *testing.T) {
	_, session := newTestSession(t)
	ctx := context.Background()

	on, err := session.Favorites.Toggle(ctx, "sn-1")
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, session.Favorites.IsFavorite("sn-1"))

	off, err := session.Favorites.Toggle(ctx, "sn-1")
	require.NoError(t, err)
	assert.False(t, off)
	assert.False(t, session.Favorites.IsFavorite("sn-1"))
	assert.Empty(t, session.Favorites.List())
}

func TestFavoritesRemoveUnknownIsNoop(t *testing.T) {
	_, session := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, session.Favorites.Add(ctx, "sn-1"))

	require.NoError(t, session.Favorites.Remove(ctx, "missing"))
	assert.Equal(t, []string{"sn-1"}, session.Favorites.List())
}

func TestFavoritesClear(t *testing.T) {
	_, session := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, session.Favorites.Add(ctx, "sn-1"))
	require.NoError(t, session.Favorites.Add(ctx, "sn-2"))

	require.NoError(t, session.Favorites.Clear(ctx))
	assert.Empty(t, session.Favorites.List())
	assert.False(t, session.Favorites.IsFavorite("sn-1"))
}

func TestFavoritesSurviveReload(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySnapshots()

	favorites, err := NewFavoritesStore(ctx, repo, "profile-1")
	require.NoError(t, err)
	require.NoError(t, favorites.Add(ctx, "sn-2"))
	require.NoError(t, favorites.Add(ctx, "sn-1"))

	reloaded, err := NewFavoritesStore(ctx, repo, "profile-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"sn-2", "sn-1"}, reloaded.List())
}
