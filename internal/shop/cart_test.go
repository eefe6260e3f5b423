package shop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartAddMergesDuplicates(t *testing.T) {
	_, session := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, session.Cart.AddItem(ctx, sneakerFixture("sn-1", 150)))
	require.NoError(t, session.Cart.AddItem(ctx, sneakerFixture("sn-2", 90)))
	require.NoError(t, session.Cart.AddItem(ctx, sneakerFixture("sn-1", 150)))

	items := session.Cart.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "sn-1", items[0].ID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "sn-2", items[1].ID)
	assert.Equal(t, 1, items[1].Quantity)

	assert.Equal(t, 3, session.Cart.ItemCount())
	assert.InDelta(t, 390.0, session.Cart.Total(), 1e-9)
}

func TestCartAddFallsBackToThumbnail(t *testing.T) {
	_, session := newTestSession(t)

	sneaker := sneakerFixture("sn-1", 120)
	sneaker.Image = ""
	require.NoError(t, session.Cart.AddItem(context.Background(), sneaker))

	items := session.Cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, sneaker.Thumbnail, items[0].Image)
}

func TestCartUpdateQuantityClampsToOne(t *testing.T) {
	tests := []struct {
		name string
		set  int
		want int
	}{
		{name: "zero clamps", set: 0, want: 1},
		{name: "negative clamps", set: -3, want: 1},
		{name: "positive sticks", set: 7, want: 7},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, session := newTestSession(t)
			ctx := context.Background()
			require.NoError(t, session.Cart.AddItem(ctx, sneakerFixture("sn-1", 50)))

			require.NoError(t, session.Cart.UpdateQuantity(ctx, "sn-1", tc.set))
			assert.Equal(t, tc.want, session.Cart.Items()[0].Quantity)
		})
	}
}

func TestCartRemoveUnknownIsNoop(t *testing.T) {
	_, session := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, session.Cart.AddItem(ctx, sneakerFixture("sn-1", 50)))

	require.NoError(t, session.Cart.RemoveItem(ctx, "missing"))
	assert.Len(t, session.Cart.Items(), 1)

	require.NoError(t, session.Cart.RemoveItem(ctx, "sn-1"))
	assert.Empty(t, session.Cart.Items())
	assert.Zero(t, session.Cart.Total())
}

func TestCartClear(t *testing.T) {
	_, session := newTestSession(t)
	ctx := context.Background()
	fillCart(t, session, sneakerFixture("sn-1", 50), sneakerFixture("sn-2", 60))

	require.NoError(t, session.Cart.Clear(ctx))
	assert.Empty(t, session.Cart.Items())
	assert.Zero(t, session.Cart.ItemCount())
}

func TestCartSurvivesReload(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySnapshots()

	cart, err := NewCartStore(ctx, repo, "profile-1")
	require.NoError(t, err)
	require.NoError(t, cart.AddItem(ctx, sneakerFixture("sn-1", 150)))
	require.NoError(t, cart.UpdateQuantity(ctx, "sn-1", 3))

	reloaded, err := NewCartStore(ctx, repo, "profile-1")
	require.NoError(t, err)
	assert.Equal(t, cart.Items(), reloaded.Items())
	assert.Equal(t, 3, reloaded.ItemCount())

	other, err := NewCartStore(ctx, repo, "profile-2")
	require.NoError(t, err)
	assert.Empty(t, other.Items())
}
