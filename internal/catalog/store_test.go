package catalog

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/storefront-go/internal/sqliteutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqliteutil.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewStore(db)
	require.NoError(t, store.Init(context.Background()))
	return store
}

func TestCreateAndGetSneaker(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateSneaker(ctx, CreateSneakerInput{
		Brand:       "Nike",
		Name:        "Air Max 95",
		Price:       179.99,
		Colorway:    "Wolf Grey/Volt",
		Colors:      []string{"grey", "volt"},
		ReleaseDate: "2024-06-01",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.NotEmpty(t, created.SKU)
	assert.Equal(t, created.Price, created.RetailPrice)

	got, err := store.GetSneaker(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Air Max 95", got.Name)
	assert.Equal(t, []string{"grey", "volt"}, got.Colors)
	assert.Equal(t, "2024-06-01", got.ReleaseDate.Format("2006-01-02"))
}

func TestCreateSneakerShortBrand(t *testing.T) {
	store := newTestStore(t)

	created, err := store.CreateSneaker(context.Background(), CreateSneakerInput{
		Brand: "Y",
		Name:  "Y-3 Qasa",
		Price: 300,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(created.SKU, "Y-"))
}

func TestCreateSneakerValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreateSneakerInput
	}{
		{name: "missing brand", input: CreateSneakerInput{Name: "Air Max 95", Price: 100}},
		{name: "missing name", input: CreateSneakerInput{Brand: "Nike", Price: 100}},
		{name: "zero price", input: CreateSneakerInput{Brand: "Nike", Name: "Air Max 95"}},
		{name: "bad release date", input: CreateSneakerInput{Brand: "Nike", Name: "Air Max 95", Price: 100, ReleaseDate: "06/01/2024"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.CreateSneaker(ctx, tc.input)
			assert.Error(t, err)
		})
	}
}

func TestGetSneakerNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetSneaker(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListSneakersNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older, err := store.CreateSneaker(ctx, CreateSneakerInput{Brand: "Nike", Name: "Air Force 1", Price: 110, ReleaseDate: "2023-01-15"})
	require.NoError(t, err)
	newer, err := store.CreateSneaker(ctx, CreateSneakerInput{Brand: "Adidas", Name: "Samba OG", Price: 100, ReleaseDate: "2024-03-10"})
	require.NoError(t, err)

	sneakers, err := store.ListSneakers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sneakers, 2)
	assert.Equal(t, newer.ID, sneakers[0].ID)
	assert.Equal(t, older.ID, sneakers[1].ID)
}

func TestListSneakersClampsLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, err := store.Seed(ctx, 30)
	require.NoError(t, err)

	sneakers, err := store.ListSneakers(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, sneakers, defaultListLimit)

	sneakers, err = store.ListSneakers(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, sneakers, 5)
}

func TestSearchSneakers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateSneaker(ctx, CreateSneakerInput{Brand: "Nike", Name: "Dunk Low", Price: 115, Colorway: "University Blue/White"})
	require.NoError(t, err)
	_, err = store.CreateSneaker(ctx, CreateSneakerInput{Brand: "New Balance", Name: "990v6", Price: 200, Colorway: "Grey"})
	require.NoError(t, err)

	byBrand, err := store.SearchSneakers(ctx, "nike", 10)
	require.NoError(t, err)
	require.Len(t, byBrand, 1)
	assert.Equal(t, "Dunk Low", byBrand[0].Name)

	byColorway, err := store.SearchSneakers(ctx, "University", 10)
	require.NoError(t, err)
	assert.Len(t, byColorway, 1)

	none, err := store.SearchSneakers(ctx, "crocs", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPopularBrands(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.CreateSneaker(ctx, CreateSneakerInput{Brand: "Nike", Name: "Air Max 95", Price: 100})
		require.NoError(t, err)
	}
	_, err := store.CreateSneaker(ctx, CreateSneakerInput{Brand: "Adidas", Name: "Samba OG", Price: 100})
	require.NoError(t, err)

	brands, err := store.PopularBrands(ctx, 8)
	require.NoError(t, err)
	require.Len(t, brands, 2)
	assert.Equal(t, BrandCount{Brand: "Nike", Count: 3}, brands[0])
	assert.Equal(t, BrandCount{Brand: "Adidas", Count: 1}, brands[1])
}

func TestSeedGeneratesPlausibleEntries(t *testing.T) {
	store := newTestStore(t)
	seeded, err := store.Seed(context.Background(), 12)
	require.NoError(t, err)
	require.Len(t, seeded, 12)
	for _, sneaker := range seeded {
		assert.NotEmpty(t, sneaker.ID)
		assert.NotEmpty(t, sneaker.Brand)
		assert.Greater(t, sneaker.Price, 0.0)
		assert.NotEmpty(t, sneaker.Colors)
	}
}
