package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allanbutler/kg-rag-grocery/core"
	"github.com/allanbutler/kg-rag-grocery/storage"
)

func setupStores(t *testing.T) *Stores {
	t.Helper()
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })
	return stores
}

func TestProductRepository_AddAndGet(t *testing.T) {
	stores := setupStores(t)
	ctx := context.Background()

	p := &core.Product{ID: 7, Row: 0, Name: "Oat Milk", Brand: "Moo", Price: 3.49, Attributes: "vegan"}
	require.NoError(t, stores.Products.AddProducts(ctx, p))

	got, err := stores.Products.GetProduct(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = stores.Products.GetProduct(ctx, 8)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProductRepository_RejectsInvalid(t *testing.T) {
	stores := setupStores(t)
	ctx := context.Background()

	err := stores.Products.AddProducts(ctx,
		&core.Product{ID: 1, Name: "Fine"},
		&core.Product{ID: 2, Name: ""},
	)
	assert.ErrorIs(t, err, core.ErrInvalidProduct)

	count, err := stores.Products.CountProducts(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "nothing is written when any product is invalid")
}

func TestProductRepository_ListInTableOrder(t *testing.T) {
	stores := setupStores(t)
	ctx := context.Background()

	require.NoError(t, stores.Products.AddProducts(ctx,
		&core.Product{ID: 30, Row: 2, Name: "Third"},
		&core.Product{ID: 10, Row: 0, Name: "First"},
		&core.Product{ID: 20, Row: 1, Name: "Second"},
	))

	list, err := stores.Products.ListProducts(ctx)
	require.NoError(t, err)
	var names []string
	for _, p := range list {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"First", "Second", "Third"}, names)
}

func TestProductRepository_ReplaceMovesRow(t *testing.T) {
	stores := setupStores(t)
	ctx := context.Background()

	require.NoError(t, stores.Products.AddProducts(ctx,
		&core.Product{ID: 1, Row: 0, Name: "A"},
		&core.Product{ID: 2, Row: 1, Name: "B"},
	))
	require.NoError(t, stores.Products.AddProducts(ctx, &core.Product{ID: 1, Row: 5, Name: "A2"}))

	list, err := stores.Products.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "B", list[0].Name)
	assert.Equal(t, "A2", list[1].Name)

	count, err := stores.Products.CountProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestProductRepository_LargeBatch(t *testing.T) {
	stores := setupStores(t)
	ctx := context.Background()

	var products []*core.Product
	for i := range productTxnBatch + 17 {
		products = append(products, &core.Product{ID: int64(i + 1), Row: i, Name: "item"})
	}
	require.NoError(t, stores.Products.AddProducts(ctx, products...))

	count, err := stores.Products.CountProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(products), count)
}

func TestProductRepository_ReplaceRemovesMissing(t *testing.T) {
	stores := setupStores(t)
	ctx := context.Background()

	require.NoError(t, stores.Products.AddProducts(ctx,
		&core.Product{ID: 1, Row: 0, Name: "Granola"},
		&core.Product{ID: 2, Row: 1, Name: "Oat Milk"},
	))
	require.NoError(t, stores.Products.ReplaceProducts(ctx,
		&core.Product{ID: 2, Row: 0, Name: "Oat Milk"},
		&core.Product{ID: 3, Row: 1, Name: "Rice Cakes"},
	))

	list, err := stores.Products.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Oat Milk", list[0].Name)
	assert.Equal(t, "Rice Cakes", list[1].Name)

	_, err = stores.Products.GetProduct(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProductRepository_ReplaceInvalidKeepsTable(t *testing.T) {
	stores := setupStores(t)
	ctx := context.Background()

	require.NoError(t, stores.Products.AddProducts(ctx, &core.Product{ID: 1, Name: "Granola"}))
	err := stores.Products.ReplaceProducts(ctx, &core.Product{ID: 2, Name: ""})
	assert.ErrorIs(t, err, core.ErrInvalidProduct)

	count, err := stores.Products.CountProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
