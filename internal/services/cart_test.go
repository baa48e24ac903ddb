package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/styleshop/storefront/internal/cart"
	"github.com/styleshop/storefront/internal/catalog"
	"github.com/styleshop/storefront/internal/models"
	"github.com/styleshop/storefront/internal/session"
)

func TestCartService_AddMergesVariant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := session.NewID()

	req := models.AddToCartRequest{ProductID: "1", Quantity: 2, Size: "M", Color: "#000000"}
	_, err := f.carts.AddToCart(ctx, id, req)
	require.NoError(t, err)
	resp, err := f.carts.AddToCart(ctx, id, req)
	require.NoError(t, err)

	require.Len(t, resp.Lines, 1)
	assert.Equal(t, 4, resp.Lines[0].Quantity)
	assert.Equal(t, 1, resp.ItemCount)
	assert.Equal(t, "EUR", resp.Currency)
	assert.Equal(t, "103.96", resp.Totals.Subtotal.StringFixed(2))
	assert.True(t, resp.Totals.Shipping.IsZero(), "above the free shipping threshold")
	assert.Equal(t, "21.83", resp.Totals.Tax.StringFixed(2))
	assert.Equal(t, "125.79", resp.Totals.Total.StringFixed(2))
}

func TestCartService_DistinctVariants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := session.NewID()

	_, err := f.carts.AddToCart(ctx, id, models.AddToCartRequest{ProductID: "1", Quantity: 1, Size: "M"})
	require.NoError(t, err)
	resp, err := f.carts.AddToCart(ctx, id, models.AddToCartRequest{ProductID: "1", Quantity: 1, Size: "L"})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.ItemCount)
	assert.Equal(t, "15.00", resp.Totals.Shipping.StringFixed(2))
}

func TestCartService_AddRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := session.NewID()

	_, err := f.carts.AddToCart(ctx, id, models.AddToCartRequest{ProductID: "nope", Quantity: 1})
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)

	_, err = f.carts.AddToCart(ctx, id, models.AddToCartRequest{ProductID: "1", Quantity: 1, Size: "XXXL"})
	assert.ErrorIs(t, err, ErrInvalidVariant)

	_, err = f.carts.AddToCart(ctx, id, models.AddToCartRequest{ProductID: "1", Quantity: 0})
	assert.ErrorIs(t, err, cart.ErrInvalidQuantity)

	count, err := f.sessions.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "failed adds must not create a session")
}

func TestCartService_UpdateAndRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := session.NewID()

	_, err := f.carts.AddToCart(ctx, id, models.AddToCartRequest{ProductID: "1", Quantity: 1, Size: "S"})
	require.NoError(t, err)
	_, err = f.carts.AddToCart(ctx, id, models.AddToCartRequest{ProductID: "2", Quantity: 1, Size: "30"})
	require.NoError(t, err)

	resp, err := f.carts.UpdateQuantity(ctx, id, models.UpdateCartRequest{ProductID: "1", Size: "S", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Lines[0].Quantity)

	resp, err = f.carts.UpdateQuantity(ctx, id, models.UpdateCartRequest{ProductID: "1", Size: "S", Quantity: 0})
	require.NoError(t, err)
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, "2", resp.Lines[0].Product.ID)

	resp, err = f.carts.RemoveFromCart(ctx, id, models.RemoveFromCartRequest{ProductID: "2", Size: "30"})
	require.NoError(t, err)
	assert.Empty(t, resp.Lines)
	assert.True(t, resp.Totals.Total.IsZero())
}

func TestCartService_Clear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := session.NewID()

	_, err := f.carts.AddToCart(ctx, id, models.AddToCartRequest{ProductID: "3", Quantity: 2})
	require.NoError(t, err)
	resp, err := f.carts.ClearCart(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, resp.ItemCount)

	got, err := f.carts.GetCart(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got.Lines)
}

func TestCartService_GetUnknownSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.carts.GetCart(ctx, session.NewID())
	require.NoError(t, err)
	assert.Empty(t, resp.Lines)
	assert.True(t, resp.Totals.Shipping.IsZero())

	count, err := f.sessions.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCartService_Favorites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := session.NewID()

	on, err := f.carts.ToggleFavorite(ctx, id, "3")
	require.NoError(t, err)
	assert.True(t, on)
	_, err = f.carts.ToggleFavorite(ctx, id, "1")
	require.NoError(t, err)

	favs, err := f.carts.Favorites(ctx, id)
	require.NoError(t, err)
	require.Len(t, favs, 2)
	assert.Equal(t, "3", favs[0].ID)
	assert.Equal(t, "1", favs[1].ID)

	on, err = f.carts.ToggleFavorite(ctx, id, "3")
	require.NoError(t, err)
	assert.False(t, on)

	_, err = f.carts.ToggleFavorite(ctx, id, "missing")
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestCartService_ConcurrentAdds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := session.NewID()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.carts.AddToCart(ctx, id, models.AddToCartRequest{ProductID: "1", Quantity: 1, Size: "M"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	resp, err := f.carts.GetCart(ctx, id)
	require.NoError(t, err)
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, 20, resp.Lines[0].Quantity)
}

func TestCartService_RecordActiveCarts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.AddToCart(ctx, session.NewID(), models.AddToCartRequest{ProductID: "1", Quantity: 1})
	require.NoError(t, err)

	assert.NotPanics(t, func() { f.carts.recordActiveCarts(ctx) })

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	f.carts.RunActiveCartsMonitor(cancelled, time.Hour)
}
