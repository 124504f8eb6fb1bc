package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/models"
)

func TestCartService_AddAndMerge(t *testing.T) {
	db := newTestDB(t)
	carts := NewCartService(db)
	ctx := context.Background()
	customer := createUser(t, db, models.RoleCustomer)
	rice := createProduct(t, db, "Nasi Goreng", 35000, 10)
	tea := createProduct(t, db, "Es Teh", 8000, 10)

	_, err := carts.AddItem(ctx, customer, rice.ID, 1)
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, customer, tea.ID, 2)
	require.NoError(t, err)
	view, err := carts.AddItem(ctx, customer, rice.ID, 2)
	require.NoError(t, err)

	require.Len(t, view.Lines, 2)
	assert.Equal(t, rice.ID, view.Lines[0].ProductID)
	assert.Equal(t, 3, view.Lines[0].Qty)
	assert.Equal(t, int64(105000), view.Lines[0].LineTotal)
	assert.Equal(t, int64(121000), view.Subtotal)
	assert.Equal(t, 5, view.Count)
}

func TestCartService_Validation(t *testing.T) {
	db := newTestDB(t)
	carts := NewCartService(db)
	ctx := context.Background()
	customer := createUser(t, db, models.RoleCustomer)
	rice := createProduct(t, db, "Nasi Goreng", 35000, 10)

	_, err := carts.AddItem(ctx, models.Actor{}, rice.ID, 1)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = carts.GetCart(ctx, models.Actor{})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = carts.AddItem(ctx, customer, rice.ID, 0)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = carts.AddItem(ctx, customer, rice.ID, 1000)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = carts.AddItem(ctx, customer, rice.ID, 999)
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, customer, rice.ID, 1)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = carts.AddItem(ctx, customer, "missing", 1)
	assert.ErrorIs(t, err, ErrProductNotFound)

	hidden := createProduct(t, db, "Menu Lama", 10000, 10)
	require.NoError(t, db.Model(&hidden).Update("is_active", false).Error)
	_, err = carts.AddItem(ctx, customer, hidden.ID, 1)
	assert.ErrorIs(t, err, ErrProductInactive)
}

func TestCartService_SetQtyRemoveClear(t *testing.T) {
	db := newTestDB(t)
	carts := NewCartService(db)
	ctx := context.Background()
	customer := createUser(t, db, models.RoleCustomer)
	other := createUser(t, db, models.RoleCustomer)
	rice := createProduct(t, db, "Nasi Goreng", 35000, 10)
	tea := createProduct(t, db, "Es Teh", 8000, 10)

	view, err := carts.SetItemQty(ctx, customer, rice.ID, 4)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 4, view.Lines[0].Qty)

	view, err = carts.SetItemQty(ctx, customer, rice.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Lines[0].Qty)

	_, err = carts.AddItem(ctx, customer, tea.ID, 1)
	require.NoError(t, err)
	view, err = carts.SetItemQty(ctx, customer, tea.ID, 0)
	require.NoError(t, err)
	assert.Len(t, view.Lines, 1)

	_, err = carts.RemoveItem(ctx, customer, tea.ID)
	assert.ErrorIs(t, err, ErrCartItemMissing)
	_, err = carts.RemoveItem(ctx, other, rice.ID)
	assert.ErrorIs(t, err, ErrCartItemMissing)

	_, err = carts.SetItemQty(ctx, customer, rice.ID, -1)
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, carts.Clear(ctx, customer))
	view, err = carts.GetCart(ctx, customer)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.Zero(t, view.Subtotal)
	assert.Zero(t, countRows(t, db, &models.CartItem{}, ""))

	// clearing an absent cart is fine
	assert.NoError(t, carts.Clear(ctx, customer))
}
