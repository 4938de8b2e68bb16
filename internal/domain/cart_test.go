package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func sumSubtotals(c *Cart) int64 {
	var total int64
	for _, it := range c.Items {
		total += it.Price * int64(it.Quantity)
	}
	return total
}

func TestCart_TotalsExample(t *testing.T) {
	cart := NewCart(UserOwner(1))

	require.NoError(t, cart.AddItem(CartItem{ProductID: 1, Name: "Crystal Cup", Price: 1000, Quantity: 2}))
	require.NoError(t, cart.AddItem(CartItem{ProductID: 2, Name: "Star Plaque", Price: 500, Quantity: 1}))
	cart.Items[0].ID = 10
	cart.Items[1].ID = 11

	assert.Equal(t, 3, cart.TotalItems)
	assert.Equal(t, int64(2500), cart.TotalAmount)

	require.NoError(t, cart.RemoveItem(11))
	assert.Equal(t, 2, cart.TotalItems)
	assert.Equal(t, int64(2000), cart.TotalAmount)
}

func TestCart_AddItemMergesSameProductAndVariant(t *testing.T) {
	cart := NewCart(GuestOwner("b6d0b8a4-2d0b-4a53-9d67-0a3f2a1c1e11"))

	require.NoError(t, cart.AddItem(CartItem{ProductID: 1, VariantID: ptr(int64(7)), Price: 300, Quantity: 1}))
	require.NoError(t, cart.AddItem(CartItem{ProductID: 1, VariantID: ptr(int64(7)), Price: 300, Quantity: 2}))
	require.NoError(t, cart.AddItem(CartItem{ProductID: 1, VariantID: ptr(int64(8)), Price: 400, Quantity: 1}))
	require.NoError(t, cart.AddItem(CartItem{ProductID: 1, Price: 250, Quantity: 1}))

	require.Len(t, cart.Items, 3)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, int64(900), cart.Items[0].Subtotal)
	assert.Equal(t, 5, cart.TotalItems)
	assert.Equal(t, int64(1550), cart.TotalAmount)
}

func TestCart_AddItemRejectsNonPositiveQuantity(t *testing.T) {
	cart := NewCart(UserOwner(1))
	assert.ErrorIs(t, cart.AddItem(CartItem{ProductID: 1, Price: 100}), ErrInvalidQuantity)
	assert.Empty(t, cart.Items)
}

func TestCart_UpdateQuantity(t *testing.T) {
	cart := NewCart(UserOwner(1))
	require.NoError(t, cart.AddItem(CartItem{ProductID: 1, Price: 100, Quantity: 1}))
	cart.Items[0].ID = 5

	require.NoError(t, cart.UpdateQuantity(5, 4))
	assert.Equal(t, int64(400), cart.TotalAmount)

	assert.ErrorIs(t, cart.UpdateQuantity(99, 1), ErrCartItemNotFound)

	require.NoError(t, cart.UpdateQuantity(5, 0))
	assert.True(t, cart.IsEmpty())
	assert.Zero(t, cart.TotalAmount)
}

func TestCart_TotalsAlwaysMatchLines(t *testing.T) {
	cart := NewCart(UserOwner(1))
	ops := []func(){
		func() { _ = cart.AddItem(CartItem{ProductID: 1, Price: 199, Quantity: 3}) },
		func() { _ = cart.AddItem(CartItem{ProductID: 2, Price: 4999, Quantity: 1}) },
		func() {
			cart.Items[0].ID = 1
			_ = cart.UpdateQuantity(1, 7)
		},
		func() { _ = cart.AddItem(CartItem{ProductID: 1, Price: 199, Quantity: 1}) },
		func() {
			cart.Items[1].ID = 2
			_ = cart.RemoveItem(2)
		},
		func() { cart.Clear() },
	}

	for _, op := range ops {
		op()
		assert.Equal(t, sumSubtotals(cart), cart.TotalAmount)
	}
}

func TestCart_StoredTotalsAreNotTrusted(t *testing.T) {
	cart := &Cart{
		Items:       []CartItem{{ProductID: 1, Price: 100, Quantity: 2, Subtotal: 1}},
		TotalAmount: 999999,
		TotalItems:  42,
	}
	cart.Recalculate()

	assert.Equal(t, int64(200), cart.TotalAmount)
	assert.Equal(t, 2, cart.TotalItems)
	assert.Equal(t, int64(200), cart.Items[0].Subtotal)
}

func TestCart_RetainCollectsErrors(t *testing.T) {
	cart := NewCart(UserOwner(1))
	require.NoError(t, cart.AddItem(CartItem{ProductID: 1, Price: 100, Quantity: 1}))
	require.NoError(t, cart.AddItem(CartItem{ProductID: 2, Price: 200, Quantity: 1}))
	require.NoError(t, cart.AddItem(CartItem{ProductID: 3, Price: 300, Quantity: 1}))
	for i := range cart.Items {
		cart.Items[i].ID = int64(i + 1)
	}

	errs := cart.Retain(func(item *CartItem) *CartValidationError {
		switch item.ProductID {
		case 2:
			return &CartValidationError{Reason: "product unavailable"}
		case 3:
			item.Price = 350
		}
		return nil
	})

	require.Len(t, errs, 1)
	assert.Equal(t, CartValidationError{ItemID: 2, ProductID: 2, Reason: "product unavailable"}, errs[0])
	require.Len(t, cart.Items, 2)
	assert.Equal(t, int64(450), cart.TotalAmount)
}

func TestCart_Merge(t *testing.T) {
	user := NewCart(UserOwner(1))
	require.NoError(t, user.AddItem(CartItem{ID: 1, ProductID: 1, Price: 100, Quantity: 1}))

	guest := NewCart(NewGuestOwner())
	require.NoError(t, guest.AddItem(CartItem{ID: 8, ProductID: 1, Price: 100, Quantity: 2}))
	require.NoError(t, guest.AddItem(CartItem{ID: 9, ProductID: 5, Price: 50, Quantity: 1}))

	user.Merge(guest)

	require.Len(t, user.Items, 2)
	assert.Equal(t, int64(1), user.Items[0].ID)
	assert.Equal(t, 3, user.Items[0].Quantity)
	assert.Zero(t, user.Items[1].ID)
	assert.Equal(t, int64(350), user.TotalAmount)
}

func TestOwner(t *testing.T) {
	u := UserOwner(42)
	id, ok := u.UserID()
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, u.Validate())
	assert.Equal(t, "user:42", u.String())

	g := NewGuestOwner()
	assert.True(t, g.IsGuest())
	assert.NoError(t, g.Validate())
	_, ok = g.UserID()
	assert.False(t, ok)

	assert.ErrorIs(t, GuestOwner("not-a-uuid").Validate(), ErrInvalidOwner)
	assert.ErrorIs(t, Owner{Kind: "robot", ID: "1"}.Validate(), ErrInvalidOwner)
}

func TestReconcileCart(t *testing.T) {
	optimistic := &Cart{Items: []CartItem{
		{ProductID: 1, Price: 100, Quantity: 3},
		{ProductID: 2, Price: 50, Quantity: 0},
	}}
	server := &Cart{ID: 7, Items: []CartItem{{ID: 1, ProductID: 1, Price: 100, Quantity: 2}}}

	got := ReconcileCart(optimistic, server)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, int64(200), got.TotalAmount)
	assert.NotSame(t, server, got)

	got = ReconcileCart(optimistic, nil)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(300), got.TotalAmount)
	assert.Equal(t, 3, got.TotalItems)
	assert.Len(t, optimistic.Items, 2)

	got = ReconcileCart(nil, nil)
	assert.True(t, got.IsEmpty())
}
