package handlers_test

import (
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01moynul/storefront-golang/internal/models"
)

type placeOrderResult struct {
	Message string       `json:"message"`
	Order   models.Order `json:"order"`
}

func TestPlaceOrderWithEmptyCart(t *testing.T) {
	app := newTestApp(t)
	ann := app.signup("Ann", "ann@example.com", "password123")

	// No cart row at all.
	w := app.do(http.MethodPost, "/orders/place", ann.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Cart empty", message(t, w))

	// A cart that has been emptied.
	app.addToCart(ann.AccessToken, 1, "Phone", "10")
	app.do(http.MethodDelete, "/cart/clear", ann.AccessToken, nil)

	w = app.do(http.MethodPost, "/orders/place", ann.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, int64(0), app.count(&models.Order{}))
}

func TestCheckoutEndToEnd(t *testing.T) {
	app := newTestApp(t)
	ann := app.signup("Ann", "ann@example.com", "password123")

	assert.Empty(t, app.cart(ann.AccessToken))

	app.addToCart(ann.AccessToken, 1, "P1", "10")
	app.addToCart(ann.AccessToken, 1, "P1", "10")

	items := app.cart(ann.AccessToken)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, decimal.NewFromInt(20).Equal(items[0].Subtotal()))

	w := app.do(http.MethodPost, "/orders/place", ann.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"total":20`)

	res := decode[placeOrderResult](t, w)
	assert.Equal(t, "Order placed", res.Message)
	assert.True(t, decimal.NewFromInt(20).Equal(res.Order.Total))
	assert.NotEmpty(t, res.Order.Reference)
	require.Len(t, res.Order.Items, 1)
	assert.Equal(t, int64(1), res.Order.Items[0].ProductID)
	assert.Equal(t, 2, res.Order.Items[0].Quantity)

	assert.Empty(t, app.cart(ann.AccessToken))
}

func TestOrderIsASnapshot(t *testing.T) {
	app := newTestApp(t)
	ann := app.signup("Ann", "ann@example.com", "password123")

	app.addToCart(ann.AccessToken, 1, "Phone", "199.99")
	app.addToCart(ann.AccessToken, 2, "Case", "5.01")
	app.addToCart(ann.AccessToken, 2, "Case", "5.01")

	w := app.do(http.MethodPost, "/orders/place", ann.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	placed := decode[placeOrderResult](t, w).Order
	assert.True(t, decimal.RequireFromString("210.01").Equal(placed.Total))

	// Later cart activity must not touch the placed order.
	app.addToCart(ann.AccessToken, 1, "Phone", "149.99")

	w = app.do(http.MethodGet, fmt.Sprintf("/orders/%d", placed.ID), ann.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[map[string]models.Order](t, w)["order"]

	assert.Equal(t, placed.Reference, got.Reference)
	assert.True(t, placed.Total.Equal(got.Total))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Phone", got.Items[0].Title)
	assert.True(t, decimal.RequireFromString("199.99").Equal(got.Items[0].Price))
	assert.Equal(t, 1, got.Items[0].Quantity)
	assert.Equal(t, "Case", got.Items[1].Title)
	assert.Equal(t, 2, got.Items[1].Quantity)
}

func TestGetMyOrdersNewestFirst(t *testing.T) {
	app := newTestApp(t)

	clock := time.Date(2025, 9, 8, 13, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	app.h.Now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Minute)
		return clock
	}

	ann := app.signup("Ann", "ann@example.com", "password123")
	bob := app.signup("Bob", "bob@example.com", "password123")

	var refs []string
	for i := int64(1); i <= 3; i++ {
		app.addToCart(ann.AccessToken, i, fmt.Sprintf("Item %d", i), "1")
		w := app.do(http.MethodPost, "/orders/place", ann.AccessToken, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		refs = append(refs, decode[placeOrderResult](t, w).Order.Reference)
	}

	w := app.do(http.MethodGet, "/orders", ann.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	orders := decode[[]models.Order](t, w)
	require.Len(t, orders, 3)
	assert.Equal(t, refs[2], orders[0].Reference)
	assert.Equal(t, refs[1], orders[1].Reference)
	assert.Equal(t, refs[0], orders[2].Reference)
	for _, o := range orders {
		assert.Len(t, o.Items, 1)
	}

	w = app.do(http.MethodGet, "/orders", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestGetOrderDetailsIsScopedToOwner(t *testing.T) {
	app := newTestApp(t)
	ann := app.signup("Ann", "ann@example.com", "password123")
	bob := app.signup("Bob", "bob@example.com", "password123")

	app.addToCart(ann.AccessToken, 1, "Phone", "10")
	w := app.do(http.MethodPost, "/orders/place", ann.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	order := decode[placeOrderResult](t, w).Order
	path := fmt.Sprintf("/orders/%d", order.ID)

	w = app.do(http.MethodGet, path, bob.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Order not found", message(t, w))

	w = app.do(http.MethodGet, "/orders/999", ann.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(http.MethodGet, "/orders/abc", ann.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodGet, path, ann.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestConcurrentCheckoutPlacesOneOrder(t *testing.T) {
	app := newTestApp(t)
	ann := app.signup("Ann", "ann@example.com", "password123")
	app.addToCart(ann.AccessToken, 1, "Phone", "10")

	const n = 5
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = app.do(http.MethodPost, "/orders/place", ann.AccessToken, nil).Code
		}(i)
	}
	wg.Wait()

	placed := 0
	for _, code := range codes {
		if code == http.StatusOK {
			placed++
		} else {
			assert.Equal(t, http.StatusBadRequest, code)
		}
	}
	assert.Equal(t, 1, placed)
	assert.Equal(t, int64(1), app.count(&models.Order{}))
	assert.Equal(t, int64(1), app.count(&models.OrderItem{}))
}
