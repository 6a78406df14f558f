package client

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/01moynul/storefront-golang/internal/models"
)

// CartStore is a local view of the server cart. Mutations go to the server
// first and the view is then reloaded from it; the view is never edited in
// place.
type CartStore struct {
	client  *Client
	session *Session

	mu        sync.RWMutex
	items     []models.CartItem
	listeners []func([]models.CartItem)
}

func NewCartStore(c *Client, s *Session) *CartStore {
	return &CartStore{client: c, session: s}
}

// Subscribe registers fn to be called with the new lines after every sync.
func (cs *CartStore) Subscribe(fn func([]models.CartItem)) {
	cs.mu.Lock()
	cs.listeners = append(cs.listeners, fn)
	cs.mu.Unlock()
}

// Sync replaces the view with the server's cart.
func (cs *CartStore) Sync(ctx context.Context) error {
	items, err := cs.client.Cart(ctx, cs.session)
	if err != nil {
		return err
	}
	if items == nil {
		items = []models.CartItem{}
	}

	cs.mu.Lock()
	cs.items = items
	listeners := append([]func([]models.CartItem){}, cs.listeners...)
	cs.mu.Unlock()

	for _, fn := range listeners {
		fn(cs.Items())
	}
	return nil
}

func (cs *CartStore) Add(ctx context.Context, p Product) error {
	if err := cs.client.AddToCart(ctx, cs.session, p); err != nil {
		return err
	}
	return cs.Sync(ctx)
}

// SetQuantity changes a line's quantity; zero removes it.
func (cs *CartStore) SetQuantity(ctx context.Context, itemID int64, quantity int) error {
	if err := cs.client.UpdateCartItem(ctx, cs.session, itemID, quantity); err != nil {
		return err
	}
	return cs.Sync(ctx)
}

func (cs *CartStore) Remove(ctx context.Context, itemID int64) error {
	if err := cs.client.RemoveCartItem(ctx, cs.session, itemID); err != nil {
		return err
	}
	return cs.Sync(ctx)
}

func (cs *CartStore) Clear(ctx context.Context) error {
	if err := cs.client.ClearCart(ctx, cs.session); err != nil {
		return err
	}
	return cs.Sync(ctx)
}

// Checkout places an order from the server cart and reloads the view.
func (cs *CartStore) Checkout(ctx context.Context) (models.Order, error) {
	order, err := cs.client.PlaceOrder(ctx, cs.session)
	if err != nil {
		return models.Order{}, err
	}
	return order, cs.Sync(ctx)
}

// Items returns a copy of the last synced lines.
func (cs *CartStore) Items() []models.CartItem {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return append([]models.CartItem(nil), cs.items...)
}

func (cs *CartStore) Subtotal() decimal.Decimal {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return models.CartTotal(cs.items)
}

// Count is the number of units across all lines.
func (cs *CartStore) Count() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	n := 0
	for _, item := range cs.items {
		n += item.Quantity
	}
	return n
}
