package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/01moynul/storefront-golang/internal/email"
	"github.com/01moynul/storefront-golang/internal/models"
)

//
// --- Order Handlers ---
//

var errEmptyCart = errors.New("cart is empty")

// placeOrder turns the user's cart into an order inside tx. The cart row is
// locked first, so a concurrent add or checkout for the same cart waits.
func placeOrder(tx *gorm.DB, userID int64, now time.Time) (models.Order, error) {
	// 1. --- Lock the Cart ---
	cart, found, err := findCart(tx, userID, true)
	if err != nil {
		return models.Order{}, err
	}
	if !found {
		return models.Order{}, errEmptyCart
	}

	// 2. --- Read the Lines ---
	var items []models.CartItem
	if err := tx.Where("cart_id = ?", cart.ID).Order("id ASC").Find(&items).Error; err != nil {
		return models.Order{}, err
	}
	if len(items) == 0 {
		return models.Order{}, errEmptyCart
	}

	// 3. --- Snapshot into an Order ---
	order := models.NewOrderFromCart(userID, items, now)
	if err := tx.Create(&order).Error; err != nil {
		return models.Order{}, err
	}

	// 4. --- Empty the Cart ---
	// Only the lines that went into the order are removed.
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	if err := tx.Where("cart_id = ? AND id IN ?", cart.ID, ids).Delete(&models.CartItem{}).Error; err != nil {
		return models.Order{}, err
	}

	return order, nil
}

// PlaceOrder handles POST /orders/place.
func (h *Handlers) PlaceOrder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var order models.Order
	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = placeOrder(tx, userID, h.now())
		return err
	})
	if err != nil {
		if errors.Is(err, errEmptyCart) {
			respondError(c, http.StatusBadRequest, "Cart empty")
			return
		}
		internalError(c, "Failed to place order", err)
		return
	}

	h.sendOrderConfirmation(c, userID, order)

	c.JSON(http.StatusOK, gin.H{
		"message": "Order placed",
		"order":   order,
	})
}

// sendOrderConfirmation is best effort; the order is already committed.
func (h *Handlers) sendOrderConfirmation(c *gin.Context, userID int64, order models.Order) {
	var user models.User
	if err := h.DB.WithContext(c.Request.Context()).Select("id", "email").First(&user, userID).Error; err != nil {
		log.Printf("ERROR: Failed to load user %d for order %s confirmation: %v", userID, order.Reference, err)
		return
	}
	if err := email.SendOrderConfirmation(user.Email, order.Reference, order.Total, len(order.Items)); err != nil {
		log.Printf("ERROR: Failed to send order confirmation to %s: %v", user.Email, err)
	}
}

func preloadOrderItems(db *gorm.DB) *gorm.DB {
	return db.Order("order_items.id ASC")
}

// GetMyOrders handles GET /orders, newest first.
func (h *Handlers) GetMyOrders(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	orders := []models.Order{}
	err := h.DB.WithContext(c.Request.Context()).
		Preload("Items", preloadOrderItems).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&orders).Error
	if err != nil {
		internalError(c, "Failed to fetch orders", err)
		return
	}

	c.JSON(http.StatusOK, orders)
}

// GetOrderDetails handles GET /orders/:id for one of the caller's orders.
func (h *Handlers) GetOrderDetails(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var order models.Order
	err := h.DB.WithContext(c.Request.Context()).
		Preload("Items", preloadOrderItems).
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "Order not found")
			return
		}
		internalError(c, "Failed to fetch order", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}
