package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/01moynul/storefront-golang/internal/models"
)

//
// --- Cart Handlers ---
//

// maxCartQuantity is the most units one cart line can hold.
const maxCartQuantity = 1000

// maxPrice is the first value a decimal(12,2) price column cannot hold.
var maxPrice = decimal.New(1, 10)

var (
	errItemNotFound  = errors.New("cart item not found")
	errQuantityLimit = errors.New("cart item quantity limit reached")
)

// getOrCreateCart finds the user's cart, creating it if needed, and locks
// its row for the rest of the transaction. Every cart mutation and checkout
// takes this lock (directly or through findCart), so they are serialized
// per cart.
func getOrCreateCart(tx *gorm.DB, userID int64) (models.Cart, error) {
	fresh := models.Cart{UserID: userID}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&fresh).Error
	if err != nil {
		return models.Cart{}, err
	}

	cart, found, err := findCart(tx, userID, true)
	if err != nil {
		return models.Cart{}, err
	}
	if !found {
		return models.Cart{}, gorm.ErrRecordNotFound
	}
	return cart, nil
}

// findCart loads the user's cart without creating one. With lock set the
// row is taken FOR UPDATE.
func findCart(tx *gorm.DB, userID int64, lock bool) (models.Cart, bool, error) {
	q := tx
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var cart models.Cart
	err := q.Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Cart{}, false, nil
	}
	if err != nil {
		return models.Cart{}, false, err
	}
	return cart, true, nil
}

// userCartIDs is a subquery selecting the caller's cart id, for reads scoped
// to the owner.
func userCartIDs(db *gorm.DB, userID int64) *gorm.DB {
	return db.Model(&models.Cart{}).Select("id").Where("user_id = ?", userID)
}

// AddToCartInput defines the JSON for adding a product to the cart. The
// title, price and thumbnail come from the external catalog.
type AddToCartInput struct {
	ProductID int64            `json:"productId" binding:"required,gt=0"`
	Title     string           `json:"title" binding:"required,max=255"`
	Price     *decimal.Decimal `json:"price" binding:"required"`
	Thumbnail string           `json:"thumbnail" binding:"omitempty,max=1024"`
}

// AddToCart handles POST /cart/add. A second add of the same product bumps
// the quantity of the existing line instead of inserting a new one.
func (h *Handlers) AddToCart(c *gin.Context) {
	// 1. --- Get User ID ---
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	// 2. --- Bind & Validate JSON ---
	var input AddToCartInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if input.Price.IsNegative() {
		respondError(c, http.StatusBadRequest, "Price must not be negative")
		return
	}
	price := input.Price.Round(2)
	if price.GreaterThanOrEqual(maxPrice) {
		respondError(c, http.StatusBadRequest, "Invalid price")
		return
	}

	// 3. --- Lock the Cart and Upsert the Line ---
	now := h.now()
	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		cart, err := getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}

		// The cart row is locked, so this read stays true until commit.
		var existing models.CartItem
		err = tx.Where("cart_id = ? AND product_id = ?", cart.ID, input.ProductID).
			Limit(1).
			Find(&existing).Error
		if err != nil {
			return err
		}
		if existing.ID != 0 && existing.Quantity >= maxCartQuantity {
			return errQuantityLimit
		}

		item := models.CartItem{
			CartID:    cart.ID,
			ProductID: input.ProductID,
			Title:     input.Title,
			Price:     price,
			Thumbnail: input.Thumbnail,
			Quantity:  1,
			CreatedAt: now,
			UpdatedAt: now,
		}

		// Single-statement upsert: the increment happens in the database.
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("cart_items.quantity + ?", 1),
				"updated_at": now,
			}),
		}).Create(&item).Error
	})

	// 4. --- Send Response ---
	if err != nil {
		if errors.Is(err, errQuantityLimit) {
			respondError(c, http.StatusBadRequest, "Quantity limit reached")
			return
		}
		internalError(c, "Failed to update cart", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Added to cart"})
}

// GetCart handles GET /cart and returns the current lines.
func (h *Handlers) GetCart(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	items := []models.CartItem{}
	db := h.DB.WithContext(c.Request.Context())
	err := db.Where("cart_id IN (?)", userCartIDs(db, userID)).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		internalError(c, "Failed to query cart items", err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// UpdateCartItemInput sets a line's quantity. Zero removes the line.
type UpdateCartItemInput struct {
	Quantity *int `json:"quantity" binding:"required,gte=0,lte=1000"`
}

// UpdateCartItem handles PUT /cart/items/:id.
func (h *Handlers) UpdateCartItem(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	itemID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var input UpdateCartItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if *input.Quantity == 0 {
		h.deleteCartItem(c, userID, itemID)
		return
	}

	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		cart, found, err := findCart(tx, userID, true)
		if err != nil {
			return err
		}
		if !found {
			return errItemNotFound
		}

		result := tx.Model(&models.CartItem{}).
			Where("id = ? AND cart_id = ?", itemID, cart.ID).
			Updates(map[string]interface{}{"quantity": *input.Quantity, "updated_at": h.now()})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errItemNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errItemNotFound) {
			respondError(c, http.StatusNotFound, "Item not found in cart")
			return
		}
		internalError(c, "Failed to update item", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cart item quantity updated"})
}

// RemoveCartItem handles DELETE /cart/remove/:id.
func (h *Handlers) RemoveCartItem(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	itemID, ok := idParam(c, "id")
	if !ok {
		return
	}

	h.deleteCartItem(c, userID, itemID)
}

// deleteCartItem removes one line, and only if it sits in the caller's cart.
func (h *Handlers) deleteCartItem(c *gin.Context, userID, itemID int64) {
	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		cart, found, err := findCart(tx, userID, true)
		if err != nil {
			return err
		}
		if !found {
			return errItemNotFound
		}

		result := tx.Where("id = ? AND cart_id = ?", itemID, cart.ID).Delete(&models.CartItem{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errItemNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errItemNotFound) {
			respondError(c, http.StatusNotFound, "Item not found in cart")
			return
		}
		internalError(c, "Failed to delete item", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item removed"})
}

// ClearCart handles DELETE /cart/clear. A user without a cart gets the same
// answer as one with an empty cart.
func (h *Handlers) ClearCart(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		cart, found, err := findCart(tx, userID, true)
		if err != nil || !found {
			return err
		}
		return tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error
	})
	if err != nil {
		internalError(c, "Failed to clear cart", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}
