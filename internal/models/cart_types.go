package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices and totals go out as JSON numbers, matching what the storefront sends in.
	decimal.MarshalJSONWithoutQuotes = true
}

// Cart defines the struct for the 'carts' table. One cart per user.
type Cart struct {
	ID        int64      `json:"id" gorm:"primaryKey"`
	UserID    int64      `json:"userId" gorm:"uniqueIndex;not null"`
	User      User       `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Items     []CartItem `json:"items,omitempty" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// CartItem defines the struct for the 'cart_items' table.
// Title, price and thumbnail are a snapshot of the external catalog taken at add time.
type CartItem struct {
	ID        int64           `json:"id" gorm:"primaryKey"`
	CartID    int64           `json:"cartId" gorm:"not null;uniqueIndex:idx_cart_product"`
	ProductID int64           `json:"productId" gorm:"not null;uniqueIndex:idx_cart_product"`
	Title     string          `json:"title" gorm:"size:255;not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Thumbnail string          `json:"thumbnail" gorm:"size:1024"`
	Quantity  int             `json:"quantity" gorm:"not null;default:1"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Subtotal is price x quantity for the line.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartTotal sums the subtotals of the given lines.
func CartTotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}
