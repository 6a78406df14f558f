package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the model for the 'orders' table. Items are written once at
// placement and never updated afterwards.
type Order struct {
	ID        int64           `json:"id" gorm:"primaryKey"`
	UserID    int64           `json:"userId" gorm:"index;not null"`
	User      User            `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Reference string          `json:"reference" gorm:"size:64;uniqueIndex;not null"`
	Total     decimal.Decimal `json:"total" gorm:"type:decimal(12,2);not null"`
	Items     []OrderItem     `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time       `json:"createdAt" gorm:"index"`
}

// OrderItem is the model for the 'order_items' table: a copy of a cart line
// at the moment the order was placed.
type OrderItem struct {
	ID        int64           `json:"id" gorm:"primaryKey"`
	OrderID   int64           `json:"orderId" gorm:"index;not null"`
	ProductID int64           `json:"productId" gorm:"not null"`
	Title     string          `json:"title" gorm:"size:255;not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Thumbnail string          `json:"thumbnail" gorm:"size:1024"`
}

// NewOrderFromCart snapshots the cart lines into a new, unsaved order.
func NewOrderFromCart(userID int64, items []CartItem, now time.Time) Order {
	order := Order{
		UserID:    userID,
		Reference: NewOrderReference(now),
		Total:     CartTotal(items),
		Items:     make([]OrderItem, 0, len(items)),
		CreatedAt: now,
	}
	for _, item := range items {
		order.Items = append(order.Items, OrderItem{
			ProductID: item.ProductID,
			Title:     item.Title,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Thumbnail: item.Thumbnail,
		})
	}
	return order
}

// NewOrderReference returns e.g. "20250908130500-<uuid4>".
func NewOrderReference(now time.Time) string {
	return now.UTC().Format("20060102150405") + "-" + uuid.NewString()
}

// All lists every model in migration order.
func All() []any {
	return []any{
		&User{},
		&RefreshToken{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
	}
}
