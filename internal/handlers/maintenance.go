package handlers

import (
	"context"
	"log"

	"github.com/01moynul/storefront-golang/internal/models"
)

// PurgeExpiredRefreshTokens deletes refresh-token rows past their expiry.
// Those tokens would be rejected anyway; this only keeps the table small.
func (h *Handlers) PurgeExpiredRefreshTokens(ctx context.Context) (int64, error) {
	result := h.DB.WithContext(ctx).
		Where("expires_at < ?", h.now()).
		Delete(&models.RefreshToken{})
	if result.Error != nil {
		log.Printf("ERROR: Failed to purge expired refresh tokens: %v", result.Error)
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("Purged %d expired refresh token(s)", result.RowsAffected)
	}
	return result.RowsAffected, nil
}
