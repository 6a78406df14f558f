package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/01moynul/storefront-golang/internal/auth"
	"github.com/01moynul/storefront-golang/internal/middleware"
)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	DB     *gorm.DB
	Tokens *auth.TokenManager

	// Now is the clock used for timestamps and expiry checks. Nil means time.Now.
	Now func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// respondError writes the JSON error body every failure uses.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

// internalError logs the real cause and answers with a generic 500.
func internalError(c *gin.Context, message string, err error) {
	log.Printf("ERROR: %s %s: %s: %v", c.Request.Method, c.FullPath(), message, err)
	respondError(c, http.StatusInternalServerError, message)
}

// currentUserID reads the ID put in the context by AuthMiddleware.
func currentUserID(c *gin.Context) (int64, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "No token")
		return 0, false
	}
	return userID, true
}

// idParam parses a positive integer path parameter.
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}
