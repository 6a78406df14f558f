package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/01moynul/storefront-golang/internal/auth"
	"github.com/01moynul/storefront-golang/internal/database"
	"github.com/01moynul/storefront-golang/internal/email"
	"github.com/01moynul/storefront-golang/internal/models"
)

var errDuplicateUser = errors.New("user already exists")

// --- Signup ---

// SignupInput is separate from models.User so a client can never set an id
// or a hash directly.
type SignupInput struct {
	Name     string `json:"name" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         models.User `json:"user"`
}

// Signup handles POST /signup.
func (h *Handlers) Signup(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input SignupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		respondError(c, http.StatusBadRequest, "Name is required")
		return
	}

	// 2. --- Hash the Password ---
	var password models.Password
	if err := password.Set(input.Password); err != nil {
		internalError(c, "Failed to hash password", err)
		return
	}

	now := h.now()
	user := models.User{
		Name:         name,
		Email:        normalizeEmail(input.Email),
		PasswordHash: password.Hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// 3. --- Create User & Issue Tokens ---
	var resp AuthResponse
	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		taken, err := emailTaken(tx, user.Email, 0)
		if err != nil {
			return err
		}
		if taken {
			return errDuplicateUser
		}

		if err := tx.Create(&user).Error; err != nil {
			if database.IsDuplicateKey(err) {
				return errDuplicateUser
			}
			return err
		}

		resp, err = h.issueTokens(tx, user)
		return err
	})
	if err != nil {
		if errors.Is(err, errDuplicateUser) {
			respondError(c, http.StatusBadRequest, "User already exists")
			return
		}
		internalError(c, "Failed to register user", err)
		return
	}

	// 4. --- Send Welcome Email & Response ---
	if err := email.SendWelcomeEmail(user.Email, user.Name); err != nil {
		log.Printf("ERROR: Failed to send welcome email to %s: %v", user.Email, err)
	}

	c.JSON(http.StatusCreated, resp)
}

// --- Login ---

// LoginInput defines the JSON data expected for a login.
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /login.
func (h *Handlers) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	db := h.DB.WithContext(c.Request.Context())

	var user models.User
	err := db.Where("email = ?", normalizeEmail(input.Email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		internalError(c, "Database error", err)
		return
	}

	password := models.Password{Hash: user.PasswordHash}
	match, err := password.Matches(input.Password)
	if err != nil {
		internalError(c, "Failed to check password", err)
		return
	}
	if !match {
		respondError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	resp, err := h.issueTokens(db, user)
	if err != nil {
		internalError(c, "Failed to generate token", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// --- Logout & Refresh ---

// RefreshTokenInput is the body of /logout and /refresh.
type RefreshTokenInput struct {
	RefreshToken string `json:"refreshToken"`
}

// Logout handles POST /logout. It forgets the refresh token; access tokens
// already handed out stay valid until they expire.
func (h *Handlers) Logout(c *gin.Context) {
	var input RefreshTokenInput
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if input.RefreshToken == "" {
		respondError(c, http.StatusBadRequest, "Refresh token required")
		return
	}

	err := h.DB.WithContext(c.Request.Context()).
		Where("token_hash = ?", auth.HashToken(input.RefreshToken)).
		Delete(&models.RefreshToken{}).Error
	if err != nil {
		internalError(c, "Failed to log out", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Refresh handles POST /refresh: a persisted, unexpired refresh token buys a
// new access token without the password.
func (h *Handlers) Refresh(c *gin.Context) {
	var input RefreshTokenInput
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if input.RefreshToken == "" {
		respondError(c, http.StatusUnauthorized, "Refresh token required")
		return
	}

	userID, err := h.Tokens.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			respondError(c, http.StatusForbidden, "Refresh token expired")
			return
		}
		respondError(c, http.StatusForbidden, "Invalid refresh token")
		return
	}

	var stored models.RefreshToken
	err = h.DB.WithContext(c.Request.Context()).
		Where("token_hash = ?", auth.HashToken(input.RefreshToken)).
		First(&stored).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusForbidden, "Refresh token not recognized")
			return
		}
		internalError(c, "Database error", err)
		return
	}
	if stored.UserID != userID {
		respondError(c, http.StatusForbidden, "Invalid refresh token")
		return
	}
	if stored.IsExpired(h.now()) {
		respondError(c, http.StatusForbidden, "Refresh token expired")
		return
	}

	accessToken, err := h.Tokens.GenerateAccessToken(userID)
	if err != nil {
		internalError(c, "Failed to generate token", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"accessToken": accessToken})
}

// --- Users & Profile ---

// GetUsers handles GET /users.
func (h *Handlers) GetUsers(c *gin.Context) {
	users := []models.User{}
	if err := h.DB.WithContext(c.Request.Context()).Order("id ASC").Find(&users).Error; err != nil {
		internalError(c, "Failed to fetch users", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// UpdateProfileInput only carries the fields the caller wants to change.
type UpdateProfileInput struct {
	Name     *string `json:"name" binding:"omitempty,max=255"`
	Email    *string `json:"email" binding:"omitempty,email,max=255"`
	Password *string `json:"password" binding:"omitempty,min=8,max=72"`
}

// UpdateProfile handles PUT /profile and PUT /update-profile.
func (h *Handlers) UpdateProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			respondError(c, http.StatusBadRequest, "Name cannot be empty")
			return
		}
		updates["name"] = name
	}
	if input.Email != nil {
		updates["email"] = normalizeEmail(*input.Email)
	}
	if input.Password != nil {
		var password models.Password
		if err := password.Set(*input.Password); err != nil {
			internalError(c, "Failed to hash password", err)
			return
		}
		updates["password_hash"] = password.Hash
	}
	if len(updates) == 0 {
		respondError(c, http.StatusBadRequest, "Nothing to update")
		return
	}

	var user models.User
	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}
		if newEmail, ok := updates["email"].(string); ok && newEmail != user.Email {
			taken, err := emailTaken(tx, newEmail, user.ID)
			if err != nil {
				return err
			}
			if taken {
				return errDuplicateUser
			}
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			if database.IsDuplicateKey(err) {
				return errDuplicateUser
			}
			return err
		}
		return tx.First(&user, userID).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			respondError(c, http.StatusNotFound, "User not found")
		case errors.Is(err, errDuplicateUser):
			respondError(c, http.StatusBadRequest, "Email already in use")
		default:
			internalError(c, "Failed to update profile", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// --- helpers ---

// issueTokens signs a token pair and persists the refresh token.
func (h *Handlers) issueTokens(db *gorm.DB, user models.User) (AuthResponse, error) {
	accessToken, err := h.Tokens.GenerateAccessToken(user.ID)
	if err != nil {
		return AuthResponse{}, err
	}
	refreshToken, expiresAt, err := h.Tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return AuthResponse{}, err
	}

	row := models.RefreshToken{
		UserID:    user.ID,
		TokenHash: auth.HashToken(refreshToken),
		ExpiresAt: expiresAt,
		CreatedAt: h.now(),
	}
	if err := db.Create(&row).Error; err != nil {
		return AuthResponse{}, err
	}

	return AuthResponse{AccessToken: accessToken, RefreshToken: refreshToken, User: user}, nil
}

func emailTaken(db *gorm.DB, email string, exceptID int64) (bool, error) {
	var count int64
	q := db.Model(&models.User{}).Where("email = ?", email)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
